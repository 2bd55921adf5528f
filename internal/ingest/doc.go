// Package ingest downloads the raw CSV files of a blob container.
package ingest
