// Package config holds the settings of a pipeline run.
//
// Settings come from, in increasing precedence: Default, an optional YAML
// file read by LoadFromFile, and the command line flags applied with Merge.
// The SAS token is never read from the file.
package config
