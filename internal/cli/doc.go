// Package cli builds the medallion command.
package cli
