// Package layout derives the data directories of a pipeline run from its base
// directory.
package layout

import (
	"os"
	"strings"
)

const dataDir = "data"

// Layout holds the directory of every layer.
type Layout struct {
	Raw    string
	Bronze string
	Silver string
	Gold   string
}

// Resolve returns {base}/data/{raw,bronze,silver,gold}. The paths are derived
// textually and nothing is created. An empty base means ".".
func Resolve(base string) Layout {
	root := join(trimBase(base), dataDir)

	return Layout{
		Raw:    join(root, "raw"),
		Bronze: join(root, "bronze"),
		Silver: join(root, "silver"),
		Gold:   join(root, "gold"),
	}
}

func trimBase(base string) string {
	if base == "" {
		return "."
	}

	trimmed := strings.TrimRight(base, string(os.PathSeparator))
	if trimmed == "" {
		// base is the filesystem root
		return ""
	}

	return trimmed
}

func join(parent, child string) string {
	return parent + string(os.PathSeparator) + child
}
