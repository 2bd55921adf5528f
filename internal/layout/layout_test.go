package layout_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/askiada/go-medallion/internal/layout"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		base     string
		expected layout.Layout
	}{
		{
			name: "absolute",
			base: "/tmp/x",
			expected: layout.Layout{
				Raw:    "/tmp/x/data/raw",
				Bronze: "/tmp/x/data/bronze",
				Silver: "/tmp/x/data/silver",
				Gold:   "/tmp/x/data/gold",
			},
		},
		{
			name: "current directory",
			base: ".",
			expected: layout.Layout{
				Raw:    "./data/raw",
				Bronze: "./data/bronze",
				Silver: "./data/silver",
				Gold:   "./data/gold",
			},
		},
		{
			name: "empty means current directory",
			base: "",
			expected: layout.Layout{
				Raw:    "./data/raw",
				Bronze: "./data/bronze",
				Silver: "./data/silver",
				Gold:   "./data/gold",
			},
		},
		{
			name: "trailing separator",
			base: "relative/dir/",
			expected: layout.Layout{
				Raw:    "relative/dir/data/raw",
				Bronze: "relative/dir/data/bronze",
				Silver: "relative/dir/data/silver",
				Gold:   "relative/dir/data/gold",
			},
		},
		{
			name: "root",
			base: "/",
			expected: layout.Layout{
				Raw:    "/data/raw",
				Bronze: "/data/bronze",
				Silver: "/data/silver",
				Gold:   "/data/gold",
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, layout.Resolve(tt.base))
			// deterministic
			assert.Equal(t, layout.Resolve(tt.base), layout.Resolve(tt.base))
		})
	}
}

func TestResolveDoesNotTouchFilesystem(t *testing.T) {
	t.Parallel()

	base := t.TempDir() + "/does/not/exist"
	l := layout.Resolve(base)
	assert.Equal(t, base+"/data/raw", l.Raw)
	assert.NoDirExists(t, base)
}
