package credentials

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// ParseDotenv reads KEY=VALUE lines.
//
// Blank lines, lines starting with '#' and lines without '=' are skipped. A
// line is split on its first '='; key and value are trimmed, then surrounding
// double quotes and single quotes are stripped from the value. When a key is
// repeated the first non-empty value is kept.
func ParseDotenv(r io.Reader) (map[string]string, error) {
	values := make(map[string]string)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.Trim(strings.TrimSpace(value), `"`), `'`)
		if v, seen := values[key]; seen && v != "" {
			continue
		}
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "unable to read dotenv")
	}

	return values, nil
}
