package engine

import (
	"strings"
	"unicode"
)

// Identifier turns an arbitrary label into a lower snake case SQL identifier.
// Runs of characters other than letters and digits become a single '_'; a
// leading digit is prefixed with '_'. An empty result becomes "col".
func Identifier(label string) string {
	var b strings.Builder

	pendingSep := false
	for _, r := range strings.ToLower(strings.TrimSpace(label)) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)

			continue
		}
		pendingSep = true
	}

	res := b.String()
	if res == "" {
		return "col"
	}
	if unicode.IsDigit(rune(res[0])) {
		res = "_" + res
	}

	return res
}

// QuoteIdent quotes name for use as an SQL identifier.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Ref returns the qualified reference of table name in the store alias.
func Ref(alias, name string) string {
	return QuoteIdent(alias) + "." + QuoteIdent(name)
}
