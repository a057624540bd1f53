package tracking

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripAccents decomposes to NFD, drops combining marks and recomposes.
var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// ColumnKey maps a human-readable checklist label to its stable storage key:
// accents stripped, lowercased, every run of non-[a-z0-9] characters collapsed
// to a single underscore, leading/trailing underscores trimmed.
//
// The function is total (never fails, empty label maps to empty string) and
// idempotent. Two labels colliding on the same key is a catalog-modeling
// error validated when catalog items are written, not here.
func ColumnKey(label string) string {
	plain, _, err := transform.String(stripAccents, label)
	if err != nil {
		// Malformed input falls back to the raw label; the rune filter
		// below still produces a usable key.
		plain = label
	}

	plain = strings.ToLower(plain)

	var b strings.Builder
	b.Grow(len(plain))
	pendingSep := false
	for _, r := range plain {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}

	return b.String()
}
