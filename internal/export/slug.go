package export

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Slug lowercases s, strips accents and joins the remaining alphanumeric runs
// with dashes.
func Slug(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, s)
	if err != nil {
		plain = s
	}
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(plain) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
			continue
		}
		dash = true
	}
	return b.String()
}

// FileName builds "programa-<slug>.<ext>". Names with nothing left after
// slugging fall back to "sem-nome".
func FileName(programa, ext string) string {
	slug := Slug(programa)
	if slug == "" {
		slug = "sem-nome"
	}
	return "programa-" + slug + "." + strings.TrimPrefix(ext, ".")
}
