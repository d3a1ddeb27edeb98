package shared

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var cyrillic = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "e", 'ж': "zh",
	'з': "z", 'и': "i", 'й': "i", 'к': "k", 'л': "l", 'м': "m", 'н': "n", 'о': "o",
	'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u", 'ф': "f", 'х': "h", 'ц': "ts",
	'ч': "ch", 'ш': "sh", 'щ': "sch", 'ъ': "", 'ы': "y", 'ь': "", 'э': "e", 'ю': "yu",
	'я': "ya",
}

// Slugify lowercases value, transliterates Cyrillic, strips Latin diacritics and
// collapses every other run of characters into a single "-".
//
// The result is trimmed of leading and trailing dashes and may be empty.
func Slugify(value string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(value) {
		var chunk string
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			chunk = string(r)
		default:
			if t, ok := cyrillic[r]; ok {
				chunk = t
			} else {
				chunk = foldAccents(r)
			}
		}

		if chunk == "" {
			if _, ok := cyrillic[r]; ok {
				continue
			}
			dash = b.Len() > 0
			continue
		}
		if dash {
			b.WriteByte('-')
			dash = false
		}
		b.WriteString(chunk)
	}
	return b.String()
}

// foldAccents returns the ASCII base letter of an accented rune ("é" → "e"), or "" when there is none.
func foldAccents(r rune) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, string(r))
	if err != nil {
		return ""
	}
	var b strings.Builder
	for _, c := range out {
		if c < unicode.MaxASCII && (unicode.IsLetter(c) || unicode.IsDigit(c)) {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// TrimArchiveExt strips a trailing .zip or .zipx extension, case-insensitively.
func TrimArchiveExt(name string) string {
	lower := strings.ToLower(name)
	for _, ext := range []string{".zipx", ".zip"} {
		if strings.HasSuffix(lower, ext) {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}

// IsArchiveName reports whether name carries a .zip or .zipx extension.
func IsArchiveName(name string) bool {
	return TrimArchiveExt(name) != name
}
