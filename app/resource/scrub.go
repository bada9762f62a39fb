package resource

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

var numericEntityPattern = regexp.MustCompile(`&#(\d+);`)

// escapedRunes are written as decimal character references so servers
// reading the payload in a legacy code page keep them intact.
var escapedRunes = map[rune]bool{
	0x2013: true, // en dash
	0x2014: true, // em dash
	0x2032: true, // prime
	0x201C: true,
	0x201D: true,
	0x2018: true,
	0x2019: true,
	0x00A0: true, // no-break space
	0x00AD: true, // soft hyphen
	0x00B5: true, // micro sign
	0x0247: true,
	0x2011: true, // non-breaking hyphen
	0x2026: true, // ellipsis
}

var invalidXMLChars = runes.Remove(runes.Predicate(func(r rune) bool {
	return !isXMLChar(r)
}))

// ScrubXML drops characters and character references that XML 1.0 does not
// allow, and writes smart punctuation and supplementary plane characters as
// numeric character references.
func ScrubXML(s string) string {
	if s == "" {
		return s
	}

	s = numericEntityPattern.ReplaceAllStringFunc(s, func(ref string) string {
		n, err := strconv.Atoi(ref[2 : len(ref)-1])
		if err != nil || !isXMLChar(rune(n)) {
			return ""
		}
		return ref
	})

	cleaned, _, err := transform.String(invalidXMLChars, s)
	if err != nil {
		cleaned = s
	}

	var b strings.Builder
	b.Grow(len(cleaned))
	for _, r := range cleaned {
		if escapedRunes[r] || r >= 0x10000 {
			b.WriteString("&#")
			b.WriteString(strconv.Itoa(int(r)))
			b.WriteString(";")
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isXMLChar(r rune) bool {
	return r == 0x9 || r == 0xA || r == 0xD ||
		(r >= 0x20 && r <= 0xD7FF) ||
		(r >= 0xE000 && r <= 0xFFFD) ||
		(r >= 0x10000 && r <= 0x10FFFF)
}
