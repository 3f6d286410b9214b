package identifiers

import (
	"regexp"
	"strings"
	"unicode"
)

// Pass reports which extraction pass produced an ISBN.
type Pass string

const (
	PassLabeled  Pass = "labeled"
	PassDigitRun Pass = "digit_run"
	PassNone     Pass = ""
)

var (
	// An optional ISBN, ISBN-10 or ISBN-13 marker followed by a group of
	// 10 to 13 digits separated by single spaces or hyphens, with an
	// optional trailing X check character. Separators never span lines.
	labeledRE  = regexp.MustCompile(`(?i)(?:(ISBN(?:[ -]?1[03])?[ -]*:?[ -]*)|\b)(\d(?:[ -]?\d){8,11}[ -]?[\dX])\b`)
	digitRunRE = regexp.MustCompile(`\d{10,13}`)
)

// Canonicalize removes all hyphen and whitespace characters from an ISBN.
// The result is the only form used as a uniqueness key for books.
func Canonicalize(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if r == '-' || unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Extract derives an ISBN-10 or ISBN-13 from recognized text. The second
// return value is false when no candidate validates, which is a normal
// outcome for noisy scans rather than an error.
func Extract(text string) (string, bool) {
	isbn, pass := ExtractWithPass(text)
	return isbn, pass != PassNone
}

// ExtractWithPass is Extract but also reports which pass matched.
//
// The labeled pass looks at a single match: the first one carrying an ISBN
// marker, or the first digit group when no marker is present. The digit run
// pass then walks every run of 10-13 digits in order.
func ExtractWithPass(text string) (string, Pass) {
	if isbn, ok := labeledCandidate(text); ok {
		return isbn, PassLabeled
	}

	for _, candidate := range digitRunRE.FindAllString(text, -1) {
		switch len(candidate) {
		case 13:
			if HasISBN13Prefix(candidate) {
				return candidate, PassDigitRun
			}
		case 10:
			return candidate, PassDigitRun
		}
	}

	return "", PassNone
}

// HasISBN13Prefix reports whether a value starts with one of the registered
// ISBN-13 prefixes (978 or 979).
func HasISBN13Prefix(value string) bool {
	return strings.HasPrefix(value, "978") || strings.HasPrefix(value, "979")
}

func labeledCandidate(text string) (string, bool) {
	matches := labeledRE.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return "", false
	}

	match := matches[0]
	for _, m := range matches {
		if m[1] != "" {
			match = m
			break
		}
	}

	candidate := strings.ToUpper(Canonicalize(match[2]))
	switch len(candidate) {
	case 10:
		return candidate, true
	case 13:
		// Without a marker this is just a digit group, so it gets the same
		// prefix check as a bare digit run.
		if match[1] == "" && !HasISBN13Prefix(candidate) {
			return "", false
		}
		return candidate, true
	default:
		return "", false
	}
}
