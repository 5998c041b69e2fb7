package plate

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// edgeJunk is trimmed from both ends of a candidate before the hyphen pass.
const edgeJunk = "\"'()[]{}.,;:!?*# "

var (
	// overlayCapture matches the "Plate: XXXX" caption speed cameras burn
	// into their frames. The payload may contain spaces.
	overlayCapture = regexp.MustCompile(`(?i)Plate:\s*([A-Z0-9\s]{6,15})`)

	whitespaceRun = regexp.MustCompile(`\s+`)

	// stripPrefixes are removed, in order, from the front of a candidate.
	stripPrefixes = []string{"(ND)", "IND", "NO", "ND"}
)

// Clean normalizes raw OCR text into a plate candidate. It never fails; text
// that is all junk comes back empty.
func Clean(raw string) string {
	t := strings.TrimSpace(raw)
	if t == "" {
		return ""
	}

	if m := overlayCapture.FindStringSubmatch(t); m != nil {
		t = strings.TrimSpace(m[1])
	}

	t = stripKnownPrefixes(t)

	t = strings.Trim(t, edgeJunk)
	t = strings.Trim(t, "-")

	// dots are separators on plates (TN.52 -> TN52)
	t = strings.ReplaceAll(t, ".", "")

	t = dropInnerHyphens(t)

	return strings.TrimSpace(whitespaceRun.ReplaceAllString(t, " "))
}

// stripKnownPrefixes removes each prefix once, in list order, when it is
// followed by whitespace or glued directly to a letter ("INDTS09...").
func stripKnownPrefixes(t string) string {
	for _, prefix := range stripPrefixes {
		if len(t) <= len(prefix) || !strings.EqualFold(t[:len(prefix)], prefix) {
			continue
		}
		next, _ := utf8.DecodeRuneInString(t[len(prefix):])
		if next == ' ' || next == '\t' || unicode.IsLetter(next) {
			t = strings.TrimSpace(t[len(prefix):])
		}
	}
	return t
}

// dropInnerHyphens removes every hyphen whose neighbours on both sides are
// ASCII letters or digits (U-D -> UD). A hyphen next to a space survives.
func dropInnerHyphens(t string) string {
	if !strings.Contains(t, "-") {
		return t
	}
	var b strings.Builder
	b.Grow(len(t))
	for i := 0; i < len(t); i++ {
		c := t[i]
		if c == '-' && i > 0 && i+1 < len(t) && isASCIIAlnum(t[i-1]) && isASCIIAlnum(t[i+1]) {
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isASCIIAlnum(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}
