package plate

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var defaultNoiseWords = []string{
	"IND", "NO", "ND", "MC", "HIRE", "FOR", "GOODS", "CARRIER", "CONTRACT",
	"CARRIAGE", "GOVT", "HICLE", "VEHICLE", "AUTO", "MOTOR", "CAB", "CNG",
	"ASHOK", "LEYLAND", "ASHOKILEYLAND", "TATA", "SIGNA", "EICHER", "KIA",
	"ISUZU", "BHARATBENZ", "MAHINDRA", "POLICE", "LAKSHMI", "KRISHNA",
	"PVT", "LTD", "SUPER", "ROCKET", "RANGE", "ROVER", "DRIVING",
	"ROAD", "KING", "SECTION", "AMOUNT", "FRESH", "FRESS",
	"SPEED", "CLASS", "PLATE", "LANE", "DATE", "RHS", "LHS", "CH",
	"CAR", "BIKE", "TRUCK", "LCV", "BUS",
	"THE", "AND", "OF", "IN", "ON", "AT", "TO", "IS", "IT", "IF",
	"PP", "CK", "KO", "AO", "LI", "RE", "DE", "BE", "YK", "YS",
	"ARM", "CII", "NZB", "ISI", "PO", "JAI", "SANTOS", "HILL",
	"PRO", "EUTECH", "EUTECH6", "MEONAME",
}

// noiseShapes are overlay fragments: clock times, ISO dates, speed readouts
// and lane markers.
var noiseShapes = []*regexp.Regexp{
	regexp.MustCompile(`^\d{1,2}:\d{2}(:\d{2})?$`),
	regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`),
	regexp.MustCompile(`(?i)^\d+\s*km/h$`),
	regexp.MustCompile(`(?i)^[\d+]*\s*RHS$`),
	regexp.MustCompile(`(?i)^[\d+]*\s*LHS$`),
}

// DefaultNoiseWords returns a copy of the built-in noise vocabulary: vehicle
// brands, body-text words, overlay labels and short OCR fragments.
func DefaultNoiseWords() []string {
	out := make([]string, len(defaultNoiseWords))
	copy(out, defaultNoiseWords)
	return out
}

// NoiseClassifier decides whether a text can never be a plate.
type NoiseClassifier struct {
	words map[string]struct{}
}

// NewNoiseClassifier builds a classifier from the default vocabulary plus any
// extra words. Extra words are matched case-insensitively.
func NewNoiseClassifier(extra ...string) *NoiseClassifier {
	words := make(map[string]struct{}, len(defaultNoiseWords)+len(extra))
	for _, w := range defaultNoiseWords {
		words[w] = struct{}{}
	}
	for _, w := range extra {
		w = strings.ToUpper(strings.TrimSpace(w))
		if w != "" {
			words[w] = struct{}{}
		}
	}
	return &NoiseClassifier{words: words}
}

// IsNoise reports whether text is noise.
func (n *NoiseClassifier) IsNoise(text string) bool {
	t := strings.TrimRight(strings.ToUpper(strings.TrimSpace(text)), ".-:,;!?")

	if utf8.RuneCountInString(t) <= 1 {
		return true
	}
	if _, ok := n.words[t]; ok {
		return true
	}
	for _, re := range noiseShapes {
		if re.MatchString(t) {
			return true
		}
	}
	// contact details painted on commercial vehicles
	return strings.Contains(t, "@") || strings.Contains(strings.ToLower(t), "gmail")
}

var defaultNoise = NewNoiseClassifier()

// IsNoise reports whether text is noise under the default vocabulary.
func IsNoise(text string) bool {
	return defaultNoise.IsNoise(text)
}
