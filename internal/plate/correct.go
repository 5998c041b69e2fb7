package plate

import "unicode/utf8"

// Repair guard: candidates whose separator-free length falls outside this
// range are too short or too long to guess at.
const (
	minRepairLength = 7
	maxRepairLength = 13
)

type repairState int

const (
	stateRegion repairState = iota
	stateDistrict
	stateRest
)

// Corrector substitutes commonly confused glyphs by position: the region
// code must be letters, the district code must be digits.
type Corrector struct {
	letterFixes map[rune]rune
	digitFixes  map[rune]rune
}

// DefaultCorrector returns the corrector with the standard confusion maps.
func DefaultCorrector() *Corrector {
	return &Corrector{
		letterFixes: map[rune]rune{'0': 'O', '1': 'I', '5': 'S', '8': 'B', '6': 'G'},
		digitFixes:  map[rune]rune{'O': '0', 'I': '1', 'l': '1', 'S': '5', 'B': '8', 'G': '6', 'D': '0'},
	}
}

// Repair rewrites the first two logical characters through the letter map
// and the next two through the digit map. Spaces and hyphens are skipped and
// kept in place; everything after the district code is untouched. Text whose
// logical length is outside [7,13] is returned unchanged.
func (c *Corrector) Repair(text string) string {
	n := utf8.RuneCountInString(stripSeparators(text))
	if n < minRepairLength || n > maxRepairLength {
		return text
	}

	out := []rune(text)
	state := stateRegion
	seen := 0
	for i, r := range out {
		if state == stateRest {
			break
		}
		if r == ' ' || r == '-' {
			continue
		}
		switch state {
		case stateRegion:
			if fixed, ok := c.letterFixes[r]; ok {
				out[i] = fixed
			}
		case stateDistrict:
			if fixed, ok := c.digitFixes[r]; ok {
				out[i] = fixed
			}
		}
		seen++
		if seen == 2 {
			state++
			seen = 0
		}
	}
	return string(out)
}
