package plate

import "strings"

var defaultRegionCodes = []string{
	"AN", "AP", "AR", "AS", "BR", "CG", "CH", "DD", "DL", "GA", "GJ", "HP",
	"HR", "JH", "JK", "KA", "KL", "LA", "LD", "MH", "ML", "MN", "MP", "MZ",
	"NL", "OD", "PB", "PY", "RJ", "SK", "TG", "TN", "TR", "TS", "UK", "UP",
	"WB",
}

// DefaultRegionCodes returns the two-letter state and union territory codes
// that may open a plate.
func DefaultRegionCodes() []string {
	out := make([]string, len(defaultRegionCodes))
	copy(out, defaultRegionCodes)
	return out
}

// RegionValidator checks the leading region code of a candidate.
type RegionValidator struct {
	codes map[string]struct{}
}

// NewRegionValidator builds a validator for the given codes, or for the
// default set when none are given.
func NewRegionValidator(codes ...string) *RegionValidator {
	if len(codes) == 0 {
		codes = defaultRegionCodes
	}
	v := &RegionValidator{codes: make(map[string]struct{}, len(codes))}
	for _, c := range codes {
		v.codes[strings.ToUpper(strings.TrimSpace(c))] = struct{}{}
	}
	return v
}

// HasValidPrefix reports whether the first two characters of text, ignoring
// spaces and hyphens, form a known region code.
func (v *RegionValidator) HasValidPrefix(text string) bool {
	compact := strings.ToUpper(stripSeparators(text))
	if len(compact) < 2 {
		return false
	}
	_, ok := v.codes[compact[:2]]
	return ok
}

func stripSeparators(text string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(text)
}
