package plate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidPattern is returned when a custom plate pattern does not compile.
var ErrInvalidPattern = errors.New("invalid plate pattern")

// Layout is one accepted plate shape.
type Layout struct {
	Name    string
	Example string
	re      *regexp.Regexp
}

// Pattern returns the layout's regular expression source.
func (l Layout) Pattern() string {
	return l.re.String()
}

func layout(name, example, pattern string) Layout {
	return Layout{Name: name, Example: example, re: regexp.MustCompile(pattern)}
}

// Built-in layouts. Every pattern is anchored at both ends and upper-case
// only; input is upper-cased before matching.
var defaultLayouts = []Layout{
	layout("standard", "TS 08 FW 3131", `^([A-Z]{2})[-.\s]?(\d{2})[-.\s]?([A-Z]{1,3})[-.\s]?(\d{3,4})$`),
	layout("single-series", "TG 08 D 8599", `^([A-Z]{2})[-.\s]?(\d{2})[-.\s]?([A-Z])[-.\s]?(\d{4})$`),
	layout("compact", "AP05CH2525", `^([A-Z]{2})(\d{2})([A-Z]{1,3})(\d{3,4})$`),
	layout("spaced-long-number", "TS 08 FW 31310", `^([A-Z]{2})\s(\d{2})\s([A-Z]{1,2})\s(\d{4,5})$`),
	layout("attached-series-alnum", "NL01A J0044", `^([A-Z]{2})[-.\s]?(\d{2})([A-Z])[-.\s]([A-Z]\d{4})$`),
	layout("attached-series-digits", "HR73B 9259", `^([A-Z]{2})[-.\s]?(\d{2})([A-Z])[-.\s](\d{4,5})$`),
	layout("attached-series-short-alnum", "GJ18B V5038", `^([A-Z]{2})[-.\s]?(\d{2})([A-Z])[-.\s]([A-Z]\d{3,4})$`),
	layout("wide-spaced", "TG  10  A  9999", `^([A-Z]{2})\s+(\d{2})\s+([A-Z]{1,2})\s+(\d{3,4})$`),
	layout("district-glued", "TS08 JX4468", `^([A-Z]{2})(\d{2})\s([A-Z]{1,3})[-.\s]?(\d{3,4})$`),
	layout("glued-single-series", "TG16Z 0106", `^([A-Z]{2})(\d{2})([A-Z])[-.\s](\d{4})$`),
	layout("state-spaced", "TS 08UJ0793", `^([A-Z]{2})\s(\d{2})([A-Z]{1,3})(\d{3,4})$`),
	layout("split-series", "AP 16 F J6249", `^([A-Z]{2})\s(\d{2})\s([A-Z])\s([A-Z]\d{4})$`),
	layout("glued-split-series", "TS10F A4680", `^([A-Z]{2})(\d{2})([A-Z])\s([A-Z]\d{4})$`),
	layout("glued-two-series", "TS08FM 1206", `^([A-Z]{2})(\d{2})([A-Z]{2})\s(\d{3,4})$`),
	layout("state-spaced-two-series", "AP 10BA4575", `^([A-Z]{2})\s(\d{2})([A-Z]{2})(\d{4})$`),
}

// DefaultLayouts returns the built-in layout library.
func DefaultLayouts() []Layout {
	out := make([]Layout, len(defaultLayouts))
	copy(out, defaultLayouts)
	return out
}

// LayoutMatcher tests text against the layout library, or against a single
// caller-supplied pattern when one is configured.
type LayoutMatcher struct {
	layouts []Layout
	custom  *regexp.Regexp
}

// NewLayoutMatcher returns a matcher over the built-in layouts when custom is
// empty. Otherwise the library is bypassed and custom is compiled
// case-insensitively; it only has to match at the start of the text.
func NewLayoutMatcher(custom string) (*LayoutMatcher, error) {
	m := &LayoutMatcher{layouts: defaultLayouts}
	if custom == "" {
		return m, nil
	}
	re, err := CompilePattern(custom)
	if err != nil {
		return nil, err
	}
	m.custom = re
	return m, nil
}

// CompilePattern compiles a custom plate pattern the way the matcher uses it.
func CompilePattern(pattern string) (*regexp.Regexp, error) {
	if _, err := regexp.Compile(pattern); err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidPattern, pattern, err)
	}
	re, err := regexp.Compile(`(?i)^(?:` + pattern + `)`)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidPattern, pattern, err)
	}
	return re, nil
}

// MatchesAnyLayout reports whether text has an accepted plate shape.
func (m *LayoutMatcher) MatchesAnyLayout(text string) bool {
	if m.custom != nil {
		return m.custom.MatchString(text)
	}
	t := strings.TrimSpace(strings.ToUpper(text))
	for _, l := range m.layouts {
		if l.re.MatchString(t) {
			return true
		}
	}
	return false
}

// Custom reports whether a caller pattern replaced the layout library.
func (m *LayoutMatcher) Custom() bool {
	return m.custom != nil
}
