package plate

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultThreshold is the minimum block confidence (0-100) a block needs
	// to take part in the single, merged and adjacent passes.
	DefaultThreshold = 60.0

	// DefaultLowConfidenceThreshold is the floor of the low-confidence tier.
	DefaultLowConfidenceThreshold = 30.0

	// MaxMergeWindow is the largest number of consecutive blocks the merged
	// pass concatenates.
	MaxMergeWindow = 4

	minCandidateLength = 5
)

// overlayMarker is stricter than the cleaner's capture: no spaces in the
// payload.
var overlayMarker = regexp.MustCompile(`(?i)Plate:\s*([A-Z0-9]{6,15})`)

// Options configures an Extractor.
type Options struct {
	// Threshold is the minimum block confidence on a 0-100 scale
	Threshold float64

	// Pattern replaces the built-in layout library when non-empty
	Pattern string

	// NoiseWords are added to the default noise vocabulary
	NoiseWords []string

	// RegionCodes replaces the default region code set when non-empty
	RegionCodes []string
}

// DefaultOptions returns options using the default threshold and layouts.
func DefaultOptions() Options {
	return Options{Threshold: DefaultThreshold}
}

// Extractor runs the four extraction passes over a block list.
type Extractor struct {
	threshold float64
	layouts   *LayoutMatcher
	noise     *NoiseClassifier
	regions   *RegionValidator
	corrector *Corrector
}

// New creates an Extractor. It fails only when opts.Pattern does not compile.
func New(opts Options) (*Extractor, error) {
	layouts, err := NewLayoutMatcher(opts.Pattern)
	if err != nil {
		return nil, err
	}
	return &Extractor{
		threshold: opts.Threshold,
		layouts:   layouts,
		noise:     NewNoiseClassifier(opts.NoiseWords...),
		regions:   NewRegionValidator(opts.RegionCodes...),
		corrector: DefaultCorrector(),
	}, nil
}

// Threshold returns the configured confidence threshold.
func (e *Extractor) Threshold() float64 {
	return e.threshold
}

// Extract returns the deduplicated plate candidates found in blocks, highest
// confidence first. Candidates with equal confidence keep discovery order:
// single, merged, overlay, then adjacent.
func (e *Extractor) Extract(blocks []TextBlock) []Candidate {
	if len(blocks) == 0 {
		return nil
	}

	c := newCollector()

	// single blocks
	for _, b := range blocks {
		text := strings.TrimSpace(b.Text)
		if text == "" || b.Confidence < e.threshold {
			continue
		}
		if m, ok := e.tryMatch(text); ok {
			c.add(m, b.Confidence, SourceSingle)
		}
	}

	// consecutive usable blocks, windows of 2 up to MaxMergeWindow
	usable := e.usableBlocks(blocks)
	for i := range usable {
		end := min(i+MaxMergeWindow, len(usable))
		for j := i + 1; j < end; j++ {
			parts := make([]string, 0, j-i+1)
			var sum float64
			for _, u := range usable[i : j+1] {
				parts = append(parts, u.Text)
				sum += u.Confidence
			}
			if m, ok := e.tryMatch(strings.Join(parts, " ")); ok {
				c.add(m, sum/float64(j-i+1), SourceMerged)
			}
		}
	}

	// overlay captions, regardless of threshold
	for _, b := range blocks {
		sm := overlayMarker.FindStringSubmatch(strings.TrimSpace(b.Text))
		if sm == nil {
			continue
		}
		if m, ok := e.tryMatch(strings.TrimSpace(sm[1])); ok {
			c.add(m, b.Confidence, SourceOverlay)
		}
	}

	// horizontally adjacent blocks
	above := make([]TextBlock, 0, len(blocks))
	var pool float64
	for _, b := range blocks {
		if b.Confidence >= e.threshold {
			above = append(above, b)
			pool += b.Confidence
		}
	}
	if len(above) > 0 {
		avg := pool / float64(len(above))
		for _, text := range MergeAdjacent(above) {
			if m, ok := e.tryMatch(text); ok {
				c.add(m, avg, SourceAdjacent)
			}
		}
	}

	sort.SliceStable(c.out, func(i, j int) bool {
		return c.out[i].Confidence > c.out[j].Confidence
	})
	return c.out
}

// usableBlocks returns the above-threshold blocks whose cleaned text is
// non-empty and not noise, carrying the cleaned text.
func (e *Extractor) usableBlocks(blocks []TextBlock) []TextBlock {
	var usable []TextBlock
	for _, b := range blocks {
		text := strings.TrimSpace(b.Text)
		if text == "" || b.Confidence < e.threshold {
			continue
		}
		cleaned := Clean(text)
		if cleaned == "" || e.noise.IsNoise(cleaned) {
			continue
		}
		usable = append(usable, TextBlock{Text: cleaned, Confidence: b.Confidence, BoundingBox: b.BoundingBox})
	}
	return usable
}

// tryMatch cleans text and accepts it when it has a plate layout and a known
// region code, either as-is or after glyph repair.
func (e *Extractor) tryMatch(text string) (string, bool) {
	cleaned := Clean(text)
	if utf8.RuneCountInString(cleaned) < minCandidateLength {
		return "", false
	}
	if e.noise.IsNoise(cleaned) {
		return "", false
	}
	if e.accepts(cleaned) {
		return cleaned, true
	}
	fixed := e.corrector.Repair(cleaned)
	if fixed != cleaned && e.accepts(fixed) {
		return fixed, true
	}
	return "", false
}

func (e *Extractor) accepts(text string) bool {
	return e.layouts.MatchesAnyLayout(text) && e.regions.HasValidPrefix(text)
}

// collector keeps the first candidate seen for each normalized key.
type collector struct {
	seen map[string]struct{}
	out  []Candidate
}

func newCollector() *collector {
	return &collector{seen: make(map[string]struct{})}
}

func (c *collector) add(text string, confidence float64, source SourceKind) {
	key := NormalizedKey(text)
	if _, dup := c.seen[key]; dup {
		return
	}
	c.seen[key] = struct{}{}
	c.out = append(c.out, Candidate{Text: text, Confidence: confidence, Source: source})
}
