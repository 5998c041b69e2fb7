package plate

import "strings"

// AdjacentGap is the largest horizontal gap, as a fraction of image width,
// between two blocks that still read as one string.
const AdjacentGap = 0.05

// MergeAdjacent joins consecutive blocks into strings whenever the next block
// starts less than AdjacentGap to the right of the previous one. Overlapping
// blocks (negative gap) are joined too. Groups that are blank after trimming
// are dropped.
func MergeAdjacent(blocks []TextBlock) []string {
	if len(blocks) == 0 {
		return nil
	}

	var merged []string
	current := blocks[0].Text
	prev := blocks[0]

	flush := func() {
		if t := strings.TrimSpace(current); t != "" {
			merged = append(merged, t)
		}
	}

	for _, b := range blocks[1:] {
		if b.BoundingBox.Left-prev.BoundingBox.Right() < AdjacentGap {
			current += " " + b.Text
		} else {
			flush()
			current = b.Text
		}
		prev = b
	}
	flush()

	return merged
}
