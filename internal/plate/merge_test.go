package plate

import (
	"reflect"
	"testing"
)

func block(text string, conf, left, width float64) TextBlock {
	return TextBlock{
		Text:        text,
		Confidence:  conf,
		BoundingBox: BoundingBox{Left: left, Top: 0.4, Width: width, Height: 0.05},
	}
}

func TestMergeAdjacent(t *testing.T) {
	tests := []struct {
		name   string
		blocks []TextBlock
		want   []string
	}{
		{
			name:   "empty",
			blocks: nil,
			want:   nil,
		},
		{
			name:   "single",
			blocks: []TextBlock{block("TS08", 90, 0.1, 0.1)},
			want:   []string{"TS08"},
		},
		{
			name: "close blocks join",
			blocks: []TextBlock{
				block("TS08", 90, 0.10, 0.10),
				block("FW3131", 90, 0.21, 0.10),
			},
			want: []string{"TS08 FW3131"},
		},
		{
			name: "far block starts a new group",
			blocks: []TextBlock{
				block("TS08", 90, 0.10, 0.10),
				block("FW", 90, 0.22, 0.05),
				block("3131", 90, 0.60, 0.10),
			},
			want: []string{"TS08 FW", "3131"},
		},
		{
			name: "overlap counts as adjacent",
			blocks: []TextBlock{
				block("AP", 90, 0.30, 0.20),
				block("29", 90, 0.10, 0.10),
			},
			want: []string{"AP 29"},
		},
		{
			name: "blank groups dropped",
			blocks: []TextBlock{
				block("  ", 90, 0.10, 0.10),
				block("TS08", 90, 0.60, 0.10),
			},
			want: []string{"TS08"},
		},
		{
			name: "group is trimmed",
			blocks: []TextBlock{
				block(" TS08", 90, 0.10, 0.10),
				block("", 90, 0.21, 0.10),
			},
			want: []string{"TS08"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeAdjacent(tt.blocks)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("MergeAdjacent() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMergeAdjacent_GapIsMeasuredFromPreviousBlock(t *testing.T) {
	// the chain keeps growing as long as each step is small
	blocks := []TextBlock{
		block("A1", 90, 0.00, 0.10),
		block("B2", 90, 0.12, 0.10),
		block("C3", 90, 0.24, 0.10),
		block("D4", 90, 0.36, 0.10),
	}
	got := MergeAdjacent(blocks)
	want := []string{"A1 B2 C3 D4"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}
