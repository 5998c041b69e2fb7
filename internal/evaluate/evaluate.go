// Package evaluate scores extraction results against expected plates.
package evaluate

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/arbovm/levenshtein"
	"github.com/olekukonko/tablewriter"

	"github.com/platinummonkey/platescan/internal/batch"
	"github.com/platinummonkey/platescan/internal/plate"
)

// Expectation is one row of a ground-truth file
type Expectation struct {
	Image    string `json:"image"`
	Expected string `json:"expected"`
}

// LoadExpectations reads an image,expected CSV. A header row naming the
// image column is skipped. Blank lines are ignored.
func LoadExpectations(path string) ([]Expectation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open expectations: %w", err)
	}
	defer f.Close()
	return ReadExpectations(f)
}

// ReadExpectations parses expectations from r
func ReadExpectations(r io.Reader) ([]Expectation, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var out []Expectation
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse expectations: %w", err)
		}
		if line == 1 && len(rec) > 0 && strings.EqualFold(strings.TrimSpace(rec[0]), "image") {
			continue
		}
		if len(rec) < 2 {
			return nil, fmt.Errorf("expectations line %d: want image,expected, got %d fields", line, len(rec))
		}
		image := strings.TrimSpace(rec[0])
		if image == "" {
			return nil, fmt.Errorf("expectations line %d: empty image", line)
		}
		out = append(out, Expectation{Image: image, Expected: strings.TrimSpace(rec[1])})
	}
	return out, nil
}

// Case is the score for one image
type Case struct {
	Image     string  `json:"image"`
	Expected  string  `json:"expected"`
	Predicted string  `json:"predicted"`
	Match     bool    `json:"match"`
	Distance  int     `json:"distance"`
	CER       float64 `json:"cer"`
	Error     string  `json:"error,omitempty"`
}

// Report aggregates the cases of an evaluation run
type Report struct {
	Cases    []Case  `json:"cases"`
	Total    int     `json:"total"`
	Matched  int     `json:"matched"`
	Failed   int     `json:"failed"`
	Accuracy float64 `json:"accuracy"`
	MeanCER  float64 `json:"mean_cer"`
}

// Evaluate compares the best plate of each result with its expectation.
// Results are matched by path, then by file name. Plates are compared on
// their normalized key, so spacing and case do not count as errors.
func Evaluate(expectations []Expectation, results []batch.ImageResult) *Report {
	byPath := make(map[string]*batch.ImageResult, len(results))
	byName := make(map[string]*batch.ImageResult, len(results))
	for i := range results {
		byPath[results[i].Image] = &results[i]
		byName[filepath.Base(results[i].Image)] = &results[i]
	}

	rep := &Report{Cases: make([]Case, 0, len(expectations))}
	var cerSum float64
	for _, e := range expectations {
		res, ok := byPath[e.Image]
		if !ok {
			res, ok = byName[filepath.Base(e.Image)]
		}

		c := Case{Image: e.Image, Expected: e.Expected}
		switch {
		case !ok:
			c.Error = "image not processed"
		case !res.Success:
			c.Error = res.Error
		default:
			if best, found := res.BestPlate(); found {
				c.Predicted = best.Text
			}
		}
		if c.Error != "" {
			rep.Failed++
		}

		c.Distance, c.CER = Score(e.Expected, c.Predicted)
		c.Match = c.Distance == 0 && c.Error == ""
		if c.Match {
			rep.Matched++
		}
		cerSum += c.CER
		rep.Cases = append(rep.Cases, c)
	}

	rep.Total = len(rep.Cases)
	if rep.Total > 0 {
		rep.Accuracy = plate.Round2(float64(rep.Matched) / float64(rep.Total) * 100)
		rep.MeanCER = plate.Round2(cerSum / float64(rep.Total))
	}
	return rep
}

// Score returns the edit distance between the normalized keys of expected
// and predicted, and the character error rate relative to expected.
func Score(expected, predicted string) (int, float64) {
	e := plate.NormalizedKey(expected)
	p := plate.NormalizedKey(predicted)
	d := levenshtein.Distance(e, p)

	n := utf8.RuneCountInString(e)
	if n == 0 {
		if d == 0 {
			return 0, 0
		}
		return d, 1
	}
	return d, plate.Round2(float64(d) / float64(n))
}

// WriteTable renders the report as a table followed by the totals
func (r *Report) WriteTable(w io.Writer) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Image", "Expected", "Predicted", "Match", "CER"})
	table.SetAutoWrapText(false)
	for _, c := range r.Cases {
		predicted := c.Predicted
		if c.Error != "" {
			predicted = "error: " + c.Error
		}
		match := "no"
		if c.Match {
			match = "yes"
		}
		table.Append([]string{c.Image, c.Expected, predicted, match, fmt.Sprintf("%.2f", c.CER)})
	}
	table.Render()

	_, err := fmt.Fprintf(w, "\nAccuracy: %.2f%% (%d/%d)  Mean CER: %.2f  Failed: %d\n",
		r.Accuracy, r.Matched, r.Total, r.MeanCER, r.Failed)
	return err
}
