package biasmap

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/url"
	"strconv"

	"github.com/gonum/floats"
)

// Summary holds aggregate figures over one result table.
type Summary struct {
	Count         int
	Mean          float64
	Min           float64
	Max           float64
	MostPositive  string
	LeastPositive string
}

// Summarize computes mean and extremes of the positive-class probability.
func Summarize(t ResultTable) Summary {
	if t.Len() == 0 {
		return Summary{}
	}
	probs := make([]float64, t.Len())
	for i, r := range t.rows {
		probs[i] = r.PositiveProbability
	}
	minIdx := floats.MinIdx(probs)
	maxIdx := floats.MaxIdx(probs)
	return Summary{
		Count:         len(probs),
		Mean:          floats.Round(floats.Sum(probs)/float64(len(probs)), 4),
		Min:           probs[minIdx],
		Max:           probs[maxIdx],
		MostPositive:  t.rows[maxIdx].Region.Name,
		LeastPositive: t.rows[minIdx].Region.Name,
	}
}

// WriteCSV writes the table in catalog order.
func WriteCSV(w io.Writer, t ResultTable) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"country", "geometry_key", "positive_probability"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, tr := range t.Triples() {
		row := []string{tr.RegionName, tr.GeometryKey, strconv.FormatFloat(tr.PositiveProbability, 'f', 6, 64)}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush result: %w", err)
	}
	return nil
}

// ShareURL builds a tweet intent link describing the extremes of the table.
func ShareURL(t ResultTable, appURL string) string {
	text := fmt.Sprintf("Is the sentiment model biased? %q", t.Template())
	if s := Summarize(t); s.Count > 0 {
		text = fmt.Sprintf("%s → most positive: %s (%.2f), least positive: %s (%.2f)",
			text, s.MostPositive, s.Max, s.LeastPositive, s.Min)
	}
	q := url.Values{}
	q.Set("text", text)
	if appURL != "" {
		q.Set("url", appURL)
	}
	return "https://twitter.com/intent/tweet?" + q.Encode()
}
