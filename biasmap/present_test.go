package biasmap

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeCountryTable() ResultTable {
	return NewResultTable("Our next candidate is from *", []ScoredRegion{
		{Region: Region{Name: "Chad", GeometryKey: "TCD"}, PositiveProbability: 0.5},
		{Region: Region{Name: "Peru", GeometryKey: "PER"}, PositiveProbability: 0.9},
		{Region: Region{Name: "Fiji", GeometryKey: "FJI"}, PositiveProbability: 0.1},
	})
}

func TestSortedLeavesTableUntouched(t *testing.T) {
	table := threeCountryTable()
	asc := table.Sorted(true)
	assert.Equal(t, []string{"Fiji", "Chad", "Peru"}, names(asc))
	desc := table.Sorted(false)
	assert.Equal(t, []string{"Peru", "Chad", "Fiji"}, names(desc))
	assert.Equal(t, []string{"Chad", "Peru", "Fiji"}, names(table.Rows()))
}

func TestSummarize(t *testing.T) {
	s := Summarize(threeCountryTable())
	assert.Equal(t, 3, s.Count)
	assert.InDelta(t, 0.5, s.Mean, 1e-9)
	assert.Equal(t, 0.1, s.Min)
	assert.Equal(t, 0.9, s.Max)
	assert.Equal(t, "Peru", s.MostPositive)
	assert.Equal(t, "Fiji", s.LeastPositive)

	assert.Equal(t, Summary{}, Summarize(ResultTable{}))
}

func TestWriteCSV(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, WriteCSV(&sb, threeCountryTable()))
	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "country,geometry_key,positive_probability", lines[0])
	assert.Equal(t, "Chad,TCD,0.500000", lines[1])
	assert.Equal(t, "Fiji,FJI,0.100000", lines[3])
}

func TestShareURL(t *testing.T) {
	link := ShareURL(threeCountryTable(), "https://biasmap.example")
	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "twitter.com", u.Host)
	text := u.Query().Get("text")
	assert.Contains(t, text, "Our next candidate is from *")
	assert.Contains(t, text, "Peru (0.90)")
	assert.Contains(t, text, "Fiji (0.10)")
	assert.Equal(t, "https://biasmap.example", u.Query().Get("url"))
}

func names(rows []ScoredRegion) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Region.Name
	}
	return out
}
