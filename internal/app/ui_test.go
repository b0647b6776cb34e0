package app

import (
	"errors"
	"fmt"
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yashubustudio/biasmap/biasmap"
)

func TestProbabilityColorEnds(t *testing.T) {
	assert.Equal(t, color.NRGBA{R: 240, G: 249, B: 255, A: 255}, probabilityColor(0))
	assert.Equal(t, color.NRGBA{R: 13, G: 8, B: 135, A: 255}, probabilityColor(1))
	assert.Equal(t, probabilityColor(1), probabilityColor(3))
	assert.Equal(t, probabilityColor(0), probabilityColor(-1))

	mid := probabilityColor(0.5)
	assert.Less(t, mid.B, uint8(255))
	assert.Greater(t, mid.B, uint8(135))
}

func TestOrderedRowsDoesNotMutateTable(t *testing.T) {
	table := biasmap.NewResultTable("Made in *", []biasmap.ScoredRegion{
		{Region: biasmap.Region{Name: "B"}, PositiveProbability: 0.2},
		{Region: biasmap.Region{Name: "A"}, PositiveProbability: 0.8},
		{Region: biasmap.Region{Name: "C"}, PositiveProbability: 0.5},
	})
	asc := orderedRows(table, orderAscending)
	assert.Equal(t, "B", asc[0].Region.Name)
	desc := orderedRows(table, orderDescending)
	assert.Equal(t, "A", desc[0].Region.Name)
	cat := orderedRows(table, orderCatalog)
	assert.Equal(t, "B", cat[0].Region.Name)
	assert.Equal(t, "C", table.At(2).Region.Name)
}

func TestLogSinkKeepsTail(t *testing.T) {
	var out strings.Builder
	sink := newLogSink(&out)
	var last string
	sink.Subscribe(func(text string) { last = text })
	for i := 0; i < maxLogLines+5; i++ {
		_, err := fmt.Fprintf(sink, "line %d\n", i)
		require.NoError(t, err)
	}
	lines := strings.Split(last, "\n")
	assert.Len(t, lines, maxLogLines)
	assert.Equal(t, fmt.Sprintf("line %d", maxLogLines+4), lines[len(lines)-1])
	assert.Contains(t, out.String(), "line 0\n")
}

func TestDescribeError(t *testing.T) {
	err := describeError(fmt.Errorf("%w: boom", biasmap.ErrOracleUnavailable))
	assert.Contains(t, err.Error(), "unavailable")
	assert.ErrorIs(t, err, biasmap.ErrOracleUnavailable)

	plain := errors.New("plain")
	assert.Equal(t, plain, describeError(plain))
}

func TestValidationMessageMentionsPlaceholder(t *testing.T) {
	err := biasmap.ValidateTemplate("no placeholder here")
	require.ErrorIs(t, err, biasmap.ErrValidation)
	title, msg := validationMessage(err)
	assert.Equal(t, "Use the placeholder", title)
	assert.Contains(t, msg, "'*'")
	assert.Contains(t, msg, "missing placeholder")
}
