package biasmap

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositiveProbability(t *testing.T) {
	confidences := []float64{0, 0.5, 1}
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 100; i++ {
		confidences = append(confidences, rng.Float64())
	}
	for _, c := range confidences {
		p, err := PositiveProbability(SentimentResult{Label: LabelPositive, Confidence: c})
		require.NoError(t, err)
		assert.Equal(t, c, p)

		n, err := PositiveProbability(SentimentResult{Label: LabelNegative, Confidence: c})
		require.NoError(t, err)
		assert.Equal(t, 1-c, n)
	}
}

func TestPositiveProbabilityUnknownLabel(t *testing.T) {
	_, err := PositiveProbability(SentimentResult{Label: "NEUTRAL", Confidence: 0.4})
	assert.ErrorIs(t, err, ErrOracleContract)
}

func TestScoreSingleBatchInOrder(t *testing.T) {
	oracle := &spyOracle{answer: answerBy(map[string]Prediction{
		"France": {Label: "POSITIVE", Score: 0.9},
		"Japan":  {Label: "NEGATIVE", Score: 0.7},
	})}
	sentences, err := Expand("This movie was filmed in *", sampleRegions())
	require.NoError(t, err)

	table, err := Score(context.Background(), sentences, oracle)
	require.NoError(t, err)
	assert.EqualValues(t, 1, oracle.calls.Load())
	require.Len(t, oracle.batches, 1)
	assert.Equal(t, []string{"This movie was filmed in France", "This movie was filmed in Japan"}, oracle.batches[0])

	require.Equal(t, 2, table.Len())
	assert.Equal(t, "France", table.At(0).Region.Name)
	assert.Equal(t, 0.9, table.At(0).PositiveProbability)
	assert.Equal(t, "Japan", table.At(1).Region.Name)
	assert.InDelta(t, 0.3, table.At(1).PositiveProbability, 1e-12)
}

func TestScoreEmptyInputSkipsOracle(t *testing.T) {
	oracle := &spyOracle{answer: answerBy(nil)}
	table, err := Score(context.Background(), nil, oracle)
	require.NoError(t, err)
	assert.Zero(t, table.Len())
	assert.Zero(t, oracle.calls.Load())
}

func TestScoreContractViolations(t *testing.T) {
	sentences, err := Expand("Made in *", sampleRegions())
	require.NoError(t, err)

	cases := map[string]OracleFunc{
		"unknown label": func(_ context.Context, texts []string) ([]Prediction, error) {
			return []Prediction{{Label: "POSITIVE", Score: 0.8}, {Label: "NEUTRAL", Score: 0.6}}, nil
		},
		"short batch": func(_ context.Context, texts []string) ([]Prediction, error) {
			return []Prediction{{Label: "POSITIVE", Score: 0.8}}, nil
		},
		"score out of range": func(_ context.Context, texts []string) ([]Prediction, error) {
			return []Prediction{{Label: "POSITIVE", Score: 1.2}, {Label: "NEGATIVE", Score: 0.1}}, nil
		},
		"nan score": func(_ context.Context, texts []string) ([]Prediction, error) {
			return []Prediction{{Label: "POSITIVE", Score: math.NaN()}, {Label: "NEGATIVE", Score: 0.1}}, nil
		},
	}
	for name, oracle := range cases {
		t.Run(name, func(t *testing.T) {
			table, err := Score(context.Background(), sentences, oracle)
			assert.ErrorIs(t, err, ErrOracleContract)
			assert.False(t, errors.Is(err, ErrOracleUnavailable))
			assert.Zero(t, table.Len())
		})
	}
}

func TestScoreOracleFailure(t *testing.T) {
	cause := errors.New("model crashed")
	oracle := &spyOracle{err: cause}
	sentences, err := Expand("Made in *", sampleRegions())
	require.NoError(t, err)

	_, err = Score(context.Background(), sentences, oracle)
	assert.ErrorIs(t, err, ErrOracleUnavailable)
	assert.ErrorIs(t, err, cause)
}

func TestScoreLabelsMustMatchExactly(t *testing.T) {
	sentences, err := Expand("Made in *", sampleRegions())
	require.NoError(t, err)

	for _, labels := range [][2]string{
		{"positive", "NEGATIVE"},
		{"POSITIVE", " Negative "},
		{" POSITIVE", "NEGATIVE"},
		{"Positive", "negative"},
	} {
		labels := labels
		oracle := OracleFunc(func(_ context.Context, texts []string) ([]Prediction, error) {
			return []Prediction{{Label: labels[0], Score: 0.9}, {Label: labels[1], Score: 0.7}}, nil
		})
		table, err := Score(context.Background(), sentences, oracle)
		assert.ErrorIs(t, err, ErrOracleContract, "labels %q", labels)
		assert.Zero(t, table.Len())
	}

	_, err = ParseLabel("positive")
	assert.ErrorIs(t, err, ErrOracleContract)
	label, err := ParseLabel("POSITIVE")
	require.NoError(t, err)
	assert.Equal(t, LabelPositive, label)
}
