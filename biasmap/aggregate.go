package biasmap

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// PositiveProbability collapses a labeled confidence into P(positive).
func PositiveProbability(r SentimentResult) (float64, error) {
	switch r.Label {
	case LabelPositive:
		return r.Confidence, nil
	case LabelNegative:
		return 1 - r.Confidence, nil
	}
	return 0, fmt.Errorf("%w: unexpected label %q", ErrOracleContract, r.Label)
}

// Score runs all sentences through the oracle in a single batch and returns
// one row per sentence, in input order.
func Score(ctx context.Context, sentences []ExpandedSentence, oracle Oracle) (ResultTable, error) {
	if len(sentences) == 0 {
		return ResultTable{}, nil
	}
	if oracle == nil {
		return ResultTable{}, fmt.Errorf("%w: no oracle configured", ErrOracleUnavailable)
	}
	texts := make([]string, len(sentences))
	for i, s := range sentences {
		texts[i] = s.Text
	}
	preds, err := oracle.Predict(ctx, texts)
	if err != nil {
		if errors.Is(err, ErrOracleContract) {
			return ResultTable{}, err
		}
		return ResultTable{}, fmt.Errorf("%w: %w", ErrOracleUnavailable, err)
	}
	if len(preds) != len(sentences) {
		return ResultTable{}, fmt.Errorf("%w: got %d predictions for %d texts", ErrOracleContract, len(preds), len(sentences))
	}
	rows := make([]ScoredRegion, len(sentences))
	for i, p := range preds {
		result, err := toSentimentResult(p)
		if err != nil {
			return ResultTable{}, fmt.Errorf("prediction %d (%s): %w", i, sentences[i].Region.Name, err)
		}
		prob, err := PositiveProbability(result)
		if err != nil {
			return ResultTable{}, err
		}
		rows[i] = ScoredRegion{Region: sentences[i].Region, PositiveProbability: prob}
	}
	return ResultTable{rows: rows}, nil
}

func toSentimentResult(p Prediction) (SentimentResult, error) {
	label, err := ParseLabel(p.Label)
	if err != nil {
		return SentimentResult{}, err
	}
	if math.IsNaN(p.Score) || p.Score < 0 || p.Score > 1 {
		return SentimentResult{}, fmt.Errorf("%w: confidence %v outside [0,1]", ErrOracleContract, p.Score)
	}
	return SentimentResult{Label: label, Confidence: p.Score}, nil
}
