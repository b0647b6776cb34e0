package biasmap

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
)

// spyOracle answers from a lookup keyed by substring and counts batch calls.
type spyOracle struct {
	calls   atomic.Int32
	mu      sync.Mutex
	batches [][]string
	answer  func(text string) Prediction
	err     error
	block   chan struct{}
}

func (s *spyOracle) Predict(ctx context.Context, texts []string) ([]Prediction, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.batches = append(s.batches, append([]string(nil), texts...))
	s.mu.Unlock()
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	out := make([]Prediction, len(texts))
	for i, t := range texts {
		out[i] = s.answer(t)
	}
	return out, nil
}

func answerBy(m map[string]Prediction) func(string) Prediction {
	return func(text string) Prediction {
		for k, v := range m {
			if strings.Contains(text, k) {
				return v
			}
		}
		return Prediction{Label: "POSITIVE", Score: 0.5}
	}
}

func sampleRegions() []Region {
	return []Region{
		{Name: "France", GeometryKey: "France"},
		{Name: "Japan", GeometryKey: "Japan"},
	}
}
