package biasmap

import (
	"context"
	"fmt"
	"log"
)

// Prediction is one oracle answer as it appears on the wire.
type Prediction struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Oracle classifies a batch of texts. Output order and length must match the input.
type Oracle interface {
	Predict(ctx context.Context, texts []string) ([]Prediction, error)
}

// OracleFunc adapts a plain function to the Oracle interface.
type OracleFunc func(ctx context.Context, texts []string) ([]Prediction, error)

// Predict calls f.
func (f OracleFunc) Predict(ctx context.Context, texts []string) ([]Prediction, error) {
	return f(ctx, texts)
}

// oracleName reports the model behind o for log lines.
func oracleName(o Oracle) string {
	if m, ok := o.(interface{ ModelID() string }); ok {
		if id := m.ModelID(); id != "" {
			return id
		}
	}
	return "oracle"
}

// NewOracle builds the oracle selected by cfg.Backend.
func NewOracle(cfg Config, logger *log.Logger) (Oracle, error) {
	cfg.ApplyDefaults()
	switch cfg.Backend {
	case BackendONNX:
		return NewOrtOracle(cfg.Model)
	case BackendRemote:
		return NewRemoteOracle(cfg.Remote, logger)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
