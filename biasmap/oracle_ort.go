package biasmap

import (
	"context"
	"errors"
	"path/filepath"
	"sync"

	"yashubustudio/biasmap/model"
)

// OrtOracle is a thin wrapper over model.Classifier.
type OrtOracle struct {
	mu  sync.RWMutex
	clf *model.Classifier
	cfg ModelConfig
}

// NewOrtOracle loads the ONNX model and tokenizer described by cfg.
func NewOrtOracle(cfg ModelConfig) (*OrtOracle, error) {
	if cfg.ModelID == "" && cfg.ModelPath != "" {
		cfg.ModelID = filepath.Base(filepath.Dir(cfg.ModelPath))
	}
	clf := &model.Classifier{}
	if err := clf.Init(model.Config{
		OrtLib:        cfg.OrtLib,
		ModelPath:     cfg.ModelPath,
		TokenizerPath: cfg.TokenizerPath,
		MaxSeqLen:     cfg.MaxSeqLen,
		BatchSize:     cfg.BatchSize,
		Labels:        cfg.Labels,
	}); err != nil {
		return nil, err
	}
	return &OrtOracle{clf: clf, cfg: cfg}, nil
}

// ModelID identifies the loaded model in logs.
func (o *OrtOracle) ModelID() string {
	return o.cfg.ModelID
}

// Predict classifies all texts with the local model.
func (o *OrtOracle) Predict(ctx context.Context, texts []string) ([]Prediction, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.clf == nil {
		return nil, errors.New("ort oracle is closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	outputs, err := o.clf.Classify(texts)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	preds := make([]Prediction, len(outputs))
	for i, out := range outputs {
		preds[i] = Prediction{Label: out.Label, Score: float64(out.Score)}
	}
	return preds, nil
}

// Close releases ORT resources.
func (o *OrtOracle) Close() error {
	if o == nil {
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.clf != nil {
		o.clf.Close()
		o.clf = nil
	}
	return nil
}
