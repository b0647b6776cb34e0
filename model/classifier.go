// Package model runs a pretrained sequence classification model exported to
// ONNX (for example distilbert-base-uncased-finetuned-sst-2-english).
package model

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"
)

// Config describes the model files and runtime limits.
type Config struct {
	OrtLib        string
	ModelPath     string
	TokenizerPath string
	MaxSeqLen     int
	BatchSize     int
	// Labels maps logit index to label name.
	Labels     []string
	InputNames []string
	OutputName string
	PadTokenID int64
}

// Output is the top label for one input text.
type Output struct {
	Label string
	Score float32
}

var (
	envMu   sync.Mutex
	envRefs int
)

// Classifier tokenizes texts and runs the ONNX session in chunks.
type Classifier struct {
	mu      sync.Mutex
	cfg     Config
	tk      *tokenizer.Tokenizer
	session *ort.DynamicAdvancedSession
}

// Init loads the tokenizer, the ORT shared library and the model session.
func (c *Classifier) Init(cfg Config) error {
	if cfg.ModelPath == "" {
		return errors.New("model path is required")
	}
	if cfg.TokenizerPath == "" {
		return errors.New("tokenizer path is required")
	}
	if cfg.MaxSeqLen <= 2 {
		cfg.MaxSeqLen = 128
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if len(cfg.Labels) < 2 {
		return fmt.Errorf("need at least two labels, got %d", len(cfg.Labels))
	}
	if len(cfg.InputNames) == 0 {
		cfg.InputNames = []string{"input_ids", "attention_mask"}
	}
	if cfg.OutputName == "" {
		cfg.OutputName = "logits"
	}

	tk, err := pretrained.FromFile(cfg.TokenizerPath)
	if err != nil {
		return fmt.Errorf("load tokenizer: %w", err)
	}
	if err := acquireEnvironment(cfg.OrtLib); err != nil {
		return err
	}
	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath, cfg.InputNames, []string{cfg.OutputName}, nil)
	if err != nil {
		releaseEnvironment()
		return fmt.Errorf("create ort session: %w", err)
	}
	c.cfg = cfg
	c.tk = tk
	c.session = session
	return nil
}

// Close releases the session and, for the last classifier, the ORT environment.
func (c *Classifier) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return
	}
	_ = c.session.Destroy()
	c.session = nil
	releaseEnvironment()
}

// Classify returns one Output per text, in input order.
func (c *Classifier) Classify(texts []string) ([]Output, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil, errors.New("classifier is not initialized")
	}
	out := make([]Output, 0, len(texts))
	for start := 0; start < len(texts); start += c.cfg.BatchSize {
		end := start + c.cfg.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		chunk, err := c.classifyChunk(texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", start, end, err)
		}
		out = append(out, chunk...)
	}
	return out, nil
}

func (c *Classifier) classifyChunk(texts []string) ([]Output, error) {
	ids, mask, seqLen, err := c.encode(texts)
	if err != nil {
		return nil, err
	}
	batch := int64(len(texts))
	shape := ort.NewShape(batch, int64(seqLen))
	idsTensor, err := ort.NewTensor(shape, ids)
	if err != nil {
		return nil, fmt.Errorf("input_ids tensor: %w", err)
	}
	defer idsTensor.Destroy()
	maskTensor, err := ort.NewTensor(shape, mask)
	if err != nil {
		return nil, fmt.Errorf("attention_mask tensor: %w", err)
	}
	defer maskTensor.Destroy()
	numLabels := len(c.cfg.Labels)
	logits, err := ort.NewEmptyTensor[float32](ort.NewShape(batch, int64(numLabels)))
	if err != nil {
		return nil, fmt.Errorf("logits tensor: %w", err)
	}
	defer logits.Destroy()

	inputs := []ort.Value{idsTensor, maskTensor}
	if len(c.cfg.InputNames) < len(inputs) {
		inputs = inputs[:len(c.cfg.InputNames)]
	}
	if err := c.session.Run(inputs, []ort.Value{logits}); err != nil {
		return nil, fmt.Errorf("run session: %w", err)
	}
	data := logits.GetData()
	out := make([]Output, len(texts))
	for i := range texts {
		probs := Softmax(data[i*numLabels : (i+1)*numLabels])
		best := Argmax(probs)
		out[i] = Output{Label: c.cfg.Labels[best], Score: probs[best]}
	}
	return out, nil
}

// encode tokenizes every text and pads the chunk to its longest sequence.
func (c *Classifier) encode(texts []string) ([]int64, []int64, int, error) {
	encoded := make([][]int, len(texts))
	seqLen := 0
	for i, t := range texts {
		en, err := c.tk.EncodeSingle(t, true)
		if err != nil {
			return nil, nil, 0, fmt.Errorf("tokenize %q: %w", t, err)
		}
		encoded[i] = TruncateIDs(en.Ids, c.cfg.MaxSeqLen)
		if len(encoded[i]) > seqLen {
			seqLen = len(encoded[i])
		}
	}
	ids := make([]int64, len(texts)*seqLen)
	mask := make([]int64, len(texts)*seqLen)
	for i, seq := range encoded {
		row := i * seqLen
		for j := 0; j < seqLen; j++ {
			if j < len(seq) {
				ids[row+j] = int64(seq[j])
				mask[row+j] = 1
				continue
			}
			ids[row+j] = c.cfg.PadTokenID
		}
	}
	return ids, mask, seqLen, nil
}

func acquireEnvironment(lib string) error {
	envMu.Lock()
	defer envMu.Unlock()
	if envRefs == 0 && !ort.IsInitialized() {
		if lib != "" {
			ort.SetSharedLibraryPath(lib)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("init onnxruntime: %w", err)
		}
	}
	envRefs++
	return nil
}

func releaseEnvironment() {
	envMu.Lock()
	defer envMu.Unlock()
	envRefs--
	if envRefs <= 0 {
		envRefs = 0
		_ = ort.DestroyEnvironment()
	}
}
