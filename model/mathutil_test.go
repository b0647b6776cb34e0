package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSoftmax(t *testing.T) {
	probs := Softmax([]float32{-2.1, 2.3})
	assert.InDelta(t, 1.0, float64(probs[0]+probs[1]), 1e-6)
	assert.Greater(t, probs[1], probs[0])
	assert.Equal(t, 1, Argmax(probs))

	even := Softmax([]float32{1000, 1000})
	assert.InDelta(t, 0.5, float64(even[0]), 1e-6)
	assert.Equal(t, 0, Argmax(even))

	assert.Empty(t, Softmax(nil))
}

func TestTruncateIDsKeepsClosingToken(t *testing.T) {
	ids := []int{101, 7, 8, 9, 10, 102}
	assert.Equal(t, []int{101, 7, 8, 102}, TruncateIDs(ids, 4))
	assert.Equal(t, ids, TruncateIDs(ids, 6))
	assert.Equal(t, ids, TruncateIDs(ids, 0))
}

func TestClassifierRequiresInit(t *testing.T) {
	var c Classifier
	_, err := c.Classify([]string{"hello"})
	assert.Error(t, err)
	c.Close()

	assert.Error(t, c.Init(Config{TokenizerPath: "tokenizer.json"}))
	assert.Error(t, c.Init(Config{ModelPath: "model.onnx"}))
	assert.Error(t, c.Init(Config{ModelPath: "model.onnx", TokenizerPath: "tokenizer.json", Labels: []string{"ONLY"}}))
}
