package biasmap

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

const maxRemoteResponseBytes = 32 << 20

// RemoteOracle calls a hosted text-classification endpoint such as the
// Hugging Face inference API.
type RemoteOracle struct {
	cfg      RemoteConfig
	client   *http.Client
	logger   *log.Logger
	maxBytes int64
}

// NewRemoteOracle validates the endpoint and prepares an HTTP client.
func NewRemoteOracle(cfg RemoteConfig, logger *log.Logger) (*RemoteOracle, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("remote endpoint is required")
	}
	return &RemoteOracle{
		cfg:      cfg,
		client:   &http.Client{Timeout: 5 * time.Minute},
		logger:   logger,
		maxBytes: maxRemoteResponseBytes,
	}, nil
}

// ModelID is the last path segment of the endpoint, which names the model on
// hosted inference APIs.
func (r *RemoteOracle) ModelID() string {
	u, err := url.Parse(r.cfg.Endpoint)
	if err != nil || u.Path == "" || u.Path == "/" {
		return r.cfg.Endpoint
	}
	return path.Base(u.Path)
}

type remoteRequest struct {
	Inputs []string `json:"inputs"`
}

// Predict posts all texts in one request and keeps the top label per text.
func (r *RemoteOracle) Predict(ctx context.Context, texts []string) ([]Prediction, error) {
	body, err := json.Marshal(remoteRequest{Inputs: texts})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+r.cfg.Token)
	}
	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if int64(len(raw)) > r.maxBytes {
		return nil, fmt.Errorf("%w: response larger than %d bytes", ErrOracleContract, r.maxBytes)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("inference api: status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}
	preds, err := decodePredictions(raw)
	if err != nil {
		return nil, err
	}
	if r.logger != nil {
		r.logger.Printf("remote oracle: %d texts in %s", len(texts), time.Since(start).Round(time.Millisecond))
	}
	return preds, nil
}

// decodePredictions accepts either one label list per input or a flat list
// with one top prediction per input.
func decodePredictions(raw []byte) ([]Prediction, error) {
	var nested [][]Prediction
	if err := json.Unmarshal(raw, &nested); err == nil {
		out := make([]Prediction, len(nested))
		for i, candidates := range nested {
			if len(candidates) == 0 {
				return nil, fmt.Errorf("%w: empty prediction list for input %d", ErrOracleContract, i)
			}
			best := candidates[0]
			for _, c := range candidates[1:] {
				if c.Score > best.Score {
					best = c
				}
			}
			out[i] = best
		}
		return out, nil
	}
	var flat []Prediction
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrOracleContract, err)
	}
	return flat, nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
