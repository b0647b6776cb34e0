package biasmap

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Placeholder marks where a region name is substituted in a template.
const Placeholder = "*"

// Region is a named geographic unit plus the key joining it to map geometry.
type Region struct {
	Name        string `json:"name"`
	GeometryKey string `json:"geometryKey"`
}

// ExpandedSentence is a template with the placeholder replaced by one region name.
type ExpandedSentence struct {
	Region Region
	Text   string
}

// Label is the polarity reported by the sentiment oracle.
type Label string

const (
	LabelPositive Label = "POSITIVE"
	LabelNegative Label = "NEGATIVE"
)

// ParseLabel accepts only the two polarity labels, spelled exactly.
func ParseLabel(raw string) (Label, error) {
	switch raw {
	case string(LabelPositive):
		return LabelPositive, nil
	case string(LabelNegative):
		return LabelNegative, nil
	}
	return "", fmt.Errorf("%w: unexpected label %q", ErrOracleContract, raw)
}

// SentimentResult is the raw oracle output for a single sentence.
type SentimentResult struct {
	Label      Label   `json:"label"`
	Confidence float64 `json:"confidence"`
}

// ScoredRegion pairs a region with its positive-class probability.
type ScoredRegion struct {
	Region              Region  `json:"region"`
	PositiveProbability float64 `json:"positiveProbability"`
}

// Triple is the flat row handed to presenters.
type Triple struct {
	RegionName          string
	GeometryKey         string
	PositiveProbability float64
}

// ResultTable is an immutable, ordered set of scored regions for one template.
type ResultTable struct {
	template string
	rows     []ScoredRegion
}

// NewResultTable copies rows into a new table.
func NewResultTable(template string, rows []ScoredRegion) ResultTable {
	out := make([]ScoredRegion, len(rows))
	copy(out, rows)
	return ResultTable{template: template, rows: out}
}

// Template returns the template the table was computed for.
func (t ResultTable) Template() string { return t.template }

// Len returns the number of rows.
func (t ResultTable) Len() int { return len(t.rows) }

// At returns the i-th row in catalog order.
func (t ResultTable) At(i int) ScoredRegion { return t.rows[i] }

// Rows returns a copy of the rows in catalog order.
func (t ResultTable) Rows() []ScoredRegion {
	out := make([]ScoredRegion, len(t.rows))
	copy(out, t.rows)
	return out
}

// Sorted returns the rows ordered by probability. Ties are broken by name.
// The table itself is left untouched.
func (t ResultTable) Sorted(ascending bool) []ScoredRegion {
	out := t.Rows()
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].PositiveProbability, out[j].PositiveProbability
		if pi == pj {
			return out[i].Region.Name < out[j].Region.Name
		}
		if ascending {
			return pi < pj
		}
		return pi > pj
	})
	return out
}

// Triples flattens the table for presentation.
func (t ResultTable) Triples() []Triple {
	out := make([]Triple, len(t.rows))
	for i, r := range t.rows {
		out[i] = Triple{
			RegionName:          r.Region.Name,
			GeometryKey:         r.Region.GeometryKey,
			PositiveProbability: r.PositiveProbability,
		}
	}
	return out
}

// Backend selects the sentiment oracle implementation.
type Backend string

const (
	// BackendONNX runs a local ONNX sequence classifier.
	BackendONNX Backend = "onnx"
	// BackendRemote calls an HTTP inference endpoint.
	BackendRemote Backend = "remote"
)

// ModelConfig wraps the configuration for the local ORT classifier.
type ModelConfig struct {
	OrtLib        string   `json:"ortLib"`
	ModelPath     string   `json:"modelPath"`
	TokenizerPath string   `json:"tokenizerPath"`
	MaxSeqLen     int      `json:"maxSeqLen"`
	BatchSize     int      `json:"batchSize"`
	Labels        []string `json:"labels"`
	ModelID       string   `json:"modelId"`
}

// RemoteConfig points at an HTTP text-classification endpoint.
type RemoteConfig struct {
	Endpoint string `json:"endpoint"`
	Token    string `json:"token,omitempty"`
}

// CatalogConfig describes where the country GeoJSON comes from.
type CatalogConfig struct {
	Path         string `json:"path"`
	URL          string `json:"url"`
	CacheDir     string `json:"cacheDir"`
	NameProperty string `json:"nameProperty"`
	KeyProperty  string `json:"keyProperty"`
}

// Config aggregates runtime settings persisted to config.json.
type Config struct {
	Backend          Backend       `json:"backend"`
	Model            ModelConfig   `json:"model"`
	Remote           RemoteConfig  `json:"remote"`
	Catalog          CatalogConfig `json:"catalog"`
	OracleTimeoutSec int           `json:"oracleTimeoutSec"`
	DefaultTemplate  string        `json:"defaultTemplate"`
	AppURL           string        `json:"appUrl"`
}

// Clone creates a deep copy of the configuration so callers can mutate safely.
func (c Config) Clone() Config {
	buf, _ := json.Marshal(c)
	var out Config
	_ = json.Unmarshal(buf, &out)
	return out
}

// OracleTimeout is the deadline applied to one batched oracle call.
func (c Config) OracleTimeout() time.Duration {
	if c.OracleTimeoutSec <= 0 {
		return 0
	}
	return time.Duration(c.OracleTimeoutSec) * time.Second
}

// ApplyDefaults populates zero values with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Backend == "" {
		c.Backend = BackendONNX
	}
	if c.Model.MaxSeqLen == 0 {
		c.Model.MaxSeqLen = 128
	}
	if c.Model.BatchSize == 0 {
		c.Model.BatchSize = 32
	}
	if len(c.Model.Labels) == 0 {
		c.Model.Labels = []string{string(LabelNegative), string(LabelPositive)}
	}
	if c.Catalog.URL == "" && c.Catalog.Path == "" {
		c.Catalog.URL = defaultCatalogURL
	}
	if c.Catalog.NameProperty == "" {
		c.Catalog.NameProperty = "ADMIN"
	}
	if c.Catalog.KeyProperty == "" {
		c.Catalog.KeyProperty = c.Catalog.NameProperty
	}
	if c.OracleTimeoutSec == 0 {
		c.OracleTimeoutSec = 120
	}
	if c.DefaultTemplate == "" {
		c.DefaultTemplate = DefaultTemplate
	}
}
