package biasmap

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const defaultConfigFile = "config.json"

// LoadConfig loads configuration from the given path or the default config.json,
// then applies BIASMAP_* environment overrides (an optional .env file is read first).
func LoadConfig(path string) (Config, error) {
	if path == "" {
		path = defaultConfigFile
	}
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("decode config: %w", err)
		}
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("read .env: %w", err)
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}
	cfg.ApplyDefaults()
	if cfg.Catalog.CacheDir != "" {
		if err := os.MkdirAll(cfg.Catalog.CacheDir, 0o755); err != nil {
			return cfg, fmt.Errorf("create cache dir: %w", err)
		}
	}
	return cfg, nil
}

// SaveConfig persists configuration to disk.
func SaveConfig(path string, cfg Config) error {
	if path == "" {
		path = defaultConfigFile
	}
	tmp := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	cfg.ApplyDefaults()
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	var backend string
	str("BIASMAP_BACKEND", &backend)
	if backend != "" {
		cfg.Backend = Backend(strings.ToLower(backend))
	}
	str("BIASMAP_ORT_LIB", &cfg.Model.OrtLib)
	str("BIASMAP_MODEL_PATH", &cfg.Model.ModelPath)
	str("BIASMAP_TOKENIZER_PATH", &cfg.Model.TokenizerPath)
	str("BIASMAP_REMOTE_ENDPOINT", &cfg.Remote.Endpoint)
	str("BIASMAP_REMOTE_TOKEN", &cfg.Remote.Token)
	str("BIASMAP_CATALOG_PATH", &cfg.Catalog.Path)
	str("BIASMAP_CATALOG_URL", &cfg.Catalog.URL)
	str("BIASMAP_CACHE_DIR", &cfg.Catalog.CacheDir)
	str("BIASMAP_APP_URL", &cfg.AppURL)
	if err := num("BIASMAP_MAX_SEQ_LEN", &cfg.Model.MaxSeqLen); err != nil {
		return err
	}
	if err := num("BIASMAP_BATCH_SIZE", &cfg.Model.BatchSize); err != nil {
		return err
	}
	return num("BIASMAP_ORACLE_TIMEOUT_SEC", &cfg.OracleTimeoutSec)
}
