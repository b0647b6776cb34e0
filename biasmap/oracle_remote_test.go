package biasmap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteOracleNestedResponse(t *testing.T) {
	var gotAuth string
	var gotInputs []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var req remoteRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotInputs = req.Inputs
		_, _ = w.Write([]byte(`[
			[{"label":"NEGATIVE","score":0.1},{"label":"POSITIVE","score":0.9}],
			[{"label":"NEGATIVE","score":0.7},{"label":"POSITIVE","score":0.3}]
		]`))
	}))
	defer srv.Close()

	oracle, err := NewRemoteOracle(RemoteConfig{Endpoint: srv.URL, Token: "secret"}, nil)
	require.NoError(t, err)
	preds, err := oracle.Predict(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, []string{"a", "b"}, gotInputs)
	assert.Equal(t, []Prediction{{Label: "POSITIVE", Score: 0.9}, {Label: "NEGATIVE", Score: 0.7}}, preds)
}

func TestRemoteOracleFlatResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"label":"POSITIVE","score":0.8}]`))
	}))
	defer srv.Close()

	oracle, err := NewRemoteOracle(RemoteConfig{Endpoint: srv.URL}, nil)
	require.NoError(t, err)
	preds, err := oracle.Predict(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, []Prediction{{Label: "POSITIVE", Score: 0.8}}, preds)
}

func TestRemoteOracleErrorsBecomeUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	oracle, err := NewRemoteOracle(RemoteConfig{Endpoint: srv.URL}, nil)
	require.NoError(t, err)
	sentences, err := Expand("Made in *", sampleRegions())
	require.NoError(t, err)
	_, err = Score(context.Background(), sentences, oracle)
	assert.ErrorIs(t, err, ErrOracleUnavailable)
}

func TestRemoteOracleMalformedBodyIsContractError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"unexpected"}`))
	}))
	defer srv.Close()

	oracle, err := NewRemoteOracle(RemoteConfig{Endpoint: srv.URL}, nil)
	require.NoError(t, err)
	sentences, err := Expand("Made in *", sampleRegions())
	require.NoError(t, err)
	_, err = Score(context.Background(), sentences, oracle)
	assert.ErrorIs(t, err, ErrOracleContract)
}

func TestRemoteOracleRejectsOversizedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"label":"POSITIVE","score":0.8},{"label":"NEGATIVE","score":0.6}]`))
	}))
	defer srv.Close()

	oracle, err := NewRemoteOracle(RemoteConfig{Endpoint: srv.URL}, nil)
	require.NoError(t, err)
	oracle.maxBytes = 16
	_, err = oracle.Predict(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, ErrOracleContract)
}

func TestRemoteOracleModelID(t *testing.T) {
	oracle, err := NewRemoteOracle(RemoteConfig{Endpoint: "https://api-inference.example.com/models/distilbert-sst2"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "distilbert-sst2", oracleName(oracle))
}

func TestNewOracleRejectsUnknownBackend(t *testing.T) {
	_, err := NewOracle(Config{Backend: "gpt"}, nil)
	assert.Error(t, err)

	_, err = NewOracle(Config{Backend: BackendRemote}, nil)
	assert.Error(t, err)
}
