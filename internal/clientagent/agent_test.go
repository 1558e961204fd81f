package clientagent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpnsentinel/vpnsentinel/internal/config"
	"github.com/vpnsentinel/vpnsentinel/internal/payload"
)

func TestGenerateClientID_MatchesWireContractPattern(t *testing.T) {
	id := generateClientID()
	assert.Regexp(t, "^[a-z0-9-]{1,64}$", id)
}

func TestAgent_Post_SendsAPIKeyAndBody(t *testing.T) {
	var gotKey string
	var gotBody payload.Keepalive

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := &config.Client{
		ServerURL:     srv.URL,
		APIPath:       "/api/v1",
		APIKey:        "topsecret",
		ClientID:      "node-a",
		ClientVersion: "1.2.3",
		CheckInterval: time.Minute,
	}
	a, err := New(cfg, nil)
	require.NoError(t, err)

	k := payload.Keepalive{
		ClientID:  "node-a",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Status:    "alive",
	}
	require.NoError(t, a.post(context.Background(), k))

	assert.Equal(t, "topsecret", gotKey)
	assert.Equal(t, "node-a", gotBody.ClientID)
}

func TestAgent_Post_ReturnsErrorOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := &config.Client{ServerURL: srv.URL, APIPath: "/api/v1", ClientID: "node-a", CheckInterval: time.Minute}
	a, err := New(cfg, nil)
	require.NoError(t, err)

	err = a.post(context.Background(), payload.Keepalive{ClientID: "node-a"})
	assert.Error(t, err)
}

func TestNew_AssignsClientIDWhenUnset(t *testing.T) {
	cfg := &config.Client{ServerURL: "http://example.invalid", CheckInterval: time.Minute}
	a, err := New(cfg, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, a.cfg.ClientID)
}
