package httpapi

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpnsentinel/vpnsentinel/internal/ratelimit"
	"github.com/vpnsentinel/vpnsentinel/internal/registry"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestAPI() *gin.Engine {
	reg := registry.New(nil)
	cfg := APIConfig{
		Path:      "/api/v1",
		APIKey:    "secret",
		RateLimit: ratelimit.New(30),
		Registry:  reg,
		Logger:    slog.Default(),
	}
	return NewAPIRouter(cfg)
}

func keepaliveBody(clientID string) []byte {
	body := map[string]any{
		"client_id":      clientID,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"public_ip":      "1.2.3.4",
		"status":         "alive",
		"client_version": "1.0.0",
		"location": map[string]string{
			"country": "US",
			"city":    "Ashburn",
		},
		"dns_test": map[string]string{
			"location": "US",
			"colo":     "IAD",
		},
	}
	b, _ := json.Marshal(body)
	return b
}

func TestKeepalive_RejectsMissingAPIKey(t *testing.T) {
	r := newTestAPI()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/keepalive", bytes.NewReader(keepaliveBody("node-a")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestKeepalive_AcceptsValidRequest(t *testing.T) {
	r := newTestAPI()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/keepalive", bytes.NewReader(keepaliveBody("node-a")))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "secret")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestKeepalive_RejectsMalformedBody(t *testing.T) {
	r := newTestAPI()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/keepalive", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "secret")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestKeepalive_RejectsInvalidClientID(t *testing.T) {
	r := newTestAPI()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/keepalive", bytes.NewReader(keepaliveBody("Not Valid!")))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "secret")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatus_ReturnsRegisteredClients(t *testing.T) {
	r := newTestAPI()

	post := httptest.NewRequest(http.MethodPost, "/api/v1/keepalive", bytes.NewReader(keepaliveBody("node-a")))
	post.Header.Set("Content-Type", "application/json")
	post.Header.Set("X-API-Key", "secret")
	r.ServeHTTP(httptest.NewRecorder(), post)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	req.Header.Set("X-API-Key", "secret")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	clients, ok := resp["clients"].([]any)
	require.True(t, ok)
	assert.Len(t, clients, 1)
}

func TestClientDetail_UnknownIDReturns400(t *testing.T) {
	r := newTestAPI()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/clients/ghost", nil)
	req.Header.Set("X-API-Key", "secret")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClientDetail_KnownIDReturnsRecord(t *testing.T) {
	r := newTestAPI()

	post := httptest.NewRequest(http.MethodPost, "/api/v1/keepalive", bytes.NewReader(keepaliveBody("node-b")))
	post.Header.Set("Content-Type", "application/json")
	post.Header.Set("X-API-Key", "secret")
	r.ServeHTTP(httptest.NewRecorder(), post)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/clients/node-b", nil)
	req.Header.Set("X-API-Key", "secret")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
