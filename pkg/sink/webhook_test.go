package sink

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type received struct {
	body      []byte
	signature string
}

func newTestServer(t *testing.T) (*httptest.Server, chan received) {
	t.Helper()
	got := make(chan received, 8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		got <- received{body: body, signature: r.Header.Get(SignatureHeader)}
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func TestWebhookSinkSignsPayload(t *testing.T) {
	srv, got := newTestServer(t)

	s := NewWebhookSink(srv.URL, "sekrit", "vehicle_destroyed")
	s.Start()
	defer s.Stop()

	event := map[string]any{"type": "vehicle_destroyed", "team": "Allies"}
	s.HandleEvent(context.Background(), event)

	r := <-got
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(r.body, &decoded))
	assert.Equal(t, "vehicle_destroyed", decoded["type"])

	mac := hmac.New(sha256.New, []byte("sekrit"))
	mac.Write(r.body)
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), r.signature)
}

func TestWebhookSinkFiltersEventTypes(t *testing.T) {
	srv, got := newTestServer(t)

	s := NewWebhookSink(srv.URL, "")
	s.Start()
	defer s.Stop()

	s.HandleEvent(context.Background(), map[string]any{"type": "kill"})
	s.HandleEvent(context.Background(), map[string]any{"type": "vehicle_destroyed"})

	r := <-got
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(r.body, &decoded))
	assert.Equal(t, "vehicle_destroyed", decoded["type"])
	assert.Empty(t, r.signature)
	assert.Empty(t, got)
}

func TestWebhookSinkIgnoresEventsWhenStopped(t *testing.T) {
	srv, got := newTestServer(t)

	s := NewWebhookSink(srv.URL, "")
	s.HandleEvent(context.Background(), map[string]any{"type": "vehicle_destroyed"})
	s.Start()
	s.Stop()
	s.HandleEvent(context.Background(), map[string]any{"type": "vehicle_destroyed"})
	assert.Empty(t, got)
}
