// Package sink forwards selected parsed game events to external consumers.
package sink

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// SignatureHeader carries the hex HMAC-SHA256 of the request body, keyed on
// the sink's shared secret.
const SignatureHeader = "X-HLU-Signature"

const defaultTimeout = 5 * time.Second

// WebhookSink POSTs selected events as compact JSON to an HTTP endpoint.
// Delivery is best-effort: network failures are swallowed so the event
// pipeline never stalls on a slow consumer.
type WebhookSink struct {
	url     string
	secret  []byte
	include map[string]struct{}

	mu     sync.Mutex
	client *http.Client
}

// NewWebhookSink builds a sink for the endpoint. include lists the event
// types to forward; when empty, only vehicle_destroyed events are sent
// (matching the historical default).
func NewWebhookSink(url, secret string, include ...string) *WebhookSink {
	if len(include) == 0 {
		include = []string{"vehicle_destroyed"}
	}
	inc := make(map[string]struct{}, len(include))
	for _, t := range include {
		inc[t] = struct{}{}
	}
	s := &WebhookSink{url: url, include: inc}
	if secret != "" {
		s.secret = []byte(secret)
	}
	return s
}

// Start prepares the HTTP client. Idempotent.
func (s *WebhookSink) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		s.client = &http.Client{Timeout: defaultTimeout}
	}
}

// Stop drops the HTTP client; subsequent events are ignored.
func (s *WebhookSink) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = nil
}

// HandleEvent forwards one event when its type is included and the sink is
// started. Errors are deliberately not returned; a dead webhook must not
// break the pipeline.
func (s *WebhookSink) HandleEvent(ctx context.Context, event map[string]any) {
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()
	if client == nil {
		return
	}
	eventType, _ := event["type"].(string)
	if _, ok := s.include[eventType]; !ok {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if len(s.secret) > 0 {
		mac := hmac.New(sha256.New, s.secret)
		mac.Write(payload)
		req.Header.Set(SignatureHeader, hex.EncodeToString(mac.Sum(nil)))
	}

	resp, err := client.Do(req)
	if err != nil {
		return
	}
	defer resp.Body.Close()
}
