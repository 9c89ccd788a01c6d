package deliver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgallion1/msgsplit/internal/doctree"
)

func TestWebhookSink_Send(t *testing.T) {
	var got webhookPayload
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewWebhookSink(srv.URL, "secret", 5*time.Second)
	defer sink.Close()

	err := sink.Send(context.Background(), doctree.Fragment{Index: 2, Markup: "<p>x</p>", Length: 8})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if auth != "Bearer secret" {
		t.Errorf("expected bearer auth, got %q", auth)
	}
	if got.Index != 2 || got.Markup != "<p>x</p>" || got.Length != 8 {
		t.Errorf("unexpected payload: %+v", got)
	}
}

func TestWebhookSink_StatusClassification(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusBadGateway, true},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "3")
			http.Error(w, "nope", tt.status)
		}))
		sink := NewWebhookSink(srv.URL, "", 5*time.Second)
		err := sink.Send(context.Background(), doctree.Fragment{Index: 1, Markup: "x"})
		srv.Close()

		if err == nil {
			t.Fatalf("status %d: expected error", tt.status)
		}
		if IsRetryable(err) != tt.retryable {
			t.Errorf("status %d: expected retryable=%v, got %v", tt.status, tt.retryable, err)
		}
	}
}

func TestDeliver_WebhookRecoversAfter503(t *testing.T) {
	noWait(t)
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := NewWebhookSink(srv.URL, "", 5*time.Second)
	n, err := Deliver(context.Background(), sink, seqOf("a", "b"), testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 || calls != 3 {
		t.Errorf("expected 2 delivered in 3 calls, got %d in %d", n, calls)
	}
}
