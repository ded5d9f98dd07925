package events

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
	"time"

	"github.com/atviroplatforma/appcore/internal/core/domain"
)

func TestWebhookPublisherSignsAndDelivers(t *testing.T) {
	var (
		gotBody    []byte
		gotHeaders http.Header
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	pub := NewWebhookPublisher(server.URL, "hook-secret", time.Second)
	ev := publishedEvent()

	if err := pub.Publish(context.Background(), Topic(ev), ev); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	if gotHeaders.Get("Content-Type") != "application/json" {
		t.Fatalf("unexpected content type %q", gotHeaders.Get("Content-Type"))
	}
	if gotHeaders.Get("X-Appcore-Topic") != "events.tenant-a.task.created" {
		t.Fatalf("unexpected topic header %q", gotHeaders.Get("X-Appcore-Topic"))
	}
	if gotHeaders.Get("X-Appcore-Event") != "task.created" {
		t.Fatalf("unexpected event header %q", gotHeaders.Get("X-Appcore-Event"))
	}
	if gotHeaders.Get("X-Appcore-Tenant") != "tenant-a" {
		t.Fatalf("unexpected tenant header %q", gotHeaders.Get("X-Appcore-Tenant"))
	}

	mac := hmac.New(sha256.New, []byte("hook-secret"))
	mac.Write(gotBody)
	want := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	if gotHeaders.Get("X-Hub-Signature-256") != want {
		t.Fatalf("signature mismatch: got %q want %q", gotHeaders.Get("X-Hub-Signature-256"), want)
	}

	var wire map[string]json.RawMessage
	if err := json.Unmarshal(gotBody, &wire); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(wire) != 3 {
		t.Fatalf("body must be exactly {type, payload, timestamp}, got %s", gotBody)
	}
}

func TestWebhookPublisherRejectsNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer server.Close()

	pub := NewWebhookPublisher(server.URL, "hook-secret", time.Second)
	if err := pub.Publish(context.Background(), "events.t.x", domain.Event{Type: "x"}); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestWebhookPublisherReportsTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close() // connection refused from here on

	pub := NewWebhookPublisher(server.URL, "hook-secret", time.Second)
	if err := pub.Publish(context.Background(), "events.t.x", domain.Event{Type: "x"}); err == nil {
		t.Fatal("expected transport error")
	}
}
