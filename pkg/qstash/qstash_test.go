package qstash

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestPublish(t *testing.T) {
	t.Parallel()

	var gotPath, gotAuth, gotRetries, gotDedup, gotDelay string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotRetries = r.Header.Get("Upstash-Retries")
		gotDedup = r.Header.Get("Upstash-Deduplication-Id")
		gotDelay = r.Header.Get("Upstash-Delay")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"messageId":"msg_123"}`)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(Config{URL: server.URL, Token: "tok", Retries: 2}, WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	id, err := client.Publish(context.Background(), "https://hooks.example.com/orders",
		map[string]any{"type": "order.placed", "order_id": "o-1"},
		PublishOptions{DeduplicationID: "o-1", Delay: 5 * time.Second},
	)
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if id != "msg_123" {
		t.Fatalf("Publish() = %q, want msg_123", id)
	}
	if gotPath != "/v2/publish/https://hooks.example.com/orders" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotAuth != "Bearer tok" || gotRetries != "2" || gotDedup != "o-1" || gotDelay != "5s" {
		t.Fatalf("headers: auth=%q retries=%q dedup=%q delay=%q", gotAuth, gotRetries, gotDedup, gotDelay)
	}
	if gotBody["type"] != "order.placed" {
		t.Fatalf("body = %v", gotBody)
	}
}

func TestPublishErrors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"invalid token"}`)
	}))
	t.Cleanup(server.Close)

	client := MustNew(Config{URL: server.URL, Token: "bad"}, WithHTTPClient(server.Client()))

	if _, err := client.Publish(context.Background(), " ", nil); !errors.Is(err, ErrEmptyDestination) {
		t.Fatalf("Publish() error = %v, want ErrEmptyDestination", err)
	}
	if _, err := client.Publish(context.Background(), "https://hooks.example.com", map[string]string{}); err == nil {
		t.Fatal("expected error for 401 response")
	}
}

func TestNewClientValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(Config{Token: "t"}); err == nil {
		t.Fatal("expected error for empty url")
	}
	if _, err := NewClient(Config{URL: "not a url", Token: "t"}); err == nil {
		t.Fatal("expected error for invalid url")
	}
	if _, err := NewClient(Config{URL: "https://qstash.upstash.io"}); err == nil {
		t.Fatal("expected error for empty token")
	}
}
