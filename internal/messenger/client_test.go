package messenger

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_PushMessage(t *testing.T) {
	t.Run("posts to /push", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/push" {
				t.Errorf("expected /push, got %s", r.URL.Path)
			}
			if r.Method != http.MethodPost {
				t.Errorf("expected POST, got %s", r.Method)
			}
			var body pushRequest
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode: %v", err)
			}
			if body.To != "line-42" || body.Content != "hello" {
				t.Errorf("unexpected body: %+v", body)
			}
			w.WriteHeader(http.StatusAccepted)
		}))
		defer server.Close()

		client := NewClient(server.URL, server.Client())
		if err := client.PushMessage(context.Background(), "line-42", "hello"); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("non-2xx is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		client := NewClient(server.URL, server.Client())
		if err := client.PushMessage(context.Background(), "line-42", "hello"); err == nil {
			t.Error("expected error, got nil")
		}
	})

	t.Run("timeout fails the send", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer server.Close()

		client := NewClient(server.URL, &http.Client{Timeout: 20 * time.Millisecond})
		if err := client.PushMessage(context.Background(), "line-42", "hello"); err == nil {
			t.Error("expected timeout error, got nil")
		}
	})
}

func TestClient_ReplyInThread(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/feeds/f-1/comments/c-9/replies" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body replyRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Content != "Order received" {
			t.Errorf("unexpected content %q", body.Content)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, server.Client())
	if err := client.ReplyInThread(context.Background(), "f-1", "c-9", "Order received"); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestClientAgainstSimulator(t *testing.T) {
	sim := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), 0)
	mux := http.NewServeMux()
	sim.Register(mux)
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(server.URL, server.Client())
	ctx := context.Background()

	if err := client.ReplyInThread(ctx, "f-1", "c-1", "reply text"); err != nil {
		t.Fatalf("reply: %v", err)
	}
	if err := client.PushMessage(ctx, "buyer-line", "push text"); err != nil {
		t.Fatalf("push: %v", err)
	}
	if err := client.PushMessage(ctx, "", "push text"); err == nil {
		t.Error("expected error for missing recipient")
	}

	sent := sim.Sent()
	if len(sent) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(sent))
	}
	if sent[0].Kind != "reply" || sent[0].FeedID != "f-1" || sent[0].CommentID != "c-1" {
		t.Errorf("unexpected reply record: %+v", sent[0])
	}
	if sent[1].Kind != "push" || sent[1].To != "buyer-line" {
		t.Errorf("unexpected push record: %+v", sent[1])
	}
}
