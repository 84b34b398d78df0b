package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPostCompletion_Success(t *testing.T) {
	var gotAuth string
	var gotPayload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotPayload)
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "ts": "123.456"})
	}))
	defer server.Close()

	p := NewPoster("xoxb-test", "C12345", discardLogger())
	p.apiURL = server.URL

	err := p.PostCompletion(context.Background(), "sess-1", 14, []string{"portrait_photo", "signature_image"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotAuth != "Bearer xoxb-test" {
		t.Errorf("expected bearer auth, got %q", gotAuth)
	}
	if gotPayload["channel"] != "C12345" {
		t.Errorf("expected channel C12345, got %v", gotPayload["channel"])
	}
	text, _ := gotPayload["text"].(string)
	if !strings.Contains(text, "sess-1") || !strings.Contains(text, "portrait_photo") {
		t.Errorf("unexpected message text: %q", text)
	}
}

func TestPostCompletion_SlackError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "channel_not_found"})
	}))
	defer server.Close()

	p := NewPoster("xoxb-test", "C-bad", discardLogger())
	p.apiURL = server.URL

	err := p.PostCompletion(context.Background(), "sess-1", 14, nil)
	if err == nil || !strings.Contains(err.Error(), "channel_not_found") {
		t.Errorf("expected slack API error, got %v", err)
	}
}
