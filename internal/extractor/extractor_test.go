package extractor

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cacconnect/registrar/internal/oracle"
	"github.com/cacconnect/registrar/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// oracleStub serves the chat completions shape with the given object as the
// structured-output content.
func oracleStub(t *testing.T, fields map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		content, _ := json.Marshal(fields)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  "gpt-4o",
			"choices": []map[string]any{
				{
					"index":         0,
					"message":       map[string]any{"role": "assistant", "content": string(content)},
					"finish_reason": "stop",
				},
			},
		})
	}))
}

func testWindow() []store.Turn {
	return []store.Turn{
		{Sender: store.SenderAssistant, Text: "What is your role in the business?"},
		{Sender: store.SenderUser, Text: "I am the business owner, born 2002-07-07, I'll hold 33 shares"},
	}
}

func TestExtract_Success(t *testing.T) {
	server := oracleStub(t, map[string]any{
		"applicant.role":          "business owner",
		"applicant.date_of_birth": "2002-07-07",
		"shares.number_of_shares": 33,
		"applicant.first_name":    nil,
	})
	defer server.Close()

	ext := New(oracle.NewClient("test-key", "gpt-4o", server.URL), discardLogger())

	update, err := ext.Extract(context.Background(), testWindow())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if update["applicant.role"] != "business owner" {
		t.Errorf("expected role, got %q", update["applicant.role"])
	}
	if update["applicant.date_of_birth"] != "2002-07-07" {
		t.Errorf("expected date, got %q", update["applicant.date_of_birth"])
	}
	if update["shares.number_of_shares"] != "33" {
		t.Errorf("expected coerced shares 33, got %q", update["shares.number_of_shares"])
	}
	if _, ok := update["applicant.first_name"]; ok {
		t.Error("null property must not be written")
	}
	if len(update) != 3 {
		t.Errorf("expected 3 fields, got %d: %v", len(update), update)
	}
}

func TestExtract_BadDateDropped(t *testing.T) {
	server := oracleStub(t, map[string]any{
		"applicant.date_of_birth": "07/07/2002",
		"applicant.surname":       "James",
	})
	defer server.Close()

	ext := New(oracle.NewClient("test-key", "gpt-4o", server.URL), discardLogger())

	update, err := ext.Extract(context.Background(), testWindow())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := update["applicant.date_of_birth"]; ok {
		t.Error("invalid date must be dropped, not written")
	}
	if update["applicant.surname"] != "James" {
		t.Errorf("valid field must survive a dropped sibling, got %q", update["applicant.surname"])
	}
}

func TestExtract_IntegerCoercion(t *testing.T) {
	cases := []struct {
		name  string
		value any
		want  string
		kept  bool
	}{
		{"number", 33, "33", true},
		{"numeric string", "33", "33", true},
		{"padded string", " 42 ", "42", true},
		{"words", "thirty-three", "", false},
		{"float", 3.5, "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := oracleStub(t, map[string]any{"shares.number_of_shares": tc.value})
			defer server.Close()

			ext := New(oracle.NewClient("test-key", "gpt-4o", server.URL), discardLogger())
			update, err := ext.Extract(context.Background(), testWindow())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			got, ok := update["shares.number_of_shares"]
			if ok != tc.kept {
				t.Fatalf("kept=%v, want %v (update %v)", ok, tc.kept, update)
			}
			if tc.kept && got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestExtract_UnknownPropertiesIgnored(t *testing.T) {
	server := oracleStub(t, map[string]any{
		"applicant.role": "director",
		"not.a.field":    "junk",
	})
	defer server.Close()

	ext := New(oracle.NewClient("test-key", "gpt-4o", server.URL), discardLogger())
	update, err := ext.Extract(context.Background(), testWindow())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(update) != 1 || update["applicant.role"] != "director" {
		t.Errorf("expected only the declared field, got %v", update)
	}
}

func TestExtract_OracleFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "overloaded"}}`, http.StatusInternalServerError)
	}))
	defer server.Close()

	ext := New(oracle.NewClient("test-key", "gpt-4o", server.URL), discardLogger())

	if _, err := ext.Extract(context.Background(), testWindow()); err == nil {
		t.Fatal("expected error on oracle failure")
	}
}
