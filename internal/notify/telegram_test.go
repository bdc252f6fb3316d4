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

	"github.com/slekota/jobwatch/internal/model"
)

func testListing() model.Listing {
	return model.Listing{
		Search:   "IC2",
		ID:       "123",
		Title:    "SWE II",
		Location: "Redmond",
		URL:      "https://jobs.example.com/123",
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTelegram_SendPostsJSONBody(t *testing.T) {
	var gotPath, gotContentType string
	var gotBody sendMessageRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding request body: %v", err)
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegram("123:abc", "42", srv.URL, srv.Client(), discardLogger())
	if err := n.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/bot123:abc/sendMessage" {
		t.Errorf("path = %q, want /bot123:abc/sendMessage", gotPath)
	}
	if gotContentType != "application/json" {
		t.Errorf("content type = %q, want application/json", gotContentType)
	}
	if gotBody.ChatID != "42" || gotBody.Text != "hello" {
		t.Errorf("body = %+v, want chat_id=42 text=hello", gotBody)
	}
}

func TestTelegram_SendNonOKIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"ok":false,"description":"bot was blocked"}`))
	}))
	defer srv.Close()

	n := NewTelegram("123:abc", "42", srv.URL, srv.Client(), discardLogger())
	err := n.Send(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error for 403")
	}
	if !strings.Contains(err.Error(), "403") {
		t.Errorf("error should carry the status, got: %v", err)
	}
}

func TestFormatAlert(t *testing.T) {
	got := FormatAlert("IC2", testListing())
	want := "🚨 New job detected for IC2 search:\n\nSWE II\nRedmond\nhttps://jobs.example.com/123"
	if got != want {
		t.Errorf("alert = %q, want %q", got, want)
	}
}

func TestSendTestMessage(t *testing.T) {
	rec := &recordingNotifier{}
	if err := SendTestMessage(context.Background(), rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.sent) != 1 || !strings.Contains(rec.sent[0], "Test Notification") {
		t.Errorf("sent = %v, want one test message", rec.sent)
	}
}

type recordingNotifier struct {
	sent []string
}

func (r *recordingNotifier) Send(_ context.Context, text string) error {
	r.sent = append(r.sent, text)
	return nil
}
