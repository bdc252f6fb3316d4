package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/slekota/jobwatch/internal/model"
)

func TestGet_SetsHeaders(t *testing.T) {
	var gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), nil, "job-watcher-test")
	body, err := c.Get(context.Background(), srv.URL, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotUA != "job-watcher-test" {
		t.Errorf("User-Agent = %q, want job-watcher-test", gotUA)
	}
	if gotAccept != "application/json" {
		t.Errorf("Accept = %q, want application/json", gotAccept)
	}
	if string(body) != `{"ok":true}` {
		t.Errorf("body = %q", body)
	}
}

func TestGet_NoAcceptForMarkup(t *testing.T) {
	var gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), nil, "ua")
	if _, err := c.Get(context.Background(), srv.URL, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAccept == "application/json" {
		t.Error("Accept header should not request JSON for markup searches")
	}
}

func TestGet_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(strings.Repeat("x", 600)))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), nil, "ua")
	_, err := c.Get(context.Background(), srv.URL, true)
	if err == nil {
		t.Fatal("expected error for 503")
	}

	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("error type = %T, want *model.HTTPError", err)
	}
	if httpErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", httpErr.StatusCode)
	}
	if len(httpErr.Snippet) != 500 {
		t.Errorf("snippet length = %d, want capped at 500", len(httpErr.Snippet))
	}
}

func TestGet_LimiterCancellation(t *testing.T) {
	// Burst of 1 is consumed immediately, so the second wait blocks until
	// the context deadline.
	lim := NewHostLimiter(0.001, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := lim.WaitURL(ctx, "https://example.com/a"); err != nil {
		t.Fatalf("first wait should pass: %v", err)
	}
	if err := lim.WaitURL(ctx, "https://example.com/b"); err == nil {
		t.Fatal("second wait should fail once the deadline is exceeded")
	}
}

func TestHostLimiter_IndependentHosts(t *testing.T) {
	lim := NewHostLimiter(0.001, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := lim.WaitURL(ctx, "https://a.example.com/"); err != nil {
		t.Fatalf("host a: %v", err)
	}
	// Different host has its own bucket, so this must not block.
	if err := lim.WaitURL(ctx, "https://b.example.com/"); err != nil {
		t.Fatalf("host b: %v", err)
	}
}
