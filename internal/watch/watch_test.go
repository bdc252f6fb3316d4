package watch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/slekota/jobwatch/internal/config"
	"github.com/slekota/jobwatch/internal/state"
)

// --- Fakes ---

// stubFetcher returns a canned body or an error.
type stubFetcher struct {
	body []byte
	err  error
}

func (f *stubFetcher) Get(_ context.Context, _ string, _ bool) ([]byte, error) {
	return f.body, f.err
}

// memStore is a map-based state.Store recording writes.
type memStore struct {
	last     map[string]string
	seen     map[string]map[string]struct{}
	added    []string // ids passed to AddSeen, in order
	writeErr error
}

func newMemStore() *memStore {
	return &memStore{
		last: make(map[string]string),
		seen: make(map[string]map[string]struct{}),
	}
}

func (s *memStore) ReadLast(_ context.Context, search string) (string, bool, error) {
	id, ok := s.last[search]
	return id, ok, nil
}

func (s *memStore) WriteLast(_ context.Context, search, id string) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.last[search] = id
	return nil
}

func (s *memStore) ReadSeen(_ context.Context, search string) (map[string]struct{}, error) {
	out := make(map[string]struct{}, len(s.seen[search]))
	for id := range s.seen[search] {
		out[id] = struct{}{}
	}
	return out, nil
}

func (s *memStore) AddSeen(_ context.Context, search string, ids []string) error {
	if s.seen[search] == nil {
		s.seen[search] = make(map[string]struct{})
	}
	for _, id := range ids {
		s.seen[search][id] = struct{}{}
		s.added = append(s.added, id)
	}
	return nil
}

func (s *memStore) Close() error { return nil }

// recordingNotifier records sent messages and can fail on demand.
type recordingNotifier struct {
	sent []string
	errs []error // popped per Send; nil entry means success
}

func (n *recordingNotifier) Send(_ context.Context, text string) error {
	if len(n.errs) > 0 {
		err := n.errs[0]
		n.errs = n.errs[1:]
		if err != nil {
			return err
		}
	}
	n.sent = append(n.sent, text)
	return nil
}

// --- Helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const exampleBody = `{"results":[{"id":"123","title":"SWE II","locations":[{"city":"Redmond"}],"applyUrl":"https://jobs.example.com/123"}]}`

func topSearch() config.SearchConfig {
	return config.SearchConfig{
		Label:   "IC2",
		URL:     "https://careers.example.com/api/search?query=IC2",
		Kind:    config.KindJSON,
		Mode:    config.ModeTop,
		Enabled: true,
	}
}

func newTopWatcher(body string, store state.Store, n *recordingNotifier) *SearchWatcher {
	return New(topSearch(), &stubFetcher{body: []byte(body)}, store, n, discardLogger())
}

// --- Tests ---

func TestCheck_FirstRunNotifiesAndPersists(t *testing.T) {
	store := newMemStore()
	n := &recordingNotifier{}

	if err := newTopWatcher(exampleBody, store, n).Check(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(n.sent) != 1 {
		t.Fatalf("sent = %d messages, want exactly 1", len(n.sent))
	}
	if !strings.Contains(n.sent[0], "SWE II\nRedmond\nhttps://jobs.example.com/123") {
		t.Errorf("message = %q, want title/location/url lines", n.sent[0])
	}
	if store.last["IC2"] != "123" {
		t.Errorf("persisted id = %q, want 123", store.last["IC2"])
	}
}

func TestCheck_UnchangedListingIsIdempotent(t *testing.T) {
	store := newMemStore()
	n := &recordingNotifier{}
	w := newTopWatcher(exampleBody, store, n)

	for i := 0; i < 2; i++ {
		if err := w.Check(context.Background()); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	if len(n.sent) != 1 {
		t.Errorf("sent = %d messages across two runs, want 1", len(n.sent))
	}
	if store.last["IC2"] != "123" {
		t.Errorf("persisted id = %q, want unchanged 123", store.last["IC2"])
	}
}

func TestCheck_FailedNotifyDoesNotAdvanceState(t *testing.T) {
	store := newMemStore()
	n := &recordingNotifier{errs: []error{errors.New("telegram down")}}
	w := newTopWatcher(exampleBody, store, n)

	if err := w.Check(context.Background()); err == nil {
		t.Fatal("expected notify error")
	}
	if _, ok := store.last["IC2"]; ok {
		t.Fatal("state must not advance after a failed notify")
	}

	// Next run retries the same listing.
	if err := w.Check(context.Background()); err != nil {
		t.Fatalf("retry run: %v", err)
	}
	if len(n.sent) != 1 || store.last["IC2"] != "123" {
		t.Errorf("retry: sent=%d last=%q, want one send and id 123", len(n.sent), store.last["IC2"])
	}
}

func TestCheck_FetchErrorPropagates(t *testing.T) {
	store := newMemStore()
	n := &recordingNotifier{}
	w := New(topSearch(), &stubFetcher{err: errors.New("connection refused")}, store, n, discardLogger())

	if err := w.Check(context.Background()); err == nil {
		t.Fatal("expected fetch error")
	}
	if len(n.sent) != 0 {
		t.Error("notifier must not be called on fetch error")
	}
}

func TestCheck_NoListingIsSoft(t *testing.T) {
	store := newMemStore()
	n := &recordingNotifier{}
	w := newTopWatcher(`{"count":0}`, store, n)

	if err := w.Check(context.Background()); err != nil {
		t.Fatalf("no-listing outcome must not be an error: %v", err)
	}
	if len(n.sent) != 0 || len(store.last) != 0 {
		t.Error("no-listing outcome must not notify or change state")
	}
}

func TestCheck_SetModeNovelty(t *testing.T) {
	search := config.SearchConfig{
		Label:     "Scrape",
		URL:       "https://careers.example.com/jobs",
		Kind:      config.KindMarkup,
		Mode:      config.ModeSet,
		IDPattern: regexp.MustCompile(`"jobId":"(\w+)"`),
		Enabled:   true,
	}
	body := `{"jobId":"A"} {"jobId":"B"} {"jobId":"C"}`

	store := newMemStore()
	store.seen["Scrape"] = map[string]struct{}{"A": {}, "B": {}}
	n := &recordingNotifier{}

	w := New(search, &stubFetcher{body: []byte(body)}, store, n, discardLogger())
	if err := w.Check(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(n.sent) != 1 || !strings.Contains(n.sent[0], "C") {
		t.Fatalf("sent = %v, want exactly one message for C", n.sent)
	}
	if len(store.added) != 1 || store.added[0] != "C" {
		t.Errorf("added = %v, want [C]", store.added)
	}
	for _, id := range []string{"A", "B", "C"} {
		if _, ok := store.seen["Scrape"][id]; !ok {
			t.Errorf("seen set missing %s", id)
		}
	}
}

func TestCheck_SetModePersistsSuccessfulSendsOnFailure(t *testing.T) {
	search := config.SearchConfig{
		Label:     "Scrape",
		URL:       "https://careers.example.com/jobs",
		Kind:      config.KindMarkup,
		Mode:      config.ModeSet,
		IDPattern: regexp.MustCompile(`"jobId":"(\w+)"`),
		Enabled:   true,
	}
	body := `{"jobId":"A"} {"jobId":"B"}`

	store := newMemStore()
	// First send succeeds, second fails.
	n := &recordingNotifier{errs: []error{nil, errors.New("telegram down")}}

	w := New(search, &stubFetcher{body: []byte(body)}, store, n, discardLogger())
	if err := w.Check(context.Background()); err == nil {
		t.Fatal("expected notify error")
	}

	if len(store.added) != 1 || store.added[0] != "A" {
		t.Fatalf("added = %v, want only the successfully sent A", store.added)
	}
	if _, ok := store.seen["Scrape"]["B"]; ok {
		t.Error("B must stay unseen so the next run retries it")
	}
}

func TestCheck_SetModeJSONUsesListingAlerts(t *testing.T) {
	search := topSearch()
	search.Mode = config.ModeSet

	store := newMemStore()
	n := &recordingNotifier{}
	w := New(search, &stubFetcher{body: []byte(exampleBody)}, store, n, discardLogger())

	if err := w.Check(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(n.sent) != 1 || !strings.Contains(n.sent[0], "SWE II") {
		t.Errorf("sent = %v, want a full listing alert", n.sent)
	}
	if _, ok := store.seen["IC2"]["123"]; !ok {
		t.Error("listing id should be in the seen set")
	}
}

func TestCheck_SetModeJSONSendsInCollectionOrder(t *testing.T) {
	search := topSearch()
	search.Mode = config.ModeSet

	// Listing titles deliberately out of lexical order so a send loop that
	// sorted them would be caught.
	body := `{"results": [
		{"id": "30", "title": "Zookeeper"},
		{"id": "10", "title": "Analyst"},
		{"id": "20", "title": "Manager"}
	]}`

	store := newMemStore()
	n := &recordingNotifier{}
	w := New(search, &stubFetcher{body: []byte(body)}, store, n, discardLogger())

	if err := w.Check(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(n.sent) != 3 {
		t.Fatalf("sent %d messages, want 3", len(n.sent))
	}
	for i, title := range []string{"Zookeeper", "Analyst", "Manager"} {
		if !strings.Contains(n.sent[i], title) {
			t.Errorf("sent[%d] = %q, want alert for %q", i, n.sent[i], title)
		}
	}
}

// End-to-end first run against a real file store.
func TestCheck_EndToEndWithFileStore(t *testing.T) {
	dir := t.TempDir()
	store, err := state.NewFileStore(dir, nil)
	if err != nil {
		t.Fatalf("file store: %v", err)
	}

	n := &recordingNotifier{}
	w := newTopWatcher(exampleBody, store, n)

	if err := w.Check(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(n.sent) != 1 || !strings.Contains(n.sent[0], "SWE II\nRedmond\nhttps://jobs.example.com/123") {
		t.Fatalf("sent = %v, want the listing alert", n.sent)
	}

	data, err := os.ReadFile(filepath.Join(dir, "ic2.txt"))
	if err != nil {
		t.Fatalf("reading state file: %v", err)
	}
	if string(data) != "123" {
		t.Errorf("state file = %q, want %q", data, "123")
	}
}
