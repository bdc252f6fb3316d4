// Package watch owns the pipeline for a single tracked search:
// fetch → extract → diff against stored state → notify → persist.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/slekota/jobwatch/internal/config"
	"github.com/slekota/jobwatch/internal/extract"
	"github.com/slekota/jobwatch/internal/model"
	"github.com/slekota/jobwatch/internal/notify"
	"github.com/slekota/jobwatch/internal/state"
)

// Fetcher performs the single outbound request for a search.
type Fetcher interface {
	Get(ctx context.Context, url string, wantJSON bool) ([]byte, error)
}

// SearchWatcher checks one tracked search per invocation. State advances only
// after a successful notification, so a failed send is retried on the next
// external trigger.
type SearchWatcher struct {
	Search   config.SearchConfig
	fetcher  Fetcher
	store    state.Store
	notifier model.Notifier
	logger   *slog.Logger
}

// New wires a watcher with all its dependencies.
func New(search config.SearchConfig, fetcher Fetcher, store state.Store, notifier model.Notifier, logger *slog.Logger) *SearchWatcher {
	return &SearchWatcher{
		Search:   search,
		fetcher:  fetcher,
		store:    store,
		notifier: notifier,
		logger:   logger.With("search", search.Label),
	}
}

// Check runs one pipeline pass. A soft no-listing outcome returns nil and
// leaves state untouched.
func (w *SearchWatcher) Check(ctx context.Context) error {
	if w.Search.Mode == config.ModeSet {
		return w.checkSet(ctx)
	}
	return w.checkTop(ctx)
}

// checkTop compares the single most recent listing against the last notified
// identifier.
func (w *SearchWatcher) checkTop(ctx context.Context) error {
	body, err := w.fetcher.Get(ctx, w.Search.URL, true)
	if err != nil {
		return fmt.Errorf("checking %s: %w", w.Search.Label, err)
	}

	listing, err := extract.TopListing(body, w.extractOptions())
	if errors.Is(err, model.ErrNoListing) {
		w.logger.Info("no listing found", "reason", err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking %s: %w", w.Search.Label, err)
	}
	listing.Search = w.Search.Label

	last, ok, err := w.store.ReadLast(ctx, w.Search.Label)
	if err != nil {
		return fmt.Errorf("checking %s: %w", w.Search.Label, err)
	}
	if ok && last == listing.ID {
		w.logger.Info("no new listing", "listing_id", listing.ID)
		return nil
	}

	// New listing, or first run establishing the baseline. Notify first;
	// only a sent alert may advance the stored identifier.
	if err := w.notifier.Send(ctx, notify.FormatAlert(w.Search.Label, listing)); err != nil {
		return fmt.Errorf("checking %s: notifying: %w", w.Search.Label, err)
	}
	if err := w.store.WriteLast(ctx, w.Search.Label, listing.ID); err != nil {
		return fmt.Errorf("checking %s: persisting state: %w", w.Search.Label, err)
	}

	w.logger.Info("new listing notified", "listing_id", listing.ID, "title", listing.Title)
	return nil
}

// checkSet notifies every identifier not yet in the seen set. Identifiers
// whose notification succeeded are persisted even when a later send fails,
// so only the failed ones are retried next run.
func (w *SearchWatcher) checkSet(ctx context.Context) error {
	body, err := w.fetcher.Get(ctx, w.Search.URL, w.Search.Kind == config.KindJSON)
	if err != nil {
		return fmt.Errorf("checking %s: %w", w.Search.Label, err)
	}

	messages, order, err := w.currentSet(body)
	if errors.Is(err, model.ErrNoListing) {
		w.logger.Info("no listing found", "reason", err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking %s: %w", w.Search.Label, err)
	}

	seen, err := w.store.ReadSeen(ctx, w.Search.Label)
	if err != nil {
		return fmt.Errorf("checking %s: %w", w.Search.Label, err)
	}

	var sent []string
	var sendErr error
	for _, id := range order {
		if _, ok := seen[id]; ok {
			continue
		}
		if err := w.notifier.Send(ctx, messages[id]); err != nil {
			sendErr = fmt.Errorf("checking %s: notifying %s: %w", w.Search.Label, id, err)
			break
		}
		sent = append(sent, id)
	}

	if len(sent) > 0 {
		if err := w.store.AddSeen(ctx, w.Search.Label, sent); err != nil {
			return fmt.Errorf("checking %s: persisting state: %w", w.Search.Label, err)
		}
		w.logger.Info("new listings notified", "new", len(sent), "known", len(seen))
	} else if sendErr == nil {
		w.logger.Info("no new listings", "known", len(seen))
	}

	return sendErr
}

// currentSet extracts the identifiers present in the response together with
// the notification text for each, preserving extraction order.
func (w *SearchWatcher) currentSet(body []byte) (map[string]string, []string, error) {
	messages := make(map[string]string)
	var order []string

	if w.Search.Kind == config.KindMarkup {
		ids := extract.IdentifierSet(body, w.Search.IDPattern)
		if len(ids) == 0 {
			return nil, nil, model.ErrNoListing
		}
		for _, id := range ids {
			messages[id] = notify.FormatIDAlert(w.Search.Label, id, w.fallbackURL())
			order = append(order, id)
		}
		return messages, order, nil
	}

	listings, err := extract.Listings(body, w.extractOptions())
	if err != nil {
		return nil, nil, err
	}
	for _, l := range listings {
		if _, ok := messages[l.ID]; ok {
			continue
		}
		l.Search = w.Search.Label
		messages[l.ID] = notify.FormatAlert(w.Search.Label, l)
		order = append(order, l.ID)
	}
	return messages, order, nil
}

// Listings fetches and normalizes the full current collection for this
// search. Used by the interactive browser; never touches state.
func (w *SearchWatcher) Listings(ctx context.Context) ([]model.Listing, error) {
	body, err := w.fetcher.Get(ctx, w.Search.URL, w.Search.Kind == config.KindJSON)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", w.Search.Label, err)
	}

	if w.Search.Kind == config.KindMarkup {
		ids := extract.IdentifierSet(body, w.Search.IDPattern)
		listings := make([]model.Listing, 0, len(ids))
		for _, id := range ids {
			listings = append(listings, model.Listing{
				Search:   w.Search.Label,
				ID:       id,
				Title:    model.UnknownTitle,
				Location: model.UnknownLocation,
				URL:      w.fallbackURL(),
			})
		}
		return listings, nil
	}

	listings, err := extract.Listings(body, w.extractOptions())
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", w.Search.Label, err)
	}
	for i := range listings {
		listings[i].Search = w.Search.Label
	}
	return listings, nil
}

func (w *SearchWatcher) extractOptions() extract.Options {
	return extract.Options{
		Keyword:     w.Search.Keyword,
		FallbackURL: w.fallbackURL(),
	}
}

func (w *SearchWatcher) fallbackURL() string {
	if w.Search.Link != "" {
		return w.Search.Link
	}
	return w.Search.URL
}
