// Package state persists which listing identifiers have already been
// notified, per tracked search. State must only advance after a successful
// notification, so the next run retries anything that failed to send.
package state

import "context"

// Store reads and writes seen-state for tracked searches, keyed by the
// search label. Top-mode searches use ReadLast/WriteLast (a single most
// recent identifier); set-mode searches use ReadSeen/AddSeen (membership).
type Store interface {
	// ReadLast returns the last notified identifier. ok is false when no
	// prior state exists, which makes any current listing new by definition.
	ReadLast(ctx context.Context, search string) (id string, ok bool, err error)
	// WriteLast overwrites the last notified identifier.
	WriteLast(ctx context.Context, search, id string) error
	// ReadSeen returns all previously notified identifiers; an empty map
	// when no prior state exists.
	ReadSeen(ctx context.Context, search string) (map[string]struct{}, error)
	// AddSeen unions ids into the persisted set.
	AddSeen(ctx context.Context, search string, ids []string) error
	Close() error
}
