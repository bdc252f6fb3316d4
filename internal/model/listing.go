package model

import (
	"context"
	"fmt"
)

// Sentinels used when the upstream record carries no usable value.
const (
	UnknownTitle    = "Unknown title"
	UnknownLocation = "Unknown location"
)

// Listing is the normalized representation of one job posting, reduced from
// whatever shape the upstream search endpoint returned.
type Listing struct {
	Search   string // label of the tracked search that produced it
	ID       string // stable identifier (upstream field or content hash)
	Title    string
	Location string
	URL      string
}

// DisplayText renders the listing as the multi-line body of a notification.
func (l Listing) DisplayText() string {
	return fmt.Sprintf("%s\n%s\n%s", l.Title, l.Location, l.URL)
}

// Notifier sends a text message to the configured destination.
type Notifier interface {
	Send(ctx context.Context, text string) error
}
