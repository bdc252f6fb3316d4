// Package extract locates the most relevant listing inside a search response
// whose exact shape is not guaranteed stable, and reduces it to a normalized
// model.Listing.
package extract

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/slekota/jobwatch/internal/model"
)

// Candidate keys per logical field, in priority order. Upstream schemas have
// been observed to vary across deployments, so each field is resolved through
// its chain and falls back gracefully.
var (
	titleKeys    = []string{"name", "title", "jobTitle"}
	idKeys       = []string{"id", "displayJobId", "position_id", "positionId"}
	locationKeys = []string{"locations", "standardizedLocations", "location"}
	urlKeys      = []string{"applyUrl", "detailsUrl", "detailsURL"}
)

// Options controls how TopListing reduces the response.
type Options struct {
	// Keyword, when non-empty, keeps only records whose title contains it
	// (case-insensitive) before the top record is picked.
	Keyword string
	// FallbackURL is used when no candidate URL field resolves.
	FallbackURL string
}

// TopListing decodes a JSON search response, finds the first plausible
// collection of listing records, and normalizes its top entry. The upstream
// source is assumed to pre-sort by recency, so the first record is the most
// relevant one. Returns model.ErrNoListing when no collection exists or the
// keyword filter matches nothing.
func TopListing(body []byte, opts Options) (model.Listing, error) {
	listings, err := Listings(body, opts)
	if err != nil {
		return model.Listing{}, err
	}
	return listings[0], nil
}

// Listings decodes a JSON search response and normalizes every record of the
// first plausible collection, preserving the upstream (recency) order.
// Returns model.ErrNoListing when no collection exists or the keyword filter
// matches nothing.
func Listings(body []byte, opts Options) ([]model.Listing, error) {
	var root any
	if err := json.Unmarshal(body, &root); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	records := Records(root)
	if len(records) == 0 {
		return nil, model.ErrNoListing
	}

	if opts.Keyword != "" {
		records = filterByTitle(records, opts.Keyword)
		if len(records) == 0 {
			return nil, fmt.Errorf("keyword %q: %w", opts.Keyword, model.ErrNoListing)
		}
	}

	listings := make([]model.Listing, 0, len(records))
	for _, r := range records {
		record, ok := r.(map[string]any)
		if !ok {
			continue
		}
		listings = append(listings, normalize(record, opts.FallbackURL))
	}
	if len(listings) == 0 {
		return nil, model.ErrNoListing
	}
	return listings, nil
}

// Records walks the decoded JSON tree depth-first and returns the first
// sequence whose leading element is a mapping, treating it as the collection
// of listing records. Map values are visited in sorted key order so the walk
// is deterministic. Returns nil when nothing plausible exists.
func Records(node any) []any {
	switch v := node.(type) {
	case []any:
		if len(v) > 0 {
			if _, ok := v[0].(map[string]any); ok {
				return v
			}
		}
		for _, item := range v {
			if found := Records(item); found != nil {
				return found
			}
		}
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if found := Records(v[k]); found != nil {
				return found
			}
		}
	}
	return nil
}

func filterByTitle(records []any, keyword string) []any {
	keyword = strings.ToLower(keyword)
	var kept []any
	for _, r := range records {
		record, ok := r.(map[string]any)
		if !ok {
			continue
		}
		title := firstString(record, titleKeys...)
		if strings.Contains(strings.ToLower(title), keyword) {
			kept = append(kept, r)
		}
	}
	return kept
}

// normalize reduces one loosely-typed record to a Listing, resolving each
// field through its candidate key chain.
func normalize(record map[string]any, fallbackURL string) model.Listing {
	title := firstString(record, titleKeys...)
	if title == "" {
		title = model.UnknownTitle
	}

	id := firstScalar(record, idKeys...)
	if id == "" {
		id = contentHash(record)
	}

	listingURL := firstString(record, urlKeys...)
	if listingURL == "" {
		listingURL = fallbackURL
	}

	return model.Listing{
		ID:       id,
		Title:    title,
		Location: resolveLocation(record),
		URL:      listingURL,
	}
}

// firstString returns the first candidate key whose value is a non-blank
// string, trimmed.
func firstString(record map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := record[key].(string); ok {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

// firstScalar is like firstString but also accepts numeric values,
// stringifying them. Upstream identifiers show up both ways.
func firstScalar(record map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := scalarString(record[key]); s != "" {
			return s
		}
	}
	return ""
}

func scalarString(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	}
	return ""
}

// resolveLocation walks the location key chain and keeps the first candidate
// whose value actually formats to something. A key that is present but holds
// an empty list or a blank string falls through to the next candidate.
func resolveLocation(record map[string]any) string {
	for _, key := range locationKeys {
		if formatted := formatLocation(record[key]); formatted != model.UnknownLocation {
			return formatted
		}
	}
	return model.UnknownLocation
}

// formatLocation renders a location value of unknown shape as display text:
// a mapping joins its non-empty scalar values, a sequence defers to its first
// mapping element or joins stringified elements, a string is used literally.
func formatLocation(v any) string {
	switch loc := v.(type) {
	case string:
		if trimmed := strings.TrimSpace(loc); trimmed != "" {
			return trimmed
		}
	case map[string]any:
		if joined := joinMapValues(loc); joined != "" {
			return joined
		}
	case []any:
		if len(loc) == 0 {
			break
		}
		if first, ok := loc[0].(map[string]any); ok {
			if joined := joinMapValues(first); joined != "" {
				return joined
			}
			break
		}
		parts := make([]string, 0, len(loc))
		for _, item := range loc {
			if s := scalarString(item); s != "" {
				parts = append(parts, s)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, ", ")
		}
	}
	return model.UnknownLocation
}

// joinMapValues joins the non-empty scalar values of a mapping with ", ".
// Keys are sorted so the result is deterministic ({city, state} reads
// "Seattle, WA" on every run).
func joinMapValues(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if s := scalarString(m[k]); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

// contentHash derives a stable identifier for a record with no usable id
// field. json.Marshal writes map keys in sorted order, so two records that
// differ only in field order hash identically. The hash changes when the
// record's content changes, which is accepted.
func contentHash(record map[string]any) string {
	canonical, err := json.Marshal(record)
	if err != nil {
		// Values decoded from JSON always re-marshal; this is unreachable
		// in practice but a stable string still beats a panic.
		canonical = []byte(fmt.Sprintf("%v", record))
	}
	return fmt.Sprintf("%x", md5.Sum(canonical))
}
