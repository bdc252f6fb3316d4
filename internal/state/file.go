package state

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

// lockRetryDelay is the poll interval while waiting on the state lock held
// by an overlapping invocation.
const lockRetryDelay = 50 * time.Millisecond

var _ Store = (*FileStore)(nil)

// FileStore keeps one plain-text file per tracked search. Top mode stores
// exactly the trimmed identifier; set mode stores one identifier per line,
// sorted, with a trailing newline. External runners can overlap invocations,
// so read-modify-write cycles take a cross-process lock.
type FileStore struct {
	dir   string
	paths map[string]string // per-search overrides, keyed by label
	lock  *flock.Flock
}

// NewFileStore roots state files at dir. paths maps each search label to its
// file path; an empty value selects the default <dir>/<slug>.txt layout.
// Distinct labels can sluggify to the same file name, so every path is
// resolved up front and duplicates are rejected.
func NewFileStore(dir string, paths map[string]string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state dir %s: %w", dir, err)
	}
	s := &FileStore{
		dir:   dir,
		paths: make(map[string]string, len(paths)),
		lock:  flock.New(filepath.Join(dir, ".jobwatch.lock")),
	}

	labels := make([]string, 0, len(paths))
	for label := range paths {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	owner := make(map[string]string, len(labels))
	for _, label := range labels {
		p := paths[label]
		if p == "" {
			p = s.defaultPath(label)
		}
		if prev, taken := owner[p]; taken {
			return nil, fmt.Errorf("searches %q and %q both resolve to state file %s", prev, label, p)
		}
		owner[p] = label
		s.paths[label] = p
	}
	return s, nil
}

func (s *FileStore) ReadLast(ctx context.Context, search string) (string, bool, error) {
	var id string
	var ok bool
	err := s.withLock(ctx, func() error {
		data, err := os.ReadFile(s.path(search))
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading state for %s: %w", search, err)
		}
		id = strings.TrimSpace(string(data))
		ok = id != ""
		return nil
	})
	return id, ok, err
}

func (s *FileStore) WriteLast(ctx context.Context, search, id string) error {
	return s.withLock(ctx, func() error {
		return s.write(search, strings.TrimSpace(id))
	})
}

func (s *FileStore) ReadSeen(ctx context.Context, search string) (map[string]struct{}, error) {
	seen := make(map[string]struct{})
	err := s.withLock(ctx, func() error {
		return s.readSeenLocked(search, seen)
	})
	if err != nil {
		return nil, err
	}
	return seen, nil
}

func (s *FileStore) AddSeen(ctx context.Context, search string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.withLock(ctx, func() error {
		seen := make(map[string]struct{})
		if err := s.readSeenLocked(search, seen); err != nil {
			return err
		}
		for _, id := range ids {
			seen[id] = struct{}{}
		}

		all := make([]string, 0, len(seen))
		for id := range seen {
			all = append(all, id)
		}
		sort.Strings(all)

		return s.write(search, strings.Join(all, "\n")+"\n")
	})
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) readSeenLocked(search string, seen map[string]struct{}) error {
	data, err := os.ReadFile(s.path(search))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading state for %s: %w", search, err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		if id := strings.TrimSpace(line); id != "" {
			seen[id] = struct{}{}
		}
	}
	return nil
}

func (s *FileStore) write(search, content string) error {
	path := s.path(search)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating state dir for %s: %w", search, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing state for %s: %w", search, err)
	}
	return nil
}

func (s *FileStore) path(search string) string {
	if p, ok := s.paths[search]; ok && p != "" {
		return p
	}
	return s.defaultPath(search)
}

func (s *FileStore) defaultPath(search string) string {
	name := slug(search)
	if name == "" {
		// Labels with no usable characters fall back to a hash so they
		// still get a distinct, stable file name.
		sum := md5.Sum([]byte(search))
		name = "search_" + hex.EncodeToString(sum[:4])
	}
	return filepath.Join(s.dir, name+".txt")
}

func (s *FileStore) withLock(ctx context.Context, fn func() error) error {
	if _, err := s.lock.TryLockContext(ctx, lockRetryDelay); err != nil {
		return fmt.Errorf("acquiring state lock: %w", err)
	}
	defer s.lock.Unlock()
	return fn()
}

// slug turns a search label into a safe file name component.
func slug(label string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, label)
	return strings.Trim(mapped, "_")
}
