package state

import "context"

var _ Store = (*NopStore)(nil)

// NopStore is used in check mode. It never reports prior state and discards
// writes, so every listing appears new on each run and nothing is persisted.
type NopStore struct{}

func NewNopStore() *NopStore { return &NopStore{} }

func (s *NopStore) ReadLast(context.Context, string) (string, bool, error) { return "", false, nil }
func (s *NopStore) WriteLast(context.Context, string, string) error        { return nil }
func (s *NopStore) ReadSeen(context.Context, string) (map[string]struct{}, error) {
	return map[string]struct{}{}, nil
}
func (s *NopStore) AddSeen(context.Context, string, []string) error { return nil }
func (s *NopStore) Close() error                                    { return nil }
