package mints

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sahilm/fuzzy"
	"go.uber.org/zap"

	"github.com/tranvictor/namesvc/registry"
)

// ErrReadFailed means a refresh couldn't read the registry. The previous
// snapshot is kept.
var ErrReadFailed = errors.New("couldn't read registered names")

var errNoIndex = errors.New("search index unavailable")

// Lister reads every registered name.
type Lister interface {
	ListAll(ctx context.Context) ([]registry.Row, error)
}

type snapshot struct {
	generation  uint64
	refreshedAt time.Time
	entries     []Entry
	index       *searchIndex
}

// Cache holds the latest snapshot of the registry. A refresh builds a whole
// new snapshot and swaps it in, so readers see either the old list or the new
// one, never a mix.
type Cache struct {
	source  Lister
	current atomic.Pointer[snapshot]
	gen     atomic.Uint64
	// serializes refreshes so generations are swapped in order
	refreshMu sync.Mutex
	log       *zap.Logger
}

func NewCache(source Lister, log *zap.Logger) *Cache {
	c := &Cache{source: source, log: log.Named("mints")}
	c.current.Store(&snapshot{})
	return c
}

func (c *Cache) Refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	rows, err := c.source.ListAll(ctx)
	if err != nil {
		c.log.Warn("refresh failed, keeping last snapshot", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrReadFailed, err)
	}
	entries := make([]Entry, len(rows))
	for i, row := range rows {
		entries[i] = Entry{
			ID:     i,
			Name:   row.Name,
			Record: row.Record,
			Owner:  row.Owner.Hex(),
		}
	}
	index, err := newSearchIndex(entries)
	if err != nil {
		c.log.Warn("search index unavailable for this snapshot", zap.Error(err))
		index = nil
	}

	next := &snapshot{
		generation:  c.gen.Add(1),
		refreshedAt: time.Now(),
		entries:     entries,
		index:       index,
	}
	old := c.current.Swap(next)
	if old != nil && old.index != nil {
		go old.index.close()
	}
	c.log.Info("refreshed", zap.Int("names", len(entries)), zap.Uint64("generation", next.generation))
	return nil
}

// Entries returns a copy of the current snapshot.
func (c *Cache) Entries() []Entry {
	s := c.current.Load()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Generation counts successful refreshes; 0 means never refreshed.
func (c *Cache) Generation() uint64 {
	return c.current.Load().generation
}

func (c *Cache) RefreshedAt() time.Time {
	return c.current.Load().refreshedAt
}

func (c *Cache) IsOwnedBy(e Entry, account string) bool {
	return IsOwnedBy(e, account)
}

// Owned returns the entries owned by account.
func (c *Cache) Owned(account string) []Entry {
	out := []Entry{}
	for _, e := range c.current.Load().entries {
		if IsOwnedBy(e, account) {
			out = append(out, e)
		}
	}
	return out
}

type entryNames []Entry

func (e entryNames) String(i int) string { return e[i].Name }
func (e entryNames) Len() int            { return len(e) }

// Find fuzzy matches pattern against names, best match first. An exact name
// always ranks first.
func (c *Cache) Find(pattern string) []Entry {
	entries := c.current.Load().entries
	out := []Entry{}
	for _, e := range entries {
		if e.Name == pattern {
			out = append(out, e)
		}
	}
	for _, m := range fuzzy.FindFrom(pattern, entryNames(entries)) {
		if entries[m.Index].Name != pattern {
			out = append(out, entries[m.Index])
		}
	}
	return out
}

// Search runs a full-text query over names and records.
func (c *Cache) Search(query string) ([]Entry, error) {
	for {
		s := c.current.Load()
		if len(s.entries) == 0 {
			return []Entry{}, nil
		}
		if s.index == nil {
			return nil, errNoIndex
		}
		ids, ok, err := s.index.search(query, len(s.entries))
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out := make([]Entry, 0, len(ids))
		for _, id := range ids {
			if id >= 0 && id < len(s.entries) {
				out = append(out, s.entries[id])
			}
		}
		return out, nil
	}
}
