package todo

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/chris/todoagent/internal/logging"
)

// Persister mirrors the whole list to an external slot.
type Persister interface {
	// Load returns the stored list, or nil when nothing has been saved yet.
	Load() ([]Item, error)
	// Save replaces the stored list.
	Save(items []Item) error
}

// Store owns the todo list. Items keep insertion order; nothing is sorted.
// When a Persister is configured, every successful mutation is followed by
// a best-effort Save of the full list.
type Store struct {
	mu        sync.Mutex
	items     []Item
	lastID    int64
	match     MatchConfig
	persister Persister
	now       func() time.Time
	log       zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithPersister mirrors the list to p after every mutation.
func WithPersister(p Persister) Option {
	return func(s *Store) { s.persister = p }
}

// WithMatchConfig overrides the fuzzy matching thresholds.
func WithMatchConfig(c MatchConfig) Option {
	return func(s *Store) { s.match = c }
}

// WithClock overrides the time source used for IDs and CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger used for persistence failures.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// New creates an empty store. Call Load to populate it from the persister.
func New(opts ...Option) *Store {
	s := &Store{
		match: DefaultMatchConfig(),
		now:   time.Now,
		log:   logging.Component("todo"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory list with the persisted one. On failure the
// store is left empty and the error is returned for the caller to report.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	s.lastID = 0
	if s.persister == nil {
		return nil
	}

	items, err := s.persister.Load()
	if err != nil {
		return fmt.Errorf("loading todos: %w", err)
	}
	s.items = items
	for _, it := range items {
		if it.ID > s.lastID {
			s.lastID = it.ID
		}
	}
	return nil
}

// Save writes the current list to the persister.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	if s.persister == nil {
		return nil
	}
	if err := s.persister.Save(s.snapshotLocked()); err != nil {
		return fmt.Errorf("saving todos: %w", err)
	}
	return nil
}

// persistLocked is the post-mutation hook. Failures are logged, never raised.
func (s *Store) persistLocked() {
	if err := s.saveLocked(); err != nil {
		s.log.Error().Err(err).Int("items", len(s.items)).Msg("failed to persist todos")
	}
}

func (s *Store) snapshotLocked() []Item {
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// nextIDLocked derives the ID from the creation time in milliseconds,
// bumping past the last issued ID so two creations in the same
// millisecond stay unique.
func (s *Store) nextIDLocked(at time.Time) int64 {
	id := at.UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

// Create appends a new item. It never fails; duplicate titles are allowed.
// Callers must ensure the trimmed title is non-empty.
func (s *Store) Create(title string, opts CreateOptions) Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	it := Item{
		ID:        s.nextIDLocked(now),
		Title:     strings.TrimSpace(title),
		CreatedAt: now.UTC(),
		DueDate:   opts.DueDate,
		Priority:  opts.Priority,
	}
	s.items = append(s.items, it)
	s.persistLocked()
	return it
}

// List returns the items matching f in store order. The result is never nil.
func (s *Store) List(f Filter) []Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Item, 0, len(s.items))
	for _, it := range s.items {
		if f.matches(it) {
			out = append(out, it)
		}
	}
	return out
}

// Get returns the item with the given ID.
func (s *Store) Get(id int64) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexLocked(id); i >= 0 {
		return s.items[i], nil
	}
	return Item{}, fmt.Errorf("todo %d: %w", id, ErrNotFound)
}

// Len returns the number of stored items.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Complete marks the item done. It reports whether the item existed.
func (s *Store) Complete(id int64) bool {
	done := true
	return s.Update(id, Patch{Completed: &done})
}

// Uncomplete clears the done flag. It reports whether the item existed.
func (s *Store) Uncomplete(id int64) bool {
	done := false
	return s.Update(id, Patch{Completed: &done})
}

// Update merges the set fields of p into the item. It reports whether the
// item existed; unknown IDs are a no-op.
func (s *Store) Update(id int64, p Patch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return false
	}
	if p.Title != nil {
		t := strings.TrimSpace(*p.Title)
		p.Title = &t
	}
	p.apply(&s.items[i])
	s.persistLocked()
	return true
}

// Delete removes the item. It reports whether the item existed.
func (s *Store) Delete(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return false
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	s.persistLocked()
	return true
}

func (s *Store) indexLocked(id int64) int {
	for i, it := range s.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}
