package reminder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/notexe/mediconnect/internal/storage"
)

// Renderer redraws the reminder list after every persisted mutation.
// It is called with the store locked and must not call back into it.
type Renderer interface {
	Render(reminders []Reminder)
}

// RenderFunc adapts a function to Renderer.
type RenderFunc func(reminders []Reminder)

func (f RenderFunc) Render(reminders []Reminder) { f(reminders) }

// Store keeps the reminder list in memory and mirrors it, in full, to a
// single key of a storage.KV on every mutation.
type Store struct {
	mu        sync.Mutex
	kv        storage.KV
	key       string
	reminders []Reminder
	lastID    int64

	renderer Renderer
	now      func() time.Time
	logger   *zap.Logger
}

type StoreOption func(*Store)

// WithKey overrides the storage key (default StorageKey).
func WithKey(key string) StoreOption {
	return func(s *Store) { s.key = key }
}

func WithRenderer(r Renderer) StoreOption {
	return func(s *Store) { s.renderer = r }
}

// WithClock replaces time.Now. The clock's location decides the date key.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// NewStore creates an empty store. Call Load to read persisted reminders.
func NewStore(kv storage.KV, opts ...StoreOption) *Store {
	s := &Store{
		kv:     kv,
		key:    StorageKey,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("store")
	return s
}

// storedReminder accepts records written by older clients: fractional or
// missing ids, missing taken/lastNotifiedDate.
type storedReminder struct {
	ID               *float64 `json:"id"`
	Medicine         string   `json:"medicine"`
	Time             string   `json:"time"`
	Taken            bool     `json:"taken"`
	LastNotifiedDate *string  `json:"lastNotifiedDate"`
}

// Load replaces the in-memory list with the persisted one. Missing or
// unreadable data yields an empty list; Load never fails.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reminders = nil
	s.lastID = 0

	data, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("failed to read reminders, starting empty", zap.Error(err))
		}
		return
	}

	var stored []storedReminder
	if err := json.Unmarshal(data, &stored); err != nil {
		s.logger.Warn("stored reminders are not valid JSON, starting empty", zap.Error(err))
		return
	}

	ids := make([]int64, len(stored))
	seen := make(map[int64]bool, len(stored))
	for i, rec := range stored {
		if rec.ID == nil || *rec.ID < 1 || *rec.ID >= math.MaxInt64 {
			continue
		}
		id := int64(*rec.ID)
		if seen[id] {
			continue
		}
		seen[id] = true
		ids[i] = id
		if id > s.lastID {
			s.lastID = id
		}
	}

	s.reminders = make([]Reminder, 0, len(stored))
	for i, rec := range stored {
		id := ids[i]
		if id == 0 {
			id = s.nextIDLocked()
		}
		r := Reminder{
			ID:       id,
			Medicine: rec.Medicine,
			Time:     rec.Time,
			Taken:    rec.Taken,
		}
		if rec.LastNotifiedDate != nil && *rec.LastNotifiedDate != "" {
			d := *rec.LastNotifiedDate
			r.LastNotifiedDate = &d
		}
		s.reminders = append(s.reminders, r)
	}

	s.logger.Debug("reminders loaded", zap.Int("count", len(s.reminders)))
}

// Save writes the full list and redraws the display.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ctx)
}

func (s *Store) saveLocked(ctx context.Context) error {
	list := s.reminders
	if list == nil {
		list = []Reminder{}
	}

	var err error
	data, merr := json.Marshal(list)
	if merr != nil {
		err = fmt.Errorf("failed to encode reminders: %w", merr)
	} else if perr := s.kv.Put(ctx, s.key, data); perr != nil {
		err = fmt.Errorf("failed to persist reminders: %w", perr)
	}
	if err != nil {
		s.logger.Error("save failed", zap.Error(err))
	}

	if s.renderer != nil {
		s.renderer.Render(cloneAll(s.reminders))
	}
	return err
}

// nextIDLocked returns a millisecond timestamp, bumped past every id
// handed out so far.
func (s *Store) nextIDLocked() int64 {
	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

// Add appends a new reminder and persists the list. Empty fields or a
// malformed time leave the list and storage untouched.
func (s *Store) Add(ctx context.Context, medicine, clock string) (Reminder, error) {
	medicine = strings.TrimSpace(medicine)
	clock = strings.TrimSpace(clock)
	if medicine == "" || clock == "" {
		return Reminder{}, ErrMissingFields
	}
	if !ValidClock(clock) {
		return Reminder{}, ErrInvalidTime
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r := Reminder{
		ID:       s.nextIDLocked(),
		Medicine: medicine,
		Time:     clock,
	}
	s.reminders = append(s.reminders, r)

	s.logger.Info("reminder added",
		zap.Int64("id", r.ID),
		zap.String("medicine", r.Medicine),
		zap.String("time", r.Time))

	return clone(r), s.saveLocked(ctx)
}

// MarkTaken acknowledges a reminder for today, which also suppresses
// today's automatic firing. It reports whether the id exists.
func (s *Store) MarkTaken(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return false, nil
	}

	today := DateKey(s.now())
	s.reminders[i].Taken = true
	s.reminders[i].LastNotifiedDate = &today

	s.logger.Info("reminder marked taken", zap.Int64("id", id), zap.String("date", today))
	return true, s.saveLocked(ctx)
}

// Delete removes a reminder. An unknown id leaves the list unchanged; the
// list is persisted either way.
func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i >= 0 {
		s.reminders = append(s.reminders[:i], s.reminders[i+1:]...)
		s.logger.Info("reminder deleted", zap.Int64("id", id))
	}
	return i >= 0, s.saveLocked(ctx)
}

// List returns a copy of the current reminders.
func (s *Store) List() []Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.reminders)
}

// Now returns the store's clock reading.
func (s *Store) Now() time.Time {
	return s.now()
}

// markDue marks every reminder scheduled at clock that has not fired on
// dateKey, persists once if anything changed, and returns the marked ones.
func (s *Store) markDue(ctx context.Context, clock, dateKey string) []Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []Reminder
	for i := range s.reminders {
		r := &s.reminders[i]
		if r.Medicine == "" || r.Time == "" {
			continue
		}
		if r.Time != clock || r.NotifiedOn(dateKey) {
			continue
		}
		d := dateKey
		r.LastNotifiedDate = &d
		r.Taken = true
		due = append(due, clone(*r))
	}

	if len(due) > 0 {
		_ = s.saveLocked(ctx)
	}
	return due
}

func (s *Store) indexLocked(id int64) int {
	for i := range s.reminders {
		if s.reminders[i].ID == id {
			return i
		}
	}
	return -1
}
