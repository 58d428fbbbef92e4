package reminder_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notexe/mediconnect/internal/reminder"
	"github.com/notexe/mediconnect/internal/storage"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock(value string) *fakeClock {
	t, err := time.ParseInLocation("2006-01-02 15:04:05", value, time.Local)
	if err != nil {
		panic(err)
	}
	return &fakeClock{t: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(value string) {
	t := newClock(value).Now()
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

// countingKV counts writes and can be told to fail them.
type countingKV struct {
	*storage.Memory
	mu   sync.Mutex
	puts int
	fail error
}

func newCountingKV() *countingKV {
	return &countingKV{Memory: storage.NewMemory()}
}

func (k *countingKV) Put(ctx context.Context, key string, value []byte) error {
	k.mu.Lock()
	k.puts++
	fail := k.fail
	k.mu.Unlock()
	if fail != nil {
		return fail
	}
	return k.Memory.Put(ctx, key, value)
}

func (k *countingKV) Puts() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.puts
}

func strPtr(s string) *string { return &s }

func TestStore_LoadMissingOrInvalid(t *testing.T) {
	ctx := context.Background()

	kv := storage.NewMemory()
	s := reminder.NewStore(kv)
	s.Load(ctx)
	assert.Empty(t, s.List())

	require.NoError(t, kv.Put(ctx, reminder.StorageKey, []byte(`{not json`)))
	s.Load(ctx)
	assert.Empty(t, s.List())

	require.NoError(t, kv.Put(ctx, reminder.StorageKey, []byte(`null`)))
	s.Load(ctx)
	assert.Empty(t, s.List())
}

func TestStore_LoadBackfillsOlderRecords(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	stored := `[
		{"id": 1700000000000.25, "medicine": "Aspirin", "time": "08:00"},
		{"medicine": "Vitamin D", "time": "09:30", "taken": true, "lastNotifiedDate": ""},
		{"id": 1700000000000, "medicine": "Ibuprofen", "time": "20:00", "lastNotifiedDate": "2024-01-01"}
	]`
	require.NoError(t, kv.Put(ctx, reminder.StorageKey, []byte(stored)))

	s := reminder.NewStore(kv, reminder.WithClock(newClock("2024-01-02 10:00:00").Now))
	s.Load(ctx)

	list := s.List()
	require.Len(t, list, 3)

	assert.Equal(t, int64(1700000000000), list[0].ID, "fractional ids are truncated")
	assert.False(t, list[0].Taken)
	assert.Nil(t, list[0].LastNotifiedDate)

	assert.NotZero(t, list[1].ID, "missing ids are back-filled")
	assert.True(t, list[1].Taken)
	assert.Nil(t, list[1].LastNotifiedDate, "empty dates become null")

	require.NotNil(t, list[2].LastNotifiedDate)
	assert.Equal(t, "2024-01-01", *list[2].LastNotifiedDate)

	ids := map[int64]bool{}
	for _, r := range list {
		assert.False(t, ids[r.ID], "duplicate id %d", r.ID)
		ids[r.ID] = true
	}
}

func TestStore_LoadReassignsOutOfRangeIDs(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	stored := `[
		{"id": 9223372036854775808, "medicine": "Aspirin", "time": "08:00"},
		{"id": 1e300, "medicine": "Vitamin D", "time": "09:30"},
		{"id": -4, "medicine": "Ibuprofen", "time": "20:00"}
	]`
	require.NoError(t, kv.Put(ctx, reminder.StorageKey, []byte(stored)))

	s := reminder.NewStore(kv, reminder.WithClock(newClock("2024-01-02 10:00:00").Now))
	s.Load(ctx)

	list := s.List()
	require.Len(t, list, 3)
	ids := map[int64]bool{}
	for _, r := range list {
		assert.Positive(t, r.ID, "%s", r.Medicine)
		assert.False(t, ids[r.ID], "duplicate id %d", r.ID)
		ids[r.ID] = true
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	clock := newClock("2024-01-01 07:00:00")

	s := reminder.NewStore(kv, reminder.WithClock(clock.Now))
	_, err := s.Add(ctx, "Aspirin", "08:00")
	require.NoError(t, err)
	added, err := s.Add(ctx, "Metformin", "19:45")
	require.NoError(t, err)
	_, err = s.MarkTaken(ctx, added.ID)
	require.NoError(t, err)

	reloaded := reminder.NewStore(kv)
	reloaded.Load(ctx)
	assert.Equal(t, s.List(), reloaded.List())

	raw, err := kv.Get(ctx, reminder.StorageKey)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"lastNotifiedDate":null`)
	assert.Contains(t, string(raw), `"lastNotifiedDate":"2024-01-01"`)
}

func TestStore_AddRejectsEmptyFields(t *testing.T) {
	ctx := context.Background()
	kv := newCountingKV()
	s := reminder.NewStore(kv)

	for _, tc := range [][2]string{{"", "08:00"}, {"   ", "08:00"}, {"Aspirin", ""}, {"", ""}} {
		_, err := s.Add(ctx, tc[0], tc[1])
		assert.True(t, errors.Is(err, reminder.ErrMissingFields), "%q/%q: %v", tc[0], tc[1], err)
	}

	for _, clock := range []string{"8:00", "24:00", "08:60", "noon"} {
		_, err := s.Add(ctx, "Aspirin", clock)
		assert.True(t, errors.Is(err, reminder.ErrInvalidTime), "%q: %v", clock, err)
	}

	assert.Empty(t, s.List())
	assert.Zero(t, kv.Puts(), "storage untouched")
	_, err := kv.Get(ctx, reminder.StorageKey)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestStore_AddAssignsUniqueIDs(t *testing.T) {
	ctx := context.Background()
	clock := newClock("2024-01-01 07:00:00")
	s := reminder.NewStore(storage.NewMemory(), reminder.WithClock(clock.Now))

	a, err := s.Add(ctx, "  Aspirin ", "08:00")
	require.NoError(t, err)
	b, err := s.Add(ctx, "Aspirin", "08:00")
	require.NoError(t, err)

	assert.Equal(t, clock.Now().UnixMilli(), a.ID)
	assert.Equal(t, a.ID+1, b.ID, "same millisecond bumps the id")
	assert.Equal(t, "Aspirin", a.Medicine)
	assert.False(t, a.Taken)
	assert.Nil(t, a.LastNotifiedDate)
}

func TestStore_MarkTaken(t *testing.T) {
	ctx := context.Background()
	clock := newClock("2024-03-05 07:00:00")
	s := reminder.NewStore(storage.NewMemory(), reminder.WithClock(clock.Now))

	r, err := s.Add(ctx, "Aspirin", "08:00")
	require.NoError(t, err)
	before := s.List()

	found, err := s.MarkTaken(ctx, r.ID+100)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, before, s.List(), "unknown id leaves the list unchanged")

	found, err = s.MarkTaken(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, found)

	got := s.List()[0]
	assert.True(t, got.Taken)
	assert.Equal(t, strPtr("2024-03-05"), got.LastNotifiedDate)
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := reminder.NewStore(storage.NewMemory())

	a, err := s.Add(ctx, "Aspirin", "08:00")
	require.NoError(t, err)
	b, err := s.Add(ctx, "Zinc", "12:00")
	require.NoError(t, err)
	before := s.List()

	found, err := s.Delete(ctx, a.ID+b.ID)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, before, s.List())

	found, err = s.Delete(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, found)

	list := s.List()
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)
}

func TestStore_RendersAfterEverySave(t *testing.T) {
	ctx := context.Background()
	var renders [][]reminder.Reminder
	s := reminder.NewStore(storage.NewMemory(), reminder.WithRenderer(reminder.RenderFunc(func(list []reminder.Reminder) {
		renders = append(renders, list)
	})))

	r, err := s.Add(ctx, "Aspirin", "08:00")
	require.NoError(t, err)
	_, err = s.MarkTaken(ctx, r.ID)
	require.NoError(t, err)
	_, err = s.Delete(ctx, r.ID)
	require.NoError(t, err)

	require.Len(t, renders, 3)
	assert.Len(t, renders[0], 1)
	assert.True(t, renders[1][0].Taken)
	assert.Empty(t, renders[2])
}

func TestStore_SaveFailureStillRenders(t *testing.T) {
	ctx := context.Background()
	kv := newCountingKV()
	kv.fail = errors.New("disk full")

	rendered := 0
	s := reminder.NewStore(kv, reminder.WithRenderer(reminder.RenderFunc(func([]reminder.Reminder) {
		rendered++
	})))

	_, err := s.Add(ctx, "Aspirin", "08:00")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 1, rendered)
	assert.Len(t, s.List(), 1, "memory stays the source of truth")
}

func TestStore_ListReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := reminder.NewStore(storage.NewMemory())
	_, err := s.Add(ctx, "Aspirin", "08:00")
	require.NoError(t, err)

	list := s.List()
	list[0].Medicine = "changed"
	assert.Equal(t, "Aspirin", s.List()[0].Medicine)
}
