package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Freeeeeet/booking_engine/internal/model"
	"github.com/Freeeeeet/booking_engine/internal/repository"
	"github.com/google/uuid"
)

// memStore хранилище в памяти. Транзакции выполняются по одной на копии
// состояния и применяются только при успехе.
type memStore struct {
	mu   sync.Mutex
	txMu sync.Mutex

	cfg      *model.ScheduleConfig
	blocks   map[uuid.UUID]*model.BlockedRange
	bookings map[uuid.UUID]*model.Booking
	locks    map[string]*model.SlotLock

	failNextCommit error
}

func newMemStore(cfg *model.ScheduleConfig) *memStore {
	return &memStore{
		cfg:      cfg,
		blocks:   make(map[uuid.UUID]*model.BlockedRange),
		bookings: make(map[uuid.UUID]*model.Booking),
		locks:    make(map[string]*model.SlotLock),
	}
}

// ScheduleConfigStore

func (s *memStore) Get(ctx context.Context) (*model.ScheduleConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg == nil {
		return nil, nil
	}
	cfg := *s.cfg
	cfg.WorkDays = append([]int(nil), s.cfg.WorkDays...)
	cfg.MeetingTypes = append([]model.MeetingType(nil), s.cfg.MeetingTypes...)
	return &cfg, nil
}

func (s *memStore) Upsert(ctx context.Context, cfg *model.ScheduleConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *cfg
	s.cfg = &stored
	return nil
}

// BlockedRangeStore

func (s *memStore) Create(ctx context.Context, block *model.BlockedRange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *block
	s.blocks[block.ID] = &stored
	return nil
}

func (s *memStore) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blocks[id]; !ok {
		return false, nil
	}
	delete(s.blocks, id)
	return true, nil
}

func (s *memStore) List(ctx context.Context, since time.Time) ([]*model.BlockedRange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.BlockedRange
	for _, b := range s.blocks {
		if b.EndAt.After(since) {
			c := *b
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	return out, nil
}

func (s *memStore) ListOverlapping(ctx context.Context, from, to time.Time) ([]*model.BlockedRange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.BlockedRange
	for _, b := range s.blocks {
		if b.Overlaps(from, to) {
			c := *b
			out = append(out, &c)
		}
	}
	return out, nil
}

// BookingStore

func (s *memStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, nil
	}
	c := *b
	return &c, nil
}

func (s *memStore) ListConfirmedBetween(ctx context.Context, from, to time.Time) ([]*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Booking
	for _, b := range s.bookings {
		if b.IsConfirmed() && b.Overlaps(from, to) {
			c := *b
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *memStore) ListBetween(ctx context.Context, from, to time.Time) ([]*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Booking
	for _, b := range s.bookings {
		if !b.StartAt.Before(from) && b.StartAt.Before(to) {
			c := *b
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	return out, nil
}

func (s *memStore) SetIntegration(ctx context.Context, id uuid.UUID, integration model.IntegrationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.bookings[id]; ok {
		b.Integration = integration
	}
	return nil
}

// SlotLockPruner

func (s *memStore) DeleteEndedBefore(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, l := range s.locks {
		if !l.EndAt.After(before) {
			delete(s.locks, id)
			n++
		}
	}
	return n, nil
}

// Transactor

func (s *memStore) Serializable(ctx context.Context, fn func(tx repository.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	tx := &memTx{
		bookings: make(map[uuid.UUID]*model.Booking, len(s.bookings)),
		locks:    make(map[string]*model.SlotLock, len(s.locks)),
	}
	for id, b := range s.bookings {
		c := *b
		tx.bookings[id] = &c
	}
	for id, l := range s.locks {
		c := *l
		tx.locks[id] = &c
	}
	s.mu.Unlock()

	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failNextCommit; err != nil {
		s.failNextCommit = nil
		return err
	}
	s.bookings = tx.bookings
	s.locks = tx.locks
	return nil
}

func (s *memStore) lockIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.locks))
	for id := range s.locks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *memStore) bookingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bookings)
}

type memTx struct {
	bookings map[uuid.UUID]*model.Booking
	locks    map[string]*model.SlotLock
}

func (t *memTx) GetActiveSlotLocks(ctx context.Context, ids []string) ([]*model.SlotLock, error) {
	var out []*model.SlotLock
	for _, id := range ids {
		if l, ok := t.locks[id]; ok && l.Status == model.LockStatusActive {
			out = append(out, l)
		}
	}
	return out, nil
}

func (t *memTx) CreateSlotLocks(ctx context.Context, locks []*model.SlotLock) error {
	for _, l := range locks {
		if _, ok := t.locks[l.ID]; ok {
			return repository.ErrLockExists
		}
		t.locks[l.ID] = l
	}
	return nil
}

func (t *memTx) DeleteSlotLocksByBooking(ctx context.Context, bookingID uuid.UUID) (int64, error) {
	var n int64
	for id, l := range t.locks {
		if l.BookingID == bookingID {
			delete(t.locks, id)
			n++
		}
	}
	return n, nil
}

func (t *memTx) FindOverlappingBooking(ctx context.Context, start, end time.Time) (*model.Booking, error) {
	for _, b := range t.bookings {
		if b.IsConfirmed() && b.Overlaps(start, end) {
			return b, nil
		}
	}
	return nil, nil
}

func (t *memTx) CreateBooking(ctx context.Context, booking *model.Booking) error {
	if _, ok := t.bookings[booking.ID]; ok {
		return errors.New("duplicate booking id")
	}
	c := *booking
	t.bookings[booking.ID] = &c
	return nil
}

func (t *memTx) GetBookingForUpdate(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	b, ok := t.bookings[id]
	if !ok {
		return nil, nil
	}
	c := *b
	return &c, nil
}

func (t *memTx) UpdateBookingStatus(ctx context.Context, id uuid.UUID, status model.BookingStatus) error {
	b, ok := t.bookings[id]
	if !ok {
		return errors.New("booking disappeared")
	}
	b.Status = status
	return nil
}

// gatedTransactor пропускает транзакции только когда их набралось parties штук
type gatedTransactor struct {
	repository.Transactor
	gate sync.WaitGroup
}

func newGatedTransactor(inner repository.Transactor, parties int) *gatedTransactor {
	g := &gatedTransactor{Transactor: inner}
	g.gate.Add(parties)
	return g
}

func (g *gatedTransactor) Serializable(ctx context.Context, fn func(tx repository.Tx) error) error {
	g.gate.Done()
	g.gate.Wait()
	return g.Transactor.Serializable(ctx, fn)
}

// fakeNotifier запоминает уведомления и может вернуть ошибку
type fakeNotifier struct {
	mu    sync.Mutex
	calls []uuid.UUID
	err   error
}

func (n *fakeNotifier) BookingCreated(ctx context.Context, booking *model.Booking, meetingType model.MeetingType) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, booking.ID)
	return n.err
}
