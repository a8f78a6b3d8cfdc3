package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/Freeeeeet/booking_engine/internal/model"
	"github.com/Freeeeeet/booking_engine/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// понедельник, до начала рабочего дня
var testNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func testConfig() *model.ScheduleConfig {
	return &model.ScheduleConfig{
		Enabled:             true,
		Timezone:            "UTC",
		SlotDurationMinutes: 30,
		MaxDaysAhead:        14,
		WorkDays:            []int{1, 2, 3, 4, 5},
		DayStartMinute:      9 * 60,
		DayEndMinute:        17 * 60,
		MeetingTypes: []model.MeetingType{
			{ID: "intro", Label: "Intro call", DurationMinutes: 30},
			{ID: "deep", Label: "Deep dive", DurationMinutes: 45},
		},
	}
}

type fixture struct {
	store        *memStore
	notifier     *fakeNotifier
	availability *AvailabilityService
	bookings     *BookingService
	admin        *AdminService
}

func newFixture(t *testing.T, cfg *model.ScheduleConfig) *fixture {
	t.Helper()

	store := newMemStore(cfg)
	logger := zap.NewNop()
	avail := NewAvailabilityService(store, store, store, logger)
	avail.now = func() time.Time { return testNow }
	notifier := &fakeNotifier{}

	return &fixture{
		store:        store,
		notifier:     notifier,
		availability: avail,
		bookings:     NewBookingService(avail, store, store, notifier, logger),
		admin:        NewAdminService(avail, store, store, logger),
	}
}

func bookingRequest(meetingType, startAt string) BookingRequest {
	return BookingRequest{
		Name:          "Ada Lovelace",
		Email:         "  Ada@Example.COM ",
		Reason:        "intro",
		Timezone:      "Europe/Berlin",
		MeetingTypeID: meetingType,
		StartAt:       startAt,
	}
}

func (f *fixture) accept(t *testing.T, meetingType, startAt string) *BookingResult {
	t.Helper()
	res, err := f.bookings.AcceptBooking(context.Background(), bookingRequest(meetingType, startAt))
	require.NoError(t, err)
	return res
}

func TestAcceptBooking_Success(t *testing.T) {
	f := newFixture(t, testConfig())

	res := f.accept(t, "intro", "2026-03-02T10:00:00Z")

	assert.NotEqual(t, uuid.Nil, res.BookingID)
	assert.Equal(t, model.IntegrationOK, res.Integration)
	assert.Equal(t, []string{"2026-03-02T10-00-00-000Z"}, f.store.lockIDs())
	assert.Equal(t, []uuid.UUID{res.BookingID}, f.notifier.calls)

	stored, err := f.bookings.GetBooking(context.Background(), res.BookingID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusConfirmed, stored.Status)
	assert.Equal(t, "ada@example.com", stored.Email)
	assert.Equal(t, "Europe/Berlin", stored.ClientTimezone)
	assert.Equal(t, model.IntegrationOK, stored.Integration)
	assert.True(t, stored.EndAt.Equal(time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)))
}

func TestAcceptBooking_AcceptsOffsetInstant(t *testing.T) {
	f := newFixture(t, testConfig())

	res := f.accept(t, "intro", "2026-03-02T11:00:00+01:00")

	assert.Equal(t, []string{"2026-03-02T10-00-00-000Z"}, f.store.lockIDs())
	assert.True(t, res.Booking.StartAt.Equal(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)))
}

func TestAcceptBooking_MultiSlotMeetingTypeLocksEverySubSlot(t *testing.T) {
	f := newFixture(t, testConfig())

	res := f.accept(t, "deep", "2026-03-02T10:00:00Z")

	assert.Equal(t, []string{
		"2026-03-02T10-00-00-000Z",
		"2026-03-02T10-30-00-000Z",
	}, f.store.lockIDs())
	assert.True(t, res.Booking.EndAt.Equal(time.Date(2026, 3, 2, 10, 45, 0, 0, time.UTC)))
}

func TestAcceptBooking_Rejections(t *testing.T) {
	disabled := testConfig()
	disabled.Enabled = false

	tests := []struct {
		name     string
		cfg      *model.ScheduleConfig
		block    *model.BlockedRange
		req      BookingRequest
		wantErr  error
		category Category
	}{
		{
			name:     "disabled",
			cfg:      disabled,
			req:      bookingRequest("intro", "2026-03-02T10:00:00Z"),
			wantErr:  ErrBookingsDisabled,
			category: CategoryConfig,
		},
		{
			name:     "disabled wins over bad input",
			cfg:      disabled,
			req:      bookingRequest("nope", "garbage"),
			wantErr:  ErrBookingsDisabled,
			category: CategoryConfig,
		},
		{
			name:     "unknown meeting type",
			req:      bookingRequest("nope", "2026-03-02T10:00:00Z"),
			wantErr:  ErrInvalidMeetingType,
			category: CategoryInput,
		},
		{
			name:     "unparseable start",
			req:      bookingRequest("intro", "tomorrow at ten"),
			wantErr:  ErrInvalidStartTime,
			category: CategoryInput,
		},
		{
			name:     "empty start",
			req:      bookingRequest("intro", ""),
			wantErr:  ErrInvalidStartTime,
			category: CategoryInput,
		},
		{
			name: "missing name",
			req: func() BookingRequest {
				r := bookingRequest("intro", "2026-03-02T10:00:00Z")
				r.Name = "   "
				return r
			}(),
			wantErr:  &BookingError{Code: CodeInvalidInput},
			category: CategoryInput,
		},
		{
			name: "bad email",
			req: func() BookingRequest {
				r := bookingRequest("intro", "2026-03-02T10:00:00Z")
				r.Email = "not-an-email"
				return r
			}(),
			wantErr:  &BookingError{Code: CodeInvalidInput},
			category: CategoryInput,
		},
		{
			name: "bad client timezone",
			req: func() BookingRequest {
				r := bookingRequest("intro", "2026-03-02T10:00:00Z")
				r.Timezone = "Mars/Olympus_Mons"
				return r
			}(),
			wantErr:  &BookingError{Code: CodeInvalidInput},
			category: CategoryInput,
		},
		{
			name:     "off grid",
			req:      bookingRequest("intro", "2026-03-02T10:15:00Z"),
			wantErr:  ErrSlotNoLongerAvailable,
			category: CategoryConcurrency,
		},
		{
			name:     "weekend",
			req:      bookingRequest("intro", "2026-03-07T10:00:00Z"),
			wantErr:  ErrSlotNoLongerAvailable,
			category: CategoryConcurrency,
		},
		{
			name:     "in the past",
			req:      bookingRequest("intro", "2026-02-27T10:00:00Z"),
			wantErr:  ErrSlotNoLongerAvailable,
			category: CategoryConcurrency,
		},
		{
			name:     "beyond horizon",
			req:      bookingRequest("intro", "2026-03-20T10:00:00Z"),
			wantErr:  ErrSlotNoLongerAvailable,
			category: CategoryConcurrency,
		},
		{
			name: "blocked",
			block: &model.BlockedRange{
				ID:      uuid.New(),
				StartAt: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC),
				EndAt:   time.Date(2026, 3, 2, 13, 0, 0, 0, time.UTC),
			},
			req:      bookingRequest("intro", "2026-03-02T12:30:00Z"),
			wantErr:  ErrSlotNoLongerAvailable,
			category: CategoryConcurrency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			if cfg == nil {
				cfg = testConfig()
			}
			f := newFixture(t, cfg)
			if tt.block != nil {
				require.NoError(t, f.store.Create(context.Background(), tt.block))
			}

			res, err := f.bookings.AcceptBooking(context.Background(), tt.req)

			require.Error(t, err)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.wantErr)

			be, ok := AsBookingError(err)
			require.True(t, ok)
			assert.Equal(t, tt.category, be.Category())

			assert.Zero(t, f.store.bookingCount())
			assert.Empty(t, f.store.lockIDs())
			assert.Empty(t, f.notifier.calls)
		})
	}
}

func TestAcceptBooking_StaleListIsRejected(t *testing.T) {
	f := newFixture(t, testConfig())
	f.accept(t, "intro", "2026-03-02T10:00:00Z")

	_, err := f.bookings.AcceptBooking(context.Background(), bookingRequest("intro", "2026-03-02T10:00:00Z"))

	assert.ErrorIs(t, err, ErrSlotNoLongerAvailable)
	assert.Equal(t, 1, f.store.bookingCount())
}

func TestReserve_CoveredSubSlotConflicts(t *testing.T) {
	f := newFixture(t, testConfig())
	f.accept(t, "deep", "2026-03-02T10:00:00Z")

	for _, mt := range []time.Duration{30 * time.Minute, 45 * time.Minute} {
		t.Run(fmt.Sprintf("duration %s", mt), func(t *testing.T) {
			start := time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)
			candidate := &model.Booking{
				ID:      uuid.New(),
				StartAt: start,
				EndAt:   start.Add(mt),
				Status:  model.BookingStatusConfirmed,
			}

			err := f.store.Serializable(context.Background(), func(tx repository.Tx) error {
				return reserve(context.Background(), tx, 30*time.Minute, candidate)
			})

			assert.ErrorIs(t, err, ErrSlotLockConflict)
			assert.Len(t, f.store.lockIDs(), 2)
			assert.Equal(t, 1, f.store.bookingCount())
		})
	}
}

func TestReserve_OverlapWithoutLocks(t *testing.T) {
	f := newFixture(t, testConfig())

	// подтверждённая бронь, у которой блокировки уже удалены
	existing := &model.Booking{
		ID:      uuid.New(),
		StartAt: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		EndAt:   time.Date(2026, 3, 2, 10, 45, 0, 0, time.UTC),
		Status:  model.BookingStatusConfirmed,
	}
	f.store.bookings[existing.ID] = existing

	start := time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)
	candidate := &model.Booking{
		ID:      uuid.New(),
		StartAt: start,
		EndAt:   start.Add(30 * time.Minute),
		Status:  model.BookingStatusConfirmed,
	}

	err := f.store.Serializable(context.Background(), func(tx repository.Tx) error {
		return reserve(context.Background(), tx, 30*time.Minute, candidate)
	})

	assert.ErrorIs(t, err, ErrBookingOverlap)
	assert.True(t, IsConcurrencyConflict(err))
	assert.Empty(t, f.store.lockIDs())
}

func TestAcceptBooking_ConcurrentRequestsExactlyOneWins(t *testing.T) {
	tests := []struct {
		name     string
		requests []BookingRequest
	}{
		{
			name: "same slot",
			requests: []BookingRequest{
				bookingRequest("intro", "2026-03-03T09:00:00Z"),
				bookingRequest("intro", "2026-03-03T09:00:00Z"),
				bookingRequest("intro", "2026-03-03T09:00:00Z"),
				bookingRequest("intro", "2026-03-03T09:00:00Z"),
				bookingRequest("intro", "2026-03-03T09:00:00Z"),
			},
		},
		{
			name: "overlapping ranges",
			requests: []BookingRequest{
				bookingRequest("deep", "2026-03-03T09:00:00Z"),
				bookingRequest("intro", "2026-03-03T09:30:00Z"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, testConfig())
			// все заявки проходят предварительную проверку до первого коммита
			f.bookings.tx = newGatedTransactor(f.store, len(tt.requests))

			var (
				wg       sync.WaitGroup
				mu       sync.Mutex
				wins     int
				failures []error
			)
			for _, req := range tt.requests {
				wg.Add(1)
				go func(req BookingRequest) {
					defer wg.Done()
					_, err := f.bookings.AcceptBooking(context.Background(), req)
					mu.Lock()
					defer mu.Unlock()
					if err == nil {
						wins++
						return
					}
					failures = append(failures, err)
				}(req)
			}
			wg.Wait()

			assert.Equal(t, 1, wins)
			require.Len(t, failures, len(tt.requests)-1)
			for _, err := range failures {
				assert.True(t, IsConcurrencyConflict(err), "unexpected error: %v", err)
			}
			assert.Equal(t, 1, f.store.bookingCount())
		})
	}
}

func TestAcceptBooking_NotificationFailureDegrades(t *testing.T) {
	f := newFixture(t, testConfig())
	f.notifier.err = errors.New("telegram is down")

	res := f.accept(t, "intro", "2026-03-02T10:00:00Z")

	assert.Equal(t, model.IntegrationDegraded, res.Integration)

	stored, err := f.bookings.GetBooking(context.Background(), res.BookingID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusConfirmed, stored.Status)
	assert.Equal(t, model.IntegrationDegraded, stored.Integration)
	assert.Len(t, f.store.lockIDs(), 1)
}

func TestAcceptBooking_StoreFailures(t *testing.T) {
	tests := []struct {
		name         string
		commitErr    error
		wantConflict bool
	}{
		{name: "lock already exists", commitErr: fmt.Errorf("insert slot lock: %w", repository.ErrLockExists), wantConflict: true},
		{name: "serialization retries exhausted", commitErr: fmt.Errorf("%w: 40001", repository.ErrSerialization), wantConflict: true},
		{name: "connection lost", commitErr: errors.New("conn closed")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, testConfig())
			f.store.failNextCommit = tt.commitErr

			_, err := f.bookings.AcceptBooking(context.Background(), bookingRequest("intro", "2026-03-02T10:00:00Z"))

			require.Error(t, err)
			assert.Equal(t, tt.wantConflict, errors.Is(err, ErrSlotLockConflict))
			if !tt.wantConflict {
				_, ok := AsBookingError(err)
				assert.False(t, ok)
			}
			assert.Zero(t, f.store.bookingCount())
			assert.Empty(t, f.notifier.calls)
		})
	}
}

func TestCancelBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("frees exactly the covered locks", func(t *testing.T) {
		f := newFixture(t, testConfig())
		other := f.accept(t, "intro", "2026-03-02T14:00:00Z")
		res := f.accept(t, "deep", "2026-03-02T10:00:00Z")
		require.Len(t, f.store.lockIDs(), 3)

		cancelled, err := f.bookings.CancelBooking(ctx, res.BookingID)
		require.NoError(t, err)

		assert.Equal(t, model.BookingStatusCancelled, cancelled.Status)
		assert.Equal(t, []string{"2026-03-02T14-00-00-000Z"}, f.store.lockIDs())

		stillThere, err := f.bookings.GetBooking(ctx, other.BookingID)
		require.NoError(t, err)
		assert.True(t, stillThere.IsConfirmed())

		// слот снова можно занять
		f.accept(t, "intro", "2026-03-02T10:30:00Z")
	})

	t.Run("twice", func(t *testing.T) {
		f := newFixture(t, testConfig())
		res := f.accept(t, "intro", "2026-03-02T10:00:00Z")
		_, err := f.bookings.CancelBooking(ctx, res.BookingID)
		require.NoError(t, err)

		_, err = f.bookings.CancelBooking(ctx, res.BookingID)
		assert.ErrorIs(t, err, ErrInvalidStatusTransition)
	})

	t.Run("unknown booking", func(t *testing.T) {
		f := newFixture(t, testConfig())

		_, err := f.bookings.CancelBooking(ctx, uuid.New())

		assert.ErrorIs(t, err, ErrBookingNotFound)
		assert.Equal(t, CategoryNotFound, CategoryOf(CodeBookingNotFound))
	})
}

func TestSetBookingStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testConfig())
	res := f.accept(t, "deep", "2026-03-02T10:00:00Z")

	_, err := f.bookings.SetBookingStatus(ctx, res.BookingID, model.BookingStatusConfirmed)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	_, err = f.bookings.SetBookingStatus(ctx, res.BookingID, "archived")
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	updated, err := f.bookings.SetBookingStatus(ctx, res.BookingID, model.BookingStatusRescheduled)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusRescheduled, updated.Status)
	assert.Empty(t, f.store.lockIDs())
}

func TestRescheduleBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("moves locks to the new time", func(t *testing.T) {
		f := newFixture(t, testConfig())
		res := f.accept(t, "intro", "2026-03-02T10:00:00Z")

		moved, err := f.bookings.RescheduleBooking(ctx, res.BookingID, "2026-03-04T14:00:00Z", "")
		require.NoError(t, err)

		assert.NotEqual(t, res.BookingID, moved.ID)
		require.NotNil(t, moved.RescheduledFrom)
		assert.Equal(t, res.BookingID, *moved.RescheduledFrom)
		assert.Equal(t, "intro", moved.MeetingTypeID)
		assert.Equal(t, "ada@example.com", moved.Email)
		assert.Equal(t, []string{"2026-03-04T14-00-00-000Z"}, f.store.lockIDs())

		old, err := f.bookings.GetBooking(ctx, res.BookingID)
		require.NoError(t, err)
		assert.Equal(t, model.BookingStatusRescheduled, old.Status)
	})

	t.Run("changes meeting type", func(t *testing.T) {
		f := newFixture(t, testConfig())
		res := f.accept(t, "intro", "2026-03-02T10:00:00Z")

		moved, err := f.bookings.RescheduleBooking(ctx, res.BookingID, "2026-03-02T10:00:00Z", "deep")
		require.NoError(t, err)

		assert.Equal(t, "deep", moved.MeetingTypeID)
		assert.Equal(t, []string{
			"2026-03-02T10-00-00-000Z",
			"2026-03-02T10-30-00-000Z",
		}, f.store.lockIDs())
	})

	t.Run("conflict keeps the original booking", func(t *testing.T) {
		f := newFixture(t, testConfig())
		first := f.accept(t, "intro", "2026-03-02T10:00:00Z")
		f.accept(t, "intro", "2026-03-02T14:00:00Z")

		_, err := f.bookings.RescheduleBooking(ctx, first.BookingID, "2026-03-02T14:00:00Z", "")
		assert.ErrorIs(t, err, ErrSlotLockConflict)

		old, err := f.bookings.GetBooking(ctx, first.BookingID)
		require.NoError(t, err)
		assert.True(t, old.IsConfirmed())
		assert.Equal(t, []string{
			"2026-03-02T10-00-00-000Z",
			"2026-03-02T14-00-00-000Z",
		}, f.store.lockIDs())
		assert.Equal(t, 2, f.store.bookingCount())
	})

	t.Run("owner may pick a time outside the listing", func(t *testing.T) {
		f := newFixture(t, testConfig())
		res := f.accept(t, "intro", "2026-03-02T10:00:00Z")

		moved, err := f.bookings.RescheduleBooking(ctx, res.BookingID, "2026-03-07T18:00:00Z", "")
		require.NoError(t, err)
		assert.Equal(t, []string{model.SlotLockID(moved.StartAt)}, f.store.lockIDs())
	})

	t.Run("input errors", func(t *testing.T) {
		f := newFixture(t, testConfig())
		res := f.accept(t, "intro", "2026-03-02T10:00:00Z")

		_, err := f.bookings.RescheduleBooking(ctx, res.BookingID, "soon", "")
		assert.ErrorIs(t, err, ErrInvalidStartTime)

		_, err = f.bookings.RescheduleBooking(ctx, res.BookingID, "2026-03-04T14:00:00Z", "nope")
		assert.ErrorIs(t, err, ErrInvalidMeetingType)

		_, err = f.bookings.RescheduleBooking(ctx, uuid.New(), "2026-03-04T14:00:00Z", "")
		assert.ErrorIs(t, err, ErrBookingNotFound)
	})
}

func TestListBookings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testConfig())
	f.accept(t, "intro", "2026-03-03T10:00:00Z")
	f.accept(t, "intro", "2026-03-02T10:00:00Z")
	f.accept(t, "intro", "2026-03-10T10:00:00Z")

	from := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	list, err := f.bookings.ListBookings(ctx, from, from.AddDate(0, 0, 7))
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].StartAt.Before(list[1].StartAt))

	_, err = f.bookings.ListBookings(ctx, from, from)
	assert.ErrorIs(t, err, &BookingError{Code: CodeInvalidInput})
}
