package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type LockStatus string

const LockStatusActive LockStatus = "active"

// SlotLock резерв одного базового слота, покрытого бронью
type SlotLock struct {
	ID          string     `json:"id"`
	BookingID   uuid.UUID  `json:"bookingId"`
	SlotStartAt time.Time  `json:"slotStartAt"`
	StartAt     time.Time  `json:"startAt"` // границы всей брони
	EndAt       time.Time  `json:"endAt"`
	Status      LockStatus `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
}

const lockKeyLayout = "2006-01-02T15:04:05.000Z"

// SlotLockID детерминированный ключ блокировки для начала слота.
// Один и тот же момент времени всегда даёт один и тот же ключ.
func SlotLockID(slotStart time.Time) string {
	key := slotStart.UTC().Format(lockKeyLayout)
	return strings.NewReplacer(":", "-", ".", "-").Replace(key)
}

// CoveredSlotStarts возвращает начала базовых слотов, которые покрывает [start, end)
func CoveredSlotStarts(start, end time.Time, step time.Duration) []time.Time {
	if step <= 0 || !end.After(start) {
		return nil
	}
	var starts []time.Time
	for t := start; t.Before(end); t = t.Add(step) {
		starts = append(starts, t.UTC())
	}
	return starts
}

// NewSlotLocks строит активные блокировки для всех слотов брони
func NewSlotLocks(booking *Booking, step time.Duration) []*SlotLock {
	starts := CoveredSlotStarts(booking.StartAt, booking.EndAt, step)
	locks := make([]*SlotLock, 0, len(starts))
	for _, s := range starts {
		locks = append(locks, &SlotLock{
			ID:          SlotLockID(s),
			BookingID:   booking.ID,
			SlotStartAt: s,
			StartAt:     booking.StartAt,
			EndAt:       booking.EndAt,
			Status:      LockStatusActive,
		})
	}
	return locks
}

// SlotLockIDs ключи для набора начал слотов
func SlotLockIDs(starts []time.Time) []string {
	ids := make([]string, 0, len(starts))
	for _, s := range starts {
		ids = append(ids, SlotLockID(s))
	}
	return ids
}
