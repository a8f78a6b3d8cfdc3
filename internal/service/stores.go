package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/booking_engine/internal/model"
	"github.com/google/uuid"
)

// ScheduleConfigStore хранилище настроек расписания
type ScheduleConfigStore interface {
	Get(ctx context.Context) (*model.ScheduleConfig, error)
	Upsert(ctx context.Context, cfg *model.ScheduleConfig) error
}

// BlockedRangeStore хранилище закрытых интервалов
type BlockedRangeStore interface {
	Create(ctx context.Context, block *model.BlockedRange) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	List(ctx context.Context, since time.Time) ([]*model.BlockedRange, error)
	ListOverlapping(ctx context.Context, from, to time.Time) ([]*model.BlockedRange, error)
}

// BookingStore чтение броней вне транзакции протокола
type BookingStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	ListConfirmedBetween(ctx context.Context, from, to time.Time) ([]*model.Booking, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]*model.Booking, error)
	SetIntegration(ctx context.Context, id uuid.UUID, integration model.IntegrationStatus) error
}

// SlotLockPruner удаление блокировок прошедших встреч
type SlotLockPruner interface {
	DeleteEndedBefore(ctx context.Context, before time.Time) (int64, error)
}
