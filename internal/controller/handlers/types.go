package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Freeeeeet/booking_engine/internal/model"
	"github.com/Freeeeeet/booking_engine/internal/service"
)

// BookingManager операции над бронями, доступные владельцу из бота
type BookingManager interface {
	ListBookings(ctx context.Context, from, to time.Time) ([]*model.Booking, error)
	CancelBooking(ctx context.Context, id uuid.UUID) (*model.Booking, error)
}

// ScheduleManager настройки расписания и закрытые интервалы
type ScheduleManager interface {
	GetScheduleConfig(ctx context.Context) (model.ScheduleConfig, error)
	UpdateScheduleConfig(ctx context.Context, cfg model.ScheduleConfig) (*model.ScheduleConfig, error)
	ListBlockedRanges(ctx context.Context) ([]*model.BlockedRange, error)
}

// AvailabilityReader свободные слоты для картинки недели
type AvailabilityReader interface {
	GetAvailability(ctx context.Context) (*service.AvailabilityView, error)
}

var (
	_ BookingManager     = (*service.BookingService)(nil)
	_ ScheduleManager    = (*service.AdminService)(nil)
	_ AvailabilityReader = (*service.AvailabilityService)(nil)
)

// upcomingWindow на сколько вперёд /bookings показывает записи
const upcomingWindow = 14 * 24 * time.Hour

// Handlers содержит все зависимости для обработки команд владельца
type Handlers struct {
	bookings     BookingManager
	schedule     ScheduleManager
	availability AvailabilityReader
	ownerChatID  int64
	now          func() time.Time
	logger       *zap.Logger
}

// NewHandlers создаёт новый обработчик команд
func NewHandlers(
	bookings BookingManager,
	schedule ScheduleManager,
	availability AvailabilityReader,
	ownerChatID int64,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		bookings:     bookings,
		schedule:     schedule,
		availability: availability,
		ownerChatID:  ownerChatID,
		now:          time.Now,
		logger:       logger,
	}
}

// location зона владельца из текущих настроек; UTC если зона не читается
func (h *Handlers) location(ctx context.Context) *time.Location {
	cfg, err := h.schedule.GetScheduleConfig(ctx)
	if err != nil {
		h.logger.Warn("Failed to load schedule config for formatting", zap.Error(err))
		return time.UTC
	}
	return zoneOf(cfg)
}

func zoneOf(cfg model.ScheduleConfig) *time.Location {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
