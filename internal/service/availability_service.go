package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/booking_engine/internal/availability"
	"github.com/Freeeeeet/booking_engine/internal/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// AvailabilityView ответ на запрос доступности
type AvailabilityView struct {
	Enabled      bool                `json:"enabled"`
	Timezone     string              `json:"timezone"`
	MeetingTypes []model.MeetingType `json:"meetingTypes"`
	Days         []availability.Day  `json:"days"`
}

// AvailabilityService загружает входные данные и вызывает движок доступности
type AvailabilityService struct {
	configs  ScheduleConfigStore
	blocked  BlockedRangeStore
	bookings BookingStore
	now      func() time.Time
	logger   *zap.Logger
}

func NewAvailabilityService(
	configs ScheduleConfigStore,
	blocked BlockedRangeStore,
	bookings BookingStore,
	logger *zap.Logger,
) *AvailabilityService {
	return &AvailabilityService{
		configs:  configs,
		blocked:  blocked,
		bookings: bookings,
		now:      time.Now,
		logger:   logger,
	}
}

// LoadConfig получает настройки расписания с применёнными значениями по умолчанию
func (s *AvailabilityService) LoadConfig(ctx context.Context) (model.ScheduleConfig, error) {
	stored, err := s.configs.Get(ctx)
	if err != nil {
		return model.ScheduleConfig{}, fmt.Errorf("load schedule config: %w", err)
	}

	if stored == nil {
		return model.DefaultScheduleConfig(), nil
	}

	cfg := *stored
	cfg.ApplyDefaults()
	return cfg, nil
}

// GetAvailability доступные слоты на весь горизонт записи
func (s *AvailabilityService) GetAvailability(ctx context.Context) (*AvailabilityView, error) {
	cfg, err := s.LoadConfig(ctx)
	if err != nil {
		return nil, err
	}

	days, err := s.compute(ctx, cfg, s.now())
	if err != nil {
		return nil, err
	}

	return &AvailabilityView{
		Enabled:      cfg.Enabled,
		Timezone:     cfg.Timezone,
		MeetingTypes: cfg.MeetingTypes,
		Days:         days,
	}, nil
}

// IsOfferable пересчитывает доступность и проверяет, что startAt всё ещё предлагается
func (s *AvailabilityService) IsOfferable(ctx context.Context, cfg model.ScheduleConfig, startAt time.Time) (bool, error) {
	days, err := s.compute(ctx, cfg, s.now())
	if err != nil {
		return false, err
	}
	return availability.Contains(days, startAt), nil
}

func (s *AvailabilityService) compute(ctx context.Context, cfg model.ScheduleConfig, now time.Time) ([]availability.Day, error) {
	if !cfg.Enabled {
		return []availability.Day{}, nil
	}

	// С запасом в сутки: последний день горизонта в зоне владельца
	// может заканчиваться позже now + MaxDaysAhead.
	from := now
	to := now.AddDate(0, 0, cfg.MaxDaysAhead+2)

	var (
		blocked  []*model.BlockedRange
		bookings []*model.Booking
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		blocked, err = s.blocked.ListOverlapping(gctx, from, to)
		if err != nil {
			return fmt.Errorf("load blocked ranges: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		bookings, err = s.bookings.ListConfirmedBetween(gctx, from, to)
		if err != nil {
			return fmt.Errorf("load confirmed bookings: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	in := availability.Input{
		Config:      cfg,
		Blocked:     make([]model.BlockedRange, 0, len(blocked)),
		Bookings:    make([]model.Booking, 0, len(bookings)),
		Now:         now,
		HorizonDays: cfg.MaxDaysAhead,
	}
	for _, b := range blocked {
		in.Blocked = append(in.Blocked, *b)
	}
	for _, b := range bookings {
		in.Bookings = append(in.Bookings, *b)
	}

	return availability.Compute(in), nil
}
