package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/booking_engine/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BlockedRangeRequest заявка владельца на закрытие интервала
type BlockedRangeRequest struct {
	StartAt time.Time `json:"startAt" validate:"required"`
	EndAt   time.Time `json:"endAt" validate:"required,gtfield=StartAt"`
	Reason  string    `json:"reason" validate:"max=500"`
}

// AdminService операции владельца над настройками и закрытыми интервалами
type AdminService struct {
	availability *AvailabilityService
	configs      ScheduleConfigStore
	blocked      BlockedRangeStore
	logger       *zap.Logger
}

func NewAdminService(
	availability *AvailabilityService,
	configs ScheduleConfigStore,
	blocked BlockedRangeStore,
	logger *zap.Logger,
) *AdminService {
	return &AdminService{
		availability: availability,
		configs:      configs,
		blocked:      blocked,
		logger:       logger,
	}
}

// GetScheduleConfig текущие настройки с применёнными значениями по умолчанию
func (s *AdminService) GetScheduleConfig(ctx context.Context) (model.ScheduleConfig, error) {
	return s.availability.LoadConfig(ctx)
}

// UpdateScheduleConfig проверяет и сохраняет настройки
func (s *AdminService) UpdateScheduleConfig(ctx context.Context, cfg model.ScheduleConfig) (*model.ScheduleConfig, error) {
	cfg.Timezone = strings.TrimSpace(cfg.Timezone)
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, invalidInput(err.Error())
	}

	if err := s.configs.Upsert(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("save schedule config: %w", err)
	}

	s.logger.Info("Schedule config updated",
		zap.Bool("enabled", cfg.Enabled),
		zap.String("timezone", cfg.Timezone),
		zap.Int("slot_duration", cfg.SlotDurationMinutes),
		zap.Int("meeting_types", len(cfg.MeetingTypes)),
	)

	return &cfg, nil
}

// ListBlockedRanges закрытые интервалы, которые ещё не закончились
func (s *AdminService) ListBlockedRanges(ctx context.Context) ([]*model.BlockedRange, error) {
	return s.blocked.List(ctx, s.availability.now())
}

// CreateBlockedRange закрывает интервал [StartAt, EndAt)
func (s *AdminService) CreateBlockedRange(ctx context.Context, req BlockedRangeRequest) (*model.BlockedRange, error) {
	req.Reason = strings.TrimSpace(req.Reason)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	block := &model.BlockedRange{
		ID:      uuid.New(),
		StartAt: req.StartAt.UTC(),
		EndAt:   req.EndAt.UTC(),
		Reason:  req.Reason,
	}

	if err := s.blocked.Create(ctx, block); err != nil {
		return nil, err
	}

	s.logger.Info("Blocked range created",
		zap.String("blocked_range_id", block.ID.String()),
		zap.Time("start_at", block.StartAt),
		zap.Time("end_at", block.EndAt),
	)

	return block, nil
}

// DeleteBlockedRange открывает интервал обратно
func (s *AdminService) DeleteBlockedRange(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.blocked.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrBlockedRangeNotFound
	}

	s.logger.Info("Blocked range deleted", zap.String("blocked_range_id", id.String()))
	return nil
}
