package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/booking_engine/internal/model"
	"github.com/Freeeeeet/booking_engine/internal/repository/base"
)

// ScheduleConfigRepository хранит единственную строку настроек расписания
type ScheduleConfigRepository struct {
	*base.Repository
}

func NewScheduleConfigRepository(db base.DBTX) *ScheduleConfigRepository {
	return &ScheduleConfigRepository{Repository: base.NewRepository(db)}
}

// Get получает настройки. nil, если владелец ещё ничего не сохранял.
func (r *ScheduleConfigRepository) Get(ctx context.Context) (*model.ScheduleConfig, error) {
	query := `
		SELECT enabled, timezone, slot_duration_minutes, max_days_ahead, work_days,
		       day_start_minute, day_end_minute, meeting_types, updated_at
		FROM schedule_config
		WHERE id = 1
	`

	var (
		cfg      model.ScheduleConfig
		workDays []int32
	)
	err := r.QueryRow(ctx, query).Scan(
		&cfg.Enabled,
		&cfg.Timezone,
		&cfg.SlotDurationMinutes,
		&cfg.MaxDaysAhead,
		&workDays,
		&cfg.DayStartMinute,
		&cfg.DayEndMinute,
		&cfg.MeetingTypes,
		&cfg.UpdatedAt,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get schedule config: %w", err)
	}

	cfg.WorkDays = make([]int, 0, len(workDays))
	for _, d := range workDays {
		cfg.WorkDays = append(cfg.WorkDays, int(d))
	}

	return &cfg, nil
}

// Upsert сохраняет настройки
func (r *ScheduleConfigRepository) Upsert(ctx context.Context, cfg *model.ScheduleConfig) error {
	query := `
		INSERT INTO schedule_config (id, enabled, timezone, slot_duration_minutes, max_days_ahead,
			work_days, day_start_minute, day_end_minute, meeting_types, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (id) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			timezone = EXCLUDED.timezone,
			slot_duration_minutes = EXCLUDED.slot_duration_minutes,
			max_days_ahead = EXCLUDED.max_days_ahead,
			work_days = EXCLUDED.work_days,
			day_start_minute = EXCLUDED.day_start_minute,
			day_end_minute = EXCLUDED.day_end_minute,
			meeting_types = EXCLUDED.meeting_types,
			updated_at = now()
		RETURNING updated_at
	`

	workDays := make([]int32, 0, len(cfg.WorkDays))
	for _, d := range cfg.WorkDays {
		workDays = append(workDays, int32(d))
	}

	err := r.QueryRow(
		ctx, query,
		cfg.Enabled,
		cfg.Timezone,
		cfg.SlotDurationMinutes,
		cfg.MaxDaysAhead,
		workDays,
		cfg.DayStartMinute,
		cfg.DayEndMinute,
		cfg.MeetingTypes,
	).Scan(&cfg.UpdatedAt)

	if err != nil {
		return fmt.Errorf("upsert schedule config: %w", err)
	}

	return nil
}
