package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/booking_engine/internal/model"
	"github.com/Freeeeeet/booking_engine/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const slotLocksPrimaryKey = "slot_locks_pkey"

type SlotLockRepository struct {
	*base.Repository
}

func NewSlotLockRepository(db base.DBTX) *SlotLockRepository {
	return &SlotLockRepository{Repository: base.NewRepository(db)}
}

// GetActiveByIDs получает активные блокировки по ключам слотов
func (r *SlotLockRepository) GetActiveByIDs(ctx context.Context, ids []string) ([]*model.SlotLock, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, booking_id, slot_start_at, start_at, end_at, status, created_at
		FROM slot_locks
		WHERE id = ANY($1) AND status = 'active'
		ORDER BY slot_start_at
	`

	rows, err := r.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("get active slot locks: %w", err)
	}
	defer rows.Close()

	var locks []*model.SlotLock
	for rows.Next() {
		var lock model.SlotLock
		err := rows.Scan(
			&lock.ID,
			&lock.BookingID,
			&lock.SlotStartAt,
			&lock.StartAt,
			&lock.EndAt,
			&lock.Status,
			&lock.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan slot lock: %w", err)
		}
		locks = append(locks, &lock)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slot locks: %w", err)
	}

	return locks, nil
}

// CreateMany создаёт блокировки одним батчем.
// Конфликт по первичному ключу возвращается как ErrLockExists.
func (r *SlotLockRepository) CreateMany(ctx context.Context, locks []*model.SlotLock) error {
	if len(locks) == 0 {
		return nil
	}

	query := `
		INSERT INTO slot_locks (id, booking_id, slot_start_at, start_at, end_at, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	batch := &pgx.Batch{}
	for _, lock := range locks {
		batch.Queue(query, lock.ID, lock.BookingID, lock.SlotStartAt, lock.StartAt, lock.EndAt, lock.Status)
	}

	results := r.DB().SendBatch(ctx, batch)
	defer results.Close()

	for _, lock := range locks {
		if _, err := results.Exec(); err != nil {
			if base.IsUniqueViolation(err, slotLocksPrimaryKey) {
				return fmt.Errorf("create slot lock %s: %w", lock.ID, ErrLockExists)
			}
			return fmt.Errorf("create slot lock %s: %w", lock.ID, err)
		}
	}

	return nil
}

// DeleteByBookingID освобождает все слоты брони
func (r *SlotLockRepository) DeleteByBookingID(ctx context.Context, bookingID uuid.UUID) (int64, error) {
	affected, err := r.ExecAffected(ctx, `DELETE FROM slot_locks WHERE booking_id = $1`, bookingID)
	if err != nil {
		return 0, fmt.Errorf("delete slot locks by booking: %w", err)
	}
	return affected, nil
}

// DeleteEndedBefore удаляет блокировки прошедших встреч
func (r *SlotLockRepository) DeleteEndedBefore(ctx context.Context, before time.Time) (int64, error) {
	affected, err := r.ExecAffected(ctx, `DELETE FROM slot_locks WHERE end_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("delete ended slot locks: %w", err)
	}
	return affected, nil
}
