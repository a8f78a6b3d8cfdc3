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

type BlockedRangeRepository struct {
	*base.Repository
}

func NewBlockedRangeRepository(db base.DBTX) *BlockedRangeRepository {
	return &BlockedRangeRepository{Repository: base.NewRepository(db)}
}

// Create создаёт закрытый интервал
func (r *BlockedRangeRepository) Create(ctx context.Context, block *model.BlockedRange) error {
	query := `
		INSERT INTO blocked_ranges (id, start_at, end_at, reason)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`

	err := r.QueryRow(ctx, query, block.ID, block.StartAt, block.EndAt, block.Reason).Scan(&block.CreatedAt)
	if err != nil {
		return fmt.Errorf("create blocked range: %w", err)
	}

	return nil
}

// Delete удаляет закрытый интервал. Возвращает false, если такого не было.
func (r *BlockedRangeRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	affected, err := r.ExecAffected(ctx, `DELETE FROM blocked_ranges WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete blocked range: %w", err)
	}
	return affected > 0, nil
}

// List получает все закрытые интервалы, которые ещё не закончились
func (r *BlockedRangeRepository) List(ctx context.Context, since time.Time) ([]*model.BlockedRange, error) {
	query := `
		SELECT id, start_at, end_at, reason, created_at
		FROM blocked_ranges
		WHERE end_at > $1
		ORDER BY start_at
	`

	rows, err := r.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("list blocked ranges: %w", err)
	}

	return collectBlockedRanges(rows)
}

// ListOverlapping получает интервалы, пересекающие [from, to)
func (r *BlockedRangeRepository) ListOverlapping(ctx context.Context, from, to time.Time) ([]*model.BlockedRange, error) {
	query := `
		SELECT id, start_at, end_at, reason, created_at
		FROM blocked_ranges
		WHERE start_at < $2 AND end_at > $1
		ORDER BY start_at
	`

	rows, err := r.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("list overlapping blocked ranges: %w", err)
	}

	return collectBlockedRanges(rows)
}

func collectBlockedRanges(rows pgx.Rows) ([]*model.BlockedRange, error) {
	defer rows.Close()

	var blocks []*model.BlockedRange
	for rows.Next() {
		var block model.BlockedRange
		if err := rows.Scan(&block.ID, &block.StartAt, &block.EndAt, &block.Reason, &block.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan blocked range: %w", err)
		}
		blocks = append(blocks, &block)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blocked ranges: %w", err)
	}

	return blocks, nil
}
