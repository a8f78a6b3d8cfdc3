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

const bookingColumns = `id, meeting_type_id, start_at, end_at, status, name, email, reason,
	client_timezone, integration, rescheduled_from, created_at, updated_at`

type BookingRepository struct {
	*base.Repository
}

func NewBookingRepository(db base.DBTX) *BookingRepository {
	return &BookingRepository{Repository: base.NewRepository(db)}
}

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var booking model.Booking
	err := row.Scan(
		&booking.ID,
		&booking.MeetingTypeID,
		&booking.StartAt,
		&booking.EndAt,
		&booking.Status,
		&booking.Name,
		&booking.Email,
		&booking.Reason,
		&booking.ClientTimezone,
		&booking.Integration,
		&booking.RescheduledFrom,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *BookingRepository) collect(rows pgx.Rows) ([]*model.Booking, error) {
	defer rows.Close()

	var bookings []*model.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookings: %w", err)
	}

	return bookings, nil
}

// Create создаёт новое бронирование
func (r *BookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	query := `
		INSERT INTO bookings (id, meeting_type_id, start_at, end_at, status, name, email, reason,
			client_timezone, integration, rescheduled_from)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		booking.ID,
		booking.MeetingTypeID,
		booking.StartAt,
		booking.EndAt,
		booking.Status,
		booking.Name,
		booking.Email,
		booking.Reason,
		booking.ClientTimezone,
		booking.Integration,
		booking.RescheduledFrom,
	).Scan(&booking.CreatedAt, &booking.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create booking: %w", err)
	}

	return nil
}

// GetByID получает бронирование по ID
func (r *BookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking by id: %w", err)
	}

	return booking, nil
}

// GetByIDForUpdate получает бронирование и блокирует строку до конца транзакции
func (r *BookingRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`

	booking, err := scanBooking(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking for update: %w", err)
	}

	return booking, nil
}

// FindOverlappingConfirmed ищет подтверждённую бронь, пересекающую [start, end)
func (r *BookingRepository) FindOverlappingConfirmed(ctx context.Context, start, end time.Time) (*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = 'confirmed'
		  AND start_at < $2
		  AND end_at > $1
		ORDER BY start_at
		LIMIT 1
	`

	booking, err := scanBooking(r.QueryRow(ctx, query, start, end))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find overlapping booking: %w", err)
	}

	return booking, nil
}

// ListConfirmedBetween получает подтверждённые брони, пересекающие [from, to)
func (r *BookingRepository) ListConfirmedBetween(ctx context.Context, from, to time.Time) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = 'confirmed'
		  AND start_at < $2
		  AND end_at > $1
		ORDER BY start_at
	`

	rows, err := r.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("list confirmed bookings: %w", err)
	}

	return r.collect(rows)
}

// ListBetween получает все брони с началом в [from, to) — для владельца
func (r *BookingRepository) ListBetween(ctx context.Context, from, to time.Time) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE start_at >= $1
		  AND start_at < $2
		ORDER BY start_at
	`

	rows, err := r.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	return r.collect(rows)
}

// UpdateStatus обновляет статус бронирования
func (r *BookingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.BookingStatus) error {
	query := `
		UPDATE bookings
		SET status = $1, updated_at = now()
		WHERE id = $2
	`

	affected, err := r.ExecAffected(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("booking not found")
	}

	return nil
}

// SetIntegration записывает результат уведомления после коммита
func (r *BookingRepository) SetIntegration(ctx context.Context, id uuid.UUID, integration model.IntegrationStatus) error {
	query := `
		UPDATE bookings
		SET integration = $1, updated_at = now()
		WHERE id = $2
	`

	if _, err := r.ExecAffected(ctx, query, integration, id); err != nil {
		return fmt.Errorf("set booking integration: %w", err)
	}

	return nil
}
