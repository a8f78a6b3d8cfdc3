package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/booking_engine/internal/model"
	"github.com/Freeeeeet/booking_engine/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var (
	// ErrLockExists блокировка слота уже создана конкурентной транзакцией
	ErrLockExists = errors.New("slot lock already exists")
	// ErrSerialization транзакция так и не прошла после всех повторов
	ErrSerialization = errors.New("transaction serialization failed")
)

// Tx операции над бронями и блокировками внутри одной транзакции
type Tx interface {
	GetActiveSlotLocks(ctx context.Context, ids []string) ([]*model.SlotLock, error)
	CreateSlotLocks(ctx context.Context, locks []*model.SlotLock) error
	DeleteSlotLocksByBooking(ctx context.Context, bookingID uuid.UUID) (int64, error)

	FindOverlappingBooking(ctx context.Context, start, end time.Time) (*model.Booking, error)
	CreateBooking(ctx context.Context, booking *model.Booking) error
	GetBookingForUpdate(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	UpdateBookingStatus(ctx context.Context, id uuid.UUID, status model.BookingStatus) error
}

// Transactor запускает функцию в сериализуемой транзакции
type Transactor interface {
	Serializable(ctx context.Context, fn func(tx Tx) error) error
}

// beginFunc открывает транзакцию, выполняет fn и фиксирует или откатывает её
type beginFunc func(ctx context.Context, fn func(tx pgx.Tx) error) error

// TxManager выполняет транзакции с уровнем SERIALIZABLE поверх пула
type TxManager struct {
	begin      beginFunc
	maxRetries int
	logger     *zap.Logger
}

func NewTxManager(pool *pgxpool.Pool, maxRetries int, logger *zap.Logger) *TxManager {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &TxManager{
		begin: func(ctx context.Context, fn func(tx pgx.Tx) error) error {
			return pgx.BeginTxFunc(ctx, pool, pgx.TxOptions{IsoLevel: pgx.Serializable}, fn)
		},
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// Serializable выполняет fn в транзакции SERIALIZABLE.
// При ошибке сериализации (40001/40P01) транзакция повторяется целиком,
// любая другая ошибка fn откатывает транзакцию и возвращается как есть.
func (m *TxManager) Serializable(ctx context.Context, fn func(tx Tx) error) error {
	var lastErr error

	for attempt := 1; attempt <= m.maxRetries; attempt++ {
		err := m.begin(ctx, func(tx pgx.Tx) error {
			return fn(newPgTx(tx))
		})
		if err == nil {
			return nil
		}
		if !base.IsRetryable(err) || ctx.Err() != nil {
			return err
		}

		lastErr = err
		m.logger.Debug("Serializable transaction retry",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}

	return fmt.Errorf("%w: %v", ErrSerialization, lastErr)
}

// pgTx связывает репозитории с открытой транзакцией
type pgTx struct {
	bookings *BookingRepository
	locks    *SlotLockRepository
}

func newPgTx(tx pgx.Tx) *pgTx {
	return &pgTx{
		bookings: NewBookingRepository(tx),
		locks:    NewSlotLockRepository(tx),
	}
}

func (t *pgTx) GetActiveSlotLocks(ctx context.Context, ids []string) ([]*model.SlotLock, error) {
	return t.locks.GetActiveByIDs(ctx, ids)
}

func (t *pgTx) CreateSlotLocks(ctx context.Context, locks []*model.SlotLock) error {
	return t.locks.CreateMany(ctx, locks)
}

func (t *pgTx) DeleteSlotLocksByBooking(ctx context.Context, bookingID uuid.UUID) (int64, error) {
	return t.locks.DeleteByBookingID(ctx, bookingID)
}

func (t *pgTx) FindOverlappingBooking(ctx context.Context, start, end time.Time) (*model.Booking, error) {
	return t.bookings.FindOverlappingConfirmed(ctx, start, end)
}

func (t *pgTx) CreateBooking(ctx context.Context, booking *model.Booking) error {
	return t.bookings.Create(ctx, booking)
}

func (t *pgTx) GetBookingForUpdate(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	return t.bookings.GetByIDForUpdate(ctx, id)
}

func (t *pgTx) UpdateBookingStatus(ctx context.Context, id uuid.UUID, status model.BookingStatus) error {
	return t.bookings.UpdateStatus(ctx, id, status)
}
