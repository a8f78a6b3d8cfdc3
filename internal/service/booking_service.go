package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/booking_engine/internal/model"
	"github.com/Freeeeeet/booking_engine/internal/notify"
	"github.com/Freeeeeet/booking_engine/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultNotifyTimeout = 10 * time.Second

// BookingRequest заявка клиента на запись
type BookingRequest struct {
	Name          string `json:"name" validate:"required,max=200"`
	Email         string `json:"email" validate:"required,email,max=320"`
	Reason        string `json:"reason" validate:"max=2000"`
	Timezone      string `json:"timezone" validate:"omitempty,timezone"`
	MeetingTypeID string `json:"meetingTypeId"`
	StartAt       string `json:"startAt"`
}

// BookingResult результат успешной записи
type BookingResult struct {
	BookingID   uuid.UUID               `json:"bookingId"`
	Integration model.IntegrationStatus `json:"integration"`
	Booking     *model.Booking          `json:"-"`
}

// BookingService протокол приёма, отмены и переноса броней.
//
// Атомарность обеспечивает только транзакция хранилища: сервис не держит
// общего состояния между запросами и не использует мьютексы.
type BookingService struct {
	availability  *AvailabilityService
	tx            repository.Transactor
	bookings      BookingStore
	notifier      notify.Notifier
	notifyTimeout time.Duration
	logger        *zap.Logger
}

func NewBookingService(
	availability *AvailabilityService,
	tx repository.Transactor,
	bookings BookingStore,
	notifier notify.Notifier,
	logger *zap.Logger,
) *BookingService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &BookingService{
		availability:  availability,
		tx:            tx,
		bookings:      bookings,
		notifier:      notifier,
		notifyTimeout: defaultNotifyTimeout,
		logger:        logger,
	}
}

// AcceptBooking проверяет заявку и атомарно резервирует все слоты встречи
func (s *BookingService) AcceptBooking(ctx context.Context, req BookingRequest) (*BookingResult, error) {
	cfg, err := s.availability.LoadConfig(ctx)
	if err != nil {
		return nil, err
	}

	if !cfg.Enabled {
		return nil, ErrBookingsDisabled
	}

	meetingType, ok := cfg.MeetingType(strings.TrimSpace(req.MeetingTypeID))
	if !ok {
		return nil, ErrInvalidMeetingType
	}

	startAt, err := parseInstant(req.StartAt)
	if err != nil {
		return nil, newBookingError(ErrInvalidStartTime, err)
	}
	endAt := startAt.Add(meetingType.Duration())

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Reason = strings.TrimSpace(req.Reason)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	// Список у клиента мог устареть: пересчитываем доступность заново
	offerable, err := s.availability.IsOfferable(ctx, cfg, startAt)
	if err != nil {
		return nil, err
	}
	if !offerable {
		s.logger.Info("Requested slot is no longer offered",
			zap.Time("start_at", startAt),
			zap.String("meeting_type", meetingType.ID),
		)
		return nil, ErrSlotNoLongerAvailable
	}

	booking := &model.Booking{
		ID:             uuid.New(),
		MeetingTypeID:  meetingType.ID,
		StartAt:        startAt,
		EndAt:          endAt,
		Status:         model.BookingStatusConfirmed,
		Name:           req.Name,
		Email:          req.Email,
		Reason:         req.Reason,
		ClientTimezone: req.Timezone,
		Integration:    model.IntegrationPending,
	}

	err = s.tx.Serializable(ctx, func(tx repository.Tx) error {
		return reserve(ctx, tx, cfg.SlotDuration(), booking)
	})
	if err != nil {
		return nil, s.reserveFailed(err, booking)
	}

	s.logger.Info("Booking accepted",
		zap.String("booking_id", booking.ID.String()),
		zap.String("meeting_type", meetingType.ID),
		zap.Time("start_at", booking.StartAt),
		zap.Time("end_at", booking.EndAt),
	)

	integration := s.notifyCreated(ctx, booking, meetingType)

	return &BookingResult{
		BookingID:   booking.ID,
		Integration: integration,
		Booking:     booking,
	}, nil
}

// CancelBooking отменяет бронь и освобождает её слоты
func (s *BookingService) CancelBooking(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	return s.release(ctx, id, model.BookingStatusCancelled)
}

// SetBookingStatus меняет статус по запросу владельца.
// Вернуть бронь в confirmed нельзя: для нового времени есть RescheduleBooking.
func (s *BookingService) SetBookingStatus(ctx context.Context, id uuid.UUID, status model.BookingStatus) (*model.Booking, error) {
	switch status {
	case model.BookingStatusCancelled, model.BookingStatusRescheduled:
		return s.release(ctx, id, status)
	}
	return nil, newBookingError(ErrInvalidStatusTransition, fmt.Errorf("target status %q", status))
}

// RescheduleBooking переносит подтверждённую бронь на newStartAt.
//
// Старая бронь получает статус rescheduled и теряет блокировки, новая создаётся
// по той же процедуре проверки и резервирования. Всё в одной транзакции:
// если новое время занято, старая бронь остаётся как была.
// Пустой meetingTypeID сохраняет длительность исходной брони.
func (s *BookingService) RescheduleBooking(ctx context.Context, id uuid.UUID, newStartAt, meetingTypeID string) (*model.Booking, error) {
	cfg, err := s.availability.LoadConfig(ctx)
	if err != nil {
		return nil, err
	}

	startAt, err := parseInstant(newStartAt)
	if err != nil {
		return nil, newBookingError(ErrInvalidStartTime, err)
	}

	var meetingType *model.MeetingType
	if mtID := strings.TrimSpace(meetingTypeID); mtID != "" {
		mt, ok := cfg.MeetingType(mtID)
		if !ok {
			return nil, ErrInvalidMeetingType
		}
		meetingType = &mt
	}

	var replacement *model.Booking
	var freed int64

	err = s.tx.Serializable(ctx, func(tx repository.Tx) error {
		old, err := tx.GetBookingForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if old == nil {
			return ErrBookingNotFound
		}
		if !old.IsConfirmed() {
			return newBookingError(ErrInvalidStatusTransition, fmt.Errorf("booking is %s", old.Status))
		}

		if freed, err = tx.DeleteSlotLocksByBooking(ctx, old.ID); err != nil {
			return err
		}
		if err := tx.UpdateBookingStatus(ctx, old.ID, model.BookingStatusRescheduled); err != nil {
			return err
		}

		duration := old.EndAt.Sub(old.StartAt)
		typeID := old.MeetingTypeID
		if meetingType != nil {
			duration = meetingType.Duration()
			typeID = meetingType.ID
		}

		oldID := old.ID
		replacement = &model.Booking{
			ID:              uuid.New(),
			MeetingTypeID:   typeID,
			StartAt:         startAt,
			EndAt:           startAt.Add(duration),
			Status:          model.BookingStatusConfirmed,
			Name:            old.Name,
			Email:           old.Email,
			Reason:          old.Reason,
			ClientTimezone:  old.ClientTimezone,
			Integration:     model.IntegrationOK,
			RescheduledFrom: &oldID,
		}

		return reserve(ctx, tx, cfg.SlotDuration(), replacement)
	})
	if err != nil {
		return nil, s.reserveFailed(err, replacement)
	}

	s.logger.Info("Booking rescheduled",
		zap.String("booking_id", id.String()),
		zap.String("new_booking_id", replacement.ID.String()),
		zap.Time("start_at", replacement.StartAt),
		zap.Int64("freed_locks", freed),
	)

	return replacement, nil
}

// GetBooking получает бронь по ID
func (s *BookingService) GetBooking(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	return booking, nil
}

// ListBookings брони с началом в [from, to)
func (s *BookingService) ListBookings(ctx context.Context, from, to time.Time) ([]*model.Booking, error) {
	if !to.After(from) {
		return nil, invalidInput("to must be after from")
	}
	return s.bookings.ListBetween(ctx, from, to)
}

// reserve атомарная часть протокола: проверка блокировок и пересечений,
// затем запись брони и блокировок. Вызывается только внутри транзакции.
func reserve(ctx context.Context, tx repository.Tx, step time.Duration, booking *model.Booking) error {
	starts := model.CoveredSlotStarts(booking.StartAt, booking.EndAt, step)

	held, err := tx.GetActiveSlotLocks(ctx, model.SlotLockIDs(starts))
	if err != nil {
		return err
	}
	if len(held) > 0 {
		return newBookingError(ErrSlotLockConflict,
			fmt.Errorf("slot %s is held by booking %s", held[0].ID, held[0].BookingID))
	}

	existing, err := tx.FindOverlappingBooking(ctx, booking.StartAt, booking.EndAt)
	if err != nil {
		return err
	}
	if existing != nil {
		return newBookingError(ErrBookingOverlap, fmt.Errorf("overlaps booking %s", existing.ID))
	}

	if err := tx.CreateBooking(ctx, booking); err != nil {
		return err
	}
	return tx.CreateSlotLocks(ctx, model.NewSlotLocks(booking, step))
}

// release переводит подтверждённую бронь в status и удаляет её блокировки
func (s *BookingService) release(ctx context.Context, id uuid.UUID, status model.BookingStatus) (*model.Booking, error) {
	var released *model.Booking
	var freed int64

	err := s.tx.Serializable(ctx, func(tx repository.Tx) error {
		booking, err := tx.GetBookingForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if booking == nil {
			return ErrBookingNotFound
		}
		if !booking.IsConfirmed() {
			return newBookingError(ErrInvalidStatusTransition, fmt.Errorf("booking is %s", booking.Status))
		}

		if err := tx.UpdateBookingStatus(ctx, id, status); err != nil {
			return err
		}
		if freed, err = tx.DeleteSlotLocksByBooking(ctx, id); err != nil {
			return err
		}

		booking.Status = status
		released = booking
		return nil
	})
	if err != nil {
		if _, ok := AsBookingError(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("release booking: %w", err)
	}

	s.logger.Info("Booking released",
		zap.String("booking_id", id.String()),
		zap.String("status", string(status)),
		zap.Int64("freed_locks", freed),
	)

	return released, nil
}

// reserveFailed приводит ошибку транзакции к таксономии протокола.
// Проигрыш гонки за слот — штатный исход, поэтому логируется как Info.
func (s *BookingService) reserveFailed(err error, booking *model.Booking) error {
	if errors.Is(err, repository.ErrLockExists) || errors.Is(err, repository.ErrSerialization) {
		err = newBookingError(ErrSlotLockConflict, err)
	}

	if IsConcurrencyConflict(err) {
		fields := []zap.Field{zap.String("reason", err.Error())}
		if booking != nil {
			fields = append(fields, zap.Time("start_at", booking.StartAt), zap.Time("end_at", booking.EndAt))
		}
		s.logger.Info("Slot reservation lost", fields...)
		return err
	}

	if _, ok := AsBookingError(err); ok {
		return err
	}
	return fmt.Errorf("reserve slots: %w", err)
}

// notifyCreated уведомляет владельца после коммита. Ошибка уведомления только
// помечает бронь как degraded, сама бронь остаётся в силе.
func (s *BookingService) notifyCreated(ctx context.Context, booking *model.Booking, meetingType model.MeetingType) model.IntegrationStatus {
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()

	status := model.IntegrationOK
	if err := s.notifier.BookingCreated(nctx, booking, meetingType); err != nil {
		status = model.IntegrationDegraded
		s.logger.Warn("Booking notification failed",
			zap.String("booking_id", booking.ID.String()),
			zap.Error(err),
		)
	}

	if err := s.bookings.SetIntegration(nctx, booking.ID, status); err != nil {
		s.logger.Warn("Failed to record booking integration status",
			zap.String("booking_id", booking.ID.String()),
			zap.String("integration", string(status)),
			zap.Error(err),
		)
	}

	booking.Integration = status
	return status
}

func parseInstant(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("startAt is empty")
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
