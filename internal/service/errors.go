package service

import (
	"errors"
	"fmt"
)

// ErrorCode стабильный идентификатор ошибки, который видит клиент
type ErrorCode string

const (
	CodeBookingsDisabled        ErrorCode = "bookings_disabled"
	CodeInvalidMeetingType      ErrorCode = "invalid_meeting_type"
	CodeInvalidStartTime        ErrorCode = "invalid_start_time"
	CodeInvalidInput            ErrorCode = "invalid_input"
	CodeSlotNoLongerAvailable   ErrorCode = "slot_no_longer_available"
	CodeSlotLockConflict        ErrorCode = "slot_lock_conflict"
	CodeBookingOverlap          ErrorCode = "booking_overlap"
	CodeBookingNotFound         ErrorCode = "booking_not_found"
	CodeBlockedRangeNotFound    ErrorCode = "blocked_range_not_found"
	CodeInvalidStatusTransition ErrorCode = "invalid_status_transition"
)

// Category группа ошибок: по ней клиент понимает, что делать дальше
type Category string

const (
	CategoryConfig      Category = "config"      // запись выключена
	CategoryInput       Category = "input"       // исправить запрос
	CategoryConcurrency Category = "concurrency" // выбрать другое время
	CategoryNotFound    Category = "not_found"
	CategoryInternal    Category = "internal" // повторить позже
)

// BookingError ожидаемая ошибка протокола бронирования
type BookingError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *BookingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BookingError) Unwrap() error {
	return e.Err
}

// Is сравнивает ошибки по коду, чтобы errors.Is работал с обёрнутыми копиями
func (e *BookingError) Is(target error) bool {
	t, ok := target.(*BookingError)
	return ok && t.Code == e.Code
}

// Category возвращает группу ошибки
func (e *BookingError) Category() Category {
	return CategoryOf(e.Code)
}

var (
	ErrBookingsDisabled        = &BookingError{Code: CodeBookingsDisabled, Message: "online booking is currently disabled"}
	ErrInvalidMeetingType      = &BookingError{Code: CodeInvalidMeetingType, Message: "unknown meeting type"}
	ErrInvalidStartTime        = &BookingError{Code: CodeInvalidStartTime, Message: "startAt must be an ISO-8601 instant"}
	ErrSlotNoLongerAvailable   = &BookingError{Code: CodeSlotNoLongerAvailable, Message: "this time is no longer available, please pick another time"}
	ErrSlotLockConflict        = &BookingError{Code: CodeSlotLockConflict, Message: "this time was just taken, please pick another time"}
	ErrBookingOverlap          = &BookingError{Code: CodeBookingOverlap, Message: "this time overlaps another booking, please pick another time"}
	ErrBookingNotFound         = &BookingError{Code: CodeBookingNotFound, Message: "booking not found"}
	ErrBlockedRangeNotFound    = &BookingError{Code: CodeBlockedRangeNotFound, Message: "blocked range not found"}
	ErrInvalidStatusTransition = &BookingError{Code: CodeInvalidStatusTransition, Message: "booking status cannot be changed this way"}
)

// newBookingError копия ошибки-образца с причиной
func newBookingError(kind *BookingError, cause error) *BookingError {
	return &BookingError{Code: kind.Code, Message: kind.Message, Err: cause}
}

// invalidInput ошибка валидации с произвольным сообщением
func invalidInput(message string) *BookingError {
	return &BookingError{Code: CodeInvalidInput, Message: message}
}

// CategoryOf группа для кода ошибки
func CategoryOf(code ErrorCode) Category {
	switch code {
	case CodeBookingsDisabled:
		return CategoryConfig
	case CodeInvalidMeetingType, CodeInvalidStartTime, CodeInvalidInput, CodeInvalidStatusTransition:
		return CategoryInput
	case CodeSlotNoLongerAvailable, CodeSlotLockConflict, CodeBookingOverlap:
		return CategoryConcurrency
	case CodeBookingNotFound, CodeBlockedRangeNotFound:
		return CategoryNotFound
	}
	return CategoryInternal
}

// AsBookingError достаёт BookingError из цепочки
func AsBookingError(err error) (*BookingError, bool) {
	var be *BookingError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}

// IsConcurrencyConflict ожидаемый исход гонки за слот
func IsConcurrencyConflict(err error) bool {
	return errors.Is(err, ErrSlotLockConflict) || errors.Is(err, ErrBookingOverlap)
}
