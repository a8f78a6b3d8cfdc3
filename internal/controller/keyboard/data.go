package keyboard

import (
	"strings"

	"github.com/google/uuid"
)

// Форматы callback data
const (
	CancelBooking = "cancel_booking:" // cancel_booking:<uuid>
	ConfirmCancel = "confirm_cancel:" // confirm_cancel:<uuid>
	KeepBooking   = "keep_booking"
)

// WithID склеивает префикс и ID брони
func WithID(prefix string, id uuid.UUID) string {
	return prefix + id.String()
}

// ParseID достаёт ID брони из callback data с префиксом prefix
func ParseID(data, prefix string) (uuid.UUID, bool) {
	raw, ok := strings.CutPrefix(data, prefix)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
