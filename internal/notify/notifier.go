// Package notify доставляет уведомления о новых бронях во внешние каналы.
// Доставка best-effort: ошибка отсюда никогда не откатывает бронь.
package notify

import (
	"context"

	"github.com/Freeeeeet/booking_engine/internal/model"
)

// Notifier получатель уведомлений после коммита брони
type Notifier interface {
	BookingCreated(ctx context.Context, booking *model.Booking, meetingType model.MeetingType) error
}

// Nop ничего не отправляет; используется когда Telegram не настроен
type Nop struct{}

func (Nop) BookingCreated(context.Context, *model.Booking, model.MeetingType) error {
	return nil
}
