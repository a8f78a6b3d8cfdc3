package formatting

import "github.com/Freeeeeet/booking_engine/internal/model"

// StatusDisplay emoji и подпись статуса
type StatusDisplay struct {
	Emoji string
	Text  string
}

func (d StatusDisplay) String() string {
	return d.Emoji + " " + d.Text
}

// BookingStatus отображение статуса брони
func BookingStatus(status model.BookingStatus) StatusDisplay {
	switch status {
	case model.BookingStatusConfirmed:
		return StatusDisplay{"✅", "Подтверждена"}
	case model.BookingStatusCancelled:
		return StatusDisplay{"❌", "Отменена"}
	case model.BookingStatusRescheduled:
		return StatusDisplay{"🔁", "Перенесена"}
	}
	return StatusDisplay{"❓", "Неизвестно"}
}

// Integration отображение статуса уведомления
func Integration(status model.IntegrationStatus) StatusDisplay {
	switch status {
	case model.IntegrationOK:
		return StatusDisplay{"📨", "Уведомление отправлено"}
	case model.IntegrationDegraded:
		return StatusDisplay{"⚠️", "Уведомление не доставлено"}
	case model.IntegrationPending:
		return StatusDisplay{"⏳", "Уведомление в очереди"}
	}
	return StatusDisplay{"❓", "Неизвестно"}
}
