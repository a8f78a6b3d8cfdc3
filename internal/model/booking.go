package model

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusConfirmed   BookingStatus = "confirmed"   // Подтверждено
	BookingStatusCancelled   BookingStatus = "cancelled"   // Отменено владельцем
	BookingStatusRescheduled BookingStatus = "rescheduled" // Перенесено на другое время
)

// IntegrationStatus результат уведомления внешних систем после коммита
type IntegrationStatus string

const (
	IntegrationPending  IntegrationStatus = "pending"
	IntegrationOK       IntegrationStatus = "ok"
	IntegrationDegraded IntegrationStatus = "degraded"
)

type Booking struct {
	ID              uuid.UUID         `json:"id"`
	MeetingTypeID   string            `json:"meetingTypeId"`
	StartAt         time.Time         `json:"startAt"`
	EndAt           time.Time         `json:"endAt"`
	Status          BookingStatus     `json:"status"`
	Name            string            `json:"name"`
	Email           string            `json:"email"`
	Reason          string            `json:"reason"`
	ClientTimezone  string            `json:"timezone"`
	Integration     IntegrationStatus `json:"integration"`
	RescheduledFrom *uuid.UUID        `json:"rescheduledFrom,omitempty"` // nil если бронь создана клиентом
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// IsConfirmed учитывается ли бронь в доступности и проверке пересечений
func (b *Booking) IsConfirmed() bool {
	return b.Status == BookingStatusConfirmed
}

// Overlaps проверяет пересечение с полуинтервалом [start, end)
func (b *Booking) Overlaps(start, end time.Time) bool {
	return b.StartAt.Before(end) && b.EndAt.After(start)
}
