package model

import (
	"time"

	"github.com/google/uuid"
)

// BlockedRange произвольный интервал [StartAt, EndAt), закрытый владельцем
type BlockedRange struct {
	ID        uuid.UUID `json:"id"`
	StartAt   time.Time `json:"startAt"`
	EndAt     time.Time `json:"endAt"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"createdAt"`
}

// Overlaps проверяет пересечение с полуинтервалом [start, end)
func (b *BlockedRange) Overlaps(start, end time.Time) bool {
	return b.StartAt.Before(end) && b.EndAt.After(start)
}
