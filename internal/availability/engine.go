// Package availability вычисляет свободные для записи слоты.
//
// Compute — чистая функция без ввода-вывода: все входные данные, включая текущее
// время, передаются явно, поэтому её можно вызывать конкурентно без ограничений.
package availability

import (
	"time"

	"github.com/Freeeeeet/booking_engine/internal/model"
)

const dateLayout = "2006-01-02"

// Day слоты одного календарного дня в зоне владельца
type Day struct {
	Date  string      `json:"date"`
	Slots []time.Time `json:"slots"`
}

// Input входные данные для расчёта доступности
type Input struct {
	Config      model.ScheduleConfig
	Blocked     []model.BlockedRange
	Bookings    []model.Booking
	Now         time.Time
	HorizonDays int
}

// Compute возвращает упорядоченный по дням список доступных начал слотов.
//
// Слоты всегда идут с шагом базовой длительности; подходит ли слот для
// конкретного типа встречи проверяется только при бронировании.
// Ошибки конфигурации не возвращаются: они просто уменьшают доступность.
func Compute(in Input) []Day {
	cfg := in.Config
	if !cfg.Enabled || cfg.SlotDurationMinutes <= 0 {
		return []Day{}
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return []Day{}
	}

	horizon := cfg.MaxDaysAhead
	if in.HorizonDays < horizon {
		horizon = in.HorizonDays
	}
	if horizon < 0 {
		return []Day{}
	}

	busy := busyIntervals(in.Blocked, in.Bookings)
	step := cfg.SlotDuration()

	localNow := in.Now.In(loc)
	days := make([]Day, 0, horizon+1)

	for offset := 0; offset <= horizon; offset++ {
		// Календарная арифметика в UTC: дата не зависит от смещений зоны
		date := time.Date(localNow.Year(), localNow.Month(), localNow.Day()+offset, 0, 0, 0, 0, time.UTC)
		day := Day{Date: date.Format(dateLayout), Slots: []time.Time{}}

		if !cfg.IsWorkDay(date.Weekday()) || cfg.DayEndMinute <= cfg.DayStartMinute {
			days = append(days, day)
			continue
		}

		var prev time.Time
		for m := cfg.DayStartMinute; m+cfg.SlotDurationMinutes <= cfg.DayEndMinute; m += cfg.SlotDurationMinutes {
			slotStart := LocalToInstant(loc, date.Year(), date.Month(), date.Day(), m)
			slotEnd := slotStart.Add(step)

			// Время внутри перевода часов вперёд сворачивается на уже пройденный момент
			if !prev.IsZero() && !slotStart.After(prev) {
				continue
			}
			prev = slotStart

			if slotStart.Before(in.Now) {
				continue
			}
			if busy.overlaps(slotStart, slotEnd) {
				continue
			}
			day.Slots = append(day.Slots, slotStart.UTC())
		}

		days = append(days, day)
	}

	return days
}

// Contains проверяет, есть ли startAt среди вычисленных слотов
func Contains(days []Day, startAt time.Time) bool {
	for _, d := range days {
		for _, s := range d.Slots {
			if s.Equal(startAt) {
				return true
			}
		}
	}
	return false
}

type interval struct {
	start, end time.Time
}

type intervals []interval

func busyIntervals(blocked []model.BlockedRange, bookings []model.Booking) intervals {
	busy := make(intervals, 0, len(blocked)+len(bookings))
	for _, b := range blocked {
		if b.EndAt.After(b.StartAt) {
			busy = append(busy, interval{b.StartAt, b.EndAt})
		}
	}
	for _, b := range bookings {
		if b.IsConfirmed() {
			busy = append(busy, interval{b.StartAt, b.EndAt})
		}
	}
	return busy
}

func (iv intervals) overlaps(start, end time.Time) bool {
	for _, i := range iv {
		if i.start.Before(end) && i.end.After(start) {
			return true
		}
	}
	return false
}
