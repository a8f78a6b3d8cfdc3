package model

import (
	"errors"
	"fmt"
	"time"
)

// MeetingType именованный вариант встречи со своей длительностью
type MeetingType struct {
	ID              string `json:"id"`
	Label           string `json:"label"`
	DurationMinutes int    `json:"durationMinutes"`
}

// Duration возвращает длительность встречи
func (m MeetingType) Duration() time.Duration {
	return time.Duration(m.DurationMinutes) * time.Minute
}

// ScheduleConfig настройки расписания владельца (singleton)
type ScheduleConfig struct {
	Enabled             bool          `json:"enabled"`
	Timezone            string        `json:"timezone"`
	SlotDurationMinutes int           `json:"slotDurationMinutes"`
	MaxDaysAhead        int           `json:"maxDaysAhead"`
	WorkDays            []int         `json:"workDays"`       // 0 = Sunday, 6 = Saturday
	DayStartMinute      int           `json:"dayStartMinute"` // минуты от локальной полуночи
	DayEndMinute        int           `json:"dayEndMinute"`
	MeetingTypes        []MeetingType `json:"meetingTypes"`
	UpdatedAt           time.Time     `json:"updatedAt"`
}

// Значения по умолчанию для незаполненных полей
const (
	DefaultTimezone            = "UTC"
	DefaultSlotDurationMinutes = 30
	DefaultMaxDaysAhead        = 14
	DefaultDayStartMinute      = 9 * 60
	DefaultDayEndMinute        = 17 * 60
)

// DefaultScheduleConfig возвращает конфиг, который используется пока владелец ничего не сохранил
func DefaultScheduleConfig() ScheduleConfig {
	cfg := ScheduleConfig{MaxDaysAhead: DefaultMaxDaysAhead}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults заполняет пустые поля значениями по умолчанию.
// Вызывается один раз на границе загрузки конфига.
//
// MaxDaysAhead не трогается: 0 означает запись только на сегодня.
// Пустой, но заданный список MeetingTypes сохраняется как есть и отклоняется в Validate.
func (c *ScheduleConfig) ApplyDefaults() {
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	if c.SlotDurationMinutes <= 0 {
		c.SlotDurationMinutes = DefaultSlotDurationMinutes
	}
	if c.WorkDays == nil {
		c.WorkDays = []int{1, 2, 3, 4, 5}
	}
	if c.DayStartMinute == 0 && c.DayEndMinute == 0 {
		c.DayStartMinute = DefaultDayStartMinute
		c.DayEndMinute = DefaultDayEndMinute
	}
	if c.MeetingTypes == nil {
		c.MeetingTypes = []MeetingType{
			{ID: "intro", Label: "Intro call", DurationMinutes: c.SlotDurationMinutes},
		}
	}
	for i := range c.MeetingTypes {
		if c.MeetingTypes[i].DurationMinutes <= 0 {
			c.MeetingTypes[i].DurationMinutes = c.SlotDurationMinutes
		}
	}
}

// Validate проверяет конфиг перед сохранением
func (c *ScheduleConfig) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil || c.Timezone == "" {
		return fmt.Errorf("unknown timezone %q", c.Timezone)
	}
	if c.SlotDurationMinutes <= 0 {
		return errors.New("slotDurationMinutes must be positive")
	}
	if c.MaxDaysAhead < 0 {
		return errors.New("maxDaysAhead must not be negative")
	}
	for _, d := range c.WorkDays {
		if d < 0 || d > 6 {
			return fmt.Errorf("work day %d out of range 0..6", d)
		}
	}
	if c.DayStartMinute < 0 || c.DayEndMinute > 24*60 {
		return errors.New("day window must be within 00:00..24:00")
	}
	if c.DayEndMinute <= c.DayStartMinute {
		return errors.New("dayEndMinute must be after dayStartMinute")
	}
	if len(c.MeetingTypes) == 0 {
		return errors.New("at least one meeting type is required")
	}

	seen := make(map[string]struct{}, len(c.MeetingTypes))
	for _, mt := range c.MeetingTypes {
		if mt.ID == "" {
			return errors.New("meeting type id is required")
		}
		if _, dup := seen[mt.ID]; dup {
			return fmt.Errorf("duplicate meeting type id %q", mt.ID)
		}
		seen[mt.ID] = struct{}{}
		if mt.DurationMinutes <= 0 {
			return fmt.Errorf("meeting type %q: duration must be positive", mt.ID)
		}
	}

	return nil
}

// MeetingType ищет тип встречи по ID
func (c *ScheduleConfig) MeetingType(id string) (MeetingType, bool) {
	for _, mt := range c.MeetingTypes {
		if mt.ID == id {
			return mt, true
		}
	}
	return MeetingType{}, false
}

// IsWorkDay проверяет, входит ли день недели в рабочие
func (c *ScheduleConfig) IsWorkDay(wd time.Weekday) bool {
	for _, d := range c.WorkDays {
		if d == int(wd) {
			return true
		}
	}
	return false
}

// SlotDuration возвращает длительность базового слота
func (c *ScheduleConfig) SlotDuration() time.Duration {
	return time.Duration(c.SlotDurationMinutes) * time.Minute
}
