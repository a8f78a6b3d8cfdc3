package formatting

import (
	"fmt"
	"time"
)

var weekdayShort = [...]string{"Вс", "Пн", "Вт", "Ср", "Чт", "Пт", "Сб"}

// WeekdayShort краткое название дня недели
func WeekdayShort(wd time.Weekday) string {
	if wd < time.Sunday || wd > time.Saturday {
		return "?"
	}
	return weekdayShort[wd]
}

// DateWithWeekday "Пн 02.03.2026"
func DateWithWeekday(t time.Time) string {
	return fmt.Sprintf("%s %s", WeekdayShort(t.Weekday()), t.Format("02.01.2006"))
}

// Interval "Пн 02.03.2026 10:00-10:45" в зоне loc.
// Если интервал переходит через полночь, конец пишется с датой.
func Interval(start, end time.Time, loc *time.Location) string {
	start, end = start.In(loc), end.In(loc)
	if start.YearDay() == end.YearDay() && start.Year() == end.Year() {
		return fmt.Sprintf("%s %s-%s", DateWithWeekday(start), start.Format("15:04"), end.Format("15:04"))
	}
	return fmt.Sprintf("%s %s - %s %s", DateWithWeekday(start), start.Format("15:04"), DateWithWeekday(end), end.Format("15:04"))
}

// Duration длительность в минутах: "45 мин", "1 ч", "1 ч 30 мин"
func Duration(d time.Duration) string {
	minutes := int(d.Minutes())
	if minutes < 60 {
		return fmt.Sprintf("%d мин", minutes)
	}
	hours, mins := minutes/60, minutes%60
	if mins == 0 {
		return fmt.Sprintf("%d ч", hours)
	}
	return fmt.Sprintf("%d ч %d мин", hours, mins)
}
