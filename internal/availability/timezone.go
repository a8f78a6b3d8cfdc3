package availability

import "time"

// LocalToInstant переводит локальное время (дата + минуты от полуночи) в зоне loc
// в абсолютный момент.
//
// Смещение считается для самого целевого момента: сначала берём смещение зоны
// в точке "локальное время как UTC", вычисляем кандидата, пересчитываем смещение
// уже для кандидата и, если оно отличается, корректируем ещё раз. В дни перехода
// на летнее/зимнее время однопроходный вариант ошибается на час.
func LocalToInstant(loc *time.Location, year int, month time.Month, day, minuteOfDay int) time.Time {
	wall := time.Date(year, month, day, 0, minuteOfDay, 0, 0, time.UTC)

	firstOffset := offsetAt(wall, loc)
	guess := wall.Add(-firstOffset)

	secondOffset := offsetAt(guess, loc)
	if secondOffset != firstOffset {
		guess = wall.Add(-secondOffset)
	}

	return guess
}

func offsetAt(t time.Time, loc *time.Location) time.Duration {
	_, offset := t.In(loc).Zone()
	return time.Duration(offset) * time.Second
}
