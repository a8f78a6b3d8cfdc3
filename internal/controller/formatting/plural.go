package formatting

// Plural выбирает форму слова для числа: one (1 запись), few (2 записи), many (5 записей)
func Plural(count int, one, few, many string) string {
	n := count % 100
	if n < 0 {
		n = -n
	}
	if n >= 11 && n <= 14 {
		return many
	}
	switch n % 10 {
	case 1:
		return one
	case 2, 3, 4:
		return few
	}
	return many
}

// Bookings склонение слова "запись"
func Bookings(count int) string {
	return Plural(count, "запись", "записи", "записей")
}

// Slots склонение слова "слот"
func Slots(count int) string {
	return Plural(count, "слот", "слота", "слотов")
}
