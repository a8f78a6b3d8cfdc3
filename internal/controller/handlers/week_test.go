package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Freeeeeet/booking_engine/internal/availability"
	"github.com/Freeeeeet/booking_engine/internal/controller/weekimage"
	"github.com/Freeeeeet/booking_engine/internal/model"
	"github.com/Freeeeeet/booking_engine/internal/service"
)

func TestCurrentWeek(t *testing.T) {
	utc := func(day, hour int) time.Time { return time.Date(2026, 3, day, hour, 0, 0, 0, time.UTC) }

	schedule := moscowSchedule()
	schedule.blocks = []*model.BlockedRange{
		// 21:00 среды до 12:00 четверга по Москве
		{ID: uuid.New(), StartAt: utc(4, 18), EndAt: utc(5, 9), Reason: "отпуск"},
		{ID: uuid.New(), StartAt: utc(20, 9), EndAt: utc(20, 10)},
	}
	bookings := &fakeBookings{list: []*model.Booking{
		{ID: uuid.New(), StartAt: utc(3, 10), EndAt: utc(3, 10).Add(45 * time.Minute), Status: model.BookingStatusConfirmed, Name: "Ada"},
		{ID: uuid.New(), StartAt: utc(3, 12), EndAt: utc(3, 13), Status: model.BookingStatusCancelled, Name: "Bob"},
	}}
	avail := &fakeAvailability{view: &service.AvailabilityView{Days: []availability.Day{
		{Date: "2026-03-02", Slots: []time.Time{utc(2, 10)}},
		{Date: "2026-03-09", Slots: []time.Time{utc(9, 7)}},
	}}}

	h := newTestHandlersWithAvailability(bookings, schedule, avail)

	week, err := h.currentWeek(context.Background())
	require.NoError(t, err)

	moscow, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)
	assert.True(t, week.Start.Equal(time.Date(2026, 3, 2, 0, 0, 0, 0, moscow)))
	assert.Equal(t, moscow.String(), week.Location.String())

	require.Len(t, week.Items, 4)

	assert.Equal(t, weekimage.KindFree, week.Items[0].Kind)
	assert.True(t, week.Items[0].Start.Equal(utc(2, 10)))
	assert.Equal(t, 30*time.Minute, week.Items[0].End.Sub(week.Items[0].Start))

	assert.Equal(t, weekimage.KindBooked, week.Items[1].Kind)
	assert.Equal(t, "Ada", week.Items[1].Label)

	assert.Equal(t, weekimage.KindBlocked, week.Items[2].Kind)
	assert.True(t, week.Items[2].Start.Equal(utc(4, 18)))
	assert.True(t, week.Items[2].End.Equal(utc(4, 21)))
	assert.True(t, week.Items[3].Start.Equal(utc(4, 21)))
	assert.True(t, week.Items[3].End.Equal(utc(5, 9)))
	assert.Equal(t, "отпуск", week.Items[3].Label)

	caption := weekCaption(week)
	assert.Contains(t, caption, "02.03 - 08.03.2026")
	assert.Contains(t, caption, "Свободно: 1 слот")
	assert.Contains(t, caption, "Записей: 1")
}

func TestCurrentWeekErrors(t *testing.T) {
	h := newTestHandlersWithAvailability(&fakeBookings{}, moscowSchedule(), &fakeAvailability{err: errors.New("db down")})
	_, err := h.currentWeek(context.Background())
	assert.ErrorContains(t, err, "load availability")

	h = newTestHandlers(&fakeBookings{listErr: errors.New("timeout")}, moscowSchedule())
	_, err = h.currentWeek(context.Background())
	assert.ErrorContains(t, err, "list bookings")
}
