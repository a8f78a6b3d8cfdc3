package handlers

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/Freeeeeet/booking_engine/internal/controller/formatting"
	"github.com/Freeeeeet/booking_engine/internal/controller/weekimage"
	"github.com/Freeeeeet/booking_engine/internal/model"
)

// HandleWeek обрабатывает команду /week: картинка текущей недели
func (h *Handlers) HandleWeek(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, ok := h.requireOwner(ctx, b, update)
	if !ok {
		return
	}

	week, err := h.currentWeek(ctx)
	if err != nil {
		h.logger.Error("Failed to collect week data", zap.Error(err))
		h.sendMessage(ctx, b, chatID, "❌ Не удалось загрузить неделю. Попробуйте позже.")
		return
	}

	image, err := weekimage.Render(week)
	if err != nil {
		h.logger.Error("Failed to render week image", zap.Error(err))
		h.sendMessage(ctx, b, chatID, "❌ Не удалось нарисовать неделю. Список записей: /bookings")
		return
	}

	_, err = b.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID:  chatID,
		Photo:   &models.InputFileUpload{Filename: "week.png", Data: bytes.NewReader(image)},
		Caption: weekCaption(week),
	})
	if err != nil {
		h.logger.Error("Failed to send week image", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// currentWeek собирает свободные слоты, брони и закрытые интервалы текущей недели
func (h *Handlers) currentWeek(ctx context.Context) (weekimage.Week, error) {
	cfg, err := h.schedule.GetScheduleConfig(ctx)
	if err != nil {
		return weekimage.Week{}, fmt.Errorf("load schedule config: %w", err)
	}

	now := h.now()
	loc := zoneOf(cfg)
	from := weekimage.WeekStart(now, loc)
	to := from.AddDate(0, 0, 7)

	week := weekimage.Week{Start: from, Location: loc, Now: now}

	view, err := h.availability.GetAvailability(ctx)
	if err != nil {
		return weekimage.Week{}, fmt.Errorf("load availability: %w", err)
	}
	step := cfg.SlotDuration()
	for _, day := range view.Days {
		for _, slot := range day.Slots {
			if slot.Before(from) || !slot.Before(to) {
				continue
			}
			week.Items = append(week.Items, weekimage.Item{Start: slot, End: slot.Add(step), Kind: weekimage.KindFree})
		}
	}

	bookings, err := h.bookings.ListBookings(ctx, from, to)
	if err != nil {
		return weekimage.Week{}, fmt.Errorf("list bookings: %w", err)
	}
	for _, booking := range bookings {
		if !booking.IsConfirmed() {
			continue
		}
		week.Items = append(week.Items, weekimage.Item{
			Start: booking.StartAt,
			End:   booking.EndAt,
			Kind:  weekimage.KindBooked,
			Label: booking.Name,
		})
	}

	blocks, err := h.schedule.ListBlockedRanges(ctx)
	if err != nil {
		return weekimage.Week{}, fmt.Errorf("list blocked ranges: %w", err)
	}
	for _, block := range blocks {
		week.Items = append(week.Items, splitByDay(block, from, to, loc)...)
	}

	return week, nil
}

// splitByDay режет закрытый интервал по полуночам в зоне владельца,
// чтобы многодневный интервал попал в колонку каждого дня
func splitByDay(block *model.BlockedRange, from, to time.Time, loc *time.Location) []weekimage.Item {
	start := maxTime(block.StartAt, from)
	end := minTime(block.EndAt, to)

	var items []weekimage.Item
	for start.Before(end) {
		local := start.In(loc)
		midnight := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
		chunkEnd := minTime(end, midnight)

		items = append(items, weekimage.Item{
			Start: start,
			End:   chunkEnd,
			Kind:  weekimage.KindBlocked,
			Label: block.Reason,
		})
		start = chunkEnd
	}
	return items
}

func weekCaption(week weekimage.Week) string {
	var free, booked int
	for _, item := range week.Items {
		switch item.Kind {
		case weekimage.KindFree:
			free++
		case weekimage.KindBooked:
			booked++
		}
	}

	sunday := week.Start.AddDate(0, 0, 6)
	return fmt.Sprintf("🗓 Неделя %s - %s\n🟢 Свободно: %d %s\n📅 Записей: %d",
		week.Start.Format("02.01"), sunday.Format("02.01.2006"),
		free, formatting.Slots(free), booked)
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
