package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Freeeeeet/booking_engine/internal/controller/formatting"
	"github.com/Freeeeeet/booking_engine/internal/controller/keyboard"
	"github.com/Freeeeeet/booking_engine/internal/model"
	"github.com/Freeeeeet/booking_engine/internal/service"
)

const helpText = "📚 Справка по командам:\n\n" +
	"/bookings - Ближайшие записи\n" +
	"/cancel <ID> - Отменить запись и освободить слоты\n" +
	"/week - Картинка текущей недели\n" +
	"/blocks - Закрытые интервалы\n" +
	"/schedule - Текущие настройки расписания\n" +
	"/pause - Приостановить онлайн-запись\n" +
	"/resume - Возобновить онлайн-запись\n" +
	"/help - Показать эту справку"

// HandleStart обрабатывает команду /start
func (h *Handlers) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, ok := h.requireOwner(ctx, b, update)
	if !ok {
		return
	}

	name := ""
	if update.Message.From != nil {
		name = update.Message.From.FirstName
	}

	h.sendMessage(ctx, b, chatID, fmt.Sprintf(
		"👋 Привет, %s!\n\nСюда приходят уведомления о новых записях, "+
			"а командами ниже можно управлять расписанием.\n\n%s",
		name, helpText,
	))
}

// HandleHelp обрабатывает команду /help
func (h *Handlers) HandleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, ok := h.requireOwner(ctx, b, update)
	if !ok {
		return
	}
	h.sendMessage(ctx, b, chatID, helpText)
}

// HandleBookings обрабатывает команду /bookings
func (h *Handlers) HandleBookings(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, ok := h.requireOwner(ctx, b, update)
	if !ok {
		return
	}
	text, markup := h.upcomingBookings(ctx)
	h.sendMessageWithKeyboard(ctx, b, chatID, text, markup)
}

// HandleCancel обрабатывает команду /cancel <ID>
func (h *Handlers) HandleCancel(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, ok := h.requireOwner(ctx, b, update)
	if !ok {
		return
	}
	h.sendMessage(ctx, b, chatID, h.cancelText(ctx, update.Message.Text))
}

// HandleBlocks обрабатывает команду /blocks
func (h *Handlers) HandleBlocks(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, ok := h.requireOwner(ctx, b, update)
	if !ok {
		return
	}
	h.sendMessage(ctx, b, chatID, h.blocksText(ctx))
}

// HandleSchedule обрабатывает команду /schedule
func (h *Handlers) HandleSchedule(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, ok := h.requireOwner(ctx, b, update)
	if !ok {
		return
	}
	h.sendMessage(ctx, b, chatID, h.scheduleText(ctx))
}

// HandlePause обрабатывает команду /pause
func (h *Handlers) HandlePause(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, ok := h.requireOwner(ctx, b, update)
	if !ok {
		return
	}
	h.sendMessage(ctx, b, chatID, h.setEnabledText(ctx, false))
}

// HandleResume обрабатывает команду /resume
func (h *Handlers) HandleResume(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, ok := h.requireOwner(ctx, b, update)
	if !ok {
		return
	}
	h.sendMessage(ctx, b, chatID, h.setEnabledText(ctx, true))
}

// upcomingBookings список ближайших записей и кнопки отмены под ним
func (h *Handlers) upcomingBookings(ctx context.Context) (string, *models.InlineKeyboardMarkup) {
	now := h.now()
	bookings, err := h.bookings.ListBookings(ctx, now, now.Add(upcomingWindow))
	if err != nil {
		h.logger.Error("Failed to list bookings", zap.Error(err))
		return "❌ Не удалось загрузить записи. Попробуйте позже.", nil
	}

	confirmed := make([]*model.Booking, 0, len(bookings))
	for _, booking := range bookings {
		if booking.IsConfirmed() {
			confirmed = append(confirmed, booking)
		}
	}

	if len(confirmed) == 0 {
		return "📭 На ближайшие две недели записей нет.", nil
	}

	loc := h.location(ctx)
	kb := keyboard.NewBuilder()

	var sb strings.Builder
	fmt.Fprintf(&sb, "📅 Ближайшие записи: %d %s\n", len(confirmed), formatting.Bookings(len(confirmed)))
	for _, booking := range confirmed {
		sb.WriteString("\n")
		sb.WriteString(formatBooking(booking, loc))
		sb.WriteString("\n")

		start := booking.StartAt.In(loc)
		kb.Row(keyboard.Button(
			fmt.Sprintf("❌ %s %s, %s", formatting.WeekdayShort(start.Weekday()), start.Format("02.01 15:04"), booking.Name),
			keyboard.WithID(keyboard.CancelBooking, booking.ID),
		))
	}
	sb.WriteString("\nОтменить: кнопкой ниже или /cancel <ID>")

	return sb.String(), kb.Build()
}

// TodayAgendaText сводка подтверждённых записей на сегодня по зоне владельца.
// Второе значение количество записей.
func (h *Handlers) TodayAgendaText(ctx context.Context) (string, int, error) {
	loc := h.location(ctx)
	now := h.now().In(loc)
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	to := from.AddDate(0, 0, 1)

	bookings, err := h.bookings.ListBookings(ctx, from, to)
	if err != nil {
		return "", 0, fmt.Errorf("list today bookings: %w", err)
	}

	var sb strings.Builder
	count := 0
	for _, booking := range bookings {
		if !booking.IsConfirmed() {
			continue
		}
		count++
		start := booking.StartAt.In(loc)
		fmt.Fprintf(&sb, "\n🕘 %s-%s %s (%s)",
			start.Format("15:04"), booking.EndAt.In(loc).Format("15:04"), booking.Name, booking.MeetingTypeID)
	}

	if count == 0 {
		return "☀️ Сегодня записей нет.", 0, nil
	}

	return fmt.Sprintf("☀️ %s: %d %s\n%s", formatting.DateWithWeekday(from), count, formatting.Bookings(count), sb.String()), count, nil
}

func (h *Handlers) cancelText(ctx context.Context, text string) string {
	args := strings.Fields(text)
	if len(args) < 2 {
		return "ℹ️ Укажите ID записи: /cancel <ID>\n\nСписок записей: /bookings"
	}

	id, err := uuid.Parse(args[1])
	if err != nil {
		return "❌ Неверный ID записи. Скопируйте его из /bookings."
	}

	return h.CancelBookingText(ctx, id)
}

// CancelBookingText отменяет бронь и возвращает ответ для владельца
func (h *Handlers) CancelBookingText(ctx context.Context, id uuid.UUID) string {
	booking, err := h.bookings.CancelBooking(ctx, id)
	switch {
	case errors.Is(err, service.ErrBookingNotFound):
		return "❌ Запись не найдена."
	case errors.Is(err, service.ErrInvalidStatusTransition):
		return "⚠️ Эта запись уже отменена или перенесена."
	case err != nil:
		h.logger.Error("Failed to cancel booking from bot",
			zap.String("booking_id", id.String()),
			zap.Error(err),
		)
		return "❌ Не удалось отменить запись. Попробуйте позже."
	}

	return fmt.Sprintf("✅ Запись отменена, время снова доступно для записи.\n\n%s",
		formatBooking(booking, h.location(ctx)))
}

func (h *Handlers) blocksText(ctx context.Context) string {
	blocks, err := h.schedule.ListBlockedRanges(ctx)
	if err != nil {
		h.logger.Error("Failed to list blocked ranges", zap.Error(err))
		return "❌ Не удалось загрузить закрытые интервалы. Попробуйте позже."
	}

	if len(blocks) == 0 {
		return "🟢 Закрытых интервалов нет."
	}

	loc := h.location(ctx)

	var sb strings.Builder
	sb.WriteString("⛔ Закрытые интервалы:\n")
	for _, block := range blocks {
		fmt.Fprintf(&sb, "\n🗓 %s", formatting.Interval(block.StartAt, block.EndAt, loc))
		if block.Reason != "" {
			fmt.Fprintf(&sb, "\n💬 %s", block.Reason)
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func (h *Handlers) scheduleText(ctx context.Context) string {
	cfg, err := h.schedule.GetScheduleConfig(ctx)
	if err != nil {
		h.logger.Error("Failed to load schedule config", zap.Error(err))
		return "❌ Не удалось загрузить настройки. Попробуйте позже."
	}

	state := "🟢 Онлайн-запись открыта"
	if !cfg.Enabled {
		state = "⏸ Онлайн-запись приостановлена"
	}

	days := make([]string, 0, len(cfg.WorkDays))
	for _, d := range cfg.WorkDays {
		days = append(days, formatting.WeekdayShort(time.Weekday(d)))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n\n", state)
	fmt.Fprintf(&sb, "🌍 Часовой пояс: %s\n", cfg.Timezone)
	fmt.Fprintf(&sb, "📆 Рабочие дни: %s\n", strings.Join(days, ", "))
	fmt.Fprintf(&sb, "🕘 Часы: %s-%s\n", minuteOfDay(cfg.DayStartMinute), minuteOfDay(cfg.DayEndMinute))
	fmt.Fprintf(&sb, "⏱ Слот: %s\n", formatting.Duration(cfg.SlotDuration()))
	fmt.Fprintf(&sb, "🔭 Горизонт: %d дн.\n", cfg.MaxDaysAhead)
	sb.WriteString("\n📌 Типы встреч:")
	for _, mt := range cfg.MeetingTypes {
		fmt.Fprintf(&sb, "\n• %s (%s)", mt.Label, formatting.Duration(mt.Duration()))
	}

	return sb.String()
}

func (h *Handlers) setEnabledText(ctx context.Context, enabled bool) string {
	cfg, err := h.schedule.GetScheduleConfig(ctx)
	if err != nil {
		h.logger.Error("Failed to load schedule config", zap.Error(err))
		return "❌ Не удалось загрузить настройки. Попробуйте позже."
	}

	if cfg.Enabled == enabled {
		if enabled {
			return "ℹ️ Онлайн-запись уже открыта."
		}
		return "ℹ️ Онлайн-запись уже приостановлена."
	}

	cfg.Enabled = enabled
	if _, err := h.schedule.UpdateScheduleConfig(ctx, cfg); err != nil {
		h.logger.Error("Failed to update schedule config", zap.Error(err))
		return "❌ Не удалось сохранить настройки. Попробуйте позже."
	}

	if enabled {
		return "▶️ Онлайн-запись возобновлена."
	}
	return "⏸ Онлайн-запись приостановлена. Уже подтверждённые записи остаются в силе."
}

// formatBooking карточка брони для сообщений бота
func formatBooking(booking *model.Booking, loc *time.Location) string {
	text := fmt.Sprintf(
		"🗓 %s\n"+
			"📌 %s (%s)\n"+
			"👤 %s <%s>\n"+
			"%s",
		formatting.Interval(booking.StartAt, booking.EndAt, loc),
		booking.MeetingTypeID,
		formatting.Duration(booking.EndAt.Sub(booking.StartAt)),
		booking.Name,
		booking.Email,
		formatting.BookingStatus(booking.Status),
	)
	if booking.Integration == model.IntegrationDegraded {
		text += "\n" + formatting.Integration(booking.Integration).String()
	}
	return text + fmt.Sprintf("\nID: %s", booking.ID)
}

func minuteOfDay(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
