package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/booking_engine/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Telegram ограничивает ботов примерно одним сообщением в секунду на чат
const (
	sendInterval = time.Second
	sendBurst    = 3
)

// MessageSender часть API бота, нужная для отправки сообщений
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// TelegramNotifier пишет владельцу в Telegram о каждой новой брони
type TelegramNotifier struct {
	sender      MessageSender
	ownerChatID int64
	location    func() *time.Location
	limiter     *rate.Limiter
	logger      *zap.Logger
}

// NewTelegramNotifier создаёт уведомитель. location отдаёт зону владельца
// для форматирования времени; nil означает UTC.
func NewTelegramNotifier(sender MessageSender, ownerChatID int64, location func() *time.Location, logger *zap.Logger) *TelegramNotifier {
	if location == nil {
		location = func() *time.Location { return time.UTC }
	}
	return &TelegramNotifier{
		sender:      sender,
		ownerChatID: ownerChatID,
		location:    location,
		limiter:     rate.NewLimiter(rate.Every(sendInterval), sendBurst),
		logger:      logger,
	}
}

// BookingCreated отправляет владельцу карточку новой брони
func (n *TelegramNotifier) BookingCreated(ctx context.Context, booking *model.Booking, meetingType model.MeetingType) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for telegram rate limit: %w", err)
	}

	_, err := n.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: n.ownerChatID,
		Text:   FormatBookingCreated(booking, meetingType, n.location()),
	})
	if err != nil {
		return fmt.Errorf("send telegram notification: %w", err)
	}

	n.logger.Debug("Booking notification sent",
		zap.String("booking_id", booking.ID.String()),
		zap.Int64("chat_id", n.ownerChatID),
	)
	return nil
}

// FormatBookingCreated текст уведомления о новой записи
func FormatBookingCreated(booking *model.Booking, meetingType model.MeetingType, loc *time.Location) string {
	start := booking.StartAt.In(loc)
	end := booking.EndAt.In(loc)

	text := fmt.Sprintf(
		"📅 Новая запись\n\n"+
			"🗓 %s, %s-%s\n"+
			"📌 %s (%d мин)\n"+
			"👤 %s <%s>",
		start.Format("02.01.2006"),
		start.Format("15:04"),
		end.Format("15:04"),
		meetingType.Label,
		meetingType.DurationMinutes,
		booking.Name,
		booking.Email,
	)

	if booking.ClientTimezone != "" {
		text += fmt.Sprintf("\n🌍 Часовой пояс клиента: %s", booking.ClientTimezone)
	}
	if booking.Reason != "" {
		text += fmt.Sprintf("\n\n💬 %s", booking.Reason)
	}
	text += fmt.Sprintf("\n\nID: %s", booking.ID)

	return text
}
