package callbacks

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Freeeeeet/booking_engine/internal/controller/keyboard"
)

// BookingCanceller отменяет бронь и формирует ответ владельцу
type BookingCanceller interface {
	CancelBookingText(ctx context.Context, id uuid.UUID) string
}

// Handler обрабатывает нажатия на inline-кнопки
type Handler struct {
	canceller   BookingCanceller
	ownerChatID int64
	logger      *zap.Logger
}

// NewHandler создаёт обработчик callbacks
func NewHandler(canceller BookingCanceller, ownerChatID int64, logger *zap.Logger) *Handler {
	return &Handler{
		canceller:   canceller,
		ownerChatID: ownerChatID,
		logger:      logger,
	}
}

// reply что показать после нажатия: новый текст сообщения и/или всплывашка
type reply struct {
	text   string
	markup *models.InlineKeyboardMarkup
	notice string
	alert  bool
}

// HandleCallbackQuery главный обработчик callback queries
func (h *Handler) HandleCallbackQuery(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}

	callback := update.CallbackQuery
	chatID := chatIDOf(callback)

	h.logger.Info("Callback received",
		zap.String("data", callback.Data),
		zap.Int64("chat_id", chatID),
	)

	if h.ownerChatID == 0 || chatID != h.ownerChatID {
		h.logger.Warn("Callback from non-owner chat ignored", zap.Int64("chat_id", chatID))
		answer(ctx, b, callback.ID, "⛔ Недоступно", true)
		return
	}

	r := h.respond(ctx, callback.Data)

	if msg := callback.Message.Message; msg != nil && r.text != "" {
		params := &bot.EditMessageTextParams{
			ChatID:    msg.Chat.ID,
			MessageID: msg.ID,
			Text:      r.text,
		}
		if r.markup != nil {
			params.ReplyMarkup = r.markup
		}
		if _, err := b.EditMessageText(ctx, params); err != nil {
			h.logger.Error("Failed to edit message", zap.Int64("chat_id", chatID), zap.Error(err))
		}
	}

	answer(ctx, b, callback.ID, r.notice, r.alert)
}

// respond разбирает callback data и выполняет действие
func (h *Handler) respond(ctx context.Context, data string) reply {
	if id, ok := keyboard.ParseID(data, keyboard.CancelBooking); ok {
		kb := keyboard.NewBuilder().Row(
			keyboard.Button("✅ Да, отменить", keyboard.WithID(keyboard.ConfirmCancel, id)),
			keyboard.Button("↩️ Оставить", keyboard.KeepBooking),
		)
		return reply{
			text:   "❓ Отменить запись " + id.String() + "?\n\nВремя снова станет доступно для записи.",
			markup: kb.Build(),
		}
	}

	if id, ok := keyboard.ParseID(data, keyboard.ConfirmCancel); ok {
		return reply{
			text:   h.canceller.CancelBookingText(ctx, id),
			notice: "Готово",
		}
	}

	if data == keyboard.KeepBooking {
		return reply{
			text:   "👌 Запись оставлена без изменений.",
			notice: "Ок",
		}
	}

	h.logger.Warn("Unknown callback data", zap.String("data", data))
	return reply{notice: "❌ Неизвестное действие", alert: true}
}

func chatIDOf(callback *models.CallbackQuery) int64 {
	switch {
	case callback.Message.Message != nil:
		return callback.Message.Message.Chat.ID
	case callback.Message.InaccessibleMessage != nil:
		return callback.Message.InaccessibleMessage.Chat.ID
	default:
		return callback.From.ID
	}
}

func answer(ctx context.Context, b *bot.Bot, callbackID, text string, alert bool) {
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       alert,
	})
}
