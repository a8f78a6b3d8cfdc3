package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// requireOwner пропускает только сообщения из чата владельца.
// Возвращает chatID и true если OK.
func (h *Handlers) requireOwner(ctx context.Context, b *bot.Bot, update *models.Update) (int64, bool) {
	if update.Message == nil {
		return 0, false
	}

	chatID := update.Message.Chat.ID
	if !h.isOwner(update) {
		h.logger.Warn("Command from non-owner chat ignored",
			zap.Int64("chat_id", chatID),
			zap.String("text", update.Message.Text),
		)
		h.sendMessage(ctx, b, chatID, "⛔ Этот бот управляет расписанием владельца и недоступен для других пользователей.")
		return 0, false
	}

	return chatID, true
}

func (h *Handlers) isOwner(update *models.Update) bool {
	return update.Message != nil && h.ownerChatID != 0 && update.Message.Chat.ID == h.ownerChatID
}

// sendMessage отправляет сообщение и логирует если не удалось
func (h *Handlers) sendMessage(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	h.sendMessageWithKeyboard(ctx, b, chatID, text, nil)
}

func (h *Handlers) sendMessageWithKeyboard(ctx context.Context, b *bot.Bot, chatID int64, text string, markup *models.InlineKeyboardMarkup) {
	params := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}

	_, err := b.SendMessage(ctx, params)
	if err != nil {
		h.logger.Error("Failed to send message",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
	}
}
