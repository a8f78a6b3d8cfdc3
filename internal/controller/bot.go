package controller

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/Freeeeeet/booking_engine/internal/controller/callbacks"
	"github.com/Freeeeeet/booking_engine/internal/controller/handlers"
)

type BotController struct {
	bot             *bot.Bot
	handlers        *handlers.Handlers
	callbackHandler *callbacks.Handler
	ownerChatID     int64
	logger          *zap.Logger
}

func NewBotController(
	botInstance *bot.Bot,
	bookings handlers.BookingManager,
	schedule handlers.ScheduleManager,
	availability handlers.AvailabilityReader,
	ownerChatID int64,
	logger *zap.Logger,
) *BotController {
	cmdHandlers := handlers.NewHandlers(bookings, schedule, availability, ownerChatID, logger)

	// Кнопки отмены работают через те же обработчики, что и /cancel
	callbackHandler := callbacks.NewHandler(cmdHandlers, ownerChatID, logger)

	return &BotController{
		bot:             botInstance,
		handlers:        cmdHandlers,
		callbackHandler: callbackHandler,
		ownerChatID:     ownerChatID,
		logger:          logger,
	}
}

// RegisterHandlers регистрирует все обработчики команд
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, c.handlers.HandleStart)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, c.handlers.HandleHelp)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/bookings", bot.MatchTypeExact, c.handlers.HandleBookings)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/week", bot.MatchTypeExact, c.handlers.HandleWeek)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/blocks", bot.MatchTypeExact, c.handlers.HandleBlocks)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/schedule", bot.MatchTypeExact, c.handlers.HandleSchedule)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/pause", bot.MatchTypeExact, c.handlers.HandlePause)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/resume", bot.MatchTypeExact, c.handlers.HandleResume)

	// /cancel <ID>
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/cancel", bot.MatchTypePrefix, c.handlers.HandleCancel)

	// Обработчик нажатий на inline кнопки
	c.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, c.callbackHandler.HandleCallbackQuery)

	return c.setCommands(ctx)
}

// setCommands устанавливает список команд в меню бота
func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "bookings", Description: "📅 Ближайшие записи"},
		{Command: "week", Description: "🖼 Неделя картинкой"},
		{Command: "cancel", Description: "❌ Отменить запись по ID"},
		{Command: "blocks", Description: "⛔ Закрытые интервалы"},
		{Command: "schedule", Description: "🗓 Настройки расписания"},
		{Command: "pause", Description: "⏸ Приостановить онлайн-запись"},
		{Command: "resume", Description: "▶️ Возобновить онлайн-запись"},
		{Command: "help", Description: "❓ Справка по командам"},
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: commands,
	})

	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("✅ Bot commands menu set")
	return nil
}

// Start запускает бота; блокируется до отмены ctx
func (c *BotController) Start(ctx context.Context) error {
	c.logger.Info("Starting bot...")
	c.bot.Start(ctx)
	return nil
}

// SendDailyAgenda отправляет владельцу записи на сегодня; пустой день не шлётся
func (c *BotController) SendDailyAgenda(ctx context.Context) error {
	text, count, err := c.handlers.TodayAgendaText(ctx)
	if err != nil {
		return err
	}
	if count == 0 {
		c.logger.Debug("No bookings today, agenda skipped")
		return nil
	}

	_, err = c.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: c.ownerChatID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("send daily agenda: %w", err)
	}

	c.logger.Info("Daily agenda sent", zap.Int("bookings", count))
	return nil
}
