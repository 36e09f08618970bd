// Package handlers serves the game over Telegram.
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/smith3v/lexicon-clash/pkg/game"
	"github.com/smith3v/lexicon-clash/pkg/logger"
	"github.com/smith3v/lexicon-clash/pkg/service"
	"github.com/smith3v/lexicon-clash/pkg/ui"
)

// Engine is the subset of *service.Engine the bot needs.
type Engine interface {
	InitSession(ctx context.Context, id string, opts service.InitOptions) (*service.InitResult, error)
	StartRound(ctx context.Context, id string) (*service.RoundStartedResult, error)
	SubmitChoice(ctx context.Context, id string, choice int) (*service.RoundResolvedResult, error)
	ResetSession(ctx context.Context, id string) (*service.ResetResult, error)
	Stakes(ctx context.Context, id string) (*service.StakesResult, error)
	Journal(ctx context.Context, id string) ([]game.JournalEntry, error)
	Session(ctx context.Context, id string) (*game.Session, error)
}

type Handlers struct {
	engine Engine
	now    func() time.Time
}

type Option func(*Handlers)

func WithNow(now func() time.Time) Option {
	return func(h *Handlers) { h.now = now }
}

func New(engine Engine, opts ...Option) *Handlers {
	h := &Handlers{engine: engine, now: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register wires commands and inline buttons to b.
func (h *Handlers) Register(b *bot.Bot) {
	b.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, h.HandleStart)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, h.HandleHelp)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/play", bot.MatchTypeExact, h.HandlePlay)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/stakes", bot.MatchTypeExact, h.HandleStakes)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/stats", bot.MatchTypeExact, h.HandleStats)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/journal", bot.MatchTypeExact, h.HandleJournal)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/reset", bot.MatchTypeExact, h.HandleReset)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, string(ui.ActionChoice)+":", bot.MatchTypePrefix, h.HandleChoiceCallback)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, string(ui.ActionNext)+":", bot.MatchTypePrefix, h.HandleNextCallback)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, string(ui.ActionResetAsk)+":", bot.MatchTypePrefix, h.HandleResetCallback)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, string(ui.ActionResetCancel)+":", bot.MatchTypePrefix, h.HandleResetCallback)
}

// SessionID keys a game session by chat and player, so the same player keeps
// separate sessions in different chats.
func SessionID(chatID, userID int64) string {
	return fmt.Sprintf("tg:%d:%d", chatID, userID)
}

func messageSession(update *models.Update) (int64, string, bool) {
	if update == nil || update.Message == nil || update.Message.From == nil || update.Message.Chat.ID == 0 {
		return 0, "", false
	}
	return update.Message.Chat.ID, SessionID(update.Message.Chat.ID, update.Message.From.ID), true
}

func sendText(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}); err != nil {
		logger.Error("failed to send message", "chat_id", chatID, "error", err)
	}
}

func sendMarkdown(ctx context.Context, b *bot.Bot, chatID int64, text string, keyboard *models.InlineKeyboardMarkup) {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeMarkdown,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}
	if _, err := b.SendMessage(ctx, params); err != nil {
		logger.Error("failed to send message", "chat_id", chatID, "error", err)
	}
}

// callbackContext pulls the chat and session out of a button press and
// answers the query at most once.
type callbackContext struct {
	ctx       context.Context
	b         *bot.Bot
	queryID   string
	answered  bool
	msg       *models.Message
	sessionID string
}

func newCallbackContext(ctx context.Context, b *bot.Bot, update *models.Update) (*callbackContext, bool) {
	if update == nil || update.CallbackQuery == nil {
		logger.Error("invalid update in callback handler")
		return nil, false
	}
	cc := &callbackContext{ctx: ctx, b: b, queryID: update.CallbackQuery.ID}
	message := update.CallbackQuery.Message
	if message.Type != models.MaybeInaccessibleMessageTypeMessage || message.Message == nil || message.Message.Chat.ID == 0 {
		logger.Error("callback query message is inaccessible", "user_id", update.CallbackQuery.From.ID)
		cc.answer("Message is not available")
		return nil, false
	}
	cc.msg = message.Message
	cc.sessionID = SessionID(cc.msg.Chat.ID, update.CallbackQuery.From.ID)
	return cc, true
}

func (cc *callbackContext) answer(text string) {
	if cc.answered || cc.queryID == "" {
		return
	}
	if _, err := cc.b.AnswerCallbackQuery(cc.ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: cc.queryID,
		Text:            text,
	}); err != nil {
		logger.Error("failed to answer callback query", "error", err)
	}
	cc.answered = true
}

func (cc *callbackContext) edit(text string, keyboard *models.InlineKeyboardMarkup) {
	params := &bot.EditMessageTextParams{
		ChatID:    cc.msg.Chat.ID,
		MessageID: cc.msg.ID,
		Text:      text,
		ParseMode: models.ParseModeMarkdown,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}
	if _, err := cc.b.EditMessageText(cc.ctx, params); err != nil {
		logger.Error("failed to edit message", "session_id", cc.sessionID, "error", err)
	}
}
