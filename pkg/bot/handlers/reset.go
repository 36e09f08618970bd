package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/smith3v/lexicon-clash/pkg/logger"
	"github.com/smith3v/lexicon-clash/pkg/ui"
)

func (h *Handlers) HandleReset(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, _, ok := messageSession(update)
	if !ok {
		logger.Error("invalid update in HandleReset")
		return
	}
	text, keyboard, err := ui.RenderResetConfirm()
	if err != nil {
		logger.Error("failed to render reset confirmation", "chat_id", chatID, "error", err)
		sendText(ctx, b, chatID, "Failed to reset. Please try again later.")
		return
	}
	sendMarkdown(ctx, b, chatID, text, keyboard)
}

func (h *Handlers) HandleResetCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	cc, ok := newCallbackContext(ctx, b, update)
	if !ok {
		return
	}
	action, err := ui.ParseCallbackData(update.CallbackQuery.Data)
	if err != nil {
		logger.Error("failed to parse reset callback", "data", update.CallbackQuery.Data, "error", err)
		cc.answer("Unknown command")
		return
	}

	switch action.Kind {
	case ui.ActionResetCancel:
		cc.answer("")
		cc.edit("Reset cancelled\\.", nil)
	case ui.ActionResetAsk:
		if _, err := h.engine.ResetSession(ctx, cc.sessionID); err != nil {
			logger.Error("failed to reset session", "session_id", cc.sessionID, "error", err)
			cc.answer("Failed to reset")
			return
		}
		logger.Info("session reset", "session_id", cc.sessionID)
		cc.answer("")
		cc.edit("Progress cleared\\. Send /play to start again\\.", nil)
	default:
		cc.answer("Unknown command")
	}
}
