package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/smith3v/lexicon-clash/pkg/logger"
	"github.com/smith3v/lexicon-clash/pkg/service"
	"github.com/smith3v/lexicon-clash/pkg/ui"
)

func (h *Handlers) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, id, ok := messageSession(update)
	if !ok {
		logger.Error("invalid update in HandleStart")
		return
	}

	res, err := h.engine.InitSession(ctx, id, service.InitOptions{})
	if err != nil {
		logger.Error("failed to init session", "session_id", id, "error", err)
		sendText(ctx, b, chatID, "Failed to load your game. Please try again later.")
		return
	}

	text := "Welcome to " + ui.HelpText
	if res.Session.Stats.RoundsPlayed > 0 {
		text = "Welcome back\\!\n" + ui.RenderStats(res.Session.Stats) + "\n\n" + ui.HelpText
	}
	sendMarkdown(ctx, b, chatID, text, nil)
}

func (h *Handlers) HandleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, _, ok := messageSession(update)
	if !ok {
		logger.Error("invalid update in HandleHelp")
		return
	}
	sendMarkdown(ctx, b, chatID, ui.HelpText, nil)
}

// DefaultHandler answers anything that is not a known command with the help text.
func DefaultHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil {
		return
	}
	if update.Message.Chat.ID == 0 {
		logger.Error("chat ID is zero in DefaultHandler")
		return
	}
	sendMarkdown(ctx, b, update.Message.Chat.ID, ui.HelpText, nil)
}
