package handlers

import (
	"context"
	"errors"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/smith3v/lexicon-clash/pkg/game"
	"github.com/smith3v/lexicon-clash/pkg/logger"
	"github.com/smith3v/lexicon-clash/pkg/ui"
)

func (h *Handlers) HandlePlay(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, id, ok := messageSession(update)
	if !ok {
		logger.Error("invalid update in HandlePlay")
		return
	}
	h.startRound(ctx, b, chatID, id)
}

func (h *Handlers) startRound(ctx context.Context, b *bot.Bot, chatID int64, id string) {
	res, err := h.engine.StartRound(ctx, id)
	var inProgress *game.RoundInProgressError
	var insufficient *game.InsufficientContentError
	switch {
	case err == nil:
		h.sendRound(ctx, b, chatID, res.Round, res.Stakes)
	case errors.As(err, &inProgress):
		h.resendActiveRound(ctx, b, chatID, id)
	case errors.As(err, &insufficient):
		logger.Warn("no content for round", "session_id", id, "word", insufficient.Word, "attempts", insufficient.Attempts)
		sendText(ctx, b, chatID, "Couldn't find posts for this word right now. Try /play again.")
	default:
		logger.Error("failed to start round", "session_id", id, "error", err)
		sendText(ctx, b, chatID, "Failed to start a round. Please try again later.")
	}
}

func (h *Handlers) sendRound(ctx context.Context, b *bot.Bot, chatID int64, round *game.Round, stakes game.Stakes) {
	text, keyboard, err := ui.RenderRound(round, stakes)
	if err != nil {
		logger.Error("failed to render round", "chat_id", chatID, "error", err)
		sendText(ctx, b, chatID, "Failed to show the round. Please try again later.")
		return
	}
	sendMarkdown(ctx, b, chatID, text, keyboard)
}

func (h *Handlers) resendActiveRound(ctx context.Context, b *bot.Bot, chatID int64, id string) {
	stakes, err := h.engine.Stakes(ctx, id)
	if err != nil {
		logger.Error("failed to load stakes", "session_id", id, "error", err)
		sendText(ctx, b, chatID, "Failed to load your round. Please try again later.")
		return
	}
	session, err := h.engine.Session(ctx, id)
	if err != nil || session.ActiveRound == nil {
		logger.Error("failed to load active round", "session_id", id, "error", err)
		sendText(ctx, b, chatID, "Failed to load your round. Please try again later.")
		return
	}
	sendText(ctx, b, chatID, "Finish this round first:")
	h.sendRound(ctx, b, chatID, session.ActiveRound, stakes.Stakes)
}

func (h *Handlers) HandleChoiceCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	cc, ok := newCallbackContext(ctx, b, update)
	if !ok {
		return
	}

	action, err := ui.ParseCallbackData(update.CallbackQuery.Data)
	if err != nil || action.Kind != ui.ActionChoice {
		logger.Error("failed to parse choice callback", "data", update.CallbackQuery.Data, "error", err)
		cc.answer("Unknown command")
		return
	}

	// Buttons of an older message must not answer the current round.
	stakes, err := h.engine.Stakes(ctx, cc.sessionID)
	var noRound *game.NoActiveRoundError
	switch {
	case errors.As(err, &noRound):
		cc.answer("This round is already over")
		return
	case err != nil:
		logger.Error("failed to load stakes", "session_id", cc.sessionID, "error", err)
		cc.answer("Failed to load your round")
		return
	case !action.MatchesRound(stakes.RoundID):
		cc.answer("This round is no longer active")
		return
	}

	res, err := h.engine.SubmitChoice(ctx, cc.sessionID, action.Choice)
	var already *game.AlreadyResolvedError
	switch {
	case errors.As(err, &already), errors.As(err, &noRound):
		cc.answer("This round is already over")
		return
	case err != nil:
		logger.Error("failed to submit choice", "session_id", cc.sessionID, "error", err)
		cc.answer("Failed to record your choice")
		return
	}

	text, keyboard, err := ui.RenderResolved(res.Round, res.Stats)
	if err != nil {
		logger.Error("failed to render resolved round", "session_id", cc.sessionID, "error", err)
		cc.answer("Failed to show the result")
		return
	}
	cc.answer("")
	cc.edit(text, keyboard)
}

func (h *Handlers) HandleNextCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	cc, ok := newCallbackContext(ctx, b, update)
	if !ok {
		return
	}
	cc.answer("")
	h.startRound(ctx, b, cc.msg.Chat.ID, cc.sessionID)
}

func (h *Handlers) HandleStakes(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, id, ok := messageSession(update)
	if !ok {
		logger.Error("invalid update in HandleStakes")
		return
	}
	res, err := h.engine.Stakes(ctx, id)
	var noRound *game.NoActiveRoundError
	if errors.As(err, &noRound) {
		sendText(ctx, b, chatID, "No round in progress. Send /play to start one.")
		return
	}
	if err != nil {
		logger.Error("failed to load stakes", "session_id", id, "error", err)
		sendText(ctx, b, chatID, "Failed to load your round. Please try again later.")
		return
	}
	sendMarkdown(ctx, b, chatID, ui.RenderStakes(res.IsWildcard, res.CurrentStreak, res.Stakes), nil)
}

func (h *Handlers) HandleStats(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, id, ok := messageSession(update)
	if !ok {
		logger.Error("invalid update in HandleStats")
		return
	}
	session, err := h.engine.Session(ctx, id)
	if err != nil {
		logger.Error("failed to load session", "session_id", id, "error", err)
		sendText(ctx, b, chatID, "Failed to load your stats. Please try again later.")
		return
	}
	sendMarkdown(ctx, b, chatID, ui.RenderStats(session.Stats), nil)
}
