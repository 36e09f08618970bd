package handlers

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/smith3v/lexicon-clash/pkg/export"
	"github.com/smith3v/lexicon-clash/pkg/logger"
)

func (h *Handlers) HandleJournal(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, id, ok := messageSession(update)
	if !ok {
		logger.Error("invalid update in HandleJournal")
		return
	}

	entries, err := h.engine.Journal(ctx, id)
	if err != nil {
		logger.Error("failed to load journal", "session_id", id, "error", err)
		sendText(ctx, b, chatID, "Failed to export your journal. Please try again later.")
		return
	}
	if len(entries) == 0 {
		sendText(ctx, b, chatID, "Your journal is empty. Play a round with /play first.")
		return
	}

	export.SortEntriesForExport(entries)
	data, err := export.BuildJournalCSV(entries)
	if err != nil {
		logger.Error("failed to build journal CSV", "session_id", id, "error", err)
		sendText(ctx, b, chatID, "Failed to export your journal. Please try again later.")
		return
	}

	caption := fmt.Sprintf("Your journal (%d rounds).", len(entries))
	if _, err := b.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID: chatID,
		Document: &models.InputFileUpload{
			Filename: export.ExportFilename(h.now()),
			Data:     bytes.NewReader(data),
		},
		Caption: caption,
	}); err != nil {
		logger.Error("failed to send journal document", "session_id", id, "error", err)
		sendText(ctx, b, chatID, "Failed to export your journal. Please try again later.")
	}
}
