package ui

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/smith3v/lexicon-clash/pkg/game"
)

const (
	maxTitleRunes = 200
	maxBodyRunes  = 400
)

const HelpText = "Lexicon Clash\n\n" +
	"Each round shows a word and two posts\\. Pick the post you think uses the word more often\\.\n\n" +
	"/play \\- start a round\n" +
	"/stakes \\- points at stake in the current round\n" +
	"/stats \\- your score and streaks\n" +
	"/journal \\- download the words you played\n" +
	"/reset \\- wipe your progress"

// RenderRound renders a pending round. Match counts are never shown here.
func RenderRound(round *game.Round, stakes game.Stakes) (string, *models.InlineKeyboardMarkup, error) {
	if round == nil {
		return "", nil, fmt.Errorf("render round: nil round")
	}
	left, err := BuildChoiceCallback(round.ID, 0)
	if err != nil {
		return "", nil, err
	}
	right, err := BuildChoiceCallback(round.ID, 1)
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	if round.IsWildcard {
		b.WriteString("⚡ *Wildcard round* ⚡\n\n")
	}
	fmt.Fprintf(&b, "*%s*\n", bot.EscapeMarkdown(round.Word.Text))
	if round.Word.Definition != "" {
		fmt.Fprintf(&b, "_%s_\n", bot.EscapeMarkdown(round.Word.Definition))
	}
	b.WriteString("\nWhich post uses the word more?\n")
	for i, card := range round.Cards {
		b.WriteString("\n")
		writeCard(&b, i, card, false)
	}
	fmt.Fprintf(&b, "\nWin %s · Loss %s", bot.EscapeMarkdown(signed(stakes.Win)), bot.EscapeMarkdown(signed(stakes.Loss)))

	keyboard := &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "Post 1", CallbackData: left},
				{Text: "Post 2", CallbackData: right},
			},
		},
	}
	return b.String(), keyboard, nil
}

// RenderResolved renders a completed round with counts, excerpts and the
// outcome, plus a button for the next round.
func RenderResolved(round *game.Round, stats game.Stats) (string, *models.InlineKeyboardMarkup, error) {
	if !round.Completed() {
		return "", nil, fmt.Errorf("render resolved: round is not completed")
	}
	next, err := BuildNextCallback()
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n", bot.EscapeMarkdown(round.Word.Text))
	for i, card := range round.Cards {
		b.WriteString("\n")
		writeCard(&b, i, card, true)
		marker := ""
		if card.IsWinner && round.Winner != game.WinnerTie {
			marker = " 🏆"
		}
		if round.PlayerChoice != nil && *round.PlayerChoice == i {
			marker += " \\(your pick\\)"
		}
		fmt.Fprintf(&b, "Matches: *%d*%s\n", card.Match.Count, marker)
		for _, excerpt := range card.Match.Excerpts {
			fmt.Fprintf(&b, "\\> %s\n", highlightExcerpt(excerpt))
		}
	}

	points := 0
	if round.PointsEarned != nil {
		points = *round.PointsEarned
	}
	b.WriteString("\n")
	switch round.Winner {
	case game.WinnerPlayer:
		fmt.Fprintf(&b, "You win\\! %s points", bot.EscapeMarkdown(signed(points)))
	case game.WinnerOpponent:
		fmt.Fprintf(&b, "Not this time\\. %s points", bot.EscapeMarkdown(signed(points)))
	default:
		b.WriteString("It's a tie\\. No points change hands")
	}
	b.WriteString("\n")
	b.WriteString(RenderStats(stats))

	keyboard := &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "Next round", CallbackData: next}},
		},
	}
	return b.String(), keyboard, nil
}

func RenderStats(stats game.Stats) string {
	return fmt.Sprintf(
		"Score: *%d* · Streak: %d \\(best %d\\)\nRounds: %d · W/L/T: %d/%d/%d · Words seen: %d",
		stats.CumulativeScore,
		stats.CurrentStreak,
		stats.LongestStreak,
		stats.RoundsPlayed,
		stats.Wins,
		stats.Losses,
		stats.Ties,
		len(stats.UniqueWordsSeen),
	)
}

func RenderStakes(wildcard bool, streak int, stakes game.Stakes) string {
	kind := "Regular round"
	if wildcard {
		kind = "Wildcard round"
	}
	return fmt.Sprintf(
		"%s, streak %d\nWin %s · Loss %s · Tie %s",
		kind,
		streak,
		bot.EscapeMarkdown(signed(stakes.Win)),
		bot.EscapeMarkdown(signed(stakes.Loss)),
		bot.EscapeMarkdown(signed(stakes.Tie)),
	)
}

// RenderResetConfirm asks before wiping a session.
func RenderResetConfirm() (string, *models.InlineKeyboardMarkup, error) {
	yes, err := BuildResetCallback(true)
	if err != nil {
		return "", nil, err
	}
	no, err := BuildResetCallback(false)
	if err != nil {
		return "", nil, err
	}
	keyboard := &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "Reset", CallbackData: yes},
				{Text: "Cancel", CallbackData: no},
			},
		},
	}
	return "Reset your score, streaks and journal? This cannot be undone\\.", keyboard, nil
}

func writeCard(b *strings.Builder, index int, card game.Card, revealed bool) {
	title := card.Item.Title
	if title == "" {
		title = "Untitled"
	}
	fmt.Fprintf(b, "*%d\\.* %s\n", index+1, bot.EscapeMarkdown(truncate(title, maxTitleRunes)))
	if !revealed && card.Item.Body != "" {
		fmt.Fprintf(b, "%s\n", bot.EscapeMarkdown(truncate(card.Item.Body, maxBodyRunes)))
	}
	// Engagement breaks zero-count ties, so it only shows once the round is over.
	switch {
	case revealed && card.Item.SourceGroup != "":
		fmt.Fprintf(b, "_%s_ · ⬆ %s\n", bot.EscapeMarkdown(card.Item.SourceGroup), bot.EscapeMarkdown(strconv.Itoa(card.Item.PrimaryEngagement)))
	case revealed:
		fmt.Fprintf(b, "⬆ %s\n", bot.EscapeMarkdown(strconv.Itoa(card.Item.PrimaryEngagement)))
	case card.Item.SourceGroup != "":
		fmt.Fprintf(b, "_%s_\n", bot.EscapeMarkdown(card.Item.SourceGroup))
	}
}

// highlightExcerpt converts **term** markers into MarkdownV2 bold.
func highlightExcerpt(excerpt string) string {
	parts := strings.Split(excerpt, "**")
	var b strings.Builder
	for i, part := range parts {
		escaped := bot.EscapeMarkdown(part)
		// An unpaired trailing marker is plain text.
		if i%2 == 1 && i < len(parts)-1 && part != "" {
			b.WriteString("*" + escaped + "*")
			continue
		}
		if i%2 == 1 && i == len(parts)-1 {
			b.WriteString(bot.EscapeMarkdown("**"))
		}
		b.WriteString(escaped)
	}
	return b.String()
}

func truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit])) + "…"
}

func signed(v int) string {
	if v > 0 {
		return fmt.Sprintf("+%d", v)
	}
	return fmt.Sprintf("%d", v)
}
