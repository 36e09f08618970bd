package handlers

import (
	"context"
	"strings"
	"testing"

	"github.com/smith3v/lexicon-clash/pkg/game"
	"github.com/smith3v/lexicon-clash/pkg/ui"
)

const testUser int64 = 501

func playRound(t *testing.T, f *fixture) string {
	t.Helper()
	f.h.HandlePlay(context.Background(), f.bot, newTestUpdate("/play", testUser))
	stakes, err := f.engine.Stakes(context.Background(), SessionID(testUser, testUser))
	if err != nil {
		t.Fatalf("expected an active round: %v", err)
	}
	return stakes.RoundID
}

func TestHandlePlaySendsRound(t *testing.T) {
	f := newFixture(t)

	roundID := playRound(t, f)

	got := f.client.lastMessageText(t)
	if !strings.Contains(got, "post 1") || !strings.Contains(got, "Which post") {
		t.Fatalf("expected round message, got %q", got)
	}
	if strings.Contains(got, "Matches") {
		t.Fatalf("pending round must not reveal counts, got %q", got)
	}
	req := f.client.lastCall(t, "sendMessage")
	markup, _ := multipartField(t, req, "reply_markup")
	want, _ := ui.BuildChoiceCallback(roundID, 1)
	if !strings.Contains(markup, want) {
		t.Fatalf("expected choice button %q in %q", want, markup)
	}
}

func TestHandlePlayWhileActiveResendsRound(t *testing.T) {
	f := newFixture(t)
	first := playRound(t, f)

	f.h.HandlePlay(context.Background(), f.bot, newTestUpdate("/play", testUser))

	if f.builder.n != 1 {
		t.Fatalf("expected no second build, got %d", f.builder.n)
	}
	calls := f.client.calls("sendMessage")
	if len(calls) != 3 {
		t.Fatalf("expected notice plus round, got %d messages", len(calls))
	}
	notice, _ := multipartField(t, calls[1], "text")
	if !strings.Contains(notice, "Finish this round") {
		t.Fatalf("unexpected notice %q", notice)
	}
	stakes, _ := f.engine.Stakes(context.Background(), SessionID(testUser, testUser))
	if stakes.RoundID != first {
		t.Fatalf("active round changed")
	}
}

func TestHandlePlayInsufficientContent(t *testing.T) {
	f := newFixture(t)
	f.builder.err = &game.InsufficientContentError{Word: "ubiquitous", Attempts: 5}

	f.h.HandlePlay(context.Background(), f.bot, newTestUpdate("/play", testUser))

	if got := f.client.lastMessageText(t); !strings.Contains(got, "Couldn't find posts") {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestHandleChoiceCallbackResolvesRound(t *testing.T) {
	f := newFixture(t)
	roundID := playRound(t, f)

	data, _ := ui.BuildChoiceCallback(roundID, 0)
	f.h.HandleChoiceCallback(context.Background(), f.bot, newTestCallbackUpdate(data, testUser, testUser, 7))

	got := f.client.lastEditedText(t)
	if !strings.Contains(got, "You win") || !strings.Contains(got, "Matches: *3*") {
		t.Fatalf("expected resolved round, got %q", got)
	}
	if answer := f.client.lastCallbackAnswer(t); answer != "" {
		t.Fatalf("expected silent answer, got %q", answer)
	}
	if _, err := f.engine.Stakes(context.Background(), SessionID(testUser, testUser)); err == nil {
		t.Fatalf("round should be resolved")
	}
}

func TestHandleChoiceCallbackRejectsStaleRound(t *testing.T) {
	f := newFixture(t)
	playRound(t, f)

	f.h.HandleChoiceCallback(context.Background(), f.bot, newTestCallbackUpdate("c:deadbeef:0", testUser, testUser, 7))

	if answer := f.client.lastCallbackAnswer(t); !strings.Contains(answer, "no longer active") {
		t.Fatalf("unexpected answer %q", answer)
	}
	if len(f.client.calls("editMessageText")) != 0 {
		t.Fatalf("stale button must not edit the message")
	}
	if _, err := f.engine.Stakes(context.Background(), SessionID(testUser, testUser)); err != nil {
		t.Fatalf("round should still be pending: %v", err)
	}
}

func TestHandleChoiceCallbackAfterResolve(t *testing.T) {
	f := newFixture(t)
	roundID := playRound(t, f)
	data, _ := ui.BuildChoiceCallback(roundID, 0)
	f.h.HandleChoiceCallback(context.Background(), f.bot, newTestCallbackUpdate(data, testUser, testUser, 7))

	f.h.HandleChoiceCallback(context.Background(), f.bot, newTestCallbackUpdate(data, testUser, testUser, 7))

	if answer := f.client.lastCallbackAnswer(t); !strings.Contains(answer, "already over") {
		t.Fatalf("unexpected answer %q", answer)
	}
	if len(f.client.calls("editMessageText")) != 1 {
		t.Fatalf("expected a single edit")
	}
}

func TestHandleChoiceCallbackBadData(t *testing.T) {
	f := newFixture(t)

	f.h.HandleChoiceCallback(context.Background(), f.bot, newTestCallbackUpdate("c:bad", testUser, testUser, 7))

	if answer := f.client.lastCallbackAnswer(t); answer != "Unknown command" {
		t.Fatalf("unexpected answer %q", answer)
	}
}

func TestHandleNextCallbackStartsRound(t *testing.T) {
	f := newFixture(t)
	roundID := playRound(t, f)
	data, _ := ui.BuildChoiceCallback(roundID, 0)
	f.h.HandleChoiceCallback(context.Background(), f.bot, newTestCallbackUpdate(data, testUser, testUser, 7))

	next, _ := ui.BuildNextCallback()
	f.h.HandleNextCallback(context.Background(), f.bot, newTestCallbackUpdate(next, testUser, testUser, 7))

	stakes, err := f.engine.Stakes(context.Background(), SessionID(testUser, testUser))
	if err != nil {
		t.Fatalf("expected a new round: %v", err)
	}
	if stakes.RoundID == roundID || stakes.CurrentStreak != 1 {
		t.Fatalf("unexpected stakes %+v", stakes)
	}
	if len(f.client.calls("sendMessage")) != 2 {
		t.Fatalf("expected the new round to be sent")
	}
}

func TestHandleStakes(t *testing.T) {
	f := newFixture(t)

	f.h.HandleStakes(context.Background(), f.bot, newTestUpdate("/stakes", testUser))
	if got := f.client.lastMessageText(t); !strings.Contains(got, "No round in progress") {
		t.Fatalf("unexpected message %q", got)
	}

	playRound(t, f)
	f.h.HandleStakes(context.Background(), f.bot, newTestUpdate("/stakes", testUser))
	if got := f.client.lastMessageText(t); !strings.Contains(got, "Regular round") {
		t.Fatalf("unexpected stakes message %q", got)
	}
}

func TestHandleStats(t *testing.T) {
	f := newFixture(t)
	roundID := playRound(t, f)
	data, _ := ui.BuildChoiceCallback(roundID, 0)
	f.h.HandleChoiceCallback(context.Background(), f.bot, newTestCallbackUpdate(data, testUser, testUser, 7))

	f.h.HandleStats(context.Background(), f.bot, newTestUpdate("/stats", testUser))

	got := f.client.lastMessageText(t)
	if !strings.Contains(got, "Score: *10*") || !strings.Contains(got, "W/L/T: 1/0/0") {
		t.Fatalf("unexpected stats %q", got)
	}
	session, err := f.engine.Session(context.Background(), SessionID(testUser, testUser))
	if err != nil {
		t.Fatalf("Session returned error: %v", err)
	}
	if session.State() != game.StateRoundComplete {
		t.Fatalf("stats must not clear the resolved round, got %q", session.State())
	}
}

func TestSessionsAreKeyedByChatAndUser(t *testing.T) {
	f := newFixture(t)
	playRound(t, f)

	update := newTestUpdate("/stakes", testUser)
	update.Message.Chat.ID = -100
	f.h.HandleStakes(context.Background(), f.bot, update)

	if got := f.client.lastMessageText(t); !strings.Contains(got, "No round in progress") {
		t.Fatalf("another chat should have its own session, got %q", got)
	}
	if SessionID(-100, 5) != "tg:-100:5" {
		t.Fatalf("unexpected session id %q", SessionID(-100, 5))
	}
}
