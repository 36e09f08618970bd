package handlers

import (
	"context"
	"strings"
	"testing"

	"github.com/smith3v/lexicon-clash/pkg/service"
	"github.com/smith3v/lexicon-clash/pkg/ui"
)

func TestHandleResetAsksForConfirmation(t *testing.T) {
	f := newFixture(t)

	f.h.HandleReset(context.Background(), f.bot, newTestUpdate("/reset", testUser))

	req := f.client.lastCall(t, "sendMessage")
	markup, _ := multipartField(t, req, "reply_markup")
	yes, _ := ui.BuildResetCallback(true)
	no, _ := ui.BuildResetCallback(false)
	if !strings.Contains(markup, yes) || !strings.Contains(markup, no) {
		t.Fatalf("expected confirm buttons, got %q", markup)
	}
}

func TestHandleResetCallbackConfirm(t *testing.T) {
	f := newFixture(t)
	playRound(t, f)

	yes, _ := ui.BuildResetCallback(true)
	f.h.HandleResetCallback(context.Background(), f.bot, newTestCallbackUpdate(yes, testUser, testUser, 9))

	if got := f.client.lastEditedText(t); !strings.Contains(got, "Progress cleared") {
		t.Fatalf("unexpected edit %q", got)
	}
	res, err := f.engine.InitSession(context.Background(), SessionID(testUser, testUser), service.InitOptions{})
	if err != nil {
		t.Fatalf("InitSession returned error: %v", err)
	}
	if res.Session.ActiveRound != nil || res.Session.Stats.RoundsPlayed != 0 {
		t.Fatalf("session was not reset: %+v", res.Session)
	}
}

func TestHandleResetCallbackCancel(t *testing.T) {
	f := newFixture(t)
	playRound(t, f)

	no, _ := ui.BuildResetCallback(false)
	f.h.HandleResetCallback(context.Background(), f.bot, newTestCallbackUpdate(no, testUser, testUser, 9))

	if got := f.client.lastEditedText(t); !strings.Contains(got, "cancelled") {
		t.Fatalf("unexpected edit %q", got)
	}
	if _, err := f.engine.Stakes(context.Background(), SessionID(testUser, testUser)); err != nil {
		t.Fatalf("round should survive a cancelled reset: %v", err)
	}
}
