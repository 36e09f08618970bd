package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/smith3v/lexicon-clash/pkg/content"
	"github.com/smith3v/lexicon-clash/pkg/game"
	"github.com/smith3v/lexicon-clash/pkg/store"
	"github.com/smith3v/lexicon-clash/pkg/words"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeBuilder builds rounds with fixed counts; card 0 always wins when counts differ.
type fakeBuilder struct {
	mu     sync.Mutex
	counts [2]int
	err    error
	built  []string
	n      int
}

func (b *fakeBuilder) Build(ctx context.Context, word words.Word) (*game.Round, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.built = append(b.built, word.Text)
	if b.err != nil {
		return nil, b.err
	}
	b.n++
	r := &game.Round{ID: fmt.Sprintf("round-%d", b.n), Word: word, CreatedAt: time.Now().UTC()}
	for i := range r.Cards {
		r.Cards[i] = game.Card{
			ID:    fmt.Sprintf("card-%d-%d", b.n, i),
			Word:  word,
			Item:  content.Item{ID: fmt.Sprintf("item-%d-%d", b.n, i), Title: "post"},
			Match: game.MatchResult{Count: b.counts[i], Excerpts: []string{}},
		}
	}
	return r, nil
}

// failingStore fails the configured operation.
type failingStore struct {
	store.Store
	failGet bool
	failSet bool
}

func (f *failingStore) Get(ctx context.Context, key string) (*store.Record, error) {
	if f.failGet {
		return nil, errors.New("db down")
	}
	return f.Store.Get(ctx, key)
}

func (f *failingStore) Set(ctx context.Context, key string, rec store.Record) error {
	if f.failSet {
		return errors.New("disk full")
	}
	return f.Store.Set(ctx, key, rec)
}

type fixture struct {
	engine  *Engine
	store   store.Store
	builder *fakeBuilder
	clock   *testClock
}

func newFixture(t *testing.T, mutate func(*Options)) *fixture {
	t.Helper()
	catalog, err := words.New([]words.Word{
		{Text: "ubiquitous", Definition: "found everywhere"},
		{Text: "ephemeral", Definition: "lasting a very short time"},
		{Text: "laconic", Definition: "using very few words"},
	}, words.WithIntn(func(int) int { return 0 }))
	if err != nil {
		t.Fatalf("failed to build catalog: %v", err)
	}
	clock := &testClock{now: time.Date(2025, 4, 2, 18, 0, 0, 0, time.UTC)}
	f := &fixture{
		store:   store.NewMemory(store.Options{Now: clock.Now}),
		builder: &fakeBuilder{counts: [2]int{3, 1}},
		clock:   clock,
	}
	opts := Options{
		Store:                f.store,
		Builder:              f.builder,
		Words:                catalog,
		ClearCompletedOnInit: true,
		JournalLimit:         50,
		Now:                  clock.Now,
	}
	if mutate != nil {
		mutate(&opts)
	}
	f.engine, err = New(opts)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return f
}

func TestInitSessionCreatesAndPersists(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	res, err := f.engine.InitSession(ctx, "s1", InitOptions{})
	if err != nil {
		t.Fatalf("InitSession returned error: %v", err)
	}
	if res.Type != ResultInit || res.State != game.StateIdle {
		t.Fatalf("unexpected result %+v", res)
	}
	rec, err := f.store.Get(ctx, "s1")
	if err != nil || rec == nil || len(rec.Blob) == 0 {
		t.Fatalf("fresh session should be stored, got %+v %v", rec, err)
	}
}

func TestFullRoundThroughEngine(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	started, err := f.engine.StartRound(ctx, "s1")
	if err != nil {
		t.Fatalf("StartRound returned error: %v", err)
	}
	if started.Type != ResultRoundStarted || started.Round.Completed() {
		t.Fatalf("expected pending round, got %+v", started)
	}
	if started.Stakes != (game.Stakes{Win: 10, Loss: -5}) {
		t.Fatalf("unexpected stakes %+v", started.Stakes)
	}

	resolved, err := f.engine.SubmitChoice(ctx, "s1", 0)
	if err != nil {
		t.Fatalf("SubmitChoice returned error: %v", err)
	}
	if resolved.Type != ResultRoundResolved || resolved.Round.Winner != game.WinnerPlayer {
		t.Fatalf("expected player win, got %+v", resolved.Round)
	}
	if resolved.Stats.CumulativeScore != 10 || resolved.Stats.Wins != 1 {
		t.Fatalf("unexpected stats %+v", resolved.Stats)
	}

	// A reload sees the stored outcome.
	again, err := f.engine.SubmitChoice(ctx, "s1", 1)
	var already *game.AlreadyResolvedError
	if !errors.As(err, &already) || again != nil {
		t.Fatalf("expected AlreadyResolvedError after reload, got %v", err)
	}

	journal, err := f.engine.Journal(ctx, "s1")
	if err != nil || len(journal) != 1 || journal[0].Word != "ubiquitous" {
		t.Fatalf("unexpected journal %+v %v", journal, err)
	}
}

func TestStartRoundExcludesSeenWords(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if _, err := f.engine.StartRound(ctx, "s1"); err != nil {
			t.Fatalf("StartRound %d returned error: %v", i, err)
		}
		if _, err := f.engine.SubmitChoice(ctx, "s1", 0); err != nil {
			t.Fatalf("SubmitChoice %d returned error: %v", i, err)
		}
	}
	want := []string{"ubiquitous", "ephemeral", "laconic", "ubiquitous"}
	for i, w := range want {
		if f.builder.built[i] != w {
			t.Fatalf("round %d used %q, want %q (all: %v)", i, f.builder.built[i], w, f.builder.built)
		}
	}
}

func TestStartRoundWhileActive(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	if _, err := f.engine.StartRound(ctx, "s1"); err != nil {
		t.Fatalf("StartRound returned error: %v", err)
	}
	_, err := f.engine.StartRound(ctx, "s1")
	var inProgress *game.RoundInProgressError
	if !errors.As(err, &inProgress) {
		t.Fatalf("expected RoundInProgressError, got %v", err)
	}
	if len(f.builder.built) != 1 {
		t.Fatalf("second start should not build, built %v", f.builder.built)
	}
}

func TestStartRoundFailureStoresNothing(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.builder.err = &game.InsufficientContentError{Word: "ubiquitous", Attempts: 5}

	_, err := f.engine.StartRound(ctx, "s1")
	var insufficient *game.InsufficientContentError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientContentError, got %v", err)
	}
	if rec, _ := f.store.Get(ctx, "s1"); rec != nil {
		t.Fatalf("failed start must not persist, got %+v", rec)
	}
}

func TestSubmitChoiceErrors(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	var invalid *game.InvalidChoiceError
	if _, err := f.engine.SubmitChoice(ctx, "s1", 5); !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidChoiceError, got %v", err)
	}
	var none *game.NoActiveRoundError
	if _, err := f.engine.SubmitChoice(ctx, "s1", 0); !errors.As(err, &none) {
		t.Fatalf("expected NoActiveRoundError, got %v", err)
	}
}

func TestInitClearsCompletedRound(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	if _, err := f.engine.StartRound(ctx, "s1"); err != nil {
		t.Fatalf("StartRound returned error: %v", err)
	}

	res, err := f.engine.InitSession(ctx, "s1", InitOptions{})
	if err != nil {
		t.Fatalf("InitSession returned error: %v", err)
	}
	if res.State != game.StateRoundActive {
		t.Fatalf("pending round must survive init, got %q", res.State)
	}

	if _, err := f.engine.SubmitChoice(ctx, "s1", 0); err != nil {
		t.Fatalf("SubmitChoice returned error: %v", err)
	}
	res, err = f.engine.InitSession(ctx, "s1", InitOptions{})
	if err != nil {
		t.Fatalf("InitSession returned error: %v", err)
	}
	if res.State != game.StateIdle || res.Session.Stats.Wins != 1 {
		t.Fatalf("expected idle session keeping stats, got %q %+v", res.State, res.Session.Stats)
	}
}

func TestInitKeepsCompletedRoundWhenConfigured(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.ClearCompletedOnInit = false })
	ctx := context.Background()
	if _, err := f.engine.StartRound(ctx, "s1"); err != nil {
		t.Fatalf("StartRound returned error: %v", err)
	}
	if _, err := f.engine.SubmitChoice(ctx, "s1", 0); err != nil {
		t.Fatalf("SubmitChoice returned error: %v", err)
	}
	res, err := f.engine.InitSession(ctx, "s1", InitOptions{})
	if err != nil {
		t.Fatalf("InitSession returned error: %v", err)
	}
	if res.State != game.StateRoundComplete {
		t.Fatalf("expected completed round kept, got %q", res.State)
	}
}

func TestInitFreshAndReset(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	if _, err := f.engine.StartRound(ctx, "s1"); err != nil {
		t.Fatalf("StartRound returned error: %v", err)
	}

	res, err := f.engine.InitSession(ctx, "s1", InitOptions{Fresh: true})
	if err != nil {
		t.Fatalf("InitSession returned error: %v", err)
	}
	if res.State != game.StateIdle || res.Session.Stats.RoundsPlayed != 0 {
		t.Fatalf("fresh init should start over, got %+v", res.Session)
	}

	if _, err := f.engine.StartRound(ctx, "s1"); err != nil {
		t.Fatalf("StartRound returned error: %v", err)
	}
	if _, err := f.engine.SubmitChoice(ctx, "s1", 0); err != nil {
		t.Fatalf("SubmitChoice returned error: %v", err)
	}
	reset, err := f.engine.ResetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("ResetSession returned error: %v", err)
	}
	if reset.Type != ResultReset || reset.State != game.StateIdle || reset.Session.Stats.CumulativeScore != 0 {
		t.Fatalf("unexpected reset result %+v", reset)
	}
	journal, _ := f.engine.Journal(ctx, "s1")
	if len(journal) != 0 {
		t.Fatalf("reset should clear the journal, got %+v", journal)
	}
}

func TestStakes(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	var none *game.NoActiveRoundError
	if _, err := f.engine.Stakes(ctx, "s1"); !errors.As(err, &none) {
		t.Fatalf("expected NoActiveRoundError, got %v", err)
	}

	f.builder.counts = [2]int{0, 0}
	for i := 0; i < 2; i++ {
		if _, err := f.engine.StartRound(ctx, "s1"); err != nil {
			t.Fatalf("StartRound returned error: %v", err)
		}
		if i == 0 {
			// Not flagged wildcard by the fake builder: a plain tie.
			if _, err := f.engine.SubmitChoice(ctx, "s1", 0); err != nil {
				t.Fatalf("SubmitChoice returned error: %v", err)
			}
		}
	}
	res, err := f.engine.Stakes(ctx, "s1")
	if err != nil {
		t.Fatalf("Stakes returned error: %v", err)
	}
	if res.Type != ResultStakes || res.RoundID != "round-2" || res.Stakes != (game.Stakes{Win: 10, Loss: -5}) {
		t.Fatalf("unexpected stakes %+v", res)
	}
}

func TestJournalLimit(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.JournalLimit = 2 })
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := f.engine.StartRound(ctx, "s1"); err != nil {
			t.Fatalf("StartRound returned error: %v", err)
		}
		if _, err := f.engine.SubmitChoice(ctx, "s1", 0); err != nil {
			t.Fatalf("SubmitChoice returned error: %v", err)
		}
	}
	journal, err := f.engine.Journal(ctx, "s1")
	if err != nil {
		t.Fatalf("Journal returned error: %v", err)
	}
	if len(journal) != 2 || journal[0].RoundID != "round-2" || journal[1].RoundID != "round-3" {
		t.Fatalf("expected newest two entries, got %+v", journal)
	}
}

func TestPersistenceFailuresAreTyped(t *testing.T) {
	var fs *failingStore
	f := newFixture(t, func(o *Options) {
		fs = &failingStore{Store: o.Store}
		o.Store = fs
	})
	ctx := context.Background()

	fs.failGet = true
	_, err := f.engine.InitSession(ctx, "s1", InitOptions{})
	var persistence *game.PersistenceError
	if !errors.As(err, &persistence) || persistence.Op != "get" || persistence.SessionID != "s1" {
		t.Fatalf("expected get PersistenceError, got %v", err)
	}

	fs.failGet = false
	fs.failSet = true
	_, err = f.engine.StartRound(ctx, "s1")
	if !errors.As(err, &persistence) || persistence.Op != "set" {
		t.Fatalf("expected set PersistenceError, got %v", err)
	}
}

func TestCorruptBlobIsPersistenceError(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	if err := f.store.Set(ctx, "s1", store.Record{Blob: []byte(`{"stats":`)}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	_, err := f.engine.StartRound(ctx, "s1")
	var persistence *game.PersistenceError
	if !errors.As(err, &persistence) || persistence.Op != "decode" {
		t.Fatalf("expected decode PersistenceError, got %v", err)
	}
}

func TestResetRecoversUndecodableSession(t *testing.T) {
	mem := store.NewMemory(store.Options{Optimistic: true})
	f := newFixture(t, func(o *Options) { o.Store = mem })
	ctx := context.Background()
	malformed := []byte(`{"stats":{"uniqueWordsSeen":{}}}`)

	for _, id := range []string{"s1", "s2"} {
		if err := mem.Set(ctx, id, store.Record{Blob: malformed}); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}
	if _, err := f.engine.InitSession(ctx, "s1", InitOptions{}); err == nil {
		t.Fatalf("expected plain init to reject the malformed blob")
	}

	reset, err := f.engine.ResetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("ResetSession returned error: %v", err)
	}
	if reset.State != game.StateIdle || reset.Session.Stats.RoundsPlayed != 0 {
		t.Fatalf("unexpected reset result %+v", reset)
	}
	if _, err := f.engine.StartRound(ctx, "s1"); err != nil {
		t.Fatalf("session should be playable after reset: %v", err)
	}

	fresh, err := f.engine.InitSession(ctx, "s2", InitOptions{Fresh: true})
	if err != nil {
		t.Fatalf("fresh InitSession returned error: %v", err)
	}
	if fresh.State != game.StateIdle {
		t.Fatalf("expected idle session, got %q", fresh.State)
	}
	rec, err := mem.Get(ctx, "s2")
	if err != nil || rec == nil || rec.Version != 2 {
		t.Fatalf("expected the fresh session stored over the old version, got %+v %v", rec, err)
	}
}

func TestSessionReadsWithoutClearing(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	s, err := f.engine.Session(ctx, "s1")
	if err != nil {
		t.Fatalf("Session returned error: %v", err)
	}
	if s.State() != game.StateIdle {
		t.Fatalf("expected idle session, got %q", s.State())
	}
	if rec, _ := f.store.Get(ctx, "s1"); rec != nil {
		t.Fatalf("reading a session must not create it, got %+v", rec)
	}

	if _, err := f.engine.StartRound(ctx, "s1"); err != nil {
		t.Fatalf("StartRound returned error: %v", err)
	}
	if _, err := f.engine.SubmitChoice(ctx, "s1", 0); err != nil {
		t.Fatalf("SubmitChoice returned error: %v", err)
	}
	s, err = f.engine.Session(ctx, "s1")
	if err != nil {
		t.Fatalf("Session returned error: %v", err)
	}
	if s.State() != game.StateRoundComplete || s.Stats.Wins != 1 {
		t.Fatalf("expected the resolved round kept, got %q %+v", s.State(), s.Stats)
	}
}

func TestVersionConflictSurfacesAsPersistenceError(t *testing.T) {
	mem := store.NewMemory(store.Options{Optimistic: true})
	f := newFixture(t, func(o *Options) { o.Store = mem })
	ctx := context.Background()
	if _, err := f.engine.InitSession(ctx, "s1", InitOptions{}); err != nil {
		t.Fatalf("InitSession returned error: %v", err)
	}

	// Another process writes behind our back between read and write.
	racing := &racingStore{Store: mem}
	f.engine.store = racing
	_, err := f.engine.StartRound(ctx, "s1")
	if !errors.Is(err, store.ErrVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}
	var persistence *game.PersistenceError
	if !errors.As(err, &persistence) {
		t.Fatalf("expected PersistenceError wrapper, got %T", err)
	}
}

// racingStore writes a competing version right after every read.
type racingStore struct {
	store.Store
}

func (r *racingStore) Get(ctx context.Context, key string) (*store.Record, error) {
	rec, err := r.Store.Get(ctx, key)
	if err != nil || rec == nil {
		return rec, err
	}
	if err := r.Store.Set(ctx, key, store.Record{Blob: rec.Blob, Version: rec.Version}); err != nil {
		return nil, err
	}
	return rec, nil
}

func TestConcurrentChoicesResolveOnce(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	if _, err := f.engine.StartRound(ctx, "s1"); err != nil {
		t.Fatalf("StartRound returned error: %v", err)
	}

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		rejected  int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(choice int) {
			defer wg.Done()
			_, err := f.engine.SubmitChoice(ctx, "s1", choice)
			mu.Lock()
			defer mu.Unlock()
			var already *game.AlreadyResolvedError
			switch {
			case err == nil:
				successes++
			case errors.As(err, &already):
				rejected++
			}
		}(i % 2)
	}
	wg.Wait()

	if successes != 1 || rejected != workers-1 {
		t.Fatalf("expected exactly one resolution, got %d ok and %d rejected", successes, rejected)
	}
	journal, _ := f.engine.Journal(ctx, "s1")
	if len(journal) != 1 {
		t.Fatalf("round was applied %d times", len(journal))
	}
	if f.engine.locks.size() != 0 {
		t.Fatalf("session locks leaked: %d", f.engine.locks.size())
	}
}

func TestInvalidSessionID(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.engine.InitSession(context.Background(), "", InitOptions{}); !errors.Is(err, ErrInvalidSessionID) {
		t.Fatalf("expected ErrInvalidSessionID, got %v", err)
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatalf("expected error without collaborators")
	}
}
