package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/smith3v/lexicon-clash/pkg/content"
	"github.com/smith3v/lexicon-clash/pkg/logger"
	"github.com/smith3v/lexicon-clash/pkg/words"
)

const (
	DefaultMaxRerollAttempts = 5
	DefaultProviderTimeout   = 5 * time.Second
	DefaultPoolLimit         = 10
)

// WildcardRule decides which match-count outcomes make a round a wildcard.
type WildcardRule string

const (
	// WildcardBothZero flags rounds where neither card matched.
	WildcardBothZero WildcardRule = "bothZero"
	// WildcardCountsEqual flags rounds where both cards have the same count.
	WildcardCountsEqual WildcardRule = "countsEqual"
)

func ParseWildcardRule(value string) (WildcardRule, error) {
	switch WildcardRule(strings.TrimSpace(value)) {
	case "", WildcardBothZero:
		return WildcardBothZero, nil
	case WildcardCountsEqual:
		return WildcardCountsEqual, nil
	default:
		return "", fmt.Errorf("invalid wildcard rule %q", value)
	}
}

func (r WildcardRule) isWildcard(a, b int) bool {
	if r == WildcardCountsEqual {
		return a == b
	}
	return a == 0 && b == 0
}

type ExhaustedAction string

const (
	OnExhaustedFallback ExhaustedAction = "fallback"
	OnExhaustedFail     ExhaustedAction = "fail"
)

// RetryPolicy bounds the fairness rerolls of the builder.
type RetryPolicy struct {
	MaxAttempts int
	OnExhausted ExhaustedAction
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: DefaultMaxRerollAttempts, OnExhausted: OnExhaustedFallback}
}

func ParseRetryPolicy(maxAttempts int, onExhausted string) (RetryPolicy, error) {
	p := RetryPolicy{MaxAttempts: maxAttempts, OnExhausted: ExhaustedAction(strings.TrimSpace(onExhausted))}
	if p.OnExhausted == "" {
		p.OnExhausted = OnExhaustedFallback
	}
	if p.OnExhausted != OnExhaustedFallback && p.OnExhausted != OnExhaustedFail {
		return RetryPolicy{}, fmt.Errorf("invalid exhausted action %q", onExhausted)
	}
	if p.MaxAttempts < 1 {
		return RetryPolicy{}, fmt.Errorf("max attempts must be positive, got %d", maxAttempts)
	}
	return p, nil
}

type BuilderOptions struct {
	Provider     content.Provider
	Retry        RetryPolicy
	WildcardRule WildcardRule
	TermMode     words.TermMode
	// Timeout bounds each provider call.
	Timeout   time.Duration
	PoolLimit int
	Analyzer  Analyzer
	Rand      *rand.Rand
	Now       func() time.Time
	NewID     func() string
}

// Builder assembles two-card rounds from a content provider.
type Builder struct {
	provider  content.Provider
	retry     RetryPolicy
	rule      WildcardRule
	termMode  words.TermMode
	timeout   time.Duration
	poolLimit int
	analyzer  Analyzer
	now       func() time.Time
	newID     func() string

	mu  sync.Mutex
	rng *rand.Rand
}

func NewBuilder(opts BuilderOptions) *Builder {
	b := &Builder{
		provider:  opts.Provider,
		retry:     opts.Retry,
		rule:      opts.WildcardRule,
		termMode:  opts.TermMode,
		timeout:   opts.Timeout,
		poolLimit: opts.PoolLimit,
		analyzer:  opts.Analyzer,
		now:       opts.Now,
		newID:     opts.NewID,
		rng:       opts.Rand,
	}
	if b.retry.MaxAttempts < 1 {
		b.retry.MaxAttempts = DefaultMaxRerollAttempts
	}
	if b.retry.OnExhausted == "" {
		b.retry.OnExhausted = OnExhaustedFallback
	}
	if b.rule == "" {
		b.rule = WildcardBothZero
	}
	if b.termMode == "" {
		b.termMode = words.TermModeFirstSynonym
	}
	if b.timeout <= 0 {
		b.timeout = DefaultProviderTimeout
	}
	if b.poolLimit <= 0 {
		b.poolLimit = DefaultPoolLimit
	}
	if b.now == nil {
		b.now = time.Now
	}
	if b.newID == nil {
		b.newID = uuid.NewString
	}
	if b.rng == nil {
		b.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return b
}

func (b *Builder) WildcardRule() WildcardRule { return b.rule }

// pools is the outcome of one parallel fetch.
type pools struct {
	guaranteed    []content.Item
	random        []content.Item
	guaranteedErr error
	randomErr     error
}

// Build fetches both pools, picks one item from each and rerolls until the
// fairness condition holds or the retry policy is exhausted.
func (b *Builder) Build(ctx context.Context, word words.Word) (*Round, error) {
	if b.provider == nil {
		return nil, fmt.Errorf("%w: builder has no content provider", ErrInvariant)
	}
	terms := word.Terms(b.termMode)

	var (
		best      *Round
		bestScore = -1
		realSeen  bool
		lastErr   error
	)
	for attempt := 1; attempt <= b.retry.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, &InsufficientContentError{Word: word.Text, Attempts: attempt - 1, Cause: err}
		}

		p := b.fetchPools(ctx, terms)
		for _, err := range []error{p.guaranteedErr, p.randomErr} {
			if err != nil {
				lastErr = err
				logger.Warn("content provider failed, using placeholder", "word", word.Text, "attempt", attempt, "error", err)
			}
		}

		first, second, found := b.pick(word, p)
		if found > 0 {
			realSeen = true
		}
		round := b.assemble(word, terms, first, second)
		round.Attempts = attempt

		a, c := round.Cards[0].Match.Count, round.Cards[1].Match.Count
		if b.fair(a, c, found) {
			logger.Debug("round built", "word", word.Text, "attempt", attempt, "counts", []int{a, c}, "wildcard", round.IsWildcard)
			return round, nil
		}
		if score := matchedCards(round)*4 + found; score > bestScore {
			best, bestScore = round, score
		}
		logger.Debug("round rerolled", "word", word.Text, "attempt", attempt, "counts", []int{a, c})
	}

	if !realSeen {
		return nil, &InsufficientContentError{Word: word.Text, Attempts: b.retry.MaxAttempts, Cause: lastErr}
	}
	if b.retry.OnExhausted == OnExhaustedFail {
		return nil, &InsufficientContentError{
			Word:     word.Text,
			Attempts: b.retry.MaxAttempts,
			Cause:    errors.New("no fair pairing found"),
		}
	}
	b.forceMatched(best, terms)
	return best, nil
}

// fair reports whether a pairing can be used without a reroll: both cards
// matched, or under the bothZero rule a zero-zero wildcard of two real items.
func (b *Builder) fair(a, c, found int) bool {
	if a > 0 && c > 0 {
		return true
	}
	return b.rule == WildcardBothZero && a == 0 && c == 0 && found == 2
}

func matchedCards(r *Round) int {
	n := 0
	for _, card := range r.Cards {
		if card.Match.Count > 0 {
			n++
		}
	}
	return n
}

// fetchPools issues the guaranteed and random requests concurrently. A failed
// side never cancels the other.
func (b *Builder) fetchPools(ctx context.Context, terms []string) pools {
	var (
		p pools
		g errgroup.Group
	)
	g.Go(func() error {
		p.guaranteed, p.guaranteedErr = b.fetch(ctx, terms, content.BiasContainsTerm)
		return nil
	})
	g.Go(func() error {
		p.random, p.randomErr = b.fetch(ctx, terms, content.BiasRandom)
		return nil
	})
	_ = g.Wait()
	return p
}

func (b *Builder) fetch(ctx context.Context, terms []string, bias content.Bias) ([]content.Item, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	type result struct {
		items []content.Item
		err   error
	}
	done := make(chan result, 1)
	go func() {
		items, err := b.provider.Fetch(fetchCtx, terms, bias, b.poolLimit)
		done <- result{items, err}
	}()

	var (
		items []content.Item
		err   error
	)
	// Providers that ignore the context still cannot stall the round.
	select {
	case res := <-done:
		items, err = res.items, res.err
	case <-fetchCtx.Done():
		err = fetchCtx.Err()
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(fetchCtx.Err(), context.DeadlineExceeded) {
			return nil, &ProviderTimeoutError{Bias: string(bias), Timeout: b.timeout, Cause: err}
		}
		return nil, &ProviderTransportError{Bias: string(bias), Cause: err}
	}
	usable := items[:0:0]
	for _, item := range items {
		if !item.IsRestricted {
			usable = append(usable, item)
		}
	}
	return usable, nil
}

// pick chooses one item per pool, avoiding the same item twice when the random
// pool allows it, and substitutes placeholders for empty sides. It returns the
// number of real items picked.
func (b *Builder) pick(word words.Word, p pools) (content.Item, content.Item, int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	found := 0
	var first content.Item
	if len(p.guaranteed) > 0 {
		first = p.guaranteed[b.rng.Intn(len(p.guaranteed))]
		found++
	} else {
		first = b.placeholder(word, 0)
	}

	var second content.Item
	candidates := make([]content.Item, 0, len(p.random))
	for _, item := range p.random {
		if item.ID != first.ID {
			candidates = append(candidates, item)
		}
	}
	if len(candidates) > 0 {
		second = candidates[b.rng.Intn(len(candidates))]
		found++
	} else {
		second = b.placeholder(word, 0)
	}

	if b.rng.Intn(2) == 1 {
		first, second = second, first
	}
	return first, second, found
}

func (b *Builder) assemble(word words.Word, terms []string, first, second content.Item) *Round {
	round := &Round{
		ID:        b.newID(),
		Word:      word,
		CreatedAt: b.now().UTC(),
	}
	for i, item := range []content.Item{first, second} {
		round.Cards[i] = Card{
			ID:    b.newID(),
			Word:  word,
			Item:  item,
			Match: b.analyzer.Analyze(item, terms),
		}
	}
	round.IsWildcard = b.rule.isWildcard(round.Cards[0].Match.Count, round.Cards[1].Match.Count)
	return round
}

// forceMatched replaces zero-match cards with a placeholder that contains the
// word, then fixes the wildcard flag for the final counts. A forced card never
// ties the other card on count, so the round stays decidable.
func (b *Builder) forceMatched(round *Round, terms []string) {
	for i := range round.Cards {
		if round.Cards[i].Match.Count > 0 {
			continue
		}
		other := round.Cards[1-i].Match.Count
		item, match := b.forcedPlaceholder(round.Word, terms, other)
		round.Cards[i].Item = item
		round.Cards[i].Match = match
		round.Forced = true
	}
	round.IsWildcard = b.rule.isWildcard(round.Cards[0].Match.Count, round.Cards[1].Match.Count)
}

const maxForcedMentions = 4

// forcedPlaceholder returns a placeholder whose match count is positive and
// differs from avoid, adding mentions of the word until it does.
func (b *Builder) forcedPlaceholder(word words.Word, terms []string, avoid int) (content.Item, MatchResult) {
	var (
		item  content.Item
		match MatchResult
	)
	for mentions := 1; mentions <= maxForcedMentions; mentions++ {
		item = b.placeholder(word, mentions)
		match = b.analyzer.Analyze(item, terms)
		if match.Count > 0 && match.Count != avoid {
			break
		}
	}
	return item, match
}

// placeholder stands in for a missing item. With mentions > 0 it names the
// word that many times; with 0 it is an empty side.
func (b *Builder) placeholder(word words.Word, mentions int) content.Item {
	item := content.Item{
		ID:          "placeholder-" + b.newID(),
		SourceGroup: "lexicon",
		Placeholder: true,
	}
	if mentions <= 0 {
		item.Title = "Nothing turned up here"
		item.Body = "This side of the round came back empty."
		return item
	}
	item.Title = fmt.Sprintf("Word of the day: %s", word.Text)
	var body []string
	if mentions > 1 {
		body = append(body, fmt.Sprintf("Today's word is %s.", word.Text))
	}
	for i := 2; i < mentions; i++ {
		body = append(body, fmt.Sprintf("Say %s once more.", word.Text))
	}
	if word.Definition != "" {
		body = append(body, fmt.Sprintf("It means %s.", word.Definition))
	}
	item.Body = strings.Join(body, " ")
	return item
}
