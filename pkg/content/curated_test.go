package content

import (
	"context"
	"math/rand"
	"strings"
	"testing"
)

func TestParseSampleLines(t *testing.T) {
	input := strings.Join([]string{
		"# comment",
		"",
		"banal:https://www.reddit.com/r/vocabulary/comments/15wpqbg/banal/|Banal|5, https://www.reddit.com/r/literature/comments/1d5l5up/do_you_like/|Do you like banal viewpoints, really?|7",
		"no colon here",
		"quaint:https://example.com/post/xyz|Is quaint polite?|3, https://www.reddit.com/r/a/comments/b1/c/|broken entry",
	}, "\n")

	got, err := ParseSampleLines(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseSampleLines returned error: %v", err)
	}
	banal := got["banal"]
	if len(banal) != 2 {
		t.Fatalf("expected 2 banal items, got %d", len(banal))
	}
	if banal[0].ID != "15wpqbg" || banal[0].SourceGroup != "vocabulary" {
		t.Fatalf("unexpected first item %+v", banal[0])
	}
	if banal[1].Title != "Do you like banal viewpoints, really?" {
		t.Fatalf("title with comma was split: %q", banal[1].Title)
	}

	quaint := got["quaint"]
	if len(quaint) != 1 {
		t.Fatalf("expected malformed entry to be skipped, got %d items", len(quaint))
	}
	if quaint[0].ID != "xyz" || quaint[0].SourceGroup != "unknown" {
		t.Fatalf("unexpected fallback id parsing %+v", quaint[0])
	}
}

func TestNewCuratedLoadsEmbeddedCorpus(t *testing.T) {
	c, err := NewCurated(WithRand(rand.New(rand.NewSource(1))))
	if err != nil {
		t.Fatalf("NewCurated returned error: %v", err)
	}
	words := c.Words()
	if len(words) < 20 {
		t.Fatalf("expected curated words, got %v", words)
	}

	items, err := c.Fetch(context.Background(), []string{"ambiguous"}, BiasContainsTerm, 10)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(items) == 0 {
		t.Fatalf("expected curated items for ambiguous")
	}
	for _, item := range items {
		if !LooseMatch(item.Title+" "+item.Body, []string{"ambiguous"}) && !strings.HasPrefix(item.ID, "real_ambiguous") {
			t.Fatalf("item %q unrelated to the term", item.ID)
		}
	}
}

func TestCuratedFetchRespectsLimitAndBias(t *testing.T) {
	c := NewCuratedFromItems(map[string][]Item{
		"quaint": {
			{ID: "a", Title: "A quaint town"},
			{ID: "b", Title: "Quaintly put"},
		},
		"jaded": {
			{ID: "c", Title: "Feeling jaded"},
			{ID: "a", Title: "A quaint town"},
		},
	}, WithRand(rand.New(rand.NewSource(7))))

	all, err := c.Fetch(context.Background(), nil, BiasRandom, 10)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected duplicate ids to collapse to 3 items, got %d", len(all))
	}

	one, err := c.Fetch(context.Background(), nil, BiasRandom, 1)
	if err != nil || len(one) != 1 {
		t.Fatalf("expected one item, got %d (%v)", len(one), err)
	}

	biased, err := c.Fetch(context.Background(), []string{"jaded"}, BiasContainsTerm, 10)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	ids := map[string]bool{}
	for _, item := range biased {
		ids[item.ID] = true
	}
	if !ids["a"] || !ids["c"] || ids["b"] {
		t.Fatalf("unexpected biased pool %v", ids)
	}
}

func TestCuratedFetchHonoursCancelledContext(t *testing.T) {
	c := NewCuratedFromItems(map[string][]Item{"x": {{ID: "1", Title: "x"}}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Fetch(ctx, []string{"x"}, BiasRandom, 1); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestLooseMatch(t *testing.T) {
	cases := []struct {
		text string
		term string
		want bool
	}{
		{"So many debacles this year", "debacle", true},
		{"She vacillated for hours", "vacillate", true},
		{"Stop vacillating", "vacillate", true},
		{"An anomalies list", "anomaly", true},
		{"A 'ubiquitous' thing", "ubiquitous", true},
		{"Category theory", "cat", false},
		{"", "cat", false},
	}
	for _, tc := range cases {
		if got := LooseMatch(tc.text, []string{tc.term}); got != tc.want {
			t.Fatalf("LooseMatch(%q, %q) = %v, want %v", tc.text, tc.term, got, tc.want)
		}
	}
}
