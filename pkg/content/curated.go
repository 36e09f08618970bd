package content

import (
	"bufio"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

//go:embed data/sample_posts.txt data/curated_posts.json
var dataFS embed.FS

var postURLPattern = regexp.MustCompile(`/r/([^/]+)/comments/([a-zA-Z0-9]+)/`)

// Curated serves items from the corpus bundled with the binary.
type Curated struct {
	mu     sync.Mutex
	rng    *rand.Rand
	items  []Item
	byWord map[string][]int
}

type CuratedOption func(*Curated)

func WithRand(rng *rand.Rand) CuratedOption {
	return func(c *Curated) {
		if rng != nil {
			c.rng = rng
		}
	}
}

// NewCurated loads the embedded sample lines and curated summaries.
func NewCurated(opts ...CuratedOption) (*Curated, error) {
	f, err := dataFS.Open("data/sample_posts.txt")
	if err != nil {
		return nil, err
	}
	defer f.Close()
	byWord, err := ParseSampleLines(f)
	if err != nil {
		return nil, err
	}

	raw, err := dataFS.ReadFile("data/curated_posts.json")
	if err != nil {
		return nil, err
	}
	summaries, err := ParseCuratedPosts(raw)
	if err != nil {
		return nil, err
	}
	for word, items := range summaries {
		byWord[word] = append(byWord[word], items...)
	}
	return NewCuratedFromItems(byWord, opts...), nil
}

// NewCuratedFromItems builds a provider from items grouped by word. Items with a
// repeated ID are kept once.
func NewCuratedFromItems(byWord map[string][]Item, opts ...CuratedOption) *Curated {
	c := &Curated{
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		byWord: make(map[string][]int, len(byWord)),
	}
	for _, opt := range opts {
		opt(c)
	}

	words := make([]string, 0, len(byWord))
	for w := range byWord {
		words = append(words, w)
	}
	sort.Strings(words)

	seen := make(map[string]int)
	for _, w := range words {
		key := strings.ToLower(w)
		for _, item := range byWord[w] {
			idx, ok := seen[item.ID]
			if !ok {
				idx = len(c.items)
				seen[item.ID] = idx
				c.items = append(c.items, item)
			}
			c.byWord[key] = appendUnique(c.byWord[key], idx)
		}
	}
	return c
}

func appendUnique(list []int, v int) []int {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}

// Words lists the words with at least one curated item.
func (c *Curated) Words() []string {
	out := make([]string, 0, len(c.byWord))
	for w := range c.byWord {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

func (c *Curated) Fetch(ctx context.Context, terms []string, bias Bias, limit int) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}

	var candidates []int
	switch bias {
	case BiasContainsTerm:
		picked := make(map[int]struct{})
		for _, term := range terms {
			for _, idx := range c.byWord[strings.ToLower(term)] {
				picked[idx] = struct{}{}
			}
		}
		for idx, item := range c.items {
			if LooseMatch(item.Title+" "+item.Body, terms) {
				picked[idx] = struct{}{}
			}
		}
		for idx := range picked {
			candidates = append(candidates, idx)
		}
		sort.Ints(candidates)
	default:
		candidates = make([]int, len(c.items))
		for i := range c.items {
			candidates[i] = i
		}
	}

	c.mu.Lock()
	c.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	c.mu.Unlock()

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]Item, 0, len(candidates))
	for _, idx := range candidates {
		out = append(out, c.items[idx])
	}
	return out, nil
}

// ParseSampleLines reads "word:url|title|count, url|title|count" lines. Blank
// lines, comments and malformed entries are skipped.
func ParseSampleLines(r io.Reader) (map[string][]Item, error) {
	result := make(map[string][]Item)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		colon := strings.Index(line, ":")
		if colon == -1 {
			continue
		}
		word := strings.ToLower(strings.TrimSpace(line[:colon]))
		rest := line[colon+1:]
		if word == "" || rest == "" {
			continue
		}

		entries := strings.Split(rest, ", https://")
		for i, entry := range entries {
			if i > 0 {
				entry = "https://" + entry
			}
			parts := strings.Split(entry, "|")
			if len(parts) != 3 {
				continue
			}
			url, title := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
			if _, err := strconv.Atoi(strings.TrimSpace(parts[2])); err != nil || url == "" || title == "" {
				continue
			}
			group, id := "unknown", ""
			if m := postURLPattern.FindStringSubmatch(url); m != nil {
				group, id = m[1], m[2]
			} else {
				segments := strings.Split(strings.TrimRight(url, "/"), "/")
				id = segments[len(segments)-1]
			}
			result[word] = append(result[word], Item{
				ID:          id,
				SourceGroup: group,
				Title:       title,
				URL:         url,
			})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read sample posts: %w", err)
	}
	return result, nil
}

type curatedPost struct {
	Word         string `json:"word"`
	ID           string `json:"id"`
	Subreddit    string `json:"subreddit"`
	Title        string `json:"title"`
	URL          string `json:"url"`
	Summary      string `json:"summary"`
	Upvotes      int    `json:"upvotes"`
	CommentCount int    `json:"commentCount"`
	IsNSFW       bool   `json:"isNsfw"`
}

// ParseCuratedPosts decodes curated summaries grouped by their word.
func ParseCuratedPosts(data []byte) (map[string][]Item, error) {
	var posts []curatedPost
	if err := json.Unmarshal(data, &posts); err != nil {
		return nil, fmt.Errorf("decode curated posts: %w", err)
	}
	result := make(map[string][]Item)
	for _, p := range posts {
		word := strings.ToLower(strings.TrimSpace(p.Word))
		if word == "" || p.ID == "" {
			continue
		}
		result[word] = append(result[word], Item{
			ID:                  p.ID,
			SourceGroup:         p.Subreddit,
			Title:               p.Title,
			Body:                p.Summary,
			URL:                 p.URL,
			PrimaryEngagement:   p.Upvotes,
			SecondaryEngagement: p.CommentCount,
			IsRestricted:        p.IsNSFW,
		})
	}
	return result, nil
}
