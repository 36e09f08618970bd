package content

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/smith3v/lexicon-clash/pkg/logger"
)

// RedditOptions configures the Reddit JSON provider.
type RedditOptions struct {
	BaseURL             string
	UserAgent           string
	FetchComments       bool
	FetchLinkedArticles bool
	MaxBodyBytes        int64
	Client              HTTPClient
}

// Reddit searches the public Reddit JSON listing endpoints.
type Reddit struct {
	baseURL       string
	userAgent     string
	fetchComments bool
	maxBodyBytes  int64
	client        HTTPClient
	articles      *ArticleFetcher
}

func NewReddit(opts RedditOptions) *Reddit {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	r := &Reddit{
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		userAgent:     opts.UserAgent,
		fetchComments: opts.FetchComments,
		maxBodyBytes:  opts.MaxBodyBytes,
		client:        client,
	}
	if r.baseURL == "" {
		r.baseURL = "https://www.reddit.com"
	}
	if opts.FetchLinkedArticles {
		r.articles = &ArticleFetcher{Client: client, UserAgent: opts.UserAgent, MaxBodyBytes: opts.MaxBodyBytes}
	}
	return r
}

type listing struct {
	Kind string `json:"kind"`
	Data struct {
		Children []struct {
			Kind string          `json:"kind"`
			Data json.RawMessage `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	ID          string `json:"id"`
	Subreddit   string `json:"subreddit"`
	Title       string `json:"title"`
	Selftext    string `json:"selftext"`
	URL         string `json:"url"`
	Permalink   string `json:"permalink"`
	Score       int    `json:"score"`
	NumComments int    `json:"num_comments"`
	Over18      bool   `json:"over_18"`
	IsSelf      bool   `json:"is_self"`
}

type redditComment struct {
	Body    string          `json:"body"`
	Replies json.RawMessage `json:"replies"`
}

func (r *Reddit) Fetch(ctx context.Context, terms []string, bias Bias, limit int) ([]Item, error) {
	if limit <= 0 {
		return nil, nil
	}

	var endpoint string
	switch bias {
	case BiasContainsTerm:
		quoted := make([]string, 0, len(terms))
		for _, t := range terms {
			if t = strings.TrimSpace(t); t != "" {
				quoted = append(quoted, strconv.Quote(t))
			}
		}
		q := url.Values{}
		q.Set("q", strings.Join(quoted, " OR "))
		q.Set("limit", strconv.Itoa(limit))
		q.Set("sort", "relevance")
		q.Set("type", "link")
		endpoint = r.baseURL + "/search.json?" + q.Encode()
	default:
		q := url.Values{}
		q.Set("limit", strconv.Itoa(limit))
		endpoint = r.baseURL + "/r/all/hot.json?" + q.Encode()
	}

	body, err := getBody(ctx, r.client, endpoint, r.userAgent, "application/json", r.maxBodyBytes)
	if err != nil {
		return nil, err
	}
	var page listing
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, &TransportError{Source: endpoint, Err: fmt.Errorf("decode listing: %w", err)}
	}

	items := make([]Item, 0, len(page.Data.Children))
	posts := make([]redditPost, 0, len(page.Data.Children))
	for _, child := range page.Data.Children {
		if child.Kind != "t3" {
			continue
		}
		var p redditPost
		if err := json.Unmarshal(child.Data, &p); err != nil || p.ID == "" {
			continue
		}
		item := Item{
			ID:                  p.ID,
			SourceGroup:         p.Subreddit,
			Title:               html.UnescapeString(p.Title),
			Body:                html.UnescapeString(p.Selftext),
			URL:                 p.URL,
			PrimaryEngagement:   max(p.Score, 0),
			SecondaryEngagement: max(p.NumComments, 0),
			IsRestricted:        p.Over18,
		}
		items = append(items, item)
		posts = append(posts, p)
		if len(items) == limit {
			break
		}
	}
	r.enrich(ctx, items, posts)
	return items, nil
}

// maxEnrichRequests bounds concurrent comment and article requests per listing.
const maxEnrichRequests = 4

// enrich fills Discussion for every unrestricted post. Restricted posts are
// dropped by the round builder, so they are not worth the extra requests.
func (r *Reddit) enrich(ctx context.Context, items []Item, posts []redditPost) {
	if !r.fetchComments && r.articles == nil {
		return
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxEnrichRequests)
	for i := range items {
		if items[i].IsRestricted {
			continue
		}
		g.Go(func() error {
			items[i].Discussion = r.discussion(gctx, posts[i])
			return nil
		})
	}
	_ = g.Wait()
}

// discussion gathers comment text and, for link posts, the linked article.
// Failures here only drop the extra text.
func (r *Reddit) discussion(ctx context.Context, p redditPost) string {
	var parts []string
	if r.fetchComments && p.Permalink != "" {
		text, err := r.comments(ctx, p.Permalink)
		if err != nil {
			logger.Debug("failed to fetch reddit comments", "post_id", p.ID, "error", err)
		} else if text != "" {
			parts = append(parts, text)
		}
	}
	if r.articles != nil && !p.IsSelf && p.URL != "" && !strings.Contains(p.URL, "reddit.com") {
		text, err := r.articles.Fetch(ctx, p.URL)
		if err != nil {
			logger.Debug("failed to fetch linked article", "post_id", p.ID, "url", p.URL, "error", err)
		} else if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}

func (r *Reddit) comments(ctx context.Context, permalink string) (string, error) {
	endpoint := r.baseURL + strings.TrimRight(permalink, "/") + "/.json"
	body, err := getBody(ctx, r.client, endpoint, r.userAgent, "application/json", r.maxBodyBytes)
	if err != nil {
		return "", err
	}
	var pages []listing
	if err := json.Unmarshal(body, &pages); err != nil {
		return "", fmt.Errorf("decode comments: %w", err)
	}
	var bodies []string
	for i, page := range pages {
		if i == 0 {
			continue
		}
		collectComments(page, &bodies)
	}
	return strings.Join(bodies, "\n"), nil
}

func collectComments(page listing, out *[]string) {
	for _, child := range page.Data.Children {
		if child.Kind != "t1" {
			continue
		}
		var c redditComment
		if err := json.Unmarshal(child.Data, &c); err != nil {
			continue
		}
		if text := strings.TrimSpace(html.UnescapeString(c.Body)); text != "" {
			*out = append(*out, text)
		}
		// replies is "" when empty and a listing otherwise
		if len(c.Replies) > 0 && c.Replies[0] == '{' {
			var nested listing
			if err := json.Unmarshal(c.Replies, &nested); err == nil {
				collectComments(nested, out)
			}
		}
	}
}
