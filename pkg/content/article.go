package content

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"
)

// HTTPClient is the subset of *http.Client used by the network providers.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ArticleFetcher downloads a linked page and extracts its readable text.
type ArticleFetcher struct {
	Client       HTTPClient
	UserAgent    string
	MaxBodyBytes int64
}

func (f *ArticleFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", fmt.Errorf("unsupported article url %q", pageURL)
	}

	body, err := getBody(ctx, f.Client, pageURL, f.UserAgent, "text/html,application/xhtml+xml", f.MaxBodyBytes)
	if err != nil {
		return "", err
	}

	article, err := readability.FromReader(bytes.NewReader(body), parsed)
	if err != nil {
		return "", fmt.Errorf("extract article: %w", err)
	}
	return strings.TrimSpace(article.TextContent), nil
}

func getBody(ctx context.Context, client HTTPClient, target, userAgent, accept string, maxBytes int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &TransportError{Source: target, Err: err}
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	req.Header.Set("Accept", accept)

	resp, err := client.Do(req)
	if err != nil {
		return nil, &TransportError{Source: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{Source: target, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	if maxBytes > 0 && resp.ContentLength > maxBytes {
		return nil, &TransportError{Source: target, Err: fmt.Errorf("content length %d exceeds limit %d", resp.ContentLength, maxBytes)}
	}

	reader := io.Reader(resp.Body)
	if maxBytes > 0 {
		reader = io.LimitReader(resp.Body, maxBytes+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, &TransportError{Source: target, Err: err}
	}
	if maxBytes > 0 && int64(len(body)) > maxBytes {
		return nil, &TransportError{Source: target, Err: fmt.Errorf("body exceeds limit %d", maxBytes)}
	}
	return body, nil
}
