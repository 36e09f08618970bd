package content

import (
	"context"
	"errors"
)

// Chain asks each provider in turn and returns the first non-empty answer.
// Restricted items are dropped. If every provider fails the last error is
// returned; if any provider answered empty, the result is empty with no error.
type Chain []Provider

func (c Chain) Fetch(ctx context.Context, terms []string, bias Bias, limit int) ([]Item, error) {
	var lastErr error
	answered := false
	for _, p := range c {
		items, err := p.Fetch(ctx, terms, bias, limit)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		answered = true
		items = filterRestricted(items)
		if len(items) > 0 {
			return items, nil
		}
	}
	if answered {
		return nil, nil
	}
	if lastErr == nil {
		lastErr = errors.New("no content providers configured")
	}
	return nil, lastErr
}

func filterRestricted(items []Item) []Item {
	out := items[:0:0]
	for _, item := range items {
		if !item.IsRestricted {
			out = append(out, item)
		}
	}
	return out
}
