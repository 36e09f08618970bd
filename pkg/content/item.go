package content

import (
	"context"
	"errors"
	"fmt"
)

// Item is one candidate post. Discussion holds comment or linked-article text
// when the provider fetched it.
type Item struct {
	ID                  string `json:"id"`
	SourceGroup         string `json:"sourceGroup"`
	Title               string `json:"title"`
	Body                string `json:"body"`
	Discussion          string `json:"discussion,omitempty"`
	URL                 string `json:"url"`
	PrimaryEngagement   int    `json:"primaryEngagement"`
	SecondaryEngagement int    `json:"secondaryEngagement"`
	IsRestricted        bool   `json:"isRestricted"`
	Placeholder         bool   `json:"placeholder,omitempty"`
}

// Bias hints which pool a fetch should draw from.
type Bias string

const (
	BiasContainsTerm Bias = "contains-term"
	BiasRandom       Bias = "random"
)

// Provider returns candidate items. "No results" is an empty slice and a nil
// error; errors are reserved for transport failures.
type Provider interface {
	Fetch(ctx context.Context, terms []string, bias Bias, limit int) ([]Item, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, terms []string, bias Bias, limit int) ([]Item, error)

func (f ProviderFunc) Fetch(ctx context.Context, terms []string, bias Bias, limit int) ([]Item, error) {
	return f(ctx, terms, bias, limit)
}

var ErrTransport = errors.New("content transport failure")

// TransportError wraps a failed request to a content source.
type TransportError struct {
	Source string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrTransport, e.Source, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}
