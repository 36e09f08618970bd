package words

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"slices"
	"strings"
)

//go:embed words.json
var embeddedWords []byte

var (
	ErrEmptyCatalog = errors.New("word catalog is empty")
	ErrUnknownWord  = errors.New("word not in catalog")
)

// Word is one vocabulary entry. Inflections are stored under "lemmas" in the
// data files.
type Word struct {
	Text        string   `json:"word"`
	Definition  string   `json:"definition"`
	Synonyms    []string `json:"synonyms"`
	Inflections []string `json:"lemmas"`
}

func (w Word) clone() Word {
	w.Synonyms = slices.Clone(w.Synonyms)
	w.Inflections = slices.Clone(w.Inflections)
	return w
}

// Catalog is an immutable word list. It is safe for concurrent use.
type Catalog struct {
	words []Word
	index map[string]int
	intn  func(n int) int
}

type Option func(*Catalog)

// WithIntn replaces the random index source used by PickRandomWord.
func WithIntn(intn func(n int) int) Option {
	return func(c *Catalog) {
		if intn != nil {
			c.intn = intn
		}
	}
}

// New builds a catalog from entries. Entries with an empty word are dropped and
// later duplicates (case-insensitive) are ignored.
func New(entries []Word, opts ...Option) (*Catalog, error) {
	c := &Catalog{
		index: make(map[string]int, len(entries)),
		intn:  rand.Intn,
	}
	for _, w := range entries {
		w.Text = strings.TrimSpace(w.Text)
		if w.Text == "" {
			continue
		}
		key := strings.ToLower(w.Text)
		if _, ok := c.index[key]; ok {
			continue
		}
		c.index[key] = len(c.words)
		c.words = append(c.words, w.clone())
	}
	if len(c.words) == 0 {
		return nil, ErrEmptyCatalog
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Default returns the catalog compiled into the binary.
func Default(opts ...Option) (*Catalog, error) {
	return Parse(embeddedWords, opts...)
}

func LoadFile(path string, opts ...Option) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read word catalog: %w", err)
	}
	return Parse(data, opts...)
}

func Parse(data []byte, opts ...Option) (*Catalog, error) {
	var entries []Word
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode word catalog: %w", err)
	}
	return New(entries, opts...)
}

func (c *Catalog) Len() int {
	return len(c.words)
}

func (c *Catalog) Lookup(text string) (Word, bool) {
	i, ok := c.index[strings.ToLower(strings.TrimSpace(text))]
	if !ok {
		return Word{}, false
	}
	return c.words[i].clone(), true
}

func (c *Catalog) Words() []Word {
	out := make([]Word, len(c.words))
	for i, w := range c.words {
		out[i] = w.clone()
	}
	return out
}

// Subset returns a catalog restricted to the given words, in catalog order.
// Unknown words are skipped; an empty result is an error.
func (c *Catalog) Subset(texts []string) (*Catalog, error) {
	keep := make(map[string]struct{}, len(texts))
	for _, t := range texts {
		keep[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	var entries []Word
	for _, w := range c.words {
		if _, ok := keep[strings.ToLower(w.Text)]; ok {
			entries = append(entries, w)
		}
	}
	sub, err := New(entries)
	if err != nil {
		return nil, err
	}
	sub.intn = c.intn
	return sub, nil
}

// PickRandomWord picks uniformly among words not in excluding (lowercase keys).
// When every word is excluded the exclusion set is ignored.
func (c *Catalog) PickRandomWord(excluding map[string]struct{}) (Word, error) {
	if len(c.words) == 0 {
		return Word{}, ErrEmptyCatalog
	}
	candidates := make([]int, 0, len(c.words))
	for i, w := range c.words {
		if _, skip := excluding[strings.ToLower(w.Text)]; !skip {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return c.words[c.intn(len(c.words))].clone(), nil
	}
	return c.words[candidates[c.intn(len(candidates))]].clone(), nil
}
