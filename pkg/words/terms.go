package words

import (
	"fmt"
	"strings"
)

// TermMode decides which alternate forms of a word count as matches.
type TermMode string

const (
	// TermModeLiteral matches only the word itself.
	TermModeLiteral TermMode = "literal"
	// TermModeFirstSynonym matches the word and its first synonym.
	TermModeFirstSynonym TermMode = "firstSynonym"
	// TermModeAllForms matches the word, every synonym and every inflection.
	TermModeAllForms TermMode = "allForms"
)

func ParseTermMode(value string) (TermMode, error) {
	switch TermMode(strings.TrimSpace(value)) {
	case TermModeLiteral:
		return TermModeLiteral, nil
	case "", TermModeFirstSynonym:
		return TermModeFirstSynonym, nil
	case TermModeAllForms:
		return TermModeAllForms, nil
	default:
		return "", fmt.Errorf("invalid term mode %q", value)
	}
}

// Terms returns the alternate-term set for mode, literal word first, with
// case-insensitive duplicates and blanks removed.
func (w Word) Terms(mode TermMode) []string {
	candidates := []string{w.Text}
	switch mode {
	case TermModeLiteral:
	case TermModeAllForms:
		candidates = append(candidates, w.Synonyms...)
		candidates = append(candidates, w.Inflections...)
	default:
		if len(w.Synonyms) > 0 {
			candidates = append(candidates, w.Synonyms[0])
		}
	}

	seen := make(map[string]struct{}, len(candidates))
	terms := make([]string, 0, len(candidates))
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		key := strings.ToLower(c)
		if c == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		terms = append(terms, c)
	}
	return terms
}
