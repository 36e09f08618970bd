package game

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/smith3v/lexicon-clash/pkg/content"
)

const (
	DefaultExcerptLimit = 3

	minSegmentLen = 10
	minExcerptLen = 15
	maxExcerptLen = 200
)

var segmentSplit = regexp.MustCompile(`[.!?\n]+`)

// Analyzer counts exact word-boundary occurrences of terms. The zero value uses
// DefaultExcerptLimit; a negative ExcerptLimit disables excerpts.
type Analyzer struct {
	ExcerptLimit int
}

// Analyze runs the default analyzer.
func Analyze(item content.Item, terms []string) MatchResult {
	return Analyzer{}.Analyze(item, terms)
}

// Analyze scans title, body and discussion text. It has no side effects and
// returns the same result for the same input.
func (a Analyzer) Analyze(item content.Item, terms []string) MatchResult {
	limit := a.ExcerptLimit
	if limit == 0 {
		limit = DefaultExcerptLimit
	}

	terms = normalizeTerms(terms)
	result := MatchResult{Excerpts: []string{}}
	if len(terms) == 0 {
		return result
	}

	text := searchableText(item)
	patterns := make([]*regexp.Regexp, len(terms))
	for i, term := range terms {
		patterns[i] = termPattern(term)
		result.Count += len(findWholeWords(patterns[i], text))
	}
	if result.Count == 0 || limit < 0 {
		return result
	}

	seen := make(map[string]struct{})
	for _, segment := range segmentSplit.Split(text, -1) {
		if len(result.Excerpts) >= limit {
			break
		}
		segment = strings.TrimSpace(segment)
		if utf8.RuneCountInString(segment) <= minSegmentLen {
			continue
		}
		if !matchesAny(segment, patterns) {
			continue
		}
		excerpt := buildExcerpt(segment, patterns)
		n := utf8.RuneCountInString(excerpt)
		if n < minExcerptLen || n > maxExcerptLen {
			continue
		}
		key := strings.ToLower(excerpt)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		result.Excerpts = append(result.Excerpts, excerpt)
	}
	return result
}

// searchableText joins title, body and discussion. Summaries derived from the
// body are not part of Item, so nothing is counted twice.
func searchableText(item content.Item) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{item.Title, item.Body, item.Discussion} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n")
}

func normalizeTerms(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

// termPattern matches the term anywhere; word boundaries are checked by
// findWholeWords because RE2's \b only knows ASCII word characters.
func termPattern(term string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + regexp.QuoteMeta(term))
}

// findWholeWords returns the byte spans of matches not touching a letter,
// digit or underscore on either side. A rejected candidate does not hide a
// later match that overlaps it.
func findWholeWords(re *regexp.Regexp, text string) [][2]int {
	var spans [][2]int
	for off := 0; off < len(text); {
		loc := re.FindStringIndex(text[off:])
		if loc == nil || loc[0] == loc[1] {
			break
		}
		start, end := off+loc[0], off+loc[1]
		if wholeWord(text, start, end) {
			spans = append(spans, [2]int{start, end})
			off = end
			continue
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		off = start + size
	}
	return spans
}

func wholeWord(text string, start, end int) bool {
	first, _ := utf8.DecodeRuneInString(text[start:end])
	if isWordRune(first) && start > 0 {
		if prev, _ := utf8.DecodeLastRuneInString(text[:start]); isWordRune(prev) {
			return false
		}
	}
	last, _ := utf8.DecodeLastRuneInString(text[start:end])
	if isWordRune(last) && end < len(text) {
		if next, _ := utf8.DecodeRuneInString(text[end:]); isWordRune(next) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsMark(r)
}

func matchesAny(text string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if len(findWholeWords(p, text)) > 0 {
			return true
		}
	}
	return false
}

// highlightSpans merges the matches of all terms. Earlier matches win, and at
// the same position the longer one, so "ambiguity" is not cut at "ambiguous".
func highlightSpans(text string, patterns []*regexp.Regexp) [][2]int {
	var all [][2]int
	for _, p := range patterns {
		all = append(all, findWholeWords(p, text)...)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i][0] != all[j][0] {
			return all[i][0] < all[j][0]
		}
		return all[i][1] > all[j][1]
	})
	var spans [][2]int
	for _, sp := range all {
		if len(spans) > 0 && sp[0] < spans[len(spans)-1][1] {
			continue
		}
		spans = append(spans, sp)
	}
	return spans
}

func buildExcerpt(segment string, patterns []*regexp.Regexp) string {
	cleaned := strings.ReplaceAll(segment, "**", "")
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	cleaned = strings.Trim(cleaned, " \"'`*_>#-–—,;:")

	var b strings.Builder
	last := 0
	for _, sp := range highlightSpans(cleaned, patterns) {
		b.WriteString(cleaned[last:sp[0]])
		b.WriteString("**" + cleaned[sp[0]:sp[1]] + "**")
		last = sp[1]
	}
	b.WriteString(cleaned[last:])
	return capitalizeFirstLetter(b.String()) + "."
}

func capitalizeFirstLetter(s string) string {
	for i, r := range s {
		if unicode.IsLetter(r) {
			if unicode.IsUpper(r) {
				return s
			}
			return s[:i] + string(unicode.ToUpper(r)) + s[i+utf8.RuneLen(r):]
		}
	}
	return s
}
