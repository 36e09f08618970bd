package content

import (
	"strings"
	"unicode"
)

// LooseMatch reports whether text contains any term or a plural, past or
// gerund variant of it. It is a coarse pool filter only; scoring never uses it.
func LooseMatch(text string, terms []string) bool {
	variants := make(map[string]struct{})
	for _, term := range terms {
		for _, v := range suffixVariants(strings.ToLower(strings.TrimSpace(term))) {
			variants[v] = struct{}{}
		}
	}
	if len(variants) == 0 {
		return false
	}
	for _, token := range tokenize(text) {
		if _, ok := variants[strings.Trim(token, "'-")]; ok {
			return true
		}
	}
	return false
}

func suffixVariants(term string) []string {
	if term == "" {
		return nil
	}
	out := []string{term, term + "s", term + "es", term + "ed", term + "ing"}
	if strings.HasSuffix(term, "e") {
		stem := strings.TrimSuffix(term, "e")
		out = append(out, term+"d", stem+"ing")
	}
	if strings.HasSuffix(term, "y") && len(term) > 1 {
		stem := strings.TrimSuffix(term, "y")
		out = append(out, stem+"ies", stem+"ied")
	}
	return out
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\'' && r != '-'
	})
}
