package taxonomy

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kkotium-dot/kkotium-garden-sub001/internal/sourcing"
)

const (
	maxPrimary   = 5
	maxSecondary = 10
	maxSEO       = 10
	minTokenLen  = 2

	recommendSuffix = " 추천"
)

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "of": {}, "in": {}, "on": {},
	"to": {}, "by": {}, "from": {}, "is": {}, "are": {}, "this": {}, "that": {},
	"your": {}, "our": {}, "an": {}, "at": {}, "or": {}, "it": {}, "be": {},
	"as": {}, "all": {}, "new": {}, "best": {}, "free": {},
	"무료배송": {}, "당일발송": {}, "도매": {}, "특가": {}, "할인": {}, "최저가": {},
	"인기": {}, "추천": {}, "상품": {}, "제품": {}, "신상": {}, "정품": {},
	"배송": {}, "판매": {}, "및": {}, "등": {}, "위한": {}, "있는": {},
}

// Tokenize splits text on any rune that is not a letter or digit, lowercases,
// and drops short tokens and stopwords. Order and repeats are preserved.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, tok := range fields {
		if utf8.RuneCountInString(tok) < minTokenLen {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// ExtractKeywords derives primary, secondary and SEO keyword lists.
func ExtractKeywords(title, description string) sourcing.KeywordSet {
	titleTokens := Tokenize(title)
	primary := dedupe(titleTokens, maxPrimary)

	inPrimary := make(map[string]struct{}, len(primary))
	for _, tok := range primary {
		inPrimary[tok] = struct{}{}
	}

	all := append(append([]string(nil), titleTokens...), Tokenize(description)...)
	secondary := rankByFrequency(all, inPrimary, maxSecondary)

	seo := append([]string(nil), primary...)
	if len(primary) >= 2 {
		seo = append(seo, primary[0]+" "+primary[1])
	}
	if len(primary) >= 1 {
		seo = append(seo, primary[0]+recommendSuffix)
	}

	return sourcing.KeywordSet{
		Primary:   primary,
		Secondary: secondary,
		SEO:       dedupe(seo, maxSEO),
	}
}

func dedupe(tokens []string, limit int) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, min(len(tokens), limit))
	for _, tok := range tokens {
		if len(out) == limit {
			break
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

// rankByFrequency orders distinct tokens by count descending, ties by first
// occurrence, skipping excluded tokens.
func rankByFrequency(tokens []string, exclude map[string]struct{}, limit int) []string {
	type entry struct {
		token string
		count int
		first int
	}
	index := make(map[string]int)
	var entries []entry
	for pos, tok := range tokens {
		if _, skip := exclude[tok]; skip {
			continue
		}
		if i, ok := index[tok]; ok {
			entries[i].count++
			continue
		}
		index[tok] = len(entries)
		entries = append(entries, entry{token: tok, count: 1, first: pos})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].first < entries[j].first
	})
	out := make([]string, 0, min(len(entries), limit))
	for _, e := range entries {
		if len(out) == limit {
			break
		}
		out = append(out, e.token)
	}
	return out
}
