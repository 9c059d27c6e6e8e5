package extract

import (
	"html"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Default bounds applied when Options leaves them zero.
const (
	DefaultDescriptionMaxRunes = 2000
	DefaultMaxImages           = 20
)

var stripPolicy = bluemonday.StrictPolicy().AddSpaceWhenStrippingTag(true)

// ParsePrice reads the first segment of a possibly ranged price string
// ("12,000원 ~ 15,000원") and keeps its digits. Zero means unknown.
func ParsePrice(raw string) int64 {
	if idx := strings.IndexAny(raw, "~～"); idx >= 0 {
		raw = raw[:idx]
	}
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0
	}
	v, err := strconv.ParseInt(b.String(), 10, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// CleanText collapses all whitespace runs into single spaces.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// CleanDescription strips markup, decodes entities, collapses whitespace and
// truncates to maxRunes.
func CleanDescription(markup string, maxRunes int) string {
	if maxRunes <= 0 {
		maxRunes = DefaultDescriptionMaxRunes
	}
	text := CleanText(html.UnescapeString(stripPolicy.Sanitize(markup)))
	return truncateRunes(text, maxRunes)
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == limit {
			return strings.TrimSpace(s[:i])
		}
		count++
	}
	return s
}

// NormalizeImages resolves candidates against the page URL, upgrades
// protocol-relative references to https, drops data: URIs and anything that is
// not http(s), deduplicates in first-seen order and caps the list.
func NormalizeImages(pageURL string, candidates []string, limit int) []string {
	if limit <= 0 {
		limit = DefaultMaxImages
	}
	base, _ := url.Parse(pageURL)
	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, min(len(candidates), limit))
	for _, raw := range candidates {
		if len(out) == limit {
			break
		}
		abs, ok := resolveImage(base, raw)
		if !ok {
			continue
		}
		if _, dup := seen[abs]; dup {
			continue
		}
		seen[abs] = struct{}{}
		out = append(out, abs)
	}
	return out
}

func resolveImage(base *url.URL, raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(strings.ToLower(raw), "data:") {
		return "", false
	}
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if !ref.IsAbs() {
		if base == nil || !base.IsAbs() {
			return "", false
		}
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return "", false
	}
	return ref.String(), true
}

var decorativeImageTokens = []string{
	"logo", "icon", "sprite", "banner", "btn", "blank", "spacer", "loading", "1x1",
}

// isDecorativeImage reports whether an image file name looks like chrome
// rather than product imagery.
func isDecorativeImage(src string) bool {
	u, err := url.Parse(strings.TrimSpace(src))
	name := src
	if err == nil {
		name = path.Base(u.Path)
	}
	name = strings.ToLower(name)
	for _, token := range decorativeImageTokens {
		if strings.Contains(name, token) {
			return true
		}
	}
	return false
}
