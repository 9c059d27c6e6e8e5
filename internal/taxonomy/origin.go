package taxonomy

import (
	"sort"
	"strings"

	"github.com/kkotium-dot/kkotium-garden-sub001/internal/sourcing"
)

// Fallback origin used when the snapshot carries none.
const (
	DefaultOriginCode   = "00"
	DefaultOriginRegion = "국산"
)

const (
	foundConfidence   = 1.0
	defaultConfidence = 0.5
)

var originKeyWords = []string{"origin", "원산지", "제조국", "생산지", "country"}

// MapOrigin finds the first active region named in the origin-like spec
// entries, then the description, then the title. Without a hit it returns the
// snapshot's default origin at confidence 0.5.
func MapOrigin(snap *Snapshot, title, description string, specs map[string]string) sourcing.OriginMatch {
	fallback := sourcing.OriginRegion{Code: DefaultOriginCode, Name: DefaultOriginRegion}
	if snap != nil && snap.defaultOrigin.Code != "" {
		fallback = snap.defaultOrigin
	}
	if snap == nil {
		return defaultMatch(fallback)
	}

	if region, ok := findRegion(snap, originSpecText(specs)); ok {
		return foundMatch(region, sourcing.OriginFromSpecification)
	}
	if region, ok := findRegion(snap, description); ok {
		return foundMatch(region, sourcing.OriginFromDescription)
	}
	if region, ok := findRegion(snap, title); ok {
		return foundMatch(region, sourcing.OriginFromProductName)
	}
	return defaultMatch(fallback)
}

// originSpecText joins the values of origin-like spec keys in sorted key order.
func originSpecText(specs map[string]string) string {
	if len(specs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(specs))
	for key := range specs {
		lower := strings.ToLower(key)
		for _, word := range originKeyWords {
			if strings.Contains(lower, word) {
				keys = append(keys, key)
				break
			}
		}
	}
	sort.Strings(keys)
	values := make([]string, 0, len(keys))
	for _, key := range keys {
		values = append(values, specs[key])
	}
	return strings.Join(values, "\n")
}

func findRegion(snap *Snapshot, text string) (sourcing.OriginRegion, bool) {
	if strings.TrimSpace(text) == "" {
		return sourcing.OriginRegion{}, false
	}
	lower := strings.ToLower(text)
	for _, region := range snap.origins {
		if !region.Active {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(region.Name))
		if name != "" && strings.Contains(lower, name) {
			return region, true
		}
	}
	return sourcing.OriginRegion{}, false
}

func foundMatch(region sourcing.OriginRegion, source sourcing.OriginSource) sourcing.OriginMatch {
	return sourcing.OriginMatch{
		Code:       region.Code,
		Region:     region.Name,
		Confidence: foundConfidence,
		Source:     source,
	}
}

func defaultMatch(region sourcing.OriginRegion) sourcing.OriginMatch {
	return sourcing.OriginMatch{
		Code:       region.Code,
		Region:     region.Name,
		Confidence: defaultConfidence,
		Source:     sourcing.OriginFromDefault,
	}
}
