package taxonomy

import (
	"fmt"
	"math"
	"strings"

	"github.com/kkotium-dot/kkotium-garden-sub001/internal/sourcing"
)

const (
	// titleBonus rewards a node whose deepest level is named in the title.
	titleBonus = 50
	// titleBand is the score above which a match is attributed to the title.
	titleBand = 50
	// levelBand is the lowest score counted as a multi-level match.
	levelBand = 20
)

// levelPoints returns the points for a level at 1-based depth d: the deepest
// level (4) is worth 50 and the root 20. This is the reverse of a
// (5 - levelIndex) * 10 weighting, so deeper levels score higher.
func levelPoints(depth int) int {
	return (depth + 1) * 10
}

// MapCategory scores every active node against the product text and returns
// the best match. Ties keep the node inserted first.
func MapCategory(snap *Snapshot, title, description string) sourcing.CategoryMatch {
	if snap == nil {
		return zeroCategory()
	}
	lowerTitle := strings.ToLower(title)
	haystack := lowerTitle + " " + strings.ToLower(description)

	best := -1
	bestScore := 0
	for i, node := range snap.categories {
		if !node.Active {
			continue
		}
		score := scoreNode(node, haystack, lowerTitle)
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return zeroCategory()
	}
	node := snap.categories[best]
	return sourcing.CategoryMatch{
		Code:       node.Code,
		Path:       node.Path(),
		Levels:     node.Levels,
		Score:      bestScore,
		Confidence: Confidence(bestScore),
		Reasoning:  reasoning(bestScore, deepestLevel(node)),
	}
}

func scoreNode(node sourcing.CategoryNode, haystack, lowerTitle string) int {
	score := 0
	for i, name := range node.Levels {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if strings.Contains(haystack, name) {
			score += levelPoints(i + 1)
		}
	}
	if deepest := strings.ToLower(deepestLevel(node)); deepest != "" && strings.Contains(lowerTitle, deepest) {
		score += titleBonus
	}
	return score
}

// Confidence converts a category score into [0,1].
func Confidence(score int) float64 {
	if score <= 0 {
		return 0
	}
	return math.Min(float64(score)/100, 1)
}

func reasoning(score int, deepest string) string {
	switch {
	case score > titleBand:
		return fmt.Sprintf("title contains %q", deepest)
	case score >= levelBand:
		return "multiple level keywords found"
	default:
		return "weak similarity fallback"
	}
}

func deepestLevel(node sourcing.CategoryNode) string {
	if d := node.Depth(); d > 0 {
		return strings.TrimSpace(node.Levels[d-1])
	}
	return ""
}

func zeroCategory() sourcing.CategoryMatch {
	return sourcing.CategoryMatch{Reasoning: reasoning(0, "")}
}
