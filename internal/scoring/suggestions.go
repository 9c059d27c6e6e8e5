package scoring

import (
	"fmt"

	"github.com/kkotium-dot/kkotium-garden-sub001/internal/sourcing"
)

var moodMessages = map[sourcing.Mood]string{
	sourcing.MoodExcellent: "Listing is in great shape and ready to go.",
	sourcing.MoodGood:      "Listing is solid; a few touches will make it stand out.",
	sourcing.MoodFair:      "Listing needs some work before it will sell well.",
	sourcing.MoodPoor:      "Listing is missing key information.",
}

// moodFor maps a score onto the display ladder.
func moodFor(score int) sourcing.Mood {
	switch {
	case score >= 80:
		return sourcing.MoodExcellent
	case score >= 60:
		return sourcing.MoodGood
	case score >= 40:
		return sourcing.MoodFair
	default:
		return sourcing.MoodPoor
	}
}

var fieldSuggestions = map[string]string{
	FieldTitle:       "Lengthen the product name to at least %d characters with descriptive terms.",
	FieldKeywords:    "Add at least %d comma-separated search keywords.",
	FieldDescription: "Write a description of at least %d characters.",
	FieldBrand:       "Specify the brand or manufacturer.",
	FieldOrigin:      "State the country of origin explicitly.",
	FieldMaterial:    "Add material or specification details.",
	FieldCare:        "Add care or handling instructions.",
}

func quantitativeSuggestions(missing []string) []string {
	out := make([]string, 0, len(missing))
	for _, field := range missing {
		template, ok := fieldSuggestions[field]
		if !ok {
			continue
		}
		switch field {
		case FieldTitle:
			out = append(out, fmt.Sprintf(template, minTitleRunes))
		case FieldKeywords:
			out = append(out, fmt.Sprintf(template, minKeywordEntries))
		case FieldDescription:
			out = append(out, fmt.Sprintf(template, minDescriptionRunes))
		default:
			out = append(out, template)
		}
	}
	return out
}

var subScoreSuggestions = map[string]string{
	SubMargin:      "Raise the sale price or negotiate supplier cost to reach a 30% margin.",
	SubKeywords:    "Add more search keywords derived from the product name.",
	SubDescription: "Expand the description with usage and material details.",
	SubImages:      "Add at least 3 product images.",
	SubPrice:       "Keep the markup between 1.1x and 3x of supplier cost and below the list price.",
	SubInventory:   "Keep at least 10 units in stock.",
	SubShipping:    "Complete the shipping method, fee type, and return/exchange fees.",
	SubOptions:     "Give every option a name and at least one value.",
	SubBrand:       "Specify the brand.",
}

// qualitativeSuggestions emits one suggestion per sub-score that fell short
// of full credit, in rubric order.
func qualitativeSuggestions(breakdown []sourcing.SubScore) []string {
	out := []string{}
	for _, sub := range breakdown {
		if sub.Points >= float64(sub.Weight) {
			continue
		}
		if msg, ok := subScoreSuggestions[sub.Name]; ok {
			out = append(out, msg)
		}
	}
	return out
}
