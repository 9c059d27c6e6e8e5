package scoring

import (
	"strings"
	"unicode/utf8"

	"github.com/kkotium-dot/kkotium-garden-sub001/internal/sourcing"
)

// Quantitative check names, also used as missing-field names.
const (
	FieldTitle       = "title"
	FieldKeywords    = "keywords"
	FieldDescription = "description"
	FieldBrand       = "brand"
	FieldOrigin      = "origin"
	FieldMaterial    = "material"
	FieldCare        = "care_instructions"
)

const (
	minTitleRunes       = 10
	minKeywordEntries   = 3
	minDescriptionRunes = 50
)

type check struct {
	field  string
	weight int
	pass   func(input) bool
}

var quantitativeChecks = []check{
	{field: FieldTitle, weight: 20, pass: func(in input) bool {
		return utf8.RuneCountInString(strings.TrimSpace(in.subject.Title)) >= minTitleRunes
	}},
	{field: FieldKeywords, weight: 20, pass: func(in input) bool {
		return keywordEntries(in.subject.Keywords.Field()) >= minKeywordEntries
	}},
	{field: FieldDescription, weight: 20, pass: func(in input) bool {
		return utf8.RuneCountInString(strings.TrimSpace(in.subject.Description)) >= minDescriptionRunes
	}},
	{field: FieldBrand, weight: 10, pass: func(in input) bool {
		return strings.TrimSpace(in.subject.Brand) != ""
	}},
	// A defaulted origin was never stated by the source page.
	{field: FieldOrigin, weight: 10, pass: func(in input) bool {
		return in.subject.Origin.Code != "" && in.subject.Origin.Source != sourcing.OriginFromDefault
	}},
	{field: FieldMaterial, weight: 10, pass: func(in input) bool {
		return strings.TrimSpace(in.subject.Listing.Material) != ""
	}},
	{field: FieldCare, weight: 10, pass: func(in input) bool {
		return strings.TrimSpace(in.subject.Listing.CareInstructions) != ""
	}},
}

func evaluateQuantitative(in input) sourcing.QuantitativeScore {
	checks := make([]sourcing.Check, 0, len(quantitativeChecks))
	missing := []string{}
	total := 0
	for _, c := range quantitativeChecks {
		passed := c.pass(in)
		checks = append(checks, sourcing.Check{Field: c.field, Weight: c.weight, Passed: passed})
		if passed {
			total += c.weight
			continue
		}
		missing = append(missing, c.field)
	}
	return sourcing.QuantitativeScore{
		Score:         clampScore(float64(total)),
		Checks:        checks,
		MissingFields: missing,
		Suggestions:   quantitativeSuggestions(missing),
	}
}

func keywordEntries(field string) int {
	n := 0
	for _, entry := range strings.Split(field, ",") {
		if strings.TrimSpace(entry) != "" {
			n++
		}
	}
	return n
}
