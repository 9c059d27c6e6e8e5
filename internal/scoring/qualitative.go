package scoring

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/kkotium-dot/kkotium-garden-sub001/internal/sourcing"
)

// Qualitative sub-score names.
const (
	SubMargin      = "margin"
	SubKeywords    = "keywords"
	SubDescription = "description"
	SubImages      = "images"
	SubPrice       = "price_competitiveness"
	SubInventory   = "inventory"
	SubShipping    = "shipping"
	SubReviews     = "reviews"
	SubOptions     = "options"
	SubBrand       = "brand"
)

const (
	fullMargin       = 0.30
	fullKeywords     = 3
	fullDescription  = 50
	fullImages       = 3
	healthyStock     = 10
	minMarkup        = 1.1
	maxMarkup        = 3.0
	tolerableMarkup  = 5.0
	shippingElements = 4
)

type rule struct {
	name   string
	weight int
	// credit returns the fraction of weight earned, in [0,1].
	credit func(input) float64
	// gap names the missing field when no credit is earned; empty means the
	// sub-score never contributes to missing fields.
	gap string
}

var qualitativeRules = []rule{
	{name: SubMargin, weight: 20, credit: marginCredit},
	{name: SubKeywords, weight: 20, credit: keywordCredit, gap: "keywords"},
	{name: SubDescription, weight: 15, credit: descriptionCredit, gap: "description"},
	{name: SubImages, weight: 10, credit: imageCredit, gap: "images"},
	{name: SubPrice, weight: 10, credit: priceCredit},
	{name: SubInventory, weight: 10, credit: inventoryCredit, gap: "stock"},
	{name: SubShipping, weight: 5, credit: shippingCredit, gap: "shipping"},
	{name: SubReviews, weight: 5, credit: reviewCredit},
	{name: SubOptions, weight: 3, credit: optionCredit},
	{name: SubBrand, weight: 2, credit: brandCredit, gap: "brand"},
}

func evaluateQualitative(in input) sourcing.QualitativeScore {
	breakdown := make([]sourcing.SubScore, 0, len(qualitativeRules))
	var missing []string
	total := 0.0
	for _, r := range qualitativeRules {
		credit := math.Max(0, math.Min(1, r.credit(in)))
		points := math.Round(credit*float64(r.weight)*100) / 100
		breakdown = append(breakdown, sourcing.SubScore{Name: r.name, Weight: r.weight, Points: points})
		total += points
		if credit == 0 && r.gap != "" {
			missing = append(missing, r.gap)
		}
	}
	score := clampScore(total)
	mood := moodFor(score)
	return sourcing.QualitativeScore{
		Score:       score,
		Breakdown:   breakdown,
		Mood:        mood,
		Message:     moodMessages[mood],
		Suggestions: qualitativeSuggestions(breakdown),
		Missing:     nonNil(missing),
	}
}

func linear(have, full float64) float64 {
	if full <= 0 {
		return 1
	}
	return math.Min(math.Max(have, 0)/full, 1)
}

func marginCredit(in input) float64 {
	return linear(in.pricing.Margin(), fullMargin)
}

func keywordCredit(in input) float64 {
	return linear(float64(len(in.subject.Keywords.SEO)), fullKeywords)
}

func descriptionCredit(in input) float64 {
	return linear(float64(utf8.RuneCountInString(strings.TrimSpace(in.subject.Description))), fullDescription)
}

func imageCredit(in input) float64 {
	return linear(float64(len(in.media.Images)), fullImages)
}

// priceCredit rewards a sale/supplier markup inside the healthy band and
// halves the credit when the sale price exceeds the source list price.
func priceCredit(in input) float64 {
	p := in.pricing
	if p.SupplierPrice <= 0 || p.SalePrice <= 0 {
		return 0
	}
	markup := float64(p.SalePrice) / float64(p.SupplierPrice)
	var credit float64
	switch {
	case markup >= minMarkup && markup <= maxMarkup:
		credit = 1
	case markup > 1 && markup < minMarkup, markup > maxMarkup && markup <= tolerableMarkup:
		credit = 0.5
	default:
		return 0
	}
	list := p.OriginalPrice
	if list <= 0 {
		list = in.subject.ListPrice
	}
	if list > 0 && p.SalePrice > list {
		credit /= 2
	}
	return credit
}

func inventoryCredit(in input) float64 {
	if in.subject.SoldOut {
		return 0
	}
	switch stock := in.subject.Listing.Stock; {
	case stock >= healthyStock:
		return 1
	case stock > 0:
		return 0.5
	default:
		return 0
	}
}

func shippingCredit(in input) float64 {
	s := in.subject.Listing.Shipping
	present := 0
	if strings.TrimSpace(s.Method) != "" {
		present++
	}
	if strings.TrimSpace(s.FeeType) != "" {
		present++
	}
	if s.ReturnFee > 0 {
		present++
	}
	if s.ExchangeFee > 0 {
		present++
	}
	return float64(present) / shippingElements
}

func reviewCredit(in input) float64 {
	if in.subject.Listing.ReviewCount > 0 {
		return 1
	}
	return 0
}

func optionCredit(in input) float64 {
	for _, opt := range in.subject.Listing.Options {
		if strings.TrimSpace(opt.Name) == "" || len(opt.Values) == 0 {
			return 0
		}
	}
	return 1
}

func brandCredit(in input) float64 {
	if strings.TrimSpace(in.subject.Brand) != "" {
		return 1
	}
	return 0
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
