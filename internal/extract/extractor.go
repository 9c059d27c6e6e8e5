// Package extract turns wholesale product pages into canonical product records.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/kkotium-dot/kkotium-garden-sub001/internal/sourcing"
)

// Options bounds extracted values.
type Options struct {
	DescriptionMaxRunes int
	MaxImages           int
}

// Extractor parses product markup using per-site rules with generic fallbacks.
type Extractor struct {
	opts   Options
	clock  sourcing.Clock
	logger *zap.Logger
}

// New builds an Extractor.
func New(opts Options, clock sourcing.Clock, logger *zap.Logger) *Extractor {
	if opts.DescriptionMaxRunes <= 0 {
		opts.DescriptionMaxRunes = DefaultDescriptionMaxRunes
	}
	if opts.MaxImages <= 0 {
		opts.MaxImages = DefaultMaxImages
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{opts: opts, clock: clock, logger: logger}
}

// Extract fetches pageURL and parses the result.
func (e *Extractor) Extract(ctx context.Context, fetcher sourcing.Fetcher, pageURL string) (sourcing.CrawledProduct, error) {
	resp, err := fetcher.Fetch(ctx, sourcing.FetchRequest{URL: pageURL})
	if err != nil {
		return sourcing.CrawledProduct{}, fmt.Errorf("extract fetch: %w", err)
	}
	return e.Parse(pageURL, resp.Body)
}

// Parse extracts a product from markup. Only a missing title is fatal; every
// other gap yields a zero value for the pipeline to flag.
func (e *Extractor) Parse(pageURL string, markup []byte) (sourcing.CrawledProduct, error) {
	profile := Classify(pageURL)
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return sourcing.CrawledProduct{}, fmt.Errorf("parse markup: %w", err)
	}
	rules := RulesFor(profile)
	page := pageDoc{doc: doc}

	title := CleanText(page.firstText(rules.Title))
	if title == "" {
		title = page.genericTitle()
	}
	if title == "" {
		return sourcing.CrawledProduct{}, &sourcing.ParseError{URL: pageURL, Profile: string(profile)}
	}

	price := ParsePrice(page.firstText(rules.Price))
	if price == 0 {
		price = ParsePrice(page.genericPrice())
	}
	original := ParsePrice(page.firstText(rules.OriginalPrice))
	if original == 0 {
		original = ParsePrice(page.metaContent("product:original_price:amount"))
	}

	description := CleanDescription(page.firstHTML(rules.Description), e.opts.DescriptionMaxRunes)
	if description == "" {
		description = CleanDescription(page.genericDescription(), e.opts.DescriptionMaxRunes)
	}

	images := NormalizeImages(pageURL, page.imageSources(rules.Images), e.opts.MaxImages)
	if len(images) == 0 {
		images = NormalizeImages(pageURL, page.genericImages(), e.opts.MaxImages)
	}

	brand := CleanText(page.firstText(rules.Brand))
	if brand == "" {
		brand = CleanText(page.genericBrand())
	}

	specs := page.specTable(rules.SpecRow, rules.SpecKey, rules.SpecValue)
	if len(specs) == 0 {
		specs = page.genericSpecs()
	}

	product := sourcing.CrawledProduct{
		SourceURL:     pageURL,
		Title:         title,
		Price:         price,
		OriginalPrice: original,
		Description:   description,
		Images:        images,
		Brand:         brand,
		Specs:         specs,
		SoldOut:       page.exists(rules.SoldOut) || page.genericSoldOut(),
		Meta: sourcing.CrawlMeta{
			Site:      hostname(pageURL),
			Profile:   string(profile),
			CrawledAt: e.now(),
			Success:   true,
		},
	}
	e.logger.Debug("parsed product",
		zap.String("url", pageURL),
		zap.String("profile", string(profile)),
		zap.Int64("price", price),
		zap.Int("images", len(images)),
	)
	return product, nil
}

func (e *Extractor) now() time.Time {
	if e.clock == nil {
		return time.Now().UTC()
	}
	return e.clock.Now()
}

func hostname(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
