// Package pipeline orchestrates a crawl from fetch through scoring, persistence and notification.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kkotium-dot/kkotium-garden-sub001/internal/extract"
	"github.com/kkotium-dot/kkotium-garden-sub001/internal/metrics"
	"github.com/kkotium-dot/kkotium-garden-sub001/internal/scoring"
	"github.com/kkotium-dot/kkotium-garden-sub001/internal/sourcing"
	"github.com/kkotium-dot/kkotium-garden-sub001/internal/taxonomy"
)

// Warning texts attached to a successful crawl.
const (
	WarnNoImages            = "no images found"
	WarnShortDescription    = "description too short"
	WarnPriceNotFound       = "price not found"
	WarnBrandMissing        = "brand missing"
	WarnWeakCategory        = "weak category match"
	WarnOriginDefaulted     = "origin defaulted"
	WarnSoldOut             = "product is sold out"
	WarnHeadlessFailed      = "headless promotion failed"
	WarnArchiveFailed       = "raw page archive failed"
	WarnPublishFailed       = "publish notification failed"
	WarnTaxonomyUnavailable = "taxonomy unavailable"
)

const (
	minDescriptionRunes = 50
	weakCategoryCutoff  = 0.5
)

// SnapshotSource yields the current taxonomy snapshot.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (*taxonomy.Snapshot, error)
}

// KeyHasher digests page bodies and derives URL-based external keys.
type KeyHasher interface {
	sourcing.Hasher
	ExternalKey(rawURL string) (string, error)
}

// Config controls pipeline behavior.
type Config struct {
	MarginPercent    float64
	RoundTo          int64
	Listing          ListingDefaults
	HeadlessPromote  bool
	ArchiveRaw       bool
	BlobPrefix       string
	ContentType      string
	Topic            string
	BatchConcurrency int
	BatchMaxItems    int
}

// Deps are the pipeline's collaborators. Limiter, Headless, Detector, Blobs
// and Publisher are optional.
type Deps struct {
	Store     sourcing.ProductStore
	Taxonomy  SnapshotSource
	Extractor *extract.Extractor
	Scorer    *scoring.Scorer
	Fetcher   sourcing.Fetcher
	Headless  sourcing.Fetcher
	Detector  sourcing.HeadlessDetector
	Limiter   sourcing.RateLimiter
	Blobs     sourcing.BlobStore
	Publisher sourcing.Publisher
	Hasher    KeyHasher
	IDs       sourcing.IDGenerator
	Clock     sourcing.Clock
}

// Pipeline runs crawl, rescore and preview requests.
type Pipeline struct {
	deps   Deps
	cfg    Config
	logger *zap.Logger
}

// New constructs a Pipeline.
func New(deps Deps, cfg Config, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RoundTo <= 0 {
		cfg.RoundTo = DefaultRoundTo
	}
	if cfg.ContentType == "" {
		cfg.ContentType = "text/html; charset=utf-8"
	}
	return &Pipeline{deps: deps, cfg: cfg, logger: logger}
}

// CrawlRequest asks for one product page to be ingested.
type CrawlRequest struct {
	URL                 string   `json:"url"`
	TargetMarginPercent *float64 `json:"target_margin_percent,omitempty"`
	SupplierPrice       *int64   `json:"supplier_price,omitempty"`
}

// CrawlResult is the tagged outcome of a crawl. Either OK is set with the
// record populated, or Error and ErrorKind describe the failure.
type CrawlResult struct {
	OK        bool                     `json:"ok"`
	Product   *sourcing.CrawledProduct `json:"product,omitempty"`
	Record    *sourcing.ProductRecord  `json:"record,omitempty"`
	Mapping   *sourcing.Mapping        `json:"mapping,omitempty"`
	Score     *sourcing.ReadinessScore `json:"score,omitempty"`
	Warnings  []string                 `json:"warnings,omitempty"`
	Error     string                   `json:"error,omitempty"`
	ErrorKind sourcing.Kind            `json:"error_kind,omitempty"`
}

// Err rebuilds an error from a failed result.
func (r CrawlResult) Err() error {
	if r.OK {
		return nil
	}
	return errors.New(r.Error)
}

// Crawl runs the full ingestion for one URL. It never panics; every failure
// is reported on the result.
func (p *Pipeline) Crawl(ctx context.Context, req CrawlRequest) (result CrawlResult) {
	profile := ""
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("crawl panicked", zap.String("url", req.URL), zap.Any("panic", r))
			result = CrawlResult{Error: "internal error", ErrorKind: sourcing.KindInternal}
		}
		outcome := "success"
		if !result.OK {
			outcome = string(result.ErrorKind)
		}
		metrics.ObserveCrawl(profile, outcome)
	}()

	var warnings []string
	warn := func(w string) { warnings = append(warnings, w) }

	record, mapping, err := p.crawl(ctx, req, warn, &profile)
	if err != nil {
		kind := sourcing.ErrorKind(err)
		p.logger.Warn("crawl failed",
			zap.String("url", req.URL),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		return CrawlResult{Warnings: warnings, Error: err.Error(), ErrorKind: kind}
	}
	p.logger.Info("crawl completed",
		zap.String("url", req.URL),
		zap.String("id", record.ID),
		zap.Int("combined", record.CombinedScore()),
		zap.Strings("warnings", warnings),
	)
	return CrawlResult{
		OK:       true,
		Product:  &record.Product,
		Record:   &record,
		Mapping:  &mapping,
		Score:    record.Score,
		Warnings: warnings,
	}
}

func (p *Pipeline) crawl(
	ctx context.Context,
	req CrawlRequest,
	warn func(string),
	profile *string,
) (sourcing.ProductRecord, sourcing.Mapping, error) {
	pageURL, err := validateURL(req.URL)
	if err != nil {
		return sourcing.ProductRecord{}, sourcing.Mapping{}, err
	}
	*profile = string(extract.Classify(pageURL))
	margin := p.cfg.MarginPercent
	if req.TargetMarginPercent != nil {
		margin = *req.TargetMarginPercent
	}
	if !validMargin(margin) {
		return sourcing.ProductRecord{}, sourcing.Mapping{}, sourcing.Invalid("target_margin_percent", "must be in [0, 100)")
	}
	if req.SupplierPrice != nil && *req.SupplierPrice <= 0 {
		return sourcing.ProductRecord{}, sourcing.Mapping{}, sourcing.Invalid("supplier_price", "must be positive")
	}

	if p.deps.Limiter != nil {
		if err := p.deps.Limiter.Wait(ctx, pageURL); err != nil {
			return sourcing.ProductRecord{}, sourcing.Mapping{}, err
		}
	}

	resp, err := p.fetchProbe(ctx, pageURL)
	if err != nil {
		return sourcing.ProductRecord{}, sourcing.Mapping{}, err
	}
	resp = p.maybePromote(ctx, pageURL, resp, warn)

	rawURI := p.archiveRaw(ctx, pageURL, resp, warn)

	product, err := p.deps.Extractor.Parse(pageURL, resp.Body)
	if err != nil {
		return sourcing.ProductRecord{}, sourcing.Mapping{}, fmt.Errorf("extract product: %w", err)
	}

	snap := p.snapshot(ctx, warn)
	mapping := mapProduct(snap, product.Title, product.Description, product.Specs)

	supplier := product.Price
	if req.SupplierPrice != nil {
		supplier = *req.SupplierPrice
	}
	pricing := sourcing.Pricing{
		SupplierPrice: supplier,
		SalePrice:     SalePrice(supplier, margin, p.cfg.RoundTo),
		OriginalPrice: product.OriginalPrice,
		MarginPercent: margin,
	}

	key, err := p.deps.Hasher.ExternalKey(pageURL)
	if err != nil {
		return sourcing.ProductRecord{}, sourcing.Mapping{}, sourcing.Invalid("url", err.Error())
	}
	id, err := p.deps.IDs.NewID()
	if err != nil {
		return sourcing.ProductRecord{}, sourcing.Mapping{}, fmt.Errorf("generate id: %w", err)
	}
	now := p.now()
	record := sourcing.ProductRecord{
		ID:          id,
		ExternalKey: key,
		Product:     product,
		Category:    mapping.Category,
		Origin:      mapping.Origin,
		Keywords:    mapping.Keywords,
		Pricing:     pricing,
		Listing:     p.cfg.Listing.build(product),
		RawBlobURI:  rawURI,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	score := p.deps.Scorer.ScoreRecord(record)
	metrics.ObserveScore(score.Qualitative.Score, score.Quantitative.Score, score.Combined)
	record.Score = &score
	record.Status = statusFor(score)

	for _, w := range productWarnings(record) {
		warn(w)
	}

	stored, err := p.deps.Store.UpsertProduct(ctx, record)
	if err != nil {
		return sourcing.ProductRecord{}, sourcing.Mapping{}, fmt.Errorf("store product: %w", err)
	}
	p.publish(ctx, stored, warn)
	return stored, mapping, nil
}

func validateURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", sourcing.Invalid("url", "is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", sourcing.Invalid("url", "is not a valid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", sourcing.Invalid("url", "must use http or https")
	}
	if u.Host == "" {
		return "", sourcing.Invalid("url", "must include a host")
	}
	return raw, nil
}

func (p *Pipeline) fetchProbe(ctx context.Context, pageURL string) (sourcing.FetchResponse, error) {
	if p.deps.Fetcher == nil {
		return sourcing.FetchResponse{}, errors.New("no probe fetcher configured")
	}
	resp, err := p.deps.Fetcher.Fetch(ctx, sourcing.FetchRequest{URL: pageURL})
	if err != nil {
		var fetchErr *sourcing.FetchError
		if !errors.As(err, &fetchErr) {
			err = &sourcing.FetchError{URL: pageURL, Err: err}
		}
		return sourcing.FetchResponse{}, fmt.Errorf("probe fetch: %w", err)
	}
	return resp, nil
}

func (p *Pipeline) maybePromote(
	ctx context.Context,
	pageURL string,
	resp sourcing.FetchResponse,
	warn func(string),
) sourcing.FetchResponse {
	if !p.cfg.HeadlessPromote || p.deps.Detector == nil || p.deps.Headless == nil {
		return resp
	}
	if !p.deps.Detector.ShouldPromote(resp) {
		return resp
	}
	headlessResp, err := p.deps.Headless.Fetch(ctx, sourcing.FetchRequest{URL: pageURL, UseHeadless: true})
	if err != nil {
		metrics.ObserveHeadlessPromotion(false)
		p.logger.Warn("headless promotion failed", zap.String("url", pageURL), zap.Error(err))
		warn(WarnHeadlessFailed)
		return resp
	}
	metrics.ObserveHeadlessPromotion(true)
	headlessResp.UsedHeadless = true
	p.logger.Debug("headless promotion applied", zap.String("url", pageURL))
	return headlessResp
}

func (p *Pipeline) buildBlobPath(site, hash string) string {
	if site == "" {
		site = "unknown"
	}
	return path.Join(strings.Trim(p.cfg.BlobPrefix, "/"), site, hash+".html")
}

func (p *Pipeline) archiveRaw(ctx context.Context, pageURL string, resp sourcing.FetchResponse, warn func(string)) string {
	if !p.cfg.ArchiveRaw || p.deps.Blobs == nil {
		return ""
	}
	hash, err := p.deps.Hasher.Hash(resp.Body)
	if err != nil {
		p.logger.Warn("hash body failed", zap.String("url", pageURL), zap.Error(err))
		warn(WarnArchiveFailed)
		return ""
	}
	key := p.buildBlobPath(metrics.SanitizeSite(pageURL), hash)
	uri, err := p.deps.Blobs.PutObject(ctx, key, p.cfg.ContentType, bytes.NewReader(resp.Body))
	if err != nil {
		p.logger.Warn("archive raw page failed", zap.String("url", pageURL), zap.String("key", key), zap.Error(err))
		warn(WarnArchiveFailed)
		return ""
	}
	return uri
}

func (p *Pipeline) snapshot(ctx context.Context, warn func(string)) *taxonomy.Snapshot {
	if p.deps.Taxonomy == nil {
		warn(WarnTaxonomyUnavailable)
		return nil
	}
	snap, err := p.deps.Taxonomy.Snapshot(ctx)
	if err != nil {
		p.logger.Warn("taxonomy snapshot unavailable", zap.Error(err))
		warn(WarnTaxonomyUnavailable)
		return nil
	}
	return snap
}

func mapProduct(snap *taxonomy.Snapshot, title, description string, specs map[string]string) sourcing.Mapping {
	return sourcing.Mapping{
		Category: taxonomy.MapCategory(snap, title, description),
		Origin:   taxonomy.MapOrigin(snap, title, description, specs),
		Keywords: taxonomy.ExtractKeywords(title, description),
	}
}

func productWarnings(r sourcing.ProductRecord) []string {
	var out []string
	if len(r.Product.Images) == 0 {
		out = append(out, WarnNoImages)
	}
	if utf8.RuneCountInString(r.Product.Description) < minDescriptionRunes {
		out = append(out, WarnShortDescription)
	}
	if !r.Product.PriceKnown() {
		out = append(out, WarnPriceNotFound)
	}
	if strings.TrimSpace(r.Product.Brand) == "" {
		out = append(out, WarnBrandMissing)
	}
	if r.Category.Confidence < weakCategoryCutoff {
		out = append(out, WarnWeakCategory)
	}
	if r.Origin.Source == sourcing.OriginFromDefault {
		out = append(out, WarnOriginDefaulted)
	}
	if r.Product.SoldOut {
		out = append(out, WarnSoldOut)
	}
	return out
}

func statusFor(score sourcing.ReadinessScore) sourcing.RecordStatus {
	if score.ExportReady {
		return sourcing.StatusReady
	}
	return sourcing.StatusDraft
}

func (p *Pipeline) publish(ctx context.Context, record sourcing.ProductRecord, warn func(string)) {
	if p.deps.Publisher == nil {
		return
	}
	payload := map[string]any{
		"id":           record.ID,
		"external_key": record.ExternalKey,
		"source_url":   record.Product.SourceURL,
		"site":         record.Product.Meta.Site,
		"status":       record.Status,
		"combined":     record.CombinedScore(),
		"export_ready": record.Score != nil && record.Score.ExportReady,
		"raw_blob_uri": record.RawBlobURI,
		"crawled_at":   record.Product.Meta.CrawledAt,
	}
	msgID, err := p.deps.Publisher.Publish(ctx, p.cfg.Topic, payload)
	if err != nil {
		p.logger.Warn("publish crawl notification failed", zap.String("id", record.ID), zap.Error(err))
		warn(WarnPublishFailed)
		return
	}
	p.logger.Debug("crawl notification published", zap.String("id", record.ID), zap.String("message_id", msgID))
}

func (p *Pipeline) now() time.Time {
	if p.deps.Clock == nil {
		return time.Now().UTC()
	}
	return p.deps.Clock.Now()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
