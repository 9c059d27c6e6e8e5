// Package sourcing defines core types shared across the sourcing pipeline.
package sourcing

import (
	"net/http"
	"strings"
	"time"
)

// CrawledProduct is the canonical, site-agnostic record produced by one
// successful extraction. Values are never mutated after Parse returns.
type CrawledProduct struct {
	SourceURL     string            `json:"source_url"`
	Title         string            `json:"title"`
	Price         int64             `json:"price"`
	OriginalPrice int64             `json:"original_price,omitempty"`
	Description   string            `json:"description"`
	Images        []string          `json:"images"`
	Brand         string            `json:"brand,omitempty"`
	Specs         map[string]string `json:"specs,omitempty"`
	SoldOut       bool              `json:"sold_out,omitempty"`
	Meta          CrawlMeta         `json:"meta"`
}

// CrawlMeta records where and when a product was extracted.
type CrawlMeta struct {
	Site      string    `json:"site"`
	Profile   string    `json:"profile"`
	CrawledAt time.Time `json:"crawled_at"`
	Success   bool      `json:"success"`
}

// PriceKnown reports whether extraction located a usable price. A zero price
// means "unknown", never "free".
func (p CrawledProduct) PriceKnown() bool {
	return p.Price > 0
}

// CategoryMatch is the result of mapping a product onto the category tree.
type CategoryMatch struct {
	Code       string    `json:"code"`
	Path       string    `json:"path"`
	Levels     [4]string `json:"levels"`
	Score      int       `json:"score"`
	Confidence float64   `json:"confidence"`
	Reasoning  string    `json:"reasoning"`
}

// OriginSource tags where an origin match was found.
type OriginSource string

// Origin source tags.
const (
	OriginFromSpecification OriginSource = "specification"
	OriginFromDescription   OriginSource = "description"
	OriginFromProductName   OriginSource = "product_name"
	OriginFromDefault       OriginSource = "default"
)

// OriginMatch is the result of mapping a product onto an origin region.
type OriginMatch struct {
	Code       string       `json:"code"`
	Region     string       `json:"region"`
	Confidence float64      `json:"confidence"`
	Source     OriginSource `json:"source"`
}

// KeywordSet holds the keyword lists derived from a title and description.
type KeywordSet struct {
	Primary   []string `json:"primary"`
	Secondary []string `json:"secondary"`
	SEO       []string `json:"seo"`
}

// Field joins the SEO keywords into the comma separated marketplace keyword field.
func (k KeywordSet) Field() string {
	return strings.Join(k.SEO, ",")
}

// Mapping bundles the auto-mapper outputs for one product.
type Mapping struct {
	Category CategoryMatch `json:"category"`
	Origin   OriginMatch   `json:"origin"`
	Keywords KeywordSet    `json:"keywords"`
}

// CategoryNode is one entry of the up-to-four-level category tree.
type CategoryNode struct {
	Code     string    `json:"code"`
	Levels   [4]string `json:"levels"`
	Active   bool      `json:"active"`
	Position int       `json:"position"`
}

// Depth returns the number of populated levels.
func (n CategoryNode) Depth() int {
	depth := 0
	for i, name := range n.Levels {
		if strings.TrimSpace(name) != "" {
			depth = i + 1
		}
	}
	return depth
}

// Path renders the populated levels as a display path.
func (n CategoryNode) Path() string {
	parts := make([]string, 0, len(n.Levels))
	for _, name := range n.Levels {
		if name = strings.TrimSpace(name); name != "" {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, " > ")
}

// OriginRegion is one origin/region code of the marketplace.
type OriginRegion struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Active   bool   `json:"active"`
	Position int    `json:"position"`
}

// Pricing carries supplier and sale prices in minor currency units.
type Pricing struct {
	SupplierPrice int64   `json:"supplier_price"`
	SalePrice     int64   `json:"sale_price"`
	OriginalPrice int64   `json:"original_price,omitempty"`
	MarginPercent float64 `json:"margin_percent"`
}

// Margin returns (sale-supplier)/sale, or 0 when the sale price is unknown.
func (p Pricing) Margin() float64 {
	if p.SalePrice <= 0 || p.SupplierPrice <= 0 {
		return 0
	}
	return float64(p.SalePrice-p.SupplierPrice) / float64(p.SalePrice)
}

// Media summarizes the imagery available for a listing.
type Media struct {
	Images []string `json:"images"`
}

// Option is one selectable product option (e.g. colour with its values).
type Option struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
	Price  int64    `json:"price,omitempty"`
	Stock  int      `json:"stock,omitempty"`
}

// Shipping describes the delivery policy attached to a listing.
type Shipping struct {
	Method      string `json:"method"`
	Carrier     string `json:"carrier"`
	FeeType     string `json:"fee_type"`
	BaseFee     int64  `json:"base_fee"`
	FreeOver    int64  `json:"free_over,omitempty"`
	ReturnFee   int64  `json:"return_fee"`
	ExchangeFee int64  `json:"exchange_fee"`
	TemplateID  string `json:"template_id,omitempty"`
}

// Discounts carries instant discount and point settings.
type Discounts struct {
	InstantRate      int   `json:"instant_rate,omitempty"`
	InstantAmount    int64 `json:"instant_amount,omitempty"`
	PurchasePointPct int   `json:"purchase_point_pct,omitempty"`
	MultiBuyQuantity int   `json:"multi_buy_quantity,omitempty"`
	MultiBuyRate     int   `json:"multi_buy_rate,omitempty"`
}

// ReviewPoints carries review-incentive points.
type ReviewPoints struct {
	Text       int64 `json:"text,omitempty"`
	Photo      int64 `json:"photo,omitempty"`
	MonthText  int64 `json:"month_text,omitempty"`
	MonthPhoto int64 `json:"month_photo,omitempty"`
	Subscriber int64 `json:"subscriber,omitempty"`
}

// Listing holds the seller-side attributes that are not scraped from the page.
type Listing struct {
	Material         string       `json:"material,omitempty"`
	CareInstructions string       `json:"care_instructions,omitempty"`
	Manufacturer     string       `json:"manufacturer,omitempty"`
	ModelName        string       `json:"model_name,omitempty"`
	Stock            int          `json:"stock"`
	Options          []Option     `json:"options,omitempty"`
	Shipping         Shipping     `json:"shipping"`
	Discounts        Discounts    `json:"discounts"`
	ReviewPoints     ReviewPoints `json:"review_points"`
	ReviewCount      int          `json:"review_count"`
	TaxType          string       `json:"tax_type,omitempty"`
	Certification    string       `json:"certification,omitempty"`
	ASPhone          string       `json:"as_phone,omitempty"`
	ASGuide          string       `json:"as_guide,omitempty"`
	Gift             string       `json:"gift,omitempty"`
	Barcode          string       `json:"barcode,omitempty"`
}

// SubScore is one weighted entry of the qualitative rubric.
type SubScore struct {
	Name   string  `json:"name"`
	Weight int     `json:"weight"`
	Points float64 `json:"points"`
}

// Mood is the user-facing tone of a readiness score. It carries no logic.
type Mood string

// Mood ladder values.
const (
	MoodExcellent Mood = "excellent"
	MoodGood      Mood = "good"
	MoodFair      Mood = "fair"
	MoodPoor      Mood = "poor"
)

// QualitativeScore is the weighted listing-quality rubric.
type QualitativeScore struct {
	Score       int        `json:"score"`
	Breakdown   []SubScore `json:"breakdown"`
	Mood        Mood       `json:"mood"`
	Message     string     `json:"message"`
	Suggestions []string   `json:"suggestions"`
	Missing     []string   `json:"missing"`
}

// Check is one entry of the quantitative marketplace-SEO rubric.
type Check struct {
	Field  string `json:"field"`
	Weight int    `json:"weight"`
	Passed bool   `json:"passed"`
}

// QuantitativeScore is the marketplace-SEO rubric.
type QuantitativeScore struct {
	Score         int      `json:"score"`
	Checks        []Check  `json:"checks"`
	MissingFields []string `json:"missing_fields"`
	Suggestions   []string `json:"suggestions"`
}

// ReadinessScore combines both rubrics. It is always replaced as a whole.
type ReadinessScore struct {
	Qualitative  QualitativeScore  `json:"qualitative"`
	Quantitative QuantitativeScore `json:"quantitative"`
	Combined     int               `json:"combined"`
	ExportReady  bool              `json:"export_ready"`
	EvaluatedAt  time.Time         `json:"evaluated_at"`
}

// MissingFields merges the quantitative missing fields with qualitative gaps,
// deduplicated in first-seen order.
func (r ReadinessScore) MissingFields() []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(r.Quantitative.MissingFields)+len(r.Qualitative.Missing))
	for _, list := range [][]string{r.Quantitative.MissingFields, r.Qualitative.Missing} {
		for _, field := range list {
			if _, ok := seen[field]; ok {
				continue
			}
			seen[field] = struct{}{}
			out = append(out, field)
		}
	}
	return out
}

// RecordStatus is the lifecycle state of a stored product record.
type RecordStatus string

// Record status values persisted in the record store.
const (
	StatusDraft    RecordStatus = "draft"
	StatusReady    RecordStatus = "ready"
	StatusExported RecordStatus = "exported"
)

// ProductRecord is the enriched, store-shaped record that feeds the exporter.
type ProductRecord struct {
	ID          string          `json:"id"`
	ExternalKey string          `json:"external_key"`
	Product     CrawledProduct  `json:"product"`
	Category    CategoryMatch   `json:"category"`
	Origin      OriginMatch     `json:"origin"`
	Keywords    KeywordSet      `json:"keywords"`
	Pricing     Pricing         `json:"pricing"`
	Listing     Listing         `json:"listing"`
	Score       *ReadinessScore `json:"score,omitempty"`
	Status      RecordStatus    `json:"status"`
	RawBlobURI  string          `json:"raw_blob_uri,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CombinedScore returns the stored combined score or 0 when unscored.
func (r ProductRecord) CombinedScore() int {
	if r.Score == nil {
		return 0
	}
	return r.Score.Combined
}

// ProductFilter selects records for listing and filtered exports. Zero values
// disable a constraint. From and To are inclusive bounds on CreatedAt.
type ProductFilter struct {
	Status       RecordStatus `json:"status,omitempty"`
	MinScore     *int         `json:"min_score,omitempty"`
	MaxScore     *int         `json:"max_score,omitempty"`
	CategoryCode string       `json:"category_code,omitempty"`
	From         *time.Time   `json:"from,omitempty"`
	To           *time.Time   `json:"to,omitempty"`
	Limit        int          `json:"limit,omitempty"`
}

// Matches reports whether a record satisfies the filter.
func (f ProductFilter) Matches(r ProductRecord) bool {
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	score := r.CombinedScore()
	if f.MinScore != nil && score < *f.MinScore {
		return false
	}
	if f.MaxScore != nil && score > *f.MaxScore {
		return false
	}
	if f.CategoryCode != "" && r.Category.Code != f.CategoryCode {
		return false
	}
	if f.From != nil && r.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && r.CreatedAt.After(*f.To) {
		return false
	}
	return true
}

// FetchRequest captures everything needed to fetch a URL.
type FetchRequest struct {
	URL         string
	UseHeadless bool
	Headers     http.Header
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL          string
	StatusCode   int
	Headers      http.Header
	Body         []byte
	Duration     time.Duration
	UsedHeadless bool
}
