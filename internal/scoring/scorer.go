// Package scoring computes listing readiness from two independent rubrics.
package scoring

import (
	"math"
	"time"

	"github.com/kkotium-dot/kkotium-garden-sub001/internal/sourcing"
)

// DefaultExportReadyThreshold is the combined score at which a record may be exported.
const DefaultExportReadyThreshold = 60

// Subject is the scoring view of an enriched product.
type Subject struct {
	Title       string
	Description string
	Brand       string
	// ListPrice is the source page's original/list price; 0 when absent.
	ListPrice int64
	SoldOut   bool
	Keywords  sourcing.KeywordSet
	Origin    sourcing.OriginMatch
	Listing   sourcing.Listing
}

// SubjectFromRecord builds the scoring view of a stored record.
func SubjectFromRecord(r sourcing.ProductRecord) Subject {
	return Subject{
		Title:       r.Product.Title,
		Description: r.Product.Description,
		Brand:       r.Product.Brand,
		ListPrice:   r.Product.OriginalPrice,
		SoldOut:     r.Product.SoldOut,
		Keywords:    r.Keywords,
		Origin:      r.Origin,
		Listing:     r.Listing,
	}
}

// Scorer evaluates readiness. It holds no mutable state.
type Scorer struct {
	threshold int
	clock     sourcing.Clock
}

// New builds a Scorer. A non-positive threshold selects the default.
func New(threshold int, clock sourcing.Clock) *Scorer {
	if threshold <= 0 {
		threshold = DefaultExportReadyThreshold
	}
	return &Scorer{threshold: threshold, clock: clock}
}

// Threshold reports the export-ready cut-off.
func (s *Scorer) Threshold() int {
	return s.threshold
}

// Score evaluates both rubrics. It never fails: unavailable signals score
// their lowest value.
func (s *Scorer) Score(subject Subject, pricing sourcing.Pricing, media sourcing.Media) sourcing.ReadinessScore {
	in := input{subject: subject, pricing: pricing, media: media}
	qualitative := evaluateQualitative(in)
	quantitative := evaluateQuantitative(in)
	combined := int(math.Round(float64(qualitative.Score+quantitative.Score) / 2))

	return sourcing.ReadinessScore{
		Qualitative:  qualitative,
		Quantitative: quantitative,
		Combined:     combined,
		ExportReady:  combined >= s.threshold,
		EvaluatedAt:  s.now(),
	}
}

// ScoreRecord scores a stored record.
func (s *Scorer) ScoreRecord(r sourcing.ProductRecord) sourcing.ReadinessScore {
	return s.Score(SubjectFromRecord(r), r.Pricing, sourcing.Media{Images: r.Product.Images})
}

func (s *Scorer) now() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock.Now()
}

type input struct {
	subject Subject
	pricing sourcing.Pricing
	media   sourcing.Media
}

func clampScore(v float64) int {
	return int(math.Round(math.Max(0, math.Min(100, v))))
}
