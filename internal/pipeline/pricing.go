package pipeline

import (
	"math"
	"strings"

	"github.com/kkotium-dot/kkotium-garden-sub001/internal/sourcing"
)

// DefaultRoundTo is the sale price step when none is configured.
const DefaultRoundTo = 100

// SalePrice returns supplier / (1 - margin), rounded up to a multiple of
// roundTo. A non-positive supplier price yields 0.
func SalePrice(supplier int64, marginPercent float64, roundTo int64) int64 {
	if supplier <= 0 {
		return 0
	}
	if roundTo <= 0 {
		roundTo = 1
	}
	raw := float64(supplier) / (1 - marginPercent/100)
	// Guard float noise so exact multiples are not bumped a step.
	units := math.Ceil(raw/float64(roundTo) - 1e-9)
	return int64(units) * roundTo
}

func validMargin(m float64) bool {
	return m >= 0 && m < 100 && !math.IsNaN(m)
}

// ListingDefaults are seller-side values stamped onto every new record.
type ListingDefaults struct {
	Stock          int
	TaxType        string
	ShippingMethod string
	Carrier        string
	FeeType        string
	BaseFee        int64
	ReturnFee      int64
	ExchangeFee    int64
	ASPhone        string
	ASGuide        string
}

var (
	materialKeys = []string{"재질", "소재", "material", "fabric"}
	careKeys     = []string{"세탁", "관리", "취급", "care"}
	makerKeys    = []string{"제조사", "제조자", "manufacturer", "maker"}
	modelKeys    = []string{"모델명", "모델", "model"}
)

func (d ListingDefaults) build(product sourcing.CrawledProduct) sourcing.Listing {
	return sourcing.Listing{
		Material:         specValue(product.Specs, materialKeys),
		CareInstructions: specValue(product.Specs, careKeys),
		Manufacturer:     specValue(product.Specs, makerKeys),
		ModelName:        specValue(product.Specs, modelKeys),
		Stock:            d.Stock,
		Shipping: sourcing.Shipping{
			Method:      d.ShippingMethod,
			Carrier:     d.Carrier,
			FeeType:     d.FeeType,
			BaseFee:     d.BaseFee,
			ReturnFee:   d.ReturnFee,
			ExchangeFee: d.ExchangeFee,
		},
		TaxType: d.TaxType,
		ASPhone: d.ASPhone,
		ASGuide: d.ASGuide,
	}
}

// specValue returns the value of the first spec whose key contains one of
// the candidate names, checking candidates in order and keys alphabetically.
func specValue(specs map[string]string, candidates []string) string {
	if len(specs) == 0 {
		return ""
	}
	keys := sortedKeys(specs)
	for _, want := range candidates {
		for _, key := range keys {
			if strings.Contains(strings.ToLower(key), want) {
				if v := strings.TrimSpace(specs[key]); v != "" {
					return v
				}
			}
		}
	}
	return ""
}
