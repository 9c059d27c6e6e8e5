package export

import (
	"github.com/kkotium-dot/kkotium-garden-sub001/internal/sourcing"
)

// Defaults holds the literal values written when a record leaves a column empty.
type Defaults struct {
	TaxType          string
	ProductCondition string
	ShippingMethod   string
	Carrier          string
	FeeType          string
	FeePayment       string
	MinorPurchase    string
	MultiOrigin      string
	ASPhone          string
	ASGuide          string
}

// DefaultLiterals returns the importer's documented defaults.
func DefaultLiterals() Defaults {
	return Defaults{
		TaxType:          "과세상품",
		ProductCondition: "신상품",
		ShippingMethod:   "택배, 소포, 등기",
		Carrier:          "CJ대한통운",
		FeeType:          "유료",
		FeePayment:       "선결제",
		MinorPurchase:    "Y",
		MultiOrigin:      "N",
	}
}

// Row is one record rendered over Columns, value i belonging to Columns[i].
type Row []string

// Map returns the row keyed by column key.
func (r Row) Map() map[string]string {
	out := make(map[string]string, len(Columns))
	for i, c := range Columns {
		v := ""
		if i < len(r) {
			v = r[i]
		}
		out[c.Key] = v
	}
	return out
}

// Get returns the value of the named column, or "" for unknown keys.
func (r Row) Get(key string) string {
	for i, c := range Columns {
		if c.Key == key && i < len(r) {
			return r[i]
		}
	}
	return ""
}

// BuildRow maps a record onto the fixed schema. Every column is present;
// absent values are "".
func BuildRow(record sourcing.ProductRecord, defaults Defaults) Row {
	row := make(Row, len(Columns))
	for i, c := range Columns {
		if c.value == nil {
			continue
		}
		row[i] = c.value(record, defaults)
	}
	return row
}
