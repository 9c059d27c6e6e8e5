package sourcing

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestErrorKind(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "nil", err: nil, want: KindNone},
		{name: "validation", err: Invalid("url", "required"), want: KindValidation},
		{name: "fetch wrapped", err: fmt.Errorf("crawl: %w", &FetchError{URL: "u", StatusCode: 500}), want: KindFetch},
		{name: "parse", err: &ParseError{URL: "u", Profile: "generic"}, want: KindParse},
		{name: "not found", err: fmt.Errorf("get product: %w", ErrNotFound), want: KindNotFound},
		{name: "other", err: errors.New("boom"), want: KindInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, ErrorKind(tc.err))
		})
	}
}

func TestFetchErrorUnwrap(t *testing.T) {
	t.Parallel()

	err := &FetchError{URL: "https://example.com", Err: context.DeadlineExceeded}
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Contains(t, err.Error(), "https://example.com")
	require.Equal(t, "fetch u: status 404", (&FetchError{URL: "u", StatusCode: 404}).Error())
}

func TestMissingFieldsMergesInOrder(t *testing.T) {
	t.Parallel()

	score := ReadinessScore{
		Quantitative: QuantitativeScore{MissingFields: []string{"description", "brand"}},
		Qualitative:  QualitativeScore{Missing: []string{"images", "description"}},
	}
	require.Equal(t, []string{"description", "brand", "images"}, score.MissingFields())
}

func TestProductFilterMatches(t *testing.T) {
	t.Parallel()

	created := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	record := ProductRecord{
		Status:    StatusReady,
		Category:  CategoryMatch{Code: "50000001"},
		Score:     &ReadinessScore{Combined: 72},
		CreatedAt: created,
	}
	minScore, maxScore := 70, 80
	before := created.Add(-time.Hour)
	after := created.Add(time.Hour)

	require.True(t, ProductFilter{}.Matches(record))
	require.True(t, ProductFilter{Status: StatusReady, MinScore: &minScore, MaxScore: &maxScore, CategoryCode: "50000001", From: &before, To: &after}.Matches(record))
	require.False(t, ProductFilter{Status: StatusExported}.Matches(record))
	require.False(t, ProductFilter{MinScore: &maxScore}.Matches(record))
	require.False(t, ProductFilter{CategoryCode: "x"}.Matches(record))
	require.False(t, ProductFilter{From: &after}.Matches(record))
	require.False(t, ProductFilter{MinScore: &minScore}.Matches(ProductRecord{}))
}

func TestCategoryNodePathAndDepth(t *testing.T) {
	t.Parallel()

	node := CategoryNode{Levels: [4]string{"생활/건강", "원예", "꽃다발", ""}}
	require.Equal(t, 3, node.Depth())
	require.Equal(t, "생활/건강 > 원예 > 꽃다발", node.Path())
}

func TestPricingMargin(t *testing.T) {
	t.Parallel()

	require.InDelta(t, 0.5, Pricing{SupplierPrice: 5000, SalePrice: 10000}.Margin(), 1e-9)
	require.Zero(t, Pricing{SupplierPrice: 5000}.Margin())
}
