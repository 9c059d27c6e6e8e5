package extract

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kkotium-dot/kkotium-garden-sub001/internal/sourcing"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type stubFetcher struct {
	body []byte
	err  error
}

func (s stubFetcher) Fetch(_ context.Context, req sourcing.FetchRequest) (sourcing.FetchResponse, error) {
	if s.err != nil {
		return sourcing.FetchResponse{}, s.err
	}
	return sourcing.FetchResponse{URL: req.URL, StatusCode: 200, Body: s.body}, nil
}

var crawledAt = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

const domeggookPage = `<html><head><title>도매꾹</title></head><body>
<h1 id="lInfoItemTitle">  프리미엄 장미 꽃다발
  선물용 </h1>
<div id="lItemPrice"><span class="lPrice">12,000원 ~ 15,000원</span></div>
<div id="lConsumerPrice">20,000원</div>
<div id="lThumbImg">
  <img data-src="//cdn.domeggook.com/item/rose1.jpg" src="/img/loading.gif">
  <img src="/item/rose2.jpg">
  <img src="/item/rose2.jpg">
  <img src="data:image/png;base64,AAAA">
</div>
<div class="lBrand">꽃담</div>
<table id="lInfoItemInfo">
  <tr><th>원산지</th><td>국내산</td></tr>
  <tr><th>재질</th><td>생화</td></tr>
  <tr><th></th><td>ignored</td></tr>
</table>
<div id="lInfoViewItemContents"><p>싱싱한 &amp; 향기로운 <b>장미</b></p><script>alert(1)</script><p>당일 발송</p></div>
</body></html>`

func TestParseDomeggookProfile(t *testing.T) {
	t.Parallel()

	e := New(Options{}, fixedClock{crawledAt}, nil)
	product, err := e.Parse("https://domeggook.com/main/item.php?id=1", []byte(domeggookPage))
	require.NoError(t, err)

	require.Equal(t, "프리미엄 장미 꽃다발 선물용", product.Title)
	require.Equal(t, int64(12000), product.Price)
	require.Equal(t, int64(20000), product.OriginalPrice)
	require.Equal(t, "꽃담", product.Brand)
	require.Equal(t, []string{
		"https://cdn.domeggook.com/item/rose1.jpg",
		"https://domeggook.com/item/rose2.jpg",
	}, product.Images)
	require.Equal(t, map[string]string{"원산지": "국내산", "재질": "생화"}, product.Specs)
	require.Equal(t, "싱싱한 & 향기로운 장미 당일 발송", product.Description)
	require.Equal(t, "domeggook", product.Meta.Profile)
	require.Equal(t, "domeggook.com", product.Meta.Site)
	require.Equal(t, crawledAt, product.Meta.CrawledAt)
	require.True(t, product.Meta.Success)
	require.False(t, product.SoldOut)
}

func TestParseGenericMetadataFallback(t *testing.T) {
	t.Parallel()

	page := `<html><head>
<meta property="og:title" content="Linen Apron">
<meta property="og:description" content="Washed linen apron with pockets">
<meta property="og:image" content="https://shop.example/a.jpg">
<meta property="product:price:amount" content="25000">
<meta property="product:brand" content="Atelier">
<meta property="product:availability" content="out of stock">
</head><body><h1>ignored</h1></body></html>`

	product, err := New(Options{}, fixedClock{crawledAt}, nil).Parse("https://shop.example/p/9", []byte(page))
	require.NoError(t, err)
	require.Equal(t, "Linen Apron", product.Title)
	require.Equal(t, int64(25000), product.Price)
	require.Equal(t, "Washed linen apron with pockets", product.Description)
	require.Equal(t, []string{"https://shop.example/a.jpg"}, product.Images)
	require.Equal(t, "Atelier", product.Brand)
	require.True(t, product.SoldOut)
	require.Equal(t, "generic", product.Meta.Profile)
}

func TestParseProfileFallsThroughPerField(t *testing.T) {
	t.Parallel()

	// Ownerclan page without any of the profile's selectors.
	page := `<html><head><title>Tea Set</title></head><body>
<span itemprop="price" content="8,900"></span>
<div itemprop="brand"><span itemprop="name">Porcelain Co</span></div>
<img src="/static/logo.png"><img src="/static/btn_buy.gif"><img src="/goods/teaset.jpg">
<dl><dt>Material</dt><dd>Porcelain</dd></dl>
</body></html>`

	product, err := New(Options{}, nil, nil).Parse("https://www.ownerclan.com/V2/product/view.php?id=3", []byte(page))
	require.NoError(t, err)
	require.Equal(t, "Tea Set", product.Title)
	require.Equal(t, int64(8900), product.Price)
	require.Equal(t, "Porcelain Co", product.Brand)
	require.Equal(t, []string{"https://www.ownerclan.com/goods/teaset.jpg"}, product.Images)
	require.Equal(t, map[string]string{"Material": "Porcelain"}, product.Specs)
	require.Equal(t, "ownerclan", product.Meta.Profile)
	require.Zero(t, product.OriginalPrice)
}

func TestParseH1IsLastTitleResort(t *testing.T) {
	t.Parallel()

	product, err := New(Options{}, nil, nil).Parse("https://x.example/p", []byte(`<body><h1> Bamboo Tray </h1></body>`))
	require.NoError(t, err)
	require.Equal(t, "Bamboo Tray", product.Title)
	require.Zero(t, product.Price)
	require.Empty(t, product.Images)
	require.Empty(t, product.Description)
}

func TestParseWithoutTitleIsParseError(t *testing.T) {
	t.Parallel()

	_, err := New(Options{}, nil, nil).Parse("https://aliexpress.com/item/1.html", []byte(`<body><p>nothing</p></body>`))
	var parseErr *sourcing.ParseError
	require.True(t, errors.As(err, &parseErr))
	require.Equal(t, "aliexpress", parseErr.Profile)
	require.Equal(t, "https://aliexpress.com/item/1.html", parseErr.URL)
}

func TestParseBoundsDescriptionAndImages(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	b.WriteString(`<html><head><title>Bulk</title><meta name="description" content="`)
	b.WriteString(strings.Repeat("가", 50))
	b.WriteString(`"></head><body>`)
	for i := 0; i < 30; i++ {
		b.WriteString(`<img src="/p/` + string(rune('a'+i%26)) + strings.Repeat("x", i) + `.jpg">`)
	}
	b.WriteString(`</body></html>`)

	product, err := New(Options{DescriptionMaxRunes: 10, MaxImages: 20}, nil, nil).Parse("https://bulk.example/", []byte(b.String()))
	require.NoError(t, err)
	require.Equal(t, strings.Repeat("가", 10), product.Description)
	require.Len(t, product.Images, 20)
}

func TestExtractComposesFetchAndParse(t *testing.T) {
	t.Parallel()

	e := New(Options{}, fixedClock{crawledAt}, nil)
	product, err := e.Extract(context.Background(), stubFetcher{body: []byte(domeggookPage)}, "https://domeggook.com/1")
	require.NoError(t, err)
	require.Equal(t, int64(12000), product.Price)

	_, err = e.Extract(context.Background(), stubFetcher{err: &sourcing.FetchError{URL: "u", StatusCode: 503}}, "https://domeggook.com/1")
	require.Equal(t, sourcing.KindFetch, sourcing.ErrorKind(err))
}
