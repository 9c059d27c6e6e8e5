package pipeline

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kkotium-dot/kkotium-garden-sub001/internal/extract"
	collyfetcher "github.com/kkotium-dot/kkotium-garden-sub001/internal/fetcher/colly"
	hashsha256 "github.com/kkotium-dot/kkotium-garden-sub001/internal/hash/sha256"
	"github.com/kkotium-dot/kkotium-garden-sub001/internal/id/uuid"
	pubmem "github.com/kkotium-dot/kkotium-garden-sub001/internal/publisher/memory"
	"github.com/kkotium-dot/kkotium-garden-sub001/internal/scoring"
	"github.com/kkotium-dot/kkotium-garden-sub001/internal/sourcing"
	storemem "github.com/kkotium-dot/kkotium-garden-sub001/internal/storage/memory"
	"github.com/kkotium-dot/kkotium-garden-sub001/internal/taxonomy"
)

const rosePage = `<html><head>
<meta property="og:title" content="프리미엄 장미 꽃다발 20송이">
<meta property="og:description" content="콜롬비아산 생화 장미 20송이로 만든 프리미엄 꽃다발입니다. 기념일과 생일, 프로포즈 선물로 좋으며 당일 제작하여 신선하게 배송합니다.">
<meta property="og:image" content="/img/rose-1.jpg">
<meta property="og:image" content="/img/rose-2.jpg">
<meta property="product:price:amount" content="25,000">
<meta property="product:brand" content="꽃틔움">
</head><body>
<h1>프리미엄 장미 꽃다발 20송이</h1>
<table>
<tr><th>원산지</th><td>콜롬비아</td></tr>
<tr><th>재질</th><td>생화</td></tr>
<tr><th>관리방법</th><td>서늘한 곳에 보관</td></tr>
</table>
</body></html>`

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type harness struct {
	pipeline *Pipeline
	store    *storemem.ProductStore
	blobs    *storemem.BlobStore
	pub      *pubmem.Publisher
}

func newHarness(t *testing.T, mutate func(*Deps, *Config)) harness {
	t.Helper()
	clock := fixedClock{t: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	seed, err := taxonomy.DefaultSeed()
	require.NoError(t, err)

	store := storemem.NewProductStore(clock)
	blobs := storemem.NewBlobStore()
	pub := pubmem.New()
	deps := Deps{
		Store:     store,
		Taxonomy:  taxonomy.NewCache(storemem.NewTaxonomyStore(seed.Categories, seed.Origins), taxonomy.CacheConfig{}, clock, nil),
		Extractor: extract.New(extract.Options{}, clock, nil),
		Scorer:    scoring.New(0, clock),
		Fetcher:   collyfetcher.New(collyfetcher.Config{Timeout: 2 * time.Second}),
		Blobs:     blobs,
		Publisher: pub,
		Hasher:    hashsha256.New(),
		IDs:       uuid.New(),
		Clock:     clock,
	}
	cfg := Config{
		MarginPercent: 30,
		RoundTo:       100,
		ArchiveRaw:    true,
		BlobPrefix:    "pages",
		Topic:         "product-crawled",
		Listing: ListingDefaults{
			Stock:          999,
			TaxType:        "과세상품",
			ShippingMethod: "택배, 소포, 등기",
			Carrier:        "CJ대한통운",
			FeeType:        "유료",
			BaseFee:        3000,
		},
	}
	if mutate != nil {
		mutate(&deps, &cfg)
	}
	return harness{pipeline: New(deps, cfg, nil), store: store, blobs: blobs, pub: pub}
}

func newShop(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		switch {
		case strings.HasPrefix(r.URL.Path, "/broken"):
			w.WriteHeader(http.StatusInternalServerError)
		case strings.HasPrefix(r.URL.Path, "/blank"):
			_, _ = io.WriteString(w, "<html><body><div></div></body></html>")
		default:
			_, _ = io.WriteString(w, rosePage)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCrawlRoseBouquet(t *testing.T) {
	t.Parallel()

	srv := newShop(t)
	h := newHarness(t, nil)

	res := h.pipeline.Crawl(context.Background(), CrawlRequest{URL: srv.URL + "/item/1"})
	require.True(t, res.OK, res.Error)
	require.Empty(t, res.ErrorKind)

	rec := res.Record
	require.NotNil(t, rec)
	require.Equal(t, "프리미엄 장미 꽃다발 20송이", rec.Product.Title)
	require.Equal(t, int64(25000), rec.Product.Price)
	require.Len(t, rec.Product.Images, 2)
	require.Equal(t, "50000805", rec.Category.Code)
	require.Equal(t, "0200024", rec.Origin.Code)
	require.Equal(t, sourcing.OriginFromSpecification, rec.Origin.Source)
	require.Contains(t, rec.Keywords.Primary, "꽃다발")

	require.Equal(t, int64(25000), rec.Pricing.SupplierPrice)
	require.Equal(t, int64(35800), rec.Pricing.SalePrice)
	require.InDelta(t, 30.0, rec.Pricing.MarginPercent, 1e-9)

	require.Equal(t, "생화", rec.Listing.Material)
	require.Equal(t, "서늘한 곳에 보관", rec.Listing.CareInstructions)
	require.Equal(t, 999, rec.Listing.Stock)
	require.Equal(t, "CJ대한통운", rec.Listing.Shipping.Carrier)

	require.NotNil(t, res.Score)
	require.Equal(t, rec.Score, res.Score)
	require.Equal(t, 100, res.Score.Quantitative.Score)
	require.NotContains(t, res.Warnings, WarnNoImages)
	require.NotContains(t, res.Warnings, WarnOriginDefaulted)
	require.NotContains(t, res.Warnings, WarnBrandMissing)

	stored, err := h.store.GetProduct(context.Background(), rec.ID)
	require.NoError(t, err)
	require.Equal(t, rec.ExternalKey, stored.ExternalKey)
	require.Len(t, rec.ExternalKey, 64)

	require.True(t, strings.HasPrefix(rec.RawBlobURI, "memory://pages/127.0.0.1/"), rec.RawBlobURI)
	require.Equal(t, 1, h.blobs.Len())

	msgs := h.pub.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "product-crawled", msgs[0].Topic)
	require.Contains(t, string(msgs[0].Data), rec.ID)
}

func TestCrawlReplacesByExternalKey(t *testing.T) {
	t.Parallel()

	srv := newShop(t)
	h := newHarness(t, nil)
	ctx := context.Background()

	first := h.pipeline.Crawl(ctx, CrawlRequest{URL: srv.URL + "/item/1"})
	require.True(t, first.OK, first.Error)
	second := h.pipeline.Crawl(ctx, CrawlRequest{URL: srv.URL + "/item/1?utm_source=newsletter#reviews"})
	require.True(t, second.OK, second.Error)

	require.Equal(t, first.Record.ID, second.Record.ID)
	list, err := h.store.ListProducts(ctx, sourcing.ProductFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestCrawlPricingOverrides(t *testing.T) {
	t.Parallel()

	srv := newShop(t)
	h := newHarness(t, nil)
	margin := 50.0
	supplier := int64(10000)

	res := h.pipeline.Crawl(context.Background(), CrawlRequest{
		URL:                 srv.URL + "/item/2",
		TargetMarginPercent: &margin,
		SupplierPrice:       &supplier,
	})
	require.True(t, res.OK, res.Error)
	require.Equal(t, int64(10000), res.Record.Pricing.SupplierPrice)
	require.Equal(t, int64(20000), res.Record.Pricing.SalePrice)
}

func TestCrawlErrorKinds(t *testing.T) {
	t.Parallel()

	srv := newShop(t)
	h := newHarness(t, nil)
	badMargin := 100.0
	badSupplier := int64(0)

	tests := []struct {
		name string
		req  CrawlRequest
		want sourcing.Kind
	}{
		{name: "empty url", req: CrawlRequest{}, want: sourcing.KindValidation},
		{name: "relative url", req: CrawlRequest{URL: "/item/1"}, want: sourcing.KindValidation},
		{name: "ftp url", req: CrawlRequest{URL: "ftp://example.com/x"}, want: sourcing.KindValidation},
		{name: "margin", req: CrawlRequest{URL: srv.URL + "/item/1", TargetMarginPercent: &badMargin}, want: sourcing.KindValidation},
		{name: "supplier", req: CrawlRequest{URL: srv.URL + "/item/1", SupplierPrice: &badSupplier}, want: sourcing.KindValidation},
		{name: "http 500", req: CrawlRequest{URL: srv.URL + "/broken"}, want: sourcing.KindFetch},
		{name: "no title", req: CrawlRequest{URL: srv.URL + "/blank"}, want: sourcing.KindParse},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			res := h.pipeline.Crawl(context.Background(), tc.req)
			require.False(t, res.OK)
			require.Equal(t, tc.want, res.ErrorKind)
			require.NotEmpty(t, res.Error)
			require.Nil(t, res.Record)
		})
	}
}

func TestCrawlBatchIsolatesFailures(t *testing.T) {
	t.Parallel()

	srv := newShop(t)
	h := newHarness(t, func(_ *Deps, cfg *Config) { cfg.BatchConcurrency = 2 })

	out, err := h.pipeline.CrawlBatch(context.Background(), []CrawlRequest{
		{URL: srv.URL + "/item/1"},
		{URL: srv.URL + "/broken"},
		{URL: srv.URL + "/item/3"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, out.Success)
	require.Equal(t, 1, out.Failed)
	require.Len(t, out.Items, 3)
	for i, item := range out.Items {
		require.Equal(t, i+1, item.Index)
	}
	require.False(t, out.Items[1].Result.OK)
	require.Equal(t, sourcing.KindFetch, out.Items[1].Result.ErrorKind)
	require.True(t, out.Items[0].Result.OK)
	require.True(t, out.Items[2].Result.OK)
}

func TestCrawlBatchValidation(t *testing.T) {
	t.Parallel()

	h := newHarness(t, func(_ *Deps, cfg *Config) { cfg.BatchMaxItems = 1 })
	_, err := h.pipeline.CrawlBatch(context.Background(), nil)
	require.Equal(t, sourcing.KindValidation, sourcing.ErrorKind(err))
	_, err = h.pipeline.CrawlBatch(context.Background(), []CrawlRequest{{URL: "a"}, {URL: "b"}})
	require.Equal(t, sourcing.KindValidation, sourcing.ErrorKind(err))
}

type stubFetcher struct {
	resp sourcing.FetchResponse
	err  error
}

func (s stubFetcher) Fetch(context.Context, sourcing.FetchRequest) (sourcing.FetchResponse, error) {
	return s.resp, s.err
}

type alwaysPromote struct{}

func (alwaysPromote) ShouldPromote(sourcing.FetchResponse) bool { return true }

type failingBlobs struct{}

func (failingBlobs) PutObject(context.Context, string, string, io.Reader) (string, error) {
	return "", errors.New("bucket unavailable")
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, string, any) (string, error) {
	return "", errors.New("topic missing")
}

type countingLimiter struct{ calls chan string }

func (l countingLimiter) Wait(_ context.Context, url string) error {
	l.calls <- url
	return nil
}

func TestCrawlSoftFailuresBecomeWarnings(t *testing.T) {
	t.Parallel()

	limiter := countingLimiter{calls: make(chan string, 1)}
	h := newHarness(t, func(deps *Deps, cfg *Config) {
		deps.Fetcher = stubFetcher{resp: sourcing.FetchResponse{StatusCode: 200, Body: []byte(rosePage)}}
		deps.Headless = stubFetcher{err: errors.New("chrome missing")}
		deps.Detector = alwaysPromote{}
		deps.Blobs = failingBlobs{}
		deps.Publisher = failingPublisher{}
		deps.Limiter = limiter
		cfg.HeadlessPromote = true
	})

	res := h.pipeline.Crawl(context.Background(), CrawlRequest{URL: "https://domeggook.com/12345"})
	require.True(t, res.OK, res.Error)
	require.Contains(t, res.Warnings, WarnHeadlessFailed)
	require.Contains(t, res.Warnings, WarnArchiveFailed)
	require.Contains(t, res.Warnings, WarnPublishFailed)
	require.Empty(t, res.Record.RawBlobURI)
	require.Equal(t, "https://domeggook.com/12345", <-limiter.calls)
}

func TestCrawlUsesHeadlessResponse(t *testing.T) {
	t.Parallel()

	h := newHarness(t, func(deps *Deps, cfg *Config) {
		deps.Fetcher = stubFetcher{resp: sourcing.FetchResponse{StatusCode: 200, Body: []byte(`<div id="app"></div>`)}}
		deps.Headless = stubFetcher{resp: sourcing.FetchResponse{StatusCode: 200, Body: []byte(rosePage)}}
		deps.Detector = alwaysPromote{}
		cfg.HeadlessPromote = true
	})

	res := h.pipeline.Crawl(context.Background(), CrawlRequest{URL: "https://example.com/spa/1"})
	require.True(t, res.OK, res.Error)
	require.Equal(t, "프리미엄 장미 꽃다발 20송이", res.Product.Title)
	require.NotContains(t, res.Warnings, WarnHeadlessFailed)
}

func TestCrawlWrapsPlainFetchErrors(t *testing.T) {
	t.Parallel()

	h := newHarness(t, func(deps *Deps, _ *Config) {
		deps.Fetcher = stubFetcher{err: errors.New("connection reset")}
	})
	res := h.pipeline.Crawl(context.Background(), CrawlRequest{URL: "https://example.com/p/1"})
	require.False(t, res.OK)
	require.Equal(t, sourcing.KindFetch, res.ErrorKind)
}

func TestCrawlSparsePageWarnings(t *testing.T) {
	t.Parallel()

	h := newHarness(t, func(deps *Deps, _ *Config) {
		deps.Fetcher = stubFetcher{resp: sourcing.FetchResponse{StatusCode: 200, Body: []byte(`<html><head><title>무지 노트</title></head></html>`)}}
	})
	res := h.pipeline.Crawl(context.Background(), CrawlRequest{URL: "https://example.com/p/9"})
	require.True(t, res.OK, res.Error)
	for _, w := range []string{WarnNoImages, WarnShortDescription, WarnPriceNotFound, WarnBrandMissing, WarnWeakCategory, WarnOriginDefaulted} {
		require.Contains(t, res.Warnings, w)
	}
	require.False(t, res.Score.ExportReady)
	require.Equal(t, sourcing.StatusDraft, res.Record.Status)
	require.Zero(t, res.Record.Pricing.SalePrice)
}

func TestCrawlRecoversFromPanics(t *testing.T) {
	t.Parallel()

	h := newHarness(t, func(deps *Deps, _ *Config) {
		deps.Fetcher = stubFetcher{resp: sourcing.FetchResponse{StatusCode: 200, Body: []byte(rosePage)}}
		deps.Hasher = nil
	})
	var res CrawlResult
	require.NotPanics(t, func() {
		res = h.pipeline.Crawl(context.Background(), CrawlRequest{URL: "https://example.com/p/1"})
	})
	require.False(t, res.OK)
	require.Equal(t, sourcing.KindInternal, res.ErrorKind)
}

func TestRescore(t *testing.T) {
	t.Parallel()

	srv := newShop(t)
	h := newHarness(t, nil)
	ctx := context.Background()

	res := h.pipeline.Crawl(ctx, CrawlRequest{URL: srv.URL + "/item/1"})
	require.True(t, res.OK, res.Error)

	rec, err := h.pipeline.Rescore(ctx, res.Record.ID)
	require.NoError(t, err)
	require.NotNil(t, rec.Score)
	require.Equal(t, res.Score.Combined, rec.Score.Combined)

	_, err = h.pipeline.Rescore(ctx, "missing")
	require.Equal(t, sourcing.KindNotFound, sourcing.ErrorKind(err))
	_, err = h.pipeline.Rescore(ctx, " ")
	require.Equal(t, sourcing.KindValidation, sourcing.ErrorKind(err))

	out, err := h.pipeline.RescoreBatch(ctx, []string{res.Record.ID, "missing"})
	require.NoError(t, err)
	require.Equal(t, 1, out.Success)
	require.Equal(t, 1, out.Failed)
	require.True(t, out.Items[0].OK)
	require.Equal(t, 2, out.Items[1].Index)
	require.Equal(t, sourcing.KindNotFound, out.Items[1].ErrorKind)
}

func TestPreview(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	mapping, err := h.pipeline.Preview(context.Background(), PreviewRequest{
		Title:       "프리미엄 장미 꽃다발",
		Description: "생일 선물용",
		Specs:       map[string]string{"원산지": "콜롬비아"},
	})
	require.NoError(t, err)
	require.Equal(t, "50000805", mapping.Category.Code)
	require.Equal(t, "0200024", mapping.Origin.Code)
	require.NotEmpty(t, mapping.Keywords.Primary)

	_, err = h.pipeline.Preview(context.Background(), PreviewRequest{})
	require.Equal(t, sourcing.KindValidation, sourcing.ErrorKind(err))

	list, err := h.store.ListProducts(context.Background(), sourcing.ProductFilter{})
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestSalePrice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		supplier int64
		margin   float64
		roundTo  int64
		want     int64
	}{
		{supplier: 25000, margin: 30, roundTo: 100, want: 35800},
		{supplier: 10000, margin: 50, roundTo: 100, want: 20000},
		{supplier: 7000, margin: 30, roundTo: 100, want: 10000},
		{supplier: 1234, margin: 0, roundTo: 10, want: 1240},
		{supplier: 1234, margin: 0, roundTo: 0, want: 1234},
		{supplier: 0, margin: 30, roundTo: 100, want: 0},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, SalePrice(tc.supplier, tc.margin, tc.roundTo), "%+v", tc)
	}
}

func TestSpecValue(t *testing.T) {
	t.Parallel()

	specs := map[string]string{"소재 및 재질": "면 100%", "세탁방법": "손세탁", "Model": "X-1"}
	require.Equal(t, "면 100%", specValue(specs, materialKeys))
	require.Equal(t, "손세탁", specValue(specs, careKeys))
	require.Equal(t, "X-1", specValue(specs, modelKeys))
	require.Empty(t, specValue(specs, makerKeys))
	require.Empty(t, specValue(nil, materialKeys))
}
