package export

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/kkotium-dot/kkotium-garden-sub001/internal/sourcing"
)

func fullRecord() sourcing.ProductRecord {
	return sourcing.ProductRecord{
		ID:          "0191d7c2-aaaa-7bbb-8ccc-000000000001",
		ExternalKey: "abc123",
		Product: sourcing.CrawledProduct{
			SourceURL:   "https://domeggook.com/12345",
			Title:       "Premium Rose Bouquet",
			Description: "Fresh roses wrapped by hand.",
			Images:      []string{"https://img/1.jpg", "https://img/2.jpg", "https://img/3.jpg"},
			Brand:       "Acme",
		},
		Category: sourcing.CategoryMatch{Code: "50000805"},
		Origin:   sourcing.OriginMatch{Code: "0200037", Region: "중국"},
		Keywords: sourcing.KeywordSet{SEO: []string{"rose", "bouquet", "rose bouquet"}},
		Pricing:  sourcing.Pricing{SupplierPrice: 20000, SalePrice: 30000},
		Listing: sourcing.Listing{
			Material: "생화",
			Stock:    999,
			Options: []sourcing.Option{
				{Name: "색상", Values: []string{"빨강", "분홍"}, Price: 0, Stock: 10},
				{Name: "크기", Values: []string{"대"}, Price: 5000, Stock: 3},
			},
			Shipping:     sourcing.Shipping{BaseFee: 3000, ReturnFee: 3000, ExchangeFee: 6000},
			Discounts:    sourcing.Discounts{InstantRate: 10, PurchasePointPct: 1},
			ReviewPoints: sourcing.ReviewPoints{Text: 100, Photo: 500},
		},
	}
}

func TestColumnsAreUniqueAndGrouped(t *testing.T) {
	t.Parallel()

	keys := map[string]bool{}
	headers := map[string]bool{}
	groups := map[Group]bool{}
	for _, c := range Columns {
		require.False(t, keys[c.Key], c.Key)
		require.False(t, headers[c.Header], c.Header)
		keys[c.Key] = true
		headers[c.Header] = true
		groups[c.Group] = true
	}
	require.GreaterOrEqual(t, len(Columns), 60)
	require.Len(t, groups, 9)
}

func TestBuildRowAllEmptyRecord(t *testing.T) {
	t.Parallel()

	row := BuildRow(sourcing.ProductRecord{}, Defaults{})
	require.Len(t, row, len(Columns))
	for i, v := range row {
		require.Empty(t, v, Columns[i].Key)
	}

	m := row.Map()
	got := make([]string, 0, len(m))
	for k, v := range m {
		require.Empty(t, v)
		got = append(got, k)
	}
	want := Keys()
	sort.Strings(got)
	sort.Strings(want)
	require.Equal(t, want, got)
}

func TestBuildRowMapsFields(t *testing.T) {
	t.Parallel()

	row := BuildRow(fullRecord(), DefaultLiterals())

	require.Equal(t, "Premium Rose Bouquet", row.Get("product_name"))
	require.Equal(t, "30000", row.Get("sale_price"))
	require.Equal(t, "999", row.Get("stock"))
	require.Equal(t, "과세상품", row.Get("tax_type"))
	require.Equal(t, "신상품", row.Get("condition"))
	require.Equal(t, "택배, 소포, 등기", row.Get("shipping_method"))
	require.Equal(t, "CJ대한통운", row.Get("carrier"))
	require.Equal(t, "https://img/1.jpg", row.Get("main_image"))
	require.Equal(t, "https://img/2.jpg\nhttps://img/3.jpg", row.Get("additional_images"))
	require.Equal(t, "rose,bouquet,rose bouquet", row.Get("search_tags"))
	require.Equal(t, "조합형", row.Get("option_type"))
	require.Equal(t, "색상\n크기", row.Get("option_names"))
	require.Equal(t, "빨강,분홍\n대", row.Get("option_values"))
	require.Equal(t, "0\n5000", row.Get("option_prices"))
	require.Equal(t, "10%", row.Get("instant_discount_rate"))
	require.Equal(t, "1%", row.Get("purchase_points"))
	require.Equal(t, "", row.Get("instant_discount_amount"))
	require.Equal(t, "500", row.Get("review_photo_points"))
	require.Equal(t, "Acme", row.Get("manufacturer"))
	require.Equal(t, "0200037", row.Get("origin_code"))
	require.Equal(t, "", row.Get("unknown"))
	require.Equal(t, row, BuildRow(fullRecord(), DefaultLiterals()))
}

func TestBuildRowPrefersRecordOverDefaults(t *testing.T) {
	t.Parallel()

	record := fullRecord()
	record.Listing.TaxType = "면세상품"
	record.Listing.Shipping.Carrier = "우체국택배"
	row := BuildRow(record, DefaultLiterals())
	require.Equal(t, "면세상품", row.Get("tax_type"))
	require.Equal(t, "우체국택배", row.Get("carrier"))
}

func readSheet(t *testing.T, data []byte) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	return rows
}

func TestBuildSheetTemplateHasOnlyHeader(t *testing.T) {
	t.Parallel()

	data, err := BuildSheet(nil)
	require.NoError(t, err)
	rows := readSheet(t, data)
	require.Len(t, rows, 1)
	require.Equal(t, Headers(), rows[0])
}

func TestBuildSheetWritesRows(t *testing.T) {
	t.Parallel()

	data, err := BuildSheet([]Row{BuildRow(fullRecord(), DefaultLiterals()), BuildRow(sourcing.ProductRecord{}, Defaults{})})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 2)
	require.Equal(t, Headers(), rows[0])
	require.Equal(t, "Premium Rose Bouquet", rows[1][2])

	cell, err := excelize.CoordinatesToCellName(5, 2)
	require.NoError(t, err)
	value, err := f.GetCellValue(SheetName, cell)
	require.NoError(t, err)
	require.Equal(t, "30000", value)
}

type fakeStore struct {
	mu       sync.Mutex
	records  map[string]sourcing.ProductRecord
	exported []string
	at       time.Time
	listErr  error
}

func newFakeStore(records ...sourcing.ProductRecord) *fakeStore {
	s := &fakeStore{records: map[string]sourcing.ProductRecord{}}
	for _, r := range records {
		s.records[r.ID] = r
	}
	return s
}

func (s *fakeStore) UpsertProduct(_ context.Context, r sourcing.ProductRecord) (sourcing.ProductRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[r.ID] = r
	return r, nil
}

func (s *fakeStore) GetProduct(_ context.Context, id string) (sourcing.ProductRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return sourcing.ProductRecord{}, sourcing.ErrNotFound
	}
	return r, nil
}

func (s *fakeStore) ListProducts(_ context.Context, f sourcing.ProductFilter) ([]sourcing.ProductRecord, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []sourcing.ProductRecord
	for _, r := range s.records {
		if f.Matches(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) UpdateScore(context.Context, string, sourcing.ReadinessScore) error { return nil }

func (s *fakeStore) MarkExported(_ context.Context, ids []string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exported = append(s.exported, ids...)
	s.at = at
	return nil
}

func (s *fakeStore) DeleteProduct(context.Context, string) error { return nil }

type fakeBlobs struct {
	key  string
	size int
	err  error
}

func (b *fakeBlobs) PutObject(_ context.Context, key, _ string, body io.Reader) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	b.key = key
	b.size = len(data)
	return "memory://" + key, nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var exportTime = time.Date(2026, 5, 4, 13, 2, 9, 0, time.UTC)

func record(id string, status sourcing.RecordStatus) sourcing.ProductRecord {
	r := fullRecord()
	r.ID = id
	r.Status = status
	return r
}

func TestServiceExportList(t *testing.T) {
	t.Parallel()

	store := newFakeStore(record("a", sourcing.StatusReady), record("c", sourcing.StatusReady))
	blobs := &fakeBlobs{}
	svc := NewService(store, blobs, fixedClock{exportTime}, DefaultLiterals(), Config{Archive: true, Prefix: "/exports/", Concurrency: 2}, nil)

	artifact, err := svc.Export(context.Background(), Selection{Mode: ModeList, IDs: []string{"a", "missing", "c"}})
	require.NoError(t, err)
	require.Equal(t, "smartstore_bulk_20260504_130209.xlsx", artifact.Filename)
	require.Equal(t, ContentType, artifact.ContentType)
	require.Equal(t, 2, artifact.Rows)
	require.Len(t, artifact.Failures, 1)
	require.Equal(t, 2, artifact.Failures[0].Index)
	require.Equal(t, "missing", artifact.Failures[0].ID)
	require.Len(t, readSheet(t, artifact.Data), 3)

	require.ElementsMatch(t, []string{"a", "c"}, store.exported)
	require.Equal(t, exportTime, store.at)
	require.Equal(t, "exports/smartstore_bulk_20260504_130209.xlsx", blobs.key)
	require.Equal(t, len(artifact.Data), blobs.size)
	require.Equal(t, "memory://"+blobs.key, artifact.URI)
}

func TestServiceExportSingle(t *testing.T) {
	t.Parallel()

	store := newFakeStore(record("a", sourcing.StatusReady))
	svc := NewService(store, nil, fixedClock{exportTime}, DefaultLiterals(), Config{}, nil)

	artifact, err := svc.Export(context.Background(), Selection{Mode: ModeSingle, ID: "a"})
	require.NoError(t, err)
	require.Equal(t, 1, artifact.Rows)
	require.Empty(t, artifact.URI)

	_, err = svc.Export(context.Background(), Selection{Mode: ModeSingle, ID: "nope"})
	require.ErrorIs(t, err, sourcing.ErrNotFound)
	require.Equal(t, sourcing.KindNotFound, sourcing.ErrorKind(err))
}

func TestServiceExportFilterAndTemplate(t *testing.T) {
	t.Parallel()

	store := newFakeStore(record("a", sourcing.StatusReady), record("b", sourcing.StatusDraft))
	svc := NewService(store, nil, fixedClock{exportTime}, DefaultLiterals(), Config{}, nil)

	artifact, err := svc.Export(context.Background(), Selection{Mode: ModeFilter, Filter: sourcing.ProductFilter{Status: sourcing.StatusReady}})
	require.NoError(t, err)
	require.Equal(t, 1, artifact.Rows)
	require.Equal(t, []string{"a"}, store.exported)

	template, err := svc.Export(context.Background(), Selection{Mode: ModeTemplate})
	require.NoError(t, err)
	require.Zero(t, template.Rows)
	require.Equal(t, [][]string{Headers()}, readSheet(t, template.Data))
	require.Equal(t, []string{"a"}, store.exported)

	store.listErr = errors.New("db down")
	_, err = svc.Export(context.Background(), Selection{Mode: ModeFilter})
	require.Error(t, err)
	require.Equal(t, sourcing.KindInternal, sourcing.ErrorKind(err))
}

func TestServiceExportValidation(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeStore(), nil, nil, DefaultLiterals(), Config{MaxItems: 2}, nil)
	tests := []struct {
		name string
		sel  Selection
	}{
		{name: "single without id", sel: Selection{Mode: ModeSingle, ID: "  "}},
		{name: "empty list", sel: Selection{Mode: ModeList}},
		{name: "list over limit", sel: Selection{Mode: ModeList, IDs: []string{"a", "b", "c"}}},
		{name: "unknown mode", sel: Selection{Mode: "everything"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := svc.Export(context.Background(), tc.sel)
			var verr *sourcing.ValidationError
			require.ErrorAs(t, err, &verr)
		})
	}
}

func TestServiceArchiveFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeStore(record("a", sourcing.StatusReady)), &fakeBlobs{err: errors.New("bucket gone")},
		fixedClock{exportTime}, DefaultLiterals(), Config{Archive: true}, nil)
	artifact, err := svc.Export(context.Background(), Selection{Mode: ModeSingle, ID: "a"})
	require.NoError(t, err)
	require.Empty(t, artifact.URI)
	require.True(t, strings.HasSuffix(artifact.Filename, ".xlsx"))
}
