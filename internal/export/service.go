package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kkotium-dot/kkotium-garden-sub001/internal/batch"
	"github.com/kkotium-dot/kkotium-garden-sub001/internal/metrics"
	"github.com/kkotium-dot/kkotium-garden-sub001/internal/sourcing"
)

// Mode selects which records an export covers.
type Mode string

// Selection modes.
const (
	ModeSingle   Mode = "single"
	ModeList     Mode = "list"
	ModeFilter   Mode = "filter"
	ModeTemplate Mode = "template"
)

// Selection describes an export request.
type Selection struct {
	Mode   Mode                   `json:"mode"`
	ID     string                 `json:"id,omitempty"`
	IDs    []string               `json:"ids,omitempty"`
	Filter sourcing.ProductFilter `json:"filter,omitempty"`
}

// Failure reports one record that could not be exported.
type Failure struct {
	Index int    `json:"index"`
	ID    string `json:"id"`
	Error string `json:"error"`
}

// Artifact is a finished workbook.
type Artifact struct {
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Data        []byte    `json:"-"`
	Rows        int       `json:"rows"`
	Failures    []Failure `json:"failures"`
	URI         string    `json:"uri,omitempty"`
}

// Config controls the export service.
type Config struct {
	Archive     bool
	Prefix      string
	Concurrency int
	MaxItems    int
}

// Service selects records, renders them, and marks them exported.
type Service struct {
	store    sourcing.ProductStore
	blobs    sourcing.BlobStore
	clock    sourcing.Clock
	defaults Defaults
	cfg      Config
	logger   *zap.Logger
}

// NewService wires an export Service. blobs may be nil when archiving is off.
func NewService(
	store sourcing.ProductStore,
	blobs sourcing.BlobStore,
	clock sourcing.Clock,
	defaults Defaults,
	cfg Config,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    store,
		blobs:    blobs,
		clock:    clock,
		defaults: defaults,
		cfg:      cfg,
		logger:   logger,
	}
}

// Filename formats the artifact name for the given instant.
func Filename(at time.Time) string {
	return fmt.Sprintf("smartstore_bulk_%s.xlsx", at.UTC().Format("20060102_150405"))
}

// Export builds the workbook for sel.
func (s *Service) Export(ctx context.Context, sel Selection) (Artifact, error) {
	records, failures, err := s.selectRecords(ctx, sel)
	if err != nil {
		return Artifact{}, err
	}

	rows := make([]Row, 0, len(records))
	ids := make([]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, BuildRow(record, s.defaults))
		ids = append(ids, record.ID)
	}
	data, err := BuildSheet(rows)
	if err != nil {
		return Artifact{}, fmt.Errorf("build sheet: %w", err)
	}

	now := s.now()
	artifact := Artifact{
		Filename:    Filename(now),
		ContentType: ContentType,
		Data:        data,
		Rows:        len(rows),
		Failures:    failures,
	}

	if len(ids) > 0 {
		if err := s.store.MarkExported(ctx, ids, now); err != nil {
			return Artifact{}, fmt.Errorf("mark exported: %w", err)
		}
	}
	artifact.URI = s.archive(ctx, artifact)
	metrics.ObserveExport(string(sel.Mode), artifact.Rows)
	s.logger.Info("export built",
		zap.String("mode", string(sel.Mode)),
		zap.Int("rows", artifact.Rows),
		zap.Int("failures", len(failures)),
		zap.String("filename", artifact.Filename),
	)
	return artifact, nil
}

func (s *Service) selectRecords(ctx context.Context, sel Selection) ([]sourcing.ProductRecord, []Failure, error) {
	switch sel.Mode {
	case ModeTemplate:
		return nil, []Failure{}, nil
	case ModeSingle:
		id := strings.TrimSpace(sel.ID)
		if id == "" {
			return nil, nil, sourcing.Invalid("id", "is required for single export")
		}
		record, err := s.store.GetProduct(ctx, id)
		if err != nil {
			return nil, nil, fmt.Errorf("get product %s: %w", id, err)
		}
		return []sourcing.ProductRecord{record}, []Failure{}, nil
	case ModeList:
		if len(sel.IDs) == 0 {
			return nil, nil, sourcing.Invalid("ids", "must not be empty")
		}
		if s.cfg.MaxItems > 0 && len(sel.IDs) > s.cfg.MaxItems {
			return nil, nil, sourcing.Invalid("ids", fmt.Sprintf("at most %d ids per export", s.cfg.MaxItems))
		}
		return s.loadList(ctx, sel.IDs)
	case ModeFilter:
		records, err := s.store.ListProducts(ctx, sel.Filter)
		if err != nil {
			return nil, nil, fmt.Errorf("list products: %w", err)
		}
		return records, []Failure{}, nil
	default:
		return nil, nil, sourcing.Invalid("mode", fmt.Sprintf("unknown export mode %q", sel.Mode))
	}
}

func (s *Service) loadList(ctx context.Context, ids []string) ([]sourcing.ProductRecord, []Failure, error) {
	outcomes := batch.Run(ctx, ids, s.cfg.Concurrency, func(ctx context.Context, id string) (sourcing.ProductRecord, error) {
		id = strings.TrimSpace(id)
		if id == "" {
			return sourcing.ProductRecord{}, sourcing.Invalid("id", "is empty")
		}
		return s.store.GetProduct(ctx, id)
	})
	records := make([]sourcing.ProductRecord, 0, len(outcomes))
	failures := []Failure{}
	for _, o := range outcomes {
		if o.Err != nil {
			if errors.Is(o.Err, context.Canceled) || errors.Is(o.Err, context.DeadlineExceeded) {
				return nil, nil, fmt.Errorf("load products: %w", o.Err)
			}
			failures = append(failures, Failure{Index: o.Index, ID: ids[o.Index-1], Error: o.Err.Error()})
			continue
		}
		records = append(records, o.Value)
	}
	return records, failures, nil
}

func (s *Service) archive(ctx context.Context, artifact Artifact) string {
	if !s.cfg.Archive || s.blobs == nil {
		return ""
	}
	key := path.Join(strings.Trim(s.cfg.Prefix, "/"), artifact.Filename)
	uri, err := s.blobs.PutObject(ctx, key, artifact.ContentType, bytes.NewReader(artifact.Data))
	if err != nil {
		s.logger.Warn("archive export failed", zap.String("key", key), zap.Error(err))
		return ""
	}
	return uri
}

func (s *Service) now() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock.Now()
}
