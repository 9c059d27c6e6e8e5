// Package memory provides in-process stores for development and tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/kkotium-dot/kkotium-garden-sub001/internal/sourcing"
)

// ProductStore keeps product records in a map keyed by ID, with a secondary
// index on the URL-derived external key.
type ProductStore struct {
	mu         sync.RWMutex
	records    map[string]sourcing.ProductRecord
	byExternal map[string]string
	clock      sourcing.Clock
}

// NewProductStore constructs an empty ProductStore. A nil clock uses UTC wall time.
func NewProductStore(clock sourcing.Clock) *ProductStore {
	return &ProductStore{
		records:    make(map[string]sourcing.ProductRecord),
		byExternal: make(map[string]string),
		clock:      clock,
	}
}

// UpsertProduct inserts the record or replaces the one sharing its external
// key. A replaced record keeps its ID and CreatedAt.
func (s *ProductStore) UpsertProduct(_ context.Context, record sourcing.ProductRecord) (sourcing.ProductRecord, error) {
	if record.ExternalKey == "" {
		return sourcing.ProductRecord{}, fmt.Errorf("upsert product: external key is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if id, ok := s.byExternal[record.ExternalKey]; ok {
		prev := s.records[id]
		record.ID = prev.ID
		record.CreatedAt = prev.CreatedAt
	} else {
		if record.ID == "" {
			return sourcing.ProductRecord{}, fmt.Errorf("upsert product: id is required")
		}
		if record.CreatedAt.IsZero() {
			record.CreatedAt = now
		}
	}
	record.UpdatedAt = now
	s.records[record.ID] = cloneRecord(record)
	s.byExternal[record.ExternalKey] = record.ID
	return cloneRecord(record), nil
}

// GetProduct returns a copy of the record.
func (s *ProductStore) GetProduct(_ context.Context, id string) (sourcing.ProductRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return sourcing.ProductRecord{}, sourcing.ErrNotFound
	}
	return cloneRecord(record), nil
}

// ListProducts returns matching records, newest first.
func (s *ProductStore) ListProducts(_ context.Context, filter sourcing.ProductFilter) ([]sourcing.ProductRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]sourcing.ProductRecord, 0, len(s.records))
	for _, record := range s.records {
		if filter.Matches(record) {
			out = append(out, cloneRecord(record))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// UpdateScore replaces the stored score and moves draft/ready records to the
// status the score implies. Exported records stay exported. UpdatedAt follows
// the score's EvaluatedAt.
func (s *ProductStore) UpdateScore(_ context.Context, id string, score sourcing.ReadinessScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return sourcing.ErrNotFound
	}
	record.Score = cloneScore(&score)
	if record.Status != sourcing.StatusExported {
		record.Status = statusFor(score)
	}
	record.UpdatedAt = score.EvaluatedAt
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = s.now()
	}
	s.records[id] = record
	return nil
}

// MarkExported flags the records as exported. Unknown IDs are ignored.
func (s *ProductStore) MarkExported(_ context.Context, ids []string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		record, ok := s.records[id]
		if !ok {
			continue
		}
		record.Status = sourcing.StatusExported
		record.UpdatedAt = at
		s.records[id] = record
	}
	return nil
}

// DeleteProduct removes the record.
func (s *ProductStore) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return sourcing.ErrNotFound
	}
	delete(s.records, id)
	delete(s.byExternal, record.ExternalKey)
	return nil
}

func (s *ProductStore) now() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock.Now()
}

func statusFor(score sourcing.ReadinessScore) sourcing.RecordStatus {
	if score.ExportReady {
		return sourcing.StatusReady
	}
	return sourcing.StatusDraft
}

// cloneRecord copies the slices and maps a caller could mutate.
func cloneRecord(r sourcing.ProductRecord) sourcing.ProductRecord {
	r.Product.Images = slices.Clone(r.Product.Images)
	if r.Product.Specs != nil {
		specs := make(map[string]string, len(r.Product.Specs))
		for k, v := range r.Product.Specs {
			specs[k] = v
		}
		r.Product.Specs = specs
	}
	r.Keywords.Primary = slices.Clone(r.Keywords.Primary)
	r.Keywords.Secondary = slices.Clone(r.Keywords.Secondary)
	r.Keywords.SEO = slices.Clone(r.Keywords.SEO)
	r.Listing.Options = slices.Clone(r.Listing.Options)
	for i := range r.Listing.Options {
		r.Listing.Options[i].Values = slices.Clone(r.Listing.Options[i].Values)
	}
	r.Score = cloneScore(r.Score)
	return r
}

func cloneScore(in *sourcing.ReadinessScore) *sourcing.ReadinessScore {
	if in == nil {
		return nil
	}
	score := *in
	score.Qualitative.Breakdown = slices.Clone(in.Qualitative.Breakdown)
	score.Qualitative.Suggestions = slices.Clone(in.Qualitative.Suggestions)
	score.Qualitative.Missing = slices.Clone(in.Qualitative.Missing)
	score.Quantitative.Checks = slices.Clone(in.Quantitative.Checks)
	score.Quantitative.MissingFields = slices.Clone(in.Quantitative.MissingFields)
	score.Quantitative.Suggestions = slices.Clone(in.Quantitative.Suggestions)
	return &score
}

// TaxonomyStore serves a fixed category tree and origin list.
type TaxonomyStore struct {
	mu         sync.RWMutex
	categories []sourcing.CategoryNode
	origins    []sourcing.OriginRegion
}

// NewTaxonomyStore constructs a TaxonomyStore over the given rows.
func NewTaxonomyStore(categories []sourcing.CategoryNode, origins []sourcing.OriginRegion) *TaxonomyStore {
	return &TaxonomyStore{
		categories: append([]sourcing.CategoryNode(nil), categories...),
		origins:    append([]sourcing.OriginRegion(nil), origins...),
	}
}

// Replace swaps the stored rows; the next cache reload observes them.
func (s *TaxonomyStore) Replace(categories []sourcing.CategoryNode, origins []sourcing.OriginRegion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = append([]sourcing.CategoryNode(nil), categories...)
	s.origins = append([]sourcing.OriginRegion(nil), origins...)
}

// LoadCategories returns the categories in insertion order.
func (s *TaxonomyStore) LoadCategories(context.Context) ([]sourcing.CategoryNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]sourcing.CategoryNode(nil), s.categories...), nil
}

// LoadOrigins returns the origin regions in insertion order.
func (s *TaxonomyStore) LoadOrigins(context.Context) ([]sourcing.OriginRegion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]sourcing.OriginRegion(nil), s.origins...), nil
}
