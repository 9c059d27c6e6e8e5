// Package taxonomy maps products onto the marketplace category tree and origin
// codes, and derives listing keywords.
package taxonomy

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kkotium-dot/kkotium-garden-sub001/internal/sourcing"
)

// Snapshot is an immutable, indexed view of the taxonomy. Mapping functions
// only ever read from it.
type Snapshot struct {
	categories []sourcing.CategoryNode
	origins    []sourcing.OriginRegion
	byCode     map[string]int
	originByID map[string]int
	loadedAt   time.Time

	defaultOrigin sourcing.OriginRegion
}

// NewSnapshot indexes categories and origins, preserving insertion order.
func NewSnapshot(categories []sourcing.CategoryNode, origins []sourcing.OriginRegion, loadedAt time.Time) *Snapshot {
	s := &Snapshot{
		categories: append([]sourcing.CategoryNode(nil), categories...),
		origins:    append([]sourcing.OriginRegion(nil), origins...),
		byCode:     make(map[string]int, len(categories)),
		originByID: make(map[string]int, len(origins)),
		loadedAt:   loadedAt,
	}
	for i, c := range s.categories {
		if _, dup := s.byCode[c.Code]; !dup {
			s.byCode[c.Code] = i
		}
	}
	for i, o := range s.origins {
		if _, dup := s.originByID[o.Code]; !dup {
			s.originByID[o.Code] = i
		}
	}
	return s
}

// Categories returns the category nodes in insertion order.
func (s *Snapshot) Categories() []sourcing.CategoryNode {
	return s.categories
}

// Origins returns the origin regions in insertion order.
func (s *Snapshot) Origins() []sourcing.OriginRegion {
	return s.origins
}

// Category looks a node up by code.
func (s *Snapshot) Category(code string) (sourcing.CategoryNode, bool) {
	i, ok := s.byCode[code]
	if !ok {
		return sourcing.CategoryNode{}, false
	}
	return s.categories[i], true
}

// Origin looks a region up by code.
func (s *Snapshot) Origin(code string) (sourcing.OriginRegion, bool) {
	i, ok := s.originByID[code]
	if !ok {
		return sourcing.OriginRegion{}, false
	}
	return s.origins[i], true
}

// WithDefaultOrigin returns a copy of the snapshot that falls back to region
// when no origin is found. A region whose name is empty takes the name
// registered for its code, if any.
func (s *Snapshot) WithDefaultOrigin(region sourcing.OriginRegion) *Snapshot {
	if region.Name == "" {
		if known, ok := s.Origin(region.Code); ok {
			region.Name = known.Name
		}
	}
	clone := *s
	clone.defaultOrigin = region
	return &clone
}

// DefaultOrigin reports the configured fallback origin.
func (s *Snapshot) DefaultOrigin() sourcing.OriginRegion {
	return s.defaultOrigin
}

// LoadedAt reports when the snapshot was built.
func (s *Snapshot) LoadedAt() time.Time {
	return s.loadedAt
}

// Seed is the serialized taxonomy shape used for bootstrap files.
type Seed struct {
	Categories []sourcing.CategoryNode `json:"categories"`
	Origins    []sourcing.OriginRegion `json:"origins"`
}

//go:embed seed.json
var defaultSeed []byte

// DefaultSeed returns the bundled starter taxonomy.
func DefaultSeed() (Seed, error) {
	return ParseSeed(defaultSeed)
}

// ParseSeed decodes a JSON seed document and assigns positions in file order.
func ParseSeed(data []byte) (Seed, error) {
	var seed Seed
	if err := json.Unmarshal(data, &seed); err != nil {
		return Seed{}, fmt.Errorf("decode taxonomy seed: %w", err)
	}
	for i := range seed.Categories {
		seed.Categories[i].Position = i
	}
	for i := range seed.Origins {
		seed.Origins[i].Position = i
	}
	return seed, nil
}
