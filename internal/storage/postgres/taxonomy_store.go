package postgres

import (
	"context"
	"fmt"

	"github.com/kkotium-dot/kkotium-garden-sub001/internal/sourcing"
)

// LoadCategories reads the category tree in insertion order.
func (s *Store) LoadCategories(ctx context.Context) ([]sourcing.CategoryNode, error) {
	rows, err := s.pool.Query(ctx, `
SELECT code, level1, level2, level3, level4, active, position
FROM categories
ORDER BY position, code`)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	defer rows.Close()

	var out []sourcing.CategoryNode
	for rows.Next() {
		var n sourcing.CategoryNode
		if err := rows.Scan(&n.Code, &n.Levels[0], &n.Levels[1], &n.Levels[2], &n.Levels[3], &n.Active, &n.Position); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	return out, nil
}

// LoadOrigins reads the origin regions in insertion order.
func (s *Store) LoadOrigins(ctx context.Context) ([]sourcing.OriginRegion, error) {
	rows, err := s.pool.Query(ctx, `
SELECT code, name, active, position
FROM origin_regions
ORDER BY position, code`)
	if err != nil {
		return nil, fmt.Errorf("load origins: %w", err)
	}
	defer rows.Close()

	var out []sourcing.OriginRegion
	for rows.Next() {
		var o sourcing.OriginRegion
		if err := rows.Scan(&o.Code, &o.Name, &o.Active, &o.Position); err != nil {
			return nil, fmt.Errorf("scan origin: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load origins: %w", err)
	}
	return out, nil
}

// SeedTaxonomy inserts the given rows, leaving existing codes untouched.
func (s *Store) SeedTaxonomy(ctx context.Context, categories []sourcing.CategoryNode, origins []sourcing.OriginRegion) error {
	for _, n := range categories {
		if _, err := s.pool.Exec(ctx, `
INSERT INTO categories (code, level1, level2, level3, level4, active, position)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (code) DO NOTHING`,
			n.Code, n.Levels[0], n.Levels[1], n.Levels[2], n.Levels[3], n.Active, n.Position,
		); err != nil {
			return fmt.Errorf("seed category %s: %w", n.Code, err)
		}
	}
	for _, o := range origins {
		if _, err := s.pool.Exec(ctx, `
INSERT INTO origin_regions (code, name, active, position)
VALUES ($1,$2,$3,$4)
ON CONFLICT (code) DO NOTHING`,
			o.Code, o.Name, o.Active, o.Position,
		); err != nil {
			return fmt.Errorf("seed origin %s: %w", o.Code, err)
		}
	}
	return nil
}
