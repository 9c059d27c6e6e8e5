// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kkotium-dot/kkotium-garden-sub001/internal/sourcing"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const defaultProductsTable = "products"

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	ProductsTable   string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type querier interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// Store persists product records and reads the taxonomy tables.
type Store struct {
	pool  querier
	table string
}

// New connects a pgx pool and returns a Store.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table, err := tableName(cfg.ProductsTable)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool, table: table}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(pool querier, table string) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool, table: name}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = defaultProductsTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// UpsertProduct inserts the record or replaces the row sharing its external
// key, keeping the original id and created_at.
func (s *Store) UpsertProduct(ctx context.Context, record sourcing.ProductRecord) (sourcing.ProductRecord, error) {
	if record.ID == "" || record.ExternalKey == "" {
		return sourcing.ProductRecord{}, fmt.Errorf("upsert product: id and external key are required")
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = now
	}
	cols, err := encodeRecord(record)
	if err != nil {
		return sourcing.ProductRecord{}, err
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id, external_key, status, category_code, combined_score,
	product, category, origin, keywords, pricing, listing, score,
	raw_blob_uri, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
ON CONFLICT (external_key) DO UPDATE SET
	status = EXCLUDED.status,
	category_code = EXCLUDED.category_code,
	combined_score = EXCLUDED.combined_score,
	product = EXCLUDED.product,
	category = EXCLUDED.category,
	origin = EXCLUDED.origin,
	keywords = EXCLUDED.keywords,
	pricing = EXCLUDED.pricing,
	listing = EXCLUDED.listing,
	score = EXCLUDED.score,
	raw_blob_uri = EXCLUDED.raw_blob_uri,
	updated_at = EXCLUDED.updated_at
RETURNING id, created_at`, s.table)

	args := []any{
		record.ID,
		record.ExternalKey,
		string(record.Status),
		record.Category.Code,
		record.CombinedScore(),
		cols.product,
		cols.category,
		cols.origin,
		cols.keywords,
		cols.pricing,
		cols.listing,
		cols.score,
		record.RawBlobURI,
		record.CreatedAt,
		record.UpdatedAt,
	}
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&record.ID, &record.CreatedAt); err != nil {
		return sourcing.ProductRecord{}, fmt.Errorf("upsert product: %w", err)
	}
	return record, nil
}

const selectColumns = `id, external_key, status, product, category, origin, keywords, pricing, listing, ` +
	`COALESCE(score, 'null'::jsonb), raw_blob_uri, created_at, updated_at`

// GetProduct loads one record.
func (s *Store) GetProduct(ctx context.Context, id string) (sourcing.ProductRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, selectColumns, s.table)
	record, err := scanRecord(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return sourcing.ProductRecord{}, fmt.Errorf("get product %s: %w", id, sourcing.ErrNotFound)
		}
		return sourcing.ProductRecord{}, fmt.Errorf("get product %s: %w", id, err)
	}
	return record, nil
}

// ListProducts returns records matching filter, newest first.
func (s *Store) ListProducts(ctx context.Context, filter sourcing.ProductFilter) ([]sourcing.ProductRecord, error) {
	where, args := filterClause(filter)
	query := fmt.Sprintf(`SELECT %s FROM %s%s ORDER BY created_at DESC, id DESC`, selectColumns, s.table, where)
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	out := []sourcing.ProductRecord{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return out, nil
}

func filterClause(f sourcing.ProductFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.MinScore != nil {
		add("combined_score >= $%d", *f.MinScore)
	}
	if f.MaxScore != nil {
		add("combined_score <= $%d", *f.MaxScore)
	}
	if f.CategoryCode != "" {
		add("category_code = $%d", f.CategoryCode)
	}
	if f.From != nil {
		add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("created_at <= $%d", *f.To)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// UpdateScore replaces the stored score. Exported rows keep their status.
func (s *Store) UpdateScore(ctx context.Context, id string, score sourcing.ReadinessScore) error {
	payload, err := json.Marshal(score)
	if err != nil {
		return fmt.Errorf("marshal score: %w", err)
	}
	status := sourcing.StatusDraft
	if score.ExportReady {
		status = sourcing.StatusReady
	}
	updatedAt := score.EvaluatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	query := fmt.Sprintf(`
UPDATE %s SET
	score = $2,
	combined_score = $3,
	status = CASE WHEN status = 'exported' THEN status ELSE $4 END,
	updated_at = $5
WHERE id = $1`, s.table)
	tag, err := s.pool.Exec(ctx, query, id, payload, score.Combined, string(status), updatedAt)
	if err != nil {
		return fmt.Errorf("update score: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update score %s: %w", id, sourcing.ErrNotFound)
	}
	return nil
}

// MarkExported sets status exported on every listed id.
func (s *Store) MarkExported(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	query := fmt.Sprintf(`UPDATE %s SET status = 'exported', updated_at = $2 WHERE id = ANY($1)`, s.table)
	if _, err := s.pool.Exec(ctx, query, ids, at); err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	return nil
}

// DeleteProduct removes one record.
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.table)
	tag, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete product %s: %w", id, sourcing.ErrNotFound)
	}
	return nil
}

type encodedRecord struct {
	product, category, origin, keywords, pricing, listing, score []byte
}

func encodeRecord(r sourcing.ProductRecord) (encodedRecord, error) {
	var (
		out encodedRecord
		err error
	)
	fields := []struct {
		name string
		dst  *[]byte
		v    any
	}{
		{"product", &out.product, r.Product},
		{"category", &out.category, r.Category},
		{"origin", &out.origin, r.Origin},
		{"keywords", &out.keywords, r.Keywords},
		{"pricing", &out.pricing, r.Pricing},
		{"listing", &out.listing, r.Listing},
	}
	for _, f := range fields {
		if *f.dst, err = json.Marshal(f.v); err != nil {
			return encodedRecord{}, fmt.Errorf("marshal %s: %w", f.name, err)
		}
	}
	if r.Score != nil {
		if out.score, err = json.Marshal(r.Score); err != nil {
			return encodedRecord{}, fmt.Errorf("marshal score: %w", err)
		}
	}
	return out, nil
}

func scanRecord(row pgx.Row) (sourcing.ProductRecord, error) {
	var (
		r      sourcing.ProductRecord
		status string
		cols   encodedRecord
	)
	if err := row.Scan(
		&r.ID,
		&r.ExternalKey,
		&status,
		&cols.product,
		&cols.category,
		&cols.origin,
		&cols.keywords,
		&cols.pricing,
		&cols.listing,
		&cols.score,
		&r.RawBlobURI,
		&r.CreatedAt,
		&r.UpdatedAt,
	); err != nil {
		return sourcing.ProductRecord{}, err
	}
	r.Status = sourcing.RecordStatus(status)
	fields := []struct {
		name string
		src  []byte
		dst  any
	}{
		{"product", cols.product, &r.Product},
		{"category", cols.category, &r.Category},
		{"origin", cols.origin, &r.Origin},
		{"keywords", cols.keywords, &r.Keywords},
		{"pricing", cols.pricing, &r.Pricing},
		{"listing", cols.listing, &r.Listing},
		{"score", cols.score, &r.Score},
	}
	for _, f := range fields {
		if len(f.src) == 0 {
			continue
		}
		if err := json.Unmarshal(f.src, f.dst); err != nil {
			return sourcing.ProductRecord{}, fmt.Errorf("decode %s: %w", f.name, err)
		}
	}
	return r, nil
}
