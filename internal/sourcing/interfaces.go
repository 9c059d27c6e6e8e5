package sourcing

import (
	"context"
	"io"
	"time"
)

// ProductStore persists enriched product records.
type ProductStore interface {
	UpsertProduct(ctx context.Context, record ProductRecord) (ProductRecord, error)
	GetProduct(ctx context.Context, id string) (ProductRecord, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]ProductRecord, error)
	UpdateScore(ctx context.Context, id string, score ReadinessScore) error
	MarkExported(ctx context.Context, ids []string, at time.Time) error
	DeleteProduct(ctx context.Context, id string) error
}

// TaxonomyStore loads the category tree and origin regions in insertion order.
type TaxonomyStore interface {
	LoadCategories(ctx context.Context) ([]CategoryNode, error)
	LoadOrigins(ctx context.Context) ([]OriginRegion, error)
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, body io.Reader) (string, error)
}

// Publisher pushes crawl-completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// HeadlessDetector decides whether a headless fetch is warranted.
type HeadlessDetector interface {
	ShouldPromote(probe FetchResponse) bool
}

// RateLimiter blocks until a request to the URL's host is allowed.
type RateLimiter interface {
	Wait(ctx context.Context, url string) error
}

// Hasher computes digests for deduplication/integrity.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces record IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
