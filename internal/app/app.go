// Package app builds the long-lived services from configuration and owns their shutdown.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/kkotium-dot/kkotium-garden-sub001/internal/api"
	"github.com/kkotium-dot/kkotium-garden-sub001/internal/clock/system"
	"github.com/kkotium-dot/kkotium-garden-sub001/internal/config"
	"github.com/kkotium-dot/kkotium-garden-sub001/internal/export"
	"github.com/kkotium-dot/kkotium-garden-sub001/internal/extract"
	collyfetcher "github.com/kkotium-dot/kkotium-garden-sub001/internal/fetcher/colly"
	"github.com/kkotium-dot/kkotium-garden-sub001/internal/fetcher/detector"
	headlessfetcher "github.com/kkotium-dot/kkotium-garden-sub001/internal/fetcher/headless"
	"github.com/kkotium-dot/kkotium-garden-sub001/internal/hash/sha256"
	"github.com/kkotium-dot/kkotium-garden-sub001/internal/id/uuid"
	"github.com/kkotium-dot/kkotium-garden-sub001/internal/logging"
	"github.com/kkotium-dot/kkotium-garden-sub001/internal/pipeline"
	"github.com/kkotium-dot/kkotium-garden-sub001/internal/policy/ratelimit"
	pubsubpublisher "github.com/kkotium-dot/kkotium-garden-sub001/internal/publisher/pubsub"
	"github.com/kkotium-dot/kkotium-garden-sub001/internal/scoring"
	"github.com/kkotium-dot/kkotium-garden-sub001/internal/sourcing"
	"github.com/kkotium-dot/kkotium-garden-sub001/internal/storage/gcs"
	"github.com/kkotium-dot/kkotium-garden-sub001/internal/storage/local"
	"github.com/kkotium-dot/kkotium-garden-sub001/internal/storage/memory"
	"github.com/kkotium-dot/kkotium-garden-sub001/internal/storage/postgres"
	"github.com/kkotium-dot/kkotium-garden-sub001/internal/taxonomy"
)

// App holds the services shared by the HTTP server for the life of the process.
type App struct {
	Products sourcing.ProductStore
	Taxonomy *taxonomy.Cache
	Pipeline *pipeline.Pipeline
	Exporter *export.Service
	Server   *api.Server

	logger  *zap.Logger
	closers []func() error
}

// New wires every component selected by cfg. On error, anything already
// opened is closed before returning.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (_ *App, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	clock := system.New()

	seed, err := loadSeed(cfg.Taxonomy.SeedPath)
	if err != nil {
		return nil, err
	}
	products, taxonomyStore, err := a.openStores(ctx, cfg, clock, seed)
	if err != nil {
		return nil, err
	}
	a.Products = products

	blobs, err := a.openBlobs(ctx, cfg)
	if err != nil {
		return nil, err
	}
	publisher, err := a.openPublisher(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a.Taxonomy = taxonomy.NewCache(taxonomyStore, taxonomy.CacheConfig{
		RefreshInterval: cfg.RefreshInterval(),
		DefaultOrigin: sourcing.OriginRegion{
			Code: cfg.Taxonomy.DefaultOriginCode,
			Name: cfg.Taxonomy.DefaultOriginRegion,
		},
	}, clock, logging.Component(logger, "taxonomy"))

	probe := collyfetcher.New(collyfetcher.Config{
		UserAgent:      cfg.Fetch.UserAgent,
		AcceptLanguage: cfg.Fetch.AcceptLanguage,
		RespectRobots:  cfg.Fetch.RespectRobots,
		Timeout:        cfg.FetchTimeout(),
		MaxBodyBytes:   cfg.Fetch.MaxBodyBytes,
	})
	var headless sourcing.Fetcher = headlessfetcher.NewNoop()
	if cfg.Headless.Enabled {
		chrome, chromeErr := headlessfetcher.NewChromedp(headlessfetcher.Config{
			MaxParallel:       cfg.Headless.MaxParallel,
			UserAgent:         cfg.Fetch.UserAgent,
			AcceptLanguage:    cfg.Fetch.AcceptLanguage,
			NavigationTimeout: time.Duration(cfg.Headless.NavTimeoutSec) * time.Second,
		})
		if chromeErr != nil {
			logger.Warn("headless fetcher init failed", zap.Error(chromeErr))
		} else {
			headless = chrome
			a.closers = append(a.closers, func() error { chrome.Close(); return nil })
		}
	}

	a.Pipeline = pipeline.New(pipeline.Deps{
		Store:     products,
		Taxonomy:  a.Taxonomy,
		Extractor: extract.New(extract.Options{DescriptionMaxRunes: cfg.Extract.DescriptionMaxRunes, MaxImages: cfg.Extract.MaxImages}, clock, logging.Component(logger, "extract")),
		Scorer:    scoring.New(cfg.Scoring.ExportReadyThreshold, clock),
		Fetcher:   probe,
		Headless:  headless,
		Detector:  detector.NewHeuristic(cfg.Headless.MinBodyBytes),
		Limiter:   ratelimit.New(ratelimit.Config{PerHostRPS: cfg.Fetch.PerHostRPS, PerHostBurst: cfg.Fetch.PerHostBurst}),
		Blobs:     blobs,
		Publisher: publisher,
		Hasher:    sha256.New(),
		IDs:       uuid.New(),
		Clock:     clock,
	}, pipeline.Config{
		MarginPercent:    cfg.Pricing.DefaultMarginPercent,
		RoundTo:          cfg.Pricing.RoundTo,
		Listing:          listingDefaults(cfg.Listing),
		HeadlessPromote:  cfg.Fetch.HeadlessPromote && cfg.Headless.Enabled,
		ArchiveRaw:       cfg.Storage.ArchiveRaw,
		BlobPrefix:       cfg.Storage.Prefix,
		ContentType:      cfg.Storage.ContentType,
		Topic:            cfg.PubSub.TopicName,
		BatchConcurrency: cfg.Batch.Concurrency,
		BatchMaxItems:    cfg.Batch.MaxItems,
	}, logging.Component(logger, "pipeline"))

	a.Exporter = export.NewService(products, blobs, clock, exportDefaults(cfg.Listing), export.Config{
		Archive:     cfg.Export.Archive,
		Prefix:      cfg.Export.Prefix,
		Concurrency: cfg.Batch.Concurrency,
		MaxItems:    cfg.Batch.MaxItems,
	}, logging.Component(logger, "export"))

	a.Server = api.NewServer(a.Pipeline, products, a.Exporter, a.Ready, cfg, logging.Component(logger, "api"))

	if _, err := a.Taxonomy.Snapshot(ctx); err != nil {
		return nil, fmt.Errorf("load taxonomy: %w", err)
	}
	logger.Info("application services initialized",
		zap.String("storage", cfg.Storage.Backend),
		zap.String("blob", cfg.Storage.Blob),
		zap.Bool("pubsub", cfg.PubSub.Enabled),
		zap.Bool("headless", cfg.Headless.Enabled),
	)
	return a, nil
}

// Ready reports whether the taxonomy can be served, which also exercises the record store.
func (a *App) Ready(ctx context.Context) error {
	if _, err := a.Taxonomy.Snapshot(ctx); err != nil {
		return fmt.Errorf("taxonomy snapshot: %w", err)
	}
	return nil
}

// Close releases every opened resource in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close resource failed", zap.Error(err))
		}
	}
	a.closers = nil
}

func (a *App) openStores(
	ctx context.Context,
	cfg config.Config,
	clock sourcing.Clock,
	seed taxonomy.Seed,
) (sourcing.ProductStore, sourcing.TaxonomyStore, error) {
	switch cfg.Storage.Backend {
	case "postgres":
		if cfg.DB.Migrate {
			if err := postgres.Migrate(cfg.DB.DSN); err != nil {
				return nil, nil, err
			}
		}
		store, err := postgres.New(ctx, postgres.Config{
			DSN:           cfg.DB.DSN,
			ProductsTable: cfg.DB.ProductsTable,
			MaxConns:      int32(cfg.DB.MaxConns),
		})
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, func() error { store.Close(); return nil })
		if err := store.SeedTaxonomy(ctx, seed.Categories, seed.Origins); err != nil {
			return nil, nil, err
		}
		a.logger.Info("using postgres record store", zap.String("table", cfg.DB.ProductsTable))
		return store, store, nil
	case "memory", "":
		a.logger.Info("using in-memory record store")
		return memory.NewProductStore(clock), memory.NewTaxonomyStore(seed.Categories, seed.Origins), nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}
}

func (a *App) openBlobs(ctx context.Context, cfg config.Config) (sourcing.BlobStore, error) {
	switch cfg.Storage.Blob {
	case "local":
		store, err := local.New(local.Config{BaseDir: cfg.Storage.LocalDir})
		if err != nil {
			return nil, fmt.Errorf("open local blob store: %w", err)
		}
		return store, nil
	case "gcs":
		store, err := gcs.Open(ctx, gcs.Config{Bucket: cfg.Storage.GCSBucket}, logging.Component(a.logger, "gcs"))
		if err != nil {
			return nil, fmt.Errorf("open gcs blob store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	case "none", "":
		if cfg.Storage.ArchiveRaw || cfg.Export.Archive {
			a.logger.Warn("archiving requested but storage.blob is none; using in-memory blobs")
			return memory.NewBlobStore(), nil
		}
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown blob store: %s", cfg.Storage.Blob)
	}
}

func (a *App) openPublisher(ctx context.Context, cfg config.Config) (sourcing.Publisher, error) {
	if !cfg.PubSub.Enabled {
		return nil, nil
	}
	pub, err := pubsubpublisher.Open(ctx, cfg.PubSub.ProjectID, cfg.PubSub.TopicName)
	if err != nil {
		return nil, fmt.Errorf("open pubsub publisher: %w", err)
	}
	a.closers = append(a.closers, pub.Close)
	a.logger.Info("publishing crawl notifications", zap.String("topic", cfg.PubSub.TopicName))
	return pub, nil
}

func loadSeed(path string) (taxonomy.Seed, error) {
	if path == "" {
		return taxonomy.DefaultSeed()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return taxonomy.Seed{}, fmt.Errorf("read taxonomy seed: %w", err)
	}
	return taxonomy.ParseSeed(data)
}

func listingDefaults(l config.ListingConfig) pipeline.ListingDefaults {
	return pipeline.ListingDefaults{
		Stock:          l.Stock,
		TaxType:        l.TaxType,
		ShippingMethod: l.ShippingMethod,
		Carrier:        l.Carrier,
		FeeType:        l.FeeType,
		BaseFee:        l.BaseFee,
		ReturnFee:      l.ReturnFee,
		ExchangeFee:    l.ExchangeFee,
		ASPhone:        l.ASPhone,
		ASGuide:        l.ASGuide,
	}
}

func exportDefaults(l config.ListingConfig) export.Defaults {
	d := export.DefaultLiterals()
	if l.TaxType != "" {
		d.TaxType = l.TaxType
	}
	if l.ShippingMethod != "" {
		d.ShippingMethod = l.ShippingMethod
	}
	if l.Carrier != "" {
		d.Carrier = l.Carrier
	}
	if l.FeeType != "" {
		d.FeeType = l.FeeType
	}
	d.ASPhone = l.ASPhone
	d.ASGuide = l.ASGuide
	return d
}
