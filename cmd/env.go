package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pricetrail/reconcile-cli/internal/catalog"
	"github.com/pricetrail/reconcile-cli/internal/db"
	"github.com/pricetrail/reconcile-cli/internal/geo"
	"github.com/pricetrail/reconcile-cli/internal/ledger"
	"github.com/pricetrail/reconcile-cli/internal/lite"
	"github.com/pricetrail/reconcile-cli/internal/normalize"
	"github.com/pricetrail/reconcile-cli/internal/resilience"
	"github.com/pricetrail/reconcile-cli/internal/venue"
	"github.com/pricetrail/reconcile-cli/pkg/oracle"
)

// env wires the configured store backend into the domain services.
type env struct {
	pool db.Pool
	file *lite.Store

	Registry   *catalog.Registry
	Venues     *venue.Resolver
	Ledger     *ledger.Ledger
	Search     *geo.Search
	Normalizer *normalize.Normalizer
	Receipts   normalize.Store
}

func initEnv(ctx context.Context) (*env, error) {
	e := &env{}

	var (
		products catalog.ProductStore
		venues   venue.VenueStore
		prices   ledger.PriceStore
		geoStore geo.Store
		receipts normalize.Store
	)

	switch cfg.Store.Driver {
	case "sqlite":
		s, err := lite.Open(cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, err
		}
		e.file = s
		products = s.Products()
		venues = s.Venues()
		prices = s.Prices()
		geoStore = s.Geo()
		receipts = s.Receipts()

	case "postgres":
		pool, err := db.Open(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		e.pool = pool
		products = catalog.NewPostgresStore(pool)
		venues = venue.NewPostgresStore(pool)
		prices = ledger.NewPostgresStore(pool)
		geoStore = geo.NewPostgresStore(pool)
		receipts = normalize.NewPostgresStore(pool)

	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	oc := oracle.NewClient(
		oracle.WithBaseURL(cfg.Oracle.BaseURL),
		oracle.WithTimeout(time.Duration(cfg.Oracle.TimeoutSecs)*time.Second),
		oracle.WithRateLimit(cfg.Oracle.RatePerSec),
	)

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = cfg.Oracle.MaxRetries
	retry.OnRetry = func(attempt int, err error) {
		zap.L().Warn("oracle call retrying",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}

	e.Registry = catalog.NewRegistry(products)
	e.Venues = venue.NewResolver(venues)
	e.Ledger = ledger.New(prices,
		ledger.WithDedupWindow(time.Duration(cfg.Ledger.DedupWindowMins)*time.Minute),
		ledger.WithDefaultCurrency(cfg.Ledger.DefaultCurrency),
	)
	e.Search = geo.NewSearch(geoStore,
		geo.WithLimits(cfg.Geo.ProductLimit, cfg.Geo.VenueLimit),
	)
	e.Normalizer = normalize.New(oc, e.Registry, receipts,
		normalize.WithRetry(retry),
		normalize.WithOracleTimeout(time.Duration(cfg.Oracle.TimeoutSecs)*time.Second),
		normalize.WithMaxConcurrentLines(cfg.Normalize.MaxConcurrentLines),
	)
	e.Receipts = receipts

	return e, nil
}

func (e *env) Close() {
	if e.pool != nil {
		e.pool.Close()
	}
	if e.file != nil {
		e.file.Close()
	}
}
