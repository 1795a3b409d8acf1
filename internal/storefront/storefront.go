package storefront

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ArtVersex/art-verse-v1-sub000/internal/address"
	"github.com/ArtVersex/art-verse-v1-sub000/internal/cart"
	"github.com/ArtVersex/art-verse-v1-sub000/internal/catalog"
	"github.com/ArtVersex/art-verse-v1-sub000/internal/checkout"
	"github.com/ArtVersex/art-verse-v1-sub000/internal/docstore"
	"github.com/ArtVersex/art-verse-v1-sub000/internal/favorites"
	"github.com/ArtVersex/art-verse-v1-sub000/internal/identity"
	"github.com/ArtVersex/art-verse-v1-sub000/pkg/config"
	"github.com/ArtVersex/art-verse-v1-sub000/pkg/db"
	"github.com/ArtVersex/art-verse-v1-sub000/pkg/logger"
	"github.com/ArtVersex/art-verse-v1-sub000/pkg/metrics"
	"github.com/ArtVersex/art-verse-v1-sub000/pkg/outbox"
	pkgredis "github.com/ArtVersex/art-verse-v1-sub000/pkg/redis"
)

// Params carries the connected infrastructure. DB is required for the sql
// store driver and for the product catalog unless Catalog is supplied.
type Params struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         *db.Client
	Redis      *pkgredis.Client
	Mongo      *mongo.Client
	Catalog    catalog.Catalog
	Registerer prometheus.Registerer
}

// Storefront bundles the cart, address book, checkout and favorites
// components over one document store.
type Storefront struct {
	Store      docstore.Store
	Notifier   docstore.Notifier
	Cart       *cart.Service
	Projection *cart.Projection
	Addresses  *address.Book
	Checkout   *checkout.Wizard
	Favorites  *favorites.Service
	Identity   *identity.TokenResolver

	logg *logger.Logger
}

// New builds every component from config. Nothing is started; live
// sessions are opened per user with OpenCartSession.
func New(params Params) (*Storefront, error) {
	cfg := params.Config
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}

	cartMetrics := metrics.NewCartMetrics(params.Registerer)
	checkoutMetrics := metrics.NewCheckoutMetrics(params.Registerer)

	notifier, err := buildNotifier(params.Redis, logg)
	if err != nil {
		return nil, err
	}

	opts := docstore.Options{
		MaxConflictRetries: cfg.Store.MaxConflictRetries,
		OnConflict:         cart.ConflictCounter(cartMetrics),
		Logger:             logg,
	}
	store, err := buildStore(params, notifier, opts)
	if err != nil {
		return nil, err
	}

	products := params.Catalog
	if products == nil {
		if params.DB == nil {
			return nil, fmt.Errorf("database client required for the product catalog")
		}
		products = catalog.NewRepository(params.DB.DB())
	}

	// Projections tolerate a slightly stale product view; mutations always
	// check the catalog directly.
	projectionCatalog := products
	if params.Redis != nil {
		cached, err := catalog.NewCached(products, params.Redis, cfg.Cart.CatalogCacheTTL, logg)
		if err != nil {
			return nil, err
		}
		projectionCatalog = cached
	}

	rate, err := cfg.Cart.Rate()
	if err != nil {
		return nil, err
	}

	cartSvc, err := cart.NewService(cart.ServiceParams{
		Store:   store,
		Catalog: products,
		Logger:  logg,
		Metrics: cartMetrics,
	})
	if err != nil {
		return nil, err
	}
	projection, err := cart.NewProjection(cart.ProjectionParams{
		Catalog:           projectionCatalog,
		TaxRate:           rate,
		LowStockThreshold: cfg.Cart.LowStockThreshold,
		Workers:           cfg.Cart.ProjectionWorkers,
		Logger:            logg,
	})
	if err != nil {
		return nil, err
	}
	book, err := address.NewBook(store, logg)
	if err != nil {
		return nil, err
	}
	wizard, err := checkout.NewWizard(checkout.WizardParams{
		Book:           book,
		Logger:         logg,
		Metrics:        checkoutMetrics,
		DefaultCountry: cfg.Checkout.DefaultCountry,
	})
	if err != nil {
		return nil, err
	}
	favs, err := favorites.NewService(favorites.ServiceParams{
		Store:   store,
		Catalog: products,
		Logger:  logg,
	})
	if err != nil {
		return nil, err
	}

	return &Storefront{
		Store:      store,
		Notifier:   notifier,
		Cart:       cartSvc,
		Projection: projection,
		Addresses:  book,
		Checkout:   wizard,
		Favorites:  favs,
		Identity:   identity.NewTokenResolver(cfg.JWT, logg),
		logg:       logg,
	}, nil
}

// OpenCartSession opens a live cart session for the authenticated user.
func (s *Storefront) OpenCartSession(ctx context.Context) (*cart.Session, error) {
	userID, err := identity.Require(ctx, s.Identity)
	if err != nil {
		return nil, err
	}
	if _, err := s.Store.Ensure(ctx, userID); err != nil {
		return nil, err
	}
	return cart.OpenSession(ctx, s.Cart, userID)
}

func buildNotifier(client *pkgredis.Client, logg *logger.Logger) (docstore.Notifier, error) {
	if client == nil {
		return docstore.NewHub(), nil
	}
	return docstore.NewRedisNotifier(client, logg)
}

func buildStore(params Params, notifier docstore.Notifier, opts docstore.Options) (docstore.Store, error) {
	cfg := params.Config
	if cfg.Store.UsesSQL() {
		if params.DB == nil {
			return nil, fmt.Errorf("database client required for store driver %q", cfg.Store.Driver)
		}
		events := outbox.NewService(outbox.NewRepository(params.DB.DB()), opts.Logger)
		return docstore.NewGormStore(params.DB, events, notifier, opts)
	}
	if params.Mongo == nil {
		return nil, fmt.Errorf("mongo client required for store driver %q", cfg.Store.Driver)
	}
	collection := params.Mongo.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection)
	return docstore.NewMongoStore(collection, notifier, opts)
}
