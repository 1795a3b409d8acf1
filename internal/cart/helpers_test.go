package cart

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/ArtVersex/art-verse-v1-sub000/internal/catalog"
	"github.com/ArtVersex/art-verse-v1-sub000/internal/docstore"
	"github.com/ArtVersex/art-verse-v1-sub000/pkg/metrics"
)

const testUser = "user-1"

func product(id string, price string, stock int) catalog.ProductSnapshot {
	return catalog.ProductSnapshot{
		ID:    id,
		Title: "Product " + id,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	}
}

type fixture struct {
	store   *docstore.MemoryStore
	catalog *catalog.Memory
	svc     *Service
	reg     *prometheus.Registry
}

func newFixture(t *testing.T, opts docstore.Options, products ...catalog.ProductSnapshot) *fixture {
	t.Helper()
	reg := prometheus.NewRegistry()
	cartMetrics := metrics.NewCartMetrics(reg)
	if opts.OnConflict == nil {
		opts.OnConflict = ConflictCounter(cartMetrics)
	}
	store := docstore.NewMemoryStore(opts)
	if _, err := store.Ensure(context.Background(), testUser); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	cat := catalog.NewMemory(products...)
	svc, err := NewService(ServiceParams{Store: store, Catalog: cat, Metrics: cartMetrics})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &fixture{store: store, catalog: cat, svc: svc, reg: reg}
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	metricLoop:
		for _, metric := range family.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if want, ok := labels[pair.GetName()]; ok && want != pair.GetValue() {
					continue metricLoop
				}
			}
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}

// gatedCatalog blocks lookups until release is closed.
type gatedCatalog struct {
	*catalog.Memory
	entered chan struct{}
	release chan struct{}
}

func newGatedCatalog(products ...catalog.ProductSnapshot) *gatedCatalog {
	return &gatedCatalog{
		Memory:  catalog.NewMemory(products...),
		entered: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

func (g *gatedCatalog) GetProductSnapshot(ctx context.Context, productID string) (*catalog.ProductSnapshot, error) {
	select {
	case g.entered <- struct{}{}:
	default:
	}
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return g.Memory.GetProductSnapshot(ctx, productID)
}

// hookCatalog runs before once, on the first lookup.
type hookCatalog struct {
	catalog.Catalog
	before func()
	fired  bool
}

func (h *hookCatalog) GetProductSnapshot(ctx context.Context, productID string) (*catalog.ProductSnapshot, error) {
	if !h.fired {
		h.fired = true
		h.before()
	}
	return h.Catalog.GetProductSnapshot(ctx, productID)
}

func waitFor(t *testing.T, updates <-chan struct{}, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case <-updates:
		case <-time.After(10 * time.Millisecond):
		case <-deadline:
			t.Fatal("condition not met before deadline")
		}
	}
}
