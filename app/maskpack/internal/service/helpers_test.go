package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lk2023060901/maskpack/app/maskpack/internal/gameconfig"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/metrics"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/model"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/store/memory"
	"github.com/lk2023060901/maskpack/pkg/logger"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*model.Event
}

func (p *recordingPublisher) Publish(_ context.Context, evts ...*model.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evts...)
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) kinds() []model.EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.EventKind, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Kind)
	}
	return out
}

type allowAll struct{}

func (allowAll) Allow(context.Context, string, time.Time) (bool, time.Duration, error) {
	return true, 0, nil
}

type fakeReplay struct {
	mu      sync.Mutex
	results map[string]*model.OpenResult
	ttl     time.Duration
}

func newFakeReplay() *fakeReplay {
	return &fakeReplay{results: make(map[string]*model.OpenResult)}
}

func (r *fakeReplay) GetOpenResult(_ context.Context, userID, requestID string) (*model.OpenResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.results[userID+"/"+requestID], nil
}

func (r *fakeReplay) SetOpenResult(_ context.Context, userID, requestID string, result *model.OpenResult, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[userID+"/"+requestID] = result
	r.ttl = ttl
	return nil
}

func testMask(id string, rarity model.Rarity, buff model.BuffType, value float64, color string) *model.MaskDefinition {
	return &model.MaskDefinition{
		MaskID:                id,
		Generation:            1,
		Name:                  id,
		BaseRarity:            rarity,
		BaseColorDistribution: map[string]float64{color: 0.7, "black": 0.3},
		BuffType:              buff,
		BuffBaseValue:         value,
		OriginalColor:         color,
	}
}

// testCatalog c1 装备在 TOA 时储存上限为 3
func testCatalog(t *testing.T, starters ...string) *gameconfig.Catalog {
	t.Helper()
	if len(starters) == 0 {
		starters = []string{"c1", "c2"}
	}
	masks := []*model.MaskDefinition{
		testMask("c1", model.RarityCommon, model.BuffPackStacking, 1, "red"),
		testMask("c2", model.RarityCommon, model.BuffDiscovery, 0.1, "blue"),
		testMask("c3", model.RarityCommon, model.BuffColorVariants, 0.1, "green"),
		testMask("r1", model.RarityRare, model.BuffInspection, 0.1, "gold"),
		testMask("m1", model.RarityMythic, model.BuffCDReduction, 0.1, "silver"),
	}
	packs := []*model.Pack{
		{PackID: "gen1", Name: "Gen 1", MasksPerPack: 2, FeaturedGeneration: 1},
		{PackID: "gen2", Name: "Gen 2", MasksPerPack: 2, FeaturedGeneration: 2},
	}
	c, err := gameconfig.NewCatalog(gameconfig.DefaultBalance(), masks, packs, starters)
	require.NoError(t, err)
	return c
}

type fixture struct {
	store     *memory.Store
	clock     *fakeClock
	publisher *recordingPublisher
	metrics   *metrics.GameMetrics
	catalog   *gameconfig.Catalog
	svc       *Services
}

func newFixture(t *testing.T, opts ...func(*Deps)) *fixture {
	t.Helper()
	clock := &fakeClock{now: t0}
	m, err := metrics.New(metrics.DefaultConfig())
	require.NoError(t, err)

	f := &fixture{
		store:     memory.New(memory.WithClock(clock.Now)),
		clock:     clock,
		publisher: &recordingPublisher{},
		metrics:   m,
		catalog:   testCatalog(t),
	}
	d := &Deps{
		Store:     f.store,
		Catalog:   f.catalog,
		Publisher: f.publisher,
		Metrics:   m,
		Logger:    logger.NewNoopLogger(),
		Clock:     clock.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	f.catalog = d.Catalog

	f.svc, err = New(&Config{Store: StoreMemory}, d)
	require.NoError(t, err)
	return f
}

func (f *fixture) provision(t *testing.T, userID string) {
	t.Helper()
	_, created, err := f.svc.User.Provision(context.Background(), userID, false)
	require.NoError(t, err)
	require.True(t, created)
}

// setProgress 直接改写进度，锚点为当前时间
func (f *fixture) setProgress(t *testing.T, userID, packID string, units, pity int) {
	t.Helper()
	ctx := context.Background()
	p, err := f.store.GetUserPackProgress(ctx, userID, packID)
	require.NoError(t, err)
	p.FractionalUnits = units
	p.PityCounter = pity
	p.LastUnitTS = f.clock.Now()
	require.NoError(t, f.store.UpsertUserPackProgress(ctx, p))
}

func (f *fixture) units(t *testing.T, userID, packID string) int {
	t.Helper()
	p, err := f.store.GetUserPackProgress(context.Background(), userID, packID)
	require.NoError(t, err)
	return p.FractionalUnits
}

func openReq(userID, packID, requestID string) OpenRequest {
	return OpenRequest{UserID: userID, PackID: packID, ClientRequestID: requestID}
}
