package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/model"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/store"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/store/memory"
	"github.com/lk2023060901/maskpack/pkg/errcode"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenPackFreshUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.provision(t, "u1")

	req := openReq("u1", "gen1", "r1")
	req.Seed = "seed-1"
	result, err := f.svc.Pack.OpenPack(ctx, req)
	require.NoError(t, err)
	require.Len(t, result.Masks, 2)
	assert.Equal(t, 0, f.units(t, "u1", "gen1"))

	status, err := f.svc.Pack.Status(ctx, "u1", "gen1")
	require.NoError(t, err)
	assert.Equal(t, 0, status.FractionalUnits)
	assert.False(t, status.PackReady)
	assert.Equal(t, result.PityCounter, status.PityCounter)

	assert.Contains(t, f.publisher.kinds(), model.EventPackOpened)
	assert.Equal(t, int64(1), f.metrics.GetStats().Opened)

	// 抽到的面具已写入养成数据
	for _, item := range result.Masks {
		m, err := f.store.GetUserMask(ctx, "u1", item.MaskID)
		require.NoError(t, err)
		assert.True(t, m.Owned())
		assert.True(t, m.HasColor(item.Color))
	}
}

func TestOpenPackDeterministicSeed(t *testing.T) {
	open := func() *model.OpenResult {
		f := newFixture(t)
		f.provision(t, "u1")
		req := openReq("u1", "gen1", "r1")
		req.Seed = "fixed"
		result, err := f.svc.Pack.OpenPack(context.Background(), req)
		require.NoError(t, err)
		return result
	}
	assert.Equal(t, open(), open())
}

func TestOpenPackGeneratedSeed(t *testing.T) {
	f := newFixture(t)
	f.provision(t, "u1")

	_, err := f.svc.Pack.OpenPack(context.Background(), openReq("u1", "gen1", "r1"))
	require.NoError(t, err)

	open, err := f.store.GetPackOpen(context.Background(), "u1", "r1")
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("u1:%d:maskpack", t0.UnixMilli()), open.Seed)
	assert.Len(t, open.Pulls, 2)
}

func TestOpenPackPityForced(t *testing.T) {
	f := newFixture(t)
	f.provision(t, "u1")
	f.setProgress(t, "u1", "gen1", 6, f.catalog.Balance().PityThreshold)

	result, err := f.svc.Pack.OpenPack(context.Background(), openReq("u1", "gen1", "r1"))
	require.NoError(t, err)

	rarePlus := false
	for _, item := range result.Masks {
		rarePlus = rarePlus || item.Rarity.IsRarePlus()
	}
	assert.True(t, rarePlus)
	assert.Equal(t, 0, result.PityCounter)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.PityTriggered))
}

func TestOpenPackIdempotentReplay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.provision(t, "u1")
	f.setProgress(t, "u1", "gen1", 12, 0)

	first, err := f.svc.Pack.OpenPack(ctx, openReq("u1", "gen1", "r1"))
	require.NoError(t, err)

	// 同一时刻重试不受限流影响
	second, err := f.svc.Pack.OpenPack(ctx, openReq("u1", "gen1", "r1"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 6, f.units(t, "u1", "gen1"))
	assert.Equal(t, int64(1), f.metrics.GetStats().Replayed)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.ReplayTotal.WithLabelValues(replaySourceStore)))
}

func TestOpenPackRateLimited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.provision(t, "u1")
	f.setProgress(t, "u1", "gen1", 12, 0)

	_, err := f.svc.Pack.OpenPack(ctx, openReq("u1", "gen1", "r1"))
	require.NoError(t, err)

	_, err = f.svc.Pack.OpenPack(ctx, openReq("u1", "gen1", "r2"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)
	var limited *RateLimitedError
	require.True(t, errors.As(err, &limited))
	assert.Equal(t, time.Second, limited.RetryAfter)
	assert.Equal(t, errcode.CodeRateLimited, Code(err))
	assert.Equal(t, 6, f.units(t, "u1", "gen1"))

	f.clock.Advance(time.Second)
	_, err = f.svc.Pack.OpenPack(ctx, openReq("u1", "gen1", "r2"))
	require.NoError(t, err)
	assert.Equal(t, 0, f.units(t, "u1", "gen1"))
}

func TestOpenPackNotReady(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.provision(t, "u1")

	_, err := f.svc.Pack.OpenPack(ctx, openReq("u1", "gen1", "r1"))
	require.NoError(t, err)

	f.clock.Advance(2 * time.Second)
	_, err = f.svc.Pack.OpenPack(ctx, openReq("u1", "gen1", "r2"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotReady)
	assert.Equal(t, errcode.CodeNotReady, Code(err))

	var notReady *NotReadyError
	require.True(t, errors.As(err, &notReady))
	assert.Equal(t, "gen1", notReady.PackID)
	assert.Equal(t, 0, notReady.Units)
	assert.Equal(t, 6, notReady.UnitsPerPack)
	require.NotNil(t, notReady.TimeToReady)
	assert.Equal(t, int64(6*600-2), *notReady.TimeToReady)

	_, err = f.store.GetPackOpen(ctx, "u1", "r2")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestOpenPackValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Pack.OpenPack(ctx, openReq("", "gen1", "r1"))
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, errcode.CodeInvalidParams, Code(err))

	_, err = f.svc.Pack.OpenPack(ctx, openReq("u1", "nope", "r1"))
	assert.ErrorIs(t, err, ErrNotFound)

	// 未开户的玩家没有进度行
	_, err = f.svc.Pack.OpenPack(ctx, openReq("u1", "gen1", "r1"))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, errcode.CodeNotFound, Code(err))
	assert.Equal(t, int64(3), f.metrics.GetStats().Rejected)
}

// racingStore 启用后，下一个事务提交前写入同一幂等键的记录，模拟并发创建
type racingStore struct {
	*memory.Store
	winner *model.PackOpen
	armed  atomic.Bool
}

func (s *racingStore) WithTx(ctx context.Context, fn store.TxFunc) error {
	return s.Store.WithTx(ctx, func(ctx context.Context, tx store.GameStore) error {
		if err := fn(ctx, tx); err != nil {
			return err
		}
		if s.armed.CompareAndSwap(true, false) {
			return s.Store.CreatePackOpen(ctx, s.winner)
		}
		return nil
	})
}

func TestOpenPackDuplicateRaceReplaysWinner(t *testing.T) {
	winner := &model.PackOpen{
		ID:              999,
		UserID:          "u1",
		PackID:          "gen1",
		ClientRequestID: "r1",
		Seed:            "winner",
		PityAfter:       3,
		CreatedAt:       t0,
		Pulls: []model.PackOpenPull{
			{PackOpenID: 999, Index: 0, DrawResultItem: model.DrawResultItem{MaskID: "c2", Rarity: model.RarityCommon, Color: "blue"}},
		},
	}
	var rs *racingStore
	f := newFixture(t, func(d *Deps) {
		rs = &racingStore{Store: d.Store.(*memory.Store), winner: winner}
		d.Store = rs
	})
	f.provision(t, "u1")
	rs.armed.Store(true)

	result, err := f.svc.Pack.OpenPack(context.Background(), openReq("u1", "gen1", "r1"))
	require.NoError(t, err)
	assert.Equal(t, 3, result.PityCounter)
	require.Len(t, result.Masks, 1)
	assert.Equal(t, "c2", result.Masks[0].MaskID)

	// 失败的事务整体回滚
	assert.Equal(t, 6, f.units(t, "u1", "gen1"))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.ReplayTotal.WithLabelValues(replaySourceRace)))
	assert.NotContains(t, f.publisher.kinds(), model.EventPackOpened)
}

func TestOpenPackReplayCache(t *testing.T) {
	replay := newFakeReplay()
	f := newFixture(t, func(d *Deps) { d.Replay = replay })
	ctx := context.Background()
	f.provision(t, "u1")

	result, err := f.svc.Pack.OpenPack(ctx, openReq("u1", "gen1", "r1"))
	require.NoError(t, err)
	assert.Equal(t, result, replay.results["u1/r1"])
	assert.Equal(t, 24*time.Hour, replay.ttl)

	cached := &model.OpenResult{Masks: []model.DrawResultItem{{MaskID: "m1"}}, PityCounter: 4}
	replay.results["u9/r9"] = cached
	got, err := f.svc.Pack.OpenPack(ctx, openReq("u9", "gen1", "r9"))
	require.NoError(t, err)
	assert.Equal(t, cached, got)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.ReplayTotal.WithLabelValues(replaySourceCache)))
}

func TestOpenPackConcurrentDistinctRequests(t *testing.T) {
	f := newFixture(t, func(d *Deps) { d.Limiter = allowAll{} })
	ctx := context.Background()
	f.provision(t, "u1")
	f.setProgress(t, "u1", "gen1", 12, 0)

	const n = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		opened   int
		notReady int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.Pack.OpenPack(ctx, openReq("u1", "gen1", fmt.Sprintf("r%d", i)))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				opened++
			case errors.Is(err, ErrNotReady):
				notReady++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 2, opened)
	assert.Equal(t, n-2, notReady)
	assert.Equal(t, 0, f.units(t, "u1", "gen1"))
}

func TestOpenPackConcurrentSameRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.provision(t, "u1")
	f.setProgress(t, "u1", "gen1", 12, 0)

	const n = 8
	results := make([]*model.OpenResult, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := f.svc.Pack.OpenPack(ctx, openReq("u1", "gen1", "same"))
			assert.NoError(t, err)
			results[i] = r
		}(i)
	}
	wg.Wait()

	for _, r := range results[1:] {
		assert.Equal(t, results[0], r)
	}
	assert.Equal(t, 6, f.units(t, "u1", "gen1"))
}

func TestStatusAtCap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.provision(t, "u1")
	// c1 装备在 TOA，上限 3 包
	f.setProgress(t, "u1", "gen1", 18, 0)

	f.clock.Advance(100 * time.Hour)
	status, err := f.svc.Pack.Status(ctx, "u1", "gen1")
	require.NoError(t, err)
	assert.True(t, status.EarningPaused)
	assert.Nil(t, status.TimeToNextPack)
	assert.Nil(t, status.TimeToReady)
	assert.Equal(t, 18, status.FractionalUnits)
	assert.Equal(t, 3, status.PackCap)
	assert.Equal(t, 3, status.StoredPacks)

	_, err = f.svc.Pack.OpenPack(ctx, openReq("u1", "gen1", "r1"))
	require.NoError(t, err)

	f.clock.Advance(600 * time.Second)
	status, err = f.svc.Pack.Status(ctx, "u1", "gen1")
	require.NoError(t, err)
	assert.False(t, status.EarningPaused)
	require.NotNil(t, status.TimeToNextPack)
	assert.GreaterOrEqual(t, *status.TimeToNextPack, int64(0))
	assert.Equal(t, 13, status.FractionalUnits)

	// Status 不落库
	assert.Equal(t, 12, f.units(t, "u1", "gen1"))
}

func TestStatusErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Pack.Status(ctx, "u1", "gen1")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Pack.Status(ctx, "u1", "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Pack.Status(ctx, "", "gen1")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
