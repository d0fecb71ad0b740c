package service

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/engine"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/events"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/gameconfig"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/metrics"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/model"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/ratelimit"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/store"
	"github.com/lk2023060901/maskpack/pkg/errcode"
	"github.com/lk2023060901/maskpack/pkg/idgen"
	"github.com/lk2023060901/maskpack/pkg/logger"
	"github.com/lk2023060901/maskpack/pkg/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

const (
	replaySourceCache = "cache"
	replaySourceStore = "store"
	replaySourceRace  = "race"
)

// OpenRequest 开包请求
type OpenRequest struct {
	UserID          string
	PackID          string
	ClientRequestID string
	// Seed 为空时由服务生成
	Seed string
}

// PackService 开包服务
type PackService struct {
	cfg       *Config
	store     store.Store
	catalog   *gameconfig.Catalog
	limiter   ratelimit.Limiter
	replay    ReplayCache
	publisher events.Publisher
	ids       idgen.Generator
	metrics   *metrics.GameMetrics
	tracer    trace.Tracer
	logger    logger.Logger
	now       Clock
	group     singleflight.Group
}

// NewPackService 创建开包服务
func NewPackService(cfg *Config, d *Deps) (*PackService, error) {
	newCfg, err := MergeConfig(cfg)
	if err != nil {
		return nil, err
	}
	deps, err := d.normalize(newCfg)
	if err != nil {
		return nil, err
	}
	return &PackService{
		cfg:       newCfg,
		store:     deps.Store,
		catalog:   deps.Catalog,
		limiter:   deps.Limiter,
		replay:    deps.Replay,
		publisher: deps.Publisher,
		ids:       deps.IDGen,
		metrics:   deps.Metrics,
		tracer:    deps.Tracer,
		logger:    deps.Logger.Named("service.pack"),
		now:       deps.Clock,
	}, nil
}

// openOutcome 单次开包的内部结果
type openOutcome struct {
	result  *model.OpenResult
	source  string // 非空表示重放
	outcome *engine.PackOutcome
	pending []*model.Event
}

// OpenPack 开包
// 同一 (user_id, client_request_id) 重复调用返回第一次的结果
func (s *PackService) OpenPack(ctx context.Context, req OpenRequest) (_ *model.OpenResult, err error) {
	start := time.Now()

	ctx, span := s.tracer.Start(ctx, "PackService.OpenPack", trace.WithAttributes(
		attribute.String("user_id", req.UserID),
		attribute.String("pack_id", req.PackID),
		attribute.String("client_request_id", req.ClientRequestID),
	))
	defer func() { otel.EndSpan(span, err) }()

	if req.UserID == "" || req.PackID == "" || req.ClientRequestID == "" {
		s.metrics.RecordPackOpen("invalid", time.Since(start).Seconds())
		return nil, invalidArgument("user_id, pack_id and client_request_id are required")
	}
	pack, ok := s.catalog.Pack(req.PackID)
	if !ok {
		s.metrics.RecordPackOpen("not_found", time.Since(start).Seconds())
		return nil, errors.Wrapf(ErrNotFound, "pack %s", req.PackID)
	}

	// 合并同一幂等键的并发请求，只有 leader 真正执行
	var leader bool
	key := req.UserID + "\x00" + req.ClientRequestID
	v, err, _ := s.group.Do(key, func() (any, error) {
		leader = true
		return s.open(ctx, req, pack)
	})
	if err != nil {
		s.metrics.RecordPackOpen(resultOf(err), time.Since(start).Seconds())
		s.logError(ctx, req, err)
		return nil, err
	}

	out := v.(*openOutcome)
	if out.source != "" || !leader {
		s.metrics.RecordPackOpen("replayed", time.Since(start).Seconds())
		span.SetAttributes(attribute.Bool("replayed", true))
		return cloneResult(out.result), nil
	}

	s.metrics.RecordPackOpen("opened", time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("pity_after", out.result.PityCounter))
	return cloneResult(out.result), nil
}

func (s *PackService) open(ctx context.Context, req OpenRequest, pack *model.Pack) (*openOutcome, error) {
	if cached := s.cachedResult(ctx, req); cached != nil {
		s.metrics.RecordReplay(replaySourceCache)
		return &openOutcome{result: cached, source: replaySourceCache}, nil
	}

	var out *openOutcome
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.GameStore) error {
		var err error
		out, err = s.openTx(ctx, tx, req, pack)
		return err
	})
	if errors.Is(err, store.ErrDuplicateRequest) {
		// 并发请求抢先写入，重放赢家的结果
		existing, gerr := s.store.GetPackOpen(ctx, req.UserID, req.ClientRequestID)
		if gerr != nil {
			return nil, errors.Wrap(gerr, "load pack open after duplicate")
		}
		s.logger.InfoContext(ctx, "pack open lost creation race, replaying",
			"user_id", req.UserID, "client_request_id", req.ClientRequestID)
		out = &openOutcome{result: existing.Result(), source: replaySourceRace}
	} else if err != nil {
		return nil, err
	}

	if out.source != "" {
		s.metrics.RecordReplay(out.source)
	} else {
		s.afterCommit(ctx, req, out)
	}
	s.fillCache(ctx, req, out.result)
	return out, nil
}

func (s *PackService) openTx(ctx context.Context, tx store.GameStore, req OpenRequest, pack *model.Pack) (*openOutcome, error) {
	b := s.catalog.Balance()

	progress, err := tx.LockUserPackProgress(ctx, req.UserID, pack.PackID)
	if err != nil {
		return nil, errors.Wrapf(notFound(err), "lock progress %s/%s", req.UserID, pack.PackID)
	}

	existing, err := tx.GetPackOpen(ctx, req.UserID, req.ClientRequestID)
	if err == nil {
		return &openOutcome{result: existing.Result(), source: replaySourceStore}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, errors.Wrap(err, "get pack open")
	}

	now := s.now()
	allowed, retryAfter, err := s.limiter.Allow(ctx, req.UserID, now)
	if err != nil {
		return nil, errors.Wrap(err, "rate limit")
	}
	if !allowed {
		return nil, &RateLimitedError{RetryAfter: retryAfter}
	}

	masks, err := tx.GetUserMasks(ctx, req.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "get user masks")
	}
	buffs := engine.AggregateBuffs(masks, s.catalog.Mask, b)

	engine.Refresh(progress, buffs, b, now)
	if !engine.Ready(progress, b) {
		return nil, &NotReadyError{
			PackID:       pack.PackID,
			Units:        progress.FractionalUnits,
			UnitsPerPack: b.UnitsPerPack,
			TimeToReady:  engine.TimeToReady(progress, buffs, b, now),
		}
	}

	seed := req.Seed
	if seed == "" {
		seed = fmt.Sprintf("%s:%d:%s", req.UserID, now.UnixMilli(), s.cfg.SeedSalt)
	}

	ledger := engine.NewLedger(req.UserID, masks)
	outcome, err := engine.DrawPack(s.catalog, ledger, engine.PackDraw{
		Seed:        seed,
		Pack:        pack,
		Buffs:       buffs,
		PityCounter: progress.PityCounter,
		Now:         now,
	})
	if err != nil {
		return nil, errors.Wrap(err, "draw pack")
	}

	engine.Consume(progress, b, now)
	progress.PityCounter = outcome.PityAfter
	if err := tx.UpsertUserPackProgress(ctx, progress); err != nil {
		return nil, errors.Wrap(err, "save progress")
	}
	for _, m := range ledger.Touched() {
		if err := tx.UpsertUserMask(ctx, m); err != nil {
			return nil, errors.Wrapf(err, "save mask %s", m.MaskID)
		}
	}

	id, err := s.ids.NextID()
	if err != nil {
		return nil, errors.Wrap(err, "generate pack open id")
	}
	open := &model.PackOpen{
		ID:              id,
		UserID:          req.UserID,
		PackID:          pack.PackID,
		ClientRequestID: req.ClientRequestID,
		Seed:            seed,
		PityAfter:       outcome.PityAfter,
		CreatedAt:       now,
		Pulls:           make([]model.PackOpenPull, 0, len(outcome.Items)),
	}
	for i, item := range outcome.Items {
		open.Pulls = append(open.Pulls, model.PackOpenPull{PackOpenID: id, Index: i, DrawResultItem: item})
	}
	if err := tx.CreatePackOpen(ctx, open); err != nil {
		return nil, err
	}

	evt := model.NewEvent(req.UserID, model.EventPackOpened, map[string]string{
		"pack_id":           pack.PackID,
		"client_request_id": req.ClientRequestID,
		"pack_open_id":      strconv.FormatInt(id, 10),
		"masks":             joinMaskIDs(outcome.Items),
		"pity_after":        strconv.Itoa(outcome.PityAfter),
	}, now)
	if err := tx.AppendEvent(ctx, evt); err != nil {
		return nil, errors.Wrap(err, "append event")
	}

	return &openOutcome{
		result:  open.Result(),
		outcome: outcome,
		pending: []*model.Event{evt},
	}, nil
}

func (s *PackService) afterCommit(ctx context.Context, req OpenRequest, out *openOutcome) {
	for _, item := range out.outcome.Items {
		s.metrics.RecordDraw(string(item.Rarity))
	}
	if out.outcome.PityForced {
		s.metrics.RecordPityTriggered()
	}
	s.publisher.Publish(ctx, out.pending...)

	s.logger.InfoContext(ctx, "pack opened",
		"user_id", req.UserID,
		"pack_id", req.PackID,
		"client_request_id", req.ClientRequestID,
		"masks", joinMaskIDs(out.outcome.Items),
		"pity_after", out.outcome.PityAfter,
		"pity_forced", out.outcome.PityForced,
	)
}

// cachedResult 查询缓存，失败时降级到数据库
func (s *PackService) cachedResult(ctx context.Context, req OpenRequest) *model.OpenResult {
	if s.replay == nil {
		return nil
	}
	cached, err := s.replay.GetOpenResult(ctx, req.UserID, req.ClientRequestID)
	if err != nil {
		s.logger.WarnContext(ctx, "replay cache get failed", "user_id", req.UserID, "error", err)
		return nil
	}
	return cached
}

func (s *PackService) fillCache(ctx context.Context, req OpenRequest, result *model.OpenResult) {
	if s.replay == nil {
		return
	}
	if err := s.replay.SetOpenResult(ctx, req.UserID, req.ClientRequestID, result, s.cfg.ReplayCacheTTL); err != nil {
		s.logger.WarnContext(ctx, "replay cache set failed", "user_id", req.UserID, "error", err)
	}
}

func (s *PackService) logError(ctx context.Context, req OpenRequest, err error) {
	if errors.IsAssertionFailure(err) {
		s.logger.ErrorContext(ctx, "pack open invariant violated",
			"user_id", req.UserID, "pack_id", req.PackID, "error", err)
		return
	}
	if Code(err) == errcode.CodeInternalError {
		s.logger.ErrorContext(ctx, "pack open failed",
			"user_id", req.UserID, "pack_id", req.PackID, "error", err)
		return
	}
	s.logger.DebugContext(ctx, "pack open rejected",
		"user_id", req.UserID, "pack_id", req.PackID, "error", err)
}

// Status 卡包充能状态，只读
func (s *PackService) Status(ctx context.Context, userID, packID string) (*model.PackStatus, error) {
	if userID == "" || packID == "" {
		return nil, invalidArgument("user_id and pack_id are required")
	}
	if _, ok := s.catalog.Pack(packID); !ok {
		return nil, errors.Wrapf(ErrNotFound, "pack %s", packID)
	}

	progress, err := s.store.GetUserPackProgress(ctx, userID, packID)
	if err != nil {
		return nil, errors.Wrapf(notFound(err), "get progress %s/%s", userID, packID)
	}
	masks, err := s.store.GetUserMasks(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get user masks")
	}

	b := s.catalog.Balance()
	status := engine.Status(progress, engine.AggregateBuffs(masks, s.catalog.Mask, b), b, s.now())
	return &status, nil
}

func resultOf(err error) string {
	switch Code(err) {
	case errcode.CodeNotReady:
		return "not_ready"
	case errcode.CodeRateLimited:
		return "rate_limited"
	case errcode.CodeNotFound:
		return "not_found"
	case errcode.CodeInvalidParams:
		return "invalid"
	default:
		return "error"
	}
}

func joinMaskIDs(items []model.DrawResultItem) string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.MaskID)
	}
	return strings.Join(ids, ",")
}

func cloneResult(r *model.OpenResult) *model.OpenResult {
	c := &model.OpenResult{
		Masks:       make([]model.DrawResultItem, len(r.Masks)),
		PityCounter: r.PityCounter,
	}
	for i, item := range r.Masks {
		item.UnlockedColors = slices.Clone(item.UnlockedColors)
		c.Masks[i] = item
	}
	return c
}
