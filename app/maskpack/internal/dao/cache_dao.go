package dao

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/metrics"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/model"
	"github.com/lk2023060901/maskpack/pkg/database/redis"
	"github.com/lk2023060901/maskpack/pkg/logger"
	"github.com/lk2023060901/maskpack/pkg/serializer"
)

const (
	// replayKeyPrefix 开包结果缓存 key 前缀
	replayKeyPrefix = "replay"

	// DefaultReplayTTL 开包结果缓存时长
	DefaultReplayTTL = 24 * time.Hour
)

// CacheDAO 开包结果缓存
type CacheDAO struct {
	redis   *redis.Client
	codec   serializer.Serializer
	logger  logger.Logger
	metrics *metrics.GameMetrics
}

// NewCacheDAO 创建缓存 DAO
func NewCacheDAO(rdb *redis.Client, l logger.Logger, m *metrics.GameMetrics) *CacheDAO {
	return &CacheDAO{
		redis:   rdb,
		codec:   serializer.NewMsgpack(),
		logger:  l.Named("dao.cache"),
		metrics: m,
	}
}

func (d *CacheDAO) replayKey(userID, clientRequestID string) string {
	return d.redis.Key(replayKeyPrefix, userID, clientRequestID)
}

// GetOpenResult 读取缓存的开包结果，未命中返回 nil
func (d *CacheDAO) GetOpenResult(ctx context.Context, userID, clientRequestID string) (*model.OpenResult, error) {
	data, err := d.redis.Get(ctx, d.replayKey(userID, clientRequestID))
	if err != nil {
		if errors.Is(err, redis.ErrNil) {
			d.metrics.RecordCacheMiss("redis")
			return nil, nil
		}
		return nil, errors.Wrap(err, "get open result from cache")
	}

	d.metrics.RecordCacheHit("redis")
	return decodeOpenResult(d.codec, data)
}

// SetOpenResult 缓存开包结果
func (d *CacheDAO) SetOpenResult(ctx context.Context, userID, clientRequestID string, result *model.OpenResult, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultReplayTTL
	}

	data, err := encodeOpenResult(d.codec, result)
	if err != nil {
		return err
	}
	if err := d.redis.Set(ctx, d.replayKey(userID, clientRequestID), data, ttl); err != nil {
		return errors.Wrap(err, "set open result cache")
	}
	return nil
}

func encodeOpenResult(codec serializer.Serializer, result *model.OpenResult) ([]byte, error) {
	data, err := codec.Serialize(result)
	if err != nil {
		return nil, errors.Wrap(err, "encode open result")
	}
	return data, nil
}

func decodeOpenResult(codec serializer.Serializer, data []byte) (*model.OpenResult, error) {
	var result model.OpenResult
	if err := codec.Deserialize(data, &result); err != nil {
		return nil, errors.Wrap(err, "decode open result")
	}
	if result.Masks == nil {
		result.Masks = []model.DrawResultItem{}
	}
	for i := range result.Masks {
		if result.Masks[i].UnlockedColors == nil {
			result.Masks[i].UnlockedColors = []string{}
		}
	}
	return &result, nil
}
