package store

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/model"
)

var (
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("store: not found")

	// ErrDuplicateRequest 幂等键 (user_id, client_request_id) 已存在
	ErrDuplicateRequest = errors.New("store: duplicate client request id")
)

// GameStore 玩家数据读写
// 在事务内调用时，LockUserPackProgress 持有的锁直到事务结束才释放
type GameStore interface {
	// GetOrCreateUser 获取玩家，不存在时创建，第二个返回值表示是否新建
	GetOrCreateUser(ctx context.Context, userID string, isGuest bool) (*model.User, bool, error)

	GetUserMask(ctx context.Context, userID, maskID string) (*model.UserMask, error)
	GetUserMasks(ctx context.Context, userID string) ([]*model.UserMask, error)
	UpsertUserMask(ctx context.Context, mask *model.UserMask) error

	GetUserPackProgress(ctx context.Context, userID, packID string) (*model.UserPackProgress, error)
	// LockUserPackProgress 读取并锁定进度行
	LockUserPackProgress(ctx context.Context, userID, packID string) (*model.UserPackProgress, error)
	UpsertUserPackProgress(ctx context.Context, progress *model.UserPackProgress) error

	GetPackOpen(ctx context.Context, userID, clientRequestID string) (*model.PackOpen, error)
	// CreatePackOpen 写入开包记录与明细，幂等键冲突返回 ErrDuplicateRequest
	CreatePackOpen(ctx context.Context, open *model.PackOpen) error

	AppendEvent(ctx context.Context, evt *model.Event) error
}

// TxFunc 事务函数
type TxFunc func(ctx context.Context, tx GameStore) error

// Store 支持事务的 GameStore
type Store interface {
	GameStore

	// WithTx 在事务中执行 fn，fn 返回错误时回滚
	WithTx(ctx context.Context, fn TxFunc) error
}
