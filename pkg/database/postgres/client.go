package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lk2023060901/maskpack/pkg/config"
)

// Querier Client 与 Tx 共用的查询接口
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
}

// Client PostgreSQL 客户端
type Client struct {
	pool *pgxpool.Pool
	cfg  *Config
}

var _ Querier = (*Client)(nil)

// New 创建 PostgreSQL 客户端
func New(cfg *Config) (*Client, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "merge postgres config")
	}
	if err := newCfg.Validate(); err != nil {
		return nil, err
	}

	poolConfig, err := pgxpool.ParseConfig(newCfg.ConnString())
	if err != nil {
		return nil, errors.Wrap(err, "parse pool config")
	}
	poolConfig.MaxConns = newCfg.Pool.MaxConns
	poolConfig.MinConns = newCfg.Pool.MinConns
	poolConfig.MaxConnLifetime = newCfg.Pool.MaxConnLifetime
	poolConfig.MaxConnIdleTime = newCfg.Pool.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = newCfg.Pool.HealthCheckPeriod

	ctx, cancel := context.WithTimeout(context.Background(), newCfg.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errors.Wrap(err, "create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping database")
	}

	return &Client{pool: pool, cfg: newCfg}, nil
}

// Close 关闭连接池
func (c *Client) Close() {
	if c.pool != nil {
		c.pool.Close()
	}
}

// Ping 检查数据库连接
func (c *Client) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

// applyQueryTimeout 为没有 deadline 的 context 附加查询超时
func (c *Client) applyQueryTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || c.cfg.QueryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.cfg.QueryTimeout)
}

// Query 查询多行
// 调用方负责关闭 rows，超时由调用方 context 控制
func (c *Client) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	rows, err := c.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query failed")
	}
	return rows, nil
}

// QueryRow 查询单行
func (c *Client) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return row{c.pool.QueryRow(ctx, sql, args...)}
}

// Exec 执行写操作
func (c *Client) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	ctx, cancel := c.applyQueryTimeout(ctx)
	defer cancel()

	tag, err := c.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, errors.Wrap(err, "exec failed")
	}
	return tag.RowsAffected(), nil
}

// WithTx 在事务中执行函数，fn 返回错误或 panic 时回滚
func (c *Client) WithTx(ctx context.Context, fn func(Tx) error) error {
	tx, err := c.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			panic(p)
		}
	}()

	if err := fn(&txWrapper{tx: tx}); err != nil {
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.WithSecondaryError(err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit transaction")
	}
	return nil
}

// row 将 Scan 的 pgx.ErrNoRows 转换为 ErrNoRows
type row struct {
	pgx.Row
}

func (r row) Scan(dest ...any) error {
	return normalizeErr(r.Row.Scan(dest...))
}
