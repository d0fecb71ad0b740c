package events

import (
	"context"

	"github.com/lk2023060901/maskpack/app/maskpack/internal/model"
)

// Publisher 事务提交后投递审计事件，投递失败不影响业务结果
type Publisher interface {
	Publish(ctx context.Context, evts ...*model.Event)
	Close() error
}

// Nop 不投递
type Nop struct{}

var _ Publisher = Nop{}

func (Nop) Publish(context.Context, ...*model.Event) {}

func (Nop) Close() error { return nil }
