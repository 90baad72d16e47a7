package bus

import (
	"context"

	"github.com/yungbote/curricula-backend/internal/realtime"
)

type Bus interface {
	Publish(ctx context.Context, msg realtime.CycleEvent) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.CycleEvent)) error
	Close() error
}

// NewNopBus is used when REDIS_ADDR is unset; publishes go nowhere.
func NewNopBus() Bus { return nopBus{} }

type nopBus struct{}

func (nopBus) Publish(ctx context.Context, msg realtime.CycleEvent) error { return nil }
func (nopBus) StartForwarder(ctx context.Context, onMsg func(m realtime.CycleEvent)) error {
	return nil
}
func (nopBus) Close() error { return nil }
