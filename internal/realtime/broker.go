package realtime

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Broker carries frames to every process that holds sockets.
type Broker interface {
	Publish(ctx context.Context, f Frame) error
	// Run blocks until ctx is done, feeding received frames to the hub.
	Run(ctx context.Context) error
}

// LocalBroker delivers straight to the in-process hub. Events do not reach
// sockets held by other instances.
type LocalBroker struct {
	deliver func(Frame)
}

func NewLocalBroker(deliver func(Frame)) *LocalBroker {
	return &LocalBroker{deliver: deliver}
}

func (b *LocalBroker) Publish(_ context.Context, f Frame) error {
	b.deliver(f)
	return nil
}

func (b *LocalBroker) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

// DefaultChannel is the Redis pub/sub channel shared by all instances.
const DefaultChannel = "realtime:frames"

// RedisBroker fans frames out through Redis pub/sub. Every instance, the
// publisher included, delivers a frame when it comes back on the channel.
type RedisBroker struct {
	rdb     *redis.Client
	channel string
	deliver func(Frame)
	log     *zap.Logger
}

func NewRedisBroker(rdb *redis.Client, channel string, deliver func(Frame), log *zap.Logger) *RedisBroker {
	return &RedisBroker{rdb: rdb, channel: channel, deliver: deliver, log: log}
}

func (b *RedisBroker) Publish(ctx context.Context, f Frame) error {
	payload, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, payload).Err()
}

func (b *RedisBroker) Run(ctx context.Context) error {
	sub := b.rdb.Subscribe(ctx, b.channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var f Frame
			if err := json.Unmarshal([]byte(msg.Payload), &f); err != nil {
				b.log.Warn("discarding malformed frame", zap.Error(err))
				continue
			}
			b.deliver(f)
		}
	}
}
