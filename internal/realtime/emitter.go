package realtime

import (
	"context"

	"go.uber.org/zap"
)

// Emitter publishes server events. Delivery is fire-and-forget: failures are
// logged and never reach the caller.
type Emitter struct {
	broker Broker
	log    *zap.Logger
}

func NewEmitter(b Broker, log *zap.Logger) *Emitter {
	return &Emitter{broker: b, log: log}
}

// Emit sends event with data to every socket in room.
func (e *Emitter) Emit(ctx context.Context, room, event string, data any) {
	payload, err := Encode(event, data)
	if err != nil {
		e.log.Warn("encode socket event", zap.String("event", event), zap.Error(err))
		return
	}
	e.publish(ctx, Frame{Room: room, Event: event, Payload: payload})
}

// JoinRoom subscribes every open socket of userID to room.
func (e *Emitter) JoinRoom(ctx context.Context, userID, room string) {
	e.publish(ctx, Frame{Room: UserRoom(userID), Join: room})
}

// LeaveRoom unsubscribes every open socket of userID from room.
func (e *Emitter) LeaveRoom(ctx context.Context, userID, room string) {
	e.publish(ctx, Frame{Room: UserRoom(userID), Leave: room})
}

func (e *Emitter) publish(ctx context.Context, f Frame) {
	if err := e.broker.Publish(ctx, f); err != nil {
		e.log.Warn("publish socket frame", zap.String("room", f.Room), zap.Error(err))
	}
}
