package realtime

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(h *Hub, userID string, buf int) *Client {
	return &Client{
		UserID: userID,
		hub:    h,
		send:   make(chan []byte, buf),
		rooms:  make(map[string]struct{}),
		log:    zap.NewNop(),
	}
}

func frame(t *testing.T, room, event string, data any) Frame {
	t.Helper()
	b, err := Encode(event, data)
	require.NoError(t, err)
	return Frame{Room: room, Event: event, Payload: b}
}

func TestHub_DeliverToRoom(t *testing.T) {
	h := NewHub(zap.NewNop())
	a := newTestClient(h, "a", 4)
	b := newTestClient(h, "b", 4)
	h.Register(a, UserRoom("a"), TeamRoom("t1"))
	h.Register(b, UserRoom("b"), TeamRoom("t1"))

	h.Deliver(frame(t, TeamRoom("t1"), EventNewTeamMessage, map[string]string{"content": "hi"}))
	h.Deliver(frame(t, UserRoom("a"), EventNotification, map[string]string{"id": "n1"}))

	assert.Len(t, a.send, 2)
	assert.Len(t, b.send, 1)

	var env Envelope
	require.NoError(t, json.Unmarshal(<-b.send, &env))
	assert.Equal(t, EventNewTeamMessage, env.Event)
	assert.JSONEq(t, `{"content":"hi"}`, string(env.Data))
}

func TestHub_FullBufferDropsEvent(t *testing.T) {
	h := NewHub(zap.NewNop())
	c := newTestClient(h, "a", 1)
	h.Register(c, UserRoom("a"))

	h.Deliver(frame(t, UserRoom("a"), EventNotification, 1))
	h.Deliver(frame(t, UserRoom("a"), EventNotification, 2))

	assert.Len(t, c.send, 1)
}

func TestHub_JoinAndLeaveFrames(t *testing.T) {
	h := NewHub(zap.NewNop())
	c := newTestClient(h, "a", 4)
	h.Register(c, UserRoom("a"))

	h.Deliver(Frame{Room: UserRoom("a"), Join: TeamRoom("t1")})
	assert.Equal(t, 1, h.RoomSize(TeamRoom("t1")))

	h.Deliver(Frame{Room: UserRoom("a"), Leave: TeamRoom("t1")})
	assert.Equal(t, 0, h.RoomSize(TeamRoom("t1")))
	assert.Empty(t, c.send)
}

func TestHub_UnregisterClosesAndForgets(t *testing.T) {
	h := NewHub(zap.NewNop())
	c := newTestClient(h, "a", 4)
	h.Register(c, UserRoom("a"), ProjectRoom("p1"))

	h.Unregister(c)
	h.Unregister(c)

	assert.Equal(t, 0, h.RoomSize(UserRoom("a")))
	assert.Equal(t, 0, h.RoomSize(ProjectRoom("p1")))
	_, ok := <-c.send
	assert.False(t, ok)

	// sending to a closed client is a no-op
	c.Send(EventError, "ignored")
}

func TestEmitter_LocalBroker(t *testing.T) {
	h := NewHub(zap.NewNop())
	c := newTestClient(h, "a", 4)
	h.Register(c, UserRoom("a"))
	e := NewEmitter(NewLocalBroker(h.Deliver), zap.NewNop())

	e.JoinRoom(t.Context(), "a", ProjectRoom("p1"))
	e.Emit(t.Context(), ProjectRoom("p1"), EventProjectUpdated, map[string]string{"status": "completed"})

	require.Len(t, c.send, 1)
	var env Envelope
	require.NoError(t, json.Unmarshal(<-c.send, &env))
	assert.Equal(t, EventProjectUpdated, env.Event)
}
