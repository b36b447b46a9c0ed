// Package testutil holds test doubles shared by service and handler tests.
package testutil

import (
	"context"
	"sync"
)

// Emitted is one recorded socket event.
type Emitted struct {
	Room  string
	Event string
	Data  any
}

// Recorder is an emitter that keeps every event in memory.
type Recorder struct {
	mu          sync.Mutex
	events      []Emitted
	memberships []Membership
}

func (r *Recorder) Emit(_ context.Context, room, event string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Emitted{Room: room, Event: event, Data: data})
}

// ByEvent returns the recorded events named event, in emission order.
func (r *Recorder) ByEvent(event string) []Emitted {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Emitted
	for _, e := range r.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

// Rooms returns the rooms that received event.
func (r *Recorder) Rooms(event string) []string {
	var rooms []string
	for _, e := range r.ByEvent(event) {
		rooms = append(rooms, e.Room)
	}
	return rooms
}

// Reset forgets all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
	r.memberships = nil
}

// Membership is one recorded room join or leave.
type Membership struct {
	UserID string
	Room   string
	Join   bool
}

func (r *Recorder) JoinRoom(_ context.Context, userID, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.memberships = append(r.memberships, Membership{UserID: userID, Room: room, Join: true})
}

func (r *Recorder) LeaveRoom(_ context.Context, userID, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.memberships = append(r.memberships, Membership{UserID: userID, Room: room})
}

// Memberships returns the recorded joins and leaves in order.
func (r *Recorder) Memberships() []Membership {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Membership(nil), r.memberships...)
}
