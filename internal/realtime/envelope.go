package realtime

import "encoding/json"

// Events emitted by the server.
const (
	EventNewMessage        = "new-message"
	EventNewTeamMessage    = "new-team-message"
	EventNewProjectMessage = "new-project-message"
	EventProjectUpdated    = "project-updated"
	EventTeamUpdated       = "team-updated"
	EventUserTyping        = "user-typing"
	EventUserStopTyping    = "user-stop-typing"
	EventMessageRead       = "message-read"
	EventMessageReaction   = "message-reaction"
	EventMessageDeleted    = "message-deleted"
	EventNotification      = "notification"
	EventError             = "error"
)

// Events accepted from clients.
const (
	InPrivateMessage = "private-message"
	InTeamMessage    = "team-message"
	InProjectMessage = "project-message"
	InProjectUpdate  = "project-update"
	InTyping         = "typing"
	InStopTyping     = "stop-typing"
)

// Envelope is the wire shape of every socket frame in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Encode renders an envelope for event carrying data.
func Encode(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

// Frame is what travels through a Broker: either an encoded envelope for a
// room, or a membership change for every socket in Room.
type Frame struct {
	Room    string          `json:"room"`
	Event   string          `json:"event,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Join    string          `json:"join,omitempty"`
	Leave   string          `json:"leave,omitempty"`
}

func UserRoom(userID string) string       { return "user:" + userID }
func TeamRoom(teamID string) string       { return "team:" + teamID }
func ProjectRoom(projectID string) string { return "project:" + projectID }
