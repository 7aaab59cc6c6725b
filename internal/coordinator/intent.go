package coordinator

import "github.com/Tyrowin/livechat/internal/chat"

// Intent is one inbound event for the coordinator. The set of intents is
// closed: Connect, Disconnect, Register and Message.
type Intent interface {
	intent()
}

// Connect reports a new connection. The connection starts unregistered.
type Connect struct {
	Recipient Recipient
}

// Disconnect reports that a connection is gone, whatever the reason.
type Disconnect struct {
	ConnID string
}

// Register records a display name for a connection.
type Register struct {
	ConnID string
	Name   string
}

// Message relays a chat line sent by a connection.
type Message struct {
	ConnID  string
	Payload chat.Message
}

func (Connect) intent()    {}
func (Disconnect) intent() {}
func (Register) intent()   {}
func (Message) intent()    {}

// Event names the kind of an outbound event.
type Event string

// Outbound event kinds.
const (
	EventMessage  Event = "message"
	EventUserList Event = "user_list"
)

// Outbound is one event addressed to a recipient. Exactly one of Message and
// Users is meaningful, depending on Event.
type Outbound struct {
	Event   Event
	Message chat.Message
	Users   []string
}

// Recipient is a live connection as seen by the coordinator. Enqueue must not
// block: it either queues the event for in-order delivery or fails.
type Recipient interface {
	ID() string
	Enqueue(Outbound) error
	Close()
}
