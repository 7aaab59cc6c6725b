// Package chat defines the messages exchanged in the room and the helpers that
// synthesize system announcements and message identifiers.
package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"time"
)

// SystemSender is the sender name carried by announcements the server authors.
const SystemSender = "System"

// Prefixes used when the server has to mint a message identifier.
const (
	MessageIDPrefix = "msg"
	SystemIDPrefix  = "system"
)

// Message is a chat line as relayed to every participant. Sender is the
// display name at the time of sending, not a reference to a live session.
//
// A Message decoded from JSON keeps the object it was decoded from and
// encodes back to it unchanged, except for an id assigned after decoding.
// The typed fields are a best-effort view for rendering.
type Message struct {
	ID        string
	Text      string
	Sender    string
	Timestamp time.Time

	fields     map[string]json.RawMessage
	receivedID string
}

type wireMessage struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// MarshalJSON encodes the received object when there is one, otherwise the
// typed fields.
func (m Message) MarshalJSON() ([]byte, error) {
	if m.fields == nil {
		return json.Marshal(wireMessage{ID: m.ID, Text: m.Text, Sender: m.Sender, Timestamp: m.Timestamp})
	}
	if m.ID == m.receivedID {
		return json.Marshal(m.fields)
	}

	id, err := json.Marshal(m.ID)
	if err != nil {
		return nil, err
	}
	fields := maps.Clone(m.fields)
	fields["id"] = id
	return json.Marshal(fields)
}

// UnmarshalJSON accepts any JSON object. Fields of an unexpected type are
// left empty in the typed view but survive re-encoding.
func (m *Message) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return fmt.Errorf("message must be a JSON object")
	}

	id := presentID(fields["id"])
	*m = Message{
		ID:         id,
		Text:       stringField(fields["text"]),
		Sender:     stringField(fields["sender"]),
		Timestamp:  timeField(fields["timestamp"]),
		fields:     fields,
		receivedID: id,
	}
	return nil
}

// presentID returns the id as text, or "" when it is missing or falsy
// (null, "", false, 0) and must be assigned.
func presentID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	switch string(raw) {
	case "", "null", `""`, "false", "0":
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func stringField(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// timeField reads an RFC 3339 string or a number of Unix milliseconds.
func timeField(raw json.RawMessage) time.Time {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		ts, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}
		}
		return ts
	}
	var millis float64
	if err := json.Unmarshal(raw, &millis); err == nil {
		return time.UnixMilli(int64(millis)).UTC()
	}
	return time.Time{}
}

// IsSystem reports whether m was authored by the server.
func (m Message) IsSystem() bool {
	return m.Sender == SystemSender
}

// System builds a server-authored announcement stamped with the current time.
func System(text string) Message {
	return Message{
		ID:        NewID(SystemIDPrefix),
		Text:      text,
		Sender:    SystemSender,
		Timestamp: time.Now().UTC(),
	}
}

// JoinedText is the announcement for a participant entering the room.
func JoinedText(name string) string {
	return fmt.Sprintf("%s has joined the chat", name)
}

// LeftText is the announcement for a participant leaving the room.
func LeftText(name string) string {
	return fmt.Sprintf("%s has left the chat", name)
}

// RenamedText is the announcement for a participant changing display name.
func RenamedText(previous, name string) string {
	return fmt.Sprintf("%s is now known as %s", previous, name)
}
