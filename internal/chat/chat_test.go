package chat

import (
	"encoding/json"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewID_Format(t *testing.T) {
	req := require.New(t)

	id := NewID(MessageIDPrefix)

	parts := strings.Split(id, "-")
	req.Len(parts, 3)
	req.Equal("msg", parts[0])
	_, err := strconv.ParseInt(parts[1], 10, 64)
	req.NoError(err)
	req.Len(parts[2], 9)
}

func TestNewID_Unique(t *testing.T) {
	req := require.New(t)
	seen := make(map[string]struct{}, 10000)

	for i := 0; i < 10000; i++ {
		id := NewID(SystemIDPrefix)
		_, dup := seen[id]
		req.False(dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestIDGenerator_Clock_Never_Goes_Backwards(t *testing.T) {
	req := require.New(t)
	base := time.UnixMilli(1_700_000_000_000)
	clock := []time.Time{base, base.Add(-time.Hour), base.Add(time.Millisecond)}
	g := NewIDGenerator()
	g.now = func() time.Time {
		current := clock[0]
		clock = clock[1:]
		return current
	}

	first := strings.Split(g.Next("msg"), "-")[1]
	second := strings.Split(g.Next("msg"), "-")[1]
	third := strings.Split(g.Next("msg"), "-")[1]

	req.Equal("1700000000000", first)
	req.Equal("1700000000000", second)
	req.Equal("1700000000001", third)
}

func TestSystem_Message(t *testing.T) {
	req := require.New(t)

	msg := System(JoinedText("Alice"))

	req.Equal("Alice has joined the chat", msg.Text)
	req.Equal(SystemSender, msg.Sender)
	req.True(msg.IsSystem())
	req.True(strings.HasPrefix(msg.ID, "system-"))
	req.False(msg.Timestamp.IsZero())
}

func TestAnnouncementTexts(t *testing.T) {
	req := require.New(t)

	req.Equal("Bob has left the chat", LeftText("Bob"))
	req.Equal("Bob is now known as Robert", RenamedText("Bob", "Robert"))
}

func TestMessage_JSON_Field_Names(t *testing.T) {
	req := require.New(t)
	raw := `{"id":"msg-1","text":"hello","sender":"Alice","timestamp":"2026-01-02T15:04:05.000Z"}`

	var msg Message
	req.NoError(json.Unmarshal([]byte(raw), &msg))

	req.Equal("msg-1", msg.ID)
	req.Equal("hello", msg.Text)
	req.Equal("Alice", msg.Sender)
	req.Equal(2026, msg.Timestamp.Year())
	req.False(msg.IsSystem())
}

func TestMessage_Reencodes_Received_Object(t *testing.T) {
	req := require.New(t)
	raw := `{"id":"a","text":"hi","sender":"X","timestamp":1700000000000,"color":"red"}`

	var msg Message
	req.NoError(json.Unmarshal([]byte(raw), &msg))

	req.Equal(time.UnixMilli(1700000000000).UTC(), msg.Timestamp)
	out, err := json.Marshal(msg)
	req.NoError(err)
	req.JSONEq(raw, string(out))
}

func TestMessage_Assigned_ID_Only_Changes_ID(t *testing.T) {
	req := require.New(t)
	raw := `{"id":"","text":"no ts","sender":"X","color":"red"}`

	var msg Message
	req.NoError(json.Unmarshal([]byte(raw), &msg))
	req.Empty(msg.ID)
	req.True(msg.Timestamp.IsZero())

	msg.ID = "msg-1-abcdefghi"
	out, err := json.Marshal(msg)
	req.NoError(err)
	req.JSONEq(`{"id":"msg-1-abcdefghi","text":"no ts","sender":"X","color":"red"}`, string(out))
}

func TestMessage_Falsy_IDs_Are_Missing(t *testing.T) {
	for _, id := range []string{`null`, `""`, `false`, `0`} {
		var msg Message
		require.NoError(t, json.Unmarshal([]byte(`{"id":`+id+`,"text":"t"}`), &msg))
		require.Empty(t, msg.ID, id)
	}

	var msg Message
	require.NoError(t, json.Unmarshal([]byte(`{"id":7}`), &msg))
	require.Equal(t, "7", msg.ID)
	out, err := json.Marshal(msg)
	require.NoError(t, err)
	require.JSONEq(t, `{"id":7}`, string(out))
}

func TestMessage_Typed_Encoding_Omits_Zero_Timestamp(t *testing.T) {
	out, err := json.Marshal(Message{ID: "msg-1", Text: "hi", Sender: "A"})

	require.NoError(t, err)
	require.JSONEq(t, `{"id":"msg-1","text":"hi","sender":"A"}`, string(out))
}

func TestMessage_Rejects_Non_Objects(t *testing.T) {
	for _, raw := range []string{`"hi"`, `[1]`} {
		var msg Message
		require.Error(t, json.Unmarshal([]byte(raw), &msg), raw)
	}
}
