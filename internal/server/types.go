// Package server defines the JSON frames exchanged over the WebSocket and the
// helpers that translate them to and from coordinator events.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/livechat/internal/chat"
	"github.com/Tyrowin/livechat/internal/coordinator"
)

// Inbound event names. "register" is accepted as an alias of "register_user".
const (
	eventRegisterUser = "register_user"
	eventRegister     = "register"
	eventMessage      = string(coordinator.EventMessage)
)

var (
	// ErrSendBufferFull is returned when a client's outgoing queue overflows.
	ErrSendBufferFull = errors.New("send buffer full")
	// ErrUnknownEvent is returned for frames naming an event the gateway does not handle.
	ErrUnknownEvent = errors.New("unknown event")
	// ErrEmptyName is returned for registrations without a usable name.
	ErrEmptyName = errors.New("empty display name")
)

// Frame is the envelope of every WebSocket text message, in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type outboundFrame struct {
	Event coordinator.Event `json:"event"`
	Data  any               `json:"data"`
}

// encodeOutbound renders a coordinator event as a wire frame.
func encodeOutbound(out coordinator.Outbound) ([]byte, error) {
	frame := outboundFrame{Event: out.Event}
	switch out.Event {
	case coordinator.EventMessage:
		frame.Data = out.Message
	case coordinator.EventUserList:
		users := out.Users
		if users == nil {
			users = []string{}
		}
		frame.Data = users
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, out.Event)
	}
	return json.Marshal(frame)
}

// decodeInbound turns a wire frame from connID into a coordinator intent.
func decodeInbound(connID string, raw []byte) (coordinator.Intent, error) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, fmt.Errorf("invalid frame: %w", err)
	}

	switch frame.Event {
	case eventRegisterUser, eventRegister:
		var name string
		if err := json.Unmarshal(frame.Data, &name); err != nil {
			return nil, fmt.Errorf("invalid %s data: %w", frame.Event, err)
		}
		if strings.TrimSpace(name) == "" {
			return nil, ErrEmptyName
		}
		return coordinator.Register{ConnID: connID, Name: name}, nil
	case eventMessage:
		var msg chat.Message
		if err := json.Unmarshal(frame.Data, &msg); err != nil {
			return nil, fmt.Errorf("invalid message data: %w", err)
		}
		return coordinator.Message{ConnID: connID, Payload: msg}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, frame.Event)
	}
}

// isExpectedCloseError reports errors that only mean the socket is already
// going away.
func isExpectedCloseError(err error) bool {
	return err == nil ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, websocket.ErrCloseSent) ||
		errors.Is(err, syscall.EPIPE)
}
