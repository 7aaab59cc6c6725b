package terminal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/livechat/internal/chat"
	"github.com/Tyrowin/livechat/internal/server"
)

const writeWait = 10 * time.Second

// Session is one connection to the room under a display name.
type Session struct {
	conn   *websocket.Conn
	name   string
	seen   *Deduper
	wmu    sync.Mutex
	mu     sync.RWMutex
	roster []string
}

// Dial connects to cfg.ServerURL. The session is not registered yet.
func Dial(ctx context.Context, cfg Config, name string) (*Session, error) {
	header := http.Header{}
	if cfg.Origin != "" {
		header.Set("Origin", cfg.Origin)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, cfg.ServerURL, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("could not connect to %s: %w", cfg.ServerURL, err)
	}

	return &Session{conn: conn, name: name, seen: NewDeduper()}, nil
}

// Name returns the display name of the session.
func (s *Session) Name() string {
	return s.name
}

// Register announces the session's name to the room.
func (s *Session) Register() error {
	return s.write("register_user", s.name)
}

// Say sends text as a new message with a client-side id.
func (s *Session) Say(text string) (chat.Message, error) {
	msg := chat.Message{
		ID:        chat.NewID(chat.MessageIDPrefix),
		Text:      text,
		Sender:    s.name,
		Timestamp: time.Now().UTC(),
	}
	return msg, s.write("message", msg)
}

// Roster returns the last roster received.
func (s *Session) Roster() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.roster...)
}

// Listen reads frames until the connection ends or ctx is cancelled. Each
// message id is passed to onMessage at most once. A normal close from the
// server returns nil.
func (s *Session) Listen(ctx context.Context, onMessage func(chat.Message), onUsers func([]string)) error {
	stop := context.AfterFunc(ctx, func() { _ = s.conn.Close() })
	defer stop()

	for {
		var frame server.Frame
		if err := s.conn.ReadJSON(&frame); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("connection lost: %w", err)
		}

		switch frame.Event {
		case "message":
			var msg chat.Message
			if err := json.Unmarshal(frame.Data, &msg); err != nil {
				continue
			}
			if msg.ID != "" && !s.seen.First(msg.ID) {
				continue
			}
			if onMessage != nil {
				onMessage(msg)
			}
		case "user_list":
			var users []string
			if err := json.Unmarshal(frame.Data, &users); err != nil {
				continue
			}
			s.mu.Lock()
			s.roster = users
			s.mu.Unlock()
			if onUsers != nil {
				onUsers(users)
			}
		}
	}
}

// Close sends a close frame and releases the connection.
func (s *Session) Close() error {
	s.wmu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	err := s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	s.wmu.Unlock()

	if cerr := s.conn.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if errors.Is(err, websocket.ErrCloseSent) {
		return nil
	}
	return err
}

func (s *Session) write(event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}

	s.wmu.Lock()
	defer s.wmu.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return s.conn.WriteJSON(server.Frame{Event: event, Data: raw})
}
