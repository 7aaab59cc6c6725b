// Package coordinator serializes connection lifecycle and chat intents, owns
// the session registry, and fans every resulting event out to all connected
// recipients.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/samber/lo"

	"github.com/Tyrowin/livechat/internal/chat"
	"github.com/Tyrowin/livechat/internal/session"
)

var (
	// ErrStopped is returned when an intent is submitted after shutdown.
	ErrStopped = errors.New("coordinator stopped")
	// ErrRecipientClosed is returned by recipients that can no longer accept events.
	ErrRecipientClosed = errors.New("recipient closed")
	// ErrUnknownRenamePolicy is returned by ParseRenamePolicy.
	ErrUnknownRenamePolicy = errors.New("unknown rename policy")
)

const defaultInboxSize = 256

// Options tunes a Coordinator.
type Options struct {
	InboxSize    int
	RenamePolicy RenamePolicy
}

// Coordinator is the only writer of the session registry. Intents are handled
// one at a time by Run, so the announcement and roster update produced by one
// intent are never interleaved with those of another.
type Coordinator struct {
	log        *slog.Logger
	registry   *session.Registry
	policy     RenamePolicy
	recipients map[string]Recipient
	connected  atomic.Int64
	intents    chan Intent
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// New creates a Coordinator with an empty registry. Run must be started
// before intents are submitted.
func New(log *slog.Logger, opts Options) *Coordinator {
	if opts.InboxSize <= 0 {
		opts.InboxSize = defaultInboxSize
	}
	if opts.RenamePolicy == "" {
		opts.RenamePolicy = AnnounceJoin
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		log:        log,
		registry:   session.NewRegistry(),
		policy:     opts.RenamePolicy,
		recipients: make(map[string]Recipient),
		intents:    make(chan Intent, opts.InboxSize),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Run processes intents until Shutdown is called.
func (c *Coordinator) Run() {
	defer close(c.done)

	for {
		select {
		case <-c.ctx.Done():
			c.closeRecipients()
			return
		case in := <-c.intents:
			c.handle(in)
		}
	}
}

// Submit queues an intent for Run. It blocks while the inbox is full and
// fails once ctx is done or the coordinator is shutting down.
func (c *Coordinator) Submit(ctx context.Context, in Intent) error {
	select {
	case <-c.ctx.Done():
		return ErrStopped
	default:
	}

	select {
	case c.intents <- in:
		return nil
	case <-c.ctx.Done():
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Connect announces a new, unregistered connection.
func (c *Coordinator) Connect(ctx context.Context, r Recipient) error {
	return c.Submit(ctx, Connect{Recipient: r})
}

// Disconnect announces that connID is gone. Repeated calls are harmless.
func (c *Coordinator) Disconnect(ctx context.Context, connID string) error {
	return c.Submit(ctx, Disconnect{ConnID: connID})
}

// Register records name for connID and announces it to the room.
func (c *Coordinator) Register(ctx context.Context, connID, name string) error {
	return c.Submit(ctx, Register{ConnID: connID, Name: name})
}

// Send relays payload from connID to every connection.
func (c *Coordinator) Send(ctx context.Context, connID string, payload chat.Message) error {
	return c.Submit(ctx, Message{ConnID: connID, Payload: payload})
}

// Roster returns the registered display names in join order.
func (c *Coordinator) Roster() []string {
	return c.registry.Snapshot()
}

// Connections returns the number of live connections, registered or not.
func (c *Coordinator) Connections() int {
	return int(c.connected.Load())
}

// Done is closed once Run has returned.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

func (c *Coordinator) handle(in Intent) {
	switch in := in.(type) {
	case Connect:
		c.handleConnect(in)
	case Disconnect:
		c.handleDisconnect(in)
	case Register:
		c.handleRegister(in)
	case Message:
		c.handleMessage(in)
	default:
		c.log.Warn("Ignoring unknown intent", "type", fmt.Sprintf("%T", in))
	}
}

func (c *Coordinator) handleConnect(in Connect) {
	if in.Recipient == nil {
		c.log.Warn("Received nil recipient; skipping")
		return
	}
	c.recipients[in.Recipient.ID()] = in.Recipient
	c.connected.Store(int64(len(c.recipients)))
	c.log.Debug("Connection opened", "conn", in.Recipient.ID(), "connections", len(c.recipients))
}

func (c *Coordinator) handleDisconnect(in Disconnect) {
	if _, ok := c.recipients[in.ConnID]; ok {
		delete(c.recipients, in.ConnID)
		c.connected.Store(int64(len(c.recipients)))
	}

	name, registered := c.registry.Remove(in.ConnID)
	if !registered {
		c.log.Debug("Anonymous connection closed", "conn", in.ConnID)
		return
	}

	c.log.Info("User disconnected", "conn", in.ConnID, "name", name)
	c.broadcast(Outbound{Event: EventMessage, Message: chat.System(chat.LeftText(name))})
	c.broadcastRoster()
}

func (c *Coordinator) handleRegister(in Register) {
	if _, ok := c.recipients[in.ConnID]; !ok {
		c.log.Debug("Ignoring registration from unknown connection", "conn", in.ConnID, "name", in.Name)
		return
	}

	previous, replaced := c.registry.Put(in.ConnID, in.Name)
	c.log.Info("User registered", "conn", in.ConnID, "name", in.Name)

	switch {
	case !replaced || c.policy == AnnounceJoin:
		c.broadcast(Outbound{Event: EventMessage, Message: chat.System(chat.JoinedText(in.Name))})
	case previous != in.Name:
		c.broadcast(Outbound{Event: EventMessage, Message: chat.System(chat.RenamedText(previous, in.Name))})
	}
	c.broadcastRoster()
}

func (c *Coordinator) handleMessage(in Message) {
	payload := in.Payload
	if payload.ID == "" {
		payload.ID = chat.NewID(chat.MessageIDPrefix)
	}
	c.log.Debug("Relaying message", "conn", in.ConnID, "id", payload.ID)
	c.broadcast(Outbound{Event: EventMessage, Message: payload})
}

func (c *Coordinator) broadcastRoster() {
	c.broadcast(Outbound{Event: EventUserList, Users: c.registry.Snapshot()})
}

// broadcast hands out to every connected recipient. A failing recipient is
// logged and skipped.
func (c *Coordinator) broadcast(out Outbound) {
	for id, r := range c.recipients {
		if err := r.Enqueue(out); err != nil {
			c.log.Warn("Delivery failed", "conn", id, "event", out.Event, "error", err)
		}
	}
}

func (c *Coordinator) closeRecipients() {
	recipients := lo.Values(c.recipients)
	c.log.Info("Closing connections", "count", len(recipients))
	for _, r := range recipients {
		r.Close()
	}
}

// Shutdown stops Run, closing every connection, and waits for it to return or
// for timeout to elapse.
func (c *Coordinator) Shutdown(timeout time.Duration) error {
	c.log.Info("Initiating coordinator shutdown...")
	c.cancel()

	select {
	case <-c.done:
		c.log.Info("Coordinator shutdown completed")
		return nil
	case <-time.After(timeout):
		c.log.Warn("Coordinator shutdown timeout reached")
		return context.DeadlineExceeded
	}
}
