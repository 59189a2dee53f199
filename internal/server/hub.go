package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/wanderhappen/wanderchat/internal/chat"
)

// audience selects which connections receive an event.
type audience int

const (
	audienceAll audience = iota
	audienceOthers
	audienceSender
)

// event is a queued outbound delivery. sender is consulted for the
// all-but-sender and sender-only audiences.
type event struct {
	sender   *Client
	audience audience
	payload  []byte
}

// Hub is the realtime gateway. It owns the set of connected clients, applies
// inbound actions to the session store and message ledger, and fans the
// resulting events out to the right audience. Registration, unregistration,
// and delivery are serialized through the hub's run loop; store mutations
// happen in the acting connection's read pump and always complete before the
// corresponding event is queued.
type Hub struct {
	sessions *chat.SessionStore
	ledger   *chat.Ledger
	presence *chat.Presence

	clients    map[*Client]bool
	events     chan event
	register   chan *Client
	unregister chan *Client

	mutex  sync.RWMutex
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	log    *slog.Logger
}

// NewHub creates a hub bound to the given stores. The stores are owned by
// the caller so tests can construct an isolated hub per case.
func NewHub(sessions *chat.SessionStore, ledger *chat.Ledger, presence *chat.Presence, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		sessions:   sessions,
		ledger:     ledger,
		presence:   presence,
		clients:    make(map[*Client]bool),
		events:     make(chan event),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run starts the hub's event loop. It blocks until Shutdown is called, so it
// should be invoked in its own goroutine.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				h.log.Warn("received nil client registration; skipping")
				continue
			}
			h.handleConnect(client)

		case client := <-h.unregister:
			h.handleDisconnect(client)

		case ev := <-h.events:
			h.deliver(ev)
		}
	}
}

// handleConnect registers a new connection, starts its pumps, announces the
// new presence count to everyone, and sends the full message snapshot
// privately to the newcomer.
func (h *Hub) handleConnect(client *Client) {
	h.mutex.Lock()
	client.closed = false
	h.clients[client] = true
	h.mutex.Unlock()

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()

	count := h.presence.Increment()
	h.log.Info("client connected", "addr", client.addr, "presence", count)

	if payload, err := encodeEvent(EventPresenceCount, PresenceCountPayload{Count: count}); err == nil {
		h.deliver(event{audience: audienceAll, payload: payload})
	}
	if payload, err := encodeEvent(EventMessageSnapshot, MessageSnapshotPayload{Messages: h.ledger.Snapshot()}); err == nil {
		h.deliver(event{sender: client, audience: audienceSender, payload: payload})
	}
}

// handleDisconnect removes a connection and announces the reduced presence
// count to the remaining clients.
func (h *Hub) handleDisconnect(client *Client) {
	h.mutex.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mutex.Unlock()
		return
	}
	delete(h.clients, client)
	client.closed = true
	h.mutex.Unlock()
	close(client.send)

	count := h.presence.Decrement()
	h.log.Info("client disconnected", "addr", client.addr, "presence", count)

	if payload, err := encodeEvent(EventPresenceCount, PresenceCountPayload{Count: count}); err == nil {
		h.deliver(event{audience: audienceAll, payload: payload})
	}
}

// handleAction applies one inbound frame from a connection. Malformed frames
// and failed authentications are dropped without a reply; the sender learns
// nothing. Called from the connection's read pump, so the store mutation has
// completed before any event is queued.
func (h *Hub) handleAction(c *Client, raw []byte) {
	in, err := decodeInbound(raw)
	if err != nil {
		h.log.Debug("dropping unreadable frame", "addr", c.addr, "error", err)
		return
	}

	switch in.Type {
	case ActionSendMessage:
		h.handleSendMessage(c, in.Data)
	case ActionTyping:
		h.handleTyping(c, in.Data)
	case ActionEditMessage:
		h.handleEditMessage(c, in.Data)
	case ActionDeleteMessage:
		h.handleDeleteMessage(c, in.Data)
	}
}

func (h *Hub) handleSendMessage(c *Client, data json.RawMessage) {
	var p SendMessagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		h.log.Debug("dropping malformed send-message payload", "addr", c.addr, "error", err)
		return
	}

	user, err := h.sessions.Authenticate(p.Token)
	if err != nil {
		h.log.Debug("dropping send-message with unknown token", "addr", c.addr)
		return
	}

	msg, err := h.ledger.Append(p.Text, user)
	if err != nil {
		h.log.Debug("dropping invalid message", "addr", c.addr, "error", err)
		return
	}

	h.emit(c, audienceSender, EventMessageSnapshot, MessageSnapshotPayload{Messages: h.ledger.Snapshot()})
	h.emit(c, audienceOthers, EventNewMessage, NewMessagePayload{Message: msg})
}

func (h *Hub) handleTyping(c *Client, data json.RawMessage) {
	var p TypingPayload
	if err := json.Unmarshal(data, &p); err != nil {
		h.log.Debug("dropping malformed typing payload", "addr", c.addr, "error", err)
		return
	}

	user, err := h.sessions.Authenticate(p.Token)
	if err != nil {
		h.log.Debug("dropping typing with unknown token", "addr", c.addr)
		return
	}

	h.emit(c, audienceOthers, EventTypingNotice, TypingNoticePayload{Name: user.Name})
}

// handleEditMessage carries no token on purpose: the wire contract never
// authenticated edits, and clients depend on that.
func (h *Hub) handleEditMessage(c *Client, data json.RawMessage) {
	var p EditMessagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		h.log.Debug("dropping malformed edit-message payload", "addr", c.addr, "error", err)
		return
	}

	msg, err := h.ledger.Edit(p.MessageID, p.NewText)
	if err != nil {
		if !errors.Is(err, chat.ErrNotFound) {
			h.log.Warn("edit failed", "messageId", p.MessageID, "error", err)
		}
		return
	}

	h.emit(c, audienceAll, EventMessageEdited, MessageEditedPayload{MessageID: msg.ID, Message: msg})
}

// handleDeleteMessage is unauthenticated for the same reason as edits.
func (h *Hub) handleDeleteMessage(c *Client, data json.RawMessage) {
	var p DeleteMessagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		h.log.Debug("dropping malformed delete-message payload", "addr", c.addr, "error", err)
		return
	}

	if err := h.ledger.Delete(p.MessageID); err != nil {
		if !errors.Is(err, chat.ErrNotFound) {
			h.log.Warn("delete failed", "messageId", p.MessageID, "error", err)
		}
		return
	}

	h.emit(c, audienceAll, EventMessageRemoved, MessageRemovedPayload{MessageID: p.MessageID})
}

// emit encodes an event and queues it for delivery by the run loop.
func (h *Hub) emit(sender *Client, aud audience, eventType string, data any) {
	payload, err := encodeEvent(eventType, data)
	if err != nil {
		h.log.Error("failed to encode event", "type", eventType, "error", err)
		return
	}

	select {
	case h.events <- event{sender: sender, audience: aud, payload: payload}:
	case <-h.ctx.Done():
	}
}

// deliver fans an event out to its audience and prunes clients whose send
// buffers are full.
func (h *Hub) deliver(ev event) {
	clients := h.clientSnapshot()

	var failed []*Client
	for _, client := range clients {
		switch ev.audience {
		case audienceSender:
			if client != ev.sender {
				continue
			}
		case audienceOthers:
			if client == ev.sender {
				continue
			}
		}
		if !h.safeSend(client, ev.payload) {
			failed = append(failed, client)
		}
	}

	h.removeFailedClients(failed)
}

// clientSnapshot returns the current client set without holding the lock
// during delivery.
func (h *Hub) clientSnapshot() []*Client {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	return clients
}

func (h *Hub) safeSend(client *Client, payload []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			h.log.Warn("recovered from panic in safeSend", "panic", r)
		}
	}()

	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if _, exists := h.clients[client]; !exists || client.closed {
		return false
	}

	select {
	case client.send <- payload:
		return true
	default:
		return false
	}
}

// removeFailedClients drops clients that could not accept a delivery and
// announces the reduced presence count. Removal here marks the client closed,
// so the eventual unregister from its read pump is a no-op and the count is
// adjusted exactly once.
func (h *Hub) removeFailedClients(failed []*Client) {
	if len(failed) == 0 {
		return
	}

	h.mutex.Lock()
	var channels []chan []byte
	for _, client := range failed {
		if _, exists := h.clients[client]; exists {
			delete(h.clients, client)
			client.closed = true
			channels = append(channels, client.send)
			h.log.Warn("client removed due to full send buffer", "addr", client.addr)
		}
	}
	h.mutex.Unlock()

	for _, ch := range channels {
		close(ch)
	}
	if len(channels) == 0 {
		return
	}

	var count int
	for range channels {
		count = h.presence.Decrement()
	}
	if payload, err := encodeEvent(EventPresenceCount, PresenceCountPayload{Count: count}); err == nil {
		h.deliver(event{audience: audienceAll, payload: payload})
	}
}

// shutdownClients closes every active connection during hub shutdown.
func (h *Hub) shutdownClients() {
	h.log.Info("shutting down all client connections")

	clients := h.clientSnapshot()
	for _, client := range clients {
		if client.conn != nil {
			if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
				h.log.Warn("error closing client connection", "addr", client.addr, "error", err)
			}
		}
	}

	h.log.Info("closed client connections", "count", len(clients))
}

// Shutdown stops the run loop, closes every connection, and waits for the
// pump goroutines to finish or the timeout to elapse.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.log.Info("initiating hub shutdown")

	h.cancel()
	<-h.done

	finished := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		h.log.Info("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		h.log.Warn("hub shutdown timeout reached; some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
