// Package realtime is the presence and conversation-room layer: it tracks
// which users are online, which connections sit in which broadcast rooms,
// and fans typing, read-receipt, status and content-interaction events out
// to the right subscribers.
package realtime

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"questfeed/backend/internal/models"
	"questfeed/backend/internal/storage"
)

// Inbound is one decoded client event together with the connection that
// sent it.
type Inbound struct {
	Client Client
	Event  models.ClientEvent
}

type notifyRequest struct {
	userID string
	event  models.Envelope
}

type relayRequest struct {
	event   string
	payload json.RawMessage
}

// Hub owns the presence registry and room tables. All mutations happen on
// the single Run goroutine; external callers reach the loop through the
// exported channels and methods, never by touching the tables directly.
type Hub struct {
	clients  map[string]Client // connID -> client
	presence *Presence
	rooms    *Rooms

	RegisterCh   chan Client
	UnregisterCh chan Client
	IncomingCh   chan Inbound
	RemoteCh     chan RemoteFrame

	notifyCh chan notifyRequest
	relayCh  chan relayRequest

	// Redis side effects are queued here and performed by flushLoop, never
	// on the event-loop goroutine.
	onlineCh  chan onlineOp
	publishCh chan RemoteFrame

	storage   storage.Storage
	backplane Backplane
	log       *zap.Logger
}

// onlineOp is a pending mutation of the shared online-user set.
type onlineOp struct {
	userID string
	online bool
}

func NewHub(s storage.Storage, backplane Backplane, log *zap.Logger) *Hub {
	return &Hub{
		clients:      make(map[string]Client),
		presence:     NewPresence(),
		rooms:        NewRooms(),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		IncomingCh:   make(chan Inbound),
		RemoteCh:     make(chan RemoteFrame, 64),
		notifyCh:     make(chan notifyRequest, 64),
		relayCh:      make(chan relayRequest, 64),
		onlineCh:     make(chan onlineOp, 256),
		publishCh:    make(chan RemoteFrame, 256),
		storage:      s,
		backplane:    backplane,
		log:          log,
	}
}

// Run is the hub's event loop. Every handler body is non-blocking: the
// disconnect-time last-active write runs on its own goroutine, and all
// other Redis traffic goes through flushLoop.
func (h *Hub) Run(ctx context.Context) {
	go h.flushLoop(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.RegisterCh:
			h.register(c)
		case c := <-h.UnregisterCh:
			h.unregister(c)
		case in := <-h.IncomingCh:
			h.handleInbound(in)
		case frame := <-h.RemoteCh:
			h.handleRemote(frame)
		case req := <-h.notifyCh:
			h.handleNotify(req)
		case req := <-h.relayCh:
			h.broadcastGlobal(models.Envelope{Event: req.event, Data: req.payload}, "", true)
		}
	}
}

// flushLoop drains the queued online-set mutations and backplane publishes.
// A slow or unreachable Redis stalls this goroutine only; realtime fan-out
// keeps running.
func (h *Hub) flushLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case op := <-h.onlineCh:
			if op.online {
				if err := h.storage.AddOnlineUser(op.userID); err != nil {
					h.log.Warn("online set add failed", zap.String("user_id", op.userID), zap.Error(err))
				}
			} else {
				if err := h.storage.RemoveOnlineUser(op.userID); err != nil {
					h.log.Warn("online set remove failed", zap.String("user_id", op.userID), zap.Error(err))
				}
			}
		case frame := <-h.publishCh:
			if err := h.backplane.Publish(frame); err != nil {
				h.log.Warn("backplane publish failed", zap.String("scope", frame.Scope), zap.Error(err))
			}
		}
	}
}

// DeliverRemote feeds a backplane frame into the loop. Passed to
// Backplane.Listen by the caller that wires the hub up.
func (h *Hub) DeliverRemote(frame RemoteFrame) {
	h.RemoteCh <- frame
}

// NotifyUser addresses a direct event to a single user, wherever they are
// connected. Safe to call from any goroutine.
func (h *Hub) NotifyUser(userID string, event models.Envelope) {
	h.notifyCh <- notifyRequest{userID: userID, event: event}
}

// Relay broadcasts a collaborator-owned payload verbatim to every
// connection. Safe to call from any goroutine.
func (h *Hub) Relay(event string, payload json.RawMessage) {
	h.relayCh <- relayRequest{event: event, payload: payload}
}

// IsOnline reports whether the user has a live connection on this process.
func (h *Hub) IsOnline(userID string) bool {
	_, ok := h.presence.Lookup(userID)
	return ok
}

func (h *Hub) register(c Client) {
	connID := c.GetConnID()
	userID := c.GetUserID()

	h.clients[connID] = c
	h.presence.Register(userID, connID)
	h.rooms.Join(UserRoom(userID), c)

	h.setOnline(userID, true)
	h.broadcastStatus(userID, models.StatusOnline, connID)

	h.log.Info("client connected",
		zap.String("conn_id", connID),
		zap.String("user_id", userID))
}

// unregister tears presence and room state down. Idempotent: duplicate
// disconnect signals for the same connection are no-ops.
func (h *Hub) unregister(c Client) {
	connID := c.GetConnID()
	if _, ok := h.clients[connID]; !ok {
		return
	}

	userID := c.GetUserID()
	delete(h.clients, connID)
	h.rooms.DropConnection(connID)
	h.presence.Unregister(userID, connID)
	c.Close()

	// Fire-and-forget: a slow or failing write must not delay the loop.
	go h.touchLastActive(userID)

	// When the user reconnected before this disconnect arrived, the presence
	// entry now belongs to the newer connection and the user never went
	// offline from the outside view.
	if _, stillOnline := h.presence.Lookup(userID); !stillOnline {
		h.setOnline(userID, false)
		h.broadcastStatus(userID, models.StatusOffline, connID)
	}

	h.log.Info("client disconnected",
		zap.String("conn_id", connID),
		zap.String("user_id", userID))
}

func (h *Hub) touchLastActive(userID string) {
	if err := h.storage.TouchLastActive(userID, time.Now().UTC()); err != nil {
		h.log.Warn("last-active write failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func (h *Hub) handleInbound(in Inbound) {
	c := in.Client

	// The read pump can race an unregister: an event from an evicted or
	// disconnected connection may still be in flight. The connection's send
	// channel is already closed, so re-admitting it to any table would
	// poison later broadcasts.
	if _, ok := h.clients[c.GetConnID()]; !ok {
		return
	}

	switch ev := in.Event.(type) {
	case models.JoinConversation:
		h.joinConversation(c, ev.ConversationID)

	case models.LeaveConversation:
		h.rooms.Leave(ConversationRoom(ev.ConversationID), c.GetConnID())

	case models.TypingStart:
		h.broadcastTyping(models.EventTypingStart, c, ev.ConversationID)

	case models.TypingStop:
		h.broadcastTyping(models.EventTypingStop, c, ev.ConversationID)

	case models.MessageRead:
		env, err := models.NewEnvelope(models.EventMessageRead, models.ReadReceipt{
			MessageID: ev.MessageID,
			UserID:    c.GetUserID(),
			ReadAt:    time.Now().UTC().Format(time.RFC3339),
		})
		if err != nil {
			return
		}
		h.broadcastRoom(ConversationRoom(ev.ConversationID), env, c.GetConnID(), true)

	case models.StatusUpdate:
		// Unlike the lifecycle online/offline broadcasts, an explicit status
		// update goes to every connection, the sender included.
		h.broadcastStatus(c.GetUserID(), ev.Status, "")

	case models.PostRelay:
		h.broadcastGlobal(models.Envelope{Event: ev.Event, Data: ev.Payload}, c.GetConnID(), true)
	}
}

// joinConversation admits the connection only when its user actually
// participates in the conversation. Refusals are silent on the wire, like
// every other fault on this best-effort channel.
func (h *Hub) joinConversation(c Client, conversationID string) {
	ok, err := h.storage.IsParticipant(conversationID, c.GetUserID())
	if err != nil {
		h.log.Warn("participant check failed",
			zap.String("conversation_id", conversationID),
			zap.String("user_id", c.GetUserID()),
			zap.Error(err))
		return
	}
	if !ok {
		h.log.Debug("room join refused",
			zap.String("conversation_id", conversationID),
			zap.String("user_id", c.GetUserID()))
		return
	}
	h.rooms.Join(ConversationRoom(conversationID), c)
}

func (h *Hub) broadcastTyping(event string, c Client, conversationID string) {
	env, err := models.NewEnvelope(event, models.TypingEvent{
		UserID:         c.GetUserID(),
		Username:       c.GetUsername(),
		ConversationID: conversationID,
	})
	if err != nil {
		return
	}
	h.broadcastRoom(ConversationRoom(conversationID), env, c.GetConnID(), true)
}

func (h *Hub) broadcastStatus(userID, status, excludeConn string) {
	env, err := models.NewEnvelope(models.EventUserStatus, models.UserStatus{
		UserID:    userID,
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}
	h.broadcastGlobal(env, excludeConn, true)
}

func (h *Hub) handleNotify(req notifyRequest) {
	h.broadcastRoom(UserRoom(req.userID), req.event, "", false)
	h.publish(RemoteFrame{Scope: ScopeRoom, Room: UserRoom(req.userID), Event: req.event})
}

// handleRemote fans a frame from another process out locally. Never
// re-published: the origin already did.
func (h *Hub) handleRemote(frame RemoteFrame) {
	switch frame.Scope {
	case ScopeRoom:
		h.broadcastRoom(frame.Room, frame.Event, "", false)
	case ScopeGlobal:
		h.broadcastGlobal(frame.Event, "", false)
	}
}

func (h *Hub) broadcastRoom(room string, env models.Envelope, excludeConn string, replicate bool) {
	var stalled []Client
	for _, c := range h.rooms.Members(room) {
		if c.GetConnID() == excludeConn {
			continue
		}
		if !h.deliver(c, env) {
			stalled = append(stalled, c)
		}
	}
	h.evict(stalled)

	if replicate {
		h.publish(RemoteFrame{Scope: ScopeRoom, Room: room, Event: env})
	}
}

func (h *Hub) broadcastGlobal(env models.Envelope, excludeConn string, replicate bool) {
	var stalled []Client
	for connID, c := range h.clients {
		if connID == excludeConn {
			continue
		}
		if !h.deliver(c, env) {
			stalled = append(stalled, c)
		}
	}
	h.evict(stalled)

	if replicate {
		h.publish(RemoteFrame{Scope: ScopeGlobal, Event: env})
	}
}

func (h *Hub) deliver(c Client, env models.Envelope) bool {
	select {
	case c.GetSendChannel() <- env:
		return true
	default:
		return false
	}
}

// evict drops connections whose send buffers are full. Runs after the
// broadcast iteration so the client map is never mutated mid-range.
func (h *Hub) evict(stalled []Client) {
	for _, c := range stalled {
		h.log.Warn("evicting slow consumer",
			zap.String("conn_id", c.GetConnID()),
			zap.String("user_id", c.GetUserID()))
		h.unregister(c)
	}
}

// publish queues a frame for the backplane without ever blocking the event
// loop. The channel is best-effort like everything else here: when the
// queue is saturated the frame is dropped and logged.
func (h *Hub) publish(frame RemoteFrame) {
	select {
	case h.publishCh <- frame:
	default:
		h.log.Warn("backplane publish queue full, frame dropped", zap.String("scope", frame.Scope))
	}
}

func (h *Hub) setOnline(userID string, online bool) {
	select {
	case h.onlineCh <- onlineOp{userID: userID, online: online}:
	default:
		h.log.Warn("online set queue full, update dropped", zap.String("user_id", userID))
	}
}
