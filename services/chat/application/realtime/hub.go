// Package realtime routes item chat over websockets.
//
// Frames are JSON objects {"event": name, "data": payload}. Clients send
// join_room (data: item id, or {"roomId": id}) and send_message
// (data: {"roomId": id, "text": "..."}). The server sends chat_history after
// a successful join and receive_message for each accepted message.
// Unauthorized or malformed requests get no reply at all.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/ghuser/lostfound/pkg/auth"
	"github.com/ghuser/lostfound/pkg/httpx"
	"github.com/ghuser/lostfound/pkg/logger"
	"github.com/ghuser/lostfound/pkg/telemetry"
	"github.com/ghuser/lostfound/services/chat/application/handlers"
	chatsvcs "github.com/ghuser/lostfound/services/chat/application/services"
	itemdomain "github.com/ghuser/lostfound/services/item/domain"
)

// Wire event names.
const (
	EventJoinRoom       = "join_room"
	EventSendMessage    = "send_message"
	EventChatHistory    = "chat_history"
	EventReceiveMessage = "receive_message"
)

const (
	sendBuffer   = 64
	writeTimeout = 5 * time.Second
	readLimit    = 16 << 10
)

// Resolver identifies the caller of a websocket handshake.
type Resolver interface {
	Resolve(r *http.Request, allowQuery bool) (auth.Principal, error)
}

// Frame is an inbound message.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Options configure a Hub. All fields are optional.
type Options struct {
	// OriginPatterns are host patterns allowed in addition to same-origin.
	OriginPatterns []string
	Metrics        *telemetry.Metrics
	Logger         logger.Logger
}

// Hub tracks the open connections of every item room. Each room has a
// mutex held across authorization, persistence and fan-out, so delivery
// order equals acceptance order.
type Hub struct {
	chat    *chatsvcs.ChatService
	auth    Resolver
	origins []string
	metrics *telemetry.Metrics
	log     logger.Logger

	base     context.Context
	shutdown context.CancelFunc

	mu    sync.Mutex
	rooms map[uuid.UUID]*room
}

type room struct {
	id      uuid.UUID
	refs    int // guarded by Hub.mu
	mu      sync.Mutex
	members map[*client]struct{}
}

// NewHub returns a Hub serving chat through svc.
func NewHub(svc *chatsvcs.ChatService, resolver Resolver, opts Options) *Hub {
	h := &Hub{
		chat:    svc,
		auth:    resolver,
		origins: opts.OriginPatterns,
		metrics: opts.Metrics,
		log:     opts.Logger,
		rooms:   make(map[uuid.UUID]*room),
	}
	if h.log == nil {
		h.log = logger.NewNop()
	}
	h.base, h.shutdown = context.WithCancel(context.Background())
	return h
}

// Close disconnects every client. http.Server.Shutdown does not track
// hijacked connections, so call this alongside it.
func (h *Hub) Close() {
	h.shutdown()
}

// ServeHTTP authenticates the handshake, upgrades the connection and serves
// it until either side closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p, err := h.auth.Resolve(r, true)
	if err != nil {
		h.log.WarnContext(r.Context(), "websocket authentication failed", "error", err)
		httpx.JSONError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	// server-wide deadlines would otherwise cut the upgraded connection
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		h.log.WarnContext(r.Context(), "websocket upgrade failed", "user_id", p.UserID, "error", err)
		return
	}
	conn.SetReadLimit(readLimit)

	logCtx := logger.ContextWith(r.Context(), "user_id", p.UserID)
	ctx, cancel := context.WithCancel(logCtx)
	stop := context.AfterFunc(h.base, cancel)
	defer stop()

	c := &client{
		userID: p.UserID,
		conn:   conn,
		send:   make(chan outFrame, sendBuffer),
		cancel: cancel,
		rooms:  make(map[uuid.UUID]struct{}),
	}
	h.log.InfoContext(ctx, "websocket connected")

	written := make(chan struct{})
	go func() {
		defer close(written)
		c.writeLoop(ctx)
	}()

	h.readLoop(ctx, c)
	cancel()
	<-written
	h.leaveAll(c)
	_ = conn.Close(websocket.StatusNormalClosure, "")
	h.log.InfoContext(logCtx, "websocket disconnected")
}

func (h *Hub) readLoop(ctx context.Context, c *client) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			h.log.DebugContext(ctx, "ignoring malformed frame", "error", err)
			continue
		}
		switch f.Event {
		case EventJoinRoom:
			h.join(ctx, c, f.Data)
		case EventSendMessage:
			h.sendMessage(ctx, c, f.Data)
		default:
			h.log.DebugContext(ctx, "ignoring unknown event", "event", f.Event)
		}
	}
}

func (h *Hub) join(ctx context.Context, c *client, data json.RawMessage) {
	itemID, ok := parseJoin(data)
	if !ok {
		h.denied(ctx, EventJoinRoom, uuid.Nil, itemdomain.Validationf("malformed join_room"))
		return
	}

	rm := h.acquire(itemID)
	defer h.release(rm)
	rm.mu.Lock()
	defer rm.mu.Unlock()

	msgs, err := h.chat.History(ctx, c.userID, itemID)
	if err != nil {
		if revokesMembership(err) {
			delete(rm.members, c)
		}
		h.denied(ctx, EventJoinRoom, itemID, err)
		return
	}
	rm.members[c] = struct{}{}
	c.rooms[itemID] = struct{}{}
	h.deliver(ctx, c, outFrame{Event: EventChatHistory, Data: handlers.ToMessageViews(msgs)})
}

func (h *Hub) sendMessage(ctx context.Context, c *client, data json.RawMessage) {
	var in struct {
		RoomID string `json:"roomId"`
		ItemID string `json:"itemId"`
		Text   string `json:"text"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		h.denied(ctx, EventSendMessage, uuid.Nil, itemdomain.Validationf("malformed send_message"))
		return
	}
	raw := in.RoomID
	if raw == "" {
		raw = in.ItemID
	}
	itemID, err := uuid.Parse(raw)
	if err != nil {
		h.denied(ctx, EventSendMessage, uuid.Nil, itemdomain.Validationf("malformed room id"))
		return
	}

	rm := h.acquire(itemID)
	defer h.release(rm)
	rm.mu.Lock()
	defer rm.mu.Unlock()

	msg, item, err := h.chat.Post(ctx, c.userID, itemID, in.Text)
	if err != nil {
		if revokesMembership(err) {
			delete(rm.members, c)
		}
		h.denied(ctx, EventSendMessage, itemID, err)
		return
	}
	h.metrics.ChatMessage(ctx)

	frame := outFrame{Event: EventReceiveMessage, Data: handlers.ToMessageView(msg)}
	for m := range rm.members {
		// membership is re-checked against the state the message was accepted under
		if !item.CanChat(m.userID) {
			delete(rm.members, m)
			continue
		}
		h.deliver(ctx, m, frame)
	}
}

// revokesMembership reports whether err means the caller has lost access to
// the room. Bad input and storage failures leave membership alone.
func revokesMembership(err error) bool {
	return errors.Is(err, itemdomain.ErrForbidden) || errors.Is(err, itemdomain.ErrItemNotFound)
}

// denied records a refused request. Clients are never told.
func (h *Hub) denied(ctx context.Context, event string, itemID uuid.UUID, err error) {
	switch {
	case errors.Is(err, itemdomain.ErrForbidden),
		errors.Is(err, itemdomain.ErrItemNotFound),
		errors.Is(err, itemdomain.ErrValidation):
		h.metrics.ChatDenied(ctx, event)
		h.log.DebugContext(ctx, "chat request denied", "event", event, "item_id", itemID, "error", err)
	default:
		h.log.ErrorContext(ctx, "chat request failed", "event", event, "item_id", itemID, "error", err)
	}
}

func (h *Hub) deliver(ctx context.Context, c *client, f outFrame) {
	if !c.enqueue(f) {
		h.log.WarnContext(ctx, "dropping slow websocket client", "recipient_id", c.userID)
	}
}

func (h *Hub) acquire(id uuid.UUID) *room {
	h.mu.Lock()
	defer h.mu.Unlock()
	rm, ok := h.rooms[id]
	if !ok {
		rm = &room{id: id, members: make(map[*client]struct{})}
		h.rooms[id] = rm
	}
	rm.refs++
	return rm
}

func (h *Hub) release(rm *room) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rm.refs--
	if rm.refs > 0 {
		return
	}
	rm.mu.Lock()
	empty := len(rm.members) == 0
	rm.mu.Unlock()
	if empty {
		delete(h.rooms, rm.id)
	}
}

func (h *Hub) leaveAll(c *client) {
	for id := range c.rooms {
		rm := h.acquire(id)
		rm.mu.Lock()
		delete(rm.members, c)
		rm.mu.Unlock()
		h.release(rm)
	}
}

// roomCount reports the rooms currently tracked.
func (h *Hub) roomCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}

// parseJoin accepts a bare item id string or {"roomId"|"itemId": id}.
func parseJoin(data json.RawMessage) (uuid.UUID, bool) {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		var obj struct {
			RoomID string `json:"roomId"`
			ItemID string `json:"itemId"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return uuid.Nil, false
		}
		raw = obj.RoomID
		if raw == "" {
			raw = obj.ItemID
		}
	}
	id, err := uuid.Parse(raw)
	return id, err == nil
}

type client struct {
	userID uuid.UUID
	conn   *websocket.Conn
	send   chan outFrame
	cancel context.CancelFunc
	rooms  map[uuid.UUID]struct{} // reader goroutine only
}

// enqueue never blocks: a client whose buffer is full is disconnected so
// one slow reader cannot stall its room.
func (c *client) enqueue(f outFrame) bool {
	select {
	case c.send <- f:
		return true
	default:
		c.cancel()
		return false
	}
}

func (c *client) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-c.send:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, c.conn, f)
			cancel()
			if err != nil {
				c.cancel()
				return
			}
		}
	}
}
