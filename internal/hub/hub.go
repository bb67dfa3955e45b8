package hub

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"snsu-notification/internal/domain"
	"snsu-notification/internal/dto"
	"snsu-notification/internal/metrics"
	"snsu-notification/internal/service"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 << 10

	// Upper bound for every persistence call made by the hub.
	storeTimeout = 5 * time.Second
)

// Hub message types handled by the event loop.
const (
	msgRegister   = "register"
	msgUnregister = "unregister"
	msgReconcile  = "reconcile"
	msgLogout     = "logout"
)

// ErrHubClosed is returned once Shutdown has been called.
var ErrHubClosed = errors.New("hub is shut down")

// PresenceTracker translates connection churn into persisted presence.
type PresenceTracker interface {
	Connected(ctx context.Context, userID uint) (bool, error)
	Disconnected(ctx context.Context, userID uint) (bool, error)
	Reconcile(ctx context.Context) ([]uint, error)
	LoggedOut(ctx context.Context, userID uint) (bool, error)
}

// MessageSender validates and persists chat messages.
type MessageSender interface {
	Send(ctx context.Context, sender *domain.User, in service.SendInput) (*domain.Message, error)
}

// HubMessage is a lifecycle request processed by the event loop.
type HubMessage struct {
	Type   string
	Client *Client
	// UserID is the subject of a logout request.
	UserID uint
	// Err receives the result of a logout request.
	Err chan error
	// Done is closed once the request has been handled.
	Done chan struct{}
	// Offlined receives the ids marked offline by a reconcile run.
	Offlined chan []uint
}

// Hub tracks live connections and their rooms. Register, unregister and
// reconcile are serialised through messageChan so presence writes for a
// user never reorder; event delivery reads the room maps directly.
type Hub struct {
	messageChan chan HubMessage
	done        chan struct{}
	stopped     chan struct{}
	stopOnce    sync.Once
	running     atomic.Bool

	clients map[*Client]bool
	rooms   map[domain.Room]map[*Client]bool
	roomsMu sync.RWMutex

	router   *Router
	presence PresenceTracker
	sender   MessageSender
}

func NewHub(router *Router, presence PresenceTracker, sender MessageSender) *Hub {
	if router == nil {
		panic("Router cannot be nil for Hub")
	}
	if presence == nil {
		panic("PresenceTracker cannot be nil for Hub")
	}
	if sender == nil {
		panic("MessageSender cannot be nil for Hub")
	}
	return &Hub{
		messageChan: make(chan HubMessage, 512),
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
		clients:     make(map[*Client]bool),
		rooms:       make(map[domain.Room]map[*Client]bool),
		router:      router,
		presence:    presence,
		sender:      sender,
	}
}

// Run processes lifecycle requests until Shutdown. It should run in its
// own goroutine.
func (h *Hub) Run() {
	if !h.running.CompareAndSwap(false, true) {
		return
	}
	defer close(h.stopped)
	log := logrus.WithField("component", "hub")
	log.Info("Hub is running...")

	for {
		select {
		case msg := <-h.messageChan:
			h.handle(msg)
		case <-h.done:
			h.drain()
			log.Info("Hub is shutting down...")
			return
		}
	}
}

func (h *Hub) handle(msg HubMessage) {
	switch msg.Type {
	case msgRegister:
		h.registerClient(msg.Client)
	case msgUnregister:
		h.unregisterClient(msg.Client)
	case msgReconcile:
		ids := h.reconcile()
		if msg.Offlined != nil {
			msg.Offlined <- ids
		}
	case msgLogout:
		err := h.logout(msg.UserID)
		if msg.Err != nil {
			msg.Err <- err
		}
	default:
		logrus.WithField("message_type", msg.Type).Warn("Hub: Received unknown message type")
	}
	if msg.Done != nil {
		close(msg.Done)
	}
}

// drain disconnects every remaining client so their presence is released.
func (h *Hub) drain() {
	h.roomsMu.RLock()
	remaining := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		remaining = append(remaining, c)
	}
	h.roomsMu.RUnlock()
	for _, c := range remaining {
		h.unregisterClient(c)
	}
}

// Register joins client to its rooms and records the connection. It
// returns once the client is Joined, so callers may start the pumps.
func (h *Hub) Register(ctx context.Context, client *Client) error {
	return h.request(ctx, HubMessage{Type: msgRegister, Client: client})
}

// Unregister removes client. Unknown or already removed clients are ignored.
func (h *Hub) Unregister(ctx context.Context, client *Client) error {
	return h.request(ctx, HubMessage{Type: msgUnregister, Client: client})
}

// Reconcile clears stale online flags and announces the users it marked
// offline.
func (h *Hub) Reconcile(ctx context.Context) ([]uint, error) {
	out := make(chan []uint, 1)
	if err := h.request(ctx, HubMessage{Type: msgReconcile, Offlined: out}); err != nil {
		return nil, err
	}
	return <-out, nil
}

// Logout ends a REST session. When no socket holds the user's presence the
// user is marked offline and the change is announced.
func (h *Hub) Logout(ctx context.Context, userID uint) error {
	out := make(chan error, 1)
	if err := h.request(ctx, HubMessage{Type: msgLogout, UserID: userID, Err: out}); err != nil {
		return err
	}
	return <-out
}

func (h *Hub) request(ctx context.Context, msg HubMessage) error {
	msg.Done = make(chan struct{})
	select {
	case h.messageChan <- msg:
	case <-h.done:
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-msg.Done:
		return nil
	case <-h.done:
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops the event loop and, when Run is active, returns only after
// every remaining client has been disconnected.
func (h *Hub) Shutdown() {
	h.stopOnce.Do(func() { close(h.done) })
	if h.running.Load() {
		<-h.stopped
	}
}

func (h *Hub) registerClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: Attempted to register a nil client")
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{
		"user_id": client.UserID(),
		"conn_id": client.ID(),
		"action":  "registerClient",
	})

	h.roomsMu.Lock()
	h.clients[client] = true
	for _, room := range client.rooms {
		if _, ok := h.rooms[room]; !ok {
			h.rooms[room] = make(map[*Client]bool)
		}
		h.rooms[room][client] = true
	}
	h.roomsMu.Unlock()
	metrics.ConnectedClients.Inc()
	logCtx.WithField("rooms", client.rooms).Info("Client registered to Hub")

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	changed, err := h.presence.Connected(ctx, client.UserID())
	if err != nil {
		logCtx.WithError(err).Error("Failed to record connection")
		return
	}
	if changed {
		h.announceStatus(client.UserID(), dto.StatusOnline)
	}
}

func (h *Hub) unregisterClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: Attempted to unregister a nil client")
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{
		"user_id": client.UserID(),
		"conn_id": client.ID(),
		"action":  "unregisterClient",
	})

	h.roomsMu.Lock()
	if !h.clients[client] {
		h.roomsMu.Unlock()
		logCtx.Debug("Client already unregistered")
		return
	}
	delete(h.clients, client)
	for _, room := range client.rooms {
		if members, ok := h.rooms[room]; ok {
			delete(members, client)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	h.roomsMu.Unlock()
	client.close()
	metrics.ConnectedClients.Dec()
	logCtx.Info("Client unregistered from Hub")

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	changed, err := h.presence.Disconnected(ctx, client.UserID())
	if err != nil {
		logCtx.WithError(err).Error("Failed to record disconnection")
		return
	}
	if changed {
		h.announceStatus(client.UserID(), dto.StatusOffline)
	}
}

func (h *Hub) reconcile() []uint {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	ids, err := h.presence.Reconcile(ctx)
	if err != nil {
		logrus.WithError(err).Error("Presence reconcile failed")
		return nil
	}
	for _, id := range ids {
		h.announceStatus(id, dto.StatusOffline)
	}
	return ids
}

func (h *Hub) logout(userID uint) error {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	changed, err := h.presence.LoggedOut(ctx, userID)
	if err != nil {
		return err
	}
	if changed {
		h.announceStatus(userID, dto.StatusOffline)
	}
	return nil
}

func (h *Hub) announceStatus(userID uint, status string) {
	metrics.PresenceTransitions.WithLabelValues(status).Inc()
	frame, err := dto.NewEnvelope(dto.EventUserStatusChange, dto.StatusChange{UserID: userID, Status: status})
	if err != nil {
		logrus.WithError(err).Error("Failed to marshal status change")
		return
	}
	h.emit(Target{All: true}, nil, frame)
}

// DeliverMessage fans out a persisted message as new_message. origin is the
// connection it was sent from, nil for REST.
func (h *Hub) DeliverMessage(origin *Client, senderRole domain.Role, msg *domain.Message) {
	if msg == nil {
		return
	}
	target, ok := h.router.MessageTargets(senderRole, msg)
	if !ok {
		logrus.WithFields(logrus.Fields{"message_id": msg.ID, "role": senderRole}).Warn("No broadcast route for role, message not delivered")
		return
	}
	frame, err := dto.NewEnvelope(dto.EventNewMessage, msg)
	if err != nil {
		logrus.WithError(err).Error("Failed to marshal message")
		return
	}
	kind := "direct"
	if msg.IsBroadcast {
		kind = "broadcast"
	}
	metrics.MessagesDelivered.WithLabelValues(kind).Inc()
	h.emit(target, origin, frame)
}

// DeliverDeletion tells the message's audience it was deleted for everyone.
func (h *Hub) DeliverDeletion(msg *domain.Message) {
	if msg == nil {
		return
	}
	frame, err := dto.NewEnvelope(dto.EventMessageDeleted, dto.MessageDeleted{MessageID: msg.ID})
	if err != nil {
		logrus.WithError(err).Error("Failed to marshal deletion")
		return
	}
	h.emit(h.router.DeletionTargets(msg), nil, frame)
}

// emit sends frame once to every connection reached by target.
func (h *Hub) emit(target Target, origin *Client, frame []byte) int {
	h.roomsMu.RLock()
	recipients := make(map[*Client]struct{})
	if target.All {
		for c := range h.clients {
			recipients[c] = struct{}{}
		}
	}
	for _, room := range target.Rooms {
		for c := range h.rooms[room] {
			recipients[c] = struct{}{}
		}
	}
	if target.Origin {
		if origin != nil {
			if h.clients[origin] {
				recipients[origin] = struct{}{}
			}
		} else if target.OriginRoom != "" {
			for c := range h.rooms[target.OriginRoom] {
				recipients[c] = struct{}{}
			}
		}
	}
	h.roomsMu.RUnlock()

	sent := 0
	for c := range recipients {
		if c.trySend(frame) {
			sent++
		}
	}
	logrus.WithFields(logrus.Fields{
		"message_size":    len(frame),
		"recipient_count": len(recipients),
	}).Debug("Emitted frame")
	return sent
}

// ClientCount returns the number of registered connections.
func (h *Hub) ClientCount() int {
	h.roomsMu.RLock()
	defer h.roomsMu.RUnlock()
	return len(h.clients)
}

// PublishMessage delivers a message that did not come from a live
// connection.
func (h *Hub) PublishMessage(senderRole domain.Role, msg *domain.Message) {
	h.DeliverMessage(nil, senderRole, msg)
}
