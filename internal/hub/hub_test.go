package hub

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"snsu-notification/internal/domain"
	"snsu-notification/internal/dto"
	"snsu-notification/internal/repository/mocks"
	"snsu-notification/internal/service"
)

// fakePresence counts connections per user like the Redis counter does.
type fakePresence struct {
	mu          sync.Mutex
	conns       map[uint]int
	online      map[uint]bool
	disconnects map[uint]int
	stale       []uint
}

func newFakePresence() *fakePresence {
	return &fakePresence{conns: map[uint]int{}, online: map[uint]bool{}, disconnects: map[uint]int{}}
}

func (p *fakePresence) Connected(_ context.Context, userID uint) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conns[userID]++
	if p.conns[userID] == 1 {
		p.online[userID] = true
		return true, nil
	}
	return false, nil
}

func (p *fakePresence) Disconnected(_ context.Context, userID uint) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disconnects[userID]++
	if p.conns[userID] > 0 {
		p.conns[userID]--
	}
	if p.conns[userID] == 0 {
		p.online[userID] = false
		return true, nil
	}
	return false, nil
}

func (p *fakePresence) Reconcile(context.Context) ([]uint, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stale, nil
}

func (p *fakePresence) LoggedOut(_ context.Context, userID uint) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conns[userID] > 0 {
		return false, nil
	}
	changed := p.online[userID]
	p.online[userID] = false
	return changed, nil
}

func (p *fakePresence) disconnectCount(userID uint) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.disconnects[userID]
}

func (p *fakePresence) isOnline(userID uint) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online[userID]
}

type testHub struct {
	*Hub
	presence *fakePresence
	msgs     *mocks.MessageRepository
	users    *mocks.UserRepository
}

func newTestHub(t *testing.T, adminsObserve bool) *testHub {
	t.Helper()
	router := NewRouter(adminsObserve)
	msgs := new(mocks.MessageRepository)
	users := new(mocks.UserRepository)
	presence := newFakePresence()
	h := NewHub(router, presence, service.NewChatService(msgs, users, router))
	go h.Run()
	t.Cleanup(h.Shutdown)
	return &testHub{Hub: h, presence: presence, msgs: msgs, users: users}
}

// expectPersist makes the message repository store and hydrate one message.
func (th *testHub) expectPersist(id uint) {
	var stored *domain.Message
	th.msgs.On("Create", mock.Anything, mock.AnythingOfType("*domain.Message")).Run(func(args mock.Arguments) {
		stored = args.Get(1).(*domain.Message)
		stored.ID = id
	}).Return(nil).Once()
	th.msgs.On("FindByIDWithParticipants", mock.Anything, id).Return(func(context.Context, uint) *domain.Message {
		return stored
	}, nil).Once()
}

func connect(t *testing.T, h *Hub, id uint, role domain.Role) *Client {
	t.Helper()
	c := NewClient(h, nil, &domain.User{ID: id, Username: string(role) + "-user", Role: role})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, h.Register(ctx, c))
	return c
}

func disconnect(t *testing.T, h *Hub, c *Client) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, h.Unregister(ctx, c))
}

// frames empties c's queue. Every frame is queued before the hub call that
// produced it returns.
func frames(t *testing.T, c *Client) []dto.Envelope {
	t.Helper()
	var out []dto.Envelope
	for {
		select {
		case raw, ok := <-c.send:
			if !ok {
				return out
			}
			var env dto.Envelope
			require.NoError(t, json.Unmarshal(raw, &env))
			out = append(out, env)
		default:
			return out
		}
	}
}

func drain(t *testing.T, clients ...*Client) {
	for _, c := range clients {
		frames(t, c)
	}
}

func only(t *testing.T, c *Client, event string) dto.Envelope {
	t.Helper()
	got := frames(t, c)
	require.Len(t, got, 1, "user %d", c.UserID())
	assert.Equal(t, event, got[0].Event)
	return got[0]
}

func send(h *Hub, c *Client, event string, data interface{}) {
	frame, _ := dto.NewEnvelope(event, data)
	h.handleEvent(c, frame)
}

func TestRegister_JoinsIdentityAndRoleRooms(t *testing.T) {
	h := newTestHub(t, true)
	c := connect(t, h.Hub, 5, domain.RoleStudent)

	assert.Equal(t, []domain.Room{"user_5", "role_student"}, c.Rooms())
	h.roomsMu.RLock()
	defer h.roomsMu.RUnlock()
	assert.Len(t, h.rooms, 2)
	assert.True(t, h.rooms["user_5"][c])
	assert.True(t, h.rooms["role_student"][c])
}

func TestRegister_PersistsOnlineBeforeAnnouncing(t *testing.T) {
	h := newTestHub(t, true)
	observer := connect(t, h.Hub, 1, domain.RoleAdmin)
	drain(t, observer)

	connect(t, h.Hub, 2, domain.RoleStudent)

	env := only(t, observer, dto.EventUserStatusChange)
	var sc dto.StatusChange
	require.NoError(t, json.Unmarshal(env.Data, &sc))
	assert.Equal(t, dto.StatusChange{UserID: 2, Status: dto.StatusOnline}, sc)
	assert.True(t, h.presence.isOnline(2))
}

func TestUnregister_OfflineOnceAndIdempotent(t *testing.T) {
	h := newTestHub(t, true)
	observer := connect(t, h.Hub, 1, domain.RoleAdmin)
	c := connect(t, h.Hub, 2, domain.RoleStudent)
	drain(t, observer, c)

	disconnect(t, h.Hub, c)
	disconnect(t, h.Hub, c)

	env := only(t, observer, dto.EventUserStatusChange)
	var sc dto.StatusChange
	require.NoError(t, json.Unmarshal(env.Data, &sc))
	assert.Equal(t, dto.StatusOffline, sc.Status)
	assert.False(t, h.presence.isOnline(2))
	assert.Equal(t, 1, h.presence.disconnects[2])
	assert.Equal(t, 1, h.ClientCount())

	// The send channel is closed exactly once.
	_, ok := <-c.send
	assert.False(t, ok)
}

func TestUnregister_SecondSocketKeepsUserOnline(t *testing.T) {
	h := newTestHub(t, true)
	observer := connect(t, h.Hub, 1, domain.RoleAdmin)
	first := connect(t, h.Hub, 2, domain.RoleTeacher)
	second := connect(t, h.Hub, 2, domain.RoleTeacher)
	drain(t, observer, first, second)

	disconnect(t, h.Hub, first)

	assert.Empty(t, frames(t, observer))
	assert.True(t, h.presence.isOnline(2))
}

func TestSendMessage_AdminBroadcastReachesEveryone(t *testing.T) {
	h := newTestHub(t, true)
	admin := connect(t, h.Hub, 1, domain.RoleAdmin)
	teacher := connect(t, h.Hub, 2, domain.RoleTeacher)
	studentA := connect(t, h.Hub, 3, domain.RoleStudent)
	studentB := connect(t, h.Hub, 4, domain.RoleStudent)
	all := []*Client{admin, teacher, studentA, studentB}
	drain(t, all...)
	h.expectPersist(10)

	send(h.Hub, admin, dto.EventSendMessage, service.SendInput{Content: "Exam moved", IsBroadcast: true})

	for _, c := range all {
		env := only(t, c, dto.EventNewMessage)
		var msg domain.Message
		require.NoError(t, json.Unmarshal(env.Data, &msg))
		assert.Equal(t, uint(10), msg.ID)
		assert.Equal(t, "Exam moved", msg.Content)
		assert.True(t, msg.IsBroadcast)
		assert.Nil(t, msg.RecipientID)
	}
	h.msgs.AssertExpectations(t)
}

func TestSendMessage_TeacherBroadcastReachesAllRoleRooms(t *testing.T) {
	h := newTestHub(t, true)
	admin := connect(t, h.Hub, 1, domain.RoleAdmin)
	teacher := connect(t, h.Hub, 2, domain.RoleTeacher)
	student := connect(t, h.Hub, 3, domain.RoleStudent)
	drain(t, admin, teacher, student)
	h.expectPersist(11)

	send(h.Hub, teacher, dto.EventSendMessage, service.SendInput{Content: "Quiz tomorrow", IsBroadcast: true})

	only(t, admin, dto.EventNewMessage)
	only(t, teacher, dto.EventNewMessage)
	only(t, student, dto.EventNewMessage)
}

func TestSendMessage_StudentBroadcastRejected(t *testing.T) {
	h := newTestHub(t, true)
	admin := connect(t, h.Hub, 1, domain.RoleAdmin)
	student := connect(t, h.Hub, 3, domain.RoleStudent)
	drain(t, admin, student)

	send(h.Hub, student, dto.EventSendMessage, service.SendInput{Content: "hi all", IsBroadcast: true})

	env := only(t, student, dto.EventError)
	var p dto.ErrorPayload
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, service.ErrBroadcastNotAllowed.Error(), p.Message)
	assert.Empty(t, frames(t, admin))
	h.msgs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSendMessage_EmptyContentNotPersisted(t *testing.T) {
	h := newTestHub(t, true)
	student := connect(t, h.Hub, 3, domain.RoleStudent)
	drain(t, student)

	send(h.Hub, student, dto.EventSendMessage, service.SendInput{Content: "   ", RecipientID: uintPtr(7)})

	env := only(t, student, dto.EventError)
	var p dto.ErrorPayload
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, service.ErrEmptyContent.Error(), p.Message)
	h.msgs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSendMessage_DirectMessageFanOut(t *testing.T) {
	h := newTestHub(t, true)
	admin := connect(t, h.Hub, 1, domain.RoleAdmin)
	teacher := connect(t, h.Hub, 2, domain.RoleTeacher)
	sender := connect(t, h.Hub, 3, domain.RoleStudent)
	senderOtherTab := connect(t, h.Hub, 3, domain.RoleStudent)
	bystander := connect(t, h.Hub, 4, domain.RoleStudent)
	recipient := connect(t, h.Hub, 7, domain.RoleStudent)
	drain(t, admin, teacher, sender, senderOtherTab, bystander, recipient)
	h.users.On("FindByID", mock.Anything, uint(7)).Return(&domain.User{ID: 7, Role: domain.RoleStudent}, nil)
	h.expectPersist(12)

	send(h.Hub, sender, dto.EventSendMessage, service.SendInput{Content: "hello", RecipientID: uintPtr(7)})

	env := only(t, recipient, dto.EventNewMessage)
	var msg domain.Message
	require.NoError(t, json.Unmarshal(env.Data, &msg))
	require.NotNil(t, msg.RecipientID)
	assert.Equal(t, uint(7), *msg.RecipientID)
	assert.Equal(t, uint(3), msg.SenderID)

	only(t, sender, dto.EventNewMessage)
	only(t, admin, dto.EventNewMessage)
	assert.Empty(t, frames(t, senderOtherTab))
	assert.Empty(t, frames(t, teacher))
	assert.Empty(t, frames(t, bystander))
}

func TestSendMessage_DirectMessageWithoutAdminObservation(t *testing.T) {
	h := newTestHub(t, false)
	admin := connect(t, h.Hub, 1, domain.RoleAdmin)
	sender := connect(t, h.Hub, 3, domain.RoleStudent)
	recipient := connect(t, h.Hub, 7, domain.RoleStudent)
	drain(t, admin, sender, recipient)
	h.users.On("FindByID", mock.Anything, uint(7)).Return(&domain.User{ID: 7}, nil)
	h.expectPersist(13)

	send(h.Hub, sender, dto.EventSendMessage, service.SendInput{Content: "psst", RecipientID: uintPtr(7)})

	only(t, sender, dto.EventNewMessage)
	only(t, recipient, dto.EventNewMessage)
	assert.Empty(t, frames(t, admin))
}

func TestSendMessage_AdminRecipientReceivesOnce(t *testing.T) {
	h := newTestHub(t, true)
	admin := connect(t, h.Hub, 1, domain.RoleAdmin)
	student := connect(t, h.Hub, 3, domain.RoleStudent)
	drain(t, admin, student)
	h.users.On("FindByID", mock.Anything, uint(1)).Return(&domain.User{ID: 1, Role: domain.RoleAdmin}, nil)
	h.expectPersist(14)

	send(h.Hub, student, dto.EventSendMessage, service.SendInput{Content: "help", RecipientID: uintPtr(1)})

	only(t, admin, dto.EventNewMessage)
	only(t, student, dto.EventNewMessage)
}

func TestDeliverMessage_FromRESTReachesSenderRoom(t *testing.T) {
	h := newTestHub(t, false)
	sender := connect(t, h.Hub, 3, domain.RoleStudent)
	recipient := connect(t, h.Hub, 7, domain.RoleStudent)
	drain(t, sender, recipient)

	h.DeliverMessage(nil, domain.RoleStudent, &domain.Message{ID: 20, SenderID: 3, RecipientID: uintPtr(7), Content: "via rest"})

	only(t, sender, dto.EventNewMessage)
	only(t, recipient, dto.EventNewMessage)
}

func TestDeliverDeletion(t *testing.T) {
	h := newTestHub(t, true)
	admin := connect(t, h.Hub, 1, domain.RoleAdmin)
	sender := connect(t, h.Hub, 3, domain.RoleStudent)
	recipient := connect(t, h.Hub, 7, domain.RoleStudent)
	bystander := connect(t, h.Hub, 4, domain.RoleStudent)
	drain(t, admin, sender, recipient, bystander)

	h.DeliverDeletion(&domain.Message{ID: 30, SenderID: 3, RecipientID: uintPtr(7)})

	for _, c := range []*Client{admin, sender, recipient} {
		env := only(t, c, dto.EventMessageDeleted)
		var p dto.MessageDeleted
		require.NoError(t, json.Unmarshal(env.Data, &p))
		assert.Equal(t, uint(30), p.MessageID)
	}
	assert.Empty(t, frames(t, bystander))
}

func TestTyping_RelayedToRecipientOnly(t *testing.T) {
	h := newTestHub(t, true)
	admin := connect(t, h.Hub, 1, domain.RoleAdmin)
	typist := connect(t, h.Hub, 3, domain.RoleStudent)
	recipient := connect(t, h.Hub, 7, domain.RoleStudent)
	drain(t, admin, typist, recipient)

	send(h.Hub, typist, dto.EventTyping, dto.TypingPayload{RecipientID: uintPtr(7)})
	env := only(t, recipient, dto.EventUserTyping)
	var ut dto.UserTyping
	require.NoError(t, json.Unmarshal(env.Data, &ut))
	assert.Equal(t, dto.UserTyping{UserID: 3, Username: "student-user", Typing: true}, ut)

	send(h.Hub, typist, dto.EventStopTyping, dto.TypingPayload{RecipientID: uintPtr(7)})
	env = only(t, recipient, dto.EventUserTyping)
	require.NoError(t, json.Unmarshal(env.Data, &ut))
	assert.False(t, ut.Typing)

	send(h.Hub, typist, dto.EventTyping, dto.TypingPayload{})
	assert.Empty(t, frames(t, recipient))
	assert.Empty(t, frames(t, admin))
	assert.Empty(t, frames(t, typist))
}

func TestHandleEvent_MalformedFrame(t *testing.T) {
	h := newTestHub(t, true)
	c := connect(t, h.Hub, 3, domain.RoleStudent)
	drain(t, c)

	h.handleEvent(c, []byte("not json"))

	only(t, c, dto.EventError)
}

func TestReconcile_AnnouncesOfflineUsers(t *testing.T) {
	h := newTestHub(t, true)
	observer := connect(t, h.Hub, 1, domain.RoleAdmin)
	drain(t, observer)
	h.presence.stale = []uint{8, 9}

	ids, err := h.Reconcile(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []uint{8, 9}, ids)
	got := frames(t, observer)
	require.Len(t, got, 2)
	for _, env := range got {
		assert.Equal(t, dto.EventUserStatusChange, env.Event)
	}
}

func TestShutdown_RejectsRequests(t *testing.T) {
	h := newTestHub(t, true)
	c := connect(t, h.Hub, 3, domain.RoleStudent)
	h.Shutdown()

	assert.Zero(t, h.ClientCount())
	assert.False(t, h.presence.isOnline(3))
	assert.ErrorIs(t, h.Register(context.Background(), c), ErrHubClosed)
}

func TestShutdown_WaitsForDisconnects(t *testing.T) {
	h := newTestHub(t, true)
	connect(t, h.Hub, 3, domain.RoleStudent)
	connect(t, h.Hub, 3, domain.RoleStudent)
	connect(t, h.Hub, 4, domain.RoleTeacher)

	h.Shutdown()

	assert.Equal(t, 2, h.presence.disconnectCount(3))
	assert.Equal(t, 1, h.presence.disconnectCount(4))
	assert.False(t, h.presence.isOnline(3))
	assert.False(t, h.presence.isOnline(4))
}

func TestLogout_WithoutSocketAnnouncesOffline(t *testing.T) {
	h := newTestHub(t, true)
	observer := connect(t, h.Hub, 1, domain.RoleAdmin)
	drain(t, observer)
	h.presence.mu.Lock()
	h.presence.online[5] = true // logged in over REST, no socket
	h.presence.mu.Unlock()

	require.NoError(t, h.Logout(context.Background(), 5))

	env := only(t, observer, dto.EventUserStatusChange)
	var sc dto.StatusChange
	require.NoError(t, json.Unmarshal(env.Data, &sc))
	assert.Equal(t, dto.StatusChange{UserID: 5, Status: dto.StatusOffline}, sc)
	assert.False(t, h.presence.isOnline(5))
}

func TestLogout_WithLiveSocketLeavesPresence(t *testing.T) {
	h := newTestHub(t, true)
	observer := connect(t, h.Hub, 1, domain.RoleAdmin)
	user := connect(t, h.Hub, 5, domain.RoleStudent)
	drain(t, observer, user)

	require.NoError(t, h.Logout(context.Background(), 5))

	assert.Empty(t, frames(t, observer))
	assert.True(t, h.presence.isOnline(5))

	disconnect(t, h.Hub, user)
	only(t, observer, dto.EventUserStatusChange)
	assert.False(t, h.presence.isOnline(5))
}

func uintPtr(v uint) *uint { return &v }
