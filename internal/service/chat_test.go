package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"snsu-notification/internal/domain"
	"snsu-notification/internal/repository"
	"snsu-notification/internal/repository/mocks"
	"snsu-notification/internal/service"
)

type rolePolicy map[domain.Role]bool

func (p rolePolicy) CanBroadcast(role domain.Role) bool { return p[role] }

var defaultPolicy = rolePolicy{domain.RoleAdmin: true, domain.RoleTeacher: true}

func newChat() (*service.ChatService, *mocks.MessageRepository, *mocks.UserRepository) {
	msgs := new(mocks.MessageRepository)
	users := new(mocks.UserRepository)
	return service.NewChatService(msgs, users, defaultPolicy), msgs, users
}

func uintPtr(v uint) *uint { return &v }

func TestChatService_Send_EmptyContent(t *testing.T) {
	chat, msgs, _ := newChat()
	sender := &domain.User{ID: 1, Role: domain.RoleAdmin}

	for _, content := range []string{"", "   ", "\n\t"} {
		_, err := chat.Send(context.Background(), sender, service.SendInput{Content: content, IsBroadcast: true})
		assert.ErrorIs(t, err, service.ErrEmptyContent)
	}
	msgs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestChatService_Send_StudentBroadcastRejected(t *testing.T) {
	chat, msgs, _ := newChat()
	sender := &domain.User{ID: 4, Role: domain.RoleStudent}

	_, err := chat.Send(context.Background(), sender, service.SendInput{Content: "hello all", IsBroadcast: true})

	assert.ErrorIs(t, err, service.ErrBroadcastNotAllowed)
	assert.ErrorIs(t, err, service.ErrInvalidInput)
	msgs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestChatService_Send_BroadcastDropsRecipient(t *testing.T) {
	chat, msgs, _ := newChat()
	ctx := context.Background()
	sender := &domain.User{ID: 1, Username: "admin", Role: domain.RoleAdmin}

	msgs.On("Create", ctx, mock.MatchedBy(func(m *domain.Message) bool {
		return m.IsBroadcast && m.RecipientID == nil && m.SenderID == 1 && m.Content == "Exam moved"
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.Message).ID = 42
	}).Return(nil).Once()
	hydrated := &domain.Message{ID: 42, Content: "Exam moved", SenderID: 1, IsBroadcast: true,
		Sender: &domain.Participant{ID: 1, Username: "admin", Role: domain.RoleAdmin}}
	msgs.On("FindByIDWithParticipants", ctx, uint(42)).Return(hydrated, nil).Once()

	got, err := chat.Send(ctx, sender, service.SendInput{Content: "Exam moved", RecipientID: uintPtr(7), IsBroadcast: true})

	require.NoError(t, err)
	assert.Equal(t, hydrated, got)
	msgs.AssertExpectations(t)
}

func TestChatService_Send_DirectMessage(t *testing.T) {
	chat, msgs, users := newChat()
	ctx := context.Background()
	sender := &domain.User{ID: 3, Role: domain.RoleStudent}

	users.On("FindByID", ctx, uint(7)).Return(&domain.User{ID: 7}, nil).Once()
	msgs.On("Create", ctx, mock.MatchedBy(func(m *domain.Message) bool {
		return !m.IsBroadcast && m.RecipientID != nil && *m.RecipientID == 7
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.Message).ID = 10
	}).Return(nil).Once()
	msgs.On("FindByIDWithParticipants", ctx, uint(10)).
		Return(&domain.Message{ID: 10, SenderID: 3, RecipientID: uintPtr(7)}, nil).Once()

	got, err := chat.Send(ctx, sender, service.SendInput{Content: "hi", RecipientID: uintPtr(7)})

	require.NoError(t, err)
	assert.Equal(t, uint(10), got.ID)
	msgs.AssertExpectations(t)
	users.AssertExpectations(t)
}

func TestChatService_Send_UnknownRecipient(t *testing.T) {
	chat, msgs, users := newChat()
	ctx := context.Background()

	users.On("FindByID", ctx, uint(99)).Return(nil, repository.ErrUserNotFound).Once()

	_, err := chat.Send(ctx, &domain.User{ID: 3, Role: domain.RoleStudent}, service.SendInput{Content: "hi", RecipientID: uintPtr(99)})

	assert.ErrorIs(t, err, service.ErrRecipientNotFound)
	msgs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestChatService_Send_HydrateMiss(t *testing.T) {
	chat, msgs, _ := newChat()
	ctx := context.Background()

	msgs.On("Create", ctx, mock.AnythingOfType("*domain.Message")).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.Message).ID = 11
	}).Return(nil).Once()
	msgs.On("FindByIDWithParticipants", ctx, uint(11)).Return(nil, repository.ErrMessageNotFound).Once()

	_, err := chat.Send(ctx, &domain.User{ID: 1, Role: domain.RoleAdmin}, service.SendInput{Content: "x", IsBroadcast: true})

	assert.ErrorIs(t, err, service.ErrMessageNotFound)
}

func TestChatService_Conversations(t *testing.T) {
	chat, msgs, _ := newChat()
	ctx := context.Background()
	me := uint(1)
	alice := &domain.Participant{ID: 2, Username: "alice"}
	bob := &domain.Participant{ID: 3, Username: "bob"}
	self := &domain.Participant{ID: me, Username: "me"}

	// newest first
	msgs.On("ListDirectFor", ctx, me).Return([]domain.Message{
		{ID: 5, SenderID: 2, RecipientID: uintPtr(me), Sender: alice, Recipient: self},
		{ID: 4, SenderID: me, RecipientID: uintPtr(3), Sender: self, Recipient: bob},
		{ID: 3, SenderID: 2, RecipientID: uintPtr(me), Sender: alice, Recipient: self},
		{ID: 2, SenderID: 2, RecipientID: uintPtr(me), Sender: alice, Recipient: self, IsRead: true},
		{ID: 1, SenderID: 3, RecipientID: uintPtr(me), Sender: bob, Recipient: self, DeletedFor: []uint{me}},
	}, nil).Once()

	convs, err := chat.Conversations(ctx, me)

	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, "alice", convs[0].Peer.Username)
	assert.Equal(t, uint(5), convs[0].LastMessage.ID)
	assert.EqualValues(t, 2, convs[0].UnreadCount)
	assert.Equal(t, "bob", convs[1].Peer.Username)
	assert.EqualValues(t, 0, convs[1].UnreadCount, "own and soft-deleted messages are not unread")
}

func TestChatService_DeleteForMe(t *testing.T) {
	chat, msgs, _ := newChat()
	ctx := context.Background()

	msgs.On("FindByIDWithParticipants", ctx, uint(8)).
		Return(&domain.Message{ID: 8, SenderID: 2, RecipientID: uintPtr(3), DeletedFor: []uint{2}}, nil)
	msgs.On("UpdateDeletedFor", ctx, uint(8), []uint{2, 3}).Return(nil).Once()

	require.NoError(t, chat.DeleteForMe(ctx, 3, 8))
	assert.NoError(t, chat.DeleteForMe(ctx, 2, 8), "already hidden is a no-op")
	assert.ErrorIs(t, chat.DeleteForMe(ctx, 9, 8), service.ErrForbidden)
	msgs.AssertNumberOfCalls(t, "UpdateDeletedFor", 1)
}

func TestChatService_DeleteForEveryone(t *testing.T) {
	ctx := context.Background()
	msg := &domain.Message{ID: 8, SenderID: 2, RecipientID: uintPtr(3)}

	t.Run("sender", func(t *testing.T) {
		chat, msgs, _ := newChat()
		msgs.On("FindByIDWithParticipants", ctx, uint(8)).Return(msg, nil).Once()
		msgs.On("Delete", ctx, uint(8)).Return(nil).Once()

		got, err := chat.DeleteForEveryone(ctx, &domain.User{ID: 2, Role: domain.RoleStudent}, 8)
		require.NoError(t, err)
		assert.Equal(t, msg, got)
	})

	t.Run("admin", func(t *testing.T) {
		chat, msgs, _ := newChat()
		msgs.On("FindByIDWithParticipants", ctx, uint(8)).Return(msg, nil).Once()
		msgs.On("Delete", ctx, uint(8)).Return(nil).Once()

		_, err := chat.DeleteForEveryone(ctx, &domain.User{ID: 1, Role: domain.RoleAdmin}, 8)
		assert.NoError(t, err)
	})

	t.Run("recipient is forbidden", func(t *testing.T) {
		chat, msgs, _ := newChat()
		msgs.On("FindByIDWithParticipants", ctx, uint(8)).Return(msg, nil).Once()

		_, err := chat.DeleteForEveryone(ctx, &domain.User{ID: 3, Role: domain.RoleTeacher}, 8)
		assert.ErrorIs(t, err, service.ErrForbidden)
		msgs.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}

func TestChatService_MarkRead(t *testing.T) {
	chat, msgs, _ := newChat()
	ctx := context.Background()

	msgs.On("FindByIDWithParticipants", ctx, uint(8)).
		Return(&domain.Message{ID: 8, SenderID: 2, RecipientID: uintPtr(3)}, nil).Once()
	msgs.On("MarkRead", ctx, uint(8)).Return(nil).Once()

	got, err := chat.MarkRead(ctx, 3, 8)
	require.NoError(t, err)
	assert.True(t, got.IsRead)
	msgs.AssertExpectations(t)
}

func TestChatService_MarkRead_OnlyRecipient(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name   string
		caller uint
		msg    domain.Message
		ok     bool
	}{
		{"recipient", 3, domain.Message{ID: 8, SenderID: 2, RecipientID: uintPtr(3)}, true},
		{"sender of direct message", 2, domain.Message{ID: 8, SenderID: 2, RecipientID: uintPtr(3)}, false},
		{"outsider", 5, domain.Message{ID: 8, SenderID: 2, RecipientID: uintPtr(3)}, false},
		{"broadcast reader", 5, domain.Message{ID: 8, SenderID: 1, IsBroadcast: true}, true},
		{"broadcast sender", 1, domain.Message{ID: 8, SenderID: 1, IsBroadcast: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chat, msgs, _ := newChat()
			msg := tt.msg
			msgs.On("FindByIDWithParticipants", ctx, uint(8)).Return(&msg, nil).Once()
			if tt.ok {
				msgs.On("MarkRead", ctx, uint(8)).Return(nil).Once()
			}

			got, err := chat.MarkRead(ctx, tt.caller, 8)

			if tt.ok {
				require.NoError(t, err)
				assert.True(t, got.IsRead)
			} else {
				assert.ErrorIs(t, err, service.ErrForbidden)
				msgs.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything)
			}
		})
	}
}
