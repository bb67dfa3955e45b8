package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"snsu-notification/internal/domain"
	"snsu-notification/internal/repository"
)

// BroadcastPolicy decides which roles may send broadcasts. The hub's room
// router implements it from its fan-out table.
type BroadcastPolicy interface {
	CanBroadcast(role domain.Role) bool
}

// SendInput is a chat message as submitted by a client.
type SendInput struct {
	Content     string `json:"content"`
	RecipientID *uint  `json:"recipientId"`
	IsBroadcast bool   `json:"isBroadcast"`
}

// ChatService persists chat messages and answers history queries.
// Delivery to live connections is done by the hub.
type ChatService struct {
	messages repository.MessageRepository
	users    repository.UserRepository
	policy   BroadcastPolicy
	now      func() time.Time
}

func NewChatService(messages repository.MessageRepository, users repository.UserRepository, policy BroadcastPolicy) *ChatService {
	if messages == nil || users == nil || policy == nil {
		panic("ChatService dependencies cannot be nil")
	}
	return &ChatService{messages: messages, users: users, policy: policy, now: time.Now}
}

// Send validates, persists and re-reads the message with its participants.
// Nothing is stored when validation fails.
func (s *ChatService) Send(ctx context.Context, sender *domain.User, in SendInput) (*domain.Message, error) {
	if sender == nil || sender.ID == 0 {
		return nil, invalid("invalid message data")
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, ErrEmptyContent
	}
	logCtx := logrus.WithFields(logrus.Fields{"sender_id": sender.ID, "broadcast": in.IsBroadcast})

	msg := &domain.Message{
		Content:     in.Content,
		SenderID:    sender.ID,
		IsBroadcast: in.IsBroadcast,
		Timestamp:   s.now(),
	}
	if in.IsBroadcast {
		if !s.policy.CanBroadcast(sender.Role) {
			logCtx.WithField("role", sender.Role).Warn("Broadcast rejected for role")
			return nil, ErrBroadcastNotAllowed
		}
	} else if in.RecipientID != nil && *in.RecipientID != 0 {
		if _, err := s.users.FindByID(ctx, *in.RecipientID); err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return nil, ErrRecipientNotFound
			}
			logCtx.WithError(err).Error("Failed to look up recipient")
			return nil, ErrInternalServer
		}
		rid := *in.RecipientID
		msg.RecipientID = &rid
	}

	if err := s.messages.Create(ctx, msg); err != nil {
		logCtx.WithError(err).Error("Failed to persist message")
		return nil, ErrInternalServer
	}
	full, err := s.messages.FindByIDWithParticipants(ctx, msg.ID)
	if err != nil {
		if errors.Is(err, repository.ErrMessageNotFound) {
			logCtx.WithField("message_id", msg.ID).Warn("Message vanished before it could be hydrated")
			return nil, ErrMessageNotFound
		}
		logCtx.WithError(err).Error("Failed to hydrate message")
		return nil, ErrInternalServer
	}
	logCtx.WithField("message_id", full.ID).Debug("Message stored")
	return full, nil
}

// List returns broadcasts plus the caller's direct messages.
func (s *ChatService) List(ctx context.Context, userID uint) ([]domain.Message, error) {
	msgs, err := s.messages.ListVisibleTo(ctx, userID)
	if err != nil {
		logrus.WithField("user_id", userID).WithError(err).Error("Failed to list messages")
		return nil, ErrInternalServer
	}
	return msgs, nil
}

// ListWith returns the thread between the caller and peerID.
func (s *ChatService) ListWith(ctx context.Context, userID, peerID uint) ([]domain.Message, error) {
	msgs, err := s.messages.ListBetween(ctx, userID, peerID)
	if err != nil {
		logrus.WithFields(logrus.Fields{"user_id": userID, "peer_id": peerID}).WithError(err).Error("Failed to list thread")
		return nil, ErrInternalServer
	}
	visible := make([]domain.Message, 0, len(msgs))
	for _, m := range msgs {
		if !m.DeletedForUser(userID) {
			visible = append(visible, m)
		}
	}
	return visible, nil
}

// Conversations summarises each direct-message thread, most recent first.
func (s *ChatService) Conversations(ctx context.Context, userID uint) ([]domain.Conversation, error) {
	msgs, err := s.messages.ListDirectFor(ctx, userID)
	if err != nil {
		logrus.WithField("user_id", userID).WithError(err).Error("Failed to list direct messages")
		return nil, ErrInternalServer
	}
	index := make(map[uint]int)
	convs := []domain.Conversation{}
	for _, m := range msgs {
		if m.DeletedForUser(userID) {
			continue
		}
		peerID, peer := m.SenderID, m.Sender
		if m.SenderID == userID {
			if m.RecipientID == nil {
				continue
			}
			peerID, peer = *m.RecipientID, m.Recipient
		}
		i, ok := index[peerID]
		if !ok {
			c := domain.Conversation{LastMessage: m}
			if peer != nil {
				c.Peer = *peer
			} else {
				c.Peer = domain.Participant{ID: peerID}
			}
			convs = append(convs, c)
			i = len(convs) - 1
			index[peerID] = i
		}
		if m.SenderID != userID && !m.IsRead {
			convs[i].UnreadCount++
		}
	}
	return convs, nil
}

// MarkRead flags a message as read. Only the recipient of a direct message
// may do this; a broadcast may be marked by anyone but its sender.
func (s *ChatService) MarkRead(ctx context.Context, userID, messageID uint) (*domain.Message, error) {
	m, err := s.find(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if !canMarkRead(m, userID) {
		return nil, ErrForbidden
	}
	if m.IsRead {
		return m, nil
	}
	if err := s.messages.MarkRead(ctx, messageID); err != nil {
		logrus.WithField("message_id", messageID).WithError(err).Error("Failed to mark message read")
		return nil, ErrInternalServer
	}
	m.IsRead = true
	return m, nil
}

func canMarkRead(m *domain.Message, userID uint) bool {
	if m.SenderID == userID {
		return false
	}
	if m.IsBroadcast {
		return true
	}
	return m.RecipientID != nil && *m.RecipientID == userID
}

// DeleteForMe hides the message from the caller only.
func (s *ChatService) DeleteForMe(ctx context.Context, userID, messageID uint) error {
	m, err := s.find(ctx, messageID)
	if err != nil {
		return err
	}
	if !m.IsBroadcast && !m.Involves(userID) {
		return ErrForbidden
	}
	if m.DeletedForUser(userID) {
		return nil
	}
	deletedFor := append(append([]uint{}, m.DeletedFor...), userID)
	if err := s.messages.UpdateDeletedFor(ctx, messageID, deletedFor); err != nil {
		logrus.WithField("message_id", messageID).WithError(err).Error("Failed to soft-delete message")
		return ErrInternalServer
	}
	return nil
}

// DeleteForEveryone hard-deletes the message. Only its sender or an admin
// may do this. The deleted record is returned so it can be announced.
func (s *ChatService) DeleteForEveryone(ctx context.Context, caller *domain.User, messageID uint) (*domain.Message, error) {
	m, err := s.find(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if m.SenderID != caller.ID && caller.Role != domain.RoleAdmin {
		return nil, ErrForbidden
	}
	if err := s.messages.Delete(ctx, messageID); err != nil {
		if errors.Is(err, repository.ErrMessageNotFound) {
			return nil, ErrMessageNotFound
		}
		logrus.WithField("message_id", messageID).WithError(err).Error("Failed to delete message")
		return nil, ErrInternalServer
	}
	logrus.WithFields(logrus.Fields{"message_id": messageID, "by": caller.ID}).Info("Message deleted for everyone")
	return m, nil
}

func (s *ChatService) find(ctx context.Context, id uint) (*domain.Message, error) {
	m, err := s.messages.FindByIDWithParticipants(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrMessageNotFound) {
			return nil, ErrMessageNotFound
		}
		logrus.WithField("message_id", id).WithError(err).Error("Failed to load message")
		return nil, ErrInternalServer
	}
	return m, nil
}
