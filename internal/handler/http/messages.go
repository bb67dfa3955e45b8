package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"snsu-notification/internal/domain"
	"snsu-notification/internal/service"
)

// MessagePublisher pushes REST-originated chat events to live connections.
type MessagePublisher interface {
	PublishMessage(senderRole domain.Role, msg *domain.Message)
	DeliverDeletion(msg *domain.Message)
}

// MessageHandler serves chat history and the REST send path.
type MessageHandler struct {
	chat      *service.ChatService
	users     *service.UserService
	publisher MessagePublisher
}

func NewMessageHandler(chat *service.ChatService, users *service.UserService, publisher MessagePublisher) *MessageHandler {
	if chat == nil || users == nil || publisher == nil {
		panic("MessageHandler dependencies cannot be nil")
	}
	return &MessageHandler{chat: chat, users: users, publisher: publisher}
}

// caller loads the authenticated user record.
func (h *MessageHandler) caller(c *gin.Context) (*domain.User, bool) {
	uid, ok := callerID(c)
	if !ok {
		return nil, false
	}
	u, err := h.users.Get(c.Request.Context(), uid)
	if err != nil {
		HandleServiceError(c, err)
		return nil, false
	}
	return u, true
}

// List returns broadcasts and the caller's direct messages.
func (h *MessageHandler) List(c *gin.Context) {
	uid, ok := callerID(c)
	if !ok {
		return
	}
	msgs, err := h.chat.List(c.Request.Context(), uid)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, msgs)
}

func (h *MessageHandler) Conversations(c *gin.Context) {
	uid, ok := callerID(c)
	if !ok {
		return
	}
	convs, err := h.chat.Conversations(c.Request.Context(), uid)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, convs)
}

// Thread returns the direct messages between the caller and the user in
// the path.
func (h *MessageHandler) Thread(c *gin.Context) {
	uid, ok := callerID(c)
	if !ok {
		return
	}
	peerID, ok := idParam(c, "id")
	if !ok {
		return
	}
	msgs, err := h.chat.ListWith(c.Request.Context(), uid, peerID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, msgs)
}

// Send stores a message and fans it out like the websocket path does.
func (h *MessageHandler) Send(c *gin.Context) {
	sender, ok := h.caller(c)
	if !ok {
		return
	}
	var in service.SendInput
	if err := c.ShouldBindJSON(&in); err != nil {
		BindErrorResponse(c, err)
		return
	}
	msg, err := h.chat.Send(c.Request.Context(), sender, in)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	h.publisher.PublishMessage(sender.Role, msg)
	SuccessResponse(c, http.StatusCreated, msg)
}

func (h *MessageHandler) MarkRead(c *gin.Context) {
	uid, ok := callerID(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	msg, err := h.chat.MarkRead(c.Request.Context(), uid, id)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, msg)
}

func (h *MessageHandler) DeleteForMe(c *gin.Context) {
	uid, ok := callerID(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.chat.DeleteForMe(c.Request.Context(), uid, id); err != nil {
		HandleServiceError(c, err)
		return
	}
	MessageResponse(c, "Message deleted for you")
}

func (h *MessageHandler) DeleteForEveryone(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	msg, err := h.chat.DeleteForEveryone(c.Request.Context(), caller, id)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	h.publisher.DeliverDeletion(msg)
	logrus.WithFields(logrus.Fields{"message_id": id, "user_id": caller.ID}).Info("Handler.DeleteForEveryone: Message deleted")
	MessageResponse(c, "Message deleted for everyone")
}
