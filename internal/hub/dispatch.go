package hub

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/sirupsen/logrus"

	"snsu-notification/internal/domain"
	"snsu-notification/internal/dto"
	"snsu-notification/internal/metrics"
	"snsu-notification/internal/service"
)

// handleEvent runs one inbound frame to completion. Failures are reported
// to the client as error events; the connection stays up.
func (h *Hub) handleEvent(c *Client, raw []byte) {
	var env dto.Envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
		c.logger().WithError(err).Debug("Malformed frame")
		c.sendError("invalid message format")
		return
	}
	metrics.EventsReceived.WithLabelValues(env.Event).Inc()
	logCtx := c.logger().WithField("event", env.Event)

	switch env.Event {
	case dto.EventSendMessage:
		h.handleSendMessage(c, env.Data)
	case dto.EventTyping:
		h.handleTyping(c, env.Data, true)
	case dto.EventStopTyping:
		h.handleTyping(c, env.Data, false)
	default:
		logCtx.Debug("Ignoring unknown event")
	}
}

func (h *Hub) handleSendMessage(c *Client, data json.RawMessage) {
	var in service.SendInput
	if len(data) == 0 || json.Unmarshal(data, &in) != nil {
		c.sendError("invalid message data")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	msg, err := h.sender.Send(ctx, &c.user, in)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrMessageNotFound):
			c.sendError(err.Error())
		default:
			c.logger().WithError(err).Error("Failed to send message")
			c.sendError("failed to send message")
		}
		return
	}
	h.DeliverMessage(c, c.user.Role, msg)
}

// handleTyping relays a typing indicator to the recipient's identity room.
func (h *Hub) handleTyping(c *Client, data json.RawMessage, typing bool) {
	var p dto.TypingPayload
	if len(data) > 0 {
		if err := json.Unmarshal(data, &p); err != nil {
			logrus.WithError(err).Debug("Ignoring malformed typing payload")
			return
		}
	}
	if p.RecipientID == nil {
		return
	}
	frame, err := dto.NewEnvelope(dto.EventUserTyping, dto.UserTyping{
		UserID:   c.user.ID,
		Username: c.user.Username,
		Typing:   typing,
	})
	if err != nil {
		c.logger().WithError(err).Error("Failed to marshal typing event")
		return
	}
	h.emit(Target{Rooms: []domain.Room{domain.UserRoom(*p.RecipientID)}}, nil, frame)
}
