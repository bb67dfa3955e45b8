package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"snsu-notification/internal/domain"
	"snsu-notification/internal/service"
)

// NotificationHandler serves announcements and the calendar view.
type NotificationHandler struct {
	notifications *service.NotificationService
	calendar      *service.CalendarService
	maxFileSize   int64
}

func NewNotificationHandler(notifications *service.NotificationService, calendar *service.CalendarService, maxFileSize int64) *NotificationHandler {
	if notifications == nil || calendar == nil {
		panic("NotificationHandler dependencies cannot be nil")
	}
	if maxFileSize <= 0 {
		maxFileSize = service.DefaultMaxFileSize
	}
	return &NotificationHandler{notifications: notifications, calendar: calendar, maxFileSize: maxFileSize}
}

// NotificationRequest is accepted as JSON or as a multipart form with an
// optional image file. Absent fields are kept on update.
type NotificationRequest struct {
	Title     *string                  `json:"title" form:"title" binding:"omitempty,max=100"`
	Content   *string                  `json:"content" form:"content"`
	Type      *domain.NotificationType `json:"type" form:"type"`
	EventDate *string                  `json:"eventDate" form:"eventDate"`
}

func (h *NotificationHandler) List(c *gin.Context) {
	list, err := h.notifications.List(c.Request.Context())
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, list)
}

func (h *NotificationHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	n, err := h.notifications.Get(c.Request.Context(), id)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, n)
}

func (h *NotificationHandler) Create(c *gin.Context) {
	var req NotificationRequest
	if err := c.ShouldBind(&req); err != nil {
		BindErrorResponse(c, err)
		return
	}
	in := service.NotificationInput{}
	if req.Title != nil {
		in.Title = *req.Title
	}
	if req.Content != nil {
		in.Content = *req.Content
	}
	if req.Type != nil {
		in.Type = *req.Type
	}
	if req.EventDate != nil {
		date, err := parseEventDate(*req.EventDate)
		if err != nil {
			ErrorResponse(c, http.StatusBadRequest, err.Error())
			return
		}
		in.EventDate = date
	}
	image, err := formUpload(c, "image", h.maxFileSize)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	n, err := h.notifications.Create(c.Request.Context(), in, image)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Notification created successfully", "notification": n})
}

func (h *NotificationHandler) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req NotificationRequest
	if err := c.ShouldBind(&req); err != nil {
		BindErrorResponse(c, err)
		return
	}
	upd := service.NotificationUpdate{Title: req.Title, Content: req.Content, Type: req.Type}
	if req.EventDate != nil {
		date, err := parseEventDate(*req.EventDate)
		if err != nil {
			ErrorResponse(c, http.StatusBadRequest, err.Error())
			return
		}
		upd.SetEventDate, upd.EventDate = true, date
	}
	image, err := formUpload(c, "image", h.maxFileSize)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	n, err := h.notifications.Update(c.Request.Context(), id, upd, image)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification updated successfully", "notification": n})
}

func (h *NotificationHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.notifications.Delete(c.Request.Context(), id); err != nil {
		HandleServiceError(c, err)
		return
	}
	MessageResponse(c, "Notification deleted successfully")
}

// Calendar returns the month's events grouped by day.
func (h *NotificationHandler) Calendar(c *gin.Context) {
	days, err := h.calendar.Month(c.Request.Context(), c.Query("month"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, days)
}
