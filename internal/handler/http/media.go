package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"snsu-notification/internal/service"
)

// mediaMaxAge is how long clients may cache an image.
const mediaMaxAge = 86400

// MediaHandler serves stored images. It needs no authentication so images
// load in plain <img> tags.
type MediaHandler struct {
	media *service.MediaService
}

func NewMediaHandler(media *service.MediaService) *MediaHandler {
	if media == nil {
		panic("MediaService cannot be nil for MediaHandler")
	}
	return &MediaHandler{media: media}
}

func (h *MediaHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	etag := fmt.Sprintf(`"media-%d"`, id)
	c.Header("Cache-Control", "public, max-age="+strconv.Itoa(mediaMaxAge))
	c.Header("ETag", etag)
	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}

	m, data, err := h.media.Get(c.Request.Context(), id)
	if err != nil {
		c.Header("Cache-Control", "no-store")
		c.Header("ETag", "")
		HandleServiceError(c, err)
		return
	}
	c.Data(http.StatusOK, m.MimeType, data)
}
