package http

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"snsu-notification/internal/middleware"
	"snsu-notification/internal/service"
)

// idParam parses a positive numeric path parameter, replying 400 otherwise.
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// callerID returns the authenticated user id, replying 401 when absent.
func callerID(c *gin.Context) (uint, bool) {
	id, ok := middleware.UserIDFrom(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return 0, false
	}
	return id, true
}

// formUpload reads an optional multipart file. It returns nil when the
// request has no such file.
func formUpload(c *gin.Context, field string, maxSize int64) (*service.Upload, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, service.ErrNoFile
	}
	if fh.Size > maxSize {
		return nil, service.ErrFileTooLarge
	}
	return readUpload(fh, maxSize)
}

func readUpload(fh *multipart.FileHeader, maxSize int64) (*service.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxSize {
		return nil, service.ErrFileTooLarge
	}
	return &service.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

var eventDateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

// parseEventDate accepts RFC 3339, datetime-local and plain dates. An empty
// string means no date.
func parseEventDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" {
		return nil, nil
	}
	for _, layout := range eventDateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return &t, nil
		}
	}
	return nil, errors.New("eventDate must be an ISO date")
}
