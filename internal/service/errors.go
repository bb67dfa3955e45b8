package service

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrMediaNotFound        = errors.New("media not found")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrRegistrationFailed   = errors.New("username or email already exists")
	ErrDuplicateTitle       = errors.New("a notification with this title already exists")
	ErrWrongPassword        = errors.New("current password is incorrect")
	ErrForbidden            = errors.New("forbidden")
	ErrDefaultAdmin         = errors.New("cannot delete default admin account")
	ErrInvalidInput         = errors.New("invalid input")
	ErrInternalServer       = errors.New("internal server error")
)

// Validation failures. Each wraps ErrInvalidInput so callers can test for
// the class or the specific cause.
var (
	ErrEmptyContent          = invalid("message content cannot be empty")
	ErrBroadcastNotAllowed   = invalid("your role cannot send broadcasts")
	ErrRecipientNotFound     = invalid("recipient not found")
	ErrInvalidRole           = invalid("invalid role")
	ErrInvalidPhone          = invalid("invalid Philippine phone number format. Use +639XXXXXXXXX")
	ErrInvalidNotification   = invalid("title, content, and type are required")
	ErrInvalidMonth          = invalid("month must be formatted as YYYY-MM")
	ErrUnsupportedImage      = invalid("only JPEG, PNG, GIF and WebP images are allowed")
	ErrFileTooLarge          = invalid("file exceeds the maximum upload size")
	ErrNoFile                = invalid("no file uploaded")
	ErrMissingPasswordFields = invalid("current and new password are required")
)

type validationError struct {
	msg string
}

func (e *validationError) Error() string { return e.msg }

func (e *validationError) Unwrap() error { return ErrInvalidInput }

func invalid(msg string) error {
	return &validationError{msg: msg}
}

// invalidf builds an ad-hoc validation failure.
func invalidf(format string, args ...interface{}) error {
	return &validationError{msg: fmt.Sprintf(format, args...)}
}
