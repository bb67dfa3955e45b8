package http

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"snsu-notification/internal/domain"
)

// custom validation tags
const (
	phPhoneTag = "ph_phone"
	roleTag    = "role"
)

var registerOnce sync.Once

// RegisterValidators installs the custom binding rules on gin's validator.
// Safe to call more than once.
func RegisterValidators() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = errors.New("unexpected binding validator engine")
			return
		}

		// Use JSON tag names for errors instead of Go struct names.
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		if err = v.RegisterValidation(phPhoneTag, phPhoneValidation); err != nil {
			return
		}
		err = v.RegisterValidation(roleTag, roleValidation)
	})
	return err
}

func phPhoneValidation(fl validator.FieldLevel) bool {
	return domain.ValidPhone(fl.Field().String())
}

func roleValidation(fl validator.FieldLevel) bool {
	return domain.Role(fl.Field().String()).Valid()
}

// validationDetails turns binding errors into a field → message map.
func validationDetails(err error) interface{} {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[fe.Field()] = fieldMessage(fe)
	}
	return details
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case phPhoneTag:
		return "invalid Philippine phone number format. Use +639XXXXXXXXX"
	case roleTag:
		return "must be one of admin, teacher, student"
	default:
		return "is invalid"
	}
}
