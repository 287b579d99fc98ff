package handlers

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	domainerrors "giveora.backend/internal/domain/errors"
)

const (
	passwordMinLength = 8
	// bcrypt ignores everything past 72 bytes
	passwordMaxBytes = 72
)

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterValidators installs the custom rules on gin's validator and makes
// field errors report json names
func RegisterValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = errors.New("unexpected validator engine")
			return
		}
		v.RegisterTagNameFunc(jsonFieldName)
		registerErr = v.RegisterValidation("password_policy", passwordPolicy)
	})
	return registerErr
}

// passwordPolicy requires 8 characters, at most 72 bytes, a letter and a digit
func passwordPolicy(fl validator.FieldLevel) bool {
	return ValidPassword(fl.Field().String())
}

// ValidPassword applies the account password rules
func ValidPassword(password string) bool {
	if utf8.RuneCountInString(password) < passwordMinLength || len(password) > passwordMaxBytes {
		return false
	}
	var letter, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return letter && digit
}

func jsonFieldName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return field.Name
	}
	return name
}

// bindingFailure turns a ShouldBindJSON error into a 422 with per-field rules,
// or a 400 when the body could not be decoded at all
func bindingFailure(err error) *domainerrors.AppError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domainerrors.BadRequest("Invalid request body")
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return domainerrors.Unprocessable("The given data was invalid.", fields)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "The " + fe.Field() + " field is required."
	case "email":
		return "The " + fe.Field() + " must be a valid email address."
	case "eqfield":
		return "The password confirmation does not match."
	case "password_policy":
		return "The password must be 8 to 72 characters and contain at least one letter and one number."
	case "numeric":
		return "The " + fe.Field() + " must be numeric."
	case "oneof":
		return "The selected " + fe.Field() + " is invalid."
	case "min", "max":
		return "The " + fe.Field() + " length is invalid."
	default:
		return "The " + fe.Field() + " is invalid."
	}
}
