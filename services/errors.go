package services

import (
	"errors"
	"strings"

	"github.com/cppla/socialnet/apperr"
	"github.com/cppla/socialnet/store"
	"github.com/cppla/socialnet/utils"
)

var (
	// ErrUnknownEmail and ErrWrongPassword are the causes behind an "Invalid credentials" answer.
	ErrUnknownEmail  = errors.New("no account with that email")
	ErrWrongPassword = errors.New("password mismatch")
)

const serverMessage = "Server error"

// translate maps store sentinels to client-facing errors. notFound is the message used for store.ErrNotFound.
func translate(err error, notFound string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return apperr.New(apperr.NotFound, notFound)
	default:
		var ae *apperr.Error
		if errors.As(err, &ae) {
			return err
		}
		return apperr.Wrap(err, serverMessage)
	}
}

func invalid(field, message string) error {
	return apperr.Invalid(apperr.FieldError{Field: field, Message: message})
}

// cleanText checks raw as typed, then strips markup and checks what is left.
func cleanText(field, raw string, validate func(string) string) (string, error) {
	if msg := validate(strings.TrimSpace(raw)); msg != "" {
		return "", invalid(field, msg)
	}
	text := utils.Sanitize(raw)
	if msg := validate(text); msg != "" {
		return "", invalid(field, msg)
	}
	return text, nil
}
