package domain

import (
	"errors"
	"fmt"
)

// Error est une erreur métier dont le texte peut être affiché tel quel à l'utilisateur.
type Error struct {
	msg string
}

func NewError(msg string) *Error { return &Error{msg: msg} }

func (e *Error) Error() string       { return e.msg }
func (e *Error) UserMessage() string { return e.msg }

// --- ERREURS DU DOMAINE ---
var (
	ErrNotFound           = NewError("the requested item does not exist")
	ErrEmailAlreadyExists = NewError("this email is already registered")
	ErrNicknameTaken      = NewError("this nickname is already in use")
	ErrInvalidCredentials = NewError("email or password does not match")
	ErrLoginRequired      = NewError("login required")
	ErrForbidden          = NewError("you can only change your own content")
	ErrConflict           = NewError("the data changed while saving, please try again")
	ErrInvalidTransition  = NewError("this action is not allowed right now")
)

// ValidationError est levée avant toute I/O, associée au champ fautif.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) UserMessage() string { return e.Message }

func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// UserMessage extrait le message affichable d'une chaîne d'erreurs, sinon fallback.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	var um interface{ UserMessage() string }
	if errors.As(err, &um) {
		if msg := um.UserMessage(); msg != "" {
			return msg
		}
	}
	return fallback
}
