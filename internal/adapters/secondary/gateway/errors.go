package gateway

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jupiterclapton/cenackle-board/internal/core/domain"
)

var (
	// ErrLoginRequired : pas de token, aucun appel réseau n'a été fait.
	ErrLoginRequired = domain.ErrLoginRequired
	// ErrNetwork : aucune réponse du serveur (DNS, connexion refusée, timeout...).
	ErrNetwork = domain.NewError("network error, please check your connection")
	// ErrUnexpectedFormat : 2xx mais le tag de réponse n'est pas celui attendu (ou JSON illisible).
	ErrUnexpectedFormat = domain.NewError("the server response format is invalid")
)

// StatusMessage est l'unique table statut HTTP -> message affichable.
func StatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad request, please check your input"
	case http.StatusUnauthorized:
		return "authentication failed, please log in again"
	case http.StatusInternalServerError:
		return "server error, please try again later"
	default:
		return "an unknown error occurred"
	}
}

// Error est renvoyée pour toute réponse non-2xx ; elle garde le corps et le statut.
type Error struct {
	Status        int
	Body          []byte
	ServerMessage string // champ "message" du corps, si présent
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway: http %d: %s", e.Status, e.UserMessage())
}

// UserMessage préfère le message du serveur, sinon la table des statuts.
func (e *Error) UserMessage() string {
	if e.ServerMessage != "" {
		return e.ServerMessage
	}
	return StatusMessage(e.Status)
}

// ErrorMessage choisit le message d'échec : message serveur, sinon défaut de l'appelant,
// sinon le message porté par l'erreur (login requis, réseau...).
func ErrorMessage(err error, fallback string) string {
	var ge *Error
	if errors.As(err, &ge) {
		switch {
		case ge.ServerMessage != "":
			return ge.ServerMessage
		case fallback != "":
			return fallback
		default:
			return StatusMessage(ge.Status)
		}
	}
	for _, known := range []error{ErrLoginRequired, ErrNetwork, ErrUnexpectedFormat} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return domain.UserMessage(err, fallback)
}
