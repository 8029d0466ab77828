// Package eventbroker publie les événements du board (NATS JetStream ou Kafka).
// La publication est toujours best-effort : les modèles journalisent l'échec et continuent.
package eventbroker

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jupiterclapton/cenackle-board/internal/core/domain"
)

const (
	StreamName     = "BOARD"
	SubjectPattern = "board.>"

	SubjectUserRegistered = "board.user.registered"
	SubjectPostCreated    = "board.post.created"
	SubjectPostDeleted    = "board.post.deleted"
)

// Contrat implicite avec les consommateurs (feed, notifications).

type UserRegisteredEvent struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

type PostCreatedEvent struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Title     string    `json:"title"`
	HasImage  bool      `json:"has_image"`
	CreatedAt time.Time `json:"created_at"`
}

type PostDeletedEvent struct {
	ID string `json:"id"`
}

// message est le format commun : sujet, clé de partition et payload JSON.
type message struct {
	subject string
	key     string
	data    []byte
}

func userRegistered(userID, email string) (message, error) {
	return encode(SubjectUserRegistered, userID, UserRegisteredEvent{UserID: userID, Email: email})
}

func postCreated(post *domain.Post) (message, error) {
	return encode(SubjectPostCreated, post.ID, PostCreatedEvent{
		ID:        post.ID,
		AuthorID:  post.AuthorID,
		Title:     post.Title,
		HasImage:  post.ImageURL != "",
		CreatedAt: post.CreatedAt,
	})
}

func postDeleted(postID string) (message, error) {
	return encode(SubjectPostDeleted, postID, PostDeletedEvent{ID: postID})
}

func encode(subject, key string, v any) (message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return message{}, fmt.Errorf("marshal %s: %w", subject, err)
	}
	return message{subject: subject, key: key, data: data}, nil
}
