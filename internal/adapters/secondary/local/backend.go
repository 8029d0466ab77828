// Package local implémente les ports backend sans serveur : les collections users, posts
// et comments sont des blobs JSON dans un kv.Store, la session est écrite localement.
package local

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jupiterclapton/cenackle-board/internal/adapters/secondary/entitystore"
	"github.com/jupiterclapton/cenackle-board/internal/adapters/secondary/kv"
	"github.com/jupiterclapton/cenackle-board/internal/core/domain"
	"github.com/jupiterclapton/cenackle-board/internal/core/ports"
)

const (
	KeyUsers    = "users"
	KeyPosts    = "posts"
	KeyComments = "comments"
)

type Deps struct {
	Store   kv.Store
	Session ports.SessionStore
	Hasher  ports.PasswordHasher
	Tokens  ports.TokenProvider
	// Images convertit l'image de profil envoyée à l'inscription (optionnel).
	Images ports.ImageStore
	Now    func() time.Time
	NewID  func() (string, error)
	Logger *slog.Logger
}

type Backend struct {
	users    *entitystore.Collection[domain.User, *domain.User]
	posts    *entitystore.Collection[domain.Post, *domain.Post]
	comments *entitystore.Collection[domain.Comment, *domain.Comment]

	session ports.SessionStore
	hasher  ports.PasswordHasher
	tokens  ports.TokenProvider
	images  ports.ImageStore
	now     func() time.Time
	log     *slog.Logger
}

func New(d Deps) *Backend {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	cfg := func(key string) entitystore.Config {
		return entitystore.Config{Key: key, Now: d.Now, NewID: d.NewID, Logger: d.Logger}
	}
	return &Backend{
		users:    entitystore.New[domain.User](d.Store, cfg(KeyUsers)),
		posts:    entitystore.New[domain.Post](d.Store, cfg(KeyPosts)),
		comments: entitystore.New[domain.Comment](d.Store, cfg(KeyComments)),
		session:  d.Session,
		hasher:   d.Hasher,
		tokens:   d.Tokens,
		images:   d.Images,
		now:      d.Now,
		log:      d.Logger.With("backend", "local"),
	}
}

// Les vues par port : mêmes collections, méthodes homonymes séparées.

func (b *Backend) Auth() *Auth         { return &Auth{b} }
func (b *Backend) Posts() *Posts       { return &Posts{b} }
func (b *Backend) Comments() *Comments { return &Comments{b} }
func (b *Backend) Profile() *Profile   { return &Profile{b} }

var (
	_ ports.AuthBackend    = (*Auth)(nil)
	_ ports.PostBackend    = (*Posts)(nil)
	_ ports.CommentBackend = (*Comments)(nil)
	_ ports.ProfileBackend = (*Profile)(nil)
)

// requireSession relit le token et retrouve l'utilisateur courant.
// Token absent, invalide ou compte supprimé : ErrLoginRequired.
func (b *Backend) requireSession(ctx context.Context) (*domain.User, error) {
	sess, err := b.session.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !sess.LoggedIn() {
		return nil, domain.ErrLoginRequired
	}
	userID, err := b.tokens.Validate(sess.Token)
	if err != nil {
		return nil, err
	}
	user, err := b.users.GetByID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrLoginRequired
	}
	return user, err
}

// fail journalise les erreurs techniques ; les erreurs métier passent telles quelles.
func fail[T any](log *slog.Logger, err error, fallback string) domain.Envelope[T] {
	var um interface{ UserMessage() string }
	if !errors.As(err, &um) {
		log.Error("❌ Local backend operation failed", "error", err)
	}
	return domain.FromError[T](err, fallback)
}
