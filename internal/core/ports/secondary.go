package ports

import (
	"context"

	"github.com/jupiterclapton/cenackle-board/internal/core/domain"
)

// --- BACKENDS (Driven) ---
// Deux familles d'implémentations : "local" (Entity Store sur un blob clé/valeur)
// et "remote" (API REST via le gateway). Les deux normalisent déjà en Envelope.

type AuthBackend interface {
	Signup(ctx context.Context, cmd SignupCmd) domain.Envelope[*domain.User]
	Login(ctx context.Context, cmd LoginCmd) domain.Envelope[*domain.Session]
	Logout(ctx context.Context) error
}

type PostBackend interface {
	List(ctx context.Context, q ListPostsQuery) domain.Envelope[*domain.PostPage]
	Get(ctx context.Context, postID string) domain.Envelope[*domain.Post]
	Create(ctx context.Context, cmd WritePostCmd) domain.Envelope[*domain.Post]
	Update(ctx context.Context, cmd EditPostCmd) domain.Envelope[*domain.Post]
	Delete(ctx context.Context, postID string) domain.Envelope[struct{}]
	// Like et Unlike sont idempotents : l'état final ne dépend pas de l'état supposé côté client.
	Like(ctx context.Context, postID string) domain.Envelope[*domain.Post]
	Unlike(ctx context.Context, postID string) domain.Envelope[*domain.Post]
	IncrementView(ctx context.Context, postID string) error
}

type CommentBackend interface {
	List(ctx context.Context, postID string) domain.Envelope[[]domain.Comment]
	Create(ctx context.Context, postID, content string) domain.Envelope[*domain.Comment]
	Update(ctx context.Context, postID, commentID, content string) domain.Envelope[*domain.Comment]
	Delete(ctx context.Context, postID, commentID string) domain.Envelope[struct{}]
}

type ProfileBackend interface {
	Get(ctx context.Context, userID string) domain.Envelope[*domain.User]
	CheckNickname(ctx context.Context, nickname string) domain.Envelope[bool]
	Update(ctx context.Context, cmd UpdateProfileCmd) domain.Envelope[*domain.User]
	ChangePassword(ctx context.Context, cmd ChangePasswordCmd) domain.Envelope[struct{}]
	DeleteAccount(ctx context.Context) domain.Envelope[struct{}]
}

// --- SESSION ---

// SessionStore remplace l'état global (localStorage) : il est injecté partout où on lit le token.
type SessionStore interface {
	Load(ctx context.Context) (domain.Session, error)
	Save(ctx context.Context, s domain.Session) error
	Clear(ctx context.Context) error
}

// DraftStore persiste les brouillons de formulaire (clés signupForm / loginForm).
type DraftStore interface {
	SaveDraft(ctx context.Context, key string, d domain.Draft) error
	LoadDraft(ctx context.Context, key string) (*domain.Draft, error)
	ClearDraft(ctx context.Context, key string) error
}

// --- MÉDIAS ---

// ImageStore transforme un fichier en URL affichable (data URL, objet S3, upload API).
type ImageStore interface {
	Upload(ctx context.Context, img *domain.Image) (string, error)
}

// --- MESSAGERIE (BROKER) ---

// EventPublisher notifie les autres systèmes (NATS, Kafka). Toujours best-effort.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, userID, email string) error
	PublishPostCreated(ctx context.Context, post *domain.Post) error
	PublishPostDeleted(ctx context.Context, postID string) error
}

// --- SÉCURITÉ (CRYPTO) ---

// PasswordHasher abstrait l'algorithme de hachage (Argon2, Bcrypt)
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// TokenProvider émet et relit les tokens de session.
type TokenProvider interface {
	Generate(user *domain.User) (string, error)
	Validate(token string) (userID string, err error)
}
