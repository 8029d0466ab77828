package ports

import (
	"context"

	"github.com/jupiterclapton/cenackle-board/internal/core/domain"
)

// --- INPUTS (Command Pattern) ---
// Des structs plutôt que des arguments positionnels : on peut ajouter des champs sans casser les signatures.

type SignupCmd struct {
	Email           string
	Password        string
	PasswordConfirm string
	Nickname        string
	ProfileImage    *domain.Image // optionnelle
}

type LoginCmd struct {
	Email    string
	Password string
}

type ListPostsQuery struct {
	Page  int
	Limit int
	Sort  string // "latest" | "popular"
}

type WritePostCmd struct {
	Title   string
	Content string
	Image   *domain.Image
	// ImageURL est rempli par le modèle après upload.
	ImageURL string
}

type EditPostCmd struct {
	PostID  string
	Title   *string // nil = pas de changement
	Content *string
	Image   *domain.Image
	// ImageURL est rempli par le modèle après upload.
	ImageURL *string
}

type UpdateProfileCmd struct {
	UserID       string
	Nickname     *string
	ProfileImage *domain.Image
	// ProfileImageURL est rempli par le modèle après upload.
	ProfileImageURL *string
}

type ChangePasswordCmd struct {
	UserID          string
	NewPassword     string
	PasswordConfirm string
}

// --- PORTS PRIMAIRES (Driving) ---
// C'est l'API que les modèles exposent aux adapters primaires (CLI, pages).
// Tout revient sous forme d'Envelope : aucune erreur ne remonte brute jusqu'à l'UI.

type AuthModel interface {
	Signup(ctx context.Context, cmd SignupCmd) domain.Envelope[*domain.User]
	Login(ctx context.Context, cmd LoginCmd) domain.Envelope[*domain.Session]
	Logout(ctx context.Context) domain.Envelope[struct{}]
	IsLoggedIn(ctx context.Context) bool
	Current(ctx context.Context) domain.Session
}

type PostModel interface {
	List(ctx context.Context, q ListPostsQuery) domain.Envelope[*domain.PostPage]
	Detail(ctx context.Context, postID string) domain.Envelope[*domain.Post]
	Write(ctx context.Context, cmd WritePostCmd) domain.Envelope[*domain.Post]
	Edit(ctx context.Context, cmd EditPostCmd) domain.Envelope[*domain.Post]
	Delete(ctx context.Context, postID string) domain.Envelope[struct{}]
	Like(ctx context.Context, postID string) domain.Envelope[*domain.Post]
	Unlike(ctx context.Context, postID string) domain.Envelope[*domain.Post]
	SetLiked(ctx context.Context, postID string, liked bool) domain.Envelope[*domain.Post]
}

type CommentModel interface {
	List(ctx context.Context, postID string) domain.Envelope[[]domain.Comment]
	Write(ctx context.Context, postID, content string) domain.Envelope[*domain.Comment]
	BeginEdit(postID string, session *domain.EditSession, comment domain.Comment) error
	SubmitEdit(ctx context.Context, postID string, session *domain.EditSession, content string) domain.Envelope[[]domain.Comment]
	Delete(ctx context.Context, postID, commentID string) domain.Envelope[struct{}]
}

type ProfileModel interface {
	Get(ctx context.Context, userID string) domain.Envelope[*domain.User]
	CheckNickname(ctx context.Context, nickname string) domain.Envelope[bool]
	Update(ctx context.Context, cmd UpdateProfileCmd) domain.Envelope[*domain.User]
	ChangePassword(ctx context.Context, cmd ChangePasswordCmd) domain.Envelope[struct{}]
	DeleteAccount(ctx context.Context) domain.Envelope[struct{}]
}
