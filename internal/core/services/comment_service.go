package services

import (
	"context"

	"github.com/jupiterclapton/cenackle-board/internal/core/domain"
	"github.com/jupiterclapton/cenackle-board/internal/core/ports"
)

type CommentService struct {
	backend ports.CommentBackend
}

func NewCommentService(backend ports.CommentBackend) *CommentService {
	return &CommentService{backend: backend}
}

var _ ports.CommentModel = (*CommentService)(nil)

func (s *CommentService) List(ctx context.Context, postID string) domain.Envelope[[]domain.Comment] {
	if postID == "" {
		return domain.FromError[[]domain.Comment](domain.Invalid("postId", "missing post id"), "could not load the comments")
	}
	return s.backend.List(ctx, postID)
}

func (s *CommentService) Write(ctx context.Context, postID, content string) domain.Envelope[*domain.Comment] {
	if err := domain.ValidateComment(content); err != nil {
		return domain.FromError[*domain.Comment](err, "could not post the comment")
	}
	return s.backend.Create(ctx, postID, content)
}

// BeginEdit : viewing -> editing sur un commentaire du post.
func (s *CommentService) BeginEdit(postID string, session *domain.EditSession, comment domain.Comment) error {
	if comment.PostID != "" && comment.PostID != postID {
		return domain.ErrNotFound
	}
	return session.Begin(comment.ID, comment.Content)
}

// SubmitEdit : editing -> viewing, persiste puis recharge la liste.
// Un contenu invalide ou un échec serveur laisse la session en édition.
func (s *CommentService) SubmitEdit(ctx context.Context, postID string, session *domain.EditSession, content string) domain.Envelope[[]domain.Comment] {
	const failure = "could not update the comment"
	if session.Mode() != domain.Editing {
		return domain.FromError[[]domain.Comment](domain.ErrInvalidTransition, failure)
	}
	if err := domain.ValidateComment(content); err != nil {
		return domain.FromError[[]domain.Comment](err, failure)
	}

	original := session.Original()
	commentID, err := session.Submit()
	if err != nil {
		return domain.FromError[[]domain.Comment](err, failure)
	}

	updated := s.backend.Update(ctx, postID, commentID, content)
	if !updated.Success {
		// Retour en édition : l'utilisateur peut corriger ou annuler
		_ = session.Begin(commentID, original)
		return domain.Fail[[]domain.Comment](updated.Message)
	}

	list := s.backend.List(ctx, postID)
	if !list.Success {
		return list
	}
	return domain.OK(updated.Message, list.Data)
}

func (s *CommentService) Delete(ctx context.Context, postID, commentID string) domain.Envelope[struct{}] {
	if postID == "" || commentID == "" {
		return domain.FromError[struct{}](domain.Invalid("commentId", "missing comment id"), "could not delete the comment")
	}
	return s.backend.Delete(ctx, postID, commentID)
}
