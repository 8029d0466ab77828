package local

import (
	"context"
	"slices"

	"github.com/jupiterclapton/cenackle-board/internal/core/domain"
)

// Comments est le CommentStorage. Le compteur commentCount du post suit ajouts et suppressions.
type Comments struct{ *Backend }

// List renvoie les commentaires d'un post, du plus ancien au plus récent.
func (c *Comments) List(ctx context.Context, postID string) domain.Envelope[[]domain.Comment] {
	if _, err := c.posts.GetByID(ctx, postID); err != nil {
		return fail[[]domain.Comment](c.log, err, "could not load the comments")
	}
	items := c.comments.Find(ctx, func(cm *domain.Comment) bool { return cm.PostID == postID })
	slices.SortStableFunc(items, func(a, b domain.Comment) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return domain.OK("comments loaded", items)
}

func (c *Comments) Create(ctx context.Context, postID, content string) domain.Envelope[*domain.Comment] {
	const failure = "could not post the comment"
	author, err := c.requireSession(ctx)
	if err != nil {
		return fail[*domain.Comment](c.log, err, failure)
	}
	if _, err := c.posts.GetByID(ctx, postID); err != nil {
		return fail[*domain.Comment](c.log, err, failure)
	}

	cm, err := c.comments.Add(ctx, domain.Comment{
		PostID:     postID,
		AuthorID:   author.ID,
		AuthorName: author.Nickname,
		Content:    content,
	})
	if err != nil {
		return fail[*domain.Comment](c.log, err, failure)
	}
	c.bumpCount(ctx, postID, 1)
	return domain.OK("your comment has been posted", cm)
}

func (c *Comments) Update(ctx context.Context, postID, commentID, content string) domain.Envelope[*domain.Comment] {
	const failure = "could not update the comment"
	author, err := c.requireSession(ctx)
	if err != nil {
		return fail[*domain.Comment](c.log, err, failure)
	}
	cm, err := c.comments.Apply(ctx, commentID, func(cm *domain.Comment) error {
		switch {
		case cm.PostID != postID:
			return domain.ErrNotFound
		case cm.AuthorID != author.ID:
			return domain.ErrForbidden
		}
		cm.Content = content
		return nil
	})
	if err != nil {
		return fail[*domain.Comment](c.log, err, failure)
	}
	return domain.OK("your comment has been updated", cm)
}

func (c *Comments) Delete(ctx context.Context, postID, commentID string) domain.Envelope[struct{}] {
	const failure = "could not delete the comment"
	author, err := c.requireSession(ctx)
	if err != nil {
		return fail[struct{}](c.log, err, failure)
	}
	err = c.comments.Mutate(ctx, func(items []domain.Comment) ([]domain.Comment, error) {
		i := slices.IndexFunc(items, func(cm domain.Comment) bool { return cm.ID == commentID && cm.PostID == postID })
		if i < 0 {
			return nil, domain.ErrNotFound
		}
		if items[i].AuthorID != author.ID {
			return nil, domain.ErrForbidden
		}
		return slices.Delete(items, i, i+1), nil
	})
	if err != nil {
		return fail[struct{}](c.log, err, failure)
	}
	c.bumpCount(ctx, postID, -1)
	return domain.OK("the comment has been deleted", struct{}{})
}

// bumpCount : le commentaire est déjà écrit, un échec ici n'annule rien.
func (c *Comments) bumpCount(ctx context.Context, postID string, delta int) {
	if _, err := c.posts.Apply(ctx, postID, func(p *domain.Post) error {
		p.AddComments(delta)
		return nil
	}); err != nil {
		c.log.Warn("comment count not updated", "post_id", postID, "delta", delta, "error", err)
	}
}
