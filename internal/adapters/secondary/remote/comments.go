package remote

import (
	"context"
	"net/http"

	"github.com/jupiterclapton/cenackle-board/internal/adapters/secondary/gateway"
	"github.com/jupiterclapton/cenackle-board/internal/core/domain"
)

// CommentsAPI : les commentaires sont imbriqués sous leur post (/posts/{id}/comments).
type CommentsAPI struct {
	client *gateway.Client
	res    Resource
}

func NewCommentsAPI(client *gateway.Client) *CommentsAPI {
	return &CommentsAPI{client: client, res: CommentsResource}
}

func (c *CommentsAPI) List(ctx context.Context, postID string) domain.Envelope[[]domain.Comment] {
	return invoke(ctx, c.client, call{
		op:       c.res.Op("list"),
		endpoint: c.res.Path(postID, "comments"),
		auth:     true,
	}, data(func(items []commentDTO) []domain.Comment {
		out := make([]domain.Comment, 0, len(items))
		for _, it := range items {
			out = append(out, it.toDomain(postID))
		}
		return out
	}))
}

func (c *CommentsAPI) Create(ctx context.Context, postID, content string) domain.Envelope[*domain.Comment] {
	return invoke(ctx, c.client, call{
		op:       c.res.Op("create"),
		endpoint: c.res.Path(postID, "comments"),
		opts:     gateway.RequestOptions{Method: http.MethodPost, JSON: c.res.Body(map[string]any{"content": content})},
		auth:     true,
	}, data(toComment(postID, "", content)))
}

func (c *CommentsAPI) Update(ctx context.Context, postID, commentID, content string) domain.Envelope[*domain.Comment] {
	return invoke(ctx, c.client, call{
		op:       c.res.Op("update"),
		endpoint: c.res.Path(postID, "comments", commentID),
		opts:     gateway.RequestOptions{Method: http.MethodPut, JSON: c.res.Body(map[string]any{"content": content})},
		auth:     true,
	}, data(toComment(postID, commentID, content)))
}

func (c *CommentsAPI) Delete(ctx context.Context, postID, commentID string) domain.Envelope[struct{}] {
	return invoke(ctx, c.client, call{
		op:       c.res.Op("delete"),
		endpoint: c.res.Path(postID, "comments", commentID),
		opts:     gateway.RequestOptions{Method: http.MethodDelete},
		auth:     true,
	}, none)
}

// toComment complète la réponse avec ce qui a été envoyé (certaines routes ne renvoient que l'id).
func toComment(postID, commentID, content string) func(commentDTO) *domain.Comment {
	return func(d commentDTO) *domain.Comment {
		cm := d.toDomain(postID)
		cm.ID = firstNonEmpty(cm.ID, commentID)
		cm.Content = firstNonEmpty(cm.Content, content)
		return &cm
	}
}
