package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/jupiterclapton/cenackle-board/internal/adapters/secondary/gateway"
	"github.com/jupiterclapton/cenackle-board/internal/core/domain"
	"github.com/jupiterclapton/cenackle-board/internal/core/ports"
)

type PostsAPI struct {
	client *gateway.Client
	res    Resource
}

func NewPostsAPI(client *gateway.Client) *PostsAPI {
	return &PostsAPI{client: client, res: PostsResource}
}

// List est public ; le token est tout de même joint s'il existe (état "liked" par lecteur).
func (p *PostsAPI) List(ctx context.Context, q ports.ListPostsQuery) domain.Envelope[*domain.PostPage] {
	query := url.Values{}
	if q.Page > 0 {
		query.Set("page", itoa(q.Page))
	}
	if q.Limit > 0 {
		query.Set("limit", itoa(q.Limit))
	}
	if q.Sort != "" {
		query.Set("sort", q.Sort)
	}

	return invoke(ctx, p.client, call{
		op:       p.res.Op("list"),
		endpoint: p.res.Path(),
		opts:     gateway.RequestOptions{Query: query},
	}, func(resp *gateway.Response, items []postDTO) (*domain.PostPage, error) {
		page := &domain.PostPage{Posts: make([]domain.Post, 0, len(items))}
		for _, it := range items {
			page.Posts = append(page.Posts, it.toDomain())
		}
		var meta paginationDTO
		if raw, ok := resp.Fields["pagination"]; ok {
			if err := json.Unmarshal(raw, &meta); err != nil {
				return nil, errors.Join(gateway.ErrUnexpectedFormat, err)
			}
		}
		page.Pagination = meta.toDomain(max(q.Page, 1), q.Limit, len(items))
		return page, nil
	})
}

func (p *PostsAPI) Get(ctx context.Context, postID string) domain.Envelope[*domain.Post] {
	return invoke(ctx, p.client, call{
		op:       p.res.Op("get"),
		endpoint: p.res.Path(postID),
	}, data(toPost(postID)))
}

func (p *PostsAPI) Create(ctx context.Context, cmd ports.WritePostCmd) domain.Envelope[*domain.Post] {
	fields := map[string]any{"title": cmd.Title, "content": cmd.Content}
	if cmd.ImageURL != "" {
		fields["imageUrl"] = cmd.ImageURL
	}
	return invoke(ctx, p.client, call{
		op:       p.res.Op("create"),
		endpoint: p.res.Path(),
		opts:     gateway.RequestOptions{Method: http.MethodPost, JSON: p.res.Body(fields)},
		auth:     true,
	}, data(func(d postDTO) *domain.Post {
		post := d.toDomain()
		post.Title = firstNonEmpty(post.Title, cmd.Title)
		post.Content = firstNonEmpty(post.Content, cmd.Content)
		post.ImageURL = firstNonEmpty(post.ImageURL, cmd.ImageURL)
		return &post
	}))
}

// Update n'envoie que les champs modifiés.
func (p *PostsAPI) Update(ctx context.Context, cmd ports.EditPostCmd) domain.Envelope[*domain.Post] {
	fields := map[string]any{}
	if cmd.Title != nil {
		fields["title"] = *cmd.Title
	}
	if cmd.Content != nil {
		fields["content"] = *cmd.Content
	}
	if cmd.ImageURL != nil {
		fields["imageUrl"] = *cmd.ImageURL
	}
	return invoke(ctx, p.client, call{
		op:       p.res.Op("update"),
		endpoint: p.res.Path(cmd.PostID),
		opts:     gateway.RequestOptions{Method: http.MethodPut, JSON: p.res.Body(fields)},
		auth:     true,
	}, data(toPost(cmd.PostID)))
}

func (p *PostsAPI) Delete(ctx context.Context, postID string) domain.Envelope[struct{}] {
	return invoke(ctx, p.client, call{
		op:       p.res.Op("delete"),
		endpoint: p.res.Path(postID),
		opts:     gateway.RequestOptions{Method: http.MethodDelete},
		auth:     true,
	}, none)
}

func (p *PostsAPI) Like(ctx context.Context, postID string) domain.Envelope[*domain.Post] {
	return p.setLiked(ctx, postID, true)
}

func (p *PostsAPI) Unlike(ctx context.Context, postID string) domain.Envelope[*domain.Post] {
	return p.setLiked(ctx, postID, false)
}

// setLiked : POST pour aimer, DELETE pour retirer. Si le serveur répond 409 (état déjà atteint),
// on relit le post : l'état affiché vient toujours du serveur.
func (p *PostsAPI) setLiked(ctx context.Context, postID string, liked bool) domain.Envelope[*domain.Post] {
	op, method := p.res.Op("like"), http.MethodPost
	if !liked {
		op, method = p.res.Op("unlike"), http.MethodDelete
	}

	return gateway.AuthRequest(ctx, p.client, func(ctx context.Context) (domain.Envelope[*domain.Post], error) {
		resp, err := p.client.Request(ctx, p.res.Path(postID, "like"), gateway.RequestOptions{Method: method}, true)
		var ge *gateway.Error
		if errors.As(err, &ge) && ge.Status == http.StatusConflict {
			return p.refetch(ctx, postID, liked, op.Success)
		}
		if err != nil {
			return domain.Envelope[*domain.Post]{}, err
		}
		return decodeAs(resp, op, func(_ *gateway.Response, d postDTO) (*domain.Post, error) {
			post := d.toDomain()
			post.ID = firstNonEmpty(post.ID, postID)
			if d.Liked == nil {
				post.Liked = liked
			}
			return &post, nil
		})
	}, op.Failure)
}

func (p *PostsAPI) refetch(ctx context.Context, postID string, liked bool, message string) (domain.Envelope[*domain.Post], error) {
	resp, err := p.client.Request(ctx, p.res.Path(postID), gateway.RequestOptions{}, false)
	if err != nil {
		return domain.Envelope[*domain.Post]{}, err
	}
	env, err := decodeAs(resp, p.res.Op("get"), func(_ *gateway.Response, d postDTO) (*domain.Post, error) {
		post := d.toDomain()
		post.ID = firstNonEmpty(post.ID, postID)
		if d.Liked == nil {
			post.Liked = liked
		}
		return &post, nil
	})
	if err != nil {
		return env, err
	}
	env.Message = message
	return env, nil
}

// IncrementView est best-effort : l'appelant journalise l'erreur, rien n'est affiché.
func (p *PostsAPI) IncrementView(ctx context.Context, postID string) error {
	_, err := p.client.Request(ctx, p.res.Path(postID, "views"), gateway.RequestOptions{Method: http.MethodPatch}, false)
	return err
}

func toPost(postID string) func(postDTO) *domain.Post {
	return func(d postDTO) *domain.Post {
		post := d.toDomain()
		post.ID = firstNonEmpty(post.ID, postID)
		return &post
	}
}
