package local

import (
	"cmp"
	"context"
	"slices"

	"github.com/jupiterclapton/cenackle-board/internal/adapters/secondary/entitystore"
	"github.com/jupiterclapton/cenackle-board/internal/core/domain"
	"github.com/jupiterclapton/cenackle-board/internal/core/ports"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Posts est le PostStorage.
type Posts struct{ *Backend }

// List trie puis découpe la collection (latest : plus récent d'abord ; popular : likes puis date).
func (p *Posts) List(ctx context.Context, q ports.ListPostsQuery) domain.Envelope[*domain.PostPage] {
	if q.Sort != "" && q.Sort != domain.SortLatest && q.Sort != domain.SortPopular {
		return domain.FromError[*domain.PostPage](domain.Invalid("sort", "unknown sort order"), "could not load the posts")
	}
	page, limit := max(q.Page, 1), q.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	limit = min(limit, MaxPageSize)

	posts := p.posts.GetAll(ctx)
	slices.SortStableFunc(posts, func(a, b domain.Post) int {
		if q.Sort == domain.SortPopular {
			if c := cmp.Compare(b.LikeCount, a.LikeCount); c != 0 {
				return c
			}
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	total := len(posts)
	start := min((page-1)*limit, total)
	end := min(start+limit, total)
	totalPages := (total + limit - 1) / limit

	return domain.OK("posts loaded", &domain.PostPage{
		Posts: slices.Clone(posts[start:end]),
		Pagination: domain.Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

func (p *Posts) Get(ctx context.Context, postID string) domain.Envelope[*domain.Post] {
	post, err := p.posts.GetByID(ctx, postID)
	if err != nil {
		return fail[*domain.Post](p.log, err, "could not load the post")
	}
	return domain.OK("post loaded", post)
}

func (p *Posts) Create(ctx context.Context, cmd ports.WritePostCmd) domain.Envelope[*domain.Post] {
	const failure = "could not publish the post"
	author, err := p.requireSession(ctx)
	if err != nil {
		return fail[*domain.Post](p.log, err, failure)
	}
	post, err := p.posts.Add(ctx, domain.Post{
		Title:      cmd.Title,
		Content:    cmd.Content,
		AuthorID:   author.ID,
		AuthorName: author.Nickname,
		ImageURL:   cmd.ImageURL,
	})
	if err != nil {
		return fail[*domain.Post](p.log, err, failure)
	}
	return domain.OK("your post has been published", post)
}

func (p *Posts) Update(ctx context.Context, cmd ports.EditPostCmd) domain.Envelope[*domain.Post] {
	const failure = "could not update the post"
	author, err := p.requireSession(ctx)
	if err != nil {
		return fail[*domain.Post](p.log, err, failure)
	}
	// Seuls les champs fournis partent dans le patch
	patch := entitystore.Patch{}
	if cmd.Title != nil {
		patch["title"] = *cmd.Title
	}
	if cmd.Content != nil {
		patch["content"] = *cmd.Content
	}
	if cmd.ImageURL != nil {
		patch["imageUrl"] = *cmd.ImageURL
	}
	post, err := p.posts.Update(ctx, cmd.PostID, patch, ownedBy(cmd.PostID, author.ID))
	if err != nil {
		return fail[*domain.Post](p.log, err, failure)
	}
	return domain.OK("your post has been updated", post)
}

// ownedBy refuse l'écriture si le post appartient à un autre auteur.
func ownedBy(postID, authorID string) entitystore.Guard[domain.Post] {
	return func(items []domain.Post) error {
		i := slices.IndexFunc(items, func(post domain.Post) bool { return post.ID == postID })
		if i >= 0 && items[i].AuthorID != authorID {
			return domain.ErrForbidden
		}
		return nil
	}
}

// Delete ne supprime pas les commentaires du post.
func (p *Posts) Delete(ctx context.Context, postID string) domain.Envelope[struct{}] {
	const failure = "could not delete the post"
	author, err := p.requireSession(ctx)
	if err != nil {
		return fail[struct{}](p.log, err, failure)
	}
	err = p.posts.Mutate(ctx, func(items []domain.Post) ([]domain.Post, error) {
		i := slices.IndexFunc(items, func(post domain.Post) bool { return post.ID == postID })
		if i < 0 {
			return nil, domain.ErrNotFound
		}
		if items[i].AuthorID != author.ID {
			return nil, domain.ErrForbidden
		}
		return slices.Delete(items, i, i+1), nil
	})
	if err != nil {
		return fail[struct{}](p.log, err, failure)
	}
	return domain.OK("the post has been deleted", struct{}{})
}

func (p *Posts) Like(ctx context.Context, postID string) domain.Envelope[*domain.Post] {
	return p.setLiked(ctx, postID, true, "liked", "could not like the post")
}

func (p *Posts) Unlike(ctx context.Context, postID string) domain.Envelope[*domain.Post] {
	return p.setLiked(ctx, postID, false, "like removed", "could not remove the like")
}

// setLiked : lecture, bascule et écriture dans une seule mutation CAS. Idempotent.
func (p *Posts) setLiked(ctx context.Context, postID string, liked bool, success, failure string) domain.Envelope[*domain.Post] {
	if _, err := p.requireSession(ctx); err != nil {
		return fail[*domain.Post](p.log, err, failure)
	}
	post, err := p.posts.Apply(ctx, postID, func(post *domain.Post) error {
		post.SetLiked(liked)
		return nil
	})
	if err != nil {
		return fail[*domain.Post](p.log, err, failure)
	}
	return domain.OK(success, post)
}

// IncrementView ne demande pas de session : un visiteur anonyme compte aussi.
func (p *Posts) IncrementView(ctx context.Context, postID string) error {
	_, err := p.posts.Apply(ctx, postID, func(post *domain.Post) error {
		post.ViewCount++
		return nil
	})
	return err
}
