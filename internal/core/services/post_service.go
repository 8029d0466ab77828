package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/jupiterclapton/cenackle-board/internal/core/domain"
	"github.com/jupiterclapton/cenackle-board/internal/core/ports"
)

type PostService struct {
	backend   ports.PostBackend
	images    ports.ImageStore
	publisher ports.EventPublisher
	effects   *sideEffects
}

type PostServiceConfig struct {
	Images    ports.ImageStore     // nil : les posts avec image sont refusés
	Publisher ports.EventPublisher // nil : pas d'événements
	// ViewTimeout borne l'incrément du compteur de vues, lancé en arrière-plan.
	ViewTimeout time.Duration
	Logger      *slog.Logger
}

func NewPostService(backend ports.PostBackend, cfg PostServiceConfig) *PostService {
	return &PostService{
		backend:   backend,
		images:    cfg.Images,
		publisher: cfg.Publisher,
		effects:   newSideEffects(cfg.ViewTimeout, cfg.Logger),
	}
}

var _ ports.PostModel = (*PostService)(nil)

// Drain attend les incréments de vues encore en vol.
func (s *PostService) Drain() { s.effects.Drain() }

func (s *PostService) List(ctx context.Context, q ports.ListPostsQuery) domain.Envelope[*domain.PostPage] {
	if q.Sort != "" && q.Sort != domain.SortLatest && q.Sort != domain.SortPopular {
		return domain.FromError[*domain.PostPage](domain.Invalid("sort", "sort must be latest or popular"), "could not load the posts")
	}
	if q.Page < 0 || q.Limit < 0 {
		return domain.FromError[*domain.PostPage](domain.Invalid("page", "page and limit must be positive"), "could not load the posts")
	}
	return s.backend.List(ctx, q)
}

// Detail charge le post puis incrémente le compteur de vues sans attendre ni bloquer.
func (s *PostService) Detail(ctx context.Context, postID string) domain.Envelope[*domain.Post] {
	if postID == "" {
		return domain.FromError[*domain.Post](domain.Invalid("postId", "missing post id"), "could not load the post")
	}
	env := s.backend.Get(ctx, postID)
	if env.Success {
		s.effects.detach(ctx, "view_count", func(ctx context.Context) error {
			return s.backend.IncrementView(ctx, postID)
		})
	}
	return env
}

func (s *PostService) Write(ctx context.Context, cmd ports.WritePostCmd) domain.Envelope[*domain.Post] {
	const failure = "could not publish the post"
	// 1. Validation
	if err := domain.ValidatePost(cmd.Title, cmd.Content); err != nil {
		return domain.FromError[*domain.Post](err, failure)
	}

	// 2. Upload de l'image avant la création
	if !cmd.Image.Empty() {
		url, err := s.upload(ctx, cmd.Image)
		if err != nil {
			return domain.FromError[*domain.Post](err, "could not upload the image")
		}
		cmd.ImageURL = url
	}

	// 3. Sauvegarde
	env := s.backend.Create(ctx, cmd)
	if !env.Success {
		return env
	}

	// 4. Événement
	if s.publisher != nil && env.Data != nil {
		post := env.Data
		s.effects.run(ctx, "post_created", func(ctx context.Context) error {
			return s.publisher.PublishPostCreated(ctx, post)
		})
	}
	return env
}

// Edit : seuls les champs fournis sont validés et envoyés.
func (s *PostService) Edit(ctx context.Context, cmd ports.EditPostCmd) domain.Envelope[*domain.Post] {
	const failure = "could not update the post"
	if cmd.PostID == "" {
		return domain.FromError[*domain.Post](domain.Invalid("postId", "missing post id"), failure)
	}
	if cmd.Title != nil {
		if err := domain.ValidateTitle(*cmd.Title); err != nil {
			return domain.FromError[*domain.Post](err, failure)
		}
	}
	if cmd.Content != nil {
		if err := domain.ValidateContent(*cmd.Content); err != nil {
			return domain.FromError[*domain.Post](err, failure)
		}
	}
	if !cmd.Image.Empty() {
		url, err := s.upload(ctx, cmd.Image)
		if err != nil {
			return domain.FromError[*domain.Post](err, "could not upload the image")
		}
		cmd.ImageURL = &url
	}
	return s.backend.Update(ctx, cmd)
}

func (s *PostService) Delete(ctx context.Context, postID string) domain.Envelope[struct{}] {
	if postID == "" {
		return domain.FromError[struct{}](domain.Invalid("postId", "missing post id"), "could not delete the post")
	}
	env := s.backend.Delete(ctx, postID)
	if env.Success && s.publisher != nil {
		s.effects.run(ctx, "post_deleted", func(ctx context.Context) error {
			return s.publisher.PublishPostDeleted(ctx, postID)
		})
	}
	return env
}

func (s *PostService) Like(ctx context.Context, postID string) domain.Envelope[*domain.Post] {
	return s.SetLiked(ctx, postID, true)
}

func (s *PostService) Unlike(ctx context.Context, postID string) domain.Envelope[*domain.Post] {
	return s.SetLiked(ctx, postID, false)
}

// SetLiked demande un état, pas une bascule : le verbe ne dépend jamais d'un état supposé.
func (s *PostService) SetLiked(ctx context.Context, postID string, liked bool) domain.Envelope[*domain.Post] {
	if postID == "" {
		return domain.FromError[*domain.Post](domain.Invalid("postId", "missing post id"), "could not update the like")
	}
	if liked {
		return s.backend.Like(ctx, postID)
	}
	return s.backend.Unlike(ctx, postID)
}

func (s *PostService) upload(ctx context.Context, img *domain.Image) (string, error) {
	if s.images == nil {
		return "", domain.Invalid("image", "image uploads are not available")
	}
	return s.images.Upload(ctx, img)
}
