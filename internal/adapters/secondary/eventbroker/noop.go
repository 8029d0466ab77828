package eventbroker

import (
	"context"

	"github.com/jupiterclapton/cenackle-board/internal/core/domain"
)

// Noop est utilisé quand aucun broker n'est configuré.
type Noop struct{}

func (Noop) PublishUserRegistered(context.Context, string, string) error { return nil }
func (Noop) PublishPostCreated(context.Context, *domain.Post) error      { return nil }
func (Noop) PublishPostDeleted(context.Context, string) error            { return nil }
