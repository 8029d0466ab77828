package cli

import (
	"context"
	"fmt"

	"github.com/jupiterclapton/cenackle-board/internal/adapters/primary/events"
	"github.com/jupiterclapton/cenackle-board/internal/core/domain"
)

type EventSource interface {
	Watch(ctx context.Context, handle events.Handler) error
}

// watch affiche l'activité du board en direct jusqu'à Ctrl+C.
func (a *App) watch(ctx context.Context, args []string) int {
	if _, ok := a.parse(a.flagSet("watch"), args, 0); !ok {
		return ExitUsage
	}
	if a.events == nil {
		return a.fail(domain.NewError("watching needs BOARD_BROKER=nats"), "cannot watch")
	}
	err := a.events.Watch(ctx, func(_ context.Context, e events.Event) {
		fmt.Fprintln(a.out, describe(e))
	})
	if err != nil {
		return a.fail(err, "cannot watch the board events")
	}
	return ExitOK
}

func describe(e events.Event) string {
	at := formatTime(e.Published)
	switch {
	case e.PostCreated != nil:
		return fmt.Sprintf("%s 📝 new post %q [%s] by %s", at, e.PostCreated.Title, e.PostCreated.ID, e.PostCreated.AuthorID)
	case e.PostDeleted != nil:
		return fmt.Sprintf("%s 🗑 post %s deleted", at, e.PostDeleted.ID)
	case e.UserRegistered != nil:
		return fmt.Sprintf("%s 👋 new member %s", at, e.UserRegistered.UserID)
	}
	return fmt.Sprintf("%s %s", at, e.Subject)
}
