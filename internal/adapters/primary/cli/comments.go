package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jupiterclapton/cenackle-board/internal/core/domain"
)

func (a *App) listComments(ctx context.Context, args []string) int {
	pos, ok := a.parse(a.flagSet("comments"), args, 1)
	if !ok {
		return ExitUsage
	}
	return report(a, a.comments.List(ctx, pos[0]), renderComments)
}

func (a *App) writeComment(ctx context.Context, args []string) int {
	pos, ok := a.parse(a.flagSet("comment"), args, 2)
	if !ok {
		return ExitUsage
	}
	env := a.comments.Write(ctx, pos[0], strings.Join(pos[1:], " "))
	return report(a, env, func(w io.Writer, c *domain.Comment) {
		if c != nil {
			renderComments(w, []domain.Comment{*c})
		}
	})
}

// editComment rejoue l'écran d'édition : lecture, passage en édition, envoi.
func (a *App) editComment(ctx context.Context, args []string) int {
	pos, ok := a.parse(a.flagSet("comment-edit"), args, 3)
	if !ok {
		return ExitUsage
	}
	postID, commentID, content := pos[0], pos[1], strings.Join(pos[2:], " ")

	// 1. Le commentaire tel qu'affiché
	list := a.comments.List(ctx, postID)
	if !list.Success {
		return report(a, list, nil)
	}
	var target *domain.Comment
	for i := range list.Data {
		if list.Data[i].ID == commentID {
			target = &list.Data[i]
			break
		}
	}
	if target == nil {
		return a.fail(domain.ErrNotFound, "comment not found")
	}

	// 2. viewing -> editing
	var session domain.EditSession
	if err := a.comments.BeginEdit(postID, &session, *target); err != nil {
		return a.fail(err, "could not edit the comment")
	}

	// 3. editing -> viewing, liste rechargée
	return report(a, a.comments.SubmitEdit(ctx, postID, &session, content), renderComments)
}

func (a *App) deleteComment(ctx context.Context, args []string) int {
	pos, ok := a.parse(a.flagSet("comment-delete"), args, 2)
	if !ok {
		return ExitUsage
	}
	return report(a, a.comments.Delete(ctx, pos[0], pos[1]), nil)
}

func renderComments(w io.Writer, comments []domain.Comment) {
	if len(comments) == 0 {
		fmt.Fprintln(w, "no comments yet")
		return
	}
	for _, c := range comments {
		fmt.Fprintf(w, "💬 %s, %s [%s]\n   %s\n", c.AuthorName, formatTime(c.CreatedAt), c.ID, c.Content)
	}
}
