package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/jupiterclapton/cenackle-board/internal/core/domain"
	"github.com/jupiterclapton/cenackle-board/internal/core/ports"
)

func (a *App) listPosts(ctx context.Context, args []string) int {
	fs := a.flagSet("posts")
	page := fs.Int("page", 1, "page number, from 1")
	limit := fs.Int("limit", 10, "posts per page")
	sort := fs.String("sort", domain.SortLatest, "latest or popular")
	if _, ok := a.parse(fs, args, 0); !ok {
		return ExitUsage
	}
	env := a.posts.List(ctx, ports.ListPostsQuery{Page: *page, Limit: *limit, Sort: *sort})
	return report(a, env, renderPostPage)
}

// showPost est l'écran détail : le post (la vue est comptée en arrière-plan) puis ses commentaires.
func (a *App) showPost(ctx context.Context, args []string) int {
	pos, ok := a.parse(a.flagSet("post"), args, 1)
	if !ok {
		return ExitUsage
	}
	postID := pos[0]

	if code := report(a, a.posts.Detail(ctx, postID), renderPost); code != ExitOK {
		return code
	}
	if a.asJSON {
		return ExitOK
	}
	// Les commentaires demandent une session : sans connexion on s'arrête au post
	if !a.auth.IsLoggedIn(ctx) {
		fmt.Fprintln(a.out, "(log in to read the comments)")
		return ExitOK
	}
	comments := a.comments.List(ctx, postID)
	if !comments.Success {
		fmt.Fprintf(a.errOut, "⚠️ %s\n", comments.Message)
		return ExitOK
	}
	renderComments(a.out, comments.Data)
	return ExitOK
}

func (a *App) writePost(ctx context.Context, args []string) int {
	fs := a.flagSet("write")
	title := fs.String("title", "", "title, 26 characters max")
	content := fs.String("content", "", "body")
	image := fs.String("image", "", "illustration file")
	if _, ok := a.parse(fs, args, 0); !ok {
		return ExitUsage
	}
	img, err := readImage(*image)
	if err != nil {
		return a.fail(err, "could not read the image")
	}
	env := a.posts.Write(ctx, ports.WritePostCmd{Title: *title, Content: *content, Image: img})
	return report(a, env, renderPost)
}

// editPost n'envoie que les flags réellement passés.
func (a *App) editPost(ctx context.Context, args []string) int {
	fs := a.flagSet("edit")
	title := fs.String("title", "", "new title")
	content := fs.String("content", "", "new body")
	image := fs.String("image", "", "new illustration file")
	pos, ok := a.parse(fs, args, 1)
	if !ok {
		return ExitUsage
	}

	cmd := ports.EditPostCmd{PostID: pos[0]}
	set := visited(fs)
	if set["title"] {
		cmd.Title = title
	}
	if set["content"] {
		cmd.Content = content
	}
	if set["image"] {
		img, err := readImage(*image)
		if err != nil {
			return a.fail(err, "could not read the image")
		}
		cmd.Image = img
	}
	return report(a, a.posts.Edit(ctx, cmd), renderPost)
}

func (a *App) deletePost(ctx context.Context, args []string) int {
	pos, ok := a.parse(a.flagSet("delete"), args, 1)
	if !ok {
		return ExitUsage
	}
	return report(a, a.posts.Delete(ctx, pos[0]), nil)
}

func (a *App) likePost(liked bool) func(context.Context, []string) int {
	name := "unlike"
	if liked {
		name = "like"
	}
	return func(ctx context.Context, args []string) int {
		pos, ok := a.parse(a.flagSet(name), args, 1)
		if !ok {
			return ExitUsage
		}
		return report(a, a.posts.SetLiked(ctx, pos[0], liked), func(w io.Writer, p *domain.Post) {
			if p != nil {
				fmt.Fprintf(w, "♥ %d (liked: %t)\n", p.LikeCount, p.Liked)
			}
		})
	}
}

func visited(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// --- RENDU ---

func renderPostPage(w io.Writer, page *domain.PostPage) {
	if page == nil {
		return
	}
	if len(page.Posts) == 0 {
		fmt.Fprintln(w, "no posts yet")
	} else {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR\tLIKES\tVIEWS\tCOMMENTS\tCREATED")
		for _, p := range page.Posts {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
				p.ID, p.Title, p.AuthorName, p.LikeCount, p.ViewCount, p.CommentCount, formatTime(p.CreatedAt))
		}
		_ = tw.Flush()
	}
	pg := page.Pagination
	fmt.Fprintf(w, "page %d/%d, %d posts", pg.Page, max(pg.TotalPages, 1), pg.Total)
	if pg.HasNext {
		fmt.Fprintf(w, ", next: -page %d", pg.Page+1)
	}
	fmt.Fprintln(w)
}

func renderPost(w io.Writer, p *domain.Post) {
	if p == nil {
		return
	}
	fmt.Fprintf(w, "%s\n", p.Title)
	fmt.Fprintf(w, "by %s, %s", p.AuthorName, formatTime(p.CreatedAt))
	if p.UpdatedAt.After(p.CreatedAt) {
		fmt.Fprintf(w, " (edited %s)", formatTime(p.UpdatedAt))
	}
	fmt.Fprintf(w, "\n♥ %d  👁 %d  💬 %d  [%s]\n\n", p.LikeCount, p.ViewCount, p.CommentCount, p.ID)
	if p.ImageURL != "" {
		fmt.Fprintf(w, "image: %s\n", abbreviate(p.ImageURL, 60))
	}
	fmt.Fprintln(w, p.Content)
}
