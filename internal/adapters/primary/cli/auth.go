package cli

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/jupiterclapton/cenackle-board/internal/core/domain"
	"github.com/jupiterclapton/cenackle-board/internal/core/ports"
	"github.com/jupiterclapton/cenackle-board/internal/core/services"
)

func (a *App) signup(ctx context.Context, args []string) int {
	fs := a.flagSet("signup")
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password (8-20 chars, upper, lower, digit, special)")
	confirm := fs.String("confirm", "", "password confirmation")
	nickname := fs.String("nickname", "", "public nickname")
	image := fs.String("image", "", "profile image file")
	if _, ok := a.parse(fs, args, 0); !ok {
		return ExitUsage
	}

	// 1. Les champs absents reprennent le brouillon du formulaire
	draft := a.loadDraft(ctx, domain.DraftSignup)
	fill(email, draft["email"])
	fill(nickname, draft["nickname"])

	img, err := readImage(*image)
	if err != nil {
		return a.fail(err, "could not read the image")
	}

	// 2. Inscription
	env := a.auth.Signup(ctx, ports.SignupCmd{
		Email:           *email,
		Password:        *password,
		PasswordConfirm: *confirm,
		Nickname:        *nickname,
		ProfileImage:    img,
	})

	// 3. Formulaire envoyé : le brouillon n'a plus lieu d'être
	if env.Success {
		a.clearDraft(ctx, domain.DraftSignup)
	}
	return report(a, env, renderUser)
}

func (a *App) login(ctx context.Context, args []string) int {
	fs := a.flagSet("login")
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	if _, ok := a.parse(fs, args, 0); !ok {
		return ExitUsage
	}
	fill(email, a.loadDraft(ctx, domain.DraftLogin)["email"])

	env := a.auth.Login(ctx, ports.LoginCmd{Email: *email, Password: *password})
	if env.Success {
		a.clearDraft(ctx, domain.DraftLogin)
	}
	return report(a, env, func(w io.Writer, s *domain.Session) {
		if s != nil {
			fmt.Fprintf(w, "logged in as %s (%s)\n", s.Username, s.UserID)
		}
	})
}

func (a *App) logout(ctx context.Context, _ []string) int {
	return report(a, a.auth.Logout(ctx), nil)
}

func (a *App) whoami(ctx context.Context, _ []string) int {
	if !a.auth.IsLoggedIn(ctx) {
		return report(a, domain.FromError[domain.Session](domain.ErrLoginRequired, "not logged in"), nil)
	}
	return report(a, domain.OK("", a.auth.Current(ctx)), func(w io.Writer, s domain.Session) {
		fmt.Fprintf(w, "%s (%s)\n", s.Username, s.UserID)
	})
}

// --- BROUILLONS ---

var draftForms = map[string]string{
	"signup": domain.DraftSignup,
	"login":  domain.DraftLogin,
}

// draft gère les brouillons de formulaire. Les mots de passe ne sont jamais sauvegardés.
func (a *App) draft(ctx context.Context, args []string) int {
	if len(args) < 2 {
		fmt.Fprintf(a.errOut, "usage: boardctl %s\n", a.commands["draft"].usage)
		return ExitUsage
	}
	action, form := args[0], args[1]
	key, ok := draftForms[form]
	if !ok {
		fmt.Fprintf(a.errOut, "unknown form %q (signup or login)\n", form)
		return ExitUsage
	}

	saver := services.NewDraftAutosaver(a.drafts, key, a.autosave, a.log)
	switch action {
	case "save":
		data := make(map[string]string)
		for _, pair := range args[2:] {
			k, v, found := strings.Cut(pair, "=")
			if !found || k == "" {
				fmt.Fprintf(a.errOut, "expected key=value, got %q\n", pair)
				return ExitUsage
			}
			if strings.Contains(strings.ToLower(k), "password") {
				continue
			}
			data[k] = v
		}
		saver.Update(data)
		if err := saver.Flush(ctx); err != nil {
			return a.fail(err, "could not save the draft")
		}
		return report(a, domain.OK("draft saved", data), renderDraftData)

	case "show":
		d, err := saver.Load(ctx)
		if err != nil {
			return a.fail(err, "could not load the draft")
		}
		if d == nil {
			return report(a, domain.Fail[*domain.Draft]("no draft saved"), nil)
		}
		return report(a, domain.OK("", d), func(w io.Writer, d *domain.Draft) {
			fmt.Fprintf(w, "saved %s\n", formatTime(d.Timestamp))
			renderDraftData(w, d.Data)
		})

	case "clear":
		if err := saver.Clear(ctx); err != nil {
			return a.fail(err, "could not clear the draft")
		}
		return report(a, domain.OK("draft cleared", struct{}{}), nil)
	}
	fmt.Fprintf(a.errOut, "unknown draft action %q (save, show or clear)\n", action)
	return ExitUsage
}

func (a *App) loadDraft(ctx context.Context, key string) map[string]string {
	if a.drafts == nil {
		return nil
	}
	d, err := a.drafts.LoadDraft(ctx, key)
	if err != nil {
		a.log.Warn("could not load the draft", "draft", key, "error", err)
		return nil
	}
	if d == nil {
		return nil
	}
	return d.Data
}

func (a *App) clearDraft(ctx context.Context, key string) {
	if a.drafts == nil {
		return
	}
	if err := a.drafts.ClearDraft(ctx, key); err != nil {
		a.log.Warn("could not clear the draft", "draft", key, "error", err)
	}
}

func fill(dst *string, fallback string) {
	if *dst == "" {
		*dst = fallback
	}
}

func renderDraftData(w io.Writer, data map[string]string) {
	for _, k := range slices.Sorted(maps.Keys(data)) {
		fmt.Fprintf(w, "  %s: %s\n", k, data[k])
	}
}

func renderUser(w io.Writer, u *domain.User) {
	if u == nil {
		return
	}
	fmt.Fprintf(w, "id:       %s\n", u.ID)
	fmt.Fprintf(w, "email:    %s\n", u.Email)
	fmt.Fprintf(w, "nickname: %s\n", u.Nickname)
	fmt.Fprintf(w, "image:    %s\n", abbreviate(u.ImageOrDefault(), 60))
	fmt.Fprintf(w, "joined:   %s\n", formatTime(u.CreatedAt))
}

// abbreviate coupe les data URLs, illisibles dans un terminal.
// La coupe se fait en runes : jamais au milieu d'un caractère UTF-8.
func abbreviate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}
