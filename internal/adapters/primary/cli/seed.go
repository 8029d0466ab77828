package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/jupiterclapton/cenackle-board/internal/core/domain"
	"github.com/jupiterclapton/cenackle-board/internal/core/ports"
)

type seededUser struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
	Posts    int    `json:"posts"`
}

// seed remplit le board avec des comptes et des posts factices, via les mêmes modèles que l'UI.
// La session de départ est fermée : on termine déconnecté.
func (a *App) seed(ctx context.Context, args []string) int {
	fs := a.flagSet("seed")
	users := fs.Int("users", 3, "accounts to create")
	posts := fs.Int("posts", 5, "posts per account")
	seed := fs.Int64("seed", 0, "random seed, 0 = random")
	if _, ok := a.parse(fs, args, 0); !ok {
		return ExitUsage
	}
	if *users < 1 || *posts < 0 {
		return a.fail(domain.Invalid("users", "need at least one user"), "nothing to seed")
	}

	faker := gofakeit.New(*seed)
	var created []seededUser
	var postIDs []string

	for i := range *users {
		u := seededUser{
			Email:    fmt.Sprintf("%d.%s", i, strings.ToLower(faker.Email())),
			Password: fmt.Sprintf("Sd%d!%s", faker.Number(100, 999), faker.LetterN(4)),
			Nickname: seedNickname(faker.Username(), i),
		}

		// 1. Compte
		signup := a.auth.Signup(ctx, ports.SignupCmd{
			Email: u.Email, Password: u.Password, PasswordConfirm: u.Password, Nickname: u.Nickname,
		})
		if !signup.Success {
			return a.fail(domain.NewError(signup.Message), "seed failed")
		}
		if login := a.auth.Login(ctx, ports.LoginCmd{Email: u.Email, Password: u.Password}); !login.Success {
			return a.fail(domain.NewError(login.Message), "seed failed")
		}

		// 2. Posts
		for range *posts {
			env := a.posts.Write(ctx, ports.WritePostCmd{
				Title:   truncateRunes(faker.Sentence(4), domain.MaxTitleLength),
				Content: faker.Paragraph(2, 3, 12, "\n\n"),
			})
			if !env.Success {
				return a.fail(domain.NewError(env.Message), "seed failed")
			}
			postIDs = append(postIDs, env.Data.ID)
			u.Posts++
		}

		// 3. Un peu d'activité sur les posts des autres
		if len(postIDs) > 0 {
			target := postIDs[faker.Number(0, len(postIDs)-1)]
			a.posts.Like(ctx, target)
			a.comments.Write(ctx, target, faker.Sentence(8))
		}
		created = append(created, u)
		a.log.Debug("seeded user", "nickname", u.Nickname, "posts", u.Posts)
	}

	a.auth.Logout(ctx)
	return report(a, domain.OK(fmt.Sprintf("%d users and %d posts created", len(created), len(postIDs)), created), renderSeeded)
}

func renderSeeded(w io.Writer, users []seededUser) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EMAIL\tPASSWORD\tNICKNAME\tPOSTS")
	for _, u := range users {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", u.Email, u.Password, u.Nickname, u.Posts)
	}
	_ = tw.Flush()
}

// seedNickname respecte la limite du profil (pas d'espace, 10 caractères) et reste unique.
func seedNickname(base string, i int) string {
	base = strings.Join(strings.Fields(base), "")
	suffix := fmt.Sprint(i)
	return truncateRunes(base, domain.MaxProfileNickname-len(suffix)) + suffix
}

func truncateRunes(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n]))
}
