// Package cli est l'adapter primaire du client : une sous-commande par écran
// (inscription, liste, détail, édition, profil). Il ne parle qu'aux modèles.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/jupiterclapton/cenackle-board/internal/core/domain"
	"github.com/jupiterclapton/cenackle-board/internal/core/ports"
)

const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

type Deps struct {
	Auth     ports.AuthModel
	Posts    ports.PostModel
	Comments ports.CommentModel
	Profile  ports.ProfileModel
	Drafts   ports.DraftStore
	// Events est nil quand aucun broker consultable n'est configuré.
	Events EventSource
	// AutosaveDelay est le délai d'inactivité avant sauvegarde d'un brouillon.
	AutosaveDelay time.Duration
	Out, Err      io.Writer
	Logger        *slog.Logger
}

type App struct {
	auth     ports.AuthModel
	posts    ports.PostModel
	comments ports.CommentModel
	profile  ports.ProfileModel
	drafts   ports.DraftStore
	events   EventSource
	autosave time.Duration

	out, errOut io.Writer
	log         *slog.Logger

	asJSON   bool
	commands map[string]command
}

type command struct {
	usage string
	run   func(ctx context.Context, args []string) int
}

func New(d Deps) *App {
	if d.Out == nil {
		d.Out = os.Stdout
	}
	if d.Err == nil {
		d.Err = os.Stderr
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	a := &App{
		auth:     d.Auth,
		posts:    d.Posts,
		comments: d.Comments,
		profile:  d.Profile,
		drafts:   d.Drafts,
		events:   d.Events,
		autosave: d.AutosaveDelay,
		out:      d.Out,
		errOut:   d.Err,
		log:      d.Logger,
	}
	a.commands = map[string]command{
		"signup":         {"signup -email E -password P -confirm P -nickname N [-image FILE]", a.signup},
		"login":          {"login -email E -password P", a.login},
		"logout":         {"logout", a.logout},
		"whoami":         {"whoami", a.whoami},
		"posts":          {"posts [-page N] [-limit N] [-sort latest|popular]", a.listPosts},
		"post":           {"post POST_ID", a.showPost},
		"write":          {"write -title T -content C [-image FILE]", a.writePost},
		"edit":           {"edit POST_ID [-title T] [-content C] [-image FILE]", a.editPost},
		"delete":         {"delete POST_ID", a.deletePost},
		"like":           {"like POST_ID", a.likePost(true)},
		"unlike":         {"unlike POST_ID", a.likePost(false)},
		"comments":       {"comments POST_ID", a.listComments},
		"comment":        {"comment POST_ID CONTENT", a.writeComment},
		"comment-edit":   {"comment-edit POST_ID COMMENT_ID CONTENT", a.editComment},
		"comment-delete": {"comment-delete POST_ID COMMENT_ID", a.deleteComment},
		"profile":        {"profile [USER_ID]", a.showProfile},
		"profile-edit":   {"profile-edit [-nickname N] [-image FILE]", a.editProfile},
		"nickname":       {"nickname NICKNAME", a.checkNickname},
		"password":       {"password -new P -confirm P", a.changePassword},
		"unregister":     {"unregister -yes", a.deleteAccount},
		"draft":          {"draft save|show|clear signup|login [key=value ...]", a.draft},
		"seed":           {"seed [-users N] [-posts N] [-seed N]", a.seed},
		"watch":          {"watch", a.watch},
	}
	return a
}

// Run exécute une commande et renvoie le code de sortie du process.
func (a *App) Run(ctx context.Context, args []string) int {
	fs := a.flagSet("boardctl")
	fs.BoolVar(&a.asJSON, "json", false, "print the raw envelope as JSON")
	fs.Usage = a.usage
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	if fs.NArg() == 0 {
		a.usage()
		return ExitUsage
	}

	name := fs.Arg(0)
	cmd, ok := a.commands[name]
	if !ok {
		fmt.Fprintf(a.errOut, "unknown command %q\n", name)
		a.usage()
		return ExitUsage
	}
	a.log.Debug("running command", "command", name)
	return cmd.run(ctx, fs.Args()[1:])
}

func (a *App) usage() {
	names := make([]string, 0, len(a.commands))
	for name := range a.commands {
		names = append(names, name)
	}
	slices.Sort(names)

	fmt.Fprintln(a.errOut, "usage: boardctl [-json] COMMAND [ARGS]")
	for _, name := range names {
		fmt.Fprintf(a.errOut, "  %s\n", a.commands[name].usage)
	}
}

func (a *App) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

// parse accepte les flags avant ou après les arguments positionnels
// ("edit 42 -title x" comme "edit -title x 42").
func (a *App) parse(fs *flag.FlagSet, args []string, positional int) ([]string, bool) {
	var pos []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, false
		}
		args = fs.Args()
		if len(args) == 0 {
			break
		}
		pos = append(pos, args[0])
		args = args[1:]
	}
	if len(pos) < positional {
		fmt.Fprintf(a.errOut, "usage: boardctl %s\n", a.commands[fs.Name()].usage)
		return nil, false
	}
	return pos, true
}

// --- SORTIE ---

// report affiche l'enveloppe : message sur stdout (stderr si échec), puis la donnée.
func report[T any](a *App, env domain.Envelope[T], render func(io.Writer, T)) int {
	if a.asJSON {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(env); err != nil {
			a.log.Error("could not encode the result", "error", err)
			return ExitFailure
		}
	} else {
		if !env.Success {
			fmt.Fprintf(a.errOut, "❌ %s\n", env.Message)
			return ExitFailure
		}
		if env.Message != "" {
			fmt.Fprintf(a.out, "✅ %s\n", env.Message)
		}
		if render != nil {
			render(a.out, env.Data)
		}
	}
	if !env.Success {
		return ExitFailure
	}
	return ExitOK
}

func (a *App) fail(err error, fallback string) int {
	return report(a, domain.FromError[struct{}](err, fallback), nil)
}

// readImage charge un fichier image local. Chemin vide = pas d'image.
func readImage(path string) (*domain.Image, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.Invalid("image", "the image file does not exist")
		}
		return nil, fmt.Errorf("read image: %w", err)
	}
	return &domain.Image{
		Name:        filepath.Base(path),
		ContentType: mime.TypeByExtension(strings.ToLower(filepath.Ext(path))),
		Data:        data,
	}, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
