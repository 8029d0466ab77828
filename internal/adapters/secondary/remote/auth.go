package remote

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jupiterclapton/cenackle-board/internal/adapters/secondary/gateway"
	"github.com/jupiterclapton/cenackle-board/internal/adapters/secondary/security"
	"github.com/jupiterclapton/cenackle-board/internal/core/domain"
	"github.com/jupiterclapton/cenackle-board/internal/core/ports"
)

type AuthAPI struct {
	client  *gateway.Client
	session ports.SessionStore
	res     Resource
	log     *slog.Logger
}

func NewAuthAPI(client *gateway.Client, session ports.SessionStore, log *slog.Logger) *AuthAPI {
	if log == nil {
		log = slog.Default()
	}
	return &AuthAPI{client: client, session: session, res: AuthResource, log: log}
}

// Signup envoie le formulaire en multipart (l'image de profil est un fichier).
func (a *AuthAPI) Signup(ctx context.Context, cmd ports.SignupCmd) domain.Envelope[*domain.User] {
	form := &gateway.Multipart{Fields: []gateway.FormField{
		{Name: "email", Value: domain.NormalizeEmail(cmd.Email)},
		{Name: "password", Value: cmd.Password},
		{Name: "nickname", Value: cmd.Nickname},
	}}
	if !cmd.ProfileImage.Empty() {
		form.Files = append(form.Files, gateway.FormFile{
			Field:       a.fieldName("profileImage"),
			Filename:    cmd.ProfileImage.Name,
			ContentType: cmd.ProfileImage.ContentType,
			Data:        cmd.ProfileImage.Data,
		})
	}

	return invoke(ctx, a.client, call{
		op:       a.res.Op("signup"),
		endpoint: a.res.Path("signup"),
		opts:     gateway.RequestOptions{Method: http.MethodPost, Form: form},
	}, data(func(u userDTO) *domain.User {
		user := u.toDomain()
		if user.Email == "" {
			user.Email = domain.NormalizeEmail(cmd.Email)
		}
		if user.Nickname == "" {
			user.Nickname = cmd.Nickname
		}
		return user
	}))
}

// Login n'écrit la session qu'en cas de succès : un échec laisse la session précédente intacte.
func (a *AuthAPI) Login(ctx context.Context, cmd ports.LoginCmd) domain.Envelope[*domain.Session] {
	op := a.res.Op("login")
	return gateway.PublicRequest(ctx, a.client, func(ctx context.Context) (domain.Envelope[*domain.Session], error) {
		resp, err := a.client.Request(ctx, a.res.Path("login"), gateway.RequestOptions{
			Method: http.MethodPost,
			JSON: map[string]string{
				"email":    domain.NormalizeEmail(cmd.Email),
				"password": cmd.Password,
			},
		}, false)
		if err != nil {
			return domain.Envelope[*domain.Session]{}, err
		}

		env, err := decodeAs(resp, op, func(_ *gateway.Response, d loginDTO) (*domain.Session, error) {
			return a.sessionFrom(d)
		})
		if err != nil {
			return env, err
		}
		if err := a.session.Save(ctx, *env.Data); err != nil {
			return domain.Envelope[*domain.Session]{}, fmt.Errorf("save session: %w", err)
		}
		a.log.Info("🔑 Logged in", "user_id", env.Data.UserID)
		return env, nil
	}, op.Failure)
}

func (a *AuthAPI) Logout(ctx context.Context) error {
	return a.session.Clear(ctx)
}

// sessionFrom complète l'id et le pseudo depuis les claims du token si la réponse ne les porte pas.
func (a *AuthAPI) sessionFrom(d loginDTO) (*domain.Session, error) {
	if d.Token == "" {
		return nil, fmt.Errorf("%w: missing token", gateway.ErrUnexpectedFormat)
	}
	user := d.User.toDomain()
	sess := &domain.Session{
		Token:    d.Token,
		UserID:   firstNonEmpty(string(d.UserID), string(d.UserId), user.ID),
		Username: firstNonEmpty(d.Nickname, d.Username, user.Nickname),
	}
	if sess.UserID == "" || sess.Username == "" {
		if claims, err := security.DecodeUnverified(d.Token); err == nil {
			sess.UserID = firstNonEmpty(sess.UserID, claims.UserID)
			sess.Username = firstNonEmpty(sess.Username, claims.Username)
		} else {
			a.log.Warn("token claims unreadable", "error", err)
		}
	}
	if user.ID != "" {
		sess.User = user
	}
	return sess, nil
}

func (a *AuthAPI) fieldName(field string) string {
	if wire, ok := a.res.Fields[field]; ok {
		return wire
	}
	return field
}
