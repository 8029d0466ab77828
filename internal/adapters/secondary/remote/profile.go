package remote

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/jupiterclapton/cenackle-board/internal/adapters/secondary/gateway"
	"github.com/jupiterclapton/cenackle-board/internal/core/domain"
	"github.com/jupiterclapton/cenackle-board/internal/core/ports"
)

type ProfileAPI struct {
	client  *gateway.Client
	session ports.SessionStore
	res     Resource
	log     *slog.Logger
}

func NewProfileAPI(client *gateway.Client, session ports.SessionStore, log *slog.Logger) *ProfileAPI {
	if log == nil {
		log = slog.Default()
	}
	return &ProfileAPI{client: client, session: session, res: ProfileResource, log: log}
}

// Get charge un profil ; userID vide = l'utilisateur connecté.
func (p *ProfileAPI) Get(ctx context.Context, userID string) domain.Envelope[*domain.User] {
	if userID == "" {
		userID = p.currentUserID(ctx)
	}
	if userID == "" {
		return domain.Fail[*domain.User](gateway.ErrLoginRequired.Error())
	}
	return invoke(ctx, p.client, call{
		op:       p.res.Op("get"),
		endpoint: p.res.Path(userID),
		auth:     true,
	}, data(func(d userDTO) *domain.User {
		u := d.toDomain()
		u.ID = firstNonEmpty(u.ID, userID)
		return u
	}))
}

// CheckNickname : le tag nickname_available suffit, la donnée éventuelle est ignorée.
func (p *ProfileAPI) CheckNickname(ctx context.Context, nickname string) domain.Envelope[bool] {
	return invoke(ctx, p.client, call{
		op:       p.res.Op("nickname"),
		endpoint: p.res.Path("check-nickname"),
		opts:     gateway.RequestOptions{Query: url.Values{"nickname": {nickname}}},
	}, func(*gateway.Response, json.RawMessage) (bool, error) { return true, nil })
}

func (p *ProfileAPI) Update(ctx context.Context, cmd ports.UpdateProfileCmd) domain.Envelope[*domain.User] {
	userID := firstNonEmpty(cmd.UserID, p.currentUserID(ctx))
	fields := map[string]any{}
	if cmd.Nickname != nil {
		fields["nickname"] = *cmd.Nickname
	}
	if cmd.ProfileImageURL != nil {
		fields["profileImage"] = *cmd.ProfileImageURL
	}

	env := invoke(ctx, p.client, call{
		op:       p.res.Op("update"),
		endpoint: p.res.Path(userID),
		opts:     gateway.RequestOptions{Method: http.MethodPut, JSON: p.res.Body(fields)},
		auth:     true,
	}, data(func(d userDTO) *domain.User {
		u := d.toDomain()
		u.ID = firstNonEmpty(u.ID, userID)
		if cmd.Nickname != nil {
			u.Nickname = firstNonEmpty(u.Nickname, *cmd.Nickname)
		}
		if cmd.ProfileImageURL != nil {
			u.ProfileImage = firstNonEmpty(u.ProfileImage, *cmd.ProfileImageURL)
		}
		return u
	}))
	if env.Success {
		p.refreshSession(ctx, env.Data)
	}
	return env
}

func (p *ProfileAPI) ChangePassword(ctx context.Context, cmd ports.ChangePasswordCmd) domain.Envelope[struct{}] {
	return invoke(ctx, p.client, call{
		op:       p.res.Op("password"),
		endpoint: p.res.Path("password"),
		opts:     gateway.RequestOptions{Method: http.MethodPut, JSON: p.res.Body(map[string]any{"newPassword": cmd.NewPassword})},
		auth:     true,
	}, none)
}

// DeleteAccount vide la session une fois la suppression confirmée.
func (p *ProfileAPI) DeleteAccount(ctx context.Context) domain.Envelope[struct{}] {
	env := invoke(ctx, p.client, call{
		op:       p.res.Op("delete"),
		endpoint: p.res.Path(),
		opts:     gateway.RequestOptions{Method: http.MethodDelete},
		auth:     true,
	}, none)
	if env.Success {
		if err := p.session.Clear(ctx); err != nil {
			p.log.Error("❌ Failed to clear session after account deletion", "error", err)
		}
	}
	return env
}

func (p *ProfileAPI) currentUserID(ctx context.Context) string {
	sess, err := p.session.Load(ctx)
	if err != nil {
		return ""
	}
	return sess.UserID
}

// refreshSession garde le pseudo affiché en phase avec le profil.
func (p *ProfileAPI) refreshSession(ctx context.Context, u *domain.User) {
	sess, err := p.session.Load(ctx)
	if err != nil || sess.UserID != u.ID {
		return
	}
	sess.Username = firstNonEmpty(u.Nickname, sess.Username)
	if sess.User != nil {
		sess.User.Nickname = sess.Username
		sess.User.ProfileImage = firstNonEmpty(u.ProfileImage, sess.User.ProfileImage)
	}
	if err := p.session.Save(ctx, sess); err != nil {
		p.log.Warn("session refresh failed", "error", err)
	}
}
