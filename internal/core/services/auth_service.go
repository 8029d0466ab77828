package services

import (
	"context"
	"log/slog"

	"github.com/jupiterclapton/cenackle-board/internal/core/domain"
	"github.com/jupiterclapton/cenackle-board/internal/core/ports"
)

type AuthService struct {
	backend   ports.AuthBackend
	session   ports.SessionStore
	publisher ports.EventPublisher
	effects   *sideEffects
	log       *slog.Logger
}

func NewAuthService(backend ports.AuthBackend, session ports.SessionStore, pub ports.EventPublisher, log *slog.Logger) *AuthService {
	if log == nil {
		log = slog.Default()
	}
	return &AuthService{
		backend:   backend,
		session:   session,
		publisher: pub,
		effects:   newSideEffects(0, log),
		log:       log,
	}
}

var _ ports.AuthModel = (*AuthService)(nil)

func (s *AuthService) Signup(ctx context.Context, cmd ports.SignupCmd) domain.Envelope[*domain.User] {
	// 1. Validation (avant toute I/O)
	if err := validateSignup(cmd); err != nil {
		return domain.FromError[*domain.User](err, "signup failed")
	}

	// 2. Backend
	env := s.backend.Signup(ctx, cmd)
	if !env.Success {
		return env
	}

	// 3. Événement (la donnée est sauvée : un échec ici ne fait pas échouer l'inscription)
	if env.Data != nil && s.publisher != nil {
		user := env.Data
		s.effects.run(ctx, "user_registered", func(ctx context.Context) error {
			return s.publisher.PublishUserRegistered(ctx, user.ID, user.Email)
		})
	}
	return env
}

func validateSignup(cmd ports.SignupCmd) error {
	if err := domain.ValidateEmail(cmd.Email); err != nil {
		return err
	}
	if err := domain.ValidatePassword(cmd.Password); err != nil {
		return err
	}
	if err := domain.ValidatePasswordConfirm(cmd.Password, cmd.PasswordConfirm); err != nil {
		return err
	}
	return domain.ValidateNickname(cmd.Nickname, domain.MaxSignupNickname)
}

// Login : seuls les champs requis sont vérifiés ici, le format du mot de passe ne fuit pas.
func (s *AuthService) Login(ctx context.Context, cmd ports.LoginCmd) domain.Envelope[*domain.Session] {
	if err := domain.ValidateEmail(cmd.Email); err != nil {
		return domain.FromError[*domain.Session](err, "login failed")
	}
	if cmd.Password == "" {
		return domain.FromError[*domain.Session](domain.Invalid("password", "please enter a password"), "login failed")
	}
	return s.backend.Login(ctx, cmd)
}

func (s *AuthService) Logout(ctx context.Context) domain.Envelope[struct{}] {
	if err := s.backend.Logout(ctx); err != nil {
		s.log.Error("❌ Logout failed", "error", err)
		return domain.FromError[struct{}](err, "logout failed")
	}
	return domain.OK("logged out", struct{}{})
}

// IsLoggedIn : la présence du token suffit, aucune expiration n'est suivie côté client.
func (s *AuthService) IsLoggedIn(ctx context.Context) bool {
	return s.Current(ctx).LoggedIn()
}

func (s *AuthService) Current(ctx context.Context) domain.Session {
	sess, err := s.session.Load(ctx)
	if err != nil {
		s.log.Warn("session unreadable", "error", err)
		return domain.Session{}
	}
	return sess
}
