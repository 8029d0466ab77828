package local

import (
	"context"
	"errors"
	"slices"

	"github.com/jupiterclapton/cenackle-board/internal/adapters/secondary/entitystore"
	"github.com/jupiterclapton/cenackle-board/internal/adapters/secondary/security"
	"github.com/jupiterclapton/cenackle-board/internal/core/domain"
	"github.com/jupiterclapton/cenackle-board/internal/core/ports"
)

// Auth est le UserStorage côté inscription / connexion.
type Auth struct{ *Backend }

// uniqueEmail et uniqueNickname s'exécutent dans la mutation : deux inscriptions
// concurrentes ne peuvent pas créer le même email.
func uniqueEmail(email, selfID string) entitystore.Guard[domain.User] {
	return func(users []domain.User) error {
		if slices.ContainsFunc(users, func(u domain.User) bool {
			return u.ID != selfID && domain.NormalizeEmail(u.Email) == email
		}) {
			return domain.ErrEmailAlreadyExists
		}
		return nil
	}
}

func uniqueNickname(nickname, selfID string) entitystore.Guard[domain.User] {
	return func(users []domain.User) error {
		if slices.ContainsFunc(users, func(u domain.User) bool {
			return u.ID != selfID && u.Nickname == nickname
		}) {
			return domain.ErrNicknameTaken
		}
		return nil
	}
}

func (a *Auth) Signup(ctx context.Context, cmd ports.SignupCmd) domain.Envelope[*domain.User] {
	const failure = "signup failed"

	// 1. Hash (jamais le mot de passe en clair dans le blob)
	hash, err := a.hasher.Hash(cmd.Password)
	if err != nil {
		return fail[*domain.User](a.log, err, failure)
	}

	// 2. Image de profil (optionnelle)
	image := ""
	if !cmd.ProfileImage.Empty() && a.images != nil {
		if image, err = a.images.Upload(ctx, cmd.ProfileImage); err != nil {
			a.log.Warn("profile image rejected, using default", "error", err)
			image = ""
		}
	}

	// 3. Insertion avec contrôle d'unicité atomique
	email := domain.NormalizeEmail(cmd.Email)
	user, err := a.users.Add(ctx, domain.User{
		Email:        email,
		PasswordHash: hash,
		Nickname:     cmd.Nickname,
		ProfileImage: image,
	}, uniqueEmail(email, ""), uniqueNickname(cmd.Nickname, ""))
	if err != nil {
		return fail[*domain.User](a.log, err, failure)
	}

	a.log.Info("👤 User registered", "user_id", user.ID)
	public := user.Public()
	return domain.OK("your account has been created", &public)
}

// Login : un échec ne touche jamais à la session existante.
func (a *Auth) Login(ctx context.Context, cmd ports.LoginCmd) domain.Envelope[*domain.Session] {
	const failure = "login failed"
	email := domain.NormalizeEmail(cmd.Email)

	// 1. Recherche + vérification du hash
	found := a.users.Find(ctx, func(u *domain.User) bool { return domain.NormalizeEmail(u.Email) == email })
	if len(found) == 0 {
		return domain.FromError[*domain.Session](domain.ErrInvalidCredentials, failure)
	}
	if err := a.hasher.Compare(found[0].PasswordHash, cmd.Password); err != nil {
		if !errors.Is(err, security.ErrMismatchedPassword) {
			a.log.Warn("stored password hash unusable", "user_id", found[0].ID, "error", err)
		}
		return domain.FromError[*domain.Session](domain.ErrInvalidCredentials, failure)
	}

	// 2. Dernière connexion, et hash remis au format courant si besoin
	rehashed := a.rehash(found[0].PasswordHash, cmd.Password)
	user, err := a.users.Apply(ctx, found[0].ID, func(u *domain.User) error {
		now := a.now()
		u.LastLogin = &now
		if rehashed != "" && u.PasswordHash == found[0].PasswordHash {
			u.PasswordHash = rehashed
		}
		return nil
	})
	if err != nil {
		return fail[*domain.Session](a.log, err, failure)
	}

	// 3. Token + session (instantané public de l'utilisateur)
	token, err := a.tokens.Generate(user)
	if err != nil {
		return fail[*domain.Session](a.log, err, failure)
	}
	public := user.Public()
	sess := &domain.Session{Token: token, UserID: user.ID, Username: user.Nickname, User: &public}
	if err := a.session.Save(ctx, *sess); err != nil {
		return fail[*domain.Session](a.log, err, failure)
	}

	a.log.Info("🔑 Logged in", "user_id", user.ID)
	return domain.OK("logged in", sess)
}

// rehash renvoie un nouveau hash quand le hasher signale un format périmé, "" sinon.
func (a *Auth) rehash(hash, password string) string {
	r, ok := a.hasher.(interface{ NeedsRehash(hash string) bool })
	if !ok || !r.NeedsRehash(hash) {
		return ""
	}
	fresh, err := a.hasher.Hash(password)
	if err != nil {
		a.log.Warn("⚠️ password rehash failed", "error", err)
		return ""
	}
	a.log.Info("🔁 Password hash upgraded")
	return fresh
}

func (a *Auth) Logout(ctx context.Context) error {
	return a.session.Clear(ctx)
}

// Profile regroupe UpdateUser, UpdateProfileImage, ChangePassword et DeleteAccount.
type Profile struct{ *Backend }

// Get : userID vide = utilisateur connecté. L'image par défaut remplace une image absente.
func (p *Profile) Get(ctx context.Context, userID string) domain.Envelope[*domain.User] {
	const failure = "could not load the profile"
	var (
		user *domain.User
		err  error
	)
	if userID == "" {
		user, err = p.requireSession(ctx)
	} else {
		user, err = p.users.GetByID(ctx, userID)
	}
	if err != nil {
		return fail[*domain.User](p.log, err, failure)
	}
	public := user.Public()
	public.ProfileImage = public.ImageOrDefault()
	return domain.OK("profile loaded", &public)
}

// CheckNickname : son propre pseudo reste "disponible".
func (p *Profile) CheckNickname(ctx context.Context, nickname string) domain.Envelope[bool] {
	selfID := ""
	if sess, err := p.session.Load(ctx); err == nil {
		selfID = sess.UserID
	}
	if err := uniqueNickname(nickname, selfID)(p.users.GetAll(ctx)); err != nil {
		return domain.FromError[bool](err, "could not check the nickname")
	}
	return domain.OK("this nickname is available", true)
}

func (p *Profile) Update(ctx context.Context, cmd ports.UpdateProfileCmd) domain.Envelope[*domain.User] {
	const failure = "could not update the profile"
	self, err := p.requireSession(ctx)
	if err != nil {
		return fail[*domain.User](p.log, err, failure)
	}
	if cmd.UserID != "" && cmd.UserID != self.ID {
		return domain.FromError[*domain.User](domain.ErrForbidden, failure)
	}

	var guards []entitystore.Guard[domain.User]
	if cmd.Nickname != nil {
		guards = append(guards, uniqueNickname(*cmd.Nickname, self.ID))
	}
	user, err := p.users.Apply(ctx, self.ID, func(u *domain.User) error {
		if cmd.Nickname != nil {
			u.Nickname = *cmd.Nickname
		}
		if cmd.ProfileImageURL != nil {
			u.ProfileImage = *cmd.ProfileImageURL
		}
		return nil
	}, guards...)
	if err != nil {
		return fail[*domain.User](p.log, err, failure)
	}

	// L'instantané currentUser suit le profil
	if err := p.refreshSession(ctx, user); err != nil {
		p.log.Warn("session snapshot refresh failed", "error", err)
	}
	public := user.Public()
	public.ProfileImage = public.ImageOrDefault()
	return domain.OK("your profile has been updated", &public)
}

func (p *Profile) ChangePassword(ctx context.Context, cmd ports.ChangePasswordCmd) domain.Envelope[struct{}] {
	const failure = "could not change the password"
	self, err := p.requireSession(ctx)
	if err != nil {
		return fail[struct{}](p.log, err, failure)
	}
	if cmd.UserID != "" && cmd.UserID != self.ID {
		return domain.FromError[struct{}](domain.ErrForbidden, failure)
	}
	hash, err := p.hasher.Hash(cmd.NewPassword)
	if err != nil {
		return fail[struct{}](p.log, err, failure)
	}
	if _, err := p.users.Apply(ctx, self.ID, func(u *domain.User) error {
		u.PasswordHash = hash
		return nil
	}); err != nil {
		return fail[struct{}](p.log, err, failure)
	}
	return domain.OK("your password has been changed", struct{}{})
}

// DeleteAccount supprime l'utilisateur puis vide la session. Ses posts restent.
func (p *Profile) DeleteAccount(ctx context.Context) domain.Envelope[struct{}] {
	const failure = "could not delete the account"
	self, err := p.requireSession(ctx)
	if err != nil {
		return fail[struct{}](p.log, err, failure)
	}
	if err := p.users.Delete(ctx, self.ID); err != nil {
		return fail[struct{}](p.log, err, failure)
	}
	if err := p.session.Clear(ctx); err != nil {
		p.log.Error("❌ Failed to clear session after account deletion", "error", err)
	}
	p.log.Info("🗑️ Account deleted", "user_id", self.ID)
	return domain.OK("your account has been deleted", struct{}{})
}

func (b *Backend) refreshSession(ctx context.Context, user *domain.User) error {
	sess, err := b.session.Load(ctx)
	if err != nil || sess.UserID != user.ID {
		return err
	}
	public := user.Public()
	sess.Username = user.Nickname
	sess.User = &public
	return b.session.Save(ctx, sess)
}
