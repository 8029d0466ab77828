package services

import (
	"context"

	"github.com/jupiterclapton/cenackle-board/internal/core/domain"
	"github.com/jupiterclapton/cenackle-board/internal/core/ports"
)

type ProfileService struct {
	backend ports.ProfileBackend
	images  ports.ImageStore
}

func NewProfileService(backend ports.ProfileBackend, images ports.ImageStore) *ProfileService {
	return &ProfileService{backend: backend, images: images}
}

var _ ports.ProfileModel = (*ProfileService)(nil)

func (s *ProfileService) Get(ctx context.Context, userID string) domain.Envelope[*domain.User] {
	return s.backend.Get(ctx, userID)
}

func (s *ProfileService) CheckNickname(ctx context.Context, nickname string) domain.Envelope[bool] {
	if err := domain.ValidateNickname(nickname, domain.MaxSignupNickname); err != nil {
		return domain.FromError[bool](err, "could not check the nickname")
	}
	return s.backend.CheckNickname(ctx, nickname)
}

// Update : pseudo de 10 caractères max sur le profil ; l'image est uploadée d'abord.
func (s *ProfileService) Update(ctx context.Context, cmd ports.UpdateProfileCmd) domain.Envelope[*domain.User] {
	const failure = "could not update the profile"
	if cmd.Nickname != nil {
		if err := domain.ValidateNickname(*cmd.Nickname, domain.MaxProfileNickname); err != nil {
			return domain.FromError[*domain.User](err, failure)
		}
	}
	if !cmd.ProfileImage.Empty() {
		if s.images == nil {
			return domain.FromError[*domain.User](domain.Invalid("image", "image uploads are not available"), failure)
		}
		url, err := s.images.Upload(ctx, cmd.ProfileImage)
		if err != nil {
			return domain.FromError[*domain.User](err, "could not upload the image")
		}
		cmd.ProfileImageURL = &url
	}
	if cmd.Nickname == nil && cmd.ProfileImageURL == nil {
		return domain.FromError[*domain.User](domain.Invalid("nickname", "nothing to update"), failure)
	}
	return s.backend.Update(ctx, cmd)
}

func (s *ProfileService) ChangePassword(ctx context.Context, cmd ports.ChangePasswordCmd) domain.Envelope[struct{}] {
	const failure = "could not change the password"
	if err := domain.ValidatePassword(cmd.NewPassword); err != nil {
		return domain.FromError[struct{}](err, failure)
	}
	if err := domain.ValidatePasswordConfirm(cmd.NewPassword, cmd.PasswordConfirm); err != nil {
		return domain.FromError[struct{}](err, failure)
	}
	return s.backend.ChangePassword(ctx, cmd)
}

func (s *ProfileService) DeleteAccount(ctx context.Context) domain.Envelope[struct{}] {
	return s.backend.DeleteAccount(ctx)
}
