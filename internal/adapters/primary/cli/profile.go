package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/jupiterclapton/cenackle-board/internal/core/domain"
	"github.com/jupiterclapton/cenackle-board/internal/core/ports"
)

// showProfile sans argument affiche l'utilisateur connecté.
func (a *App) showProfile(ctx context.Context, args []string) int {
	pos, ok := a.parse(a.flagSet("profile"), args, 0)
	if !ok {
		return ExitUsage
	}
	var userID string
	if len(pos) > 0 {
		userID = pos[0]
	}
	return report(a, a.profile.Get(ctx, userID), renderUser)
}

func (a *App) editProfile(ctx context.Context, args []string) int {
	fs := a.flagSet("profile-edit")
	nickname := fs.String("nickname", "", "new nickname, 10 characters max")
	image := fs.String("image", "", "new profile image file")
	if _, ok := a.parse(fs, args, 0); !ok {
		return ExitUsage
	}

	cmd := ports.UpdateProfileCmd{UserID: a.auth.Current(ctx).UserID}
	if visited(fs)["nickname"] {
		cmd.Nickname = nickname
	}
	img, err := readImage(*image)
	if err != nil {
		return a.fail(err, "could not read the image")
	}
	cmd.ProfileImage = img
	return report(a, a.profile.Update(ctx, cmd), renderUser)
}

func (a *App) checkNickname(ctx context.Context, args []string) int {
	pos, ok := a.parse(a.flagSet("nickname"), args, 1)
	if !ok {
		return ExitUsage
	}
	return report(a, a.profile.CheckNickname(ctx, pos[0]), func(w io.Writer, available bool) {
		if available {
			fmt.Fprintf(w, "%q is available\n", pos[0])
		} else {
			fmt.Fprintf(w, "%q is already taken\n", pos[0])
		}
	})
}

func (a *App) changePassword(ctx context.Context, args []string) int {
	fs := a.flagSet("password")
	newPassword := fs.String("new", "", "new password")
	confirm := fs.String("confirm", "", "new password confirmation")
	if _, ok := a.parse(fs, args, 0); !ok {
		return ExitUsage
	}
	return report(a, a.profile.ChangePassword(ctx, ports.ChangePasswordCmd{
		UserID:          a.auth.Current(ctx).UserID,
		NewPassword:     *newPassword,
		PasswordConfirm: *confirm,
	}), nil)
}

// deleteAccount exige -yes : pas de retour arrière possible.
func (a *App) deleteAccount(ctx context.Context, args []string) int {
	fs := a.flagSet("unregister")
	yes := fs.Bool("yes", false, "confirm the account deletion")
	if _, ok := a.parse(fs, args, 0); !ok {
		return ExitUsage
	}
	if !*yes {
		return a.fail(domain.Invalid("yes", "add -yes to delete your account for good"), "account not deleted")
	}
	return report(a, a.profile.DeleteAccount(ctx), nil)
}
