// Package media transforme une image envoyée par l'utilisateur en URL affichable.
package media

import (
	"context"
	"encoding/base64"
	"net/http"
	"path"
	"slices"

	"github.com/jupiterclapton/cenackle-board/internal/core/domain"
)

const MaxImageBytes = 5 << 20

var allowedTypes = []string{"image/png", "image/jpeg", "image/gif", "image/webp"}

// sniff vérifie taille et type réel (le type annoncé par le client n'est pas cru).
func sniff(img *domain.Image) (string, error) {
	if img.Empty() {
		return "", domain.Invalid("image", "please choose an image")
	}
	if len(img.Data) > MaxImageBytes {
		return "", domain.Invalid("image", "the image must be 5 MB or less")
	}
	ct := http.DetectContentType(img.Data)
	if !slices.Contains(allowedTypes, ct) {
		return "", domain.Invalid("image", "only PNG, JPEG, GIF and WebP images are accepted")
	}
	return ct, nil
}

// DataURLStore encode l'image dans l'URL elle-même (variante locale, aucun stockage externe).
type DataURLStore struct{}

func (DataURLStore) Upload(_ context.Context, img *domain.Image) (string, error) {
	ct, err := sniff(img)
	if err != nil {
		return "", err
	}
	return "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(img.Data), nil
}

func extension(ct, name string) string {
	if ext := path.Ext(name); ext != "" {
		return ext
	}
	switch ct {
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
