package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jupiterclapton/cenackle-board/internal/adapters/secondary/gateway"
	"github.com/jupiterclapton/cenackle-board/internal/core/domain"
)

const uploadEndpoint = "/api/upload/image"

// ImageUploader envoie un fichier à l'API et renvoie son image_url.
// Cette route ne suit pas la convention {message, data} : on lit image_url au premier niveau.
type ImageUploader struct {
	client *gateway.Client
}

func NewImageUploader(client *gateway.Client) *ImageUploader {
	return &ImageUploader{client: client}
}

func (u *ImageUploader) Upload(ctx context.Context, img *domain.Image) (string, error) {
	if img.Empty() {
		return "", domain.Invalid("image", "please choose an image")
	}
	resp, err := u.client.Request(ctx, uploadEndpoint, gateway.RequestOptions{
		Method: http.MethodPost,
		Form: &gateway.Multipart{Files: []gateway.FormFile{{
			Field:       "image",
			Filename:    img.Name,
			ContentType: img.ContentType,
			Data:        img.Data,
		}}},
	}, true)
	if err != nil {
		return "", err
	}

	var imageURL string
	if raw, ok := resp.Fields["image_url"]; ok {
		_ = json.Unmarshal(raw, &imageURL)
	}
	if imageURL == "" && len(resp.Data) > 0 {
		var nested struct {
			ImageURL string `json:"image_url"`
		}
		_ = json.Unmarshal(resp.Data, &nested)
		imageURL = nested.ImageURL
	}
	if imageURL == "" {
		return "", fmt.Errorf("%w: missing image_url", gateway.ErrUnexpectedFormat)
	}
	return imageURL, nil
}
