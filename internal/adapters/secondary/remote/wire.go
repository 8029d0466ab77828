package remote

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/jupiterclapton/cenackle-board/internal/core/domain"
)

// wireID accepte un identifiant numérique ou texte (le serveur renvoie des entiers).
type wireID string

func (id *wireID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = wireID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = wireID(n.String())
	return nil
}

// wireImage accepte une URL, un tableau d'octets, ou un Buffer sérialisé {type, data:[...]}.
// Les octets sont convertis en data URL pour l'affichage.
type wireImage string

func (img *wireImage) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || string(b) == "null":
		*img = ""
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*img = wireImage(s)
		return nil
	case b[0] == '[':
		var raw []int
		if err := json.Unmarshal(b, &raw); err != nil {
			return fmt.Errorf("image bytes: %w", err)
		}
		*img = wireImage(bytesToDataURL(raw))
		return nil
	default:
		var buf struct {
			Data []int `json:"data"`
		}
		if err := json.Unmarshal(b, &buf); err != nil {
			return fmt.Errorf("image buffer: %w", err)
		}
		*img = wireImage(bytesToDataURL(buf.Data))
		return nil
	}
}

func bytesToDataURL(raw []int) string {
	if len(raw) == 0 {
		return ""
	}
	data := make([]byte, len(raw))
	for i, v := range raw {
		data[i] = byte(v)
	}
	return "data:" + http.DetectContentType(data) + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// --- UTILISATEUR ---

// userDTO : le serveur parle de "username" là où le client dit "nickname".
type userDTO struct {
	ID           wireID     `json:"id"`
	UserID       wireID     `json:"user_id"`
	Email        string     `json:"email"`
	Nickname     string     `json:"nickname"`
	Username     string     `json:"username"`
	ProfileImage wireImage  `json:"profile_image"`
	ProfileImg   wireImage  `json:"profileImg"`
	CreatedAt    *time.Time `json:"created_at"`
}

func (u userDTO) toDomain() *domain.User {
	out := &domain.User{
		Email:        u.Email,
		Nickname:     firstNonEmpty(u.Nickname, u.Username),
		ProfileImage: firstNonEmpty(string(u.ProfileImage), string(u.ProfileImg)),
	}
	out.ID = firstNonEmpty(string(u.ID), string(u.UserID))
	if u.CreatedAt != nil {
		out.CreatedAt = *u.CreatedAt
		out.UpdatedAt = *u.CreatedAt
	}
	return out
}

type loginDTO struct {
	Token    string  `json:"token"`
	UserID   wireID  `json:"user_id"`
	UserId   wireID  `json:"userId"`
	Nickname string  `json:"nickname"`
	Username string  `json:"username"`
	User     userDTO `json:"user"`
}

// --- POSTS ---

type postDTO struct {
	ID           wireID     `json:"id"`
	PostID       wireID     `json:"post_id"`
	Title        string     `json:"title"`
	Content      string     `json:"content"`
	AuthorID     wireID     `json:"user_id"`
	Author       string     `json:"author"`
	Nickname     string     `json:"nickname"`
	ImageURL     string     `json:"image_url"`
	ViewCount    int        `json:"view_count"`
	CommentCount int        `json:"comment_count"`
	LikeCount    int        `json:"like_count"`
	Liked        *bool      `json:"liked"`
	CreatedAt    *time.Time `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at"`
}

func (p postDTO) toDomain() domain.Post {
	out := domain.Post{
		Title:        p.Title,
		Content:      p.Content,
		AuthorID:     string(p.AuthorID),
		AuthorName:   firstNonEmpty(p.Nickname, p.Author),
		ImageURL:     p.ImageURL,
		ViewCount:    p.ViewCount,
		CommentCount: p.CommentCount,
		LikeCount:    p.LikeCount,
	}
	out.ID = firstNonEmpty(string(p.ID), string(p.PostID))
	if p.Liked != nil {
		out.Liked = *p.Liked
	}
	if p.CreatedAt != nil {
		out.CreatedAt = *p.CreatedAt
		out.UpdatedAt = *p.CreatedAt
	}
	if p.UpdatedAt != nil {
		out.UpdatedAt = *p.UpdatedAt
	}
	return out
}

// paginationDTO tolère les deux conventions de nommage vues côté serveur.
type paginationDTO struct {
	Page        int   `json:"page"`
	CurrentPage int   `json:"currentPage"`
	Limit       int   `json:"limit"`
	Total       int   `json:"total"`
	TotalCount  int   `json:"totalCount"`
	TotalPages  int   `json:"totalPages"`
	HasNext     *bool `json:"hasNext"`
}

func (p paginationDTO) toDomain(page, limit, got int) domain.Pagination {
	out := domain.Pagination{
		Page:       max(p.Page, p.CurrentPage, page),
		Limit:      max(p.Limit, limit),
		Total:      max(p.Total, p.TotalCount),
		TotalPages: p.TotalPages,
	}
	if out.TotalPages == 0 && out.Limit > 0 {
		out.TotalPages = (out.Total + out.Limit - 1) / out.Limit
	}
	switch {
	case p.HasNext != nil:
		out.HasNext = *p.HasNext
	case out.TotalPages > 0:
		out.HasNext = out.Page < out.TotalPages
	default:
		// Sans métadonnées : une page pleine laisse supposer une suite.
		out.HasNext = out.Limit > 0 && got >= out.Limit
	}
	return out
}

// --- COMMENTAIRES ---

type commentDTO struct {
	ID        wireID     `json:"id"`
	CommentID wireID     `json:"comment_id"`
	PostID    wireID     `json:"post_id"`
	AuthorID  wireID     `json:"user_id"`
	Nickname  string     `json:"nickname"`
	Author    string     `json:"author"`
	Content   string     `json:"content"`
	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

func (c commentDTO) toDomain(postID string) domain.Comment {
	out := domain.Comment{
		PostID:     firstNonEmpty(string(c.PostID), postID),
		AuthorID:   string(c.AuthorID),
		AuthorName: firstNonEmpty(c.Nickname, c.Author),
		Content:    c.Content,
	}
	out.ID = firstNonEmpty(string(c.ID), string(c.CommentID))
	if c.CreatedAt != nil {
		out.CreatedAt = *c.CreatedAt
		out.UpdatedAt = *c.CreatedAt
	}
	if c.UpdatedAt != nil {
		out.UpdatedAt = *c.UpdatedAt
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func itoa(n int) string { return strconv.Itoa(n) }
