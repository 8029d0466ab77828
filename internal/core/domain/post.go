package domain

import "unicode/utf8"

const (
	MaxTitleLength = 26

	SortLatest  = "latest"
	SortPopular = "popular"
)

type Post struct {
	Meta
	Title        string `json:"title"`
	Content      string `json:"content"`
	AuthorID     string `json:"authorId"`
	AuthorName   string `json:"authorName,omitempty"`
	ImageURL     string `json:"imageUrl,omitempty"`
	ViewCount    int    `json:"viewCount"`
	CommentCount int    `json:"commentCount"`
	LikeCount    int    `json:"likeCount"`
	// Liked est global dans la variante locale (pas par lecteur).
	Liked bool `json:"liked"`
}

// ApplyDefaults est appelé à la création : compteurs >= 0, pas encore aimé.
func (p *Post) ApplyDefaults() {
	p.Liked = false
	p.Normalize()
}

// Normalize est rejoué après chaque écriture : aucun compteur négatif.
func (p *Post) Normalize() {
	p.ViewCount = max(p.ViewCount, 0)
	p.CommentCount = max(p.CommentCount, 0)
	p.LikeCount = max(p.LikeCount, 0)
}

// ReadOnlyFields : liked et likeCount ne bougent qu'ensemble, via SetLiked.
func (p *Post) ReadOnlyFields() []string {
	return []string{"liked", "likeCount"}
}

// ToggleLike inverse liked et déplace likeCount d'une unité dans le même sens.
func (p *Post) ToggleLike() {
	p.SetLiked(!p.Liked)
}

// SetLiked est idempotent : renvoie false si l'état était déjà celui demandé.
func (p *Post) SetLiked(liked bool) bool {
	if p.Liked == liked {
		return false
	}
	p.Liked = liked
	if liked {
		p.LikeCount++
	} else if p.LikeCount > 0 {
		p.LikeCount--
	}
	return true
}

func (p *Post) AddComments(delta int) {
	p.CommentCount = max(p.CommentCount+delta, 0)
}

func ValidatePost(title, content string) error {
	if err := ValidateTitle(title); err != nil {
		return err
	}
	return ValidateContent(content)
}

func ValidateTitle(title string) error {
	switch {
	case title == "":
		return Invalid("title", "please enter a title")
	case utf8.RuneCountInString(title) > MaxTitleLength:
		return Invalid("title", "the title can be at most 26 characters")
	}
	return nil
}

func ValidateContent(content string) error {
	if content == "" {
		return Invalid("content", "please enter the content")
	}
	return nil
}

type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
}

type PostPage struct {
	Posts      []Post     `json:"posts"`
	Pagination Pagination `json:"pagination"`
}
