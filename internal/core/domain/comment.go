package domain

type Comment struct {
	Meta
	PostID     string `json:"postId"`
	AuthorID   string `json:"authorId"`
	AuthorName string `json:"authorName,omitempty"`
	Content    string `json:"content"`
}

func ValidateComment(content string) error {
	if content == "" {
		return Invalid("content", "please enter a comment")
	}
	return nil
}
