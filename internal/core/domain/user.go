package domain

import (
	"net/mail"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

const (
	DefaultProfileImage = "/shared/assets/images/default-profile.svg"

	MinPasswordLength  = 8
	MaxPasswordLength  = 20
	MaxSignupNickname  = 20
	MaxProfileNickname = 10
)

// --- ENTITÉ ---

type User struct {
	Meta
	Email        string     `json:"email"`
	PasswordHash string     `json:"password,omitempty"`
	Nickname     string     `json:"nickname"`
	ProfileImage string     `json:"profileImage,omitempty"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
}

// Public renvoie une copie sans le hash (pour la session et les réponses).
func (u User) Public() User {
	u.PasswordHash = ""
	return u
}

// ImageOrDefault renvoie l'image de profil ou l'image par défaut.
func (u User) ImageOrDefault() string {
	if u.ProfileImage == "" {
		return DefaultProfileImage
	}
	return u.ProfileImage
}

// NormalizeEmail : l'email est la clé d'unicité, on la compare toujours normalisée.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// --- VALIDATEURS ---

func ValidateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return Invalid("email", "please enter an email")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return Invalid("email", "please enter a valid email address")
	}
	return nil
}

// ValidatePassword : 8 à 20 caractères avec majuscule, minuscule, chiffre et caractère spécial.
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n == 0 {
		return Invalid("password", "please enter a password")
	}
	if n < MinPasswordLength || n > MaxPasswordLength {
		return Invalid("password", "the password must be 8 to 20 characters long")
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	if !upper || !lower || !digit || !special {
		return Invalid("password", "the password needs an uppercase, a lowercase, a digit and a special character")
	}
	return nil
}

func ValidatePasswordConfirm(password, confirm string) error {
	if confirm == "" {
		return Invalid("passwordConfirm", "please confirm the password")
	}
	if password != confirm {
		return Invalid("passwordConfirm", "the passwords do not match")
	}
	return nil
}

// ValidateNickname : pas d'espace, longueur bornée par maxLen.
func ValidateNickname(nickname string, maxLen int) error {
	if nickname == "" {
		return Invalid("nickname", "please enter a nickname")
	}
	if strings.ContainsFunc(nickname, unicode.IsSpace) {
		return Invalid("nickname", "the nickname cannot contain spaces")
	}
	if utf8.RuneCountInString(nickname) > maxLen {
		return Invalid("nickname", "the nickname is too long")
	}
	return nil
}
