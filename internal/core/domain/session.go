package domain

import "time"

// Session : la présence du token est le seul signal "connecté". Aucune expiration suivie côté client.
type Session struct {
	Token    string `json:"authToken"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
	// User est l'instantané currentUser (variante locale uniquement).
	User *User `json:"currentUser,omitempty"`
}

func (s Session) LoggedIn() bool { return s.Token != "" }

// Draft est l'état d'un formulaire en cours de saisie, sauvegardé automatiquement.
type Draft struct {
	Data      map[string]string `json:"data"`
	Timestamp time.Time         `json:"timestamp"`
}

const (
	DraftSignup = "signupForm"
	DraftLogin  = "loginForm"
)

// Image est un fichier envoyé par l'utilisateur (profil ou illustration de post).
type Image struct {
	Name        string
	ContentType string
	Data        []byte
}

func (i *Image) Empty() bool { return i == nil || len(i.Data) == 0 }
