package security

import "fmt"

// Format est un algorithme capable de reconnaître ses propres hashs.
type Format interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
	Recognizes(hash string) bool
	Outdated(hash string) bool
}

// MultiHasher hache avec l'algo principal mais vérifie aussi les hashs des autres formats
// (on change d'algo sans forcer tous les users à réinitialiser).
type MultiHasher struct {
	primary Format
	formats []Format
}

// NewHasher choisit l'algo principal : "argon2id" (défaut) ou "bcrypt".
func NewHasher(algo string, argonParams *Argon2Params, bcryptCost int) (*MultiHasher, error) {
	argon, bc := NewArgon2Hasher(argonParams), NewBcryptHasher(bcryptCost)
	switch algo {
	case "", "argon2id":
		return &MultiHasher{primary: argon, formats: []Format{argon, bc}}, nil
	case "bcrypt":
		return &MultiHasher{primary: bc, formats: []Format{bc, argon}}, nil
	default:
		return nil, fmt.Errorf("unknown password hasher: %s", algo)
	}
}

func (m *MultiHasher) Hash(password string) (string, error) {
	return m.primary.Hash(password)
}

func (m *MultiHasher) Compare(hash, password string) error {
	f := m.formatOf(hash)
	if f == nil {
		return ErrInvalidHash
	}
	return f.Compare(hash, password)
}

// NeedsRehash : le hash vient d'un autre algo, ou de l'algo principal avec d'anciens paramètres.
func (m *MultiHasher) NeedsRehash(hash string) bool {
	return m.formatOf(hash) != m.primary || m.primary.Outdated(hash)
}

func (m *MultiHasher) formatOf(hash string) Format {
	for _, f := range m.formats {
		if f.Recognizes(hash) {
			return f
		}
	}
	return nil
}
