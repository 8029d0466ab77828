package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var (
	ErrMismatchedPassword = errors.New("invalid password")
	ErrInvalidHash        = errors.New("invalid hash format")
)

const argon2Prefix = "$argon2id$"

type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams suit la recommandation OWASP pour argon2id.
var DefaultParams = &Argon2Params{
	Memory:      64 * 1024, // 64 MB
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// FastParams est réservé aux tests (le hash par défaut coûte ~100ms).
var FastParams = &Argon2Params{
	Memory:      8 * 1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// phcString est la forme décodée de $argon2id$v=19$m=..,t=..,p=..$sel$clé.
type phcString struct {
	params Argon2Params
	salt   []byte
	key    []byte
}

func (h phcString) String() string {
	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s", argon2Prefix,
		argon2.Version, h.params.Memory, h.params.Iterations, h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(h.salt),
		base64.RawStdEncoding.EncodeToString(h.key),
	)
}

func (h phcString) derive(password string) []byte {
	p := h.params
	return argon2.IDKey([]byte(password), h.salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)
}

func parsePHC(encoded string) (phcString, error) {
	var h phcString
	rest, ok := strings.CutPrefix(encoded, argon2Prefix)
	if !ok {
		return h, ErrInvalidHash
	}
	parts := strings.Split(rest, "$")
	if len(parts) != 4 {
		return h, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[0], "v=%d", &version); err != nil {
		return h, ErrInvalidHash
	}
	if version != argon2.Version {
		return h, fmt.Errorf("%w: argon2 version %d", ErrInvalidHash, version)
	}
	if _, err := fmt.Sscanf(parts[1], "m=%d,t=%d,p=%d", &h.params.Memory, &h.params.Iterations, &h.params.Parallelism); err != nil {
		return h, ErrInvalidHash
	}

	var err error
	if h.salt, err = base64.RawStdEncoding.DecodeString(parts[2]); err != nil {
		return h, ErrInvalidHash
	}
	if h.key, err = base64.RawStdEncoding.DecodeString(parts[3]); err != nil {
		return h, ErrInvalidHash
	}
	h.params.SaltLength = uint32(len(h.salt))
	h.params.KeyLength = uint32(len(h.key))
	return h, nil
}

type Argon2Hasher struct {
	params Argon2Params
}

func NewArgon2Hasher(params *Argon2Params) *Argon2Hasher {
	if params == nil {
		params = DefaultParams
	}
	return &Argon2Hasher{params: *params}
}

func (a *Argon2Hasher) Hash(password string) (string, error) {
	h := phcString{params: a.params, salt: make([]byte, a.params.SaltLength)}
	if _, err := rand.Read(h.salt); err != nil {
		return "", err
	}
	h.key = h.derive(password)
	return h.String(), nil
}

// Compare recalcule avec les paramètres encodés dans le hash, pas avec les actuels.
func (a *Argon2Hasher) Compare(encoded, password string) error {
	h, err := parsePHC(encoded)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare(h.key, h.derive(password)) != 1 {
		return ErrMismatchedPassword
	}
	return nil
}

func (a *Argon2Hasher) Recognizes(encoded string) bool {
	return strings.HasPrefix(encoded, argon2Prefix)
}

// Outdated : le hash a été produit avec d'autres paramètres que ceux configurés.
func (a *Argon2Hasher) Outdated(encoded string) bool {
	h, err := parsePHC(encoded)
	return err != nil || h.params != a.params
}
