package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jupiterclapton/cenackle-board/internal/core/domain"
)

// UserClaims étend les claims standards JWT
type UserClaims struct {
	UserID   string `json:"user_id,omitempty"`
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// JWTProvider signe les tokens de la variante locale (HS256, secret partagé).
// Pas d'expiration : côté client, la présence du token vaut session.
type JWTProvider struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewJWTProvider(secret []byte, issuer string) (*JWTProvider, error) {
	if len(secret) < 16 {
		return nil, errors.New("jwt secret must be at least 16 bytes")
	}
	return &JWTProvider{secret: secret, issuer: issuer, now: time.Now}, nil
}

func (j *JWTProvider) Generate(user *domain.User) (string, error) {
	now := j.now()
	claims := UserClaims{
		UserID:   user.ID,
		Email:    user.Email,
		Username: user.Nickname,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
			Issuer:   j.issuer,
			Subject:  user.ID,
			ID:       fmt.Sprintf("%s-%d", user.ID, now.UnixNano()), // JTI unique
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
}

// Validate vérifie la signature et retourne l'UserID (Subject)
func (j *JWTProvider) Validate(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Empêche les attaques où l'attaquant force l'algo à "none"
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secret, nil
	}, jwt.WithIssuer(j.issuer))
	if err != nil {
		return "", errors.Join(domain.ErrLoginRequired, err)
	}

	claims, ok := token.Claims.(*UserClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", domain.ErrLoginRequired
	}
	return claims.Subject, nil
}

// DecodeUnverified lit les claims d'un token émis par l'API distante, sans vérifier la signature.
// Le client n'a pas la clé : ces claims ne servent qu'à l'affichage (id, pseudo).
func DecodeUnverified(tokenString string) (*UserClaims, error) {
	claims := &UserClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	return claims, nil
}
