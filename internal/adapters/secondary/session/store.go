// Package session persiste l'état de connexion et les brouillons dans un kv.Store,
// avec les mêmes clés que le client web (authToken, userId, username, currentUser).
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jupiterclapton/cenackle-board/internal/adapters/secondary/kv"
	"github.com/jupiterclapton/cenackle-board/internal/core/domain"
)

const (
	KeyToken       = "authToken"
	KeyUserID      = "userId"
	KeyUsername    = "username"
	KeyCurrentUser = "currentUser"
)

var sessionKeys = []string{KeyToken, KeyUserID, KeyUsername, KeyCurrentUser}

type Store struct {
	kv kv.Store
}

func NewStore(store kv.Store) *Store {
	return &Store{kv: store}
}

// Load ne renvoie une erreur que si le backend est en panne : clé absente ou illisible = champ vide.
func (s *Store) Load(ctx context.Context) (domain.Session, error) {
	var sess domain.Session
	fields := map[string]any{
		KeyToken:       &sess.Token,
		KeyUserID:      &sess.UserID,
		KeyUsername:    &sess.Username,
		KeyCurrentUser: &sess.User,
	}
	for key, dst := range fields {
		if err := s.get(ctx, key, dst); err != nil {
			return domain.Session{}, err
		}
	}
	return sess, nil
}

// Save écrit les champs non vides et supprime les autres (pas de reliquat d'une session précédente).
func (s *Store) Save(ctx context.Context, sess domain.Session) error {
	values := map[string]any{
		KeyToken:    sess.Token,
		KeyUserID:   sess.UserID,
		KeyUsername: sess.Username,
	}
	if sess.User != nil {
		public := sess.User.Public()
		values[KeyCurrentUser] = &public
	}

	for _, key := range sessionKeys {
		v, ok := values[key]
		if !ok || v == "" {
			if err := s.kv.Delete(ctx, key); err != nil {
				return fmt.Errorf("clear %s: %w", key, err)
			}
			continue
		}
		if err := s.put(ctx, key, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	var errs []error
	for _, key := range sessionKeys {
		if err := s.kv.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("clear %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// --- BROUILLONS ---

func (s *Store) SaveDraft(ctx context.Context, key string, d domain.Draft) error {
	return s.put(ctx, key, d)
}

func (s *Store) LoadDraft(ctx context.Context, key string) (*domain.Draft, error) {
	var d *domain.Draft
	if err := s.get(ctx, key, &d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Store) ClearDraft(ctx context.Context, key string) error {
	return s.kv.Delete(ctx, key)
}

// --- Helpers ---

func (s *Store) get(ctx context.Context, key string, dst any) error {
	e, err := s.kv.Get(ctx, key)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(e.Value, dst); err != nil {
		slog.Warn("⚠️ ignoring unreadable session value", "key", key, "error", err)
	}
	return nil
}

func (s *Store) put(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if _, err := s.kv.Put(ctx, key, data); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
