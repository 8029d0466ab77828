// Package kv fournit le stockage clé/valeur de blobs utilisé par l'Entity Store et la session.
// Chaque backend expose une révision par clé pour permettre des écritures compare-and-swap.
package kv

import (
	"context"
	"errors"
)

var (
	ErrKeyNotFound      = errors.New("kv: key not found")
	ErrRevisionMismatch = errors.New("kv: revision mismatch")
)

// NoRevision est la révision attendue d'une clé absente.
const NoRevision uint64 = 0

type Entry struct {
	Value    []byte
	Revision uint64
}

type Store interface {
	// Get renvoie ErrKeyNotFound si la clé n'existe pas.
	Get(ctx context.Context, key string) (Entry, error)
	// Put écrit sans condition.
	Put(ctx context.Context, key string, value []byte) (uint64, error)
	// CompareAndSwap n'écrit que si la révision courante vaut expected (NoRevision = clé absente).
	CompareAndSwap(ctx context.Context, key string, value []byte, expected uint64) (uint64, error)
	// Delete est idempotent.
	Delete(ctx context.Context, key string) error
}
