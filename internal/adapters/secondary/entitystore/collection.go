// Package entitystore implémente un CRUD générique sur une collection homogène
// sérialisée en un seul blob JSON dans un kv.Store.
package entitystore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jupiterclapton/cenackle-board/internal/adapters/secondary/kv"
	"github.com/jupiterclapton/cenackle-board/internal/core/domain"
	"github.com/jupiterclapton/cenackle-board/internal/platform/telemetry"
)

const DefaultMaxConflictRetries = 3

var (
	ErrNotLikeable   = errors.New("entitystore: entity does not support likes")
	ErrReadOnlyField = errors.New("entitystore: field cannot be patched")
)

// Ces champs ne sont jamais écrasés par un patch.
var protectedFields = []string{"id", "createdAt", "updatedAt"}

// Entity contraint P à être *T et à exposer sa Meta.
type Entity[T any] interface {
	*T
	Base() *domain.Meta
}

// Defaulter est appelé sur chaque entité ajoutée.
type Defaulter interface {
	ApplyDefaults()
}

// Normalizer rétablit les invariants de l'entité après chaque modification.
type Normalizer interface {
	Normalize()
}

// ReadOnly liste les clés JSON qu'un patch n'a pas le droit de toucher.
type ReadOnly interface {
	ReadOnlyFields() []string
}

type Likeable interface {
	ToggleLike()
}

// Patch est fusionné champ par champ (clés JSON) sur l'entité existante.
type Patch map[string]any

// Guard s'exécute dans la même mutation que l'écriture : un check-then-write atomique.
type Guard[T any] func(items []T) error

type Config struct {
	Key                string // clé du blob, ex: "posts"
	MaxConflictRetries int
	Now                func() time.Time
	NewID              func() (string, error)
	Logger             *slog.Logger
}

type Collection[T any, P Entity[T]] struct {
	store kv.Store
	cfg   Config
	log   *slog.Logger
}

func New[T any, P Entity[T]](store kv.Store, cfg Config) *Collection[T, P] {
	if cfg.MaxConflictRetries <= 0 {
		cfg.MaxConflictRetries = DefaultMaxConflictRetries
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = newID
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Collection[T, P]{
		store: store,
		cfg:   cfg,
		log:   cfg.Logger.With("collection", cfg.Key),
	}
}

// newID : UUIDv7, dérivé de l'heure de création mais unique même en rafale.
func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// --- LECTURE ---

// GetAll ne renvoie jamais d'erreur : backend en panne ou blob corrompu = collection vide.
func (c *Collection[T, P]) GetAll(ctx context.Context) []T {
	items, _, err := c.load(ctx)
	if err != nil {
		c.log.Error("failed to read collection", "error", err)
		return []T{}
	}
	return items
}

// Find filtre la collection (même politique d'échec que GetAll).
func (c *Collection[T, P]) Find(ctx context.Context, match func(*T) bool) []T {
	all := c.GetAll(ctx)
	out := make([]T, 0, len(all))
	for i := range all {
		if match(&all[i]) {
			out = append(out, all[i])
		}
	}
	return out
}

func (c *Collection[T, P]) GetByID(ctx context.Context, id string) (*T, error) {
	items, _, err := c.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.cfg.Key, err)
	}
	i := indexOf[T, P](items, id)
	if i < 0 {
		return nil, domain.ErrNotFound
	}
	return &items[i], nil
}

// --- ÉCRITURE ---

// Add attribue un id, horodate (createdAt == updatedAt), applique les défauts puis ajoute en fin.
func (c *Collection[T, P]) Add(ctx context.Context, entity T, guards ...Guard[T]) (*T, error) {
	id, err := c.cfg.NewID()
	if err != nil {
		return nil, fmt.Errorf("generate id: %w", err)
	}

	var added T
	err = c.Mutate(ctx, func(items []T) ([]T, error) {
		for _, guard := range guards {
			if err := guard(items); err != nil {
				return nil, err
			}
		}

		// Copie fraîche à chaque tentative (le CAS peut rejouer la mutation)
		added = entity
		p := P(&added)
		meta := p.Base()
		meta.ID = id
		meta.Stamp(c.cfg.Now())
		if d, ok := any(p).(Defaulter); ok {
			d.ApplyDefaults()
		}
		return append(items, added), nil
	})
	if err != nil {
		return nil, err
	}
	return &added, nil
}

// Update fusionne le patch sur l'existant et restampe updatedAt.
// Si l'id est absent, rien n'est écrit. Les guards voient la collection avant la fusion.
func (c *Collection[T, P]) Update(ctx context.Context, id string, patch Patch, guards ...Guard[T]) (*T, error) {
	var readOnly []string
	if r, ok := any(P(new(T))).(ReadOnly); ok {
		readOnly = r.ReadOnlyFields()
	}
	for k := range patch {
		if slices.Contains(readOnly, k) {
			return nil, fmt.Errorf("%w: %s", ErrReadOnlyField, k)
		}
	}
	return c.Apply(ctx, id, func(p P) error {
		merged, err := mergePatch(*p, patch)
		if err != nil {
			return err
		}
		*p = merged
		return nil
	}, guards...)
}

// Apply est la version typée d'Update : fn modifie l'entité en place.
func (c *Collection[T, P]) Apply(ctx context.Context, id string, fn func(P) error, guards ...Guard[T]) (*T, error) {
	var updated T
	err := c.Mutate(ctx, func(items []T) ([]T, error) {
		i := indexOf[T, P](items, id)
		if i < 0 {
			return nil, domain.ErrNotFound
		}
		for _, guard := range guards {
			if err := guard(items); err != nil {
				return nil, err
			}
		}

		p := P(&items[i])
		if err := fn(p); err != nil {
			return nil, err
		}
		if n, ok := any(p).(Normalizer); ok {
			n.Normalize()
		}
		// L'identité ne bouge jamais, quoi que fasse fn
		meta := p.Base()
		meta.ID = id
		meta.Touch(c.cfg.Now())

		updated = items[i]
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Collection[T, P]) Delete(ctx context.Context, id string) error {
	return c.Mutate(ctx, func(items []T) ([]T, error) {
		kept := slices.DeleteFunc(items, func(item T) bool {
			return P(&item).Base().ID == id
		})
		if len(kept) == len(items) {
			return nil, domain.ErrNotFound
		}
		return kept, nil
	})
}

// ToggleLike inverse liked et ajuste likeCount dans la même écriture.
func (c *Collection[T, P]) ToggleLike(ctx context.Context, id string) (*T, error) {
	return c.Apply(ctx, id, func(p P) error {
		l, ok := any(p).(Likeable)
		if !ok {
			return ErrNotLikeable
		}
		l.ToggleLike()
		return nil
	})
}

// Mutate est le cycle lecture -> modification -> compare-and-swap commun à toutes les écritures.
// En cas d'écrivain concurrent, la mutation est rejouée sur des données fraîches.
func (c *Collection[T, P]) Mutate(ctx context.Context, fn func(items []T) ([]T, error)) (err error) {
	ctx, span := otel.Tracer("entitystore").Start(ctx, "entitystore.Mutate")
	span.SetAttributes(attribute.String("collection", c.cfg.Key))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		telemetry.StoreMutations.WithLabelValues(c.cfg.Key, outcome(err)).Inc()
	}()

	for attempt := 0; attempt <= c.cfg.MaxConflictRetries; attempt++ {
		// 1. Lecture de la collection + révision
		items, rev, err := c.load(ctx)
		if err != nil {
			return fmt.Errorf("read %s: %w", c.cfg.Key, err)
		}

		// 2. Mutation (peut refuser : not found, guard...)
		next, err := fn(items)
		if err != nil {
			return err
		}

		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode %s: %w", c.cfg.Key, err)
		}

		// 3. Écriture conditionnelle
		_, err = c.store.CompareAndSwap(ctx, c.cfg.Key, data, rev)
		if errors.Is(err, kv.ErrRevisionMismatch) {
			telemetry.StoreConflicts.WithLabelValues(c.cfg.Key).Inc()
			c.log.Debug("concurrent write detected, re-applying", "attempt", attempt+1)
			continue
		}
		if err != nil {
			return fmt.Errorf("write %s: %w", c.cfg.Key, err)
		}
		return nil
	}
	return domain.ErrConflict
}

// --- Helpers ---

// load : clé absente ou JSON corrompu = collection vide (la révision est conservée pour le CAS).
func (c *Collection[T, P]) load(ctx context.Context) ([]T, uint64, error) {
	e, err := c.store.Get(ctx, c.cfg.Key)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return []T{}, kv.NoRevision, nil
	}
	if err != nil {
		return nil, 0, err
	}

	var items []T
	if err := json.Unmarshal(e.Value, &items); err != nil {
		c.log.Warn("⚠️ corrupted collection, treating as empty", "error", err)
		return []T{}, e.Revision, nil
	}
	if items == nil {
		items = []T{}
	}
	return items, e.Revision, nil
}

func indexOf[T any, P Entity[T]](items []T, id string) int {
	return slices.IndexFunc(items, func(item T) bool {
		return P(&item).Base().ID == id
	})
}

// mergePatch fusionne au niveau des clés JSON : seuls les champs fournis changent.
func mergePatch[T any](current T, patch Patch) (T, error) {
	var zero T

	base, err := json.Marshal(current)
	if err != nil {
		return zero, fmt.Errorf("encode entity: %w", err)
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(base, &fields); err != nil {
		return zero, fmt.Errorf("decode entity: %w", err)
	}

	for k, v := range patch {
		if slices.Contains(protectedFields, k) {
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return zero, fmt.Errorf("encode patch field %q: %w", k, err)
		}
		fields[k] = raw
	}

	merged, err := json.Marshal(fields)
	if err != nil {
		return zero, fmt.Errorf("encode merged entity: %w", err)
	}
	var out T
	if err := json.Unmarshal(merged, &out); err != nil {
		return zero, fmt.Errorf("patch does not fit entity: %w", err)
	}
	return out, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	default:
		return "rejected"
	}
}
