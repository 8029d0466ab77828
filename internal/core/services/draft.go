package services

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/jupiterclapton/cenackle-board/internal/core/domain"
	"github.com/jupiterclapton/cenackle-board/internal/core/ports"
)

const DefaultAutosaveDelay = 500 * time.Millisecond

// DraftAutosaver sauvegarde un formulaire en cours après un délai fixe sans nouvelle frappe.
// Flush doit être appelé à l'arrêt pour ne pas perdre la dernière saisie.
type DraftAutosaver struct {
	store ports.DraftStore
	key   string
	delay time.Duration
	now   func() time.Time
	log   *slog.Logger

	mu      sync.Mutex
	timer   *time.Timer
	pending map[string]string

	// saveMu sérialise prise + écriture : les sauvegardes arrivent dans l'ordre des frappes.
	saveMu sync.Mutex
}

func NewDraftAutosaver(store ports.DraftStore, key string, delay time.Duration, log *slog.Logger) *DraftAutosaver {
	if delay <= 0 {
		delay = DefaultAutosaveDelay
	}
	if log == nil {
		log = slog.Default()
	}
	return &DraftAutosaver{store: store, key: key, delay: delay, now: time.Now, log: log.With("draft", key)}
}

// Update remplace la saisie en attente et relance le délai.
func (a *DraftAutosaver) Update(data map[string]string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = maps.Clone(data)
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), DefaultSideEffectTimeout)
		defer cancel()
		if err := a.save(ctx); err != nil {
			a.log.Warn("draft autosave failed", "error", err)
		}
	})
}

// Flush écrit immédiatement la saisie en attente, s'il y en a une.
func (a *DraftAutosaver) Flush(ctx context.Context) error {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.mu.Unlock()
	return a.save(ctx)
}

func (a *DraftAutosaver) Load(ctx context.Context) (*domain.Draft, error) {
	return a.store.LoadDraft(ctx, a.key)
}

// Clear abandonne la saisie en attente et efface le brouillon (formulaire envoyé).
func (a *DraftAutosaver) Clear(ctx context.Context) error {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.pending = nil
	a.mu.Unlock()

	a.saveMu.Lock()
	defer a.saveMu.Unlock()
	return a.store.ClearDraft(ctx, a.key)
}

func (a *DraftAutosaver) save(ctx context.Context) error {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()

	a.mu.Lock()
	data := a.pending
	a.pending = nil
	a.mu.Unlock()
	if data == nil {
		return nil
	}
	return a.store.SaveDraft(ctx, a.key, domain.Draft{Data: data, Timestamp: a.now().UTC()})
}
