package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jupiterclapton/cenackle-board/internal/platform/telemetry"
)

const DefaultSideEffectTimeout = 5 * time.Second

// sideEffects lance les effets best-effort (compteur de vues, événements) hors du chemin
// de la requête : contexte borné, échec journalisé et compté, jamais remonté à l'UI.
type sideEffects struct {
	timeout time.Duration
	log     *slog.Logger
	wg      sync.WaitGroup
}

func (s *sideEffects) detach(ctx context.Context, kind string, fn func(context.Context) error) {
	s.wg.Add(1)
	// Le contexte appelant peut être annulé dès la réponse : on garde ses valeurs (trace), pas son annulation
	base := context.WithoutCancel(ctx)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(base, s.timeout)
		defer cancel()
		s.run(ctx, kind, fn)
	}()
}

// run exécute l'effet dans le flux courant, avec la même politique d'échec.
func (s *sideEffects) run(ctx context.Context, kind string, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		telemetry.SideEffectFailures.WithLabelValues(kind).Inc()
		s.log.Warn("⚠️ Best-effort side effect failed", "kind", kind, "error", err)
	}
}

// Drain attend les effets encore en vol (arrêt du process, tests).
func (s *sideEffects) Drain() {
	s.wg.Wait()
}

func newSideEffects(timeout time.Duration, log *slog.Logger) *sideEffects {
	if timeout <= 0 {
		timeout = DefaultSideEffectTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &sideEffects{timeout: timeout, log: log}
}
