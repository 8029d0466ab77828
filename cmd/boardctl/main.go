package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jupiterclapton/cenackle-board/config"
	"github.com/jupiterclapton/cenackle-board/internal/adapters/primary/cli"
	"github.com/jupiterclapton/cenackle-board/internal/adapters/primary/events"
	"github.com/jupiterclapton/cenackle-board/internal/adapters/secondary/kv"
	"github.com/jupiterclapton/cenackle-board/internal/adapters/secondary/session"
	"github.com/jupiterclapton/cenackle-board/internal/core/services"
	"github.com/jupiterclapton/cenackle-board/internal/platform/logger"
	"github.com/jupiterclapton/cenackle-board/internal/platform/telemetry"
)

// Injecté au build : -ldflags "-X main.version=1.2.3"
var version = "dev"

func main() {
	os.Exit(run())
}

// run porte toute la logique : les defers (fermeture des connexions) s'exécutent avant os.Exit.
func run() int {
	// 1. Charger la Config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ invalid config: %v\n", err)
		return cli.ExitUsage
	}

	// 2. Initialiser le Logger (stderr : stdout est réservé aux résultats)
	log := logger.Init(cfg.Env)
	log.Debug("🚀 Starting boardctl", "env", cfg.Env, "backend", cfg.Backend, "version", version)

	// Ctrl+C annule la commande en cours
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Initialiser le Tracing (OpenTelemetry), seulement si un collecteur est configuré
	if cfg.OtelEndpoint != "" {
		tp, err := telemetry.InitTracer(ctx, telemetry.TracerConfig{
			ServiceName: cfg.ServiceName,
			Version:     version,
			Env:         cfg.Env,
			Endpoint:    cfg.OtelEndpoint,
		})
		if err != nil {
			log.Warn("⚠️ tracing disabled", "error", err)
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := tp.Shutdown(shutdownCtx); err != nil {
					log.Error("Error shutting down tracer", "error", err)
				}
			}()
		}
	}
	telemetry.ServeMetrics(ctx, cfg.MetricsAddr)

	// 4. Session et brouillons : fichiers locaux, quel que soit le backend
	sessionKV, err := kv.NewFileStore(cfg.SessionDir)
	if err != nil {
		log.Error("Unable to open the session directory", "dir", cfg.SessionDir, "error", err)
		return cli.ExitFailure
	}
	sess := session.NewStore(sessionKV)

	// 5. Infrastructure (KV, broker, médias) puis backend local ou distant
	infra := newInfra(cfg, log)
	defer infra.Close()

	backends, err := infra.backends(ctx, sess)
	if err != nil {
		log.Error("❌ Unable to start the backend", "backend", cfg.Backend, "error", err)
		return cli.ExitFailure
	}
	publisher, err := infra.publisher(ctx)
	if err != nil {
		log.Error("❌ Unable to start the event broker", "broker", cfg.Broker, "error", err)
		return cli.ExitFailure
	}

	// Le flux d'événements n'est consultable qu'avec NATS (watch)
	var source cli.EventSource
	if cfg.Broker == "nats" {
		js, err := infra.jetstream()
		if err != nil {
			log.Error("❌ Unable to connect to NATS", "error", err)
			return cli.ExitFailure
		}
		source = events.NewWatcher(js, log)
	}

	// 6. Wiring (Injection de dépendances) - Backends -> Modèles -> CLI
	posts := services.NewPostService(backends.posts, services.PostServiceConfig{
		Images:      backends.images,
		Publisher:   publisher,
		ViewTimeout: cfg.ViewTimeout,
		Logger:      log,
	})
	app := cli.New(cli.Deps{
		Auth:          services.NewAuthService(backends.auth, sess, publisher, log),
		Posts:         posts,
		Comments:      services.NewCommentService(backends.comments),
		Profile:       services.NewProfileService(backends.profile, backends.images),
		Drafts:        sess,
		Events:        source,
		AutosaveDelay: cfg.AutosaveDelay,
		Logger:        log,
	})

	// 7. Exécution
	code := app.Run(ctx, os.Args[1:])

	// 8. Arrêt : on laisse finir les incréments de vues en vol
	posts.Drain()
	log.Debug("👋 boardctl exited", "code", code)
	return code
}
