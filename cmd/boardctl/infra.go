package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jupiterclapton/cenackle-board/config"
	"github.com/jupiterclapton/cenackle-board/internal/adapters/secondary/eventbroker"
	"github.com/jupiterclapton/cenackle-board/internal/adapters/secondary/gateway"
	"github.com/jupiterclapton/cenackle-board/internal/adapters/secondary/kv"
	"github.com/jupiterclapton/cenackle-board/internal/adapters/secondary/local"
	"github.com/jupiterclapton/cenackle-board/internal/adapters/secondary/media"
	"github.com/jupiterclapton/cenackle-board/internal/adapters/secondary/remote"
	"github.com/jupiterclapton/cenackle-board/internal/adapters/secondary/security"
	"github.com/jupiterclapton/cenackle-board/internal/core/ports"
)

// infra ouvre les connexions à la demande et les ferme toutes à la sortie.
type infra struct {
	cfg     *config.Config
	log     *slog.Logger
	js      jetstream.JetStream
	closers []func()
}

type backendSet struct {
	auth     ports.AuthBackend
	posts    ports.PostBackend
	comments ports.CommentBackend
	profile  ports.ProfileBackend
	images   ports.ImageStore
}

func newInfra(cfg *config.Config, log *slog.Logger) *infra {
	return &infra{cfg: cfg, log: log}
}

// Close ferme dans l'ordre inverse d'ouverture.
func (i *infra) Close() {
	for j := len(i.closers) - 1; j >= 0; j-- {
		i.closers[j]()
	}
}

func (i *infra) backends(ctx context.Context, sess ports.SessionStore) (*backendSet, error) {
	if i.cfg.Backend == "remote" {
		return i.remoteBackends(sess), nil
	}
	return i.localBackends(ctx, sess)
}

// --- BACKEND DISTANT (API REST) ---

func (i *infra) remoteBackends(sess ports.SessionStore) *backendSet {
	client := gateway.NewClient(i.cfg.APIBaseURL, sess,
		gateway.WithLogger(i.log),
		gateway.WithHTTPClient(&http.Client{
			Timeout:   i.cfg.RequestTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}),
	)
	i.log.Debug("✅ API client ready", "url", i.cfg.APIBaseURL)
	return &backendSet{
		auth:     remote.NewAuthAPI(client, sess, i.log),
		posts:    remote.NewPostsAPI(client),
		comments: remote.NewCommentsAPI(client),
		profile:  remote.NewProfileAPI(client, sess, i.log),
		images:   remote.NewImageUploader(client),
	}
}

// --- BACKEND LOCAL (Entity Store) ---

func (i *infra) localBackends(ctx context.Context, sess ports.SessionStore) (*backendSet, error) {
	store, err := i.store(ctx)
	if err != nil {
		return nil, err
	}
	images, err := i.images(ctx)
	if err != nil {
		return nil, err
	}

	hasher, err := security.NewHasher(i.cfg.Hasher, security.DefaultParams, i.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	tokens, err := security.NewJWTProvider([]byte(i.cfg.TokenSecret), i.cfg.ServiceName)
	if err != nil {
		return nil, err
	}

	backend := local.New(local.Deps{
		Store:   store,
		Session: sess,
		Hasher:  hasher,
		Tokens:  tokens,
		Images:  images,
		Logger:  i.log,
	})
	return &backendSet{
		auth:     backend.Auth(),
		posts:    backend.Posts(),
		comments: backend.Comments(),
		profile:  backend.Profile(),
		images:   images,
	}, nil
}

func (i *infra) store(ctx context.Context) (kv.Store, error) {
	switch i.cfg.KVDriver {
	case "memory":
		i.log.Warn("⚠️ in-memory store: data is lost when the command exits")
		return kv.NewMemoryStore(), nil

	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: i.cfg.RedisAddr})
		if err := redisotel.InstrumentTracing(rdb); err != nil {
			i.log.Warn("⚠️ redis tracing disabled", "error", err)
		}
		i.closers = append(i.closers, func() { _ = rdb.Close() })
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		i.log.Debug("✅ Redis connected", "addr", i.cfg.RedisAddr)
		return kv.NewRedisStore(rdb, i.cfg.RedisPrefix), nil

	case "postgres":
		dbConfig, err := pgxpool.ParseConfig(i.cfg.DBUrl)
		if err != nil {
			return nil, fmt.Errorf("parse db url: %w", err)
		}
		dbConfig.ConnConfig.Tracer = otelpgx.NewTracer()
		pool, err := pgxpool.NewWithConfig(ctx, dbConfig)
		if err != nil {
			return nil, fmt.Errorf("connect db: %w", err)
		}
		i.closers = append(i.closers, pool.Close)
		if err := pool.Ping(ctx); err != nil {
			return nil, fmt.Errorf("db ping: %w", err)
		}
		store := kv.NewPostgresStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		i.log.Debug("✅ Database connected")
		return store, nil

	case "nats":
		js, err := i.jetstream()
		if err != nil {
			return nil, err
		}
		return kv.NewNatsStore(ctx, js, i.cfg.NatsBucket)
	}
	return kv.NewFileStore(filepath.Join(i.cfg.DataDir, "data"))
}

func (i *infra) images(ctx context.Context) (ports.ImageStore, error) {
	if i.cfg.ImageStore != "minio" {
		return media.DataURLStore{}, nil
	}
	store, err := media.NewMinioStore(media.MinioConfig{
		Endpoint:  i.cfg.S3Endpoint,
		AccessKey: i.cfg.S3AccessKey,
		SecretKey: i.cfg.S3SecretKey,
		UseSSL:    i.cfg.S3UseSSL,
		Bucket:    i.cfg.S3BucketName,
	})
	if err != nil {
		return nil, err
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	i.log.Debug("✅ MinIO bucket ready", "bucket", i.cfg.S3BucketName)
	return store, nil
}

// --- BROKER ---

func (i *infra) publisher(ctx context.Context) (ports.EventPublisher, error) {
	switch i.cfg.Broker {
	case "nats":
		js, err := i.jetstream()
		if err != nil {
			return nil, err
		}
		return eventbroker.NewNatsPublisher(ctx, js)
	case "kafka":
		p := eventbroker.NewKafkaPublisher(i.cfg.KafkaBrokers, i.cfg.KafkaTopic)
		i.closers = append(i.closers, func() {
			if err := p.Close(); err != nil {
				i.log.Warn("kafka writer close failed", "error", err)
			}
		})
		return p, nil
	}
	return eventbroker.Noop{}, nil
}

// jetstream partage une seule connexion NATS entre le KV et le broker.
func (i *infra) jetstream() (jetstream.JetStream, error) {
	if i.js != nil {
		return i.js, nil
	}
	nc, err := nats.Connect(i.cfg.NatsUrl, nats.Name(i.cfg.ServiceName))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	i.closers = append(i.closers, func() { _ = nc.Drain() })
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	i.js = js
	i.log.Debug("✅ NATS JetStream connected", "url", i.cfg.NatsUrl)
	return js, nil
}
