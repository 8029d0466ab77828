package eventbroker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/jupiterclapton/cenackle-board/internal/core/domain"
)

type NatsPublisher struct {
	js jetstream.JetStream
}

func NewNatsPublisher(ctx context.Context, js jetstream.JetStream) (*NatsPublisher, error) {
	if err := EnsureStream(ctx, js); err != nil {
		return nil, err
	}
	return &NatsPublisher{js: js}, nil
}

// EnsureStream crée le Stream BOARD s'il n'existe pas (idempotent).
// Appelé par le publisher comme par les consommateurs.
func EnsureStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     StreamName,
		Subjects: []string{SubjectPattern},
		Storage:  jetstream.FileStorage,
		Replicas: 1, // 3 en cluster
	})
	if err != nil {
		return fmt.Errorf("create stream: %w", err)
	}
	return nil
}

func (p *NatsPublisher) PublishUserRegistered(ctx context.Context, userID, email string) error {
	msg, err := userRegistered(userID, email)
	if err != nil {
		return err
	}
	return p.publish(ctx, msg)
}

func (p *NatsPublisher) PublishPostCreated(ctx context.Context, post *domain.Post) error {
	msg, err := postCreated(post)
	if err != nil {
		return err
	}
	return p.publish(ctx, msg)
}

func (p *NatsPublisher) PublishPostDeleted(ctx context.Context, postID string) error {
	msg, err := postDeleted(postID)
	if err != nil {
		return err
	}
	return p.publish(ctx, msg)
}

func (p *NatsPublisher) publish(ctx context.Context, m message) error {
	msg := &nats.Msg{
		Subject: m.subject,
		Data:    m.data,
		Header:  nats.Header{},
	}
	// 👇 Le TraceID courant voyage dans les headers NATS
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(msg.Header))

	// JetStream confirme la persistance (ACK)
	ack, err := p.js.PublishMsg(ctx, msg)
	if err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	slog.Debug("📢 Event published", "subject", m.subject, "seq", ack.Sequence)
	return nil
}
