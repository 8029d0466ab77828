// Package events consomme le Stream BOARD : c'est l'entrée des commandes qui réagissent
// à l'activité du board (boardctl watch).
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/jupiterclapton/cenackle-board/internal/adapters/secondary/eventbroker"
)

// Event est un événement décodé. Un seul des pointeurs est renseigné, selon Subject.
type Event struct {
	Subject   string
	Sequence  uint64
	Published time.Time

	UserRegistered *eventbroker.UserRegisteredEvent
	PostCreated    *eventbroker.PostCreatedEvent
	PostDeleted    *eventbroker.PostDeletedEvent
}

type Handler func(ctx context.Context, e Event)

// Decode transforme un message brut en Event. Sujet inconnu = erreur.
func Decode(subject string, data []byte) (Event, error) {
	ev := Event{Subject: subject}
	var target any
	switch subject {
	case eventbroker.SubjectUserRegistered:
		ev.UserRegistered = &eventbroker.UserRegisteredEvent{}
		target = ev.UserRegistered
	case eventbroker.SubjectPostCreated:
		ev.PostCreated = &eventbroker.PostCreatedEvent{}
		target = ev.PostCreated
	case eventbroker.SubjectPostDeleted:
		ev.PostDeleted = &eventbroker.PostDeletedEvent{}
		target = ev.PostDeleted
	default:
		return Event{}, fmt.Errorf("unknown subject %q", subject)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return Event{}, fmt.Errorf("decode %s: %w", subject, err)
	}
	return ev, nil
}

type Watcher struct {
	js  jetstream.JetStream
	log *slog.Logger
}

func NewWatcher(js jetstream.JetStream, log *slog.Logger) *Watcher {
	if log == nil {
		log = slog.Default()
	}
	return &Watcher{js: js, log: log}
}

// Watch suit les nouveaux messages jusqu'à l'annulation du contexte.
// Consumer ordonné et éphémère : rien n'est acquitté, rien ne reste côté serveur.
func (w *Watcher) Watch(ctx context.Context, handle Handler) error {
	if err := eventbroker.EnsureStream(ctx, w.js); err != nil {
		return err
	}
	cons, err := w.js.OrderedConsumer(ctx, eventbroker.StreamName, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{eventbroker.SubjectPattern},
		DeliverPolicy:  jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return fmt.Errorf("create consumer: %w", err)
	}

	cc, err := cons.Consume(func(msg jetstream.Msg) { w.handle(handle, msg) })
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	defer cc.Stop()

	w.log.Debug("👂 Watching board events", "stream", eventbroker.StreamName)
	<-ctx.Done()
	return nil
}

func (w *Watcher) handle(handle Handler, msg jetstream.Msg) {
	// 1. Le contexte de trace du publisher voyage dans les headers
	ctx := otel.GetTextMapPropagator().Extract(context.Background(), propagation.HeaderCarrier(msg.Headers()))
	ctx, span := otel.Tracer("boardctl").Start(ctx, "process "+msg.Subject(), trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	// 2. Décodage
	ev, err := Decode(msg.Subject(), msg.Data())
	if err != nil {
		span.RecordError(err)
		w.log.Error("❌ Invalid event format", "subject", msg.Subject(), "error", err)
		return
	}
	if meta, err := msg.Metadata(); err == nil {
		ev.Sequence = meta.Sequence.Stream
		ev.Published = meta.Timestamp
	}

	handle(ctx, ev)
}
