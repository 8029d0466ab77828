package eventbroker

import (
	"context"
	"fmt"
	"time"

	kgo "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"

	"github.com/jupiterclapton/cenackle-board/internal/core/domain"
)

const DefaultKafkaTopic = "board-events"

// messageWriter est la partie de *kafka.Writer utilisée (remplaçable en test).
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kgo.Message) error
	Close() error
}

// KafkaPublisher écrit tous les événements sur un topic ; le sujet voyage dans le header "event"
// et la clé (id de l'entité) garde l'ordre par entité.
type KafkaPublisher struct {
	w   messageWriter
	now func() time.Time
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	if topic == "" {
		topic = DefaultKafkaTopic
	}
	return newKafkaPublisher(&kgo.Writer{
		Addr:         kgo.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kgo.Hash{},
		RequiredAcks: kgo.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	})
}

func newKafkaPublisher(w messageWriter) *KafkaPublisher {
	return &KafkaPublisher{w: w, now: time.Now}
}

func (p *KafkaPublisher) PublishUserRegistered(ctx context.Context, userID, email string) error {
	msg, err := userRegistered(userID, email)
	if err != nil {
		return err
	}
	return p.write(ctx, msg)
}

func (p *KafkaPublisher) PublishPostCreated(ctx context.Context, post *domain.Post) error {
	msg, err := postCreated(post)
	if err != nil {
		return err
	}
	return p.write(ctx, msg)
}

func (p *KafkaPublisher) PublishPostDeleted(ctx context.Context, postID string) error {
	msg, err := postDeleted(postID)
	if err != nil {
		return err
	}
	return p.write(ctx, msg)
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

func (p *KafkaPublisher) write(ctx context.Context, m message) error {
	carrier := &headerCarrier{{Key: "event", Value: []byte(m.subject)}}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	err := p.w.WriteMessages(ctx, kgo.Message{
		Key:     []byte(m.key),
		Value:   m.data,
		Headers: *carrier,
		Time:    p.now(),
	})
	if err != nil {
		return fmt.Errorf("kafka publish %s: %w", m.subject, err)
	}
	return nil
}

// headerCarrier adapte les headers Kafka au propagateur OpenTelemetry.
type headerCarrier []kgo.Header

func (c *headerCarrier) Get(key string) string {
	for _, h := range *c {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *headerCarrier) Set(key, value string) {
	for i, h := range *c {
		if h.Key == key {
			(*c)[i].Value = []byte(value)
			return
		}
	}
	*c = append(*c, kgo.Header{Key: key, Value: []byte(value)})
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, 0, len(*c))
	for _, h := range *c {
		keys = append(keys, h.Key)
	}
	return keys
}
