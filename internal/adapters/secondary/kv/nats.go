package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
)

// NatsStore utilise un bucket JetStream KeyValue : la révision native sert directement au CAS.
type NatsStore struct {
	kv jetstream.KeyValue
}

// NewNatsStore s'assure que le bucket existe (idempotent).
func NewNatsStore(ctx context.Context, js jetstream.JetStream, bucket string) (*NatsStore, error) {
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:  bucket,
		History: 1,
		Storage: jetstream.FileStorage, // Persistance sur disque
	})
	if err != nil {
		return nil, fmt.Errorf("create kv bucket: %w", err)
	}
	return &NatsStore{kv: kv}, nil
}

func (n *NatsStore) Get(ctx context.Context, key string) (Entry, error) {
	e, err := n.kv.Get(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return Entry{}, ErrKeyNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("nats kv get: %w", err)
	}
	return Entry{Value: e.Value(), Revision: e.Revision()}, nil
}

func (n *NatsStore) Put(ctx context.Context, key string, value []byte) (uint64, error) {
	rev, err := n.kv.Put(ctx, key, value)
	if err != nil {
		return 0, fmt.Errorf("nats kv put: %w", err)
	}
	return rev, nil
}

func (n *NatsStore) CompareAndSwap(ctx context.Context, key string, value []byte, expected uint64) (uint64, error) {
	var (
		rev uint64
		err error
	)
	if expected == NoRevision {
		rev, err = n.kv.Create(ctx, key, value)
	} else {
		rev, err = n.kv.Update(ctx, key, value, expected)
	}

	if isWrongRevision(err) {
		return 0, ErrRevisionMismatch
	}
	if err != nil {
		return 0, fmt.Errorf("nats kv cas: %w", err)
	}
	return rev, nil
}

func (n *NatsStore) Delete(ctx context.Context, key string) error {
	err := n.kv.Delete(ctx, key)
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("nats kv delete: %w", err)
	}
	return nil
}

func isWrongRevision(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, jetstream.ErrKeyExists) {
		return true
	}
	var apiErr *jetstream.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence
}
