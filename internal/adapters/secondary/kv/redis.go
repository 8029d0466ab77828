package kv

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	fieldValue = "value"
	fieldRev   = "rev"
)

// RedisStore range chaque blob dans un hash {value, rev}.
// Le compare-and-swap s'appuie sur WATCH/MULTI : si la clé bouge pendant la transaction, Redis l'annule.
type RedisStore struct {
	client *redis.Client
	prefix string // Ex: "board:" (namespace partagé avec d'autres apps)
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) Get(ctx context.Context, key string) (Entry, error) {
	vals, err := r.client.HMGet(ctx, r.key(key), fieldValue, fieldRev).Result()
	if err != nil {
		return Entry{}, fmt.Errorf("redis hmget: %w", err)
	}
	if len(vals) != 2 || vals[0] == nil {
		return Entry{}, ErrKeyNotFound
	}

	value, _ := vals[0].(string)
	revStr, _ := vals[1].(string)
	rev, err := strconv.ParseUint(revStr, 10, 64)
	if err != nil {
		// Donnée corrompue ? On considère la révision inconnue, le prochain CAS échouera proprement
		return Entry{Value: []byte(value)}, nil
	}
	return Entry{Value: []byte(value), Revision: rev}, nil
}

func (r *RedisStore) Put(ctx context.Context, key string, value []byte) (uint64, error) {
	k := r.key(key)

	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.HIncrBy(ctx, k, fieldRev, 1)
		pipe.HSet(ctx, k, fieldValue, value)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis put: %w", err)
	}
	return uint64(incr.Val()), nil
}

func (r *RedisStore) CompareAndSwap(ctx context.Context, key string, value []byte, expected uint64) (uint64, error) {
	k := r.key(key)
	var next uint64

	txf := func(tx *redis.Tx) error {
		// 1. Lecture de la révision sous WATCH
		current, err := tx.HGet(ctx, k, fieldRev).Uint64()
		if errors.Is(err, redis.Nil) {
			current = NoRevision
		} else if err != nil {
			return err
		}
		if current != expected {
			return ErrRevisionMismatch
		}

		// 2. Écriture conditionnelle (annulée par Redis si la clé a bougé entre-temps)
		next = current + 1
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, k, fieldValue, value, fieldRev, next)
			return nil
		})
		return err
	}

	err := r.client.Watch(ctx, txf, k)
	switch {
	case errors.Is(err, redis.TxFailedErr), errors.Is(err, ErrRevisionMismatch):
		return 0, ErrRevisionMismatch
	case err != nil:
		return 0, fmt.Errorf("redis cas: %w", err)
	}
	return next, nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (r *RedisStore) key(key string) string {
	return r.prefix + key
}
