package oidc

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/zeebo/blake3"
)

// sessionEntry is the server side content of a session
type sessionEntry struct {
	Data    *SessionData      `json:"data,omitempty"`
	Values  map[string]string `json:"values,omitempty"`
	Flashes []string          `json:"flashes,omitempty"`
}

type sessionCache interface {
	Get(ctx context.Context, sid string) (*sessionEntry, bool)
	Set(ctx context.Context, sid string, entry *sessionEntry) error
	Remove(ctx context.Context, sid string) error
	Close() error
}

// localCacheAdapter wraps a local cache with encryption
type localCacheAdapter struct {
	cache  *expirable.LRU[string, []byte]
	cipher *entryCipher
}

func newLocalCacheAdapter(size int, ttl time.Duration, entryCipher *entryCipher) *localCacheAdapter {
	return &localCacheAdapter{
		cache:  expirable.NewLRU[string, []byte](size, nil, ttl),
		cipher: entryCipher,
	}
}

func (a *localCacheAdapter) Get(_ context.Context, sid string) (*sessionEntry, bool) {
	ciphertext, ok := a.cache.Get(sid)
	if !ok || ciphertext == nil {
		return nil, false
	}
	entry, err := a.cipher.open(ciphertext)
	if err != nil {
		log.Error().Err(err).Msg("failed to decrypt session entry")
		return nil, false
	}
	return entry, true
}

func (a *localCacheAdapter) Set(_ context.Context, sid string, entry *sessionEntry) error {
	ciphertext, err := a.cipher.seal(entry)
	if err != nil {
		return err
	}
	a.cache.Add(sid, ciphertext)
	return nil
}

func (a *localCacheAdapter) Remove(_ context.Context, sid string) error {
	a.cache.Remove(sid)
	return nil
}

func (a *localCacheAdapter) Close() error {
	a.cache.Purge()
	return nil
}

// redisCacheAdapter stores encrypted entries in redis.
// Keys are derived from a hash of the session ID.
type redisCacheAdapter struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	cipher    *entryCipher
}

func newRedisCacheAdapter(options *RedisSessionOptions, entryCipher *entryCipher) *redisCacheAdapter {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", options.Host, options.Port),
		Password: options.Password,
		DB:       options.DB,
	})
	return &redisCacheAdapter{
		client:    client,
		keyPrefix: options.KeyPrefix,
		ttl:       options.TTL,
		cipher:    entryCipher,
	}
}

func (a *redisCacheAdapter) key(sid string) string {
	sum := blake3.Sum256([]byte(sid))
	return a.keyPrefix + ":" + hex.EncodeToString(sum[:])
}

func (a *redisCacheAdapter) Get(ctx context.Context, sid string) (*sessionEntry, bool) {
	ciphertext, err := a.client.Get(ctx, a.key(sid)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Error().Err(err).Msg("failed to read session entry from redis")
		}
		return nil, false
	}
	entry, err := a.cipher.open(ciphertext)
	if err != nil {
		log.Error().Err(err).Msg("failed to decrypt session entry")
		return nil, false
	}
	return entry, true
}

func (a *redisCacheAdapter) Set(ctx context.Context, sid string, entry *sessionEntry) error {
	ciphertext, err := a.cipher.seal(entry)
	if err != nil {
		return err
	}
	if err := a.client.Set(ctx, a.key(sid), ciphertext, a.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write session entry to redis: %w", err)
	}
	return nil
}

func (a *redisCacheAdapter) Remove(ctx context.Context, sid string) error {
	if err := a.client.Del(ctx, a.key(sid)).Err(); err != nil {
		return fmt.Errorf("failed to delete session entry from redis: %w", err)
	}
	return nil
}

func (a *redisCacheAdapter) Close() error {
	if err := a.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}
	return nil
}
