// Package storage provides the durable key-value backends behind the profile
// store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrInvalidKey = errors.New("record key is empty")
)

// KV is the persistence contract used by the profile store.
type KV interface {
	// Get returns ErrNotFound when the key has never been written or was deleted.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set creates or overwrites the value stored under key.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	Close() error
}

const (
	BackendBadger   = "badger"
	BackendUpstash  = "upstash"
	BackendPostgres = "postgres"
)

type Config struct {
	Backend   string `envconfig:"BACKEND" default:"badger"`
	BadgerDir string `envconfig:"BADGER_DIR" split_words:"true"`
	KeyPrefix string `envconfig:"KEY_PREFIX" split_words:"true"`
	// TTL applies to the upstash backend only. Zero keeps records forever.
	TTL time.Duration `envconfig:"TTL"`
}

// DefaultBadgerDir is the per-user data directory used when BadgerDir is unset.
func DefaultBadgerDir() string {
	return filepath.Join(xdg.DataHome, "sales-assistant", "profiles")
}

// Open builds the configured backend. Upstash and Postgres read their own
// connection settings from the supplied configs.
func Open(ctx context.Context, cfg Config, upstash UpstashRedisConfig, postgres PostgresConfig) (KV, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	switch backend {
	case "", BackendBadger:
		dir := strings.TrimSpace(cfg.BadgerDir)
		if dir == "" {
			dir = DefaultBadgerDir()
		}
		return NewBadgerKV(dir, WithKeyPrefix(cfg.KeyPrefix))
	case BackendUpstash:
		return NewUpstashKV(upstash, WithKeyPrefix(cfg.KeyPrefix), WithTTL(cfg.TTL))
	case BackendPostgres:
		return NewBunKV(ctx, postgres, WithKeyPrefix(cfg.KeyPrefix))
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}

// Option customizes a backend. Options a backend has no use for are ignored.
type Option func(*options)

type options struct {
	keyPrefix  string
	ttl        time.Duration
	httpClient *http.Client
}

func WithKeyPrefix(prefix string) Option {
	return func(o *options) {
		trimmed := strings.TrimSpace(prefix)
		if trimmed != "" {
			o.keyPrefix = trimmed
		}
	}
}

// WithTTL expires Upstash records after ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.ttl = ttl
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		if client != nil {
			o.httpClient = client
		}
	}
}

func buildOptions(defaultPrefix string, opts []Option) options {
	o := options{keyPrefix: defaultPrefix}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

func (o options) key(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", ErrInvalidKey
	}
	return o.keyPrefix + key, nil
}
