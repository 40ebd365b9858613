package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type PostgresConfig struct {
	DSN     string        `envconfig:"DSN"`
	Timeout time.Duration `envconfig:"TIMEOUT" default:"10s"`
}

type profileRecord struct {
	bun.BaseModel `bun:"table:profile_records"`

	Key       string    `bun:"key,pk"`
	Value     string    `bun:"value,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// BunKV stores records as rows of the profile_records table in Postgres.
type BunKV struct {
	db   *bun.DB
	opts options
	now  func() time.Time
}

var _ KV = (*BunKV)(nil)

// NewBunKV connects to Postgres and creates the table when missing.
func NewBunKV(ctx context.Context, cfg PostgresConfig, opts ...Option) (*BunKV, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(dsn),
		pgdriver.WithTimeout(timeout),
	))
	db := bun.NewDB(sqldb, pgdialect.New())

	kv := NewBunKVWithDB(db, opts...)
	if err := kv.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return kv, nil
}

// NewBunKVWithDB wraps an existing connection. The schema is not touched.
func NewBunKVWithDB(db *bun.DB, opts ...Option) *BunKV {
	return &BunKV{
		db:   db,
		opts: buildOptions("", opts),
		now:  time.Now,
	}
}

func (b *BunKV) initSchema(ctx context.Context) error {
	if err := b.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := b.db.NewCreateTable().
		Model((*profileRecord)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create profile_records table: %w", err)
	}
	return nil
}

func (b *BunKV) Get(ctx context.Context, key string) ([]byte, error) {
	k, err := b.opts.key(key)
	if err != nil {
		return nil, err
	}

	var rec profileRecord
	err = b.db.NewSelect().
		Model(&rec).
		Where("key = ?", k).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select profile record %s: %w", k, err)
	}
	return []byte(rec.Value), nil
}

func (b *BunKV) Set(ctx context.Context, key string, value []byte) error {
	k, err := b.opts.key(key)
	if err != nil {
		return err
	}

	rec := &profileRecord{
		Key:       k,
		Value:     string(value),
		UpdatedAt: b.now().UTC(),
	}
	if _, err := b.db.NewInsert().
		Model(rec).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx); err != nil {
		return fmt.Errorf("upsert profile record %s: %w", k, err)
	}
	return nil
}

func (b *BunKV) Delete(ctx context.Context, key string) error {
	k, err := b.opts.key(key)
	if err != nil {
		return err
	}
	if _, err := b.db.NewDelete().
		Model((*profileRecord)(nil)).
		Where("key = ?", k).
		Exec(ctx); err != nil {
		return fmt.Errorf("delete profile record %s: %w", k, err)
	}
	return nil
}

func (b *BunKV) Close() error {
	return b.db.Close()
}
