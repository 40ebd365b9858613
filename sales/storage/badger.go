package storage

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v3"
)

// BadgerKV keeps records in an embedded BadgerDB, the local durable store a
// single-user install runs on.
type BadgerKV struct {
	db   *badger.DB
	opts options
}

var _ KV = (*BadgerKV)(nil)

// NewBadgerKV opens (or creates) a database in dir.
func NewBadgerKV(dir string, opts ...Option) (*BadgerKV, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create badger directory: %w", err)
	}
	return openBadger(badger.DefaultOptions(dir), opts)
}

// NewInMemoryBadgerKV is backed by memory only; nothing survives Close.
func NewInMemoryBadgerKV(opts ...Option) (*BadgerKV, error) {
	return openBadger(badger.DefaultOptions("").WithInMemory(true), opts)
}

func openBadger(bopts badger.Options, opts []Option) (*BadgerKV, error) {
	db, err := badger.Open(bopts.WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerKV{db: db, opts: buildOptions("", opts)}, nil
}

func (b *BadgerKV) Get(_ context.Context, key string) ([]byte, error) {
	k, err := b.opts.key(key)
	if err != nil {
		return nil, err
	}

	var value []byte
	err = b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(k))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("badger get %s: %w", k, err)
	}
	return value, nil
}

func (b *BadgerKV) Set(_ context.Context, key string, value []byte) error {
	k, err := b.opts.key(key)
	if err != nil {
		return err
	}
	if err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(k), value)
	}); err != nil {
		return fmt.Errorf("badger set %s: %w", k, err)
	}
	return nil
}

func (b *BadgerKV) Delete(_ context.Context, key string) error {
	k, err := b.opts.key(key)
	if err != nil {
		return err
	}
	if err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(k))
	}); err != nil {
		return fmt.Errorf("badger delete %s: %w", k, err)
	}
	return nil
}

func (b *BadgerKV) Close() error {
	return b.db.Close()
}
