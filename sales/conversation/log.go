// Package conversation holds the in-memory, append-only message log of the
// current session. Nothing here is persisted.
package conversation

import (
	"fmt"
	"io"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	contractx "github.com/tanpawarit/sales-assistant/sales/contract"
)

type Option func(*Log)

// WithClock replaces time.Now for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Log) {
		if now != nil {
			l.now = now
		}
	}
}

// WithEntropy replaces the random source used for message identifiers.
func WithEntropy(r io.Reader) Option {
	return func(l *Log) {
		if r != nil {
			l.entropy = ulid.Monotonic(r, 0)
		}
	}
}

type Log struct {
	mu       sync.RWMutex
	messages []contractx.Message
	now      func() time.Time
	entropy  io.Reader
}

func New(opts ...Option) *Log {
	l := &Log{now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	if l.entropy == nil {
		l.entropy = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	}
	return l
}

// Append stores a new message and returns it. Identifiers are ULIDs, so they
// sort in insertion order even within the same millisecond.
func (l *Log) Append(role contractx.Role, content string) (contractx.Message, error) {
	if !role.Valid() {
		return contractx.Message{}, fmt.Errorf("%w: unsupported role=%q", contractx.ErrValidation, role)
	}
	if strings.TrimSpace(content) == "" {
		return contractx.Message{}, fmt.Errorf("%w: message content is empty", contractx.ErrValidation)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	ts := l.now()
	id, err := ulid.New(ulid.Timestamp(ts), l.entropy)
	if err != nil {
		return contractx.Message{}, fmt.Errorf("generate message id: %w", err)
	}

	msg := contractx.Message{
		ID:        id.String(),
		Role:      role,
		Content:   content,
		Timestamp: ts,
	}
	l.messages = append(l.messages, msg)
	return msg, nil
}

// All returns a copy of the log in insertion order.
func (l *Log) All() []contractx.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]contractx.Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// RecentWindow returns the last n messages, or all of them when fewer exist.
func (l *Log) RecentWindow(n int) []contractx.Message {
	if n <= 0 {
		return nil
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	start := len(l.messages) - n
	if start < 0 {
		start = 0
	}
	out := make([]contractx.Message, len(l.messages)-start)
	copy(out, l.messages[start:])
	return out
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

func (l *Log) Clear() {
	l.mu.Lock()
	l.messages = nil
	l.mu.Unlock()
}
