// Package session gates the assistant behind an identity service.
package session

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	contractx "github.com/tanpawarit/sales-assistant/sales/contract"
)

type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type Session struct {
	ID     string    `json:"id"`
	UserID string    `json:"user_id"`
	Expire time.Time `json:"expire"`
	User   Identity  `json:"user"`
}

type Event string

const (
	EventSignedIn  Event = "SIGNED_IN"
	EventSignedOut Event = "SIGNED_OUT"
)

type Change struct {
	Event   Event
	Session *Session
}

// Gate is the identity boundary. CurrentSession returns (nil, nil) for an
// anonymous caller.
type Gate interface {
	CurrentSession(ctx context.Context) (*Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password, name string) (Identity, error)
	SignInWithOAuth(ctx context.Context, provider string) (string, error)
	SignOut(ctx context.Context) error
	RequestPasswordReset(ctx context.Context, email string) error
	// UpdatePassword completes a recovery when userID and secret are set,
	// otherwise changes the signed-in user's password.
	UpdatePassword(ctx context.Context, newPassword, userID, secret string) error
	Subscribe(fn func(Change)) (unsubscribe func())
}

var OAuthProviders = []string{"google", "github", "facebook", "apple"}

func validOAuthProvider(p string) bool {
	for _, known := range OAuthProviders {
		if p == known {
			return true
		}
	}
	return false
}

func normalizeEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: invalid email %q", contractx.ErrAuth, raw)
	}
	return email, nil
}

// defaultName is the local part of the e-mail address.
func defaultName(email string) string {
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return email
}

// notifier fans session changes out to subscribers.
type notifier struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(Change)
}

func (n *notifier) Subscribe(fn func(Change)) func() {
	if fn == nil {
		return func() {}
	}

	n.mu.Lock()
	if n.subs == nil {
		n.subs = make(map[int]func(Change))
	}
	id := n.nextID
	n.nextID++
	n.subs[id] = fn
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, id)
			n.mu.Unlock()
		})
	}
}

func (n *notifier) notify(c Change) {
	n.mu.Lock()
	subs := make([]func(Change), 0, len(n.subs))
	for _, fn := range n.subs {
		subs = append(subs, fn)
	}
	n.mu.Unlock()

	for _, fn := range subs {
		fn(c)
	}
}
