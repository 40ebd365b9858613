package session

import (
	"context"
	"fmt"
	"sync"

	contractx "github.com/tanpawarit/sales-assistant/sales/contract"
)

// Local is the gate used when no identity service is configured. It starts
// signed in as a single local user.
type Local struct {
	notifier

	mu       sync.Mutex
	identity Identity
	signedIn bool
}

var _ Gate = (*Local)(nil)

func NewLocal(name string) *Local {
	if name == "" {
		name = "local"
	}
	return &Local{
		identity: Identity{ID: "local", Name: name},
		signedIn: true,
	}
}

func (l *Local) session() *Session {
	return &Session{
		ID:     "local",
		UserID: l.identity.ID,
		User:   l.identity,
	}
}

func (l *Local) CurrentSession(context.Context) (*Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.signedIn {
		return nil, nil
	}
	return l.session(), nil
}

func (l *Local) SignIn(_ context.Context, email, password string) (*Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", contractx.ErrAuth)
	}

	l.mu.Lock()
	l.identity.Email = email
	l.signedIn = true
	s := l.session()
	l.mu.Unlock()

	l.notify(Change{Event: EventSignedIn, Session: s})
	return s, nil
}

func (l *Local) SignUp(_ context.Context, email, password, name string) (Identity, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Identity{}, err
	}
	if password == "" {
		return Identity{}, fmt.Errorf("%w: password is required", contractx.ErrAuth)
	}
	if name == "" {
		name = defaultName(email)
	}
	return Identity{ID: "local", Email: email, Name: name}, nil
}

func (l *Local) SignInWithOAuth(context.Context, string) (string, error) {
	return "", fmt.Errorf("%w: oauth is not available without an identity service", contractx.ErrAuth)
}

func (l *Local) SignOut(context.Context) error {
	l.mu.Lock()
	l.signedIn = false
	l.mu.Unlock()

	l.notify(Change{Event: EventSignedOut})
	return nil
}

func (l *Local) RequestPasswordReset(context.Context, string) error {
	return fmt.Errorf("%w: password reset is not available without an identity service", contractx.ErrAuth)
}

func (l *Local) UpdatePassword(context.Context, string, string, string) error {
	return fmt.Errorf("%w: password update is not available without an identity service", contractx.ErrAuth)
}
