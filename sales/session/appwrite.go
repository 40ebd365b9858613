package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/sales-assistant/sales/contract"
)

const maxAppwriteResponseBytes = 1 << 20

type AppwriteConfig struct {
	Enabled         bool          `envconfig:"ENABLED" default:"false"`
	Endpoint        string        `envconfig:"ENDPOINT"`
	ProjectID       string        `envconfig:"PROJECT_ID" split_words:"true"`
	RecoveryURL     string        `envconfig:"RECOVERY_URL" split_words:"true" default:"http://localhost:3000/reset-password"`
	OAuthSuccessURL string        `envconfig:"OAUTH_SUCCESS_URL" split_words:"true" default:"http://localhost:3000/auth/callback"`
	OAuthFailureURL string        `envconfig:"OAUTH_FAILURE_URL" split_words:"true" default:"http://localhost:3000/auth/failure"`
	Timeout         time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

func (c AppwriteConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Endpoint) == "" {
		return fmt.Errorf("%w: appwrite endpoint is required", contractx.ErrValidation)
	}
	if _, err := url.ParseRequestURI(strings.TrimSpace(c.Endpoint)); err != nil {
		return fmt.Errorf("%w: invalid appwrite endpoint: %v", contractx.ErrValidation, err)
	}
	if strings.TrimSpace(c.ProjectID) == "" {
		return fmt.Errorf("%w: appwrite project id is required", contractx.ErrValidation)
	}
	return nil
}

// Appwrite talks to the Appwrite account REST API. The session cookie is
// kept in a cookie jar for the lifetime of the process.
type Appwrite struct {
	notifier

	endpoint   string
	cfg        AppwriteConfig
	httpClient *http.Client
}

var _ Gate = (*Appwrite)(nil)

type appwriteUser struct {
	ID    string `json:"$id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (u appwriteUser) identity() Identity {
	return Identity{ID: u.ID, Email: u.Email, Name: u.Name}
}

type appwriteSession struct {
	ID     string    `json:"$id"`
	UserID string    `json:"userId"`
	Expire time.Time `json:"expire"`
}

type appwriteError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
	Type    string `json:"type"`
}

// statusError keeps the HTTP status so callers can tell "signed out" apart
// from a failing service.
type statusError struct {
	status  int
	message string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s: appwrite status=%d: %s", contractx.ErrAuth, e.status, e.message)
}

func (e *statusError) Unwrap() error { return contractx.ErrAuth }

func NewAppwrite(cfg AppwriteConfig) (*Appwrite, error) {
	cfg.Enabled = true
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Appwrite{
		endpoint:   strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout, Jar: jar},
	}, nil
}

func (a *Appwrite) CurrentSession(ctx context.Context) (*Session, error) {
	var sess appwriteSession
	if err := a.call(ctx, http.MethodGet, "/account/sessions/current", nil, &sess); err != nil {
		var se *statusError
		if errors.As(err, &se) && se.status == http.StatusUnauthorized {
			return nil, nil
		}
		return nil, err
	}

	var user appwriteUser
	if err := a.call(ctx, http.MethodGet, "/account", nil, &user); err != nil {
		return nil, err
	}
	return &Session{ID: sess.ID, UserID: sess.UserID, Expire: sess.Expire, User: user.identity()}, nil
}

func (a *Appwrite) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", contractx.ErrAuth)
	}

	var sess appwriteSession
	if err := a.call(ctx, http.MethodPost, "/account/sessions/email", map[string]any{
		"email":    email,
		"password": password,
	}, &sess); err != nil {
		return nil, err
	}

	var user appwriteUser
	if err := a.call(ctx, http.MethodGet, "/account", nil, &user); err != nil {
		return nil, err
	}

	s := &Session{ID: sess.ID, UserID: sess.UserID, Expire: sess.Expire, User: user.identity()}
	log.Info().Str("user_id", s.UserID).Msg("signed in")
	a.notify(Change{Event: EventSignedIn, Session: s})
	return s, nil
}

func (a *Appwrite) SignUp(ctx context.Context, email, password, name string) (Identity, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Identity{}, err
	}
	if password == "" {
		return Identity{}, fmt.Errorf("%w: password is required", contractx.ErrAuth)
	}
	if strings.TrimSpace(name) == "" {
		name = defaultName(email)
	}

	var user appwriteUser
	if err := a.call(ctx, http.MethodPost, "/account", map[string]any{
		"userId":   strings.ToLower(ulid.Make().String()),
		"email":    email,
		"password": password,
		"name":     name,
	}, &user); err != nil {
		return Identity{}, err
	}
	log.Info().Str("user_id", user.ID).Msg("account created")
	return user.identity(), nil
}

// SignInWithOAuth returns the provider redirect URL. The session is created
// by Appwrite once the user completes the flow in a browser.
func (a *Appwrite) SignInWithOAuth(_ context.Context, provider string) (string, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if !validOAuthProvider(provider) {
		return "", fmt.Errorf("%w: unsupported oauth provider %q", contractx.ErrAuth, provider)
	}

	q := url.Values{}
	q.Set("project", a.cfg.ProjectID)
	q.Set("success", a.cfg.OAuthSuccessURL)
	q.Set("failure", a.cfg.OAuthFailureURL)
	return a.endpoint + "/account/sessions/oauth2/" + provider + "?" + q.Encode(), nil
}

func (a *Appwrite) SignOut(ctx context.Context) error {
	if err := a.call(ctx, http.MethodDelete, "/account/sessions/current", nil, nil); err != nil {
		return err
	}
	log.Info().Msg("signed out")
	a.notify(Change{Event: EventSignedOut})
	return nil
}

func (a *Appwrite) RequestPasswordReset(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	return a.call(ctx, http.MethodPost, "/account/recovery", map[string]any{
		"email": email,
		"url":   a.cfg.RecoveryURL,
	}, nil)
}

func (a *Appwrite) UpdatePassword(ctx context.Context, newPassword, userID, secret string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: password is required", contractx.ErrAuth)
	}
	if userID != "" && secret != "" {
		return a.call(ctx, http.MethodPut, "/account/recovery", map[string]any{
			"userId":   userID,
			"secret":   secret,
			"password": newPassword,
		}, nil)
	}
	return a.call(ctx, http.MethodPatch, "/account/password", map[string]any{
		"password": newPassword,
	}, nil)
}

func (a *Appwrite) call(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal appwrite request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.endpoint+path, reader)
	if err != nil {
		return fmt.Errorf("build appwrite request: %w", err)
	}
	req.Header.Set("X-Appwrite-Project", a.cfg.ProjectID)
	req.Header.Set("X-Appwrite-Response-Format", "1.5.0")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: appwrite request: %v", contractx.ErrAuth, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxAppwriteResponseBytes))
	if err != nil {
		return fmt.Errorf("read appwrite response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var apiErr appwriteError
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
			msg = apiErr.Message
		}
		return &statusError{status: resp.StatusCode, message: msg}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode appwrite response: %w", err)
	}
	return nil
}
