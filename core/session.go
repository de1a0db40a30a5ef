package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/lborres/agenda/pkg/crypto"
)

const DefaultTokenKey = "access_token"

type SessionConfig struct {
	// TokenKey is the durable storage key holding the session token
	TokenKey string

	Logger *slog.Logger
	Now    func() time.Time
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		TokenKey: DefaultTokenKey,
	}
}

// SessionManager owns the client's authentication state.
//
// Actions are not atomic relative to each other across their remote call:
// when two of them race, the last write to user/token wins.
type SessionManager struct {
	config  SessionConfig
	auth    AuthService
	storage TokenStorage
	logger  *slog.Logger

	mu          sync.RWMutex
	user        *User
	token       string
	initialized bool
	// generation is bumped whenever user/token are replaced, so a slow
	// identity check can tell that a newer action has superseded it
	generation uint64
	listeners  []func(SessionState)

	// notifyMu serializes listener delivery
	notifyMu sync.Mutex
}

func NewSessionManager(config SessionConfig, auth AuthService, storage TokenStorage) *SessionManager {
	if config.TokenKey == "" {
		config.TokenKey = DefaultTokenKey
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &SessionManager{
		config:  config,
		auth:    auth,
		storage: storage,
		logger:  logger.With("component", "session"),
	}
}

// State returns a snapshot of the session
func (sm *SessionManager) State() SessionState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.snapshotLocked()
}

func (sm *SessionManager) snapshotLocked() SessionState {
	state := SessionState{
		Token:       sm.token,
		Initialized: sm.initialized,
	}
	if sm.user != nil {
		u := *sm.user
		state.User = &u
	}
	return state
}

// Token returns the current bearer token, empty when anonymous
func (sm *SessionManager) Token() string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.token
}

// OnChange registers fn to be called with the new state after every transition.
// Deliveries never overlap and each carries the state current at delivery
// time, so the last call a listener sees matches State(). Listeners must not
// call session actions.
func (sm *SessionManager) OnChange(fn func(SessionState)) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.listeners = append(sm.listeners, fn)
}

func (sm *SessionManager) notify() {
	sm.notifyMu.Lock()
	defer sm.notifyMu.Unlock()

	sm.mu.RLock()
	state := sm.snapshotLocked()
	listeners := slices.Clone(sm.listeners)
	sm.mu.RUnlock()

	for _, fn := range listeners {
		fn(state)
	}
}

// Initialize runs the bootstrap sequence once.
//
// It marks the session initialized before doing anything else, then restores
// the persisted token and checks it with the auth service. It never fails:
// any problem leaves the session anonymous with the stored token erased.
func (sm *SessionManager) Initialize(ctx context.Context) {
	sm.mu.Lock()
	if sm.initialized {
		sm.mu.Unlock()
		return
	}
	sm.initialized = true
	gen := sm.generation
	sm.mu.Unlock()
	sm.notify()

	token, err := sm.storage.Get(ctx, sm.config.TokenKey)
	if err != nil {
		if !errors.Is(err, ErrTokenNotFound) {
			sm.logger.Warn("could not read persisted token", "error", err)
		}
		return
	}
	if token == "" {
		return
	}

	sm.mu.Lock()
	if sm.generation != gen {
		// a login or logout already decided the session
		sm.mu.Unlock()
		return
	}
	sm.token = token
	sm.mu.Unlock()

	user, err := sm.validate(ctx, token)

	sm.mu.Lock()
	if sm.generation != gen || sm.token != token {
		sm.mu.Unlock()
		sm.logger.Debug("discarding stale identity check", "token", crypto.Fingerprint(token))
		return
	}
	if err != nil {
		sm.user = nil
		sm.token = ""
		sm.generation++
		sm.mu.Unlock()

		sm.logger.Warn("persisted token rejected, continuing anonymously",
			"token", crypto.Fingerprint(token), "error", err)
		if rmErr := sm.storage.Remove(ctx, sm.config.TokenKey); rmErr != nil {
			sm.logger.Warn("could not erase persisted token", "error", rmErr)
		}
		sm.notify()
		return
	}
	sm.user = user
	sm.mu.Unlock()

	sm.logger.Info("session restored", "user", user.ID)
	sm.notify()
}

func (sm *SessionManager) validate(ctx context.Context, token string) (*User, error) {
	if crypto.TokenExpired(token, sm.config.Now()) {
		return nil, ErrTokenExpired
	}

	user, err := sm.auth.Me(ctx, token)
	if err != nil {
		return nil, err
	}
	if user == nil || user.ID == "" {
		return nil, fmt.Errorf("auth.me: %w", ErrMalformedResponse)
	}
	return user, nil
}

// Login authenticates with email and password.
//
// On failure the session is left as it was and the error is returned.
func (sm *SessionManager) Login(ctx context.Context, input LoginInput) (*User, error) {
	input.Email = strings.TrimSpace(input.Email)
	if input.Email == "" {
		return nil, ErrEmailRequired
	}
	if input.Password == "" {
		return nil, ErrPasswordRequired
	}

	resp, err := sm.auth.Login(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	return sm.establish(ctx, "login", resp)
}

// Register creates an account and logs into it, with the same contract as Login
func (sm *SessionManager) Register(ctx context.Context, input SignUpInput) (*User, error) {
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	input.Email = strings.TrimSpace(input.Email)
	if input.FirstName == "" || input.LastName == "" {
		return nil, ErrNameRequired
	}
	if input.Email == "" {
		return nil, ErrEmailRequired
	}
	if input.Password == "" {
		return nil, ErrPasswordRequired
	}

	resp, err := sm.auth.SignUp(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("sign-up failed: %w", err)
	}

	return sm.establish(ctx, "sign-up", resp)
}

func (sm *SessionManager) establish(ctx context.Context, op string, resp *AuthResponse) (*User, error) {
	if resp == nil || resp.ID == "" || resp.AccessToken == "" {
		return nil, fmt.Errorf("%s failed: %w", op, ErrMalformedResponse)
	}

	user := resp.user()

	sm.mu.Lock()
	sm.user = user
	sm.token = resp.AccessToken
	sm.initialized = true
	sm.generation++
	sm.mu.Unlock()

	// The in-memory session is valid even if persisting it fails
	if err := sm.storage.Set(ctx, sm.config.TokenKey, resp.AccessToken); err != nil {
		sm.logger.Warn("could not persist token", "error", err)
	}

	sm.logger.Info("logged in", "op", op, "user", user.ID, "token", crypto.Fingerprint(resp.AccessToken))
	sm.notify()

	u := *user
	return &u, nil
}

// Logout clears the session and erases the persisted token.
// It never contacts the remote service.
func (sm *SessionManager) Logout(ctx context.Context) error {
	sm.mu.Lock()
	sm.user = nil
	sm.token = ""
	sm.generation++
	sm.mu.Unlock()

	sm.notify()

	if err := sm.storage.Remove(ctx, sm.config.TokenKey); err != nil {
		return fmt.Errorf("failed to erase persisted token: %w", err)
	}

	sm.logger.Info("logged out")
	return nil
}
