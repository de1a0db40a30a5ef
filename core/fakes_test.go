package core

import (
	"context"
	"sync"
)

// memStorage is a map-backed TokenStorage with injectable errors
type memStorage struct {
	mu        sync.Mutex
	values    map[string]string
	getErr    error
	setErr    error
	removeErr error
}

func newMemStorage() *memStorage {
	return &memStorage{values: make(map[string]string)}
}

func (m *memStorage) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", m.getErr
	}
	v, ok := m.values[key]
	if !ok {
		return "", ErrTokenNotFound
	}
	return v, nil
}

func (m *memStorage) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	return nil
}

func (m *memStorage) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removeErr != nil {
		return m.removeErr
	}
	delete(m.values, key)
	return nil
}

func (m *memStorage) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.values[key]
	return ok
}

// fakeAuth answers with canned responses and counts calls
type fakeAuth struct {
	mu sync.Mutex

	loginResp  *AuthResponse
	loginErr   error
	signUpResp *AuthResponse
	signUpErr  error
	meUser     *User
	meErr      error

	// meHook runs inside Me before it returns, to simulate interleaving
	meHook func()

	loginCalls  int
	signUpCalls int
	meCalls     int
	lastToken   string
}

func (f *fakeAuth) Login(_ context.Context, _ LoginInput) (*AuthResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginCalls++
	return f.loginResp, f.loginErr
}

func (f *fakeAuth) SignUp(_ context.Context, _ SignUpInput) (*AuthResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signUpCalls++
	return f.signUpResp, f.signUpErr
}

func (f *fakeAuth) Me(_ context.Context, token string) (*User, error) {
	f.mu.Lock()
	f.meCalls++
	f.lastToken = token
	hook := f.meHook
	user, err := f.meUser, f.meErr
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	return user, err
}
