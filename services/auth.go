package services

import (
	"context"
	"fmt"

	"github.com/lborres/agenda/core"
)

// AuthClient talks to the remote REST auth service
type AuthClient struct {
	remote *remote
}

// Ensure AuthClient implements core.AuthService
var _ core.AuthService = (*AuthClient)(nil)

func NewAuthClient(cfg ClientConfig) (*AuthClient, error) {
	r, err := newRemote(cfg, "auth-client")
	if err != nil {
		return nil, err
	}
	return &AuthClient{remote: r}, nil
}

// Login posts the credentials to /auth/login
func (c *AuthClient) Login(ctx context.Context, input core.LoginInput) (*core.AuthResponse, error) {
	var resp core.AuthResponse
	if err := c.remote.call(ctx, "auth.login", "/auth/login", "", input, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SignUp posts the new account to /auth/signup
func (c *AuthClient) SignUp(ctx context.Context, input core.SignUpInput) (*core.AuthResponse, error) {
	var resp core.AuthResponse
	if err := c.remote.call(ctx, "auth.signup", "/auth/signup", "", input, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Me asks /auth/me who token belongs to
func (c *AuthClient) Me(ctx context.Context, token string) (*core.User, error) {
	if token == "" {
		return nil, core.ErrTokenNotFound
	}

	var user core.User
	if err := c.remote.call(ctx, "auth.me", "/auth/me", token, struct{}{}, &user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, fmt.Errorf("auth.me: %w: missing id", core.ErrMalformedResponse)
	}
	return &user, nil
}
