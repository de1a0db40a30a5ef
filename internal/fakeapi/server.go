// Package fakeapi is an in-memory stand-in for the remote auth and data
// services. It backs the tests and the `agenda mock-api` command.
package fakeapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/lborres/agenda/core"
	"github.com/lborres/agenda/pkg/crypto"
)

type Config struct {
	// Secret signs the issued access tokens
	Secret []byte
	// TokenTTL is the lifetime of issued tokens
	TokenTTL time.Duration
	Now      func() time.Time
}

type account struct {
	user     core.User
	password string
}

// Server holds the fake's data. All methods are safe for concurrent use.
type Server struct {
	cfg Config

	mu        sync.Mutex
	accounts  map[string]*account // by email
	events    []core.Event
	locations []core.Location
	requests  []Request
	failNext  map[string]int // path or operation -> status
}

// Request records one call seen by the server
type Request struct {
	Method    string
	Path      string
	Operation string
	RequestID string
	Bearer    string
}

func New(cfg Config) *Server {
	if len(cfg.Secret) == 0 {
		cfg.Secret = []byte("agenda-fake-secret")
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Server{
		cfg:      cfg,
		accounts: make(map[string]*account),
		failNext: make(map[string]int),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/signup", s.handleSignUp)
		r.Post("/me", s.handleMe)
	})
	r.Post("/graphql", s.handleGraphQL)

	return r
}

// AddUser registers an account directly and returns it
func (s *Server) AddUser(firstName, lastName, email, password string) core.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(firstName, lastName, email, password)
}

func (s *Server) addUserLocked(firstName, lastName, email, password string) core.User {
	u := core.User{ID: uuid.NewString(), FirstName: firstName, LastName: lastName, Email: email}
	s.accounts[strings.ToLower(email)] = &account{user: u, password: password}
	return u
}

func (s *Server) AddLocation(name, code string) core.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := core.Location{ID: uuid.NewString(), Name: name, LocationCode: code}
	s.locations = append(s.locations, l)
	return l
}

func (s *Server) AddEvent(e core.Event) core.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := s.cfg.Now().UTC()
	e.CreatedAt, e.UpdatedAt = now, now
	s.events = append(s.events, e)
	return e
}

// FailNext makes the next call to path (or GraphQL operation) answer status
func (s *Server) FailNext(target string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext[target] = status
}

// Requests returns the calls seen so far
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

// IssueToken signs a token for userID valid until expiresAt
func (s *Server) IssueToken(userID string, expiresAt time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(s.cfg.Now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:    r.Method,
			Path:      r.URL.Path,
			RequestID: r.Header.Get("X-Request-ID"),
			Bearer:    bearerToken(r),
		})
		status, fail := s.failNext[r.URL.Path]
		if fail {
			delete(s.failNext, r.URL.Path)
		}
		s.mu.Unlock()

		if fail {
			writeError(w, status, http.StatusText(status))
			return
		}
		next.ServeHTTP(w, r)
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signUpRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.mu.Lock()
	acc, ok := s.accounts[strings.ToLower(req.Email)]
	s.mu.Unlock()
	if !ok || !crypto.SameToken(acc.password, req.Password) {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	s.writeAuth(w, http.StatusCreated, acc.user)
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" || req.FirstName == "" || req.LastName == "" {
		writeError(w, http.StatusBadRequest, "firstName, lastName, email and password are required")
		return
	}

	s.mu.Lock()
	if _, exists := s.accounts[strings.ToLower(req.Email)]; exists {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "Email already registered")
		return
	}
	user := s.addUserLocked(req.FirstName, req.LastName, req.Email, req.Password)
	s.mu.Unlock()

	s.writeAuth(w, http.StatusCreated, user)
}

func (s *Server) writeAuth(w http.ResponseWriter, status int, user core.User) {
	token, err := s.IssueToken(user.ID, s.cfg.Now().Add(s.cfg.TokenTTL))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	writeJSON(w, status, core.AuthResponse{
		ID:          user.ID,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Email:       user.Email,
		AccessToken: token,
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.authenticate(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// authenticate resolves the bearer token of r to a user
func (s *Server) authenticate(r *http.Request) (core.User, error) {
	raw := bearerToken(r)
	if raw == "" {
		return core.User{}, errors.New("missing bearer token")
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.cfg.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.cfg.Now))
	if err != nil {
		return core.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acc := range s.accounts {
		if acc.user.ID == claims.Subject {
			return acc.user, nil
		}
	}
	return core.User{}, errors.New("unknown subject")
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
}

func decodeJSON(r *http.Request, out any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError answers in the remote service's error shape
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"statusCode": status,
		"message":    message,
	})
}
