package fiber

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/lborres/agenda"
	"github.com/lborres/agenda/services"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type testShell struct {
	app     *fiber.App
	agenda  *agenda.Agenda
	auth    *services.FakeAuthService
	data    *services.FakeDataService
	storage *services.FakeTokenStorage
}

func newTestShell(t *testing.T) *testShell {
	t.Helper()

	s := &testShell{
		app:     fiber.New(),
		auth:    services.NewFakeAuthService(),
		data:    services.NewFakeDataService(),
		storage: services.NewFakeTokenStorage(),
	}
	s.auth.AddUser(agenda.User{ID: "u1", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}, "secret")

	ag, err := agenda.New(agenda.Config{
		TokenStorage: s.storage,
		AuthService:  s.auth,
		DataService:  s.data,
		HTTP:         New(s.app, WithLogger(discardLogger)),
		Logger:       discardLogger,
	})
	if err != nil {
		t.Fatalf("agenda.New() error = %v", err)
	}
	s.agenda = ag
	return s
}

func (s *testShell) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// login bootstraps the session and signs in as the seeded user
func (s *testShell) login(t *testing.T) {
	t.Helper()
	s.do(t, http.MethodGet, "/checkauth", nil)
	resp := s.do(t, http.MethodPost, "/login", agenda.LoginInput{Email: "ada@example.com", Password: "secret"})
	assertRedirect(t, resp, "/")
}

func assertRedirect(t *testing.T, resp *http.Response, want string) {
	t.Helper()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusSeeOther)
	}
	if got := resp.Header.Get("Location"); got != want {
		t.Fatalf("Location = %q, want %q", got, want)
	}
}

func assertStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, want %d (body %s)", resp.StatusCode, want, body)
	}
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return out
}

func TestGuard_BeforeBootstrap(t *testing.T) {
	s := newTestShell(t)

	tests := []struct {
		method string
		path   string
		want   string
	}{
		{http.MethodGet, "/", "/checkauth"},
		{http.MethodGet, "/events", "/checkauth"},
		{http.MethodGet, "/events/e1", "/checkauth"},
		{http.MethodDelete, "/locations/l1", "/checkauth"},
		{http.MethodGet, "/login", "/checkauth"},
		{http.MethodPost, "/signup", "/checkauth"},
	}

	for _, test := range tests {
		t.Run(test.method+" "+test.path, func(t *testing.T) {
			assertRedirect(t, s.do(t, test.method, test.path, nil), test.want)
		})
	}

	// open routes are never gated
	assertStatus(t, s.do(t, http.MethodGet, "/health", nil), http.StatusOK)
}

func TestCheckAuth(t *testing.T) {
	t.Run("no stored token goes to login", func(t *testing.T) {
		s := newTestShell(t)

		assertRedirect(t, s.do(t, http.MethodGet, "/checkauth", nil), "/login")
		assertStatus(t, s.do(t, http.MethodGet, "/login", nil), http.StatusOK)
		assertRedirect(t, s.do(t, http.MethodGet, "/events", nil), "/login")

		// already bootstrapped
		assertRedirect(t, s.do(t, http.MethodGet, "/checkauth", nil), "/login")
	})

	t.Run("stored token goes home", func(t *testing.T) {
		s := newTestShell(t)
		_ = s.storage.Set(t.Context(), agenda.DefaultTokenKey, "token-u1")

		assertRedirect(t, s.do(t, http.MethodGet, "/checkauth", nil), "/")
		assertStatus(t, s.do(t, http.MethodGet, "/events", nil), http.StatusOK)
		assertRedirect(t, s.do(t, http.MethodGet, "/signup", nil), "/")
	})

	t.Run("rejected token is erased", func(t *testing.T) {
		s := newTestShell(t)
		_ = s.storage.Set(t.Context(), agenda.DefaultTokenKey, "token-unknown")

		assertRedirect(t, s.do(t, http.MethodGet, "/checkauth", nil), "/login")
		if s.storage.Has(agenda.DefaultTokenKey) {
			t.Error("rejected token should be removed from storage")
		}
	})
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name       string
		input      agenda.LoginInput
		wantStatus int
	}{
		{name: "valid", input: agenda.LoginInput{Email: "ada@example.com", Password: "secret"}, wantStatus: http.StatusSeeOther},
		{name: "wrong password", input: agenda.LoginInput{Email: "ada@example.com", Password: "nope"}, wantStatus: http.StatusUnauthorized},
		{name: "missing email", input: agenda.LoginInput{Password: "secret"}, wantStatus: http.StatusBadRequest},
		{name: "missing password", input: agenda.LoginInput{Email: "ada@example.com"}, wantStatus: http.StatusBadRequest},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s := newTestShell(t)
			s.do(t, http.MethodGet, "/checkauth", nil)

			resp := s.do(t, http.MethodPost, "/login", test.input)
			assertStatus(t, resp, test.wantStatus)

			authenticated := s.agenda.Session.State().Authenticated()
			if authenticated != (test.wantStatus == http.StatusSeeOther) {
				t.Errorf("Authenticated() = %v after status %d", authenticated, resp.StatusCode)
			}
		})
	}
}

func TestLogin_InvalidBody(t *testing.T) {
	s := newTestShell(t)
	s.do(t, http.MethodGet, "/checkauth", nil)

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	assertStatus(t, resp, http.StatusBadRequest)
}

func TestSignup(t *testing.T) {
	s := newTestShell(t)
	s.do(t, http.MethodGet, "/checkauth", nil)

	duplicate := agenda.SignUpInput{FirstName: "Ada", LastName: "L", Email: "ada@example.com", Password: "x"}
	assertStatus(t, s.do(t, http.MethodPost, "/signup", duplicate), http.StatusConflict)

	fresh := agenda.SignUpInput{FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com", Password: "cobol"}
	assertRedirect(t, s.do(t, http.MethodPost, "/signup", fresh), "/")

	home := decodeBody[viewResponse](t, s.do(t, http.MethodGet, "/", nil))
	if home.User == nil || home.User.Email != "grace@example.com" {
		t.Errorf("home user = %+v, want grace", home.User)
	}
}

func TestLogout(t *testing.T) {
	s := newTestShell(t)
	s.login(t)

	assertRedirect(t, s.do(t, http.MethodPost, "/logout", nil), "/login")
	assertRedirect(t, s.do(t, http.MethodGet, "/events", nil), "/login")
	if s.storage.Has(agenda.DefaultTokenKey) {
		t.Error("logout should erase the stored token")
	}
}

func TestEvents_Lifecycle(t *testing.T) {
	s := newTestShell(t)
	s.data.Seed([]agenda.Event{{ID: "e0", Title: "Existing"}}, nil, nil)
	s.login(t)

	start := time.Date(2026, 11, 2, 9, 0, 0, 0, time.UTC)
	create := agenda.CreateEventInput{Title: "Kickoff", StartDate: start, EndDate: start.Add(time.Hour)}
	resp := s.do(t, http.MethodPost, "/events", create)
	assertStatus(t, resp, http.StatusCreated)
	created := decodeBody[agenda.Event](t, resp)
	if created.ID == "" || created.Title != "Kickoff" {
		t.Fatalf("created = %+v", created)
	}

	page := decodeBody[agenda.EventPage](t, s.do(t, http.MethodGet, "/events?page=1&limit=10", nil))
	if page.Meta.Total != 2 || len(page.Data) != 2 {
		t.Fatalf("page = %+v, want 2 events", page)
	}

	got := decodeBody[agenda.Event](t, s.do(t, http.MethodGet, "/events/"+created.ID, nil))
	if got.ID != created.ID {
		t.Errorf("GET event id = %q, want %q", got.ID, created.ID)
	}

	resp = s.do(t, http.MethodPatch, "/events/"+created.ID, map[string]string{"title": "Kickoff v2"})
	assertStatus(t, resp, http.StatusOK)
	if stored, _ := s.agenda.Stores.Events.Get(created.ID); stored.Title != "Kickoff v2" {
		t.Errorf("stored title = %q, want updated", stored.Title)
	}

	assertStatus(t, s.do(t, http.MethodDelete, "/events/"+created.ID, nil), http.StatusNoContent)
	assertStatus(t, s.do(t, http.MethodGet, "/events/"+created.ID, nil), http.StatusNotFound)
}

func TestGetEvent_LoadsOnMiss(t *testing.T) {
	s := newTestShell(t)
	s.data.Seed([]agenda.Event{{ID: "e7", Title: "Remote only"}}, nil, nil)
	s.login(t)

	got := decodeBody[agenda.Event](t, s.do(t, http.MethodGet, "/events/e7", nil))
	if got.Title != "Remote only" {
		t.Errorf("title = %q", got.Title)
	}
}

func TestLocationsAndUsers(t *testing.T) {
	s := newTestShell(t)
	s.data.Seed(nil,
		[]agenda.Location{{ID: "l1", Name: "Main hall", LocationCode: "MH"}},
		[]agenda.User{{ID: "u1", Email: "ada@example.com"}})
	s.login(t)

	locations := decodeBody[[]agenda.Location](t, s.do(t, http.MethodGet, "/locations", nil))
	if len(locations) != 1 {
		t.Fatalf("locations = %+v", locations)
	}

	resp := s.do(t, http.MethodPost, "/locations", agenda.CreateLocationInput{Name: "Annex", LocationCode: "AX"})
	assertStatus(t, resp, http.StatusCreated)
	annex := decodeBody[agenda.Location](t, resp)
	if annex.ID == "l1" {
		t.Fatalf("created location reused seeded id %q", annex.ID)
	}
	if s.agenda.Stores.Locations.Len() != 2 {
		t.Errorf("locations stored after create = %d, want 2", s.agenda.Stores.Locations.Len())
	}

	resp = s.do(t, http.MethodPatch, "/locations/"+annex.ID, map[string]string{"name": "Annex B"})
	assertStatus(t, resp, http.StatusOK)
	assertStatus(t, s.do(t, http.MethodDelete, "/locations/"+annex.ID, nil), http.StatusNoContent)
	if s.agenda.Stores.Locations.Len() != 1 {
		t.Errorf("locations stored = %d, want 1", s.agenda.Stores.Locations.Len())
	}

	users := decodeBody[[]agenda.User](t, s.do(t, http.MethodGet, "/users", nil))
	if len(users) != 1 {
		t.Errorf("users = %+v", users)
	}
}

func TestRemoteFailure(t *testing.T) {
	s := newTestShell(t)
	s.login(t)

	s.data.Err = &agenda.RemoteError{Op: "data.Locations", StatusCode: http.StatusServiceUnavailable}
	assertStatus(t, s.do(t, http.MethodGet, "/locations", nil), http.StatusBadGateway)

	s.data.Err = &agenda.RemoteError{Op: "data.Locations", StatusCode: http.StatusForbidden, Message: "Forbidden"}
	assertStatus(t, s.do(t, http.MethodGet, "/locations", nil), http.StatusForbidden)
}

func TestMetrics(t *testing.T) {
	s := newTestShell(t)
	s.data.Seed([]agenda.Event{{ID: "e1"}, {ID: "e2"}}, nil, nil)
	s.do(t, http.MethodGet, "/events", nil) // redirected: unbootstrapped
	s.login(t)
	s.do(t, http.MethodGet, "/events", nil)

	resp := s.do(t, http.MethodGet, "/metrics", nil)
	assertStatus(t, resp, http.StatusOK)
	raw, _ := io.ReadAll(resp.Body)
	body := string(raw)

	for _, want := range []string{
		`agenda_session_phase{phase="authenticated"} 1`,
		`agenda_session_phase{phase="anonymous"} 0`,
		`agenda_store_entries{store="events"} 2`,
		`agenda_store_entries{store="locations"} 0`,
		`agenda_guard_decisions_total{outcome="redirect_checkauth",route="events"} 1`,
		`agenda_guard_decisions_total{outcome="proceed",route="events"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestRegisterRoutes_Conflict(t *testing.T) {
	s := newTestShell(t)

	err := New(fiber.New(), WithLogger(discardLogger)).RegisterRoutes(s.agenda)
	if !errors.Is(err, agenda.ErrRouteConflict) {
		t.Errorf("second RegisterRoutes() error = %v, want ErrRouteConflict", err)
	}
}

func TestMapErrorToStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{agenda.ErrEmailRequired, http.StatusBadRequest},
		{agenda.ErrNameRequired, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", agenda.ErrInvalidEntity), http.StatusBadRequest},
		{agenda.ErrNotFound, http.StatusNotFound},
		{&agenda.RemoteError{Op: "auth.login", StatusCode: 401}, http.StatusUnauthorized},
		{fmt.Errorf("login failed: %w", &agenda.RemoteError{Op: "auth.signup", StatusCode: 409}), http.StatusConflict},
		{&agenda.RemoteError{Op: "data.Users", StatusCode: 500}, http.StatusBadGateway},
		{&agenda.RemoteError{Op: "data.Users", Err: errors.New("connection refused")}, http.StatusBadGateway},
		{agenda.ErrMalformedResponse, http.StatusBadGateway},
		{errors.New("unexpected"), http.StatusInternalServerError},
	}

	for _, test := range tests {
		name := "nil"
		if test.err != nil {
			name = test.err.Error()
		}
		t.Run(name, func(t *testing.T) {
			if got := mapErrorToStatus(test.err); got != test.want {
				t.Errorf("mapErrorToStatus(%v) = %d, want %d", test.err, got, test.want)
			}
		})
	}
}
