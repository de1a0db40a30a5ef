package fakeapi

import (
	"encoding/json"
	"net/http"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/lborres/agenda/core"
)

type graphQLRequest struct {
	OperationName string          `json:"operationName"`
	Query         string          `json:"query"`
	Variables     json.RawMessage `json:"variables"`
}

type graphQLError struct {
	Message string `json:"message"`
}

const defaultPageLimit = 10

// handleGraphQL dispatches on the operation name; the query text is not parsed
func (s *Server) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	var req graphQLRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid GraphQL request")
		return
	}

	s.mu.Lock()
	if n := len(s.requests); n > 0 {
		s.requests[n-1].Operation = req.OperationName
	}
	status, fail := s.failNext[req.OperationName]
	if fail {
		delete(s.failNext, req.OperationName)
	}
	s.mu.Unlock()

	if fail {
		writeGraphQLErrors(w, status, http.StatusText(status))
		return
	}

	var (
		data any
		err  error
	)
	switch req.OperationName {
	case "Locations":
		data, err = s.queryLocations()
	case "Users":
		data, err = s.queryUsers()
	case "FindManyEvents":
		data, err = s.queryEvents(req.Variables)
	case "CreateEvent":
		data, err = s.createEvent(r, req.Variables)
	case "UpdateEvent":
		data, err = s.updateEvent(req.Variables)
	case "DeleteEvent":
		data, err = s.removeEvent(req.Variables)
	case "CreateLocation":
		data, err = s.createLocation(req.Variables)
	case "UpdateLocation":
		data, err = s.updateLocation(req.Variables)
	case "DeleteLocation":
		data, err = s.removeLocation(req.Variables)
	default:
		writeGraphQLErrors(w, http.StatusBadRequest, "unknown operation "+req.OperationName)
		return
	}
	if err != nil {
		// GraphQL servers report resolver errors with 200
		writeGraphQLErrors(w, http.StatusOK, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": data})
}

func writeGraphQLErrors(w http.ResponseWriter, status int, messages ...string) {
	errs := make([]graphQLError, len(messages))
	for i, m := range messages {
		errs[i] = graphQLError{Message: m}
	}
	writeJSON(w, status, map[string]any{"data": nil, "errors": errs})
}

type resolverError string

func (e resolverError) Error() string { return string(e) }

const (
	errNotFound     resolverError = "Not Found"
	errBadVariables resolverError = "invalid variables"
	errUnauthorized resolverError = "Unauthorized"
)

func (s *Server) queryLocations() (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]any{"locations": nonNil(slices.Clone(s.locations))}, nil
}

func (s *Server) queryUsers() (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]core.User, 0, len(s.accounts))
	for _, acc := range s.accounts {
		users = append(users, acc.user)
	}
	slices.SortFunc(users, func(a, b core.User) int {
		return strings.Compare(a.Email, b.Email)
	})
	return map[string]any{"users": users}, nil
}

func (s *Server) queryEvents(raw json.RawMessage) (any, error) {
	var vars struct {
		Input *core.FindManyArgs `json:"input"`
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &vars); err != nil {
			return nil, errBadVariables
		}
	}

	page, limit := 1, defaultPageLimit
	if vars.Input != nil {
		if vars.Input.Page > 0 {
			page = vars.Input.Page
		}
		if vars.Input.Limit > 0 {
			limit = vars.Input.Limit
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	total := len(s.events)
	start := min((page-1)*limit, total)
	end := min(start+limit, total)

	return map[string]any{
		"events": core.EventPage{
			Data: nonNil(slices.Clone(s.events[start:end])),
			Meta: core.PageMeta{Page: page, Limit: limit, Total: total},
		},
	}, nil
}

func (s *Server) createEvent(r *http.Request, raw json.RawMessage) (any, error) {
	creator, err := s.authenticate(r)
	if err != nil {
		return nil, errUnauthorized
	}

	var vars struct {
		Input core.CreateEventInput `json:"input"`
	}
	if err := json.Unmarshal(raw, &vars); err != nil || vars.Input.Title == "" {
		return nil, errBadVariables
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.cfg.Now().UTC()
	e := core.Event{
		ID:          uuid.NewString(),
		Title:       vars.Input.Title,
		Description: vars.Input.Description,
		StartDate:   vars.Input.StartDate,
		EndDate:     vars.Input.EndDate,
		CreatedBy:   &core.UserRef{ID: creator.ID, FirstName: creator.FirstName, LastName: creator.LastName},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if vars.Input.LocationID != "" {
		loc, ok := s.findLocationLocked(vars.Input.LocationID)
		if !ok {
			return nil, errNotFound
		}
		e.Location = &core.LocationRef{ID: loc.ID, Name: loc.Name}
	}
	e.Participants = s.participantsLocked(vars.Input.ParticipantIDs)

	s.events = append(s.events, e)
	return map[string]any{"createEvent": e}, nil
}

func (s *Server) updateEvent(raw json.RawMessage) (any, error) {
	var vars struct {
		Input core.UpdateEventInput `json:"input"`
	}
	if err := json.Unmarshal(raw, &vars); err != nil || vars.Input.ID == "" {
		return nil, errBadVariables
	}
	in := vars.Input

	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.events, func(e core.Event) bool { return e.ID == in.ID })
	if i < 0 {
		return nil, errNotFound
	}
	e := s.events[i]
	if in.Title != nil {
		e.Title = *in.Title
	}
	if in.Description != nil {
		e.Description = *in.Description
	}
	if in.StartDate != nil {
		e.StartDate = *in.StartDate
	}
	if in.EndDate != nil {
		e.EndDate = *in.EndDate
	}
	if in.LocationID != nil {
		loc, ok := s.findLocationLocked(*in.LocationID)
		if !ok {
			return nil, errNotFound
		}
		e.Location = &core.LocationRef{ID: loc.ID, Name: loc.Name}
	}
	if in.ParticipantIDs != nil {
		e.Participants = s.participantsLocked(in.ParticipantIDs)
	}
	e.UpdatedAt = s.cfg.Now().UTC()

	s.events[i] = e
	return map[string]any{"updateEvent": e}, nil
}

func (s *Server) removeEvent(raw json.RawMessage) (any, error) {
	id, err := idVariable(raw)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.events, func(e core.Event) bool { return e.ID == id })
	if i < 0 {
		return nil, errNotFound
	}
	removed := s.events[i]
	s.events = slices.Delete(s.events, i, i+1)
	return map[string]any{"removeEvent": map[string]string{"title": removed.Title}}, nil
}

func (s *Server) createLocation(raw json.RawMessage) (any, error) {
	var vars struct {
		Input core.CreateLocationInput `json:"input"`
	}
	if err := json.Unmarshal(raw, &vars); err != nil || vars.Input.Name == "" {
		return nil, errBadVariables
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l := core.Location{ID: uuid.NewString(), Name: vars.Input.Name, LocationCode: vars.Input.LocationCode}
	s.locations = append(s.locations, l)
	return map[string]any{"createLocation": l}, nil
}

func (s *Server) updateLocation(raw json.RawMessage) (any, error) {
	var vars struct {
		Input core.UpdateLocationInput `json:"input"`
	}
	if err := json.Unmarshal(raw, &vars); err != nil || vars.Input.ID == "" {
		return nil, errBadVariables
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.locations, func(l core.Location) bool { return l.ID == vars.Input.ID })
	if i < 0 {
		return nil, errNotFound
	}
	if vars.Input.Name != nil {
		s.locations[i].Name = *vars.Input.Name
	}
	if vars.Input.LocationCode != nil {
		s.locations[i].LocationCode = *vars.Input.LocationCode
	}
	return map[string]any{"updateLocation": s.locations[i]}, nil
}

func (s *Server) removeLocation(raw json.RawMessage) (any, error) {
	id, err := idVariable(raw)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.locations, func(l core.Location) bool { return l.ID == id })
	if i < 0 {
		return nil, errNotFound
	}
	removed := s.locations[i]
	s.locations = slices.Delete(s.locations, i, i+1)
	return map[string]any{"removeLocation": map[string]string{"name": removed.Name}}, nil
}

func (s *Server) findLocationLocked(id string) (core.Location, bool) {
	i := slices.IndexFunc(s.locations, func(l core.Location) bool { return l.ID == id })
	if i < 0 {
		return core.Location{}, false
	}
	return s.locations[i], true
}

func (s *Server) participantsLocked(ids []string) []core.User {
	var users []core.User
	for _, acc := range s.accounts {
		if slices.Contains(ids, acc.user.ID) {
			users = append(users, acc.user)
		}
	}
	return users
}

func idVariable(raw json.RawMessage) (string, error) {
	var vars struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &vars); err != nil || vars.ID == "" {
		return "", errBadVariables
	}
	return vars.ID, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
