package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lborres/agenda/core"
)

const graphQLPath = "/graphql"

type graphQLRequest struct {
	OperationName string         `json:"operationName"`
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// query runs one GraphQL operation and decodes its data into out.
// A non-empty errors list is a remote failure even with status 200.
func (r *remote) query(ctx context.Context, operation, document, token string, vars map[string]any, out any) error {
	op := "data." + operation

	status, body, err := r.postJSON(ctx, op, graphQLPath, token, graphQLRequest{
		OperationName: operation,
		Query:         document,
		Variables:     vars,
	})
	if err != nil {
		return err
	}

	var resp graphQLResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		if status < 200 || status > 299 {
			var eb errorBody
			_ = json.Unmarshal(body, &eb)
			return &core.RemoteError{Op: op, StatusCode: status, Message: eb.text()}
		}
		return fmt.Errorf("%s: %w: %v", op, core.ErrMalformedResponse, err)
	}

	if len(resp.Errors) > 0 {
		messages := make([]string, len(resp.Errors))
		for i, e := range resp.Errors {
			messages[i] = e.Message
		}
		return &core.RemoteError{Op: op, StatusCode: status, Message: strings.Join(messages, "; ")}
	}
	if status < 200 || status > 299 {
		return &core.RemoteError{Op: op, StatusCode: status}
	}
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		return fmt.Errorf("%s: %w: no data", op, core.ErrMalformedResponse)
	}

	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("%s: %w: %v", op, core.ErrMalformedResponse, err)
	}
	return nil
}

const eventFields = `
      id
      title
      description
      startDate
      endDate
      location {
        id
        name
      }
      createdBy {
        id
        firstName
        lastName
      }
      participants {
        id
        firstName
        lastName
        email
      }
      createdAt
      updatedAt`

const (
	locationsQuery = `query Locations {
  locations {
    id
    name
    locationCode
  }
}`

	usersQuery = `query Users {
  users {
    id
    firstName
    lastName
    email
  }
}`

	findManyEventsQuery = `query FindManyEvents($input: FindManyArgsInput) {
  events(findManyArgsInput: $input) {
    data {` + eventFields + `
    }
    meta {
      page
      limit
      total
    }
  }
}`

	createEventMutation = `mutation CreateEvent($input: CreateEventInput!) {
  createEvent(createEventInput: $input) {` + eventFields + `
  }
}`

	updateEventMutation = `mutation UpdateEvent($input: UpdateEventInput!) {
  updateEvent(updateEventInput: $input) {` + eventFields + `
  }
}`

	deleteEventMutation = `mutation DeleteEvent($id: String!) {
  removeEvent(id: $id) {
    title
  }
}`

	createLocationMutation = `mutation CreateLocation($input: CreateLocationInput!) {
  createLocation(createLocationInput: $input) {
    id
    name
    locationCode
  }
}`

	updateLocationMutation = `mutation UpdateLocation($input: UpdateLocationInput!) {
  updateLocation(updateLocationInput: $input) {
    id
    name
    locationCode
  }
}`

	deleteLocationMutation = `mutation DeleteLocation($id: String!) {
  removeLocation(id: $id) {
    name
  }
}`
)
