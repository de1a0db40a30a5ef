package cli

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lborres/agenda"
)

func TestExitError(t *testing.T) {
	inner := errors.New("disk full")
	err := WrapExitError(ExitCommandError, "could not save", inner)

	assert.Equal(t, "could not save: disk full", err.Error())
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "plain", NewExitError(ExitFailure, "plain").Error())
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("boom")))
	assert.Equal(t, ExitNavigation, GetExitCode(NewExitError(ExitNavigation, "login first")))
	assert.Equal(t, ExitCommandError,
		GetExitCode(fmt.Errorf("wrapped: %w", NewExitError(ExitCommandError, "bad flag"))))
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{NewExitError(ExitNavigation, "not logged in"), CodeNavigation},
		{fmt.Errorf("login failed: %w", agenda.ErrPasswordRequired), CodeValidation},
		{&agenda.RemoteError{Op: "auth.login", StatusCode: 401}, CodeRemote},
		{agenda.ErrMalformedResponse, CodeRemote},
		{NewExitError(ExitCommandError, "bad flag"), CodeCommand},
		{errors.New("other"), CodeCommand},
	}

	for _, test := range tests {
		t.Run(test.err.Error(), func(t *testing.T) {
			assert.Equal(t, test.want, errorCode(test.err))
		})
	}
}

func TestOutputFormatter_Success(t *testing.T) {
	var buf bytes.Buffer

	text := &OutputFormatter{Format: "text", Writer: &buf}
	require.NoError(t, text.Success(map[string]int{"n": 1}, "first", "second"))
	assert.Equal(t, "first\nsecond\n", buf.String())

	buf.Reset()
	require.NoError(t, text.Success("bare"))
	assert.Equal(t, "bare\n", buf.String())

	buf.Reset()
	js := &OutputFormatter{Format: "json", Writer: &buf}
	require.NoError(t, js.Success(map[string]int{"n": 1}, "ignored"))
	assert.JSONEq(t, `{"status":"ok","data":{"n":1}}`, buf.String())
}

func TestOutputFormatter_Error(t *testing.T) {
	var buf bytes.Buffer

	text := &OutputFormatter{Format: "text", Writer: &buf}
	require.NoError(t, text.Error(NewExitError(ExitNavigation, "not logged in")))
	assert.Equal(t, "Error [E001]: not logged in\n", buf.String())

	buf.Reset()
	js := &OutputFormatter{Format: "json", Writer: &buf}
	require.NoError(t, js.Error(agenda.ErrEmailRequired))
	assert.JSONEq(t, `{"status":"error","error":{"code":"E003","message":"email is required"}}`, buf.String())
}
