package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lborres/agenda/core"
	"github.com/lborres/agenda/pkg/crypto"
)

const (
	DefaultTimeout = 10 * time.Second

	// bodies larger than this are treated as malformed
	maxResponseBytes = 4 << 20
)

// ClientConfig configures the remote auth and data clients
type ClientConfig struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
	UserAgent  string
}

// remote is the JSON-over-HTTP plumbing shared by the clients
type remote struct {
	baseURL   *url.URL
	http      *http.Client
	logger    *slog.Logger
	userAgent string
}

func newRemote(cfg ClientConfig, component string) (*remote, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, core.ErrBaseURLRequired
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", cfg.BaseURL)
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "agenda"
	}

	return &remote{
		baseURL:   base,
		http:      client,
		logger:    logger.With("component", component),
		userAgent: userAgent,
	}, nil
}

// errorBody is the error shape of the remote services. message is either
// a string or a list of validation messages.
type errorBody struct {
	Message json.RawMessage `json:"message"`
	Error   string          `json:"error"`
}

func (b errorBody) text() string {
	var s string
	if err := json.Unmarshal(b.Message, &s); err == nil && s != "" {
		return s
	}
	var list []string
	if err := json.Unmarshal(b.Message, &list); err == nil && len(list) > 0 {
		return strings.Join(list, "; ")
	}
	return b.Error
}

// postJSON sends in as JSON and returns the status and body of the response.
// Only transport failures are returned as errors.
func (r *remote) postJSON(ctx context.Context, op, path, token string, in any) (int, []byte, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return 0, nil, fmt.Errorf("%s: failed to encode request: %w", op, err)
	}

	endpoint := r.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("%s: %w", op, err)
	}

	requestID := crypto.RequestID()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := r.http.Do(req)
	if err != nil {
		r.logger.Warn("remote call failed", "op", op, "request_id", requestID, "error", err)
		return 0, nil, &core.RemoteError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, &core.RemoteError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}

	r.logger.Debug("remote call",
		"op", op,
		"request_id", requestID,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	return resp.StatusCode, body, nil
}

// call posts in and decodes a 2xx response into out. Non-2xx answers become
// a *core.RemoteError carrying the server's message.
func (r *remote) call(ctx context.Context, op, path, token string, in, out any) error {
	status, body, err := r.postJSON(ctx, op, path, token, in)
	if err != nil {
		return err
	}

	if status < 200 || status > 299 {
		var eb errorBody
		_ = json.Unmarshal(body, &eb)
		return &core.RemoteError{Op: op, StatusCode: status, Message: eb.text()}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: %w: %v", op, core.ErrMalformedResponse, err)
	}
	return nil
}
