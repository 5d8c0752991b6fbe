// Package postgrest binds the repository contract to a managed Supabase
// project: GoTrue for identity (/auth/v1) and PostgREST for tables (/rest/v1).
//
// One Client is the process-wide handle. It owns the in-memory session and
// authorizes every request with the project key plus the session's bearer
// token (or the project key itself while signed out).
package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/sakif/gameshelf/internal/apperror"
	"github.com/sakif/gameshelf/internal/model"
	"github.com/sakif/gameshelf/internal/repository"
)

const userAgent = "gameshelf/1.0"

// compile-time check that *Client is a complete backend
var _ repository.Backend = (*Client)(nil)

// Config configures the REST binding.
type Config struct {
	// URL is the project URL, e.g. https://xyz.supabase.co.
	URL string
	// Key is the project's anon (publishable) key.
	Key string
	// HTTPClient overrides the transport. Nil uses a client with Timeout.
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     *slog.Logger
}

// Client is the Supabase REST binding.
type Client struct {
	baseURL    string
	key        string
	httpClient *http.Client
	logger     *slog.Logger

	mu        sync.Mutex
	user      *model.User
	token     *oauth2.Token
	source    oauth2.TokenSource
	listeners map[int]repository.AuthListener
	nextSub   int
}

// New validates cfg and returns a signed-out client.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" || cfg.Key == "" {
		return nil, errors.New("postgrest: project URL and key are required")
	}
	u, err := url.Parse(cfg.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("postgrest: invalid project URL %q", cfg.URL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(u.String(), "/"),
		key:        cfg.Key,
		httpClient: httpClient,
		logger:     logger,
		listeners:  make(map[int]repository.AuthListener),
	}, nil
}

// Close ends the client. The HTTP transport is shared, so nothing is torn down
// beyond dropping idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// request describes one call against the project.
type request struct {
	method string
	path   string
	query  url.Values
	body   any
	header http.Header
	// anonymous skips the session token; used by the token endpoints themselves.
	anonymous bool
}

// do sends req and decodes a 2xx JSON body into out (when out is non-nil).
// Non-2xx responses are decoded into *apperror.BackendError.
func (c *Client) do(ctx context.Context, req request, out any) error {
	endpoint := c.baseURL + req.path
	if len(req.query) > 0 {
		endpoint += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		buf, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	for name, values := range req.header {
		for _, v := range values {
			httpReq.Header.Add(name, v)
		}
	}
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if err := c.authorize(httpReq, req.anonymous); err != nil {
		return err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.method, req.path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", req.method, req.path, err)
	}
	return nil
}

// authorize sets the apikey header and the bearer token.
func (c *Client) authorize(req *http.Request, anonymous bool) error {
	req.Header.Set("apikey", c.key)
	if !anonymous {
		tok, err := c.sessionToken()
		if err != nil {
			return err
		}
		if tok != nil {
			tok.SetAuthHeader(req)
			return nil
		}
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
	return nil
}

// errorBody covers both PostgREST ({code,message,details,hint}) and the GoTrue
// shapes ({error,error_description} and {code,msg,error_code}).
type errorBody struct {
	Code             json.RawMessage `json:"code"`
	ErrorCode        string          `json:"error_code"`
	Message          string          `json:"message"`
	Msg              string          `json:"msg"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
	Details          *string         `json:"details"`
}

func decodeError(status int, data []byte) error {
	be := &apperror.BackendError{Status: status}

	var eb errorBody
	if err := json.Unmarshal(data, &eb); err != nil {
		be.Message = strings.TrimSpace(string(data))
		if be.Message == "" {
			be.Message = http.StatusText(status)
		}
		return be
	}

	var code string
	if json.Unmarshal(eb.Code, &code) == nil {
		be.Code = code
	}
	if be.Code == "" {
		be.Code = eb.ErrorCode
	}
	if be.Code == "" {
		be.Code = eb.Error
	}

	for _, m := range []string{eb.Message, eb.Msg, eb.ErrorDescription, eb.Error} {
		if m != "" {
			be.Message = m
			break
		}
	}
	if be.Message == "" {
		be.Message = http.StatusText(status)
	}
	if eb.Details != nil {
		be.Details = *eb.Details
	}
	return be
}
