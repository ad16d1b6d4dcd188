// Package glpi is a minimal client for the GLPI REST API (apirest.php):
// session handling and the search endpoint.
package glpi

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single HTTP request.
const DefaultTimeout = 60 * time.Second

// Config holds what is needed to open a session.
type Config struct {
	// URL is the API root, e.g. https://glpi.example.com/apirest.php.
	URL       string
	AppToken  string
	UserToken string
	Timeout   time.Duration
	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool
}

// Client talks to one GLPI instance. It is not safe for concurrent use.
type Client struct {
	base         *url.URL
	appToken     string
	userToken    string
	httpClient   *http.Client
	logger       *zap.Logger
	sessionToken string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client built from Config.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New validates cfg and returns a Client without contacting the server.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("glpi: missing API URL")
	}
	base, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, errors.Wrap(err, "glpi: invalid API URL")
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, errors.Errorf("glpi: unsupported URL scheme %q", base.Scheme)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	transport := cleanhttp.DefaultTransport()
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	c := &Client{
		base:       base,
		appToken:   cfg.AppToken,
		userToken:  cfg.UserToken,
		httpClient: &http.Client{Transport: transport, Timeout: cfg.Timeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// InitSession authenticates with the user token and stores the session
// token for later calls.
func (c *Client) InitSession(ctx context.Context) error {
	var resp struct {
		SessionToken string `json:"session_token"`
	}
	headers := http.Header{"Authorization": {"user_token " + c.userToken}}
	if _, err := c.get(ctx, "initSession", nil, headers, &resp); err != nil {
		return err
	}
	if resp.SessionToken == "" {
		return &Error{StatusCode: http.StatusOK, Message: "initSession returned no session_token"}
	}
	c.sessionToken = resp.SessionToken
	c.logger.Debug("session opened", zap.String("url", c.base.String()))
	return nil
}

// KillSession closes the current session. It is a no-op without one.
func (c *Client) KillSession(ctx context.Context) error {
	if c.sessionToken == "" {
		return nil
	}
	_, err := c.get(ctx, "killSession", nil, c.sessionHeaders(), nil)
	c.sessionToken = ""
	if err != nil {
		return err
	}
	c.logger.Debug("session closed")
	return nil
}

// Item is one search result row: field index to value. Numbers are kept as
// json.Number.
type Item map[string]any

// SearchOptions are the query parameters of a search.
type SearchOptions struct {
	Criteria     []map[string]any
	MetaCriteria []map[string]any
	ForceDisplay []string
	// Range is "start-end", e.g. "0-9999".
	Range string
}

// SearchResult is the decoded body of a search.
type SearchResult struct {
	TotalCount int    `json:"totalcount"`
	Count      int    `json:"count"`
	Data       []Item `json:"data"`
}

// Search runs GET /search/{itemtype}. Only the requested range is fetched.
func (c *Client) Search(ctx context.Context, itemType string, opts SearchOptions) (*SearchResult, error) {
	if c.sessionToken == "" {
		return nil, errors.New("glpi: search called without a session")
	}
	params := EncodeSearch(opts)
	var res SearchResult
	status, err := c.get(ctx, "search/"+url.PathEscape(itemType), params, c.sessionHeaders(), &res)
	if err != nil {
		return nil, err
	}
	if status == http.StatusPartialContent || res.TotalCount > res.Count {
		c.logger.Warn("search result truncated by range",
			zap.String("itemtype", itemType),
			zap.String("range", opts.Range),
			zap.Int("count", res.Count),
			zap.Int("totalcount", res.TotalCount))
	}
	c.logger.Debug("search done",
		zap.String("itemtype", itemType),
		zap.Int("count", len(res.Data)))
	return &res, nil
}

func (c *Client) sessionHeaders() http.Header {
	return http.Header{"Session-Token": {c.sessionToken}}
}

// get performs one GET and decodes a 200/206 JSON body into out.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, headers http.Header, out any) (int, error) {
	u := c.base.JoinPath(endpoint)
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, errors.Wrapf(err, "glpi: build %s request", endpoint)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.appToken != "" {
		req.Header.Set("App-Token", c.appToken)
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	c.logger.Debug("request", zap.String("endpoint", endpoint), zap.Int("params", len(params)))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, errors.Wrapf(err, "glpi: %s", endpoint)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, errors.Wrapf(err, "glpi: read %s response", endpoint)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return resp.StatusCode, decodeError(resp.StatusCode, body)
	}
	if out == nil || len(body) == 0 {
		return resp.StatusCode, nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return resp.StatusCode, errors.Wrapf(err, "glpi: decode %s response", endpoint)
	}
	return resp.StatusCode, nil
}

// Error is a failure reported by the GLPI server.
type Error struct {
	StatusCode int
	// Code is GLPI's symbolic error, e.g. ERROR_SESSION_TOKEN_INVALID.
	Code    string
	Message string
}

func (e *Error) Error() string {
	switch {
	case e.Code != "" && e.Message != "":
		return fmt.Sprintf("HTTP %d: %s: %s", e.StatusCode, e.Code, e.Message)
	case e.Code != "":
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Code)
	case e.Message != "":
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("invalid HTTP code %d", e.StatusCode)
	}
}

// decodeError reads GLPI's ["ERROR_CODE", "message"] error body.
func decodeError(status int, body []byte) error {
	e := &Error{StatusCode: status}
	var parts []string
	if err := json.Unmarshal(body, &parts); err == nil {
		if len(parts) > 0 {
			e.Code = parts[0]
		}
		if len(parts) > 1 {
			e.Message = parts[1]
		}
		return e
	}
	const maxBody = 200
	msg := string(body)
	if len(msg) > maxBody {
		msg = msg[:maxBody] + "..."
	}
	e.Message = msg
	return e
}
