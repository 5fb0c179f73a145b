package atlassian

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nhle/jissue/internal/source"
)

// Client is a thin HTTP client for the Jira and Confluence REST APIs.
// It handles basic authentication and JSON marshaling. A 429 response is
// an error unless WithMaxRetries allows waiting and trying again.
type Client struct {
	baseURL    string
	username   string
	password   string
	sourceType source.SourceType
	httpClient *http.Client
	logger     *slog.Logger
	maxRetries int
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMaxRetries lets a 429 response be retried n times after the wait
// the server asks for. The default is no retries.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// NewClient creates a new REST client for the service at fqdn. The fqdn may
// be a bare host name (https is assumed) or a full URL with scheme.
func NewClient(
	sourceType source.SourceType,
	fqdn, username, password string,
	opts ...Option,
) *Client {
	c := &Client{
		baseURL:    BaseURL(fqdn),
		username:   username,
		password:   password,
		sourceType: sourceType,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:     slog.New(slog.DiscardHandler),
		maxRetries: 0,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL turns a configured host name into a base URL without a trailing
// slash.
func BaseURL(fqdn string) string {
	fqdn = strings.TrimSpace(fqdn)
	if !strings.HasPrefix(fqdn, "http://") && !strings.HasPrefix(fqdn, "https://") {
		fqdn = "https://" + fqdn
	}
	return strings.TrimRight(fqdn, "/")
}

// BaseURL returns the root URL requests are made against.
func (c *Client) BaseURL() string { return c.baseURL }

// Username returns the account the client authenticates as.
func (c *Client) Username() string { return c.username }

// Get performs an HTTP GET request and unmarshals the JSON response.
func (c *Client) Get(
	ctx context.Context,
	path string,
	result interface{},
) error {
	return c.do(ctx, http.MethodGet, path, nil, result)
}

// Post performs an HTTP POST request with a JSON body and unmarshals
// the JSON response.
func (c *Client) Post(
	ctx context.Context,
	path string,
	body interface{},
	result interface{},
) error {
	return c.do(ctx, http.MethodPost, path, body, result)
}

// Put performs an HTTP PUT request with a JSON body.
func (c *Client) Put(
	ctx context.Context,
	path string,
	body interface{},
	result interface{},
) error {
	return c.do(ctx, http.MethodPut, path, body, result)
}

// Delete performs an HTTP DELETE request.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// PostForm performs a form-encoded POST. The custom field editor plugin
// accepts form parameters rather than JSON.
func (c *Client) PostForm(
	ctx context.Context,
	path string,
	form map[string]string,
	result interface{},
) error {
	return c.do(ctx, http.MethodPost, path, formBody(form), result)
}

// formBody marks a request body that is sent url-encoded.
type formBody map[string]string

func (f formBody) encode() string {
	values := url.Values{}
	for k, v := range f {
		values.Set(k, v)
	}
	return values.Encode()
}

// do is the core HTTP method that builds the request, handles auth,
// rate limiting with exponential backoff, and JSON (de)serialization.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	body interface{},
	result interface{},
) error {
	target := c.baseURL + path

	var payload []byte
	contentType := ""
	switch b := body.(type) {
	case nil:
	case formBody:
		payload = []byte(b.encode())
		contentType = "application/x-www-form-urlencoded"
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		payload = data
		contentType = "application/json"
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(
			ctx, method, target, bodyReader,
		)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		req.SetBasicAuth(c.username, c.password)
		req.Header.Set("Accept", "application/json")
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("executing request %s %s: %w", method, path, err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		c.logger.Debug(
			"rest request",
			slog.String("service", string(c.sourceType)),
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.Int("attempt", attempt+1),
			slog.Duration("duration", time.Since(start)),
			slog.Any("headers", SanitizeHeaders(req.Header)),
		)

		if readErr != nil {
			return fmt.Errorf("reading response body: %w", readErr)
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt < c.maxRetries {
			waitDuration := retryAfterDuration(resp, attempt)
			lastErr = fmt.Errorf(
				"rate limited (429) on %s %s", method, path,
			)
			c.logger.Warn(
				"rate limited",
				slog.String("path", path),
				slog.Duration("wait", waitDuration),
			)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(waitDuration):
				continue
			}
		}

		if resp.StatusCode == http.StatusUnauthorized {
			return &source.AuthError{
				SourceType: c.sourceType,
				Message: fmt.Sprintf(
					"authentication failed (401): check the credentials "+
						"of %s for %s", c.username, c.baseURL,
				),
			}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			apiErr := &source.APIError{
				SourceType: c.sourceType,
				StatusCode: resp.StatusCode,
				Method:     method,
				Path:       path,
			}
			var remote ErrorResponse
			if json.Unmarshal(respBody, &remote) == nil &&
				(len(remote.ErrorMessages) > 0 ||
					len(remote.Errors) > 0 || remote.Message != "") {
				apiErr.ErrorMessages = remote.ErrorMessages
				if remote.Message != "" {
					apiErr.ErrorMessages = append(apiErr.ErrorMessages, remote.Message)
				}
				apiErr.Errors = remote.Errors
			} else {
				apiErr.Body = strings.TrimSpace(string(respBody))
			}
			return apiErr
		}

		// No content to parse (e.g. 204).
		if result == nil || resp.StatusCode == http.StatusNoContent ||
			len(bytes.TrimSpace(respBody)) == 0 {
			return nil
		}

		if err := json.Unmarshal(respBody, result); err != nil {
			return &source.APIError{
				SourceType: c.sourceType,
				StatusCode: resp.StatusCode,
				Method:     method,
				Path:       path,
				ErrorMessages: []string{
					fmt.Sprintf("malformed response: %v", err),
				},
			}
		}

		return nil
	}

	return fmt.Errorf(
		"max retries (%d) exceeded: %w", c.maxRetries, lastErr,
	)
}

// retryAfterDuration reads the Retry-After header and computes a wait
// duration. Falls back to exponential backoff if the header is missing.
func retryAfterDuration(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	// Exponential backoff: 1s, 2s, 4s, ...
	backoff := time.Duration(1<<uint(attempt)) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}

// SanitizeHeaders returns a copy of h with credentials redacted.
func SanitizeHeaders(h http.Header) http.Header {
	clean := http.Header{}
	for k, vals := range h {
		switch strings.ToLower(k) {
		case "authorization", "cookie":
			clean[k] = []string{"<redacted>"}
		default:
			clean[k] = append([]string{}, vals...)
		}
	}
	return clean
}

// ErrorResponse is the standard Atlassian error response format. Jira
// fills ErrorMessages/Errors, Confluence fills Message.
type ErrorResponse struct {
	ErrorMessages []string          `json:"errorMessages"`
	Errors        map[string]string `json:"errors"`
	Message       string            `json:"message"`
}
