// Package shortio is a client for the short.io link API.
//
// The client is stateless: every call carries the credential it is issued
// with and there is no retry logic. Responses whose JSON body holds an
// error field are failures regardless of the HTTP status.
package shortio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vadimbarashkov/shorty/internal/entity"
	"github.com/vadimbarashkov/shorty/internal/metrics"
)

// DefaultBaseURL is the origin every request is resolved against.
const DefaultBaseURL = "https://short-api.bren.app"

var errEmptyBaseURL = errors.New("empty base url")

// Request describes one API call.
type Request struct {
	Method string
	Path   string
	Body   any
	// Endpoint labels the call in metrics. Path is used when empty.
	Endpoint string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the timeout of the underlying HTTP client.
// Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// Client issues authenticated requests to the API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	timeout    time.Duration
}

// New returns a Client resolving paths against baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	const op = "shortio.New"

	if baseURL == "" {
		return nil, fmt.Errorf("%s: %w", op, errEmptyBaseURL)
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%s: parse base url: %w", op, err)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}

	return c, nil
}

func (c *Client) newRequest(ctx context.Context, credential string, r Request) (*http.Request, error) {
	const op = "shortio.Client.newRequest"

	ref, err := url.Parse(r.Path)
	if err != nil {
		return nil, fmt.Errorf("%s: parse path: %w", op, err)
	}

	var body io.Reader
	if r.Body != nil {
		b, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("%s: marshal body: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.ResolveReference(ref).String(), body)
	if err != nil {
		return nil, fmt.Errorf("%s: new request: %w", op, err)
	}

	req.Header.Set("Authorization", credential)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// Do sends r and returns the raw response. Network failures are returned as
// *entity.TransportError. The caller closes the response body.
func (c *Client) Do(ctx context.Context, credential string, r Request) (*http.Response, error) {
	const op = "shortio.Client.Do"

	req, err := c.newRequest(ctx, credential, r)
	if err != nil {
		return nil, &entity.TransportError{Op: op, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &entity.TransportError{Op: op, Err: err}
	}

	return resp, nil
}

// Fetch sends r and decodes the JSON response into T.
func Fetch[T any](ctx context.Context, c *Client, credential string, r Request) (T, error) {
	return Custom(ctx, c, credential, r, decodeJSON[T])
}

// Custom sends r and hands the response to post. It is used for endpoints
// that do not answer with JSON, such as QR code rendering.
func Custom[T any](ctx context.Context, c *Client, credential string, r Request, post func(*http.Response) (T, error)) (T, error) {
	var zero T

	resp, err := c.Do(ctx, credential, r)
	if err != nil {
		observe(r, err)
		return zero, err
	}
	defer resp.Body.Close()

	v, err := post(resp)
	observe(r, err)
	if err != nil {
		return zero, err
	}

	return v, nil
}

func decodeJSON[T any](resp *http.Response) (T, error) {
	const op = "shortio.decodeJSON"

	var v T

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return v, &entity.TransportError{Op: op, Err: err}
	}

	if err := checkEnvelope(resp.StatusCode, body); err != nil {
		return v, err
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return v, nil
	}

	if err := json.Unmarshal(body, &v); err != nil {
		return v, &entity.TransportError{Op: op, Err: err}
	}

	return v, nil
}

// checkEnvelope reports an *entity.RemoteError when body carries an error
// field. A failed status with any other body is a remote error carrying the
// whole body, or a transport error when the body is not JSON.
func checkEnvelope(status int, body []byte) error {
	const op = "shortio.checkEnvelope"

	trimmed := bytes.TrimSpace(body)

	if len(trimmed) > 0 && trimmed[0] == '{' {
		var envelope struct {
			Error json.RawMessage `json:"error"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err == nil && truthy(envelope.Error) {
			return &entity.RemoteError{Payload: envelope.Error}
		}
	}

	if status >= http.StatusOK && status < http.StatusMultipleChoices {
		return nil
	}

	if json.Valid(trimmed) {
		return &entity.RemoteError{Payload: json.RawMessage(trimmed)}
	}

	return &entity.TransportError{
		Op:  op,
		Err: fmt.Errorf("unexpected status %d", status),
	}
}

func truthy(raw json.RawMessage) bool {
	switch strings.TrimSpace(string(raw)) {
	case "", "null", "false", "0", `""`:
		return false
	}
	return true
}

func observe(r Request, err error) {
	endpoint := r.Endpoint
	if endpoint == "" {
		endpoint = r.Path
	}

	outcome := metrics.OutcomeOK
	var remoteErr *entity.RemoteError
	switch {
	case err == nil:
	case errors.As(err, &remoteErr):
		outcome = metrics.OutcomeRemote
	default:
		outcome = metrics.OutcomeTransport
	}

	metrics.RemoteRequests.WithLabelValues(endpoint, outcome).Inc()
}
