package e2etest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/justinas/nosurf"
	"github.com/myrjola/misttheater/internal/errors"
)

// Client talks to the JSON API the way the browser does: it keeps the session cookies and sends the CSRF token with
// every unsafe request.
type Client struct {
	client    *http.Client
	jar       http.CookieJar
	url       string
	csrfToken string
}

func NewClient(url string) (*Client, error) {
	jar, err := newUnsafeCookieJar()
	if err != nil {
		return nil, errors.Wrap(err, "create unsafe cookie jar")
	}
	return &Client{
		client: &http.Client{Jar: jar},
		jar:    jar,
		url:    url,
	}, nil
}

// WaitForReady calls the specified endpoint until it gets a HTTP 200 Success
// response or until the context is cancelled or the 1-second timeout is reached.
func (c *Client) WaitForReady(ctx context.Context, urlPath string) error {
	timeout := 1 * time.Second
	startTime := time.Now()
	var (
		err  error
		req  *http.Request
		resp *http.Response
	)
	for {
		if req, err = http.NewRequestWithContext(
			ctx,
			http.MethodGet,
			c.url+urlPath,
			nil,
		); err != nil {
			return errors.Wrap(err, "create request")
		}

		if resp, err = c.client.Do(req); err == nil {
			if resp.StatusCode == http.StatusOK {
				if err = resp.Body.Close(); err != nil {
					return errors.Wrap(err, "close response body")
				}
				return nil
			}
			if err = resp.Body.Close(); err != nil {
				return errors.Wrap(err, "close response body")
			}
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "context cancelled")
		default:
			if time.Since(startTime) >= timeout {
				return errors.New("timeout waiting for endpoint to be ready")
			}
			time.Sleep(100 * time.Millisecond) //nolint:mnd // 100ms
		}
	}
}

// Get fetches a URL and returns the response.
func (c *Client) Get(ctx context.Context, urlPath string) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, urlPath, nil)
}

// CSRFToken fetches a CSRF token for the current session. The token is cached.
func (c *Client) CSRFToken(ctx context.Context) (string, error) {
	if c.csrfToken != "" {
		return c.csrfToken, nil
	}
	var body struct {
		Token string `json:"token"`
	}
	status, err := c.Call(ctx, http.MethodGet, "/api/csrf", nil, &body)
	if err != nil {
		return "", errors.Wrap(err, "get csrf token")
	}
	if status != http.StatusOK || body.Token == "" {
		return "", errors.New("no csrf token", slog.Int("status", status))
	}
	c.csrfToken = body.Token
	return c.csrfToken, nil
}

// Do sends body encoded as JSON. Unsafe methods carry the CSRF token.
func (c *Client) Do(ctx context.Context, method, urlPath string, body any) (*http.Response, error) {
	var (
		reader io.Reader
		err    error
	)
	if body != nil {
		var data []byte
		if data, err = json.Marshal(body); err != nil {
			return nil, errors.Wrap(err, "marshal request body")
		}
		reader = bytes.NewReader(data)
	}
	var req *http.Request
	if req, err = c.newRequestWithContext(ctx, method, urlPath, reader); err != nil {
		return nil, errors.Wrap(err, "new request with context")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
	default:
		var token string
		if token, err = c.CSRFToken(ctx); err != nil {
			return nil, err
		}
		req.Header.Set(nosurf.HeaderName, token)
	}
	var resp *http.Response
	if resp, err = c.client.Do(req); err != nil {
		return nil, errors.Wrap(err, "do request", slog.String("method", method), slog.String("path", urlPath))
	}
	return resp, nil
}

// Call sends body and decodes a successful JSON response into out. out may be nil. The status code is returned
// also for unsuccessful responses.
func (c *Client) Call(ctx context.Context, method, urlPath string, body any, out any) (int, error) {
	resp, err := c.Do(ctx, method, urlPath, body)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= http.StatusBadRequest || out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, errors.Wrap(err, "decode response body", slog.String("path", urlPath))
	}
	return resp.StatusCode, nil
}

// Events opens the game event stream of the current session.
func (c *Client) Events(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		Jar:              c.jar,
		HandshakeTimeout: 5 * time.Second, //nolint:mnd // 5 seconds
	}
	wsURL := "ws" + strings.TrimPrefix(c.url, "http") + "/api/events"
	conn, resp, err := dialer.DialContext(ctx, wsURL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, errors.Wrap(err, "dial events")
	}
	return conn, nil
}

// newRequestWithContext creates a new HTTP request to the server that respects the given context.
func (c *Client) newRequestWithContext(
	ctx context.Context,
	method, urlPath string,
	body io.Reader,
) (*http.Request, error) {
	var (
		req *http.Request
		err error
	)
	if req, err = http.NewRequest(method, c.url+urlPath, body); err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	return req.WithContext(ctx), nil
}
