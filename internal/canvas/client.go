package canvas

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"canvas-drive-sync/internal/httpx"
)

const (
	acceptJSON     = "application/json"
	acceptEncoding = "br"
)

// Client talks to the Canvas REST API with a bearer token.
// Requests are issued one at a time; the client holds no cache.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client

	// Retry applies to API calls only. Downloads are never retried.
	Retry httpx.RetryConfig

	// PageSize is sent as per_page on the first request of a listing (0 = server default).
	PageSize int
	// MaxPages stops a listing after that many pages (0 = unlimited).
	MaxPages int
}

func New(baseURL, token string) *Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP: &http.Client{
			Timeout:   2 * time.Minute,
			Transport: tr,
		},
		Retry: httpx.NoRetry(),
	}
}

// StatusCode returns the HTTP status carried by a Canvas error, or 0.
func StatusCode(err error) int {
	return httpx.StatusCode(err)
}

// resolve turns an endpoint relative to BaseURL into an absolute URL.
// Absolute URLs (pagination links) are returned unchanged.
func (c *Client) resolve(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	return c.BaseURL + "/" + strings.TrimLeft(endpoint, "/")
}

// newRequest builds an API GET. Pagination links come from the server, so the
// token only goes to the API host.
func (c *Client) newRequest(ctx context.Context, rawURL string) (*http.Request, error) {
	r, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	r.Header.Set("Accept", acceptJSON)
	r.Header.Set("Accept-Encoding", acceptEncoding)
	if c.sameHost(r.URL) {
		r.Header.Set("Authorization", "Bearer "+c.Token)
	}
	return r, nil
}

// get performs one API GET and returns the raw response and body.
func (c *Client) get(ctx context.Context, rawURL string) (*http.Response, []byte, error) {
	resp, body, err := httpx.DoWithRetry(
		ctx,
		c.HTTP,
		func(ctx context.Context) (*http.Request, error) {
			return c.newRequest(ctx, rawURL)
		},
		c.Retry,
	)
	if err != nil {
		return nil, nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, nil, &httpx.HTTPError{
			Method:     http.MethodGet,
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Header:     resp.Header.Clone(),
			Body:       body,
		}
	}
	return resp, body, nil
}

// Download opens the byte stream of a file download URL. The caller closes it.
// The bearer token is only sent when the URL points at the API host; Canvas
// download URLs are usually pre-signed and may redirect to a file host.
func (c *Client) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("canvas: download: empty url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("canvas: download: %w", err)
	}
	if c.sameHost(req.URL) {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("canvas: download: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("canvas: download: %w", &httpx.HTTPError{
			Method:     http.MethodGet,
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Header:     resp.Header.Clone(),
			Body:       body,
		})
	}
	return resp.Body, nil
}

func (c *Client) sameHost(u *url.URL) bool {
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(base.Host, u.Host)
}
