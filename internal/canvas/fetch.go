package canvas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strconv"

	"canvas-drive-sync/internal/httpx"
)

// FetchAll walks a paginated collection starting at endpoint and returns every
// element in page order. The next page is the rel="next" entry of the Link
// response header; pagination ends when there is none.
//
// A page whose body is a single JSON object (not an array) is returned as a one
// element result and ends pagination. Any non-200 page aborts the whole fetch;
// elements from earlier pages are discarded.
func FetchAll[T any](ctx context.Context, c *Client, endpoint string) ([]T, error) {
	next, err := c.firstPageURL(endpoint)
	if err != nil {
		return nil, err
	}

	var all []T
	for page := 1; next != ""; page++ {
		if c.MaxPages > 0 && page > c.MaxPages {
			log.Printf("canvas: %s: stopping after %d pages", endpoint, c.MaxPages)
			break
		}

		resp, body, err := c.get(ctx, next)
		if err != nil {
			return nil, fmt.Errorf("canvas: fetch %s page=%d: %w", endpoint, page, err)
		}

		items, isList, err := decodePage[T](body)
		if err != nil {
			return nil, fmt.Errorf("canvas: fetch %s page=%d: %w", endpoint, page, err)
		}
		all = append(all, items...)
		if !isList {
			break
		}

		next = httpx.NextLink(resp.Header)
	}
	return all, nil
}

// decodePage reports whether the body was a JSON array. An empty or null body
// decodes to no items and counts as a non-list.
func decodePage[T any](body []byte) ([]T, bool, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, false, nil
	}

	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, true, fmt.Errorf("decode page: %w", err)
		}
		return items, true, nil
	}

	var one T
	if err := json.Unmarshal(trimmed, &one); err != nil {
		return nil, false, fmt.Errorf("decode object: %w", err)
	}
	return []T{one}, false, nil
}

func (c *Client) firstPageURL(endpoint string) (string, error) {
	raw := c.resolve(endpoint)
	if c.PageSize <= 0 {
		return raw, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("canvas: invalid endpoint %q: %w", endpoint, err)
	}
	q := u.Query()
	if q.Get("per_page") == "" {
		q.Set("per_page", strconv.Itoa(c.PageSize))
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// getOne fetches a single resource. A 404 is "not found": (nil, nil).
func getOne[T any](ctx context.Context, c *Client, endpoint string) (*T, error) {
	_, body, err := c.get(ctx, c.resolve(endpoint))
	if err != nil {
		if httpx.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return &out, nil
}
