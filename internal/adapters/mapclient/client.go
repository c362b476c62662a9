// Package mapclient calls the map-view endpoint over HTTP. It is the
// fetcher behind the viewport scheduler in the mapwatch CLI.
package mapclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/samirrijal/tapmap/internal/adapters/http/wire"
	"github.com/samirrijal/tapmap/internal/core/domain"
	"github.com/samirrijal/tapmap/internal/viewport"
)

// StatusError is returned when the API answers with a non-200 status.
type StatusError struct {
	Status int
	Code   string
	Body   string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("map-view: status %d (%s)", e.Status, e.Code)
	}
	return fmt.Sprintf("map-view: status %d", e.Status)
}

// Client posts viewport queries to a map-view endpoint.
type Client struct {
	endpoint string
	timeout  time.Duration
	http     *fasthttp.Client
}

var _ viewport.Fetcher = (*Client)(nil)

// New creates a Client for endpoint, e.g. http://localhost:8080/v1/fountains/map-view.
func New(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		timeout:  timeout,
		http: &fasthttp.Client{
			Name:         "tapmap-mapwatch",
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		},
	}
}

// Fetch issues one map-view request. Response rows are decoded strictly.
func (c *Client) Fetch(ctx context.Context, q domain.ViewportQuery) ([]domain.MapResult, error) {
	body, err := json.Marshal(wire.NewMapViewRequest(q))
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.endpoint)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	timeout := c.timeout
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d < timeout {
			timeout = d
		}
	}
	if err := c.http.DoTimeout(req, resp, timeout); err != nil {
		return nil, fmt.Errorf("post %s: %w", c.endpoint, err)
	}

	if status := resp.StatusCode(); status != fasthttp.StatusOK {
		var apiErr struct {
			Code string `json:"code"`
		}
		_ = json.Unmarshal(resp.Body(), &apiErr)
		return nil, &StatusError{Status: status, Code: apiErr.Code, Body: string(resp.Body())}
	}
	return wire.DecodeResults(resp.Body())
}
