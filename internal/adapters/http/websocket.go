package http

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/tapmap/internal/adapters/http/wire"
	"github.com/samirrijal/tapmap/internal/core/domain"
	"github.com/samirrijal/tapmap/internal/pkg/logging"
	"github.com/samirrijal/tapmap/internal/pkg/metrics"
	"github.com/samirrijal/tapmap/internal/viewport"
)

// wsMessage is sent by the client on every viewport change:
//
//	{"action":"viewport","viewport":{"min_lat":..,"max_lat":..,"min_lng":..,"max_lng":..}}
type wsMessage struct {
	Action   string               `json:"action"`
	Viewport *wire.MapViewRequest `json:"viewport,omitempty"`
}

// wsEvent is pushed to the client when a viewport is rejected or dropped.
type wsEvent struct {
	Type    string `json:"type"` // error | ignored
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// wsResults carries a completed plan as wire rows.
type wsResults struct {
	Type    string `json:"type"` // results
	Results []any  `json:"results"`
}

// MapViewSocketHandler returns a handler that drives one viewport scheduler
// per connection: viewport changes are debounced, at most one plan runs at
// a time and each completed plan is pushed back as wire rows.
func MapViewSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		log := logging.FromContext(context.Background()).With("remote_addr", c.RemoteAddr().String())
		log.Info("ws client connected")
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		var mu sync.Mutex
		writeJSON := func(v any) {
			data, err := json.Marshal(v)
			if err != nil {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			_ = c.WriteMessage(websocket.TextMessage, data)
		}

		fetch := viewport.FetcherFunc(func(ctx context.Context, q domain.ViewportQuery) ([]domain.MapResult, error) {
			return deps.MapView.MapView(logging.WithLogger(ctx, log), q)
		})
		sched := viewport.New(fetch, viewport.Options{
			Window:  deps.ViewportWindow,
			Timeout: 15 * time.Second,
			Logger:  log,
			OnResults: func(q domain.ViewportQuery, results []domain.MapResult) {
				writeJSON(wsResults{Type: "results", Results: wire.Rows(results)})
			},
			OnError: func(q domain.ViewportQuery, err error) {
				_, code := errorCode(err)
				writeJSON(wsEvent{Type: "error", Code: code})
			},
		})
		defer sched.Close()

		done := make(chan struct{})
		defer close(done)
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := wire.DecodeStrict(msg, &m); err != nil {
				writeJSON(wsEvent{Type: "error", Code: "schema_violation", Message: err.Error()})
				continue
			}
			if m.Action != "viewport" || m.Viewport == nil {
				writeJSON(wsEvent{Type: "error", Code: "bad_request", Message: "unknown action: " + m.Action})
				continue
			}

			q, err := m.Viewport.Query()
			if err == nil {
				err = q.BBox.Validate()
			}
			if err != nil {
				_, code := errorCode(err)
				writeJSON(wsEvent{Type: "error", Code: code, Message: err.Error()})
				continue
			}

			if !sched.ViewportChanged(q) {
				writeJSON(wsEvent{Type: "ignored", Code: "in_flight"})
			}
		}

		log.Info("ws client disconnected")
	}
}
