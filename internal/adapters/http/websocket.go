package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	"github.com/mvarga/waylog/internal/core/domain"
	"github.com/mvarga/waylog/internal/mapengine"
	"github.com/mvarga/waylog/internal/pkg/metrics"
)

// mapSessionMessage is one client message on an interactive map session.
// Input events drive the gesture controller; the other actions operate on
// the viewport directly.
type mapSessionMessage struct {
	Action string                `json:"action"` // "input" | "resize" | "fit" | "reset" | "set" | "focus"
	Event  *mapengine.InputEvent `json:"event,omitempty"`
	W      int                   `json:"w,omitempty"`
	H      int                   `json:"h,omitempty"`
	Lat    float64               `json:"lat,omitempty"`
	Lon    float64               `json:"lon,omitempty"`
	Zoom   int                   `json:"zoom,omitempty"`
	Trip   string                `json:"trip,omitempty"` // switch session to a trip map ("" = overview)
}

// mapSessionFrame is one server message: either a fresh render, a click
// notification, or a broadcast relayed from other sessions.
type mapSessionFrame struct {
	Type   string      `json:"type"` // "render" | "click" | "suppress_menu" | "update"
	Render interface{} `json:"render,omitempty"`
	X      float64     `json:"x,omitempty"`
	Y      float64     `json:"y,omitempty"`
	Data   interface{} `json:"data,omitempty"`
}

// MapSessionHandler runs one interactive map session over a WebSocket. The
// server owns the viewport and gesture state; the client streams raw
// pointer/touch/wheel events and receives render models back. Trip edits
// published on NATS are relayed so open sessions can re-render.
func MapSessionHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		remoteAddr := c.RemoteAddr().String()
		slog.Info("map session connected", "remote", remoteAddr)
		metrics.WSMapSessions.Inc()
		defer metrics.WSMapSessions.Dec()

		w := queryInt(c, "w", 800)
		h := queryInt(c, "h", 600)
		tripSlug := c.Query("trip")

		viewport := mapengine.NewViewport(deps.Maps.EngineConfig())
		gesture := mapengine.NewGesture(deps.Maps.GestureConfig(), viewport, w, h)

		var mu sync.Mutex
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		sendRender := func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			model, err := deps.Maps.RenderAt(ctx, viewport, tripSlug, w, h)
			if err != nil {
				_ = writeJSON(map[string]string{"error": err.Error()})
				return
			}
			metrics.MapRenders.WithLabelValues("live").Inc()
			_ = writeJSON(mapSessionFrame{Type: "render", Render: model})
		}

		// Seed the viewport on the session's content before the first frame.
		fit := func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if tripSlug != "" {
				if trip, err := deps.Trips.GetBySlug(ctx, tripSlug); err == nil {
					viewport.FocusOn(tripPoints(trip), w, h)
					return
				}
			}
			trips, err := deps.Trips.List(ctx)
			if err != nil {
				return
			}
			var points []domain.GeoPoint
			for _, t := range trips {
				points = append(points, tripPoints(&t)...)
			}
			viewport.FitBounds(points, w, h, 0.25)
		}

		fit()
		sendRender()

		// Relay trip broadcasts so the session re-renders on edits.
		var sub *nats.Subscription
		if deps.NATS != nil {
			var err error
			sub, err = deps.NATS.Subscribe("travel.updates.broadcast", func(msg *nats.Msg) {
				_ = writeJSON(mapSessionFrame{Type: "update", Data: json.RawMessage(msg.Data)})
			})
			if err != nil {
				slog.Warn("map session broadcast subscribe failed", "error", err)
			}
		}

		// Keep-alive ping
		done := make(chan struct{})
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
			_, raw, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m mapSessionMessage
			if err := json.Unmarshal(raw, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			switch m.Action {
			case "input":
				if m.Event == nil {
					_ = writeJSON(map[string]string{"error": "input requires event"})
					continue
				}
				metrics.GestureEvents.WithLabelValues(string(m.Event.Kind)).Inc()
				outcome := gesture.Handle(*m.Event)
				if outcome.Clicked {
					_ = writeJSON(mapSessionFrame{Type: "click", X: outcome.ClickX, Y: outcome.ClickY})
				}
				if outcome.SuppressMenu {
					_ = writeJSON(mapSessionFrame{Type: "suppress_menu"})
				}
				if outcome.Changed {
					sendRender()
				}

			case "resize":
				if m.W < 64 || m.H < 64 || m.W > 8192 || m.H > 8192 {
					_ = writeJSON(map[string]string{"error": "container size out of range"})
					continue
				}
				w, h = m.W, m.H
				gesture.Resize(w, h)
				sendRender()

			case "set":
				center := domain.GeoPoint{Lat: m.Lat, Lon: m.Lon}
				if !center.InRange() {
					_ = writeJSON(map[string]string{"error": "lat/lon out of range"})
					continue
				}
				viewport.Set(center, m.Zoom)
				sendRender()

			case "fit", "focus":
				if m.Trip != tripSlug {
					tripSlug = m.Trip
				}
				fit()
				sendRender()

			case "reset":
				viewport.Reset()
				sendRender()

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		close(done)
		if sub != nil {
			_ = sub.Unsubscribe()
		}
		slog.Info("map session disconnected", "remote", remoteAddr)
	}
}

// tripPoints collects the located destinations of one trip.
func tripPoints(trip *domain.Trip) []domain.GeoPoint {
	var points []domain.GeoPoint
	for _, d := range trip.Destinations {
		if d.Geocoded {
			points = append(points, d.Location)
		}
	}
	return points
}

// queryInt reads an int query param from a websocket upgrade request.
func queryInt(c *websocket.Conn, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	n := 0
	for _, r := range raw {
		if r < '0' || r > '9' {
			return def
		}
		n = n*10 + int(r-'0')
	}
	if n == 0 {
		return def
	}
	return n
}
