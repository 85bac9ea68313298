package mapengine

import (
	"math"

	"github.com/mvarga/waylog/internal/core/domain"
)

// gestureState is the pointer-tracking phase of the controller.
type gestureState int

const (
	stateIdle gestureState = iota
	stateButtonDown
	stateDragging
)

// EventKind identifies a raw input event fed to the controller.
type EventKind string

const (
	EventDown   EventKind = "down"   // primary button / first touch
	EventMove   EventKind = "move"
	EventUp     EventKind = "up"     // button release / touch end
	EventLeave  EventKind = "leave"  // pointer left the surface; same as up
	EventWheel  EventKind = "wheel"
	EventTouch2 EventKind = "touch2" // second contact appeared
	EventPinch  EventKind = "pinch"  // move while two contacts are down
	EventTouch1 EventKind = "touch1" // back to one contact

	// EventContextMenu is a right-click / long-press menu request. It never
	// mutates the viewport; the outcome tells the client whether to let the
	// native menu open or suppress it because an interaction is in flight.
	EventContextMenu EventKind = "contextmenu"
)

// InputEvent is one raw pointer/touch/wheel event. X,Y are screen
// coordinates. For wheel events Delta carries the scroll direction; for
// pinch events X2,Y2 is the second contact.
type InputEvent struct {
	Kind     EventKind `json:"kind"`
	X        float64   `json:"x"`
	Y        float64   `json:"y"`
	X2       float64   `json:"x2,omitempty"`
	Y2       float64   `json:"y2,omitempty"`
	Delta    float64   `json:"delta,omitempty"`
	OnMarker bool      `json:"on_marker,omitempty"` // event target opted out of panning
}

// Outcome reports what a completed interaction meant. Rendering code uses
// Clicked to fire marker selection; a drag suppresses it.
type Outcome struct {
	Clicked bool
	ClickX  float64
	ClickY  float64
	Changed bool // viewport state was mutated
	// SuppressMenu is set on a context-menu event that arrives mid
	// interaction, so the native menu cannot interrupt a drag or pinch.
	SuppressMenu bool
}

// GestureConfig tunes the controller.
type GestureConfig struct {
	// DragThresholdPx is the cumulative displacement that turns a press
	// into a drag instead of a click.
	DragThresholdPx float64
	// InvertWheel flips the scroll-to-zoom direction.
	InvertWheel bool
}

// DefaultGestureConfig matches the observed interaction tuning.
func DefaultGestureConfig() GestureConfig {
	return GestureConfig{DragThresholdPx: 3}
}

// Gesture translates raw pointer sequences into viewport operations,
// disambiguating click vs drag vs pinch. It is single-threaded and
// cooperative with whatever event loop delivers the input; every Handle
// call completes synchronously.
type Gesture struct {
	cfg      GestureConfig
	viewport *Viewport

	containerW int
	containerH int

	state  gestureState
	downX  float64
	downY  float64
	lastX  float64
	lastY  float64
	moved  float64

	// Pinch baseline, captured when the second contact appears. Pinch
	// zoom is computed against this snapshot, never incrementally, so the
	// gesture cannot drift.
	pinchActive   bool
	pinchBaseDist float64
	pinchMidX     float64
	pinchMidY     float64
	pinchCenter   domain.GeoPoint
	pinchZoom     int
}

// NewGesture creates a controller driving the given viewport for a container
// of the given size.
func NewGesture(cfg GestureConfig, v *Viewport, containerW, containerH int) *Gesture {
	if cfg.DragThresholdPx <= 0 {
		cfg.DragThresholdPx = 3
	}
	return &Gesture{cfg: cfg, viewport: v, containerW: containerW, containerH: containerH}
}

// Resize updates the container dimensions used for anchor math.
func (g *Gesture) Resize(w, h int) {
	g.containerW = w
	g.containerH = h
}

// Dragging reports whether a drag is currently in progress.
func (g *Gesture) Dragging() bool { return g.state == stateDragging }

// Interacting reports whether any pointer interaction is in flight: a
// pressed button, an active drag, or a pinch.
func (g *Gesture) Interacting() bool { return g.state != stateIdle || g.pinchActive }

// Handle feeds one raw event through the state machine and applies the
// resulting viewport operation, if any.
func (g *Gesture) Handle(ev InputEvent) Outcome {
	switch ev.Kind {
	case EventDown:
		return g.handleDown(ev)
	case EventMove:
		return g.handleMove(ev)
	case EventUp, EventLeave:
		return g.handleUp(ev)
	case EventWheel:
		return g.handleWheel(ev)
	case EventTouch2:
		return g.handleSecondContact(ev)
	case EventPinch:
		return g.handlePinch(ev)
	case EventTouch1:
		return g.handleContactDrop(ev)
	case EventContextMenu:
		return Outcome{SuppressMenu: g.Interacting()}
	}
	return Outcome{}
}

func (g *Gesture) handleDown(ev InputEvent) Outcome {
	// Markers and controls opt out of starting a pan so they stay
	// clickable.
	if ev.OnMarker {
		return Outcome{}
	}
	g.state = stateButtonDown
	g.downX, g.downY = ev.X, ev.Y
	g.lastX, g.lastY = ev.X, ev.Y
	g.moved = 0
	return Outcome{}
}

func (g *Gesture) handleMove(ev InputEvent) Outcome {
	if g.pinchActive || (g.state != stateButtonDown && g.state != stateDragging) {
		return Outcome{}
	}

	g.moved += math.Hypot(ev.X-g.lastX, ev.Y-g.lastY)
	if g.state == stateButtonDown {
		if g.moved <= g.cfg.DragThresholdPx {
			g.lastX, g.lastY = ev.X, ev.Y
			return Outcome{}
		}
		g.state = stateDragging
	}

	// Incremental deltas: the reference point advances every move so a
	// delta is never applied twice.
	dx := ev.X - g.lastX
	dy := ev.Y - g.lastY
	g.lastX, g.lastY = ev.X, ev.Y
	if dx == 0 && dy == 0 {
		return Outcome{}
	}
	g.viewport.PanBy(dx, dy)
	return Outcome{Changed: true}
}

func (g *Gesture) handleUp(ev InputEvent) Outcome {
	wasDragging := g.state == stateDragging
	wasDown := g.state == stateButtonDown
	g.state = stateIdle
	g.pinchActive = false

	if wasDragging {
		// Drag does not select.
		return Outcome{}
	}
	if wasDown {
		return Outcome{Clicked: true, ClickX: g.downX, ClickY: g.downY}
	}
	return Outcome{}
}

func (g *Gesture) handleWheel(ev InputEvent) Outcome {
	delta := 1
	if ev.Delta > 0 { // scroll down
		delta = -1
	}
	if g.cfg.InvertWheel {
		delta = -delta
	}
	before := g.viewport.Zoom()
	g.viewport.ZoomAt(delta, ev.X, ev.Y, g.containerW, g.containerH)
	return Outcome{Changed: g.viewport.Zoom() != before}
}

func (g *Gesture) handleSecondContact(ev InputEvent) Outcome {
	dist := math.Hypot(ev.X2-ev.X, ev.Y2-ev.Y)
	if dist == 0 {
		return Outcome{}
	}
	g.pinchActive = true
	g.state = stateIdle // a pinch never resolves to a click
	g.pinchBaseDist = dist
	g.pinchMidX = (ev.X + ev.X2) / 2
	g.pinchMidY = (ev.Y + ev.Y2) / 2
	g.pinchCenter = g.viewport.Center()
	g.pinchZoom = g.viewport.Zoom()
	return Outcome{}
}

func (g *Gesture) handlePinch(ev InputEvent) Outcome {
	if !g.pinchActive || g.pinchBaseDist == 0 {
		return Outcome{}
	}
	dist := math.Hypot(ev.X2-ev.X, ev.Y2-ev.Y)
	if dist <= 0 {
		return Outcome{}
	}

	target := g.pinchZoom + int(math.Round(math.Log2(dist/g.pinchBaseDist)))

	prevCenter, prevZoom := g.viewport.Center(), g.viewport.Zoom()

	// Recompute from the snapshot so repeated moves within one gesture
	// stay anchored at the captured midpoint.
	g.viewport.Set(g.pinchCenter, g.pinchZoom)
	g.viewport.SetZoomAt(target, g.pinchMidX, g.pinchMidY, g.containerW, g.containerH)

	changed := g.viewport.Zoom() != prevZoom || g.viewport.Center() != prevCenter
	return Outcome{Changed: changed}
}

func (g *Gesture) handleContactDrop(ev InputEvent) Outcome {
	if !g.pinchActive {
		return Outcome{}
	}
	// Two contacts down to one: resume panning from the remaining finger
	// without a discontinuous jump.
	g.pinchActive = false
	g.state = stateDragging
	g.lastX, g.lastY = ev.X, ev.Y
	g.moved = g.cfg.DragThresholdPx + 1
	return Outcome{}
}
