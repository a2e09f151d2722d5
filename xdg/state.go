package xdg

import (
	"strings"
)

// State is a toplevel state as sent in xdg_toplevel.configure.
type State uint32

const (
	StateMaximized  State = 1
	StateFullscreen State = 2
	StateResizing   State = 3
	StateActivated  State = 4
)

var allStates = []State{StateMaximized, StateFullscreen, StateResizing, StateActivated}

func (s State) String() string {
	switch s {
	case StateMaximized:
		return "maximized"
	case StateFullscreen:
		return "fullscreen"
	case StateResizing:
		return "resizing"
	case StateActivated:
		return "activated"
	}
	return "unknown"
}

// States is a set of toplevel states.
type States uint32

func NewStates(states ...State) States {
	return States(0).With(states...)
}

func (s States) Has(state State) bool {
	return s&(1<<state) != 0
}

func (s States) With(states ...State) States {
	for _, state := range states {
		s |= 1 << state
	}
	return s
}

func (s States) Without(states ...State) States {
	for _, state := range states {
		s &^= 1 << state
	}
	return s
}

// List returns the states in the set in ascending order.
func (s States) List() []State {
	list := make([]State, 0, len(allStates))
	for _, state := range allStates {
		if s.Has(state) {
			list = append(list, state)
		}
	}
	return list
}

func (s States) String() string {
	names := make([]string, 0, len(allStates))
	for _, state := range s.List() {
		names = append(names, state.String())
	}
	return "[" + strings.Join(names, " ") + "]"
}

// ResizeEdge is the edge or corner of a toplevel that is being dragged
// in an interactive resize.
type ResizeEdge uint32

const (
	ResizeEdgeNone        ResizeEdge = 0
	ResizeEdgeTop         ResizeEdge = 1
	ResizeEdgeBottom      ResizeEdge = 2
	ResizeEdgeLeft        ResizeEdge = 4
	ResizeEdgeTopLeft     ResizeEdge = 5
	ResizeEdgeBottomLeft  ResizeEdge = 6
	ResizeEdgeRight       ResizeEdge = 8
	ResizeEdgeTopRight    ResizeEdge = 9
	ResizeEdgeBottomRight ResizeEdge = 10
)

func (e ResizeEdge) Valid() bool {
	switch e {
	case ResizeEdgeNone, ResizeEdgeTop, ResizeEdgeBottom, ResizeEdgeLeft,
		ResizeEdgeTopLeft, ResizeEdgeBottomLeft, ResizeEdgeRight,
		ResizeEdgeTopRight, ResizeEdgeBottomRight:
		return true
	}
	return false
}

func (e ResizeEdge) Edges() Edges {
	var edges Edges
	if e&ResizeEdgeTop != 0 {
		edges |= EdgeTop
	}
	if e&ResizeEdgeBottom != 0 {
		edges |= EdgeBottom
	}
	if e&ResizeEdgeLeft != 0 {
		edges |= EdgeLeft
	}
	if e&ResizeEdgeRight != 0 {
		edges |= EdgeRight
	}
	return edges
}

// Edges is a set of rectangle edges. It describes both the anchor and
// the gravity of a positioner.
type Edges uint8

const (
	EdgeTop Edges = 1 << iota
	EdgeBottom
	EdgeLeft
	EdgeRight
)

// Valid reports whether e does not contain two opposite edges.
func (e Edges) Valid() bool {
	return (e&(EdgeTop|EdgeBottom) != EdgeTop|EdgeBottom) &&
		(e&(EdgeLeft|EdgeRight) != EdgeLeft|EdgeRight)
}

func (e Edges) Has(edge Edges) bool {
	return e&edge == edge
}

// The xdg_positioner.anchor and xdg_positioner.gravity enums share
// their values.
var wireEdges = []Edges{
	0,
	EdgeTop,
	EdgeBottom,
	EdgeLeft,
	EdgeRight,
	EdgeTop | EdgeLeft,
	EdgeBottom | EdgeLeft,
	EdgeTop | EdgeRight,
	EdgeBottom | EdgeRight,
}

// EdgesFromWire converts an xdg_positioner anchor or gravity value.
func EdgesFromWire(v uint32) (Edges, bool) {
	if v >= uint32(len(wireEdges)) {
		return 0, false
	}
	return wireEdges[v], true
}

func (e Edges) String() string {
	var names []string
	for _, edge := range []struct {
		e    Edges
		name string
	}{{EdgeTop, "top"}, {EdgeBottom, "bottom"}, {EdgeLeft, "left"}, {EdgeRight, "right"}} {
		if e.Has(edge.e) {
			names = append(names, edge.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// ConstraintAdjustment is the set of ways that a popup may be moved or
// resized to keep it visible.
type ConstraintAdjustment uint32

const (
	ConstraintAdjustmentSlideX ConstraintAdjustment = 1 << iota
	ConstraintAdjustmentSlideY
	ConstraintAdjustmentFlipX
	ConstraintAdjustmentFlipY
	ConstraintAdjustmentResizeX
	ConstraintAdjustmentResizeY

	constraintAdjustmentAll = 1<<iota - 1
)

func (c ConstraintAdjustment) Has(flag ConstraintAdjustment) bool {
	return c&flag == flag
}
