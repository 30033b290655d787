package library

import (
	"math"
)

// Point and Rect describe drag geometry in whatever unit the renderer uses
// (terminal cells for the TUI). The collision chain only needs relative
// positions, not absolute pixels.
type Point struct {
	X, Y int
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	X, Y, W, H int
}

// Contains reports whether p falls inside the rectangle.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.W && p.Y >= r.Y && p.Y < r.Y+r.H
}

// Center returns the rectangle's center point.
func (r Rect) Center() Point {
	return Point{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

// Intersects reports whether two rectangles overlap.
func (r Rect) Intersects(other Rect) bool {
	return r.X < other.X+other.W && other.X < r.X+r.W &&
		r.Y < other.Y+other.H && other.Y < r.Y+r.H
}

// Quadrant is the fine-placement position of the pointer relative to an
// item's center.
type Quadrant int

const (
	TopLeft Quadrant = iota
	TopRight
	BottomLeft
	BottomRight
)

func quadrantOf(p Point, r Rect) Quadrant {
	center := r.Center()
	bottom := p.Y >= center.Y
	right := p.X >= center.X
	switch {
	case bottom && right:
		return BottomRight
	case bottom:
		return BottomLeft
	case right:
		return TopRight
	default:
		return TopLeft
	}
}

// DropTarget is one droppable region the renderer lays out: either an item
// row (Index >= 0) or a whole container (Index < 0).
type DropTarget struct {
	Collection Collection
	Index      int // item index within the collection; negative for containers
	Bounds     Rect
}

// Container reports whether the target is a container-level drop zone.
func (t DropTarget) Container() bool {
	return t.Index < 0
}

// Destination is a resolved drop position. A negative Index means "end of the
// collection".
type Destination struct {
	Collection Collection
	Index      int
	Quadrant   Quadrant
}

// Strategy examines the drag rectangle against the laid-out targets and
// either yields a destination or passes. Strategies are evaluated in order
// until one yields, which keeps each rule testable in isolation.
type Strategy func(drag Rect, targets []DropTarget) (Destination, bool)

// ContainerOnly yields when the pointer sits inside a container-level target
// but over none of its items: the drop lands at the end of that collection.
func ContainerOnly(drag Rect, targets []DropTarget) (Destination, bool) {
	pointer := drag.Center()

	for _, t := range targets {
		if !t.Container() || !t.Bounds.Contains(pointer) {
			continue
		}

		overItem := false
		for _, item := range targets {
			if !item.Container() && item.Collection == t.Collection && item.Bounds.Contains(pointer) {
				overItem = true
				break
			}
		}
		if !overItem {
			return Destination{Collection: t.Collection, Index: -1}, true
		}
	}
	return Destination{}, false
}

// PointerWithinItem yields when the pointer is inside a specific item's
// rectangle: that item's index becomes the destination, with the quadrant
// recorded for fine placement.
func PointerWithinItem(drag Rect, targets []DropTarget) (Destination, bool) {
	pointer := drag.Center()

	for _, t := range targets {
		if t.Container() || !t.Bounds.Contains(pointer) {
			continue
		}
		return Destination{
			Collection: t.Collection,
			Index:      t.Index,
			Quadrant:   quadrantOf(pointer, t.Bounds),
		}, true
	}
	return Destination{}, false
}

// RectIntersection yields the first item target whose rectangle overlaps the
// dragged rectangle, falling back to an intersecting container.
func RectIntersection(drag Rect, targets []DropTarget) (Destination, bool) {
	for _, t := range targets {
		if t.Container() || !t.Bounds.Intersects(drag) {
			continue
		}
		return Destination{Collection: t.Collection, Index: t.Index}, true
	}
	for _, t := range targets {
		if t.Container() && t.Bounds.Intersects(drag) {
			return Destination{Collection: t.Collection, Index: -1}, true
		}
	}
	return Destination{}, false
}

// NearestCenter always yields (given any target): the target whose center is
// closest to the drag center wins. This is the terminal fallback so a drop
// never simply vanishes.
func NearestCenter(drag Rect, targets []DropTarget) (Destination, bool) {
	if len(targets) == 0 {
		return Destination{}, false
	}

	center := drag.Center()
	best := -1
	bestDist := math.MaxFloat64

	for i, t := range targets {
		tc := t.Bounds.Center()
		dx := float64(tc.X - center.X)
		dy := float64(tc.Y - center.Y)
		dist := dx*dx + dy*dy
		if dist < bestDist {
			bestDist = dist
			best = i
		}
	}

	t := targets[best]
	index := t.Index
	if t.Container() {
		index = -1
	}
	return Destination{Collection: t.Collection, Index: index}, true
}

// Resolver turns drag gestures into panel moves through an ordered strategy
// chain.
type Resolver struct {
	strategies []Strategy
}

// NewResolver creates a resolver with the default chain: container-only,
// pointer-within-item, rectangle intersection, nearest center.
func NewResolver(extra ...Strategy) *Resolver {
	chain := []Strategy{ContainerOnly, PointerWithinItem, RectIntersection, NearestCenter}
	chain = append(chain, extra...)
	return &Resolver{strategies: chain}
}

// Resolve evaluates the chain until a strategy yields.
func (r *Resolver) Resolve(drag Rect, targets []DropTarget) (Destination, bool) {
	for _, strategy := range r.strategies {
		if dest, ok := strategy(drag, targets); ok {
			return dest, true
		}
	}
	return Destination{}, false
}

// Drop resolves the gesture and applies the gated move against the panel
// state. A drop that resolves nowhere is a no-op.
func (r *Resolver) Drop(state *PanelState, catalog *Catalog, draggedPath string, drag Rect, targets []DropTarget) error {
	dest, ok := r.Resolve(drag, targets)
	if !ok {
		return nil
	}
	return Transfer(state, catalog, draggedPath, dest.Collection, dest.Index)
}
