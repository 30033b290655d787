package library

import (
	"errors"
	"testing"

	"github.com/mcampolo/reeldeck/internal/models"
	"github.com/mcampolo/reeldeck/internal/shared"
)

// twoPanelLayout builds a minimal layout: two 20x12 containers side by side,
// each with item rows 2 cells tall starting at y=1.
func twoPanelLayout(sourceItems, targetItems int) []DropTarget {
	targets := []DropTarget{
		{Collection: Source, Index: -1, Bounds: Rect{X: 0, Y: 0, W: 20, H: 12}},
		{Collection: Target, Index: -1, Bounds: Rect{X: 20, Y: 0, W: 20, H: 12}},
	}
	for i := 0; i < sourceItems; i++ {
		targets = append(targets, DropTarget{
			Collection: Source, Index: i,
			Bounds: Rect{X: 0, Y: 1 + i*2, W: 20, H: 2},
		})
	}
	for i := 0; i < targetItems; i++ {
		targets = append(targets, DropTarget{
			Collection: Target, Index: i,
			Bounds: Rect{X: 20, Y: 1 + i*2, W: 20, H: 2},
		})
	}
	return targets
}

func dragAt(x, y int) Rect {
	// A 1x1 drag rect centered on the pointer.
	return Rect{X: x, Y: y, W: 1, H: 1}
}

func TestContainerOnlyStrategy(t *testing.T) {
	targets := twoPanelLayout(2, 1)

	// Pointer in the target container, below its single item (item spans
	// y=1..3): container-level drop, end of collection.
	dest, ok := ContainerOnly(dragAt(25, 10), targets)
	if !ok {
		t.Fatal("ContainerOnly() did not yield for empty container space")
	}
	if dest.Collection != Target || dest.Index != -1 {
		t.Errorf("destination = %+v, want end of target", dest)
	}

	// Pointer over an item: this strategy must pass.
	if _, ok := ContainerOnly(dragAt(25, 2), targets); ok {
		t.Error("ContainerOnly() yielded while over an item")
	}
}

func TestPointerWithinItemStrategy(t *testing.T) {
	targets := twoPanelLayout(3, 0)

	// Second source item spans y=3..5; its center row is y=4.
	dest, ok := PointerWithinItem(dragAt(5, 3), targets)
	if !ok {
		t.Fatal("PointerWithinItem() did not yield")
	}
	if dest.Collection != Source || dest.Index != 1 {
		t.Errorf("destination = %+v, want source index 1", dest)
	}
	if dest.Quadrant != TopLeft {
		t.Errorf("quadrant = %v, want TopLeft above/left of center", dest.Quadrant)
	}

	dest, _ = PointerWithinItem(dragAt(15, 4), targets)
	if dest.Quadrant != BottomRight {
		t.Errorf("quadrant = %v, want BottomRight below/right of center", dest.Quadrant)
	}

	if _, ok := PointerWithinItem(dragAt(25, 2), targets); ok {
		t.Error("PointerWithinItem() yielded outside every item")
	}
}

func TestRectIntersectionStrategy(t *testing.T) {
	targets := twoPanelLayout(2, 0)

	// Drag rect overlapping the first item row but centered outside it.
	drag := Rect{X: 18, Y: 1, W: 6, H: 2}
	dest, ok := RectIntersection(drag, targets)
	if !ok {
		t.Fatal("RectIntersection() did not yield")
	}
	if dest.Collection != Source || dest.Index != 0 {
		t.Errorf("destination = %+v, want source index 0", dest)
	}
}

func TestNearestCenterStrategy(t *testing.T) {
	targets := twoPanelLayout(1, 1)

	// Far outside everything; nearest wins, never a miss.
	dest, ok := NearestCenter(dragAt(100, 2), targets)
	if !ok {
		t.Fatal("NearestCenter() did not yield")
	}
	if dest.Collection != Target {
		t.Errorf("destination = %+v, want the right-hand panel", dest)
	}

	if _, ok := NearestCenter(dragAt(0, 0), nil); ok {
		t.Error("NearestCenter() yielded with no targets")
	}
}

func TestResolverChainOrder(t *testing.T) {
	targets := twoPanelLayout(2, 2)
	resolver := NewResolver()

	// Over an item: the item strategy must win over fallbacks.
	dest, ok := resolver.Resolve(dragAt(25, 4), targets)
	if !ok {
		t.Fatal("Resolve() did not yield")
	}
	if dest.Collection != Target || dest.Index != 1 {
		t.Errorf("destination = %+v, want target index 1", dest)
	}

	// Empty container space: container strategy wins.
	dest, _ = resolver.Resolve(dragAt(5, 10), targets)
	if dest.Collection != Source || dest.Index != -1 {
		t.Errorf("destination = %+v, want end of source", dest)
	}
}

func TestDropMovesRecord(t *testing.T) {
	catalog := NewCatalog()
	catalog.Replace([]models.VideoRecord{rec("/a.mp4"), rec("/b.mp4")})
	state := NewPanelState()
	state.Derive(catalog.Paths())

	resolver := NewResolver()
	targets := twoPanelLayout(2, 0)

	// Drop /a.mp4 into the empty target container.
	if err := resolver.Drop(state, catalog, "/a.mp4", dragAt(25, 6), targets); err != nil {
		t.Fatalf("Drop() error = %v", err)
	}
	if got := state.Target(); len(got) != 1 || got[0] != "/a.mp4" {
		t.Errorf("Target() = %v, want [/a.mp4]", got)
	}
}

func TestDropBlockedByCompatibilityGate(t *testing.T) {
	catalog := NewCatalog()
	bad := rec("/bad.avi")
	bad.Name = "bad.avi"
	bad.Compatibility = models.CompatFailed
	bad.CompatibilityError = "codec not supported"
	bad.CheckedWithBrowser = true
	catalog.Replace([]models.VideoRecord{bad})

	state := NewPanelState()
	state.Derive(catalog.Paths())

	resolver := NewResolver()
	targets := twoPanelLayout(1, 0)

	// Dragging the incompatible record onto the target container.
	err := resolver.Drop(state, catalog, "/bad.avi", dragAt(25, 6), targets)
	if !errors.Is(err, shared.ErrIncompatible) {
		t.Fatalf("Drop() error = %v, want ErrIncompatible", err)
	}
	if got := state.Target(); len(got) != 0 {
		t.Errorf("Target() = %v, want unchanged empty", got)
	}
	if got := state.Source(); len(got) != 1 {
		t.Errorf("Source() = %v, record must stay put", got)
	}
}

func TestDropNowhereIsNoop(t *testing.T) {
	catalog := NewCatalog()
	catalog.Replace([]models.VideoRecord{rec("/a.mp4")})
	state := NewPanelState()
	state.Derive(catalog.Paths())

	resolver := &Resolver{strategies: []Strategy{ContainerOnly}}
	if err := resolver.Drop(state, catalog, "/a.mp4", dragAt(500, 500), twoPanelLayout(1, 0)); err != nil {
		t.Errorf("Drop(nowhere) error = %v, want nil no-op", err)
	}
	if got := state.Source(); len(got) != 1 {
		t.Errorf("Source() = %v, want unchanged", got)
	}
}
