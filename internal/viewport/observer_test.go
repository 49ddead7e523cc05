package viewport

import (
	"testing"
	"time"

	"physbook/internal/book"
	"physbook/internal/device"
)

func viewportManifest() *book.Manifest {
	m := &book.Manifest{
		Title: "Test",
		Sections: []book.Section{
			{ID: "cover", Source: "cover.html"},
			{ID: "s1", Source: "s1.html"},
			{ID: "s2", Source: "s2.html"},
			{ID: "s3", Source: "s3.html"},
		},
	}
	if err := m.Validate(); err != nil {
		panic(err)
	}
	return m
}

// stackedLayout lays the four sections out one after another, each 1000px.
func stackedLayout(o *Observer) {
	o.SetLayout("cover", device.Rect{Top: 0, Height: 1000})
	o.SetLayout("s1", device.Rect{Top: 1000, Height: 1000})
	o.SetLayout("s2", device.Rect{Top: 2000, Height: 1000})
	o.SetLayout("s3", device.Rect{Top: 3000, Height: 1000})
}

func TestUpdateOrdersByRatio(t *testing.T) {
	o := NewObserver(viewportManifest(), device.PolicyFor(device.Desktop))
	stackedLayout(o)

	// Viewport straddles the s1/s2 boundary, mostly over s2.
	batch := o.Update(device.Viewport{ScrollTop: 1700, Height: 800})
	if len(batch) < 2 {
		t.Fatalf("batch = %+v", batch)
	}
	if batch.Best().ID != "s2" {
		t.Errorf("best = %q, want s2", batch.Best().ID)
	}
	if batch[0].Ratio < batch[1].Ratio {
		t.Error("batch not ordered by ratio descending")
	}
}

func TestUpdateRootMarginPullsInNeighbors(t *testing.T) {
	o := NewObserver(viewportManifest(), device.PolicyFor(device.Desktop))
	stackedLayout(o)

	// s2 starts at 2000; the viewport ends at 1900, but the 200px margin
	// makes s2 load-worthy while its raw ratio stays 0.
	batch := o.Update(device.Viewport{ScrollTop: 1100, Height: 800})
	var found bool
	for _, e := range batch {
		if e.ID == "s2" {
			found = true
			if e.Ratio != 0 {
				t.Errorf("s2 raw ratio = %v, want 0", e.Ratio)
			}
		}
	}
	if !found {
		t.Errorf("margin should make s2 load-worthy: %+v", batch)
	}
}

func TestUpdateEmitsToHandler(t *testing.T) {
	o := NewObserver(viewportManifest(), device.PolicyFor(device.Desktop))
	stackedLayout(o)

	var batches []Batch
	o.Observe(func(b Batch) { batches = append(batches, b) })

	o.Update(device.Viewport{ScrollTop: 0, Height: 800})
	if len(batches) != 1 {
		t.Fatalf("handler calls = %d", len(batches))
	}
	if batches[0].Best().ID != "cover" {
		t.Errorf("best = %q", batches[0].Best().ID)
	}
}

func TestOnScrollThrottles(t *testing.T) {
	o := NewObserver(viewportManifest(), device.Policy{ScrollThrottle: 100 * time.Millisecond})
	stackedLayout(o)

	clock := time.Unix(0, 0)
	o.now = func() time.Time { return clock }

	var emitted int
	o.Observe(func(b Batch) { emitted++ })

	o.OnScroll(device.Viewport{ScrollTop: 0, Height: 800})
	if emitted != 1 {
		t.Fatalf("first scroll should emit, got %d", emitted)
	}

	// Inside the throttle window: ignored even though the best changed.
	clock = clock.Add(50 * time.Millisecond)
	o.OnScroll(device.Viewport{ScrollTop: 2200, Height: 800})
	if emitted != 1 {
		t.Fatalf("throttled scroll emitted, got %d", emitted)
	}

	// Past the window and disagreeing with last state: emits.
	clock = clock.Add(100 * time.Millisecond)
	o.OnScroll(device.Viewport{ScrollTop: 2200, Height: 800})
	if emitted != 2 {
		t.Fatalf("post-throttle scroll should emit, got %d", emitted)
	}
}

func TestOnScrollAgreementIsSilent(t *testing.T) {
	o := NewObserver(viewportManifest(), device.Policy{ScrollThrottle: 10 * time.Millisecond})
	stackedLayout(o)

	clock := time.Unix(0, 0)
	o.now = func() time.Time { return clock }

	var emitted int
	o.Observe(func(b Batch) { emitted++ })

	o.Update(device.Viewport{ScrollTop: 0, Height: 800})
	if emitted != 1 {
		t.Fatal("Update should emit")
	}

	// Fallback agrees with the observer-derived best: no extra emit.
	clock = clock.Add(time.Second)
	o.OnScroll(device.Viewport{ScrollTop: 100, Height: 800})
	if emitted != 1 {
		t.Errorf("agreeing fallback emitted, got %d", emitted)
	}
}

func TestBatchHelpers(t *testing.T) {
	var empty Batch
	if empty.Best().ID != "" {
		t.Error("empty batch best should be zero")
	}
	b := Batch{{ID: "a", Ratio: 0.9}, {ID: "b", Ratio: 0.2}}
	ids := b.IDs()
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("ids = %v", ids)
	}
}
