package viz

import (
	"sync/atomic"
	"testing"
	"time"

	"physbook/internal/events"
)

type fakeScene struct {
	disposed int32
}

func (s *fakeScene) Dispose() { atomic.AddInt32(&s.disposed, 1) }

func TestInitAndDispose(t *testing.T) {
	scenes := make(map[string]*fakeScene)
	r := NewRegistry(func(id string) Scene {
		s := &fakeScene{}
		scenes[id] = s
		return s
	})

	if !r.Init("playground") {
		t.Fatal("Init should succeed")
	}
	if r.Init("playground") {
		t.Error("second Init should be a no-op")
	}
	if got := r.Active(); len(got) != 1 || got[0] != "playground" {
		t.Errorf("active = %v", got)
	}

	if !r.Dispose("playground") {
		t.Fatal("Dispose should succeed")
	}
	if atomic.LoadInt32(&scenes["playground"].disposed) != 1 {
		t.Error("scene not disposed")
	}
	if r.Dispose("playground") {
		t.Error("second Dispose should be a no-op")
	}
}

func TestNilSceneFactory(t *testing.T) {
	r := NewRegistry(func(id string) Scene { return nil })
	if r.Init("x") {
		t.Error("nil scene should not register")
	}
}

func TestDisposeAll(t *testing.T) {
	r := NewRegistry(func(id string) Scene {
		return &fakeScene{}
	})
	r.Init("a")
	r.Init("b")
	r.DisposeAll()
	if len(r.Active()) != 0 {
		t.Errorf("active after DisposeAll = %v", r.Active())
	}
}

func TestAttach(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()

	r := NewRegistry(func(id string) Scene { return &fakeScene{} })
	stop, err := r.Attach(bus, "viz-test")
	if err != nil {
		t.Fatal(err)
	}
	defer stop()

	bus.Publish(events.NewSection(events.VisualizationReady, "playground", true))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && len(r.Active()) == 0 {
		time.Sleep(2 * time.Millisecond)
	}
	if got := r.Active(); len(got) != 1 || got[0] != "playground" {
		t.Errorf("active = %v", got)
	}
}
