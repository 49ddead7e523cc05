// Package viz tracks the 3D scenes attached to loaded sections. The
// rendering itself happens on the client; this registry owns init/dispose
// bookkeeping so eviction can tear a scene down before its container goes
// away.
package viz

import (
	"log"
	"sync"

	"physbook/internal/events"
)

// Scene is a disposable visualization attached to one section.
type Scene interface {
	Dispose()
}

// SceneFactory builds a scene for a section id. Returning nil means the
// section gets no scene.
type SceneFactory func(id string) Scene

// Registry tracks active scenes keyed by section id.
type Registry struct {
	factory SceneFactory

	mu     sync.Mutex
	active map[string]Scene
}

// NewRegistry creates a registry using the given factory.
func NewRegistry(factory SceneFactory) *Registry {
	return &Registry{
		factory: factory,
		active:  make(map[string]Scene),
	}
}

// Init creates the scene for a section. Idempotent: a second Init for the
// same id is a no-op returning false.
func (r *Registry) Init(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.active[id]; ok {
		return false
	}
	scene := r.factory(id)
	if scene == nil {
		return false
	}
	r.active[id] = scene
	return true
}

// Dispose tears down the scene for a section. No-op returning false when
// no scene is active.
func (r *Registry) Dispose(id string) bool {
	r.mu.Lock()
	scene, ok := r.active[id]
	delete(r.active, id)
	r.mu.Unlock()
	if !ok {
		return false
	}
	scene.Dispose()
	return true
}

// Active returns the ids with live scenes.
func (r *Registry) Active() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.active))
	for id := range r.active {
		ids = append(ids, id)
	}
	return ids
}

// DisposeAll tears down every active scene.
func (r *Registry) DisposeAll() {
	r.mu.Lock()
	scenes := r.active
	r.active = make(map[string]Scene)
	r.mu.Unlock()
	for _, s := range scenes {
		s.Dispose()
	}
}

// Attach subscribes the registry to visualization-ready events on the bus
// and returns a stop function. Events for sections that unloaded between
// publish and delivery are harmless: Init on a later unload is undone by
// the manager's disposer hook.
func (r *Registry) Attach(bus *events.Bus, subscriberID string) (stop func(), err error) {
	ch := make(chan events.Event, 16)
	if err := bus.Subscribe(subscriberID, ch); err != nil {
		return nil, err
	}
	done := make(chan struct{})
	go func() {
		for {
			select {
			case e := <-ch:
				if e.Type == events.VisualizationReady {
					r.Init(e.SectionID)
				}
			case <-done:
				return
			}
		}
	}()
	return func() {
		close(done)
		if err := bus.Unsubscribe(subscriberID); err != nil && err != events.ErrBusClosed {
			log.Printf("viz: unsubscribe: %v", err)
		}
	}, nil
}
