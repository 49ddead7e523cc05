package content

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"physbook/internal/book"
	"physbook/internal/device"
	"physbook/internal/events"
	"physbook/internal/fragment"
	"physbook/internal/state"
)

// fetchFunc adapts a function to the Fetcher interface.
type fetchFunc func(ctx context.Context, relPath string) (*fragment.Result, error)

func (f fetchFunc) Fetch(ctx context.Context, relPath string) (*fragment.Result, error) {
	return f(ctx, relPath)
}

// fakeLock implements NavigationLock with a settable state.
type fakeLock struct {
	mu        sync.Mutex
	active    bool
	remaining time.Duration
}

func (l *fakeLock) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

func (l *fakeLock) Remaining() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.remaining
}

func (l *fakeLock) setActive(b bool) {
	l.mu.Lock()
	l.active = b
	l.mu.Unlock()
}

func contentManifest() *book.Manifest {
	sections := []book.Section{
		{ID: "cover", Title: "Cover", Source: "content/cover.html"},
		{ID: "about", Source: "content/about.html"},
		{ID: "chapters", Source: "content/chapters.html"},
	}
	for i := 0; i < 8; i++ {
		sections = append(sections, book.Section{
			ID:     fmt.Sprintf("s%d", i),
			Source: fmt.Sprintf("content/s%d.html", i),
		})
	}
	sections = append(sections, book.Section{ID: "playground", Source: "content/playground.html", Visualization: true})
	m := &book.Manifest{Title: "Physics", Sections: sections}
	if err := m.Validate(); err != nil {
		panic(err)
	}
	return m
}

func okFetcher() Fetcher {
	return fetchFunc(func(ctx context.Context, relPath string) (*fragment.Result, error) {
		return &fragment.Result{HTML: "<p>" + relPath + "</p>", URL: relPath}, nil
	})
}

func newTestManager(f Fetcher, policy device.Policy) (*Manager, *state.Store, *events.Bus) {
	st := state.NewStore()
	bus := events.NewBus()
	m := NewManager(contentManifest(), st, bus, f, policy)
	return m, st, bus
}

func TestLoadSectionSuccess(t *testing.T) {
	m, st, bus := newTestManager(okFetcher(), device.PolicyFor(device.Desktop))
	defer bus.Close()

	ch := make(chan events.Event, 4)
	if err := bus.Subscribe("test", ch); err != nil {
		t.Fatal(err)
	}

	if got := m.LoadSection(context.Background(), "s0"); got != LoadOK {
		t.Fatalf("LoadSection = %v", got)
	}
	if !st.IsLoaded("s0") {
		t.Error("s0 should be in the loaded set")
	}
	view, ok := m.Snapshot("s0")
	if !ok || view.Status != StatusLoaded {
		t.Errorf("snapshot = %+v", view)
	}
	if !strings.Contains(view.HTML, "content/s0.html") {
		t.Errorf("slot html = %q", view.HTML)
	}

	e := <-ch
	if e.Type != events.SectionLoaded || e.SectionID != "s0" || !e.Success {
		t.Errorf("event = %+v", e)
	}
}

func TestLoadSectionAlreadyLoaded(t *testing.T) {
	m, _, bus := newTestManager(okFetcher(), device.PolicyFor(device.Desktop))
	defer bus.Close()

	m.LoadSection(context.Background(), "s0")
	if got := m.LoadSection(context.Background(), "s0"); got != LoadAlready {
		t.Errorf("second load = %v, want LoadAlready", got)
	}
}

func TestLoadSectionUnknownID(t *testing.T) {
	// Navigating to an id with no matching section must not panic.
	m, st, bus := newTestManager(okFetcher(), device.PolicyFor(device.Desktop))
	defer bus.Close()

	if got := m.LoadSection(context.Background(), "ghost"); got != LoadInvalid {
		t.Errorf("LoadSection(ghost) = %v", got)
	}
	if st.IsLoaded("ghost") {
		t.Error("ghost must not be loaded")
	}
}

func TestLoadSectionCoalescesConcurrentLoads(t *testing.T) {
	var fetches int32
	release := make(chan struct{})
	slow := fetchFunc(func(ctx context.Context, relPath string) (*fragment.Result, error) {
		atomic.AddInt32(&fetches, 1)
		<-release
		return &fragment.Result{HTML: "<p>ok</p>"}, nil
	})
	m, _, bus := newTestManager(slow, device.PolicyFor(device.Desktop))
	defer bus.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	var first LoadOutcome
	go func() {
		defer wg.Done()
		first = m.LoadSection(context.Background(), "s0")
	}()

	// Wait for the first call to claim the pending flag.
	for i := 0; i < 100 && atomic.LoadInt32(&fetches) == 0; i++ {
		time.Sleep(time.Millisecond)
	}
	second := m.LoadSection(context.Background(), "s0")
	close(release)
	wg.Wait()

	if first != LoadOK {
		t.Errorf("first outcome = %v", first)
	}
	if second != LoadCoalesced {
		t.Errorf("second outcome = %v, want LoadCoalesced", second)
	}
	if n := atomic.LoadInt32(&fetches); n != 1 {
		t.Errorf("fetches = %d, want exactly 1", n)
	}
}

func TestLoadSectionDeferredUnderNavigationLock(t *testing.T) {
	var fetches int32
	f := fetchFunc(func(ctx context.Context, relPath string) (*fragment.Result, error) {
		atomic.AddInt32(&fetches, 1)
		return &fragment.Result{HTML: "<p>ok</p>"}, nil
	})
	m, st, bus := newTestManager(f, device.PolicyFor(device.Desktop))
	defer bus.Close()

	lock := &fakeLock{active: true, remaining: 10 * time.Millisecond}
	m.SetNavigationLock(lock)

	if got := m.LoadSection(context.Background(), "s0"); got != LoadDeferred {
		t.Fatalf("LoadSection = %v, want LoadDeferred", got)
	}
	if atomic.LoadInt32(&fetches) != 0 {
		t.Error("no fetch should happen while locked")
	}

	// Release the lock; the deferred retry fires after remaining+buffer.
	lock.setActive(false)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && !st.IsLoaded("s0") {
		time.Sleep(5 * time.Millisecond)
	}
	if !st.IsLoaded("s0") {
		t.Fatal("deferred load never completed")
	}
}

func TestLoadSectionPathFallback(t *testing.T) {
	// Only the bare, query-free path answers; earlier candidates 404.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != "" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("<h1>Arrived</h1>"))
	}))
	defer srv.Close()

	u, _ := url.Parse(srv.URL + "/")
	fetcher := fragment.NewFetcher(fragment.NewResolver(u), srv.Client())
	m, st, bus := newTestManager(fetcher, device.PolicyFor(device.Desktop))
	defer bus.Close()

	if got := m.LoadSection(context.Background(), "s1"); got != LoadOK {
		t.Fatalf("LoadSection = %v", got)
	}
	if !st.IsLoaded("s1") {
		t.Error("s1 should be loaded via fallback path")
	}
	view, _ := m.Snapshot("s1")
	if view.HTML != "<h1>Arrived</h1>" {
		t.Errorf("html = %q", view.HTML)
	}
}

func TestLoadSectionExhaustionRendersErrorBlock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(http.NotFound))
	defer srv.Close()

	u, _ := url.Parse(srv.URL + "/")
	fetcher := fragment.NewFetcher(fragment.NewResolver(u), srv.Client())
	m, st, bus := newTestManager(fetcher, device.PolicyFor(device.Desktop))
	defer bus.Close()

	ch := make(chan events.Event, 4)
	bus.Subscribe("test", ch)

	if got := m.LoadSection(context.Background(), "s2"); got != LoadFailed {
		t.Fatalf("LoadSection = %v, want LoadFailed", got)
	}
	if st.IsLoaded("s2") {
		t.Error("s2 must not join the loaded set")
	}
	view, _ := m.Snapshot("s2")
	if view.Status != StatusErrored {
		t.Errorf("status = %q", view.Status)
	}
	if !strings.Contains(view.HTML, "retry-button") || !strings.Contains(view.HTML, `data-retry="s2"`) {
		t.Errorf("error block missing retry action: %q", view.HTML)
	}

	e := <-ch
	if e.Type != events.SectionLoaded || e.Success {
		t.Errorf("failure event = %+v", e)
	}

	// Pending flag must be clear so a user-initiated retry can run.
	if st.IsPending("s2") {
		t.Error("pending flag still set after failure")
	}
}

func TestLoadSectionStaleGenerationDiscarded(t *testing.T) {
	m, st, bus := newTestManager(nil, device.PolicyFor(device.Desktop))
	defer bus.Close()

	// The fetcher bumps the slot generation mid-flight, simulating the
	// slot being rewritten while the fetch was outstanding.
	m.fetcher = fetchFunc(func(ctx context.Context, relPath string) (*fragment.Result, error) {
		m.mu.Lock()
		m.slots["s3"].generation++
		m.mu.Unlock()
		return &fragment.Result{HTML: "<p>stale</p>"}, nil
	})

	if got := m.LoadSection(context.Background(), "s3"); got != LoadStale {
		t.Fatalf("LoadSection = %v, want LoadStale", got)
	}
	if st.IsLoaded("s3") {
		t.Error("stale result must not mark the section loaded")
	}
	view, _ := m.Snapshot("s3")
	if view.HTML == "<p>stale</p>" {
		t.Error("stale html must not be applied")
	}
	if st.IsPending("s3") {
		t.Error("pending flag must clear after stale discard")
	}
}

func TestUnloadSection(t *testing.T) {
	m, st, bus := newTestManager(okFetcher(), device.PolicyFor(device.Desktop))
	defer bus.Close()

	m.LoadSection(context.Background(), "s0")
	m.SetHeight("s0", 1200)

	var disposed []string
	m.SetDisposer(func(id string) { disposed = append(disposed, id) })

	ch := make(chan events.Event, 4)
	bus.Subscribe("test", ch)

	if !m.UnloadSection("s0") {
		t.Fatal("UnloadSection should succeed")
	}
	if st.IsLoaded("s0") {
		t.Error("s0 should leave the loaded set")
	}
	view, _ := m.Snapshot("s0")
	if view.Status != StatusUnloaded {
		t.Errorf("status = %q", view.Status)
	}
	if !strings.Contains(view.HTML, "min-height:1200px") {
		t.Errorf("placeholder should reserve height: %q", view.HTML)
	}
	if !strings.Contains(view.HTML, "S0") {
		t.Errorf("placeholder should carry friendly title: %q", view.HTML)
	}
	if len(disposed) != 1 || disposed[0] != "s0" {
		t.Errorf("disposed = %v", disposed)
	}

	e := <-ch
	if e.Type != events.SectionUnloaded || e.SectionID != "s0" {
		t.Errorf("event = %+v", e)
	}

	// Idempotent: second unload is a no-op returning false.
	if m.UnloadSection("s0") {
		t.Error("second UnloadSection should return false")
	}
}

func TestUnloadSectionEssentialGuard(t *testing.T) {
	m, st, bus := newTestManager(okFetcher(), device.PolicyFor(device.Desktop))
	defer bus.Close()

	for _, id := range []string{"cover", "about", "chapters"} {
		m.LoadSection(context.Background(), id)
		if m.UnloadSection(id) {
			t.Errorf("essential section %q was unloaded", id)
		}
		if !st.IsLoaded(id) {
			t.Errorf("essential section %q left the loaded set", id)
		}
	}
}

func TestUnloadReloadRoundTrip(t *testing.T) {
	// Content changes between loads; the reload must carry fresh content.
	var serial int32
	f := fetchFunc(func(ctx context.Context, relPath string) (*fragment.Result, error) {
		n := atomic.AddInt32(&serial, 1)
		return &fragment.Result{HTML: fmt.Sprintf("<p>rev %d</p>", n)}, nil
	})
	m, _, bus := newTestManager(f, device.PolicyFor(device.Desktop))
	defer bus.Close()

	m.LoadSection(context.Background(), "s0")
	first, _ := m.Snapshot("s0")

	m.UnloadSection("s0")
	if got := m.LoadSection(context.Background(), "s0"); got != LoadOK {
		t.Fatalf("reload = %v", got)
	}
	second, _ := m.Snapshot("s0")
	if second.Status != StatusLoaded {
		t.Errorf("status = %q", second.Status)
	}
	if first.HTML == second.HTML {
		t.Errorf("reload reused stale content: %q", second.HTML)
	}
}

func TestEvictionPolicy(t *testing.T) {
	// maxLoadedSections = 3, unloadDistance = 2. Loading a 4th section far
	// from current must evict the single farthest loaded section.
	policy := device.Policy{MaxLoadedSections: 3, UnloadDistance: 2}
	m, st, bus := newTestManager(okFetcher(), policy)
	defer bus.Close()

	st.SetCurrentSection("s5")

	// Document order puts s0..s7 at manifest indexes 3..10; from s5 the
	// distances are s1=4, s4=1, s5=0.
	for _, id := range []string{"s1", "s4", "s5"} {
		if got := m.LoadSection(context.Background(), id); got != LoadOK {
			t.Fatalf("load %s = %v", id, got)
		}
	}
	// Fourth section at distance 5 from current triggers eviction.
	if got := m.LoadSection(context.Background(), "s0"); got != LoadOK {
		t.Fatalf("load s0 = %v", got)
	}

	if st.LoadedCount() > policy.MaxLoadedSections {
		t.Errorf("loaded count %d exceeds cap", st.LoadedCount())
	}
	// s1 is the farthest previously loaded section, so it is evicted; the
	// just-loaded section and the current neighborhood survive.
	if st.IsLoaded("s1") {
		t.Error("s1 (farthest existing) should have been evicted")
	}
	for _, id := range []string{"s0", "s4", "s5"} {
		if !st.IsLoaded(id) {
			t.Errorf("section %s should survive eviction", id)
		}
	}
}

func TestEvictionProtectsVisibleSections(t *testing.T) {
	policy := device.Policy{MaxLoadedSections: 2, UnloadDistance: 2}
	m, st, bus := newTestManager(okFetcher(), policy)
	defer bus.Close()

	st.SetCurrentSection("s0")
	m.LoadSection(context.Background(), "s0")
	m.LoadSection(context.Background(), "s7")

	// s7 is far from current but currently on screen.
	m.SetVisible([]string{"s0", "s7"})
	m.LoadSection(context.Background(), "s3")

	if !st.IsLoaded("s7") {
		t.Error("visible section s7 must not be evicted")
	}
}

func TestEvictionSkipsNearSections(t *testing.T) {
	// Over cap but every candidate is closer than unloadDistance: nothing
	// may be evicted.
	policy := device.Policy{MaxLoadedSections: 2, UnloadDistance: 3}
	m, st, bus := newTestManager(okFetcher(), policy)
	defer bus.Close()

	st.SetCurrentSection("s1")
	for _, id := range []string{"s0", "s1", "s2"} {
		m.LoadSection(context.Background(), id)
	}

	for _, id := range []string{"s0", "s1", "s2"} {
		if !st.IsLoaded(id) {
			t.Errorf("near section %s was evicted", id)
		}
	}
}

func TestEvictionDropsUnknownLoadedIDsFirst(t *testing.T) {
	policy := device.Policy{MaxLoadedSections: 2, UnloadDistance: 2}
	m, st, bus := newTestManager(okFetcher(), policy)
	defer bus.Close()

	st.SetCurrentSection("s0")
	m.LoadSection(context.Background(), "s0")
	m.LoadSection(context.Background(), "s1")
	// An id in the loaded set with no section on the page sorts first.
	st.MarkLoaded("phantom")

	m.ManageLoadedSections("s0")
	if st.IsLoaded("phantom") {
		t.Error("phantom id should be evicted first")
	}
	if !st.IsLoaded("s0") || !st.IsLoaded("s1") {
		t.Error("real sections should survive")
	}
}

func TestVisualizationReadyEvent(t *testing.T) {
	m, _, bus := newTestManager(okFetcher(), device.PolicyFor(device.Desktop))
	defer bus.Close()

	ch := make(chan events.Event, 4)
	bus.Subscribe("test", ch)

	m.LoadSection(context.Background(), "playground")

	var sawViz bool
	for i := 0; i < 2; i++ {
		e := <-ch
		if e.Type == events.VisualizationReady && e.SectionID == "playground" {
			sawViz = true
		}
	}
	if !sawViz {
		t.Error("expected visualization-ready event for playground")
	}
}
