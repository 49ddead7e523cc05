package state

import (
	"sort"
	"testing"
)

func TestLoadedSet(t *testing.T) {
	s := NewStore()

	s.MarkLoaded("cover")
	s.MarkLoaded("kinematics")
	if !s.IsLoaded("cover") || !s.IsLoaded("kinematics") {
		t.Error("sections should be loaded")
	}
	if s.LoadedCount() != 2 {
		t.Errorf("count = %d, want 2", s.LoadedCount())
	}

	ids := s.LoadedSections()
	sort.Strings(ids)
	if len(ids) != 2 || ids[0] != "cover" || ids[1] != "kinematics" {
		t.Errorf("loaded = %v", ids)
	}

	s.MarkUnloaded("kinematics")
	if s.IsLoaded("kinematics") {
		t.Error("kinematics should be unloaded")
	}
	// A section is never simultaneously loaded and unloaded.
	if s.LoadedCount() != 1 {
		t.Errorf("count = %d, want 1", s.LoadedCount())
	}
}

func TestBeginPendingIsCheckAndSet(t *testing.T) {
	s := NewStore()

	if !s.BeginPending("cover") {
		t.Fatal("first BeginPending should succeed")
	}
	if s.BeginPending("cover") {
		t.Fatal("second BeginPending should coalesce")
	}
	if !s.IsPending("cover") {
		t.Error("cover should be pending")
	}
	if _, ok := s.PendingSince("cover"); !ok {
		t.Error("PendingSince should report a start time")
	}

	s.EndPending("cover")
	if s.IsPending("cover") {
		t.Error("cover should no longer be pending")
	}
	if !s.BeginPending("cover") {
		t.Error("BeginPending should succeed after EndPending")
	}
}

func TestCurrentSectionNotifies(t *testing.T) {
	s := NewStore()

	var changes []Change
	s.Subscribe(func(c Change) { changes = append(changes, c) })

	s.SetCurrentSection("cover")
	s.SetCurrentSection("cover") // no change, no notification
	s.SetCurrentSection("about")

	if s.CurrentSection() != "about" {
		t.Errorf("current = %q", s.CurrentSection())
	}
	if len(changes) != 2 {
		t.Fatalf("got %d changes, want 2", len(changes))
	}
	if changes[0].Kind != ChangeCurrent || changes[0].SectionID != "cover" {
		t.Errorf("first change = %+v", changes[0])
	}
	if changes[1].SectionID != "about" {
		t.Errorf("second change = %+v", changes[1])
	}
}

func TestLoadedNotifications(t *testing.T) {
	s := NewStore()

	var changes []Change
	s.Subscribe(func(c Change) { changes = append(changes, c) })

	s.MarkLoaded("cover")
	s.MarkLoaded("cover") // idempotent, no second notification
	s.MarkUnloaded("cover")
	s.MarkUnloaded("cover") // idempotent

	if len(changes) != 2 {
		t.Fatalf("got %d changes, want 2: %+v", len(changes), changes)
	}
	if changes[0].Kind != ChangeLoaded || changes[1].Kind != ChangeUnloaded {
		t.Errorf("changes = %+v", changes)
	}
}

func TestInitFlags(t *testing.T) {
	s := NewStore()
	if s.Initialized("content") {
		t.Error("content should not be initialized yet")
	}
	s.SetInitialized("content")
	if !s.Initialized("content") {
		t.Error("content should be initialized")
	}
}

func TestSidebar(t *testing.T) {
	s := NewStore()
	if sb := s.SidebarState(); sb.Width != 280 || sb.Collapsed {
		t.Errorf("default sidebar = %+v", sb)
	}

	var notified bool
	s.Subscribe(func(c Change) {
		if c.Kind == ChangeSidebar {
			notified = true
		}
	})
	s.SetSidebar(Sidebar{Width: 320, Collapsed: true})
	if sb := s.SidebarState(); sb.Width != 320 || !sb.Collapsed {
		t.Errorf("sidebar = %+v", sb)
	}
	if !notified {
		t.Error("sidebar change should notify")
	}
}
