package niri

import (
	"testing"
)

func u64(v uint64) *uint64 { return &v }
func str(s string) *string { return &s }

func window(id uint64, wsID *uint64, focused bool) Window {
	return Window{ID: id, WorkspaceID: wsID, IsFocused: focused}
}

func checkMirrors(t *testing.T, s *State) {
	t.Helper()
	for id, w := range s.Windows {
		if w.WorkspaceID == nil {
			continue
		}
		for wsID, ws := range s.Workspaces {
			_, present := ws.Windows[id]
			want := wsID == *w.WorkspaceID
			if present != want {
				t.Errorf("window %d mirror presence in ws %d = %v, want %v", id, wsID, present, want)
			}
		}
	}
	for wsID, ws := range s.Workspaces {
		for id := range ws.Windows {
			w, ok := s.Windows[id]
			if !ok {
				t.Errorf("ws %d mirrors unknown window %d", wsID, id)
				continue
			}
			if w.WorkspaceID == nil || *w.WorkspaceID != wsID {
				t.Errorf("ws %d mirrors window %d that belongs elsewhere", wsID, id)
			}
		}
	}
}

func TestFocusClearsWhenFocusedWindowCloses(t *testing.T) {
	s := NewState()
	s.Apply(Event{WorkspacesChanged: &WorkspacesChanged{Workspaces: []Workspace{{ID: 1}}}})
	s.Apply(Event{WindowsChanged: &WindowsChanged{Windows: []Window{
		window(1, u64(1), false),
		window(2, u64(1), true),
		window(3, u64(1), false),
	}}})

	if s.FocusedWindowID == nil || *s.FocusedWindowID != 2 {
		t.Fatalf("focused = %v, want 2", s.FocusedWindowID)
	}

	s.Apply(Event{WindowClosed: &WindowClosed{ID: 2}})

	if s.FocusedWindowID != nil {
		t.Errorf("focused = %v, want nil after close", *s.FocusedWindowID)
	}
	if _, ok := s.Windows[1]; !ok {
		t.Error("window 1 should survive")
	}
	if _, ok := s.Windows[3]; !ok {
		t.Error("window 3 should survive")
	}
	checkMirrors(t, s)
}

func TestWindowMovesBetweenWorkspaces(t *testing.T) {
	s := NewState()
	s.Apply(Event{WorkspacesChanged: &WorkspacesChanged{Workspaces: []Workspace{{ID: 1}, {ID: 2}}}})
	s.Apply(Event{WindowsChanged: &WindowsChanged{Windows: []Window{window(7, u64(1), false)}}})

	s.Apply(Event{WindowOpenedOrChanged: &WindowOpenedOrChanged{Window: window(7, u64(2), true)}})

	if _, ok := s.Workspaces[1].Windows[7]; ok {
		t.Error("window 7 still mirrored on old workspace")
	}
	if _, ok := s.Workspaces[2].Windows[7]; !ok {
		t.Error("window 7 not mirrored on new workspace")
	}
	if s.FocusedWindowID == nil || *s.FocusedWindowID != 7 {
		t.Errorf("focused = %v, want 7", s.FocusedWindowID)
	}
	checkMirrors(t, s)
}

func TestWorkspaceActivationIsPerOutput(t *testing.T) {
	s := NewState()
	s.Apply(Event{WorkspacesChanged: &WorkspacesChanged{Workspaces: []Workspace{
		{ID: 1, Output: str("DP-1"), IsActive: true},
		{ID: 2, Output: str("DP-1")},
		{ID: 3, Output: str("HDMI-1"), IsActive: true},
	}}})

	s.Apply(Event{WorkspaceActivated: &WorkspaceActivated{ID: 2}})

	if s.Workspaces[1].IsActive {
		t.Error("ws 1 should be deactivated")
	}
	if !s.Workspaces[2].IsActive {
		t.Error("ws 2 should be active")
	}
	if !s.Workspaces[3].IsActive {
		t.Error("ws 3 on another output should stay active")
	}

	active := map[string]int{}
	for _, ws := range s.Workspaces {
		if ws.IsActive {
			active[deref(ws.Output)]++
		}
	}
	for output, n := range active {
		if n > 1 {
			t.Errorf("output %s has %d active workspaces", output, n)
		}
	}
}

func TestLayoutOrdering(t *testing.T) {
	floating := Layout{Floating: true}
	cases := []struct {
		a, b Layout
		less bool
	}{
		{floating, Layout{Row: 0, Col: 0}, true},
		{Layout{Row: 0, Col: 0}, floating, false},
		{floating, floating, false},
		{Layout{Row: 1, Col: 2}, Layout{Row: 1, Col: 3}, true},
		{Layout{Row: 1, Col: 3}, Layout{Row: 2, Col: 0}, true},
		{Layout{Row: 2, Col: 0}, Layout{Row: 1, Col: 9}, false},
	}
	for _, tc := range cases {
		if got := tc.a.Less(tc.b); got != tc.less {
			t.Errorf("%+v < %+v = %v, want %v", tc.a, tc.b, got, tc.less)
		}
	}
}

func TestSortedWindowsByLayout(t *testing.T) {
	pos := func(row, col int) WindowLayout {
		p := [2]int{row, col}
		return WindowLayout{PosInScrollingLayout: &p}
	}
	s := NewState()
	s.Apply(Event{WorkspacesChanged: &WorkspacesChanged{Workspaces: []Workspace{{ID: 1}}}})
	s.Apply(Event{WindowsChanged: &WindowsChanged{Windows: []Window{
		{ID: 10, WorkspaceID: u64(1), Layout: pos(2, 1)},
		{ID: 11, WorkspaceID: u64(1)},
		{ID: 12, WorkspaceID: u64(1), Layout: pos(1, 1)},
	}}})

	got := s.Workspaces[1].SortedWindows()
	want := []uint64{11, 12, 10}
	for i, w := range got {
		if w.ID != want[i] {
			t.Fatalf("order[%d] = %d, want %d", i, w.ID, want[i])
		}
	}
}

func TestLayoutsChangedReordersMirror(t *testing.T) {
	pos := func(row, col int) WindowLayout {
		p := [2]int{row, col}
		return WindowLayout{PosInScrollingLayout: &p}
	}
	s := NewState()
	s.Apply(Event{WorkspacesChanged: &WorkspacesChanged{Workspaces: []Workspace{{ID: 1}}}})
	s.Apply(Event{WindowsChanged: &WindowsChanged{Windows: []Window{
		{ID: 1, WorkspaceID: u64(1), Layout: pos(1, 1)},
		{ID: 2, WorkspaceID: u64(1), Layout: pos(1, 2)},
	}}})

	s.Apply(Event{WindowLayoutsChanged: &WindowLayoutsChanged{Changes: []WindowLayoutChange{
		{ID: 1, Layout: pos(1, 3)},
	}}})

	got := s.Workspaces[1].SortedWindows()
	if got[0].ID != 2 || got[1].ID != 1 {
		t.Errorf("order = [%d %d], want [2 1]", got[0].ID, got[1].ID)
	}
	checkMirrors(t, s)
}

func TestUnknownEventIsIgnored(t *testing.T) {
	s := NewState()
	s.Apply(Event{WorkspacesChanged: &WorkspacesChanged{Workspaces: []Workspace{{ID: 1}}}})
	before := len(s.Workspaces)

	s.Apply(Event{}) // an event variant the bar does not track

	if len(s.Workspaces) != before {
		t.Error("unknown event mutated state")
	}
}
