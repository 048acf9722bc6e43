package niri

import "sort"

// WorkspaceState is a workspace plus the mirror of its windows. The
// mirror always agrees with the window map: a window with workspace id
// W appears in exactly the mirror of W.
type WorkspaceState struct {
	Workspace
	Windows map[uint64]Window
}

// State is the bar's mirror of compositor state. It is owned by the UI
// task and mutated only through Apply.
type State struct {
	Workspaces         map[uint64]*WorkspaceState
	Windows            map[uint64]Window
	FocusedWindowID    *uint64
	HoveredWorkspaceID *uint64
}

// NewState returns an empty mirror.
func NewState() *State {
	return &State{
		Workspaces: make(map[uint64]*WorkspaceState),
		Windows:    make(map[uint64]Window),
	}
}

// Apply routes one event stream line into the mirror. Unrecognized
// events leave the state untouched.
func (s *State) Apply(ev Event) {
	switch {
	case ev.WorkspacesChanged != nil:
		s.setWorkspaces(ev.WorkspacesChanged.Workspaces)
	case ev.WindowsChanged != nil:
		s.setWindows(ev.WindowsChanged.Windows)
	case ev.WindowOpenedOrChanged != nil:
		s.upsertWindow(ev.WindowOpenedOrChanged.Window)
	case ev.WindowClosed != nil:
		s.closeWindow(ev.WindowClosed.ID)
	case ev.WorkspaceActivated != nil:
		s.activateWorkspace(ev.WorkspaceActivated.ID)
	case ev.WindowLayoutsChanged != nil:
		s.updateLayouts(ev.WindowLayoutsChanged.Changes)
	case ev.WindowFocusChanged != nil:
		s.FocusedWindowID = ev.WindowFocusChanged.ID
	}
}

func (s *State) setWorkspaces(workspaces []Workspace) {
	s.Workspaces = make(map[uint64]*WorkspaceState, len(workspaces))
	for _, ws := range workspaces {
		s.Workspaces[ws.ID] = &WorkspaceState{Workspace: ws}
	}
	s.rebuildMirrors()
}

func (s *State) setWindows(windows []Window) {
	s.Windows = make(map[uint64]Window, len(windows))
	s.FocusedWindowID = nil
	for _, w := range windows {
		s.Windows[w.ID] = w
		if w.IsFocused && s.FocusedWindowID == nil {
			id := w.ID
			s.FocusedWindowID = &id
		}
	}
	s.rebuildMirrors()
}

func (s *State) upsertWindow(w Window) {
	if old, ok := s.Windows[w.ID]; ok && !sameWorkspace(old.WorkspaceID, w.WorkspaceID) {
		if old.WorkspaceID != nil {
			if ws, ok := s.Workspaces[*old.WorkspaceID]; ok {
				delete(ws.Windows, w.ID)
			}
		}
	}
	s.Windows[w.ID] = w
	if w.WorkspaceID != nil {
		if ws, ok := s.Workspaces[*w.WorkspaceID]; ok {
			if ws.Windows == nil {
				ws.Windows = make(map[uint64]Window)
			}
			ws.Windows[w.ID] = w
		}
	}
	if w.IsFocused {
		id := w.ID
		s.FocusedWindowID = &id
	}
}

func (s *State) closeWindow(id uint64) {
	delete(s.Windows, id)
	for _, ws := range s.Workspaces {
		delete(ws.Windows, id)
	}
	if s.FocusedWindowID != nil && *s.FocusedWindowID == id {
		s.FocusedWindowID = nil
	}
}

func (s *State) activateWorkspace(id uint64) {
	target, ok := s.Workspaces[id]
	if !ok {
		return
	}
	// One active workspace per output.
	for _, ws := range s.Workspaces {
		if sameOutput(ws.Output, target.Output) {
			ws.IsActive = false
		}
	}
	target.IsActive = true
}

func (s *State) updateLayouts(changes []WindowLayoutChange) {
	for _, ch := range changes {
		if w, ok := s.Windows[ch.ID]; ok {
			w.Layout = ch.Layout
			s.Windows[ch.ID] = w
		}
	}
	s.rebuildMirrors()
}

func (s *State) rebuildMirrors() {
	for _, ws := range s.Workspaces {
		ws.Windows = make(map[uint64]Window)
	}
	for _, w := range s.Windows {
		if w.WorkspaceID == nil {
			continue
		}
		if ws, ok := s.Workspaces[*w.WorkspaceID]; ok {
			ws.Windows[w.ID] = w
		}
	}
}

// SortedWorkspaces returns workspaces ordered by output then index, the
// order the bar displays them in.
func (s *State) SortedWorkspaces() []*WorkspaceState {
	out := make([]*WorkspaceState, 0, len(s.Workspaces))
	for _, ws := range s.Workspaces {
		out = append(out, ws)
	}
	sort.Slice(out, func(i, j int) bool {
		oi, oj := deref(out[i].Output), deref(out[j].Output)
		if oi != oj {
			return oi < oj
		}
		return out[i].Index < out[j].Index
	})
	return out
}

// SortedWindows returns a workspace's windows in display order:
// floating first, then tiled by (row, col).
func (ws *WorkspaceState) SortedWindows() []Window {
	out := make([]Window, 0, len(ws.Windows))
	for _, w := range ws.Windows {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		li, lj := LayoutOf(out[i]), LayoutOf(out[j])
		if li != lj {
			return li.Less(lj)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func sameWorkspace(a, b *uint64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameOutput(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
