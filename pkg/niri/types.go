// Package niri maintains a live mirror of niri compositor state over
// its IPC socket and exposes an action channel back to the compositor.
package niri

import (
	"encoding/json"
	"fmt"
)

// Window is a toplevel window as reported by niri.
type Window struct {
	ID          uint64       `json:"id"`
	Title       *string      `json:"title"`
	AppID       *string      `json:"app_id"`
	PID         *int32       `json:"pid"`
	WorkspaceID *uint64      `json:"workspace_id"`
	IsFocused   bool         `json:"is_focused"`
	IsFloating  bool         `json:"is_floating"`
	IsUrgent    bool         `json:"is_urgent"`
	Layout      WindowLayout `json:"layout"`
}

// WindowLayout carries the position-related window properties. Only the
// scrolling-layout position matters to the bar; floating windows have
// it unset.
type WindowLayout struct {
	PosInScrollingLayout *[2]int `json:"pos_in_scrolling_layout"`
}

// Workspace is a niri workspace.
type Workspace struct {
	ID             uint64  `json:"id"`
	Index          uint8   `json:"idx"`
	Name           *string `json:"name"`
	Output         *string `json:"output"`
	IsUrgent       bool    `json:"is_urgent"`
	IsActive       bool    `json:"is_active"`
	IsFocused      bool    `json:"is_focused"`
	ActiveWindowID *uint64 `json:"active_window_id"`
}

// Layout is a window's position class used for ordering windows inside
// a workspace view: floating windows sort before tiled ones, tiled ones
// by (row, column).
type Layout struct {
	Floating bool
	Row      int
	Col      int
}

// LayoutOf classifies a window's layout for sorting.
func LayoutOf(w Window) Layout {
	if pos := w.Layout.PosInScrollingLayout; pos != nil {
		return Layout{Row: pos[0], Col: pos[1]}
	}
	return Layout{Floating: true}
}

// Less orders Floating before any Scrolling, then by (row, col).
func (l Layout) Less(other Layout) bool {
	if l.Floating != other.Floating {
		return l.Floating
	}
	if l.Floating {
		return false
	}
	if l.Row != other.Row {
		return l.Row < other.Row
	}
	return l.Col < other.Col
}

// Event is one line of the niri event stream. The wire encoding is
// externally tagged, so exactly one field is non-nil after decoding;
// events the bar does not care about decode to the zero Event.
type Event struct {
	WorkspacesChanged     *WorkspacesChanged     `json:"WorkspacesChanged,omitempty"`
	WorkspaceActivated    *WorkspaceActivated    `json:"WorkspaceActivated,omitempty"`
	WindowsChanged        *WindowsChanged        `json:"WindowsChanged,omitempty"`
	WindowOpenedOrChanged *WindowOpenedOrChanged `json:"WindowOpenedOrChanged,omitempty"`
	WindowClosed          *WindowClosed          `json:"WindowClosed,omitempty"`
	WindowFocusChanged    *WindowFocusChanged    `json:"WindowFocusChanged,omitempty"`
	WindowLayoutsChanged  *WindowLayoutsChanged  `json:"WindowLayoutsChanged,omitempty"`
}

type WorkspacesChanged struct {
	Workspaces []Workspace `json:"workspaces"`
}

type WorkspaceActivated struct {
	ID      uint64 `json:"id"`
	Focused bool   `json:"focused"`
}

type WindowsChanged struct {
	Windows []Window `json:"windows"`
}

type WindowOpenedOrChanged struct {
	Window Window `json:"window"`
}

type WindowClosed struct {
	ID uint64 `json:"id"`
}

type WindowFocusChanged struct {
	ID *uint64 `json:"id"`
}

type WindowLayoutsChanged struct {
	Changes []WindowLayoutChange `json:"changes"`
}

// WindowLayoutChange is the wire pair [window id, layout].
type WindowLayoutChange struct {
	ID     uint64
	Layout WindowLayout
}

func (c *WindowLayoutChange) UnmarshalJSON(data []byte) error {
	var pair [2]json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if err := json.Unmarshal(pair[0], &c.ID); err != nil {
		return fmt.Errorf("layout change id: %w", err)
	}
	if err := json.Unmarshal(pair[1], &c.Layout); err != nil {
		return fmt.Errorf("layout change layout: %w", err)
	}
	return nil
}

// Action is an outward compositor request. Exactly one field is set.
type Action struct {
	FocusWindow    *FocusWindow    `json:"FocusWindow,omitempty"`
	FocusWorkspace *FocusWorkspace `json:"FocusWorkspace,omitempty"`
	CloseWindow    *CloseWindow    `json:"CloseWindow,omitempty"`
}

type FocusWindow struct {
	ID uint64 `json:"id"`
}

// FocusWorkspace references a workspace by id.
type FocusWorkspace struct {
	Reference WorkspaceReference `json:"reference"`
}

type WorkspaceReference struct {
	ID uint64 `json:"Id"`
}

type CloseWindow struct {
	ID *uint64 `json:"id"`
}

// request is the top-level IPC request frame. EventStream is encoded as
// the bare string "EventStream"; actions are externally tagged.
type request struct {
	Action *Action
}

func (r request) MarshalJSON() ([]byte, error) {
	if r.Action != nil {
		return json.Marshal(map[string]*Action{"Action": r.Action})
	}
	return json.Marshal("EventStream")
}

// reply is the top-level IPC response frame.
type reply struct {
	Ok  json.RawMessage `json:"Ok,omitempty"`
	Err *string         `json:"Err,omitempty"`
}

// handled reports whether the reply is the bare Handled acknowledgment.
func (r reply) handled() bool {
	var tag string
	if err := json.Unmarshal(r.Ok, &tag); err != nil {
		return false
	}
	return tag == "Handled"
}
