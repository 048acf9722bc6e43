package niri

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func quiet() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// fakeCompositor accepts one event-stream connection, checks the
// handshake, replies, and writes the given event lines.
func fakeCompositor(t *testing.T, handshakeReply string, events ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "niri.sock")
	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		r := bufio.NewReader(conn)
		line, err := r.ReadString('\n')
		if err != nil || strings.TrimSpace(line) != `"EventStream"` {
			return
		}
		conn.Write([]byte(handshakeReply + "\n"))
		for _, ev := range events {
			conn.Write([]byte(ev + "\n"))
		}
	}()
	return path
}

func TestEventStreamDeliversEvents(t *testing.T) {
	path := fakeCompositor(t, `{"Ok":"Handled"}`,
		`{"WorkspacesChanged":{"workspaces":[{"id":1,"idx":1,"is_active":true}]}}`,
		`{"WindowFocusChanged":{"id":9}}`,
	)
	c := DialPath(path, quiet())

	done := make(chan error, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go func() { done <- c.Run(ctx) }()

	first := <-c.Events()
	if first.WorkspacesChanged == nil || len(first.WorkspacesChanged.Workspaces) != 1 {
		t.Fatalf("first event = %+v, want WorkspacesChanged", first)
	}
	second := <-c.Events()
	if second.WindowFocusChanged == nil || *second.WindowFocusChanged.ID != 9 {
		t.Fatalf("second event = %+v, want WindowFocusChanged 9", second)
	}

	// The server closes after writing; Run must finish and the channel close.
	if err := <-done; err == nil {
		t.Error("expected stream-closed error")
	}
	if _, open := <-c.Events(); open {
		t.Error("events channel should be closed")
	}
	if c.Phase() != Closed {
		t.Errorf("phase = %v, want closed", c.Phase())
	}
}

func TestHandshakeRejectsUnexpectedReply(t *testing.T) {
	path := fakeCompositor(t, `{"Ok":{"Version":"25.01"}}`)
	c := DialPath(path, quiet())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Run(ctx); err == nil {
		t.Fatal("expected handshake failure")
	}
	if c.Phase() != Closed {
		t.Errorf("phase = %v, want closed", c.Phase())
	}
}

func TestSendBeforeReady(t *testing.T) {
	c := DialPath("/nonexistent", quiet())
	if err := c.Send(Action{FocusWindow: &FocusWindow{ID: 1}}); err != ErrNotReady {
		t.Errorf("err = %v, want ErrNotReady", err)
	}
}

func TestActionRequestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "niri.sock")
	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	got := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		line, _ := bufio.NewReader(conn).ReadString('\n')
		got <- strings.TrimSpace(line)
		conn.Write([]byte(`{"Ok":"Handled"}` + "\n"))
	}()

	c := DialPath(path, quiet())
	if err := c.doRequest(Action{FocusWorkspace: &FocusWorkspace{Reference: WorkspaceReference{ID: 3}}}); err != nil {
		t.Fatal(err)
	}

	var frame map[string]Action
	if err := json.Unmarshal([]byte(<-got), &frame); err != nil {
		t.Fatal(err)
	}
	action, ok := frame["Action"]
	if !ok || action.FocusWorkspace == nil || action.FocusWorkspace.Reference.ID != 3 {
		t.Errorf("request frame = %+v, want FocusWorkspace 3", frame)
	}
}

func TestWindowLayoutChangeDecode(t *testing.T) {
	line := `{"WindowLayoutsChanged":{"changes":[[5,{"pos_in_scrolling_layout":[1,2]}]]}}`
	var ev Event
	if err := json.Unmarshal([]byte(line), &ev); err != nil {
		t.Fatal(err)
	}
	if ev.WindowLayoutsChanged == nil || len(ev.WindowLayoutsChanged.Changes) != 1 {
		t.Fatalf("decoded = %+v", ev)
	}
	ch := ev.WindowLayoutsChanged.Changes[0]
	if ch.ID != 5 {
		t.Errorf("id = %d, want 5", ch.ID)
	}
	pos := ch.Layout.PosInScrollingLayout
	if pos == nil || pos[0] != 1 || pos[1] != 2 {
		t.Errorf("layout = %+v, want (1,2)", ch.Layout)
	}
}
