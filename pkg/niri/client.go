package niri

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
)

// SocketEnv names the environment variable niri publishes its IPC
// socket path under.
const SocketEnv = "NIRI_SOCKET"

// requestQueueSize bounds pending outward actions.
const requestQueueSize = 32

// Phase is the client connection state.
type Phase int

const (
	Disconnected Phase = iota
	Connecting
	Ready
	Closed
)

func (p Phase) String() string {
	switch p {
	case Connecting:
		return "connecting"
	case Ready:
		return "ready"
	case Closed:
		return "closed"
	}
	return "disconnected"
}

var (
	// ErrNotReady is returned by Send before the event stream handshake
	// completed or after the connection closed.
	ErrNotReady = errors.New("niri: connection not ready")
	// ErrQueueFull is returned by Send when the bounded request queue
	// is at capacity.
	ErrQueueFull = errors.New("niri: request queue full")
)

// Client owns the two IPC connections to niri: a long-lived event
// stream and short-lived request sockets for actions. Events are
// delivered on Events in arrival order. There is no reconnect; once the
// stream closes the last delivered state stands.
type Client struct {
	socketPath string
	log        *slog.Logger

	mu       sync.Mutex
	phase    Phase
	events   chan Event
	requests chan Action
}

// Dial resolves the socket path from NIRI_SOCKET. It does not connect;
// Run does.
func Dial(log *slog.Logger) (*Client, error) {
	path := os.Getenv(SocketEnv)
	if path == "" {
		return nil, fmt.Errorf("niri: %s is not set", SocketEnv)
	}
	return DialPath(path, log), nil
}

// DialPath builds a client for an explicit socket path.
func DialPath(path string, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		socketPath: path,
		log:        log,
		events:     make(chan Event),
		requests:   make(chan Action, requestQueueSize),
	}
}

// Events is the inbound event stream. It is closed when the connection
// ends.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Phase reports the current connection state.
func (c *Client) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *Client) setPhase(p Phase) {
	c.mu.Lock()
	c.phase = p
	c.mu.Unlock()
}

// Send queues an action for delivery. It never blocks; a full queue or
// a dead connection is reported to the caller, which logs and moves on.
func (c *Client) Send(a Action) error {
	if c.Phase() != Ready {
		return ErrNotReady
	}
	select {
	case c.requests <- a:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run connects the event stream, performs the handshake, and pumps
// events until the socket closes or ctx is done. It closes Events on
// return.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.events)
	defer c.setPhase(Closed)

	c.setPhase(Connecting)
	conn, err := net.Dial("unix", c.socketPath)
	if err != nil {
		return fmt.Errorf("niri: connect event stream: %w", err)
	}
	defer conn.Close()

	r := bufio.NewReader(conn)
	if err := c.handshake(conn, r); err != nil {
		return err
	}
	c.setPhase(Ready)

	go c.pumpRequests(ctx)

	// Unblock the blocking read when the consumer cancels.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		line, err := r.ReadBytes('\n')
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("niri: event stream closed: %w", err)
		}
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			c.log.Error("niri: decode event", "error", err)
			continue
		}
		select {
		case c.events <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// handshake sends the EventStream request and requires the Handled
// acknowledgment. Anything else is fatal for this connection.
func (c *Client) handshake(conn net.Conn, r *bufio.Reader) error {
	if err := writeLine(conn, request{}); err != nil {
		return fmt.Errorf("niri: handshake send: %w", err)
	}
	line, err := r.ReadBytes('\n')
	if err != nil {
		return fmt.Errorf("niri: handshake read: %w", err)
	}
	var rep reply
	if err := json.Unmarshal(line, &rep); err != nil {
		return fmt.Errorf("niri: handshake decode: %w", err)
	}
	if rep.Err != nil {
		return fmt.Errorf("niri: handshake refused: %s", *rep.Err)
	}
	if !rep.handled() {
		return fmt.Errorf("niri: unexpected handshake reply %s", line)
	}
	return nil
}

// pumpRequests delivers queued actions over short-lived request
// sockets. Send failures are logged and dropped; the event stream is
// unaffected.
func (c *Client) pumpRequests(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case action := <-c.requests:
			if err := c.doRequest(action); err != nil {
				c.log.Error("niri: send action", "error", err)
			}
		}
	}
}

func (c *Client) doRequest(action Action) error {
	conn, err := net.Dial("unix", c.socketPath)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := writeLine(conn, request{Action: &action}); err != nil {
		return err
	}
	// One reply per request; the content is discarded.
	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return err
	}
	var rep reply
	if err := json.Unmarshal(line, &rep); err != nil {
		return err
	}
	if rep.Err != nil {
		return errors.New(*rep.Err)
	}
	return nil
}

func writeLine(conn net.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = conn.Write(append(data, '\n'))
	return err
}
