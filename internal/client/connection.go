package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/yourusername/tray-cli/internal/logging"
	"github.com/yourusername/tray-cli/internal/models"
)

// ErrClosed is returned for requests on a connection that has gone away.
var ErrClosed = errors.New("connection closed")

// eventBuffer is the per-subscriber backlog before events are dropped.
const eventBuffer = 256

// Connection manages the Unix domain socket connection to TrayServer.
// Requests are multiplexed by ID so callers may share one connection;
// server events are fanned out to subscribers.
type Connection struct {
	socketPath string
	timeout    time.Duration

	writeMu sync.Mutex
	conn    net.Conn

	mu      sync.Mutex
	pending map[string]chan *models.Response
	subs    map[int]chan *models.Event
	nextSub int
	done    chan struct{}
	readErr error
}

// NewConnection creates a new connection instance
func NewConnection(socketPath string, timeout time.Duration) *Connection {
	return &Connection{
		socketPath: socketPath,
		timeout:    timeout,
		pending:    make(map[string]chan *models.Response),
		subs:       make(map[int]chan *models.Event),
	}
}

// Connect establishes the Unix domain socket connection
func (c *Connection) Connect() error {
	conn, err := net.Dial("unix", c.socketPath)
	if err != nil {
		return fmt.Errorf("failed to connect to socket %s: %w", c.socketPath, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.done = make(chan struct{})
	c.readErr = nil
	done := c.done
	c.mu.Unlock()

	go c.readLoop(conn, done)
	return nil
}

// Close closes the connection
func (c *Connection) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// IsConnected returns true if the connection is established and still open
func (c *Connection) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return false
	}
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// SendRequest sends a request and waits for its response
func (c *Connection) SendRequest(ctx context.Context, req *models.MessageEnvelope) (*models.Response, error) {
	if req.Request == nil {
		return nil, fmt.Errorf("envelope has no request")
	}

	// Apply timeout if not already set
	if _, ok := ctx.Deadline(); !ok && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	data, err := req.Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	id := req.Request.ID
	respChan := make(chan *models.Response, 1)
	c.mu.Lock()
	if c.conn == nil {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	conn, done := c.conn, c.done
	c.pending[id] = respChan
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.write(conn, data); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("request %s cancelled or timed out: %w", req.Request.Method, ctx.Err())
	case <-done:
		return nil, c.closedErr()
	case resp := <-respChan:
		return resp, nil
	}
}

func (c *Connection) write(conn net.Conn, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.timeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
			return fmt.Errorf("failed to set write deadline: %w", err)
		}
	}
	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("failed to write request: %w", err)
	}
	return nil
}

// Subscribe registers for server events. Events arriving while the buffer
// is full are dropped. The channel is closed when the connection ends or
// the returned cancel function is called.
func (c *Connection) Subscribe() (<-chan *models.Event, func()) {
	ch := make(chan *models.Event, eventBuffer)

	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if _, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(ch)
			}
		})
	}
}

// Done is closed when the current connection's reader stops.
func (c *Connection) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

func (c *Connection) closedErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr != nil {
		return fmt.Errorf("%w: %v", ErrClosed, c.readErr)
	}
	return ErrClosed
}

func (c *Connection) readLoop(conn net.Conn, done chan struct{}) {
	reader := bufio.NewReader(conn)
	var err error
	for {
		var line []byte
		line, err = reader.ReadBytes('\n')
		if err != nil {
			break
		}

		var envelope models.MessageEnvelope
		if jerr := json.Unmarshal(line, &envelope); jerr != nil {
			logging.Warn().Err(jerr).Msg("failed to unmarshal server message")
			continue
		}

		switch envelope.Type {
		case models.TypeResponse:
			if envelope.Response != nil {
				c.deliver(envelope.Response)
			}
		case models.TypeEvent:
			if envelope.Event != nil {
				c.broadcast(envelope.Event)
			}
		default:
			logging.Warn().Str("type", envelope.Type).Msg("unexpected message type from server")
		}
	}

	c.mu.Lock()
	c.readErr = err
	close(done)
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
	c.mu.Unlock()
	conn.Close()
	logging.Debug().Err(err).Msg("server connection closed")
}

func (c *Connection) deliver(resp *models.Response) {
	c.mu.Lock()
	ch, ok := c.pending[resp.ID]
	c.mu.Unlock()
	if !ok {
		logging.Debug().Str("id", resp.ID).Msg("response for unknown request")
		return
	}
	select {
	case ch <- resp:
	default:
		logging.Warn().Str("id", resp.ID).Msg("duplicate response, dropping")
	}
}

func (c *Connection) broadcast(ev *models.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- ev:
		default:
			logging.Warn().Str("eventType", ev.EventType).Msg("event subscriber full, dropping event")
		}
	}
}
