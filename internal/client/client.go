package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/tray-cli/internal/models"
)

const (
	DefaultSocketPath = "/tmp/tray-server.sock"
	DefaultTimeout    = 10 * time.Second
)

// ServerError is an error reported by TrayServer in a response.
type ServerError struct {
	Method  string
	Code    int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error in %s (code %d): %s", e.Method, e.Code, e.Message)
}

// Client is the main TrayServer client
type Client struct {
	conn *Connection

	// connectMu serializes lazy reconnects.
	connectMu sync.Mutex
}

// NewClient creates a new TrayServer client
func NewClient(socketPath string, timeout time.Duration) *Client {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		conn: NewConnection(socketPath, timeout),
	}
}

// Connect establishes connection to the server
func (c *Client) Connect() error {
	c.connectMu.Lock()
	defer c.connectMu.Unlock()
	if c.conn.IsConnected() {
		return nil
	}
	return c.conn.Connect()
}

// Close closes the connection
func (c *Client) Close() error {
	return c.conn.Close()
}

// request is a helper to send a request and get the response
func (c *Client) request(ctx context.Context, method string, params map[string]interface{}) (*models.Response, error) {
	if !c.conn.IsConnected() {
		if err := c.Connect(); err != nil {
			return nil, err
		}
	}

	req := models.NewRequest(uuid.New().String(), method, params)
	return c.conn.SendRequest(ctx, req)
}

// Call sends a generic RPC request with the given method and parameters.
// Server-side failures come back as *ServerError.
func (c *Client) Call(ctx context.Context, method string, params map[string]interface{}) (map[string]interface{}, error) {
	resp, err := c.request(ctx, method, params)
	if err != nil {
		return nil, err
	}

	if resp.IsError() {
		return nil, &ServerError{Method: method, Code: resp.Error.Code, Message: resp.GetError()}
	}

	if resp.Result == nil {
		return map[string]interface{}{}, nil
	}
	return resp.Result, nil
}

// Ping sends a ping request to test connectivity
func (c *Client) Ping(ctx context.Context) (map[string]interface{}, error) {
	return c.Call(ctx, models.MethodPing, nil)
}

// Events connects if needed and subscribes to server push events.
func (c *Client) Events() (<-chan *models.Event, func(), error) {
	if err := c.Connect(); err != nil {
		return nil, nil, err
	}
	ch, cancel := c.conn.Subscribe()
	return ch, cancel, nil
}
