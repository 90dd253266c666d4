// Package clienttest runs an in-process TrayServer stand-in on a unix
// socket for tests.
package clienttest

import (
	"bufio"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/yourusername/tray-cli/internal/models"
)

// HandlerFunc answers one method. A non-nil *models.ErrorInfo is sent back
// as an error response.
type HandlerFunc func(params map[string]interface{}) (map[string]interface{}, *models.ErrorInfo)

// Call records a request the server received.
type Call struct {
	Method string
	Params map[string]interface{}
}

// Server is a scripted TrayServer.
type Server struct {
	SocketPath string

	ln       net.Listener
	mu       sync.Mutex
	handlers map[string]HandlerFunc
	calls    []Call
	conns    []net.Conn
	writeMu  sync.Mutex
}

// NewServer listens on a fresh socket and stops when the test ends.
func NewServer(t *testing.T) *Server {
	t.Helper()
	// Short directory: unix socket paths are length limited.
	dir, err := os.MkdirTemp("", "tray")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "s.sock")
	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatal(err)
	}
	s := &Server{
		SocketPath: path,
		ln:         ln,
		handlers:   make(map[string]HandlerFunc),
	}
	go s.accept()
	t.Cleanup(func() {
		ln.Close()
		s.mu.Lock()
		for _, c := range s.conns {
			c.Close()
		}
		s.mu.Unlock()
		os.RemoveAll(dir)
	})
	return s
}

// Handle installs the handler for method.
func (s *Server) Handle(method string, h HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = h
}

// Result installs a handler that always returns result.
func (s *Server) Result(method string, result map[string]interface{}) {
	s.Handle(method, func(map[string]interface{}) (map[string]interface{}, *models.ErrorInfo) {
		return result, nil
	})
}

// Calls returns the requests received so far.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallsTo returns the requests received for method.
func (s *Server) CallsTo(method string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Push sends an event to every connected client.
func (s *Server) Push(eventType string, data map[string]interface{}) {
	s.mu.Lock()
	conns := append([]net.Conn(nil), s.conns...)
	s.mu.Unlock()
	for _, c := range conns {
		s.send(c, models.NewEvent(eventType, data, time.Now()))
	}
}

// DropConnections closes every client connection.
func (s *Server) DropConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conns {
		c.Close()
	}
	s.conns = nil
}

func (s *Server) accept() {
	for {
		c, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, c)
		s.mu.Unlock()
		go s.serve(c)
	}
}

func (s *Server) serve(c net.Conn) {
	reader := bufio.NewReader(c)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			return
		}
		var env models.MessageEnvelope
		if err := json.Unmarshal(line, &env); err != nil || env.Request == nil {
			continue
		}
		req := env.Request

		s.mu.Lock()
		s.calls = append(s.calls, Call{Method: req.Method, Params: req.Params})
		h, ok := s.handlers[req.Method]
		s.mu.Unlock()

		if !ok {
			s.send(c, models.NewErrorResponse(req.ID, -32601, "method not found: "+req.Method))
			continue
		}
		result, errInfo := h(req.Params)
		if errInfo != nil {
			s.send(c, models.NewErrorResponse(req.ID, errInfo.Code, errInfo.Message))
			continue
		}
		s.send(c, models.NewResponse(req.ID, result))
	}
}

func (s *Server) send(c net.Conn, env *models.MessageEnvelope) {
	data, err := env.Encode()
	if err != nil {
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	c.Write(data)
}
