package models

import (
	"encoding/json"
	"time"
)

// Envelope types
const (
	TypeRequest  = "request"
	TypeResponse = "response"
	TypeEvent    = "event"
)

// TrayServer methods
const (
	MethodPing                 = "ping"
	MethodMenuBarItems         = "menubar.items"
	MethodWindowBounds         = "window.bounds"
	MethodWindowList           = "window.list"
	MethodActiveMenuBarDisplay = "display.activeMenuBar"
	MethodApplicationMenuFrame = "display.applicationMenuFrame"
	MethodProcessInfo          = "process.info"
	MethodInputState           = "input.state"
	MethodCursorHide           = "cursor.hide"
	MethodCursorShow           = "cursor.show"
	MethodCursorWarp           = "cursor.warp"
	MethodInputSuppress        = "input.suppress"
	MethodEventSource          = "event.source"
	MethodEventPost            = "event.post"
	MethodTapCreate            = "eventTap.create"
	MethodTapEnable            = "eventTap.enable"
	MethodTapDisable           = "eventTap.disable"
	MethodTapDestroy           = "eventTap.destroy"
	MethodAlertShow            = "alert.show"
)

// Server push event types
const (
	EventTapIntercepted   = "eventTap.intercepted"
	EventItemsChanged     = "menubar.itemsChanged"
	EventProcessesChanged = "process.listChanged"
	EventEditorVisible    = "editor.visible"
)

// Error codes returned by TrayServer
const (
	CodeInvalidParams    = -32602
	CodeNoEventSource    = 1001
	CodeEventCreation    = 1002
	CodeWindowNotFound   = 1003
	CodePermissionDenied = 1004
)

// MessageEnvelope is the top-level message structure for all communications
type MessageEnvelope struct {
	Type     string    `json:"type"` // "request", "response", or "event"
	Request  *Request  `json:"request,omitempty"`
	Response *Response `json:"response,omitempty"`
	Event    *Event    `json:"event,omitempty"`
}

// Request represents an RPC request
type Request struct {
	ID     string                 `json:"id"`
	Method string                 `json:"method"`
	Params map[string]interface{} `json:"params"`
}

// Response represents an RPC response
type Response struct {
	ID     string                 `json:"id"`
	Result map[string]interface{} `json:"result,omitempty"`
	Error  *ErrorInfo             `json:"error,omitempty"`
}

// ErrorInfo represents an error in a response
type ErrorInfo struct {
	Code    int                    `json:"code"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// Event represents an asynchronous event from the server
type Event struct {
	EventType string                 `json:"eventType"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewRequest creates a new request envelope
func NewRequest(id, method string, params map[string]interface{}) *MessageEnvelope {
	return &MessageEnvelope{
		Type: TypeRequest,
		Request: &Request{
			ID:     id,
			Method: method,
			Params: params,
		},
	}
}

// NewResponse creates a response envelope
func NewResponse(id string, result map[string]interface{}) *MessageEnvelope {
	return &MessageEnvelope{
		Type:     TypeResponse,
		Response: &Response{ID: id, Result: result},
	}
}

// NewErrorResponse creates a response envelope carrying an error
func NewErrorResponse(id string, code int, message string) *MessageEnvelope {
	return &MessageEnvelope{
		Type:     TypeResponse,
		Response: &Response{ID: id, Error: &ErrorInfo{Code: code, Message: message}},
	}
}

// NewEvent creates an event envelope
func NewEvent(eventType string, data map[string]interface{}, at time.Time) *MessageEnvelope {
	return &MessageEnvelope{
		Type:  TypeEvent,
		Event: &Event{EventType: eventType, Data: data, Timestamp: at},
	}
}

// IsError returns true if the response contains an error
func (r *Response) IsError() bool {
	return r.Error != nil
}

// GetError returns the error message if present
func (r *Response) GetError() string {
	if r.Error != nil {
		return r.Error.Message
	}
	return ""
}

// Encode marshals the envelope as one newline-terminated line.
func (m *MessageEnvelope) Encode() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
