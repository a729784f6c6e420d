// Package mcp implements the note service's session-routed protocol
// endpoint: JSON-RPC 2.0 over HTTP with per-session state tracked via
// the Mcp-Session-Id header.
package mcp

import (
	"encoding/json"
	"time"
)

// JSONRPCRequest represents a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"` // Always "2.0"
	ID      interface{}     `json:"id"`      // Request ID (string, number, or null)
	Method  string          `json:"method"`  // Protocol method
	Params  json.RawMessage `json:"params"`  // Method-specific parameters
}

// JSONRPCResponse represents a successful JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result"`
}

// JSONRPCError represents an error JSON-RPC 2.0 response.
type JSONRPCError struct {
	JSONRPC string       `json:"jsonrpc"`
	ID      interface{}  `json:"id"`
	Error   *ErrorDetail `json:"error"`
}

// ErrorDetail carries the error code, message and debugging context.
type ErrorDetail struct {
	Code    int                    `json:"code"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// JSON-RPC 2.0 standard error codes.
const (
	ParseError     = -32700 // Invalid JSON
	InvalidRequest = -32600 // Invalid Request object
	MethodNotFound = -32601 // Method doesn't exist
	InvalidParams  = -32602 // Invalid method params
	InternalError  = -32603 // Internal server error
)

// Application-specific error codes (reserved range: -32000 to -32099).
const (
	// SessionError rejects requests with an unknown or missing session
	// identifier on methods that require one.
	SessionError = -32000
)

// Session pairs a client-visible session identifier with its tenant
// binding. The tenant is fixed at session creation and immutable for
// the session's lifetime; later per-request hints never redirect an
// existing session's data.
//
// Lifecycle: created during the initialize handshake, destroyed on
// explicit close or transport teardown. A closed identifier is never
// reused for a different session.
type Session struct {
	ID              string     `json:"id"`
	Tenant          string     `json:"tenant"`
	TenantGenerated bool       `json:"tenant_generated"`
	ProtocolVersion string     `json:"protocol_version"`
	ClientInfo      ClientInfo `json:"client_info"`
	CreatedAt       time.Time  `json:"created_at"`
	LastAccessedAt  time.Time  `json:"last_accessed_at"`
}

// ClientInfo contains information about the connected client.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeParams contains parameters for the initialize method.
// Tenant is a notesd extension: an optional explicit tenant hint bound
// to the new session.
type InitializeParams struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    map[string]interface{} `json:"capabilities"`
	ClientInfo      ClientInfo             `json:"clientInfo"`
	Tenant          string                 `json:"tenant,omitempty"`
}

// InitializeResult contains the result of the initialize method.
// Tenant reports the tenant bound to the session so callers learn about
// synthesized identifiers.
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      ServerInfo         `json:"serverInfo"`
	Tenant          string             `json:"tenant"`
	TenantGenerated bool               `json:"tenantGenerated,omitempty"`
}

// ServerCapabilities describes what the server supports.
type ServerCapabilities struct {
	Tools   map[string]interface{} `json:"tools"`
	Logging map[string]interface{} `json:"logging"`
}

// ServerInfo contains information about the server.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ToolsCallParams contains parameters for the tools/call method.
type ToolsCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Tool describes one callable tool for tools/list.
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// ToolsListResult contains the result of the tools/list method.
type ToolsListResult struct {
	Tools []Tool `json:"tools"`
}

// ToolResult is the result of a tools/call invocation.
type ToolResult struct {
	Content []ToolContent `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

// ToolContent is one content block in a tool result: text, or a
// base64-encoded image.
type ToolContent struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Data     string `json:"data,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

// TextContent builds a text content block.
func TextContent(text string) ToolContent {
	return ToolContent{Type: "text", Text: text}
}

// ImageContent builds a base64 PNG content block.
func ImageContent(b64 string) ToolContent {
	return ToolContent{Type: "image", Data: b64, MimeType: "image/png"}
}

// SetLevelParams contains parameters for logging/setLevel.
type SetLevelParams struct {
	Level string `json:"level"`
}

// LevelResult is the result of logging/getLevel and logging/setLevel.
type LevelResult struct {
	Level string `json:"level"`
}
