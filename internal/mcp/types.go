package mcp

import (
	"encoding/json"
	"fmt"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
)

// ProtocolVersion is the MCP revision this server speaks.
const ProtocolVersion = "2024-11-05"

const (
	methodInitialize              = string(mcpgo.MethodInitialize)
	methodInitialized             = "initialized"
	methodNotificationInitialized = "notifications/initialized"
	notificationPrefix            = "notifications/"
	methodToolsList               = string(mcpgo.MethodToolsList)
	methodToolsCall               = string(mcpgo.MethodToolsCall)
)

const (
	errServerNotInitialized     = "Server not initialized"
	errServerAlreadyInitialized = "server already initialized"
	errMissingInitializeParams  = "Missing initialize parameters"
	errInvalidInitializeParams  = "Invalid initialize parameters"
	errMissingCallToolParams    = "Missing call tool parameters"
	errInvalidCallToolParams    = "Invalid call tool parameters"
	errInvalidRequestEnvelope   = "Invalid Request"
	errParseFailure             = "Parse error"
	errMethodNotFound           = "Method not found"
)

// Response is a JSON-RPC 2.0 response envelope. Exactly one of Result and
// Error is set. ID holds the raw id of the request; nil encodes as null.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is the error member of a JSON-RPC response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

func newRPCError(code int, message string) *RPCError {
	return &RPCError{Code: code, Message: message}
}

func invalidParams(message string, cause error) *RPCError {
	if cause != nil {
		message = fmt.Sprintf("%s: %v", message, cause)
	}
	return newRPCError(mcpgo.INVALID_PARAMS, message)
}

// InitializeParams are the fields a client must send with initialize.
type InitializeParams struct {
	ProtocolVersion string               `json:"protocolVersion"`
	Capabilities    map[string]any       `json:"capabilities"`
	ClientInfo      mcpgo.Implementation `json:"clientInfo"`
}

// InitializeResult is returned from a successful initialize.
type InitializeResult struct {
	ProtocolVersion string               `json:"protocolVersion"`
	Capabilities    ServerCapabilities   `json:"capabilities"`
	ServerInfo      mcpgo.Implementation `json:"serverInfo"`
}

// ServerCapabilities advertises what this server supports.
type ServerCapabilities struct {
	Logging struct{}        `json:"logging"`
	Tools   ToolsCapability `json:"tools"`
}

type ToolsCapability struct {
	ListChanged bool `json:"listChanged"`
}

// ListToolsResult is the result of tools/list.
type ListToolsResult struct {
	Tools []mcpgo.Tool `json:"tools"`
}

// CallToolParams are the parameters of tools/call.
type CallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// CallToolResult is the result of tools/call. IsError is always encoded so
// clients can rely on its presence.
type CallToolResult struct {
	Content []mcpgo.TextContent `json:"content"`
	IsError bool                `json:"isError"`
}

func textResult(text string, isError bool) CallToolResult {
	return CallToolResult{
		Content: []mcpgo.TextContent{mcpgo.NewTextContent(text)},
		IsError: isError,
	}
}
