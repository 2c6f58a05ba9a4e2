// Package mcp implements the Model Context Protocol session for vaultmcp.
//
// A Dispatcher handles one JSON-RPC 2.0 request at a time and keeps the
// session state. The session starts uninitialized; a successful initialize
// moves it to initialized for the rest of the process, and only then are
// tools/list and tools/call served.
//
// # Methods
//
//   - initialize: negotiates the session and returns server info and capabilities
//   - initialized, notifications/initialized: client acknowledgement, answered with {}
//   - tools/list: descriptors of every registered tool
//   - tools/call: runs a tool by name
//
// # Errors
//
// Protocol problems are JSON-RPC errors: -32700 for unparsable input, -32600
// for a malformed envelope, -32601 for an unknown method, -32602 for bad
// params and -32603 for session errors such as calling tools before
// initialize. A tool that fails (including an unknown tool name or a
// rejected vault write) produces a normal result with isError set and the
// message in its text content.
//
// Notifications (initialized or notifications/* without an id) are processed
// but never answered. Any other request without an id is answered with a
// null id.
//
// # Usage
//
// The server is normally launched by an MCP client as a subprocess:
//
//	vaultmcp --vault-path ~/Documents/vault
//
// It reads requests from stdin, one per line, and writes responses to stdout
// until stdin is closed. Logs go to stderr and the optional log file.
//
// # References
//
// - MCP Specification: https://modelcontextprotocol.io/specification
// - mcp-go Library: https://github.com/mark3labs/mcp-go
package mcp
