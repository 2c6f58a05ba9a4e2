package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"vaultmcp/internal/logging"
	"vaultmcp/internal/tools"

	"github.com/google/uuid"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
)

// Dispatcher turns one JSON-RPC request line into at most one response line.
// It owns the session state: tools/list and tools/call are refused until a
// successful initialize, and initialize is accepted only once.
type Dispatcher struct {
	mu          sync.Mutex
	initialized bool
	registry    *tools.Registry
	serverInfo  mcpgo.Implementation
	logger      *logging.AppLogger
}

// NewDispatcher creates a Dispatcher in the uninitialized state.
// A nil registry is replaced by an empty one.
func NewDispatcher(name, version string, registry *tools.Registry, logger *logging.AppLogger) *Dispatcher {
	if registry == nil {
		registry = tools.NewRegistry()
	}
	if logger == nil {
		logger = logging.GetDefault()
	}
	return &Dispatcher{
		registry:   registry,
		serverInfo: mcpgo.Implementation{Name: name, Version: version},
		logger:     logger,
	}
}

// Register adds a tool to the dispatcher's registry.
func (d *Dispatcher) Register(tool tools.Tool) error {
	return d.registry.Register(tool)
}

// Initialized reports whether the session has completed initialize.
func (d *Dispatcher) Initialized() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.initialized
}

// request is a decoded envelope. id is nil when the member was absent.
type request struct {
	id     json.RawMessage
	method string
	params json.RawMessage
}

// isNotification reports whether no response may be sent: the id is absent
// and the method is a notification. Other requests without an id are still
// answered, with a null id.
func (r request) isNotification() bool {
	if r.id != nil {
		return false
	}
	return r.method == methodInitialized || strings.HasPrefix(r.method, notificationPrefix)
}

// Dispatch handles a single JSON document and returns the encoded response.
// It returns nil for notifications, which never get a response.
func (d *Dispatcher) Dispatch(ctx context.Context, line []byte) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()

	start := time.Now()
	log := d.logger.With("request_id", uuid.NewString())
	defer log.LogPerformance("mcp.Dispatch", start)

	if !json.Valid(line) {
		log.Warn("Rejected unparsable request", "bytes", len(line))
		return d.encode(log, errorResponse(nil, newRPCError(mcpgo.PARSE_ERROR, errParseFailure)))
	}

	req, rpcErr := parseEnvelope(line)
	if rpcErr != nil {
		log.Warn("Rejected malformed request", "error", rpcErr.Message)
		return d.encode(log, errorResponse(req.id, rpcErr))
	}

	log = log.With("method", req.method)
	log.Debug("Handling request", "id", string(req.id))

	result, err := d.route(ctx, log, req)

	if req.isNotification() {
		if err != nil {
			log.Debug("Notification failed", "error", err)
		}
		return nil
	}

	if err != nil {
		return d.encode(log, errorResponse(req.id, mapError(err)))
	}
	return d.encode(log, Response{JSONRPC: mcpgo.JSONRPC_VERSION, ID: req.id, Result: result})
}

// parseEnvelope checks the JSON-RPC envelope of a syntactically valid document.
func parseEnvelope(line []byte) (request, *RPCError) {
	var req request

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(line, &fields); err != nil || fields == nil {
		return req, newRPCError(mcpgo.INVALID_REQUEST, errInvalidRequestEnvelope+": request must be a JSON object")
	}

	if rawID, ok := fields["id"]; ok {
		if !isScalarID(rawID) {
			return req, newRPCError(mcpgo.INVALID_REQUEST, errInvalidRequestEnvelope+": id must be a string, number or null")
		}
		req.id = bytes.TrimSpace(rawID)
	}

	// A missing jsonrpc member is tolerated; a wrong one is not
	if rawVersion, ok := fields["jsonrpc"]; ok {
		var version string
		if err := json.Unmarshal(rawVersion, &version); err != nil || version != mcpgo.JSONRPC_VERSION {
			return req, newRPCError(mcpgo.INVALID_REQUEST, errInvalidRequestEnvelope+": jsonrpc must be \"2.0\"")
		}
	}

	if err := json.Unmarshal(fields["method"], &req.method); err != nil || req.method == "" {
		return req, newRPCError(mcpgo.INVALID_REQUEST, errInvalidRequestEnvelope+": method is required")
	}

	req.params = fields["params"]
	return req, nil
}

func isScalarID(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false
	}
	switch c := raw[0]; {
	case c == '"':
		return true
	case c == '-' || (c >= '0' && c <= '9'):
		return true
	case bytes.Equal(raw, []byte("null")):
		return true
	default:
		return false
	}
}

func (d *Dispatcher) route(ctx context.Context, log *logging.AppLogger, req request) (any, error) {
	switch req.method {
	case methodInitialize:
		return d.handleInitialize(log, req.params)
	case methodInitialized, methodNotificationInitialized:
		return struct{}{}, nil
	case methodToolsList:
		return d.handleToolsList()
	case methodToolsCall:
		return d.handleToolsCall(ctx, log, req.params)
	default:
		return nil, newRPCError(mcpgo.METHOD_NOT_FOUND, fmt.Sprintf("%s: %s", errMethodNotFound, req.method))
	}
}

func (d *Dispatcher) handleInitialize(log *logging.AppLogger, raw json.RawMessage) (any, error) {
	if d.initialized {
		return nil, newRPCError(mcpgo.INTERNAL_ERROR, errServerAlreadyInitialized)
	}

	params, err := decodeInitializeParams(raw)
	if err != nil {
		return nil, err
	}

	d.initialized = true
	log.LogStateTransition("session", "uninitialized", "initialized")
	log.Info("Client initialized",
		"client", params.ClientInfo.Name,
		"clientVersion", params.ClientInfo.Version,
		"protocolVersion", params.ProtocolVersion,
	)

	return InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities:    ServerCapabilities{Tools: ToolsCapability{ListChanged: false}},
		ServerInfo:      d.serverInfo,
	}, nil
}

// decodeInitializeParams requires protocolVersion, capabilities and clientInfo
// with string name and version.
func decodeInitializeParams(raw json.RawMessage) (*InitializeParams, error) {
	if isAbsent(raw) {
		return nil, invalidParams(errMissingInitializeParams, nil)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, invalidParams(errInvalidInitializeParams, errors.New("params must be an object"))
	}

	var params InitializeParams
	if err := decodeString(fields["protocolVersion"], &params.ProtocolVersion); err != nil || params.ProtocolVersion == "" {
		return nil, invalidParams(errInvalidInitializeParams, errors.New("protocolVersion must be a non-empty string"))
	}
	if err := json.Unmarshal(fields["capabilities"], &params.Capabilities); err != nil || params.Capabilities == nil {
		return nil, invalidParams(errInvalidInitializeParams, errors.New("capabilities must be an object"))
	}

	var client map[string]json.RawMessage
	if err := json.Unmarshal(fields["clientInfo"], &client); err != nil || client == nil {
		return nil, invalidParams(errInvalidInitializeParams, errors.New("clientInfo must be an object"))
	}
	if err := decodeString(client["name"], &params.ClientInfo.Name); err != nil {
		return nil, invalidParams(errInvalidInitializeParams, errors.New("clientInfo.name must be a string"))
	}
	if err := decodeString(client["version"], &params.ClientInfo.Version); err != nil {
		return nil, invalidParams(errInvalidInitializeParams, errors.New("clientInfo.version must be a string"))
	}

	return &params, nil
}

func (d *Dispatcher) handleToolsList() (any, error) {
	if !d.initialized {
		return nil, newRPCError(mcpgo.INTERNAL_ERROR, errServerNotInitialized)
	}
	return ListToolsResult{Tools: d.registry.List()}, nil
}

// handleToolsCall executes a tool. Failures of the tool itself, including an
// unknown tool name, come back as a successful response flagged isError.
func (d *Dispatcher) handleToolsCall(ctx context.Context, log *logging.AppLogger, raw json.RawMessage) (any, error) {
	if !d.initialized {
		return nil, newRPCError(mcpgo.INTERNAL_ERROR, errServerNotInitialized)
	}

	params, err := decodeCallToolParams(raw)
	if err != nil {
		return nil, err
	}

	result, err := d.registry.Execute(ctx, params.Name, params.Arguments)
	if err != nil {
		log.Warn("Tool call failed", "tool", params.Name, "error", err)
		return textResult("Error: "+err.Error(), true), nil
	}

	text, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Error("Failed to encode tool result", "tool", params.Name, "error", err)
		return textResult("Error: failed to encode tool result: "+err.Error(), true), nil
	}

	log.Debug("Tool call succeeded", "tool", params.Name)
	return textResult(string(text), false), nil
}

func decodeCallToolParams(raw json.RawMessage) (*CallToolParams, error) {
	if isAbsent(raw) {
		return nil, invalidParams(errMissingCallToolParams, nil)
	}

	var params CallToolParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, invalidParams(errInvalidCallToolParams, err)
	}
	if params.Name == "" {
		return nil, invalidParams(errInvalidCallToolParams, errors.New("name is required"))
	}

	args := bytes.TrimSpace(params.Arguments)
	if len(args) > 0 && args[0] != '{' && !bytes.Equal(args, []byte("null")) {
		return nil, invalidParams(errInvalidCallToolParams, errors.New("arguments must be an object"))
	}

	return &params, nil
}

// decodeString decodes a required JSON string; absent and null are errors.
func decodeString(raw json.RawMessage, dst *string) error {
	if isAbsent(raw) {
		return errors.New("missing string")
	}
	return json.Unmarshal(raw, dst)
}

func isAbsent(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// mapError converts a handler error into a JSON-RPC error object.
func mapError(err error) *RPCError {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	return newRPCError(mcpgo.INTERNAL_ERROR, err.Error())
}

func errorResponse(id json.RawMessage, rpcErr *RPCError) Response {
	return Response{JSONRPC: mcpgo.JSONRPC_VERSION, ID: id, Error: rpcErr}
}

func (d *Dispatcher) encode(log *logging.AppLogger, resp Response) []byte {
	data, err := json.Marshal(resp)
	if err != nil {
		log.Error("Failed to encode response", "error", err)
		data, _ = json.Marshal(errorResponse(resp.ID, newRPCError(mcpgo.INTERNAL_ERROR, "failed to encode response")))
	}
	return data
}
