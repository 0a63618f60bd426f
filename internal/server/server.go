package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ironsheep/detkit/internal/config"
	"github.com/ironsheep/detkit/internal/logging"
	"github.com/ironsheep/detkit/internal/visualize"
)

// Version is reported in the initialize handshake.
var Version = "0.1.0"

// Server answers MCP requests with detkit tools.
type Server struct {
	cache *visualize.ImageCache
	cfg   *config.Config
	log   logging.Logger
}

// MCPRequest is one JSON-RPC 2.0 request or notification.
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse carries either Result or Error.
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError is the JSON-RPC error object.
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// protocolVersion is the MCP revision the server speaks.
const protocolVersion = "2024-11-05"

// JSON-RPC error codes used by the server.
const (
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeToolFailed     = -32000
)

// New creates a server. A nil cfg uses config.Default(); a nil log discards.
func New(cfg *config.Config, log logging.Logger) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Server{
		cache: visualize.NewImageCache(),
		cfg:   cfg,
		log:   logging.OrDiscard(log),
	}
}

// Run serves stdin/stdout until stdin closes.
func (s *Server) Run() error {
	return s.Serve(os.Stdin, os.Stdout)
}

// maxRequestSize bounds a single request line.
const maxRequestSize = 1 << 20

// Serve answers newline-delimited JSON-RPC requests read from r, writing one
// response line per request to w, until r is exhausted. Lines that are not
// valid JSON are logged and dropped.
func (s *Server) Serve(r io.Reader, w io.Writer) error {
	in := bufio.NewScanner(r)
	in.Buffer(make([]byte, 0, 64*1024), maxRequestSize)
	out := json.NewEncoder(w)

	for in.Scan() {
		resp := s.dispatch(in.Bytes())
		if resp == nil {
			continue
		}
		if err := out.Encode(resp); err != nil {
			s.log.Errorf("cannot write response %v: %v", resp.ID, err)
		}
	}
	if err := in.Err(); err != nil {
		return fmt.Errorf("reading requests: %w", err)
	}
	return nil
}

func (s *Server) dispatch(line []byte) *MCPResponse {
	if len(bytes.TrimSpace(line)) == 0 {
		return nil
	}
	var req MCPRequest
	if err := json.Unmarshal(line, &req); err != nil {
		s.log.Warnf("dropping malformed request: %v", err)
		return nil
	}
	s.log.Debugf("request %v: %s", req.ID, req.Method)
	return s.handleRequest(&req)
}

// handleRequest routes a request by method. Notifications get no response.
func (s *Server) handleRequest(req *MCPRequest) *MCPResponse {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return s.errorResponse(req.ID, codeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method), "")
	}
}

func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": protocolVersion,
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    "detkit",
				"version": Version,
			},
		},
	}
}
