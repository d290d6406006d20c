package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/finrelay/gateway/classify"
	"github.com/finrelay/gateway/config"
	gwerrors "github.com/finrelay/gateway/errors"
)

const maxLineBytes = 1 << 20

// Server drives the JSON-RPC 2.0 line loop: one request per input line,
// one response per output line. It never exits on a malformed line or a
// tool-call failure — those become error responses — only on EOF of the
// input stream or ctx cancellation.
type Server struct {
	router  Dispatcher
	logger  *zap.Logger
	out     io.Writer
	name    string
	version string
}

// NewServer constructs the line-protocol front end over an already-wired
// router.
func NewServer(router Dispatcher, logger *zap.Logger, out io.Writer, name, version string) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{router: router, logger: logger, out: out, name: name, version: version}
}

// Run reads requests from in until ctx is cancelled or in reaches EOF,
// writing one response line per request. It returns nil on orderly EOF.
func (s *Server) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		resp := s.handleLine(ctx, line)
		if err := s.writeResponse(resp); err != nil {
			s.logger.Error("failed writing rpc response", zap.Error(err))
		}
	}
	return scanner.Err()
}

func (s *Server) writeResponse(resp response) error {
	encoded, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	_, err = s.out.Write(append(encoded, '\n'))
	return err
}

// handleLine parses and dispatches one request line, recovering any
// panic raised by a tool handler into the protocol's error envelope —
// the line loop itself must never die from a single bad request.
func (s *Server) handleLine(ctx context.Context, line string) (resp response) {
	var req request
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		return errorResponse(nil, internalErrorCode, "invalid JSON-RPC request")
	}

	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("recovered panic in rpc handler", zap.Any("panic", rec), zap.String("method", req.Method))
			resp = errorResponse(req.ID, internalErrorCode, "internal error")
		}
	}()

	switch req.Method {
	case "initialize":
		return resultResponse(req.ID, initializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities:    map[string]interface{}{"tools": map[string]interface{}{}},
			ServerInfo:      serverInfo{Name: s.name, Version: s.version},
		})
	case "tools/list":
		return resultResponse(req.ID, toolsListResult{Tools: toolDefinitions()})
	case "tools/call":
		return s.handleToolCall(ctx, req)
	default:
		return errorResponse(req.ID, internalErrorCode, "unknown method: "+req.Method)
	}
}

func (s *Server) handleToolCall(ctx context.Context, req request) response {
	requestID := requestIDFrom(req.ID)

	var params toolCallParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			gwErr := gwerrors.New(classify.DataError, requestID, "invalid tools/call params", err)
			s.logger.Debug("tool call rejected", zap.String("requestId", requestID), zap.Error(gwErr))
			return errorResponse(req.ID, internalErrorCode, config.Redact(gwErr.Message))
		}
	}

	entry, ok := toolRegistry[params.Name]
	if !ok {
		gwErr := gwerrors.New(classify.NotFound, requestID, "unknown tool: "+params.Name, nil)
		s.logger.Debug("tool call rejected", zap.String("requestId", requestID), zap.Error(gwErr))
		return errorResponse(req.ID, internalErrorCode, config.Redact(gwErr.Message))
	}

	text, err := entry.handler(ctx, s.router, params.Arguments)
	if err != nil {
		gwErr := gwerrors.New(classify.Classify(err), requestID, err.Error(), err)
		s.logger.Debug("tool call failed",
			zap.String("tool", params.Name), zap.String("requestId", gwErr.RequestID), zap.Error(gwErr))
		return errorResponse(req.ID, internalErrorCode, config.Redact(gwErr.Message))
	}

	return resultResponse(req.ID, toolCallResult{Content: []textContent{{Type: "text", Text: text}}})
}

// requestIDFrom derives a correlation ID from the JSON-RPC request id
// when one was supplied, falling back to a freshly minted one so every
// GatewayError built for this call can be correlated in logs even for
// notification-style requests that omit id.
func requestIDFrom(id json.RawMessage) string {
	trimmed := strings.Trim(strings.TrimSpace(string(id)), `"`)
	if trimmed == "" || trimmed == "null" {
		return gwerrors.NewRequestID()
	}
	return trimmed
}
