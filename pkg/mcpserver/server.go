// Package mcpserver exposes a tool set over the Model Context Protocol.
package mcpserver

import (
	"context"
	"encoding/json"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/entrhq/domscope/pkg/agent/tools"
	"github.com/entrhq/domscope/pkg/errs"
	"github.com/entrhq/domscope/pkg/logging"
)

// Server serves one tool set.
type Server struct {
	server *mcp.Server
	set    *tools.Set
	logger *logging.Logger
}

// New registers every tool in set on a new MCP server.
func New(name, version string, set *tools.Set, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	s := &Server{
		server: mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil),
		set:    set,
		logger: logger,
	}
	for _, t := range set.All() {
		s.server.AddTool(describe(t), s.handler(t.Name()))
	}
	return s
}

// MCP returns the underlying protocol server.
func (s *Server) MCP() *mcp.Server {
	return s.server
}

// Run serves over stdin/stdout until ctx is done or the client hangs up.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func describe(t tools.Tool) *mcp.Tool {
	tool := &mcp.Tool{
		Name:        t.Name(),
		Description: t.Description(),
		InputSchema: t.Schema(),
	}
	if ro, ok := t.(tools.ReadOnly); ok && ro.IsReadOnly() {
		tool.Annotations = &mcp.ToolAnnotations{ReadOnlyHint: true}
	}
	return tool
}

// handler renders a tool call as one JSON text block. Tool failures are
// results with IsError set, never protocol errors.
func (s *Server) handler(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args json.RawMessage
		if req.Params != nil {
			args = req.Params.Arguments
		}

		start := time.Now()
		out, err := s.set.Call(ctx, name, args)
		elapsed := time.Since(start)

		if err != nil {
			s.logger.Warnf("Tool %s failed after %s: %s: %v", name, elapsed, errs.CodeOf(err), err)
		} else {
			s.logger.Debugf("Tool %s completed in %s", name, elapsed)
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(out)}},
			IsError: err != nil,
		}, nil
	}
}
