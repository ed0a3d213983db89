package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/yologdev/yocore/internal/embeddings"
	"github.com/yologdev/yocore/internal/storage"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry is the fixed set of MCP tools, with no per-deployment
// enable/disable knob — it's small and fixed by design.
var toolRegistry = map[string]toolEntry{
	"search_memories": {
		def: searchMemoriesToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSearchMemories },
	},
	"project_context": {
		def: projectContextToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleProjectContext },
	},
	"recent_memories": {
		def: recentMemoriesToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRecentMemories },
	},
	"session_context": {
		def: sessionContextToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSessionContext },
	},
	"save_lifeboat": {
		def: saveLifeboatToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSaveLifeboat },
	},
}

// AllToolNames returns the name of every registered tool.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// NewServer builds an MCP server with the fixed Yocore tool set registered.
func NewServer(backend storage.Backend, engine *embeddings.Engine, version string, log *zap.Logger) *server.MCPServer {
	s := server.NewMCPServer(
		"yocore",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(backend, engine, log)
	for _, entry := range toolRegistry {
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport. Blocks until the
// client closes its end of stdio.
func Run(backend storage.Backend, engine *embeddings.Engine, version string, log *zap.Logger) error {
	s := NewServer(backend, engine, version, log)
	return server.ServeStdio(s)
}
