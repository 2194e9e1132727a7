// Package mcpserver exposes the transfer guard as MCP tools so an LLM
// agent can request transfers without ever holding the keys or the
// confirmation code. The guard service is embedded directly rather than
// reached over HTTP: the MCP process and the wallet directory live on
// the same host.
package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/txguard/txguard/internal/guard"
)

// NewMCPServer creates a configured MCP server with all guard tools registered.
func NewMCPServer(svc *guard.Service) *server.MCPServer {
	s := server.NewMCPServer("txguard", "0.1.0")
	h := NewHandlers(svc)

	s.AddTool(ToolRequestSend, h.HandleRequestSend)
	s.AddTool(ToolConfirmSend, h.HandleConfirmSend)
	s.AddTool(ToolWalletStatus, h.HandleWalletStatus)
	s.AddTool(ToolFreezeWallet, h.HandleFreezeWallet)
	s.AddTool(ToolUnfreezeWallet, h.HandleUnfreezeWallet)
	s.AddTool(ToolListAllowlist, h.HandleListAllowlist)

	return s
}
