// txguard MCP server - exposes the transfer guard as MCP tools for LLM agents.
//
// Runs over stdio, so all logging goes to stderr. Confirmation codes are
// printed to stderr too: the wallet owner watching the agent's console is
// the out-of-band channel.
package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/txguard/txguard/internal/config"
	"github.com/txguard/txguard/internal/guard"
	"github.com/txguard/txguard/internal/logging"
	"github.com/txguard/txguard/internal/mcpserver"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	svc := guard.NewFileService(cfg.WalletDir, cfg.IntegritySecret,
		guard.WithLogger(logger))

	logger.Info("starting txguard mcp server",
		"wallet_dir", cfg.WalletDir,
		"integrity", cfg.IntegritySecret != "",
	)

	s := mcpserver.NewMCPServer(svc)
	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}
