package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the txguard MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

var ToolRequestSend = mcp.NewTool("request_send",
	mcp.WithDescription(
		"Request an outbound token transfer. The transfer is NOT executed: "+
			"if it passes the spending policy, a one-time confirmation code is "+
			"sent to the wallet owner through a separate channel. Ask the owner "+
			"for the code, then call confirm_send. The code is never shown to you."),
	mcp.WithString("to",
		mcp.Required(),
		mcp.Description("Recipient address (0x-prefixed hex). Must be on the allowlist.")),
	mcp.WithString("amount",
		mcp.Required(),
		mcp.Description("Amount to send as a decimal string (e.g. '25.00')")),
	mcp.WithString("token",
		mcp.Required(),
		mcp.Description("Token symbol (e.g. 'USDC')")),
)

var ToolConfirmSend = mcp.NewTool("confirm_send",
	mcp.WithDescription(
		"Confirm a pending transfer with the code the wallet owner gave you. "+
			"On success the transfer is approved and counted against the daily limit. "+
			"Three wrong codes cancel the pending transfer."),
	mcp.WithString("code",
		mcp.Required(),
		mcp.Description("The confirmation code provided by the wallet owner")),
)

var ToolWalletStatus = mcp.NewTool("wallet_status",
	mcp.WithDescription(
		"Check the wallet guard status: frozen or active, today's spending total "+
			"against the daily limit, cooldown, and any transfer awaiting confirmation."),
)

var ToolFreezeWallet = mcp.NewTool("freeze_wallet",
	mcp.WithDescription(
		"Freeze the wallet immediately. All transfer requests are rejected until "+
			"the owner unfreezes it. Use this if you suspect compromise or unexpected activity."),
	mcp.WithString("reason",
		mcp.Description("Why the wallet is being frozen (recorded in the audit log)")),
)

var ToolUnfreezeWallet = mcp.NewTool("unfreeze_wallet",
	mcp.WithDescription(
		"Unfreeze the wallet so transfer requests are evaluated again. "+
			"Only do this when the wallet owner has explicitly asked for it."),
)

var ToolListAllowlist = mcp.NewTool("list_allowlist",
	mcp.WithDescription(
		"List the recipient addresses transfers may be sent to. "+
			"Transfers to any other address are rejected. The allowlist itself "+
			"can only be changed by the wallet owner, not through these tools."),
)
