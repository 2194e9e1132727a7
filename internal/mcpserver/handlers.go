package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/txguard/txguard/internal/guard"
)

// Handlers holds the handler functions for each MCP tool.
//
// The confirmation code is deliberately kept out of every tool result.
// It goes to the notify sink (stderr by default, where the wallet owner
// watches the agent run) so the agent has to ask the human for it.
type Handlers struct {
	service *guard.Service
	notify  func(out *guard.RequestOutcome)
}

// HandlerOption configures Handlers.
type HandlerOption func(*Handlers)

// WithNotify overrides where confirmation codes are delivered.
func WithNotify(fn func(out *guard.RequestOutcome)) HandlerOption {
	return func(h *Handlers) {
		h.notify = fn
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(svc *guard.Service, opts ...HandlerOption) *Handlers {
	h := &Handlers{
		service: svc,
		notify:  notifyStderr,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func notifyStderr(out *guard.RequestOutcome) {
	fmt.Fprintf(os.Stderr,
		"\n=== TRANSFER CONFIRMATION REQUIRED ===\n"+
			"  To:     %s\n"+
			"  Amount: %s %s\n"+
			"  Code:   %s\n"+
			"  Expires: %s\n"+
			"Give this code to the agent only if you approve the transfer.\n\n",
		out.To, out.Amount, out.Token, out.Code, out.ExpiresAt.Format(time.RFC3339))
}

// HandleRequestSend runs a transfer request through the guard.
func (h *Handlers) HandleRequestSend(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	to := req.GetString("to", "")
	if to == "" {
		return mcp.NewToolResultError("to is required"), nil
	}
	amount := req.GetString("amount", "")
	if amount == "" {
		return mcp.NewToolResultError("amount is required"), nil
	}
	token := req.GetString("token", "")
	if token == "" {
		return mcp.NewToolResultError("token is required"), nil
	}

	out, err := h.service.RequestSend(ctx, &guard.SendRequest{
		To:        to,
		Amount:    amount,
		Token:     token,
		Requester: &guard.Identity{Platform: "mcp", ID: "agent"},
	})
	if err != nil {
		return mcp.NewToolResultError(rejectionText(err)), nil
	}

	h.notify(out)

	return mcp.NewToolResultText(fmt.Sprintf(
		"Transfer request accepted (%s).\n"+
			"  To:     %s\n"+
			"  Amount: %s %s\n\n"+
			"A confirmation code has been sent to the wallet owner. "+
			"Ask them for the code and call confirm_send with it before %s.",
		out.RequestID, out.To, out.Amount, out.Token,
		out.ExpiresAt.Format(time.RFC3339))), nil
}

// HandleConfirmSend checks a confirmation code against the pending transfer.
func (h *Handlers) HandleConfirmSend(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code := req.GetString("code", "")
	if code == "" {
		return mcp.NewToolResultError("code is required"), nil
	}

	out, err := h.service.ConfirmSend(ctx, code, &guard.Identity{Platform: "mcp", ID: "agent"})
	if err != nil {
		return mcp.NewToolResultError(rejectionText(err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"Transfer approved.\n"+
			"  To:     %s\n"+
			"  Amount: %s %s\n"+
			"The transfer is authorized and counted against today's limit. "+
			"Execute it with your wallet tool now.",
		out.To, out.Amount, out.Token)), nil
}

// HandleWalletStatus reports the guard state.
func (h *Handlers) HandleWalletStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	info, err := h.service.Status(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to read status: %v", err)), nil
	}

	var sb strings.Builder
	if info.Frozen {
		sb.WriteString("Wallet: FROZEN")
		if info.FrozenReason != "" {
			fmt.Fprintf(&sb, " (%s)", info.FrozenReason)
		}
		sb.WriteString("\n")
	} else {
		sb.WriteString("Wallet: active\n")
	}
	fmt.Fprintf(&sb, "Spent today: %s of %s\n", info.DailyTotal, info.DailyLimit)
	if info.CooldownRemaining > 0 {
		fmt.Fprintf(&sb, "Cooldown: %ds until the next request is accepted\n", info.CooldownRemaining)
	}
	if info.Pending != nil {
		fmt.Fprintf(&sb, "Pending confirmation: %s %s to %s (%d attempts left, expires %s)\n",
			info.Pending.Amount, info.Pending.Token, info.Pending.To,
			info.Pending.AttemptsRemaining, info.Pending.ExpiresAt.Format(time.RFC3339))
	}
	if !info.IntegrityEnabled {
		sb.WriteString("Integrity checking: disabled\n")
	}

	return mcp.NewToolResultText(sb.String()), nil
}

// HandleFreezeWallet engages the kill switch.
func (h *Handlers) HandleFreezeWallet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reason := req.GetString("reason", "")
	if reason == "" {
		reason = "frozen via mcp"
	}

	if err := h.service.Freeze(ctx, reason); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Freeze failed: %v", err)), nil
	}

	return mcp.NewToolResultText(
		"Wallet frozen. All transfer requests will be rejected until the owner unfreezes it."), nil
}

// HandleUnfreezeWallet lifts a freeze.
func (h *Handlers) HandleUnfreezeWallet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.service.Unfreeze(ctx); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Unfreeze failed: %v", err)), nil
	}

	return mcp.NewToolResultText("Wallet unfrozen. Transfer requests are evaluated again."), nil
}

// HandleListAllowlist lists permitted recipients.
func (h *Handlers) HandleListAllowlist(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := h.service.Allowlist().List(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to read allowlist: %v", err)), nil
	}

	if len(entries) == 0 {
		return mcp.NewToolResultText(
			"The allowlist is empty. No transfers are possible until the wallet owner adds a recipient."), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d allowed recipient(s):\n", len(entries))
	for _, e := range entries {
		if e.Label != "" {
			fmt.Fprintf(&sb, "  %s (%s)\n", e.Address, e.Label)
		} else {
			fmt.Fprintf(&sb, "  %s\n", e.Address)
		}
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// rejectionText turns a guard error into a message the LLM can act on.
func rejectionText(err error) string {
	var gerr *guard.Error
	if !errors.As(err, &gerr) {
		return fmt.Sprintf("Request failed: %v", err)
	}

	switch gerr.Code {
	case guard.ErrWalletFrozen.Code:
		return "The wallet is frozen. Ask the owner to unfreeze it before requesting transfers."
	case guard.ErrNotAllowlisted.Code:
		return "Rejected: the recipient is not on the allowlist. Only the wallet owner can add addresses."
	case guard.ErrExceedsPerTx.Code, guard.ErrExceedsDaily.Code:
		return "Rejected: " + gerr.Message
	case guard.ErrAnomalyFreeze.Code:
		return "The wallet froze itself: too many transfer requests in a short window. The owner must unfreeze it."
	case guard.ErrConfirmationPending.Code:
		return "A transfer is already awaiting confirmation. Confirm or let it expire before requesting another."
	case guard.ErrNothingPending.Code:
		return "There is no transfer awaiting confirmation."
	case guard.ErrCodeExpired.Code:
		return "The confirmation code expired. Request the transfer again."
	case guard.ErrTooManyAttempts.Code:
		return "Too many wrong codes. The pending transfer was cancelled; request it again."
	default:
		return "Rejected: " + gerr.Message
	}
}
