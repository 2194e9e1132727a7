// txguard CLI - operate a guarded wallet directory from the terminal.
//
// This is the wallet owner's surface: it works directly against the
// wallet directory, no server required. The agent-facing surfaces are
// cmd/server (HTTP) and cmd/mcp (MCP over stdio).
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/txguard/txguard/internal/audit"
	"github.com/txguard/txguard/internal/config"
	"github.com/txguard/txguard/internal/guard"
	"github.com/txguard/txguard/internal/logging"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" || args[0] == "-h" {
		printUsage()
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "request":
		return cmdRequest(cfg, rest)
	case "confirm":
		return cmdConfirm(cfg, rest)
	case "status":
		return cmdStatus(cfg, rest)
	case "freeze":
		return cmdFreeze(cfg, rest)
	case "unfreeze":
		return cmdUnfreeze(cfg, rest)
	case "allowlist":
		return cmdAllowlist(cfg, rest)
	case "audit":
		return cmdAudit(cfg, rest)
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func printUsage() {
	fmt.Fprint(os.Stderr, `txguard - transaction authorization guard

Usage:
  txguard <command> [flags]

Commands:
  request     Request a transfer (issues a confirmation code)
  confirm     Confirm a pending transfer with its code
  status      Show wallet state, limits and pending confirmation
  freeze      Freeze the wallet (rejects all transfer requests)
  unfreeze    Unfreeze the wallet
  allowlist   Manage allowed recipients (list, add)
  audit       Show recent audit log entries

Environment:
  TXGUARD_DIR     Wallet directory (default txguard-data)
  TXGUARD_SECRET  HMAC key for file integrity checking (empty disables)
`)
}

// newService builds a guard service over the configured wallet directory.
// CLI runs log at warn so command output stays clean.
func newService(cfg *config.Config) *guard.Service {
	logger := logging.New(os.Stderr, "warn", "text")
	return guard.NewFileService(cfg.WalletDir, cfg.IntegritySecret,
		guard.WithLogger(logger))
}

func parseFlags(fs *pflag.FlagSet, args []string) (bool, error) {
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return true, nil
		}
		return false, err
	}
	if len(fs.Args()) > 0 {
		return false, fmt.Errorf("unexpected argument: %s", fs.Args()[0])
	}
	return false, nil
}

func cmdRequest(cfg *config.Config, args []string) error {
	fs := pflag.NewFlagSet("request", pflag.ContinueOnError)
	to := fs.String("to", "", "recipient address (must be allowlisted)")
	amount := fs.String("amount", "", "amount to send, e.g. 25.00")
	token := fs.String("token", "USDC", "token symbol")
	if help, err := parseFlags(fs, args); help || err != nil {
		return err
	}
	if *to == "" || *amount == "" {
		return fmt.Errorf("--to and --amount are required")
	}

	svc := newService(cfg)
	out, err := svc.RequestSend(context.Background(), &guard.SendRequest{
		To:        *to,
		Amount:    *amount,
		Token:     *token,
		Requester: &guard.Identity{Platform: "cli", ID: os.Getenv("USER")},
	})
	if err != nil {
		return err
	}

	fmt.Printf("Request %s accepted.\n", out.RequestID)
	fmt.Printf("  To:      %s\n", out.To)
	fmt.Printf("  Amount:  %s %s\n", out.Amount, out.Token)
	fmt.Printf("  Code:    %s\n", out.Code)
	fmt.Printf("  Expires: %s\n", out.ExpiresAt.Format(time.RFC3339))
	fmt.Println("\nConfirm with: txguard confirm --code <code>")
	return nil
}

func cmdConfirm(cfg *config.Config, args []string) error {
	fs := pflag.NewFlagSet("confirm", pflag.ContinueOnError)
	code := fs.String("code", "", "confirmation code")
	if help, err := parseFlags(fs, args); help || err != nil {
		return err
	}
	if *code == "" {
		return fmt.Errorf("--code is required")
	}

	svc := newService(cfg)
	out, err := svc.ConfirmSend(context.Background(), *code,
		&guard.Identity{Platform: "cli", ID: os.Getenv("USER")})
	if err != nil {
		return err
	}

	fmt.Println("Transfer approved.")
	fmt.Printf("  To:     %s\n", out.To)
	fmt.Printf("  Amount: %s %s\n", out.Amount, out.Token)
	return nil
}

func cmdStatus(cfg *config.Config, args []string) error {
	fs := pflag.NewFlagSet("status", pflag.ContinueOnError)
	if help, err := parseFlags(fs, args); help || err != nil {
		return err
	}

	svc := newService(cfg)
	info, err := svc.Status(context.Background())
	if err != nil {
		return err
	}

	if info.Frozen {
		fmt.Print("Wallet: FROZEN")
		if info.FrozenReason != "" {
			fmt.Printf(" (%s)", info.FrozenReason)
		}
		fmt.Println()
	} else {
		fmt.Println("Wallet: active")
	}
	fmt.Printf("Spent today (%s): %s of %s\n", info.DailyDate, info.DailyTotal, info.DailyLimit)
	if info.CooldownRemaining > 0 {
		fmt.Printf("Cooldown: %ds remaining\n", info.CooldownRemaining)
	}
	if info.Pending != nil {
		fmt.Printf("Pending: %s %s to %s (%d attempts left, expires %s)\n",
			info.Pending.Amount, info.Pending.Token, info.Pending.To,
			info.Pending.AttemptsRemaining, info.Pending.ExpiresAt.Format(time.RFC3339))
	}
	if info.IntegrityEnabled {
		fmt.Println("Integrity checking: enabled")
	} else {
		fmt.Println("Integrity checking: disabled (set TXGUARD_SECRET)")
	}
	return nil
}

func cmdFreeze(cfg *config.Config, args []string) error {
	fs := pflag.NewFlagSet("freeze", pflag.ContinueOnError)
	reason := fs.String("reason", "frozen via cli", "reason recorded in the audit log")
	if help, err := parseFlags(fs, args); help || err != nil {
		return err
	}

	svc := newService(cfg)
	if err := svc.Freeze(context.Background(), *reason); err != nil {
		return err
	}
	fmt.Println("Wallet frozen.")
	return nil
}

func cmdUnfreeze(cfg *config.Config, args []string) error {
	fs := pflag.NewFlagSet("unfreeze", pflag.ContinueOnError)
	if help, err := parseFlags(fs, args); help || err != nil {
		return err
	}

	svc := newService(cfg)
	if err := svc.Unfreeze(context.Background()); err != nil {
		return err
	}
	fmt.Println("Wallet unfrozen.")
	return nil
}

func cmdAllowlist(cfg *config.Config, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: txguard allowlist <list|add> [flags]")
	}
	sub, rest := args[0], args[1:]

	switch sub {
	case "list":
		fs := pflag.NewFlagSet("allowlist list", pflag.ContinueOnError)
		if help, err := parseFlags(fs, rest); help || err != nil {
			return err
		}

		svc := newService(cfg)
		entries, err := svc.Allowlist().List(context.Background())
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("Allowlist is empty.")
			return nil
		}
		for _, e := range entries {
			if e.Label != "" {
				fmt.Printf("%s  %s (added %s)\n", e.Address, e.Label, e.AddedAt.Format("2006-01-02"))
			} else {
				fmt.Printf("%s  (added %s)\n", e.Address, e.AddedAt.Format("2006-01-02"))
			}
		}
		return nil

	case "add":
		fs := pflag.NewFlagSet("allowlist add", pflag.ContinueOnError)
		address := fs.String("address", "", "recipient address to allow")
		label := fs.String("label", "", "optional label")
		if help, err := parseFlags(fs, rest); help || err != nil {
			return err
		}
		if *address == "" {
			return fmt.Errorf("--address is required")
		}

		svc := newService(cfg)
		entry, err := svc.Allowlist().Add(context.Background(), *address, *label)
		if err != nil {
			return err
		}
		fmt.Printf("Added %s to the allowlist.\n", entry.Address)
		return nil

	default:
		return fmt.Errorf("unknown allowlist command %q (want list or add)", sub)
	}
}

func cmdAudit(cfg *config.Config, args []string) error {
	fs := pflag.NewFlagSet("audit", pflag.ContinueOnError)
	limit := fs.Int("limit", 20, "number of entries to show")
	if help, err := parseFlags(fs, args); help || err != nil {
		return err
	}

	reader := audit.NewFileLogger(cfg.WalletDir)
	entries, err := reader.Recent(context.Background(), *limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("Audit log is empty.")
		return nil
	}
	for _, e := range entries {
		line := fmt.Sprintf("%s  %-22s", e.Timestamp.Format(time.RFC3339), e.Action)
		if e.Amount != "" {
			line += fmt.Sprintf("  %s %s to %s", e.Amount, e.Token, e.To)
		}
		if e.Reason != "" {
			line += fmt.Sprintf("  (%s)", e.Reason)
		}
		fmt.Println(line)
	}
	return nil
}
