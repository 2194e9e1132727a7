// Package audit records every authorization decision for forensic review.
//
// The log is append-only and write-only from the engine's perspective: the
// guard never reads it back to make decisions. One entry is written per
// state mutation or rejection. The confirmation code is secret until
// consumed and must never appear here under any outcome.
package audit

import (
	"context"
	"time"
)

// Actions recorded in the log.
const (
	ActionRequestRejected   = "request_rejected"
	ActionConfirmationReq   = "confirmation_requested"
	ActionApproved          = "approved"
	ActionWrongCode         = "wrong_code"
	ActionCodeExpired       = "code_expired"
	ActionSenderMismatch    = "sender_mismatch"
	ActionBruteForceCancel  = "brute_force_cancelled"
	ActionConfirmRejected   = "confirm_rejected"
	ActionAutoFreeze        = "auto_freeze"
	ActionFreeze            = "freeze"
	ActionUnfreeze          = "unfreeze"
)

// Entry is one audit record. Amounts are decimal strings; Sender is the
// requester identity in "platform:id" form when one was supplied.
type Entry struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Reason    string    `json:"reason,omitempty"`
	To        string    `json:"to,omitempty"`
	Amount    string    `json:"amount,omitempty"`
	Token     string    `json:"token,omitempty"`
	Sender    string    `json:"sender,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Logger appends entries to a destination.
type Logger interface {
	Append(ctx context.Context, entry *Entry) error
}

// Reader serves recent entries for operators (CLI, HTTP, dashboard).
type Reader interface {
	Recent(ctx context.Context, limit int) ([]*Entry, error)
}

// Tee fans one entry out to several loggers (file + archive + realtime
// feed). The first error wins but every logger still sees the entry.
type Tee []Logger

func (t Tee) Append(ctx context.Context, entry *Entry) error {
	var firstErr error
	for _, l := range t {
		if err := l.Append(ctx, entry); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
