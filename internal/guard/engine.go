package guard

import (
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"

	"github.com/txguard/txguard/internal/amount"
	"github.com/txguard/txguard/internal/audit"
)

// The engine is the pure decision core: every function here takes the
// loaded snapshot plus the current time, and returns the next state, an
// outcome, and the audit entries describing what happened. Nothing in this
// file touches the filesystem or the clock.

// evalResult is one engine evaluation.
type evalResult struct {
	state   *State         // next state (always non-nil)
	changed bool           // whether state must be persisted
	entries []*audit.Entry // one entry per mutation or rejection
}

func (r *evalResult) record(now time.Time, action, reason string, req *SendRequest) {
	e := &audit.Entry{Action: action, Reason: reason, Timestamp: now.UTC()}
	if req != nil {
		e.To = req.To
		e.Amount = req.Amount
		e.Token = req.Token
		e.Sender = req.Requester.String()
	}
	r.entries = append(r.entries, e)
}

// rollover resets the daily accumulator when the wall-clock date changes.
func rollover(st *State, now time.Time) bool {
	today := now.Format("2006-01-02")
	if st.DailyDate == today {
		return false
	}
	st.DailyDate = today
	st.DailyTotal = "0"
	return true
}

// EvaluateRequest runs the request-phase gate in its fixed order. The
// checks short-circuit: the first failing gate decides the observable
// rejection reason. A non-nil *Error always comes with exactly one audit
// entry for the rejection; auto-freeze additionally mutates state.
func EvaluateRequest(cfg *Config, st *State, req *SendRequest, allowlisted bool, now time.Time, code string) (*evalResult, *RequestOutcome, *Error) {
	r := &evalResult{state: st.Clone()}
	s := r.state

	// 1. Daily rollover.
	if rollover(s, now) {
		r.changed = true
	}

	// 2. Frozen wallet: nothing further runs, the request is not counted
	// toward anomaly tracking.
	if s.Frozen {
		r.record(now, audit.ActionRequestRejected, ErrWalletFrozen.Code, req)
		return r, nil, ErrWalletFrozen
	}

	// 3. Sender identity, when both a list and an identity are present.
	if len(cfg.AuthorizedSenders) > 0 && req.Requester != nil {
		authorized := false
		for i := range cfg.AuthorizedSenders {
			if cfg.AuthorizedSenders[i].Equal(req.Requester) {
				authorized = true
				break
			}
		}
		if !authorized {
			r.record(now, audit.ActionRequestRejected, ErrUnauthorizedSender.Code, req)
			return r, nil, ErrUnauthorizedSender
		}
	}

	// 4. Allowlist.
	if !allowlisted {
		r.record(now, audit.ActionRequestRejected, ErrNotAllowlisted.Code, req)
		return r, nil, ErrNotAllowlisted
	}

	// 5. Per-transaction limit.
	amt, ok := amount.Parse(req.Amount)
	if !ok || amt.Sign() <= 0 {
		r.record(now, audit.ActionRequestRejected, ErrInvalidAmount.Code, req)
		return r, nil, ErrInvalidAmount
	}
	// From here on the amount is carried in canonical six-decimal form so
	// pending state, outcomes, and audit entries all agree with DailyTotal.
	canon := *req
	canon.Amount = amount.Format(amt)
	req = &canon
	if maxTx, ok := amount.Parse(cfg.MaxPerTransaction); ok && amt.Cmp(maxTx) > 0 {
		r.record(now, audit.ActionRequestRejected, ErrExceedsPerTx.Code, req)
		return r, nil, ErrExceedsPerTx
	}

	// 6. Daily limit. An unreadable stored total is a storage fault, not
	// a limit decision: refuse rather than spend on top of garbage.
	if maxDay, ok := amount.Parse(cfg.MaxPerDay); ok {
		spent, ok := amount.Parse(s.DailyTotal)
		if !ok {
			r.record(now, audit.ActionRequestRejected, ErrStateCorrupt.Code, req)
			return r, nil, ErrStateCorrupt
		}
		if new(big.Int).Add(spent, amt).Cmp(maxDay) > 0 {
			r.record(now, audit.ActionRequestRejected, ErrExceedsDaily.Code, req)
			return r, nil, ErrExceedsDaily
		}
	}

	// 7. Inter-transaction cooldown.
	if s.LastTransactionAt != nil && cfg.CooldownSeconds > 0 {
		cooldown := time.Duration(cfg.CooldownSeconds) * time.Second
		if elapsed := now.Sub(*s.LastTransactionAt); elapsed < cooldown {
			gerr := errCooldown(cooldown - elapsed)
			r.record(now, audit.ActionRequestRejected, gerr.Code, req)
			return r, nil, gerr
		}
	}

	// 8. Anomaly window: prune, count this request, freeze on a burst.
	window := time.Duration(cfg.AnomalyWindowSeconds) * time.Second
	cutoff := now.Add(-window)
	kept := s.RecentRequests[:0]
	for _, ts := range s.RecentRequests {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	s.RecentRequests = append(kept, now.UTC())
	r.changed = true
	if cfg.AnomalyMaxRequests > 0 && len(s.RecentRequests) >= cfg.AnomalyMaxRequests {
		frozenAt := now.UTC()
		s.Frozen = true
		s.FrozenAt = &frozenAt
		s.FrozenReason = ErrAnomalyFreeze.Code
		r.record(now, audit.ActionAutoFreeze, ErrAnomalyFreeze.Code, req)
		return r, nil, ErrAnomalyFreeze
	}

	// At most one confirmation may be outstanding: a live pending blocks
	// new requests rather than being silently overwritten. A stale one is
	// cleared here so the wallet cannot wedge itself.
	if s.Pending != nil {
		if now.After(s.Pending.ExpiresAt) {
			expired := &SendRequest{To: s.Pending.To, Amount: s.Pending.Amount, Token: s.Pending.Token, Requester: s.Pending.RequestedBy}
			s.Pending = nil
			r.record(now, audit.ActionCodeExpired, "", expired)
		} else {
			r.record(now, audit.ActionRequestRejected, ErrConfirmationPending.Code, req)
			return r, nil, ErrConfirmationPending
		}
	}

	// 9. All gates passed: issue the one-time code.
	expiresAt := now.Add(time.Duration(cfg.ConfirmationTTLSeconds) * time.Second).UTC()
	s.Pending = &PendingTx{
		Code:        code,
		To:          req.To,
		Amount:      req.Amount,
		Token:       req.Token,
		RequestedBy: req.Requester,
		CreatedAt:   now.UTC(),
		ExpiresAt:   expiresAt,
	}
	r.record(now, audit.ActionConfirmationReq, "", req)

	instructions := fmt.Sprintf(
		"Transfer of %s %s to %s needs human confirmation. Relay the code to the approver out-of-band; it expires at %s.",
		req.Amount, req.Token, req.To, expiresAt.Format(time.RFC3339))
	if hv, ok := amount.Parse(cfg.HighValueThreshold); ok && hv.Sign() > 0 && amt.Cmp(hv) > 0 {
		instructions += " This is a high-value transfer; double-check the recipient."
	}

	out := &RequestOutcome{
		NeedsConfirmation: true,
		Code:              code,
		To:                req.To,
		Amount:            req.Amount,
		Token:             req.Token,
		ExpiresAt:         expiresAt,
		Instructions:      instructions,
	}
	return r, out, nil
}

// EvaluateConfirm runs the confirm phase. States of a pending confirmation:
// NONE -> PENDING -> {APPROVED, EXPIRED, BRUTE_FORCE_CANCELLED}, with a
// self-loop on wrong codes while attempts remain. Every terminal transition
// returns the wallet to NONE.
func EvaluateConfirm(cfg *Config, st *State, code string, confirmer *Identity, now time.Time) (*evalResult, *ConfirmOutcome, *Error) {
	r := &evalResult{state: st.Clone()}
	s := r.state

	if rollover(s, now) {
		r.changed = true
	}

	// 1. Nothing pending: non-fatal, nothing to record.
	if s.Pending == nil {
		return r, nil, ErrNothingPending
	}

	pendingReq := &SendRequest{To: s.Pending.To, Amount: s.Pending.Amount, Token: s.Pending.Token, Requester: s.Pending.RequestedBy}

	// 2. A frozen wallet cannot confirm, but the pending confirmation is
	// left in place: unfreezing restores it if it has not expired.
	if s.Frozen {
		r.record(now, audit.ActionConfirmRejected, ErrWalletFrozen.Code, pendingReq)
		return r, nil, ErrWalletFrozen
	}

	// 3. Absolute expiry.
	if now.After(s.Pending.ExpiresAt) {
		s.Pending = nil
		r.changed = true
		r.record(now, audit.ActionCodeExpired, "", pendingReq)
		return r, nil, ErrCodeExpired
	}

	// 4. The confirmer must be the requester: knowing the code is not
	// enough to hijack someone else's pending transfer.
	if s.Pending.RequestedBy != nil && confirmer != nil && !s.Pending.RequestedBy.Equal(confirmer) {
		e := &audit.Entry{
			Action: audit.ActionSenderMismatch, Reason: ErrSenderMismatch.Code,
			To: s.Pending.To, Amount: s.Pending.Amount, Token: s.Pending.Token,
			Sender: confirmer.String(), Timestamp: now.UTC(),
		}
		r.entries = append(r.entries, e)
		return r, nil, ErrSenderMismatch
	}

	// 5. Code comparison, constant-time.
	if subtle.ConstantTimeCompare([]byte(code), []byte(s.Pending.Code)) != 1 {
		s.Pending.Attempts++
		r.changed = true
		if s.Pending.Attempts >= cfg.MaxCodeAttempts {
			s.Pending = nil
			r.record(now, audit.ActionBruteForceCancel, ErrTooManyAttempts.Code, pendingReq)
			return r, nil, ErrTooManyAttempts
		}
		gerr := errWrongCode(cfg.MaxCodeAttempts - s.Pending.Attempts)
		r.record(now, audit.ActionWrongCode, gerr.Code, pendingReq)
		return r, nil, gerr
	}

	// An unreadable stored total must not be silently replaced by the
	// commit below; the pending confirmation survives so the operator can
	// repair state.json and confirm again.
	if _, ok := amount.Parse(s.DailyTotal); !ok {
		r.record(now, audit.ActionConfirmRejected, ErrStateCorrupt.Code, pendingReq)
		return r, nil, ErrStateCorrupt
	}

	// Commit: the spend is durably recorded before the caller ever talks
	// to the execution tool, so a failed execution cannot be retried into
	// a double-spend at this layer.
	s.DailyTotal = amount.Add(s.DailyTotal, s.Pending.Amount)
	lastAt := now.UTC()
	s.LastTransactionAt = &lastAt
	out := &ConfirmOutcome{Approved: true, To: s.Pending.To, Amount: s.Pending.Amount, Token: s.Pending.Token}
	s.Pending = nil
	r.changed = true
	r.record(now, audit.ActionApproved, "", pendingReq)
	return r, out, nil
}

// EvaluateFreeze applies the kill switch. It never inspects the pending
// confirmation; confirm-phase checks keep a frozen wallet from approving.
func EvaluateFreeze(st *State, reason string, now time.Time) *evalResult {
	r := &evalResult{state: st.Clone(), changed: true}
	s := r.state

	frozenAt := now.UTC()
	s.Frozen = true
	s.FrozenAt = &frozenAt
	if reason == "" {
		reason = "manual_freeze"
	}
	s.FrozenReason = reason
	r.record(now, audit.ActionFreeze, reason, nil)
	return r
}

// EvaluateUnfreeze lifts the kill switch.
func EvaluateUnfreeze(st *State, now time.Time) *evalResult {
	r := &evalResult{state: st.Clone(), changed: true}
	s := r.state

	s.Frozen = false
	s.FrozenAt = nil
	s.FrozenReason = ""
	r.record(now, audit.ActionUnfreeze, "", nil)
	return r
}

// EvaluateStatus builds the read-only summary. Its only permitted mutation
// is the daily rollover.
func EvaluateStatus(cfg *Config, st *State, now time.Time) (*evalResult, *StatusInfo) {
	r := &evalResult{state: st.Clone()}
	s := r.state

	if rollover(s, now) {
		r.changed = true
	}

	info := &StatusInfo{
		Frozen:       s.Frozen,
		FrozenReason: s.FrozenReason,
		FrozenAt:     s.FrozenAt,
		DailyTotal:   s.DailyTotal,
		DailyLimit:   cfg.MaxPerDay,
		DailyDate:    s.DailyDate,
	}
	if s.LastTransactionAt != nil && cfg.CooldownSeconds > 0 {
		cooldown := time.Duration(cfg.CooldownSeconds) * time.Second
		if elapsed := now.Sub(*s.LastTransactionAt); elapsed < cooldown {
			info.CooldownRemaining = int((cooldown - elapsed).Seconds())
		}
	}
	if s.Pending != nil {
		info.Pending = &PendingStatus{
			To:                s.Pending.To,
			Amount:            s.Pending.Amount,
			Token:             s.Pending.Token,
			AttemptsRemaining: cfg.MaxCodeAttempts - s.Pending.Attempts,
			ExpiresAt:         s.Pending.ExpiresAt,
		}
	}
	return r, info
}
