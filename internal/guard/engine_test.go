package guard

import (
	"strings"
	"testing"
	"time"

	"github.com/txguard/txguard/internal/audit"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.CooldownSeconds = 60
	cfg.ConfirmationTTLSeconds = 300
	cfg.AnomalyWindowSeconds = 60
	cfg.AnomalyMaxRequests = 5
	return cfg
}

func testRequest() *SendRequest {
	return &SendRequest{
		To:        "0x1111111111111111111111111111111111111111",
		Amount:    "25.00",
		Token:     "USDC",
		Requester: &Identity{Platform: "telegram", ID: "1001"},
	}
}

func TestEvaluateRequest_HappyPath(t *testing.T) {
	cfg := testConfig()
	st := NewState(t0)
	req := testRequest()

	res, out, gerr := EvaluateRequest(cfg, st, req, true, t0, "482913")
	if gerr != nil {
		t.Fatalf("EvaluateRequest: %v", gerr)
	}
	if !out.NeedsConfirmation || out.Code != "482913" {
		t.Fatalf("outcome = %+v, want needsConfirmation with code 482913", out)
	}
	if want := t0.Add(300 * time.Second); !out.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", out.ExpiresAt, want)
	}

	if !res.changed {
		t.Error("state should be marked changed")
	}
	p := res.state.Pending
	if p == nil || p.Code != "482913" || p.To != req.To || p.Amount != req.Amount {
		t.Fatalf("pending = %+v", p)
	}
	if p.Attempts != 0 {
		t.Errorf("fresh pending attempts = %d, want 0", p.Attempts)
	}

	if len(res.entries) != 1 || res.entries[0].Action != audit.ActionConfirmationReq {
		t.Fatalf("entries = %+v, want one confirmation_requested", res.entries)
	}
	// The code must never appear in audit material.
	e := res.entries[0]
	for _, field := range []string{e.Action, e.Reason, e.To, e.Amount, e.Token, e.Sender} {
		if strings.Contains(field, "482913") {
			t.Fatalf("confirmation code leaked into audit entry: %+v", e)
		}
	}
}

func TestEvaluateRequest_StateSnapshotUntouched(t *testing.T) {
	st := NewState(t0)
	_, _, gerr := EvaluateRequest(testConfig(), st, testRequest(), true, t0, "111111")
	if gerr != nil {
		t.Fatalf("EvaluateRequest: %v", gerr)
	}
	if st.Pending != nil || len(st.RecentRequests) != 0 {
		t.Fatalf("input state was mutated: %+v", st)
	}
}

func TestEvaluateRequest_FrozenWalletRejectsFirst(t *testing.T) {
	cfg := testConfig()
	st := NewState(t0)
	st.Frozen = true
	st.FrozenReason = "manual_freeze"

	// Everything else about this request is also bad; frozen must win.
	req := testRequest()
	req.Amount = "999999"

	res, _, gerr := EvaluateRequest(cfg, st, req, false, t0, "111111")
	if gerr != ErrWalletFrozen {
		t.Fatalf("gerr = %v, want ErrWalletFrozen", gerr)
	}
	if len(res.state.RecentRequests) != 0 {
		t.Error("frozen-wallet request must not count toward anomaly tracking")
	}
	if len(res.entries) != 1 || res.entries[0].Reason != ErrWalletFrozen.Code {
		t.Fatalf("entries = %+v", res.entries)
	}
}

func TestEvaluateRequest_UnauthorizedSender(t *testing.T) {
	cfg := testConfig()
	cfg.AuthorizedSenders = []Identity{{Platform: "telegram", ID: "1001"}}
	st := NewState(t0)

	req := testRequest()
	req.Requester = &Identity{Platform: "telegram", ID: "9999"}

	_, _, gerr := EvaluateRequest(cfg, st, req, true, t0, "111111")
	if gerr != ErrUnauthorizedSender {
		t.Fatalf("gerr = %v, want ErrUnauthorizedSender", gerr)
	}

	// Same platform is not enough; the ID must match too.
	req.Requester = &Identity{Platform: "discord", ID: "1001"}
	_, _, gerr = EvaluateRequest(cfg, st, req, true, t0, "111111")
	if gerr != ErrUnauthorizedSender {
		t.Fatalf("gerr = %v, want ErrUnauthorizedSender", gerr)
	}

	req.Requester = &Identity{Platform: "telegram", ID: "1001"}
	if _, _, gerr = EvaluateRequest(cfg, st, req, true, t0, "111111"); gerr != nil {
		t.Fatalf("authorized sender rejected: %v", gerr)
	}
}

func TestEvaluateRequest_EmptySenderListAllowsAnyone(t *testing.T) {
	_, _, gerr := EvaluateRequest(testConfig(), NewState(t0), testRequest(), true, t0, "111111")
	if gerr != nil {
		t.Fatalf("gerr = %v, want nil", gerr)
	}
}

func TestEvaluateRequest_NotAllowlisted(t *testing.T) {
	res, _, gerr := EvaluateRequest(testConfig(), NewState(t0), testRequest(), false, t0, "111111")
	if gerr != ErrNotAllowlisted {
		t.Fatalf("gerr = %v, want ErrNotAllowlisted", gerr)
	}
	if len(res.entries) != 1 || res.entries[0].Action != audit.ActionRequestRejected {
		t.Fatalf("entries = %+v", res.entries)
	}
}

func TestEvaluateRequest_InvalidAmount(t *testing.T) {
	for _, bad := range []string{"", "abc", "-5", "0", "1.2.3"} {
		req := testRequest()
		req.Amount = bad
		_, _, gerr := EvaluateRequest(testConfig(), NewState(t0), req, true, t0, "111111")
		if gerr != ErrInvalidAmount {
			t.Errorf("amount %q: gerr = %v, want ErrInvalidAmount", bad, gerr)
		}
	}
}

func TestEvaluateRequest_PerTransactionLimit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPerTransaction = "100.00"

	req := testRequest()
	req.Amount = "100.01"
	_, _, gerr := EvaluateRequest(cfg, NewState(t0), req, true, t0, "111111")
	if gerr != ErrExceedsPerTx {
		t.Fatalf("gerr = %v, want ErrExceedsPerTx", gerr)
	}

	// Exactly at the limit passes.
	req.Amount = "100.00"
	if _, _, gerr = EvaluateRequest(cfg, NewState(t0), req, true, t0, "111111"); gerr != nil {
		t.Fatalf("amount at limit rejected: %v", gerr)
	}
}

func TestEvaluateRequest_DailyLimit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPerDay = "500.00"
	st := NewState(t0)
	st.DailyTotal = "460.000000"

	req := testRequest()
	req.Amount = "40.01"
	_, _, gerr := EvaluateRequest(cfg, st, req, true, t0, "111111")
	if gerr != ErrExceedsDaily {
		t.Fatalf("gerr = %v, want ErrExceedsDaily", gerr)
	}

	// Filling the limit exactly passes.
	req.Amount = "40.00"
	if _, _, gerr = EvaluateRequest(cfg, st, req, true, t0, "111111"); gerr != nil {
		t.Fatalf("amount filling limit rejected: %v", gerr)
	}
}

func TestEvaluateRequest_CorruptDailyTotal(t *testing.T) {
	// With integrity checking disabled a hand-edited state.json can carry
	// a non-numeric total; the gate must reject it, not panic.
	st := NewState(t0)
	st.DailyTotal = "garbage"

	res, out, gerr := EvaluateRequest(testConfig(), st, testRequest(), true, t0, "111111")
	if gerr != ErrStateCorrupt {
		t.Fatalf("gerr = %v, want ErrStateCorrupt", gerr)
	}
	if out != nil {
		t.Fatal("corrupt state must not issue a code")
	}
	if len(res.entries) != 1 || res.entries[0].Reason != ErrStateCorrupt.Code {
		t.Fatalf("entries = %+v", res.entries)
	}
}

func TestEvaluateConfirm_CorruptDailyTotalKeepsPending(t *testing.T) {
	cfg := testConfig()
	st := pendingState(t, cfg, t0, "482913")
	st.DailyTotal = "garbage"

	res, out, gerr := EvaluateConfirm(cfg, st, "482913", nil, t0.Add(10*time.Second))
	if gerr != ErrStateCorrupt {
		t.Fatalf("gerr = %v, want ErrStateCorrupt", gerr)
	}
	if out != nil {
		t.Fatal("corrupt state must not approve")
	}
	if res.state.Pending == nil {
		t.Fatal("pending must survive so the operator can repair state and confirm")
	}
	if res.state.DailyTotal != "garbage" {
		t.Fatalf("DailyTotal = %q, the corrupt value must not be overwritten", res.state.DailyTotal)
	}
}

func TestEvaluateRequest_DailyRolloverResetsTotal(t *testing.T) {
	cfg := testConfig()
	st := NewState(t0)
	st.DailyTotal = "500.000000"

	nextDay := t0.Add(24 * time.Hour)
	res, _, gerr := EvaluateRequest(cfg, st, testRequest(), true, nextDay, "111111")
	if gerr != nil {
		t.Fatalf("request after rollover rejected: %v", gerr)
	}
	if res.state.DailyDate != nextDay.Format("2006-01-02") {
		t.Errorf("DailyDate = %s", res.state.DailyDate)
	}
	if res.state.DailyTotal != "0" {
		t.Errorf("DailyTotal = %s, want 0 after rollover", res.state.DailyTotal)
	}
}

func TestEvaluateRequest_Cooldown(t *testing.T) {
	cfg := testConfig()
	st := NewState(t0)
	last := t0.Add(-30 * time.Second)
	st.LastTransactionAt = &last

	_, _, gerr := EvaluateRequest(cfg, st, testRequest(), true, t0, "111111")
	if gerr == nil || gerr.Code != "cooldown_active" {
		t.Fatalf("gerr = %v, want cooldown_active", gerr)
	}

	// 60s after the last transaction the cooldown has elapsed.
	later := last.Add(60 * time.Second)
	if _, _, gerr = EvaluateRequest(cfg, st, testRequest(), true, later, "111111"); gerr != nil {
		t.Fatalf("request after cooldown rejected: %v", gerr)
	}
}

func TestEvaluateRequest_AnomalyAutoFreeze(t *testing.T) {
	cfg := testConfig()
	st := NewState(t0)

	// Four requests inside the window pass the anomaly gate (they fail
	// later on the pending check, which still counts them).
	var res *evalResult
	for i := 0; i < 4; i++ {
		now := t0.Add(time.Duration(i) * time.Second)
		var gerr *Error
		res, _, gerr = EvaluateRequest(cfg, st, testRequest(), true, now, "111111")
		st = res.state
		if gerr == ErrAnomalyFreeze {
			t.Fatalf("request %d froze early", i+1)
		}
	}

	res, _, gerr := EvaluateRequest(cfg, st, testRequest(), true, t0.Add(4*time.Second), "111111")
	if gerr != ErrAnomalyFreeze {
		t.Fatalf("5th rapid request: gerr = %v, want ErrAnomalyFreeze", gerr)
	}
	s := res.state
	if !s.Frozen || s.FrozenReason != "anomaly_rapid_requests" || s.FrozenAt == nil {
		t.Fatalf("state after auto-freeze = %+v", s)
	}
	if len(res.entries) != 1 || res.entries[0].Action != audit.ActionAutoFreeze {
		t.Fatalf("entries = %+v, want one auto_freeze", res.entries)
	}
}

func TestEvaluateRequest_AnomalyWindowPrunes(t *testing.T) {
	cfg := testConfig()
	st := NewState(t0)
	// Old requests outside the 60s window must not count.
	for i := 0; i < 10; i++ {
		st.RecentRequests = append(st.RecentRequests, t0.Add(-5*time.Minute))
	}

	res, _, gerr := EvaluateRequest(cfg, st, testRequest(), true, t0, "111111")
	if gerr != nil {
		t.Fatalf("gerr = %v, want nil", gerr)
	}
	if got := len(res.state.RecentRequests); got != 1 {
		t.Errorf("RecentRequests = %d entries, want 1 after pruning", got)
	}
}

func TestEvaluateRequest_LivePendingBlocksNew(t *testing.T) {
	cfg := testConfig()
	st := NewState(t0)
	res, _, _ := EvaluateRequest(cfg, st, testRequest(), true, t0, "111111")
	st = res.state

	res2, _, gerr := EvaluateRequest(cfg, st, testRequest(), true, t0.Add(10*time.Second), "222222")
	if gerr != ErrConfirmationPending {
		t.Fatalf("gerr = %v, want ErrConfirmationPending", gerr)
	}
	if res2.state.Pending == nil || res2.state.Pending.Code != "111111" {
		t.Fatal("live pending confirmation was overwritten")
	}
}

func TestEvaluateRequest_ExpiredPendingClearedAndReplaced(t *testing.T) {
	cfg := testConfig()
	st := NewState(t0)
	res, _, _ := EvaluateRequest(cfg, st, testRequest(), true, t0, "111111")
	st = res.state

	afterExpiry := t0.Add(301 * time.Second)
	res2, out, gerr := EvaluateRequest(cfg, st, testRequest(), true, afterExpiry, "222222")
	if gerr != nil {
		t.Fatalf("gerr = %v, want nil", gerr)
	}
	if out.Code != "222222" || res2.state.Pending.Code != "222222" {
		t.Fatalf("new pending = %+v", res2.state.Pending)
	}

	// The stale confirmation's expiry is audited alongside the new request.
	var expired, requested bool
	for _, e := range res2.entries {
		switch e.Action {
		case audit.ActionCodeExpired:
			expired = true
		case audit.ActionConfirmationReq:
			requested = true
		}
	}
	if !expired || !requested {
		t.Fatalf("entries = %+v, want code_expired then confirmation_requested", res2.entries)
	}
}

func TestEvaluateRequest_HighValueInstructions(t *testing.T) {
	cfg := testConfig()
	cfg.HighValueThreshold = "50.00"

	req := testRequest()
	req.Amount = "75.00"
	_, out, gerr := EvaluateRequest(cfg, NewState(t0), req, true, t0, "111111")
	if gerr != nil {
		t.Fatalf("gerr = %v", gerr)
	}
	if !strings.Contains(out.Instructions, "high-value") {
		t.Errorf("instructions missing high-value note: %q", out.Instructions)
	}

	req.Amount = "25.00"
	_, out, _ = EvaluateRequest(cfg, NewState(t0), req, true, t0, "111111")
	if strings.Contains(out.Instructions, "high-value") {
		t.Errorf("low amount got high-value note: %q", out.Instructions)
	}
}

func pendingState(t *testing.T, cfg *Config, now time.Time, code string) *State {
	t.Helper()
	res, _, gerr := EvaluateRequest(cfg, NewState(now), testRequest(), true, now, code)
	if gerr != nil {
		t.Fatalf("setup request: %v", gerr)
	}
	return res.state
}

func TestEvaluateConfirm_NothingPending(t *testing.T) {
	res, _, gerr := EvaluateConfirm(testConfig(), NewState(t0), "123456", nil, t0)
	if gerr != ErrNothingPending {
		t.Fatalf("gerr = %v, want ErrNothingPending", gerr)
	}
	if res.changed || len(res.entries) != 0 {
		t.Fatalf("nothing_pending must not mutate or audit: %+v", res)
	}
}

func TestEvaluateConfirm_HappyPath(t *testing.T) {
	cfg := testConfig()
	st := pendingState(t, cfg, t0, "482913")

	now := t0.Add(30 * time.Second)
	res, out, gerr := EvaluateConfirm(cfg, st, "482913", &Identity{Platform: "telegram", ID: "1001"}, now)
	if gerr != nil {
		t.Fatalf("EvaluateConfirm: %v", gerr)
	}
	if !out.Approved || out.To != testRequest().To || out.Amount != "25.000000" || out.Token != "USDC" {
		t.Fatalf("outcome = %+v", out)
	}

	s := res.state
	if s.Pending != nil {
		t.Error("pending not cleared after approval")
	}
	if s.DailyTotal != "25.000000" {
		t.Errorf("DailyTotal = %s, want 25.000000", s.DailyTotal)
	}
	if s.LastTransactionAt == nil || !s.LastTransactionAt.Equal(now) {
		t.Errorf("LastTransactionAt = %v, want %v", s.LastTransactionAt, now)
	}
	if len(res.entries) != 1 || res.entries[0].Action != audit.ActionApproved {
		t.Fatalf("entries = %+v", res.entries)
	}
}

func TestEvaluateConfirm_FrozenKeepsPending(t *testing.T) {
	cfg := testConfig()
	st := pendingState(t, cfg, t0, "482913")
	frozen := EvaluateFreeze(st, "operator", t0.Add(5*time.Second)).state

	res, _, gerr := EvaluateConfirm(cfg, frozen, "482913", nil, t0.Add(10*time.Second))
	if gerr != ErrWalletFrozen {
		t.Fatalf("gerr = %v, want ErrWalletFrozen", gerr)
	}
	if res.state.Pending == nil {
		t.Fatal("freeze must not consume the pending confirmation")
	}

	// Unfreeze before expiry: the original code still works.
	thawed := EvaluateUnfreeze(res.state, t0.Add(20*time.Second)).state
	_, out, gerr := EvaluateConfirm(cfg, thawed, "482913", &Identity{Platform: "telegram", ID: "1001"}, t0.Add(30*time.Second))
	if gerr != nil || !out.Approved {
		t.Fatalf("confirm after unfreeze: out=%+v err=%v", out, gerr)
	}
}

func TestEvaluateConfirm_Expired(t *testing.T) {
	cfg := testConfig()
	st := pendingState(t, cfg, t0, "482913")

	res, _, gerr := EvaluateConfirm(cfg, st, "482913", nil, t0.Add(301*time.Second))
	if gerr != ErrCodeExpired {
		t.Fatalf("gerr = %v, want ErrCodeExpired", gerr)
	}
	if res.state.Pending != nil {
		t.Error("expired pending not cleared")
	}
	if res.state.DailyTotal != "0" {
		t.Errorf("DailyTotal = %s, expired code must not spend", res.state.DailyTotal)
	}
	if len(res.entries) != 1 || res.entries[0].Action != audit.ActionCodeExpired {
		t.Fatalf("entries = %+v", res.entries)
	}
}

func TestEvaluateConfirm_SenderMismatch(t *testing.T) {
	cfg := testConfig()
	st := pendingState(t, cfg, t0, "482913")

	// Correct code, wrong identity.
	other := &Identity{Platform: "discord", ID: "555"}
	res, _, gerr := EvaluateConfirm(cfg, st, "482913", other, t0.Add(10*time.Second))
	if gerr != ErrSenderMismatch {
		t.Fatalf("gerr = %v, want ErrSenderMismatch", gerr)
	}
	s := res.state
	if s.Pending == nil || s.Pending.Attempts != 0 {
		t.Fatalf("mismatch must not consume attempts: %+v", s.Pending)
	}
	if s.DailyTotal != "0" {
		t.Errorf("DailyTotal = %s, mismatch must not spend", s.DailyTotal)
	}
	if len(res.entries) != 1 || res.entries[0].Action != audit.ActionSenderMismatch {
		t.Fatalf("entries = %+v", res.entries)
	}
	if res.entries[0].Sender != "discord:555" {
		t.Errorf("audit sender = %q, want the mismatching identity", res.entries[0].Sender)
	}

	// The rightful requester can still confirm afterwards.
	_, out, gerr := EvaluateConfirm(cfg, s, "482913", &Identity{Platform: "telegram", ID: "1001"}, t0.Add(20*time.Second))
	if gerr != nil || !out.Approved {
		t.Fatalf("requester confirm after mismatch: out=%+v err=%v", out, gerr)
	}
}

func TestEvaluateConfirm_AnonymousRequestSkipsIdentityCheck(t *testing.T) {
	cfg := testConfig()
	req := testRequest()
	req.Requester = nil
	res, _, gerr := EvaluateRequest(cfg, NewState(t0), req, true, t0, "482913")
	if gerr != nil {
		t.Fatalf("setup: %v", gerr)
	}

	_, out, gerr := EvaluateConfirm(cfg, res.state, "482913", &Identity{Platform: "cli", ID: "op"}, t0.Add(5*time.Second))
	if gerr != nil || !out.Approved {
		t.Fatalf("out=%+v err=%v", out, gerr)
	}
}

func TestEvaluateConfirm_BruteForceCancels(t *testing.T) {
	cfg := testConfig()
	st := pendingState(t, cfg, t0, "482913")
	id := &Identity{Platform: "telegram", ID: "1001"}

	// Two wrong codes: attempts climb, pending survives.
	for i := 1; i <= 2; i++ {
		now := t0.Add(time.Duration(i) * time.Second)
		res, _, gerr := EvaluateConfirm(cfg, st, "000000", id, now)
		st = res.state
		if gerr == nil || gerr.Code != "wrong_code" {
			t.Fatalf("attempt %d: gerr = %v, want wrong_code", i, gerr)
		}
		if st.Pending == nil || st.Pending.Attempts != i {
			t.Fatalf("attempt %d: pending = %+v", i, st.Pending)
		}
	}

	// Third wrong code cancels the transaction outright.
	res, _, gerr := EvaluateConfirm(cfg, st, "000000", id, t0.Add(3*time.Second))
	st = res.state
	if gerr != ErrTooManyAttempts {
		t.Fatalf("3rd wrong code: gerr = %v, want ErrTooManyAttempts", gerr)
	}
	if st.Pending != nil {
		t.Fatal("pending not cancelled after max attempts")
	}
	if len(res.entries) != 1 || res.entries[0].Action != audit.ActionBruteForceCancel {
		t.Fatalf("entries = %+v", res.entries)
	}

	// A fourth attempt, even with the right code, finds nothing pending.
	_, _, gerr = EvaluateConfirm(cfg, st, "482913", id, t0.Add(4*time.Second))
	if gerr != ErrNothingPending {
		t.Fatalf("4th attempt: gerr = %v, want ErrNothingPending", gerr)
	}
	if st.DailyTotal != "0" {
		t.Errorf("DailyTotal = %s, cancelled transaction must not spend", st.DailyTotal)
	}
}

func TestDailyLimitAcrossApprovals(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPerDay = "200.00"
	cfg.CooldownSeconds = 0
	cfg.AnomalyMaxRequests = 0

	st := NewState(t0)
	id := &Identity{Platform: "telegram", ID: "1001"}

	// Five $40 transfers fill the $200 daily limit exactly.
	for i := 0; i < 5; i++ {
		now := t0.Add(time.Duration(i) * 2 * time.Minute)
		req := testRequest()
		req.Amount = "40.00"
		res, out, gerr := EvaluateRequest(cfg, st, req, true, now, "482913")
		if gerr != nil {
			t.Fatalf("request %d: %v", i+1, gerr)
		}
		st = res.state
		res, cout, gerr := EvaluateConfirm(cfg, st, out.Code, id, now.Add(10*time.Second))
		if gerr != nil || !cout.Approved {
			t.Fatalf("confirm %d: out=%+v err=%v", i+1, cout, gerr)
		}
		st = res.state
	}
	if st.DailyTotal != "200.000000" {
		t.Fatalf("DailyTotal = %s, want 200.000000", st.DailyTotal)
	}

	// The sixth transfer of the day is over the limit.
	req := testRequest()
	req.Amount = "40.00"
	_, _, gerr := EvaluateRequest(cfg, st, req, true, t0.Add(time.Hour), "111111")
	if gerr != ErrExceedsDaily {
		t.Fatalf("6th request: gerr = %v, want ErrExceedsDaily", gerr)
	}

	// Next day it passes again.
	if _, _, gerr = EvaluateRequest(cfg, st, req, true, t0.Add(24*time.Hour), "111111"); gerr != nil {
		t.Fatalf("next-day request: %v", gerr)
	}
}

func TestEvaluateFreezeUnfreeze(t *testing.T) {
	res := EvaluateFreeze(NewState(t0), "", t0)
	s := res.state
	if !s.Frozen || s.FrozenReason != "manual_freeze" || s.FrozenAt == nil {
		t.Fatalf("state = %+v", s)
	}
	if len(res.entries) != 1 || res.entries[0].Action != audit.ActionFreeze {
		t.Fatalf("entries = %+v", res.entries)
	}

	res = EvaluateFreeze(s, "suspicious activity", t0.Add(time.Minute))
	if res.state.FrozenReason != "suspicious activity" {
		t.Errorf("re-freeze reason = %q", res.state.FrozenReason)
	}

	res = EvaluateUnfreeze(res.state, t0.Add(2*time.Minute))
	s = res.state
	if s.Frozen || s.FrozenAt != nil || s.FrozenReason != "" {
		t.Fatalf("state after unfreeze = %+v", s)
	}
	if len(res.entries) != 1 || res.entries[0].Action != audit.ActionUnfreeze {
		t.Fatalf("entries = %+v", res.entries)
	}
}

func TestEvaluateStatus(t *testing.T) {
	cfg := testConfig()
	st := pendingState(t, cfg, t0, "482913")
	last := t0.Add(-20 * time.Second)
	st.LastTransactionAt = &last
	st.DailyTotal = "75.000000"

	res, info := EvaluateStatus(cfg, st, t0)
	if res.changed {
		t.Error("same-day status must not require persistence")
	}
	if info.Frozen || info.DailyTotal != "75.000000" || info.DailyLimit != "500.00" {
		t.Fatalf("info = %+v", info)
	}
	if info.CooldownRemaining != 40 {
		t.Errorf("CooldownRemaining = %d, want 40", info.CooldownRemaining)
	}
	if info.Pending == nil || info.Pending.AttemptsRemaining != 3 {
		t.Fatalf("pending = %+v", info.Pending)
	}
	if info.Pending.To != testRequest().To || info.Pending.Amount != "25.000000" {
		t.Fatalf("pending = %+v", info.Pending)
	}

	// Status is read-only with respect to the confirmation: calling it
	// twice changes nothing.
	_, info2 := EvaluateStatus(cfg, res.state, t0)
	if *info2.Pending != *info.Pending {
		t.Fatalf("status not idempotent: %+v vs %+v", info2.Pending, info.Pending)
	}
}

func TestEvaluateStatus_RolloverPersists(t *testing.T) {
	cfg := testConfig()
	st := NewState(t0)
	st.DailyTotal = "120.000000"

	res, info := EvaluateStatus(cfg, st, t0.Add(24*time.Hour))
	if !res.changed {
		t.Error("rollover must be persisted")
	}
	if info.DailyTotal != "0" {
		t.Errorf("DailyTotal = %s, want 0", info.DailyTotal)
	}
}
