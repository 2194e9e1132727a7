// Package guard implements the transaction-authorization state machine.
//
// An agent asks to send funds; the guard checks the request against the
// allowlist, sender identity, spending limits and cooldowns, then issues a
// short-lived confirmation code that must come back from a human through an
// out-of-band channel. Only a correct confirmation commits the spend. The
// guard never touches a chain: an approved outcome is handed to an external
// signing tool by the caller.
//
// The decision core (engine.go) is pure: state in, state out, audit
// entries out. All file I/O is pushed to the stores and the Service.
package guard

import (
	"fmt"
	"time"
)

// Identity names a requester, e.g. {Platform: "telegram", ID: "8812004"}.
type Identity struct {
	Platform string `json:"platform"`
	ID       string `json:"id"`
}

// String returns the "platform:id" form used in audit entries.
func (i *Identity) String() string {
	if i == nil {
		return ""
	}
	return i.Platform + ":" + i.ID
}

// Equal reports whether two identities match exactly.
func (i *Identity) Equal(other *Identity) bool {
	if i == nil || other == nil {
		return i == other
	}
	return i.Platform == other.Platform && i.ID == other.ID
}

// PendingTx is the single outstanding confirmation, if any. The code is
// secret until consumed: it lives only here (inside the integrity-protected
// state file) and in the request outcome returned to the caller, never in
// the audit log.
type PendingTx struct {
	Code        string     `json:"code"`
	To          string     `json:"to"`
	Amount      string     `json:"amount"`
	Token       string     `json:"token"`
	RequestedBy *Identity  `json:"requestedBy,omitempty"`
	Attempts    int        `json:"attempts"`
	CreatedAt   time.Time  `json:"createdAt"`
	ExpiresAt   time.Time  `json:"expiresAt"`
}

// State is the persisted guard state for one wallet (state.json).
type State struct {
	Frozen            bool        `json:"frozen"`
	FrozenAt          *time.Time  `json:"frozenAt,omitempty"`
	FrozenReason      string      `json:"frozenReason,omitempty"`
	DailyTotal        string      `json:"dailyTotal"`
	DailyDate         string      `json:"dailyDate"` // YYYY-MM-DD, wall clock
	LastTransactionAt *time.Time  `json:"lastTransactionAt,omitempty"`
	RecentRequests    []time.Time `json:"recentRequests,omitempty"`
	Pending           *PendingTx  `json:"pendingConfirmation,omitempty"`
}

// NewState returns the lazily-created default state for a wallet that has
// never been written.
func NewState(now time.Time) *State {
	return &State{
		DailyTotal: "0",
		DailyDate:  now.Format("2006-01-02"),
	}
}

// Clone returns a deep copy so the engine can mutate freely while the
// caller keeps the loaded snapshot.
func (s *State) Clone() *State {
	cp := *s
	if s.FrozenAt != nil {
		t := *s.FrozenAt
		cp.FrozenAt = &t
	}
	if s.LastTransactionAt != nil {
		t := *s.LastTransactionAt
		cp.LastTransactionAt = &t
	}
	if s.RecentRequests != nil {
		cp.RecentRequests = make([]time.Time, len(s.RecentRequests))
		copy(cp.RecentRequests, s.RecentRequests)
	}
	if s.Pending != nil {
		p := *s.Pending
		if s.Pending.RequestedBy != nil {
			id := *s.Pending.RequestedBy
			p.RequestedBy = &id
		}
		cp.Pending = &p
	}
	return &cp
}

// Config is the per-wallet guard policy (config.json), merged over
// DefaultConfig on load and immutable for the duration of one call.
type Config struct {
	MaxPerTransaction      string     `json:"maxPerTransaction"`
	MaxPerDay              string     `json:"maxPerDay"`
	HighValueThreshold     string     `json:"highValueThreshold"` // reserved for stricter handling
	CooldownSeconds        int        `json:"cooldownSeconds"`
	ConfirmationTTLSeconds int        `json:"confirmationTTLSeconds"`
	ConfirmationCodeLength int        `json:"confirmationCodeLength"`
	MaxCodeAttempts        int        `json:"maxCodeAttempts"`
	AnomalyWindowSeconds   int        `json:"anomalyWindowSeconds"`
	AnomalyMaxRequests     int        `json:"anomalyMaxRequests"`
	AuthorizedSenders      []Identity `json:"authorizedSenders,omitempty"`
}

// DefaultConfig returns the documented defaults. config.json overrides
// individual fields.
func DefaultConfig() *Config {
	return &Config{
		MaxPerTransaction:      "100.00",
		MaxPerDay:              "500.00",
		HighValueThreshold:     "50.00",
		CooldownSeconds:        60,
		ConfirmationTTLSeconds: 300,
		ConfirmationCodeLength: 6,
		MaxCodeAttempts:        3,
		AnomalyWindowSeconds:   60,
		AnomalyMaxRequests:     5,
	}
}

// SendRequest is one transfer-authorization request.
type SendRequest struct {
	To        string    `json:"to" binding:"required"`
	Amount    string    `json:"amount" binding:"required"`
	Token     string    `json:"token" binding:"required"`
	Requester *Identity `json:"requester,omitempty"`
}

// RequestOutcome is returned when a request passes every gate. The code
// reaches the caller only: it is their job to deliver it to a human
// through an out-of-band channel.
type RequestOutcome struct {
	RequestID         string    `json:"requestId"`
	NeedsConfirmation bool      `json:"needsConfirmation"`
	Code              string    `json:"code"`
	To                string    `json:"to"`
	Amount            string    `json:"amount"`
	Token             string    `json:"token"`
	ExpiresAt         time.Time `json:"expiresAt"`
	Instructions      string    `json:"instructions"`
}

// ConfirmOutcome is returned when a confirmation commits. The caller hands
// these transfer details to the external execution mechanism.
type ConfirmOutcome struct {
	Approved bool   `json:"approved"`
	To       string `json:"to"`
	Amount   string `json:"amount"`
	Token    string `json:"token"`
}

// PendingStatus is the operator view of an outstanding confirmation. It
// deliberately omits the code.
type PendingStatus struct {
	To                string    `json:"to"`
	Amount            string    `json:"amount"`
	Token             string    `json:"token"`
	AttemptsRemaining int       `json:"attemptsRemaining"`
	ExpiresAt         time.Time `json:"expiresAt"`
}

// StatusInfo is the read-only wallet summary.
type StatusInfo struct {
	Frozen            bool           `json:"frozen"`
	FrozenReason      string         `json:"frozenReason,omitempty"`
	FrozenAt          *time.Time     `json:"frozenAt,omitempty"`
	DailyTotal        string         `json:"dailyTotal"`
	DailyLimit        string         `json:"dailyLimit"`
	DailyDate         string         `json:"dailyDate"`
	CooldownRemaining int            `json:"cooldownRemainingSeconds"`
	Pending           *PendingStatus `json:"pending,omitempty"`
	IntegrityEnabled  bool           `json:"integrityEnabled"`
}

// Error is a policy rejection: a structured, non-fatal outcome the caller
// can act on. Storage tampering is never an Error; it surfaces as
// integrity.ErrTampered so operators can tell the two apart.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

// Policy rejection reasons, in the order the request gate checks them.
var (
	ErrWalletFrozen        = &Error{Code: "wallet_frozen", Message: "Wallet is frozen; no transfers until unfrozen"}
	ErrUnauthorizedSender  = &Error{Code: "unauthorized_sender", Message: "Requester is not an authorized sender"}
	ErrNotAllowlisted      = &Error{Code: "recipient_not_allowlisted", Message: "Recipient address is not on the allowlist"}
	ErrExceedsPerTx        = &Error{Code: "exceeds_per_tx", Message: "Amount exceeds the per-transaction limit"}
	ErrExceedsDaily        = &Error{Code: "exceeds_daily", Message: "Amount would exceed the daily spending limit"}
	ErrAnomalyFreeze       = &Error{Code: "anomaly_rapid_requests", Message: "Too many requests in a short window; wallet frozen automatically"}
	ErrConfirmationPending = &Error{Code: "confirmation_pending", Message: "A confirmation is already pending; confirm or let it expire first"}
	ErrNothingPending      = &Error{Code: "nothing_pending", Message: "No transaction is pending confirmation"}
	ErrCodeExpired         = &Error{Code: "code_expired", Message: "Confirmation code has expired; request the transfer again"}
	ErrSenderMismatch      = &Error{Code: "sender_mismatch", Message: "Confirmation must come from the identity that requested the transfer"}
	ErrTooManyAttempts     = &Error{Code: "too_many_attempts", Message: "Too many wrong codes; transaction cancelled"}
	ErrInvalidAmount       = &Error{Code: "invalid_amount", Message: "Amount must be a positive decimal"}
)

// ErrStateCorrupt reports an unreadable value in the persisted state. It
// is a storage fault rather than a policy rejection: with integrity
// checking disabled (no secret) a hand-edited state.json can carry a
// non-numeric daily total, and the engine refuses to spend on top of it.
var ErrStateCorrupt = &Error{Code: "state_corrupt", Message: "Persisted daily total is unreadable; inspect state.json"}

// Codes for rejections whose message carries runtime values. The
// constructors below build the full *Error.
const (
	CodeCooldownActive = "cooldown_active"
	CodeWrongCode      = "wrong_code"
)

func errCooldown(remaining time.Duration) *Error {
	secs := int(remaining.Seconds())
	if remaining > time.Duration(secs)*time.Second {
		secs++
	}
	return &Error{
		Code:    CodeCooldownActive,
		Message: fmt.Sprintf("Cooldown active; wait %ds before the next transfer", secs),
	}
}

func errWrongCode(remaining int) *Error {
	return &Error{
		Code:    CodeWrongCode,
		Message: fmt.Sprintf("Wrong confirmation code; %d attempt(s) remaining", remaining),
	}
}
