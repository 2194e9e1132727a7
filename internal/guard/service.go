package guard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/txguard/txguard/internal/allowlist"
	"github.com/txguard/txguard/internal/audit"
	"github.com/txguard/txguard/internal/idgen"
	"github.com/txguard/txguard/internal/integrity"
	"github.com/txguard/txguard/internal/logging"
	"github.com/txguard/txguard/internal/metrics"
	"github.com/txguard/txguard/internal/syncutil"
	"github.com/txguard/txguard/internal/traces"
)

// Service wires the pure engine to storage, audit, metrics and logging.
// Each public operation is one full read-check-mutate-write-audit cycle;
// the decision is durably recorded before the call returns.
//
// Operations on the same wallet are serialized by a context-aware mutex
// so concurrent HTTP and MCP callers cannot interleave load and commit.
// Cross-process exclusivity is still the operator's problem: run one
// guard process per wallet directory.
type Service struct {
	config    ConfigLoader
	states    StateStore
	allowlist allowlist.Store
	audit     audit.Logger

	locks   *syncutil.KeyedMutex
	lockKey string

	integrityOn bool
	logger      *slog.Logger
	now         func() time.Time
	newCode     func(length int) string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithCodeGenerator overrides confirmation-code generation, for tests.
func WithCodeGenerator(gen func(length int) string) ServiceOption {
	return func(s *Service) { s.newCode = gen }
}

// NewService creates a guard service over explicit collaborators.
func NewService(config ConfigLoader, states StateStore, allow allowlist.Store, auditLog audit.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		config:    config,
		states:    states,
		allowlist: allow,
		audit:     auditLog,
		locks:     syncutil.NewKeyedMutex(),
		lockKey:   "wallet",
		logger:    logging.Default(),
		now:       time.Now,
		newCode:   idgen.Code,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFileService creates a service over one wallet directory with the
// standard file layout: config.json, allowlist.json, state.json,
// transactions.log and .signatures. An empty secret disables integrity
// checking.
func NewFileService(dir, secret string, opts ...ServiceOption) *Service {
	checker := integrity.New(dir, secret)
	s := NewService(
		NewFileConfigLoader(dir, checker),
		NewFileStateStore(dir, checker),
		allowlist.NewFileStore(dir, checker),
		audit.NewFileLogger(dir),
		opts...,
	)
	s.integrityOn = checker.Enabled()
	s.lockKey = dir
	return s
}

// Allowlist exposes the allowlist store for operator surfaces (CLI, HTTP,
// MCP). The engine itself only ever reads it.
func (s *Service) Allowlist() allowlist.Store {
	return s.allowlist
}

// AddAuditLogger tees decisions into an extra destination (archive,
// realtime feed) on top of the primary log.
func (s *Service) AddAuditLogger(extra audit.Logger) {
	s.audit = audit.Tee{s.audit, extra}
}

// RequestSend validates a transfer request and, when every gate passes,
// issues a one-time confirmation code. Policy rejections come back as
// *Error; tampered storage comes back wrapping integrity.ErrTampered.
func (s *Service) RequestSend(ctx context.Context, req *SendRequest) (*RequestOutcome, error) {
	ctx, span := traces.StartSpan(ctx, "guard.RequestSend",
		traces.Recipient(req.To), traces.Amount(req.Amount), traces.Token(req.Token))
	defer span.End()

	unlock, err := s.locks.Lock(ctx, s.lockKey)
	if err != nil {
		return nil, err
	}
	defer unlock()

	cfg, err := s.config.Load(ctx)
	if err != nil {
		return nil, s.loadFailed(ctx, ConfigFileName, err)
	}
	st, err := s.states.Load(ctx)
	if err != nil {
		return nil, s.loadFailed(ctx, StateFileName, err)
	}
	allowed, err := s.allowlist.Contains(ctx, req.To)
	if err != nil {
		return nil, s.loadFailed(ctx, allowlist.FileName, err)
	}

	code := s.newCode(cfg.ConfirmationCodeLength)
	res, out, gerr := EvaluateRequest(cfg, st, req, allowed, s.now(), code)
	if err := s.commit(ctx, res); err != nil {
		return nil, err
	}

	if gerr != nil {
		span.SetAttributes(traces.Outcome(gerr.Code))
		metrics.RequestsTotal.WithLabelValues(gerr.Code).Inc()
		if gerr == ErrAnomalyFreeze {
			metrics.FreezesTotal.WithLabelValues("anomaly").Inc()
		}
		logging.L(ctx).Warn("transfer request rejected",
			"reason", gerr.Code, "to", req.To, "amount", req.Amount, "token", req.Token)
		return nil, gerr
	}

	span.SetAttributes(traces.Outcome("confirmation_requested"))
	out.RequestID = idgen.WithPrefix("req_")
	metrics.RequestsTotal.WithLabelValues("confirmation_requested").Inc()
	metrics.PendingConfirmation.Set(1)
	logging.L(ctx).Info("confirmation requested",
		"request_id", out.RequestID, "to", out.To, "amount", out.Amount, "token", out.Token,
		"expires_at", out.ExpiresAt)
	return out, nil
}

// ConfirmSend validates a confirmation code against the pending transfer
// and commits the spend on success. The returned outcome carries the
// transfer details for the external execution tool.
func (s *Service) ConfirmSend(ctx context.Context, code string, confirmer *Identity) (*ConfirmOutcome, error) {
	ctx, span := traces.StartSpan(ctx, "guard.ConfirmSend")
	defer span.End()

	unlock, err := s.locks.Lock(ctx, s.lockKey)
	if err != nil {
		return nil, err
	}
	defer unlock()

	cfg, err := s.config.Load(ctx)
	if err != nil {
		return nil, s.loadFailed(ctx, ConfigFileName, err)
	}
	st, err := s.states.Load(ctx)
	if err != nil {
		return nil, s.loadFailed(ctx, StateFileName, err)
	}

	res, out, gerr := EvaluateConfirm(cfg, st, code, confirmer, s.now())
	if err := s.commit(ctx, res); err != nil {
		return nil, err
	}

	if gerr != nil {
		span.SetAttributes(traces.Outcome(gerr.Code))
		metrics.ConfirmationsTotal.WithLabelValues(gerr.Code).Inc()
		if res.state.Pending == nil {
			metrics.PendingConfirmation.Set(0)
		}
		logging.L(ctx).Warn("confirmation rejected", "reason", gerr.Code)
		return nil, gerr
	}

	span.SetAttributes(traces.Outcome("approved"), traces.Recipient(out.To), traces.Amount(out.Amount))
	metrics.ConfirmationsTotal.WithLabelValues("approved").Inc()
	metrics.PendingConfirmation.Set(0)
	logging.L(ctx).Info("transfer approved", "to", out.To, "amount", out.Amount, "token", out.Token)
	return out, nil
}

// Freeze engages the kill switch. Idempotent in effect; every call is
// persisted and audited.
func (s *Service) Freeze(ctx context.Context, reason string) error {
	unlock, err := s.locks.Lock(ctx, s.lockKey)
	if err != nil {
		return err
	}
	defer unlock()

	st, err := s.states.Load(ctx)
	if err != nil {
		return s.loadFailed(ctx, StateFileName, err)
	}

	res := EvaluateFreeze(st, reason, s.now())
	if err := s.commit(ctx, res); err != nil {
		return err
	}

	metrics.FreezesTotal.WithLabelValues("manual").Inc()
	logging.L(ctx).Warn("wallet frozen", "reason", res.state.FrozenReason)
	return nil
}

// Unfreeze lifts the kill switch.
func (s *Service) Unfreeze(ctx context.Context) error {
	unlock, err := s.locks.Lock(ctx, s.lockKey)
	if err != nil {
		return err
	}
	defer unlock()

	st, err := s.states.Load(ctx)
	if err != nil {
		return s.loadFailed(ctx, StateFileName, err)
	}

	res := EvaluateUnfreeze(st, s.now())
	if err := s.commit(ctx, res); err != nil {
		return err
	}

	logging.L(ctx).Info("wallet unfrozen")
	return nil
}

// Status returns the read-only wallet summary. Its only state mutation is
// the daily rollover.
func (s *Service) Status(ctx context.Context) (*StatusInfo, error) {
	unlock, err := s.locks.Lock(ctx, s.lockKey)
	if err != nil {
		return nil, err
	}
	defer unlock()

	cfg, err := s.config.Load(ctx)
	if err != nil {
		return nil, s.loadFailed(ctx, ConfigFileName, err)
	}
	st, err := s.states.Load(ctx)
	if err != nil {
		return nil, s.loadFailed(ctx, StateFileName, err)
	}

	res, info := EvaluateStatus(cfg, st, s.now())
	if res.changed {
		if err := s.states.Save(ctx, res.state); err != nil {
			return nil, fmt.Errorf("persist state: %w", err)
		}
	}
	info.IntegrityEnabled = s.integrityOn
	return info, nil
}

// commit persists the new state (when it changed) and appends the audit
// entries. State goes first: an audit entry must never describe a
// mutation that was not durably applied.
func (s *Service) commit(ctx context.Context, res *evalResult) error {
	if res.changed {
		if err := s.states.Save(ctx, res.state); err != nil {
			return fmt.Errorf("persist state: %w", err)
		}
	}
	for _, entry := range res.entries {
		entry.ID = idgen.WithPrefix("aud_")
		if err := s.audit.Append(ctx, entry); err != nil {
			return fmt.Errorf("append audit entry: %w", err)
		}
	}
	return nil
}

// loadFailed classifies a storage failure. Tampering is counted and
// logged loudly; it must reach the caller unmixed with policy rejections.
func (s *Service) loadFailed(ctx context.Context, file string, err error) error {
	if errors.Is(err, integrity.ErrTampered) {
		metrics.IntegrityFailuresTotal.WithLabelValues(file).Inc()
		logging.L(ctx).Error("integrity check failed", "file", file, "error", err)
		return err
	}
	return fmt.Errorf("load %s: %w", file, err)
}
