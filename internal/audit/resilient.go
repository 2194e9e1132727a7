package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/txguard/txguard/internal/circuitbreaker"
	"github.com/txguard/txguard/internal/retry"
)

// ResilientLogger wraps a secondary Logger (the Postgres archive) with
// retry and a circuit breaker. The primary file log is the source of
// truth, so archive failures are logged and dropped rather than failing
// the decision that produced the entry. Append never returns an error.
type ResilientLogger struct {
	inner   Logger
	breaker *circuitbreaker.Breaker
	logger  *slog.Logger
}

// NewResilientLogger wraps inner with 3-attempt retry and a breaker that
// opens after 5 consecutive failed appends.
func NewResilientLogger(inner Logger, logger *slog.Logger) *ResilientLogger {
	return &ResilientLogger{
		inner:   inner,
		breaker: circuitbreaker.New("audit_archive", 5, 30*time.Second),
		logger:  logger,
	}
}

func (r *ResilientLogger) Append(ctx context.Context, entry *Entry) error {
	if !r.breaker.Allow() {
		r.logger.Warn("audit archive circuit open, dropping entry", "entry_id", entry.ID)
		return nil
	}

	err := retry.Do(ctx, 3, 100*time.Millisecond, func() error {
		return r.inner.Append(ctx, entry)
	})
	if err != nil {
		r.breaker.RecordFailure()
		r.logger.Error("audit archive append failed", "entry_id", entry.ID, "error", err)
		return nil
	}

	r.breaker.RecordSuccess()
	return nil
}
