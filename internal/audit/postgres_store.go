package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresLogger mirrors audit entries into Postgres for querying across
// restarts and wallets. The JSONL file remains the source of truth; the
// archive exists so operators can slice decisions by action and time range.
type PostgresLogger struct {
	db *sql.DB
}

// NewPostgresLogger creates an archive logger backed by Postgres.
func NewPostgresLogger(db *sql.DB) *PostgresLogger {
	return &PostgresLogger{db: db}
}

func (l *PostgresLogger) Append(ctx context.Context, entry *Entry) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO audit_log (entry_id, action, reason, recipient, amount, token, sender, occurred_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, '')::NUMERIC(20,6), $6, $7, $8)
	`, entry.ID, entry.Action, entry.Reason, entry.To, entry.Amount, entry.Token, entry.Sender, entry.Timestamp)
	if err != nil {
		return fmt.Errorf("archive audit entry: %w", err)
	}
	return nil
}

func (l *PostgresLogger) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	return l.Query(ctx, "", time.Time{}, time.Time{}, limit)
}

// Query returns matching entries, oldest first. Empty action and zero
// times mean no filter.
func (l *PostgresLogger) Query(ctx context.Context, action string, from, to time.Time, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT entry_id, action, COALESCE(reason, ''), COALESCE(recipient, ''),
		       COALESCE(amount::TEXT, ''), COALESCE(token, ''), COALESCE(sender, ''), occurred_at
		FROM audit_log
		WHERE ($1 = '' OR action = $1)
		  AND ($2::TIMESTAMPTZ IS NULL OR occurred_at >= $2)
		  AND ($3::TIMESTAMPTZ IS NULL OR occurred_at <= $3)
		ORDER BY occurred_at DESC
		LIMIT $4
	`, action, nullTime(from), nullTime(to), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Action, &e.Reason, &e.To, &e.Amount, &e.Token, &e.Sender, &e.Timestamp); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to oldest-first to match the file logger.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
