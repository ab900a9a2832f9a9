package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Operations recorded in the history log.
const (
	OpScan    = "scan"
	OpPair    = "pair"
	OpConnect = "connect"
)

// Outcomes recorded in the history log.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

// Entry is one recorded Bluetooth operation.
type Entry struct {
	ID        int64         `json:"id"`
	MAC       string        `json:"mac,omitempty"`
	Name      string        `json:"name,omitempty"`
	Operation string        `json:"operation"`
	Outcome   string        `json:"outcome"`
	Reason    string        `json:"reason,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"-"`

	// DurationMS mirrors Duration for the JSON surface.
	DurationMS int64 `json:"duration_ms"`
}

const (
	defaultLimit = 50
	maxLimit     = 200
)

// Repository persists the Bluetooth operations log.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a history repository backed by the given database.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Record appends one operation to the log.
func (r *Repository) Record(ctx context.Context, e Entry) error {
	query := `
		INSERT INTO pairing_history (mac, name, operation, outcome, reason, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		e.MAC, e.Name, e.Operation, e.Outcome, e.Reason,
		e.StartedAt.UTC().Format(time.RFC3339Nano),
		e.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("recording history entry: %w", err)
	}
	return nil
}

// Recent returns the newest entries, most recent first. A non-positive
// limit uses the default; limits above the cap are clamped.
func (r *Repository) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	query := `
		SELECT id, mac, name, operation, outcome, reason, started_at, duration_ms
		FROM pairing_history
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			startedAt  string
			durationMS int64
		)
		if err := rows.Scan(&e.ID, &e.MAC, &e.Name, &e.Operation, &e.Outcome, &e.Reason, &startedAt, &durationMS); err != nil {
			return nil, fmt.Errorf("scanning history entry: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing history timestamp %q: %w", startedAt, err)
		}
		e.StartedAt = ts
		e.Duration = time.Duration(durationMS) * time.Millisecond
		e.DurationMS = durationMS
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
