package auditchain

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	id "certus/pkg/domain"
	"certus/pkg/platform/sentinel"
)

// PostgresStore persists audit chains in PostgreSQL.
// The (tenant_id, sequence) unique constraint is the backstop for the
// chain's single-writer guarantee.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed audit store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event *Event) error {
	if event == nil {
		return fmt.Errorf("audit event is required")
	}
	query := `
		INSERT INTO audit_events
			(id, tenant_id, sequence, ts, kind, actor, subject, correlation, decision, reason, prev_hash, current_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		uuid.UUID(event.TenantID),
		event.Sequence,
		event.Timestamp,
		string(event.Kind),
		event.Actor,
		event.Subject,
		event.Correlation,
		event.Decision,
		event.Reason,
		event.PrevHash,
		event.CurrentHash,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) Last(ctx context.Context, tenantID id.TenantID) (*Event, error) {
	query := `
		SELECT id, tenant_id, sequence, ts, kind, actor, subject, correlation, decision, reason, prev_hash, current_hash
		FROM audit_events
		WHERE tenant_id = $1
		ORDER BY sequence DESC
		LIMIT 1
	`
	event, err := scanEvent(s.db.QueryRowContext(ctx, query, uuid.UUID(tenantID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query chain head: %w", err)
	}
	return event, nil
}

func (s *PostgresStore) ListByTenant(ctx context.Context, tenantID id.TenantID) ([]*Event, error) {
	query := `
		SELECT id, tenant_id, sequence, ts, kind, actor, subject, correlation, decision, reason, prev_hash, current_hash
		FROM audit_events
		WHERE tenant_id = $1
		ORDER BY sequence ASC
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(tenantID))
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only rows

	var events []*Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*Event, error) {
	var (
		event    Event
		tenantID uuid.UUID
		kind     string
	)
	err := row.Scan(
		&event.ID,
		&tenantID,
		&event.Sequence,
		&event.Timestamp,
		&kind,
		&event.Actor,
		&event.Subject,
		&event.Correlation,
		&event.Decision,
		&event.Reason,
		&event.PrevHash,
		&event.CurrentHash,
	)
	if err != nil {
		return nil, err
	}
	event.TenantID = id.TenantID(tenantID)
	event.Kind = Kind(kind)
	event.Immutable = true
	return &event, nil
}
