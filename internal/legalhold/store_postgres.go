package legalhold

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "certus/pkg/domain"
	"certus/pkg/platform/sentinel"
)

// PostgresStore persists legal holds in PostgreSQL. Scope subject/data-type
// lists are stored as JSONB.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed hold store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type scopeColumns struct {
	SubjectIDs []string `json:"subject_ids"`
	DataTypes  []string `json:"data_types"`
}

func encodeScope(scope Scope) ([]byte, error) {
	cols := scopeColumns{DataTypes: scope.DataTypes}
	for _, subjectID := range scope.SubjectIDs {
		cols.SubjectIDs = append(cols.SubjectIDs, subjectID.String())
	}
	return json.Marshal(cols)
}

func decodeScope(raw []byte, from, to *time.Time) (Scope, error) {
	var cols scopeColumns
	if err := json.Unmarshal(raw, &cols); err != nil {
		return Scope{}, err
	}
	scope := Scope{DataTypes: cols.DataTypes, From: from, To: to}
	for _, s := range cols.SubjectIDs {
		subjectID, err := id.ParseSubjectID(s)
		if err != nil {
			return Scope{}, err
		}
		scope.SubjectIDs = append(scope.SubjectIDs, subjectID)
	}
	return scope, nil
}

func (s *PostgresStore) Save(ctx context.Context, hold *Hold) error {
	if hold == nil {
		return fmt.Errorf("legal hold is required")
	}
	scopeJSON, err := encodeScope(hold.Scope)
	if err != nil {
		return fmt.Errorf("encode hold scope: %w", err)
	}
	query := `
		INSERT INTO legal_holds
			(id, tenant_id, hold_type, scope, scope_from, scope_to, status, legal_basis, issued_by, issued_at, expires_at, released_by, released_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(hold.ID),
		uuid.UUID(hold.TenantID),
		string(hold.Type),
		scopeJSON,
		hold.Scope.From,
		hold.Scope.To,
		string(hold.Status),
		hold.LegalBasis,
		hold.IssuedBy,
		hold.IssuedAt,
		hold.ExpiresAt,
		nullString(hold.ReleasedBy),
		hold.ReleasedAt,
	)
	if err != nil {
		return fmt.Errorf("insert legal hold: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, tenantID id.TenantID, holdID id.HoldID) (*Hold, error) {
	query := selectHolds + ` WHERE tenant_id = $1 AND id = $2`
	hold, err := scanHold(s.db.QueryRowContext(ctx, query, uuid.UUID(tenantID), uuid.UUID(holdID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query legal hold: %w", err)
	}
	return hold, nil
}

func (s *PostgresStore) Update(ctx context.Context, hold *Hold) error {
	query := `
		UPDATE legal_holds
		SET status = $3, released_by = $4, released_at = $5
		WHERE tenant_id = $1 AND id = $2
	`
	result, err := s.db.ExecContext(ctx, query,
		uuid.UUID(hold.TenantID),
		uuid.UUID(hold.ID),
		string(hold.Status),
		nullString(hold.ReleasedBy),
		hold.ReleasedAt,
	)
	if err != nil {
		return fmt.Errorf("update legal hold: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update legal hold rows: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByTenant(ctx context.Context, tenantID id.TenantID) ([]*Hold, error) {
	query := selectHolds + ` WHERE tenant_id = $1 ORDER BY issued_at ASC`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(tenantID))
	if err != nil {
		return nil, fmt.Errorf("query legal holds: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only rows

	var holds []*Hold
	for rows.Next() {
		hold, err := scanHold(rows)
		if err != nil {
			return nil, fmt.Errorf("scan legal hold: %w", err)
		}
		holds = append(holds, hold)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate legal holds: %w", err)
	}
	return holds, nil
}

const selectHolds = `
	SELECT id, tenant_id, hold_type, scope, scope_from, scope_to, status, legal_basis, issued_by, issued_at, expires_at, released_by, released_at
	FROM legal_holds
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHold(row rowScanner) (*Hold, error) {
	var (
		hold       Hold
		holdID     uuid.UUID
		tenantID   uuid.UUID
		holdType   string
		scopeJSON  []byte
		scopeFrom  *time.Time
		scopeTo    *time.Time
		status     string
		releasedBy sql.NullString
	)
	err := row.Scan(
		&holdID,
		&tenantID,
		&holdType,
		&scopeJSON,
		&scopeFrom,
		&scopeTo,
		&status,
		&hold.LegalBasis,
		&hold.IssuedBy,
		&hold.IssuedAt,
		&hold.ExpiresAt,
		&releasedBy,
		&hold.ReleasedAt,
	)
	if err != nil {
		return nil, err
	}
	scope, err := decodeScope(scopeJSON, scopeFrom, scopeTo)
	if err != nil {
		return nil, err
	}
	hold.ID = id.HoldID(holdID)
	hold.TenantID = id.TenantID(tenantID)
	hold.Type = Type(holdType)
	hold.Scope = scope
	hold.Status = Status(status)
	hold.ReleasedBy = releasedBy.String
	return &hold, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
