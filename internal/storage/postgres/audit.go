package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"pollbooth/internal/audit"
)

func (s *Store) AppendAuditEntry(ctx context.Context, entry *audit.Entry) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO audit_logs (id, action, voter_id, officer_id, booth_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.Action, emptyAsNull(entry.VoterID), entry.OfficerID, entry.BoothID,
		emptyAsNull(entry.Details), entry.Timestamp)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *Store) ListAuditEntriesByBooth(ctx context.Context, boothID string, limit int) ([]*audit.Entry, error) {
	query := `
		SELECT id, action, voter_id, officer_id, booth_id, details, created_at
		FROM audit_logs WHERE booth_id = $1
		ORDER BY created_at DESC, seq DESC`
	args := []any{boothID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var out []*audit.Entry
	for rows.Next() {
		var (
			e                audit.Entry
			voterID, details sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Action, &voterID, &e.OfficerID, &e.BoothID, &details, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.VoterID = voterID.String
		e.Details = details.String
		out = append(out, &e)
	}
	return out, rows.Err()
}

func emptyAsNull(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
