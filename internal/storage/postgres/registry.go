package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pollbooth/internal/registry"
	"pollbooth/pkg/platform/sentinel"
)

func (s *Store) SaveOfficer(ctx context.Context, officer *registry.Officer) error {
	query := `
		INSERT INTO officers (id, officer_id, secret, name, booth_id)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		officer.ID, officer.OfficerID, officer.Secret, officer.Name, officer.BoothID)
	if err != nil {
		return fmt.Errorf("insert officer: %w", translateInsertErr(err))
	}
	return nil
}

func (s *Store) SaveVoter(ctx context.Context, voter *registry.Voter) error {
	query := `
		INSERT INTO voters (id, voter_id, name, age, address, booth_id, photo_url, fingerprint_template, has_voted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		voter.ID, voter.VoterID, voter.Name, voter.Age, voter.Address, voter.BoothID,
		nullString(voter.PhotoURL), nullString(voter.FingerprintTemplate), voter.HasVoted)
	if err != nil {
		return fmt.Errorf("insert voter: %w", translateInsertErr(err))
	}
	return nil
}

func (s *Store) SaveCandidate(ctx context.Context, candidate *registry.Candidate) error {
	query := `
		INSERT INTO candidates (id, name, party_name, party_symbol, booth_id)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		candidate.ID, candidate.Name, candidate.PartyName, candidate.PartySymbol, candidate.BoothID)
	if err != nil {
		return fmt.Errorf("insert candidate: %w", translateInsertErr(err))
	}
	return nil
}

func (s *Store) FindOfficerByOfficerID(ctx context.Context, officerID string) (*registry.Officer, error) {
	var o registry.Officer
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT id, officer_id, secret, name, booth_id FROM officers WHERE officer_id = $1`, officerID,
	).Scan(&o.ID, &o.OfficerID, &o.Secret, &o.Name, &o.BoothID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find officer: %w", err)
	}
	return &o, nil
}

func (s *Store) FindVoterByVoterID(ctx context.Context, voterID string) (*registry.Voter, error) {
	var (
		v                  registry.Voter
		photo, fingerprint sql.NullString
	)
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT id, voter_id, name, age, address, booth_id, photo_url, fingerprint_template, has_voted
		FROM voters WHERE voter_id = $1`, voterID,
	).Scan(&v.ID, &v.VoterID, &v.Name, &v.Age, &v.Address, &v.BoothID, &photo, &fingerprint, &v.HasVoted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find voter: %w", err)
	}
	v.PhotoURL = stringPtr(photo)
	v.FingerprintTemplate = stringPtr(fingerprint)
	return &v, nil
}

func (s *Store) ListCandidatesByBooth(ctx context.Context, boothID string) ([]*registry.Candidate, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, name, party_name, party_symbol, booth_id
		FROM candidates WHERE booth_id = $1 ORDER BY name`, boothID)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	var out []*registry.Candidate
	for rows.Next() {
		var c registry.Candidate
		if err := rows.Scan(&c.ID, &c.Name, &c.PartyName, &c.PartySymbol, &c.BoothID); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}
