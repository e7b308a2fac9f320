package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pollbooth/internal/ledger"
	"pollbooth/pkg/platform/sentinel"
	txcontext "pollbooth/pkg/platform/tx"
)

// RecordVote flips has_voted with a guarded UPDATE and inserts the vote in
// the same transaction. The guard is the compare-and-swap: a concurrent
// commit for the same voter updates zero rows and is rejected.
func (s *Store) RecordVote(ctx context.Context, vote *ledger.Vote) error {
	return txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		exec := s.execer(ctx)
		res, err := exec.ExecContext(ctx,
			`UPDATE voters SET has_voted = TRUE WHERE voter_id = $1 AND has_voted = FALSE`, vote.VoterID)
		if err != nil {
			return fmt.Errorf("flag voter: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("flag voter rows: %w", err)
		}
		if n == 0 {
			var exists bool
			err := exec.QueryRowContext(ctx, `SELECT TRUE FROM voters WHERE voter_id = $1`, vote.VoterID).Scan(&exists)
			if errors.Is(err, sql.ErrNoRows) {
				return sentinel.ErrNotFound
			}
			if err != nil {
				return fmt.Errorf("check voter: %w", err)
			}
			return sentinel.ErrAlreadyUsed
		}

		_, err = exec.ExecContext(ctx, `
			INSERT INTO votes (id, voter_id, candidate_id, officer_id, booth_id, face_match_score, fingerprint_match_score, cast_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			vote.ID, vote.VoterID, vote.CandidateID, vote.OfficerID, vote.BoothID,
			vote.FaceMatchScore, vote.FingerprintMatchScore, vote.Timestamp)
		if err != nil {
			return fmt.Errorf("insert vote: %w", translateInsertErr(err))
		}
		return nil
	})
}

func (s *Store) ListVotesByBooth(ctx context.Context, boothID string) ([]*ledger.Vote, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, voter_id, candidate_id, officer_id, booth_id, face_match_score, fingerprint_match_score, cast_at
		FROM votes WHERE booth_id = $1`, boothID)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	defer rows.Close()

	var out []*ledger.Vote
	for rows.Next() {
		var v ledger.Vote
		if err := rows.Scan(&v.ID, &v.VoterID, &v.CandidateID, &v.OfficerID, &v.BoothID,
			&v.FaceMatchScore, &v.FingerprintMatchScore, &v.Timestamp); err != nil {
			return nil, fmt.Errorf("scan vote: %w", err)
		}
		out = append(out, &v)
	}
	return out, rows.Err()
}
