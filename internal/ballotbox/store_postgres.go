package ballotbox

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore persists ballots on the ballot database handle.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the votes table when missing. The column list is the
// secrecy boundary: nothing here may reference the roll store.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	stmt := `
		CREATE TABLE IF NOT EXISTS votes (
			id UUID PRIMARY KEY,
			election_id TEXT NOT NULL,
			selected_option TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT 'electronic' CHECK (source IN ('electronic', 'paper-aggregate')),
			cast_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("ensure ballot schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) AppendAll(ctx context.Context, ballots []Ballot) error {
	if len(ballots) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ballot append: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		INSERT INTO votes (id, election_id, selected_option, source, cast_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, b := range ballots {
		if _, err := tx.ExecContext(ctx, query, b.ID, b.ElectionID, b.SelectedOption, string(b.Source), b.CastAt); err != nil {
			return fmt.Errorf("insert ballot: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ballot append: %w", err)
	}
	return nil
}

func (s *PostgresStore) CountByOption(ctx context.Context, electionID string) ([]OptionCount, error) {
	query := `
		SELECT selected_option, COUNT(*)
		FROM votes
		WHERE election_id = $1
		GROUP BY selected_option
		ORDER BY COUNT(*) DESC, selected_option
	`
	rows, err := s.db.QueryContext(ctx, query, electionID)
	if err != nil {
		return nil, fmt.Errorf("count ballots by option: %w", err)
	}
	defer rows.Close()

	var counts []OptionCount
	for rows.Next() {
		var oc OptionCount
		if err := rows.Scan(&oc.Option, &oc.Count); err != nil {
			return nil, fmt.Errorf("scan option count: %w", err)
		}
		counts = append(counts, oc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate option counts: %w", err)
	}
	return counts, nil
}
