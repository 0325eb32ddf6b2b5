package election

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"unionvote/pkg/platform/sentinel"
	txcontext "unionvote/pkg/platform/tx"
)

// PostgresStore persists elections, options, and published results in the
// roll database. Results carry no identity content, so they live roll-side
// where the count-time status flip can share their transaction.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// EnsureSchema creates the election tables when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS elections (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			type TEXT NOT NULL CHECK (type IN ('officer', 'strike', 'agenda', 'confidence')),
			start_at TIMESTAMPTZ NOT NULL,
			end_at TIMESTAMPTZ NOT NULL,
			status TEXT NOT NULL DEFAULT 'upcoming' CHECK (status IN ('upcoming', 'active', 'counted')),
			detail_url TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS election_options (
			election_id TEXT NOT NULL REFERENCES elections(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			display_order INT NOT NULL,
			PRIMARY KEY (election_id, name)
		)`,
		`CREATE TABLE IF NOT EXISTS election_results (
			election_id TEXT NOT NULL REFERENCES elections(id) ON DELETE CASCADE,
			selected_option TEXT NOT NULL,
			vote_count INT NOT NULL,
			PRIMARY KEY (election_id, selected_option)
		)`,
		`CREATE TABLE IF NOT EXISTS election_tally (
			election_id TEXT PRIMARY KEY REFERENCES elections(id) ON DELETE CASCADE,
			turnout TEXT NOT NULL,
			total_voters INT NOT NULL,
			voted_count INT NOT NULL,
			counted_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure election schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, e *Election, options []Option) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin election create: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	electionQuery := `
		INSERT INTO elections (id, title, description, type, start_at, end_at, status, detail_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = tx.ExecContext(ctx, electionQuery,
		e.ID, e.Title, e.Description, string(e.Type), e.StartAt, e.EndAt, string(e.Status), e.DetailURL, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert election: %w", err)
	}

	optionQuery := `
		INSERT INTO election_options (election_id, name, description, display_order)
		VALUES ($1, $2, $3, $4)
	`
	for _, opt := range options {
		if _, err := tx.ExecContext(ctx, optionQuery, e.ID, opt.Name, opt.Description, opt.DisplayOrder); err != nil {
			return fmt.Errorf("insert election option: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit election create: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Election, error) {
	query := `
		SELECT id, title, description, type, start_at, end_at, status, detail_url, created_at
		FROM elections
		WHERE id = $1
	`
	var e Election
	err := s.execer(ctx).QueryRowContext(ctx, query, id).
		Scan(&e.ID, &e.Title, &e.Description, &e.Type, &e.StartAt, &e.EndAt, &e.Status, &e.DetailURL, &e.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get election: %w", err)
	}
	return &e, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Election, error) {
	query := `
		SELECT id, title, description, type, start_at, end_at, status, detail_url, created_at
		FROM elections
		ORDER BY start_at DESC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list elections: %w", err)
	}
	defer rows.Close()

	var elections []Election
	for rows.Next() {
		var e Election
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.Type, &e.StartAt, &e.EndAt, &e.Status, &e.DetailURL, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan election: %w", err)
		}
		elections = append(elections, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate elections: %w", err)
	}
	return elections, nil
}

func (s *PostgresStore) ListOptions(ctx context.Context, electionID string) ([]Option, error) {
	query := `
		SELECT election_id, name, description, display_order
		FROM election_options
		WHERE election_id = $1
		ORDER BY display_order
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, electionID)
	if err != nil {
		return nil, fmt.Errorf("list election options: %w", err)
	}
	defer rows.Close()

	var options []Option
	for rows.Next() {
		var opt Option
		if err := rows.Scan(&opt.ElectionID, &opt.Name, &opt.Description, &opt.DisplayOrder); err != nil {
			return nil, fmt.Errorf("scan election option: %w", err)
		}
		options = append(options, opt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate election options: %w", err)
	}
	return options, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, status Status) error {
	result, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE elections SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("update election status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update election status rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) UpdateEndAt(ctx context.Context, id string, endAt time.Time) error {
	result, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE elections SET end_at = $2 WHERE id = $1`, id, endAt)
	if err != nil {
		return fmt.Errorf("update election end: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update election end rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// SetCounted re-checks the terminal state inside the same statement that sets
// it, so racing count requests resolve to a single winner.
func (s *PostgresStore) SetCounted(ctx context.Context, id string) (bool, error) {
	result, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE elections SET status = 'counted' WHERE id = $1 AND status <> 'counted'`, id)
	if err != nil {
		return false, fmt.Errorf("set election counted: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set election counted rows affected: %w", err)
	}
	return rows > 0, nil
}

func (s *PostgresStore) SaveResults(ctx context.Context, electionID string, figures *Figures) error {
	execer := s.execer(ctx)

	resultQuery := `
		INSERT INTO election_results (election_id, selected_option, vote_count)
		VALUES ($1, $2, $3)
	`
	for _, r := range figures.Results {
		if _, err := execer.ExecContext(ctx, resultQuery, electionID, r.Option, r.Count); err != nil {
			return fmt.Errorf("insert election result: %w", err)
		}
	}

	tallyQuery := `
		INSERT INTO election_tally (election_id, turnout, total_voters, voted_count, counted_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := execer.ExecContext(ctx, tallyQuery,
		electionID, figures.Turnout, figures.TotalVoters, figures.VotedCount, figures.CountedAt)
	if err != nil {
		return fmt.Errorf("insert election tally: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetResults(ctx context.Context, electionID string) (*Figures, error) {
	var figures Figures
	tallyQuery := `
		SELECT turnout, total_voters, voted_count, counted_at
		FROM election_tally
		WHERE election_id = $1
	`
	err := s.execer(ctx).QueryRowContext(ctx, tallyQuery, electionID).
		Scan(&figures.Turnout, &figures.TotalVoters, &figures.VotedCount, &figures.CountedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get election tally: %w", err)
	}

	resultQuery := `
		SELECT selected_option, vote_count
		FROM election_results
		WHERE election_id = $1
		ORDER BY vote_count DESC, selected_option
	`
	rows, err := s.execer(ctx).QueryContext(ctx, resultQuery, electionID)
	if err != nil {
		return nil, fmt.Errorf("get election results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.Option, &r.Count); err != nil {
			return nil, fmt.Errorf("scan election result: %w", err)
		}
		figures.Results = append(figures.Results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate election results: %w", err)
	}
	return &figures, nil
}
