package roster

import (
	"context"
	"database/sql"
	"fmt"

	"unionvote/pkg/platform/sentinel"
	txcontext "unionvote/pkg/platform/tx"
)

// PostgresStore persists members and voting statuses in the roll database.
// This store is pure I/O; transition legality and audit emission belong in
// the services.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a Postgres-backed roll store.
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

// EnsureSchema creates the roll store tables when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS members (
			employee_id TEXT PRIMARY KEY,
			pin TEXT NOT NULL,
			name TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'voter' CHECK (role IN ('admin', 'reception', 'voter')),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS voting_status (
			election_id TEXT NOT NULL,
			employee_id TEXT NOT NULL REFERENCES members(employee_id) ON DELETE CASCADE,
			status TEXT NOT NULL DEFAULT 'not_voted' CHECK (status IN ('not_voted', 'voted_electronic', 'voted_paper')),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (election_id, employee_id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure roll schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, employeeID string) (*Member, error) {
	query := `
		SELECT employee_id, pin, name, role, created_at
		FROM members
		WHERE employee_id = $1
	`
	var m Member
	err := s.execer(ctx).QueryRowContext(ctx, query, employeeID).
		Scan(&m.EmployeeID, &m.PIN, &m.Name, &m.Role, &m.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get member: %w", err)
	}
	return &m, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Member, error) {
	query := `
		SELECT employee_id, pin, name, role, created_at
		FROM members
		ORDER BY employee_id
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()
	return scanMembers(rows)
}

func (s *PostgresStore) Search(ctx context.Context, q string, limit int) ([]Member, error) {
	query := `
		SELECT employee_id, pin, name, role, created_at
		FROM members
		WHERE employee_id ILIKE $1 OR name ILIKE $1
		ORDER BY employee_id
		LIMIT $2
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, "%"+q+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("search members: %w", err)
	}
	defer rows.Close()
	return scanMembers(rows)
}

func (s *PostgresStore) ListVoterIDs(ctx context.Context) ([]string, error) {
	rows, err := s.execer(ctx).QueryContext(ctx,
		`SELECT employee_id FROM members WHERE role = 'voter' ORDER BY employee_id`)
	if err != nil {
		return nil, fmt.Errorf("list voter ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan voter id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate voter ids: %w", err)
	}
	return ids, nil
}

func (s *PostgresStore) CountVoters(ctx context.Context) (int, error) {
	var count int
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM members WHERE role = 'voter'`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count voters: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) UpsertAll(ctx context.Context, members []Member) (int, error) {
	query := `
		INSERT INTO members (employee_id, pin, name, role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (employee_id) DO UPDATE SET
			pin = EXCLUDED.pin,
			name = EXCLUDED.name,
			role = EXCLUDED.role
	`
	execer := s.execer(ctx)
	upserted := 0
	for _, m := range members {
		if _, err := execer.ExecContext(ctx, query, m.EmployeeID, m.PIN, m.Name, m.Role); err != nil {
			return upserted, fmt.Errorf("upsert member %s: %w", m.EmployeeID, err)
		}
		upserted++
	}
	return upserted, nil
}

func (s *PostgresStore) DeleteNonAdmins(ctx context.Context) (int, error) {
	result, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM members WHERE role <> 'admin'`)
	if err != nil {
		return 0, fmt.Errorf("delete non-admin members: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete non-admin members rows affected: %w", err)
	}
	return int(deleted), nil
}

func (s *PostgresStore) GetStatus(ctx context.Context, electionID, employeeID string) (*VotingStatus, error) {
	query := `
		SELECT election_id, employee_id, status, updated_at
		FROM voting_status
		WHERE election_id = $1 AND employee_id = $2
	`
	var vs VotingStatus
	err := s.execer(ctx).QueryRowContext(ctx, query, electionID, employeeID).
		Scan(&vs.ElectionID, &vs.EmployeeID, &vs.Status, &vs.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get voting status: %w", err)
	}
	return &vs, nil
}

func (s *PostgresStore) EnsureRow(ctx context.Context, electionID, employeeID string) error {
	query := `
		INSERT INTO voting_status (election_id, employee_id, status)
		VALUES ($1, $2, 'not_voted')
		ON CONFLICT (election_id, employee_id) DO NOTHING
	`
	if _, err := s.execer(ctx).ExecContext(ctx, query, electionID, employeeID); err != nil {
		return fmt.Errorf("ensure voting status row: %w", err)
	}
	return nil
}

func (s *PostgresStore) InitForElection(ctx context.Context, electionID string, employeeIDs []string) error {
	query := `
		INSERT INTO voting_status (election_id, employee_id, status)
		VALUES ($1, $2, 'not_voted')
		ON CONFLICT (election_id, employee_id) DO NOTHING
	`
	execer := s.execer(ctx)
	for _, employeeID := range employeeIDs {
		if _, err := execer.ExecContext(ctx, query, electionID, employeeID); err != nil {
			return fmt.Errorf("init voting status for %s: %w", employeeID, err)
		}
	}
	return nil
}

// SetStatusIf is the load-bearing conditional update: concurrent callers for
// the same (election, member) pair observe exactly one true result because the
// WHERE clause re-checks the current status inside the same statement that
// flips it.
func (s *PostgresStore) SetStatusIf(ctx context.Context, electionID, employeeID string, from, to Status) (bool, error) {
	query := `
		UPDATE voting_status
		SET status = $4, updated_at = NOW()
		WHERE election_id = $1 AND employee_id = $2 AND status = $3
	`
	result, err := s.execer(ctx).ExecContext(ctx, query, electionID, employeeID, from, to)
	if err != nil {
		return false, fmt.Errorf("set voting status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set voting status rows affected: %w", err)
	}
	return rows > 0, nil
}

func (s *PostgresStore) CountByStatus(ctx context.Context, electionID string) (StatusCounts, error) {
	query := `
		SELECT status, COUNT(*)
		FROM voting_status
		WHERE election_id = $1
		GROUP BY status
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, electionID)
	if err != nil {
		return StatusCounts{}, fmt.Errorf("count statuses: %w", err)
	}
	defer rows.Close()

	var counts StatusCounts
	for rows.Next() {
		var status Status
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return StatusCounts{}, fmt.Errorf("scan status count: %w", err)
		}
		switch status {
		case StatusNotVoted:
			counts.NotVoted = n
		case StatusVotedElectronic:
			counts.VotedElectronic = n
		case StatusVotedPaper:
			counts.VotedPaper = n
		}
	}
	if err := rows.Err(); err != nil {
		return StatusCounts{}, fmt.Errorf("iterate status counts: %w", err)
	}
	return counts, nil
}

func (s *PostgresStore) DeleteAll(ctx context.Context) error {
	if _, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM voting_status`); err != nil {
		return fmt.Errorf("delete voting statuses: %w", err)
	}
	return nil
}

func scanMembers(rows *sql.Rows) ([]Member, error) {
	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.EmployeeID, &m.PIN, &m.Name, &m.Role, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}
