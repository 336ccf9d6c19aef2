package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Outcome constants for how a run ended.
const (
	OutcomeEscaped   = "escaped"
	OutcomeAbandoned = "abandoned"
)

// ValidOutcome reports whether outcome is a recognised run outcome.
func ValidOutcome(outcome string) bool {
	switch outcome {
	case OutcomeEscaped, OutcomeAbandoned:
		return true
	}
	return false
}

// ErrInvalidOutcome is returned when an unrecognised outcome string is supplied.
var ErrInvalidOutcome = errors.New("invalid outcome")

// ErrRunNotFound is returned when a run lookup yields no results.
var ErrRunNotFound = errors.New("run not found")

// ErrRunExists is returned when a session's run has already been recorded.
var ErrRunExists = errors.New("run already recorded")

// Run is one finished game as stored in the runs table.
type Run struct {
	ID            int64
	SessionID     string
	Seed          int64
	Outcome       string
	StepsLeft     int
	KeysLeft      int
	GemsLeft      int
	RoomsRevealed int
	Moves         int
	Placements    int
	Refreshes     int
	StartedAt     time.Time
	FinishedAt    time.Time
}

// RunRepository provides run history persistence operations.
type RunRepository struct {
	db *pgxpool.Pool
}

// NewRunRepository creates a RunRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewRunRepository(db *pgxpool.Pool) *RunRepository {
	return &RunRepository{db: db}
}

const runColumns = `id, session_id::text, seed, outcome, steps_left, keys_left, gems_left,
	rooms_revealed, moves, placements, refreshes, started_at, finished_at`

// Record inserts a finished run.
//
// Precondition: run.SessionID must be a UUID; run.Outcome must satisfy ValidOutcome.
// Postcondition: Returns the stored Run with ID and FinishedAt set, ErrInvalidOutcome,
// or ErrRunExists if the session was already recorded.
func (r *RunRepository) Record(ctx context.Context, run Run) (Run, error) {
	if !ValidOutcome(run.Outcome) {
		return Run{}, ErrInvalidOutcome
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}

	row := r.db.QueryRow(ctx,
		`INSERT INTO runs (session_id, seed, outcome, steps_left, keys_left, gems_left,
			rooms_revealed, moves, placements, refreshes, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING `+runColumns,
		run.SessionID, run.Seed, run.Outcome, run.StepsLeft, run.KeysLeft, run.GemsLeft,
		run.RoomsRevealed, run.Moves, run.Placements, run.Refreshes, run.StartedAt, run.FinishedAt,
	)
	stored, err := scanRun(row)
	if err != nil {
		if isDuplicateKeyError(err) {
			return Run{}, ErrRunExists
		}
		return Run{}, fmt.Errorf("inserting run: %w", err)
	}
	return stored, nil
}

// ListRecent returns up to limit runs, most recently finished first.
//
// Precondition: limit must be > 0.
// Postcondition: Returns the runs (possibly empty) or a non-nil error.
func (r *RunRepository) ListRecent(ctx context.Context, limit int) ([]Run, error) {
	if limit < 1 {
		return nil, fmt.Errorf("limit must be > 0, got %d", limit)
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+runColumns+`
		 FROM runs ORDER BY finished_at DESC, id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	runs := make([]Run, 0, limit)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

// BestForSeed returns the best escaped run for seed: most steps left, then fewest
// moves, then earliest finish.
//
// Postcondition: Returns the Run or ErrRunNotFound if nobody has escaped on seed.
func (r *RunRepository) BestForSeed(ctx context.Context, seed int64) (Run, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+runColumns+`
		 FROM runs
		 WHERE seed = $1 AND outcome = $2
		 ORDER BY steps_left DESC, moves ASC, finished_at ASC
		 LIMIT 1`,
		seed, OutcomeEscaped,
	)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Run{}, ErrRunNotFound
		}
		return Run{}, fmt.Errorf("querying best run: %w", err)
	}
	return run, nil
}

func scanRun(row pgx.Row) (Run, error) {
	var run Run
	err := row.Scan(
		&run.ID, &run.SessionID, &run.Seed, &run.Outcome,
		&run.StepsLeft, &run.KeysLeft, &run.GemsLeft,
		&run.RoomsRevealed, &run.Moves, &run.Placements, &run.Refreshes,
		&run.StartedAt, &run.FinishedAt,
	)
	return run, err
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	// SQLSTATE 23505 is unique_violation
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
