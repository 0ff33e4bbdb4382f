package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/huarongfei/Event-Control-System/internal/match"
)

const timestampLayout = "2006-01-02T15:04:05.000Z"

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const matchColumns = `id, sport, home_team, away_team, period_count, period_duration_ms,
	overtime_duration_ms, timeouts_per_team, rule_overrides, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMatch(row rowScanner) (match.Settings, error) {
	var (
		s              match.Settings
		periodMs, otMs int64
		overrides      sql.NullString
		createdAt      string
	)
	err := row.Scan(&s.ID, &s.Sport, &s.HomeTeam, &s.AwayTeam, &s.PeriodCount, &periodMs,
		&otMs, &s.TimeoutsPerTeam, &overrides, &createdAt)
	if err != nil {
		return s, err
	}
	s.PeriodDuration = time.Duration(periodMs) * time.Millisecond
	s.OvertimeDuration = time.Duration(otMs) * time.Millisecond
	if overrides.Valid {
		s.RuleOverrides = []byte(overrides.String)
	}
	s.CreatedAt, err = time.Parse(timestampLayout, createdAt)
	if err != nil {
		return s, fmt.Errorf("parsing created_at %q: %w", createdAt, err)
	}
	return s, nil
}

// CreateMatch stores s under a fresh ID and returns the stored row.
func (s *SQLiteStore) CreateMatch(ctx context.Context, m match.Settings) (match.Settings, error) {
	id := uuid.Must(uuid.NewV7()).String()
	var overrides sql.NullString
	if len(m.RuleOverrides) > 0 {
		overrides = sql.NullString{String: string(m.RuleOverrides), Valid: true}
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO matches (id, sport, home_team, away_team, period_count, period_duration_ms,
			overtime_duration_ms, timeouts_per_team, rule_overrides)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+matchColumns,
		id, m.Sport, m.HomeTeam, m.AwayTeam, m.PeriodCount, m.PeriodDuration.Milliseconds(),
		m.OvertimeDuration.Milliseconds(), m.TimeoutsPerTeam, overrides)
	created, err := scanMatch(row)
	if err != nil {
		return match.Settings{}, fmt.Errorf("inserting match: %w", err)
	}
	return created, nil
}

func (s *SQLiteStore) GetMatch(ctx context.Context, id string) (match.Settings, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = ?`, id)
	m, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return m, ErrNotFound
	}
	return m, err
}

func (s *SQLiteStore) ListMatches(ctx context.Context) ([]match.Settings, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+matchColumns+` FROM matches ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing matches: %w", err)
	}
	defer rows.Close()

	out := []match.Settings{}
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteMatch(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM matches WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting match: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
