// Package memory persists the append-only turn log. It sits outside
// the turn orchestration core: the agent works identically when no
// store is configured, and a failed write never fails a turn.
package memory

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver for database/sql
)

// Turn is one fully resolved user turn as recorded in the log.
type Turn struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UserText  string    `json:"user_text"`
	Reply     string    `json:"reply"`
	Status    string    `json:"status"`
	Tool      string    `json:"tool,omitempty"`
	Model     string    `json:"model,omitempty"`
}

// Stats summarizes the turn log, mirroring the session statistics the
// chat surface exposes.
type Stats struct {
	TotalTurns int            `json:"total_turns"`
	ByStatus   map[string]int `json:"by_status"`
	ByTool     map[string]int `json:"by_tool"`
	FirstTurn  *time.Time     `json:"first_turn,omitempty"`
	LastTurn   *time.Time     `json:"last_turn,omitempty"`
}

// TurnStore is a SQLite-backed turn log.
type TurnStore struct {
	db *sql.DB
}

// NewTurnStore opens (creating if needed) the turn database at path.
func NewTurnStore(path string) (*TurnStore, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open turn database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS turns (
		id         TEXT PRIMARY KEY,
		created_at TIMESTAMP NOT NULL,
		user_text  TEXT NOT NULL,
		reply      TEXT NOT NULL,
		status     TEXT NOT NULL,
		tool       TEXT NOT NULL DEFAULT '',
		model      TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_turns_created ON turns(created_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create turns schema: %w", err)
	}

	return &TurnStore{db: db}, nil
}

// Close releases the database handle.
func (s *TurnStore) Close() error {
	return s.db.Close()
}

// RecordTurn appends one resolved turn to the log.
func (s *TurnStore) RecordTurn(t Turn) error {
	_, err := s.db.Exec(
		`INSERT INTO turns (id, created_at, user_text, reply, status, tool, model)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.CreatedAt.UTC(), t.UserText, t.Reply, t.Status, t.Tool, t.Model,
	)
	if err != nil {
		return fmt.Errorf("record turn: %w", err)
	}
	return nil
}

// RecentTurns returns up to limit turns, newest first.
func (s *TurnStore) RecentTurns(limit int) ([]Turn, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(
		`SELECT id, created_at, user_text, reply, status, tool, model
		 FROM turns ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.ID, &t.CreatedAt, &t.UserText, &t.Reply, &t.Status, &t.Tool, &t.Model); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// Stats aggregates the turn log.
func (s *TurnStore) Stats() (*Stats, error) {
	stats := &Stats{
		ByStatus: make(map[string]int),
		ByTool:   make(map[string]int),
	}

	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM turns GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("query status counts: %w", err)
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		stats.ByStatus[status] = count
		stats.TotalTurns += count
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	rows, err = s.db.Query(`SELECT tool, COUNT(*) FROM turns WHERE tool != '' GROUP BY tool`)
	if err != nil {
		return nil, fmt.Errorf("query tool counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var tool string
		var count int
		if err := rows.Scan(&tool, &count); err != nil {
			return nil, fmt.Errorf("scan tool count: %w", err)
		}
		stats.ByTool[tool] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var first, last sql.NullTime
	if err := s.db.QueryRow(`SELECT MIN(created_at), MAX(created_at) FROM turns`).Scan(&first, &last); err != nil {
		return nil, fmt.Errorf("query turn range: %w", err)
	}
	if first.Valid {
		stats.FirstTurn = &first.Time
	}
	if last.Valid {
		stats.LastTurn = &last.Time
	}

	return stats, nil
}
