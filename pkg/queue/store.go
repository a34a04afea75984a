// Package queue provides the durable offline action queue and its replay
// engine. Review actions taken while offline are persisted locally and
// replayed against the code host when connectivity returns.
package queue

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kraitsura/lazyreview/pkg/model"
)

// ErrCorruptProfile is returned when the queue database file exists but is
// not a readable queue database. The store never silently re-initializes an
// existing file, so a damaged profile is surfaced instead of wiped.
var ErrCorruptProfile = errors.New("queue database is corrupted")

// Store handles queued action persistence
type Store struct {
	db *sql.DB
}

// Filter narrows List to actions targeting a single pull request.
// A nil filter returns everything.
type Filter struct {
	Target model.Target
}

// Open opens or creates the queue database at the given path
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	fresh, err := isFreshProfile(dbPath)
	if err != nil {
		return nil, err
	}

	// busy_timeout covers the brief overlap when the TUI and a CLI
	// invocation touch the same profile.
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(fresh); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// isFreshProfile reports whether dbPath points at a brand-new profile
// (missing or empty file). Existing non-empty files must already be valid
// SQLite databases; anything else is treated as corruption.
func isFreshProfile(dbPath string) (bool, error) {
	info, err := os.Stat(dbPath)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat queue database: %w", err)
	}
	return info.Size() == 0, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema(fresh bool) error {
	schema := `
	CREATE TABLE IF NOT EXISTS actions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		provider TEXT NOT NULL,
		owner TEXT NOT NULL,
		repo TEXT NOT NULL,
		pr_number INTEGER NOT NULL,
		kind TEXT NOT NULL,
		payload TEXT NOT NULL DEFAULT '{}',
		status TEXT NOT NULL DEFAULT 'pending',
		last_error TEXT NOT NULL DEFAULT '',
		enqueued_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_actions_target ON actions(provider, owner, repo, pr_number);
	`

	if _, err := s.db.Exec(schema); err != nil {
		if fresh {
			return fmt.Errorf("init schema: %w", err)
		}
		// An existing file that rejects the schema statement is not a
		// queue database we can trust.
		return fmt.Errorf("%w: %v", ErrCorruptProfile, err)
	}
	return nil
}

// Enqueue assigns an id and enqueue time, persists the action, and returns
// the stored record. This is a local-only write: it succeeds without network
// connectivity and fails only on storage I/O errors.
func (s *Store) Enqueue(target model.Target, kind model.ActionKind, payload model.ActionPayload) (*model.QueuedAction, error) {
	action := &model.QueuedAction{
		Target:     target,
		Kind:       kind,
		Payload:    payload,
		Status:     model.ActionPending,
		EnqueuedAt: time.Now(),
	}
	if err := action.Validate(); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	result, err := s.db.Exec(`
		INSERT INTO actions (provider, owner, repo, pr_number, kind, payload, status, enqueued_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, target.Provider, target.Owner, target.Repo, target.Number, action.Kind, string(raw), action.Status, action.EnqueuedAt)
	if err != nil {
		return nil, fmt.Errorf("enqueue action: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("enqueue action: %w", err)
	}
	action.ID = id
	return action, nil
}

// List returns all queued actions ordered by enqueue time ascending,
// optionally filtered to a single pull request. The id column breaks
// timestamp ties so ordering is stable within a burst of enqueues.
func (s *Store) List(filter *Filter) ([]model.QueuedAction, error) {
	query := `
		SELECT id, provider, owner, repo, pr_number, kind, payload, status, last_error, enqueued_at
		FROM actions
	`
	var args []any
	if filter != nil {
		query += ` WHERE provider = ? AND owner = ? AND repo = ? AND pr_number = ?`
		t := filter.Target
		args = append(args, t.Provider, t.Owner, t.Repo, t.Number)
	}
	query += ` ORDER BY enqueued_at ASC, id ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	defer rows.Close()

	var actions []model.QueuedAction
	for rows.Next() {
		var a model.QueuedAction
		var raw string
		if err := rows.Scan(&a.ID, &a.Target.Provider, &a.Target.Owner, &a.Target.Repo, &a.Target.Number,
			&a.Kind, &raw, &a.Status, &a.LastError, &a.EnqueuedAt); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &a.Payload); err != nil {
			return nil, fmt.Errorf("decode payload for action %d: %w", a.ID, err)
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

// Remove deletes an action by id. Removing an id that does not exist is a
// no-op, not an error.
func (s *Store) Remove(id int64) error {
	if _, err := s.db.Exec(`DELETE FROM actions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("remove action %d: %w", id, err)
	}
	return nil
}

// MarkFailed records a replay failure on the action, leaving it in place
// for the next replay pass.
func (s *Store) MarkFailed(id int64, message string) error {
	_, err := s.db.Exec(`
		UPDATE actions SET status = ?, last_error = ? WHERE id = ?
	`, model.ActionFailed, message, id)
	if err != nil {
		return fmt.Errorf("mark action %d failed: %w", id, err)
	}
	return nil
}

// Count returns the number of queued actions, for status displays.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM actions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count actions: %w", err)
	}
	return n, nil
}
