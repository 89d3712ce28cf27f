package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/taskclient/internal/model"
)

// SQLiteStore implements SnapshotStore using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

var _ SnapshotStore = (*SQLiteStore)(nil)

// snapshotRow is one cached task as stored on disk.
type snapshotRow struct {
	Owner       string `db:"owner"`
	Position    int    `db:"position"`
	ID          string `db:"id"`
	Title       string `db:"title"`
	Description string `db:"description"`
	Deadline    string `db:"deadline"`
	Status      string `db:"status"`
	Priority    string `db:"priority"`
	FetchedAt   string `db:"fetched_at"`
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Each connection to ":memory:" is its own database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// SchemaVersion reports the highest applied migration.
func (s *SQLiteStore) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := s.db.GetContext(ctx, &v, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}

// SaveSnapshot replaces owner's rows in a single transaction.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, owner string, tasks []model.Task) error {
	owner = ownerKey(owner)
	fetchedAt := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM task_snapshots WHERE owner = ?", owner); err != nil {
		return fmt.Errorf("clearing snapshot for %s: %w", owner, err)
	}

	if len(tasks) > 0 {
		rows := make([]snapshotRow, 0, len(tasks))
		for i, t := range tasks {
			rows = append(rows, snapshotRow{
				Owner:       owner,
				Position:    i,
				ID:          t.ID,
				Title:       t.Title,
				Description: t.Description,
				Deadline:    t.Deadline.String(),
				Status:      string(t.Status),
				Priority:    string(t.Priority),
				FetchedAt:   fetchedAt,
			})
		}

		const query = `
			INSERT INTO task_snapshots (
				owner, position, id, title, description,
				deadline, status, priority, fetched_at
			) VALUES (
				:owner, :position, :id, :title, :description,
				:deadline, :status, :priority, :fetched_at
			)`

		stmt, err := tx.PrepareNamedContext(ctx, query)
		if err != nil {
			return fmt.Errorf("preparing snapshot insert: %w", err)
		}
		defer stmt.Close()

		for _, r := range rows {
			if _, err := stmt.ExecContext(ctx, r); err != nil {
				return fmt.Errorf("saving task %s: %w", r.ID, err)
			}
		}
	}

	return tx.Commit()
}

// LoadSnapshot returns owner's tasks in their saved order.
func (s *SQLiteStore) LoadSnapshot(ctx context.Context, owner string) ([]model.Task, time.Time, error) {
	owner = ownerKey(owner)

	var rows []snapshotRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM task_snapshots WHERE owner = ? ORDER BY position", owner)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("querying snapshot for %s: %w", owner, err)
	}
	if len(rows) == 0 {
		return nil, time.Time{}, nil
	}

	tasks := make([]model.Task, 0, len(rows))
	for _, r := range rows {
		t, err := r.toTask()
		if err != nil {
			return nil, time.Time{}, err
		}
		tasks = append(tasks, t)
	}

	fetchedAt, err := time.Parse(time.RFC3339Nano, rows[0].FetchedAt)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("parsing fetched_at: %w", err)
	}
	return tasks, fetchedAt, nil
}

// ClearSnapshot deletes owner's rows. Clearing a missing snapshot is not
// an error.
func (s *SQLiteStore) ClearSnapshot(ctx context.Context, owner string) error {
	owner = ownerKey(owner)
	if _, err := s.db.ExecContext(ctx, "DELETE FROM task_snapshots WHERE owner = ?", owner); err != nil {
		return fmt.Errorf("clearing snapshot for %s: %w", owner, err)
	}
	return nil
}

func (r snapshotRow) toTask() (model.Task, error) {
	deadline, err := model.ParseDate(r.Deadline)
	if err != nil {
		return model.Task{}, fmt.Errorf("task %s: %w", r.ID, err)
	}
	status, err := model.ParseStatus(r.Status)
	if err != nil {
		return model.Task{}, fmt.Errorf("task %s: %w", r.ID, err)
	}
	priority, err := model.ParsePriority(r.Priority)
	if err != nil {
		return model.Task{}, fmt.Errorf("task %s: %w", r.ID, err)
	}
	return model.Task{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Deadline:    deadline,
		Status:      status,
		Priority:    priority,
	}, nil
}

func ownerKey(owner string) string {
	if owner == "" {
		return DefaultOwner
	}
	return owner
}
