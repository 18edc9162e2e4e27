// Package store persists configuration snapshots and the generation runs
// made from them.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"groups/snapshot"
)

//go:embed migrations/*.sql
var migrations embed.FS

var ErrNotFound = errors.New("not found")

const (
	OutcomeSolved     = "solved"
	OutcomeNoSolution = "no_solution"
)

type Snapshot struct {
	ID        string                  `json:"id"`
	Name      string                  `json:"name"`
	CreatedAt time.Time               `json:"created_at"`
	Config    *snapshot.Configuration `json:"config,omitempty"`
}

type Run struct {
	ID         string           `json:"id"`
	SnapshotID string           `json:"snapshot_id"`
	GroupSize  int              `json:"group_size"`
	Seed       int64            `json:"seed"`
	Attempts   int              `json:"attempts"`
	Outcome    string           `json:"outcome"`
	Groups     []snapshot.Group `json:"groups"`
	Stats      snapshot.Stats   `json:"stats"`
	CreatedAt  time.Time        `json:"created_at"`
}

type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to a postgres or sqlite database and applies pending
// migrations.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	var dialect string
	switch driver {
	case "postgres":
		dialect = "postgres"
	case "sqlite":
		dialect = "sqlite3"
		dsn = sqliteDSN(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(dialect); err != nil {
		db.Close()
		return nil, fmt.Errorf("goose set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("goose up: %w", err)
	}
	return &Store{db: db, driver: driver}, nil
}

func sqliteDSN(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// rebind rewrites ? placeholders as $n for postgres.
func (s *Store) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func (s *Store) CreateSnapshot(ctx context.Context, name string, cfg *snapshot.Configuration) (*Snapshot, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode configuration: %w", err)
	}
	snap := &Snapshot{ID: uuid.NewString(), Name: name, CreatedAt: now(), Config: cfg}
	_, err = s.db.ExecContext(ctx, s.rebind(`INSERT INTO snapshots (id, name, config, created_at) VALUES (?, ?, ?, ?)`),
		snap.ID, snap.Name, string(raw), snap.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert snapshot: %w", err)
	}
	return snap, nil
}

func (s *Store) GetSnapshot(ctx context.Context, id string) (*Snapshot, error) {
	var snap Snapshot
	var raw string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT id, name, config, created_at FROM snapshots WHERE id = ?`), id).
		Scan(&snap.ID, &snap.Name, &raw, &snap.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select snapshot: %w", err)
	}
	snap.CreatedAt = snap.CreatedAt.UTC()
	if err := json.Unmarshal([]byte(raw), &snap.Config); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", id, err)
	}
	return &snap, nil
}

// ListSnapshots returns snapshots newest first, without their configurations.
func (s *Store) ListSnapshots(ctx context.Context) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at FROM snapshots ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	out := []Snapshot{}
	for rows.Next() {
		var snap Snapshot
		if err := rows.Scan(&snap.ID, &snap.Name, &snap.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snap.CreatedAt = snap.CreatedAt.UTC()
		out = append(out, snap)
	}
	return out, rows.Err()
}

// DeleteSnapshot removes a snapshot together with its runs.
func (s *Store) DeleteSnapshot(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM runs WHERE snapshot_id = ?`), id); err != nil {
		return fmt.Errorf("delete runs: %w", err)
	}
	result, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM snapshots WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("snapshot %s: %w", id, ErrNotFound)
	}
	return tx.Commit()
}

// CreateRun records a generation run. ID and CreatedAt are filled in.
func (s *Store) CreateRun(ctx context.Context, run *Run) error {
	if run.Groups == nil {
		run.Groups = []snapshot.Group{}
	}
	groups, err := json.Marshal(run.Groups)
	if err != nil {
		return fmt.Errorf("encode groups: %w", err)
	}
	stats, err := json.Marshal(run.Stats)
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}
	run.ID = uuid.NewString()
	run.CreatedAt = now()
	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO runs (id, snapshot_id, group_size, seed, attempts, outcome, groups_json, stats_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		run.ID, run.SnapshotID, run.GroupSize, run.Seed, run.Attempts, run.Outcome, string(groups), string(stats), run.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// ListRuns returns the runs of a snapshot, oldest first.
func (s *Store) ListRuns(ctx context.Context, snapshotID string) ([]Run, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT EXISTS(SELECT 1 FROM snapshots WHERE id = ?)`), snapshotID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check snapshot: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("snapshot %s: %w", snapshotID, ErrNotFound)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, snapshot_id, group_size, seed, attempts, outcome, groups_json, stats_json, created_at
		FROM runs WHERE snapshot_id = ? ORDER BY created_at, id`), snapshotID)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	out := []Run{}
	for rows.Next() {
		var run Run
		var groups, stats string
		if err := rows.Scan(&run.ID, &run.SnapshotID, &run.GroupSize, &run.Seed, &run.Attempts, &run.Outcome, &groups, &stats, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if err := json.Unmarshal([]byte(groups), &run.Groups); err != nil {
			return nil, fmt.Errorf("decode run %s groups: %w", run.ID, err)
		}
		if err := json.Unmarshal([]byte(stats), &run.Stats); err != nil {
			return nil, fmt.Errorf("decode run %s stats: %w", run.ID, err)
		}
		run.CreatedAt = run.CreatedAt.UTC()
		out = append(out, run)
	}
	return out, rows.Err()
}
