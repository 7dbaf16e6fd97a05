// Package store persists transformed batches in SQLite. The schema is
// managed by golang-migrate from migrations embedded in the binary.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/kinematics/internal/event"
	"github.com/banshee-data/kinematics/internal/monitoring"
	"github.com/banshee-data/kinematics/internal/table"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrRunNotFound is returned by LoadRun for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// RunMeta describes one stored pipeline run.
type RunMeta struct {
	ID          string
	Mode        string
	VelocityMPS float64
	Source      string
	Events      int
	Failed      int
	Missing     int
	Duration    time.Duration
	CreatedAt   time.Time
}

// Store wraps a SQLite database holding runs and their output rows.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and applies any
// pending migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases coherent and
	// serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SchemaVersion reports the applied migration version.
func (s *Store) SchemaVersion() (uint, bool, error) {
	m, err := s.newMigrate()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func (s *Store) migrateUp() error {
	m, err := s.newMigrate()
	if err != nil {
		return err
	}
	// m is not closed: that would close s.db as well.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

func (s *Store) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = migrateLogger{}
	return m, nil
}

// migrateLogger routes golang-migrate output through monitoring.Logf.
type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...interface{}) {
	monitoring.Logf("[migrate] "+strings.TrimSuffix(format, "\n"), v...)
}

func (migrateLogger) Verbose() bool { return false }

var insertRowSQL = func() string {
	cols := append([]string{"run_id", "row_index", "failed"}, event.ColumnNames()...)
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	return fmt.Sprintf("INSERT INTO run_rows (%s) VALUES (%s)", strings.Join(cols, ", "), marks)
}()

var selectRowsSQL = fmt.Sprintf(
	"SELECT failed, %s FROM run_rows WHERE run_id = ? ORDER BY row_index",
	strings.Join(event.ColumnNames(), ", "),
)

// SaveRun stores meta and every row of t in one transaction. An empty
// meta.ID is replaced with a fresh UUID and a zero CreatedAt with the
// current time. The stored id is returned.
func (s *Store) SaveRun(ctx context.Context, meta RunMeta, t *table.Table) (string, error) {
	if meta.ID == "" {
		meta.ID = uuid.New().String()
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = s.now()
	}
	if meta.Events == 0 {
		meta.Events = t.Len()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, mode, velocity_mps, source, events, failed, missing, duration_ns, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		meta.ID, meta.Mode, meta.VelocityMPS, meta.Source, meta.Events, meta.Failed,
		meta.Missing, int64(meta.Duration), meta.CreatedAt.UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertRowSQL)
	if err != nil {
		return "", fmt.Errorf("prepare row insert: %w", err)
	}
	defer stmt.Close()

	args := make([]interface{}, 3+event.NumColumns)
	for i := 0; i < t.Len(); i++ {
		args[0], args[1], args[2] = meta.ID, i, t.Failed(i)
		for c, v := range t.Values(i) {
			args[3+c] = v
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return "", fmt.Errorf("insert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit run: %w", err)
	}
	return meta.ID, nil
}

// LoadRun reads back a run and its rows in their original order.
func (s *Store) LoadRun(ctx context.Context, id string) (RunMeta, *table.Table, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, mode, velocity_mps, source, events, failed, missing, duration_ns, created_at
		FROM runs WHERE run_id = ?`, id)
	meta, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunMeta{}, nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return RunMeta{}, nil, fmt.Errorf("query run %s: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx, selectRowsSQL, id)
	if err != nil {
		return RunMeta{}, nil, fmt.Errorf("query rows of %s: %w", id, err)
	}
	defer rows.Close()

	t := table.New(meta.Events)
	var (
		failed bool
		stored [event.NumColumns]sql.NullFloat64
		vals   [event.NumColumns]float64
	)
	dest := make([]interface{}, 1+event.NumColumns)
	dest[0] = &failed
	for c := range stored {
		dest[1+c] = &stored[c]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return RunMeta{}, nil, fmt.Errorf("scan row: %w", err)
		}
		if failed {
			t.AppendFailed()
			continue
		}
		// SQLite keeps NaN as NULL.
		for c, v := range stored {
			vals[c] = math.NaN()
			if v.Valid {
				vals[c] = v.Float64
			}
		}
		t.Append(event.TransformedFromValues(vals))
	}
	if err := rows.Err(); err != nil {
		return RunMeta{}, nil, err
	}
	return meta, t, nil
}

// ListRuns returns stored runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]RunMeta, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, mode, velocity_mps, source, events, failed, missing, duration_ns, created_at
		FROM runs ORDER BY created_at DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunMeta
	for rows.Next() {
		meta, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, meta)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run and its rows.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE run_id = ?", id)
	if err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(sc scanner) (RunMeta, error) {
	var (
		meta       RunMeta
		durationNs int64
		createdNs  int64
	)
	err := sc.Scan(&meta.ID, &meta.Mode, &meta.VelocityMPS, &meta.Source, &meta.Events,
		&meta.Failed, &meta.Missing, &durationNs, &createdNs)
	if err != nil {
		return RunMeta{}, err
	}
	meta.Duration = time.Duration(durationNs)
	meta.CreatedAt = time.Unix(0, createdNs)
	return meta, nil
}
