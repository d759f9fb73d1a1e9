package sql

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bcnelson/servicetag-watcher/internal/domain"
	"github.com/bcnelson/servicetag-watcher/internal/storage"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// currentID is the primary key of the single current snapshot row.
const currentID = 1

// Store implements the storage.SnapshotStore interface using SQL.
type Store struct {
	db     *sqlx.DB
	driver string
}

var _ storage.SnapshotStore = (*Store)(nil)

// New creates a new SQL store.
func New(driver, dsn string) (*Store, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	// Run migrations
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect(driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db.DB, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db, driver: driver}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// snapshotRow is the shared shape of both snapshot tables.
type snapshotRow struct {
	ChangeNumber int    `db:"change_number"`
	Body         string `db:"body"`
}

// ============================================
// Current snapshot
// ============================================

func (s *Store) GetCurrent(ctx context.Context) (*domain.Dataset, error) {
	var row snapshotRow
	err := s.db.GetContext(ctx, &row,
		`SELECT change_number, body FROM current_snapshot WHERE id = $1`, currentID)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decode(row.Body)
}

func (s *Store) PutCurrent(ctx context.Context, ds *domain.Dataset) error {
	body, err := json.Marshal(ds)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO current_snapshot (id, change_number, body, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET
		   change_number = excluded.change_number,
		   body = excluded.body,
		   updated_at = excluded.updated_at`,
		currentID, ds.ChangeNumber, string(body), time.Now().UTC())
	return err
}

// ============================================
// Historical snapshots
// ============================================

func (s *Store) GetHistorical(ctx context.Context, date string) (*domain.Dataset, error) {
	if err := storage.CheckDate(date); err != nil {
		return nil, err
	}
	var row snapshotRow
	err := s.db.GetContext(ctx, &row,
		`SELECT change_number, body FROM history_snapshots WHERE snapshot_date = $1`, date)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decode(row.Body)
}

func (s *Store) PutHistorical(ctx context.Context, date string, ds *domain.Dataset) error {
	if err := storage.CheckDate(date); err != nil {
		return err
	}
	body, err := json.Marshal(ds)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO history_snapshots (snapshot_date, change_number, service_count, prefix_count, body, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (snapshot_date) DO UPDATE SET
		   change_number = excluded.change_number,
		   service_count = excluded.service_count,
		   prefix_count = excluded.prefix_count,
		   body = excluded.body,
		   created_at = excluded.created_at`,
		date, ds.ChangeNumber, len(ds.Values), ds.PrefixCount(), string(body), time.Now().UTC())
	return err
}

func (s *Store) ListHistorical(ctx context.Context) ([]string, error) {
	dates := []string{}
	err := s.db.SelectContext(ctx, &dates,
		`SELECT snapshot_date FROM history_snapshots ORDER BY snapshot_date ASC`)
	if err != nil {
		return nil, err
	}
	return dates, nil
}

func (s *Store) DeleteHistorical(ctx context.Context, date string) error {
	if err := storage.CheckDate(date); err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `DELETE FROM history_snapshots WHERE snapshot_date = $1`, date)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func decode(body string) (*domain.Dataset, error) {
	var ds domain.Dataset
	if err := json.Unmarshal([]byte(body), &ds); err != nil {
		return nil, errors.Join(domain.ErrCorrupt, err)
	}
	return &ds, nil
}
