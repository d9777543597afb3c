package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"plantwatch/internal/types"
)

// CrateStore reads and writes sensor readings in a CrateDB table. Crate
// exposes writes to queries only after a table refresh, which Flush issues.
type CrateStore struct {
	db    DBTX
	table string
	close func()
}

// NewCrateStore creates a store over db for schema.table. closeFn releases
// the underlying pool and may be nil.
func NewCrateStore(db DBTX, schema, table string, closeFn func()) *CrateStore {
	return &CrateStore{
		db:    db,
		table: pgx.Identifier{schema, table}.Sanitize(),
		close: closeFn,
	}
}

// readingColumns is the column list shared by every read; "timestamp" is a
// reserved word in Crate and must stay quoted.
const readingColumns = `id, temperature, humidity, "timestamp"`

func scanReading(row pgx.Row) (types.Reading, error) {
	var r types.Reading
	if err := row.Scan(&r.ID, &r.Temperature, &r.Humidity, &r.Timestamp); err != nil {
		return types.Reading{}, err
	}
	r.Timestamp = r.Timestamp.UTC()
	return r, nil
}

// EnsureSchema creates the readings table when it does not exist.
func (s *CrateStore) EnsureSchema(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS ` + s.table + ` (
		id TEXT PRIMARY KEY,
		temperature DOUBLE PRECISION NOT NULL,
		humidity DOUBLE PRECISION NOT NULL,
		"timestamp" TIMESTAMP WITH TIME ZONE NOT NULL
	)`
	if _, err := s.db.Exec(ctx, query); err != nil {
		return types.ErrPersistence("failed to create reading table", err)
	}
	return nil
}

// Insert appends one reading.
func (s *CrateStore) Insert(ctx context.Context, r types.Reading) error {
	query := `INSERT INTO ` + s.table + ` (` + readingColumns + `) VALUES ($1, $2, $3, $4)`
	if _, err := s.db.Exec(ctx, query, r.ID, r.Temperature, r.Humidity, r.Timestamp); err != nil {
		return types.ErrPersistence("failed to insert reading", err)
	}
	return nil
}

// Flush refreshes the table so that recent inserts are visible to reads.
func (s *CrateStore) Flush(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, `REFRESH TABLE `+s.table); err != nil {
		return types.ErrPersistence("failed to refresh reading table", err)
	}
	return nil
}

// History returns every reading ordered by timestamp, ties broken by id.
func (s *CrateStore) History(ctx context.Context) ([]types.Reading, error) {
	query := `SELECT ` + readingColumns + ` FROM ` + s.table + ` ORDER BY "timestamp" ASC, id ASC`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, types.ErrPersistence("failed to query reading history", err)
	}
	defer rows.Close()

	readings := make([]types.Reading, 0)
	for rows.Next() {
		r, err := scanReading(rows)
		if err != nil {
			return nil, types.ErrPersistence("failed to scan reading", err)
		}
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, types.ErrPersistence("failed to iterate reading history", err)
	}
	return readings, nil
}

// Latest returns the most recent reading, or nil when the table is empty.
func (s *CrateStore) Latest(ctx context.Context) (*types.Reading, error) {
	query := `SELECT ` + readingColumns + ` FROM ` + s.table + ` ORDER BY "timestamp" DESC, id DESC LIMIT 1`
	r, err := scanReading(s.db.QueryRow(ctx, query))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, types.ErrPersistence("failed to query latest reading", err)
	}
	return &r, nil
}

// Ping checks that the table is reachable.
func (s *CrateStore) Ping(ctx context.Context) error {
	var one int
	if err := s.db.QueryRow(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("crate ping: %w", err)
	}
	return nil
}

// Close releases the pool, if one was supplied.
func (s *CrateStore) Close() error {
	if s.close != nil {
		s.close()
	}
	return nil
}
