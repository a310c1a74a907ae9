package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/amishk599/jobsync/internal/model"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Ensure SQLStore implements the pipeline's store interfaces.
var (
	_ model.QueryStore = (*SQLStore)(nil)
	_ model.JobWriter  = (*SQLStore)(nil)
)

// SQLStore reads query definitions and writes job postings over database/sql.
// The same statements serve SQLite and PostgreSQL; placeholders are written
// as "?" and rebound for PostgreSQL.
type SQLStore struct {
	db     *sql.DB
	driver string
}

// Open prepares the connection pool without connecting. An unreachable
// database surfaces on first use as model.ErrStoreUnavailable, so a daemon
// started during an outage keeps running and retries on every run. Open
// itself fails only for an unsupported driver or an unparseable DSN.
func Open(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	var sqlDriver string
	switch driver {
	case DriverSQLite:
		sqlDriver = "sqlite"
	case DriverPostgres:
		sqlDriver = "pgx"
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s db: %w", driver, err)
	}

	if driver == DriverSQLite {
		// SQLite allows one writer; a single connection keeps the batch
		// transaction and the duplicate check on the same handle.
		db.SetMaxOpenConns(1)
	}

	return &SQLStore{db: db, driver: driver}, nil
}

// Ping verifies the database is reachable.
func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("pinging %s db: %w: %w", s.driver, model.ErrStoreUnavailable, err)
	}
	return nil
}

// Migrate creates the tables if they do not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	stmts := sqliteSchema
	if s.driver == DriverPostgres {
		stmts = postgresSchema
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrating schema: %w", err)
		}
	}
	return nil
}

// ListQueryDefinitions returns every row of job_queries in storage order.
func (s *SQLStore) ListQueryDefinitions(ctx context.Context) ([]model.QueryDefinition, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, query, page, num_pages, date_posted FROM job_queries")
	if err != nil {
		return nil, fmt.Errorf("listing query definitions: %w: %w", model.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var defs []model.QueryDefinition
	for rows.Next() {
		var d model.QueryDefinition
		var datePosted sql.NullString
		if err := rows.Scan(&d.ID, &d.Query, &d.Page, &d.NumPages, &datePosted); err != nil {
			return nil, fmt.Errorf("scanning query definition: %w", err)
		}
		d.DatePosted = datePosted.String
		defs = append(defs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing query definitions: %w", err)
	}
	return defs, nil
}

// AddQueryDefinition inserts a new saved search and returns its ID.
func (s *SQLStore) AddQueryDefinition(ctx context.Context, def model.QueryDefinition) (int64, error) {
	var datePosted any
	if def.DatePosted != "" {
		datePosted = def.DatePosted
	}

	var id int64
	err := s.db.QueryRowContext(ctx,
		s.rebind("INSERT INTO job_queries (query, page, num_pages, date_posted) VALUES (?, ?, ?, ?) RETURNING id"),
		def.Query, def.Page, def.NumPages, datePosted,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("adding query definition %q: %w", def.Query, err)
	}
	return id, nil
}

// JobExists reports whether a posting with jobID is stored.
func (s *SQLStore) JobExists(ctx context.Context, jobID string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, s.rebind("SELECT 1 FROM jobs WHERE job_id = ?"), jobID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking job %s: %w", jobID, err)
	}
	return true, nil
}

// Stats holds row counts of the ingestion tables.
type Stats struct {
	Queries      int
	Jobs         int
	Benefits     int
	ApplyOptions int
	Highlights   int
}

// Stats counts the rows of every table.
func (s *SQLStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	counts := []struct {
		table string
		dst   *int
	}{
		{"job_queries", &st.Queries},
		{"jobs", &st.Jobs},
		{"job_benefits", &st.Benefits},
		{"job_apply_options", &st.ApplyOptions},
		{"job_highlights", &st.Highlights},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(c.dst); err != nil {
			return Stats{}, fmt.Errorf("counting %s: %w", c.table, err)
		}
	}
	return st, nil
}

// BeginBatch opens the transaction that holds one query definition's writes.
func (s *SQLStore) BeginBatch(ctx context.Context) (model.JobBatch, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning batch: %w", err)
	}
	return &sqlBatch{tx: tx, rebind: s.rebind}, nil
}

// Close closes the underlying database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// rebind rewrites "?" placeholders to "$1", "$2", ... for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
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
