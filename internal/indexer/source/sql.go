package source

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/ingestion"
)

// SQL streams the rows of a query returning (id, contents). It works with
// any database/sql driver; the binaries register lib/pq and
// modernc.org/sqlite.
type SQL struct {
	db    *sql.DB
	query string
}

func NewSQL(db *sql.DB, query string) *SQL {
	return &SQL{db: db, query: query}
}

func (s *SQL) Name() string { return "sql" }

// OpenSQLite opens a SQLite database file through the pure-Go driver.
func OpenSQLite(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", dsn, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite %s: %w", dsn, err)
	}
	return db, nil
}

func (s *SQL) Stream(ctx context.Context, out chan<- ingestion.Document) error {
	rows, err := s.db.QueryContext(ctx, s.query)
	if err != nil {
		return fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id       string
			contents sql.NullString
		)
		if err := rows.Scan(&id, &contents); err != nil {
			return fmt.Errorf("scanning document row: %w", err)
		}
		if err := send(ctx, out, ingestion.Document{ID: id, Contents: contents.String}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating document rows: %w", err)
	}
	return nil
}
