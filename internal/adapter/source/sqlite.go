// Package source reads book records from the SQLite library database.
package source

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"regexp"

	_ "modernc.org/sqlite" // SQLite driver

	"bookrec/internal/domain"
	"bookrec/internal/logging"
	"bookrec/internal/port"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteSource implements port.RecordSource over the books table.
type SQLiteSource struct {
	db    *sql.DB
	path  string
	table string
}

// OpenSQLite opens the database read-only. A missing file is reported as
// domain.ErrSourceUnavailable rather than silently creating an empty database.
func OpenSQLite(path, table string) (*SQLiteSource, error) {
	if !identRe.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: database not found at %s: %v", domain.ErrSourceUnavailable, path, err)
	}

	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", domain.ErrSourceUnavailable, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: connecting to database: %v", domain.ErrSourceUnavailable, err)
	}

	return &SQLiteSource{db: db, path: path, table: table}, nil
}

// Close closes the database connection.
func (s *SQLiteSource) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteSource) Path() string {
	return s.path
}

// ListRecords returns records ordered by rowid, i.e. insertion order.
// Rows with a NULL or empty isbn cannot be keyed and are skipped.
func (s *SQLiteSource) ListRecords(ctx context.Context, filter port.RecordFilter) ([]domain.Book, error) {
	query := fmt.Sprintf(`SELECT isbn, title, author, description, year, poster_url, book_url FROM %s`, s.table)
	if filter.RequireDescription {
		query += ` WHERE description IS NOT NULL AND description != ''`
	}
	query += ` ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: querying %s: %v", domain.ErrSourceUnavailable, s.table, err)
	}
	defer rows.Close()

	var (
		books   []domain.Book
		skipped int
	)
	for rows.Next() {
		var (
			isbn, title, author, description, posterURL, bookURL sql.NullString
			year                                                 sql.NullInt64
		)
		if err := rows.Scan(&isbn, &title, &author, &description, &year, &posterURL, &bookURL); err != nil {
			return nil, fmt.Errorf("%w: scanning row: %v", domain.ErrSourceUnavailable, err)
		}
		if !isbn.Valid || isbn.String == "" {
			skipped++
			continue
		}

		book := domain.Book{
			ISBN:        isbn.String,
			Title:       title.String,
			Author:      author.String,
			Description: description.String,
			PosterURL:   posterURL.String,
			BookURL:     bookURL.String,
		}
		if year.Valid {
			y := int(year.Int64)
			book.Year = &y
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading rows: %v", domain.ErrSourceUnavailable, err)
	}

	if skipped > 0 {
		logging.Debug().Int("skipped", skipped).Str("table", s.table).Msg("skipped rows without isbn")
	}
	return books, nil
}
