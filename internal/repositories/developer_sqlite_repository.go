package repositories

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alimgiray/devpulse/internal/models"
	"github.com/alimgiray/devpulse/pkg/database"
	"github.com/alimgiray/devpulse/pkg/logger"
	"github.com/sirupsen/logrus"
)

// SQLiteDeveloperRepository stores the developer table in a SQLite database.
// Row order is kept in the row_order column.
type SQLiteDeveloperRepository struct {
	path       string
	sortColumn string
}

func NewSQLiteDeveloperRepository(path, sortColumn string) (*SQLiteDeveloperRepository, error) {
	if !isDeveloperColumn(sortColumn) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSortColumn, sortColumn)
	}
	return &SQLiteDeveloperRepository{
		path:       path,
		sortColumn: sortColumn,
	}, nil
}

func (r *SQLiteDeveloperRepository) Path() string {
	return r.path
}

// Load reads every developer in stored order
func (r *SQLiteDeveloperRepository) Load() ([]*models.DeveloperRecord, error) {
	exists, err := fileExists(r.path)
	if err != nil {
		return nil, &StorageError{Op: "load", Path: r.path, Err: err}
	}
	if !exists {
		return warnMissing(r.path), nil
	}

	db, err := database.Open(r.path)
	if err != nil {
		return nil, &StorageError{Op: "load", Path: r.path, Err: err}
	}
	defer db.Close()

	query := `
		SELECT username, fullname, commits, pull_requests, reviews, repositories_contributed,
		       lines_added, lines_removed, score, last_updated, manager
		FROM developers
		ORDER BY row_order ASC
	`

	rows, err := db.Query(query)
	if err != nil {
		return nil, &StorageError{Op: "load", Path: r.path, Err: err}
	}
	defer rows.Close()

	// Every column is scanned as text and coerced like the file backends do,
	// so a hand-edited value never fails the load.
	mapper := newRowMapper(models.DeveloperColumns)
	var records []*models.DeveloperRecord
	for rows.Next() {
		values := make([]sql.NullString, len(models.DeveloperColumns))
		dest := make([]interface{}, len(values))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, &StorageError{Op: "load", Path: r.path, Err: err}
		}

		row := make([]string, len(values))
		for i, v := range values {
			row[i] = v.String
		}
		records = append(records, mapper.toRecord(row))
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "load", Path: r.path, Err: err}
	}

	records = dedupe(records, r.path)
	logger.WithFields(logrus.Fields{"path": r.path, "records": len(records)}).Debug("Loaded developer table")
	return records, nil
}

// Save replaces the table content inside one transaction
func (r *SQLiteDeveloperRepository) Save(records []*models.DeveloperRecord) error {
	prepared, err := prepareForSave(records, r.sortColumn)
	if err != nil {
		return fmt.Errorf("save %s: %w", r.path, err)
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return &StorageError{Op: "save", Path: r.path, Err: err}
	}

	db, err := database.Open(r.path)
	if err != nil {
		return &StorageError{Op: "save", Path: r.path, Err: err}
	}
	defer db.Close()

	if err := r.replaceAll(db, prepared); err != nil {
		return &StorageError{Op: "save", Path: r.path, Err: err}
	}

	logger.WithFields(logrus.Fields{"path": r.path, "records": len(prepared)}).Debug("Saved developer table")
	return nil
}

func (r *SQLiteDeveloperRepository) replaceAll(db *sql.DB, records []*models.DeveloperRecord) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM developers`); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO developers (
			username, fullname, commits, pull_requests, reviews, repositories_contributed,
			lines_added, lines_removed, score, last_updated, manager, row_order
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, record := range records {
		var lastUpdated, manager interface{}
		if record.LastUpdated != nil {
			lastUpdated = record.LastUpdatedString()
		}
		if record.Manager != nil {
			manager = *record.Manager
		}

		_, err := stmt.Exec(
			record.Username, record.Fullname, record.Commits, record.PullRequests, record.Reviews,
			record.RepositoriesContributed, record.LinesAdded, record.LinesRemoved, record.Score,
			lastUpdated, manager, i,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}
