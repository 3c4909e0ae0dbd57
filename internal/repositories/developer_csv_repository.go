package repositories

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/alimgiray/devpulse/internal/models"
	"github.com/alimgiray/devpulse/pkg/logger"
	"github.com/sirupsen/logrus"
)

// CSVDeveloperRepository stores the developer table as a CSV file with a header row
type CSVDeveloperRepository struct {
	path       string
	sortColumn string
}

func NewCSVDeveloperRepository(path, sortColumn string) (*CSVDeveloperRepository, error) {
	if !isDeveloperColumn(sortColumn) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSortColumn, sortColumn)
	}
	return &CSVDeveloperRepository{
		path:       path,
		sortColumn: sortColumn,
	}, nil
}

func (r *CSVDeveloperRepository) Path() string {
	return r.path
}

// Load reads the CSV file. A missing file yields an empty table.
func (r *CSVDeveloperRepository) Load() ([]*models.DeveloperRecord, error) {
	file, err := os.Open(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return warnMissing(r.path), nil
		}
		return nil, &StorageError{Op: "load", Path: r.path, Err: err}
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, &StorageError{Op: "load", Path: r.path, Err: err}
	}

	if len(rows) == 0 {
		return []*models.DeveloperRecord{}, nil
	}

	mapper := newRowMapper(rows[0])
	records := make([]*models.DeveloperRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		records = append(records, mapper.toRecord(row))
	}

	records = dedupe(records, r.path)
	logger.WithFields(logrus.Fields{"path": r.path, "records": len(records)}).Debug("Loaded developer table")
	return records, nil
}

// Save rewrites the CSV file in full
func (r *CSVDeveloperRepository) Save(records []*models.DeveloperRecord) error {
	prepared, err := prepareForSave(records, r.sortColumn)
	if err != nil {
		return fmt.Errorf("save %s: %w", r.path, err)
	}

	err = writeFileAtomic(r.path, func(w io.Writer) error {
		writer := csv.NewWriter(w)
		if err := writer.Write(models.DeveloperColumns); err != nil {
			return err
		}
		for _, record := range prepared {
			if err := writer.Write(recordToRow(record)); err != nil {
				return err
			}
		}
		writer.Flush()
		return writer.Error()
	})
	if err != nil {
		return &StorageError{Op: "save", Path: r.path, Err: err}
	}

	logger.WithFields(logrus.Fields{"path": r.path, "records": len(prepared)}).Debug("Saved developer table")
	return nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}
