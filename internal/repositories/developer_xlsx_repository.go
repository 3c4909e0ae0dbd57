package repositories

import (
	"fmt"
	"io"

	"github.com/alimgiray/devpulse/internal/models"
	"github.com/alimgiray/devpulse/pkg/logger"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// DeveloperSheet is the worksheet holding the developer table
const DeveloperSheet = "developers"

// XLSXDeveloperRepository stores the developer table in an Excel workbook
type XLSXDeveloperRepository struct {
	path       string
	sortColumn string
}

func NewXLSXDeveloperRepository(path, sortColumn string) (*XLSXDeveloperRepository, error) {
	if !isDeveloperColumn(sortColumn) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSortColumn, sortColumn)
	}
	return &XLSXDeveloperRepository{
		path:       path,
		sortColumn: sortColumn,
	}, nil
}

func (r *XLSXDeveloperRepository) Path() string {
	return r.path
}

// Load reads the developers sheet, or the first sheet when it is missing
func (r *XLSXDeveloperRepository) Load() ([]*models.DeveloperRecord, error) {
	exists, err := fileExists(r.path)
	if err != nil {
		return nil, &StorageError{Op: "load", Path: r.path, Err: err}
	}
	if !exists {
		return warnMissing(r.path), nil
	}

	f, err := excelize.OpenFile(r.path)
	if err != nil {
		return nil, &StorageError{Op: "load", Path: r.path, Err: err}
	}
	defer f.Close()

	sheet := DeveloperSheet
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return []*models.DeveloperRecord{}, nil
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
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
	logger.WithFields(logrus.Fields{"path": r.path, "sheet": sheet, "records": len(records)}).Debug("Loaded developer table")
	return records, nil
}

// Save rewrites the workbook with a single developers sheet
func (r *XLSXDeveloperRepository) Save(records []*models.DeveloperRecord) error {
	prepared, err := prepareForSave(records, r.sortColumn)
	if err != nil {
		return fmt.Errorf("save %s: %w", r.path, err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", DeveloperSheet); err != nil {
		return &StorageError{Op: "save", Path: r.path, Err: err}
	}

	header := make([]interface{}, len(models.DeveloperColumns))
	for i, column := range models.DeveloperColumns {
		header[i] = column
	}
	if err := f.SetSheetRow(DeveloperSheet, "A1", &header); err != nil {
		return &StorageError{Op: "save", Path: r.path, Err: err}
	}

	for i, record := range prepared {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return &StorageError{Op: "save", Path: r.path, Err: err}
		}
		row := xlsxRow(record)
		if err := f.SetSheetRow(DeveloperSheet, cell, &row); err != nil {
			return &StorageError{Op: "save", Path: r.path, Err: err}
		}
	}

	err = writeFileAtomic(r.path, func(w io.Writer) error {
		_, err := f.WriteTo(w)
		return err
	})
	if err != nil {
		return &StorageError{Op: "save", Path: r.path, Err: err}
	}

	logger.WithFields(logrus.Fields{"path": r.path, "records": len(prepared)}).Debug("Saved developer table")
	return nil
}

// xlsxRow keeps counters numeric so the sheet stays sortable in Excel.
// Dates are written as text to avoid locale-dependent date formats.
func xlsxRow(r *models.DeveloperRecord) []interface{} {
	return []interface{}{
		r.Username,
		r.Fullname,
		r.Commits,
		r.PullRequests,
		r.Reviews,
		r.RepositoriesContributed,
		r.LinesAdded,
		r.LinesRemoved,
		r.Score,
		r.LastUpdatedString(),
		r.ManagerString(),
	}
}
