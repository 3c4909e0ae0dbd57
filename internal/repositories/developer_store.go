package repositories

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alimgiray/devpulse/internal/models"
	"github.com/alimgiray/devpulse/pkg/logger"
	"github.com/sirupsen/logrus"
)

var ErrUnknownSortColumn = errors.New("unknown sort column")

// DeveloperStore owns the persisted developer table
type DeveloperStore interface {
	// Load returns the stored records. A missing table is an empty table.
	Load() ([]*models.DeveloperRecord, error)
	// Save replaces the stored table with records, reindexed to the fixed
	// schema and sorted by the store's sort column.
	Save(records []*models.DeveloperRecord) error
	// Path returns the location of the backing resource
	Path() string
}

// StorageError reports a failure reading or writing the backing resource
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewDeveloperStore picks a backend from the file extension of path:
// .xlsx for spreadsheets, .db/.sqlite/.sqlite3 for SQLite and CSV otherwise.
func NewDeveloperStore(path, sortColumn string) (DeveloperStore, error) {
	if path == "" {
		return nil, errors.New("data path is required")
	}
	if !isDeveloperColumn(sortColumn) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSortColumn, sortColumn)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return NewXLSXDeveloperRepository(path, sortColumn)
	case ".db", ".sqlite", ".sqlite3":
		return NewSQLiteDeveloperRepository(path, sortColumn)
	default:
		return NewCSVDeveloperRepository(path, sortColumn)
	}
}

func isDeveloperColumn(name string) bool {
	for _, column := range models.DeveloperColumns {
		if column == name {
			return true
		}
	}
	return false
}

// prepareForSave enforces the key invariant, normalizes every record and
// returns sorted copies. The input slice is left untouched.
func prepareForSave(records []*models.DeveloperRecord, sortColumn string) ([]*models.DeveloperRecord, error) {
	seen := make(map[string]bool, len(records))
	prepared := make([]*models.DeveloperRecord, 0, len(records))

	for _, record := range records {
		if record == nil || record.Username == "" {
			return nil, models.ErrUsernameRequired
		}
		if seen[record.Username] {
			return nil, fmt.Errorf("%w: %s", models.ErrDuplicateUsername, record.Username)
		}
		seen[record.Username] = true

		c := record.Clone()
		normalizeRecord(c)
		prepared = append(prepared, c)
	}

	sortRecords(prepared, sortColumn)
	return prepared, nil
}

// normalizeRecord clamps counters and score into their valid ranges
func normalizeRecord(r *models.DeveloperRecord) {
	for _, v := range []*int{&r.Commits, &r.PullRequests, &r.Reviews, &r.RepositoriesContributed, &r.LinesAdded, &r.LinesRemoved} {
		if *v < 0 {
			*v = 0
		}
	}
	if r.Score < 0 {
		r.Score = 0
	}
	if r.Score > 100 {
		r.Score = 100
	}
	if r.LastUpdated != nil {
		day := models.TruncateToDate(*r.LastUpdated)
		r.LastUpdated = &day
	}
	if r.Manager != nil && *r.Manager == "" {
		r.Manager = nil
	}
}

// sortRecords orders records ascending by column with nulls last. The sort is
// stable so equal keys keep their incoming order.
func sortRecords(records []*models.DeveloperRecord, column string) {
	sort.SliceStable(records, func(i, j int) bool {
		return lessByColumn(records[i], records[j], column)
	})
}

func lessByColumn(a, b *models.DeveloperRecord, column string) bool {
	switch column {
	case models.ColumnUsername:
		return lessString(a.Username, b.Username)
	case models.ColumnFullname:
		return lessString(a.Fullname, b.Fullname)
	case models.ColumnManager:
		return lessString(a.ManagerString(), b.ManagerString())
	case models.ColumnLastUpdated:
		switch {
		case a.LastUpdated == nil:
			return false
		case b.LastUpdated == nil:
			return true
		}
		return a.LastUpdated.Before(*b.LastUpdated)
	default:
		return intColumn(a, column) < intColumn(b, column)
	}
}

// lessString treats the empty string as null
func lessString(a, b string) bool {
	switch {
	case a == "":
		return false
	case b == "":
		return true
	}
	return a < b
}

func intColumn(r *models.DeveloperRecord, column string) int {
	switch column {
	case models.ColumnCommits:
		return r.Commits
	case models.ColumnPullRequests:
		return r.PullRequests
	case models.ColumnReviews:
		return r.Reviews
	case models.ColumnRepositoriesContributed:
		return r.RepositoriesContributed
	case models.ColumnLinesAdded:
		return r.LinesAdded
	case models.ColumnLinesRemoved:
		return r.LinesRemoved
	case models.ColumnScore:
		return r.Score
	}
	return 0
}

// recordToRow renders a record in DeveloperColumns order
func recordToRow(r *models.DeveloperRecord) []string {
	return []string{
		r.Username,
		r.Fullname,
		strconv.Itoa(r.Commits),
		strconv.Itoa(r.PullRequests),
		strconv.Itoa(r.Reviews),
		strconv.Itoa(r.RepositoriesContributed),
		strconv.Itoa(r.LinesAdded),
		strconv.Itoa(r.LinesRemoved),
		strconv.Itoa(r.Score),
		r.LastUpdatedString(),
		r.ManagerString(),
	}
}

// rowMapper maps a stored header onto the fixed schema. Unknown header
// columns are ignored and missing ones read as empty.
type rowMapper struct {
	index map[string]int
}

func newRowMapper(header []string) *rowMapper {
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, exists := index[name]; !exists {
			index[name] = i
		}
	}

	var dropped []string
	for name := range index {
		if !isDeveloperColumn(name) {
			dropped = append(dropped, name)
		}
	}
	if len(dropped) > 0 {
		sort.Strings(dropped)
		logger.WithField("columns", dropped).Warn("Ignoring columns outside the developer schema")
	}

	return &rowMapper{index: index}
}

func (m *rowMapper) value(row []string, column string) string {
	i, ok := m.index[column]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// toRecord coerces a raw row into a record. Malformed numbers become 0 and
// malformed dates become nil.
func (m *rowMapper) toRecord(row []string) *models.DeveloperRecord {
	r := &models.DeveloperRecord{
		Username:                m.value(row, models.ColumnUsername),
		Fullname:                m.value(row, models.ColumnFullname),
		Commits:                 parseCount(m.value(row, models.ColumnCommits)),
		PullRequests:            parseCount(m.value(row, models.ColumnPullRequests)),
		Reviews:                 parseCount(m.value(row, models.ColumnReviews)),
		RepositoriesContributed: parseCount(m.value(row, models.ColumnRepositoriesContributed)),
		LinesAdded:              parseCount(m.value(row, models.ColumnLinesAdded)),
		LinesRemoved:            parseCount(m.value(row, models.ColumnLinesRemoved)),
		Score:                   parseCount(m.value(row, models.ColumnScore)),
		LastUpdated:             parseDate(m.value(row, models.ColumnLastUpdated)),
	}
	if manager := m.value(row, models.ColumnManager); manager != "" {
		r.Manager = &manager
	}
	normalizeRecord(r)
	return r
}

// parseCount accepts integers and floats such as "12.0", which spreadsheet
// exports produce. Anything else is 0.
func parseCount(value string) int {
	if value == "" {
		return 0
	}
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	// out of range float to int conversion is implementation defined
	f = math.Round(f)
	if f >= math.MaxInt {
		return math.MaxInt
	}
	if f <= math.MinInt {
		return math.MinInt
	}
	return int(f)
}

var dateLayouts = []string{
	models.DateLayout,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

func parseDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			day := models.TruncateToDate(t)
			return &day
		}
	}
	return nil
}

// dedupe keeps the first row of every username and drops rows without one
func dedupe(records []*models.DeveloperRecord, path string) []*models.DeveloperRecord {
	seen := make(map[string]bool, len(records))
	result := make([]*models.DeveloperRecord, 0, len(records))
	for _, r := range records {
		if r.Username == "" {
			logger.WithField("path", path).Warn("Skipping stored row without a username")
			continue
		}
		if seen[r.Username] {
			logger.WithFields(logrus.Fields{"path": path, "username": r.Username}).
				Warn("Skipping duplicate stored row")
			continue
		}
		seen[r.Username] = true
		result = append(result, r)
	}
	return result
}

func warnMissing(path string) []*models.DeveloperRecord {
	logger.WithField("path", path).Warn("Developer table not found, starting with an empty table")
	return []*models.DeveloperRecord{}
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// writeFileAtomic writes through a temp file in the target directory and
// renames it over path, so readers never see a partially written table.
func writeFileAtomic(path string, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if err := write(tmp); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace table: %w", err)
	}

	committed = true
	return nil
}
