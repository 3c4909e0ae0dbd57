package repositories

import (
	"encoding/csv"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alimgiray/devpulse/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var backends = []struct {
	name string
	file string
}{
	{name: "csv", file: "developers.csv"},
	{name: "xlsx", file: "developers.xlsx"},
	{name: "sqlite", file: "developers.db"},
}

func date(value string) *time.Time {
	t, err := time.Parse(models.DateLayout, value)
	if err != nil {
		panic(err)
	}
	return &t
}

func str(value string) *string {
	return &value
}

func testDevelopers() []*models.DeveloperRecord {
	return []*models.DeveloperRecord{
		{
			Username:                "user2",
			Fullname:                "User Two",
			Manager:                 str("Manager B"),
			LastUpdated:             nil,
			Score:                   0,
			Commits:                 0,
			PullRequests:            0,
			Reviews:                 0,
			RepositoriesContributed: 0,
		},
		{
			Username:                "user1",
			Fullname:                "User One",
			Commits:                 10,
			PullRequests:            5,
			Reviews:                 1,
			RepositoriesContributed: 2,
			LinesAdded:              100,
			LinesRemoved:            50,
			Score:                   20,
			LastUpdated:             date("2025-04-20"),
			Manager:                 str("Manager A"),
		},
	}
}

func newStore(t *testing.T, file, sortColumn string) DeveloperStore {
	t.Helper()
	store, err := NewDeveloperStore(filepath.Join(t.TempDir(), file), sortColumn)
	require.NoError(t, err)
	return store
}

func usernames(records []*models.DeveloperRecord) []string {
	names := make([]string, len(records))
	for i, r := range records {
		names[i] = r.Username
	}
	return names
}

func TestNewDeveloperStoreSelectsBackend(t *testing.T) {
	testCases := []struct {
		path     string
		expected interface{}
	}{
		{path: "people.csv", expected: &CSVDeveloperRepository{}},
		{path: "people", expected: &CSVDeveloperRepository{}},
		{path: "people.XLSX", expected: &XLSXDeveloperRepository{}},
		{path: "people.sqlite3", expected: &SQLiteDeveloperRepository{}},
		{path: "people.db", expected: &SQLiteDeveloperRepository{}},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			store, err := NewDeveloperStore(tc.path, models.ColumnFullname)
			require.NoError(t, err)
			assert.IsType(t, tc.expected, store)
			assert.Equal(t, tc.path, store.Path())
		})
	}
}

func TestNewDeveloperStoreRejectsUnknownSortColumn(t *testing.T) {
	_, err := NewDeveloperStore("people.csv", "issues")
	assert.ErrorIs(t, err, ErrUnknownSortColumn)

	_, err = NewDeveloperStore("", models.ColumnFullname)
	assert.Error(t, err)
}

func TestLoadMissingTableReturnsEmpty(t *testing.T) {
	for _, backend := range backends {
		t.Run(backend.name, func(t *testing.T) {
			store := newStore(t, backend.file, models.ColumnFullname)

			records, err := store.Load()
			require.NoError(t, err)
			assert.NotNil(t, records)
			assert.Empty(t, records)

			_, statErr := os.Stat(store.Path())
			assert.True(t, errors.Is(statErr, os.ErrNotExist), "load must not create the table")
		})
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	for _, backend := range backends {
		t.Run(backend.name, func(t *testing.T) {
			store := newStore(t, backend.file, models.ColumnFullname)
			require.NoError(t, store.Save(testDevelopers()))

			records, err := store.Load()
			require.NoError(t, err)
			require.Len(t, records, 2)

			// sorted by fullname
			assert.Equal(t, "User One", records[0].Fullname)
			assert.Equal(t, "User Two", records[1].Fullname)

			one := records[0]
			assert.Equal(t, "user1", one.Username)
			assert.Equal(t, 10, one.Commits)
			assert.Equal(t, 5, one.PullRequests)
			assert.Equal(t, 1, one.Reviews)
			assert.Equal(t, 2, one.RepositoriesContributed)
			assert.Equal(t, 100, one.LinesAdded)
			assert.Equal(t, 50, one.LinesRemoved)
			assert.Equal(t, 20, one.Score)
			assert.Equal(t, "2025-04-20", one.LastUpdatedString())
			assert.Equal(t, "Manager A", one.ManagerString())

			two := records[1]
			assert.Nil(t, two.LastUpdated)
			assert.Equal(t, "Manager B", two.ManagerString())
		})
	}
}

func TestSaveAppliesSortColumnWithNullsLast(t *testing.T) {
	records := []*models.DeveloperRecord{
		{Username: "c", Fullname: "Carol", Score: 50, LastUpdated: date("2025-03-01")},
		{Username: "a", Fullname: "", Score: 10},
		{Username: "b", Fullname: "Bob", Score: 90, LastUpdated: date("2025-01-01"), Manager: str("Zed")},
		{Username: "d", Fullname: "Alice", Score: 10, Manager: str("Amy")},
	}

	testCases := []struct {
		column   string
		expected []string
	}{
		{column: models.ColumnFullname, expected: []string{"d", "b", "c", "a"}},
		{column: models.ColumnScore, expected: []string{"a", "d", "c", "b"}},
		{column: models.ColumnLastUpdated, expected: []string{"b", "c", "a", "d"}},
		{column: models.ColumnManager, expected: []string{"d", "b", "c", "a"}},
		{column: models.ColumnUsername, expected: []string{"a", "b", "c", "d"}},
	}

	for _, backend := range backends {
		for _, tc := range testCases {
			t.Run(backend.name+"/"+tc.column, func(t *testing.T) {
				store := newStore(t, backend.file, tc.column)
				require.NoError(t, store.Save(records))

				loaded, err := store.Load()
				require.NoError(t, err)
				assert.Equal(t, tc.expected, usernames(loaded))
			})
		}
	}

	// the caller's slice keeps its order
	assert.Equal(t, []string{"c", "a", "b", "d"}, usernames(records))
}

func TestSaveRejectsDuplicateAndEmptyUsernames(t *testing.T) {
	for _, backend := range backends {
		t.Run(backend.name, func(t *testing.T) {
			store := newStore(t, backend.file, models.ColumnFullname)
			require.NoError(t, store.Save(testDevelopers()))

			err := store.Save([]*models.DeveloperRecord{
				{Username: "dup", Fullname: "First"},
				{Username: "dup", Fullname: "Second"},
			})
			assert.ErrorIs(t, err, models.ErrDuplicateUsername)

			err = store.Save([]*models.DeveloperRecord{{Fullname: "No Name"}})
			assert.ErrorIs(t, err, models.ErrUsernameRequired)

			// previous table is still visible
			records, err := store.Load()
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"user1", "user2"}, usernames(records))
		})
	}
}

func TestSaveEmptyTableKeepsSchema(t *testing.T) {
	for _, backend := range backends {
		t.Run(backend.name, func(t *testing.T) {
			store := newStore(t, backend.file, models.ColumnFullname)
			require.NoError(t, store.Save(nil))

			records, err := store.Load()
			require.NoError(t, err)
			assert.Empty(t, records)
		})
	}
}

func TestCSVSaveWritesFixedHeader(t *testing.T) {
	store := newStore(t, "developers.csv", models.ColumnFullname)
	require.NoError(t, store.Save([]*models.DeveloperRecord{
		{Username: "dev1", Fullname: "Developer 1", Score: 90},
	}))

	file, err := os.Open(store.Path())
	require.NoError(t, err)
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, models.DeveloperColumns, rows[0])
	assert.Equal(t, []string{"dev1", "Developer 1", "0", "0", "0", "0", "0", "0", "90", "", ""}, rows[1])
}

func TestXLSXSaveWritesFixedHeader(t *testing.T) {
	store := newStore(t, "developers.xlsx", models.ColumnFullname)
	require.NoError(t, store.Save(testDevelopers()))

	f, err := excelize.OpenFile(store.Path())
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(DeveloperSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, models.DeveloperColumns, rows[0])
}

func TestCSVLoadReindexesToSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "people.csv")
	content := "fullname,username,score,team,last_updated,commits\n" +
		"Ada Lovelace,ada,87.0,core,2025-04-20,12\n" +
		"Grace Hopper,grace,not-a-number,infra,someday,-4\n" +
		",,,,,\n" +
		"Ada Again,ada,1,core,,1\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	store, err := NewCSVDeveloperRepository(path, models.ColumnFullname)
	require.NoError(t, err)

	records, err := store.Load()
	require.NoError(t, err)
	require.Len(t, records, 2)

	ada := records[0]
	assert.Equal(t, "ada", ada.Username)
	assert.Equal(t, "Ada Lovelace", ada.Fullname)
	assert.Equal(t, 87, ada.Score)
	assert.Equal(t, 12, ada.Commits)
	assert.Equal(t, 0, ada.Reviews)
	assert.Equal(t, "2025-04-20", ada.LastUpdatedString())
	assert.Nil(t, ada.Manager)

	grace := records[1]
	assert.Equal(t, 0, grace.Score)
	assert.Equal(t, 0, grace.Commits)
	assert.Nil(t, grace.LastUpdated)

	// saving drops the unknown column and restores the fixed order
	require.NoError(t, store.Save(records))
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()
	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, models.DeveloperColumns, rows[0])
}

func TestLoadFailuresAreStorageErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("csv path is a directory", func(t *testing.T) {
		path := filepath.Join(dir, "table.csv")
		require.NoError(t, os.Mkdir(path, 0755))

		store, err := NewCSVDeveloperRepository(path, models.ColumnFullname)
		require.NoError(t, err)

		_, err = store.Load()
		var storageErr *StorageError
		require.ErrorAs(t, err, &storageErr)
		assert.Equal(t, "load", storageErr.Op)
		assert.Equal(t, path, storageErr.Path)
	})

	t.Run("xlsx is corrupt", func(t *testing.T) {
		path := filepath.Join(dir, "table.xlsx")
		require.NoError(t, os.WriteFile(path, []byte("definitely not a zip"), 0644))

		store, err := NewXLSXDeveloperRepository(path, models.ColumnFullname)
		require.NoError(t, err)

		_, err = store.Load()
		var storageErr *StorageError
		assert.ErrorAs(t, err, &storageErr)
	})

	t.Run("sqlite is corrupt", func(t *testing.T) {
		path := filepath.Join(dir, "table.db")
		require.NoError(t, os.WriteFile(path, []byte("definitely not a database, just plain text padding it out"), 0644))

		store, err := NewSQLiteDeveloperRepository(path, models.ColumnFullname)
		require.NoError(t, err)

		_, err = store.Load()
		var storageErr *StorageError
		assert.ErrorAs(t, err, &storageErr)
	})
}

func TestSaveFailureKeepsPreviousTable(t *testing.T) {
	for _, backend := range backends[:2] {
		t.Run(backend.name, func(t *testing.T) {
			store := newStore(t, backend.file, models.ColumnUsername)
			require.NoError(t, store.Save(testDevelopers()))

			before, err := os.ReadFile(store.Path())
			require.NoError(t, err)

			// a write that dies halfway through replacing the table
			err = writeFileAtomic(store.Path(), func(w io.Writer) error {
				if _, err := w.Write([]byte("username,fullname\nhalf")); err != nil {
					return err
				}
				return errors.New("disk full")
			})
			require.EqualError(t, err, "disk full")

			after, err := os.ReadFile(store.Path())
			require.NoError(t, err)
			assert.Equal(t, before, after)

			records, err := store.Load()
			require.NoError(t, err)
			assert.Equal(t, []string{"user1", "user2"}, usernames(records))
			assert.Equal(t, 20, records[0].Score)

			entries, err := os.ReadDir(filepath.Dir(store.Path()))
			require.NoError(t, err)
			assert.Len(t, entries, 1, "temp file is removed after a failed write")
		})
	}
}

func TestSaveFailureIsStorageError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	store, err := NewCSVDeveloperRepository(filepath.Join(blocker, "people.csv"), models.ColumnFullname)
	require.NoError(t, err)

	err = store.Save(testDevelopers())
	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "save", storageErr.Op)
}

func TestParseCount(t *testing.T) {
	testCases := []struct {
		name     string
		value    string
		expected int
	}{
		{name: "Empty", value: "", expected: 0},
		{name: "Integer", value: "42", expected: 42},
		{name: "Spreadsheet float", value: "12.0", expected: 12},
		{name: "Rounded float", value: "2.5", expected: 3},
		{name: "Negative", value: "-7", expected: -7},
		{name: "Garbage", value: "lots", expected: 0},
		{name: "NaN", value: "NaN", expected: 0},
		{name: "Infinity", value: "Inf", expected: 0},
		{name: "Huge float", value: "1e300", expected: math.MaxInt},
		{name: "Huge negative float", value: "-1e300", expected: math.MinInt},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, parseCount(tc.value))
		})
	}
}

func TestLoadClampsHugeCounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "people.csv")
	content := "username,fullname,commits,lines_added,score\nuser1,User One,1e300,-1e300,1e300\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	store, err := NewDeveloperStore(path, models.ColumnFullname)
	require.NoError(t, err)

	records, err := store.Load()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, math.MaxInt, records[0].Commits)
	assert.Equal(t, 0, records[0].LinesAdded)
	assert.Equal(t, 100, records[0].Score)
}
