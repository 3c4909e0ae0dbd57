package services

import (
	"fmt"
	"sort"

	"github.com/alimgiray/devpulse/internal/models"
	"github.com/alimgiray/devpulse/internal/repositories"
	"github.com/xuri/excelize/v2"
)

// ReportService is the read path over the persisted developer table
type ReportService struct {
	store repositories.DeveloperStore
}

func NewReportService(store repositories.DeveloperStore) *ReportService {
	return &ReportService{store: store}
}

// GetDevelopersWithScores returns fullname and score pairs in stored order
func (s *ReportService) GetDevelopersWithScores() ([]models.DeveloperScore, error) {
	records, err := s.store.Load()
	if err != nil {
		return nil, err
	}

	scores := make([]models.DeveloperScore, 0, len(records))
	for _, record := range records {
		scores = append(scores, models.DeveloperScore{
			Fullname: record.Fullname,
			Score:    record.Score,
		})
	}
	return scores, nil
}

// GetTiers categorizes the persisted table
func (s *ReportService) GetTiers() (models.Tiers, error) {
	records, err := s.store.Load()
	if err != nil {
		return models.Tiers{}, err
	}
	return Categorize(records), nil
}

// ExportTiers writes an XLSX workbook with a Tiers sheet (tier, fullname,
// score) and a Scores sheet ranked by score.
func (s *ReportService) ExportTiers(path string) error {
	records, err := s.store.Load()
	if err != nil {
		return err
	}

	ranked := make([]*models.DeveloperRecord, len(records))
	copy(ranked, records)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	tiers := Categorize(records)
	tierOf := make(map[*models.DeveloperRecord]string, len(ranked))
	i := 0
	for _, name := range models.TierNames {
		for range tiers.Get(name) {
			tierOf[ranked[i]] = name
			i++
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", "Tiers"); err != nil {
		return err
	}
	if _, err := f.NewSheet("Scores"); err != nil {
		return err
	}

	if err := setRow(f, "Tiers", 1, []interface{}{"tier", "fullname", "score"}); err != nil {
		return err
	}
	if err := setRow(f, "Scores", 1, []interface{}{"username", "fullname", "score", "last_updated", "manager"}); err != nil {
		return err
	}

	for row, record := range ranked {
		if err := setRow(f, "Tiers", row+2, []interface{}{tierOf[record], record.Fullname, record.Score}); err != nil {
			return err
		}
		scoreRow := []interface{}{record.Username, record.Fullname, record.Score, record.LastUpdatedString(), record.ManagerString()}
		if err := setRow(f, "Scores", row+2, scoreRow); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}
