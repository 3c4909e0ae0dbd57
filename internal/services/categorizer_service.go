package services

import (
	"math"
	"sort"

	"github.com/alimgiray/devpulse/internal/models"
)

// Cumulative share of the ranked population that ends each tier, best first.
// The bottom tier runs from the last cut to the end.
const (
	topCutShare          = 0.10
	aboveAverageCutShare = 0.50
	belowAverageCutShare = 0.80
)

// Categorize ranks records by score (descending, ties keep input order) and
// splits their full names into tiers at round(10%), round(50%) and round(80%)
// of the population. A non-empty population always has at least one top
// developer.
func Categorize(records []*models.DeveloperRecord) models.Tiers {
	var tiers models.Tiers
	n := len(records)
	if n == 0 {
		return tiers
	}

	ranked := make([]*models.DeveloperRecord, n)
	copy(ranked, records)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	// cuts are clamped to [previous cut, n] so tiers never overlap
	previous := 0
	cutAt := func(share float64, minimum int) int {
		cut := int(math.Round(share * float64(n)))
		if cut < minimum {
			cut = minimum
		}
		if cut < previous {
			cut = previous
		}
		if cut > n {
			cut = n
		}
		previous = cut
		return cut
	}

	topCut := cutAt(topCutShare, 1)
	aboveCut := cutAt(aboveAverageCutShare, 0)
	belowCut := cutAt(belowAverageCutShare, 0)

	names := make([]string, n)
	for i, record := range ranked {
		names[i] = record.Fullname
	}

	tiers.Top = names[0:topCut:topCut]
	tiers.AboveAverage = names[topCut:aboveCut:aboveCut]
	tiers.BelowAverage = names[aboveCut:belowCut:belowCut]
	tiers.Bottom = names[belowCut:]

	return tiers
}
