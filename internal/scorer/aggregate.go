package scorer

import (
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/lead-qualifier/internal/model"
)

// Aggregator filters scored leads by the minimum score, ranks them, and
// truncates to the configured maximum. It never mutates its input.
type Aggregator struct {
	// MinScore is the qualification threshold in [0,100].
	MinScore float64
	// MaxResults caps the output length. 0 means unlimited.
	MaxResults int
}

// Aggregate returns a new slice of qualified leads sorted by descending
// total score. The sort is stable, so leads with equal scores keep their
// incoming (input) order.
func (a Aggregator) Aggregate(leads []model.ScoredLead) []model.ScoredLead {
	qualified := make([]model.ScoredLead, 0, len(leads))
	for _, lead := range leads {
		if lead.TotalScore >= a.MinScore {
			qualified = append(qualified, lead)
		}
	}

	sort.SliceStable(qualified, func(i, j int) bool {
		return qualified[i].TotalScore > qualified[j].TotalScore
	})

	if a.MaxResults > 0 && len(qualified) > a.MaxResults {
		qualified = qualified[:a.MaxResults]
	}

	zap.L().Info("scorer: aggregation complete",
		zap.Int("scored", len(leads)),
		zap.Int("qualified", len(qualified)),
		zap.Float64("min_score", a.MinScore),
	)
	return qualified
}

// Finalize freezes the run statistics: qualified count and average score
// are computed over the qualified set. Elapsed time is left as set by the
// pipeline.
func (a Aggregator) Finalize(stats model.RunStats, qualified []model.ScoredLead) model.RunStats {
	stats.Qualified = len(qualified)

	if len(qualified) > 0 {
		var sum float64
		for _, lead := range qualified {
			sum += lead.TotalScore
		}
		stats.AverageScore = sum / float64(len(qualified))
	}
	return stats
}
