package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/lead-qualifier/internal/model"
)

func leadsWithScores(scores ...float64) []model.ScoredLead {
	leads := make([]model.ScoredLead, len(scores))
	for i, s := range scores {
		leads[i] = model.ScoredLead{
			Profile:    model.RawProfile{URL: "https://example.com/in/p"},
			TotalScore: s,
		}
	}
	return leads
}

func TestAggregateFiltersAndSorts(t *testing.T) {
	a := Aggregator{MinScore: 60}

	got := a.Aggregate(leadsWithScores(90, 40, 85, 60))

	scores := make([]float64, len(got))
	for i, l := range got {
		scores[i] = l.TotalScore
	}
	assert.Equal(t, []float64{90, 85, 60}, scores)
}

func TestAggregateTruncates(t *testing.T) {
	a := Aggregator{MinScore: 60, MaxResults: 2}

	got := a.Aggregate(leadsWithScores(90, 40, 85, 60))

	assert.Len(t, got, 2)
	assert.Equal(t, 90.0, got[0].TotalScore)
	assert.Equal(t, 85.0, got[1].TotalScore)
}

func TestAggregateStableOnTies(t *testing.T) {
	a := Aggregator{MinScore: 0}

	leads := leadsWithScores(70, 70, 70)
	leads[0].Profile.URL = "https://example.com/in/first"
	leads[1].Profile.URL = "https://example.com/in/second"
	leads[2].Profile.URL = "https://example.com/in/third"

	got := a.Aggregate(leads)

	assert.Equal(t, "https://example.com/in/first", got[0].Profile.URL)
	assert.Equal(t, "https://example.com/in/second", got[1].Profile.URL)
	assert.Equal(t, "https://example.com/in/third", got[2].Profile.URL)
}

func TestAggregateDoesNotMutateInput(t *testing.T) {
	a := Aggregator{MinScore: 0}

	leads := leadsWithScores(10, 90, 50)
	_ = a.Aggregate(leads)

	assert.Equal(t, 10.0, leads[0].TotalScore)
	assert.Equal(t, 90.0, leads[1].TotalScore)
	assert.Equal(t, 50.0, leads[2].TotalScore)
}

func TestAggregateEmpty(t *testing.T) {
	a := Aggregator{MinScore: 60}

	got := a.Aggregate(nil)
	assert.Empty(t, got)

	got = a.Aggregate(leadsWithScores(10, 20))
	assert.Empty(t, got)
}

func TestFinalize(t *testing.T) {
	a := Aggregator{MinScore: 60}

	stats := model.RunStats{TotalRequested: 5, Succeeded: 4, Failed: 1}
	qualified := leadsWithScores(80, 60)

	got := a.Finalize(stats, qualified)

	assert.Equal(t, 2, got.Qualified)
	assert.InDelta(t, 70.0, got.AverageScore, 0.001)
	assert.InDelta(t, 50.0, got.QualificationRate(), 0.001)
}

func TestFinalizeNoQualified(t *testing.T) {
	a := Aggregator{MinScore: 60}

	got := a.Finalize(model.RunStats{TotalRequested: 3, Succeeded: 3}, nil)

	assert.Zero(t, got.Qualified)
	assert.Zero(t, got.AverageScore)
}
