package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// windowRecords builds n epochs of history ending at `end` with constant values.
func windowRecords(vote string, end uint64, n int, adjCredits int64, avgPos float64) []Record {
	var records []Record
	for i := 0; i < n; i++ {
		records = append(records, Record{
			Epoch:        end - uint64(n-1) + uint64(i),
			VoteAddress:  vote,
			AdjCredits:   adjCredits,
			AvgPosition:  avgPos,
			Commission:   10,
			EpochCredits: adjCredits,
			ActiveStake:  1000,
		})
	}
	return records
}

func TestAggregateWindowAverages(t *testing.T) {
	const epoch = uint64(210)
	history := []Record{
		{Epoch: 206, VoteAddress: "a", AdjCredits: 40000, AvgPosition: 40, Commission: 0, EpochCredits: 41000, ActiveStake: 1000, DataCenterConcentration: 2},
		{Epoch: 208, VoteAddress: "a", AdjCredits: 50000, AvgPosition: 50, Commission: 10, EpochCredits: 52000, ActiveStake: 3000, DataCenterConcentration: 4},
		{Epoch: 210, VoteAddress: "a", AdjCredits: 60000, AvgPosition: 60, Commission: 20, EpochCredits: 63000, ActiveStake: 5000, DataCenterConcentration: 6},
	}
	current := []Record{history[2]}

	aggs := AggregateWindow(current, history, epoch, DefaultParams())
	require.Len(t, aggs, 1)

	agg := aggs[0]
	assert.Equal(t, 3, agg.ScoreRecords)
	assert.EqualValues(t, 50000, agg.BaseScore)
	assert.InDelta(t, 50, agg.AvgPosition, 1e-9)
	assert.InDelta(t, 1, agg.Mult, 1e-9) // 50 - 49
	assert.InDelta(t, 10, agg.AvgCommission, 1e-9)
	assert.InDelta(t, 4, agg.AvgConcentration, 1e-9)
	assert.EqualValues(t, 52000, agg.AvgEpochCredits)
	assert.InDelta(t, 3000, agg.AvgActiveStake, 1e-9)
}

func TestAggregateWindowKeepsUnscoredValidators(t *testing.T) {
	// Every validator in the current epoch must appear in the output, history
	// or not, score or not - health monitoring downstream needs to see them.
	const epoch = uint64(210)
	current := []Record{
		{Epoch: epoch, VoteAddress: "established", Score: 100, AdjCredits: 50000, AvgPosition: 55},
		{Epoch: epoch, VoteAddress: "brand-new", Score: 0, AdjCredits: 0, AvgPosition: 0},
	}
	history := append(windowRecords("established", epoch, 5, 50000, 55), current[1])

	aggs := AggregateWindow(current, history, epoch, DefaultParams())
	require.Len(t, aggs, 2)

	byVote := map[string]Aggregate{}
	for _, agg := range aggs {
		byVote[agg.VoteAddress] = agg
	}
	assert.Equal(t, 5, byVote["established"].ScoreRecords)
	assert.Equal(t, 1, byVote["brand-new"].ScoreRecords)
	assert.Zero(t, byVote["brand-new"].Score)
}

func TestWindowStart(t *testing.T) {
	p := DefaultParams() // window 5
	assert.EqualValues(t, 206, WindowStart(210, p))
	assert.EqualValues(t, 0, WindowStart(3, p)) // no underflow near genesis
	p.Window = 3
	assert.EqualValues(t, 208, WindowStart(210, p))
}
