package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeSharesSumTo100(t *testing.T) {
	records := []Record{
		{VoteAddress: "a", Score: 250, ActiveStake: 1_000_000, EpochCredits: 400000},
		{VoteAddress: "b", Score: 100, ActiveStake: 3_000_000, EpochCredits: 350000},
		{VoteAddress: "c", Score: 33, ActiveStake: 500_000, EpochCredits: 300000},
	}
	ComputeShares(records, DefaultParams())

	var pctSum, stakeSum float64
	for _, rec := range records {
		pctSum += rec.Pct
		stakeSum += rec.StakeConc
	}
	assert.InDelta(t, 100, pctSum, 1e-3)
	assert.InDelta(t, 100, stakeSum, 1e-3)
}

func TestComputeSharesAllZeroScores(t *testing.T) {
	records := []Record{
		{VoteAddress: "a", Score: 0, ActiveStake: 0},
		{VoteAddress: "b", Score: 0, ActiveStake: 0},
	}
	ComputeShares(records, DefaultParams())
	for _, rec := range records {
		assert.Zero(t, rec.Pct)
		assert.Zero(t, rec.StakeConc)
	}
}

func TestAdjustedCredits(t *testing.T) {
	testCases := []struct {
		name          string
		commission    int64
		concentration float64
		credits       int64
		want          int64
	}{
		{"no discounts", 0, 0, 400000, 400000},
		{"commission only", 10, 0, 400000, 360000},
		{"concentration weighted 3x", 0, 10, 400000, 280000},
		{"both", 10, 10, 400000, 240000},
		{"floored", 0, 3, 99, 90}, // 99 * 91 / 100 = 90.09
		{"discount beyond 100 clamps to zero", 100, 30, 400000, 0},
	}
	p := DefaultParams()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			records := []Record{{
				VoteAddress:             "a",
				Commission:              tc.commission,
				DataCenterConcentration: tc.concentration,
				EpochCredits:            tc.credits,
			}}
			ComputeShares(records, p)
			assert.Equal(t, tc.want, records[0].AdjCredits)
		})
	}
}

func TestAdjustedCreditsConfigurableWeights(t *testing.T) {
	p := DefaultParams()
	p.ConcentrationWeight = 4
	records := []Record{{VoteAddress: "a", DataCenterConcentration: 10, EpochCredits: 100000}}
	ComputeShares(records, p)
	assert.EqualValues(t, 60000, records[0].AdjCredits)
}

func TestApplyPositions(t *testing.T) {
	records := []Record{
		{VoteAddress: "a", AdjCredits: 50000},
		{VoteAddress: "b", AdjCredits: 25000},
	}
	// reference average of 50000 puts "a" exactly at position 50
	ref := RefPopulation{Sum: 100000, Count: 2}
	require.NoError(t, ApplyPositions(records, ref))
	assert.InDelta(t, 50, records[0].AvgPosition, 1e-9)
	assert.InDelta(t, 25, records[1].AvgPosition, 1e-9)
}

func TestApplyPositionsEmptyReference(t *testing.T) {
	records := []Record{{VoteAddress: "a", AdjCredits: 50000}}
	err := ApplyPositions(records, RefPopulation{})
	assert.ErrorIs(t, err, ErrEmptyReferenceSet)
}

func TestRefPopulationAdd(t *testing.T) {
	ref := RefPopulation{Sum: 90000, Count: 2}
	records := []Record{
		{VoteAddress: "a", AdjCredits: 50000},
		{VoteAddress: "b", AdjCredits: 30000}, // exactly at the floor - excluded
		{VoteAddress: "c", AdjCredits: 10000},
	}
	ref.Add(records, 30000)
	assert.EqualValues(t, 140000, ref.Sum)
	assert.EqualValues(t, 3, ref.Count)
	assert.InDelta(t, 140000.0/3, ref.Avg(), 1e-9)
}
