package scoring

import "math"

// ComputeShares fills in the per-epoch derived columns that only depend on the
// epoch itself: each validator's share of the epoch's total score (Pct), its
// share of the epoch's active stake (StakeConc), and its adjusted credits.
//
// An epoch where every score (or every stake) is zero yields 0 shares across the
// board rather than a division fault.
func ComputeShares(records []Record, p Params) {
	var totalScore, totalStake int64
	for i := range records {
		totalScore += records[i].Score
		totalStake += records[i].ActiveStake
	}
	for i := range records {
		rec := &records[i]
		if totalScore > 0 {
			rec.Pct = round4(float64(rec.Score) * 100 / float64(totalScore))
		} else {
			rec.Pct = 0
		}
		if totalStake > 0 {
			rec.StakeConc = round4(float64(rec.ActiveStake) * 100 / float64(totalStake))
		} else {
			rec.StakeConc = 0
		}
		rec.AdjCredits = adjustedCredits(rec, p)
	}
}

// adjustedCredits discounts epoch credits by commission and data-center
// concentration.  The multiplier is clamped at zero: a validator at 100%
// commission in a crowded data center earns no adjusted credits, not negative
// ones.
func adjustedCredits(rec *Record, p Params) int64 {
	mult := 100 - p.CommissionWeight*float64(rec.Commission) - p.ConcentrationWeight*rec.DataCenterConcentration
	if mult < 0 {
		mult = 0
	}
	return int64(math.Floor(float64(rec.EpochCredits) * mult / 100))
}

// RefPopulation is the set of historical records above the minimum-credits
// floor, reduced to the sum and count needed for its average adjusted credits.
type RefPopulation struct {
	Sum   int64
	Count int64
}

// Add widens the population with the qualifying records of the epoch being
// ingested, so the very first epoch can serve as its own reference.
func (r *RefPopulation) Add(records []Record, floor int64) {
	for i := range records {
		if records[i].AdjCredits > floor {
			r.Sum += records[i].AdjCredits
			r.Count++
		}
	}
}

func (r RefPopulation) Avg() float64 {
	if r.Count == 0 {
		return 0
	}
	return float64(r.Sum) / float64(r.Count)
}

// ApplyPositions overwrites each record's avg_position, re-ranking it against
// the reference population: a validator earning exactly the reference average
// lands at position 50.  ComputeShares must have run first.
func ApplyPositions(records []Record, ref RefPopulation) error {
	refAvg := ref.Avg()
	if refAvg <= 0 {
		return ErrEmptyReferenceSet
	}
	for i := range records {
		records[i].AvgPosition = float64(records[i].AdjCredits) * 50 / refAvg
	}
	return nil
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
