package scoring

import (
	"math"
	"sort"
)

// Finalize turns the windowed aggregates into the ranked allocation table,
// in place:
//
//   - AvgScore is base_score * mult, zeroed for validators that scored 0 this
//     epoch, have a non-positive multiplier, or have less history than
//     MinScoreRecords.
//   - Rank is a dense rank over AvgScore descending.  Ties are broken by
//     vote address ascending so reruns are reproducible.
//   - Pct distributes 100% across the TopN ranked rows, proportionally to
//     AvgScore; everyone else gets 0.  If every candidate is disqualified the
//     whole column is 0 rather than a division fault.
func Finalize(aggs []Aggregate, p Params) {
	for i := range aggs {
		agg := &aggs[i]
		if agg.Score == 0 || agg.Mult <= 0 || agg.ScoreRecords < p.MinScoreRecords {
			agg.AvgScore = 0
		} else {
			agg.AvgScore = int64(math.Round(float64(agg.BaseScore) * agg.Mult))
		}
	}

	sort.Slice(aggs, func(i, j int) bool {
		if aggs[i].AvgScore != aggs[j].AvgScore {
			return aggs[i].AvgScore > aggs[j].AvgScore
		}
		return aggs[i].VoteAddress < aggs[j].VoteAddress
	})

	rank := 0
	var prevScore int64
	for i := range aggs {
		if i == 0 || aggs[i].AvgScore != prevScore {
			rank++
			prevScore = aggs[i].AvgScore
		}
		aggs[i].Rank = rank
	}

	topN := p.TopN
	if topN > len(aggs) {
		topN = len(aggs)
	}
	var topSum int64
	for i := 0; i < topN; i++ {
		topSum += aggs[i].AvgScore
	}
	for i := range aggs {
		if i < topN && topSum > 0 {
			aggs[i].Pct = float64(aggs[i].AvgScore) / float64(topSum) * 100
		} else {
			aggs[i].Pct = 0
		}
	}
}
