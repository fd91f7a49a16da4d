package scoring

import "math"

// AggregateWindow computes the per-validator trailing-window aggregates for the
// given epoch.  current holds the normalized records of the epoch itself,
// history every stored record in [epoch-(Window-1), epoch] (the current epoch's
// rows included).
//
// Every validator present in the current epoch appears in the output, even with
// zero history or a zero score - downstream health monitoring needs to see
// unscored validators too, so nothing is dropped here.  Disqualification is the
// finalizer's job.
func AggregateWindow(current []Record, history []Record, epoch uint64, p Params) []Aggregate {
	byVote := make(map[string][]*Record, len(current))
	for i := range history {
		rec := &history[i]
		byVote[rec.VoteAddress] = append(byVote[rec.VoteAddress], rec)
	}

	aggs := make([]Aggregate, 0, len(current))
	for i := range current {
		cur := &current[i]
		agg := Aggregate{
			Epoch:       epoch,
			VoteAddress: cur.VoteAddress,
			Name:        cur.Name,
			KeybaseID:   cur.KeybaseID,
			Score:       cur.Score,
		}

		window := byVote[cur.VoteAddress]
		agg.ScoreRecords = len(window)
		if n := float64(len(window)); n > 0 {
			var adjSum, creditSum float64
			for _, rec := range window {
				adjSum += float64(rec.AdjCredits)
				agg.AvgPosition += rec.AvgPosition
				agg.AvgCommission += float64(rec.Commission)
				agg.AvgConcentration += rec.DataCenterConcentration
				creditSum += float64(rec.EpochCredits)
				agg.AvgActiveStake += float64(rec.ActiveStake)
			}
			agg.BaseScore = int64(math.Round(adjSum / n))
			agg.AvgPosition /= n
			agg.AvgCommission /= n
			agg.AvgConcentration /= n
			agg.AvgEpochCredits = int64(math.Round(creditSum / n))
			agg.AvgActiveStake /= n
		}
		agg.Mult = agg.AvgPosition - p.PositionCenter

		aggs = append(aggs, agg)
	}
	return aggs
}

// WindowStart returns the first epoch of the trailing window ending at epoch.
func WindowStart(epoch uint64, p Params) uint64 {
	span := uint64(p.Window - 1)
	if epoch < span {
		return 0
	}
	return epoch - span
}
