package scoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	promLastEpoch = promauto.NewGauge(prometheus.GaugeOpts{
		Subsystem: "stakescore",
		Name:      "last_epoch",
	})
	promValidatorCount = promauto.NewGauge(prometheus.GaugeOpts{
		Subsystem: "stakescore",
		Name:      "validator_count",
	})
	promRankedCount = promauto.NewGauge(prometheus.GaugeOpts{
		Subsystem: "stakescore",
		Name:      "ranked_count",
	})
	promAllocatedCount = promauto.NewGauge(prometheus.GaugeOpts{
		Subsystem: "stakescore",
		Name:      "allocated_count",
	})
	promActiveStakeTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Subsystem: "stakescore",
		Name:      "active_stake_total",
	})
)

func updateMetrics(epoch uint64, records []Record, aggs []Aggregate) {
	promLastEpoch.Set(float64(epoch))
	promValidatorCount.Set(float64(len(records)))

	var totalStake int64
	for i := range records {
		totalStake += records[i].ActiveStake
	}
	promActiveStakeTotal.Set(float64(totalStake))

	var ranked, allocated int
	for i := range aggs {
		if aggs[i].AvgScore > 0 {
			ranked++
		}
		if aggs[i].Pct > 0 {
			allocated++
		}
	}
	promRankedCount.Set(float64(ranked))
	promAllocatedCount.Set(float64(allocated))
}
