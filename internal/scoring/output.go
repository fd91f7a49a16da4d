package scoring

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// WriteRankedCSV writes the finalized ranked table in the column order external
// allocation consumers read (vote_address -> pct being the pair they care
// about).
func WriteRankedCSV(w io.Writer, aggs []Aggregate) error {
	cw := csv.NewWriter(w)
	header := []string{
		"epoch", "rank", "vote_address", "name", "keybase_id",
		"score_records", "base_score", "avg_position", "mult", "avg_score",
		"avg_commission", "avg_data_center_concentration", "avg_epoch_credits",
		"avg_active_stake", "pct",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for i := range aggs {
		agg := &aggs[i]
		row := []string{
			strconv.FormatUint(agg.Epoch, 10),
			strconv.Itoa(agg.Rank),
			agg.VoteAddress,
			agg.Name,
			agg.KeybaseID,
			strconv.Itoa(agg.ScoreRecords),
			strconv.FormatInt(agg.BaseScore, 10),
			fmt.Sprintf("%.4f", agg.AvgPosition),
			fmt.Sprintf("%.4f", agg.Mult),
			strconv.FormatInt(agg.AvgScore, 10),
			fmt.Sprintf("%.2f", agg.AvgCommission),
			fmt.Sprintf("%.4f", agg.AvgConcentration),
			strconv.FormatInt(agg.AvgEpochCredits, 10),
			fmt.Sprintf("%.0f", agg.AvgActiveStake),
			fmt.Sprintf("%.6f", agg.Pct),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
