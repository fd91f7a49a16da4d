package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/valmeter/stakescore/internal/lib/misc"
	"github.com/valmeter/stakescore/internal/scoring"
)

func GetScoreCmdOpts() *cli.Command {
	return &cli.Command{
		Name:    "score",
		Aliases: []string{"s"},
		Usage:   "Recompute the ranked table for an epoch already in history",
		Flags: []cli.Flag{
			&cli.UintFlag{
				Name:  "epoch",
				Usage: "Epoch to score (default: latest in history)",
			},
			&cli.StringFlag{
				Name:  "out",
				Usage: "Write the ranked table csv to this file instead of stdout",
			},
			&cli.IntFlag{
				Name:  "top",
				Usage: "Log this many of the top-ranked validators",
				Value: 10,
			},
		},
		Action: runScore,
	}
}

func runScore(ctx context.Context, cmd *cli.Command) error {
	epoch := uint64(cmd.Uint("epoch"))
	if epoch == 0 {
		latest, ok, err := App.store.LatestEpoch(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("history database is empty - nothing to score")
		}
		epoch = latest
	}

	aggs, err := scoring.ScoreEpoch(ctx, App.store, App.params, epoch)
	if err != nil {
		return err
	}

	out := cmd.String("out")
	if out == "" {
		// csv straight to stdout so it can be piped
		return scoring.WriteRankedCSV(os.Stdout, aggs)
	}

	show := int(cmd.Int("top"))
	if show > len(aggs) {
		show = len(aggs)
	}
	for _, agg := range aggs[:show] {
		misc.Infof(App.logger, "#%-3d %s  avg_score:%d pct:%.4f (records:%d mult:%.2f)",
			agg.Rank, agg.VoteAddress, agg.AvgScore, agg.Pct, agg.ScoreRecords, agg.Mult)
	}
	if err := writeRankedFile(out, aggs); err != nil {
		return err
	}
	misc.Infof(App.logger, "ranked table for epoch %d written to %s", epoch, out)
	return nil
}
