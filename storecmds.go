package main

import (
	"context"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/urfave/cli/v3"

	"github.com/valmeter/stakescore/internal/lib/misc"
)

func GetStoreCmdOpts() *cli.Command {
	return &cli.Command{
		Name:  "store",
		Usage: "Inspect or manage the validator history database",
		Commands: []*cli.Command{
			{
				Name:   "info",
				Usage:  "Show what epochs the history database holds",
				Action: storeInfo,
			},
			{
				Name:  "validator",
				Usage: "Show one validator's history across epochs",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "vote",
						Usage:    "Vote address of the validator",
						Required: true,
					},
					&cli.UintFlag{
						Name:  "epochs",
						Usage: "How many trailing epochs to show",
						Value: 20,
					},
				},
				Action: storeValidator,
			},
			{
				Name:   "reset",
				Usage:  "Delete ALL history.  Asks for confirmation first",
				Action: storeReset,
			},
		},
	}
}

func storeInfo(ctx context.Context, cmd *cli.Command) error {
	epochs, err := App.store.Epochs(ctx)
	if err != nil {
		return err
	}
	count, err := App.store.RecordCount(ctx)
	if err != nil {
		return err
	}
	if len(epochs) == 0 {
		misc.Infof(App.logger, "history database is empty")
		return nil
	}
	misc.Infof(App.logger, "history: %d epochs (%d - %d), %d records",
		len(epochs), epochs[0], epochs[len(epochs)-1], count)
	return nil
}

func storeValidator(ctx context.Context, cmd *cli.Command) error {
	latest, ok, err := App.store.LatestEpoch(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("history database is empty")
	}
	span := uint64(cmd.Uint("epochs"))
	lo := uint64(0)
	if latest >= span {
		lo = latest - span + 1
	}

	vote := cmd.String("vote")
	records, err := App.store.RecordsForValidator(ctx, vote, lo, latest)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		misc.Infof(App.logger, "no history for %s in epochs %d - %d", vote, lo, latest)
		return nil
	}
	for _, rec := range records {
		misc.Infof(App.logger, "epoch %d: score:%d adj_credits:%d avg_position:%.2f commission:%d stake_conc:%.4f state:%s",
			rec.Epoch, rec.Score, rec.AdjCredits, rec.AvgPosition, rec.Commission, rec.StakeConc, rec.StakeState)
	}
	return nil
}

func storeReset(ctx context.Context, cmd *cli.Command) error {
	count, err := App.store.RecordCount(ctx)
	if err != nil {
		return err
	}
	result, err := (&promptui.Prompt{
		Label:     fmt.Sprintf("Delete all %d history records?  This cannot be undone", count),
		IsConfirm: true,
	}).Run()
	if err != nil || result != "y" {
		misc.Infof(App.logger, "reset cancelled")
		return nil
	}
	if err := App.store.Reset(ctx); err != nil {
		return err
	}
	misc.Infof(App.logger, "history database reset")
	return nil
}
