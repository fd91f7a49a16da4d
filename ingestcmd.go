package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/mailgun/holster/v4/syncutil"
	"github.com/urfave/cli/v3"

	"github.com/valmeter/stakescore/internal/fetch"
	"github.com/valmeter/stakescore/internal/lib/misc"
	"github.com/valmeter/stakescore/internal/scoring"
)

func GetIngestCmdOpts() *cli.Command {
	return &cli.Command{
		Name:    "ingest",
		Aliases: []string{"i"},
		Usage:   "Ingest one epoch's validator csv into history and score it",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "csv",
				Usage:   "Path of the epoch csv export to ingest",
				Aliases: []string{"f"},
			},
			&cli.UintFlag{
				Name:  "epoch",
				Usage: "Epoch to fetch from the remote export endpoint (instead of --csv)",
			},
			&cli.BoolFlag{
				Name:  "confirm",
				Usage: "Actually write the history database.  Without this the run is a dry run",
				Value: false,
			},
			&cli.StringFlag{
				Name:  "out",
				Usage: "Write the ranked table csv to this file",
			},
		},
		Action: runIngest,
	}
}

func runIngest(ctx context.Context, cmd *cli.Command) error {
	var (
		records []scoring.Record
		epoch   uint64
		err     error
	)
	switch {
	case cmd.String("csv") != "":
		records, epoch, err = parseCSVFile(cmd.String("csv"))
	case cmd.Uint("epoch") != 0:
		epoch = uint64(cmd.Uint("epoch"))
		records, err = fetch.EpochCSV(ctx, fetch.NewClient(), App.logger, fetch.ConfigFromEnv(), epoch)
	default:
		return fmt.Errorf("either --csv or --epoch must be given")
	}
	if err != nil {
		return err
	}

	dryRun := !cmd.Bool("confirm")
	if dryRun {
		misc.Infof(App.logger, "dry run: not updating the history database.  Use --confirm to write epoch %d", epoch)
	}

	aggs, err := scoring.RunEpoch(ctx, App.store, App.params, epoch, records, dryRun)
	if err != nil {
		return err
	}
	logRunSummary(epoch, records, aggs)

	if out := cmd.String("out"); out != "" {
		return writeRankedFile(out, aggs)
	}
	return nil
}

func GetBackfillCmdOpts() *cli.Command {
	return &cli.Command{
		Name:  "backfill",
		Usage: "Ingest a directory of epoch csv exports, oldest epoch first",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "dir",
				Usage:    "Directory holding one csv export per epoch",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "confirm",
				Usage: "Actually write the history database.  Without this files are only parsed and validated",
				Value: false,
			},
		},
		Action: runBackfill,
	}
}

type parsedExport struct {
	path    string
	epoch   uint64
	records []scoring.Record
}

func runBackfill(ctx context.Context, cmd *cli.Command) error {
	paths, err := filepath.Glob(filepath.Join(cmd.String("dir"), "*.csv"))
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no csv files found in %s", cmd.String("dir"))
	}

	// Files parse concurrently; epochs are then replayed oldest-first so each
	// epoch's reference population and trailing window see all prior history.
	var (
		fanOut   = syncutil.NewFanOut(8)
		parsedCh = make(chan parsedExport, len(paths))
	)
	for _, path := range paths {
		fanOut.Run(func(val any) error {
			p := val.(string)
			records, epoch, err := parseCSVFile(p)
			if err != nil {
				return fmt.Errorf("%s: %w", p, err)
			}
			parsedCh <- parsedExport{path: p, epoch: epoch, records: records}
			return nil
		}, path)
	}
	errs := fanOut.Wait()
	close(parsedCh)
	if len(errs) > 0 {
		return errs[0]
	}

	var parsed []parsedExport
	for exp := range parsedCh {
		parsed = append(parsed, exp)
	}
	sort.Slice(parsed, func(i, j int) bool { return parsed[i].epoch < parsed[j].epoch })
	for i := 1; i < len(parsed); i++ {
		if parsed[i].epoch == parsed[i-1].epoch {
			return fmt.Errorf("files %s and %s both contain epoch %d", parsed[i-1].path, parsed[i].path, parsed[i].epoch)
		}
	}

	dryRun := !cmd.Bool("confirm")
	if dryRun {
		misc.Infof(App.logger, "dry run: parsed %d files cleanly.  Use --confirm to replay them into history", len(parsed))
		return nil
	}

	for _, exp := range parsed {
		aggs, err := scoring.RunEpoch(ctx, App.store, App.params, exp.epoch, exp.records, false)
		if err != nil {
			return fmt.Errorf("backfill stopped at epoch %d (%s): %w", exp.epoch, exp.path, err)
		}
		logRunSummary(exp.epoch, exp.records, aggs)
	}
	return nil
}

func parseCSVFile(path string) ([]scoring.Record, uint64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer file.Close()
	return scoring.ParseEpochCSV(file)
}

func logRunSummary(epoch uint64, records []scoring.Record, aggs []scoring.Aggregate) {
	var ranked, allocated int
	for i := range aggs {
		if aggs[i].AvgScore > 0 {
			ranked++
		}
		if aggs[i].Pct > 0 {
			allocated++
		}
	}
	misc.Infof(App.logger, "epoch %d: %d validators, %d ranked, %d receiving allocation",
		epoch, len(records), ranked, allocated)
}

func writeRankedFile(path string, aggs []scoring.Aggregate) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := scoring.WriteRankedCSV(file, aggs); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
