package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/valmeter/stakescore/internal/lib/misc"
	"github.com/valmeter/stakescore/internal/scoring"
	"github.com/valmeter/stakescore/internal/store"
)

// App is the process-wide application state set up at startup.
var App *StakeScoreApp

var logLevel = new(slog.LevelVar) // Info by default

func initApp() *StakeScoreApp {
	log.SetFlags(0)
	var logger *slog.Logger
	if term.IsTerminal(int(os.Stdout.Fd())) {
		// Output is a tty - we're being run as a CLI, keep the output readable
		logger = slog.New(misc.NewMinimalHandler(os.Stdout,
			misc.MinimalHandlerOptions{SlogOpts: slog.HandlerOptions{Level: logLevel, AddSource: true}}))
	} else {
		// Not on a console - log json, renaming keys to what log collectors expect
		opts := &slog.HandlerOptions{
			AddSource: true,
			Level:     logLevel,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.MessageKey {
					a.Key = "message"
				} else if a.Key == slog.LevelKey && len(groups) == 0 {
					a.Key = "severity"
				}
				return a
			},
		}
		logger = slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	slog.SetDefault(logger)
	if os.Getenv("DEBUG") == "1" {
		logLevel.Set(slog.LevelDebug)
	}

	misc.LoadEnvSettings(logger)

	// The wrapper instance is initialized first so it can be bootstrapped in
	// the cli 'Before' lambda, once flags and env overrides are resolved.
	appConfig := &StakeScoreApp{logger: logger}

	appConfig.cliCmd = &cli.Command{
		Name:    "stakescore",
		Usage:   "Validator scoring and stake-allocation pipeline",
		Version: misc.GetVersionInfo(),
		Before: func(ctx context.Context, cmd *cli.Command) error {
			return appConfig.bootstrap(ctx, cmd)
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "envfile",
				Usage:   "env file to load",
				Sources: cli.EnvVars("STAKESCORE_ENVFILE"),
				Aliases: []string{"e"},
			},
			&cli.StringFlag{
				Name:    "db",
				Usage:   "Path of the validator history database",
				Value:   "stakescore.db",
				Sources: cli.EnvVars("STAKESCORE_DB"),
			},
			&cli.IntFlag{
				Name:    "window",
				Usage:   "Trailing window (in epochs) averaged into the base score",
				Sources: cli.EnvVars("STAKESCORE_WINDOW"),
			},
			&cli.IntFlag{
				Name:    "top-n",
				Usage:   "Number of ranked validators that share the allocation percentage",
				Sources: cli.EnvVars("STAKESCORE_TOP_N"),
			},
		},
		Commands: []*cli.Command{
			GetIngestCmdOpts(),
			GetBackfillCmdOpts(),
			GetScoreCmdOpts(),
			GetStoreCmdOpts(),
			GetDaemonCmdOpts(),
		},
	}
	return appConfig
}

type StakeScoreApp struct {
	cliCmd *cli.Command
	logger *slog.Logger
	store  *store.Store
	params scoring.Params
}

// bootstrap finishes app setup within the cli context: env file overrides,
// scoring parameters, and the history store (created on first use).
func (ac *StakeScoreApp) bootstrap(ctx context.Context, cmd *cli.Command) error {
	if envfile := cmd.String("envfile"); envfile != "" {
		if err := misc.LoadEnvFile(ac.logger, envfile); err != nil {
			return err
		}
	}

	ac.params = scoring.ParamsFromEnv()
	// CLI flags beat the environment for the two most commonly tweaked knobs
	if w := cmd.Int("window"); w > 0 {
		ac.params.Window = int(w)
	}
	if n := cmd.Int("top-n"); n > 0 {
		ac.params.TopN = int(n)
	}
	if err := ac.params.Validate(); err != nil {
		return err
	}

	st, err := store.Open(ctx, cmd.String("db"), ac.logger)
	if err != nil {
		return err
	}
	ac.store = st
	return nil
}

func (ac *StakeScoreApp) shutdown() {
	if ac.store != nil {
		if err := ac.store.Close(); err != nil {
			misc.Warnf(ac.logger, "error closing history db:%v", err)
		}
	}
}
