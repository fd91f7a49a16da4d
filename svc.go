package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/valmeter/stakescore/internal/lib/misc"
)

func GetDaemonCmdOpts() *cli.Command {
	return &cli.Command{
		Name:    "daemon",
		Aliases: []string{"d"},
		Usage:   "Run as a daemon: poll the export endpoint for new epochs and keep history scored",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:    "interval",
				Usage:   "How often to check for a new epoch export",
				Value:   30 * time.Minute,
				Sources: cli.EnvVars("STAKESCORE_POLL_INTERVAL"),
			},
			&cli.UintFlag{
				Name:    "port",
				Usage:   "Port for the prometheus /metrics endpoint",
				Value:   8080,
				Sources: cli.EnvVars("STAKESCORE_METRICS_PORT"),
			},
		},
		Action: runAsDaemon,
	}
}

func runAsDaemon(ctx context.Context, cmd *cli.Command) error {
	var wg sync.WaitGroup

	// Channel used by both the signal handler and server goroutines to notify
	// the main goroutine when to stop.
	errc := make(chan error)

	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("%s", <-c)
	}()

	ctx, cancel := context.WithCancel(ctx)

	daemon := newDaemon(cmd.Duration("interval"), int(cmd.Uint("port")))
	daemon.start(ctx, &wg, errc)

	misc.Infof(App.logger, "exiting (%v)", <-errc) // wait for termination signal

	cancel()
	misc.Infof(App.logger, "waiting on background tasks..")
	wg.Wait()

	misc.Infof(App.logger, "exited")
	return nil
}
