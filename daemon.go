package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/valmeter/stakescore/internal/fetch"
	"github.com/valmeter/stakescore/internal/lib/misc"
	"github.com/valmeter/stakescore/internal/scoring"
	"github.com/valmeter/stakescore/internal/store"
)

// Daemon polls the remote export endpoint and runs the scoring pipeline for
// each new epoch as it appears, exposing prometheus metrics for what it did.
type Daemon struct {
	logger   *slog.Logger
	store    *store.Store
	params   scoring.Params
	fetchCfg fetch.Config
	client   *http.Client

	interval time.Duration
	port     int
}

func newDaemon(interval time.Duration, port int) *Daemon {
	return &Daemon{
		logger:   App.logger,
		store:    App.store,
		params:   App.params,
		fetchCfg: fetch.ConfigFromEnv(),
		client:   fetch.NewClient(),
		interval: interval,
		port:     port,
	}
}

func (d *Daemon) start(ctx context.Context, wg *sync.WaitGroup, errc chan<- error) {
	d.logger.Info("Starting stakescore daemon", "interval", d.interval)

	wg.Add(1)
	go func() {
		defer wg.Done()
		d.epochWatcher(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		d.serveMetrics(ctx, errc)
	}()
}

// epochWatcher checks for a newly available epoch export on every tick and
// runs the full pipeline for it.  A failed fetch just means the epoch isn't
// exported yet; it is retried on the next tick.
func (d *Daemon) epochWatcher(ctx context.Context) {
	defer d.logger.Info("Exiting epochWatcher")
	d.logger.Info("Starting epochWatcher")

	d.ingestNext(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(d.interval):
			d.ingestNext(ctx)
		}
	}
}

func (d *Daemon) ingestNext(ctx context.Context) {
	latest, ok, err := d.store.LatestEpoch(ctx)
	if err != nil {
		misc.Errorf(d.logger, "unable to read latest epoch from history:%v", err)
		return
	}
	if !ok {
		d.logger.Warn("history database is empty - backfill at least one epoch before running the daemon")
		return
	}
	next := latest + 1

	records, err := fetch.EpochCSV(ctx, d.client, d.logger, d.fetchCfg, next)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		misc.Infof(d.logger, "epoch %d export not available yet:%v", next, err)
		return
	}

	aggs, err := scoring.RunEpoch(ctx, d.store, d.params, next, records, false)
	if err != nil {
		misc.Errorf(d.logger, "scoring epoch %d failed:%v", next, err)
		return
	}
	logRunSummary(next, records, aggs)
}

func (d *Daemon) serveMetrics(ctx context.Context, errc chan<- error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", d.port),
		Handler: mux,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	misc.Infof(d.logger, "serving /metrics on :%d", d.port)
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		errc <- err
	}
}
