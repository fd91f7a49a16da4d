// Package fetch pulls one epoch's validator CSV export from the remote
// performance endpoint.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ssgreg/repeat"

	"github.com/valmeter/stakescore/internal/lib/misc"
	"github.com/valmeter/stakescore/internal/scoring"
)

type Config struct {
	// URL of the CSV export endpoint.  The requested epoch is passed as the
	// `epoch` query parameter.
	URL string
	// Token, when set, is sent as `Authorization: Token <token>`.
	Token string
}

// ConfigFromEnv reads the endpoint settings, the token via the secrets helper
// so it can come from mounted secrets as well as the environment.
func ConfigFromEnv() Config {
	return Config{
		URL:   misc.GetSecret("STAKESCORE_FETCH_URL"),
		Token: misc.GetSecret("STAKESCORE_FETCH_TOKEN"),
	}
}

// NewClient returns an http client tuned for repeated calls to the same host.
func NewClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = 100
	transport.MaxConnsPerHost = 100
	transport.MaxIdleConnsPerHost = 100
	return &http.Client{
		Transport: transport,
		Timeout:   2 * time.Minute,
	}
}

// EpochCSV fetches and parses the export for one epoch, retrying transient
// failures (network errors and 5xx responses) with jittered backoff.  The
// returned records are unnormalized; the epoch in the file must match the one
// requested.
func EpochCSV(ctx context.Context, client *http.Client, logger *slog.Logger, cfg Config, epoch uint64) ([]scoring.Record, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("no fetch url configured")
	}
	reqURL, err := buildURL(cfg.URL, epoch)
	if err != nil {
		return nil, err
	}

	var body []byte
	err = repeat.Repeat(
		repeat.Fn(func() error {
			body, err = fetchOnce(ctx, client, cfg, reqURL)
			if err != nil {
				return repeat.HintTemporary(err)
			}
			return nil
		}),
		repeat.StopOnSuccess(),
		repeat.LimitMaxTries(10),
		repeat.FnOnError(func(err error) error {
			misc.Warnf(logger, "retrying csv fetch for epoch %d, error:%v", epoch, err)
			return err
		}),
		repeat.WithDelay(
			repeat.SetContextHintStop(),
			(&repeat.FullJitterBackoffBuilder{
				BaseDelay: 5 * time.Second,
				MaxDelay:  30 * time.Second,
			}).Set(),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("fetching epoch %d csv: %w", epoch, err)
	}

	records, gotEpoch, err := scoring.ParseEpochCSV(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if gotEpoch != epoch {
		return nil, fmt.Errorf("requested epoch %d but export contains epoch %d", epoch, gotEpoch)
	}
	return records, nil
}

func buildURL(base string, epoch uint64) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("bad fetch url %q: %w", base, err)
	}
	q := u.Query()
	q.Set("epoch", strconv.FormatUint(epoch, 10))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func fetchOnce(ctx context.Context, client *http.Client, cfg Config, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	if cfg.Token != "" {
		req.Header.Set("Authorization", "Token "+cfg.Token)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("endpoint returned %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}
