// Package activity posts best-effort "this server is still in use"
// heartbeats to the hub. Reports are telemetry, not a correctness path:
// they never block a request and their failures are swallowed.
package activity

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"hubgate/cmd/internal/metrics"
)

// Config controls the reporter. An empty URL disables it entirely, which is
// the normal state for plain deployments not managed by a hub.
type Config struct {
	// URL is the hub's activity endpoint.
	URL string

	// APIToken is the bearer credential for the endpoint.
	APIToken string

	// ServerName keys this server's entry in the activity payload.
	ServerName string

	// MaxInFlight bounds concurrent reports; further reports are dropped,
	// not queued.
	MaxInFlight int

	// Timeout bounds a single report round-trip.
	Timeout time.Duration
}

// LoadConfigFromEnv reads reporter configuration. Only the URL matters for
// enablement; everything else has defaults.
func LoadConfigFromEnv() Config {
	cfg := Config{
		URL:         strings.TrimSpace(os.Getenv("HUBGATE_ACTIVITY_URL")),
		APIToken:    strings.TrimSpace(os.Getenv("HUBGATE_HUB_API_TOKEN")),
		ServerName:  strings.TrimSpace(os.Getenv("HUBGATE_SERVER_NAME")),
		MaxInFlight: 4,
		Timeout:     10 * time.Second,
	}
	// Invalid values keep the defaults; these knobs are not worth failing boot over.
	if n, err := strconv.Atoi(os.Getenv("HUBGATE_ACTIVITY_MAX_IN_FLIGHT")); err == nil && n > 0 {
		cfg.MaxInFlight = n
	}
	if d, err := time.ParseDuration(os.Getenv("HUBGATE_ACTIVITY_TIMEOUT")); err == nil && d > 0 {
		cfg.Timeout = d
	}
	return cfg
}

// Reporter dispatches heartbeats as detached units of work. The originating
// request never waits on a report and never observes its result.
type Reporter struct {
	cfg     Config
	log     *slog.Logger
	http    *http.Client
	metrics *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
}

// New constructs a Reporter; it is safe to use even when disabled.
func New(cfg Config, log *slog.Logger, m *metrics.Metrics) *Reporter {
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)
	if cfg.MaxInFlight > 0 {
		group.SetLimit(cfg.MaxInFlight)
	}
	return &Reporter{
		cfg:     cfg,
		log:     log,
		http:    &http.Client{Timeout: cfg.Timeout},
		metrics: m,
		ctx:     ctx,
		cancel:  cancel,
		group:   group,
	}
}

// Enabled reports whether an activity endpoint is configured.
func (r *Reporter) Enabled() bool {
	return r != nil && r.cfg.URL != ""
}

// Report schedules one heartbeat carrying the current UTC time. It returns
// immediately; when the in-flight limit is reached the report is dropped.
func (r *Reporter) Report() {
	if !r.Enabled() {
		return
	}

	lastActivity := time.Now().UTC().Format(time.RFC3339)
	if !r.group.TryGo(func() error {
		r.post(lastActivity)
		return nil
	}) {
		r.metrics.IncActivityReport("dropped")
	}
}

func (r *Reporter) post(lastActivity string) {
	payload := map[string]map[string]map[string]string{
		"servers": {
			r.cfg.ServerName: {"last_activity": lastActivity},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		r.metrics.IncActivityReport("error")
		return
	}

	req, err := http.NewRequestWithContext(r.ctx, http.MethodPost, r.cfg.URL, bytes.NewReader(body))
	if err != nil {
		r.metrics.IncActivityReport("error")
		return
	}
	req.Header.Set("Authorization", "token "+r.cfg.APIToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		r.metrics.IncActivityReport("error")
		r.log.Debug("activity.report.fail", "err", err)
		return
	}
	_ = resp.Body.Close()

	if resp.StatusCode >= 300 {
		r.metrics.IncActivityReport("error")
		r.log.Debug("activity.report.fail", "status", resp.StatusCode)
		return
	}
	r.metrics.IncActivityReport("ok")
}

// Close cancels in-flight reports and waits briefly for them to unwind.
// Abandoning stragglers is acceptable; heartbeats are best-effort.
func (r *Reporter) Close() {
	if r == nil {
		return
	}
	r.cancel()

	done := make(chan struct{})
	go func() {
		_ = r.group.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
	r.http.CloseIdleConnections()
}
