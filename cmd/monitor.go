package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/luminahq/lumina/pkg/buildinfo"
	"github.com/luminahq/lumina/pkg/logging"
	"github.com/luminahq/lumina/pkg/session"
)

var monitorMetricsAddr string

// MonitorCmd runs the attendance daemon.
var MonitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Poll the calendar and attend meetings automatically",
	Long: `Run the attendance daemon: poll the calendar on an interval, join each
meeting with a video link as it becomes due, record the audio, and run the
post-processing pipeline (transcription, minutes, notification) when the
meeting ends.

Only one meeting session runs at a time. A meeting that becomes due while
another session is active is skipped for that poll and picked up on a later
one if it is still within the lookahead window.

Stop with Ctrl-C or SIGTERM; an in-progress session is left cleanly (the
recording captured so far is still processed).

Examples:
  # Run with defaults (~/.lumina/config.yaml)
  lumina monitor

  # Expose Prometheus metrics and health endpoints
  lumina monitor --metrics-addr :9090`,
	RunE: runMonitor,
}

func init() {
	MonitorCmd.Flags().StringVar(&monitorMetricsAddr, "metrics-addr", "",
		"Address for /metrics and /healthz (empty disables)")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	service, err := buildCalendarService(a.cfg, a.logger)
	if err != nil {
		return err
	}

	a.logger.Info("lumina monitor starting",
		logging.F("version", buildinfo.Get().Version),
		logging.F("calendar", a.cfg.Calendar.CalendarID),
		logging.F("data_dir", a.cfg.DataDir))

	if monitorMetricsAddr != "" {
		srv := startMetricsServer(monitorMetricsAddr, a)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	poller := session.NewPoller(a.cfg.Calendar, service, a.orchestrator, a.metrics, a.logger)
	poller.Run(ctx)

	// Drain background pipeline runs before exiting.
	a.logger.Info("waiting for pipeline runs to finish")
	a.orchestrator.Wait()
	a.logger.Info("lumina monitor stopped")
	return nil
}

// startMetricsServer serves Prometheus metrics, health, and build info.
func startMetricsServer(addr string, a *app) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/version", buildinfo.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if a.ledger != nil {
			if err := a.ledger.Health(r.Context()); err != nil {
				http.Error(w, "ledger unhealthy: "+err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", logging.Err(err))
		}
	}()
	a.logger.Info("metrics server listening", logging.F("addr", addr))
	return srv
}
