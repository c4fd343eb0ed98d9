package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/signalsfoundry/intercept-simulator/internal/logging"
	"github.com/signalsfoundry/intercept-simulator/internal/observability"
	"github.com/signalsfoundry/intercept-simulator/internal/report"
	"github.com/signalsfoundry/intercept-simulator/scenario"
	"github.com/signalsfoundry/intercept-simulator/sim"
)

type options struct {
	scenario     string
	report       string
	telemetryCSV string
	metricsAddr  string
	duration     time.Duration
	dt           time.Duration
	verbose      bool
	listPresets  bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("simulator", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.scenario, "scenario", "", "path to a YAML or JSON scenario file")
	fs.StringVar(&o.report, "report", "-", "report output path (\"-\" for stdout)")
	fs.StringVar(&o.telemetryCSV, "telemetry-csv", "", "write telemetry samples as CSV to this path")
	fs.StringVar(&o.metricsAddr, "metrics-addr", "", "address for the Prometheus /metrics endpoint (empty to disable)")
	fs.DurationVar(&o.duration, "duration", 0, "simulation-time budget, overrides the scenario")
	fs.DurationVar(&o.dt, "dt", 0, "integration step, overrides the scenario")
	fs.BoolVar(&o.verbose, "verbose", false, "log per-tick body, detector and interceptor state")
	fs.BoolVar(&o.listPresets, "list-presets", false, "print the preset catalogue and exit")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if !o.listPresets && o.scenario == "" {
		return options{}, errors.New("-scenario is required")
	}
	if o.duration < 0 || o.dt < 0 {
		return options{}, errors.New("-duration and -dt must not be negative")
	}
	return o, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(2)
	}

	ctx, log := logging.WithRunLogger(context.Background(), logging.NewFromEnv())

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.Err(err))
		os.Exit(1)
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	err = run(runCtx, opts, os.Stdout, log)
	stop()

	observability.ShutdownWithTimeout(ctx, shutdownTracing, log)
	if err != nil {
		log.Error(ctx, "simulation failed", logging.Err(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, o options, stdout io.Writer, log logging.Logger) error {
	if o.listPresets {
		return printPresets(stdout)
	}

	sc, err := scenario.LoadFile(o.scenario)
	if err != nil {
		return err
	}

	cfg := sim.Config{Duration: sc.Duration.Duration(), Tick: sc.Tick.Duration(), Verbose: o.verbose}
	if o.duration > 0 {
		cfg.Duration = o.duration
	}
	if o.dt > 0 {
		cfg.Tick = o.dt
	}

	reg := prometheus.NewRegistry()
	engagements, err := observability.NewEngagementCollector(reg)
	if err != nil {
		return fmt.Errorf("register engagement metrics: %w", err)
	}
	detectors, err := observability.NewDetectorCollector(reg)
	if err != nil {
		return fmt.Errorf("register detector metrics: %w", err)
	}
	if o.metricsAddr != "" {
		srv := serveMetrics(o.metricsAddr, engagements, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	out, closeOut, err := openOutput(o.report, stdout)
	if err != nil {
		return err
	}
	defer closeOut()

	simOpts := []sim.Option{sim.WithReportWriter(out), sim.WithRecorder(engagements)}
	var rec *report.Recorder
	if o.telemetryCSV != "" {
		rec = report.NewRecorder()
		simOpts = append(simOpts, sim.WithTelemetry(rec))
	}

	s := sim.New(cfg, simOpts...)
	err = scenario.Populate(sc, s, scenario.Options{
		InterceptorRecorder: engagements,
		DetectorRecorder:    detectors,
		Verbose:             o.verbose,
	})
	if err != nil {
		return err
	}

	log.Info(ctx, "scenario loaded",
		logging.String("name", sc.Name),
		logging.Int("bodies", sc.BodyCount()),
		logging.Int("detectors", len(sc.Detectors)),
	)

	res, err := s.Run(logging.ContextWithLogger(ctx, log))
	if err != nil {
		return err
	}

	if rec != nil {
		if err := writeTelemetry(o.telemetryCSV, rec); err != nil {
			return err
		}
	}

	log.Info(ctx, "run complete",
		logging.Any("ended", res.Ended),
		logging.Duration("elapsed", res.Elapsed),
		logging.Int("interceptors", len(res.Interceptors)),
	)
	return nil
}

// openOutput returns stdout for "-" and a created file otherwise.
func openOutput(path string, stdout io.Writer) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open report: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func writeTelemetry(path string, rec *report.Recorder) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open telemetry: %w", err)
	}
	if err := rec.WriteCSV(f, true); err != nil {
		_ = f.Close()
		return fmt.Errorf("write telemetry: %w", err)
	}
	return f.Close()
}

func printPresets(w io.Writer) error {
	c := scenario.Presets()
	groups := []struct {
		name  string
		names []string
	}{
		{"sites", c.Sites},
		{"interceptors", c.Interceptors},
		{"ballistic", c.Ballistic},
		{"multistage", c.MultiStage},
		{"cruise", c.Cruise},
	}
	for _, g := range groups {
		if _, err := fmt.Fprintf(w, "%s: %s\n", g.name, strings.Join(g.names, ", ")); err != nil {
			return err
		}
	}
	return nil
}

func serveMetrics(addr string, collector *observability.EngagementCollector, log logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.String("error", err.Error()))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
