package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Swind/go-thread-runner/config"
	"github.com/Swind/go-thread-runner/core"
	obs "github.com/Swind/go-thread-runner/observability/prometheus"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
)

func RunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Spawn a thread and submit a sequence of increments to it",

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a TOML thread config",
			},
			&cli.IntFlag{
				Name:    "iterations",
				Aliases: []string{"n"},
				Value:   1000,
				Usage:   "Number of increments to submit",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Serve Prometheus metrics on this address (e.g. 127.0.0.1:2112)",
			},
			&cli.DurationFlag{
				Name:  "hold",
				Usage: "Keep the metrics endpoint up for this long after the run",
			},
		},

		Action: RunAction,
	}
}

func RunAction(c *cli.Context) error {
	iterations := c.Int("iterations")
	if iterations < 0 {
		return cli.Exit("iterations must not be negative", 1)
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
	}

	reg := prom.NewRegistry()
	exporter, err := obs.NewMetricsExporter("threadrunner", reg, obs.ExporterOptions{})
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
	}

	threadCfg := cfg.ThreadConfig(c.App.ErrWriter)
	threadCfg.Metrics = exporter
	th, err := core.SpawnWithConfig(threadCfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
	}

	stopServer := func() {}
	if addr := c.String("metrics-addr"); addr != "" {
		poller, err := obs.NewSnapshotPoller(reg, 100*time.Millisecond)
		if err != nil {
			_ = th.Join()
			return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
		}
		poller.AddThread(th.Name(), th)
		poller.Start(c.Context)

		url, stop, err := serveMetrics(addr, reg)
		if err != nil {
			poller.Stop()
			_ = th.Join()
			return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
		}
		fmt.Fprintf(c.App.Writer, "Metrics at %s\n", url)
		stopServer = func() {
			poller.Stop()
			stop()
		}
	}
	defer stopServer()

	counter := 0
	for i := 0; i < iterations; i++ {
		if err := th.Run(func(ctx context.Context) error {
			counter++
			return nil
		}); err != nil {
			_ = th.Join()
			return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
		}
	}

	stats := th.Stats()
	if err := th.Join(); err != nil {
		return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
	}

	fmt.Fprintf(c.App.Writer, "✓ counter = %d\n", counter)
	fmt.Fprintf(c.App.Writer, "  thread=%s tag=%v submitted=%d failed=%d rejected=%d\n",
		stats.Name, stats.Tag, stats.Submitted, stats.Failed, stats.Rejected)

	if hold := c.Duration("hold"); hold > 0 && c.String("metrics-addr") != "" {
		select {
		case <-time.After(hold):
		case <-c.Context.Done():
		}
	}
	return nil
}

func serveMetrics(addr string, reg *prom.Registry) (string, func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, fmt.Errorf("listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Println("metrics server:", err)
		}
	}()

	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
	return "http://" + ln.Addr().String() + "/metrics", stop, nil
}
