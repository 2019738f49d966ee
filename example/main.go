// hostpool-demo shows the connection pool working against real endpoints.
//
// It loads a TOML configuration, builds a pool, dials each endpoint given
// on the command line through the pool, and prints the pool statistics.
// With metrics enabled in the configuration it also serves the Prometheus
// text endpoint until interrupted.
//
// Usage:
//
//	hostpool-demo [flags] host:port [host:port ...]
//
// Flags:
//
//	-config string
//	    Path to configuration file (default "~/.hostpool/config.toml")
//	-version
//	    Print version and exit
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/go-i2p/hostpool/lib/config"
	"github.com/go-i2p/hostpool/lib/metrics"
	"github.com/go-i2p/hostpool/lib/pool"
	"github.com/go-i2p/hostpool/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	defaultConfigPath := filepath.Join(homeDir, ".hostpool", "config.toml")

	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	showVersion := flag.Bool("version", false, "Print version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "hostpool-demo - host-partitioned connection pool demo\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  hostpool-demo [flags] host:port [host:port ...]\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("hostpool-demo version %s\n", version.Full())
		return 0
	}

	endpoints := flag.Args()
	if len(endpoints) == 0 {
		flag.Usage()
		return 1
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return 1
	}

	p := pool.New(cfg.PoolConfig())
	defer p.Shutdown()

	if cfg.Sweep.Enabled {
		janitor := pool.NewJanitor(p, cfg.Sweep.Interval)
		janitor.Start()
		defer janitor.Stop()
	}

	if cfg.Metrics.Enabled {
		metrics.RecordStartTime()
		go serveMetrics(cfg.Metrics.Listen)
	}

	dialer := &net.Dialer{Timeout: cfg.Pool.ConnectTimeout}

	for _, endpoint := range endpoints {
		if err := dialThrough(p, dialer, endpoint); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", endpoint, err)
		}
	}

	printStats(p.Stats())

	if cfg.Metrics.Enabled {
		fmt.Printf("Metrics at http://%s/metrics\n", cfg.Metrics.Listen)
		fmt.Println("Press Ctrl+C to stop")

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
	}

	return 0
}

// dialThrough reserves a pool slot for the endpoint, dials it, and
// returns the slot to the idle set. A dial failure releases the slot
// by closing its record so the host is not left holding capacity.
func dialThrough(p *pool.Pool, dialer *net.Dialer, endpoint string) error {
	host, portStr, err := net.SplitHostPort(endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint: %w", err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return fmt.Errorf("invalid port: %w", err)
	}

	rec, err := p.Acquire(host, uint16(port))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), dialer.Timeout)
	defer cancel()

	start := time.Now()
	conn, err := dialer.DialContext(ctx, "tcp", endpoint)
	if err != nil {
		p.Close(rec)
		return err
	}
	conn.Close()

	fmt.Printf("%s: connected in %s (record #%d)\n", endpoint, time.Since(start).Round(time.Millisecond), rec.ID())
	p.Release(rec)
	return nil
}

func printStats(stats pool.Stats) {
	fmt.Printf("\nPool statistics:\n")
	fmt.Printf("  Hosts:    %d\n", stats.Hosts)
	fmt.Printf("  Total:    %d\n", stats.TotalConnections)
	fmt.Printf("  Active:   %d\n", stats.ActiveConnections)
	fmt.Printf("  Idle:     %d\n", stats.IdleConnections)
	fmt.Printf("  Acquires: %d (%d reused, %d failed)\n", stats.AcquireCount, stats.AcquireReuse, stats.AcquireFailed)
	fmt.Printf("  Expired:  %d\n", stats.ExpiredCount)
}

func serveMetrics(listen string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	if err := http.ListenAndServe(listen, mux); err != nil {
		fmt.Fprintf(os.Stderr, "Metrics server error: %v\n", err)
	}
}
