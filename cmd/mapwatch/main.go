// Command mapwatch reads viewports from stdin, one per line as
// "south north west east [aggregate|individual]", and prints the map-view
// results the debounced scheduler fetches for them.
package main

import (
	"bufio"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/samirrijal/tapmap/internal/adapters/mapclient"
	"github.com/samirrijal/tapmap/internal/core/domain"
	"github.com/samirrijal/tapmap/internal/pkg/config"
	"github.com/samirrijal/tapmap/internal/pkg/logging"
	"github.com/samirrijal/tapmap/internal/viewport"
)

func main() {
	cfg, err := config.Load("tapmap-mapwatch")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, "text")

	if len(os.Args) > 1 {
		cfg.Client.Endpoint = os.Args[1]
	}
	timeout := time.Duration(cfg.Client.TimeoutMS) * time.Millisecond
	window := time.Duration(cfg.Client.DebounceMS) * time.Millisecond

	done := make(chan struct{}, 1)
	notify := func() {
		select {
		case done <- struct{}{}:
		default:
		}
	}

	sched := viewport.New(mapclient.New(cfg.Client.Endpoint, timeout), viewport.Options{
		Window:  window,
		Timeout: timeout,
		Logger:  slog.Default(),
		OnResults: func(q domain.ViewportQuery, results []domain.MapResult) {
			printResults(q, results)
			notify()
		},
		OnError: func(q domain.ViewportQuery, err error) {
			slog.Error("map-view fetch failed", "error", err)
			notify()
		},
	})
	defer sched.Close()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		q, err := parseViewport(line)
		if err != nil {
			slog.Warn("bad viewport line", "line", line, "error", err)
			continue
		}
		if !sched.ViewportChanged(q) {
			slog.Info("fetch in flight, viewport ignored", "line", line)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("stdin: %v", err)
	}

	// Let a pending or in-flight fetch finish before exiting.
	deadline := time.After(window + timeout)
	for sched.State() != viewport.Idle {
		select {
		case <-done:
		case <-time.After(50 * time.Millisecond):
		case <-deadline:
			slog.Warn("gave up waiting for the last fetch")
			return
		}
	}
}

func parseViewport(line string) (domain.ViewportQuery, error) {
	fields := strings.Fields(line)
	if len(fields) != 4 && len(fields) != 5 {
		return domain.ViewportQuery{}, fmt.Errorf("want 4 or 5 fields, got %d", len(fields))
	}
	var v [4]float64
	for i := range v {
		f, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return domain.ViewportQuery{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		v[i] = f
	}
	q := domain.ViewportQuery{BBox: domain.BoundingBox{South: v[0], North: v[1], West: v[2], East: v[3]}}
	if len(fields) == 5 {
		var force bool
		switch fields[4] {
		case "aggregate":
			force = true
		case "individual":
			force = false
		default:
			return domain.ViewportQuery{}, fmt.Errorf("unknown mode %q", fields[4])
		}
		q.ForceAggregate = &force
	}
	return q, q.BBox.Validate()
}

func printResults(q domain.ViewportQuery, results []domain.MapResult) {
	b := q.BBox
	fmt.Printf("# %g %g %g %g: %d results\n", b.South, b.North, b.West, b.East, len(results))
	for _, r := range results {
		if g, ok := r.Aggregate(); ok {
			fmt.Printf("cell %s %d %.6f %.6f\n", g.GeohashPrefix, g.Count, g.Centroid.Lat, g.Centroid.Lon)
			continue
		}
		if f, ok := r.Point(); ok {
			fmt.Printf("fountain %s %.6f %.6f %s\n", f.ID, f.Location.Lat, f.Location.Lon, f.Name)
		}
	}
}
