package core

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// WriteFetchMetrics writes the counts of a fetch as gauges in the Prometheus textfile format,
// for pickup by a node exporter textfile collector.
func WriteFetchMetrics(path string, report FetchReport) error {
	reg := prometheus.NewRegistry()
	labels := prometheus.Labels{"host": report.Run.Host, "repo": report.Run.Repo}

	rateLimited := 0.0
	if report.Run.RateLimited {
		rateLimited = 1
	}
	gauges := []struct {
		name  string
		help  string
		value float64
	}{
		{"queued_tickets", "Tickets selected for a detail fetch.", float64(report.Run.Queued)},
		{"fetched_tickets", "Detail fetches that succeeded.", float64(report.Run.Fetched)},
		{"failed_tickets", "Detail fetches that returned an error.", float64(report.Run.Failed)},
		{"outdated_tickets", "Tickets still stale after the fetch.", float64(report.Run.Outdated)},
		{"snapshot_tickets", "Tickets in the saved snapshot.", float64(report.Tickets)},
		{"rate_limited", "Whether the request budget was exhausted during the fetch.", rateLimited},
		{"duration_seconds", "Wall time of the update pass.", float64(report.Run.DurationMs) / 1000},
		{"last_end_timestamp_seconds", "Unix time the update pass ended.", float64(report.Run.EndTime.Unix())},
	}
	for _, g := range gauges {
		gauge := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "repostats",
			Subsystem:   "fetch",
			Name:        g.name,
			Help:        g.help,
			ConstLabels: labels,
		})
		gauge.Set(g.value)
		if err := reg.Register(gauge); err != nil {
			return fmt.Errorf("failed to register metric %s: %w", g.name, err)
		}
	}

	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}
