// Package metrics exposes the Prometheus metrics of the portfolio tool.
// All metrics are defined in their respective packages (client, pagination,
// ratelimit) via promauto and registered with the default registry.
//
// The tool is a one-shot CLI with no HTTP listener, so metrics are exported
// by writing the node_exporter textfile format at the end of a run.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the tool.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer collects the metrics registered with Registry.
var Gatherer = prometheus.DefaultGatherer

// WriteTextfile writes every metric in Gatherer to path in the text
// exposition format. An empty path is a no-op.
func WriteTextfile(path string) error {
	return WriteTextfileFrom(path, Gatherer)
}

// WriteTextfileFrom writes the metrics of g to path. The file is replaced
// atomically.
func WriteTextfileFrom(path string, g prometheus.Gatherer) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - namecheap_requests_total{command, status} (Counter): Registrar calls by command and HTTP status
//   - namecheap_request_duration_seconds{command} (Histogram): Registrar call duration
//   - namecheap_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Pagination Metrics (pkg/pagination):
//   - namecheap_pages_fetched_total (Counter): Listing pages fetched
//   - namecheap_domains_fetched_total (Counter): Domain records accumulated
//   - namecheap_pagination_stops_total{reason} (Counter): Listing walks by stop reason
//
// Call Budget Metrics (pkg/ratelimit):
//   - namecheap_requests_remaining{window} (Gauge): Calls left in the current bucket
//   - namecheap_rate_limit_blocks_total{window} (Counter): Calls refused on an exhausted window
//   - namecheap_rate_limit_throttles_total (Counter): Calls delayed on a nearly spent window
//
// Example Prometheus Queries:
//
//   # Runs that stopped on an error
//   sum by (reason) (namecheap_pagination_stops_total{reason=~"server_error|malformed|fatal"})
//
//   # Hourly budget headroom
//   namecheap_requests_remaining{window="hour"} < 70
//
//   # P95 registrar latency
//   histogram_quantile(0.95, rate(namecheap_request_duration_seconds_bucket[1h]))
