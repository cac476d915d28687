// Package pagination walks the registrar's page-based domain listing until it
// is exhausted.
//
// The listing is fetched strictly sequentially: page N+1 is requested only
// after page N has been parsed and the paging decision made.
//
// Example usage:
//
//	agg := pagination.NewAggregator(apiClient, pagination.DefaultConfig())
//	domains, err := agg.FetchAll(ctx, false)
//
// The aggregator:
//   - Requests page 1, 2, ... through a PageFetcher
//   - Stops on an empty page, exhausted paging counters or a missing Paging block
//   - Logs and stops on non-OK pages and missing containers (partial results kept)
//   - Returns an error only when a response cannot be understood or no
//     response was obtained
package pagination
