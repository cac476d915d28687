package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/namecheap-portfolio/pkg/namecheap"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "namecheap_pages_fetched_total",
		Help: "Total listing pages fetched",
	})

	domainsFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "namecheap_domains_fetched_total",
		Help: "Total domain records accumulated from listing pages",
	})

	stopsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "namecheap_pagination_stops_total",
		Help: "Listing walks by termination reason",
	}, []string{"reason"})
)

// Config holds aggregator configuration.
type Config struct {
	// MaxPages caps the number of pages requested in one walk (0 = no cap).
	// It only matters when the server keeps advertising further pages.
	MaxPages int
}

// DefaultConfig returns the default aggregator configuration.
func DefaultConfig() Config {
	return Config{
		MaxPages: 500,
	}
}

// PageFetcher fetches a single listing page. *client.Client implements it.
type PageFetcher interface {
	FetchPage(ctx context.Context, page int) (*namecheap.PageResult, error)
}

// StopReason records why a listing walk ended.
type StopReason string

const (
	// StopEndOfData: a page held no domain entries.
	StopEndOfData StopReason = "end_of_data"

	// StopExhausted: CurrentPage*PageSize >= TotalItems.
	StopExhausted StopReason = "exhausted"

	// StopNoPaging: the response carried no Paging block.
	StopNoPaging StopReason = "no_paging"

	// StopServerError: a page was answered with a non-OK status.
	StopServerError StopReason = "server_error"

	// StopMalformed: an expected container was missing.
	StopMalformed StopReason = "malformed"

	// StopPageLimit: Config.MaxPages was reached.
	StopPageLimit StopReason = "page_limit"

	// StopFatal: the walk failed with an error.
	StopFatal StopReason = "fatal"
)

// Listing is the result of one walk.
type Listing struct {
	Domains []namecheap.DomainRecord
	Pages   int
	Stop    StopReason
}

// Aggregator drives a PageFetcher across the listing. It keeps no state
// between walks.
type Aggregator struct {
	fetcher PageFetcher
	config  Config
	logger  zerolog.Logger
}

// NewAggregator creates a new aggregator.
func NewAggregator(fetcher PageFetcher, config Config) *Aggregator {
	if config.MaxPages < 0 {
		config.MaxPages = 0
	}

	return &Aggregator{
		fetcher: fetcher,
		config:  config,
		logger:  log.With().Str("component", "pagination").Logger(),
	}
}

// FetchAll walks the listing and returns every record in fetch order.
// On error the records accumulated so far are returned with it.
func (a *Aggregator) FetchAll(ctx context.Context, verbose bool) ([]namecheap.DomainRecord, error) {
	listing, err := a.Run(ctx, verbose)
	return listing.Domains, err
}

// Run walks the listing and reports how the walk ended. The returned Listing
// is never nil.
func (a *Aggregator) Run(ctx context.Context, verbose bool) (*Listing, error) {
	start := time.Now()
	listing := &Listing{Domains: []namecheap.DomainRecord{}}

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			a.finish(listing, StopFatal, verbose, start)
			return listing, fmt.Errorf("fetch page %d: %w", page, err)
		}

		result, err := a.fetcher.FetchPage(ctx, page)
		if err != nil {
			a.finish(listing, StopFatal, verbose, start)
			return listing, fmt.Errorf("fetch page %d: %w", page, err)
		}
		listing.Pages++
		pagesFetchedTotal.Inc()

		if verbose {
			a.logger.Debug().
				Int("page", page).
				Int("status", result.StatusCode).
				Msg("Domain list API response")
			a.logger.Debug().
				Int("page", page).
				Str("body", string(result.Body)).
				Msg("Domain list API response content")
		}

		if result.Outcome == namecheap.OutcomeServerError {
			a.logger.Error().
				Int("page", page).
				Int("status", result.StatusCode).
				Str("body", string(result.Body)).
				Msg("Error fetching domain list")
			a.finish(listing, StopServerError, verbose, start)
			return listing, nil
		}

		doc, err := namecheap.ParseListPage(result.Body)
		if err != nil {
			result.Outcome = namecheap.OutcomeMalformed
			a.finish(listing, StopFatal, verbose, start)
			return listing, fmt.Errorf("parse page %d: %w", page, err)
		}

		if !doc.HasCommandResponse {
			result.Outcome = namecheap.OutcomeMalformed
			event := a.logger.Error().Int("page", page)
			if summary := doc.ErrorSummary(); summary != "" {
				event = event.Str("api_errors", summary)
			}
			event.Msg("Could not find CommandResponse element in the response")
			a.finish(listing, StopMalformed, verbose, start)
			return listing, nil
		}

		if !doc.HasListResult {
			result.Outcome = namecheap.OutcomeMalformed
			a.logger.Error().
				Int("page", page).
				Msg("Could not find DomainGetListResult element in the response")
			a.finish(listing, StopMalformed, verbose, start)
			return listing, nil
		}

		if len(doc.Domains) == 0 {
			result.Outcome = namecheap.OutcomeEndOfData
			a.logger.Debug().Int("page", page).Msg("No domains found on page")
			a.finish(listing, StopEndOfData, verbose, start)
			return listing, nil
		}

		listing.Domains = append(listing.Domains, doc.Domains...)
		domainsFetchedTotal.Add(float64(len(doc.Domains)))

		if doc.Paging == nil {
			a.finish(listing, StopNoPaging, verbose, start)
			return listing, nil
		}

		if doc.Paging.Exhausted() {
			a.finish(listing, StopExhausted, verbose, start)
			return listing, nil
		}

		if a.config.MaxPages > 0 && page >= a.config.MaxPages {
			a.logger.Warn().
				Int("max_pages", a.config.MaxPages).
				Int("total_items", doc.Paging.TotalItems).
				Msg("Page limit reached before listing was exhausted")
			a.finish(listing, StopPageLimit, verbose, start)
			return listing, nil
		}
	}
}

func (a *Aggregator) finish(listing *Listing, reason StopReason, verbose bool, start time.Time) {
	listing.Stop = reason
	stopsTotal.WithLabelValues(string(reason)).Inc()

	if verbose {
		a.logger.Debug().
			Int("domains", len(listing.Domains)).
			Int("pages", listing.Pages).
			Str("stop", string(reason)).
			Dur("duration", time.Since(start)).
			Msg("Total domains fetched")
	}
}
