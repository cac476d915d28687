// Package client provides the registrar XML API client: one request per listing
// page, request gating against the shared call budget, and request metrics.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/namecheap-portfolio/pkg/namecheap"
	"github.com/go-resty/resty/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for API client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "namecheap_requests_total",
		Help: "Total registrar API requests by command and status",
	}, []string{"command", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "namecheap_request_duration_seconds",
		Help:    "Registrar API request duration in seconds by command",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"command"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "namecheap_errors_total",
		Help: "Total registrar API errors by class",
	}, []string{"class"})
)

const (
	// DefaultEndpoint is the production XML API endpoint.
	DefaultEndpoint = "https://api.namecheap.com/xml.response"

	// SandboxEndpoint is the sandbox XML API endpoint.
	SandboxEndpoint = "https://api.sandbox.namecheap.com/xml.response"

	// DefaultTimeout bounds every request; there are no retries.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent is sent when Config.UserAgent is empty.
	DefaultUserAgent = "namecheap-portfolio/0.1.0"
)

// Credentials identify the API caller. They are opaque to the client.
type Credentials struct {
	APIUser  string
	APIKey   string
	UserName string
	ClientIP string
}

// RequestGate decides whether a call may be made and records calls made.
// *ratelimit.Tracker implements it.
type RequestGate interface {
	ShouldAllowRequest(ctx context.Context) (bool, error)
	RecordRequest(ctx context.Context) error
}

// Config holds the client configuration.
type Config struct {
	// Endpoint is the XML API URL.
	Endpoint string

	// Credentials are sent with every request.
	Credentials Credentials

	// PageSize is sent as PageSize when non-zero (API accepts 10-100).
	PageSize int

	// Timeout per request.
	Timeout time.Duration

	// UserAgent header.
	UserAgent string

	// Gate is optional; nil disables call budgeting.
	Gate RequestGate
}

// DefaultConfig returns a production configuration for the given credentials.
func DefaultConfig(creds Credentials) Config {
	return Config{
		Endpoint:    DefaultEndpoint,
		Credentials: creds,
		Timeout:     DefaultTimeout,
		UserAgent:   DefaultUserAgent,
	}
}

// Client is the registrar API client.
type Client struct {
	http   *resty.Client
	config Config
	logger zerolog.Logger
}

// New creates a new API client.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}

	u, err := url.Parse(cfg.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid endpoint %q", cfg.Endpoint)
	}

	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be > 0 (got %s)", cfg.Timeout)
	}

	if cfg.PageSize != 0 && (cfg.PageSize < 10 || cfg.PageSize > 100) {
		return nil, fmt.Errorf("page_size must be 0 or between 10 and 100 (got %d)", cfg.PageSize)
	}

	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	logger := log.With().Str("component", "namecheap-client").Logger()

	httpClient := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/xml").
		SetLogger(restyLogger{logger})

	return &Client{
		http:   httpClient,
		config: cfg,
		logger: logger,
	}, nil
}

// FetchPage requests one page of the domain listing.
//
// A non-OK status is not an error: the result carries OutcomeServerError and
// the untouched body. Errors are returned only when no response was obtained.
func (c *Client) FetchPage(ctx context.Context, page int) (*namecheap.PageResult, error) {
	if page < 1 {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidPage, page)
	}

	params := map[string]string{"Page": strconv.Itoa(page)}
	if c.config.PageSize > 0 {
		params["PageSize"] = strconv.Itoa(c.config.PageSize)
	}

	result, err := c.call(ctx, namecheap.CommandDomainsGetList, params)
	if err != nil {
		return nil, err
	}
	result.Page = page
	return result, nil
}

// Raw invokes a command without paging parameters. It is used for verbose
// diagnostics only; the body is returned as received.
func (c *Client) Raw(ctx context.Context, command string) (*namecheap.PageResult, error) {
	if command == "" {
		return nil, fmt.Errorf("command is required")
	}
	return c.call(ctx, command, nil)
}

// call performs a single GET with gating, metrics and classification.
func (c *Client) call(ctx context.Context, command string, params map[string]string) (*namecheap.PageResult, error) {
	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(command).Observe(time.Since(startTime).Seconds())
	}()

	if gate := c.config.Gate; gate != nil {
		allowed, err := gate.ShouldAllowRequest(ctx)
		if err != nil {
			c.logger.Error().Err(err).Msg("Rate limit check failed")
			return nil, fmt.Errorf("rate limit check: %w", err)
		}
		if !allowed {
			c.logger.Warn().
				Str("command", command).
				Msg("Request blocked by rate limiter")
			requestsTotal.WithLabelValues(command, "rate_limited").Inc()
			errorsTotal.WithLabelValues(string(ErrorClassRateLimit)).Inc()
			return nil, ErrRateLimited
		}
	}

	c.logger.Debug().
		Str("command", command).
		Str("page", params["Page"]).
		Msg("Executing registrar request")

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(c.authParams(command)).
		SetQueryParams(params).
		Get(c.config.Endpoint)
	if err != nil {
		err = c.redact(err)
		c.logger.Error().Err(err).Str("command", command).Msg("HTTP request failed")
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(command, "network_error").Inc()
		return nil, &APIError{
			ErrorClass: ErrorClassNetwork,
			Message:    "request failed",
			Err:        err,
		}
	}

	if gate := c.config.Gate; gate != nil {
		if err := gate.RecordRequest(ctx); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to record request against call budget")
		}
	}

	status := resp.StatusCode()
	requestsTotal.WithLabelValues(command, strconv.Itoa(status)).Inc()

	result := &namecheap.PageResult{
		StatusCode: status,
		Body:       resp.Body(),
		Outcome:    namecheap.OutcomeSuccess,
	}

	if status != http.StatusOK {
		class := classifyStatus(status)
		errorsTotal.WithLabelValues(string(class)).Inc()
		c.logger.Warn().
			Str("command", command).
			Int("status", status).
			Str("error_class", string(class)).
			Msg("Registrar request error")
		result.Outcome = namecheap.OutcomeServerError
	}

	return result, nil
}

func (c *Client) authParams(command string) map[string]string {
	creds := c.config.Credentials
	return map[string]string{
		"ApiUser":  creds.APIUser,
		"ApiKey":   creds.APIKey,
		"UserName": creds.UserName,
		"ClientIp": creds.ClientIP,
		"Command":  command,
	}
}

// redact strips the query string, which carries the API key, from transport
// errors before they are logged or returned.
func (c *Client) redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &url.Error{Op: urlErr.Op, URL: c.config.Endpoint, Err: urlErr.Err}
	}
	return err
}

// restyLogger routes resty's own diagnostics into zerolog.
type restyLogger struct {
	logger zerolog.Logger
}

func (l restyLogger) Errorf(format string, v ...interface{}) {
	l.logger.Error().Msgf(format, v...)
}

func (l restyLogger) Warnf(format string, v ...interface{}) {
	l.logger.Warn().Msgf(format, v...)
}

func (l restyLogger) Debugf(format string, v ...interface{}) {
	l.logger.Debug().Msgf(format, v...)
}
