package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/rs/zerolog/log"

	"mma_v2/ingestion/internal/metrics"
	"mma_v2/ingestion/internal/models"
)

// Options configures the FightData API client
type Options struct {
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	RateLimit  float64 // requests per second against the upstream
	BurstLimit int
}

// Client is the FightData API client. It owns request pacing: a token
// bucket gates every call and is tightened when the upstream rate-limits
// us, and a circuit breaker sheds load while the upstream is down.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration

	limiter  *rate.Limiter
	baseRate rate.Limit
	rateMu   sync.Mutex

	breaker *gobreaker.CircuitBreaker[[]byte]
}

// NewClient creates a new FightData API client
func NewClient(baseURL, apiKey string, opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryDelay == 0 {
		opts.RetryDelay = 1 * time.Second
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 8
	}
	if opts.BurstLimit < 1 {
		opts.BurstLimit = 1
	}

	c := &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
		baseRate:   rate.Limit(opts.RateLimit),
		limiter:    rate.NewLimiter(rate.Limit(opts.RateLimit), opts.BurstLimit),
		httpClient: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}

	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "fightdata-api",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state change")
			metrics.SetCircuitBreakerState(breakerStateValue(to))
		},
		IsSuccessful: func(err error) bool {
			// Only sustained upstream trouble should trip the breaker;
			// a missing entity is a perfectly healthy answer.
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.Kind == ErrorKindNotFound || apiErr.Kind == ErrorKindMalformed
			}
			return err == nil
		},
	})

	return c
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}

// throttle halves the request rate after an upstream 429, floor 1 rps
func (c *Client) throttle() {
	c.rateMu.Lock()
	defer c.rateMu.Unlock()

	current := c.limiter.Limit()
	next := current / 2
	if next < 1 {
		next = 1
	}
	if next < current {
		c.limiter.SetLimit(next)
		metrics.RecordThrottle()
		log.Warn().
			Float64("old_rps", float64(current)).
			Float64("new_rps", float64(next)).
			Msg("Upstream rate limit hit, lowering request rate")
	}
}

// recoverRate steps the request rate back toward the configured base
// after a successful call
func (c *Client) recoverRate() {
	c.rateMu.Lock()
	defer c.rateMu.Unlock()

	current := c.limiter.Limit()
	if current >= c.baseRate {
		return
	}
	next := current + 1
	if next > c.baseRate {
		next = c.baseRate
	}
	c.limiter.SetLimit(next)
}

// get performs exactly one GET request and classifies the outcome.
// Retry decisions belong to getWithRetry; this never loops.
func (c *Client) get(ctx context.Context, path string, params map[string]string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, path)

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.doRequest(ctx, url, params)
	})
	duration := time.Since(start).Seconds()

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.RecordAPICall(path, "breaker_open", duration)
			return nil, &APIError{
				Kind:    ErrorKindTransient,
				URL:     url,
				Message: "circuit breaker open",
				Err:     err,
			}
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			metrics.RecordAPICall(path, apiErr.Kind.String(), duration)
		} else {
			metrics.RecordAPICall(path, "error", duration)
		}
		return nil, err
	}

	metrics.RecordAPICall(path, "ok", duration)
	c.recoverRate()
	return body, nil
}

// doRequest is the raw HTTP exchange behind the circuit breaker
func (c *Client) doRequest(ctx context.Context, url string, params map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "mma-v2-ingestion/1.0")

	if len(params) > 0 {
		q := req.URL.Query()
		for key, value := range params {
			q.Add(key, value)
		}
		req.URL.RawQuery = q.Encode()
	}

	log.Debug().
		Str("url", req.URL.String()).
		Msg("Making API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{
			Kind:    ErrorKindTransient,
			URL:     url,
			Message: "request failed",
			Err:     err,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{
			Kind:    ErrorKindTransient,
			URL:     url,
			Message: "failed to read response body",
			Err:     err,
		}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		log.Debug().
			Str("url", url).
			Int("size", len(body)).
			Msg("API request successful")
		return body, nil

	case resp.StatusCode == http.StatusTooManyRequests:
		c.throttle()
		apiErr := &APIError{
			Kind:       ErrorKindRateLimited,
			StatusCode: resp.StatusCode,
			URL:        url,
			Message:    string(body),
		}
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, parseErr := strconv.Atoi(ra); parseErr == nil {
				apiErr.RetryAfter = time.Duration(secs) * time.Second
			}
		}
		return nil, apiErr

	case resp.StatusCode == http.StatusNotFound:
		return nil, &APIError{
			Kind:       ErrorKindNotFound,
			StatusCode: resp.StatusCode,
			URL:        url,
			Message:    "not found",
		}

	case resp.StatusCode >= 500:
		return nil, &APIError{
			Kind:       ErrorKindTransient,
			StatusCode: resp.StatusCode,
			URL:        url,
			Message:    string(body),
		}

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &APIError{
			Kind:       ErrorKindFatal,
			StatusCode: resp.StatusCode,
			URL:        url,
			Message:    "authentication failed",
		}

	default:
		return nil, &APIError{
			Kind:       ErrorKindFatal,
			StatusCode: resp.StatusCode,
			URL:        url,
			Message:    string(body),
		}
	}
}

// getWithRetry wraps get with exponential backoff, up to maxRetries
// additional attempts. Only retryable error kinds are retried; an
// upstream Retry-After hint overrides the computed backoff.
func (c *Client) getWithRetry(ctx context.Context, path string, params map[string]string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 1s, 2s, 4s
			backoff := c.retryDelay * time.Duration(1<<uint(attempt-1))

			var apiErr *APIError
			if errors.As(lastErr, &apiErr) && apiErr.RetryAfter > 0 {
				backoff = apiErr.RetryAfter
			}
			// Jitter (0-250ms) to avoid thundering herd
			backoff += time.Duration(rand.Intn(250)) * time.Millisecond

			log.Warn().
				Str("path", path).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("Retrying API request after backoff")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		body, err := c.get(ctx, path, params)
		if err == nil {
			return body, nil
		}

		lastErr = err
		if !IsRetryable(err) {
			return nil, err
		}
	}

	return nil, lastErr
}

// FetchEventlog fetches one page of a fighter's eventlog. An empty
// cursor requests the first page; an empty nextCursor in the return
// marks the last page.
func (c *Client) FetchEventlog(ctx context.Context, fighterID int, cursor string) ([]models.EventlogEntry, string, error) {
	path := fmt.Sprintf("fighters/json/Eventlog/%d", fighterID)

	params := make(map[string]string)
	if cursor != "" {
		params["cursor"] = cursor
	}

	body, err := c.getWithRetry(ctx, path, params)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch eventlog for fighter %d: %w", fighterID, err)
	}

	var page models.EventlogPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, "", &APIError{
			Kind:    ErrorKindMalformed,
			URL:     path,
			Message: "failed to unmarshal eventlog page",
			Err:     err,
		}
	}

	metrics.RecordEventlogPage()
	return page.Entries, page.NextCursor, nil
}

// fetchEventDetail fetches the card detail: the event plus its fight list
func (c *Client) fetchEventDetail(ctx context.Context, eventID int) (*models.EventDetailResponse, error) {
	path := fmt.Sprintf("events/json/Event/%d", eventID)

	body, err := c.getWithRetry(ctx, path, nil)
	if err != nil {
		return nil, err
	}

	var detail models.EventDetailResponse
	if err := json.Unmarshal(body, &detail); err != nil {
		return nil, &APIError{
			Kind:    ErrorKindMalformed,
			URL:     path,
			Message: "failed to unmarshal event detail",
			Err:     err,
		}
	}

	return &detail, nil
}

// fetchFightOdds fetches all posted betting lines for one fight
func (c *Client) fetchFightOdds(ctx context.Context, fightID int) ([]models.OddsInput, error) {
	path := fmt.Sprintf("odds/json/FightOdds/%d", fightID)

	body, err := c.getWithRetry(ctx, path, nil)
	if err != nil {
		return nil, err
	}

	var resp models.FightOddsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &APIError{
			Kind:    ErrorKindMalformed,
			URL:     path,
			Message: "failed to unmarshal fight odds",
			Err:     err,
		}
	}

	return resp.Odds, nil
}

// fetchFightStats fetches per-fighter performance metrics for one fight
func (c *Client) fetchFightStats(ctx context.Context, fightID int) ([]models.FightStatsInput, error) {
	path := fmt.Sprintf("stats/json/FightStats/%d", fightID)

	body, err := c.getWithRetry(ctx, path, nil)
	if err != nil {
		return nil, err
	}

	var resp models.FightStatsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &APIError{
			Kind:    ErrorKindMalformed,
			URL:     path,
			Message: "failed to unmarshal fight stats",
			Err:     err,
		}
	}

	return resp.Stats, nil
}

// FetchEventBundle assembles the full payload for one event: card
// detail, every fight on it, and per-fight odds and statistics.
//
// The card detail is load-bearing: if it cannot be fetched the bundle
// fails. Odds and statistics are best-effort; a failed sub-fetch leaves
// that piece absent and appends a warning instead of failing the bundle.
func (c *Client) FetchEventBundle(ctx context.Context, eventID int) (*models.EventBundle, error) {
	detail, err := c.fetchEventDetail(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch event %d: %w", eventID, err)
	}

	bundle := &models.EventBundle{
		Event:        detail.Event,
		Fights:       detail.Fights,
		OddsByFight:  make(map[int][]models.OddsInput),
		StatsByFight: make(map[int][]models.FightStatsInput),
	}

	for i := range detail.Fights {
		fight := &detail.Fights[i]

		odds, err := c.fetchFightOdds(ctx, fight.FightID)
		switch {
		case err == nil && len(odds) > 0:
			bundle.OddsByFight[fight.FightID] = odds
		case err != nil && !IsNotFound(err):
			warning := fmt.Sprintf("odds fetch failed for fight %d: %v", fight.FightID, err)
			bundle.Warnings = append(bundle.Warnings, warning)
			log.Warn().
				Int("event_id", eventID).
				Int("fight_id", fight.FightID).
				Err(err).
				Msg("Odds sub-fetch failed, continuing without odds")
		}

		// Statistics only exist once the fight happened
		if fight.Status != "Final" {
			continue
		}

		stats, err := c.fetchFightStats(ctx, fight.FightID)
		switch {
		case err == nil && len(stats) > 0:
			bundle.StatsByFight[fight.FightID] = stats
		case err != nil && !IsNotFound(err):
			warning := fmt.Sprintf("stats fetch failed for fight %d: %v", fight.FightID, err)
			bundle.Warnings = append(bundle.Warnings, warning)
			log.Warn().
				Int("event_id", eventID).
				Int("fight_id", fight.FightID).
				Err(err).
				Msg("Stats sub-fetch failed, continuing without stats")
		}
	}

	return bundle, nil
}
