package holiday

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/crewdesk/leavedesk/datemath"
)

// =============================================================================
// FEED - External source of public-holiday dates
// =============================================================================

// Feed returns the public-holiday dates for a year. Implementations are
// best-effort; callers go through Load, which treats errors as an empty
// calendar.
type Feed interface {
	Fetch(ctx context.Context, year int) ([]datemath.Date, error)
}

// FeedFunc adapts a function to the Feed interface.
type FeedFunc func(ctx context.Context, year int) ([]datemath.Date, error)

func (f FeedFunc) Fetch(ctx context.Context, year int) ([]datemath.Date, error) {
	return f(ctx, year)
}

// StaticFeed serves a fixed date list. Used in tests and as a fallback when
// no feed URL is configured.
type StaticFeed []datemath.Date

func (s StaticFeed) Fetch(_ context.Context, year int) ([]datemath.Date, error) {
	var out []datemath.Date
	for _, d := range s {
		if d.Year() == year {
			out = append(out, d)
		}
	}
	return out, nil
}

// =============================================================================
// HTTP FEED - JSON endpoint client
// =============================================================================

// HTTPFeed fetches holidays from a JSON endpoint. The endpoint is expected
// to answer GET <BaseURL>?year=<year> with:
//
//	{"holidays": [{"date": "2026-01-01", "name": "New Year's Day"}, ...]}
//
// Entries with unparseable dates are skipped rather than failing the fetch.
type HTTPFeed struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPFeed creates a feed client with a conservative timeout. The feed
// is consulted once at startup, so a slow endpoint should not delay boot
// for long.
func NewHTTPFeed(baseURL string) *HTTPFeed {
	return &HTTPFeed{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type feedResponse struct {
	Holidays []feedEntry `json:"holidays"`
}

type feedEntry struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

func (f *HTTPFeed) Fetch(ctx context.Context, year int) ([]datemath.Date, error) {
	u, err := url.Parse(f.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid feed URL: %w", err)
	}
	q := u.Query()
	q.Set("year", strconv.Itoa(year))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("holiday feed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("holiday feed returned status %d", resp.StatusCode)
	}

	var body feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("holiday feed returned malformed JSON: %w", err)
	}

	var dates []datemath.Date
	for _, entry := range body.Holidays {
		d, err := datemath.ParseDate(entry.Date)
		if err != nil {
			continue
		}
		dates = append(dates, d)
	}
	return dates, nil
}
