package odds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pluto-ai/internal/domain"
	"pluto-ai/internal/infra/config"
)

// Defaults for the betting odds API.
const (
	defaultBaseURL = "https://api.the-odds-api.com/v4"
	defaultTimeout = 15 * time.Second
	defaultSport   = "basketball_nba"
	defaultRegion  = "us"
	defaultMarket  = "h2h"

	maxOddsBody = 10 * 1024 * 1024
)

// Sport is one entry from the sports catalog.
type Sport struct {
	Key          string `json:"key"`
	Group        string `json:"group"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Active       bool   `json:"active"`
	HasOutrights bool   `json:"has_outrights"`
}

// Event is one upcoming or live game with its bookmaker odds.
type Event struct {
	ID           string      `json:"id"`
	SportKey     string      `json:"sport_key"`
	SportTitle   string      `json:"sport_title"`
	CommenceTime time.Time   `json:"commence_time"`
	HomeTeam     string      `json:"home_team"`
	AwayTeam     string      `json:"away_team"`
	Bookmakers   []Bookmaker `json:"bookmakers"`
}

// Bookmaker holds one book's market prices for an event.
type Bookmaker struct {
	Key        string    `json:"key"`
	Title      string    `json:"title"`
	LastUpdate time.Time `json:"last_update"`
	Markets    []Market  `json:"markets"`
}

// Market is one odds market (h2h, spreads, totals) with its outcomes.
type Market struct {
	Key      string    `json:"key"`
	Outcomes []Outcome `json:"outcomes"`
}

// Outcome is one priced side of a market.
type Outcome struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Point float64 `json:"point,omitempty"`
}

// HistoricalSnapshot is a point-in-time odds snapshot with its neighbors
// on the snapshot timeline.
type HistoricalSnapshot struct {
	Timestamp         time.Time `json:"timestamp"`
	PreviousTimestamp time.Time `json:"previous_timestamp"`
	NextTimestamp     time.Time `json:"next_timestamp"`
	Data              []Event   `json:"data"`
}

// Client fetches betting odds from the-odds-api.com. The API key travels
// as a query parameter on every request.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewClient creates an odds client from config.
func NewClient(cfg config.OddsConfig, logger *slog.Logger) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Sports lists the sports the odds API covers.
func (c *Client) Sports(ctx context.Context) ([]Sport, error) {
	body, err := c.get(ctx, "/sports", nil)
	if err != nil {
		return nil, domain.WrapOp("odds.Sports", err)
	}
	var sports []Sport
	if err := json.Unmarshal(body, &sports); err != nil {
		return nil, fmt.Errorf("decode sports: %w", err)
	}
	return sports, nil
}

// CurrentOdds fetches live odds for a sport. Empty arguments fall back
// to NBA head-to-head prices for US books. Multiple regions or markets
// join with commas.
func (c *Client) CurrentOdds(ctx context.Context, sport string, regions, markets []string) ([]Event, error) {
	if sport == "" {
		sport = defaultSport
	}
	params := url.Values{
		"regions": {joinOrDefault(regions, defaultRegion)},
		"markets": {joinOrDefault(markets, defaultMarket)},
	}

	body, err := c.get(ctx, "/sports/"+url.PathEscape(sport)+"/odds", params)
	if err != nil {
		return nil, domain.WrapOp("odds.CurrentOdds", err)
	}
	var events []Event
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("decode odds: %w", err)
	}
	return events, nil
}

// HistoricalOdds fetches the odds snapshot closest to a moment in time,
// given as a Unix timestamp in milliseconds.
func (c *Client) HistoricalOdds(ctx context.Context, unixMillis int64, sport string, regions, markets []string) (*HistoricalSnapshot, error) {
	if sport == "" {
		sport = defaultSport
	}
	date := time.UnixMilli(unixMillis).UTC().Format("2006-01-02T15:04:05Z")
	params := url.Values{
		"date":    {date},
		"regions": {joinOrDefault(regions, defaultRegion)},
		"markets": {joinOrDefault(markets, defaultMarket)},
	}

	body, err := c.get(ctx, "/historical/sports/"+url.PathEscape(sport)+"/odds", params)
	if err != nil {
		return nil, domain.WrapOp("odds.HistoricalOdds", err)
	}
	var snapshot HistoricalSnapshot
	if err := json.Unmarshal(body, &snapshot); err != nil {
		return nil, fmt.Errorf("decode historical odds: %w", err)
	}
	return &snapshot, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("apiKey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, domain.NewCommunicationError(0, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxOddsBody))
	if err != nil {
		return nil, domain.NewCommunicationError(0, err.Error())
	}
	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewCommunicationError(resp.StatusCode, string(body))
	}

	if remaining := resp.Header.Get("x-requests-remaining"); remaining != "" {
		c.logger.Debug("odds quota", "remaining", remaining)
	}
	return body, nil
}

func joinOrDefault(values []string, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	return strings.Join(values, ",")
}
