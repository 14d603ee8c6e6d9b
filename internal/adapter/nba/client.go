package nba

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"pluto-ai/internal/domain"
	"pluto-ai/internal/infra/config"
)

// Default client settings. The stats API throttles aggressive callers,
// so requests are rate limited client-side.
const (
	defaultStatsBaseURL = "https://stats.nba.com"
	defaultLiveBaseURL  = "https://cdn.nba.com"
	defaultTimeout      = 30 * time.Second
	defaultRateLimit    = 2.0 // requests per second
	defaultRateBurst    = 4

	maxStatsBody = 20 * 1024 * 1024
)

// Client fetches NBA statistics from the stats and live-data APIs.
// Player names resolve through a lazily fetched roster index; team names
// resolve through the static franchise table.
type Client struct {
	statsBaseURL string
	liveBaseURL  string
	client       *http.Client
	limiter      *rate.Limiter
	logger       *slog.Logger

	mu      sync.Mutex
	players map[string]int // lowercased full name -> player ID
}

// NewClient creates a stats client from config, applying defaults for
// zero-valued fields.
func NewClient(cfg config.NBAConfig, logger *slog.Logger) *Client {
	statsBase := strings.TrimRight(cfg.StatsBaseURL, "/")
	if statsBase == "" {
		statsBase = defaultStatsBaseURL
	}
	liveBase := strings.TrimRight(cfg.LiveBaseURL, "/")
	if liveBase == "" {
		liveBase = defaultLiveBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = defaultRateLimit
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = defaultRateBurst
	}

	return &Client{
		statsBaseURL: statsBase,
		liveBaseURL:  liveBase,
		client:       &http.Client{Timeout: timeout},
		limiter:      rate.NewLimiter(rate.Limit(limit), burst),
		logger:       logger,
	}
}

// FindPlayerInfo returns detailed information for a player by full name.
func (c *Client) FindPlayerInfo(ctx context.Context, name string) (*ResultSet, error) {
	playerID, err := c.resolvePlayer(ctx, name)
	if err != nil {
		return nil, domain.WrapOp("nba.FindPlayerInfo", err)
	}
	return c.fetchStats(ctx, "/stats/commonplayerinfo", url.Values{
		"PlayerID": {strconv.Itoa(playerID)},
	})
}

// PlayerCareerStats returns season-by-season career totals for a player.
func (c *Client) PlayerCareerStats(ctx context.Context, name string) (*ResultSet, error) {
	playerID, err := c.resolvePlayer(ctx, name)
	if err != nil {
		return nil, domain.WrapOp("nba.PlayerCareerStats", err)
	}
	return c.fetchStats(ctx, "/stats/playercareerstats", url.Values{
		"PlayerID": {strconv.Itoa(playerID)},
		"PerMode":  {"Totals"},
	})
}

// PlayerGameLogs returns per-game logs for a player in one season,
// e.g. season "2024-25".
func (c *Client) PlayerGameLogs(ctx context.Context, name, season string) (*ResultSet, error) {
	playerID, err := c.resolvePlayer(ctx, name)
	if err != nil {
		return nil, domain.WrapOp("nba.PlayerGameLogs", err)
	}
	return c.fetchStats(ctx, "/stats/playergamelogs", url.Values{
		"PlayerID":   {strconv.Itoa(playerID)},
		"Season":     {season},
		"SeasonType": {"Regular Season"},
	})
}

// TeamGameLogs returns per-game logs for a team in one season. The team
// resolves by full name, nickname, city, or abbreviation.
func (c *Client) TeamGameLogs(ctx context.Context, teamName, season string) (*ResultSet, error) {
	team, ok := findTeam(teamName)
	if !ok {
		return nil, domain.NewDomainError("nba.TeamGameLogs", domain.ErrTeamNotFound, teamName)
	}
	return c.fetchStats(ctx, "/stats/teamgamelogs", url.Values{
		"TeamID":     {strconv.Itoa(team.ID)},
		"Season":     {season},
		"SeasonType": {"Regular Season"},
	})
}

// PlayByPlay returns event-level play-by-play data for a game.
func (c *Client) PlayByPlay(ctx context.Context, gameID string) (*ResultSet, error) {
	return c.fetchStats(ctx, "/stats/playbyplayv2", url.Values{
		"GameID":      {gameID},
		"StartPeriod": {"0"},
		"EndPeriod":   {"10"},
	})
}

// TodaysScoreboard returns the live scoreboard for today's games.
func (c *Client) TodaysScoreboard(ctx context.Context) (map[string]any, error) {
	body, err := c.get(ctx, c.liveBaseURL+"/static/json/liveData/scoreboard/todaysScoreboard_00.json")
	if err != nil {
		return nil, err
	}
	var scoreboard map[string]any
	if err := json.Unmarshal(body, &scoreboard); err != nil {
		return nil, fmt.Errorf("decode scoreboard: %w", err)
	}
	return scoreboard, nil
}

// resolvePlayer maps a full player name to a player ID using the roster
// index, fetching the index on first use.
func (c *Client) resolvePlayer(ctx context.Context, name string) (int, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return 0, domain.ErrPlayerNotFound
	}

	index, err := c.playerIndex(ctx)
	if err != nil {
		return 0, err
	}
	if id, ok := index[needle]; ok {
		return id, nil
	}
	// Fall back to substring match, first hit wins.
	for full, id := range index {
		if strings.Contains(full, needle) {
			return id, nil
		}
	}
	return 0, fmt.Errorf("%q: %w", name, domain.ErrPlayerNotFound)
}

// playerIndex returns the cached roster index, loading it if needed.
func (c *Client) playerIndex(ctx context.Context) (map[string]int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.players != nil {
		return c.players, nil
	}

	rs, err := c.fetchStats(ctx, "/stats/commonallplayers", url.Values{
		"IsOnlyCurrentSeason": {"0"},
		"LeagueID":            {"00"},
		"Season":              {currentSeason(time.Now())},
	})
	if err != nil {
		return nil, fmt.Errorf("load player index: %w", err)
	}

	idCol := rs.Column("PERSON_ID")
	nameCol := rs.Column("DISPLAY_FIRST_LAST")
	if idCol < 0 || nameCol < 0 {
		return nil, fmt.Errorf("player index missing expected columns: %v", rs.Headers)
	}

	index := make(map[string]int, len(rs.Rows))
	for _, row := range rs.Rows {
		if idCol >= len(row) || nameCol >= len(row) {
			continue
		}
		id, okID := row[idCol].(float64)
		name, okName := row[nameCol].(string)
		if !okID || !okName {
			continue
		}
		index[strings.ToLower(name)] = int(id)
	}

	c.players = index
	c.logger.Debug("player index loaded", "players", len(index))
	return index, nil
}

// fetchStats performs a rate-limited GET against a stats endpoint and
// returns its first result set.
func (c *Client) fetchStats(ctx context.Context, path string, params url.Values) (*ResultSet, error) {
	body, err := c.get(ctx, c.statsBaseURL+path+"?"+params.Encode())
	if err != nil {
		return nil, err
	}
	return parseStatsResponse(body)
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	// The stats API rejects requests without browser-like headers.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36")
	req.Header.Set("Referer", "https://stats.nba.com/")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-nba-stats-origin", "stats")
	req.Header.Set("x-nba-stats-token", "true")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stats request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxStatsBody))
	if err != nil {
		return nil, fmt.Errorf("read stats response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stats request failed with status %d", resp.StatusCode)
	}
	return body, nil
}

// currentSeason formats the NBA season containing t, e.g. "2024-25" for
// any date from October 2024 through September 2025.
func currentSeason(t time.Time) string {
	year := t.Year()
	if t.Month() < time.October {
		year--
	}
	return fmt.Sprintf("%d-%02d", year, (year+1)%100)
}
