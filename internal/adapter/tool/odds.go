package tool

import (
	"context"
	"encoding/json"
	"log/slog"

	"pluto-ai/internal/adapter/odds"
	"pluto-ai/internal/domain"
)

// OddsBackend abstracts the betting odds client.
type OddsBackend interface {
	Sports(ctx context.Context) ([]odds.Sport, error)
	CurrentOdds(ctx context.Context, sport string, regions, markets []string) ([]odds.Event, error)
	HistoricalOdds(ctx context.Context, unixMillis int64, sport string, regions, markets []string) (*odds.HistoricalSnapshot, error)
}

// OddsTool exposes betting odds lookups to an agent.
type OddsTool struct {
	backend OddsBackend
	logger  *slog.Logger
}

// NewOddsTool creates the betting odds tool.
func NewOddsTool(backend OddsBackend, logger *slog.Logger) *OddsTool {
	return &OddsTool{backend: backend, logger: logger}
}

var _ domain.Tool = (*OddsTool)(nil)

func (t *OddsTool) Name() string { return "vegas_odds" }
func (t *OddsTool) Description() string {
	return "Fetch sports betting odds: available sports, current odds, and historical odds snapshots"
}

func (t *OddsTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"action": {
					"type": "string",
					"enum": ["sports", "current_odds", "historical_odds"],
					"description": "The odds lookup to perform"
				},
				"sport": {
					"type": "string",
					"description": "Sport key, e.g. 'basketball_nba' (default)"
				},
				"regions": {
					"type": "array",
					"items": {"type": "string"},
					"description": "Bookmaker regions, e.g. ['us'] (default)"
				},
				"markets": {
					"type": "array",
					"items": {"type": "string"},
					"description": "Odds markets, e.g. ['h2h'] (default)"
				},
				"date": {
					"type": "integer",
					"description": "Unix timestamp in milliseconds (required for historical_odds)"
				}
			},
			"required": ["action"]
		}`),
	}
}

type oddsParams struct {
	Action  string   `json:"action"`
	Sport   string   `json:"sport"`
	Regions []string `json:"regions"`
	Markets []string `json:"markets"`
	Date    int64    `json:"date"`
}

func (t *OddsTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.vegas_odds", t.logger, params,
		Dispatch(func(p oddsParams) string { return p.Action }, ActionMap[oddsParams]{
			"sports":          t.handleSports,
			"current_odds":    t.handleCurrentOdds,
			"historical_odds": t.handleHistoricalOdds,
		}),
	)
}

func (t *OddsTool) handleSports(ctx context.Context, _ oddsParams) (any, error) {
	return t.backend.Sports(ctx)
}

func (t *OddsTool) handleCurrentOdds(ctx context.Context, p oddsParams) (any, error) {
	return t.backend.CurrentOdds(ctx, p.Sport, p.Regions, p.Markets)
}

func (t *OddsTool) handleHistoricalOdds(ctx context.Context, p oddsParams) (any, error) {
	if p.Date <= 0 {
		return nil, RequireField("date", "")
	}
	return t.backend.HistoricalOdds(ctx, p.Date, p.Sport, p.Regions, p.Markets)
}
