package tool

import (
	"context"
	"encoding/json"
	"log/slog"

	"pluto-ai/internal/adapter/nba"
	"pluto-ai/internal/domain"
)

// NBABackend abstracts the statistics client so the tool can be tested
// without a live stats API.
type NBABackend interface {
	FindPlayerInfo(ctx context.Context, name string) (*nba.ResultSet, error)
	PlayerCareerStats(ctx context.Context, name string) (*nba.ResultSet, error)
	PlayerGameLogs(ctx context.Context, name, season string) (*nba.ResultSet, error)
	TeamGameLogs(ctx context.Context, teamName, season string) (*nba.ResultSet, error)
	PlayByPlay(ctx context.Context, gameID string) (*nba.ResultSet, error)
	TodaysScoreboard(ctx context.Context) (map[string]any, error)
}

// NBATool exposes NBA statistics lookups to an agent.
type NBATool struct {
	backend NBABackend
	logger  *slog.Logger
}

// NewNBATool creates the NBA statistics tool.
func NewNBATool(backend NBABackend, logger *slog.Logger) *NBATool {
	return &NBATool{backend: backend, logger: logger}
}

var _ domain.Tool = (*NBATool)(nil)

func (t *NBATool) Name() string { return "nba_stats" }
func (t *NBATool) Description() string {
	return "Fetch NBA statistics: player info, career stats, game logs, team game logs, play-by-play, and today's live scoreboard"
}

func (t *NBATool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"action": {
					"type": "string",
					"enum": ["player_info", "player_career_stats", "player_game_logs", "teams", "team_game_logs", "play_by_play", "scoreboard"],
					"description": "The statistics lookup to perform"
				},
				"player": {
					"type": "string",
					"description": "Player full name (for player actions)"
				},
				"team": {
					"type": "string",
					"description": "Team name, city, nickname, or abbreviation (for team_game_logs)"
				},
				"season": {
					"type": "string",
					"description": "NBA season, e.g. '2024-25' (for game log actions)"
				},
				"game_id": {
					"type": "string",
					"description": "NBA game ID (for play_by_play)"
				}
			},
			"required": ["action"]
		}`),
	}
}

type nbaParams struct {
	Action string `json:"action"`
	Player string `json:"player"`
	Team   string `json:"team"`
	Season string `json:"season"`
	GameID string `json:"game_id"`
}

func (t *NBATool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.nba_stats", t.logger, params,
		Dispatch(func(p nbaParams) string { return p.Action }, ActionMap[nbaParams]{
			"player_info":         t.handlePlayerInfo,
			"player_career_stats": t.handlePlayerCareerStats,
			"player_game_logs":    t.handlePlayerGameLogs,
			"teams":               t.handleTeams,
			"team_game_logs":      t.handleTeamGameLogs,
			"play_by_play":        t.handlePlayByPlay,
			"scoreboard":          t.handleScoreboard,
		}),
	)
}

func (t *NBATool) handlePlayerInfo(ctx context.Context, p nbaParams) (any, error) {
	if err := RequireField("player", p.Player); err != nil {
		return nil, err
	}
	return t.backend.FindPlayerInfo(ctx, p.Player)
}

func (t *NBATool) handlePlayerCareerStats(ctx context.Context, p nbaParams) (any, error) {
	if err := RequireField("player", p.Player); err != nil {
		return nil, err
	}
	return t.backend.PlayerCareerStats(ctx, p.Player)
}

func (t *NBATool) handlePlayerGameLogs(ctx context.Context, p nbaParams) (any, error) {
	if err := RequireField("player", p.Player); err != nil {
		return nil, err
	}
	if err := RequireField("season", p.Season); err != nil {
		return nil, err
	}
	return t.backend.PlayerGameLogs(ctx, p.Player, p.Season)
}

func (t *NBATool) handleTeams(_ context.Context, _ nbaParams) (any, error) {
	return nba.Teams(), nil
}

func (t *NBATool) handleTeamGameLogs(ctx context.Context, p nbaParams) (any, error) {
	if err := RequireField("team", p.Team); err != nil {
		return nil, err
	}
	if err := RequireField("season", p.Season); err != nil {
		return nil, err
	}
	return t.backend.TeamGameLogs(ctx, p.Team, p.Season)
}

func (t *NBATool) handlePlayByPlay(ctx context.Context, p nbaParams) (any, error) {
	if err := RequireField("game_id", p.GameID); err != nil {
		return nil, err
	}
	return t.backend.PlayByPlay(ctx, p.GameID)
}

func (t *NBATool) handleScoreboard(ctx context.Context, _ nbaParams) (any, error) {
	return t.backend.TodaysScoreboard(ctx)
}
