package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"pluto-ai/internal/adapter/comms"
	"pluto-ai/internal/adapter/nba"
	"pluto-ai/internal/adapter/odds"
	"pluto-ai/internal/adapter/tool"
	"pluto-ai/internal/domain"
	"pluto-ai/internal/infra/config"
	"pluto-ai/internal/infra/logger"
	"pluto-ai/internal/infra/tracer"
	"pluto-ai/internal/usecase"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "--help", "-h", "help":
			showUsage()
			return
		}
	}

	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`pluto - NBA analytics agent

USAGE:
    pluto [COMMAND] [ARGS]

COMMANDS:
    ask MESSAGE     Send a one-shot prompt to the agent
    task TASK       Run a task through the execution loop
    teams           List NBA teams
    (no command)    Same as 'pluto ask' reading the message from args

CONFIGURATION:
    Config file: ./config.yaml (optional)
    Environment: PLUTO_* variables override config
                 (PLUTO_MODEL, PLUTO_COMMS_BASE_URL, PLUTO_ODDS_API_KEY, ...)

EXAMPLES:
    pluto ask "How did the Lakers do this season?"
    pluto task "Summarize LeBron James' career stats"`)
}

func run(args []string) error {
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logCloser()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	defer tracerShutdown(context.Background())

	newGateway, err := comms.NewGatewayFactory(cfg.Comms, log)
	if err != nil {
		return fmt.Errorf("comms: %w", err)
	}

	statsClient := nba.NewClient(cfg.NBA, log)
	oddsClient := odds.NewClient(cfg.Odds, log)

	agent, err := usecase.NewCrewAgent(agentSpec(cfg), usecase.AgentDeps{
		NewGateway:     newGateway,
		Logger:         log,
		SessionDataDir: cfg.Sessions.DataDir,
		DefaultTools: []domain.Tool{
			tool.NewNBATool(statsClient, log),
			tool.NewOddsTool(oddsClient, log),
		},
	})
	if err != nil {
		return fmt.Errorf("agent: %w", err)
	}

	if cfg.Sessions.ReapSchedule != "" {
		reaper, err := usecase.NewSessionReaper(agent.Sessions(), cfg.Sessions.ReapSchedule, cfg.Sessions.ReapMaxAge, log)
		if err != nil {
			return fmt.Errorf("reaper: %w", err)
		}
		reaper.Start()
		defer reaper.Stop()
	}

	args = stripConfigFlag(args)
	command, rest := "ask", args
	if len(args) > 0 {
		switch args[0] {
		case "ask", "task", "teams":
			command, rest = args[0], args[1:]
		}
	}

	switch command {
	case "teams":
		for _, t := range nba.Teams() {
			fmt.Printf("%-4s %s\n", t.Abbreviation, t.FullName)
		}
		return nil

	case "task":
		if len(rest) == 0 {
			return fmt.Errorf("task requires a description")
		}
		agent.StartSession()
		taskRun, err := agent.Run(ctx, usecase.TaskParams{"task": strings.Join(rest, " ")})
		if err != nil {
			return fmt.Errorf("run: %w", err)
		}
		fmt.Println(taskRun.Result())
		return taskRun.Finish()

	default: // ask
		if len(rest) == 0 {
			showUsage()
			return nil
		}
		agent.StartSession()
		resp, err := agent.Prompt(ctx, strings.Join(rest, " "))
		if err != nil {
			return fmt.Errorf("prompt: %w", err)
		}
		if resp == nil {
			return fmt.Errorf("no response from backend")
		}
		fmt.Println(resp.Content)
		return nil
	}
}

// agentSpec maps the config's agent section onto a spec.
func agentSpec(cfg *config.Config) domain.AgentSpec {
	role := domain.Role(cfg.Agent.Role)
	if role == "" {
		role = domain.RoleCrew
	}
	return domain.AgentSpec{
		Name:              cfg.Agent.Name,
		Model:             cfg.Agent.Model,
		Instructions:      domain.StaticInstructions(cfg.Agent.Instructions),
		Tendencies:        cfg.Agent.Tendencies,
		Role:              role,
		SwallowCommErrors: cfg.Agent.SwallowCommErrors,
	}
}

func configPath() string {
	for i, arg := range os.Args {
		if arg == "--config" && i+1 < len(os.Args) {
			return os.Args[i+1]
		}
	}
	return "config.yaml"
}

// stripConfigFlag removes the --config PATH pair so the remaining args
// are just the command and its message.
func stripConfigFlag(args []string) []string {
	out := args[:0:0]
	for i := 0; i < len(args); i++ {
		if args[i] == "--config" {
			i++ // skip the path
			continue
		}
		out = append(out, args[i])
	}
	return out
}
