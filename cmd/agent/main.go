package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/chris/todoagent/config"
	"github.com/chris/todoagent/internal/agent"
	"github.com/chris/todoagent/internal/db"
	"github.com/chris/todoagent/internal/llm"
	"github.com/chris/todoagent/internal/logging"
	"github.com/chris/todoagent/internal/todo"
)

// app holds what the commands share. It is filled in by Before.
type app struct {
	cfg      *config.Config
	database *db.DB
	store    *todo.Store
}

// newAgent builds the completion backend and the agent. Only commands that
// talk to the model call it.
func (a *app) newAgent() (*agent.Agent, error) {
	client, err := llm.NewClient(a.cfg.Provider())
	if err != nil {
		return nil, fmt.Errorf("create LLM client: %w", err)
	}
	if a.cfg.APIKey() == "" && a.cfg.LLMProvider != llm.ProviderOllama {
		log.Warn().Str("provider", a.cfg.LLMProvider).Msgf("%s is not set", llm.APIKeyEnv(a.cfg.LLMProvider))
	}
	return agent.New(a.store, client), nil
}

func main() {
	ctx := context.Background()

	var (
		state    = &app{}
		logLevel string
		logJSON  bool
	)

	cmd := &cli.Command{
		Name:  "agent",
		Usage: "Manage a todo list in plain language",
		Description: `Each request is sent to the configured LLM together with the todo tools.
Requested tool calls run against the local list and the model summarizes
what happened.

Configuration is read from the environment and from a .env file in the
working directory.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error)",
				Sources:     cli.EnvVars("LOG_LEVEL"),
				Value:       "info",
				Destination: &logLevel,
			},
			&cli.BoolFlag{
				Name:        "log-json",
				Usage:       "write logs as JSON lines",
				Destination: &logJSON,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			state.cfg = config.Load()
			if !c.IsSet("log-level") {
				logLevel = state.cfg.LogLevel
			}

			logger, err := logging.New(os.Stderr, logLevel, logJSON)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger
			for _, w := range state.cfg.Warnings {
				log.Warn().Msg(w)
			}

			state.database, err = db.Open(state.cfg.DatabasePath)
			if err != nil {
				return ctx, fmt.Errorf("open database: %w", err)
			}

			state.store = todo.New(
				todo.WithPersister(state.database.TodoSlot(state.cfg.StorageKey)),
				todo.WithMatchConfig(state.cfg.MatchConfig()),
			)
			if err := state.store.Load(); err != nil {
				// Start empty rather than refuse to run.
				log.Error().Err(err).Str("path", state.cfg.DatabasePath).Msg("failed to load todos")
			}
			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if state.database != nil {
				if err := state.database.Close(); err != nil {
					log.Error().Err(err).Msg("failed to close database")
					return err
				}
			}
			return nil
		},
		Commands: []*cli.Command{
			askCmd(state),
			chatCmd(state),
			listCmd(state),
			doneCmd(state, true),
			doneCmd(state, false),
			botCmd(state),
			serviceCmd(),
		},
	}

	exitCode := 0
	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		exitCode = 1
	}
	os.Exit(exitCode)
}
