package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/chris/todoagent/internal/agent"
	"github.com/chris/todoagent/internal/db"
	"github.com/chris/todoagent/internal/discord"
	"github.com/chris/todoagent/internal/scheduler"
	"github.com/chris/todoagent/internal/service"
	"github.com/chris/todoagent/internal/todo"
)

func askCmd(state *app) *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Send a single request",
		UsageText: `agent ask "add buy milk tomorrow, high priority"`,
		Action: func(ctx context.Context, c *cli.Command) error {
			input := strings.Join(c.Args().Slice(), " ")
			ag, err := state.newAgent()
			if err != nil {
				return err
			}
			reply, _ := ag.Submit(ctx, input)
			fmt.Println(reply)
			return nil
		},
	}
}

func chatCmd(state *app) *cli.Command {
	return &cli.Command{
		Name:  "chat",
		Usage: "Read requests from stdin, one per line",
		Description: `Starts an interactive prompt. Type exit or quit to leave.
When stdin is a pipe, only the first line is handled.`,
		Action: func(ctx context.Context, c *cli.Command) error {
			ag, err := state.newAgent()
			if err != nil {
				return err
			}
			stat, _ := os.Stdin.Stat()
			isPipe := (stat.Mode() & os.ModeCharDevice) == 0
			return runChat(ctx, ag, os.Stdin, os.Stdout, isPipe)
		},
	}
}

// runChat is the read-submit-print loop. Each line is an independent
// request; nothing carries over between lines.
func runChat(ctx context.Context, ag *agent.Agent, in io.Reader, out io.Writer, isPipe bool) error {
	scanner := bufio.NewScanner(in)

	if !isPipe {
		fmt.Fprint(out, "todo> ")
	}

	for scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			if !isPipe {
				fmt.Fprint(out, "todo> ")
			}
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}

		reply, _ := ag.Submit(ctx, input)
		fmt.Fprintln(out, reply)

		if isPipe {
			break // single exchange in pipe mode
		}
		fmt.Fprint(out, "todo> ")
	}
	return scanner.Err()
}

func listCmd(state *app) *cli.Command {
	var (
		completed bool
		pending   bool
		priority  string
		date      string
	)
	return &cli.Command{
		Name:  "list",
		Usage: "Print todos without calling the model",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "completed", Usage: "only completed todos", Destination: &completed},
			&cli.BoolFlag{Name: "pending", Usage: "only open todos", Destination: &pending},
			&cli.StringFlag{Name: "priority", Usage: "low, medium or high", Destination: &priority},
			&cli.StringFlag{Name: "date", Usage: "due date (YYYY-MM-DD)", Destination: &date},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if completed && pending {
				return fmt.Errorf("--completed and --pending are mutually exclusive")
			}
			f := todo.Filter{DueDate: date, Priority: todo.Priority(priority)}
			if f.Priority != "" && !f.Priority.Valid() {
				return fmt.Errorf("invalid priority %q (want low, medium or high)", priority)
			}
			if completed || pending {
				f.Completed = &completed
			}
			return printTodos(os.Stdout, state.store.List(f))
		},
	}
}

func printTodos(w io.Writer, items []todo.Item) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "No todos.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDONE\tTITLE\tPRIORITY\tDUE\tCREATED")
	for _, it := range items {
		done := " "
		if it.Completed {
			done = "x"
		}
		fmt.Fprintf(tw, "%d\t[%s]\t%s\t%s\t%s\t%s\n",
			it.ID, done, it.Title, orDash(string(it.Priority)), orDash(it.DueDate), humanize.Time(it.CreatedAt))
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// doneCmd builds "done" (complete=true) or "undo" (complete=false).
func doneCmd(state *app, complete bool) *cli.Command {
	name, usage, verb := "done", "Mark a todo as completed", "completed"
	if !complete {
		name, usage, verb = "undo", "Mark a completed todo as open again", "reopened"
	}
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		UsageText: "agent " + name + " <id>",
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() != 1 {
				return fmt.Errorf("expected exactly one todo ID")
			}
			id, err := strconv.ParseInt(c.Args().First(), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid todo ID %q", c.Args().First())
			}
			it, err := state.store.Get(id)
			if err != nil {
				return fmt.Errorf("todo %d: %w", id, err)
			}
			if complete {
				state.store.Complete(id)
			} else {
				state.store.Uncomplete(id)
			}
			fmt.Printf("%s %q\n", verb, it.Title)
			return nil
		},
	}
}

func botCmd(state *app) *cli.Command {
	return &cli.Command{
		Name:  "bot",
		Usage: "Run as a Discord bot with an optional daily digest",
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg := state.cfg
			if cfg.DiscordToken == "" {
				return fmt.Errorf("DISCORD_BOT_TOKEN is not set")
			}
			ag, err := state.newAgent()
			if err != nil {
				return err
			}

			bot, err := discord.NewBot(cfg.DiscordToken, ag,
				discord.WithDirectMessageHook(func(userID string) {
					if err := state.database.SetValue(db.KeyDiscordUser, userID); err != nil {
						log.Warn().Err(err).Msg("remembering DM user")
					}
				}),
			)
			if err != nil {
				return fmt.Errorf("start Discord bot: %w", err)
			}
			defer bot.Close()

			if cfg.DigestCron != "" {
				sched := scheduler.New(ag, cfg.DiscordWebhook,
					scheduler.WithDirectMessages(func() (string, bool) {
						id, ok, err := state.database.GetValue(db.KeyDiscordUser)
						if err != nil {
							log.Warn().Err(err).Msg("looking up DM user")
							return "", false
						}
						return id, ok && id != ""
					}, bot.SendDM),
				)
				if err := sched.Start(cfg.DigestCron); err != nil {
					return err
				}
				defer sched.Stop()
			}

			log.Info().Msg("bot is running. Press Ctrl+C to exit.")
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()
			log.Info().Msg("shutting down")
			return nil
		},
	}
}

func serviceCmd() *cli.Command {
	return &cli.Command{
		Name:  "service",
		Usage: "Manage the bot as a macOS launchd agent",
		Commands: []*cli.Command{
			{
				Name:  "install",
				Usage: "Run the bot on login from the current directory",
				Action: func(ctx context.Context, c *cli.Command) error {
					wd, err := os.Getwd()
					if err != nil {
						return fmt.Errorf("resolving working directory: %w", err)
					}
					return service.Install(wd)
				},
			},
			{
				Name:   "uninstall",
				Usage:  "Stop the bot and remove the launchd agent",
				Action: func(ctx context.Context, c *cli.Command) error { return service.Uninstall() },
			},
			{
				Name:   "status",
				Usage:  "Show launchd status",
				Action: func(ctx context.Context, c *cli.Command) error { return service.Status() },
			},
		},
	}
}
