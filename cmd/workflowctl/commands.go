package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/execution"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/scheduler"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/services"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/validation"
	cli "github.com/urfave/cli/v3"
)

const shutdownTimeout = 10 * time.Second

var errInvalidWorkflow = errors.New("workflow is invalid")

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Check a workflow file or stored workflow for structural errors",
		ArgsUsage: "<file|name>",
		Action: func(ctx context.Context, command *cli.Command) error {
			return withEnvironment(ctx, command, func(env *environment) error {
				ws := env.workspace()
				if err := env.load(ctx, ws, command.Args().First()); err != nil {
					return err
				}

				ok, diagnostics := ws.ValidateAll(ctx)
				printDiagnostics(command.Root().Writer, diagnostics)

				if !ok {
					return errInvalidWorkflow
				}

				fmt.Fprintf(command.Root().Writer, "%s is valid\n", ws.Name())

				return nil
			})
		},
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Validate a workflow and execute it from every START node",
		ArgsUsage: "<file|name>",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "var",
				Aliases: []string{"v"},
				Usage:   "Execution variable as key=value, repeatable",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			vars, err := parseVars(command.StringSlice("var"))
			if err != nil {
				return err
			}

			return withEnvironment(ctx, command, func(env *environment) error {
				ws := env.workspace()
				if err := env.load(ctx, ws, command.Args().First()); err != nil {
					return err
				}

				result, err := ws.Run(ctx, vars)
				if errors.Is(err, services.ErrWorkflowInvalid) {
					printDiagnostics(command.Root().Writer, result.Diagnostics)

					return errInvalidWorkflow
				}

				if err != nil {
					return err
				}

				printRun(command.Root().Writer, result.Events, result.Summary)

				if result.Summary.Failed > 0 {
					return fmt.Errorf("%d node(s) failed", result.Summary.Failed)
				}

				return nil
			})
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the workspace HTTP API",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:  "load",
				Usage: "Workflow file or stored name to open on start",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return withEnvironment(ctx, command, func(env *environment) error {
				ws := env.workspace()

				if ref := command.String("load"); ref != "" {
					if err := env.load(ctx, ws, ref); err != nil {
						return err
					}
				}

				api := NewAPI(env.logger, ws, env.registry, env.prometheus)

				return api.Serve(ctx, command.Int("port"))
			})
		},
	}
}

func scheduleCommand() *cli.Command {
	return &cli.Command{
		Name:      "schedule",
		Usage:     "Run a stored workflow on a cron schedule",
		ArgsUsage: "<name>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "schedule",
				Usage:    "Cron expression or descriptor such as @every 5m",
				Required: true,
				Sources:  cli.EnvVars("SCHEDULE"),
			},
			&cli.StringSliceFlag{
				Name:    "var",
				Aliases: []string{"v"},
				Usage:   "Execution variable as key=value, repeatable",
			},
			&cli.BoolFlag{
				Name:  "run-now",
				Usage: "Run once immediately before waiting for the schedule",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			name := command.Args().First()
			if name == "" {
				return errors.New("a stored workflow name is required")
			}

			expr := command.String("schedule")
			if err := scheduler.Validate(expr); err != nil {
				return err
			}

			vars, err := parseVars(command.StringSlice("var"))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return withEnvironment(ctx, command, func(env *environment) error {
				s := scheduler.New(env.logger)

				if err := s.Add(name, expr, storedRun(env, name, vars)); err != nil {
					return err
				}

				if command.Bool("run-now") {
					if err := s.RunNow(ctx, name); err != nil {
						env.logger.ErrorContext(ctx, "Initial run failed", "name", name, "error", err)
					}
				}

				s.Start(ctx)
				<-ctx.Done()

				stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()

				return s.Stop(stopCtx)
			})
		},
	}
}

// storedRun loads the named workflow afresh on every firing so edits saved in
// between are picked up.
func storedRun(env *environment, name string, vars map[string]string) scheduler.Job {
	return func(ctx context.Context) error {
		ws := env.workspace()
		if err := ws.Load(ctx, name); err != nil {
			return err
		}

		result, err := ws.Run(ctx, vars)
		if err != nil {
			return err
		}

		env.logger.InfoContext(ctx, "Scheduled run finished", "name", name, "outcome", result.Summary.Outcome())

		if result.Summary.Failed > 0 {
			return fmt.Errorf("%d node(s) failed", result.Summary.Failed)
		}

		return nil
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List stored workflows",
		Action: func(ctx context.Context, command *cli.Command) error {
			return withEnvironment(ctx, command, func(env *environment) error {
				names, err := env.workspace().Workflows(ctx)
				if err != nil {
					return err
				}

				for _, name := range names {
					fmt.Fprintln(command.Root().Writer, name)
				}

				return nil
			})
		},
	}
}

func deleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a stored workflow",
		ArgsUsage: "<name>",
		Action: func(ctx context.Context, command *cli.Command) error {
			name := command.Args().First()
			if name == "" {
				return errors.New("a stored workflow name is required")
			}

			return withEnvironment(ctx, command, func(env *environment) error {
				if err := env.workspace().DeleteWorkflow(ctx, name); err != nil {
					return err
				}

				fmt.Fprintf(command.Root().Writer, "%s deleted\n", name)

				return nil
			})
		},
	}
}

func withEnvironment(ctx context.Context, command *cli.Command, fn func(env *environment) error) error {
	env, err := setup(ctx, command)
	if err != nil {
		return err
	}

	defer func() {
		if err := env.close(context.WithoutCancel(ctx)); err != nil {
			env.logger.ErrorContext(ctx, "Failed to close resources", "error", err)
		}
	}()

	return fn(env)
}

func parseVars(values []string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}

	vars := make(map[string]string, len(values))

	for _, value := range values {
		key, val, ok := strings.Cut(value, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid variable %q, expected key=value", value)
		}

		vars[strings.TrimSpace(key)] = val
	}

	return vars, nil
}

func printDiagnostics(w io.Writer, diagnostics []validation.Diagnostic) {
	for _, d := range diagnostics {
		fmt.Fprintln(w, d.String())
	}
}

func printRun(w io.Writer, collected []execution.Event, summary execution.Summary) {
	for _, event := range collected {
		if event.Message == "" {
			fmt.Fprintf(w, "%-10s %s\n", event.State, event.NodeID)

			continue
		}

		fmt.Fprintf(w, "%-10s %s: %s\n", event.State, event.NodeID, event.Message)
	}

	fmt.Fprintf(w, "%s: %d done, %d failed, %d skipped\n",
		summary.Outcome(), summary.Done, summary.Failed, summary.Skipped)
}
