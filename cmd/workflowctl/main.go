// Package main provides workflowctl, the command line host of the workflow core.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/history"
	cli "github.com/urfave/cli/v3"
)

const (
	defaultPort        = 9091
	defaultDatabaseURL = "file://./data"
)

func newCommand() *cli.Command {
	return &cli.Command{
		Name:                  "workflowctl",
		Usage:                 "Edit, validate, run and schedule workflow graphs",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Document store URL (file://, redis://, postgres://, badger://)",
				Value:   defaultDatabaseURL,
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka); events stay in process when empty",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.IntFlag{
				Name:    "history-size",
				Usage:   "Maximum depth of the undo and redo stacks",
				Value:   history.DefaultCapacity,
				Sources: cli.EnvVars("HISTORY_SIZE"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export run and node spans over OTLP/HTTP",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
		},
		Commands: []*cli.Command{
			validateCommand(),
			runCommand(),
			serveCommand(),
			scheduleCommand(),
			listCommand(),
			deleteCommand(),
			watchCommand(),
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
