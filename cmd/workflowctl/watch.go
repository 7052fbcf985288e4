package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/eventbus"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/events"
	cli "github.com/urfave/cli/v3"
)

var errNoEventBus = errors.New("watch needs an event bus, set --event-bus or EVENT_BUS_TYPE")

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Print workflow events published on the event bus",
		Action: func(ctx context.Context, command *cli.Command) error {
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return withEnvironment(ctx, command, func(env *environment) error {
				if env.eventBus == nil {
					return errNoEventBus
				}

				if err := watch(ctx, env.eventBus, command.Root().Writer); err != nil {
					return err
				}

				env.logger.InfoContext(ctx, "Watching workflow events", "topic", events.Topic)
				<-ctx.Done()

				return nil
			})
		},
	}
}

// watch prints one line per decoded event until ctx is done.
func watch(ctx context.Context, bus eventbus.EventSubscriber, w io.Writer) error {
	var mu sync.Mutex

	printEvent := func(_ context.Context, event eventbus.Event) error {
		mu.Lock()
		defer mu.Unlock()

		_, err := fmt.Fprintln(w, describeEvent(event))

		return err
	}

	for _, eventType := range events.Types() {
		if err := bus.Handle(eventType, printEvent); err != nil {
			return err
		}
	}

	return bus.Subscribe(ctx)
}

func describeEvent(event events.Event) string {
	switch e := event.(type) {
	case events.ExecutionStarted:
		return fmt.Sprintf("%s run %s from %s", e.Type, e.RunID, strings.Join(e.StartIDs, ","))
	case events.ExecutionFinished:
		return fmt.Sprintf("%s run %s: %d done, %d failed, %d skipped", e.Type, e.RunID, e.Done, e.Failed, e.Skipped)
	case events.NodeStateChanged:
		if e.Message == "" {
			return fmt.Sprintf("%s %-10s %s", e.Type, e.State, e.NodeID)
		}

		return fmt.Sprintf("%s %-10s %s: %s", e.Type, e.State, e.NodeID, e.Message)
	case events.GraphChanged:
		action := e.Action
		if e.Undo {
			action = "undo " + action
		}

		switch {
		case e.NodeID != "":
			return fmt.Sprintf("%s %s %s", e.Type, action, e.NodeID)
		case e.SourceID != "":
			return fmt.Sprintf("%s %s %s -> %s", e.Type, action, e.SourceID, e.TargetID)
		default:
			return fmt.Sprintf("%s %s", e.Type, action)
		}
	case events.ValidationCompleted:
		return fmt.Sprintf("%s ok=%t errors=%d warnings=%d", e.Type, e.OK, e.Errors, e.Warnings)
	default:
		return string(event.GetType())
	}
}
