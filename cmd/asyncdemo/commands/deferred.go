package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"
)

type DeferredCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand
}

// NewDeferredCommand returns the deferred command.
func NewDeferredCommand(rootCmd *RootCommand, app *kingpin.Application) *DeferredCommand {
	c := &DeferredCommand{rootCmd: rootCmd}
	c.Cmd = app.Command("deferred", "Run the deferred callback and staged sequence demo.")
	return c
}

func (c DeferredCommand) Name() string { return c.Cmd.FullCommand() }

func (c DeferredCommand) Run(ctx context.Context) error {
	svc, stop, err := c.rootCmd.newDemoService(ctx)
	if err != nil {
		return err
	}
	defer stop()

	if _, err := svc.RunDeferred(ctx); err != nil {
		return fmt.Errorf("could not run deferred demo: %w", err)
	}
	return nil
}
