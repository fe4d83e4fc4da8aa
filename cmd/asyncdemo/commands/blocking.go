package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"
)

type BlockingCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand
}

// NewBlockingCommand returns the blocking command.
func NewBlockingCommand(rootCmd *RootCommand, app *kingpin.Application) *BlockingCommand {
	c := &BlockingCommand{rootCmd: rootCmd}
	c.Cmd = app.Command("blocking", "Run the sequential blocking demo.")
	return c
}

func (c BlockingCommand) Name() string { return c.Cmd.FullCommand() }

func (c BlockingCommand) Run(ctx context.Context) error {
	svc, stop, err := c.rootCmd.newDemoService(ctx)
	if err != nil {
		return err
	}
	defer stop()

	if _, err := svc.RunBlocking(ctx); err != nil {
		return fmt.Errorf("could not run blocking demo: %w", err)
	}
	return nil
}
