package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"
)

type AllCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand
}

// NewAllCommand returns the all command, the default one.
func NewAllCommand(rootCmd *RootCommand, app *kingpin.Application) *AllCommand {
	c := &AllCommand{rootCmd: rootCmd}
	c.Cmd = app.Command("all", "Run the blocking demo followed by the deferred demo.").Default()
	return c
}

func (c AllCommand) Name() string { return c.Cmd.FullCommand() }

func (c AllCommand) Run(ctx context.Context) error {
	svc, stop, err := c.rootCmd.newDemoService(ctx)
	if err != nil {
		return err
	}
	defer stop()

	fmt.Fprintln(c.rootCmd.Stdout, "=== Sequential-Blocking Demo ===")
	if _, err := svc.RunBlocking(ctx); err != nil {
		return fmt.Errorf("could not run blocking demo: %w", err)
	}

	fmt.Fprintln(c.rootCmd.Stdout, "=== Deferred-Callback Demo ===")
	if _, err := svc.RunDeferred(ctx); err != nil {
		return fmt.Errorf("could not run deferred demo: %w", err)
	}

	return nil
}
