package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"
)

type CompareCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand
}

// NewCompareCommand returns the compare command.
func NewCompareCommand(rootCmd *RootCommand, app *kingpin.Application) *CompareCommand {
	c := &CompareCommand{rootCmd: rootCmd}
	c.Cmd = app.Command("compare", "Run both demos and report their elapsed times.")
	return c
}

func (c CompareCommand) Name() string { return c.Cmd.FullCommand() }

func (c CompareCommand) Run(ctx context.Context) error {
	svc, stop, err := c.rootCmd.newDemoService(ctx)
	if err != nil {
		return err
	}
	defer stop()

	cmp, err := svc.Compare(ctx)
	if err != nil {
		return fmt.Errorf("could not compare demos: %w", err)
	}

	for _, line := range cmp.Report() {
		fmt.Fprintln(c.rootCmd.Stdout, line)
	}
	return nil
}
