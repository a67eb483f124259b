package command

import (
	"context"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/sidermem-go/internal/cli/connection"
	"github.com/yndnr/sidermem-go/internal/cli/repl"
)

// REPLCommand returns the repl command.
func REPLCommand() *cli.Command {
	return &cli.Command{
		Name:   "repl",
		Usage:  "Start an interactive session (default when no command is given)",
		Action: runREPL,
	}
}

func runREPL(c *cli.Context) error {
	mgr, err := GetConnectionManager(c)
	if err != nil {
		return err
	}
	f, _, err := formatterFor(c)
	if err != nil {
		return err
	}
	cfg, err := loadedConfig(c)
	if err != nil {
		return err
	}

	w := c.App.Writer
	exec := func(ctx context.Context, args []string) error {
		client, err := mgr.Client(ctx)
		if err != nil {
			return err
		}
		if err := execute(ctx, client, f, w, args); err != nil {
			// Redial on the next command.
			mgr.Reset()
			return err
		}
		// A subscribed connection only accepts pub/sub commands.
		if connection.IsSubscribe(args[0]) {
			mgr.Reset()
		}
		return nil
	}

	r := repl.New(exec,
		repl.WithIO(c.App.Reader, w),
		repl.WithPrompt(mgr.Addr()+"> "),
		repl.WithHistory(repl.NewHistory(cfg.HistoryFile)),
	)
	return r.Run(c.Context)
}
