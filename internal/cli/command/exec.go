package command

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/sidermem-go/internal/cli/connection"
	"github.com/yndnr/sidermem-go/internal/cli/output"
)

// ExecCommand returns the exec command.
func ExecCommand() *cli.Command {
	return &cli.Command{
		Name:            "exec",
		Usage:           "Send one command and print the reply",
		ArgsUsage:       "COMMAND [ARG...]",
		SkipFlagParsing: true,
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return errors.New("exec: command required")
			}
			return execArgs(c, c.Args().Slice())
		},
	}
}

func execArgs(c *cli.Context, args []string) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	f, _, err := formatterFor(c)
	if err != nil {
		return err
	}
	return execute(c.Context, client, f, c.App.Writer, args)
}

// execute sends args and prints the reply. After SUBSCRIBE or PSUBSCRIBE
// it keeps printing pushed messages until ctx is done or the user
// interrupts.
func execute(ctx context.Context, client *connection.Client, f output.Formatter, w io.Writer, args []string) error {
	reply, err := client.Do(args...)
	if err != nil {
		return err
	}
	if err := f.Format(w, reply); err != nil {
		return err
	}
	if !connection.IsSubscribe(args[0]) || connection.ReplyError(reply) != nil {
		return nil
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	for {
		v, err := client.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := f.Format(w, v); err != nil {
			return err
		}
	}
}
