package command

import (
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/sidermem-go/internal/cli/connection"
	"github.com/yndnr/sidermem-go/internal/cli/output"
)

// InfoCommand returns the info command.
func InfoCommand() *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     "Show server information as a table",
		ArgsUsage: "[SECTION...]",
		Action:    runInfo,
	}
}

func runInfo(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	f, _, err := formatterFor(c)
	if err != nil {
		return err
	}

	reply, err := client.Do(append([]string{"INFO"}, c.Args().Slice()...)...)
	if err != nil {
		return err
	}
	if err := connection.ReplyError(reply); err != nil {
		return err
	}
	return f.Format(c.App.Writer, ParseInfo(reply.String()))
}

// ParseInfo splits an INFO reply into SECTION, FIELD, VALUE rows.
// Section names are lowercased; lines without a colon are skipped.
func ParseInfo(text string) *output.Table {
	t := output.NewTable("SECTION", "FIELD", "VALUE")
	section := ""
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		switch {
		case line == "":
		case strings.HasPrefix(line, "#"):
			section = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(line, "#")))
		default:
			if field, value, ok := strings.Cut(line, ":"); ok {
				t.AddRow(section, field, value)
			}
		}
	}
	return t
}
