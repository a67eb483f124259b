package command

import (
	"bufio"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/sidermem-go/internal/cli/config"
	"github.com/yndnr/sidermem-go/internal/cli/output"
	"github.com/yndnr/sidermem-go/internal/core/auth"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "CLI local configuration and connection profiles",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show CLI configuration (passwords masked)",
				Action: configShow,
			},
			{
				Name:   "validate",
				Usage:  "Validate CLI configuration",
				Action: configValidate,
			},
			{
				Name:   "profiles",
				Usage:  "List saved connection profiles",
				Action: configProfiles,
			},
			{
				Name:      "use",
				Usage:     "Set the profile used when --profile is not given",
				ArgsUsage: "NAME",
				Action:    configUse,
			},
			{
				Name:      "save",
				Usage:     "Save the current connection flags as a profile",
				ArgsUsage: "NAME",
				Action:    configSave,
			},
			{
				Name:      "hash-password",
				Usage:     "Print an Argon2id hash for the server password setting",
				ArgsUsage: "[PASSWORD]",
				Action:    configHashPassword,
			},
		},
	}
}

func configShow(c *cli.Context) error {
	cfg, err := loadedConfig(c)
	if err != nil {
		return err
	}
	f, format, err := formatterFor(c)
	if err != nil {
		return err
	}

	masked := maskedConfig(cfg)
	if format != output.FormatText {
		return f.Format(c.App.Writer, masked)
	}

	w := c.App.Writer
	fmt.Fprintf(w, "CLI Configuration\n")
	fmt.Fprintf(w, "=================\n\n")
	fmt.Fprintf(w, "Config file: %s\n\n", getState(c).configPath)
	return output.NewFormatter(output.FormatYAML).Format(w, masked)
}

// maskedConfig returns a copy of cfg with passwords hidden.
func maskedConfig(cfg *config.CLIConfig) *config.CLIConfig {
	out := *cfg
	out.Connections = make(map[string]config.ConnectionConfig, len(cfg.Connections))
	for name, conn := range cfg.Connections {
		if conn.Password != "" {
			conn.Password = "****"
		}
		out.Connections[name] = conn
	}
	return &out
}

func configValidate(c *cli.Context) error {
	path := getState(c).configPath
	if _, err := config.Load(path); err != nil {
		return fmt.Errorf("invalid configuration %s: %w", path, err)
	}
	fmt.Fprintf(c.App.Writer, "✓ Configuration file is valid: %s\n", path)
	return nil
}

func configProfiles(c *cli.Context) error {
	cfg, err := loadedConfig(c)
	if err != nil {
		return err
	}
	f, _, err := formatterFor(c)
	if err != nil {
		return err
	}

	t := output.NewTable("NAME", "HOST", "PORT", "USER", "TLS", "CURRENT")
	for _, name := range slices.Sorted(maps.Keys(cfg.Connections)) {
		conn, _ := cfg.Profile(name)
		current := ""
		if name == cfg.CurrentConnection {
			current = "*"
		}
		t.AddRow(name, conn.Host, strconv.Itoa(conn.Port), conn.Username, strconv.FormatBool(conn.TLS), current)
	}
	return f.Format(c.App.Writer, t)
}

func configUse(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return errors.New("profile name required")
	}
	cfg, err := loadedConfig(c)
	if err != nil {
		return err
	}
	if _, ok := cfg.Connections[name]; !ok {
		return fmt.Errorf("unknown profile %q", name)
	}

	cfg.CurrentConnection = name
	path := getState(c).configPath
	if err := config.Save(cfg, path); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Using profile %q\n", name)
	return nil
}

func configSave(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return errors.New("profile name required")
	}
	cfg, err := loadedConfig(c)
	if err != nil {
		return err
	}
	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return err
	}

	cfg.Connections[name] = config.ConnectionConfig{
		Host:     flags.Host,
		Port:     flags.Port,
		Username: flags.Username,
		Password: flags.Password,
		TLS:      flags.TLS,
		CACert:   flags.CACert,
		Insecure: flags.Insecure,
		AdminURL: flags.AdminURL,
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	path := getState(c).configPath
	if err := config.Save(cfg, path); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Saved profile %q to %s\n", name, path)
	return nil
}

// configHashPassword hashes the argument, or the first line of stdin
// when no argument is given.
func configHashPassword(c *cli.Context) error {
	password := c.Args().First()
	if password == "" {
		line, err := bufio.NewReader(c.App.Reader).ReadString('\n')
		if err != nil && line == "" {
			return errors.New("password required")
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		return errors.New("password required")
	}

	encoded, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, encoded)
	return nil
}
