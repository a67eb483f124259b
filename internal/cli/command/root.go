package command

import (
	"crypto/tls"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/sidermem-go/internal/cli/config"
	"github.com/yndnr/sidermem-go/internal/cli/connection"
	"github.com/yndnr/sidermem-go/internal/cli/output"
	"github.com/yndnr/sidermem-go/internal/infra/buildinfo"
	"github.com/yndnr/sidermem-go/internal/infra/tlsroots"
)

const stateKey = "state"

// state is shared by every command of one invocation.
type state struct {
	configPath string
	cfg        *config.CLIConfig
	cfgErr     error
	mgr        *connection.Manager
}

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:      "sidermem-cli",
		Usage:     "sider-mem command-line client",
		UsageText: "sidermem-cli [global options] [command [arguments...]]",
		Version:   buildinfo.String(),
		Flags:     globalFlags(),
		Commands: []*cli.Command{
			ExecCommand(),
			REPLCommand(),
			InfoCommand(),
			BenchCommand(),
			SystemCommand(),
			ConfigCommand(),
		},
		Metadata: map[string]any{},
		Before:   before,
		After:    after,
		Action: func(c *cli.Context) error {
			if c.NArg() > 0 {
				return execArgs(c, c.Args().Slice())
			}
			return runREPL(c)
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Usage:   "server host",
			EnvVars: []string{"SIDER_HOST"},
			Value:   config.DefaultHost,
		},
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "server port",
			EnvVars: []string{"SIDER_PORT"},
			Value:   config.DefaultPort,
		},
		&cli.StringFlag{
			Name:    "user",
			Aliases: []string{"u"},
			Usage:   "username sent with AUTH",
		},
		&cli.StringFlag{
			Name:    "password",
			Aliases: []string{"a"},
			Usage:   "password sent with AUTH",
			EnvVars: []string{"SIDER_PASSWORD"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format: text, raw, json, yaml",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "dial and request timeout",
			Value: connection.DefaultTimeout,
		},
		&cli.BoolFlag{
			Name:  "tls",
			Usage: "connect using TLS",
		},
		&cli.StringFlag{
			Name:  "cacert",
			Usage: "CA certificate file used to verify the server",
		},
		&cli.BoolFlag{
			Name:  "insecure",
			Usage: "skip TLS certificate verification",
		},
		&cli.StringFlag{
			Name:  "profile",
			Usage: "saved connection profile",
		},
		&cli.StringFlag{
			Name:        "config",
			Usage:       "CLI config file",
			EnvVars:     []string{"SIDER_CLI_CONFIG"},
			DefaultText: "~/.sidermem/cli.yaml",
		},
		&cli.StringFlag{
			Name:  "admin-url",
			Usage: "admin HTTP API base URL",
		},
	}
}

func before(c *cli.Context) error {
	path := c.String("config")
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.Load(path)
	c.App.Metadata[stateKey] = &state{configPath: path, cfg: cfg, cfgErr: err}
	return nil
}

func after(c *cli.Context) error {
	if st := getState(c); st.mgr != nil {
		return st.mgr.Close()
	}
	return nil
}

func getState(c *cli.Context) *state {
	if st, ok := c.App.Metadata[stateKey].(*state); ok {
		return st
	}
	st := &state{configPath: config.DefaultConfigPath(), cfg: config.Default()}
	c.App.Metadata[stateKey] = st
	return st
}

// loadedConfig returns the CLI config read at startup.
func loadedConfig(c *cli.Context) (*config.CLIConfig, error) {
	st := getState(c)
	if st.cfgErr != nil {
		return nil, st.cfgErr
	}
	return st.cfg, nil
}

// GlobalFlags are the connection settings after merging the selected
// profile with explicitly set flags.
type GlobalFlags struct {
	Host     string
	Port     int
	Username string
	Password string
	Output   output.Format
	Timeout  time.Duration
	TLS      bool
	CACert   string
	Insecure bool
	AdminURL string
}

// ParseGlobalFlags resolves the effective settings. Profile values apply
// unless the matching flag or its environment variable is set.
func ParseGlobalFlags(c *cli.Context) (*GlobalFlags, error) {
	cfg, err := loadedConfig(c)
	if err != nil {
		return nil, err
	}

	name := c.String("profile")
	prof, ok := cfg.Profile(name)
	if !ok {
		return nil, fmt.Errorf("unknown profile %q", name)
	}

	f := &GlobalFlags{
		Host:     prof.Host,
		Port:     prof.Port,
		Username: prof.Username,
		Password: prof.Password,
		Timeout:  c.Duration("timeout"),
		TLS:      prof.TLS,
		CACert:   prof.CACert,
		Insecure: prof.Insecure,
		AdminURL: prof.AdminURL,
	}
	if c.IsSet("host") {
		f.Host = c.String("host")
	}
	if c.IsSet("port") {
		f.Port = c.Int("port")
	}
	if c.IsSet("user") {
		f.Username = c.String("user")
	}
	if c.IsSet("password") {
		f.Password = c.String("password")
	}
	if c.IsSet("tls") {
		f.TLS = c.Bool("tls")
	}
	if c.IsSet("cacert") {
		f.CACert = c.String("cacert")
	}
	if c.IsSet("insecure") {
		f.Insecure = c.Bool("insecure")
	}
	if c.IsSet("admin-url") {
		f.AdminURL = c.String("admin-url")
	}

	format := cfg.DefaultOutput
	if c.IsSet("output") {
		format = c.String("output")
	}
	if f.Output, err = output.ParseFormat(format); err != nil {
		return nil, err
	}
	return f, nil
}

// Addr returns the RESP server address.
func (f *GlobalFlags) Addr() string {
	return net.JoinHostPort(f.Host, strconv.Itoa(f.Port))
}

// TLSConfig returns the client TLS config, or nil when TLS is off.
func (f *GlobalFlags) TLSConfig() (*tls.Config, error) {
	if !f.TLS {
		return nil, nil
	}
	return f.clientTLS(f.Host)
}

func (f *GlobalFlags) clientTLS(serverName string) (*tls.Config, error) {
	roots := tlsroots.NewPool()
	if f.CACert != "" {
		p, err := tlsroots.LoadFile(f.CACert)
		if err != nil {
			return nil, err
		}
		roots = p
	}
	return tlsroots.ClientConfig(roots, serverName, f.Insecure), nil
}

// ConnOptions returns the dial options for the RESP server.
func (f *GlobalFlags) ConnOptions() (connection.Options, error) {
	tlsConfig, err := f.TLSConfig()
	if err != nil {
		return connection.Options{}, err
	}
	return connection.Options{
		Addr:     f.Addr(),
		Username: f.Username,
		Password: f.Password,
		Timeout:  f.Timeout,
		TLS:      tlsConfig,
	}, nil
}

// GetConnectionManager returns the invocation's connection manager,
// creating it on first use.
func GetConnectionManager(c *cli.Context) (*connection.Manager, error) {
	st := getState(c)
	if st.mgr != nil {
		return st.mgr, nil
	}
	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return nil, err
	}
	opts, err := flags.ConnOptions()
	if err != nil {
		return nil, err
	}
	st.mgr = connection.NewManager(opts)
	return st.mgr, nil
}

// EnsureConnected returns a live RESP client.
func EnsureConnected(c *cli.Context) (*connection.Client, error) {
	mgr, err := GetConnectionManager(c)
	if err != nil {
		return nil, err
	}
	return mgr.Client(c.Context)
}

// AdminClient returns a client for the admin HTTP API. The server's
// credentials double as basic auth.
func AdminClient(c *cli.Context) (*connection.HTTPClient, error) {
	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return nil, err
	}
	var tlsConfig *tls.Config
	if flags.CACert != "" || flags.Insecure {
		// An empty server name lets the transport use the URL host.
		if tlsConfig, err = flags.clientTLS(""); err != nil {
			return nil, err
		}
	}
	return connection.NewHTTPClient(flags.AdminURL, flags.Username, flags.Password, tlsConfig), nil
}

func formatterFor(c *cli.Context) (output.Formatter, output.Format, error) {
	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return nil, "", err
	}
	return output.NewFormatter(flags.Output), flags.Output, nil
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
