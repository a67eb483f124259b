package config

// CLIConfig is the configuration for sidermem-cli.
type CLIConfig struct {
	// DefaultOutput is used when --output is not given: text, raw, json, yaml.
	DefaultOutput string `yaml:"default_output"`

	// HistoryFile overrides the REPL history location.
	HistoryFile string `yaml:"history_file,omitempty"`

	// Saved connections
	Connections map[string]ConnectionConfig `yaml:"connections"`

	// Profile used when --profile is not given
	CurrentConnection string `yaml:"current_connection,omitempty"`
}

// ConnectionConfig stores saved connection details.
type ConnectionConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"` // file is written 0600
	TLS      bool   `yaml:"tls,omitempty"`
	CACert   string `yaml:"cacert,omitempty"`
	Insecure bool   `yaml:"insecure,omitempty"`

	// AdminURL is the admin HTTP base URL used by the system commands.
	AdminURL string `yaml:"admin_url,omitempty"`
}

// Defaults for a connection with no saved profile.
const (
	DefaultHost     = "127.0.0.1"
	DefaultPort     = 6379
	DefaultOutput   = "text"
	DefaultAdminURL = "http://127.0.0.1:5080"
)

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		DefaultOutput: DefaultOutput,
		Connections:   make(map[string]ConnectionConfig),
	}
}

// DefaultConnection returns the connection used without a profile.
func DefaultConnection() ConnectionConfig {
	return ConnectionConfig{
		Host:     DefaultHost,
		Port:     DefaultPort,
		AdminURL: DefaultAdminURL,
	}
}

// Profile returns the named connection, or the current one when name is
// empty. Missing fields are filled from DefaultConnection.
func (c *CLIConfig) Profile(name string) (ConnectionConfig, bool) {
	if name == "" {
		name = c.CurrentConnection
	}
	if name == "" {
		return DefaultConnection(), true
	}

	conn, ok := c.Connections[name]
	if !ok {
		return DefaultConnection(), false
	}

	def := DefaultConnection()
	if conn.Host == "" {
		conn.Host = def.Host
	}
	if conn.Port == 0 {
		conn.Port = def.Port
	}
	if conn.AdminURL == "" {
		conn.AdminURL = def.AdminURL
	}
	return conn, true
}
