package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/paularlott/cli"
)

const (
	DefaultHelperLabel  = "com.martinsuchenak.routekeeper.helper"
	DefaultHelperSocket = "/var/run/routekeeper/helper.sock"
	DefaultListenAddr   = "127.0.0.1:7788"
	DefaultServerURL    = "http://" + DefaultListenAddr
)

// Version is set at build time with -ldflags "-X .../internal/config.Version=...".
var Version = "dev"

type Config struct {
	DataDir         string
	ListenAddr      string
	MCPAuthToken    string
	APIAuthToken    string
	HelperSocket    string
	HelperLabel     string
	CommandTimeout  time.Duration
	RouteStrategy   string
	RefreshInterval time.Duration
	AllowedTeamIDs  []string
	LogLevel        string
	LogFormat       string
}

var (
	dataDir         string
	listenAddr      string
	mcpAuthToken    string
	apiAuthToken    string
	helperSocket    string
	helperLabel     string
	commandTimeout  int
	routeStrategy   string
	refreshInterval int
	allowedTeamIDs  string
	logLevel        string
	logFormat       string
)

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:         "log-level",
			Usage:        "Log level (debug, info, warn, error)",
			EnvVars:      []string{"ROUTEKEEPER_LOG_LEVEL"},
			DefaultValue: "info",
			AssignTo:     &logLevel,
		},
		&cli.StringFlag{
			Name:         "log-format",
			Usage:        "Log format (console, json)",
			EnvVars:      []string{"ROUTEKEEPER_LOG_FORMAT"},
			DefaultValue: "console",
			AssignTo:     &logFormat,
		},
	}
}

func helperFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:         "helper-socket",
			Usage:        "Unix socket of the privileged helper",
			EnvVars:      []string{"ROUTEKEEPER_HELPER_SOCKET"},
			DefaultValue: DefaultHelperSocket,
			AssignTo:     &helperSocket,
		},
		&cli.StringFlag{
			Name:         "helper-label",
			Usage:        "Service label the helper is registered under",
			EnvVars:      []string{"ROUTEKEEPER_HELPER_LABEL"},
			DefaultValue: DefaultHelperLabel,
			AssignTo:     &helperLabel,
		},
	}
}

// GetFlags returns the flags of the unprivileged agent server.
func GetFlags() []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:         "data-dir",
			Usage:        "Data directory path",
			EnvVars:      []string{"ROUTEKEEPER_DATA_DIR"},
			DefaultValue: filepath.Join(".", "data"),
			AssignTo:     &dataDir,
		},
		&cli.StringFlag{
			Name:         "addr",
			Usage:        "Agent listen address",
			EnvVars:      []string{"ROUTEKEEPER_LISTEN_ADDR"},
			DefaultValue: DefaultListenAddr,
			AssignTo:     &listenAddr,
		},
		&cli.StringFlag{
			Name:     "mcp-token",
			Usage:    "MCP bearer token",
			EnvVars:  []string{"ROUTEKEEPER_BEARER_TOKEN"},
			AssignTo: &mcpAuthToken,
		},
		&cli.StringFlag{
			Name:     "api-token",
			Usage:    "API bearer token",
			EnvVars:  []string{"ROUTEKEEPER_API_TOKEN"},
			AssignTo: &apiAuthToken,
		},
		&cli.IntFlag{
			Name:         "command-timeout",
			Usage:        "Seconds to wait for a privileged command before giving up",
			EnvVars:      []string{"ROUTEKEEPER_COMMAND_TIMEOUT"},
			DefaultValue: 30,
			AssignTo:     &commandTimeout,
		},
		&cli.StringFlag{
			Name:         "route-strategy",
			Usage:        "How routes are installed: gateway or interface",
			EnvVars:      []string{"ROUTEKEEPER_ROUTE_STRATEGY"},
			DefaultValue: "gateway",
			AssignTo:     &routeStrategy,
		},
		&cli.IntFlag{
			Name:         "refresh-interval",
			Usage:        "Seconds between route status refreshes (0 disables)",
			EnvVars:      []string{"ROUTEKEEPER_REFRESH_INTERVAL"},
			DefaultValue: 60,
			AssignTo:     &refreshInterval,
		},
	}
	flags = append(flags, helperFlags()...)
	return append(flags, loggingFlags()...)
}

// GetHelperFlags returns the flags of the privileged helper daemon.
func GetHelperFlags() []cli.Flag {
	flags := []cli.Flag{
		&cli.IntFlag{
			Name:         "command-timeout",
			Usage:        "Seconds a shell command may run before it is killed",
			EnvVars:      []string{"ROUTEKEEPER_COMMAND_TIMEOUT"},
			DefaultValue: 30,
			AssignTo:     &commandTimeout,
		},
		&cli.StringFlag{
			Name:     "allowed-team-ids",
			Usage:    "Comma-separated signing team identifiers accepted in addition to the helper's own",
			EnvVars:  []string{"ROUTEKEEPER_ALLOWED_TEAM_IDS"},
			AssignTo: &allowedTeamIDs,
		},
	}
	flags = append(flags, helperFlags()...)
	return append(flags, loggingFlags()...)
}

// GetServiceFlags returns the flags used by the service install/uninstall/status verbs.
func GetServiceFlags() []cli.Flag {
	return append(helperFlags(), loggingFlags()...)
}

func Load() *Config {
	return &Config{
		DataDir:         dataDir,
		ListenAddr:      listenAddr,
		MCPAuthToken:    mcpAuthToken,
		APIAuthToken:    apiAuthToken,
		HelperSocket:    helperSocket,
		HelperLabel:     helperLabel,
		CommandTimeout:  time.Duration(commandTimeout) * time.Second,
		RouteStrategy:   routeStrategy,
		RefreshInterval: time.Duration(refreshInterval) * time.Second,
		AllowedTeamIDs:  splitList(allowedTeamIDs),
		LogLevel:        logLevel,
		LogFormat:       logFormat,
	}
}

// IsMCPEnabled checks if MCP authentication is configured
func (c *Config) IsMCPEnabled() bool {
	return c.MCPAuthToken != ""
}

// IsAPIAuthEnabled checks if API authentication is configured
func (c *Config) IsAPIAuthEnabled() bool {
	return c.APIAuthToken != ""
}

// ServerURL is the base URL CLI verbs use to reach the agent.
func (c *Config) ServerURL() string {
	addr := c.ListenAddr
	if addr == "" {
		addr = DefaultListenAddr
	}
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
