package command

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/yndnr/sidermem-go/internal/cli/connection"
	"github.com/yndnr/sidermem-go/internal/cli/output"
	"github.com/yndnr/sidermem-go/internal/server/httpserver/handler"
)

// SystemCommand returns the system subcommand group.
func SystemCommand() *cli.Command {
	return &cli.Command{
		Name:    "system",
		Aliases: []string{"sys"},
		Usage:   "Admin API commands (requires the server's HTTP listener)",
		Subcommands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Show system status summary",
				Action: systemStatus,
			},
			{
				Name:   "health",
				Usage:  "Check server health and readiness",
				Action: systemHealth,
			},
			{
				Name:   "gc",
				Usage:  "Run one expiry sweep now",
				Action: systemGC,
			},
		},
	}
}

func systemStatus(c *cli.Context) error {
	client, err := AdminClient(c)
	if err != nil {
		return err
	}
	f, format, err := formatterFor(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context, 30*time.Second)
	defer cancel()

	resp, err := client.Get(ctx, "/admin/v1/status/summary")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var s handler.StatusSummary
	if err := connection.ParseResponse(resp, &s); err != nil {
		return err
	}

	if format != output.FormatText {
		return f.Format(c.App.Writer, s)
	}
	w := c.App.Writer
	fmt.Fprintf(w, "System Status\n")
	fmt.Fprintf(w, "=============\n\n")
	fmt.Fprintf(w, "Status:           %s\n", s.Status)
	fmt.Fprintf(w, "Version:          %s\n", s.Version)
	fmt.Fprintf(w, "Uptime:           %s\n", time.Duration(s.UptimeSeconds)*time.Second)
	fmt.Fprintf(w, "Clients:          %s\n", humanize.Comma(int64(s.ConnectedClients)))
	fmt.Fprintf(w, "Keys:             %s\n", humanize.Comma(int64(s.Keys)))
	fmt.Fprintf(w, "Keys with expiry: %s\n", humanize.Comma(int64(s.KeysWithExpiry)))
	fmt.Fprintf(w, "Expired keys:     %s\n", humanize.Comma(int64(s.ExpiredKeys)))
	fmt.Fprintf(w, "AOF written:      %s\n", humanize.IBytes(s.AOFWrittenBytes))
	return nil
}

type pingResult struct {
	Status string `json:"status" yaml:"status"`
	Ready  string `json:"ready" yaml:"ready"`
	Target string `json:"target" yaml:"target"`
}

func systemHealth(c *cli.Context) error {
	client, err := AdminClient(c)
	if err != nil {
		return err
	}
	f, format, err := formatterFor(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context, 10*time.Second)
	defer cancel()

	result := pingResult{Target: client.BaseURL()}

	// Health endpoints need no credentials.
	var health struct {
		Status string `json:"status"`
	}
	resp, err := client.Get(ctx, "/healthz")
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if err := connection.ParseResponse(resp, &health); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	result.Status = health.Status

	var ready struct {
		Status string `json:"status"`
	}
	resp, err = client.Get(ctx, "/readyz")
	if err != nil {
		return fmt.Errorf("readiness check failed: %w", err)
	}
	readyErr := connection.ParseResponse(resp, &ready)
	if readyErr != nil {
		result.Ready = readyErr.Error()
	} else {
		result.Ready = ready.Status
	}

	if format != output.FormatText {
		if err := f.Format(c.App.Writer, result); err != nil {
			return err
		}
	} else {
		w := c.App.Writer
		fmt.Fprintf(w, "✓ Server is %s\n", result.Status)
		if readyErr != nil {
			fmt.Fprintf(w, "✗ Server is not ready: %v\n", readyErr)
		} else {
			fmt.Fprintf(w, "✓ Server is %s\n", result.Ready)
		}
		fmt.Fprintf(w, "  Target: %s\n", result.Target)
	}

	if readyErr != nil {
		return fmt.Errorf("server not ready")
	}
	return nil
}

func systemGC(c *cli.Context) error {
	client, err := AdminClient(c)
	if err != nil {
		return err
	}
	f, format, err := formatterFor(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context, 60*time.Second)
	defer cancel()

	resp, err := client.Post(ctx, "/admin/v1/gc/trigger", nil)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result handler.GCResult
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	if format != output.FormatText {
		return f.Format(c.App.Writer, result)
	}
	fmt.Fprintf(c.App.Writer, "Expiry sweep completed:\n")
	fmt.Fprintf(c.App.Writer, "  Removed keys: %s\n", humanize.Comma(int64(result.Removed)))
	fmt.Fprintf(c.App.Writer, "  Triggered at: %s\n", result.TriggeredAt)
	return nil
}
