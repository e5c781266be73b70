package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/shirou/gopsutil/v4/process"
	"github.com/spf13/cobra"

	"github.com/halcyonlabs/trumpbot/internal/config"
	"github.com/halcyonlabs/trumpbot/internal/gateway"
)

var rootCmd = &cobra.Command{
	Use:   "trumpbot",
	Short: "trumpbot - Truth Social scraping Discord bot",
	RunE:  runBot,
}

var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Exit 0 if a trumpbot process is running (container probe)",
	RunE:  runHealthcheck,
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(log)

	gw, err := gateway.New(cfg, log.With("component", "gateway"))
	if err != nil {
		return fmt.Errorf("create gateway: %w", err)
	}

	return gw.Run(context.Background())
}

// runHealthcheck scans the process table for another running trumpbot, the
// same probe the container healthcheck used to run.
func runHealthcheck(cmd *cobra.Command, args []string) error {
	procs, err := process.Processes()
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}

	self := int32(os.Getpid())
	for _, p := range procs {
		if p.Pid == self {
			continue
		}
		cmdline, err := p.Cmdline()
		if err != nil {
			continue
		}
		if strings.Contains(cmdline, "trumpbot") && !strings.Contains(cmdline, "healthcheck") {
			return nil
		}
	}

	os.Exit(1)
	return nil
}
