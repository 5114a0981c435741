package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"worklog/internal/config"
	appLog "worklog/internal/log"
)

const version = "0.1.0"

// rootFlags holds persistent flags shared by every command.
type rootFlags struct {
	configPath string
	debug      bool
}

func main() {
	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	appLog.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "worklog",
		Short:         "Job calendar for remediation and construction crews",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "/etc/worklog/config.yaml", "Path to config file")
	root.PersistentFlags().BoolVar(&flags.debug, "debug", false, "Enable debug logging")

	root.AddCommand(
		newServeCmd(flags),
		newScheduleCmd(flags),
		newSnapshotCmd(flags),
	)
	return root
}

// loadConfig loads the config file and applies the log level, letting
// --debug win over log_level.
func loadConfig(flags *rootFlags) (*config.Config, error) {
	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		return nil, err
	}
	if lvl, ok := appLog.ParseLevel(conf.LogLevel); ok {
		appLog.SetLevel(lvl)
	}
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}
	return conf, nil
}
