package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/dispatchboard/app"
	"github.com/kilianp07/dispatchboard/config"
	"github.com/kilianp07/dispatchboard/core/timegrid"
	"github.com/kilianp07/dispatchboard/infra/logger"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:          "dispatchboard",
	Short:        "Tour dispatch board service",
	RunE:         run,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	return svc.Run(ctx)
}

// window returns the board window of the configuration file when --config
// is given explicitly, and the default window otherwise.
func window(cmd *cobra.Command) (timegrid.Window, error) {
	if !cmd.Flags().Changed("config") {
		return timegrid.DefaultWindow, nil
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return timegrid.Window{}, fmt.Errorf("load config: %w", err)
	}
	return cfg.Board.Window()
}
