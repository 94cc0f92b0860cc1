package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	configFile string
	debug      bool
	cfg        *Config
)

var rootCmd = &cobra.Command{
	Use:           "tilecutter",
	Short:         "Cut map images centered on points",
	Long:          `Builds a mosaic of slippy map tiles around every point of a table and cuts an image centered on the point.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger(debug)

		c, err := loadConfig(configFile, cmd.Flags().Changed("config"))
		if err != nil {
			return err
		}

		cfg = c

		return nil
	},
}

func setupLogger(debug bool) {
	var h slog.Handler
	if debug {
		h = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}

	slog.SetDefault(slog.New(h))
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "tilecutter.yml", "config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "debug logging")
	rootCmd.SetVersionTemplate(getVersionFull() + "\n")

	rootCmd.AddCommand(newCutCmd(), newPackCmd(), newLocateCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
