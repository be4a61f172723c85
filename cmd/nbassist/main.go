package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/teilomillet/nbassist/config"
	"github.com/teilomillet/nbassist/logger"
	"github.com/teilomillet/nbassist/server"
	"go.uber.org/zap"
)

const Version = "v0.1.0"

type options struct {
	configFile string
	envFile    string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "nbassist",
		Short: "Notebook error assistant relay",
		Long: `nbassist receives notebook errors, asks Gemini to explain them in the
requested language and relays the answer back to the notebook.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), opts)
		},
	}
	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "Path to YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Path to dotenv file, ignored when missing")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.LoadEnvironment(opts.envFile, opts.configFile); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid")
			return nil
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "nbassist %s\n", Version)
		},
	})

	return rootCmd
}

func serve(ctx context.Context, opts *options) error {
	cfg, err := config.LoadEnvironment(opts.envFile, opts.configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = log.Sync()
	}()

	srv, err := server.New(cfg, log)
	if err != nil {
		log.Error("Server initialization failed", zap.Error(err))
		return err
	}

	log.Info("Starting nbassist",
		zap.String("version", Version),
		zap.String("model", cfg.Gemini.Model),
		zap.Int("port", cfg.Server.Port),
	)
	if err := srv.Start(ctx); err != nil {
		log.Error("Server error", zap.Error(err))
		return err
	}
	log.Info("Server stopped")
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
