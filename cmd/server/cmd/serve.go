package cmd

import (
	"fmt"

	"github.com/fitsworks/primary-server/internal/config"
	"github.com/fitsworks/primary-server/internal/logger"
	"github.com/fitsworks/primary-server/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath  string
	addr        string
	printConfig bool
)

func init() {
	serveCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file (default: search ./config.yaml, ./configs, /etc/primary-server)")
	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides server.addr")
	serveCmd.Flags().BoolVar(&printConfig, "print-config", false, "print the effective configuration and exit")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the job submission server",
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts []config.Option
		if addr != "" {
			opts = append(opts, config.WithOverride("server.addr", addr))
		}
		cfg, err := config.Load(configPath, opts...)
		if err != nil {
			return err
		}

		if printConfig {
			out, err := cfg.YAML()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(out))
			return nil
		}

		log, err := logger.New(cfg.Log)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()
		zap.ReplaceGlobals(log)

		srv, err := server.New(cfg, log)
		if err != nil {
			return fmt.Errorf("failed to build server: %w", err)
		}

		if err := srv.Run(cmd.Context()); err != nil {
			log.Error("Server exited with error", zap.Error(err))
			return err
		}
		log.Info("Server stopped gracefully")
		return nil
	},
}
