package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/docpanel-ai/docpanel/internal/adapters/state"
	"github.com/docpanel-ai/docpanel/internal/api"
	"github.com/docpanel-ai/docpanel/internal/config"
	"github.com/docpanel-ai/docpanel/internal/core"
	"github.com/docpanel-ai/docpanel/internal/service"
)

var (
	serveAddr   string
	serveDryRun bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Serve the analysis engine over HTTP. Sessions are started with POST
/api/v1/analyses and stream progress over SSE. Terminal sessions are kept in
memory until the session TTL, then evicted to the history database.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "",
		"listen address (default from config)")
	serveCmd.Flags().BoolVar(&serveDryRun, "dry-run", false,
		"use the deterministic mock evaluator")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	eval, err := buildEvaluator(cfg, serveDryRun)
	if err != nil {
		return err
	}
	runner := buildRunner(cfg, eval)

	var store core.SessionStore
	if cfg.State.Path != "" {
		sqlStore, err := state.NewSQLiteStore(cfg.State.Path)
		if err != nil {
			return err
		}
		store = sqlStore
		defer func() { _ = sqlStore.Close() }()
	}

	ttl := config.Duration(cfg.Analysis.SessionTTL, time.Hour)
	controller := service.NewController(runner, store, ttl, logger)
	defer func() { _ = controller.Close() }()

	serverCfg := api.DefaultConfig()
	serverCfg.Addr = cfg.Server.Addr
	if serveAddr != "" {
		serverCfg.Addr = serveAddr
	}
	serverCfg.HeartbeatInterval = config.Duration(cfg.Server.HeartbeatInterval, 30*time.Second)

	server := api.New(serverCfg, controller, logger)
	if err := server.Start(); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigCh:
		logger.Info("shutdown signal received")
	case <-cmd.Context().Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
