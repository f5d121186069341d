package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/pinplan/internal/server"
	"github.com/OpenTraceLab/pinplan/pkg/board"
)

var (
	serveAddr   string
	boardsDir   string
	serveConfig string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the planner over HTTP",
	Long: `Load every board catalog under a directory and serve the HTTP API:

  GET  /healthz
  GET  /v1/boards
  GET  /v1/boards/{name}
  POST /v1/boards/{name}/validate
  POST /v1/boards/{name}/optimize
  GET  /metrics

Requirement bodies are JSON ({"requirements": [...]}) or, with
Content-Type text/plain, the requirement file syntax.

Examples:
  pinplan serve --boards testdata/boards
  pinplan serve --config pinplan.yaml --addr 127.0.0.1:9000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default \":8080\")")
	serveCmd.Flags().StringVar(&boardsDir, "boards", "", "directory of board catalogs")
	serveCmd.Flags().StringVarP(&serveConfig, "config", "c", "", "YAML server config file")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := serveSettings()
	if err != nil {
		return err
	}

	repo := board.NewMemoryRepository()
	if err := repo.LoadDir(cfg.BoardsDir); err != nil {
		return fmt.Errorf("failed to load boards: %w", err)
	}
	if len(repo.Names()) == 0 {
		return fmt.Errorf("no board catalogs found in %s", cfg.BoardsDir)
	}

	logger := newLogger()
	srv, err := server.New(cfg, repo, server.WithLogger(logger))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return srv.ListenAndServe(ctx)
}

// serveSettings merges the optional config file with command-line flags;
// flags win.
func serveSettings() (*server.Config, error) {
	cfg := server.DefaultConfig()
	if serveConfig != "" {
		loaded, err := server.LoadConfig(serveConfig)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}
	if boardsDir != "" {
		cfg.BoardsDir = boardsDir
	}
	if cfg.BoardsDir == "" {
		return nil, fmt.Errorf("--boards or boards_dir in --config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
