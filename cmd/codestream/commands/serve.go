package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/codestream-ai/codestream/internal/agent"
	"github.com/codestream-ai/codestream/internal/config"
	"github.com/codestream-ai/codestream/internal/document"
	"github.com/codestream-ai/codestream/internal/logging"
	"github.com/codestream-ai/codestream/internal/server"
)

var (
	servePort int
	serveDir  string
	agentURL  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the codestream HTTP server",
	Long: `Start codestream as a server exposing document management, streaming
edit requests, and an SSE event stream over HTTP.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8199, "Port to listen on")
	serveCmd.Flags().StringVar(&serveDir, "directory", "", "Working directory")
	serveCmd.Flags().StringVar(&agentURL, "agent-url", "", "Agent endpoint base URL (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	workDir, err := GetWorkDir(serveDir)
	if err != nil {
		return err
	}

	options, err := config.Load(workDir)
	if err != nil {
		return err
	}
	if level := options.Options().LogLevel; level != "" && !cmd.Flags().Changed("log-level") {
		logging.Init(logging.Config{Level: logging.ParseLevel(level), Pretty: prettyLog})
	}
	if err := options.Watch(workDir); err != nil {
		logging.Warn().Err(err).Msg("config watching disabled")
	}
	defer options.Close()

	baseURL := agentURL
	if baseURL == "" {
		baseURL = options.Options().Agent.BaseURL
	}
	if baseURL == "" {
		logging.Fatal().Msg("no agent endpoint configured (set agent.baseURL or --agent-url)")
	}

	cfg := server.DefaultConfig()
	cfg.Port = servePort
	srv := server.New(cfg, options, document.NewWorkspace(), agent.NewRemote(baseURL))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
