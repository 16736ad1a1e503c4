// Package servecmder provides the serve command for running the API server.
package servecmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/docent/api"
	pipelinecmder "github.com/papercomputeco/docent/cmd/docent/pipeline"
	"github.com/papercomputeco/docent/pkg/config"
	"github.com/papercomputeco/docent/pkg/logger"
)

type ServeCommander struct {
	listen    string
	debug     bool
	configDir string
	logger    *zap.Logger
}

const serveLongDesc string = `Run the Docent question-answering API server.

The server exposes:
  POST /v1/ask      Ask a question, get a cited answer or a refusal
  GET  /v1/search   Inspect retrieval results without generation
  GET  /ping        Liveness probe`

const serveShortDesc string = "Run the Docent API server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			cmder.configDir, err = cmd.Flags().GetString("config")
			if err != nil {
				return fmt.Errorf("could not get config flag: %v", err)
			}
			return cmder.run()
		},
	}

	cmd.Flags().StringVarP(&cmder.listen, "listen", "l", "", "Address for the API server to listen on (overrides config)")

	return cmd
}

func (c *ServeCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	v, err := config.InitViper(c.configDir)
	if err != nil {
		return err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	if c.listen != "" {
		cfg.API.Listen = c.listen
	}

	ctx := context.Background()
	pipeline, err := pipelinecmder.Build(ctx, cfg, c.logger)
	if err != nil {
		return fmt.Errorf("building pipeline: %w", err)
	}
	defer pipeline.Close()

	apiConfig := api.Config{
		ListenAddr:    cfg.API.Listen,
		APIKey:        cfg.API.Key,
		CorpusVersion: cfg.Corpus.Version,
		Embedder:      pipeline.Embedder,
		Retriever:     pipeline.Retriever,
		Sanitizer:     pipeline.Sanitizer,
	}
	server := api.NewServer(apiConfig, pipeline.Orchestrator, c.logger)

	c.logger.Info("starting docent",
		zap.String("listen", cfg.API.Listen),
		zap.String("corpus_version", cfg.Corpus.Version),
		zap.String("vector_store", cfg.VectorStore.Provider),
		zap.String("model", cfg.LLM.Model),
	)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return server.Shutdown()
	}
}
