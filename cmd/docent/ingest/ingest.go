// Package ingestcmder provides the ingest command for loading pre-chunked
// corpus files into the vector store.
package ingestcmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/docent/pkg/config"
	embeddingutils "github.com/papercomputeco/docent/pkg/embeddings/utils"
	"github.com/papercomputeco/docent/pkg/ingest"
	"github.com/papercomputeco/docent/pkg/logger"
	vectorutils "github.com/papercomputeco/docent/pkg/vector/utils"
)

type IngestCommander struct {
	file      string
	version   string
	debug     bool
	configDir string
	logger    *zap.Logger
}

const ingestLongDesc string = `Load a pre-chunked corpus file into the vector store.

The input is JSONL: one record per line with source, section, page_start,
page_end, and text fields. Records are deduplicated by content hash,
embedded, and stored under the configured corpus version.`

const ingestShortDesc string = "Load a pre-chunked corpus file"

func NewIngestCmd() *cobra.Command {
	cmder := &IngestCommander{}

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: ingestShortDesc,
		Long:  ingestLongDesc,
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

	cmd.Flags().StringVarP(&cmder.file, "file", "f", "", "Path to the JSONL chunk file (required)")
	cmd.Flags().StringVar(&cmder.version, "version", "", "Corpus version tag to write (overrides config)")
	cmd.MarkFlagRequired("file")

	return cmd
}

func (c *IngestCommander) run() error {
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

	version := cfg.Corpus.Version
	if c.version != "" {
		version = c.version
	}

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
	})
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}
	defer embedder.Close()

	ctx := context.Background()
	driver, err := vectorutils.NewDriver(ctx, &vectorutils.NewDriverOpts{
		ProviderType: cfg.VectorStore.Provider,
		Target:       cfg.VectorStore.Target,
		Dimensions:   cfg.Embedding.Dimensions,
		Logger:       c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating vector driver: %w", err)
	}
	defer driver.Close()

	loader, err := ingest.NewLoader(embedder, driver, ingest.Config{
		Version: version,
	}, c.logger)
	if err != nil {
		return fmt.Errorf("creating loader: %w", err)
	}

	stats, err := loader.LoadFile(ctx, c.file)
	if err != nil {
		return fmt.Errorf("ingesting %s: %w", c.file, err)
	}

	fmt.Printf("Ingested %d chunks across %d documents (%d skipped) under version %s\n",
		stats.Chunks, stats.Documents, stats.Skipped, version)
	return nil
}
