// Package askcmder provides the ask command for one-shot grounded
// question answering from the terminal.
package askcmder

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	pipelinecmder "github.com/papercomputeco/docent/cmd/docent/pipeline"
	"github.com/papercomputeco/docent/pkg/answer"
	"github.com/papercomputeco/docent/pkg/config"
	"github.com/papercomputeco/docent/pkg/logger"
)

type AskCommander struct {
	debug     bool
	configDir string
	logger    *zap.Logger
}

const askLongDesc string = `Ask a single question against the configured corpus version and print the
answer with its citations. Useful for smoke-testing a deployment without
running the API server.`

const askShortDesc string = "Ask a single grounded question"

func NewAskCmd() *cobra.Command {
	cmder := &AskCommander{}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: askShortDesc,
		Long:  askLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			cmder.configDir, err = cmd.Flags().GetString("config")
			if err != nil {
				return fmt.Errorf("could not get config flag: %v", err)
			}
			return cmder.run(strings.Join(args, " "))
		},
	}

	return cmd
}

func (c *AskCommander) run(question string) error {
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

	ctx := context.Background()
	pipeline, err := pipelinecmder.Build(ctx, cfg, c.logger)
	if err != nil {
		return fmt.Errorf("building pipeline: %w", err)
	}
	defer pipeline.Close()

	result, err := pipeline.Orchestrator.Ask(ctx, answer.Question{
		Text: question,
		// The ask command runs in-process, so it holds the same secret
		// the server would check.
		APIKey: cfg.API.Key,
	})
	if err != nil {
		return err
	}

	if result.Refused {
		fmt.Printf("Refused (%s): the corpus does not contain confident evidence for this question.\n",
			result.RefusalReason)
		return nil
	}

	fmt.Println(result.Answer)
	if len(result.Citations) > 0 {
		fmt.Println("\nSources:")
		for _, citation := range result.Citations {
			fmt.Printf("  %s\n", citation)
		}
	}

	c.logger.Debug("ask complete",
		zap.String("request_id", result.RequestID),
		zap.Int64("latency_ms", result.LatencyMS),
		zap.Int("retrieval_count", result.RetrievalCount),
	)

	return nil
}
