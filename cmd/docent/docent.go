// Package docentcmder
package docentcmder

import (
	"github.com/spf13/cobra"

	askcmder "github.com/papercomputeco/docent/cmd/docent/ask"
	ingestcmder "github.com/papercomputeco/docent/cmd/docent/ingest"
	servecmder "github.com/papercomputeco/docent/cmd/docent/serve"
	versioncmder "github.com/papercomputeco/docent/cmd/version"
)

const docentLongDesc string = `Docent answers questions from a versioned document corpus, with citations,
and refuses when the evidence is too weak to answer from.

Run services using:
  docent serve         Run the question-answering API server
  docent ingest        Load a pre-chunked corpus file into the vector store
  docent ask           Ask a single question from the terminal`

const docentShortDesc string = "Docent - Grounded corpus Q&A"

func NewDocentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docent",
		Short: docentShortDesc,
		Long:  docentLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().StringP("config", "c", "", "Directory containing docent.toml")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(ingestcmder.NewIngestCmd())
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
