// Package cli provides the command-line interface driving adapter.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/atelier-labs/ragdrive/internal/core/ports/driven"
	"github.com/atelier-labs/ragdrive/internal/core/ports/driving"
	"github.com/atelier-labs/ragdrive/internal/logger"
)

// Injected services. Set via Configure before Execute.
var (
	ingestor    driving.Ingestor
	chatService driving.Chat
	vectorStore driven.VectorStore

	serveAddr       string
	defaultFolderID string
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "ragdrive",
	Short: "Document Q&A over a Google Drive folder",
	Long: `ragdrive ingests the documents in a Google Drive folder into a
vector index and answers questions about them over HTTP.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Options carries the services and settings the commands need.
type Options struct {
	Ingestor    driving.Ingestor
	Chat        driving.Chat
	VectorStore driven.VectorStore

	// Addr is the HTTP listen address for the serve command.
	Addr string

	// FolderID is the folder ingested when the ingest command is run
	// without an argument.
	FolderID string
}

// Configure injects the application services into the commands.
func Configure(opts Options) {
	ingestor = opts.Ingestor
	chatService = opts.Chat
	vectorStore = opts.VectorStore
	serveAddr = opts.Addr
	defaultFolderID = opts.FolderID
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
