package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/atelier-labs/ragdrive/internal/adapters/driving/httpapi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Starts the HTTP server exposing the ingestion and chat endpoints.`,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if ingestor == nil || chatService == nil || vectorStore == nil {
		return errors.New("services not configured")
	}

	server := httpapi.NewServer(ingestor, chatService, vectorStore,
		httpapi.WithDefaultFolder(defaultFolderID))
	cmd.Printf("Serving on %s\n", serveAddr)
	return server.Run(serveAddr)
}
