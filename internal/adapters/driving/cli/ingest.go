package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [folder-id]",
	Short: "Ingest a Drive folder into the vector index",
	Long: `Runs one ingestion pass over a Google Drive folder: extraction,
chunking, embedding and storage. If no folder ID is given, the
configured default folder is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestor == nil {
		return errors.New("ingestion service not configured")
	}

	folderID := defaultFolderID
	if len(args) > 0 {
		folderID = args[0]
	}
	if folderID == "" {
		return errors.New("no folder ID given and no default folder configured")
	}

	cmd.Printf("Ingesting folder %s...\n", folderID)

	progress, summary, err := ingestor.ProcessFolder(context.Background(), folderID)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	cmd.Printf("%s (%d chunks, %d vectors stored)\n", summary, progress.ChunksCreated, progress.VectorsStored)
	if progress.Error != "" {
		cmd.Printf("Skipped files: %s\n", progress.Error)
	}
	return nil
}
