package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var ingestJSON bool

var ingestCmd = &cobra.Command{
	Use:   "ingest <plugin-id> <manifest.yaml>",
	Short: "Ingest a plugin's permission manifest",
	Long: `Load a permission manifest, validate it against the manifest schema,
and record its declared capabilities for the plugin. Ingestion is
idempotent: re-ingesting the same manifest creates nothing new.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIngest(cmd, args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "print the ingestion summary as JSON")
}

func runIngest(cmd *cobra.Command, pluginID, manifestPath string) error {
	c, err := newContainer()
	if err != nil {
		return err
	}
	defer func() {
		_ = c.Close()
	}()

	slog.Info("loading manifest", "plugin", pluginID, "path", manifestPath)

	man, err := c.ManifestLoader().Load(manifestPath)
	if err != nil {
		return fmt.Errorf("load manifest: %w", err)
	}

	summary, err := c.Permissions().IngestManifest(cmd.Context(), pluginID, *man)
	if err != nil {
		return fmt.Errorf("ingest manifest: %w", err)
	}

	slog.Info("manifest ingested",
		"plugin", pluginID,
		"created", summary.Created,
		"linked", summary.Linked,
		"warnings", len(summary.Warnings))

	if ingestJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	fmt.Printf("ingested manifest for %s: %d created, %d linked\n", pluginID, summary.Created, summary.Linked)
	for _, item := range summary.Items {
		state := "existing"
		if item.Created {
			state = "created"
		}
		fmt.Printf("  %-12s id=%-4d %s\n", item.Type, item.ConcreteID, state)
	}
	for _, warning := range summary.Warnings {
		fmt.Printf("  warning: %s\n", warning)
	}
	return nil
}
