package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/plugwarden/plugwarden/internal/domain/manifest"
)

var grantCmd = &cobra.Command{
	Use:   "grant <plugin-id> <rule.yaml>",
	Short: "Grant a single capability to a plugin",
	Long: `Grant one capability outside a full manifest ingest. The rule file
holds a single permission rule in the manifest rule shape:

  type: network
  actions: [access]
  target:
    hosts: ["api.example.com"]
    schemes: [https]

Granting is idempotent against the rule's declared attributes.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGrant(cmd, args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(grantCmd)
}

func runGrant(cmd *cobra.Command, pluginID, rulePath string) error {
	c, err := newContainer()
	if err != nil {
		return err
	}
	defer func() {
		_ = c.Close()
	}()

	rule, err := loadRule(rulePath)
	if err != nil {
		return err
	}

	summary, err := c.Permissions().IngestManifest(cmd.Context(), pluginID, manifest.Manifest{
		OptionalPermissions: []manifest.Rule{*rule},
	})
	if err != nil {
		return fmt.Errorf("grant capability: %w", err)
	}
	if len(summary.Warnings) > 0 {
		return fmt.Errorf("grant capability: %s", summary.Warnings[0])
	}

	item := summary.Items[0]
	state := "already granted"
	if item.Assigned {
		state = "granted"
	}
	fmt.Printf("%s %s capability id=%d to %s\n", state, item.Type, item.ConcreteID, pluginID)
	return nil
}

func loadRule(path string) (*manifest.Rule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode rule: %w", err)
	}
	normalized, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("normalize rule: %w", err)
	}

	var rule manifest.Rule
	if err := json.Unmarshal(normalized, &rule); err != nil {
		return nil, fmt.Errorf("decode rule: %w", err)
	}
	if rule.Type == "" {
		return nil, fmt.Errorf("rule is missing a capability type")
	}
	return &rule, nil
}
