package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/plugwarden/plugwarden/internal/application/dto"
	"github.com/plugwarden/plugwarden/internal/domain/capability"
)

var (
	listType     string
	listRequired bool
	listActive   bool
	listSource   string
	listJSON     bool
)

var listCmd = &cobra.Command{
	Use:   "list <plugin-id>",
	Short: "List a plugin's granted permissions",
	Long: `Show every permission granted to a plugin, aggregated per concrete
capability across direct grants and tag membership. Inactive and pending
grants are included so the full grant surface stays visible.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runList(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVar(&listType, "type", "", "restrict to one capability type")
	listCmd.Flags().BoolVar(&listRequired, "required", false, "only grants the plugin's manifest marks required")
	listCmd.Flags().BoolVar(&listActive, "active", false, "only effectively active grants")
	listCmd.Flags().StringVar(&listSource, "source", "", "only grants with a source of this kind: direct, tag")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "print the listing as JSON")
}

func runList(cmd *cobra.Command, pluginID string) error {
	c, err := newContainer()
	if err != nil {
		return err
	}
	defer func() {
		_ = c.Close()
	}()

	listing, err := c.Permissions().ListPermissions(cmd.Context(), pluginID, dto.ListOptions{
		Type:         capability.Type(listType),
		RequiredOnly: listRequired,
		ActiveOnly:   listActive,
		Source:       capability.Source(listSource),
	})
	if err != nil {
		return fmt.Errorf("list permissions: %w", err)
	}

	if listJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(listing)
	}

	printListing(listing)
	return nil
}

func printListing(listing dto.PermissionListing) {
	if len(listing.Permissions) == 0 {
		fmt.Printf("no permissions for %s\n", listing.PluginID)
		return
	}

	fmt.Printf("permissions for %s:\n", listing.PluginID)
	for _, perm := range listing.Permissions {
		state := "inactive"
		if perm.ActiveEffective {
			state = "active"
		}
		flags := []string{state}
		if perm.Required {
			flags = append(flags, "required")
		}

		actions := "-"
		if len(perm.EffectiveActions) > 0 {
			actions = strings.Join(perm.EffectiveActions, ",")
		}
		fmt.Printf("  %-12s id=%-4d actions=%-24s %s via %s\n",
			perm.Type, perm.ConcreteID, actions, strings.Join(flags, ","), describeSources(perm.Sources))
	}

	fmt.Printf("total %d (%d active, %d inactive)",
		listing.Summary.Total, listing.Summary.Active, listing.Summary.Inactive)
	if listing.Summary.RequiredPending > 0 {
		fmt.Printf(", %d required pending", listing.Summary.RequiredPending)
	}
	fmt.Println()
}

func describeSources(sources []dto.ListedSource) string {
	parts := make([]string, 0, len(sources))
	for _, src := range sources {
		if src.Tag != nil {
			parts = append(parts, fmt.Sprintf("tag:%s", src.Tag.Name))
			continue
		}
		parts = append(parts, string(src.Source))
	}
	return strings.Join(parts, "+")
}
