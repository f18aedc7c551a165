package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plugwarden/plugwarden/internal/domain/capability"
)

var (
	approveStatus string
	approveGuard  string
)

var approveCmd = &cobra.Command{
	Use:   "approve <plugin-id> <route-id>",
	Short: "Resolve a plugin's declared route",
	Long: `Approve, deny, or revoke a route the plugin has declared. A route
registration check only passes once its declaration is approved here.
Locking a guard with --guard means registration checks must carry the
same guard.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApprove(cmd, args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(approveCmd)

	approveCmd.Flags().StringVar(&approveStatus, "status", capability.RouteApproved, "new status: approved, denied, revoked")
	approveCmd.Flags().StringVar(&approveGuard, "guard", "", "lock the approval to this guard")
}

func runApprove(cmd *cobra.Command, pluginID, routeID string) error {
	switch approveStatus {
	case capability.RouteApproved, capability.RouteDenied, capability.RouteRevoked:
	default:
		return fmt.Errorf("invalid status %q (expected approved, denied, or revoked)", approveStatus)
	}

	c, err := newContainer()
	if err != nil {
		return err
	}
	defer func() {
		_ = c.Close()
	}()

	admin := c.RouteAdmin()
	if admin == nil {
		return fmt.Errorf("route approval requires a persistent database (--db)")
	}

	if err := admin.SetRouteStatus(cmd.Context(), pluginID, routeID, approveStatus, approveGuard); err != nil {
		return err
	}
	c.Permissions().InvalidateCache(pluginID)

	fmt.Printf("route %s for %s is now %s\n", routeID, pluginID, approveStatus)
	return nil
}
