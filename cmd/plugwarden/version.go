package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the plugwarden version",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("plugwarden version %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
