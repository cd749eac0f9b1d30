package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/bimquery/internal/version"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "bimquery",
		Short:         "Query IFC building models with filters or natural language",
		SilenceUsage:  true,
	}
	root.Version = version.Version
	root.SetVersionTemplate("{{.Version}}\n")
	root.AddCommand(serveCmd())
	root.AddCommand(mcpCmd())
	root.AddCommand(inspectCmd())
	root.AddCommand(filterCmd())
	root.AddCommand(askCmd())
	root.AddCommand(versionCmd())
	return root
}
