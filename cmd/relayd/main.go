// Command relayd accepts file uploads over HTTP, stores each one under a
// randomly generated name, and serves it back to anyone who knows the name.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "relayd",
		Short: "Stream files in and out of storage under unguessable names",
		Long: `relayd accepts uploads on POST /upload, stores each under a random
20 character name, and answers with that name. GET /download/{name}
streams the file back.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	serve := serveCmd()
	rootCmd.Flags().AddFlagSet(serve.Flags())
	rootCmd.RunE = serve.RunE

	rootCmd.AddCommand(
		serve,
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("relayd %s (%s)\n", version, commit)
		},
	}
}
