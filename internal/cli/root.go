// Package cli implements the jobboard command line client. Every command runs
// the same session resolver a browser session would, against the API.
package cli

import (
	"github.com/dimitrije/jobboard-api/internal/config"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the command tree. cfg supplies flag defaults.
func NewRootCmd(cfg *config.ClientConfig) *cobra.Command {
	root := &cobra.Command{
		Use:          "jobboard",
		Short:        "Job board account CLI",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("api-url", cfg.APIURL, "Base URL of the jobboard API")
	root.PersistentFlags().String("session-file", DefaultCachePath(), "Where the session is cached")
	root.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	root.AddCommand(newSignUpCmd(cfg))
	root.AddCommand(newLoginCmd(cfg))
	root.AddCommand(newLogoutCmd(cfg))
	root.AddCommand(newWhoAmICmd(cfg))
	root.AddCommand(newCheckCmd(cfg))
	root.AddCommand(newProfileCmd(cfg))
	root.AddCommand(newWatchCmd(cfg))

	return root
}
