package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dimitrije/jobboard-api/internal/access"
	"github.com/dimitrije/jobboard-api/internal/config"
	"github.com/spf13/cobra"
)

func newWhoAmICmd(cfg *config.ClientConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in identity and its role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			asJSON, _ := cmd.Flags().GetBool("json")

			rt := openRuntime(cmd, cfg)
			defer closeRuntime(rt, &err)

			state, err := rt.settled(commandContext(cmd))
			if err != nil {
				return err
			}
			if !state.Authenticated() || state.Identity == nil {
				return exitError(exitNotSignedIn, "not signed in")
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(state.Identity)
			}
			printIdentity(out, state.Identity)
			return nil
		},
	}

	cmd.Flags().Bool("json", false, "Print the identity as JSON")

	return cmd
}

func printIdentity(out io.Writer, identity *access.Identity) {
	fmt.Fprintf(out, "Email:        %s\n", identity.Email)
	if name := displayName(identity); name != "" {
		fmt.Fprintf(out, "Name:         %s\n", name)
	}
	fmt.Fprintf(out, "Role:         %s\n", identity.Role)
	fmt.Fprintf(out, "Admin:        %t\n", identity.IsAdmin)
	fmt.Fprintf(out, "Super admin:  %t\n", identity.IsSuperAdmin)
}

func displayName(identity *access.Identity) string {
	p := identity.Profile
	if p == nil {
		return ""
	}
	var parts []string
	if p.FirstName != nil && *p.FirstName != "" {
		parts = append(parts, *p.FirstName)
	}
	if p.LastName != nil && *p.LastName != "" {
		parts = append(parts, *p.LastName)
	}
	return strings.Join(parts, " ")
}
