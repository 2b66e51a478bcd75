package cli

import (
	"fmt"

	"github.com/dimitrije/jobboard-api/internal/access"
	"github.com/dimitrije/jobboard-api/internal/config"
	"github.com/spf13/cobra"
)

func newCheckCmd(cfg *config.ClientConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <admin|hr|super-admin|authenticated>",
		Short: "Evaluate the access gate for a requirement",
		Long: "Evaluates the access gate the way a protected page would. Exits 0 when the page " +
			"would render, 3 when sign-in is required and 4 when the role is missing.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			req, err := access.ParseRequirement(args[0])
			if err != nil {
				return err
			}
			path, _ := cmd.Flags().GetString("path")

			rt := openRuntime(cmd, cfg)
			defer closeRuntime(rt, &err)

			if _, err := rt.settled(commandContext(cmd)); err != nil {
				return err
			}

			decision := rt.resolver.Decide(path, req)
			switch {
			case decision.Unauthenticated():
				return exitError(exitNotSignedIn, "sign-in required: redirect to %s", decision.Location)
			case decision.Forbidden():
				return exitError(exitForbidden, "%s role required: redirect to %s", req, decision.Location)
			case decision.Outcome == access.OutcomeRender:
				fmt.Fprintf(cmd.OutOrStdout(), "allowed: %s\n", req)
				return nil
			default:
				return fmt.Errorf("access gate did not settle (%s)", decision.Outcome)
			}
		},
	}

	cmd.Flags().String("path", "/", "Page the check stands for, kept in the login redirect")

	return cmd
}
