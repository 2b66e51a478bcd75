package cli

import (
	"fmt"

	"github.com/dimitrije/jobboard-api/internal/config"
	"github.com/spf13/cobra"
)

func newSignUpCmd(cfg *config.ClientConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			firstName, _ := cmd.Flags().GetString("first-name")
			lastName, _ := cmd.Flags().GetString("last-name")

			rt := openRuntime(cmd, cfg)
			defer closeRuntime(rt, &err)

			ctx := commandContext(cmd)
			if err := rt.resolver.SignUp(ctx, email, password, firstName, lastName); err != nil {
				return userError(err)
			}
			state, err := rt.waitFor(ctx, signedInAs(email))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed up as %s (%s)\n", state.Identity.Email, state.Identity.Role)
			return nil
		},
	}

	cmd.Flags().String("email", "", "Account email")
	cmd.Flags().String("password", "", "Account password")
	cmd.Flags().String("first-name", "", "First name for the profile")
	cmd.Flags().String("last-name", "", "Last name for the profile")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func newLoginCmd(cfg *config.ClientConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")

			rt := openRuntime(cmd, cfg)
			defer closeRuntime(rt, &err)

			ctx := commandContext(cmd)
			if err := rt.resolver.SignIn(ctx, email, password); err != nil {
				return userError(err)
			}
			state, err := rt.waitFor(ctx, signedInAs(email))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", state.Identity.Email, state.Identity.Role)
			return nil
		},
	}

	cmd.Flags().String("email", "", "Account email")
	cmd.Flags().String("password", "", "Account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func newLogoutCmd(cfg *config.ClientConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the cached session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			all, _ := cmd.Flags().GetBool("all")

			rt := openRuntime(cmd, cfg)
			defer closeRuntime(rt, &err)

			ctx := commandContext(cmd)
			if all {
				if err := rt.client.SignOutAll(ctx); err != nil {
					return userError(err)
				}
			} else if err := rt.resolver.SignOut(ctx); err != nil {
				// The local session is gone either way.
				rt.logger.Warn().Err(err).Msg("sign-out was not confirmed by the API")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}

	cmd.Flags().Bool("all", false, "Sign out on every device")

	return cmd
}

// closeRuntime persists the session after a command. A cache failure is only
// reported when the command itself succeeded.
func closeRuntime(rt *runtime, err *error) {
	if cerr := rt.close(); cerr != nil && *err == nil {
		*err = cerr
	}
}
