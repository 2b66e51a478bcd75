package cli

import (
	"fmt"

	"github.com/dimitrije/jobboard-api/internal/config"
	"github.com/dimitrije/jobboard-api/internal/session"
	"github.com/spf13/cobra"
)

func newWatchCmd(cfg *config.ClientConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow session and role changes until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			rt := openRuntime(cmd, cfg)
			defer closeRuntime(rt, &err)

			ctx := commandContext(cmd)
			state, err := rt.settled(ctx)
			if err != nil {
				return err
			}
			if !state.Authenticated() {
				return exitError(exitNotSignedIn, "not signed in")
			}

			go func() {
				if err := rt.client.Listen(ctx); err != nil {
					rt.logger.Warn().Err(err).Msg("session stream ended")
				}
			}()

			out := cmd.OutOrStdout()
			states, stop := rt.resolver.Watch()
			defer stop()

			var last string
			for {
				select {
				case <-ctx.Done():
					return nil
				case s, ok := <-states:
					if !ok {
						return nil
					}
					if line := describe(s); line != "" && line != last {
						fmt.Fprintln(out, line)
						last = line
					}
					if !s.Authenticated() && !s.Loading {
						return nil
					}
				}
			}
		},
	}
}

func describe(s session.State) string {
	switch {
	case s.Loading, s.Resolving:
		return ""
	case !s.Authenticated():
		return "signed out"
	case s.Identity == nil:
		return "signed in"
	default:
		return fmt.Sprintf("signed in as %s (%s)", s.Identity.Email, s.Identity.Role)
	}
}
