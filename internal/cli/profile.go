package cli

import (
	"fmt"

	"github.com/dimitrije/jobboard-api/internal/config"
	"github.com/dimitrije/jobboard-api/pkg/dto"
	"github.com/spf13/cobra"
)

var profileFields = []struct {
	flag  string
	usage string
	set   func(*dto.UpdateProfileRequest, *string)
}{
	{"first-name", "First name", func(r *dto.UpdateProfileRequest, v *string) { r.FirstName = v }},
	{"last-name", "Last name", func(r *dto.UpdateProfileRequest, v *string) { r.LastName = v }},
	{"phone", "Phone number", func(r *dto.UpdateProfileRequest, v *string) { r.Phone = v }},
	{"location", "Location", func(r *dto.UpdateProfileRequest, v *string) { r.Location = v }},
	{"bio", "Short bio", func(r *dto.UpdateProfileRequest, v *string) { r.Bio = v }},
	{"avatar-url", "Avatar URL", func(r *dto.UpdateProfileRequest, v *string) { r.AvatarURL = v }},
}

func newProfileCmd(cfg *config.ClientConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show the profile, or update the fields given as flags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			var req dto.UpdateProfileRequest
			for _, f := range profileFields {
				if cmd.Flags().Changed(f.flag) {
					v, _ := cmd.Flags().GetString(f.flag)
					f.set(&req, &v)
				}
			}

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

			out := cmd.OutOrStdout()
			if req.Empty() {
				if state.Identity == nil || state.Identity.Profile == nil {
					fmt.Fprintln(out, "No profile")
					return nil
				}
				printIdentity(out, state.Identity)
				return nil
			}

			profile, err := rt.client.UpdateProfile(ctx, req)
			if err != nil {
				return userError(err)
			}
			fmt.Fprintf(out, "Profile updated for %s\n", state.Identity.Email)
			if profile != nil && profile.Bio != nil {
				fmt.Fprintf(out, "Bio:          %s\n", *profile.Bio)
			}
			return nil
		},
	}

	for _, f := range profileFields {
		cmd.Flags().String(f.flag, "", f.usage)
	}

	return cmd
}
