package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"suitehub/internal/console/resources"
	"suitehub/internal/console/state"
)

const demoEmail = "demo@suitehub.io"

func (r *root) loginCmd() *cobra.Command {
	var (
		email    string
		password string
		name     string
		signup   bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Long: `Sign in with email and password. The password may also come from
SUITEHUB_PASSWORD. Use --signup to create the account first.

Examples:
  suitehub login --email ann@acme.io
  suitehub login --email ann@acme.io --signup --name "Ann"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if r.app.Offline {
				if email == "" {
					email = demoEmail
				}
				sess := state.Session{AccessToken: "demo", UserID: "acct_demo", Email: strings.ToLower(email), DisplayName: "Demo User"}
				if err := r.res().State().SetSession(sess); err != nil {
					return err
				}
				fmt.Fprintf(out, "Signed in as %s (demo data)\n", sess.Email)
				return nil
			}

			if email == "" {
				return errors.New("--email is required")
			}
			if password == "" {
				password = os.Getenv("SUITEHUB_PASSWORD")
			}
			if password == "" {
				return errors.New("--password or SUITEHUB_PASSWORD is required")
			}

			creds := resources.Credentials{Email: email, Password: password, DisplayName: name}
			var (
				sess *state.Session
				err  error
			)
			if signup {
				sess, err = r.res().Signup(cmd.Context(), creds)
			} else {
				sess, err = r.res().Login(cmd.Context(), creds)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Signed in as %s\n", sess.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.Flags().StringVar(&name, "name", "", "display name (with --signup)")
	cmd.Flags().BoolVar(&signup, "signup", false, "create the account")
	return cmd
}

func (r *root) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := r.res().Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func (r *root) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account and current selections",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := r.requireSession(); err != nil {
				return err
			}
			me, err := r.res().WhoAmI(cmd.Context())
			if err != nil {
				return err
			}

			st := r.res().State()
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintf(tw, "Email:\t%s\n", me.Email)
			fmt.Fprintf(tw, "User:\t%s\n", orDash(me.UserID))
			if me.DisplayName != "" {
				fmt.Fprintf(tw, "Name:\t%s\n", me.DisplayName)
			}
			if me.ExpiresAt > 0 {
				fmt.Fprintf(tw, "Session expires:\t%s\n", formatTime(me.ExpiresAt))
			}
			fmt.Fprintf(tw, "Active team:\t%s\n", orDash(st.ActiveTeamID()))
			fmt.Fprintf(tw, "Active app:\t%s\n", orDash(st.ActiveApp()))
			if r.app.Offline {
				fmt.Fprintf(tw, "Mode:\tdemo data\n")
			}
			return tw.Flush()
		},
	}
}
