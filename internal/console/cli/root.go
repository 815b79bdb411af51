// Package cli is the suitehub console command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"suitehub/internal/console/fixtures"
	"suitehub/internal/console/query"
	"suitehub/internal/console/remote"
	"suitehub/internal/console/resources"
	"suitehub/internal/console/state"
	"suitehub/internal/engine/access"
	"suitehub/internal/engine/apikeys"
	"suitehub/internal/engine/teams"
	"suitehub/internal/pkg/logger"
)

var errNotSignedIn = errors.New("not signed in")

// App holds what commands need for one invocation.
type App struct {
	Res     *resources.Resources
	Offline bool
	JoinURL string
}

// Builder turns configuration into an App. Tests supply their own.
type Builder func(cfg Config, log zerolog.Logger) (*App, error)

// DefaultBuilder opens the state file and talks to cfg.APIURL, or to the
// bundled fixtures when it is empty.
func DefaultBuilder(cfg Config, log zerolog.Logger) (*App, error) {
	policy, err := access.ParsePolicy(cfg.AccessPolicy)
	if err != nil {
		return nil, err
	}
	store, err := state.Open(cfg.StatePath)
	if err != nil {
		return nil, err
	}

	client := remote.New(cfg.APIURL, store,
		remote.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		remote.WithFixtures(fixtures.FS, cfg.FixtureDelay),
		remote.WithLogger(log),
	)
	res := resources.New(client, query.NewTable(cfg.StaleTime), store, policy,
		resources.WithLogger(log),
		resources.WithAutoSelect(cfg.AutoSelect),
	)
	return &App{Res: res, Offline: client.Offline(), JoinURL: cfg.JoinURL}, nil
}

type commandContext struct {
	correlationID uuid.UUID
	startedAt     time.Time
}

type commandContextKey struct{}

type root struct {
	cfgFile string
	verbose bool
	build   Builder
	app     *App
	logger  zerolog.Logger
}

// NewRootCommand builds the command tree. Errors are returned to the caller
// unprinted; pass them through Describe for display.
func NewRootCommand(build Builder) *cobra.Command {
	r := &root{build: build, logger: zerolog.Nop()}

	cmd := &cobra.Command{
		Use:   "suitehub",
		Short: "SuiteHub - team, subscription and billing console",
		Long: `SuiteHub manages your teams, their app subscriptions and invoices,
member invitations and integration API keys.

Without SUITEHUB_API_URL the console runs against bundled demo data.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(r.cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			level := cfg.LogLevel
			if r.verbose {
				level = "debug"
			}
			r.logger = logger.New(cmd.ErrOrStderr(), "text").Level(logger.ParseLevel(level))

			app, err := r.build(cfg, r.logger)
			if err != nil {
				return err
			}
			r.app = app

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			info := commandContext{correlationID: uuid.New(), startedAt: time.Now()}
			cmd.SetContext(context.WithValue(ctx, commandContextKey{}, info))
			r.logger.Debug().
				Str("command", cmd.CommandPath()).
				Str("correlation_id", info.correlationID.String()).
				Bool("offline", app.Offline).
				Msg("command start")
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			info, ok := cmd.Context().Value(commandContextKey{}).(commandContext)
			if !ok {
				return
			}
			r.logger.Debug().
				Str("command", cmd.CommandPath()).
				Str("correlation_id", info.correlationID.String()).
				Int64("duration_ms", time.Since(info.startedAt).Milliseconds()).
				Msg("command end")
		},
	}

	cmd.PersistentFlags().StringVarP(&r.cfgFile, "config", "c", "", "config file path")
	cmd.PersistentFlags().BoolVarP(&r.verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(
		r.loginCmd(),
		r.logoutCmd(),
		r.whoamiCmd(),
		r.teamsCmd(),
		r.appsCmd(),
		r.membersCmd(),
		r.inviteLinkCmd(),
		r.invitationsCmd(),
		r.keysCmd(),
		r.invoicesCmd(),
		r.canCmd(),
	)
	return cmd
}

func (r *root) res() *resources.Resources {
	return r.app.Res
}

// requireSession fails before any request when nobody is signed in.
func (r *root) requireSession() error {
	if r.app.Res.State().Session() == nil {
		return errNotSignedIn
	}
	return nil
}

// demoNotice tells the user a write was not kept. Writes against the bundled
// fixtures succeed with an empty response.
func (r *root) demoNotice(w io.Writer) bool {
	if !r.app.Offline {
		return false
	}
	fmt.Fprintln(w, "Demo data is read-only; nothing was changed.")
	return true
}

// Describe turns an error into the one-line message shown to the user.
func Describe(err error) string {
	var he *remote.HTTPError
	switch {
	case errors.Is(err, errNotSignedIn):
		return "not signed in; run `suitehub login`"
	case errors.Is(err, remote.ErrUnauthorized):
		return "session expired; run `suitehub login`"
	case errors.Is(err, teams.ErrNoTeamSelected), errors.Is(err, access.ErrNoTeamSelected):
		return "no team selected; run `suitehub teams use <id>`"
	case errors.Is(err, teams.ErrTeamNotFound):
		return "the selected team is no longer available; run `suitehub teams list`"
	case errors.Is(err, teams.ErrNoAppSelected):
		return "no app selected; run `suitehub apps use <code>`"
	case errors.Is(err, teams.ErrAppNotFound):
		return "that app is not available; run `suitehub apps list`"
	case errors.Is(err, access.ErrTeamNotVerified):
		return "team is not verified; a platform operator must verify it before subscribing"
	case errors.Is(err, access.ErrNoPermission):
		return "you do not have permission to perform this action"
	case errors.Is(err, apikeys.ErrNoActiveSubscription):
		return "no active subscription for this app"
	case errors.Is(err, apikeys.ErrSubscriptionInactive):
		return "the subscription for this app is not active"
	case errors.Is(err, resources.ErrAlreadySubscribed):
		return "team is already subscribed to this app"
	case errors.As(err, &he):
		return he.Message
	default:
		return err.Error()
	}
}
