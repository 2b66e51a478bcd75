package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dimitrije/jobboard-api/internal/apperr"
	"github.com/dimitrije/jobboard-api/internal/config"
	"github.com/dimitrije/jobboard-api/internal/logger"
	"github.com/dimitrije/jobboard-api/internal/session"
	"github.com/dimitrije/jobboard-api/pkg/client"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const settleTimeout = 30 * time.Second

// runtime is the client and resolver a single command invocation works with.
type runtime struct {
	cache    *SessionCache
	client   *client.Client
	resolver *session.Resolver
	logger   zerolog.Logger
}

func openRuntime(cmd *cobra.Command, cfg *config.ClientConfig) *runtime {
	apiURL, _ := cmd.Flags().GetString("api-url")
	cachePath, _ := cmd.Flags().GetString("session-file")
	verbose, _ := cmd.Flags().GetBool("verbose")

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	log := logger.NewWithWriter(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.Kitchen}, level)

	cache := NewSessionCache(cachePath)
	cached, err := cache.Load()
	if err != nil {
		log.Warn().Err(err).Msg("ignoring unreadable session cache")
		cached = nil
	}

	c := client.New(apiURL,
		client.WithLogger(log),
		client.WithSession(cached),
		client.WithRetry(
			apperr.WithMaxAttempts(cfg.RetryMaxAttempts),
			apperr.WithBaseDelay(cfg.RetryBaseDelay),
		),
	)
	recorder := apperr.NewRecorder(log, nil)
	r := session.New(c, c, c, session.WithLogger(log), session.WithRecorder(recorder))
	r.Start(commandContext(cmd))

	return &runtime{cache: cache, client: c, resolver: r, logger: log}
}

// close stops the resolver and mirrors the client's session into the cache,
// so refreshed tokens survive and a signed-out session is forgotten.
func (rt *runtime) close() error {
	rt.resolver.Close()
	return rt.cache.Save(rt.client.Session())
}

// settled waits for the resolver to finish its startup check and any pending
// identity resolution.
func (rt *runtime) settled(ctx context.Context) (session.State, error) {
	ctx, cancel := context.WithTimeout(ctx, settleTimeout)
	defer cancel()
	return rt.resolver.WaitSettled(ctx)
}

// waitFor blocks until a snapshot satisfies cond.
func (rt *runtime) waitFor(ctx context.Context, cond func(session.State) bool) (session.State, error) {
	ctx, cancel := context.WithTimeout(ctx, settleTimeout)
	defer cancel()

	states, stop := rt.resolver.Watch()
	defer stop()
	for {
		select {
		case s, ok := <-states:
			if !ok {
				return rt.resolver.State(), session.ErrClosed
			}
			if cond(s) {
				return s, nil
			}
		case <-ctx.Done():
			return rt.resolver.State(), fmt.Errorf("waiting for session: %w", ctx.Err())
		}
	}
}

// signedInAs matches a settled snapshot whose identity has the given email.
// A cached session for someone else does not match.
func signedInAs(email string) func(session.State) bool {
	return func(s session.State) bool {
		return s.Authenticated() && !s.Loading && !s.Resolving &&
			s.Identity != nil && strings.EqualFold(s.Identity.Email, strings.TrimSpace(email))
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// userError turns a classified failure into the message shown to the user.
func userError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, session.ErrClosed) {
		return err
	}
	classified := apperr.Classify(err)
	if classified.Kind == apperr.KindAuthentication {
		return exitError(exitNotSignedIn, "%s", classified.Message)
	}
	return errors.New(classified.Message)
}
