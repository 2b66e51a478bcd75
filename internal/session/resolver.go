package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/dimitrije/jobboard-api/internal/access"
	"github.com/dimitrije/jobboard-api/internal/apperr"
	"github.com/dimitrije/jobboard-api/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var ErrClosed = errors.New("session resolver closed")

type Option func(*Resolver)

func WithLogger(logger zerolog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger.With().Str("component", "session").Logger()
	}
}

// WithRecorder sets where failed lookups are recorded. Defaults to a recorder
// on the resolver's logger.
func WithRecorder(rec *apperr.Recorder) Option {
	return func(r *Resolver) {
		r.recorder = rec
	}
}

type sessionMsg struct {
	change  models.SessionChange
	startup bool
}

type lookupMsg struct {
	seq      uint64
	identity access.Identity
}

type clearMsg struct {
	ack chan struct{}
}

// Resolver owns the session state. One loop goroutine applies every change;
// readers get the latest snapshot without blocking.
type Resolver struct {
	provider IdentityProvider
	profiles ProfileStore
	grants   GrantStore
	logger   zerolog.Logger
	recorder *apperr.Recorder

	snapshot atomic.Pointer[State]
	inbox    chan any

	// Owned by the loop goroutine.
	seq      uint64
	notified bool

	watchMu  sync.Mutex
	watchers map[int]chan State
	nextID   int
	closed   bool

	startOnce   sync.Once
	closeOnce   sync.Once
	unsubscribe func()
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

func New(provider IdentityProvider, profiles ProfileStore, grants GrantStore, opts ...Option) *Resolver {
	r := &Resolver{
		provider: provider,
		profiles: profiles,
		grants:   grants,
		logger:   zerolog.Nop(),
		inbox:    make(chan any),
		watchers: make(map[int]chan State),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.recorder == nil {
		r.recorder = apperr.NewRecorder(r.logger, nil)
	}
	r.ctx, r.cancel = context.WithCancel(context.Background())
	r.snapshot.Store(&State{Loading: true})
	return r
}

// Start subscribes to the provider and runs the start-up session check.
// It returns immediately; IsLoading reports when the first check is done.
// Sign-out needs a started resolver.
func (r *Resolver) Start(ctx context.Context) {
	r.startOnce.Do(func() {
		changes, unsubscribe := r.provider.Subscribe()
		r.unsubscribe = unsubscribe

		r.wg.Add(2)
		go r.loop(changes)
		go r.checkCurrentSession(ctx)
	})
}

// Close unsubscribes from the provider and stops the loop. In-flight lookups
// and the start-up check are abandoned.
func (r *Resolver) Close() {
	r.closeOnce.Do(func() {
		if r.unsubscribe != nil {
			r.unsubscribe()
		}
		r.cancel()
		r.wg.Wait()

		r.watchMu.Lock()
		r.closed = true
		for id, ch := range r.watchers {
			close(ch)
			delete(r.watchers, id)
		}
		r.watchMu.Unlock()
	})
}

func (r *Resolver) State() State {
	return *r.snapshot.Load()
}

// CurrentIdentity returns the resolved identity, or false when nobody is
// signed in or the identity is still being resolved.
func (r *Resolver) CurrentIdentity() (*access.Identity, bool) {
	s := r.snapshot.Load()
	return s.Identity, s.Identity != nil
}

// Session is visible as soon as the provider reports it, before the identity resolves.
func (r *Resolver) Session() *models.Session {
	return r.snapshot.Load().Session
}

func (r *Resolver) IsLoading() bool {
	return r.snapshot.Load().Loading
}

func (r *Resolver) GateState() access.GateState {
	return r.snapshot.Load().GateState()
}

// Decide evaluates the access gate against the current snapshot.
func (r *Resolver) Decide(intended string, reqs ...access.Requirement) access.Decision {
	return access.Decide(r.GateState(), intended, reqs...)
}

func (r *Resolver) SignUp(ctx context.Context, email, password, firstName, lastName string) error {
	err := r.provider.SignUp(ctx, email, password, SignUpAttributes{FirstName: firstName, LastName: lastName})
	if err != nil {
		return r.recorder.Record(err, map[string]any{"operation": "sign_up"})
	}
	return nil
}

// SignIn authenticates with the provider. The new state arrives through the
// provider's change channel, not through this call.
func (r *Resolver) SignIn(ctx context.Context, email, password string) error {
	if err := r.provider.SignIn(ctx, email, password); err != nil {
		return r.recorder.Record(err, map[string]any{"operation": "sign_in"})
	}
	return nil
}

// SignOut invalidates the session with the provider and clears the local
// identity before returning, whether or not the provider call succeeded.
func (r *Resolver) SignOut(ctx context.Context) error {
	var classified error
	if err := r.provider.SignOut(ctx); err != nil {
		classified = r.recorder.Record(err, map[string]any{"operation": "sign_out"})
	}

	ack := make(chan struct{})
	select {
	case r.inbox <- clearMsg{ack: ack}:
		<-ack
	case <-r.ctx.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	return classified
}

// Watch delivers every new snapshot, latest wins: a slow reader skips
// intermediate states but always sees the newest one. The current snapshot is
// delivered first.
func (r *Resolver) Watch() (<-chan State, func()) {
	ch := make(chan State, 1)

	r.watchMu.Lock()
	if r.closed {
		r.watchMu.Unlock()
		ch <- r.State()
		close(ch)
		return ch, func() {}
	}
	id := r.nextID
	r.nextID++
	r.watchers[id] = ch
	// Loaded after registration; publish stores before taking watchMu.
	ch <- r.State()
	r.watchMu.Unlock()

	return ch, func() {
		r.watchMu.Lock()
		defer r.watchMu.Unlock()
		if _, ok := r.watchers[id]; ok {
			delete(r.watchers, id)
			close(ch)
		}
	}
}

// WaitSettled blocks until the first session check is done and no identity is
// being resolved.
func (r *Resolver) WaitSettled(ctx context.Context) (State, error) {
	states, stop := r.Watch()
	defer stop()
	for {
		select {
		case s, ok := <-states:
			if !ok {
				return r.State(), ErrClosed
			}
			if s.settled() {
				return s, nil
			}
		case <-ctx.Done():
			return r.State(), ctx.Err()
		}
	}
}

func (r *Resolver) checkCurrentSession(ctx context.Context) {
	defer r.wg.Done()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(r.ctx, cancel)
	defer stop()

	sess, err := r.provider.CurrentSession(ctx)
	if err != nil {
		r.recorder.Record(err, map[string]any{"operation": "current_session"})
		sess = nil
	}

	select {
	case r.inbox <- sessionMsg{change: models.SessionChange{Type: models.SessionInitial, Session: sess}, startup: true}:
	case <-r.ctx.Done():
	}
}

func (r *Resolver) loop(changes <-chan models.SessionChange) {
	defer r.wg.Done()
	for {
		select {
		case <-r.ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			r.applyChange(change, false)
		case msg := <-r.inbox:
			switch m := msg.(type) {
			case sessionMsg:
				r.applyChange(m.change, m.startup)
			case lookupMsg:
				r.applyLookup(m)
			case clearMsg:
				r.clear()
				close(m.ack)
			}
		}
	}
}

// applyChange is the single state-update routine for both the start-up check
// and provider notifications. The start-up result only counts if no
// notification has been applied yet; notifications always apply.
func (r *Resolver) applyChange(change models.SessionChange, startup bool) {
	if startup && r.notified {
		r.logger.Debug().Msg("discarding start-up session check, a notification already applied")
		return
	}
	if !startup {
		r.notified = true
	}

	prev := r.snapshot.Load()
	sess := change.Session
	switch change.Type {
	case models.SessionSignedOut:
		sess = nil
	case models.SessionUserUpdated, models.SessionTokenRefreshed:
		// Server-pushed changes carry no tokens; the session itself is unchanged.
		if sess == nil {
			sess = prev.Session
		}
	}

	r.seq++
	r.logger.Debug().Str("type", change.Type).Uint64("seq", r.seq).Bool("signed_in", sess != nil).Msg("session change")

	if sess == nil {
		r.publish(&State{Seq: r.seq})
		return
	}

	next := &State{Loading: prev.Loading, Session: sess, Seq: r.seq}
	if prev.Identity != nil && prev.Identity.ID == sess.User.ID {
		next.Identity = prev.Identity
	} else {
		next.Resolving = true
	}
	r.publish(next)

	r.wg.Add(1)
	go r.lookup(r.seq, sess.User)
}

func (r *Resolver) applyLookup(m lookupMsg) {
	if m.seq != r.seq {
		r.logger.Debug().Uint64("seq", m.seq).Uint64("latest", r.seq).Msg("discarding stale identity lookup")
		return
	}
	prev := r.snapshot.Load()
	identity := m.identity
	r.publish(&State{Session: prev.Session, Identity: &identity, Seq: r.seq})
}

func (r *Resolver) clear() {
	r.seq++
	r.notified = true
	r.publish(&State{Seq: r.seq})
}

// lookup reads the profile and grant independently. A failed read is recorded
// and treated as absent, so the identity still resolves as a job seeker.
func (r *Resolver) lookup(seq uint64, user models.SessionUser) {
	defer r.wg.Done()

	var (
		profile *models.Profile
		grant   *models.AdminGrant
	)
	g, ctx := errgroup.WithContext(r.ctx)
	g.Go(func() error {
		p, err := r.profiles.GetProfile(ctx, user.ID)
		if err != nil {
			r.recordLookup(err, "profile", user)
			return nil
		}
		profile = p
		return nil
	})
	g.Go(func() error {
		gr, err := r.grants.GetAdminGrant(ctx, user.ID)
		if err != nil {
			r.recordLookup(err, "admin_grant", user)
			return nil
		}
		grant = gr
		return nil
	})
	_ = g.Wait()

	select {
	case r.inbox <- lookupMsg{seq: seq, identity: access.Derive(user, profile, grant)}:
	case <-r.ctx.Done():
	}
}

func (r *Resolver) recordLookup(err error, lookup string, user models.SessionUser) {
	if r.ctx.Err() != nil {
		return
	}
	r.recorder.Record(err, map[string]any{
		"lookup":      lookup,
		"identity_id": user.ID.String(),
	})
}

func (r *Resolver) publish(s *State) {
	r.snapshot.Store(s)

	r.watchMu.Lock()
	defer r.watchMu.Unlock()
	for _, ch := range r.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- *s
	}
}
