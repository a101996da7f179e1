package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/angelajfisher/webex-mate/internal/bridge"
	"github.com/angelajfisher/webex-mate/internal/coordinator"
	"github.com/angelajfisher/webex-mate/internal/db"
	"github.com/angelajfisher/webex-mate/internal/metrics"
	"github.com/angelajfisher/webex-mate/internal/prompt"
	"github.com/angelajfisher/webex-mate/internal/provider"
	"github.com/angelajfisher/webex-mate/internal/push"
	"github.com/angelajfisher/webex-mate/internal/session"
	"github.com/angelajfisher/webex-mate/internal/state"
	"github.com/angelajfisher/webex-mate/internal/timeline"
	"github.com/angelajfisher/webex-mate/internal/types"
)

// PluginClient is the part of the plugin API the components use.
type PluginClient interface {
	session.StatusClient
	coordinator.MeetingClient
}

type unauthorizedNotifier interface {
	OnUnauthorized(fn func())
}

type Config struct {
	Client     PluginClient
	PluginID   string // defaults to provider.DefaultPluginID
	ConnectURL string
	Database   db.DatabasePool
	Logger     zerolog.Logger
	Now        func() time.Time
}

// Orchestrator owns the state store and every component reading or writing it. Surfaces hold a
// pointer to it and never build components of their own.
type Orchestrator struct {
	State    *state.Store
	Session  *session.Store
	Prompt   *prompt.Controller
	Meetings *coordinator.Coordinator
	Timeline *timeline.Timeline
	Hub      *push.Hub
	Bridge   *bridge.Bridge

	log           zerolog.Logger
	subscriptions []interface{ Cancel() }
	mu            sync.Mutex
}

func NewOrchestrator(ctx context.Context, cfg Config) *Orchestrator {
	pluginID := cfg.PluginID
	if pluginID == "" {
		pluginID = provider.DefaultPluginID
	}
	component := func(name string) zerolog.Logger {
		return cfg.Logger.With().Str("component", name).Logger()
	}

	o := &Orchestrator{
		State:    state.NewStore(session.Reduce, prompt.Reduce, coordinator.Reduce),
		Timeline: timeline.New(cfg.Database, component("timeline")),
		Hub:      push.NewHub(component("push")),
		log:      component("orchestrator"),
	}
	o.Session = session.NewStore(cfg.Client, o.State, component("session"))
	o.Prompt = prompt.NewController(o.State)
	o.Meetings = coordinator.New(coordinator.Config{
		Client:     cfg.Client,
		State:      o.State,
		Timeline:   o.Timeline,
		ConnectURL: cfg.ConnectURL,
		Logger:     component("coordinator"),
		Now:        cfg.Now,
	})
	o.Bridge = bridge.New(bridge.Config{
		EventName: provider.PushEventName(pluginID, provider.OAuthSuccessEvent),
		Session:   o.Session,
		Notifier:  o.Meetings,
		State:     o.State,
		Logger:    component("bridge"),
	})

	if hook, ok := cfg.Client.(unauthorizedNotifier); ok {
		hook.OnUnauthorized(o.Session.MarkUnauthorized)
	}

	o.track(o.State.Subscribe(func(ev state.Event, st state.AppState) {
		metrics.ObserveState(state.Name(ev), st.Session.Connected, st.Prompt == types.Visible)
	}))
	o.track(o.Bridge.Attach(ctx, o.Hub))

	return o
}

// Identify records the host user the client acts for.
func (o *Orchestrator) Identify(userID string) {
	o.State.Dispatch(state.UserIdentified{UserID: userID})
}

// Subscribe registers a surface listener; the subscription is also cancelled on Shutdown.
func (o *Orchestrator) Subscribe(l state.Listener) *state.Subscription {
	sub := o.State.Subscribe(l)
	o.track(sub)
	return sub
}

// Shutdown cancels every subscription made through the orchestrator.
func (o *Orchestrator) Shutdown() {
	o.mu.Lock()
	subs := o.subscriptions
	o.subscriptions = nil
	o.mu.Unlock()

	for _, sub := range subs {
		sub.Cancel()
	}
	o.log.Debug().Int("subscriptions", len(subs)).Msg("subscriptions cancelled")
}

func (o *Orchestrator) track(sub interface{ Cancel() }) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.subscriptions = append(o.subscriptions, sub)
}
