// Package mount binds widget sessions to host elements.
package mount

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	model "github.com/zhouzirui/botura-widget/internal/model/widget"
	"github.com/zhouzirui/botura-widget/internal/service/backend"
	"github.com/zhouzirui/botura-widget/internal/service/session"
	"github.com/zhouzirui/botura-widget/internal/service/widget"
	"github.com/zhouzirui/botura-widget/internal/store"
)

// ErrHostElementNotFound aborts a mount when the page has no host element.
var ErrHostElementNotFound = errors.New("host element not found")

// Widget is one mounted instance: a resolved config and its session.
type Widget struct {
	Config  model.Config
	Session *session.Manager
	Store   store.ConversationStore
}

// Unmount waits for any in-flight send and releases the session's observers.
func (w *Widget) Unmount() {
	w.Session.Close()
}

// Binder attaches a presentation layer to a freshly mounted widget.
type Binder func(w *Widget)

// BackendFactory builds the backend for one widget configuration.
type BackendFactory func(cfg model.Config) session.Backend

// HTTPBackends returns a factory posting to each widget's own APIBaseURL.
func HTTPBackends(httpClient *http.Client) BackendFactory {
	return func(cfg model.Config) session.Backend {
		return backend.NewClient(cfg.APIBaseURL, httpClient)
	}
}

// Bootstrapper resolves configuration and builds store + session pairs.
type Bootstrapper struct {
	resolver *widget.Resolver
	backends BackendFactory
	store    store.ConversationStore
	binders  []Binder
	logger   zerolog.Logger
	options  []session.Option
}

// Option customizes a Bootstrapper.
type Option func(*Bootstrapper)

// WithResolver replaces the builtin-defaults resolver.
func WithResolver(r *widget.Resolver) Option {
	return func(b *Bootstrapper) { b.resolver = r }
}

// WithBackends replaces the HTTP backend factory.
func WithBackends(f BackendFactory) Option {
	return func(b *Bootstrapper) { b.backends = f }
}

// WithBinder registers a presentation binder called on every successful mount.
func WithBinder(binder Binder) Option {
	return func(b *Bootstrapper) { b.binders = append(b.binders, binder) }
}

// WithLogger sets the logger for mount diagnostics and the sessions it builds.
func WithLogger(logger zerolog.Logger) Option {
	return func(b *Bootstrapper) { b.logger = logger }
}

// WithSessionOptions forwards options to every session.Manager built.
func WithSessionOptions(opts ...session.Option) Option {
	return func(b *Bootstrapper) { b.options = append(b.options, opts...) }
}

// NewBootstrapper returns a Bootstrapper persisting identities in conversations.
func NewBootstrapper(conversations store.ConversationStore, opts ...Option) *Bootstrapper {
	b := &Bootstrapper{
		resolver: widget.NewResolver(model.Defaults{}),
		backends: HTTPBackends(nil),
		store:    conversations,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.store == nil {
		b.store = store.Unavailable{}
	}
	return b
}

// MountElement mounts a widget on the element with elementID in page.
// Failures are logged and returned; nothing is built and the page is left
// untouched. Mounting the same element twice creates two independent
// sessions sharing one persisted scope.
func (b *Bootstrapper) MountElement(ctx context.Context, page *HostPage, elementID string) (*Widget, error) {
	if elementID == "" {
		elementID = DefaultHostElementID
	}
	logger := b.logger.With().Str("element_id", elementID).Logger()

	sel, matches := page.find(elementID)
	if matches == 0 {
		logger.Error().Msg("widget host element not found, skipping mount")
		return nil, errors.Wrapf(ErrHostElementNotFound, "#%s", elementID)
	}
	if matches > 1 {
		logger.Warn().Int("matches", matches).Msg("several host elements share the id, mounting on the first")
	}

	w, err := b.mount(ctx, attributes(sel), logger)
	if err != nil {
		return nil, err
	}
	page.appendRoot(sel, w.Config)
	return w, nil
}

// MountAttributes mounts a widget from explicit instantiation parameters.
func (b *Bootstrapper) MountAttributes(ctx context.Context, attrs model.Attributes) (*Widget, error) {
	return b.mount(ctx, attrs, b.logger)
}

func (b *Bootstrapper) mount(ctx context.Context, attrs model.Attributes, logger zerolog.Logger) (*Widget, error) {
	cfg, err := b.resolver.Resolve(attrs)
	if err != nil {
		logger.Error().Err(err).Msg("invalid widget configuration, skipping mount")
		return nil, err
	}

	sessionLogger := b.logger.With().Str("component", "session").Logger()
	opts := append([]session.Option{session.WithLogger(sessionLogger)}, b.options...)
	manager := session.NewManager(ctx, cfg, b.backends(cfg), b.store, opts...)

	w := &Widget{Config: cfg, Session: manager, Store: b.store}
	for _, bind := range b.binders {
		bind(w)
	}

	logger.Info().
		Str("chatbot_id", cfg.ChatbotID).
		Str("api_base_url", cfg.APIBaseURL).
		Bool("resumed", manager.ConversationID() != "").
		Msg("widget mounted")
	return w, nil
}
