package widget

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/zhouzirui/botura-widget/internal/service/mount"
)

// Registry indexes mounted widgets by chatbot id for the HTTP bridge.
type Registry struct {
	mu      sync.RWMutex
	widgets map[string]*mount.Widget
	order   []string
	logger  zerolog.Logger
}

// NewRegistry returns an empty Registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		widgets: make(map[string]*mount.Widget),
		logger:  logger,
	}
}

// Bind is a mount.Binder that exposes w over HTTP. A second widget for the
// same chatbot keeps its session but is not reachable through the bridge.
func (r *Registry) Bind(w *mount.Widget) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := w.Config.ChatbotID
	if _, exists := r.widgets[id]; exists {
		r.logger.Warn().Str("chatbot_id", id).Msg("widget already bound for chatbot, keeping the first")
		return
	}
	r.widgets[id] = w
	r.order = append(r.order, id)
}

// Get returns the widget bound for chatbotID.
func (r *Registry) Get(chatbotID string) (*mount.Widget, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.widgets[chatbotID]
	return w, ok
}

// List returns the bound widgets in mount order.
func (r *Registry) List() []*mount.Widget {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*mount.Widget, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.widgets[id])
	}
	return out
}

// UnmountAll unmounts every bound widget.
func (r *Registry) UnmountAll() {
	for _, w := range r.List() {
		w.Unmount()
	}
}
