package campusmap

import (
	"sync"
	"time"
)

// Registry hands out one Widget per viewer key.
type Registry struct {
	mu      sync.Mutex
	proj    Projection
	widgets map[string]*Widget
}

func NewRegistry(proj Projection) *Registry {
	return &Registry{proj: proj, widgets: map[string]*Widget{}}
}

func (r *Registry) Projection() Projection {
	return r.proj
}

// Widget returns the viewer's widget, creating it on first use.
func (r *Registry) Widget(viewer string) *Widget {
	r.mu.Lock()
	w, ok := r.widgets[viewer]
	if !ok {
		w = NewWidget(r.proj)
		r.widgets[viewer] = w
	}
	r.mu.Unlock()

	w.touch(time.Now())
	return w
}

// Sweep drops widgets idle for longer than maxIdle and reports how many.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for viewer, w := range r.widgets {
		if w.idleSince().Before(cutoff) {
			delete(r.widgets, viewer)
			removed++
		}
	}
	return removed
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.widgets)
}
