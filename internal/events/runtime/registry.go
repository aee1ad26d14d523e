package runtime

import (
	"fmt"
	"sync"
)

// Handler processes deliveries of one event. Retries is the retry budget
// after the first attempt; it is baked into max_attempts at publish time.
type Handler interface {
	Name() string
	Event() string
	Retries() int
	Handle(c *Context) error
}

type Registry struct {
	mu      sync.RWMutex
	byName  map[string]Handler
	byEvent map[string][]Handler
}

func NewRegistry() *Registry {
	return &Registry{
		byName:  make(map[string]Handler),
		byEvent: make(map[string][]Handler),
	}
}

func (r *Registry) Register(h Handler) error {
	if h == nil {
		return fmt.Errorf("nil handler")
	}
	name := h.Name()
	if name == "" {
		return fmt.Errorf("handler Name() is empty")
	}
	if h.Event() == "" {
		return fmt.Errorf("handler %s: Event() is empty", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("handler already registered for name=%s", name)
	}
	r.byName[name] = h
	r.byEvent[h.Event()] = append(r.byEvent[h.Event()], h)
	return nil
}

func (r *Registry) Get(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.byName[name]
	return h, ok
}

func (r *Registry) ForEvent(event string) []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Handler, len(r.byEvent[event]))
	copy(out, r.byEvent[event])
	return out
}
