package fetch

import (
	"sort"
	"sync"
)

// Registry holds one client per named source so the ops surface can report
// per-mirror health.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]*Client)}
}

// Client returns the client for name, creating it with defaults on first
// use.
func (r *Registry) Client(name string) *Client {
	r.mu.RLock()
	c, ok := r.clients[name]
	r.mu.RUnlock()
	if ok {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients[name]; ok {
		return c
	}
	c = NewClient(Config{Name: name})
	r.clients[name] = c
	return c
}

// Register adds a preconfigured client, replacing any existing one.
func (r *Registry) Register(name string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[name] = c
}

// AllHealth returns health snapshots for every source, ordered by name.
func (r *Registry) AllHealth() []Health {
	r.mu.RLock()
	defer r.mu.RUnlock()

	health := make([]Health, 0, len(r.clients))
	for _, c := range r.clients {
		health = append(health, c.Health())
	}
	sort.Slice(health, func(i, j int) bool { return health[i].Name < health[j].Name })
	return health
}
