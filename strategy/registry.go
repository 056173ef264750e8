package strategy

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

// Factory builds a strategy instance from its configuration.
type Factory func(cfg Config, logger *logrus.Logger) (SignalSource, error)

// Registry maps strategy type names to factories and tracks the instances
// it has created. It is an explicit object owned by the composition root;
// there is no package-level registry.
type Registry struct {
	factories map[string]Factory
	instances map[string]SignalSource
	log       *logrus.Logger
}

// NewRegistry returns a registry pre-loaded with the built-in strategy
// types (momentum, mean-reversion, noop).
func NewRegistry(logger *logrus.Logger) *Registry {
	r := &Registry{
		factories: make(map[string]Factory),
		instances: make(map[string]SignalSource),
		log:       logger,
	}
	r.Register("momentum", NewMomentum)
	r.Register("mean-reversion", NewMeanReversion)
	r.Register("noop", NewNoop)
	return r
}

// Register adds or replaces the factory for a strategy type.
func (r *Registry) Register(typ string, f Factory) {
	r.factories[typ] = f
}

// Types lists the registered strategy types, sorted.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Create instantiates a strategy from its config and tracks it by ID.
// Creating a second instance with an existing ID is an error.
func (r *Registry) Create(cfg Config) (SignalSource, error) {
	if cfg.ID == "" {
		return nil, fmt.Errorf("strategy config: id is required")
	}
	if _, exists := r.instances[cfg.ID]; exists {
		return nil, fmt.Errorf("strategy %q already exists", cfg.ID)
	}

	factory, ok := r.factories[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unknown strategy type %q", cfg.Type)
	}

	strat, err := factory(cfg, r.log)
	if err != nil {
		return nil, fmt.Errorf("create strategy %q: %w", cfg.ID, err)
	}

	r.instances[cfg.ID] = strat
	return strat, nil
}

// Get returns a previously created strategy by ID.
func (r *Registry) Get(id string) (SignalSource, bool) {
	s, ok := r.instances[id]
	return s, ok
}

// Remove drops a tracked instance, reporting whether it existed.
func (r *Registry) Remove(id string) bool {
	if _, ok := r.instances[id]; !ok {
		return false
	}
	delete(r.instances, id)
	return true
}

// List returns the tracked strategy IDs, sorted.
func (r *Registry) List() []string {
	ids := make([]string, 0, len(r.instances))
	for id := range r.instances {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
