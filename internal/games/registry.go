package games

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/kingrea/quickpython/internal/console"
)

// ErrUnknownGame is returned by Resolve for unregistered ids.
var ErrUnknownGame = errors.New("games: unknown game")

// Setting says which question a game asks before it starts.
type Setting string

const (
	SettingDifficulty Setting = "difficulty"
	SettingPlayers    Setting = "players"
)

// Info describes an example game.
type Info struct {
	ID          string
	Name        string
	Description string
	Setting     Setting
}

// Validate ensures the info block is well-formed.
func (i Info) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("games: id is required")
	}
	if i.Name == "" {
		return fmt.Errorf("games: name is required for %s", i.ID)
	}
	if i.Description == "" {
		return fmt.Errorf("games: description is required for %s", i.ID)
	}
	switch i.Setting {
	case SettingDifficulty, SettingPlayers:
	default:
		return fmt.Errorf("games: unknown setting %q for %s", i.Setting, i.ID)
	}
	return nil
}

// Options are the answers to a game's Setting.
type Options struct {
	Difficulty string
	Players    int
}

// Game is one playable round.
type Game interface {
	Play(c *console.Console) error
}

// Factory constructs a game with the provided options.
type Factory func(Options) (Game, error)

type entry struct {
	info    Info
	factory Factory
}

// Registry maintains known games.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: map[string]entry{}}
}

// Register installs a game. Returns an error if the ID already exists.
func (r *Registry) Register(info Info, factory Factory) error {
	if err := info.Validate(); err != nil {
		return err
	}
	if factory == nil {
		return fmt.Errorf("games: factory is required for %s", info.ID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[info.ID]; exists {
		return fmt.Errorf("games: %s already registered", info.ID)
	}
	r.entries[info.ID] = entry{info: info, factory: factory}
	return nil
}

// MustRegister panics if registration fails.
func (r *Registry) MustRegister(info Info, factory Factory) {
	if err := r.Register(info, factory); err != nil {
		panic(err)
	}
}

// Info returns the description of id.
func (r *Registry) Info(id string) (Info, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return Info{}, fmt.Errorf("%w: %s", ErrUnknownGame, id)
	}
	return e.info, nil
}

// Resolve constructs a game by ID.
func (r *Registry) Resolve(id string, opts Options) (Game, error) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGame, id)
	}
	return e.factory(opts)
}

// IDs returns a sorted list of registered game identifiers.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Infos returns every game's info sorted by ID.
func (r *Registry) Infos() []Info {
	ids := r.IDs()
	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := make([]Info, 0, len(ids))
	for _, id := range ids {
		infos = append(infos, r.entries[id].info)
	}
	return infos
}
