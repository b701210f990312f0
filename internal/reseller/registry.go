package reseller

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strings"
	"sync"
)

//go:embed tenants/*.yaml
var tenantFiles embed.FS

var validID = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,62}[a-z0-9]$`)

// Factory builds a fresh Config for one reseller.
type Factory func() (*Config, error)

// Registry maps reseller ids to factories. It is populated at startup and
// read-only afterwards.
type Registry struct {
	defaultID string
	entries   map[string]Factory
}

// NewRegistry creates an empty registry whose fallback is defaultID.
func NewRegistry(defaultID string) *Registry {
	return &Registry{defaultID: defaultID, entries: make(map[string]Factory)}
}

// Register adds a factory under id. It panics on malformed or duplicate ids
// since registration only happens while wiring the process.
func (r *Registry) Register(id string, f Factory) {
	if !validID.MatchString(id) {
		panic(fmt.Sprintf("reseller: invalid id %q", id))
	}
	if f == nil {
		panic(fmt.Sprintf("reseller: nil factory for %q", id))
	}
	if _, dup := r.entries[id]; dup {
		panic(fmt.Sprintf("reseller: duplicate id %q", id))
	}
	r.entries[id] = f
}

// Lookup returns the factory for id.
func (r *Registry) Lookup(id string) (Factory, bool) {
	f, ok := r.entries[id]
	return f, ok
}

// IDs returns the registered ids in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DefaultID returns the fallback reseller id.
func (r *Registry) DefaultID() string { return r.defaultID }

// Normalize maps a raw selector to a registered id. Surrounding whitespace
// and case are ignored. Empty or unknown selectors map to the default id
// with known set to false for unknown non-empty input.
func (r *Registry) Normalize(raw string) (id string, known bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return r.defaultID, true
	}
	if _, ok := r.entries[s]; ok {
		return s, true
	}
	return r.defaultID, false
}

// Build looks up id after normalization, builds the entry and validates it.
func (r *Registry) Build(raw string) (*Config, error) {
	id, _ := r.Normalize(raw)
	f, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q (registry has no default entry)", ErrUnknownReseller, id)
	}
	cfg, err := f()
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	if cfg.ID != id {
		return nil, fmt.Errorf("%w: entry %q declares id %q", ErrMalformedEntry, id, cfg.ID)
	}
	return cfg, nil
}

// FromFS returns a factory decoding name from fsys on every call.
func FromFS(fsys fs.FS, name string) Factory {
	return func() (*Config, error) {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("reseller: read %s: %w", name, err)
		}
		return Decode(data)
	}
}

// LoadDir registers every *.yaml file of dir in fsys under its base name.
func (r *Registry) LoadDir(fsys fs.FS, dir string) error {
	matches, err := fs.Glob(fsys, path.Join(dir, "*.yaml"))
	if err != nil {
		return err
	}
	for _, m := range matches {
		r.Register(strings.TrimSuffix(path.Base(m), ".yaml"), FromFS(fsys, m))
	}
	return nil
}

var (
	builtinOnce sync.Once
	builtin     *Registry
)

// Builtin returns the registry of resellers compiled into the binary.
func Builtin() *Registry {
	builtinOnce.Do(func() {
		builtin = NewRegistry(DefaultID)
		if err := builtin.LoadDir(tenantFiles, "tenants"); err != nil {
			panic(err)
		}
	})
	return builtin
}
