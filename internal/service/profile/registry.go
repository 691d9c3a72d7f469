package profile

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/paiml/rosetta-ruchy-sub000/internal/domain"
	"github.com/paiml/rosetta-ruchy-sub000/internal/util"
)

//go:embed profiles.yaml
var embeddedProfiles []byte

// Registry holds every translation profile, keyed by language id, in
// declaration order. It is read-only after construction.
type Registry struct {
	target  *domain.Profile
	ordered []*domain.Profile
	byName  map[string]*domain.Profile
}

// Default builds the registry from the embedded profile set.
func Default() (*Registry, error) {
	return NewRegistry(embeddedProfiles)
}

// LoadFile builds the registry from a YAML document on disk.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles file: %w", err)
	}
	return NewRegistry(data)
}

func NewRegistry(data []byte) (*Registry, error) {
	target, profiles, err := parse(data)
	if err != nil {
		return nil, err
	}

	r := &Registry{
		ordered: make([]*domain.Profile, 0, len(profiles)),
		byName:  make(map[string]*domain.Profile, len(profiles)),
	}
	for _, p := range profiles {
		if _, dup := r.byName[p.Language]; dup {
			return nil, fmt.Errorf("profiles: duplicate language %q", p.Language)
		}
		if p.Identity {
			if r.target != nil {
				return nil, fmt.Errorf("profiles: more than one identity profile")
			}
			if p.Language != target {
				return nil, fmt.Errorf("profiles: identity profile %q does not match target %q", p.Language, target)
			}
			r.target = p
		}
		r.byName[p.Language] = p
		r.ordered = append(r.ordered, p)
	}
	if r.target == nil {
		return nil, fmt.Errorf("profiles: no identity profile for target %q", target)
	}
	return r, nil
}

func (r *Registry) Lookup(language string) (*domain.Profile, bool) {
	if r == nil {
		return nil, false
	}
	p, ok := r.byName[util.Normalize(language)]
	return p, ok
}

// Target returns the identity profile.
func (r *Registry) Target() *domain.Profile {
	return r.target
}

// Sources returns the non-identity profiles in declaration order.
func (r *Registry) Sources() []*domain.Profile {
	out := make([]*domain.Profile, 0, len(r.ordered))
	for _, p := range r.ordered {
		if !p.Identity {
			out = append(out, p)
		}
	}
	return out
}

// SupportedLanguages lists translatable input languages.
func (r *Registry) SupportedLanguages() []string {
	sources := r.Sources()
	out := make([]string, 0, len(sources))
	for _, p := range sources {
		out = append(out, p.Language)
	}
	return out
}

// Languages lists every accepted language hint, the target included.
func (r *Registry) Languages() []string {
	out := make([]string, 0, len(r.ordered))
	for _, p := range r.ordered {
		out = append(out, p.Language)
	}
	return out
}

// ByFilename resolves a profile from a file extension.
func (r *Registry) ByFilename(name string) (*domain.Profile, bool) {
	ext := filepath.Ext(name)
	if ext == "" {
		return nil, false
	}
	for _, p := range r.ordered {
		if p.HasExtension(ext) {
			return p, true
		}
	}
	return nil, false
}
