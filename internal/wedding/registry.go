package wedding

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when no wedding matches a key.
var ErrNotFound = errors.New("wedding not found")

type registryFile struct {
	Weddings []Wedding `yaml:"weddings"`
}

// Registry is a read-mostly set of weddings addressable by shareable id or
// numeric id.
type Registry struct {
	mu         sync.RWMutex
	byShare    map[string]Wedding
	byID       map[int64]Wedding
	orderedIDs []string
}

// NewRegistry returns a registry holding ws. Later duplicates replace
// earlier ones.
func NewRegistry(ws ...Wedding) *Registry {
	r := &Registry{
		byShare: make(map[string]Wedding),
		byID:    make(map[int64]Wedding),
	}
	for _, w := range ws {
		r.Put(w)
	}
	return r
}

// LoadFile reads a YAML registry. A missing file yields an empty registry.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return NewRegistry(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open weddings file: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses a YAML document of the form `weddings: [...]`.
func Load(r io.Reader) (*Registry, error) {
	var doc registryFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse weddings: %w", err)
	}
	for i, w := range doc.Weddings {
		if w.ID == 0 && w.ShareableID == "" {
			return nil, fmt.Errorf("parse weddings: entry %d has neither id nor shareable_id", i)
		}
	}
	return NewRegistry(doc.Weddings...), nil
}

// Put adds or replaces w.
func (r *Registry) Put(w Wedding) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, seen := r.lookupLocked(w.Key()); !seen {
		r.orderedIDs = append(r.orderedIDs, w.Key())
	}
	if w.ShareableID != "" {
		r.byShare[w.ShareableID] = w
	}
	if w.ID != 0 {
		r.byID[w.ID] = w
	}
}

// Lookup finds a wedding by shareable id, then by numeric id.
func (r *Registry) Lookup(key string) (Wedding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if w, ok := r.lookupLocked(key); ok {
		return w, nil
	}
	return Wedding{}, fmt.Errorf("%w: %q", ErrNotFound, key)
}

func (r *Registry) lookupLocked(key string) (Wedding, bool) {
	if w, ok := r.byShare[key]; ok {
		return w, true
	}
	if id, err := strconv.ParseInt(key, 10, 64); err == nil {
		if w, ok := r.byID[id]; ok {
			return w, true
		}
	}
	return Wedding{}, false
}

// List returns the weddings in insertion order.
func (r *Registry) List() []Wedding {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Wedding, 0, len(r.orderedIDs))
	for _, k := range r.orderedIDs {
		if w, ok := r.lookupLocked(k); ok {
			out = append(out, w)
		}
	}
	return out
}

// Len returns the number of weddings.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.orderedIDs)
}
