// Package catalog serves tuning data keyed by kind and id. Records come from
// an embedded defaults file, optionally overlaid by a file on disk.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/imbuefx/enrichments/internal/engine"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// EffectData describes a cosmetic effect.
type EffectData struct {
	// Duration until the effect finishes on its own. Zero loops until ended.
	Duration time.Duration `yaml:"duration"`
	// Fade is the time an ended effect takes to finish.
	Fade time.Duration `yaml:"fade"`
}

// StatusData describes a status effect.
type StatusData struct {
	MaxHeat float64 `yaml:"maxHeat"`
}

type document map[string]map[string]yaml.Node

// Catalog is safe for concurrent use: reloads may come from a watcher
// goroutine while the simulation reads.
type Catalog struct {
	mu      sync.RWMutex
	path    string
	records document
	version int
}

// Load builds a catalog from the embedded defaults overlaid by path. An
// empty path or a missing file uses the defaults alone.
func Load(path string) (*Catalog, error) {
	c := &Catalog{path: path}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// FromBytes builds a catalog from a single YAML document.
func FromBytes(data []byte) (*Catalog, error) {
	doc, err := parse(data)
	if err != nil {
		return nil, err
	}
	return &Catalog{records: doc, version: 1}, nil
}

// Reload re-reads the defaults and the overlay file. On error the previous
// records are kept.
func (c *Catalog) Reload() error {
	doc, err := parse(defaultsYAML)
	if err != nil {
		return fmt.Errorf("catalog: defaults: %w", err)
	}
	if c.path != "" {
		data, err := os.ReadFile(c.path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return fmt.Errorf("catalog: read %s: %w", c.path, err)
		default:
			overlay, err := parse(data)
			if err != nil {
				return fmt.Errorf("catalog: %s: %w", c.path, err)
			}
			merge(doc, overlay)
		}
	}
	c.mu.Lock()
	c.records = doc
	c.version++
	c.mu.Unlock()
	return nil
}

func parse(data []byte) (document, error) {
	doc := document{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	return doc, nil
}

func merge(dst, src document) {
	for kind, ids := range src {
		if dst[kind] == nil {
			dst[kind] = make(map[string]yaml.Node, len(ids))
		}
		maps.Copy(dst[kind], ids)
	}
}

// Path returns the overlay file path.
func (c *Catalog) Path() string { return c.path }

// Version increases on every successful reload.
func (c *Catalog) Version() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

func (c *Catalog) node(kind, id string) (yaml.Node, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n, ok := c.records[kind][id]
	return n, ok
}

// Has reports whether kind/id exists.
func (c *Catalog) Has(kind, id string) bool {
	_, ok := c.node(kind, id)
	return ok
}

// Decode decodes kind/id into out. Fields absent from the record keep the
// values out already holds, so callers pass in their defaults.
func (c *Catalog) Decode(kind, id string, out any) error {
	n, ok := c.node(kind, id)
	if !ok {
		return fmt.Errorf("%s %q: %w", kind, id, engine.ErrNotFound)
	}
	if err := n.Decode(out); err != nil {
		return fmt.Errorf("catalog: decode %s %q: %w", kind, id, err)
	}
	return nil
}

// IDs returns the sorted ids of one kind.
func (c *Catalog) IDs(kind string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.records[kind]))
}

var _ engine.Catalog = (*Catalog)(nil)
