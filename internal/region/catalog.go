package region

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.json
var defaultCatalogJSON []byte

// Entry maps a canonical region name to its decorative image. An empty
// Image means the region is known but has no artwork.
type Entry struct {
	Name  string `json:"name" yaml:"name"`
	Image string `json:"image" yaml:"image"`

	key string
}

// Catalog is an ordered list of known regions. Order only matters for
// breaking token-overlap ties, where the earliest entry wins.
type Catalog struct {
	entries []Entry
}

// NewCatalog builds a catalog from entries, keeping their order.
func NewCatalog(entries []Entry) *Catalog {
	c := &Catalog{entries: make([]Entry, 0, len(entries))}
	for _, e := range entries {
		e.key = normalize(e.Name)
		c.entries = append(c.entries, e)
	}
	return c
}

// Default returns the embedded catalog of Indian states and union territories.
func Default() *Catalog {
	c, err := parseCatalog(defaultCatalogJSON)
	if err != nil {
		panic(fmt.Sprintf("region: embedded catalog is invalid: %v", err))
	}
	return c
}

// LoadCatalog reads a JSON array of {"name", "image"} objects.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return parseCatalog(data)
}

// LoadCatalogFile reads a catalog from a .json, .yaml or .yml file.
func LoadCatalogFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var entries []Entry
		if err := yaml.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", path, err)
		}
		return buildCatalog(entries)
	default:
		return parseCatalog(data)
	}
}

func parseCatalog(data []byte) (*Catalog, error) {
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return buildCatalog(entries)
}

func buildCatalog(entries []Entry) (*Catalog, error) {
	for i, e := range entries {
		if strings.TrimSpace(e.Name) == "" {
			return nil, fmt.Errorf("catalog entry %d has no name", i)
		}
	}
	return NewCatalog(entries), nil
}

// Entries returns a copy of the catalog in order.
func (c *Catalog) Entries() []Entry {
	return append([]Entry(nil), c.entries...)
}

// Len returns the number of entries.
func (c *Catalog) Len() int { return len(c.entries) }

// WithoutImagery returns a catalog with the same names in the same order
// but no image references, so every region is known but undecorated.
func (c *Catalog) WithoutImagery() *Catalog {
	out := &Catalog{entries: make([]Entry, len(c.entries))}
	for i, e := range c.entries {
		out.entries[i] = Entry{Name: e.Name}
	}
	return out
}

// Resolvable reports whether every image reference is an absolute URL the
// renderer can fetch.
func (c *Catalog) Resolvable() bool {
	for _, e := range c.entries {
		if e.Image == "" {
			continue
		}
		u, err := url.Parse(e.Image)
		if err != nil || !u.IsAbs() {
			return false
		}
	}
	return true
}

// WithImageBase returns a catalog whose relative image references are
// resolved against base. Absolute references and empty images are kept.
func (c *Catalog) WithImageBase(base string) (*Catalog, error) {
	if base == "" {
		return c, nil
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid image base URL %q: %w", base, err)
	}
	out := &Catalog{entries: make([]Entry, len(c.entries))}
	for i, e := range c.entries {
		if e.Image != "" {
			ref, err := url.Parse(e.Image)
			if err != nil {
				return nil, fmt.Errorf("invalid image reference for %s: %w", e.Name, err)
			}
			e.Image = baseURL.ResolveReference(ref).String()
		}
		out.entries[i] = e
	}
	return out, nil
}
