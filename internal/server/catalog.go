package server

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/example/go-lerp/internal/gridio"
	"github.com/example/go-lerp/internal/lookup"
	"github.com/example/go-lerp/internal/mesh"
)

// Catalog is a read-only set of named meshes.
type Catalog struct {
	meshes map[string]*mesh.Mesh
	names  []string
}

// NewCatalog wraps the given meshes. The map is copied.
func NewCatalog(meshes map[string]*mesh.Mesh) *Catalog {
	c := &Catalog{meshes: make(map[string]*mesh.Mesh, len(meshes))}
	for name, m := range meshes {
		c.meshes[name] = m
		c.names = append(c.names, name)
	}

	slices.Sort(c.names)

	return c
}

// LoadCatalog reads every grid file in dir, keyed by file name without the
// extension. A missing directory yields an empty catalog.
func LoadCatalog(dir string, opts mesh.Options, run ...lookup.Option) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return NewCatalog(nil), nil
	}

	if err != nil {
		return nil, fmt.Errorf("read grid dir: %w", err)
	}

	meshes := make(map[string]*mesh.Mesh)

	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != gridio.FileExt {
			continue
		}

		m, err := mesh.Load(filepath.Join(dir, e.Name()), opts, run...)
		if err != nil {
			return nil, fmt.Errorf("load grid %q: %w", e.Name(), err)
		}

		meshes[strings.TrimSuffix(e.Name(), gridio.FileExt)] = m
	}

	return NewCatalog(meshes), nil
}

// Get returns the mesh registered under name.
func (c *Catalog) Get(name string) (*mesh.Mesh, bool) {
	m, ok := c.meshes[name]
	return m, ok
}

// Names returns the registered names in sorted order.
func (c *Catalog) Names() []string { return append([]string(nil), c.names...) }

func (c *Catalog) Len() int { return len(c.names) }
