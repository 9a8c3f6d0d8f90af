package fba

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/sarchlab/gutsim/metabolism"
)

var _ metabolism.Model = (*Network)(nil)

// DefaultSuffix is appended to species IDs to find their model file.
const DefaultSuffix = ".yaml"

// A NetworkLoader returns parsed networks by species ID.
type NetworkLoader interface {
	LoadNetwork(ctx context.Context, speciesID string) (*Network, error)
}

// DirProvider reads models from files named after the species in a directory.
type DirProvider struct {
	Dir    string
	Suffix string
}

// NewDirProvider creates a DirProvider with the default suffix.
func NewDirProvider(dir string) *DirProvider {
	return &DirProvider{Dir: dir, Suffix: DefaultSuffix}
}

// Path returns the file that holds the model of a species.
func (p *DirProvider) Path(speciesID string) string {
	suffix := p.Suffix
	if suffix == "" {
		suffix = DefaultSuffix
	}

	return filepath.Join(p.Dir, speciesID+suffix)
}

// LoadNetwork parses the model file of a species.
func (p *DirProvider) LoadNetwork(
	ctx context.Context,
	speciesID string,
) (*Network, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return ReadNetworkFile(p.Path(speciesID))
}

// Load parses the model file of a species.
func (p *DirProvider) Load(
	ctx context.Context,
	speciesID string,
) (metabolism.Model, error) {
	n, err := p.LoadNetwork(ctx, speciesID)
	if err != nil {
		return nil, err
	}

	return n, nil
}

type cacheEntry struct {
	once    sync.Once
	network *Network
	err     error
}

// A Cache parses each model once and hands every caller its own copy.
type Cache struct {
	loader NetworkLoader

	lock    sync.Mutex
	entries map[string]*cacheEntry
}

// NewCache wraps a loader with a cache.
func NewCache(loader NetworkLoader) *Cache {
	return &Cache{
		loader:  loader,
		entries: make(map[string]*cacheEntry),
	}
}

// LoadNetwork returns a private copy of the network of a species.
func (c *Cache) LoadNetwork(
	ctx context.Context,
	speciesID string,
) (*Network, error) {
	c.lock.Lock()
	e, ok := c.entries[speciesID]
	if !ok {
		e = &cacheEntry{}
		c.entries[speciesID] = e
	}
	c.lock.Unlock()

	e.once.Do(func() {
		e.network, e.err = c.loader.LoadNetwork(ctx, speciesID)
	})

	if e.err != nil {
		c.forget(speciesID, e)
		return nil, fmt.Errorf("loading model of %s: %w", speciesID, e.err)
	}

	return e.network.Clone(), nil
}

// Load returns a private copy of the model of a species.
func (c *Cache) Load(
	ctx context.Context,
	speciesID string,
) (metabolism.Model, error) {
	n, err := c.LoadNetwork(ctx, speciesID)
	if err != nil {
		return nil, err
	}

	return n, nil
}

// Len returns the number of cached models.
func (c *Cache) Len() int {
	c.lock.Lock()
	defer c.lock.Unlock()

	return len(c.entries)
}

// forget drops a failed entry so that the next call retries.
func (c *Cache) forget(speciesID string, e *cacheEntry) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.entries[speciesID] == e {
		delete(c.entries, speciesID)
	}
}
