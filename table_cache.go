package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// ErrUnknownTable is returned for a table name with no configuration
var ErrUnknownTable = errors.New("unknown table")

// TableCache is a read-through cache of loaded tables.
// The first successful load of a name is kept for the life of the process;
// failed loads are not cached, so the next request retries the file.
type TableCache struct {
	source TableSource
	specs  map[string]TableConfig

	mu     sync.Mutex
	tables map[string]*Table
}

// NewTableCache creates a cache over source for the configured tables
func NewTableCache(source TableSource, specs map[string]TableConfig) *TableCache {
	return &TableCache{
		source: source,
		specs:  specs,
		tables: make(map[string]*Table),
	}
}

// Get returns the named table, loading it on first access
func (c *TableCache) Get(ctx context.Context, name string) (*Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.tables[name]; ok {
		return t, nil
	}

	spec, ok := c.specs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, name)
	}

	start := time.Now()
	t, err := c.source.ReadTable(ctx, name, spec)
	if err != nil {
		return nil, err
	}
	log.Printf("Loaded table %s: %s rows, %d columns in %s",
		name, humanize.Comma(int64(t.Len())), len(t.Columns), time.Since(start).Round(time.Millisecond))

	c.tables[name] = t
	return t, nil
}

// Spec returns the configuration of a table
func (c *TableCache) Spec(name string) (TableConfig, bool) {
	spec, ok := c.specs[name]
	return spec, ok
}

// Loaded returns the names of the tables currently cached
func (c *TableCache) Loaded() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
