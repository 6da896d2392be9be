// Package catalog discovers DESeq2 results files and caches parsed tables.
//
// The results root is expected to contain primary/ and secondary/
// subdirectories of *.tsv files. Each file becomes a Dataset addressed by a
// stable "category/stem" identifier. Parsed tables are cached in memory for
// the lifetime of the process; concurrent loads of the same dataset are
// deduplicated with singleflight.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/seqtools/degbrowser/internal/errors"
	"github.com/seqtools/degbrowser/internal/logging"
	"github.com/seqtools/degbrowser/internal/results"
	"github.com/seqtools/degbrowser/internal/validation"
)

var log = logging.Component("catalog")

// Dataset is one discovered results file.
type Dataset struct {
	// ID is "category/stem", e.g. "primary/20240115_KO_vs_WT_results".
	ID string

	// Category is "primary" or "secondary".
	Category string

	// Path is the absolute path of the TSV file.
	Path string

	// DisplayName is the cleaned, human-readable comparison name.
	DisplayName string

	// ShortName is the stem with date prefix and _results suffix removed,
	// used in plot titles and export filenames.
	ShortName string
}

// Catalog holds the discovered datasets and the table cache.
type Catalog struct {
	root string

	mu       sync.RWMutex
	datasets []Dataset
	byID     map[string]Dataset

	cacheMu sync.RWMutex
	cache   map[string]*results.Table
	group   singleflight.Group
}

// Open scans the results root and returns a catalog.
// A missing root directory is an error; an empty catalog is not.
func Open(root string) (*Catalog, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve results root: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", errors.ErrResultsDirMissing, abs)
	}

	c := &Catalog{
		root:  abs,
		byID:  make(map[string]Dataset),
		cache: make(map[string]*results.Table),
	}
	if err := c.Rescan(); err != nil {
		return nil, err
	}
	return c, nil
}

// Root returns the absolute results root directory.
func (c *Catalog) Root() string {
	return c.root
}

// Rescan rediscovers datasets. Cached tables for datasets that still exist
// are kept.
func (c *Catalog) Rescan() error {
	var datasets []Dataset
	byID := make(map[string]Dataset)

	for _, cat := range validation.Categories {
		dir := filepath.Join(c.root, cat)
		matches, err := filepath.Glob(filepath.Join(dir, "*.tsv"))
		if err != nil {
			return fmt.Errorf("scan %s: %w", dir, err)
		}
		sort.Strings(matches)

		for _, path := range matches {
			stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			ds := Dataset{
				ID:          cat + "/" + stem,
				Category:    cat,
				Path:        path,
				DisplayName: CleanDisplayName(stem),
				ShortName:   ShortName(stem),
			}
			datasets = append(datasets, ds)
			byID[ds.ID] = ds
		}
	}

	c.mu.Lock()
	c.datasets = datasets
	c.byID = byID
	c.mu.Unlock()

	log.Info("scan complete", "root", c.root, "datasets", len(datasets))
	return nil
}

// Datasets returns all discovered datasets, primary first, each category
// sorted by filename.
func (c *Catalog) Datasets() []Dataset {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Dataset, len(c.datasets))
	copy(out, c.datasets)
	return out
}

// Get returns the dataset with the given ID.
func (c *Catalog) Get(id string) (Dataset, error) {
	if err := validation.ValidateDatasetID(id); err != nil {
		return Dataset{}, err
	}
	c.mu.RLock()
	ds, ok := c.byID[id]
	c.mu.RUnlock()
	if !ok {
		return Dataset{}, fmt.Errorf("%w: %s", errors.ErrDatasetNotFound, id)
	}
	return ds, nil
}

// Load returns the parsed table for a dataset, reading and caching it on
// first use. The returned table is shared; callers must treat it as
// read-only.
func (c *Catalog) Load(id string) (*results.Table, error) {
	ds, err := c.Get(id)
	if err != nil {
		return nil, err
	}

	c.cacheMu.RLock()
	tbl, ok := c.cache[id]
	c.cacheMu.RUnlock()
	if ok {
		return tbl, nil
	}

	// Collapse concurrent first loads of the same file.
	v, err, _ := c.group.Do(id, func() (interface{}, error) {
		c.cacheMu.RLock()
		tbl, ok := c.cache[id]
		c.cacheMu.RUnlock()
		if ok {
			return tbl, nil
		}

		tbl, err := results.ReadFile(ds.Path)
		if err != nil {
			return nil, err
		}

		c.cacheMu.Lock()
		c.cache[id] = tbl
		c.cacheMu.Unlock()

		log.Debug("table cached", "dataset", id, "rows", tbl.Len())
		return tbl, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*results.Table), nil
}

// ClearCache drops all cached tables.
func (c *Catalog) ClearCache() {
	c.cacheMu.Lock()
	c.cache = make(map[string]*results.Table)
	c.cacheMu.Unlock()
}

// CacheSize returns the number of cached tables.
func (c *Catalog) CacheSize() int {
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()
	return len(c.cache)
}
