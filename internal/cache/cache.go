// Package cache keeps parsed dump catalogues on disk so repeated traces of
// unchanged designs skip the elaboration run.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/robert-at-pretension-io/sigtrace/internal/design"
)

const cacheIndexVersion = 1

// ParserVersion invalidates every entry when the catalogue format changes.
const ParserVersion = "rtlil-2"

type cacheEntry struct {
	ContentKey    string `json:"content_key"`
	CataloguePath string `json:"catalogue_path"`
	ParserVersion string `json:"parser_version"`
}

type cacheIndex struct {
	Version int                   `json:"version"`
	Entries map[string]cacheEntry `json:"entries"`
}

// Request identifies one elaboration: both designs and the target module.
type Request struct {
	Gold   *design.Snapshot
	Gate   *design.Snapshot
	Module string
}

// slot names the index entry a request overwrites.
func (r Request) slot() string {
	return r.Gold.AbsPath + "\x00" + r.Gate.AbsPath + "\x00" + r.Module
}

// ContentKey hashes everything the dump depends on. Any change to either
// file's bytes produces a different key.
func (r Request) ContentKey() string {
	h := sha256.New()
	for _, part := range []string{r.Gold.AbsPath, r.Gold.Hash, r.Gate.AbsPath, r.Gate.Hash, r.Module} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// DumpCache stores catalogues under dir.
type DumpCache struct {
	dir           string
	parserVersion string
	mu            sync.Mutex
	index         cacheIndex
}

// New returns an empty cache rooted at dir. Call Load before Get.
func New(dir string) *DumpCache {
	return &DumpCache{
		dir:           dir,
		parserVersion: ParserVersion,
		index: cacheIndex{
			Version: cacheIndexVersion,
			Entries: make(map[string]cacheEntry),
		},
	}
}

func (c *DumpCache) indexPath() string {
	return filepath.Join(c.dir, "index.json")
}

func (c *DumpCache) cataloguePath(key string) string {
	return filepath.Join(c.dir, "catalogues", key+".json")
}

// Load reads the index. A missing index is an empty cache.
func (c *DumpCache) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("cache mkdir: %w", err)
	}
	data, err := os.ReadFile(c.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read cache index: %w", err)
	}
	var idx cacheIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return fmt.Errorf("parse cache index: %w", err)
	}
	if idx.Version != cacheIndexVersion {
		// Reset on version mismatch
		c.index = cacheIndex{Version: cacheIndexVersion, Entries: make(map[string]cacheEntry)}
		return nil
	}
	if idx.Entries == nil {
		idx.Entries = make(map[string]cacheEntry)
	}
	c.index = idx
	return nil
}

// Save writes the index.
func (c *DumpCache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return writeJSONAtomic(c.indexPath(), c.index)
}

// Get returns the catalogue stored for req if both files are unchanged.
func (c *DumpCache) Get(req Request) (design.Catalogue, bool, error) {
	c.mu.Lock()
	entry, ok := c.index.Entries[req.slot()]
	c.mu.Unlock()
	if !ok {
		return design.Catalogue{}, false, nil
	}
	if entry.ContentKey != req.ContentKey() || entry.ParserVersion != c.parserVersion {
		return design.Catalogue{}, false, nil
	}

	data, err := os.ReadFile(entry.CataloguePath)
	if err != nil {
		return design.Catalogue{}, false, fmt.Errorf("read cached catalogue: %w", err)
	}
	var cat design.Catalogue
	if err := json.Unmarshal(data, &cat); err != nil {
		return design.Catalogue{}, false, fmt.Errorf("parse cached catalogue: %w", err)
	}
	return cat, true, nil
}

// Put stores cat for req, replacing any older entry for the same files.
func (c *DumpCache) Put(req Request, cat design.Catalogue) error {
	key := req.ContentKey()
	path := c.cataloguePath(key)
	if err := writeJSONAtomic(path, cat); err != nil {
		return err
	}

	c.mu.Lock()
	old, had := c.index.Entries[req.slot()]
	c.index.Entries[req.slot()] = cacheEntry{
		ContentKey:    key,
		CataloguePath: path,
		ParserVersion: c.parserVersion,
	}
	c.mu.Unlock()

	if had && old.CataloguePath != path {
		_ = os.Remove(old.CataloguePath)
	}
	return nil
}

// Clear removes every stored catalogue and the index.
func (c *DumpCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = cacheIndex{Version: cacheIndexVersion, Entries: make(map[string]cacheEntry)}
	if err := os.RemoveAll(c.dir); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache json: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*.json")
	if err != nil {
		return fmt.Errorf("temp cache file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename cache file: %w", err)
	}
	return nil
}
