package words

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bytedance/sonic"

	"storybuddy/core"
)

const (
	blobSubdir    = "words"
	indexFileName = "word_cache.json"
)

// Cache is the durable word-audio store: a directory of per-word MP3 blobs
// plus a single JSON index mapping normalized key to blob path. The index
// lives in memory and is persisted as a whole-file overwrite on every Put.
//
// Invariant: an index entry exists only if its blob was written
// successfully and is non-empty. A blob with no index entry is a harmless
// orphan; an entry pointing at a missing blob is treated as a miss and
// logged.
//
// All index mutation happens under one mutex, so concurrent Puts for
// different keys merge instead of overwriting each other's entries.
type Cache struct {
	dir       string // cache root
	blobDir   string // dir/words
	indexPath string // dir/word_cache.json
	log       *core.Logger

	mu    sync.RWMutex
	index map[string]string // key -> blob path relative to dir

	hits   int64
	misses int64
}

// NewCache opens (or creates) the cache rooted at dir. A missing or corrupt
// index file loads as empty; entries rebuild incrementally as words are
// regenerated.
func NewCache(dir string, log *core.Logger) (*Cache, error) {
	if log == nil {
		log = core.GetLogger()
	}
	c := &Cache{
		dir:       dir,
		blobDir:   filepath.Join(dir, blobSubdir),
		indexPath: filepath.Join(dir, indexFileName),
		log:       log.With(map[string]interface{}{"component": "wordcache"}),
		index:     make(map[string]string),
	}

	if err := os.MkdirAll(c.blobDir, 0o755); err != nil {
		return nil, &core.CacheIOError{Op: "create dir", Path: c.blobDir, Err: err}
	}

	c.loadIndex()
	return c, nil
}

// loadIndex reads the index file from disk. Any failure leaves the cache
// empty rather than failing startup.
func (c *Cache) loadIndex() {
	data, err := os.ReadFile(c.indexPath)
	if err != nil {
		if !os.IsNotExist(err) {
			c.log.With(map[string]interface{}{"path": c.indexPath, "error": err}).Warn("failed to read cache index, starting empty")
		}
		return
	}

	index := make(map[string]string)
	if err := sonic.Unmarshal(data, &index); err != nil {
		c.log.With(map[string]interface{}{"path": c.indexPath, "error": err}).Warn("corrupt cache index, starting empty")
		return
	}

	c.index = index
	c.log.With(map[string]interface{}{"entries": len(index)}).Info("loaded word cache index")
}

// Has reports whether key is indexed and its blob is readable.
func (c *Cache) Has(key string) bool {
	c.mu.RLock()
	rel, ok := c.index[key]
	c.mu.RUnlock()
	if !ok {
		return false
	}

	info, err := os.Stat(filepath.Join(c.dir, rel))
	return err == nil && info.Size() > 0
}

// Get returns the cached audio for key. A missing or unreadable blob is a
// miss, not an error: the anomaly is logged and the caller regenerates.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	rel, ok := c.index[key]
	c.mu.RUnlock()
	if !ok {
		c.miss()
		return nil, false
	}

	path := filepath.Join(c.dir, rel)
	data, err := os.ReadFile(path)
	if err != nil {
		c.log.With(map[string]interface{}{"key": key, "path": path, "error": err}).Warn("indexed blob unreadable, treating as miss")
		c.miss()
		return nil, false
	}
	if len(data) == 0 {
		c.log.With(map[string]interface{}{"key": key, "path": path}).Warn("indexed blob empty, treating as miss")
		c.miss()
		return nil, false
	}

	c.hit()
	return data, true
}

// Put stores audio for key: blob first, then index. A blob write failure
// leaves the index untouched. An index persist failure leaves the blob as
// an orphan and the entry absent, so the next Put retries both — safe
// because keys are content-derived.
func (c *Cache) Put(key string, data []byte) error {
	if len(data) == 0 {
		return &core.CacheIOError{Op: "write blob", Path: key, Err: fmt.Errorf("refusing to store empty audio")}
	}

	rel := filepath.Join(blobSubdir, key+".mp3")
	path := filepath.Join(c.dir, rel)
	if err := writeFileAtomic(path, data); err != nil {
		return &core.CacheIOError{Op: "write blob", Path: path, Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.index[key] = rel
	if err := c.persistIndexLocked(); err != nil {
		// Roll back so lookups keep treating the key as absent; the blob
		// stays behind as an orphan.
		delete(c.index, key)
		return err
	}

	c.log.With(map[string]interface{}{"key": key, "bytes": len(data), "entries": len(c.index)}).Debug("cached word audio")
	return nil
}

// persistIndexLocked overwrites the index file with the full in-memory map.
// Caller must hold c.mu.
func (c *Cache) persistIndexLocked() error {
	data, err := sonic.Marshal(c.index)
	if err != nil {
		return &core.CacheIOError{Op: "encode index", Path: c.indexPath, Err: err}
	}
	if err := writeFileAtomic(c.indexPath, data); err != nil {
		return &core.CacheIOError{Op: "persist index", Path: c.indexPath, Err: err}
	}
	return nil
}

// writeFileAtomic writes data to a unique temp file next to path and renames
// it into place. Two sessions missing on the same key can race to write the
// same blob; rename keeps the file whole under either writer.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

// Len returns the number of indexed entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.index)
}

// Stats returns hit and miss counts.
func (c *Cache) Stats() (hits, misses int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

func (c *Cache) hit() {
	c.mu.Lock()
	c.hits++
	c.mu.Unlock()
}

func (c *Cache) miss() {
	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
}
