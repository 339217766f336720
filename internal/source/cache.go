package source

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"mdb/internal/tracelog"
)

// Current schema version - increment when the cached payload changes.
const diskCacheSchemaVersion uint16 = 1

// Digest is a SHA-256 cache key.
type Digest [sha256.Size]byte

// String returns the hex form of the digest.
func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// Key hashes parts into a digest. Every part is length-prefixed so that
// ("ab", "c") and ("a", "bc") differ.
func Key(parts ...string) Digest {
	h := sha256.New()
	var n [8]byte
	for _, p := range parts {
		binary.LittleEndian.PutUint64(n[:], uint64(len(p)))
		h.Write(n[:])
		h.Write([]byte(p))
	}
	var d Digest
	h.Sum(d[:0])
	return d
}

// DiskCache stores evaluations on disk, one msgpack file per key.
// Thread-safe for concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

type diskPayload struct {
	Schema     uint16
	Evaluation *Evaluation
}

// DefaultCacheDir returns $XDG_CACHE_HOME/app, falling back to ~/.cache/app.
func DefaultCacheDir(app string) (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, app), nil
}

// OpenDiskCache initializes a disk cache rooted at dir, or at the default
// location for mdb when dir is empty.
func OpenDiskCache(dir string) (*DiskCache, error) {
	if dir == "" {
		d, err := DefaultCacheDir("mdb")
		if err != nil {
			return nil, err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

// Dir returns the cache root.
func (c *DiskCache) Dir() string { return c.dir }

func (c *DiskCache) pathFor(key Digest) string {
	return filepath.Join(c.dir, "evals", key.String()+".mp")
}

// Put serializes ev and atomically replaces the entry for key.
func (c *DiskCache) Put(key Digest, ev *Evaluation) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	enc := msgpack.NewEncoder(f)
	if err := enc.Encode(&diskPayload{Schema: diskCacheSchemaVersion, Evaluation: ev}); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get reads the entry for key. Entries of another schema are misses.
func (c *DiskCache) Get(key Digest) (*Evaluation, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	var payload diskPayload
	if err := msgpack.NewDecoder(f).Decode(&payload); err != nil {
		return nil, false, fmt.Errorf("cache entry %s: %w", key, err)
	}
	if payload.Schema != diskCacheSchemaVersion || payload.Evaluation == nil {
		return nil, false, nil
	}
	return payload.Evaluation, true, nil
}

// DropAll invalidates the cache.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.RemoveAll(old); err != nil {
		return err
	}
	return os.MkdirAll(c.dir, 0o755)
}

// CachedEvaluator answers from a DiskCache and falls back to Inner, storing
// what it computes. Salt distinguishes configurations sharing one cache.
type CachedEvaluator struct {
	Inner Evaluator
	Cache *DiskCache
	Salt  string
}

// Evaluate implements Evaluator.
func (c *CachedEvaluator) Evaluate(ctx context.Context, expr string) (*Evaluation, error) {
	rec := tracelog.FromContext(ctx)
	key := Key(c.Salt, expr)

	ev, ok, err := c.Cache.Get(key)
	if err != nil {
		rec.Point(tracelog.LevelPhase, "cache", "corrupt entry: "+err.Error())
	}
	if ok {
		rec.Point(tracelog.LevelPhase, "cache", "hit "+key.String()[:12])
		ev.Expr = expr
		return ev, nil
	}
	rec.Point(tracelog.LevelPhase, "cache", "miss "+key.String()[:12])

	ev, err = c.Inner.Evaluate(ctx, expr)
	if err != nil {
		return nil, err
	}
	if err := c.Cache.Put(key, ev); err != nil {
		rec.Point(tracelog.LevelPhase, "cache", "store failed: "+err.Error())
	}
	return ev, nil
}
