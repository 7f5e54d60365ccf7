package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/eunomia-project/eunomia/core"
)

// cacheManifest is the sidecar JSON document stored alongside a cached
// bundle archive.
type cacheManifest struct {
	Version  string    `json:"version"`
	Checksum string    `json:"checksum"`
	CachedAt time.Time `json:"cached_at"`
}

// CacheConfig configures a Cache.
type CacheConfig struct {
	Dir            string
	TTL            time.Duration
	VerifyChecksum bool
	MaxTotalBytes  int64
}

// TryNewCacheConfig validates cfg, the authoritative fallible constructor.
func TryNewCacheConfig(cfg CacheConfig) (CacheConfig, error) {
	if cfg.Dir == "" {
		return CacheConfig{}, errors.New("registry: cache Dir is required")
	}
	return cfg, nil
}

// Cache is the local on-disk bundle cache: one
// "bundles/<service>/<version>.bundle.tar.gz" file per entry, a JSON
// sidecar manifest, and a parallel "signatures/" tree.
type Cache struct {
	cfg CacheConfig
}

// NewCache builds a Cache rooted at cfg.Dir, creating the bundles/ and
// signatures/ subdirectories if missing.
func NewCache(cfg CacheConfig) (*Cache, error) {
	c := &Cache{cfg: cfg}
	if err := os.MkdirAll(filepath.Join(cfg.Dir, "bundles"), 0755); err != nil {
		return nil, errors.Wrap(err, "registry: creating cache bundles dir")
	}
	if err := os.MkdirAll(filepath.Join(cfg.Dir, "signatures"), 0755); err != nil {
		return nil, errors.Wrap(err, "registry: creating cache signatures dir")
	}
	return c, nil
}

func (c *Cache) bundlePath(service, version string) string {
	return filepath.Join(c.cfg.Dir, "bundles", service, version+".bundle.tar.gz")
}

func (c *Cache) manifestPath(service, version string) string {
	return filepath.Join(c.cfg.Dir, "bundles", service, version+".manifest.json")
}

func (c *Cache) signaturePath(service, version string) string {
	return filepath.Join(c.cfg.Dir, "signatures", service, version+".sig")
}

// Get returns the cached bundle for (service, version), evicting it first
// if it is expired or (when VerifyChecksum is on) fails recomputation.
func (c *Cache) Get(service, version string) (*core.Bundle, bool) {
	bundlePath := c.bundlePath(service, version)
	info, err := os.Stat(bundlePath)
	if err != nil {
		return nil, false
	}
	if time.Since(info.ModTime()) > c.cfg.TTL {
		c.Invalidate(service, version)
		return nil, false
	}

	data, err := os.ReadFile(bundlePath)
	if err != nil {
		return nil, false
	}
	bundle, err := core.FromBytes(data)
	if err != nil {
		c.Invalidate(service, version)
		return nil, false
	}

	if c.cfg.VerifyChecksum {
		if stored, ok := c.readManifest(service, version); ok && stored.Checksum != "" {
			if stored.Checksum != bundle.Checksum() {
				c.Invalidate(service, version)
				return nil, false
			}
		}
	}
	return bundle, true
}

func (c *Cache) readManifest(service, version string) (cacheManifest, bool) {
	data, err := os.ReadFile(c.manifestPath(service, version))
	if err != nil {
		return cacheManifest{}, false
	}
	var m cacheManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return cacheManifest{}, false
	}
	return m, true
}

// Put writes bundle's archive and sidecar manifest, then enforces the
// configured size limit.
func (c *Cache) Put(bundle *core.Bundle) error {
	if err := os.MkdirAll(filepath.Dir(c.bundlePath(bundle.Service, bundle.Version)), 0755); err != nil {
		return &CacheError{Message: err.Error()}
	}
	data, err := bundle.ToBytes()
	if err != nil {
		return &CacheError{Message: err.Error()}
	}
	if err := os.WriteFile(c.bundlePath(bundle.Service, bundle.Version), data, 0644); err != nil {
		return &CacheError{Message: err.Error()}
	}

	sidecar := cacheManifest{
		Version:  bundle.Version,
		Checksum: bundle.Checksum(),
		CachedAt: time.Now().UTC(),
	}
	sidecarJSON, err := json.Marshal(sidecar)
	if err != nil {
		return &CacheError{Message: err.Error()}
	}
	if err := os.WriteFile(c.manifestPath(bundle.Service, bundle.Version), sidecarJSON, 0644); err != nil {
		return &CacheError{Message: err.Error()}
	}

	return c.enforceSizeLimit()
}

// PutSignature writes detached signature bytes for (service, version).
func (c *Cache) PutSignature(service, version string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(c.signaturePath(service, version)), 0755); err != nil {
		return &CacheError{Message: err.Error()}
	}
	if err := os.WriteFile(c.signaturePath(service, version), data, 0644); err != nil {
		return &CacheError{Message: err.Error()}
	}
	return nil
}

// Invalidate removes every file associated with (service, version).
func (c *Cache) Invalidate(service, version string) {
	os.Remove(c.bundlePath(service, version))
	os.Remove(c.manifestPath(service, version))
	os.Remove(c.signaturePath(service, version))
}

// Clear recreates the bundles/ and signatures/ trees from scratch.
func (c *Cache) Clear() error {
	if err := os.RemoveAll(filepath.Join(c.cfg.Dir, "bundles")); err != nil {
		return &CacheError{Message: err.Error()}
	}
	if err := os.RemoveAll(filepath.Join(c.cfg.Dir, "signatures")); err != nil {
		return &CacheError{Message: err.Error()}
	}
	if err := os.MkdirAll(filepath.Join(c.cfg.Dir, "bundles"), 0755); err != nil {
		return &CacheError{Message: err.Error()}
	}
	if err := os.MkdirAll(filepath.Join(c.cfg.Dir, "signatures"), 0755); err != nil {
		return &CacheError{Message: err.Error()}
	}
	return nil
}

// PruneResult reports what Prune did.
type PruneResult struct {
	ExpiredRemoved int
	SizeEvicted    int
}

// Prune removes expired bundle entries, then enforces the size limit.
func (c *Cache) Prune() (PruneResult, error) {
	var result PruneResult
	bundlesDir := filepath.Join(c.cfg.Dir, "bundles")

	entries, err := cacheEntries(bundlesDir)
	if err != nil {
		return result, &CacheError{Message: err.Error()}
	}

	if c.cfg.TTL > 0 {
		for _, e := range entries {
			if time.Since(e.modTime) > c.cfg.TTL {
				service, version := e.service, e.version
				c.Invalidate(service, version)
				result.ExpiredRemoved++
			}
		}
	}

	evicted, err := c.enforceSizeLimitCounting()
	if err != nil {
		return result, err
	}
	result.SizeEvicted = evicted
	return result, nil
}

type cacheEntry struct {
	path            string
	service         string
	version         string
	size            int64
	modTime         time.Time
}

// cacheEntries walks "bundles/<service>/<version>.bundle.tar.gz" files.
func cacheEntries(bundlesDir string) ([]cacheEntry, error) {
	var out []cacheEntry
	serviceDirs, err := os.ReadDir(bundlesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	for _, sd := range serviceDirs {
		if !sd.IsDir() {
			continue
		}
		service := sd.Name()
		files, err := os.ReadDir(filepath.Join(bundlesDir, service))
		if err != nil {
			continue
		}
		for _, f := range files {
			name := f.Name()
			const suffix = ".bundle.tar.gz"
			if len(name) <= len(suffix) || name[len(name)-len(suffix):] != suffix {
				continue
			}
			version := name[:len(name)-len(suffix)]
			info, err := f.Info()
			if err != nil {
				continue
			}
			out = append(out, cacheEntry{
				path:    filepath.Join(bundlesDir, service, name),
				service: service,
				version: version,
				size:    info.Size(),
				modTime: info.ModTime(),
			})
		}
	}
	return out, nil
}

// enforceSizeLimit deletes oldest-mtime bundle files until total size is at
// or below 90% of MaxTotalBytes. A non-positive MaxTotalBytes disables
// enforcement.
func (c *Cache) enforceSizeLimit() error {
	_, err := c.enforceSizeLimitCounting()
	return err
}

func (c *Cache) enforceSizeLimitCounting() (int, error) {
	if c.cfg.MaxTotalBytes <= 0 {
		return 0, nil
	}
	entries, err := cacheEntries(filepath.Join(c.cfg.Dir, "bundles"))
	if err != nil {
		return 0, &CacheError{Message: err.Error()}
	}

	var total int64
	for _, e := range entries {
		total += e.size
	}
	threshold := c.cfg.MaxTotalBytes * 90 / 100
	if total <= c.cfg.MaxTotalBytes {
		return 0, nil
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].modTime.Before(entries[j].modTime) })

	evicted := 0
	for _, e := range entries {
		if total <= threshold {
			break
		}
		c.Invalidate(e.service, e.version)
		total -= e.size
		evicted++
	}
	return evicted, nil
}
