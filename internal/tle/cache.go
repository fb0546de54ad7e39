package tle

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// ErrNoCachedFile is returned by Latest when the cache directory holds no
// element files.
var ErrNoCachedFile = errors.New("no cached TLE file")

const (
	cachePrefix = "elements_"
	cacheSuffix = ".tle"
)

// Cache keeps fetched element files on disk as elements_<unix>.tle and prunes
// all but the newest maxFiles.
type Cache struct {
	dir      string
	maxFiles int
}

// CachedFile is one file in the cache.
type CachedFile struct {
	Path      string
	FetchedAt time.Time
}

// NewCache creates a Cache rooted at dir. maxFiles <= 0 keeps 5.
func NewCache(dir string, maxFiles int) *Cache {
	if maxFiles <= 0 {
		maxFiles = 5
	}
	return &Cache{dir: dir, maxFiles: maxFiles}
}

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.dir }

// Save writes data under the fetch timestamp and prunes old files.
func (c *Cache) Save(data []byte, fetchedAt time.Time) (string, error) {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating cache dir: %w", err)
	}

	path := filepath.Join(c.dir, cachePrefix+strconv.FormatInt(fetchedAt.Unix(), 10)+cacheSuffix)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing cache file: %w", err)
	}
	return path, c.prune()
}

// Latest returns the newest cached file.
func (c *Cache) Latest() (CachedFile, error) {
	files, err := c.Files()
	if err != nil {
		return CachedFile{}, err
	}
	if len(files) == 0 {
		return CachedFile{}, fmt.Errorf("%w in %s", ErrNoCachedFile, c.dir)
	}
	return files[len(files)-1], nil
}

// Files lists cached files oldest first. A missing directory is empty.
func (c *Cache) Files() ([]CachedFile, error) {
	dirEntries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing cache dir: %w", err)
	}

	var files []CachedFile
	for _, e := range dirEntries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, cachePrefix) || !strings.HasSuffix(name, cacheSuffix) {
			continue
		}
		unix, err := strconv.ParseInt(strings.TrimSuffix(strings.TrimPrefix(name, cachePrefix), cacheSuffix), 10, 64)
		if err != nil {
			continue
		}
		files = append(files, CachedFile{Path: filepath.Join(c.dir, name), FetchedAt: time.Unix(unix, 0).UTC()})
	}

	slices.SortFunc(files, func(a, b CachedFile) int {
		return a.FetchedAt.Compare(b.FetchedAt)
	})
	return files, nil
}

func (c *Cache) prune() error {
	files, err := c.Files()
	if err != nil {
		return err
	}
	if len(files) <= c.maxFiles {
		return nil
	}
	for _, f := range files[:len(files)-c.maxFiles] {
		if err := os.Remove(f.Path); err != nil {
			return fmt.Errorf("pruning cache file %s: %w", filepath.Base(f.Path), err)
		}
	}
	return nil
}
