package parsers

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/maypok86/otter"
)

// DefaultCacheCapacity is the number of parsed files kept by NewCachingParser
// when no capacity is configured.
const DefaultCacheCapacity = 2048

type cachedFile struct {
	file    *SourceFile
	modTime time.Time
	size    int64
}

// CachingParser wraps a FileParser with a bounded cache of parsed files.
// Entries are revalidated against the file's mtime and size, so repeated
// analyses (watch mode, MCP calls) only re-parse what changed. Cached
// SourceFiles are immutable and safe to share between analysis runs.
type CachingParser struct {
	parser FileParser
	cache  otter.Cache[string, cachedFile]
}

// NewCachingParser creates a caching parser holding up to capacity files.
func NewCachingParser(parser FileParser, capacity int) (*CachingParser, error) {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}

	cache, err := otter.MustBuilder[string, cachedFile](capacity).
		CollectStats().
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create parse cache: %w", err)
	}

	return &CachingParser{
		parser: parser,
		cache:  cache,
	}, nil
}

// ParseFile returns the cached declaration tree for filePath when the file
// is unchanged on disk, parsing it otherwise.
func (c *CachingParser) ParseFile(ctx context.Context, filePath string) (*SourceFile, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, err
	}

	if entry, ok := c.cache.Get(filePath); ok {
		if entry.modTime.Equal(info.ModTime()) && entry.size == info.Size() {
			return entry.file, nil
		}
	}

	file, err := c.parser.ParseFile(ctx, filePath)
	if err != nil {
		return nil, err
	}

	c.cache.Set(filePath, cachedFile{
		file:    file,
		modTime: info.ModTime(),
		size:    info.Size(),
	})
	return file, nil
}

// Invalidate drops filePath from the cache.
func (c *CachingParser) Invalidate(filePath string) {
	c.cache.Delete(filePath)
}

// Hits returns the number of cache hits since creation.
func (c *CachingParser) Hits() int64 {
	return c.cache.Stats().Hits()
}

// Close releases the cache.
func (c *CachingParser) Close() {
	c.cache.Close()
}
