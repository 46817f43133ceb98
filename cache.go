package ktx2

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/pierrec/lz4/v4"
)

const (
	// DefaultCacheBudget is the compressed byte budget used when NewLevelCache gets 0.
	DefaultCacheBudget = 64 << 20

	// cacheChunkSize is the LZ4 chunk size of cached entries.
	cacheChunkSize = 64 * 1024
	// cacheMinCompressSize is the size below which entries are stored as-is.
	cacheMinCompressSize = 1024
	// cacheRatio is the compressed/raw ratio above which LZ4 is not worth it.
	cacheRatio = 0.85

	chunkFlagLast = 0x80
	chunkFlagRaw  = 0x01
)

// CacheKey identifies a resolved level.
type CacheKey struct {
	Source string // caller-chosen container identity, e.g. a path or content hash
	Level  int
	Format VkFormat
}

// CacheStats is a snapshot of cache counters.
type CacheStats struct {
	Entries int
	Bytes   int // stored (compressed) bytes
	Raw     int // bytes the entries expand to
	Hits    int
	Misses  int
}

type cacheEntry struct {
	lz4  bool
	data []byte
	raw  int
}

// LevelCache keeps resolved level payloads in memory, LZ4-compressed in 64 KiB
// chunks, under a byte budget with first-in first-out eviction.
// It is safe for concurrent use.
type LevelCache struct {
	mu      sync.Mutex
	budget  int
	used    int
	raw     int
	entries map[CacheKey]cacheEntry
	order   []CacheKey
	hits    int
	misses  int
}

// NewLevelCache creates a cache bounded to budget stored bytes.
func NewLevelCache(budget int) *LevelCache {
	if budget <= 0 {
		budget = DefaultCacheBudget
	}

	return &LevelCache{
		budget:  budget,
		entries: make(map[CacheKey]cacheEntry),
	}
}

// Get returns a fresh copy of the cached payload.
// A corrupt entry is dropped and reported with ErrCacheEntryCorrupt.
func (c *LevelCache) Get(key CacheKey) ([]byte, bool, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	c.mu.Unlock()

	if !ok {
		return nil, false, nil
	}
	if !e.lz4 {
		return bytes.Clone(e.data), true, nil
	}

	out, err := inflateChunks(e.data, e.raw)
	if err != nil {
		c.remove(key)
		return nil, false, fmt.Errorf("%w: %+v: %w", ErrCacheEntryCorrupt, key, err)
	}

	return out, true, nil
}

// Put stores a copy of data. Entries larger than the whole budget are skipped.
func (c *LevelCache) Put(key CacheKey, data []byte) error {
	e, err := deflateChunks(data)
	if err != nil {
		return err
	}
	if len(e.data) > c.budget {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.dropLocked(key)
	for c.used+len(e.data) > c.budget && len(c.order) > 0 {
		c.dropLocked(c.order[0])
	}
	c.entries[key] = e
	c.order = append(c.order, key)
	c.used += len(e.data)
	c.raw += e.raw

	return nil
}

// Stats returns current counters.
func (c *LevelCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return CacheStats{
		Entries: len(c.entries),
		Bytes:   c.used,
		Raw:     c.raw,
		Hits:    c.hits,
		Misses:  c.misses,
	}
}

func (c *LevelCache) remove(key CacheKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropLocked(key)
}

func (c *LevelCache) dropLocked(key CacheKey) {
	e, ok := c.entries[key]
	if !ok {
		return
	}
	delete(c.entries, key)
	c.used -= len(e.data)
	c.raw -= e.raw
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// deflateChunks compresses data into an LZ4 chunk stream or keeps a plain copy.
// Each chunk is a 3-byte little-endian size, a flag byte (0x80 on the last chunk,
// 0x01 when stored uncompressed) and an independent LZ4 block.
func deflateChunks(data []byte) (cacheEntry, error) {
	plain := cacheEntry{data: bytes.Clone(data), raw: len(data)}
	if len(data) < cacheMinCompressSize {
		return plain, nil
	}

	var stream bytes.Buffer
	buf := make([]byte, lz4.CompressBlockBound(cacheChunkSize))
	for i := 0; i < len(data); i += cacheChunkSize {
		end := min(i+cacheChunkSize, len(data))
		chunk := data[i:end]

		n, err := lz4.CompressBlock(chunk, buf, nil)
		if err != nil {
			return cacheEntry{}, fmt.Errorf("lz4 compress: %w", err)
		}
		flags, payload := byte(0), buf[:n]
		if n == 0 || n >= len(chunk) {
			flags, payload = chunkFlagRaw, chunk
		}
		if end == len(data) {
			flags |= chunkFlagLast
		}
		size := len(payload)
		stream.Write([]byte{byte(size), byte(size >> 8), byte(size >> 16), flags})
		stream.Write(payload)
	}

	if float64(stream.Len()) > float64(len(data))*cacheRatio {
		return plain, nil
	}

	return cacheEntry{lz4: true, data: stream.Bytes(), raw: len(data)}, nil
}

// inflateChunks expands a chunk stream written by deflateChunks.
func inflateChunks(stream []byte, size int) ([]byte, error) {
	out := make([]byte, size)
	outIdx := 0

	for {
		if len(stream) < 4 {
			return nil, fmt.Errorf("chunk header truncated: %d bytes left", len(stream))
		}
		n := int(stream[0]) | int(stream[1])<<8 | int(stream[2])<<16
		flags := stream[3]
		stream = stream[4:]
		if flags&^(chunkFlagLast|chunkFlagRaw) != 0 {
			return nil, fmt.Errorf("unknown chunk flags 0x%02x", flags)
		}
		if n <= 0 || n > len(stream) {
			return nil, fmt.Errorf("invalid chunk size %d, %d bytes left", n, len(stream))
		}

		want := min(cacheChunkSize, size-outIdx)
		if want <= 0 {
			return nil, fmt.Errorf("chunk stream overruns %d bytes", size)
		}
		if flags&chunkFlagRaw != 0 {
			if n != want {
				return nil, fmt.Errorf("raw chunk of %d bytes, want %d", n, want)
			}
			copy(out[outIdx:], stream[:n])
			outIdx += n
		} else {
			got, err := lz4.UncompressBlock(stream[:n], out[outIdx:outIdx+want])
			if err != nil {
				return nil, fmt.Errorf("lz4 decode: %w", err)
			}
			outIdx += got
		}
		stream = stream[n:]

		if flags&chunkFlagLast != 0 {
			break
		}
	}

	if outIdx != size {
		return nil, fmt.Errorf("decoded %d bytes, want %d", outIdx, size)
	}
	if len(stream) != 0 {
		return nil, fmt.Errorf("%d bytes left after last chunk", len(stream))
	}

	return out, nil
}
