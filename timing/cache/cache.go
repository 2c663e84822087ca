// Package cache provides the L1 instruction-cache model on top of Akita
// cache components. The cache sits on the core's fetch path and is gated by
// the cache-enable control signal owned by the CSR unit: while disabled,
// every access bypasses the cache entirely and pays the miss latency.
package cache

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// Config holds cache configuration parameters.
type Config struct {
	// Size in bytes.
	Size int
	// Associativity (number of ways).
	Associativity int
	// BlockSize in bytes (cache line size).
	BlockSize int
	// HitLatency in cycles.
	HitLatency uint64
	// MissLatency in cycles, also paid by bypass accesses.
	MissLatency uint64
}

// DefaultL1IConfig returns the default L1 instruction cache configuration:
// 32KB, 8-way, 64B lines.
func DefaultL1IConfig() Config {
	return Config{
		Size:          32 * 1024,
		Associativity: 8,
		BlockSize:     64,
		HitLatency:    1,
		MissLatency:   10,
	}
}

// AccessResult contains the result of a fetch access.
type AccessResult struct {
	// Hit indicates whether the access was a cache hit. Bypass accesses
	// always report a miss.
	Hit bool
	// Latency is the number of cycles this access takes.
	Latency uint64
	// Data is the fetched value.
	Data uint64
	// Evicted is true if a block was displaced to make room.
	Evicted bool
	// EvictedAddr is the address of the displaced block.
	EvictedAddr uint64
}

// Statistics holds cache performance statistics.
type Statistics struct {
	Fetches   uint64
	Hits      uint64
	Misses    uint64
	Bypasses  uint64
	Evictions uint64
}

// BackingStore is the next level in the memory hierarchy.
type BackingStore interface {
	// Read fetches data from the backing store.
	Read(addr uint64, size int) []byte
}

// Cache is a read-only L1 cache built on Akita's directory components.
// Fetched blocks are never dirty, so displacement requires no writeback.
type Cache struct {
	config Config

	// Akita cache directory for tag/state management.
	directory *akitacache.DirectoryImpl

	// Data storage, indexed by setID*associativity + wayID.
	dataStore [][]byte

	// Enabled gates the whole cache; it tracks the CSR unit's
	// cache-enable output.
	enabled bool

	stats   Statistics
	backing BackingStore
}

// New creates a cache with the given configuration. The cache starts
// enabled, matching the reset value of the CSR cache-enable bit.
func New(config Config, backing BackingStore) *Cache {
	numSets := config.Size / (config.Associativity * config.BlockSize)
	totalBlocks := numSets * config.Associativity

	dataStore := make([][]byte, totalBlocks)
	for i := range dataStore {
		dataStore[i] = make([]byte, config.BlockSize)
	}

	return &Cache{
		config: config,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		dataStore: dataStore,
		enabled:   true,
		backing:   backing,
	}
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Stats returns cache statistics.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// SetEnabled tracks the CSR unit's cache-enable output. Disabling the cache
// also drops its contents, since the backing store may change underneath it
// while bypassed.
func (c *Cache) SetEnabled(enabled bool) {
	if c.enabled && !enabled {
		c.invalidateAll()
	}
	c.enabled = enabled
}

// Enabled reports whether the cache is currently enabled.
func (c *Cache) Enabled() bool {
	return c.enabled
}

// blockIndex computes the index into dataStore for a block.
func (c *Cache) blockIndex(block *akitacache.Block) int {
	return block.SetID*c.config.Associativity + block.WayID
}

// Fetch reads a value of the given size through the cache.
func (c *Cache) Fetch(addr uint64, size int) AccessResult {
	c.stats.Fetches++

	if !c.enabled {
		c.stats.Bypasses++
		return AccessResult{
			Latency: c.config.MissLatency,
			Data:    c.bypassRead(addr, size),
		}
	}

	blockAddr := addr / uint64(c.config.BlockSize) * uint64(c.config.BlockSize)
	block := c.directory.Lookup(0, blockAddr)

	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block)

		offset := addr % uint64(c.config.BlockSize)
		return AccessResult{
			Hit:     true,
			Latency: c.config.HitLatency,
			Data:    extractData(c.dataStore[c.blockIndex(block)], offset, size),
		}
	}

	c.stats.Misses++
	return c.handleMiss(addr, blockAddr, size)
}

// handleMiss fills a block from the backing store.
func (c *Cache) handleMiss(addr, blockAddr uint64, size int) AccessResult {
	result := AccessResult{Latency: c.config.MissLatency}

	victim := c.directory.FindVictim(blockAddr)
	if victim == nil {
		result.Data = c.bypassRead(addr, size)
		return result
	}

	if victim.IsValid {
		c.stats.Evictions++
		result.Evicted = true
		result.EvictedAddr = victim.Tag
	}

	victimData := c.dataStore[c.blockIndex(victim)]
	if c.backing != nil {
		copy(victimData, c.backing.Read(blockAddr, c.config.BlockSize))
	} else {
		for i := range victimData {
			victimData[i] = 0
		}
	}

	victim.Tag = blockAddr
	victim.IsValid = true
	victim.IsDirty = false
	c.directory.Visit(victim)

	offset := addr % uint64(c.config.BlockSize)
	result.Data = extractData(victimData, offset, size)
	return result
}

// bypassRead reads directly from the backing store.
func (c *Cache) bypassRead(addr uint64, size int) uint64 {
	if c.backing == nil {
		return 0
	}
	return extractData(c.backing.Read(addr, size), 0, size)
}

// Invalidate drops the cache line holding addr, if present.
func (c *Cache) Invalidate(addr uint64) {
	blockAddr := addr / uint64(c.config.BlockSize) * uint64(c.config.BlockSize)
	block := c.directory.Lookup(0, blockAddr)
	if block != nil && block.IsValid {
		block.IsValid = false
	}
}

func (c *Cache) invalidateAll() {
	for _, set := range c.directory.GetSets() {
		for _, block := range set.Blocks {
			block.IsValid = false
			block.IsDirty = false
		}
	}
}

// Reset invalidates all cache lines and clears statistics.
func (c *Cache) Reset() {
	c.directory.Reset()
	c.stats = Statistics{}
	c.enabled = true
}

// extractData extracts a little-endian value of the given size from a byte
// slice.
func extractData(data []byte, offset uint64, size int) uint64 {
	if data == nil || int(offset)+size > len(data) {
		return 0
	}

	var result uint64
	for i := 0; i < size; i++ {
		result |= uint64(data[int(offset)+i]) << (i * 8)
	}
	return result
}
