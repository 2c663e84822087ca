package cache

import (
	"github.com/sarchlab/rvsim/mem"
)

// MemoryBacking wraps mem.Memory as a BackingStore.
type MemoryBacking struct {
	memory *mem.Memory
}

// NewMemoryBacking creates a new MemoryBacking adapter.
func NewMemoryBacking(memory *mem.Memory) *MemoryBacking {
	return &MemoryBacking{memory: memory}
}

// Read fetches data from the backing memory.
func (m *MemoryBacking) Read(addr uint64, size int) []byte {
	data := make([]byte, size)
	m.memory.ReadBytes(addr, data)
	return data
}
