// Package mem provides the sparse physical memory model shared by the
// functional and timing layers.
package mem

import "encoding/binary"

// PageSize is the granularity of memory allocation, in bytes.
const PageSize = 4096

// Memory is a sparse, page-granular physical memory. Pages are allocated
// lazily on first write; reads from unbacked pages return zero.
type Memory struct {
	pages map[uint64]*[PageSize]byte
}

// NewMemory creates an empty memory.
func NewMemory() *Memory {
	return &Memory{
		pages: make(map[uint64]*[PageSize]byte),
	}
}

func (m *Memory) page(addr uint64, alloc bool) (*[PageSize]byte, uint64) {
	pageNum := addr / PageSize
	p, ok := m.pages[pageNum]
	if !ok {
		if !alloc {
			return nil, addr % PageSize
		}
		p = &[PageSize]byte{}
		m.pages[pageNum] = p
	}
	return p, addr % PageSize
}

// Read8 reads one byte.
func (m *Memory) Read8(addr uint64) uint8 {
	p, off := m.page(addr, false)
	if p == nil {
		return 0
	}
	return p[off]
}

// Write8 writes one byte.
func (m *Memory) Write8(addr uint64, value uint8) {
	p, off := m.page(addr, true)
	p[off] = value
}

// Read16 reads a 16-bit little-endian value.
func (m *Memory) Read16(addr uint64) uint16 {
	var buf [2]byte
	m.ReadBytes(addr, buf[:])
	return binary.LittleEndian.Uint16(buf[:])
}

// Write16 writes a 16-bit little-endian value.
func (m *Memory) Write16(addr uint64, value uint16) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], value)
	m.WriteBytes(addr, buf[:])
}

// Read32 reads a 32-bit little-endian value.
func (m *Memory) Read32(addr uint64) uint32 {
	var buf [4]byte
	m.ReadBytes(addr, buf[:])
	return binary.LittleEndian.Uint32(buf[:])
}

// Write32 writes a 32-bit little-endian value.
func (m *Memory) Write32(addr uint64, value uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], value)
	m.WriteBytes(addr, buf[:])
}

// Read64 reads a 64-bit little-endian value.
func (m *Memory) Read64(addr uint64) uint64 {
	var buf [8]byte
	m.ReadBytes(addr, buf[:])
	return binary.LittleEndian.Uint64(buf[:])
}

// Write64 writes a 64-bit little-endian value.
func (m *Memory) Write64(addr uint64, value uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], value)
	m.WriteBytes(addr, buf[:])
}

// ReadBytes fills buf with memory contents starting at addr. The read may
// cross page boundaries.
func (m *Memory) ReadBytes(addr uint64, buf []byte) {
	for i := range buf {
		buf[i] = m.Read8(addr + uint64(i))
	}
}

// WriteBytes copies buf into memory starting at addr. The write may cross
// page boundaries.
func (m *Memory) WriteBytes(addr uint64, buf []byte) {
	for i := range buf {
		m.Write8(addr+uint64(i), buf[i])
	}
}

// LoadProgram copies a program image into memory at the given base address.
func (m *Memory) LoadProgram(base uint64, program []byte) {
	m.WriteBytes(base, program)
}
