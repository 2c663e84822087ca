// Package core provides the cycle-level core model that owns the CSR unit.
// It drives the unit once per tick, feeding it decoded operations, exception
// records, and interrupt lines, and consuming its redirect and control
// outputs.
package core

// RegFile represents the RISC-V integer register file: 32 general-purpose
// registers with x0 hardwired to zero.
type RegFile struct {
	// X holds registers x0-x31. X[0] always reads as 0.
	X [32]uint64
}

// Read reads a register value. Register 0 returns 0.
func (r *RegFile) Read(reg uint8) uint64 {
	if reg == 0 || reg >= 32 {
		return 0
	}
	return r.X[reg]
}

// Write writes a value to a register. Writes to x0 are ignored.
func (r *RegFile) Write(reg uint8, value uint64) {
	if reg == 0 || reg >= 32 {
		return
	}
	r.X[reg] = value
}
