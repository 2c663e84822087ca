package csr

// State is the architectural register bank. The unit keeps a current and a
// next copy; all per-tick computation reads current values and writes next
// values, and the two are exchanged atomically at the tick boundary.
type State struct {
	// Priv is the current privilege level.
	Priv Level

	// Status is the mstatus composite.
	Status Status

	// Exception and interrupt delegation masks.
	Medeleg uint64
	Mideleg uint64

	// Mie is the interrupt-enable bitmask.
	Mie uint64

	// MipSoft holds the software-writable pending bits (S software and S
	// timer). The remaining pending bits are assembled from the external
	// lines each tick and have no stored state.
	MipSoft uint64

	// Trap vectors.
	Mtvec TrapVector
	Stvec TrapVector

	// Scratch registers.
	Mscratch uint64
	Sscratch uint64

	// Per-level exception bookkeeping.
	Mepc   uint64
	Sepc   uint64
	Mcause uint64
	Scause uint64
	Mtval  uint64
	Stval  uint64

	// Satp is the address-translation root.
	Satp Satp

	// Fcsr is the floating-point control/status register.
	Fcsr Fcsr

	// Free-running cycle counter and retired-instruction counter.
	Cycle   uint64
	Instret uint64

	// WFI is the wait-for-interrupt stall flag.
	WFI bool

	// Cache enables, reflected on the output port.
	ICacheEnable bool
	DCacheEnable bool

	// LdStTranslate is the registered load/store translation enable. It
	// lags its combinational inputs by one cycle; every write that changes
	// those inputs also requests a flush, so the lag is never observable.
	LdStTranslate bool
}

// resetState returns the architecturally defined post-reset register bank:
// machine mode, trap vectors at the boot address, caches enabled, and all
// other state zero.
func resetState(cfg Config) State {
	return State{
		Priv:         LevelM,
		Mtvec:        TrapVector{Base: cfg.BootAddr &^ 0x3},
		Stvec:        TrapVector{Base: cfg.BootAddr &^ 0x3},
		ICacheEnable: true,
		DCacheEnable: true,
	}
}
