// Package csr implements the privileged-architecture state unit: the CSR
// register bank, trap entry/return, interrupt arbitration, and the derived
// control signals consumed by the rest of the core.
package csr

// Level is a privilege level, using the architectural 2-bit encoding.
// The encoding is monotonic: a level satisfies a requirement exactly when
// (level AND required) == required.
type Level uint8

// Privilege levels, ordered U < S < M.
const (
	LevelU Level = 0
	LevelS Level = 1
	LevelM Level = 3
)

// String returns the conventional single-letter name of the level.
func (l Level) String() string {
	switch l {
	case LevelU:
		return "U"
	case LevelS:
		return "S"
	case LevelM:
		return "M"
	}
	return "?"
}

// CauseInterrupt is the discriminator bit in a cause value: set for
// interrupts, clear for synchronous exceptions.
const CauseInterrupt = uint64(1) << 63

// Synchronous exception cause codes.
const (
	ExcInstrAddrMisaligned = 0
	ExcInstrAccessFault    = 1
	ExcIllegalInstr        = 2
	ExcBreakpoint          = 3
	ExcLoadAddrMisaligned  = 4
	ExcLoadAccessFault     = 5
	ExcStoreAddrMisaligned = 6
	ExcStoreAccessFault    = 7
	ExcEnvCallU            = 8
	ExcEnvCallS            = 9
	ExcEnvCallM            = 11
	ExcInstrPageFault      = 12
	ExcLoadPageFault       = 13
	ExcStorePageFault      = 15
)

// Interrupt cause codes. Each doubles as the bit position of the
// corresponding pending/enable bit in mip/mie.
const (
	IrqSSoft  = 1
	IrqMSoft  = 3
	IrqSTimer = 5
	IrqMTimer = 7
	IrqSExt   = 9
	IrqMExt   = 11
)

// Pending/enable bit masks in mip/mie.
const (
	mipSSIP = uint64(1) << IrqSSoft
	mipMSIP = uint64(1) << IrqMSoft
	mipSTIP = uint64(1) << IrqSTimer
	mipMTIP = uint64(1) << IrqMTimer
	mipSEIP = uint64(1) << IrqSExt
	mipMEIP = uint64(1) << IrqMExt
)

// supportedIrqMask covers the six interrupts this unit implements. All
// other mip/mie bits are reserved and read as zero.
const supportedIrqMask = mipSSIP | mipMSIP | mipSTIP | mipMTIP | mipSEIP | mipMEIP

// midelegMask restricts interrupt delegation to the supervisor interrupts.
const midelegMask = mipSSIP | mipSTIP | mipSEIP

// medelegMask restricts exception delegation to the causes that can
// meaningfully be handled below M-mode.
const medelegMask = uint64(1)<<ExcInstrAddrMisaligned |
	uint64(1)<<ExcBreakpoint |
	uint64(1)<<ExcEnvCallU |
	uint64(1)<<ExcInstrPageFault |
	uint64(1)<<ExcLoadPageFault |
	uint64(1)<<ExcStorePageFault

// CSR addresses.
const (
	AddrFFlags = 0x001
	AddrFRM    = 0x002
	AddrFCSR   = 0x003

	AddrSStatus    = 0x100
	AddrSIE        = 0x104
	AddrSTVec      = 0x105
	AddrSCounterEn = 0x106
	AddrSScratch   = 0x140
	AddrSEPC       = 0x141
	AddrSCause     = 0x142
	AddrSTVal      = 0x143
	AddrSIP        = 0x144
	AddrSATP       = 0x180

	AddrMStatus    = 0x300
	AddrMISA       = 0x301
	AddrMEDeleg    = 0x302
	AddrMIDeleg    = 0x303
	AddrMIE        = 0x304
	AddrMTVec      = 0x305
	AddrMCounterEn = 0x306
	AddrMScratch   = 0x340
	AddrMEPC       = 0x341
	AddrMCause     = 0x342
	AddrMTVal      = 0x343
	AddrMIP        = 0x344

	AddrMCycle   = 0xB00
	AddrMInstret = 0xB02

	AddrCycle   = 0xC00
	AddrTime    = 0xC01
	AddrInstret = 0xC02

	AddrMVendorID = 0xF11
	AddrMArchID   = 0xF12
	AddrMImpID    = 0xF13
	AddrMHartID   = 0xF14

	// Custom M-mode cache control.
	AddrICache = 0x7C0
	AddrDCache = 0x7C1
)

// Performance-counter address ranges forwarded to the external counter bank.
const (
	addrMHPMCounterFirst = 0xB03
	addrMHPMCounterLast  = 0xB1F
	addrMHPMEventFirst   = 0x323
	addrMHPMEventLast    = 0x33F
)

// requiredPrivilege returns the minimum privilege level needed to access a
// CSR address. Bits [9:8] of the address carry the architectural encoding.
func requiredPrivilege(addr uint16) Level {
	return Level((addr >> 8) & 0x3)
}

// readOnlyAddr reports whether a CSR address is architecturally read-only.
// Bits [11:10] == 11 mark the read-only quadrant.
func readOnlyAddr(addr uint16) bool {
	return (addr>>10)&0x3 == 0x3
}

// IsPerfAddr reports whether a CSR address belongs to the external
// performance-counter bank.
func IsPerfAddr(addr uint16) bool {
	return (addr >= addrMHPMCounterFirst && addr <= addrMHPMCounterLast) ||
		(addr >= addrMHPMEventFirst && addr <= addrMHPMEventLast)
}

// misaValue encodes RV64 (MXL=2) with the I, M, A, F, D, S, and U extension
// bits set.
const misaValue = uint64(2)<<62 |
	1<<0 | // A
	1<<3 | // D
	1<<5 | // F
	1<<8 | // I
	1<<12 | // M
	1<<18 | // S
	1<<20 // U
