package csr

// mstatus bit positions. The FS/XS extension-state fields and the user-mode
// enable bits exist in the layout but are hardwired to zero in this
// implementation.
const (
	statusSIE  = uint64(1) << 1
	statusMIE  = uint64(1) << 3
	statusSPIE = uint64(1) << 5
	statusMPIE = uint64(1) << 7
	statusSPP  = uint64(1) << 8
	statusMPP  = uint64(3) << 11
	statusFS   = uint64(3) << 13
	statusXS   = uint64(3) << 15
	statusMPRV = uint64(1) << 17
	statusSUM  = uint64(1) << 18
	statusMXR  = uint64(1) << 19
	statusTVM  = uint64(1) << 20
	statusTW   = uint64(1) << 21
	statusTSR  = uint64(1) << 22
	statusUXL  = uint64(3) << 32
	statusSXL  = uint64(3) << 34
	statusSD   = uint64(1) << 63
)

// xlen64 is the XLEN-selector encoding for 64-bit, hardwired into the UXL
// and SXL fields.
const xlen64 = uint64(2)

// sstatusMask selects the supervisor-visible subset of mstatus.
const sstatusMask = statusSIE | statusSPIE | statusSPP |
	statusFS | statusXS | statusSUM | statusMXR | statusUXL | statusSD

// Status is the unpacked mstatus composite. Internal logic operates on the
// named fields; the architectural bit layout appears only in Pack/UnpackStatus.
type Status struct {
	// Per-mode interrupt enables and their previous values.
	SIE  bool
	MIE  bool
	SPIE bool
	MPIE bool

	// Previous privilege levels. SPP can only record S or U.
	SPP Level
	MPP Level

	// MPRV modifies the effective privilege of loads and stores.
	MPRV bool

	// SUM permits S-mode access to user pages; MXR makes executable pages
	// readable.
	SUM bool
	MXR bool

	// Trap-virtual-memory, timeout-wait, and trap-SRET controls.
	TVM bool
	TW  bool
	TSR bool
}

// Pack serializes the status fields into the architectural bit layout.
// UXL and SXL always read as the 64-bit encoding.
func (s Status) Pack() uint64 {
	v := xlen64<<32 | xlen64<<34
	if s.SIE {
		v |= statusSIE
	}
	if s.MIE {
		v |= statusMIE
	}
	if s.SPIE {
		v |= statusSPIE
	}
	if s.MPIE {
		v |= statusMPIE
	}
	if s.SPP == LevelS {
		v |= statusSPP
	}
	v |= uint64(s.MPP) << 11
	if s.MPRV {
		v |= statusMPRV
	}
	if s.SUM {
		v |= statusSUM
	}
	if s.MXR {
		v |= statusMXR
	}
	if s.TVM {
		v |= statusTVM
	}
	if s.TW {
		v |= statusTW
	}
	if s.TSR {
		v |= statusTSR
	}
	return v
}

// UnpackStatus deserializes an architectural mstatus value. Hardwired-zero
// fields (FS, XS, SD, user-mode enables) and the XLEN selectors are dropped
// regardless of what was written. An MPP value outside {U, S, M} is clamped
// to U.
func UnpackStatus(v uint64) Status {
	s := Status{
		SIE:  v&statusSIE != 0,
		MIE:  v&statusMIE != 0,
		SPIE: v&statusSPIE != 0,
		MPIE: v&statusMPIE != 0,
		MPRV: v&statusMPRV != 0,
		SUM:  v&statusSUM != 0,
		MXR:  v&statusMXR != 0,
		TVM:  v&statusTVM != 0,
		TW:   v&statusTW != 0,
		TSR:  v&statusTSR != 0,
	}
	if v&statusSPP != 0 {
		s.SPP = LevelS
	}
	switch Level((v >> 11) & 0x3) {
	case LevelU, LevelS, LevelM:
		s.MPP = Level((v >> 11) & 0x3)
	default:
		s.MPP = LevelU
	}
	return s
}
