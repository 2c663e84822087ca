package csr

// TrapVector is the unpacked mtvec/stvec composite: a base address plus the
// vectored-mode flag.
type TrapVector struct {
	// Base is the handler base address. The low 2 bits are always zero.
	Base uint64

	// Vectored selects vectored interrupt dispatch: the effective target of
	// an interrupt is Base + 4*cause.
	Vectored bool
}

// decodeTrapVector applies the write transform for mtvec/stvec. The low
// address bits are forced to the architectural alignment; vectored mode
// forces a 256-byte alignment so the cause index can be spliced into the
// low bits of the base.
func decodeTrapVector(v uint64) TrapVector {
	t := TrapVector{
		Base:     v &^ 0x3,
		Vectored: v&0x1 != 0,
	}
	if t.Vectored {
		t.Base = v &^ 0xFF
	}
	return t
}

// Encode serializes the vector back into the architectural layout.
func (t TrapVector) Encode() uint64 {
	v := t.Base
	if t.Vectored {
		v |= 0x1
	}
	return v
}

// satp mode encodings.
const (
	SatpBare = 0
	SatpSv39 = 8
)

// satp field layout.
const (
	satpPPNMask  = uint64(1)<<44 - 1
	satpASIDMask = uint64(0xFFFF)
)

// Satp is the unpacked address-translation root register.
type Satp struct {
	// Mode selects the paging scheme (SatpBare or SatpSv39).
	Mode uint8

	// ASID is the address-space identifier, truncated to the configured
	// width on write.
	ASID uint16

	// PPN is the physical page number of the root page table.
	PPN uint64
}

// decodeSatp applies the satp write transform. The ASID is masked to
// asidWidth bits. The mode field is WARL: encodings other than Bare and
// Sv39 leave the previous mode in place.
func decodeSatp(v uint64, asidWidth uint8, prevMode uint8) Satp {
	s := Satp{
		Mode: uint8(v >> 60),
		ASID: uint16(v>>44) & uint16(uint64(1)<<asidWidth-1),
		PPN:  v & satpPPNMask,
	}
	if s.Mode != SatpBare && s.Mode != SatpSv39 {
		s.Mode = prevMode
	}
	return s
}

// Encode serializes satp into the architectural layout.
func (s Satp) Encode() uint64 {
	return uint64(s.Mode)<<60 | uint64(s.ASID)<<44 | s.PPN&satpPPNMask
}

// Translating reports whether the register selects a paging mode.
func (s Satp) Translating() bool {
	return s.Mode != SatpBare
}

// Fcsr is the unpacked floating-point control/status register: a 3-bit
// rounding mode and 5 sticky exception flags. The upper bits are reserved
// and dropped on write.
type Fcsr struct {
	Frm    uint8
	Fflags uint8
}

// Encode serializes fcsr into the architectural layout.
func (f Fcsr) Encode() uint64 {
	return uint64(f.Frm&0x7)<<5 | uint64(f.Fflags&0x1F)
}

// decodeFcsr deserializes an architectural fcsr value.
func decodeFcsr(v uint64) Fcsr {
	return Fcsr{
		Frm:    uint8(v>>5) & 0x7,
		Fflags: uint8(v) & 0x1F,
	}
}
