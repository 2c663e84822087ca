package csr

// writeCSR applies a transformed write value to the register bank. Each
// writable register applies its own mask or transform; writes to unmapped or
// read-only addresses return false with the bank unmodified. Writes that
// invalidate front-end assumptions (fcsr, status, satp, cache enables)
// additionally request a flush. Debug-port writes bypass the satp
// interception and never flush.
func (u *Unit) writeCSR(
	next *State,
	addr uint16,
	v uint64,
	debug bool,
	in Inputs,
	out *Outputs,
) bool {
	if readOnlyAddr(addr) {
		return false
	}

	if IsPerfAddr(addr) {
		out.Perf = PerfPort{Valid: true, Addr: addr, WData: v, WriteEnable: true}
		return true
	}

	flush := false

	switch addr {
	case AddrFFlags:
		next.Fcsr.Fflags = uint8(v) & 0x1F
		flush = true
	case AddrFRM:
		next.Fcsr.Frm = uint8(v) & 0x7
		flush = true
	case AddrFCSR:
		next.Fcsr = decodeFcsr(v)
		flush = true

	case AddrSStatus:
		merged := u.cur.Status.Pack()&^sstatusMask | v&sstatusMask
		next.Status = UnpackStatus(merged)
		flush = true
	case AddrSIE:
		next.Mie = u.cur.Mie&^u.cur.Mideleg | v&u.cur.Mideleg&supportedIrqMask
	case AddrSTVec:
		next.Stvec = decodeTrapVector(v)
	case AddrSCounterEn:
		// Hardwired zero.
	case AddrSScratch:
		next.Sscratch = v
	case AddrSEPC:
		next.Sepc = v &^ 0x1
	case AddrSCause:
		next.Scause = v
	case AddrSTVal:
		next.Stval = v
	case AddrSIP:
		mask := mipSSIP & u.cur.Mideleg
		next.MipSoft = u.cur.MipSoft&^mask | v&mask
	case AddrSATP:
		if !debug && u.cur.Priv == LevelS && u.cur.Status.TVM {
			return false
		}
		next.Satp = decodeSatp(v, u.cfg.ASIDWidth, u.cur.Satp.Mode)
		flush = true

	case AddrMStatus:
		next.Status = UnpackStatus(v)
		flush = true
	case AddrMISA:
		// WARL: the ISA set is fixed.
	case AddrMEDeleg:
		next.Medeleg = v & medelegMask
	case AddrMIDeleg:
		next.Mideleg = v & midelegMask
	case AddrMIE:
		next.Mie = v & supportedIrqMask
	case AddrMTVec:
		next.Mtvec = decodeTrapVector(v)
	case AddrMCounterEn:
		// Hardwired zero.
	case AddrMScratch:
		next.Mscratch = v
	case AddrMEPC:
		next.Mepc = v &^ 0x1
	case AddrMCause:
		next.Mcause = v
	case AddrMTVal:
		next.Mtval = v
	case AddrMIP:
		mask := mipSSIP | mipSTIP
		next.MipSoft = u.cur.MipSoft&^mask | v&mask

	case AddrMCycle:
		next.Cycle = v
	case AddrMInstret:
		next.Instret = v

	case AddrICache:
		next.ICacheEnable = v&0x1 != 0
		flush = true
	case AddrDCache:
		next.DCacheEnable = v&0x1 != 0
		flush = true

	default:
		return false
	}

	if flush && !debug {
		out.Flush = true
	}
	return true
}
