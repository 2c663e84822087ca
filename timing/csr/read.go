package csr

// readCSR decodes a CSR address and returns the read value. The boolean is
// false for unmapped addresses, insufficient privilege, or a mode-specific
// interception (satp under S+TVM); all three yield zero data. Debug-port
// reads bypass the privilege and interception checks.
func (u *Unit) readCSR(addr uint16, debug bool, in Inputs, mip uint64) (uint64, bool) {
	if !debug {
		req := requiredPrivilege(addr)
		if u.cur.Priv&req != req {
			return 0, false
		}
	}

	if IsPerfAddr(addr) {
		return in.PerfRData, true
	}

	switch addr {
	case AddrFFlags:
		return uint64(u.cur.Fcsr.Fflags), true
	case AddrFRM:
		return uint64(u.cur.Fcsr.Frm), true
	case AddrFCSR:
		return u.cur.Fcsr.Encode(), true

	case AddrSStatus:
		return u.cur.Status.Pack() & sstatusMask, true
	case AddrSIE:
		return u.cur.Mie & u.cur.Mideleg, true
	case AddrSTVec:
		return u.cur.Stvec.Encode(), true
	case AddrSCounterEn:
		return 0, true
	case AddrSScratch:
		return u.cur.Sscratch, true
	case AddrSEPC:
		return u.cur.Sepc, true
	case AddrSCause:
		return u.cur.Scause, true
	case AddrSTVal:
		return u.cur.Stval, true
	case AddrSIP:
		return mip & u.cur.Mideleg, true
	case AddrSATP:
		if !debug && u.cur.Priv == LevelS && u.cur.Status.TVM {
			return 0, false
		}
		return u.cur.Satp.Encode(), true

	case AddrMStatus:
		return u.cur.Status.Pack(), true
	case AddrMISA:
		return misaValue, true
	case AddrMEDeleg:
		return u.cur.Medeleg, true
	case AddrMIDeleg:
		return u.cur.Mideleg, true
	case AddrMIE:
		return u.cur.Mie, true
	case AddrMTVec:
		return u.cur.Mtvec.Encode(), true
	case AddrMCounterEn:
		return 0, true
	case AddrMScratch:
		return u.cur.Mscratch, true
	case AddrMEPC:
		return u.cur.Mepc, true
	case AddrMCause:
		return u.cur.Mcause, true
	case AddrMTVal:
		return u.cur.Mtval, true
	case AddrMIP:
		return mip, true

	case AddrMCycle, AddrCycle:
		return u.cur.Cycle, true
	case AddrMInstret, AddrInstret:
		return u.cur.Instret, true
	case AddrTime:
		return in.Time, true

	case AddrMVendorID, AddrMArchID, AddrMImpID:
		return 0, true
	case AddrMHartID:
		return u.cfg.HartID(), true

	case AddrICache:
		return bool2u64(u.cur.ICacheEnable), true
	case AddrDCache:
		return bool2u64(u.cur.DCacheEnable), true
	}

	return 0, false
}

func bool2u64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
