package csr

// interruptPriority is the candidate-evaluation order. Each source whose
// pending and enable bits are both set overwrites any earlier candidate, so
// the LAST matching entry wins: M-external effectively ranks above all
// others because it is evaluated last. This table is deliberately kept as
// an explicit ordered list; do not reorder it.
var interruptPriority = [...]uint64{
	IrqSTimer,
	IrqSSoft,
	IrqSExt,
	IrqMTimer,
	IrqMSoft,
	IrqMExt,
}

// PendingInterrupt arbitrates the six interrupt sources against the current
// state and returns the interrupt to take this tick, if any. The winning
// candidate is globally visible only below M-mode or when the global
// M-interrupt enable is set; a delegated candidate is additionally gated by
// the S-interrupt enable when running in S-mode.
func (u *Unit) PendingInterrupt(lines IrqLines) Exception {
	enabled := u.effectiveMIP(lines) & u.cur.Mie

	var candidate uint64
	found := false
	for _, code := range interruptPriority {
		if enabled&(uint64(1)<<code) != 0 {
			candidate = code
			found = true
		}
	}
	if !found {
		return Exception{}
	}

	if u.cur.Priv == LevelM && !u.cur.Status.MIE {
		return Exception{}
	}

	if u.cur.Mideleg&(uint64(1)<<candidate) != 0 {
		sTake := u.cur.Priv == LevelS && u.cur.Status.SIE
		if !sTake && u.cur.Priv != LevelU {
			return Exception{}
		}
	}

	return Exception{Valid: true, Cause: CauseInterrupt | candidate}
}
