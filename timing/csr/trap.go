package csr

// trapEnter applies the trap-entry transition for this tick's exception
// record and returns the destination privilege. The destination defaults to
// M; a delegable cause taken below M-mode lands in S instead. Privilege
// never decreases as part of a trap.
func (u *Unit) trapEnter(next *State, in Inputs) Level {
	exc := in.Exception

	dest := LevelM
	if u.cur.Priv != LevelM {
		deleg := u.cur.Medeleg
		if exc.Interrupt() {
			deleg = u.cur.Mideleg
		}
		if deleg&(uint64(1)<<exc.Code()) != 0 {
			dest = LevelS
		}
	}

	if dest == LevelS {
		next.Status.SPIE = u.cur.Status.SIE
		next.Status.SIE = false
		next.Status.SPP = u.cur.Priv
		next.Scause = exc.Cause
		next.Sepc = in.PC
		next.Stval = exc.Tval
	} else {
		next.Status.MPIE = u.cur.Status.MIE
		next.Status.MIE = false
		next.Status.MPP = u.cur.Priv
		next.Mcause = exc.Cause
		next.Mepc = in.PC
		next.Mtval = exc.Tval
	}

	next.Priv = dest
	return dest
}

// trapReturnM applies the return-from-M transition.
func (u *Unit) trapReturnM(next *State) {
	next.Status.MIE = u.cur.Status.MPIE
	next.Priv = u.cur.Status.MPP
	next.Status.MPP = LevelU
	next.Status.MPIE = true
}

// trapReturnS applies the return-from-S transition. SPP can only encode S
// or U, so the resulting privilege is one of those two.
func (u *Unit) trapReturnS(next *State) {
	next.Status.SIE = u.cur.Status.SPIE
	next.Priv = u.cur.Status.SPP
	next.Status.SPP = LevelU
	next.Status.SPIE = true
}
