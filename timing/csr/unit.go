package csr

// Op classifies the CSR operation presented by the decoder this tick.
type Op uint8

// CSR operations.
const (
	// OpNone presents no operation this tick.
	OpNone Op = iota
	// OpRead reads a CSR without writing it.
	OpRead
	// OpWrite replaces the CSR with the operand.
	OpWrite
	// OpSet ORs the operand into the CSR.
	OpSet
	// OpClear clears the operand bits from the CSR.
	OpClear
	// OpMRet returns from a machine-mode trap.
	OpMRet
	// OpSRet returns from a supervisor-mode trap.
	OpSRet
	// OpWFI sets the wait-for-interrupt flag.
	OpWFI
)

// Request is the architectural CSR request for one tick.
type Request struct {
	Op      Op
	Addr    uint16
	Operand uint64
}

// DebugRequest is the debug-port side channel. When Valid, it overrides the
// architectural request entirely and bypasses all privilege checks.
type DebugRequest struct {
	Valid bool
	Write bool
	Addr  uint16
	Data  uint64
}

// Exception is a trap record: an incoming one on the input side, or the
// unit's own access fault on the output side. The top bit of Cause
// discriminates interrupts from synchronous exceptions.
type Exception struct {
	Valid bool
	Cause uint64
	Tval  uint64
}

// Interrupt reports whether the record describes an interrupt.
func (e Exception) Interrupt() bool {
	return e.Cause&CauseInterrupt != 0
}

// Code returns the cause code without the discriminator bit.
func (e Exception) Code() uint64 {
	return e.Cause &^ CauseInterrupt
}

// IrqLines carries the external interrupt wires sampled this tick.
type IrqLines struct {
	// Ext are the two external interrupt lines: Ext[0] raises M-external,
	// Ext[1] raises S-external.
	Ext [2]bool

	// IPI is the inter-processor interrupt line (M-software).
	IPI bool

	// Timer is the platform timer-interrupt line (M-timer).
	Timer bool
}

// Inputs is everything the unit consumes in one tick.
type Inputs struct {
	// Req is the decoded CSR operation.
	Req Request

	// PC is the current instruction PC, captured into the exception PC on
	// trap entry.
	PC uint64

	// Exception is the trap record presented by the commit stage. When
	// valid, trap entry dominates every other transition this tick.
	Exception Exception

	// CommitAck holds the per-lane commit-acknowledge flags; each set flag
	// retires one instruction.
	CommitAck []bool

	// Lines are the external interrupt wires.
	Lines IrqLines

	// Time is the platform time value, visible through the time CSR.
	Time uint64

	// PerfRData is the read data returned by the external counter bank for
	// a performance-counter address presented last on the perf port.
	PerfRData uint64

	// Debug is the debug-port request.
	Debug DebugRequest
}

// PerfPort is the address/data/write-enable triple multiplexed to the
// external performance-counter bank.
type PerfPort struct {
	Valid       bool
	Addr        uint16
	WData       uint64
	WriteEnable bool
}

// Outputs is everything the unit produces in one tick.
type Outputs struct {
	// RData is the CSR read data (zero on an access fault).
	RData uint64

	// Exception reports an illegal CSR access. The faulting value is left
	// for the caller to fill in.
	Exception Exception

	// Flush requests a pipeline flush after a write whose side effects
	// invalidate front-end assumptions.
	Flush bool

	// Halt mirrors the wait-for-interrupt flag.
	Halt bool

	// Eret is asserted on a trap return. Never asserted together with a
	// valid trap entry.
	Eret bool

	// EPC is the return PC: mepc, or sepc while a return-from-S is in
	// progress.
	EPC uint64

	// TrapVector is the redirect target for this tick's trap entry,
	// selected by the computed destination privilege.
	TrapVector uint64

	// Priv is the current privilege level.
	Priv Level

	// Floating-point rounding mode and sticky exception flags.
	Frm    uint8
	Fflags uint8

	// Instruction-fetch translation enable.
	ITranslate bool

	// Load/store translation enable, registered one cycle behind its
	// combinational inputs.
	LdStTranslate bool

	// LdStPriv is the effective privilege of loads and stores.
	LdStPriv Level

	// SUM and MXR for the memory-management collaborator.
	SUM bool
	MXR bool

	// Address-space id and root page number for the page-table walker.
	ASID uint16
	PPN  uint64

	// Cache enables.
	ICacheEnable bool
	DCacheEnable bool

	// Perf is the external counter-bank port.
	Perf PerfPort
}

// Unit is the privileged-architecture state machine. It owns the
// architectural register bank and performs one deterministic computation
// per tick: Compute derives this tick's outputs and the next register bank
// from the current one, and Commit exchanges them atomically.
type Unit struct {
	cfg Config

	cur     State
	next    State
	hasNext bool
}

// NewUnit creates a unit in the architectural reset state.
func NewUnit(cfg Config) *Unit {
	u := &Unit{cfg: cfg}
	u.Reset()
	return u
}

// Reset restores the architecturally defined initial values.
func (u *Unit) Reset() {
	u.cur = resetState(u.cfg)
	u.hasNext = false
}

// State returns a copy of the current register bank.
func (u *Unit) State() State {
	return u.cur
}

// Config returns the platform configuration.
func (u *Unit) Config() Config {
	return u.cfg
}

// Tick performs one full cycle: compute, then commit.
func (u *Unit) Tick(in Inputs) Outputs {
	out := u.Compute(in)
	u.Commit()
	return out
}

// Compute derives this tick's outputs and stages the next register bank
// without modifying the current one.
func (u *Unit) Compute(in Inputs) Outputs {
	next := u.cur
	var out Outputs

	// Free-running counters.
	next.Cycle++
	for _, ack := range in.CommitAck {
		if ack {
			next.Instret++
		}
	}

	mip := u.effectiveMIP(in.Lines)

	u.dispatch(in, mip, &next, &out)

	// Wake on pending, regardless of enable bits.
	if mip != 0 {
		next.WFI = false
	}
	out.Halt = u.cur.WFI && mip == 0

	// Trap entry is the authoritative redirect: it suppresses the flush
	// from a concurrent CSR write and any return in flight.
	dest := LevelM
	if in.Exception.Valid {
		out.Flush = false
		out.Eret = false
		dest = u.trapEnter(&next, in)
	}

	u.deriveOutputs(in, &next, &out, dest)

	u.next = next
	u.hasNext = true
	return out
}

// Commit atomically adopts the register bank staged by Compute. No partial
// update is ever observable.
func (u *Unit) Commit() {
	if u.hasNext {
		u.cur = u.next
		u.hasNext = false
	}
}

// dispatch is the single point that selects between the debug-port request
// and the architectural request before any read or update logic runs.
func (u *Unit) dispatch(in Inputs, mip uint64, next *State, out *Outputs) {
	if in.Debug.Valid {
		if in.Debug.Write {
			u.writeCSR(next, in.Debug.Addr, in.Debug.Data, true, in, out)
		} else {
			v, _ := u.readCSR(in.Debug.Addr, true, in, mip)
			out.RData = v
			u.forwardPerfRead(in.Debug.Addr, out)
		}
		return
	}

	switch in.Req.Op {
	case OpNone:

	case OpMRet:
		if !in.Exception.Valid {
			u.trapReturnM(next)
			out.Eret = true
		}

	case OpSRet:
		if !in.Exception.Valid {
			u.trapReturnS(next)
			out.Eret = true
		}

	case OpWFI:
		if !in.Exception.Valid {
			next.WFI = true
		}

	case OpRead:
		v, ok := u.readCSR(in.Req.Addr, false, in, mip)
		if !ok {
			u.accessFault(out)
			return
		}
		out.RData = v
		u.forwardPerfRead(in.Req.Addr, out)

	case OpWrite, OpSet, OpClear:
		v, ok := u.readCSR(in.Req.Addr, false, in, mip)
		if !ok {
			u.accessFault(out)
			return
		}
		out.RData = v
		u.forwardPerfRead(in.Req.Addr, out)

		wdata := in.Req.Operand
		switch in.Req.Op {
		case OpSet:
			wdata = v | in.Req.Operand
		case OpClear:
			wdata = v &^ in.Req.Operand
		}

		if !u.writeCSR(next, in.Req.Addr, wdata, false, in, out) {
			u.accessFault(out)
		}
	}
}

// accessFault reports an illegal CSR access. The cause is fixed; the
// faulting value is filled in by the caller.
func (u *Unit) accessFault(out *Outputs) {
	out.RData = 0
	out.Exception = Exception{Valid: true, Cause: ExcIllegalInstr}
}

// forwardPerfRead reflects a performance-counter read on the perf port.
func (u *Unit) forwardPerfRead(addr uint16, out *Outputs) {
	if IsPerfAddr(addr) {
		out.Perf = PerfPort{Valid: true, Addr: addr}
	}
}

// effectiveMIP assembles the six live interrupt-pending bits from the
// stored software bits and this tick's external lines.
func (u *Unit) effectiveMIP(lines IrqLines) uint64 {
	mip := u.cur.MipSoft
	if lines.Ext[0] {
		mip |= mipMEIP
	}
	if lines.Ext[1] {
		mip |= mipSEIP
	}
	if lines.IPI {
		mip |= mipMSIP
	}
	if lines.Timer {
		mip |= mipMTIP
	}
	return mip & supportedIrqMask
}

// deriveOutputs computes the control signals for the rest of the pipeline.
func (u *Unit) deriveOutputs(in Inputs, next *State, out *Outputs, dest Level) {
	vec := u.cur.Mtvec
	if dest == LevelS {
		vec = u.cur.Stvec
	}
	out.TrapVector = vec.Base &^ 0x3
	if vec.Vectored && in.Exception.Valid && in.Exception.Interrupt() {
		out.TrapVector |= in.Exception.Code() * 4
	}

	out.EPC = u.cur.Mepc
	if !in.Debug.Valid && in.Req.Op == OpSRet {
		out.EPC = u.cur.Sepc
	}

	out.Priv = u.cur.Priv
	out.Frm = u.cur.Fcsr.Frm
	out.Fflags = u.cur.Fcsr.Fflags

	out.ITranslate = u.cur.Satp.Translating() && u.cur.Priv != LevelM

	// The load/store enable is stored state, one cycle behind. Every write
	// that changes its inputs also requests a flush, so the lag is never
	// observably stale.
	out.LdStTranslate = u.cur.LdStTranslate
	ldStPriv := next.Priv
	if next.Status.MPRV {
		ldStPriv = next.Status.MPP
	}
	next.LdStTranslate = next.Satp.Translating() && ldStPriv != LevelM

	out.LdStPriv = u.cur.Priv
	if u.cur.Status.MPRV {
		out.LdStPriv = u.cur.Status.MPP
	}

	out.SUM = u.cur.Status.SUM
	out.MXR = u.cur.Status.MXR
	out.ASID = u.cur.Satp.ASID
	out.PPN = u.cur.Satp.PPN
	out.ICacheEnable = u.cur.ICacheEnable
	out.DCacheEnable = u.cur.DCacheEnable
}
