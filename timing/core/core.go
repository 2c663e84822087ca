package core

import (
	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/mem"
	"github.com/sarchlab/rvsim/timing/cache"
	"github.com/sarchlab/rvsim/timing/counters"
	"github.com/sarchlab/rvsim/timing/csr"
)

// Stats holds performance statistics for the core.
type Stats struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions retired.
	Instructions uint64
	// Stalls is the number of stall cycles (fetch latency and WFI).
	Stalls uint64
	// Flushes is the number of flushes requested by CSR writes.
	Flushes uint64
	// Traps is the number of trap entries, exceptions and interrupts both.
	Traps uint64
	// Interrupts is the number of trap entries caused by interrupts.
	Interrupts uint64
}

// Option configures a Core.
type Option func(*Core)

// WithCSRConfig sets the platform configuration for the CSR unit.
func WithCSRConfig(cfg csr.Config) Option {
	return func(c *Core) {
		c.csrConfig = cfg
	}
}

// WithICache attaches an L1 instruction cache with the given configuration.
func WithICache(config cache.Config) Option {
	return func(c *Core) {
		c.icache = cache.New(config, cache.NewMemoryBacking(c.memory))
	}
}

// WithHaltOnEBreak selects whether EBREAK stops the simulation with the exit
// code taken from a0, instead of raising a breakpoint exception.
func WithHaltOnEBreak(halt bool) Option {
	return func(c *Core) {
		c.haltOnEBreak = halt
	}
}

// Core is the cycle-level core model that owns the CSR unit. Each tick it
// fetches and executes at most one instruction, presents the decoded CSR
// operation or exception record to the unit, and follows the unit's redirect
// outputs.
type Core struct {
	unit    *csr.Unit
	decoder *insts.Decoder
	regFile *RegFile
	memory  *mem.Memory
	icache  *cache.Cache
	perf    *counters.Bank

	csrConfig    csr.Config
	haltOnEBreak bool

	pc    uint64
	lines csr.IrqLines
	time  uint64

	// pendingTrap is a CSR access fault recorded last tick, re-presented as
	// a trap-entry input this tick.
	pendingTrap csr.Exception

	// In-flight fetch held across cache-latency stall ticks.
	fetchPending bool
	fetchWord    uint32
	fetchWait    uint64

	commitAck []bool

	stats    Stats
	halted   bool
	exitCode int64
}

// NewCore creates a core around the given memory.
func NewCore(memory *mem.Memory, opts ...Option) *Core {
	c := &Core{
		decoder:      insts.NewDecoder(),
		regFile:      &RegFile{},
		memory:       memory,
		perf:         counters.NewBank(),
		csrConfig:    csr.DefaultConfig(),
		haltOnEBreak: true,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.unit = csr.NewUnit(c.csrConfig)
	c.commitAck = make([]bool, c.csrConfig.CommitLanes)
	c.pc = c.csrConfig.BootAddr
	return c
}

// PC returns the current program counter.
func (c *Core) PC() uint64 {
	return c.pc
}

// SetPC sets the program counter.
func (c *Core) SetPC(pc uint64) {
	c.pc = pc
	c.clearFetch()
}

// RegFile returns the core's integer register file.
func (c *Core) RegFile() *RegFile {
	return c.regFile
}

// Unit returns the CSR unit.
func (c *Core) Unit() *csr.Unit {
	return c.unit
}

// Counters returns the performance-counter bank.
func (c *Core) Counters() *counters.Bank {
	return c.perf
}

// ICache returns the instruction cache, or nil if none is attached.
func (c *Core) ICache() *cache.Cache {
	return c.icache
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	return c.stats
}

// Halted returns true if the core has stopped.
func (c *Core) Halted() bool {
	return c.halted
}

// ExitCode returns the exit code if the core has halted.
func (c *Core) ExitCode() int64 {
	return c.exitCode
}

// SetExtIrq drives one of the two external interrupt lines. Line 0 raises
// M-external, line 1 raises S-external.
func (c *Core) SetExtIrq(line int, level bool) {
	if line >= 0 && line < len(c.lines.Ext) {
		c.lines.Ext[line] = level
	}
}

// SetIPI drives the inter-processor interrupt line.
func (c *Core) SetIPI(level bool) {
	c.lines.IPI = level
}

// SetTimerIrq drives the platform timer-interrupt line.
func (c *Core) SetTimerIrq(level bool) {
	c.lines.Timer = level
}

// DebugRead reads a CSR through the debug port. The request bypasses all
// privilege checks and consumes one tick.
func (c *Core) DebugRead(addr uint16) uint64 {
	in := c.baseInputs()
	in.Debug = csr.DebugRequest{Valid: true, Addr: addr}
	if csr.IsPerfAddr(addr) {
		in.PerfRData = c.perf.Access(addr, 0, false)
	}
	out := c.unit.Tick(in)
	c.syncCaches(out)
	return out.RData
}

// DebugWrite writes a CSR through the debug port. The request bypasses all
// privilege checks and consumes one tick.
func (c *Core) DebugWrite(addr uint16, value uint64) {
	in := c.baseInputs()
	in.Debug = csr.DebugRequest{Valid: true, Write: true, Addr: addr, Data: value}
	out := c.unit.Tick(in)
	if out.Perf.Valid && out.Perf.WriteEnable {
		c.perf.Access(out.Perf.Addr, out.Perf.WData, true)
	}
	c.syncCaches(out)
}

// Run executes the core until it halts. Returns the exit code.
func (c *Core) Run() int64 {
	for !c.halted {
		c.Tick()
	}
	return c.exitCode
}

// RunCycles executes the core for the specified number of cycles.
// Returns true if still running, false if halted.
func (c *Core) RunCycles(cycles uint64) bool {
	for i := uint64(0); i < cycles && !c.halted; i++ {
		c.Tick()
	}
	return !c.halted
}

// Reset restores the core and the CSR unit to their initial state. Memory
// contents are preserved.
func (c *Core) Reset() {
	c.unit.Reset()
	*c.regFile = RegFile{}
	if c.icache != nil {
		c.icache.Reset()
	}
	c.pc = c.csrConfig.BootAddr
	c.lines = csr.IrqLines{}
	c.time = 0
	c.pendingTrap = csr.Exception{}
	c.clearFetch()
	c.stats = Stats{}
	c.halted = false
	c.exitCode = 0
}

func (c *Core) baseInputs() csr.Inputs {
	return csr.Inputs{
		PC:    c.pc,
		Lines: c.lines,
		Time:  c.time,
	}
}

// clearFetch drops any in-flight fetch. Called on every redirect.
func (c *Core) clearFetch() {
	c.fetchPending = false
	c.fetchWait = 0
}

// syncCaches tracks the unit's cache-enable outputs.
func (c *Core) syncCaches(out csr.Outputs) {
	if c.icache != nil {
		c.icache.SetEnabled(out.ICacheEnable)
	}
}

// tickUnit advances the CSR unit and the counter bank by one tick with no
// instruction issued.
func (c *Core) tickUnit(in csr.Inputs) csr.Outputs {
	out := c.unit.Tick(in)
	c.syncCaches(out)
	c.perf.Record(counters.EventCycles)
	c.perf.Tick()
	return out
}

// Tick executes one core cycle.
func (c *Core) Tick() {
	if c.halted {
		return
	}
	c.stats.Cycles++
	c.time++

	in := c.baseInputs()

	// A CSR access fault recorded last tick re-enters as a trap now.
	if c.pendingTrap.Valid {
		in.Exception = c.pendingTrap
		c.pendingTrap = csr.Exception{}
		c.takeTrap(in)
		return
	}

	// Interrupts preempt instruction issue.
	if irq := c.unit.PendingInterrupt(c.lines); irq.Valid {
		in.Exception = irq
		c.stats.Interrupts++
		c.takeTrap(in)
		return
	}

	// WFI stalls issue until a pending interrupt clears the flag.
	if c.unit.State().WFI {
		c.tickUnit(in)
		c.stats.Stalls++
		return
	}

	// Fetch-latency stall.
	if c.fetchWait > 0 {
		c.fetchWait--
		c.tickUnit(in)
		c.stats.Stalls++
		return
	}

	var word uint32
	if c.fetchPending {
		word = c.fetchWord
		c.fetchPending = false
	} else {
		w, wait := c.fetch(c.pc)
		if wait > 0 {
			c.fetchWord = w
			c.fetchPending = true
			c.fetchWait = wait - 1
			c.tickUnit(in)
			c.stats.Stalls++
			return
		}
		word = w
	}

	inst := c.decoder.Decode(word)
	res := c.execute(inst, word)

	if res.halt {
		c.tickUnit(in)
		c.halted = true
		c.exitCode = int64(c.regFile.Read(10))
		return
	}

	in.Req = res.req
	in.Exception = res.exc

	if in.Exception.Valid {
		c.takeTrap(in)
		return
	}

	if csr.IsPerfAddr(in.Req.Addr) && in.Req.Op != csr.OpNone {
		in.PerfRData = c.perf.Access(in.Req.Addr, 0, false)
	}

	// Combinational phase first: the instruction retires only if the unit
	// reports no access fault, so the commit acknowledge is filled in and
	// the phase re-run before committing.
	out := c.unit.Compute(in)
	if !out.Exception.Valid {
		c.commitAck[0] = true
		in.CommitAck = c.commitAck
		out = c.unit.Compute(in)
		c.commitAck[0] = false
	}
	c.unit.Commit()
	c.syncCaches(out)

	if out.Perf.Valid && out.Perf.WriteEnable {
		c.perf.Access(out.Perf.Addr, out.Perf.WData, true)
	}

	if out.Exception.Valid {
		// Illegal CSR access: nothing retires, the fault re-enters as a
		// trap next tick with the instruction word as its value.
		c.pendingTrap = csr.Exception{
			Valid: true,
			Cause: out.Exception.Cause,
			Tval:  uint64(word),
		}
		c.clearFetch()
		c.perf.Record(counters.EventCycles)
		c.perf.Tick()
		return
	}

	if res.writeRd {
		v := res.rdVal
		if res.rdFromCSR {
			v = out.RData
		}
		c.regFile.Write(inst.Rd, v)
	}

	switch {
	case out.Eret:
		c.pc = out.EPC
		c.clearFetch()
	case out.Flush:
		c.pc = res.nextPC
		c.clearFetch()
		c.stats.Flushes++
	default:
		c.pc = res.nextPC
	}

	c.stats.Instructions++
	c.perf.Record(counters.EventCycles)
	c.perf.Record(counters.EventInstructions)
	c.perf.Tick()
}

// takeTrap presents an exception record to the unit and redirects fetch to
// the returned trap vector.
func (c *Core) takeTrap(in csr.Inputs) {
	out := c.tickUnit(in)
	c.pc = out.TrapVector
	c.clearFetch()
	c.stats.Traps++
	c.perf.Record(counters.EventTrap)
}

// fetch reads the instruction word at pc. The second return value is the
// number of stall ticks before the word can issue; zero means it issues
// this tick.
func (c *Core) fetch(pc uint64) (uint32, uint64) {
	if c.icache == nil {
		return c.memory.Read32(pc), 0
	}

	r := c.icache.Fetch(pc, 4)
	if !r.Hit {
		c.perf.Record(counters.EventICacheMiss)
	}
	if r.Latency > 1 {
		return uint32(r.Data), r.Latency - 1
	}
	return uint32(r.Data), 0
}
