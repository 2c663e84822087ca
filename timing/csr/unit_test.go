package csr_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/timing/csr"
)

// write performs one architectural CSR write tick.
func write(u *csr.Unit, addr uint16, v uint64) csr.Outputs {
	return u.Tick(csr.Inputs{Req: csr.Request{Op: csr.OpWrite, Addr: addr, Operand: v}})
}

// read performs one architectural CSR read tick.
func read(u *csr.Unit, addr uint16) csr.Outputs {
	return u.Tick(csr.Inputs{Req: csr.Request{Op: csr.OpRead, Addr: addr}})
}

// idle advances the unit one tick with no request.
func idle(u *csr.Unit) csr.Outputs {
	return u.Tick(csr.Inputs{})
}

// enterPriv drops from M-mode to the given privilege level by staging it in
// MPP and returning. Clears the rest of mstatus as a side effect.
func enterPriv(u *csr.Unit, l csr.Level) {
	write(u, csr.AddrMStatus, uint64(l)<<11)
	u.Tick(csr.Inputs{Req: csr.Request{Op: csr.OpMRet}})
}

var _ = Describe("Unit", func() {
	var u *csr.Unit

	BeforeEach(func() {
		u = csr.NewUnit(csr.DefaultConfig())
	})

	Describe("Reset", func() {
		It("should start in machine mode", func() {
			Expect(u.State().Priv).To(Equal(csr.LevelM))
		})

		It("should point both trap vectors at the boot address", func() {
			Expect(u.State().Mtvec.Base).To(Equal(uint64(0x80000000)))
			Expect(u.State().Stvec.Base).To(Equal(uint64(0x80000000)))
		})

		It("should enable both caches", func() {
			out := idle(u)
			Expect(out.ICacheEnable).To(BeTrue())
			Expect(out.DCacheEnable).To(BeTrue())
		})

		It("should clear the counters and interrupt state", func() {
			s := u.State()
			Expect(s.Cycle).To(BeZero())
			Expect(s.Instret).To(BeZero())
			Expect(s.Mie).To(BeZero())
			Expect(s.MipSoft).To(BeZero())
		})
	})

	Describe("Scratch registers", func() {
		It("should hold a written value", func() {
			write(u, csr.AddrMScratch, 0xDEADBEEF)
			out := read(u, csr.AddrMScratch)
			Expect(out.RData).To(Equal(uint64(0xDEADBEEF)))
		})

		It("should return the old value on a write", func() {
			write(u, csr.AddrMScratch, 1)
			out := write(u, csr.AddrMScratch, 2)
			Expect(out.RData).To(Equal(uint64(1)))
		})
	})

	Describe("Set and clear operations", func() {
		It("should OR the operand into the register", func() {
			write(u, csr.AddrMScratch, 0xF0)
			u.Tick(csr.Inputs{Req: csr.Request{
				Op: csr.OpSet, Addr: csr.AddrMScratch, Operand: 0x0F,
			}})
			Expect(u.State().Mscratch).To(Equal(uint64(0xFF)))
		})

		It("should clear the operand bits from the register", func() {
			write(u, csr.AddrMScratch, 0xFF)
			u.Tick(csr.Inputs{Req: csr.Request{
				Op: csr.OpClear, Addr: csr.AddrMScratch, Operand: 0x0F,
			}})
			Expect(u.State().Mscratch).To(Equal(uint64(0xF0)))
		})
	})

	Describe("Access faults", func() {
		It("should fault on an unmapped address", func() {
			out := read(u, 0x5C0)
			Expect(out.Exception.Valid).To(BeTrue())
			Expect(out.Exception.Cause).To(Equal(uint64(csr.ExcIllegalInstr)))
			Expect(out.RData).To(BeZero())
		})

		It("should fault on a write to a read-only register", func() {
			out := write(u, csr.AddrMHartID, 1)
			Expect(out.Exception.Valid).To(BeTrue())
		})

		It("should fault on a write to the cycle shadow", func() {
			out := write(u, csr.AddrCycle, 0)
			Expect(out.Exception.Valid).To(BeTrue())
		})

		It("should allow reading a read-only register", func() {
			out := read(u, csr.AddrMHartID)
			Expect(out.Exception.Valid).To(BeFalse())
		})

		It("should fault on an M-mode register accessed from S-mode", func() {
			enterPriv(u, csr.LevelS)
			out := read(u, csr.AddrMScratch)
			Expect(out.Exception.Valid).To(BeTrue())
		})

		It("should fault on an S-mode register accessed from U-mode", func() {
			enterPriv(u, csr.LevelU)
			out := read(u, csr.AddrSScratch)
			Expect(out.Exception.Valid).To(BeTrue())
		})

		It("should allow S-mode registers from M-mode", func() {
			out := read(u, csr.AddrSScratch)
			Expect(out.Exception.Valid).To(BeFalse())
		})

		It("should leave state unchanged on a faulting write", func() {
			before := u.State()
			write(u, csr.AddrMHartID, 7)
			after := u.State()
			Expect(after.Mscratch).To(Equal(before.Mscratch))
			Expect(after.Priv).To(Equal(before.Priv))
		})
	})

	Describe("Read-only identity registers", func() {
		It("should report zero vendor, arch, and implementation ids", func() {
			Expect(read(u, csr.AddrMVendorID).RData).To(BeZero())
			Expect(read(u, csr.AddrMArchID).RData).To(BeZero())
			Expect(read(u, csr.AddrMImpID).RData).To(BeZero())
		})

		It("should form mhartid from cluster and core ids", func() {
			cfg := csr.DefaultConfig()
			cfg.ClusterID = 2
			cfg.CoreID = 1
			u2 := csr.NewUnit(cfg)
			Expect(read(u2, csr.AddrMHartID).RData).To(Equal(uint64(9)))
		})

		It("should encode RV64 IMAFDSU in misa", func() {
			v := read(u, csr.AddrMISA).RData
			Expect(v >> 62).To(Equal(uint64(2)))
			Expect(v & (1 << 8)).NotTo(BeZero())  // I
			Expect(v & (1 << 18)).NotTo(BeZero()) // S
			Expect(v & (1 << 20)).NotTo(BeZero()) // U
		})

		It("should ignore writes to misa without faulting", func() {
			out := write(u, csr.AddrMISA, 0)
			Expect(out.Exception.Valid).To(BeFalse())
			Expect(read(u, csr.AddrMISA).RData >> 62).To(Equal(uint64(2)))
		})
	})

	Describe("Status register", func() {
		It("should hardwire the XLEN selectors to 64-bit", func() {
			v := read(u, csr.AddrMStatus).RData
			Expect((v >> 32) & 0x3).To(Equal(uint64(2)))
			Expect((v >> 34) & 0x3).To(Equal(uint64(2)))
		})

		It("should drop writes to the hardwired FS and XS fields", func() {
			write(u, csr.AddrMStatus, uint64(3)<<13|uint64(3)<<15)
			v := read(u, csr.AddrMStatus).RData
			Expect((v >> 13) & 0xF).To(BeZero())
		})

		It("should clamp a reserved MPP encoding to U", func() {
			write(u, csr.AddrMStatus, uint64(2)<<11)
			Expect(u.State().Status.MPP).To(Equal(csr.LevelU))
		})

		It("should expose only the supervisor subset through sstatus", func() {
			write(u, csr.AddrMStatus, 1<<3|1<<1) // MIE and SIE
			v := read(u, csr.AddrSStatus).RData
			Expect(v & (1 << 1)).NotTo(BeZero())
			Expect(v & (1 << 3)).To(BeZero())
		})

		It("should preserve machine-level bits on an sstatus write", func() {
			write(u, csr.AddrMStatus, 1<<3) // MIE
			write(u, csr.AddrSStatus, ^uint64(0))
			s := u.State().Status
			Expect(s.MIE).To(BeTrue())
			Expect(s.SIE).To(BeTrue())
			Expect(s.SUM).To(BeTrue())
			Expect(s.TSR).To(BeFalse())
		})

		It("should request a flush on a status write", func() {
			Expect(write(u, csr.AddrMStatus, 0).Flush).To(BeTrue())
			Expect(write(u, csr.AddrSStatus, 0).Flush).To(BeTrue())
		})
	})

	Describe("Exception PC registers", func() {
		It("should clear the low bit of mepc on write", func() {
			write(u, csr.AddrMEPC, 0x1003)
			Expect(u.State().Mepc).To(Equal(uint64(0x1002)))
		})

		It("should clear the low bit of sepc on write", func() {
			write(u, csr.AddrSEPC, 0x2001)
			Expect(u.State().Sepc).To(Equal(uint64(0x2000)))
		})
	})

	Describe("Trap vector registers", func() {
		It("should align a plain base to 4 bytes", func() {
			write(u, csr.AddrMTVec, 0x80001002)
			Expect(u.State().Mtvec.Base).To(Equal(uint64(0x80001000)))
			Expect(u.State().Mtvec.Vectored).To(BeFalse())
		})

		It("should align a vectored base to 256 bytes", func() {
			write(u, csr.AddrMTVec, 0x800010F1)
			Expect(u.State().Mtvec.Base).To(Equal(uint64(0x80001000)))
			Expect(u.State().Mtvec.Vectored).To(BeTrue())
		})

		It("should read back the encoded value", func() {
			write(u, csr.AddrSTVec, 0x80002001)
			Expect(read(u, csr.AddrSTVec).RData).To(Equal(uint64(0x80002001)))
		})
	})

	Describe("Delegation registers", func() {
		It("should mask medeleg to the delegable causes", func() {
			write(u, csr.AddrMEDeleg, ^uint64(0))
			v := u.State().Medeleg
			Expect(v & (1 << csr.ExcEnvCallU)).NotTo(BeZero())
			Expect(v & (1 << csr.ExcEnvCallM)).To(BeZero())
		})

		It("should mask mideleg to the supervisor interrupts", func() {
			write(u, csr.AddrMIDeleg, ^uint64(0))
			v := u.State().Mideleg
			Expect(v).To(Equal(uint64(1<<csr.IrqSSoft | 1<<csr.IrqSTimer | 1<<csr.IrqSExt)))
		})
	})

	Describe("Interrupt enable and pending registers", func() {
		It("should mask mie to the supported interrupts", func() {
			write(u, csr.AddrMIE, ^uint64(0))
			Expect(u.State().Mie).To(Equal(uint64(0xAAA)))
		})

		It("should restrict sie to the delegated subset", func() {
			write(u, csr.AddrMIDeleg, 1<<csr.IrqSSoft)
			write(u, csr.AddrSIE, ^uint64(0))
			Expect(u.State().Mie).To(Equal(uint64(1 << csr.IrqSSoft)))
		})

		It("should preserve non-delegated enables across an sie write", func() {
			write(u, csr.AddrMIE, 1<<csr.IrqMTimer)
			write(u, csr.AddrMIDeleg, 1<<csr.IrqSSoft)
			write(u, csr.AddrSIE, 0)
			Expect(u.State().Mie).To(Equal(uint64(1 << csr.IrqMTimer)))
		})

		It("should accept only the software-writable bits through mip", func() {
			write(u, csr.AddrMIP, ^uint64(0))
			Expect(u.State().MipSoft).To(Equal(uint64(1<<csr.IrqSSoft | 1<<csr.IrqSTimer)))
		})

		It("should reflect the external lines in an mip read", func() {
			out := u.Tick(csr.Inputs{
				Req:   csr.Request{Op: csr.OpRead, Addr: csr.AddrMIP},
				Lines: csr.IrqLines{Timer: true, IPI: true},
			})
			Expect(out.RData & (1 << csr.IrqMTimer)).NotTo(BeZero())
			Expect(out.RData & (1 << csr.IrqMSoft)).NotTo(BeZero())
		})

		It("should show only delegated pending bits in sip", func() {
			write(u, csr.AddrMIDeleg, 1<<csr.IrqSSoft)
			write(u, csr.AddrMIP, 1<<csr.IrqSSoft|1<<csr.IrqSTimer)
			Expect(read(u, csr.AddrSIP).RData).To(Equal(uint64(1 << csr.IrqSSoft)))
		})
	})

	Describe("Floating-point registers", func() {
		It("should split fcsr into frm and fflags", func() {
			write(u, csr.AddrFCSR, 0xFF)
			Expect(read(u, csr.AddrFRM).RData).To(Equal(uint64(0x7)))
			Expect(read(u, csr.AddrFFlags).RData).To(Equal(uint64(0x1F)))
		})

		It("should combine frm and fflags in an fcsr read", func() {
			write(u, csr.AddrFRM, 0x3)
			write(u, csr.AddrFFlags, 0x11)
			Expect(read(u, csr.AddrFCSR).RData).To(Equal(uint64(0x3<<5 | 0x11)))
		})

		It("should expose the fields on the output port", func() {
			write(u, csr.AddrFCSR, 0x5A)
			out := idle(u)
			Expect(out.Frm).To(Equal(uint8(0x2)))
			Expect(out.Fflags).To(Equal(uint8(0x1A)))
		})

		It("should flush on a rounding-mode change", func() {
			Expect(write(u, csr.AddrFRM, 1).Flush).To(BeTrue())
		})
	})

	Describe("Address translation register", func() {
		satpSv39 := uint64(8)<<60 | uint64(0x1234)<<44 | 0x42

		It("should decode mode, ASID, and PPN", func() {
			write(u, csr.AddrSATP, satpSv39)
			s := u.State().Satp
			Expect(s.Mode).To(Equal(uint8(csr.SatpSv39)))
			Expect(s.ASID).To(Equal(uint16(0x1234)))
			Expect(s.PPN).To(Equal(uint64(0x42)))
		})

		It("should keep the previous mode on a reserved encoding", func() {
			write(u, csr.AddrSATP, satpSv39)
			write(u, csr.AddrSATP, uint64(5)<<60)
			Expect(u.State().Satp.Mode).To(Equal(uint8(csr.SatpSv39)))
		})

		It("should truncate the ASID to the configured width", func() {
			cfg := csr.DefaultConfig()
			cfg.ASIDWidth = 8
			u2 := csr.NewUnit(cfg)
			write(u2, csr.AddrSATP, satpSv39)
			Expect(u2.State().Satp.ASID).To(Equal(uint16(0x34)))
		})

		It("should flush on a satp write", func() {
			Expect(write(u, csr.AddrSATP, satpSv39).Flush).To(BeTrue())
		})

		It("should intercept satp in S-mode when TVM is set", func() {
			write(u, csr.AddrMStatus, uint64(1)<<20|uint64(csr.LevelS)<<11)
			u.Tick(csr.Inputs{Req: csr.Request{Op: csr.OpMRet}})
			Expect(read(u, csr.AddrSATP).Exception.Valid).To(BeTrue())
			Expect(write(u, csr.AddrSATP, satpSv39).Exception.Valid).To(BeTrue())
		})

		It("should allow satp from S-mode when TVM is clear", func() {
			enterPriv(u, csr.LevelS)
			Expect(write(u, csr.AddrSATP, satpSv39).Exception.Valid).To(BeFalse())
		})
	})

	Describe("Counters", func() {
		It("should count cycles on every tick", func() {
			idle(u)
			idle(u)
			idle(u)
			Expect(u.State().Cycle).To(Equal(uint64(3)))
		})

		It("should count one instruction per commit acknowledge", func() {
			u.Tick(csr.Inputs{CommitAck: []bool{true, true}})
			u.Tick(csr.Inputs{CommitAck: []bool{true, false}})
			Expect(u.State().Instret).To(Equal(uint64(3)))
		})

		It("should expose the counters through the user shadows", func() {
			u.Tick(csr.Inputs{CommitAck: []bool{true}})
			Expect(read(u, csr.AddrInstret).RData).To(Equal(uint64(1)))
			Expect(read(u, csr.AddrCycle).RData).NotTo(BeZero())
		})

		It("should accept writes through the machine aliases", func() {
			// The written value replaces this tick's increment.
			write(u, csr.AddrMCycle, 1000)
			Expect(u.State().Cycle).To(Equal(uint64(1000)))
		})

		It("should read the platform time input", func() {
			out := u.Tick(csr.Inputs{
				Req:  csr.Request{Op: csr.OpRead, Addr: csr.AddrTime},
				Time: 777,
			})
			Expect(out.RData).To(Equal(uint64(777)))
		})
	})

	Describe("Hardwired counter-enable registers", func() {
		It("should read as zero and accept writes", func() {
			Expect(write(u, csr.AddrMCounterEn, ^uint64(0)).Exception.Valid).To(BeFalse())
			Expect(read(u, csr.AddrMCounterEn).RData).To(BeZero())
			Expect(read(u, csr.AddrSCounterEn).RData).To(BeZero())
		})
	})

	Describe("Cache control registers", func() {
		It("should reflect the enables on the output port", func() {
			write(u, csr.AddrICache, 0)
			out := idle(u)
			Expect(out.ICacheEnable).To(BeFalse())
			Expect(out.DCacheEnable).To(BeTrue())
		})

		It("should flush on an enable change", func() {
			Expect(write(u, csr.AddrDCache, 0).Flush).To(BeTrue())
		})

		It("should read back the enable bit", func() {
			Expect(read(u, csr.AddrICache).RData).To(Equal(uint64(1)))
			write(u, csr.AddrICache, 0)
			Expect(read(u, csr.AddrICache).RData).To(BeZero())
		})
	})

	Describe("Performance-counter port", func() {
		It("should forward a counter read and return the bank's data", func() {
			out := u.Tick(csr.Inputs{
				Req:       csr.Request{Op: csr.OpRead, Addr: 0xB03},
				PerfRData: 42,
			})
			Expect(out.RData).To(Equal(uint64(42)))
			Expect(out.Perf.Valid).To(BeTrue())
			Expect(out.Perf.Addr).To(Equal(uint16(0xB03)))
			Expect(out.Perf.WriteEnable).To(BeFalse())
		})

		It("should forward a counter write with the write data", func() {
			out := write(u, 0xB10, 99)
			Expect(out.Perf.Valid).To(BeTrue())
			Expect(out.Perf.WriteEnable).To(BeTrue())
			Expect(out.Perf.WData).To(Equal(uint64(99)))
		})

		It("should forward event-selector accesses", func() {
			out := write(u, 0x323, 2)
			Expect(out.Perf.Valid).To(BeTrue())
			Expect(out.Perf.Addr).To(Equal(uint16(0x323)))
		})

		It("should require M-mode for the counter range", func() {
			enterPriv(u, csr.LevelS)
			out := read(u, 0xB03)
			Expect(out.Exception.Valid).To(BeTrue())
			Expect(out.Perf.Valid).To(BeFalse())
		})
	})

	Describe("Wait for interrupt", func() {
		It("should assert halt the tick after the flag is set", func() {
			out := u.Tick(csr.Inputs{Req: csr.Request{Op: csr.OpWFI}})
			Expect(out.Halt).To(BeFalse())
			Expect(idle(u).Halt).To(BeTrue())
		})

		It("should wake on a pending interrupt even with enables clear", func() {
			u.Tick(csr.Inputs{Req: csr.Request{Op: csr.OpWFI}})
			Expect(u.State().Mie).To(BeZero())

			out := u.Tick(csr.Inputs{Lines: csr.IrqLines{Timer: true}})
			Expect(out.Halt).To(BeFalse())
			Expect(u.State().WFI).To(BeFalse())
		})

		It("should wake on a software pending bit", func() {
			u.Tick(csr.Inputs{Req: csr.Request{Op: csr.OpWFI}})
			// The debug port can still poke mip while the unit is asleep.
			u.Tick(csr.Inputs{Debug: csr.DebugRequest{
				Valid: true, Write: true, Addr: csr.AddrMIP, Data: 1 << csr.IrqSSoft,
			}})
			// The stored pending bit is sampled one tick later.
			idle(u)
			Expect(u.State().WFI).To(BeFalse())
		})
	})

	Describe("Two-phase tick", func() {
		It("should not change state until commit", func() {
			u.Compute(csr.Inputs{Req: csr.Request{
				Op: csr.OpWrite, Addr: csr.AddrMScratch, Operand: 5,
			}})
			Expect(u.State().Mscratch).To(BeZero())
			u.Commit()
			Expect(u.State().Mscratch).To(Equal(uint64(5)))
		})

		It("should adopt the last computed state on commit", func() {
			in := csr.Inputs{Req: csr.Request{
				Op: csr.OpWrite, Addr: csr.AddrMScratch, Operand: 5,
			}}
			u.Compute(in)
			in.CommitAck = []bool{true}
			u.Compute(in)
			u.Commit()
			Expect(u.State().Mscratch).To(Equal(uint64(5)))
			Expect(u.State().Instret).To(Equal(uint64(1)))
		})
	})

	Describe("Debug port", func() {
		It("should override the architectural request", func() {
			u.Tick(csr.Inputs{
				Req: csr.Request{Op: csr.OpWrite, Addr: csr.AddrMEPC, Operand: 0x100},
				Debug: csr.DebugRequest{
					Valid: true, Write: true, Addr: csr.AddrMScratch, Data: 7,
				},
			})
			Expect(u.State().Mscratch).To(Equal(uint64(7)))
			Expect(u.State().Mepc).To(BeZero())
		})

		It("should bypass privilege checks", func() {
			enterPriv(u, csr.LevelU)
			out := u.Tick(csr.Inputs{Debug: csr.DebugRequest{
				Valid: true, Addr: csr.AddrMScratch,
			}})
			Expect(out.Exception.Valid).To(BeFalse())
		})

		It("should bypass the satp interception", func() {
			write(u, csr.AddrSATP, uint64(8)<<60)
			write(u, csr.AddrMStatus, uint64(1)<<20|uint64(csr.LevelS)<<11)
			u.Tick(csr.Inputs{Req: csr.Request{Op: csr.OpMRet}})

			out := u.Tick(csr.Inputs{Debug: csr.DebugRequest{
				Valid: true, Addr: csr.AddrSATP,
			}})
			Expect(out.Exception.Valid).To(BeFalse())
			Expect(out.RData >> 60).To(Equal(uint64(8)))
		})

		It("should never report a fault", func() {
			out := u.Tick(csr.Inputs{Debug: csr.DebugRequest{
				Valid: true, Addr: 0x5C0,
			}})
			Expect(out.Exception.Valid).To(BeFalse())
			Expect(out.RData).To(BeZero())
		})

		It("should not request a flush on a debug write", func() {
			out := u.Tick(csr.Inputs{Debug: csr.DebugRequest{
				Valid: true, Write: true, Addr: csr.AddrSATP, Data: uint64(8) << 60,
			}})
			Expect(out.Flush).To(BeFalse())
			Expect(u.State().Satp.Mode).To(Equal(uint8(csr.SatpSv39)))
		})
	})
})
