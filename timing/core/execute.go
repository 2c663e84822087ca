package core

import (
	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/timing/csr"
)

// execResult describes the architectural effect of one instruction before
// the CSR unit has spoken: the next PC, the register write, the decoded CSR
// request, and any exception raised by decode or the legality pre-checks.
type execResult struct {
	nextPC    uint64
	rdVal     uint64
	writeRd   bool
	rdFromCSR bool
	req       csr.Request
	exc       csr.Exception
	halt      bool
}

// execute evaluates one decoded instruction. ALU, branch, load, and store
// semantics are applied here; SYSTEM instructions are translated into a CSR
// unit request after the privilege pre-checks.
func (c *Core) execute(inst *insts.Instruction, word uint32) execResult {
	res := execResult{nextPC: c.pc + 4}

	rs1 := c.regFile.Read(inst.Rs1)
	rs2 := c.regFile.Read(inst.Rs2)
	priv := uint8(c.unit.State().Priv)
	status := c.unit.State().Status

	illegal := func() execResult {
		return execResult{exc: csr.Exception{
			Valid: true,
			Cause: csr.ExcIllegalInstr,
			Tval:  uint64(word),
		}}
	}

	switch inst.Op {
	case insts.OpLUI:
		res.rdVal = uint64(inst.Imm)
	case insts.OpAUIPC:
		res.rdVal = c.pc + uint64(inst.Imm)

	case insts.OpJAL:
		res.rdVal = c.pc + 4
		return c.jump(res, c.pc+uint64(inst.Imm))
	case insts.OpJALR:
		res.rdVal = c.pc + 4
		return c.jump(res, (rs1+uint64(inst.Imm))&^uint64(1))

	case insts.OpBEQ:
		return c.branch(res, rs1 == rs2, inst.Imm)
	case insts.OpBNE:
		return c.branch(res, rs1 != rs2, inst.Imm)
	case insts.OpBLT:
		return c.branch(res, int64(rs1) < int64(rs2), inst.Imm)
	case insts.OpBGE:
		return c.branch(res, int64(rs1) >= int64(rs2), inst.Imm)
	case insts.OpBLTU:
		return c.branch(res, rs1 < rs2, inst.Imm)
	case insts.OpBGEU:
		return c.branch(res, rs1 >= rs2, inst.Imm)

	case insts.OpLB:
		res.rdVal = uint64(int64(int8(c.memory.Read8(rs1 + uint64(inst.Imm)))))
	case insts.OpLH:
		res.rdVal = uint64(int64(int16(c.memory.Read16(rs1 + uint64(inst.Imm)))))
	case insts.OpLW:
		res.rdVal = uint64(int64(int32(c.memory.Read32(rs1 + uint64(inst.Imm)))))
	case insts.OpLD:
		res.rdVal = c.memory.Read64(rs1 + uint64(inst.Imm))
	case insts.OpLBU:
		res.rdVal = uint64(c.memory.Read8(rs1 + uint64(inst.Imm)))
	case insts.OpLHU:
		res.rdVal = uint64(c.memory.Read16(rs1 + uint64(inst.Imm)))
	case insts.OpLWU:
		res.rdVal = uint64(c.memory.Read32(rs1 + uint64(inst.Imm)))

	case insts.OpSB:
		c.memory.Write8(rs1+uint64(inst.Imm), uint8(rs2))
	case insts.OpSH:
		c.memory.Write16(rs1+uint64(inst.Imm), uint16(rs2))
	case insts.OpSW:
		c.memory.Write32(rs1+uint64(inst.Imm), uint32(rs2))
	case insts.OpSD:
		c.memory.Write64(rs1+uint64(inst.Imm), rs2)

	case insts.OpADDI:
		res.rdVal = rs1 + uint64(inst.Imm)
	case insts.OpSLTI:
		res.rdVal = boolToReg(int64(rs1) < inst.Imm)
	case insts.OpSLTIU:
		res.rdVal = boolToReg(rs1 < uint64(inst.Imm))
	case insts.OpXORI:
		res.rdVal = rs1 ^ uint64(inst.Imm)
	case insts.OpORI:
		res.rdVal = rs1 | uint64(inst.Imm)
	case insts.OpANDI:
		res.rdVal = rs1 & uint64(inst.Imm)
	case insts.OpSLLI:
		res.rdVal = rs1 << uint64(inst.Imm)
	case insts.OpSRLI:
		res.rdVal = rs1 >> uint64(inst.Imm)
	case insts.OpSRAI:
		res.rdVal = uint64(int64(rs1) >> uint64(inst.Imm))

	case insts.OpADDIW:
		res.rdVal = signExt32(uint32(rs1) + uint32(inst.Imm))
	case insts.OpSLLIW:
		res.rdVal = signExt32(uint32(rs1) << uint64(inst.Imm))
	case insts.OpSRLIW:
		res.rdVal = signExt32(uint32(rs1) >> uint64(inst.Imm))
	case insts.OpSRAIW:
		res.rdVal = signExt32(uint32(int32(rs1) >> uint64(inst.Imm)))

	case insts.OpADD:
		res.rdVal = rs1 + rs2
	case insts.OpSUB:
		res.rdVal = rs1 - rs2
	case insts.OpSLL:
		res.rdVal = rs1 << (rs2 & 0x3F)
	case insts.OpSLT:
		res.rdVal = boolToReg(int64(rs1) < int64(rs2))
	case insts.OpSLTU:
		res.rdVal = boolToReg(rs1 < rs2)
	case insts.OpXOR:
		res.rdVal = rs1 ^ rs2
	case insts.OpSRL:
		res.rdVal = rs1 >> (rs2 & 0x3F)
	case insts.OpSRA:
		res.rdVal = uint64(int64(rs1) >> (rs2 & 0x3F))
	case insts.OpOR:
		res.rdVal = rs1 | rs2
	case insts.OpAND:
		res.rdVal = rs1 & rs2

	case insts.OpADDW:
		res.rdVal = signExt32(uint32(rs1) + uint32(rs2))
	case insts.OpSUBW:
		res.rdVal = signExt32(uint32(rs1) - uint32(rs2))
	case insts.OpSLLW:
		res.rdVal = signExt32(uint32(rs1) << (rs2 & 0x1F))
	case insts.OpSRLW:
		res.rdVal = signExt32(uint32(rs1) >> (rs2 & 0x1F))
	case insts.OpSRAW:
		res.rdVal = signExt32(uint32(int32(rs1) >> (rs2 & 0x1F)))

	case insts.OpFENCE:
		// Single-core, in-order: nothing to order.

	case insts.OpECALL:
		cause := uint64(csr.ExcEnvCallM)
		switch priv {
		case insts.PrivU:
			cause = csr.ExcEnvCallU
		case insts.PrivS:
			cause = csr.ExcEnvCallS
		}
		return execResult{exc: csr.Exception{Valid: true, Cause: cause}}

	case insts.OpEBREAK:
		if c.haltOnEBreak {
			return execResult{halt: true}
		}
		return execResult{exc: csr.Exception{
			Valid: true,
			Cause: csr.ExcBreakpoint,
			Tval:  c.pc,
		}}

	case insts.OpMRET, insts.OpSRET:
		if !insts.ReturnPermitted(inst.Op, priv, status.TSR) {
			return illegal()
		}
		op := csr.OpMRet
		if inst.Op == insts.OpSRET {
			op = csr.OpSRet
		}
		res.req = csr.Request{Op: op}

	case insts.OpWFI:
		// Illegal in U-mode, and trapped in S-mode under TW.
		if priv == insts.PrivU || (priv == insts.PrivS && status.TW) {
			return illegal()
		}
		res.req = csr.Request{Op: csr.OpWFI}

	case insts.OpSFenceVMA:
		// Requires S, and trapped in S-mode under TVM.
		if priv == insts.PrivU || (priv == insts.PrivS && status.TVM) {
			return illegal()
		}
		// No TLB model to flush.

	case insts.OpCSRRW:
		res.req = csr.Request{Op: csr.OpWrite, Addr: inst.CSR, Operand: rs1}
		res.rdFromCSR = true
	case insts.OpCSRRS:
		res.req = csrModify(csr.OpSet, inst.CSR, rs1, inst.Rs1 == 0)
		res.rdFromCSR = true
	case insts.OpCSRRC:
		res.req = csrModify(csr.OpClear, inst.CSR, rs1, inst.Rs1 == 0)
		res.rdFromCSR = true
	case insts.OpCSRRWI:
		res.req = csr.Request{Op: csr.OpWrite, Addr: inst.CSR, Operand: uint64(inst.Zimm)}
		res.rdFromCSR = true
	case insts.OpCSRRSI:
		res.req = csrModify(csr.OpSet, inst.CSR, uint64(inst.Zimm), inst.Zimm == 0)
		res.rdFromCSR = true
	case insts.OpCSRRCI:
		res.req = csrModify(csr.OpClear, inst.CSR, uint64(inst.Zimm), inst.Zimm == 0)
		res.rdFromCSR = true

	default:
		return illegal()
	}

	res.writeRd = inst.WritesRd()
	return res
}

// csrModify builds a set/clear request. A zero source register or immediate
// demotes the operation to a pure read, which never faults on read-only
// registers.
func csrModify(op csr.Op, addr uint16, operand uint64, readOnly bool) csr.Request {
	if readOnly {
		return csr.Request{Op: csr.OpRead, Addr: addr}
	}
	return csr.Request{Op: op, Addr: addr, Operand: operand}
}

// jump redirects to target, checking instruction-address alignment.
func (c *Core) jump(res execResult, target uint64) execResult {
	if target&0x3 != 0 {
		return execResult{exc: csr.Exception{
			Valid: true,
			Cause: csr.ExcInstrAddrMisaligned,
			Tval:  target,
		}}
	}
	res.nextPC = target
	res.writeRd = true
	return res
}

// branch conditionally redirects by the branch offset.
func (c *Core) branch(res execResult, taken bool, imm int64) execResult {
	if !taken {
		return res
	}
	target := c.pc + uint64(imm)
	if target&0x3 != 0 {
		return execResult{exc: csr.Exception{
			Valid: true,
			Cause: csr.ExcInstrAddrMisaligned,
			Tval:  target,
		}}
	}
	res.nextPC = target
	return res
}

func boolToReg(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// signExt32 sign-extends a 32-bit value to 64 bits.
func signExt32(v uint32) uint64 {
	return uint64(int64(int32(v)))
}
