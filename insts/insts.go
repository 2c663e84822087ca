// Package insts provides RISC-V instruction definitions and decoding.
//
// This package implements decoding of RV64 machine code into structured
// instruction representations. It supports:
//   - The RV64I base integer subset (ALU, branch, load/store)
//   - SYSTEM instructions: CSRRW/CSRRS/CSRRC and their immediate forms,
//     ECALL, EBREAK, MRET, SRET, WFI, SFENCE.VMA
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(0x30529073) // CSRRW x0, mtvec, x5
//	fmt.Printf("Op: %v, CSR: 0x%03x, Rs1: %d\n", inst.Op, inst.CSR, inst.Rs1)
package insts

// Op represents a RISC-V opcode.
type Op uint16

// RV64 opcodes.
const (
	OpUnknown Op = iota
	OpLUI
	OpAUIPC
	OpJAL
	OpJALR
	OpBEQ
	OpBNE
	OpBLT
	OpBGE
	OpBLTU
	OpBGEU
	OpLB
	OpLH
	OpLW
	OpLD
	OpLBU
	OpLHU
	OpLWU
	OpSB
	OpSH
	OpSW
	OpSD
	OpADDI
	OpSLTI
	OpSLTIU
	OpXORI
	OpORI
	OpANDI
	OpSLLI
	OpSRLI
	OpSRAI
	OpADDIW
	OpSLLIW
	OpSRLIW
	OpSRAIW
	OpADD
	OpSUB
	OpSLL
	OpSLT
	OpSLTU
	OpXOR
	OpSRL
	OpSRA
	OpOR
	OpAND
	OpADDW
	OpSUBW
	OpSLLW
	OpSRLW
	OpSRAW
	OpFENCE
	OpECALL
	OpEBREAK
	OpCSRRW
	OpCSRRS
	OpCSRRC
	OpCSRRWI
	OpCSRRSI
	OpCSRRCI
	OpMRET
	OpSRET
	OpWFI
	OpSFenceVMA
)

// Instruction represents a decoded RISC-V instruction.
type Instruction struct {
	// Op is the operation this instruction performs.
	Op Op

	// Rd is the destination register (x0-x31).
	Rd uint8

	// Rs1 and Rs2 are the source registers.
	Rs1 uint8
	Rs2 uint8

	// Imm is the sign-extended immediate operand, if the format has one.
	Imm int64

	// CSR is the 12-bit CSR address for CSR instructions.
	CSR uint16

	// Zimm is the 5-bit zero-extended immediate used by CSRRWI/CSRRSI/CSRRCI.
	Zimm uint8
}

// IsCSR reports whether the instruction is a CSR read/modify operation.
func (i *Instruction) IsCSR() bool {
	switch i.Op {
	case OpCSRRW, OpCSRRS, OpCSRRC, OpCSRRWI, OpCSRRSI, OpCSRRCI:
		return true
	}
	return false
}

// IsBranch reports whether the instruction may redirect the PC.
func (i *Instruction) IsBranch() bool {
	switch i.Op {
	case OpJAL, OpJALR, OpBEQ, OpBNE, OpBLT, OpBGE, OpBLTU, OpBGEU:
		return true
	}
	return false
}

// WritesRd reports whether the instruction writes a result register.
func (i *Instruction) WritesRd() bool {
	switch i.Op {
	case OpBEQ, OpBNE, OpBLT, OpBGE, OpBLTU, OpBGEU,
		OpSB, OpSH, OpSW, OpSD,
		OpFENCE, OpECALL, OpEBREAK, OpMRET, OpSRET, OpWFI, OpSFenceVMA:
		return false
	}
	return i.Rd != 0
}

// Privilege encodings used by the legality pre-checks. These match the
// architectural 2-bit encoding, U < S < M.
const (
	PrivU uint8 = 0
	PrivS uint8 = 1
	PrivM uint8 = 3
)

// ReturnPermitted reports whether a trap-return instruction is legal at the
// given privilege level. MRET requires M. SRET requires at least S, and is
// additionally illegal in S-mode when the trap-SRET (TSR) status bit is set.
// Non-return operations are always permitted.
func ReturnPermitted(op Op, priv uint8, tsr bool) bool {
	switch op {
	case OpMRET:
		return priv == PrivM
	case OpSRET:
		if priv == PrivM {
			return true
		}
		return priv == PrivS && !tsr
	}
	return true
}
