package insts

// Major opcode fields (bits [6:0]).
const (
	opcodeLUI    = 0x37
	opcodeAUIPC  = 0x17
	opcodeJAL    = 0x6F
	opcodeJALR   = 0x67
	opcodeBranch = 0x63
	opcodeLoad   = 0x03
	opcodeStore  = 0x23
	opcodeOpImm  = 0x13
	opcodeOpImmW = 0x1B
	opcodeOp     = 0x33
	opcodeOpW    = 0x3B
	opcodeFence  = 0x0F
	opcodeSystem = 0x73
)

// Decoder decodes RV64 instruction words.
type Decoder struct{}

// NewDecoder creates a new RISC-V decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 32-bit instruction word. Unrecognized encodings return an
// instruction with Op set to OpUnknown; the caller reports them as illegal.
func (d *Decoder) Decode(word uint32) *Instruction {
	inst := &Instruction{
		Rd:  uint8((word >> 7) & 0x1F),
		Rs1: uint8((word >> 15) & 0x1F),
		Rs2: uint8((word >> 20) & 0x1F),
	}

	switch word & 0x7F {
	case opcodeLUI:
		inst.Op = OpLUI
		inst.Imm = immU(word)
	case opcodeAUIPC:
		inst.Op = OpAUIPC
		inst.Imm = immU(word)
	case opcodeJAL:
		inst.Op = OpJAL
		inst.Imm = immJ(word)
	case opcodeJALR:
		inst.Op = OpJALR
		inst.Imm = immI(word)
	case opcodeBranch:
		d.decodeBranch(word, inst)
	case opcodeLoad:
		d.decodeLoad(word, inst)
	case opcodeStore:
		d.decodeStore(word, inst)
	case opcodeOpImm:
		d.decodeOpImm(word, inst)
	case opcodeOpImmW:
		d.decodeOpImmW(word, inst)
	case opcodeOp:
		d.decodeOp(word, inst)
	case opcodeOpW:
		d.decodeOpW(word, inst)
	case opcodeFence:
		inst.Op = OpFENCE
	case opcodeSystem:
		d.decodeSystem(word, inst)
	default:
		inst.Op = OpUnknown
	}

	return inst
}

func (d *Decoder) decodeBranch(word uint32, inst *Instruction) {
	inst.Imm = immB(word)
	switch funct3(word) {
	case 0:
		inst.Op = OpBEQ
	case 1:
		inst.Op = OpBNE
	case 4:
		inst.Op = OpBLT
	case 5:
		inst.Op = OpBGE
	case 6:
		inst.Op = OpBLTU
	case 7:
		inst.Op = OpBGEU
	default:
		inst.Op = OpUnknown
	}
}

func (d *Decoder) decodeLoad(word uint32, inst *Instruction) {
	inst.Imm = immI(word)
	switch funct3(word) {
	case 0:
		inst.Op = OpLB
	case 1:
		inst.Op = OpLH
	case 2:
		inst.Op = OpLW
	case 3:
		inst.Op = OpLD
	case 4:
		inst.Op = OpLBU
	case 5:
		inst.Op = OpLHU
	case 6:
		inst.Op = OpLWU
	default:
		inst.Op = OpUnknown
	}
}

func (d *Decoder) decodeStore(word uint32, inst *Instruction) {
	inst.Imm = immS(word)
	switch funct3(word) {
	case 0:
		inst.Op = OpSB
	case 1:
		inst.Op = OpSH
	case 2:
		inst.Op = OpSW
	case 3:
		inst.Op = OpSD
	default:
		inst.Op = OpUnknown
	}
}

func (d *Decoder) decodeOpImm(word uint32, inst *Instruction) {
	inst.Imm = immI(word)
	switch funct3(word) {
	case 0:
		inst.Op = OpADDI
	case 1:
		// RV64 shift amount is 6 bits.
		inst.Op = OpSLLI
		inst.Imm = int64((word >> 20) & 0x3F)
	case 2:
		inst.Op = OpSLTI
	case 3:
		inst.Op = OpSLTIU
	case 4:
		inst.Op = OpXORI
	case 5:
		inst.Imm = int64((word >> 20) & 0x3F)
		if word&(1<<30) != 0 {
			inst.Op = OpSRAI
		} else {
			inst.Op = OpSRLI
		}
	case 6:
		inst.Op = OpORI
	case 7:
		inst.Op = OpANDI
	}
}

func (d *Decoder) decodeOpImmW(word uint32, inst *Instruction) {
	inst.Imm = immI(word)
	switch funct3(word) {
	case 0:
		inst.Op = OpADDIW
	case 1:
		inst.Op = OpSLLIW
		inst.Imm = int64((word >> 20) & 0x1F)
	case 5:
		inst.Imm = int64((word >> 20) & 0x1F)
		if word&(1<<30) != 0 {
			inst.Op = OpSRAIW
		} else {
			inst.Op = OpSRLIW
		}
	default:
		inst.Op = OpUnknown
	}
}

func (d *Decoder) decodeOp(word uint32, inst *Instruction) {
	alt := word&(1<<30) != 0
	switch funct3(word) {
	case 0:
		if alt {
			inst.Op = OpSUB
		} else {
			inst.Op = OpADD
		}
	case 1:
		inst.Op = OpSLL
	case 2:
		inst.Op = OpSLT
	case 3:
		inst.Op = OpSLTU
	case 4:
		inst.Op = OpXOR
	case 5:
		if alt {
			inst.Op = OpSRA
		} else {
			inst.Op = OpSRL
		}
	case 6:
		inst.Op = OpOR
	case 7:
		inst.Op = OpAND
	}
}

func (d *Decoder) decodeOpW(word uint32, inst *Instruction) {
	alt := word&(1<<30) != 0
	switch funct3(word) {
	case 0:
		if alt {
			inst.Op = OpSUBW
		} else {
			inst.Op = OpADDW
		}
	case 1:
		inst.Op = OpSLLW
	case 5:
		if alt {
			inst.Op = OpSRAW
		} else {
			inst.Op = OpSRLW
		}
	default:
		inst.Op = OpUnknown
	}
}

func (d *Decoder) decodeSystem(word uint32, inst *Instruction) {
	f3 := funct3(word)
	if f3 == 0 {
		// PRIV instructions are distinguished by the full I-immediate field,
		// except SFENCE.VMA which uses funct7.
		if (word>>25)&0x7F == 0x09 {
			inst.Op = OpSFenceVMA
			return
		}
		switch word >> 20 {
		case 0x000:
			inst.Op = OpECALL
		case 0x001:
			inst.Op = OpEBREAK
		case 0x102:
			inst.Op = OpSRET
		case 0x105:
			inst.Op = OpWFI
		case 0x302:
			inst.Op = OpMRET
		default:
			inst.Op = OpUnknown
		}
		return
	}

	inst.CSR = uint16(word >> 20)
	inst.Zimm = uint8((word >> 15) & 0x1F)
	switch f3 {
	case 1:
		inst.Op = OpCSRRW
	case 2:
		inst.Op = OpCSRRS
	case 3:
		inst.Op = OpCSRRC
	case 5:
		inst.Op = OpCSRRWI
	case 6:
		inst.Op = OpCSRRSI
	case 7:
		inst.Op = OpCSRRCI
	default:
		inst.Op = OpUnknown
	}
}

func funct3(word uint32) uint32 {
	return (word >> 12) & 0x7
}

// immI extracts the sign-extended 12-bit I-type immediate.
func immI(word uint32) int64 {
	return int64(int32(word)) >> 20
}

// immS extracts the sign-extended 12-bit S-type immediate.
func immS(word uint32) int64 {
	imm := (int64(int32(word))>>25)<<5 | int64((word>>7)&0x1F)
	return imm
}

// immB extracts the sign-extended 13-bit B-type immediate.
func immB(word uint32) int64 {
	imm := (int64(int32(word))>>31)<<12 |
		int64((word>>7)&0x1)<<11 |
		int64((word>>25)&0x3F)<<5 |
		int64((word>>8)&0xF)<<1
	return imm
}

// immU extracts the sign-extended upper immediate (bits 31:12).
func immU(word uint32) int64 {
	return int64(int32(word & 0xFFFFF000))
}

// immJ extracts the sign-extended 21-bit J-type immediate.
func immJ(word uint32) int64 {
	imm := (int64(int32(word))>>31)<<20 |
		int64((word>>12)&0xFF)<<12 |
		int64((word>>20)&0x1)<<11 |
		int64((word>>21)&0x3FF)<<1
	return imm
}
