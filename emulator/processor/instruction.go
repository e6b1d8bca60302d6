/*
Copyright (c) 2019-2021 Andreas T Jonsson

This software is provided 'as-is', without any express or implied
warranty. In no event will the authors be held liable for any damages
arising from the use of this software.

Permission is granted to anyone to use this software for any purpose,
including commercial applications, and to alter it and redistribute it
freely, subject to the following restrictions:

1. The origin of this software must not be misrepresented; you must not
   claim that you wrote the original software. If you use this software
   in a product, an acknowledgment in the product documentation would be
   appreciated but is not required.
2. Altered source versions must be plainly marked as such, and must not be
   misrepresented as being the original software.
3. This notice may not be removed or altered from any source distribution.
*/

package processor

import "fmt"

// InstrSize is the number of words in one encoded instruction.
const InstrSize = 4

const (
	SET    = 0  // SET r, imm
	ADD    = 1  // ADD r1 = r2 + r3
	SUB    = 2  // SUB r1 = r2 - r3
	MUL    = 3  // MUL r1 = r2 * r3
	DIV    = 4  // DIV r1 = r2 / r3
	COPY   = 5  // COPY r1 = r2
	BRANCH = 6  // BRANCH @imm
	BNE    = 7  // BNE r1 != r2 @imm
	BLT    = 8  // BLT r1 < r2 @imm
	POP    = 9  // POP r
	PUSH   = 10 // PUSH r
	LOAD   = 11 // LOAD r1 <- @r2
	SAVE   = 12 // SAVE r1 -> @r2
	TRAP   = 15
)

var opcodeNames = map[int]string{
	SET:    "SET",
	ADD:    "ADD",
	SUB:    "SUB",
	MUL:    "MUL",
	DIV:    "DIV",
	COPY:   "COPY",
	BRANCH: "BRANCH",
	BNE:    "BNE",
	BLT:    "BLT",
	POP:    "POP",
	PUSH:   "PUSH",
	LOAD:   "LOAD",
	SAVE:   "SAVE",
	TRAP:   "TRAP",
}

// OpcodeName returns the mnemonic for op and false if op is not defined.
func OpcodeName(op int) (string, bool) {
	s, ok := opcodeNames[op]
	return s, ok
}

// Opcode looks up a mnemonic, case sensitive.
func Opcode(name string) (int, bool) {
	for op, s := range opcodeNames {
		if s == name {
			return op, true
		}
	}
	return 0, false
}

type Instruction [InstrSize]int

func (i Instruction) Op() int {
	return i[0]
}

func (i Instruction) String() string {
	switch i[0] {
	case SET:
		return fmt.Sprintf("SET R%d = %d", i[1], i[2])
	case ADD:
		return fmt.Sprintf("ADD R%d = R%d + R%d", i[1], i[2], i[3])
	case SUB:
		return fmt.Sprintf("SUB R%d = R%d - R%d", i[1], i[2], i[3])
	case MUL:
		return fmt.Sprintf("MUL R%d = R%d * R%d", i[1], i[2], i[3])
	case DIV:
		return fmt.Sprintf("DIV R%d = R%d / R%d", i[1], i[2], i[3])
	case COPY:
		return fmt.Sprintf("COPY R%d = R%d", i[1], i[2])
	case BRANCH:
		return fmt.Sprintf("BRANCH @%d", i[1])
	case BNE:
		return fmt.Sprintf("BNE (R%d != R%d) @%d", i[1], i[2], i[3])
	case BLT:
		return fmt.Sprintf("BLT (R%d < R%d) @%d", i[1], i[2], i[3])
	case POP:
		return fmt.Sprintf("POP R%d", i[1])
	case PUSH:
		return fmt.Sprintf("PUSH R%d", i[1])
	case LOAD:
		return fmt.Sprintf("LOAD R%d <-- @R%d", i[1], i[2])
	case SAVE:
		return fmt.Sprintf("SAVE R%d --> @R%d", i[1], i[2])
	case TRAP:
		return "TRAP"
	default:
		return fmt.Sprintf("?? %v", [InstrSize]int(i))
	}
}
