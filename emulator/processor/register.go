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

import (
	"fmt"
	"strings"
)

const NumGeneral = 5

// Registers is the execution context of a process. It is a plain value so
// saved snapshots can be copied and transformed freely.
type Registers struct {
	R [NumGeneral]int

	PC, SP,
	BASE, LIM int
}

func (r *Registers) Reset() {
	*r = Registers{}
}

func (r *Registers) Reg(n int) (int, bool) {
	if n < 0 || n >= NumGeneral {
		return 0, false
	}
	return r.R[n], true
}

func (r *Registers) SetReg(n, v int) bool {
	if n < 0 || n >= NumGeneral {
		return false
	}
	r.R[n] = v
	return true
}

// Size is the number of words owned by the context.
func (r Registers) Size() int {
	return r.LIM - r.BASE
}

// Relocate returns a copy of the context moved to a new base address.
func (r Registers) Relocate(base int) Registers {
	delta := base - r.BASE
	r.BASE += delta
	r.LIM += delta
	r.SP += delta
	r.PC += delta
	return r
}

// Valid reports whether BASE <= SP <= LIM holds.
func (r Registers) Valid() bool {
	return r.BASE <= r.SP && r.SP <= r.LIM
}

// Runnable reports whether PC is inside [BASE, min(SP, LIM)).
func (r Registers) Runnable() bool {
	return r.PC >= r.BASE && r.PC < r.LIM && r.PC < r.SP
}

func (r Registers) String() string {
	var sb strings.Builder
	for i, v := range r.R {
		fmt.Fprintf(&sb, "r%d=%d ", i, v)
	}
	fmt.Fprintf(&sb, "PC=%d SP=%d BASE=%d LIM=%d", r.PC, r.SP, r.BASE, r.LIM)
	return sb.String()
}
