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
	"errors"
	"fmt"
)

type Stats struct {
	NumInstructions uint64
	NumInterrupts   uint32
	NumSyscalls     uint32
	NumClocks       uint32
}

var (
	// ErrCPUHalt is returned when there is nothing left to run.
	ErrCPUHalt = errors.New("CPU HALT")
	// ErrInterruptNotHandled is returned for interrupt kinds the CPU cannot route.
	ErrInterruptNotHandled = errors.New("interrupt not handled")
)

// InterruptKind tags a device completion record.
type InterruptKind int

const (
	IntReadDone InterruptKind = iota
	IntWriteDone
)

func (k InterruptKind) String() string {
	switch k {
	case IntReadDone:
		return "READ_DONE"
	case IntWriteDone:
		return "WRITE_DONE"
	default:
		return fmt.Sprintf("INT(%d)", int(k))
	}
}

// Interrupt is produced by a device and consumed exactly once by the CPU.
type Interrupt struct {
	Kind   InterruptKind
	Device int
	Addr   int
	Data   int
}

type InterruptController interface {
	IRQ(Interrupt)
	IsEmpty() bool
	GetInterrupt() (Interrupt, error)
}

// TrapHandler is the kernel side of the CPU. Every method may switch the
// live register context. A non-nil error halts the simulation.
type TrapHandler interface {
	SystemCall() error
	InterruptClock() error
	InterruptIllegalMemoryAccess(addr int) error
	InterruptDivideByZero() error
	InterruptIllegalInstruction(instr Instruction) error
	InterruptStackFault(overflow bool) error
	InterruptIOReadComplete(dev, addr, data int) error
	InterruptIOWriteComplete(dev, addr int) error
}

// MMU translates logical addresses and performs raw word access.
type MMU interface {
	Read(addr int) int
	Write(addr, data int)
	Fetch(pc int) Instruction

	PageSize() int
	PageCount() int
	Size() int
	Reserved() int
}

type Processor interface {
	GetRegisters() *Registers
	GetStats() Stats

	Ticks() int
	AddTicks(n int)

	InstallTrapHandler(th TrapHandler)
	GetInterruptController() InterruptController
}
