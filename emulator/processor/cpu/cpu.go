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

package cpu

import (
	"errors"

	"github.com/andreas-jonsson/virtualsos/emulator/peripheral/pit"
	"github.com/andreas-jonsson/virtualsos/emulator/processor"
)

const DefaultClockFrequency = 15

var ErrNoTrapHandler = errors.New("no trap handler installed")

// Tracer observes every instruction right after it has been fetched.
type Tracer interface {
	Trace(pc int, instr processor.Instruction, regs processor.Registers)
}

type CPU struct {
	processor.Registers

	ticks int
	stats processor.Stats

	mmu    processor.MMU
	pic    processor.InterruptController
	th     processor.TrapHandler
	clock  pit.Device
	tracer Tracer
}

func NewCPU(mmu processor.MMU, pic processor.InterruptController) *CPU {
	return &CPU{
		mmu:   mmu,
		pic:   pic,
		clock: pit.Device{Interval: DefaultClockFrequency},
	}
}

// SetClockFrequency sets the number of ticks between clock interrupts.
// Zero disables preemption.
func (p *CPU) SetClockFrequency(ticks int) {
	p.clock.Interval = ticks
}

func (p *CPU) SetTracer(t Tracer) {
	p.tracer = t
}

func (p *CPU) Reset() {
	p.Registers.Reset()
	p.ticks = 0
	p.stats = processor.Stats{}
	p.clock.Reset()
}

func (p *CPU) GetRegisters() *processor.Registers {
	return &p.Registers
}

func (p *CPU) GetStats() processor.Stats {
	return p.stats
}

func (p *CPU) Ticks() int {
	return p.ticks
}

func (p *CPU) AddTicks(n int) {
	p.ticks += n
}

func (p *CPU) InstallTrapHandler(th processor.TrapHandler) {
	p.th = th
}

func (p *CPU) GetInterruptController() processor.InterruptController {
	return p.pic
}
