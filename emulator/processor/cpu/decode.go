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
	"context"
	"fmt"

	"github.com/andreas-jonsson/virtualsos/emulator/processor"
	log "github.com/sirupsen/logrus"
)

// Run executes instructions until PC leaves [BASE, min(SP, LIM)), the
// context is cancelled or a trap handler reports a fatal error.
func (p *CPU) Run(ctx context.Context) error {
	for p.Runnable() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := p.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Step fetches, executes and then services at most one pending interrupt.
func (p *CPU) Step() error {
	if p.th == nil {
		return ErrNoTrapHandler
	}

	instr := p.mmu.Fetch(p.PC)
	if p.tracer != nil {
		p.tracer.Trace(p.PC, instr, p.Registers)
	}
	if log.IsLevelEnabled(log.TraceLevel) {
		log.Trace(p.Registers.String())
		log.Trace(instr.String())
	}

	p.PC += processor.InstrSize
	p.ticks++
	p.stats.NumInstructions++

	if err := p.execute(instr); err != nil {
		return err
	}
	if err := p.checkForIOInterrupt(); err != nil {
		return err
	}

	if p.clock.Expired(p.ticks) {
		p.stats.NumClocks++
		return p.th.InterruptClock()
	}
	return nil
}

func (p *CPU) execute(instr processor.Instruction) error {
	switch op := instr.Op(); op {
	case processor.SET:
		if !p.SetReg(instr[1], instr[2]) {
			return p.th.InterruptIllegalInstruction(instr)
		}
	case processor.ADD, processor.SUB, processor.MUL, processor.DIV:
		a, aok := p.Reg(instr[2])
		b, bok := p.Reg(instr[3])
		if !aok || !bok {
			return p.th.InterruptIllegalInstruction(instr)
		}

		var res int
		switch op {
		case processor.ADD:
			res = a + b
		case processor.SUB:
			res = a - b
		case processor.MUL:
			res = a * b
		case processor.DIV:
			if b == 0 {
				return p.th.InterruptDivideByZero()
			}
			res = a / b
		}

		if !p.SetReg(instr[1], res) {
			return p.th.InterruptIllegalInstruction(instr)
		}
	case processor.COPY:
		v, ok := p.Reg(instr[2])
		if !ok || !p.SetReg(instr[1], v) {
			return p.th.InterruptIllegalInstruction(instr)
		}
	case processor.BRANCH:
		return p.jump(instr[1])
	case processor.BNE, processor.BLT:
		a, aok := p.Reg(instr[1])
		b, bok := p.Reg(instr[2])
		if !aok || !bok {
			return p.th.InterruptIllegalInstruction(instr)
		}
		if (op == processor.BNE && a != b) || (op == processor.BLT && a < b) {
			return p.jump(instr[3])
		}
	case processor.POP:
		if _, ok := p.Reg(instr[1]); !ok {
			return p.th.InterruptIllegalInstruction(instr)
		}
		if p.SP >= p.LIM {
			return p.th.InterruptStackFault(false)
		}
		p.SetReg(instr[1], p.pop())
	case processor.PUSH:
		v, ok := p.Reg(instr[1])
		if !ok {
			return p.th.InterruptIllegalInstruction(instr)
		}
		if p.SP <= p.BASE {
			return p.th.InterruptStackFault(true)
		}
		p.push(v)
	case processor.LOAD, processor.SAVE:
		off, ok := p.Reg(instr[2])
		if _, rok := p.Reg(instr[1]); !ok || !rok {
			return p.th.InterruptIllegalInstruction(instr)
		}

		addr := p.BASE + off
		if !p.boundaryCheck(addr) {
			return p.th.InterruptIllegalMemoryAccess(addr)
		}

		if op == processor.LOAD {
			p.SetReg(instr[1], p.mmu.Read(addr))
		} else {
			v, _ := p.Reg(instr[1])
			p.mmu.Write(addr, v)
		}
	case processor.TRAP:
		p.stats.NumSyscalls++
		return p.th.SystemCall()
	default:
		return p.th.InterruptIllegalInstruction(instr)
	}
	return nil
}

func (p *CPU) boundaryCheck(addr int) bool {
	return addr >= p.BASE && addr < p.LIM && addr < p.SP
}

func (p *CPU) jump(offset int) error {
	addr := p.BASE + offset
	if !p.boundaryCheck(addr) {
		return p.th.InterruptIllegalMemoryAccess(addr)
	}
	p.PC = addr
	return nil
}

func (p *CPU) push(v int) {
	p.SP--
	p.mmu.Write(p.SP, v)
}

func (p *CPU) pop() int {
	v := p.mmu.Read(p.SP)
	p.SP++
	return v
}

func (p *CPU) checkForIOInterrupt() error {
	i, err := p.pic.GetInterrupt()
	if err != nil {
		return nil
	}
	p.stats.NumInterrupts++

	log.WithFields(log.Fields{
		"type": i.Kind,
		"dev":  i.Device,
		"addr": i.Addr,
		"data": i.Data,
	}).Debug("CPU received interrupt")

	switch i.Kind {
	case processor.IntReadDone:
		return p.th.InterruptIOReadComplete(i.Device, i.Addr, i.Data)
	case processor.IntWriteDone:
		return p.th.InterruptIOWriteComplete(i.Device, i.Addr)
	default:
		return fmt.Errorf("%w: %v", processor.ErrInterruptNotHandled, i.Kind)
	}
}
