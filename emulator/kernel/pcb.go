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

package kernel

import (
	"fmt"

	"github.com/andreas-jonsson/virtualsos/emulator/processor"
)

const (
	IdlePID  = 999
	FirstPID = 1001
)

// opAvailable marks a process waiting for a busy device to become free.
const opAvailable = -1

type blockReason struct {
	dev, op, addr int
}

// PCB is the kernel's record of one process. regs is only meaningful while
// the process is not current.
type PCB struct {
	PID int

	regs    processor.Registers
	blocked *blockReason

	numReady  int
	lastReady int
	maxStarve int
	avgStarve float64
}

func newPCB(pid int) *PCB {
	return &PCB{PID: pid, lastReady: -1, maxStarve: -1}
}

func (p *PCB) Region() Block {
	return Block{Addr: p.regs.BASE, Size: p.regs.Size()}
}

func (p *PCB) Relocate(base int) {
	p.regs = p.regs.Relocate(base)
}

// save snapshots the live context and records a transition to ready.
func (p *PCB) save(cpu processor.Processor, cost int) {
	p.regs = *cpu.GetRegisters()
	p.ready(cpu, cost)
}

func (p *PCB) ready(cpu processor.Processor, cost int) {
	cpu.AddTicks(cost)
	p.numReady++
	p.lastReady = cpu.Ticks()
}

// restore loads the snapshot into the CPU and updates starvation stats.
// The wait of a running process restarts from zero.
func (p *PCB) restore(cpu processor.Processor, cost int) {
	cpu.AddTicks(cost)
	*cpu.GetRegisters() = p.regs

	starve := cpu.Ticks() - p.lastReady
	if starve > p.maxStarve {
		p.maxStarve = starve
	}
	if p.numReady > 0 {
		n := float64(p.numReady)
		p.avgStarve = p.avgStarve*(n-1)/n + float64(starve)/n
	}
	p.lastReady = cpu.Ticks()
}

func (p *PCB) block(dev, op, addr int) {
	p.blocked = &blockReason{dev: dev, op: op, addr: addr}
}

func (p *PCB) unblock(now int) {
	p.blocked = nil
	p.lastReady = now
}

func (p *PCB) isBlocked() bool {
	return p.blocked != nil
}

// isBlockedFor matches a blocked process against a device event. Waits on
// OPEN and on availability ignore the address.
func (p *PCB) isBlockedFor(dev, op, addr int) bool {
	b := p.blocked
	if b == nil || b.dev != dev || b.op != op {
		return false
	}
	return op == SyscallOpen || op == opAvailable || b.addr == addr
}

// priority favours processes that waited long relative to how often they
// have been made ready.
func (p *PCB) priority(now int) float64 {
	if p.numReady == 0 {
		return 0
	}
	return float64(now-p.lastReady) / float64(p.numReady)
}

func (p *PCB) String() string {
	s := fmt.Sprintf("Process id %d ", p.PID)
	if b := p.blocked; b != nil {
		switch b.op {
		case SyscallOpen:
			s += "is BLOCKED for OPEN"
		case SyscallRead:
			s += fmt.Sprintf("is BLOCKED for READ @%d", b.addr)
		case SyscallWrite:
			s += fmt.Sprintf("is BLOCKED for WRITE @%d", b.addr)
		default:
			s += "is BLOCKED for availability"
		}
		s += fmt.Sprintf(" on device #%d: ", b.dev)
	}
	return s + fmt.Sprintf("%v max starve: %d avg starve: %.2f", p.regs, p.maxStarve, p.avgStarve)
}
