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
	log "github.com/sirupsen/logrus"
)

var idleImage = []int{
	processor.SET, 0, 0, 0,
	processor.SET, 0, 0, 0,
	processor.PUSH, 0, 0, 0,
	processor.TRAP, 0, 0, 0,
}

// getNextProcess returns the ready process with the highest priority. Ties
// go to the process created first.
func (k *Kernel) getNextProcess() *PCB {
	var (
		next    *PCB
		highest = -1.0
		now     = k.cpu.Ticks()
	)
	for _, p := range k.procs {
		if p.isBlocked() {
			continue
		}
		if pri := p.priority(now); pri > highest {
			highest = pri
			next = p
		}
	}
	return next
}

// scheduleNewProcess switches to the best ready process. If every process
// is blocked an idle process is started. An empty process table halts.
func (k *Kernel) scheduleNewProcess() error {
	if len(k.procs) == 0 {
		return processor.ErrCPUHalt
	}

	next := k.getNextProcess()
	if next == nil {
		return k.createIdleProcess()
	}
	if next == k.current {
		return nil
	}

	if k.current != nil {
		k.current.save(k.cpu, k.cfg.SwitchCost)
	}
	next.restore(k.cpu, k.cfg.SwitchCost)
	k.current = next
	k.switches++

	log.WithField("pid", next.PID).Trace("Context switch")
	return nil
}

func (k *Kernel) createIdleProcess() error {
	if _, err := k.createProcess(IdlePID, idleImage, len(idleImage)*2); err != nil {
		log.Error(err)
		return fmt.Errorf("%w: %v", ErrIdleAllocation, err)
	}
	return nil
}

// CreateProcess loads prog into a new block of at least allocSize words and
// makes it the running process.
func (k *Kernel) CreateProcess(prog Program, allocSize int) (int, error) {
	pid := k.nextPID
	if _, err := k.createProcess(pid, prog.Export(), allocSize); err != nil {
		return 0, err
	}
	k.nextPID++
	return pid, nil
}

func (k *Kernel) createProcess(pid int, image []int, allocSize int) (*PCB, error) {
	// Compaction moves saved snapshots only, so the live registers must be
	// captured before allocating. The caller only becomes ready once the
	// allocation succeeds.
	parent := k.current
	if parent != nil {
		parent.regs = *k.cpu.GetRegisters()
	}

	if allocSize < len(image) {
		allocSize = len(image)
	}
	b, err := k.alloc.Allocate(allocSize)
	if err != nil {
		log.WithField("pid", pid).Warn(err)
		return nil, err
	}
	if parent != nil {
		parent.ready(k.cpu, k.cfg.SwitchCost)
	}

	for i, w := range image {
		k.mmu.Write(b.Addr+i, w)
	}

	regs := k.cpu.GetRegisters()
	regs.Reset()
	regs.BASE = b.Addr
	regs.LIM = b.End()
	regs.PC = regs.BASE
	regs.SP = regs.LIM

	p := newPCB(pid)
	p.save(k.cpu, k.cfg.SwitchCost)
	k.procs = append(k.procs, p)
	k.current = p
	k.switches++

	log.WithFields(log.Fields{
		"pid":  pid,
		"base": b.Addr,
		"lim":  b.End(),
	}).Log(lifecycleLevel(pid), "Process created")
	k.dumpTables()
	return p, nil
}

// lifecycleLevel keeps the idle process out of the info log.
func lifecycleLevel(pid int) log.Level {
	if pid == IdlePID {
		return log.DebugLevel
	}
	return log.InfoLevel
}

// removeCurrentProcess terminates the running process and reschedules.
func (k *Kernel) removeCurrentProcess() error {
	if p := k.current; p != nil {
		p.regs = *k.cpu.GetRegisters()
		k.current = nil
		if err := k.removeProcess(p); err != nil {
			return err
		}
	}
	return k.scheduleNewProcess()
}

// removeProcess frees the memory and devices of a process that is not
// running and drops it from the process table.
func (k *Kernel) removeProcess(p *PCB) error {
	for i, q := range k.procs {
		if q == p {
			k.procs = append(k.procs[:i], k.procs[i+1:]...)
			break
		}
	}

	if err := k.alloc.Free(p.Region()); err != nil {
		return err
	}
	k.releaseDevices(p)

	if p.avgStarve > 0 {
		k.starveTotal += p.avgStarve
		k.starveCount++
	}

	log.WithFields(log.Fields{
		"pid":  p.PID,
		"base": p.regs.BASE,
		"lim":  p.regs.LIM,
	}).Log(lifecycleLevel(p.PID), "Process terminated")
	k.dumpTables()
	return nil
}

// Exhausted is called when the running process has left its code region.
func (k *Kernel) Exhausted() error {
	if k.current == nil {
		return k.scheduleNewProcess()
	}
	log.WithField("pid", k.current.PID).Debug("Process ran out of instructions")
	return k.removeCurrentProcess()
}

func (k *Kernel) selectBlockedProcess(dev, op, addr int) *PCB {
	for _, p := range k.procs {
		if p.isBlockedFor(dev, op, addr) {
			return p
		}
	}
	return nil
}

// push writes to the stack of the running process.
func (k *Kernel) push(v int) bool {
	regs := k.cpu.GetRegisters()
	if regs.SP <= regs.BASE {
		return false
	}
	regs.SP--
	k.mmu.Write(regs.SP, v)
	return true
}

func (k *Kernel) pop() (int, bool) {
	regs := k.cpu.GetRegisters()
	if regs.SP >= regs.LIM {
		return 0, false
	}
	v := k.mmu.Read(regs.SP)
	regs.SP++
	return v, true
}

// pushTo writes to the stack of p. A process that is not running and whose
// stack is full is terminated and the remaining values are dropped.
func (k *Kernel) pushTo(p *PCB, vs ...int) error {
	for _, v := range vs {
		if p == k.current {
			if !k.push(v) {
				return k.stackFault(true)
			}
			continue
		}

		if p.regs.SP <= p.regs.BASE {
			log.WithField("pid", p.PID).Warn("Stack overflow on completion, terminating process")
			return k.removeProcess(p)
		}
		p.regs.SP--
		k.mmu.Write(p.regs.SP, v)
	}
	return nil
}

func (k *Kernel) stackFault(overflow bool) error {
	kind := "underflow"
	if overflow {
		kind = "overflow"
	}
	if k.current != nil {
		log.WithField("pid", k.current.PID).Warnf("Stack %s, exiting process", kind)
	}
	return k.removeCurrentProcess()
}
