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

const (
	SyscallExit     = 0
	SyscallOutput   = 1
	SyscallGetPID   = 2
	SyscallOpen     = 3
	SyscallClose    = 4
	SyscallRead     = 5
	SyscallWrite    = 6
	SyscallExec     = 7
	SyscallYield    = 8
	SyscallCoreDump = 9
)

// Results pushed by device system calls.
const (
	Success         = 0
	ErrDevDNE       = -1
	ErrDevNoShare   = -2
	ErrDevIsOpen    = -3
	ErrDevNotOpen   = -4
	ErrDevReadOnly  = -5
	ErrDevWriteOnly = -6
)

// SystemCall dispatches on the call number at the top of the stack.
func (k *Kernel) SystemCall() error {
	if k.current == nil {
		return fmt.Errorf("%w: system call without a process", ErrIllegalInterrupt)
	}

	call, ok := k.pop()
	if !ok {
		return k.stackFault(false)
	}

	log.WithFields(log.Fields{
		"pid":  k.current.PID,
		"call": call,
	}).Trace("System call")

	switch call {
	case SyscallExit:
		return k.removeCurrentProcess()
	case SyscallOutput:
		return k.syscallOutput()
	case SyscallGetPID:
		return k.reply(k.current.PID)
	case SyscallOpen:
		return k.syscallOpen()
	case SyscallClose:
		return k.syscallClose()
	case SyscallRead:
		return k.syscallRead()
	case SyscallWrite:
		return k.syscallWrite()
	case SyscallExec:
		return k.syscallExec()
	case SyscallYield:
		return k.scheduleNewProcess()
	case SyscallCoreDump:
		return k.syscallCoreDump()
	default:
		log.WithField("pid", k.current.PID).Warnf("Unknown system call: %d", call)
		return nil
	}
}

// popArgs pops n values in stack order. On underflow the process has
// already been terminated and ok is false.
func (k *Kernel) popArgs(n int) (args []int, ok bool, err error) {
	args = make([]int, n)
	for i := range args {
		v, ok := k.pop()
		if !ok {
			return nil, false, k.stackFault(false)
		}
		args[i] = v
	}
	return args, true, nil
}

func (k *Kernel) reply(v int) error {
	if !k.push(v) {
		return k.stackFault(true)
	}
	return nil
}

// retry puts the call back on the stack and rewinds PC so the TRAP runs
// again once the process is rescheduled. vs are pushed in order.
func (k *Kernel) retry(vs ...int) error {
	for _, v := range vs {
		if !k.push(v) {
			return k.stackFault(true)
		}
	}
	k.cpu.GetRegisters().PC -= processor.InstrSize
	return nil
}

func (k *Kernel) blockAndSchedule(dev, op, addr int) error {
	k.current.block(dev, op, addr)
	return k.scheduleNewProcess()
}

func (k *Kernel) syscallOutput() error {
	v, ok := k.pop()
	if !ok {
		return k.stackFault(false)
	}
	fmt.Fprintf(k.cfg.Output, "OUTPUT: %d\n", v)
	return nil
}

func (k *Kernel) syscallOpen() error {
	id, ok := k.pop()
	if !ok {
		return k.stackFault(false)
	}

	d := k.getDeviceInfo(id)
	switch {
	case d == nil:
		return k.reply(ErrDevDNE)
	case d.contains(k.current):
		return k.reply(ErrDevIsOpen)
	case !d.dev.IsSharable() && len(d.procs) > 0:
		if k.cfg.NonBlockingOpen {
			return k.reply(ErrDevNoShare)
		}
		if err := k.retry(id, SyscallOpen); err != nil {
			return err
		}
		return k.blockAndSchedule(id, SyscallOpen, 0)
	}

	d.add(k.current)
	return k.reply(Success)
}

func (k *Kernel) syscallClose() error {
	id, ok := k.pop()
	if !ok {
		return k.stackFault(false)
	}

	d := k.getDeviceInfo(id)
	switch {
	case d == nil:
		return k.reply(ErrDevDNE)
	case !d.contains(k.current):
		return k.reply(ErrDevNotOpen)
	}

	k.closeDevice(d, k.current)
	return k.reply(Success)
}

// checkAccess validates a READ or WRITE in order and returns the error code
// to push, or Success.
func (k *Kernel) checkAccess(d *deviceInfo, write bool) int {
	switch {
	case d == nil:
		return ErrDevDNE
	case !d.contains(k.current):
		return ErrDevNotOpen
	case write && !d.dev.IsWriteable():
		return ErrDevReadOnly
	case !write && !d.dev.IsReadable():
		return ErrDevWriteOnly
	}
	return Success
}

func (k *Kernel) syscallRead() error {
	args, ok, err := k.popArgs(2)
	if !ok {
		return err
	}
	addr, id := args[0], args[1]

	d := k.getDeviceInfo(id)
	if code := k.checkAccess(d, false); code != Success {
		return k.reply(code)
	}

	if !d.dev.IsAvailable() {
		if err := k.retry(id, addr, SyscallRead); err != nil {
			return err
		}
		return k.blockAndSchedule(id, opAvailable, 0)
	}

	d.dev.Read(addr)
	return k.blockAndSchedule(id, SyscallRead, addr)
}

func (k *Kernel) syscallWrite() error {
	args, ok, err := k.popArgs(3)
	if !ok {
		return err
	}
	val, addr, id := args[0], args[1], args[2]

	d := k.getDeviceInfo(id)
	if code := k.checkAccess(d, true); code != Success {
		return k.reply(code)
	}

	if !d.dev.IsAvailable() {
		if err := k.retry(id, addr, val, SyscallWrite); err != nil {
			return err
		}
		return k.blockAndSchedule(id, opAvailable, 0)
	}

	d.dev.Write(addr, val)
	return k.blockAndSchedule(id, SyscallWrite, addr)
}

// syscallExec starts one of the least loaded programs, chosen at random.
// A failed load leaves the caller running.
func (k *Kernel) syscallExec() error {
	if len(k.programs) == 0 {
		log.Error(ErrNoPrograms)
		return ErrNoPrograms
	}

	least := k.programs[0].loads
	for _, e := range k.programs[1:] {
		if e.loads < least {
			least = e.loads
		}
	}

	var cands []*programEntry
	for _, e := range k.programs {
		if e.loads == least {
			cands = append(cands, e)
		}
	}
	e := cands[k.rnd.Intn(len(cands))]

	if _, err := k.CreateProcess(e.prog, AllocSize(e.prog)); err != nil {
		log.WithField("program", e.name).Warnf("Could not execute program: %v", err)
		return nil
	}
	e.loads++
	return nil
}
