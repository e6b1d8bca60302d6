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

func (k *Kernel) pid() int {
	if k.current == nil {
		return 0
	}
	return k.current.PID
}

func (k *Kernel) InterruptIllegalMemoryAccess(addr int) error {
	log.WithFields(log.Fields{"pid": k.pid(), "addr": addr}).Error("Illegal memory access")
	return fmt.Errorf("%w: address %d in process %d", ErrIllegalMemoryAccess, addr, k.pid())
}

func (k *Kernel) InterruptDivideByZero() error {
	log.WithField("pid", k.pid()).Error("Divide by zero")
	return fmt.Errorf("%w: process %d", ErrDivideByZero, k.pid())
}

func (k *Kernel) InterruptIllegalInstruction(instr processor.Instruction) error {
	log.WithFields(log.Fields{"pid": k.pid(), "instr": [processor.InstrSize]int(instr)}).Error("Illegal instruction")
	return fmt.Errorf("%w: %v in process %d", ErrIllegalInstruction, [processor.InstrSize]int(instr), k.pid())
}

// InterruptStackFault exits the running process.
func (k *Kernel) InterruptStackFault(overflow bool) error {
	return k.stackFault(overflow)
}

// InterruptClock is the preemption point.
func (k *Kernel) InterruptClock() error {
	return k.scheduleNewProcess()
}

// InterruptIOReadComplete pushes data and then Success to the process
// waiting on the read.
func (k *Kernel) InterruptIOReadComplete(dev, addr, data int) error {
	if err := k.completeIO(dev, SyscallRead, addr, data, Success); err != nil {
		return err
	}
	k.wakeAvailabilityWaiters(dev)
	return nil
}

// InterruptIOWriteComplete pushes Success to the process waiting on the
// write.
func (k *Kernel) InterruptIOWriteComplete(dev, addr int) error {
	if err := k.completeIO(dev, SyscallWrite, addr, Success); err != nil {
		return err
	}
	k.wakeAvailabilityWaiters(dev)
	return nil
}

func (k *Kernel) completeIO(dev, op, addr int, vs ...int) error {
	if k.getDeviceInfo(dev) == nil {
		log.WithField("dev", dev).Error("Completion from unknown device")
		return fmt.Errorf("%w: unknown device %d", ErrIllegalInterrupt, dev)
	}

	p := k.selectBlockedProcess(dev, op, addr)
	if p == nil {
		log.WithFields(log.Fields{"dev": dev, "addr": addr}).Warn("Completion interrupt but no blocked process")
		return nil
	}

	p.unblock(k.cpu.Ticks())
	return k.pushTo(p, vs...)
}
