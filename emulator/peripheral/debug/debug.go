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

package debug

import (
	"fmt"

	"github.com/andreas-jonsson/virtualsos/emulator/processor"
	log "github.com/sirupsen/logrus"
)

const DefaultHistorySize = 128

// Device keeps a ring buffer of the most recently executed instructions.
type Device struct {
	HistorySize int

	historyChan         chan string
	numInstructionsLost uint64
}

func (m *Device) Name() string {
	return "Instruction History"
}

func (m *Device) Reset() {
	size := m.HistorySize
	if size <= 0 {
		size = DefaultHistorySize
	}
	m.historyChan = make(chan string, size)
	m.numInstructionsLost = 0
}

// Trace records one instruction.
func (m *Device) Trace(pc int, instr processor.Instruction, regs processor.Registers) {
	if m.historyChan == nil {
		m.Reset()
	}
	m.pushHistory(fmt.Sprintf("%6d: %-24s | %v", pc-regs.BASE, instr, regs))
}

func (m *Device) pushHistory(inst string) {
	select {
	case m.historyChan <- inst:
	default:
		<-m.historyChan
		m.numInstructionsLost++
		m.historyChan <- inst
	}
}

// History returns up to num of the oldest recorded instructions, oldest
// first. num <= 0 returns everything.
func (m *Device) History(num int) []string {
	if num <= 0 {
		num = len(m.historyChan)
	}

	var res []string
	for i, n := 0, len(m.historyChan); i < n; i++ {
		inst := <-m.historyChan
		if i < num {
			res = append(res, inst)
		}
		m.historyChan <- inst
	}
	return res
}

func (m *Device) Lost() uint64 {
	return m.numInstructionsLost
}

// ShowHistory logs the buffer at error level.
func (m *Device) ShowHistory(num int) {
	log.Errorf("| Lost instructions: %d", m.numInstructionsLost)
	for _, inst := range m.History(num) {
		log.Error(inst)
	}
}
