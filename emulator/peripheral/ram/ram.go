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

package ram

import (
	"github.com/andreas-jonsson/virtualsos/emulator/memory"
)

const DefaultSize = 4096

// Device is word addressed physical memory.
type Device struct {
	Size int
	mem  []int
}

func (m *Device) Name() string {
	return "RAM"
}

func (m *Device) Reset() {
	if m.Size <= 0 {
		m.Size = DefaultSize
	}
	m.mem = make([]int, m.Size)
}

func (m *Device) init() {
	if m.mem == nil {
		m.Reset()
	}
}

func (m *Device) ReadWord(addr memory.Pointer) int {
	m.init()
	if int(addr) >= len(m.mem) {
		var d memory.DummyMemory
		return d.ReadWord(addr)
	}
	return m.mem[addr]
}

func (m *Device) WriteWord(addr memory.Pointer, data int) {
	m.init()
	if int(addr) >= len(m.mem) {
		var d memory.DummyMemory
		d.WriteWord(addr, data)
		return
	}
	m.mem[addr] = data
}
