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

package mmu

import (
	"errors"
	"fmt"

	"github.com/andreas-jonsson/virtualsos/emulator/memory"
	"github.com/andreas-jonsson/virtualsos/emulator/processor"
	log "github.com/sirupsen/logrus"
)

const DefaultPageSize = 16

var (
	ErrPageSize   = errors.New("page size must be a power of two")
	ErrMemorySize = errors.New("memory size must be a multiple of the page size")
	ErrNoPage     = errors.New("address has no page")
)

// Device translates logical addresses through a page table that lives in
// the first words of RAM. Entry n holds the physical address of page n's
// frame. Frames are identity mapped on reset.
type Device struct {
	ram memory.Memory

	size, pageSize, numPages int
	offsetMask, pageMask     int
	reserved                 int
}

func New(ram memory.Memory, size, pageSize int) (*Device, error) {
	if pageSize <= 0 || pageSize&(pageSize-1) != 0 {
		return nil, ErrPageSize
	}
	if size <= 0 || size%pageSize != 0 {
		return nil, ErrMemorySize
	}

	m := &Device{
		ram:        ram,
		size:       size,
		pageSize:   pageSize,
		numPages:   size / pageSize,
		offsetMask: pageSize - 1,
	}
	m.pageMask = ^m.offsetMask

	m.reserved = m.numPages
	if r := m.reserved % pageSize; r != 0 {
		m.reserved += pageSize - r
	}
	if m.reserved >= size {
		return nil, fmt.Errorf("%w: page table fills memory", ErrMemorySize)
	}

	m.Reset()
	return m, nil
}

func (m *Device) Name() string {
	return "Memory Management Unit"
}

// Reset rewrites the page table with the identity mapping.
func (m *Device) Reset() {
	for page := 0; page < m.numPages; page++ {
		m.ram.WriteWord(memory.Pointer(page), page*m.pageSize)
	}
}

func (m *Device) Translate(addr int) (memory.Pointer, error) {
	if addr < 0 || addr >= m.size {
		return 0, fmt.Errorf("%w: %d", ErrNoPage, addr)
	}
	page := addr / m.pageSize
	frame := m.ram.ReadWord(memory.Pointer(page)) & m.pageMask
	return memory.Pointer(frame + (addr & m.offsetMask)), nil
}

func (m *Device) Read(addr int) int {
	p, err := m.Translate(addr)
	if err != nil {
		log.Warn(err)
		return 0
	}
	return m.ram.ReadWord(p)
}

func (m *Device) Write(addr, data int) {
	p, err := m.Translate(addr)
	if err != nil {
		log.Warn(err)
		return
	}
	m.ram.WriteWord(p, data)
}

func (m *Device) Fetch(pc int) processor.Instruction {
	var instr processor.Instruction
	for i := range instr {
		instr[i] = m.Read(pc + i)
	}
	return instr
}

func (m *Device) PageSize() int {
	return m.pageSize
}

func (m *Device) PageCount() int {
	return m.numPages
}

func (m *Device) Size() int {
	return m.size
}

// Reserved is the first address past the page table region.
func (m *Device) Reserved() int {
	return m.reserved
}
