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
	"testing"

	"github.com/andreas-jonsson/virtualsos/emulator/memory"
	"github.com/andreas-jonsson/virtualsos/emulator/peripheral/ram"
	"github.com/andreas-jonsson/virtualsos/emulator/processor"
)

func TestNew(t *testing.T) {
	tests := []struct {
		size, pageSize, reserved int
		err                      error
	}{
		{4096, 16, 256, nil},
		{1024, 16, 64, nil},
		{1024, 32, 32, nil},
		{1024, 64, 64, nil},
		{1024, 12, 0, ErrPageSize},
		{1000, 16, 0, ErrMemorySize},
		{4, 1, 0, ErrMemorySize},
	}

	for _, tt := range tests {
		m, err := New(&ram.Device{Size: tt.size}, tt.size, tt.pageSize)
		if !errors.Is(err, tt.err) {
			t.Errorf("New(%d, %d): expected %v, got %v", tt.size, tt.pageSize, tt.err, err)
			continue
		}
		if err == nil && m.Reserved() != tt.reserved {
			t.Errorf("New(%d, %d): expected %d reserved words, got %d", tt.size, tt.pageSize, tt.reserved, m.Reserved())
		}
	}
}

func TestTranslate(t *testing.T) {
	r := &ram.Device{Size: 1024}
	m, err := New(r, 1024, 16)
	if err != nil {
		t.Fatal(err)
	}
	if m.PageCount() != 64 || m.PageSize() != 16 || m.Size() != 1024 {
		t.Fatalf("unexpected geometry: %d pages of %d", m.PageCount(), m.PageSize())
	}

	m.Write(100, 42)
	if v := r.ReadWord(memory.Pointer(100)); v != 42 {
		t.Errorf("identity mapping broken: RAM[100] = %d", v)
	}

	// Point page 6 at the frame of page 10.
	r.WriteWord(6, 160)
	if p, _ := m.Translate(100); p != 164 {
		t.Errorf("expected physical 164, got %v", p)
	}
	m.Write(100, 7)
	if v := r.ReadWord(164); v != 7 {
		t.Errorf("remapped write went elsewhere: RAM[164] = %d", v)
	}

	// Offset bits in a table entry are ignored.
	r.WriteWord(6, 160+5)
	if p, _ := m.Translate(100); p != 164 {
		t.Errorf("expected page mask to apply, got %v", p)
	}

	m.Reset()
	if p, _ := m.Translate(100); p != 100 {
		t.Errorf("reset did not restore identity mapping: %v", p)
	}

	if _, err := m.Translate(1024); !errors.Is(err, ErrNoPage) {
		t.Errorf("expected ErrNoPage, got %v", err)
	}
	if _, err := m.Translate(-1); !errors.Is(err, ErrNoPage) {
		t.Errorf("expected ErrNoPage, got %v", err)
	}
	if v := m.Read(5000); v != 0 {
		t.Errorf("expected 0 from unmapped read, got %d", v)
	}
}

func TestFetch(t *testing.T) {
	m, err := New(&ram.Device{Size: 1024}, 1024, 16)
	if err != nil {
		t.Fatal(err)
	}
	for i, w := range []int{processor.ADD, 1, 2, 3} {
		m.Write(200+i, w)
	}
	if instr := m.Fetch(200); instr != (processor.Instruction{processor.ADD, 1, 2, 3}) {
		t.Errorf("unexpected instruction: %v", instr)
	}
}
