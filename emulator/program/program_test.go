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

package program

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/andreas-jonsson/virtualsos/emulator/processor"
	"github.com/spf13/afero"
)

const writer = `
# open device 3 and write a value to it
.alloc 64
SET r0 3
PUSH r0
SET r1 3      ; syscall OPEN
PUSH r1
TRAP
15 0 0 0
`

func TestParse(t *testing.T) {
	p, err := Parse("writer", strings.NewReader(writer))
	if err != nil {
		t.Fatal(err)
	}

	if p.DefaultAllocSize() != 64 {
		t.Errorf("expected alloc size 64, got %d", p.DefaultAllocSize())
	}
	if p.Size() != 6*processor.InstrSize {
		t.Errorf("expected size %d, got %d", 6*processor.InstrSize, p.Size())
	}

	code := p.Instructions()
	expected := []processor.Instruction{
		{processor.SET, 0, 3, 0},
		{processor.PUSH, 0, 0, 0},
		{processor.SET, 1, 3, 0},
		{processor.PUSH, 1, 0, 0},
		{processor.TRAP, 0, 0, 0},
		{processor.TRAP, 0, 0, 0},
	}
	if !reflect.DeepEqual(code, expected) {
		t.Errorf("unexpected code: %v", code)
	}

	words := p.Export()
	if len(words) != p.Size() || words[0] != processor.SET || words[2] != 3 {
		t.Errorf("unexpected image: %v", words)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name, src string
		err       error
	}{
		{"empty", "# nothing\n\n", ErrEmpty},
		{"mnemonic", "JUMP 4\n", ErrSyntax},
		{"register", "SET r9 1\n", ErrSyntax},
		{"operands", "ADD r0 r1 r2 r3\n", ErrOperand},
		{"alloc", ".alloc many\n", ErrSyntax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.name, strings.NewReader(tt.src)); !errors.Is(err, tt.err) {
				t.Errorf("expected %v, got %v", tt.err, err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "progs/writer.prog", []byte(writer), 0644); err != nil {
		t.Fatal(err)
	}

	p, err := Load(fs, "progs/writer.prog")
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "writer" {
		t.Errorf("expected name writer, got %q", p.Name)
	}

	if _, err := Load(fs, "progs/missing.prog"); err == nil {
		t.Error("expected error for missing file")
	}
}
