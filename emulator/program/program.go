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
	"bufio"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/andreas-jonsson/virtualsos/emulator/processor"
	"github.com/spf13/afero"
)

var (
	ErrSyntax  = errors.New("syntax error")
	ErrEmpty   = errors.New("program has no instructions")
	ErrOperand = errors.New("too many operands")
)

// Program is a loadable image of fixed width instructions.
type Program struct {
	Name string

	code      []processor.Instruction
	allocSize int
}

func New(name string, code []processor.Instruction, allocSize int) *Program {
	return &Program{Name: name, code: code, allocSize: allocSize}
}

// Export returns the flat word image.
func (p *Program) Export() []int {
	words := make([]int, 0, len(p.code)*processor.InstrSize)
	for _, instr := range p.code {
		words = append(words, instr[:]...)
	}
	return words
}

func (p *Program) Instructions() []processor.Instruction {
	return p.code
}

// Size is the image size in words.
func (p *Program) Size() int {
	return len(p.code) * processor.InstrSize
}

// DefaultAllocSize is the declared allocation or zero.
func (p *Program) DefaultAllocSize() int {
	return p.allocSize
}

// Load reads a program image from fs. The program is named after the file.
func Load(fs afero.Fs, path string) (*Program, error) {
	fp, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer fp.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Parse(name, fp)
}

// Parse reads the text form of a program. Each line holds one instruction,
// either as a mnemonic with register or immediate operands or as raw words.
// Text after '#' or ';' is ignored and ".alloc N" declares the default
// allocation size.
func Parse(name string, r io.Reader) (*Program, error) {
	p := &Program{Name: name}
	scanner := bufio.NewScanner(r)

	for ln := 1; scanner.Scan(); ln++ {
		line := scanner.Text()
		if i := strings.IndexAny(line, "#;"); i >= 0 {
			line = line[:i]
		}

		fields := strings.FieldsFunc(line, func(r rune) bool {
			return r == ' ' || r == '\t' || r == ','
		})
		if len(fields) == 0 {
			continue
		}

		if fields[0] == ".alloc" {
			if len(fields) != 2 {
				return nil, fmt.Errorf("%s:%d: %w: .alloc takes one value", name, ln, ErrSyntax)
			}
			n, err := strconv.Atoi(fields[1])
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%s:%d: %w: bad allocation size %q", name, ln, ErrSyntax, fields[1])
			}
			p.allocSize = n
			continue
		}

		instr, err := parseInstruction(fields)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", name, ln, err)
		}
		p.code = append(p.code, instr)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(p.code) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmpty)
	}
	return p, nil
}

func parseInstruction(fields []string) (processor.Instruction, error) {
	var instr processor.Instruction
	if len(fields) > processor.InstrSize {
		return instr, ErrOperand
	}

	op, ok := processor.Opcode(strings.ToUpper(fields[0]))
	if !ok {
		n, err := strconv.Atoi(fields[0])
		if err != nil {
			return instr, fmt.Errorf("%w: unknown mnemonic %q", ErrSyntax, fields[0])
		}
		op = n
	}
	instr[0] = op

	for i, f := range fields[1:] {
		v, err := parseOperand(f)
		if err != nil {
			return instr, err
		}
		instr[i+1] = v
	}
	return instr, nil
}

func parseOperand(s string) (int, error) {
	if len(s) > 1 && (s[0] == 'r' || s[0] == 'R') {
		n, err := strconv.Atoi(s[1:])
		if err != nil || n < 0 || n >= processor.NumGeneral {
			return 0, fmt.Errorf("%w: bad register %q", ErrSyntax, s)
		}
		return n, nil
	}

	n, err := strconv.Atoi(strings.TrimPrefix(s, "@"))
	if err != nil {
		return 0, fmt.Errorf("%w: bad operand %q", ErrSyntax, s)
	}
	return n, nil
}
