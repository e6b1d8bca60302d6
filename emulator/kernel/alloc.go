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
	"errors"
	"fmt"
	"sort"
)

var (
	ErrOutOfMemory = errors.New("out of memory")
	ErrBadFree     = errors.New("bad free")
)

// Block is a contiguous run of words.
type Block struct {
	Addr, Size int
}

func (b Block) End() int {
	return b.Addr + b.Size
}

func (b Block) overlaps(o Block) bool {
	return b.Addr < o.End() && o.Addr < b.End()
}

// Resident owns allocated memory and can be moved by compaction.
type Resident interface {
	Region() Block
	Relocate(base int)
}

// Words is the storage compaction copies through.
type Words interface {
	Read(addr int) int
	Write(addr, data int)
}

// Allocator manages the free list of [start, end). The free list is kept
// sorted by address and no two free blocks are ever adjacent.
type Allocator struct {
	mem       Words
	residents func() []Resident

	pageSize, start, end int
	free                 []Block
}

func NewAllocator(mem Words, start, end, pageSize int, residents func() []Resident) *Allocator {
	a := &Allocator{
		mem:       mem,
		residents: residents,
		pageSize:  pageSize,
		start:     start,
		end:       end,
	}
	if end > start {
		a.free = append(a.free, Block{Addr: start, Size: end - start})
	}
	return a
}

// RoundSize rounds size up to the page size times a power of two.
func (a *Allocator) RoundSize(size int) int {
	n := a.pageSize
	for n < size {
		n += n
	}
	return n
}

// Allocate carves a block of at least size words. If no single free block
// is large enough but the fragments are, every resident is compacted
// towards the start of memory first.
func (a *Allocator) Allocate(size int) (Block, error) {
	size = a.RoundSize(size)

	total := 0
	for i, b := range a.free {
		switch {
		case b.Size == size:
			a.free = append(a.free[:i], a.free[i+1:]...)
			return b, nil
		case b.Size > size:
			a.free[i] = Block{Addr: b.Addr + size, Size: b.Size - size}
			return Block{Addr: b.Addr, Size: size}, nil
		}
		total += b.Size
	}

	if total < size {
		return Block{}, fmt.Errorf("%w: need %d words, %d free", ErrOutOfMemory, size, total)
	}

	a.compact()
	b := a.free[0]
	if b.Size == size {
		a.free = a.free[:0]
	} else {
		a.free[0] = Block{Addr: b.Addr + size, Size: b.Size - size}
	}
	return Block{Addr: b.Addr, Size: size}, nil
}

// compact packs every resident by ascending address starting at the first
// usable word and leaves a single trailing free block.
func (a *Allocator) compact() {
	var rs []Resident
	if a.residents != nil {
		rs = a.residents()
	}
	sort.SliceStable(rs, func(i, j int) bool {
		return rs[i].Region().Addr < rs[j].Region().Addr
	})

	next := a.start
	for _, r := range rs {
		b := r.Region()
		if b.Addr != next {
			a.move(b, next)
			r.Relocate(next)
		}
		next += b.Size
	}

	a.free = a.free[:0]
	if next < a.end {
		a.free = append(a.free, Block{Addr: next, Size: a.end - next})
	}
}

func (a *Allocator) move(b Block, to int) {
	if to < b.Addr {
		for i := 0; i < b.Size; i++ {
			a.mem.Write(to+i, a.mem.Read(b.Addr+i))
		}
		return
	}
	for i := b.Size - 1; i >= 0; i-- {
		a.mem.Write(to+i, a.mem.Read(b.Addr+i))
	}
}

// Free returns b to the free list and merges adjacent blocks.
func (a *Allocator) Free(b Block) error {
	if b.Size <= 0 || b.Addr < a.start || b.End() > a.end {
		return fmt.Errorf("%w: %+v outside [%d, %d)", ErrBadFree, b, a.start, a.end)
	}
	for _, f := range a.free {
		if f.overlaps(b) {
			return fmt.Errorf("%w: %+v overlaps free block %+v", ErrBadFree, b, f)
		}
	}

	a.free = append(a.free, b)
	a.coalesce()
	return nil
}

func (a *Allocator) coalesce() {
	sort.Slice(a.free, func(i, j int) bool {
		return a.free[i].Addr < a.free[j].Addr
	})

	for i := 0; i < len(a.free)-1; {
		if a.free[i].End() == a.free[i+1].Addr {
			a.free[i].Size += a.free[i+1].Size
			a.free = append(a.free[:i+1], a.free[i+2:]...)
			continue
		}
		i++
	}
}

// Available is the sum of all free block sizes.
func (a *Allocator) Available() int {
	n := 0
	for _, b := range a.free {
		n += b.Size
	}
	return n
}

func (a *Allocator) FreeList() []Block {
	return append([]Block(nil), a.free...)
}
