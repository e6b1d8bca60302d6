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
	"math/rand"
	"reflect"
	"testing"
)

type sliceWords []int

func (w sliceWords) Read(addr int) int {
	return w[addr]
}

func (w sliceWords) Write(addr, data int) {
	w[addr] = data
}

type testResident struct {
	b   Block
	tag int
}

func (r *testResident) Region() Block {
	return r.b
}

func (r *testResident) Relocate(base int) {
	r.b.Addr = base
}

func (r *testResident) fill(mem sliceWords) {
	for i := 0; i < r.b.Size; i++ {
		mem[r.b.Addr+i] = r.tag*1000 + i
	}
}

func (r *testResident) intact(mem sliceWords) bool {
	for i := 0; i < r.b.Size; i++ {
		if mem[r.b.Addr+i] != r.tag*1000+i {
			return false
		}
	}
	return true
}

type testHeap struct {
	mem       sliceWords
	alloc     *Allocator
	residents []*testResident
}

func newTestHeap(start, end, pageSize int) *testHeap {
	h := &testHeap{mem: make(sliceWords, end)}
	h.alloc = NewAllocator(h.mem, start, end, pageSize, func() []Resident {
		rs := make([]Resident, len(h.residents))
		for i, r := range h.residents {
			rs[i] = r
		}
		return rs
	})
	return h
}

func (h *testHeap) allocate(t *testing.T, size int) *testResident {
	t.Helper()
	b, err := h.alloc.Allocate(size)
	if err != nil {
		t.Fatal(err)
	}
	r := &testResident{b: b, tag: len(h.residents) + 1}
	r.fill(h.mem)
	h.residents = append(h.residents, r)
	return r
}

func (h *testHeap) free(t *testing.T, r *testResident) {
	t.Helper()
	for i, q := range h.residents {
		if q == r {
			h.residents = append(h.residents[:i], h.residents[i+1:]...)
			break
		}
	}
	if err := h.alloc.Free(r.b); err != nil {
		t.Fatal(err)
	}
}

func (h *testHeap) check(t *testing.T) {
	t.Helper()

	free := h.alloc.FreeList()
	for i := 1; i < len(free); i++ {
		if free[i-1].End() >= free[i].Addr {
			t.Fatalf("free list not coalesced: %v", free)
		}
	}

	owned := 0
	for _, r := range h.residents {
		for _, b := range free {
			if b.overlaps(r.b) {
				t.Fatalf("resident %+v overlaps free block %+v", r.b, b)
			}
		}
		for _, q := range h.residents {
			if q != r && q.b.overlaps(r.b) {
				t.Fatalf("residents %+v and %+v overlap", r.b, q.b)
			}
		}
		if !r.intact(h.mem) {
			t.Fatalf("resident %d corrupted at %+v", r.tag, r.b)
		}
		owned += r.b.Size
	}

	if total := owned + h.alloc.Available(); total != h.alloc.end-h.alloc.start {
		t.Fatalf("lost memory: %d of %d words accounted for", total, h.alloc.end-h.alloc.start)
	}
}

func TestRoundSize(t *testing.T) {
	a := NewAllocator(make(sliceWords, 0), 0, 0, 16, nil)
	for _, c := range [][2]int{{0, 16}, {1, 16}, {16, 16}, {17, 32}, {33, 64}, {64, 64}, {100, 128}} {
		if n := a.RoundSize(c[0]); n != c[1] {
			t.Errorf("RoundSize(%d): expected %d, got %d", c[0], c[1], n)
		}
	}
}

func TestAllocatorCoalesce(t *testing.T) {
	h := newTestHeap(0, 256, 16)
	a := h.allocate(t, 16)
	b := h.allocate(t, 16)
	c := h.allocate(t, 16)

	if a.b.Addr != 0 || b.b.Addr != 16 || c.b.Addr != 32 {
		t.Fatalf("unexpected placement: %+v %+v %+v", a.b, b.b, c.b)
	}

	h.free(t, b)
	if fl := h.alloc.FreeList(); !reflect.DeepEqual(fl, []Block{{16, 16}, {48, 208}}) {
		t.Errorf("unexpected free list: %v", fl)
	}
	h.check(t)

	h.free(t, a)
	if fl := h.alloc.FreeList(); !reflect.DeepEqual(fl, []Block{{0, 32}, {48, 208}}) {
		t.Errorf("unexpected free list: %v", fl)
	}
	h.check(t)

	h.free(t, c)
	if fl := h.alloc.FreeList(); !reflect.DeepEqual(fl, []Block{{0, 256}}) {
		t.Errorf("unexpected free list: %v", fl)
	}
}

func TestAllocatorExactFit(t *testing.T) {
	h := newTestHeap(0, 64, 16)
	a := h.allocate(t, 16)
	h.allocate(t, 32)
	h.allocate(t, 16)
	if fl := h.alloc.FreeList(); len(fl) != 0 {
		t.Fatalf("expected full heap, got %v", fl)
	}
	h.free(t, a)

	b := h.allocate(t, 10)
	if b.b != (Block{0, 16}) {
		t.Errorf("expected exact fit at 0, got %+v", b.b)
	}
	if fl := h.alloc.FreeList(); len(fl) != 0 {
		t.Errorf("expected empty free list, got %v", fl)
	}
	h.check(t)
}

func TestAllocatorCompaction(t *testing.T) {
	h := newTestHeap(0, 128, 16)
	r1 := h.allocate(t, 16)
	r2 := h.allocate(t, 32)
	r3 := h.allocate(t, 16)
	r4 := h.allocate(t, 16)

	h.free(t, r1)
	h.free(t, r3)
	if avail := h.alloc.Available(); avail != 80 {
		t.Fatalf("expected 80 free words, got %d", avail)
	}

	b, err := h.alloc.Allocate(64)
	if err != nil {
		t.Fatal(err)
	}
	if b != (Block{48, 64}) {
		t.Errorf("unexpected block: %+v", b)
	}
	if r2.b.Addr != 0 || r4.b.Addr != 32 {
		t.Errorf("residents not packed: %+v %+v", r2.b, r4.b)
	}
	if fl := h.alloc.FreeList(); !reflect.DeepEqual(fl, []Block{{112, 16}}) {
		t.Errorf("unexpected free list: %v", fl)
	}

	h.residents = append(h.residents, &testResident{b: b})
	for i := 0; i < b.Size; i++ {
		h.mem[b.Addr+i] = i
	}
	h.check(t)
}

func TestAllocatorOutOfMemory(t *testing.T) {
	h := newTestHeap(0, 64, 16)
	h.allocate(t, 32)

	before := h.alloc.FreeList()
	if _, err := h.alloc.Allocate(33); !errors.Is(err, ErrOutOfMemory) {
		t.Fatalf("expected ErrOutOfMemory, got %v", err)
	}
	if after := h.alloc.FreeList(); !reflect.DeepEqual(before, after) {
		t.Errorf("free list changed on failure: %v -> %v", before, after)
	}
	h.check(t)
}

func TestAllocatorBadFree(t *testing.T) {
	h := newTestHeap(16, 128, 16)
	r := h.allocate(t, 16)
	h.free(t, r)

	if err := h.alloc.Free(r.b); !errors.Is(err, ErrBadFree) {
		t.Errorf("double free: expected ErrBadFree, got %v", err)
	}
	if err := h.alloc.Free(Block{0, 16}); !errors.Is(err, ErrBadFree) {
		t.Errorf("free below start: expected ErrBadFree, got %v", err)
	}
	if err := h.alloc.Free(Block{120, 16}); !errors.Is(err, ErrBadFree) {
		t.Errorf("free past end: expected ErrBadFree, got %v", err)
	}
}

func TestAllocatorRandom(t *testing.T) {
	h := newTestHeap(32, 1024, 16)
	rnd := rand.New(rand.NewSource(1))

	for i := 0; i < 2000; i++ {
		if len(h.residents) > 0 && rnd.Intn(3) == 0 {
			h.free(t, h.residents[rnd.Intn(len(h.residents))])
			h.check(t)
			continue
		}

		size := 1 + rnd.Intn(200)
		fits := h.alloc.Available() >= h.alloc.RoundSize(size)
		before := h.alloc.FreeList()

		b, err := h.alloc.Allocate(size)
		switch {
		case fits && err != nil:
			t.Fatalf("allocation of %d failed with %d words free: %v", size, h.alloc.Available(), err)
		case !fits && err == nil:
			t.Fatalf("allocation of %d succeeded without enough memory", size)
		case err != nil:
			if after := h.alloc.FreeList(); !reflect.DeepEqual(before, after) {
				t.Fatalf("free list changed on failure: %v -> %v", before, after)
			}
		default:
			if b.Size < size || b.Size%16 != 0 {
				t.Fatalf("bad block size %d for request %d", b.Size, size)
			}
			r := &testResident{b: b, tag: i + 1}
			r.fill(h.mem)
			h.residents = append(h.residents, r)
		}
		h.check(t)
	}
}
