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

package pic

import (
	"sync"
	"testing"

	"github.com/andreas-jonsson/virtualsos/emulator/processor"
)

func TestFIFO(t *testing.T) {
	var p Device
	if !p.IsEmpty() {
		t.Fatal("new controller is not empty")
	}
	if _, err := p.GetInterrupt(); err != ErrNoInterrupts {
		t.Fatalf("expected ErrNoInterrupts, got %v", err)
	}

	for i := 0; i < 10; i++ {
		p.IRQ(processor.Interrupt{Kind: processor.IntWriteDone, Device: 1, Addr: i})
	}
	if p.IsEmpty() {
		t.Fatal("controller is empty after IRQ")
	}

	for i := 0; i < 5; i++ {
		if in := p.GetData(); in.Addr != i {
			t.Fatalf("expected addr %d, got %d", i, in.Addr)
		}
	}
	for i := 5; i < 10; i++ {
		in, err := p.GetInterrupt()
		if err != nil || in.Addr != i {
			t.Fatalf("expected addr %d, got %d (%v)", i, in.Addr, err)
		}
	}
	if !p.IsEmpty() {
		t.Error("controller not drained")
	}
}

func TestReset(t *testing.T) {
	p := Device{QueueSize: 4}
	for i := 0; i < 4; i++ {
		p.IRQ(processor.Interrupt{Addr: i})
	}
	p.Reset()
	if !p.IsEmpty() {
		t.Error("reset did not drop pending interrupts")
	}
}

func TestConcurrentProducers(t *testing.T) {
	const producers, count = 8, 100

	var (
		p  Device
		wg sync.WaitGroup
	)
	for d := 0; d < producers; d++ {
		wg.Add(1)
		go func(dev int) {
			defer wg.Done()
			for i := 0; i < count; i++ {
				p.IRQ(processor.Interrupt{Device: dev, Addr: i})
			}
		}(d)
	}

	next := make([]int, producers)
	for n := 0; n < producers*count; n++ {
		in := p.GetData()
		if in.Addr != next[in.Device] {
			t.Fatalf("device %d out of order: expected %d, got %d", in.Device, next[in.Device], in.Addr)
		}
		next[in.Device]++
	}
	wg.Wait()

	if !p.IsEmpty() {
		t.Error("unexpected extra interrupts")
	}
}
