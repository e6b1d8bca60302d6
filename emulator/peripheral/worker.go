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

package peripheral

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/andreas-jonsson/virtualsos/emulator/processor"
)

// Latency bounds the simulated service time of a device.
type Latency struct {
	Min, Max time.Duration
}

func (l Latency) Random(r *rand.Rand) time.Duration {
	min, max := l.Min, l.Max
	if min > max {
		min, max = max, min
	}
	if max == min {
		return min
	}
	return min + time.Duration(r.Int63n(int64(max-min)))
}

type Request struct {
	Write      bool
	Addr, Data int
}

// Worker serves device requests one at a time on its own goroutine. It
// becomes available again before the completion record is queued, so the
// kernel never sees a completion from a device that still looks busy.
type Worker struct {
	Latency Latency
	Seed    int64

	id   atomic.Int64
	busy atomic.Bool

	reqs  chan Request
	done  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
	rnd   *rand.Rand
	pic   processor.InterruptController
	serve func(Request, *rand.Rand) int
}

// Start launches the worker. serve runs on the worker goroutine and returns
// the data word of the completion record.
func (w *Worker) Start(pic processor.InterruptController, serve func(Request, *rand.Rand) int) {
	seed := w.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	w.pic = pic
	w.serve = serve
	w.rnd = rand.New(rand.NewSource(seed))
	w.reqs = make(chan Request, 1)
	w.done = make(chan struct{})

	w.wg.Add(1)
	go w.run()
}

func (w *Worker) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case r := <-w.reqs:
			t := time.NewTimer(w.Latency.Random(w.rnd))
			select {
			case <-t.C:
			case <-w.done:
				t.Stop()
				return
			}

			i := processor.Interrupt{
				Kind:   processor.IntReadDone,
				Device: w.ID(),
				Addr:   r.Addr,
				Data:   w.serve(r, w.rnd),
			}
			if r.Write {
				i.Kind = processor.IntWriteDone
			}

			w.busy.Store(false)
			w.pic.IRQ(i)
		}
	}
}

// Submit records a pending request. The caller must check IsAvailable first.
func (w *Worker) Submit(r Request) {
	w.busy.Store(true)
	w.reqs <- r
}

func (w *Worker) ID() int {
	return int(w.id.Load())
}

func (w *Worker) SetID(id int) {
	w.id.Store(int64(id))
}

func (w *Worker) IsAvailable() bool {
	return !w.busy.Load()
}

func (w *Worker) Close() error {
	if w.done == nil {
		return nil
	}
	w.once.Do(func() { close(w.done) })
	w.wg.Wait()
	return nil
}
