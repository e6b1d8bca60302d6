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
	"io"
	"math/rand"
	"os"
	"time"

	"github.com/andreas-jonsson/virtualsos/emulator/processor"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// DefaultSwitchCost is the tick surcharge of one register save or restore.
const DefaultSwitchCost = 30

var (
	ErrIllegalMemoryAccess = errors.New("illegal memory access")
	ErrIllegalInstruction  = errors.New("illegal instruction")
	ErrDivideByZero        = errors.New("divide by zero")
	ErrIllegalInterrupt    = errors.New("illegal interrupt")
	ErrNoPrograms          = errors.New("no programs to execute")
	ErrIdleAllocation      = errors.New("could not allocate idle process")
)

// Program is a loadable image.
type Program interface {
	Export() []int
	Size() int
	DefaultAllocSize() int
}

// AllocSize is the declared allocation of prog or twice its image size.
func AllocSize(prog Program) int {
	if n := prog.DefaultAllocSize(); n > 0 {
		return n
	}
	return prog.Size() * 2
}

type Config struct {
	SwitchCost      int
	Seed            int64
	NonBlockingOpen bool

	Output      io.Writer
	CoreFs      afero.Fs
	CoreDumpDir string
}

type programEntry struct {
	name  string
	prog  Program
	loads int
}

type Kernel struct {
	cpu   processor.Processor
	mmu   processor.MMU
	cfg   Config
	rnd   *rand.Rand
	alloc *Allocator

	procs   []*PCB
	current *PCB
	nextPID int

	devices  []*deviceInfo
	programs []*programEntry

	switches    int
	starveTotal float64
	starveCount int
}

// New creates a kernel and installs it as the trap handler of cpu. Memory
// below mmu.Reserved() holds the page table and is never allocated.
func New(cpu processor.Processor, mmu processor.MMU, cfg Config) *Kernel {
	if cfg.SwitchCost < 0 {
		cfg.SwitchCost = 0
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	k := &Kernel{
		cpu:     cpu,
		mmu:     mmu,
		cfg:     cfg,
		rnd:     rand.New(rand.NewSource(seed)),
		nextPID: FirstPID,
	}
	k.alloc = NewAllocator(mmu, mmu.Reserved(), mmu.Size(), mmu.PageSize(), k.residents)
	cpu.InstallTrapHandler(k)
	return k
}

func (k *Kernel) residents() []Resident {
	rs := make([]Resident, len(k.procs))
	for i, p := range k.procs {
		rs[i] = p
	}
	return rs
}

// AddProgram registers a program that EXEC may start.
func (k *Kernel) AddProgram(name string, prog Program) {
	k.programs = append(k.programs, &programEntry{name: name, prog: prog})
	log.WithField("name", name).Info("Program registered")
}

// ProcessInfo is a read-only view of a PCB.
type ProcessInfo struct {
	PID       int
	Blocked   bool
	Regs      processor.Registers
	NumReady  int
	MaxStarve int
	AvgStarve float64
}

func (k *Kernel) info(p *PCB) ProcessInfo {
	regs := p.regs
	if p == k.current {
		regs = *k.cpu.GetRegisters()
	}
	return ProcessInfo{
		PID:       p.PID,
		Blocked:   p.isBlocked(),
		Regs:      regs,
		NumReady:  p.numReady,
		MaxStarve: p.maxStarve,
		AvgStarve: p.avgStarve,
	}
}

// Processes lists every PCB in creation order.
func (k *Kernel) Processes() []ProcessInfo {
	res := make([]ProcessInfo, len(k.procs))
	for i, p := range k.procs {
		res[i] = k.info(p)
	}
	return res
}

// Current returns the running process, if any.
func (k *Kernel) Current() (ProcessInfo, bool) {
	if k.current == nil {
		return ProcessInfo{}, false
	}
	return k.info(k.current), true
}

func (k *Kernel) FreeList() []Block {
	return k.alloc.FreeList()
}

func (k *Kernel) Switches() int {
	return k.switches
}

// AverageStarvation is the mean of the per process average starve times of
// every process that has ever waited.
func (k *Kernel) AverageStarvation() float64 {
	total, count := k.starveTotal, k.starveCount
	for _, p := range k.procs {
		if p.avgStarve > 0 {
			total += p.avgStarve
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

// Summary logs the scheduling statistics.
func (k *Kernel) Summary() {
	log.WithFields(log.Fields{
		"switches":   k.switches,
		"avg_starve": fmt.Sprintf("%.2f", k.AverageStarvation()),
		"processes":  len(k.procs),
	}).Info("Kernel statistics")
}

// Check validates the memory bookkeeping. The free list must be sorted
// without adjacent blocks and no free block may overlap a process.
func (k *Kernel) Check() error {
	free := k.alloc.FreeList()
	for i := 1; i < len(free); i++ {
		if free[i-1].End() >= free[i].Addr {
			return fmt.Errorf("free blocks %+v and %+v are not separated", free[i-1], free[i])
		}
	}

	owned := 0
	for _, p := range k.procs {
		r := p.Region()
		if p == k.current {
			regs := k.cpu.GetRegisters()
			r = Block{Addr: regs.BASE, Size: regs.Size()}
		}
		for _, b := range free {
			if b.overlaps(r) {
				return fmt.Errorf("process %d at %+v overlaps free block %+v", p.PID, r, b)
			}
		}
		owned += r.Size
	}

	if total := owned + k.alloc.Available(); total != k.mmu.Size()-k.mmu.Reserved() {
		return fmt.Errorf("memory accounting mismatch: %d words tracked, %d managed", total, k.mmu.Size()-k.mmu.Reserved())
	}
	return nil
}
