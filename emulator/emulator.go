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

package emulator

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/andreas-jonsson/virtualsos/emulator/kernel"
	"github.com/andreas-jonsson/virtualsos/emulator/peripheral"
	"github.com/andreas-jonsson/virtualsos/emulator/peripheral/console"
	"github.com/andreas-jonsson/virtualsos/emulator/peripheral/debug"
	"github.com/andreas-jonsson/virtualsos/emulator/peripheral/disk"
	"github.com/andreas-jonsson/virtualsos/emulator/peripheral/keyboard"
	"github.com/andreas-jonsson/virtualsos/emulator/peripheral/mmu"
	"github.com/andreas-jonsson/virtualsos/emulator/peripheral/pic"
	"github.com/andreas-jonsson/virtualsos/emulator/peripheral/ram"
	"github.com/andreas-jonsson/virtualsos/emulator/processor"
	"github.com/andreas-jonsson/virtualsos/emulator/processor/cpu"
	"github.com/andreas-jonsson/virtualsos/emulator/program"
	"github.com/andreas-jonsson/virtualsos/platform"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Device ids as seen by programs.
const (
	KeyboardID = iota
	ConsoleID
	DiskID
)

var (
	configPath, logLevel, coreDir string
	clockFrequency, history       int
	seed                          int64
	nonBlockingOpen               bool
)

func init() {
	flag.StringVar(&configPath, "config", "", "Path to JSON configuration (defaults to $"+EnvConfig+")")
	flag.StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	flag.StringVar(&coreDir, "core-dir", "", "Write core dumps to this directory")
	flag.IntVar(&clockFrequency, "clock", cpu.DefaultClockFrequency, "Ticks between clock interrupts (0 disables preemption)")
	flag.IntVar(&history, "history", debug.DefaultHistorySize, "Number of instructions kept for fault reports (0 disables)")
	flag.Int64Var(&seed, "seed", 0, "Random seed (0 seeds from time)")
	flag.BoolVar(&nonBlockingOpen, "nonblocking-open", false, "OPEN of a busy non-sharable device fails instead of blocking")
}

// applyFlags overlays the flags set on the command line.
func applyFlags(cfg *Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "log-level":
			cfg.LogLevel = logLevel
		case "core-dir":
			cfg.CoreDumpDir = coreDir
		case "clock":
			cfg.ClockFrequency = clockFrequency
		case "history":
			cfg.History = history
		case "seed":
			cfg.Seed = seed
		case "nonblocking-open":
			cfg.NonBlockingOpen = nonBlockingOpen
		}
	})
	cfg.Programs = append(cfg.Programs, flag.Args()...)
}

// Machine is a fully wired computer: memory, CPU, kernel and devices.
type Machine struct {
	cfg Config
	fs  afero.Fs

	cpu     *cpu.CPU
	pic     *pic.Device
	mmu     *mmu.Device
	kernel  *kernel.Kernel
	history *debug.Device

	devices  []peripheral.Device
	programs []*program.Program
}

// NewMachine builds a machine from cfg. Program and device output goes to
// out, files are resolved in fs.
func NewMachine(cfg Config, fs afero.Fs, out io.Writer) (*Machine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mem := &ram.Device{Size: cfg.MemorySize}
	mem.Reset()

	mu, err := mmu.New(mem, cfg.MemorySize, cfg.PageSize)
	if err != nil {
		return nil, err
	}

	ic := &pic.Device{}
	ic.Reset()

	c := cpu.NewCPU(mu, ic)
	c.SetClockFrequency(cfg.ClockFrequency)

	m := &Machine{
		cfg: cfg,
		fs:  fs,
		cpu: c,
		pic: ic,
		mmu: mu,
	}

	if cfg.History > 0 {
		m.history = &debug.Device{HistorySize: cfg.History}
		m.history.Reset()
		c.SetTracer(m.history)
	}

	kcfg := kernel.Config{
		SwitchCost:      cfg.SwitchCost,
		Seed:            cfg.Seed,
		NonBlockingOpen: cfg.NonBlockingOpen,
		Output:          out,
	}
	if cfg.CoreDumpDir != "" {
		kcfg.CoreFs = fs
		kcfg.CoreDumpDir = cfg.CoreDumpDir
	}
	m.kernel = kernel.New(c, mu, kcfg)

	kbd := &keyboard.Device{}
	kbd.Latency = cfg.KeyboardLatency.latency()
	kbd.Seed = m.deviceSeed(KeyboardID)

	con := &console.Device{Output: out}
	con.Latency = cfg.ConsoleLatency.latency()
	con.Seed = m.deviceSeed(ConsoleID)

	if err := m.install(KeyboardID, kbd); err != nil {
		m.Close()
		return nil, err
	}
	if err := m.install(ConsoleID, con); err != nil {
		m.Close()
		return nil, err
	}

	if cfg.DiskImage != "" {
		dsk, err := disk.Open(fs, cfg.DiskImage, cfg.DiskWords)
		if err != nil {
			m.Close()
			return nil, err
		}
		dsk.Sharable = cfg.DiskSharable
		dsk.Seed = m.deviceSeed(DiskID)
		if err := m.install(DiskID, dsk); err != nil {
			dsk.Close()
			m.Close()
			return nil, err
		}
	}
	return m, nil
}

func (m *Machine) deviceSeed(id int) int64 {
	if m.cfg.Seed == 0 {
		return 0
	}
	return m.cfg.Seed + int64(id) + 1
}

func (m *Machine) install(id int, dev peripheral.Device) error {
	if err := dev.Install(m.pic); err != nil {
		return fmt.Errorf("%s: %w", dev.Name(), err)
	}
	m.kernel.RegisterDevice(dev, id)
	m.devices = append(m.devices, dev)
	return nil
}

// Load reads program images. A directory loads every file inside it in
// name order.
func (m *Machine) Load(paths ...string) error {
	for _, path := range paths {
		st, err := m.fs.Stat(path)
		if err != nil {
			return err
		}
		if !st.IsDir() {
			if err := m.loadProgram(path); err != nil {
				return err
			}
			continue
		}

		infos, err := afero.ReadDir(m.fs, path)
		if err != nil {
			return err
		}
		for _, fi := range infos {
			if fi.IsDir() || strings.HasPrefix(fi.Name(), ".") {
				continue
			}
			if err := m.loadProgram(filepath.Join(path, fi.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *Machine) loadProgram(path string) error {
	prog, err := program.Load(m.fs, path)
	if err != nil {
		return err
	}

	m.kernel.AddProgram(prog.Name, prog)
	m.programs = append(m.programs, prog)

	log.WithFields(log.Fields{
		"program": prog.Name,
		"size":    prog.Size(),
		"alloc":   kernel.AllocSize(prog),
	}).Info("Program loaded")
	return nil
}

func (m *Machine) Kernel() *kernel.Kernel {
	return m.kernel
}

// Run starts the first loaded program and executes until the process table
// is empty, ctx is cancelled or a fatal fault occurs. A normal halt returns
// nil.
func (m *Machine) Run(ctx context.Context) error {
	if len(m.programs) == 0 {
		return kernel.ErrNoPrograms
	}
	defer m.Summary()

	first := m.programs[0]
	if _, err := m.kernel.CreateProcess(first, kernel.AllocSize(first)); err != nil {
		return fmt.Errorf("%s: %w", first.Name, err)
	}

	for {
		err := m.cpu.Run(ctx)
		if err == nil {
			err = m.kernel.Exhausted()
		}

		switch {
		case err == nil:
		case errors.Is(err, processor.ErrCPUHalt):
			log.Info("CPU halted")
			return nil
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			log.Info("Shutdown requested")
			return err
		default:
			if m.history != nil {
				m.history.ShowHistory(0)
			}
			return err
		}
	}
}

func (m *Machine) Summary() {
	st := m.cpu.GetStats()
	log.WithFields(log.Fields{
		"instructions": st.NumInstructions,
		"interrupts":   st.NumInterrupts,
		"syscalls":     st.NumSyscalls,
		"clocks":       st.NumClocks,
		"ticks":        m.cpu.Ticks(),
	}).Info("CPU statistics")
	m.kernel.Summary()
}

func (m *Machine) Close() error {
	var firstErr error
	for _, dev := range m.devices {
		if c, ok := dev.(peripheral.PeripheralCloser); ok {
			if err := c.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	m.devices = nil
	return firstErr
}

// Start is the main loop handed to the platform.
func Start(p platform.Platform) {
	cfg, err := LoadConfig(p.FileSystem(), configPath)
	if err != nil {
		log.Error(err)
		return
	}
	applyFlags(&cfg)

	lvl, err := cfg.Level()
	if err != nil {
		log.Error(err)
		return
	}
	log.SetLevel(lvl)

	if len(cfg.Programs) == 0 {
		fmt.Fprintln(os.Stderr, "usage: virtualsos [flags] program|directory...")
		return
	}

	m, err := NewMachine(cfg, p.FileSystem(), p)
	if err != nil {
		log.Error(err)
		return
	}
	defer m.Close()

	if err := m.Load(cfg.Programs...); err != nil {
		log.Error(err)
		return
	}

	p.SetTitle(fmt.Sprintf("%d programs, %d words of memory", len(m.programs), cfg.MemorySize))
	if err := m.Run(p.Context()); err != nil && !errors.Is(err, context.Canceled) {
		log.Error(err)
	}
}
