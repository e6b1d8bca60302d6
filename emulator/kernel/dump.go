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
	"bytes"
	"fmt"
	"io"
	"path"
	"sort"

	"github.com/andreas-jonsson/virtualsos/emulator/processor"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

func (k *Kernel) dumpTables() {
	if !log.IsLevelEnabled(log.DebugLevel) {
		return
	}

	var buf bytes.Buffer
	k.WriteProcessTable(&buf)
	k.WriteMemoryTable(&buf)
	log.Debug("\n" + buf.String())
}

// WriteProcessTable prints one line per process.
func (k *Kernel) WriteProcessTable(w io.Writer) {
	fmt.Fprintf(w, "Process Table (%d processes)\n", len(k.procs))
	for _, p := range k.procs {
		if p == k.current {
			fmt.Fprintf(w, "  * Process id %d is RUNNING: %v\n", p.PID, k.info(p).Regs)
			continue
		}
		fmt.Fprintf(w, "    %v\n", p)
	}
}

// WriteMemoryTable prints processes and free blocks in address order.
func (k *Kernel) WriteMemoryTable(w io.Writer) {
	type row struct {
		b   Block
		pid int
	}

	var rows []row
	for _, p := range k.procs {
		r := k.info(p).Regs
		rows = append(rows, row{b: Block{Addr: r.BASE, Size: r.Size()}, pid: p.PID})
	}
	for _, b := range k.alloc.FreeList() {
		rows = append(rows, row{b: b})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].b.Addr < rows[j].b.Addr
	})

	ps := k.mmu.PageSize()
	fmt.Fprintln(w, "Memory Allocation Table")
	for _, r := range rows {
		if r.pid == 0 {
			fmt.Fprintf(w, "    Open(addr=%d size=%d)\n", r.b.Addr, r.b.Size)
			continue
		}
		fmt.Fprintf(w, " Process %d (addr=%d size=%d words / %d pages)\n", r.pid, r.b.Addr, r.b.Size, r.b.Size/ps)
	}
}

// syscallCoreDump prints the registers and the top three stack values,
// writes a core file if configured and exits the process.
func (k *Kernel) syscallCoreDump() error {
	regs := *k.cpu.GetRegisters()
	pid := k.current.PID
	fmt.Fprintln(k.cfg.Output, regs)

	var vals [3]int
	for i := range vals {
		v, ok := k.pop()
		if !ok {
			return k.stackFault(false)
		}
		vals[i] = v
	}
	fmt.Fprintf(k.cfg.Output, "sval3=%d sval2=%d sval1=%d\n", vals[0], vals[1], vals[2])

	if k.cfg.CoreFs != nil {
		if err := k.writeCore(pid, regs); err != nil {
			log.WithField("pid", pid).Warnf("Could not write core file: %v", err)
		}
	}
	return k.removeCurrentProcess()
}

func (k *Kernel) writeCore(pid int, regs processor.Registers) error {
	dir := k.cfg.CoreDumpDir
	if dir == "" {
		dir = "."
	}
	if err := k.cfg.CoreFs.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "pid %d\n%v\n", pid, regs)
	for addr := regs.BASE; addr < regs.LIM; addr += processor.InstrSize {
		fmt.Fprintf(&buf, "%6d:", addr-regs.BASE)
		for i := addr; i < addr+processor.InstrSize && i < regs.LIM; i++ {
			fmt.Fprintf(&buf, " %d", k.mmu.Read(i))
		}
		buf.WriteByte('\n')
	}

	name := path.Join(dir, fmt.Sprintf("core.%d", pid))
	if err := afero.WriteFile(k.cfg.CoreFs, name, buf.Bytes(), 0644); err != nil {
		return err
	}
	log.WithFields(log.Fields{"pid": pid, "file": name}).Info("Core dumped")
	return nil
}
