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

package debug

import (
	"strings"
	"testing"

	"github.com/andreas-jonsson/virtualsos/emulator/processor"
)

func TestHistory(t *testing.T) {
	d := Device{HistorySize: 4}
	d.Reset()

	regs := processor.Registers{BASE: 100, LIM: 200, SP: 200}
	for i := 0; i < 6; i++ {
		d.Trace(100+i*processor.InstrSize, processor.Instruction{processor.SET, 0, i, 0}, regs)
	}

	if d.Lost() != 2 {
		t.Errorf("expected 2 lost instructions, got %d", d.Lost())
	}

	h := d.History(0)
	if len(h) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(h))
	}
	if !strings.Contains(h[0], "SET R0 = 2") || !strings.Contains(h[3], "SET R0 = 5") {
		t.Errorf("unexpected history: %q", h)
	}
	if !strings.HasPrefix(strings.TrimSpace(h[0]), "8:") {
		t.Errorf("expected relative pc, got %q", h[0])
	}

	if h2 := d.History(2); len(h2) != 2 || h2[0] != h[0] {
		t.Errorf("unexpected partial history: %q", h2)
	}
	if h3 := d.History(0); len(h3) != 4 || h3[3] != h[3] {
		t.Error("history changed after reading")
	}
}
