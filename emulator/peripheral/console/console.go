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

package console

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"time"

	"github.com/andreas-jonsson/virtualsos/emulator/peripheral"
	"github.com/andreas-jonsson/virtualsos/emulator/processor"
)

var DefaultLatency = peripheral.Latency{Min: 500 * time.Microsecond, Max: time.Millisecond}

// Device is a write-only, sharable sink. Every write prints one line.
type Device struct {
	peripheral.Worker
	Output io.Writer
}

func (m *Device) Install(pic processor.InterruptController) error {
	if m.Latency == (peripheral.Latency{}) {
		m.Latency = DefaultLatency
	}
	if m.Output == nil {
		m.Output = os.Stdout
	}
	m.Start(pic, m.serve)
	return nil
}

func (m *Device) Name() string {
	return "Console"
}

func (m *Device) Reset() {
}

func (m *Device) serve(r peripheral.Request, _ *rand.Rand) int {
	fmt.Fprintf(m.Output, "CONSOLE: %d\n", r.Data)
	return 0
}

func (m *Device) IsSharable() bool {
	return true
}

func (m *Device) IsReadable() bool {
	return false
}

func (m *Device) IsWriteable() bool {
	return true
}

func (m *Device) Read(addr int) {
}

func (m *Device) Write(addr, data int) {
	m.Submit(peripheral.Request{Write: true, Addr: addr, Data: data})
}
