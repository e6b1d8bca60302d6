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

package keyboard

import (
	"math/rand"
	"time"

	"github.com/andreas-jonsson/virtualsos/emulator/peripheral"
	"github.com/andreas-jonsson/virtualsos/emulator/processor"
)

var DefaultLatency = peripheral.Latency{Min: 500 * time.Microsecond, Max: 10 * time.Millisecond}

// Device is a read-only, non-sharable source of random words.
type Device struct {
	peripheral.Worker
}

func (m *Device) Install(pic processor.InterruptController) error {
	if m.Latency == (peripheral.Latency{}) {
		m.Latency = DefaultLatency
	}
	m.Start(pic, m.serve)
	return nil
}

func (m *Device) Name() string {
	return "Keyboard"
}

func (m *Device) Reset() {
}

func (m *Device) serve(_ peripheral.Request, rnd *rand.Rand) int {
	return rnd.Intn(1000000)
}

func (m *Device) IsSharable() bool {
	return false
}

func (m *Device) IsReadable() bool {
	return true
}

func (m *Device) IsWriteable() bool {
	return false
}

func (m *Device) Read(addr int) {
	m.Submit(peripheral.Request{Addr: addr})
}

func (m *Device) Write(addr, data int) {
}
