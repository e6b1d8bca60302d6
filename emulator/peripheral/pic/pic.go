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
	"errors"
	"sync"

	"github.com/andreas-jonsson/virtualsos/emulator/processor"
)

const DefaultQueueSize = 64

var ErrNoInterrupts = errors.New("no interrupts")

// Device is a FIFO of pending device completions. Devices push from their
// own goroutines; the CPU is the only consumer.
type Device struct {
	QueueSize int

	once  sync.Once
	queue chan processor.Interrupt
}

func (m *Device) Name() string {
	return "Interrupt Controller"
}

// Reset drops every pending record.
func (m *Device) Reset() {
	m.init()
	for {
		select {
		case <-m.queue:
		default:
			return
		}
	}
}

func (m *Device) init() {
	m.once.Do(func() {
		size := m.QueueSize
		if size <= 0 {
			size = DefaultQueueSize
		}
		m.queue = make(chan processor.Interrupt, size)
	})
}

// IRQ enqueues a completion record. It blocks if the queue is full.
func (m *Device) IRQ(i processor.Interrupt) {
	m.init()
	m.queue <- i
}

func (m *Device) IsEmpty() bool {
	m.init()
	return len(m.queue) == 0
}

// GetData removes and returns the oldest record. It blocks when empty.
func (m *Device) GetData() processor.Interrupt {
	m.init()
	return <-m.queue
}

// GetInterrupt is the non-blocking form of GetData.
func (m *Device) GetInterrupt() (processor.Interrupt, error) {
	m.init()
	select {
	case i := <-m.queue:
		return i, nil
	default:
		return processor.Interrupt{}, ErrNoInterrupts
	}
}
