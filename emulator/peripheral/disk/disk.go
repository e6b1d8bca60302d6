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

package disk

import (
	"encoding/binary"
	"errors"
	"io"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/andreas-jonsson/virtualsos/emulator/peripheral"
	"github.com/andreas-jonsson/virtualsos/emulator/processor"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

const wordSize = 8

var DefaultLatency = peripheral.Latency{Min: time.Millisecond, Max: 3 * time.Millisecond}

var (
	ErrNoDisk  = errors.New("no disk")
	ErrHasDisk = errors.New("has disk")
)

// Device is a word store backed by an image file. Addresses are word
// indexes into the image.
type Device struct {
	peripheral.Worker
	Sharable bool

	lock  sync.Mutex
	rws   io.ReadWriteSeeker
	words int
}

// Open creates the image if needed and inserts it.
func Open(fs afero.Fs, path string, words int) (*Device, error) {
	fp, err := fs.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}

	st, err := fp.Stat()
	if err != nil {
		fp.Close()
		return nil, err
	}
	if sz := int64(words * wordSize); st.Size() < sz {
		if err := fp.Truncate(sz); err != nil {
			fp.Close()
			return nil, err
		}
	}

	m := &Device{}
	if err := m.Insert(fp); err != nil {
		fp.Close()
		return nil, err
	}
	return m, nil
}

func (m *Device) Insert(disk io.ReadWriteSeeker) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.rws != nil {
		return ErrHasDisk
	}

	sz, err := disk.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	if _, err := disk.Seek(0, io.SeekStart); err != nil {
		return err
	}

	m.rws = disk
	m.words = int(sz / wordSize)
	return nil
}

func (m *Device) Eject() (io.ReadWriteSeeker, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.rws == nil {
		return nil, ErrNoDisk
	}
	d := m.rws
	m.rws = nil
	m.words = 0
	return d, nil
}

func (m *Device) Install(pic processor.InterruptController) error {
	if m.Latency == (peripheral.Latency{}) {
		m.Latency = DefaultLatency
	}
	m.Start(pic, m.serve)
	return nil
}

func (m *Device) Name() string {
	return "Disk"
}

func (m *Device) Reset() {
}

func (m *Device) Close() error {
	m.Worker.Close()

	d, err := m.Eject()
	if err != nil {
		return nil
	}
	if c, ok := d.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (m *Device) serve(r peripheral.Request, _ *rand.Rand) int {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.rws == nil || r.Addr < 0 || r.Addr >= m.words {
		log.WithField("addr", r.Addr).Warn("disk access out of range")
		return 0
	}

	var buf [wordSize]byte
	if _, err := m.rws.Seek(int64(r.Addr*wordSize), io.SeekStart); err != nil {
		log.Error(err)
		return 0
	}

	if r.Write {
		binary.LittleEndian.PutUint64(buf[:], uint64(int64(r.Data)))
		if _, err := m.rws.Write(buf[:]); err != nil {
			log.Error(err)
		}
		return 0
	}

	if _, err := io.ReadFull(m.rws, buf[:]); err != nil {
		log.Error(err)
		return 0
	}
	return int(int64(binary.LittleEndian.Uint64(buf[:])))
}

func (m *Device) Words() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.words
}

func (m *Device) IsSharable() bool {
	return m.Sharable
}

func (m *Device) IsReadable() bool {
	return true
}

func (m *Device) IsWriteable() bool {
	return true
}

func (m *Device) Read(addr int) {
	m.Submit(peripheral.Request{Addr: addr})
}

func (m *Device) Write(addr, data int) {
	m.Submit(peripheral.Request{Write: true, Addr: addr, Data: data})
}
