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
	"testing"
	"time"

	"github.com/andreas-jonsson/virtualsos/emulator/peripheral"
	"github.com/andreas-jonsson/virtualsos/emulator/peripheral/pic"
	"github.com/andreas-jonsson/virtualsos/emulator/processor"
	"github.com/spf13/afero"
)

func TestReadWrite(t *testing.T) {
	fs := afero.NewMemMapFs()
	d, err := Open(fs, "disk.img", 64)
	if err != nil {
		t.Fatal(err)
	}
	if d.Words() != 64 {
		t.Fatalf("expected 64 words, got %d", d.Words())
	}

	var ic pic.Device
	d.Latency = peripheral.Latency{Min: time.Microsecond, Max: time.Microsecond}
	d.SetID(2)
	if err := d.Install(&ic); err != nil {
		t.Fatal(err)
	}

	var _ peripheral.Device = d
	if d.IsSharable() || !d.IsReadable() || !d.IsWriteable() {
		t.Fatal("unexpected capabilities")
	}

	d.Write(10, -12345)
	if in := ic.GetData(); in.Kind != processor.IntWriteDone || in.Device != 2 || in.Addr != 10 {
		t.Fatalf("unexpected completion: %+v", in)
	}

	d.Read(10)
	if in := ic.GetData(); in.Kind != processor.IntReadDone || in.Data != -12345 {
		t.Fatalf("unexpected completion: %+v", in)
	}

	d.Read(64)
	if in := ic.GetData(); in.Data != 0 {
		t.Errorf("out of range read returned %d", in.Data)
	}

	if err := d.Close(); err != nil {
		t.Fatal(err)
	}

	// The image keeps its content between runs.
	d, err = Open(fs, "disk.img", 16)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	if d.Words() != 64 {
		t.Errorf("image shrunk to %d words", d.Words())
	}
	d.Latency = peripheral.Latency{Min: time.Microsecond, Max: time.Microsecond}
	if err := d.Install(&ic); err != nil {
		t.Fatal(err)
	}
	d.Read(10)
	if in := ic.GetData(); in.Data != -12345 {
		t.Errorf("expected persisted word, got %d", in.Data)
	}
}

func TestInsertEject(t *testing.T) {
	fs := afero.NewMemMapFs()
	d, err := Open(fs, "a.img", 8)
	if err != nil {
		t.Fatal(err)
	}

	fp, err := fs.Create("b.img")
	if err != nil {
		t.Fatal(err)
	}
	defer fp.Close()

	if err := d.Insert(fp); err != ErrHasDisk {
		t.Errorf("expected ErrHasDisk, got %v", err)
	}

	if _, err := d.Eject(); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Eject(); err != ErrNoDisk {
		t.Errorf("expected ErrNoDisk, got %v", err)
	}
	if d.Words() != 0 {
		t.Errorf("ejected disk reports %d words", d.Words())
	}

	if err := d.Insert(fp); err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
}
