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
	"github.com/andreas-jonsson/virtualsos/emulator/peripheral"
	log "github.com/sirupsen/logrus"
)

type deviceInfo struct {
	id    int
	dev   peripheral.Device
	procs []*PCB
}

func (d *deviceInfo) contains(p *PCB) bool {
	for _, q := range d.procs {
		if q == p {
			return true
		}
	}
	return false
}

func (d *deviceInfo) add(p *PCB) {
	d.procs = append(d.procs, p)
}

func (d *deviceInfo) remove(p *PCB) bool {
	for i, q := range d.procs {
		if q == p {
			d.procs = append(d.procs[:i], d.procs[i+1:]...)
			return true
		}
	}
	return false
}

// RegisterDevice makes dev available to processes under id.
func (k *Kernel) RegisterDevice(dev peripheral.Device, id int) {
	dev.SetID(id)
	k.devices = append(k.devices, &deviceInfo{id: id, dev: dev})

	log.WithFields(log.Fields{
		"dev":  id,
		"name": dev.Name(),
	}).Info("Device registered")
}

func (k *Kernel) getDeviceInfo(id int) *deviceInfo {
	for _, d := range k.devices {
		if d.id == id {
			return d
		}
	}
	return nil
}

// OpenedBy lists the PIDs holding device id open.
func (k *Kernel) OpenedBy(id int) []int {
	d := k.getDeviceInfo(id)
	if d == nil {
		return nil
	}
	pids := make([]int, len(d.procs))
	for i, p := range d.procs {
		pids[i] = p.PID
	}
	return pids
}

// closeDevice drops p from the open set and lets one process waiting to
// open the device retry.
func (k *Kernel) closeDevice(d *deviceInfo, p *PCB) {
	if !d.remove(p) {
		return
	}
	if w := k.selectBlockedProcess(d.id, SyscallOpen, 0); w != nil {
		w.unblock(k.cpu.Ticks())
	}
}

func (k *Kernel) releaseDevices(p *PCB) {
	for _, d := range k.devices {
		k.closeDevice(d, p)
	}
}

// wakeAvailabilityWaiters readies every process that found d busy.
func (k *Kernel) wakeAvailabilityWaiters(id int) {
	now := k.cpu.Ticks()
	for _, p := range k.procs {
		if p.isBlockedFor(id, opAvailable, 0) {
			p.unblock(now)
		}
	}
}
