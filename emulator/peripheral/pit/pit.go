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

package pit

// Device fires the clock interrupt every Interval CPU ticks. Context switch
// surcharges can make the tick counter jump, so it fires on elapsed ticks
// rather than on exact multiples.
type Device struct {
	Interval int
	last     int
}

func (m *Device) Name() string {
	return "Programmable Interval Timer"
}

func (m *Device) Reset() {
	m.last = 0
}

// Expired reports whether the timer fired at the given tick count.
func (m *Device) Expired(ticks int) bool {
	if m.Interval <= 0 {
		return false
	}
	if ticks-m.last >= m.Interval {
		m.last = ticks
		return true
	}
	return false
}
