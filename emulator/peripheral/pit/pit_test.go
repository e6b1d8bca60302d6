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

import "testing"

func TestExpired(t *testing.T) {
	d := Device{Interval: 15}

	var fired []int
	for ticks := 1; ticks <= 45; ticks++ {
		if d.Expired(ticks) {
			fired = append(fired, ticks)
		}
	}
	if len(fired) != 3 || fired[0] != 15 || fired[1] != 30 || fired[2] != 45 {
		t.Errorf("unexpected clock: %v", fired)
	}

	// A context switch surcharge jumps the counter.
	if !d.Expired(100) {
		t.Error("expected clock after jump")
	}
	if d.Expired(101) {
		t.Error("clock fired twice")
	}

	d.Reset()
	if !d.Expired(15) {
		t.Error("expected clock after reset")
	}
}

func TestDisabled(t *testing.T) {
	var d Device
	for ticks := 0; ticks < 100; ticks++ {
		if d.Expired(ticks) {
			t.Fatal("disabled timer fired")
		}
	}
}
