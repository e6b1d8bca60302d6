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

package version

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Version
		full string
	}{
		{"1.2.3", Version{1, 2, 3, ""}, "1.2.3"},
		{"v0.1.0", Version{0, 1, 0, ""}, "0.1.0"},
		{"1.2.3.0", Version{1, 2, 3, ""}, "1.2.3"},
		{"1.2.3.42", Version{1, 2, 3, "42"}, "1.2.3-42"},
		{"1.2.3-rc1", Version{1, 2, 3, "rc1"}, "1.2.3-rc1"},
	}

	for _, tt := range tests {
		v, err := Parse(tt.in)
		if err != nil {
			t.Errorf("%s: %v", tt.in, err)
			continue
		}
		if !v.Equal(tt.want) {
			t.Errorf("%s: expected %+v, got %+v", tt.in, tt.want, v)
		}
		if v.FullString() != tt.full {
			t.Errorf("%s: expected %q, got %q", tt.in, tt.full, v.FullString())
		}
	}
}

func TestParseInvalid(t *testing.T) {
	for _, s := range []string{"", "1.2", "a.b.c", "1.2.300"} {
		if _, err := Parse(s); !errors.Is(err, ErrFormat) {
			t.Errorf("%q: expected format error, got %v", s, err)
		}
	}
}

func TestCompatible(t *testing.T) {
	if !New(1, 2, 3).Compatible(New(1, 2, 9)) {
		t.Error("patch releases should be compatible")
	}
	if New(1, 2, 3).Compatible(New(1, 3, 0)) {
		t.Error("minor releases should not be compatible")
	}
}
