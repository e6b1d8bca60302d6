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

package platform

import (
	"context"
	"flag"
	"io"

	"github.com/spf13/afero"
)

type internalPlatform interface {
	common() *platformBase
}

type Config func(internalPlatform) error

// Platform is where the machine prints and where it finds its files. The
// context is cancelled when the user asks to quit.
type Platform interface {
	io.Writer

	FileSystem() afero.Fs
	Context() context.Context
	SetTitle(title string)
}

var Instance Platform

type platformBase struct {
	fs     afero.Fs
	ctx    context.Context
	cancel context.CancelFunc
}

func (p *platformBase) common() *platformBase {
	return p
}

func (p *platformBase) setup(configs []Config, self internalPlatform) error {
	for _, cfg := range configs {
		if err := cfg(self); err != nil {
			return err
		}
	}
	if p.fs == nil {
		p.fs = afero.NewOsFs()
	}
	if p.ctx == nil {
		p.ctx = context.Background()
	}
	p.ctx, p.cancel = context.WithCancel(p.ctx)
	return nil
}

func (p *platformBase) FileSystem() afero.Fs {
	return p.fs
}

func (p *platformBase) Context() context.Context {
	return p.ctx
}

func ConfigWithFileSystem(fs afero.Fs) Config {
	return func(p internalPlatform) error {
		p.common().fs = fs
		return nil
	}
}

func ConfigWithContext(ctx context.Context) Config {
	return func(p internalPlatform) error {
		p.common().ctx = ctx
		return nil
	}
}

// ConfigWithScrollback sets the number of lines kept by the terminal
// console. Other platforms ignore it.
func ConfigWithScrollback(lines int) Config {
	return func(p internalPlatform) error {
		if tp, ok := p.(*tcellPlatform); ok && lines > 0 {
			tp.scrollback = lines
		}
		return nil
	}
}

// Start runs mainLoop on the terminal console if -text was given and on
// plain stdout otherwise.
func Start(mainLoop func(Platform), configs ...Config) {
	if f := flag.Lookup("text"); f != nil && f.Value.(flag.Getter).Get().(bool) {
		tcellStart(mainLoop, configs...)
		return
	}
	stdioStart(mainLoop, configs...)
}
