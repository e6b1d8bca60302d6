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
	"io"
	"os"

	log "github.com/sirupsen/logrus"
)

type stdioPlatform struct {
	platformBase
	out io.Writer
}

func newStdioPlatform(out io.Writer, configs ...Config) (*stdioPlatform, error) {
	p := &stdioPlatform{out: out}
	if err := p.setup(configs, p); err != nil {
		return nil, err
	}
	return p, nil
}

func stdioStart(mainLoop func(Platform), configs ...Config) {
	p, err := newStdioPlatform(os.Stdout, configs...)
	if err != nil {
		log.Fatal(err)
	}
	defer p.cancel()

	Instance = p
	mainLoop(p)
}

func (p *stdioPlatform) Write(b []byte) (int, error) {
	return p.out.Write(b)
}

func (p *stdioPlatform) SetTitle(title string) {
	log.Info(title)
}
