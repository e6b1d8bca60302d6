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
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/gdamore/tcell"
	log "github.com/sirupsen/logrus"
)

const DefaultScrollback = 1000

var titleStyle = tcell.StyleDefault.Reverse(true)

type tcellPlatform struct {
	platformBase
	sync.Mutex

	screen tcell.Screen
	done   chan struct{}

	title      string
	lines      []string
	partial    bytes.Buffer
	scrollback int
}

func newTcellPlatform(s tcell.Screen, configs ...Config) (*tcellPlatform, error) {
	p := &tcellPlatform{
		screen:     s,
		done:       make(chan struct{}),
		scrollback: DefaultScrollback,
	}
	if err := p.setup(configs, p); err != nil {
		return nil, err
	}

	if err := s.Init(); err != nil {
		return nil, err
	}
	s.HideCursor()
	s.DisableMouse()
	s.Clear()

	p.initializeTcellEvents()
	return p, nil
}

func tcellStart(mainLoop func(Platform), configs ...Config) {
	tcell.SetEncodingFallback(tcell.EncodingFallbackASCII)

	s, err := tcell.NewScreen()
	if err != nil {
		log.Fatal(err)
	}

	p, err := newTcellPlatform(s, configs...)
	if err != nil {
		log.Fatal(err)
	}
	Instance = p

	logOutput := log.StandardLogger().Out
	log.SetOutput(p)

	mainLoop(p)

	p.SetTitle(p.title + " [halted, press Esc to exit]")
	<-p.ctx.Done()
	p.fini()

	log.SetOutput(logOutput)
	p.dump(os.Stdout)
}

func (p *tcellPlatform) fini() {
	p.cancel()
	p.screen.Fini()
	<-p.done
}

// Write appends complete lines to the scrollback. A trailing partial line
// is held until its newline arrives.
func (p *tcellPlatform) Write(b []byte) (int, error) {
	p.Lock()
	p.partial.Write(b)
	for {
		line, err := p.partial.ReadString('\n')
		if err != nil {
			p.partial.WriteString(line)
			break
		}
		p.appendLine(strings.TrimRight(line, "\r\n"))
	}
	p.Unlock()

	p.screen.PostEvent(tcell.NewEventInterrupt(nil))
	return len(b), nil
}

func (p *tcellPlatform) appendLine(line string) {
	p.lines = append(p.lines, line)
	if n := len(p.lines) - p.scrollback; n > 0 {
		p.lines = append(p.lines[:0], p.lines[n:]...)
	}
}

func (p *tcellPlatform) SetTitle(title string) {
	p.Lock()
	p.title = title
	p.Unlock()
	p.screen.PostEvent(tcell.NewEventInterrupt(nil))
}

func (p *tcellPlatform) render() {
	p.Lock()
	defer p.Unlock()

	s := p.screen
	w, h := s.Size()
	s.Clear()

	for x := 0; x < w; x++ {
		s.SetContent(x, 0, ' ', nil, titleStyle)
	}
	drawString(s, 0, w, p.title, titleStyle)

	rows := h - 1
	if rows <= 0 {
		s.Show()
		return
	}

	lines := p.lines
	if len(lines) > rows {
		lines = lines[len(lines)-rows:]
	}
	for i, l := range lines {
		drawString(s, i+1, w, l, tcell.StyleDefault)
	}
	s.Show()
}

func drawString(s tcell.Screen, y, w int, str string, style tcell.Style) {
	x := 0
	for _, r := range str {
		if x >= w {
			return
		}
		s.SetContent(x, y, r, nil, style)
		x++
	}
}

func (p *tcellPlatform) dump(w io.Writer) {
	p.Lock()
	defer p.Unlock()
	for _, l := range p.lines {
		fmt.Fprintln(w, l)
	}
}
