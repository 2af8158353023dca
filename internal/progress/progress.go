// Package progress shows the progress of a shadow mask run on the terminal.
package progress

import (
	"io"

	"github.com/pterm/pterm"
)

// Title is shown in front of the bar.
const Title = "Casting shadows"

// Bar is a terminal progress bar fed with frame counts. It satisfies
// shadow.Observer.
type Bar struct {
	out     io.Writer
	printer *pterm.ProgressbarPrinter
	done    int
}

// NewBar returns a bar writing to out; nil means the terminal.
func NewBar(out io.Writer) *Bar {
	return &Bar{out: out}
}

// Progress advances the bar to done of total frames, starting it on the
// first call.
func (b *Bar) Progress(done, total int) {
	if b.printer == nil {
		p := pterm.DefaultProgressbar.WithTotal(total).WithTitle(Title).WithRemoveWhenDone(false)
		if b.out != nil {
			p = p.WithWriter(b.out)
		}
		started, err := p.Start()
		if err != nil {
			return
		}
		b.printer = started
	}
	if done > b.done {
		b.printer.Add(done - b.done)
		b.done = done
	}
}

// Stop finishes the bar. It is safe to call when the bar never started.
func (b *Bar) Stop() {
	if b.printer != nil {
		b.printer.Stop()
		b.printer = nil
	}
}
