package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
)

const (
	barWidth = 40
	mib      = 1 << 20
)

// Progress redraws a download bar in place and ends the row once the body
// is complete. It draws only on a terminal and only for a known length.
func (p *Printer) Progress(done, total int64) {
	if p.quiet || !p.tty || total <= 0 {
		return
	}
	pct := int(done * 100 / total)
	if pct == p.barPct {
		return
	}
	p.barPct = pct
	fmt.Fprintf(p.out, "\r  %s %5.1f/%.1f MB", p.bar.ViewAs(float64(done)/float64(total)), float64(done)/mib, float64(total)/mib)
	if done >= total {
		fmt.Fprintln(p.out)
		p.barPct = -1
	}
}

func newBar() progress.Model {
	return progress.New(
		progress.WithWidth(barWidth),
		progress.WithSolidFill(barFillHex),
		progress.WithoutPercentage(),
	)
}
