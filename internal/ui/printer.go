package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/x/term"
	"github.com/mattn/go-runewidth"

	"github.com/lemachinarbo/RockShell/internal/domain"
)

// Printer renders engine events as prefixed lines. Warnings and errors go
// to errOut.
type Printer struct {
	out    io.Writer
	errOut io.Writer
	quiet  bool
	width  int
	labels map[string]string
	failed bool
	tty    bool
	bar    progress.Model
	barPct int
}

func NewPrinter(out, errOut io.Writer, quiet bool) *Printer {
	p := &Printer{out: out, errOut: errOut, quiet: quiet, labels: map[string]string{}, bar: newBar(), barPct: -1}
	if f, ok := out.(*os.File); ok {
		p.tty = term.IsTerminal(f.Fd())
		if w, _, err := term.GetSize(f.Fd()); err == nil && w > 0 {
			p.width = w
		}
	}
	return p
}

// Failed reports whether an error event or a failed step was seen.
func (p *Printer) Failed() bool { return p.failed }

// Header prints a titled panel of key/value rows.
func (p *Printer) Header(title string, rows [][2]string) {
	if p.quiet {
		return
	}
	keyW := 0
	for _, r := range rows {
		keyW = max(keyW, runewidth.StringWidth(r[0]))
	}
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		if strings.TrimSpace(r[1]) == "" {
			continue
		}
		lines = append(lines, mutedStyle.Render(runewidth.FillRight(r[0], keyW))+"  "+r[1])
	}
	width := p.width
	if width <= 0 || width > 72 {
		width = 72
	}
	fmt.Fprintln(p.out, Panel(width, title, lines))
}

func (p *Printer) Handle(ev domain.Event) {
	switch ev.Type {
	case domain.EventStepStart:
		label := ev.StepID
		if s, ok := ev.Payload.(domain.StepStartPayload); ok && strings.TrimSpace(s.Label) != "" {
			label = strings.TrimSpace(s.Label)
		}
		p.labels[ev.StepID] = label
		if !p.quiet {
			p.line(p.out, activeStyle.Render("==>"), label)
		}
	case domain.EventStepDone:
		if s, ok := ev.Payload.(domain.StepDonePayload); ok && !s.OK {
			p.failed = true
			p.line(p.errOut, errStyle.Render("✗"), p.label(ev.StepID))
		}
	case domain.EventLog:
		msg := message(ev)
		if msg == "" || p.quiet {
			return
		}
		if ev.Severity == domain.SeverityTrace {
			p.line(p.out, mutedStyle.Render("·"), mutedStyle.Render(p.cut(msg, 4)))
			return
		}
		p.line(p.out, mutedStyle.Render("-"), msg)
	case domain.EventSuccess:
		if msg := message(ev); msg != "" {
			p.line(p.out, okStyle.Render("✓"), okStyle.Render(msg))
		}
	case domain.EventWarning:
		if msg := message(ev); msg != "" {
			p.line(p.errOut, warnStyle.Render("!"), msg)
		}
	case domain.EventError:
		p.failed = true
		if msg := message(ev); msg != "" {
			p.line(p.errOut, errStyle.Render("✗"), msg)
		}
	}
}

func (p *Printer) label(stepID string) string {
	if l := strings.TrimSpace(p.labels[stepID]); l != "" {
		return l
	}
	return stepID
}

// cut keeps trace lines on one terminal row.
func (p *Printer) cut(msg string, reserve int) string {
	if p.width <= reserve {
		return msg
	}
	return runewidth.Truncate(msg, p.width-reserve, "…")
}

func (p *Printer) line(w io.Writer, prefix, msg string) {
	fmt.Fprintf(w, "%s %s\n", prefix, msg)
}

func message(ev domain.Event) string {
	lp, ok := ev.Payload.(domain.LogPayload)
	if !ok {
		return ""
	}
	msg := strings.TrimRight(lp.Message, " \n")
	if errText := strings.TrimSpace(lp.Fields["error"]); errText != "" && !strings.Contains(msg, errText) {
		msg += ": " + errText
	}
	return msg
}
