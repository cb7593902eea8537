package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/term"
)

// ErrCancelled is returned when the operator aborts a prompt.
var ErrCancelled = fmt.Errorf("prompt cancelled: %w", context.Canceled)

// Console asks the operator questions. On a terminal it runs small
// bubbletea programs; otherwise it reads plain lines.
type Console struct {
	in          io.Reader
	out         io.Writer
	interactive bool
	lines       *bufio.Reader
}

// NewConsole uses the terminal when both stdin and stdout are TTYs.
func NewConsole(in, out *os.File) *Console {
	c := NewLineConsole(in, out)
	c.interactive = term.IsTerminal(in.Fd()) && term.IsTerminal(out.Fd())
	return c
}

// NewLineConsole never starts a terminal program.
func NewLineConsole(in io.Reader, out io.Writer) *Console {
	return &Console{in: in, out: out, lines: bufio.NewReader(in)}
}

func (c *Console) Ask(ctx context.Context, label, def string) (string, error) {
	return c.AskWithCompletion(ctx, label, nil, def)
}

// AskWithCompletion returns the answer as typed, without its line
// ending. A blank answer takes def.
func (c *Console) AskWithCompletion(ctx context.Context, label string, candidates []string, def string) (string, error) {
	if c.interactive {
		final, err := c.run(ctx, newInputModel(label, def, candidates))
		if err != nil {
			return "", err
		}
		m := final.(inputModel)
		if m.cancelled {
			return "", ErrCancelled
		}
		return m.value, nil
	}

	prompt := questionLine(label, def) + ": "
	answer, err := c.readLine(ctx, prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(answer) == "" {
		return def, nil
	}
	return answer, nil
}

func (c *Console) Confirm(ctx context.Context, label string, def bool) (bool, error) {
	if c.interactive {
		final, err := c.run(ctx, confirmModel{label: label, value: def})
		if err != nil {
			return false, err
		}
		m := final.(confirmModel)
		if m.cancelled {
			return false, ErrCancelled
		}
		return m.value, nil
	}

	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	for {
		answer, err := c.readLine(ctx, questionLine(label, "")+" ("+hint+"): ")
		if err != nil {
			return false, err
		}
		if v, ok := parseYesNo(answer, def); ok {
			return v, nil
		}
		fmt.Fprintln(c.out, warnStyle.Render("Please answer yes or no."))
	}
}

func (c *Console) Choose(ctx context.Context, label string, options []string, defIdx int) (string, error) {
	if len(options) == 0 {
		return "", errors.New("no options to choose from")
	}
	if defIdx < 0 || defIdx >= len(options) {
		defIdx = 0
	}
	if c.interactive {
		final, err := c.run(ctx, newChooseModel(label, options, defIdx))
		if err != nil {
			return "", err
		}
		m := final.(chooseModel)
		if m.cancelled {
			return "", ErrCancelled
		}
		return m.value, nil
	}

	fmt.Fprintln(c.out, questionLine(label, ""))
	for i, o := range options {
		fmt.Fprintf(c.out, "  [%d] %s\n", i, o)
	}
	for {
		answer, err := c.readLine(ctx, "> "+defaultInputStyle.Render("["+options[defIdx]+"]")+" ")
		if err != nil {
			return "", err
		}
		if v, ok := pickOption(options, answer, defIdx); ok {
			return v, nil
		}
		fmt.Fprintf(c.out, "%s\n", warnStyle.Render(fmt.Sprintf("Value %q is invalid.", answer)))
	}
}

func (c *Console) run(ctx context.Context, m tea.Model) (tea.Model, error) {
	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithInput(c.in), tea.WithOutput(c.out))
	final, err := p.Run()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ErrCancelled
		}
		return nil, err
	}
	return final, nil
}

// readLine honours ctx only between lines; a blocked read returns when
// the operator presses enter or closes stdin.
func (c *Console) readLine(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprint(c.out, prompt)
	line, err := c.lines.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(c.out)
			return "", ErrCancelled
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func parseYesNo(answer string, def bool) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "":
		return def, true
	case "y", "yes":
		return true, true
	case "n", "no":
		return false, true
	}
	return false, false
}

// pickOption accepts an index or the option text, case-insensitively.
func pickOption(options []string, answer string, defIdx int) (string, bool) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return options[defIdx], true
	}
	if i, err := strconv.Atoi(answer); err == nil && i >= 0 && i < len(options) {
		return options[i], true
	}
	for _, o := range options {
		if strings.EqualFold(o, answer) {
			return o, true
		}
	}
	return "", false
}
