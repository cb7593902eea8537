package logging

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/lemachinarbo/RockShell/internal/domain"
)

// LogFileName is written into the docroot.
const LogFileName = "pwinstall-log.md"

type Config struct {
	// Always writes the log even when the run succeeded.
	Always  bool
	Docroot string
	Version string
	Mode    string
	Host    string
	Profile string
	RunID   string
}

type Result struct {
	Path    string
	Written bool
}

// visit is one pass over an installer page. The installer returns to the
// same step after reloads and validation errors, so a step can have many.
type visit struct {
	stepID    string
	label     string
	iteration int
	failed    bool
	entries   []domain.LogEntry
}

// EventLogger records the events of a run and renders them as a markdown
// timeline of installer page visits.
type EventLogger struct {
	cfg     Config
	started time.Time
	ended   time.Time
	setup   visit
	visits  []*visit
	current map[string]*visit
	failed  bool
}

func NewEventLogger(cfg Config) *EventLogger {
	return &EventLogger{
		cfg:     cfg,
		started: time.Now(),
		setup:   visit{label: "Setup"},
		current: map[string]*visit{},
	}
}

func (l *EventLogger) Record(ev domain.Event) {
	if ev.TS.IsZero() {
		ev.TS = time.Now()
	}
	l.ended = ev.TS

	switch ev.Type {
	case domain.EventStepStart:
		v := &visit{stepID: ev.StepID, label: ev.StepID}
		if p, ok := ev.Payload.(domain.StepStartPayload); ok {
			if label := strings.TrimSpace(p.Label); label != "" {
				v.label = label
			}
			v.iteration = p.Iteration
		}
		l.visits = append(l.visits, v)
		l.current[ev.StepID] = v
	case domain.EventStepDone:
		if p, ok := ev.Payload.(domain.StepDonePayload); ok && !p.OK {
			l.visitFor(ev.StepID).failed = true
		}
	case domain.EventLog:
		l.add(ev, domain.LogInfo)
	case domain.EventSuccess:
		l.add(ev, domain.LogSuccess)
	case domain.EventWarning:
		l.add(ev, domain.LogWarning)
	case domain.EventError:
		l.failed = true
		if ev.StepID != "" {
			l.visitFor(ev.StepID).failed = true
		}
		l.add(ev, domain.LogError)
	}
}

// MarkFailure forces the log to be written even if no error event came.
func (l *EventLogger) MarkFailure() {
	l.failed = true
}

func (l *EventLogger) visitFor(stepID string) *visit {
	if v, ok := l.current[stepID]; ok && stepID != "" {
		return v
	}
	return &l.setup
}

func (l *EventLogger) add(ev domain.Event, level domain.LogLevel) {
	p, ok := ev.Payload.(domain.LogPayload)
	if !ok {
		return
	}
	v := l.visitFor(ev.StepID)
	v.entries = append(v.entries, domain.LogEntry{
		TS:      ev.TS,
		Level:   level,
		Source:  ev.Source,
		StepID:  ev.StepID,
		Message: p.Message,
		Fields:  p.Fields,
	})
}

// Finalize writes the report when the run failed or Always is set.
func (l *EventLogger) Finalize() (Result, error) {
	if !l.cfg.Always && !l.failed {
		return Result{}, nil
	}
	if l.ended.IsZero() {
		l.ended = time.Now()
	}

	path := filepath.Join(logDir(l.cfg.Docroot), LogFileName)
	f, err := os.Create(path)
	if err != nil {
		return Result{}, err
	}
	w := bufio.NewWriter(f)
	l.render(w)
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return Result{}, err
	}
	if err := f.Close(); err != nil {
		return Result{}, err
	}
	return Result{Path: path, Written: true}, nil
}

func (l *EventLogger) render(w *bufio.Writer) {
	result := "Completed"
	if l.failed {
		result = "Failed"
	}
	rows := [][2]string{
		{"Result", result},
		{"Started", l.started.Format(time.RFC3339)},
		{"Duration", l.ended.Sub(l.started).Round(time.Millisecond).String()},
		{"Page visits", fmt.Sprint(len(l.visits))},
		{"Docroot", l.cfg.Docroot},
		{"Host", l.cfg.Host},
		{"Profile", l.cfg.Profile},
		{"Mode", l.cfg.Mode},
		{"Version", l.cfg.Version},
		{"Run", l.cfg.RunID},
	}

	fmt.Fprintln(w, "# pwinstall run log")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "| | |")
	fmt.Fprintln(w, "|---|---|")
	for _, r := range rows {
		if v := strings.TrimSpace(r[1]); v != "" {
			fmt.Fprintf(w, "| %s | %s |\n", r[0], strings.ReplaceAll(sanitize(v), "|", `\|`))
		}
	}

	all := append([]*visit{&l.setup}, l.visits...)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "## Problems")
	problems := 0
	for _, v := range all {
		for _, e := range v.entries {
			if e.Level != domain.LogError && e.Level != domain.LogWarning {
				continue
			}
			problems++
			fmt.Fprintf(w, "- **%s** %s: %s\n", e.Level, v.label, sanitize(withError(e)))
		}
	}
	if problems == 0 {
		fmt.Fprintln(w, "None.")
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "## Timeline")
	for i, v := range all {
		if i == 0 && len(v.entries) == 0 {
			continue
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, v.heading())
		if len(v.entries) == 0 {
			fmt.Fprintln(w, "_Nothing recorded._")
			continue
		}
		fmt.Fprintln(w, "```text")
		for _, line := range entryLines(v.entries) {
			fmt.Fprintln(w, line)
		}
		fmt.Fprintln(w, "```")
	}
}

func (v *visit) heading() string {
	h := "### " + v.label
	if v.stepID != "" {
		h += " (`" + v.stepID + "`)"
	}
	if v.iteration > 0 {
		h += fmt.Sprintf(" #%d", v.iteration)
	}
	if v.failed {
		h += " FAILED"
	}
	return h
}

// entryLines renders entries one per line, folding consecutive repeats
// into a counter.
func entryLines(entries []domain.LogEntry) []string {
	var out []string
	var last string
	repeat := 0
	flush := func() {
		if last == "" {
			return
		}
		if repeat > 1 {
			last += fmt.Sprintf(" (x%d)", repeat)
		}
		out = append(out, last)
	}
	for _, e := range entries {
		line := fmt.Sprintf("%s %-7s %s", e.TS.Format("15:04:05"), strings.ToUpper(string(e.Level)), sanitize(e.Message))
		if f := renderFields(e.Fields); f != "" {
			line += "  " + f
		}
		if line == last {
			repeat++
			continue
		}
		flush()
		last, repeat = line, 1
	}
	flush()
	return out
}

func withError(e domain.LogEntry) string {
	msg := strings.TrimSpace(e.Message)
	if errText := strings.TrimSpace(e.Fields["error"]); errText != "" && !strings.Contains(msg, errText) {
		return msg + ": " + errText
	}
	return msg
}

func renderFields(fields map[string]string) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		v := sanitize(fields[k])
		if secretKey(k) {
			v = redacted
		}
		if v == "" || strings.ContainsAny(v, " \t") {
			v = fmt.Sprintf("%q", v)
		}
		b.WriteString(k + "=" + v)
	}
	return b.String()
}

func logDir(docroot string) string {
	dir := filepath.Clean(strings.TrimSpace(docroot))
	if dir == "" || dir == "." {
		if cwd, err := os.Getwd(); err == nil {
			return cwd
		}
		return os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return os.TempDir()
	}
	return dir
}

const redacted = "<redacted>"

// secretKey matches installer field names that carry credentials or
// personal data: userpass, dbPass, useremail, username, dbUser.
func secretKey(k string) bool {
	k = strings.ToLower(k)
	return strings.Contains(k, "pass") || strings.Contains(k, "mail") || strings.Contains(k, "user")
}

var (
	secretFlagRe   = regexp.MustCompile(`(?i)(--(?:pass|mail|name))(?:=|\s+)\S+`)
	secretAssignRe = regexp.MustCompile(`\b(\w+)(\s*[:=]\s*)(\S+)`)
	emailRe        = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)
)

// sanitize removes terminal styling and control characters and masks
// credentials so the log can be shared.
func sanitize(s string) string {
	s = ansi.Strip(s)
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			return ' '
		case r < 0x20 || r == 0x7f:
			return -1
		}
		return r
	}, s)
	s = strings.TrimSpace(s)
	s = secretFlagRe.ReplaceAllString(s, "$1="+redacted)
	s = secretAssignRe.ReplaceAllStringFunc(s, func(m string) string {
		parts := secretAssignRe.FindStringSubmatch(m)
		if !secretKey(parts[1]) {
			return m
		}
		return parts[1] + parts[2] + redacted
	})
	return emailRe.ReplaceAllString(s, redacted)
}
