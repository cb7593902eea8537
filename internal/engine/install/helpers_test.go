package install

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/lemachinarbo/RockShell/internal/config"
	"github.com/lemachinarbo/RockShell/internal/domain"
	"github.com/lemachinarbo/RockShell/internal/engine/mock"
	"github.com/lemachinarbo/RockShell/internal/resolve"
	"github.com/lemachinarbo/RockShell/internal/web"
)

var errNoScript = errors.New("prompt not scripted")

type prompt struct {
	kind    string
	label   string
	def     string
	options []string
}

// scriptedConsole answers prompts by label. Labels without a script get
// the default; strict consoles fail them instead.
type scriptedConsole struct {
	mu      sync.Mutex
	strict  bool
	text    map[string][]string
	yes     map[string][]bool
	prompts []prompt
}

func newConsole() *scriptedConsole {
	return &scriptedConsole{text: map[string][]string{}, yes: map[string][]bool{}}
}

func (c *scriptedConsole) answer(label string, values ...string) *scriptedConsole {
	c.text[label] = append(c.text[label], values...)
	return c
}

func (c *scriptedConsole) confirm(label string, values ...bool) *scriptedConsole {
	c.yes[label] = append(c.yes[label], values...)
	return c
}

func (c *scriptedConsole) nextText(kind, label, def string, options []string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, prompt{kind: kind, label: label, def: def, options: options})
	if q := c.text[label]; len(q) > 0 {
		c.text[label] = q[1:]
		return q[0], nil
	}
	if c.strict {
		return "", fmt.Errorf("%w: %s %q", errNoScript, kind, label)
	}
	return def, nil
}

func (c *scriptedConsole) Ask(_ context.Context, label, def string) (string, error) {
	return c.nextText("ask", label, def, nil)
}

func (c *scriptedConsole) AskWithCompletion(_ context.Context, label string, _ []string, def string) (string, error) {
	return c.nextText("complete", label, def, nil)
}

func (c *scriptedConsole) Choose(_ context.Context, label string, options []string, defIdx int) (string, error) {
	def := ""
	if defIdx >= 0 && defIdx < len(options) {
		def = options[defIdx]
	}
	return c.nextText("choose", label, def, options)
}

func (c *scriptedConsole) Confirm(_ context.Context, label string, def bool) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, prompt{kind: "confirm", label: label, def: fmt.Sprint(def)})
	if q := c.yes[label]; len(q) > 0 {
		c.yes[label] = q[1:]
		return q[0], nil
	}
	if c.strict {
		return false, fmt.Errorf("%w: confirm %q", errNoScript, label)
	}
	return def, nil
}

func (c *scriptedConsole) labels() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.prompts))
	for i, p := range c.prompts {
		out[i] = p.label
	}
	return out
}

func (c *scriptedConsole) find(label string) (prompt, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.prompts {
		if p.label == label {
			return p, true
		}
	}
	return prompt{}, false
}

type fakeFetcher struct {
	onCore   func(version string)
	core     []string
	profiles int
}

func (f *fakeFetcher) CoreVersions(context.Context) []string {
	return []string{"master", "dev", "3.0.229"}
}

func (f *fakeFetcher) FetchCore(_ context.Context, version, _ string) error {
	f.core = append(f.core, version)
	if f.onCore != nil {
		f.onCore(version)
	}
	return nil
}

func (f *fakeFetcher) FetchProfile(context.Context, string) error {
	f.profiles++
	return nil
}

type fixedLocator struct {
	path string
	err  error
}

func (l fixedLocator) AdminPath(context.Context, string) (string, error) {
	return l.path, l.err
}

type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recorder) emit(ev domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) messages(t domain.EventType) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, ev := range r.events {
		if ev.Type != t {
			continue
		}
		if p, ok := ev.Payload.(domain.LogPayload); ok {
			out = append(out, p.Message)
		}
	}
	return out
}

func (r *recorder) has(t domain.EventType, substr string) bool {
	for _, m := range r.messages(t) {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

type harness struct {
	t       *testing.T
	mock    *mock.Installer
	srv     *httptest.Server
	host    string
	console *scriptedConsole
	fetcher *fakeFetcher
	locator fixedLocator
	rec     *recorder
	opt     Options
}

func newHarness(t *testing.T, mo mock.Options, lazy bool) *harness {
	t.Helper()
	m := mock.New(mo)
	srv := httptest.NewServer(m)
	t.Cleanup(srv.Close)

	h := &harness{
		t:       t,
		mock:    m,
		srv:     srv,
		host:    strings.TrimPrefix(srv.URL, "http://"),
		console: newConsole(),
		fetcher: &fakeFetcher{},
		locator: fixedLocator{path: "/adm/"},
		rec:     &recorder{},
	}
	h.console.strict = lazy
	h.opt = Options{
		Docroot: t.TempDir(),
		Cascade: resolve.Cascade{
			Lazy:      lazy,
			Overrides: map[string]string{"host": h.host},
			Defaults:  config.BuiltinTable(),
		},
	}
	return h
}

func (h *harness) run(ctx context.Context) error {
	h.t.Helper()
	client, err := web.New()
	if err != nil {
		h.t.Fatalf("web.New: %v", err)
	}
	eng := New(h.opt, Deps{
		Browser: client,
		Console: h.console,
		Fetcher: h.fetcher,
		Locator: h.locator,
	})
	return eng.Run(ctx, h.rec.emit)
}

func (h *harness) lastSubmission(stage mock.Stage) map[string][]string {
	h.t.Helper()
	subs := h.mock.Submissions()
	for i := len(subs) - 1; i >= 0; i-- {
		if subs[i].Stage == stage {
			return subs[i].Values
		}
	}
	h.t.Fatalf("no submission for stage %s", stage)
	return nil
}
