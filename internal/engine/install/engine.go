package install

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lemachinarbo/RockShell/internal/domain"
	"github.com/lemachinarbo/RockShell/internal/hosts"
	"github.com/lemachinarbo/RockShell/internal/resolve"
	"github.com/lemachinarbo/RockShell/internal/web"
)

const DefaultMaxSteps = 50

var (
	ErrExistingInstall = errors.New("index.php found but no installer")
	ErrNoForm          = errors.New("no form found")
	ErrNoProfiles      = errors.New("no site profiles found")
	ErrAborted         = errors.New("aborted")
	ErrStepLimit       = errors.New("step limit reached")
	ErrOutsideDDEV     = errors.New("use ddev ssh to run this command from within DDEV")
)

// Browser fetches installer pages and submits their forms.
type Browser interface {
	hosts.Prober
	Get(ctx context.Context, url string) (*web.Page, error)
	Submit(ctx context.Context, f *web.Form) (*web.Page, error)
}

// Console is the operator side of an interactive run.
type Console interface {
	Ask(ctx context.Context, label, def string) (string, error)
	AskWithCompletion(ctx context.Context, label string, candidates []string, def string) (string, error)
	Confirm(ctx context.Context, label string, def bool) (bool, error)
	Choose(ctx context.Context, label string, options []string, defIdx int) (string, error)
}

// Fetcher downloads installable archives into the docroot.
type Fetcher interface {
	CoreVersions(ctx context.Context) []string
	FetchCore(ctx context.Context, version, docroot string) error
	FetchProfile(ctx context.Context, docroot string) error
}

// Locator asks the installed site for the admin page path.
type Locator interface {
	AdminPath(ctx context.Context, docroot string) (string, error)
}

type Options struct {
	Docroot     string
	Hints       hosts.Hints
	DefaultHost string
	Cascade     resolve.Cascade
	Debug       bool

	// CheckDDEV refuses to run outside the container of a DDEV project.
	CheckDDEV bool
	InDDEV    bool

	MaxSteps      int
	DownloadDelay time.Duration
}

type Deps struct {
	Browser Browser
	Console Console
	Fetcher Fetcher
	Locator Locator
	Log     *zap.Logger
}

type Engine struct {
	opt  Options
	deps Deps
}

func New(opt Options, deps Deps) *Engine {
	if opt.MaxSteps <= 0 {
		opt.MaxSteps = DefaultMaxSteps
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	return &Engine{opt: opt, deps: deps}
}

// session is the mutable state of one run. It is owned by Run and handed
// to step handlers by pointer.
type session struct {
	emit        func(domain.Event)
	base        string
	page        *web.Page
	steps       int
	skipWelcome bool
	adminName   string
	stepID      string
}

func (s *session) installURL() string {
	return hosts.Join(s.base, "install.php")
}

// transition is what a step handler asks the loop to do next.
type transition struct {
	reload    bool
	noConfirm bool
	done      bool
}

type stepHandler func(ctx context.Context, s *session, c domain.Classification) (transition, error)

func (e *Engine) handlers() map[domain.Step]stepHandler {
	return map[domain.Step]stepHandler{
		domain.StepNoInstaller:   e.stepNoInstaller,
		domain.StepWelcome:       e.stepWelcome,
		domain.StepCompatibility: e.stepCompatibility,
		domain.StepProfile:       e.stepProfile,
		domain.StepDatabase:      e.stepDatabase,
		domain.StepAdmin:         e.stepAdmin,
		domain.StepFinish:        e.stepFinish,
		domain.StepUnknown:       e.stepUnknown,
	}
}

func (e *Engine) lazy() bool { return e.opt.Cascade.Lazy }

// Run drives the installer until the admin page loads cleanly, the
// operator aborts, or a fatal error occurs. Every outcome is also
// reported through emit.
func (e *Engine) Run(ctx context.Context, emit func(domain.Event)) error {
	if emit == nil {
		emit = func(domain.Event) {}
	}
	s := &session{emit: func(ev domain.Event) {
		if ev.TS.IsZero() {
			ev.TS = time.Now()
		}
		if ev.Source == "" {
			ev.Source = "install"
		}
		emit(ev)
	}}

	err := e.run(ctx, s)
	if err != nil && !errors.Is(err, context.Canceled) {
		e.errorf(s, "%v", err)
	}
	return err
}

func (e *Engine) run(ctx context.Context, s *session) error {
	s.stepID = "preflight"
	installed, err := e.preflight()
	if err != nil {
		return err
	}
	if installed {
		e.success(s, "ProcessWire is already installed!")
		return nil
	}

	s.stepID = "host"
	if err := e.resolveHost(ctx, s); err != nil {
		return err
	}
	return e.loop(ctx, s)
}

func (e *Engine) preflight() (bool, error) {
	root := e.opt.Docroot
	if e.opt.CheckDDEV && !e.opt.InDDEV && dirExists(filepath.Join(root, ".ddev")) {
		return false, ErrOutsideDDEV
	}
	return fileExists(filepath.Join(root, "site", "assets", "installed.php")), nil
}

func (e *Engine) resolveHost(ctx context.Context, s *session) error {
	host, err := e.pickHost(ctx)
	if err != nil {
		return err
	}
	res, err := hosts.Resolve(ctx, e.deps.Browser, host, e.opt.Hints)
	for _, a := range res.Attempts {
		e.deps.Log.Debug("host probe", zap.String("url", a.URL), zap.Int("status", a.Status), zap.Error(a.Err))
	}
	if err != nil {
		return err
	}
	s.base = res.BaseURL
	e.success(s, "Status check for host "+res.BaseURL+" was OK")
	if res.Forbidden {
		e.warn(s, "Access is forbidden (403). This may be expected during installation.")
	}
	return nil
}

func (e *Engine) pickHost(ctx context.Context) (string, error) {
	c := e.opt.Cascade
	def := e.opt.DefaultHost
	if def == "" {
		def = "example.com"
	}
	if h, ok := c.Override("host"); ok {
		return h, nil
	}
	if e.lazy() {
		return c.String("host", def), nil
	}
	h, err := e.deps.Console.Ask(ctx, "Enter host", def)
	return strings.TrimSpace(h), err
}

func (e *Engine) loop(ctx context.Context, s *session) error {
	handlers := e.handlers()
	next := transition{reload: true}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.steps++
		if s.steps > e.opt.MaxSteps {
			s.stepID = "loop"
			e.warn(s, fmt.Sprintf("Stopped after %d steps without finishing", e.opt.MaxSteps))
			return ErrStepLimit
		}

		if next.reload || s.page == nil {
			page, err := e.deps.Browser.Get(ctx, s.installURL())
			if err != nil {
				return err
			}
			s.page = page
		}

		c := Classify(s.page.Banner(), s.page.Headings())
		s.stepID = string(c.Step)
		s.emit(domain.Event{
			Type:     domain.EventStepStart,
			StepID:   s.stepID,
			Severity: domain.SeverityInfo,
			Payload:  domain.StepStartPayload{Label: c.Step.Label(), Iteration: s.steps},
		})
		for _, alert := range s.page.Texts("div.uk-alert") {
			e.warn(s, alert)
		}

		tr, err := handlers[c.Step](ctx, s, c)
		s.emit(domain.Event{
			Type:     domain.EventStepDone,
			StepID:   s.stepID,
			Severity: severityFor(err),
			Payload:  domain.StepDonePayload{OK: err == nil},
		})
		if err != nil {
			return err
		}
		if tr.done {
			return nil
		}

		if !tr.noConfirm && !e.lazy() {
			ok, err := e.deps.Console.Confirm(ctx, "Continue to next step?", true)
			if err != nil {
				return err
			}
			if !ok {
				return ErrAborted
			}
		}
		next = tr
	}
}

func severityFor(err error) domain.Severity {
	if err != nil {
		return domain.SeverityError
	}
	return domain.SeverityInfo
}

// submit sends f and makes the response the current page.
func (e *Engine) submit(ctx context.Context, s *session, f *web.Form) error {
	page, err := e.deps.Browser.Submit(ctx, f)
	if err != nil {
		return err
	}
	s.page = page
	return nil
}

// press submits the form owning the button labelled label.
func (e *Engine) press(ctx context.Context, s *session, label string) error {
	f, err := s.page.FormByButton(label)
	if err != nil {
		return err
	}
	return e.submit(ctx, s, f)
}

func (e *Engine) log(s *session, msg string, fields map[string]string) {
	s.emit(domain.Event{
		Type:     domain.EventLog,
		StepID:   s.stepID,
		Severity: domain.SeverityInfo,
		Payload:  domain.LogPayload{Message: msg, Fields: fields},
	})
}

func (e *Engine) debugf(s *session, format string, args ...any) {
	if !e.opt.Debug {
		return
	}
	s.emit(domain.Event{
		Type:     domain.EventLog,
		StepID:   s.stepID,
		Severity: domain.SeverityTrace,
		Payload:  domain.LogPayload{Message: fmt.Sprintf(format, args...)},
	})
}

func (e *Engine) success(s *session, msg string) {
	s.emit(domain.Event{
		Type:     domain.EventSuccess,
		StepID:   s.stepID,
		Severity: domain.SeverityInfo,
		Payload:  domain.LogPayload{Message: msg},
	})
}

func (e *Engine) warn(s *session, msg string) {
	e.deps.Log.Warn(msg, zap.String("step", s.stepID))
	s.emit(domain.Event{
		Type:     domain.EventWarning,
		StepID:   s.stepID,
		Severity: domain.SeverityWarn,
		Payload:  domain.LogPayload{Message: msg},
	})
}

func (e *Engine) errorf(s *session, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	e.deps.Log.Error(msg, zap.String("step", s.stepID))
	s.emit(domain.Event{
		Type:     domain.EventError,
		StepID:   s.stepID,
		Severity: domain.SeverityError,
		Payload:  domain.LogPayload{Message: msg},
	})
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

func dirExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.IsDir()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func containsFold(list []string, want string) (string, bool) {
	want = strings.TrimSpace(want)
	for _, v := range list {
		if strings.EqualFold(strings.TrimSpace(v), want) {
			return v, true
		}
	}
	return "", false
}
