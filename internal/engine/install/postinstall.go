package install

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/lemachinarbo/RockShell/internal/hosts"
)

// reloadAdmin loads the admin page of the new site until it renders
// without first-load notices. Every load counts against the step limit.
func (e *Engine) reloadAdmin(ctx context.Context, s *session) error {
	s.stepID = "admin_reload"
	e.log(s, "Loading ProcessWire ...", nil)

	path, err := e.adminPath(ctx, s)
	if err != nil {
		return err
	}
	url := hosts.Join(s.base, path)
	e.log(s, url, nil)

	for {
		page, err := e.deps.Browser.Get(ctx, url)
		if err != nil {
			return err
		}
		notices := page.Texts("li.NoticeMessage")
		for _, n := range notices {
			e.log(s, n, nil)
		}
		if len(notices) == 0 {
			e.success(s, "INSTALL SUCCESSFUL")
			e.success(s, "Login: "+url)
			return nil
		}

		s.steps++
		if s.steps > e.opt.MaxSteps {
			e.warn(s, "Admin page still shows notices; giving up")
			return ErrStepLimit
		}
		e.warn(s, "Reloading ...")
	}
}

func (e *Engine) adminPath(ctx context.Context, s *session) (string, error) {
	if e.deps.Locator != nil {
		path, err := e.deps.Locator.AdminPath(ctx, e.opt.Docroot)
		if err == nil {
			return path, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		e.deps.Log.Debug("admin path lookup failed", zap.Error(err))
	}

	name := s.adminName
	if name == "" {
		name = strings.Trim(e.opt.Cascade.String("admin_name", "processwire"), "/ ")
	}
	path := "/" + name + "/"
	e.warn(s, "Could not ask ProcessWire for the admin url; assuming "+path)
	return path, nil
}
