package install

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lemachinarbo/RockShell/internal/domain"
	"github.com/lemachinarbo/RockShell/internal/services/download"
)

const (
	compatRowSelector = "div.uk-section-muted > div.uk-container > div"
	profileSelector   = "select[name=profile] > option"
)

func (e *Engine) stepNoInstaller(ctx context.Context, s *session, _ domain.Classification) (transition, error) {
	e.log(s, "No ProcessWire installer found", nil)
	if fileExists(filepath.Join(e.opt.Docroot, "index.php")) {
		return transition{}, fmt.Errorf("%w in %s", ErrExistingInstall, e.opt.Docroot)
	}

	want, err := e.confirmOrTable(ctx, "download_processwire", "Download ProcessWire now?")
	if err != nil {
		return transition{}, err
	}
	if !want {
		e.warn(s, "Aborting ...")
		return transition{}, ErrAborted
	}

	version := e.opt.Cascade.String("processwire_version", "dev")
	if !e.lazy() {
		versions := e.deps.Fetcher.CoreVersions(ctx)
		idx := -1
		for i, v := range versions {
			if strings.EqualFold(v, version) {
				idx = i
				break
			}
		}
		if idx < 0 {
			if _, ok := e.opt.Cascade.Override("processwire_version"); ok {
				versions = append(versions[:len(versions):len(versions)], version)
				idx = len(versions) - 1
			} else {
				idx = 0
			}
		}
		chosen, err := e.deps.Console.Choose(ctx, "Which version?", versions, idx)
		if err != nil {
			return transition{}, err
		}
		version = chosen
	}

	e.log(s, "Downloading ProcessWire ...", map[string]string{"version": version})
	if err := e.deps.Fetcher.FetchCore(ctx, version, e.opt.Docroot); err != nil {
		return transition{}, err
	}
	e.success(s, "ProcessWire "+version+" downloaded")
	if err := sleepCtx(ctx, e.opt.DownloadDelay); err != nil {
		return transition{}, err
	}
	return transition{reload: true, noConfirm: true}, nil
}

func (e *Engine) stepWelcome(ctx context.Context, s *session, _ domain.Classification) (transition, error) {
	if !s.skipWelcome {
		e.log(s, "Welcome", nil)
	}
	if err := e.press(ctx, s, "Get Started"); err != nil {
		return transition{}, err
	}
	return transition{}, nil
}

func (e *Engine) stepCompatibility(ctx context.Context, s *session, _ domain.Classification) (transition, error) {
	e.log(s, "Checking compatibility ...", nil)

	var items []domain.StatusItem
	s.page.Find(compatRowSelector).Each(func(_ int, row *goquery.Selection) {
		text := strings.Join(strings.Fields(row.Text()), " ")
		html, _ := goquery.OuterHtml(row)
		level := domain.StatusWarn
		if strings.Contains(html, "fa-check") {
			level = domain.StatusOK
		}
		items = append(items, domain.StatusItem{Label: text, Level: level})
	})
	status := domain.NormalizeSystemStatus(domain.SystemStatus{Items: items})
	for _, it := range status.Items {
		if it.Level == domain.StatusOK {
			e.success(s, it.Label)
		} else {
			e.warn(s, it.Label)
		}
	}

	failures := len(status.Failures())
	if failures == 0 {
		if err := e.press(ctx, s, "Continue to Next Step"); err != nil {
			return transition{}, err
		}
		return transition{}, nil
	}

	if e.lazy() {
		e.warn(s, fmt.Sprintf("%d compatibility issue(s); continuing anyway", failures))
		if err := e.press(ctx, s, "Continue to Next Step"); err != nil {
			return transition{}, err
		}
		return transition{noConfirm: true}, nil
	}

	again, err := e.deps.Console.Confirm(ctx, "Check again?", true)
	if err != nil {
		return transition{}, err
	}
	if again {
		s.skipWelcome = true
		return transition{reload: true, noConfirm: true}, nil
	}
	proceed, err := e.deps.Console.Confirm(ctx, "Continue Installation?", false)
	if err != nil {
		return transition{}, err
	}
	if !proceed {
		e.warn(s, "Aborting ...")
		return transition{}, ErrAborted
	}
	if err := e.press(ctx, s, "Continue to Next Step"); err != nil {
		return transition{}, err
	}
	return transition{noConfirm: true}, nil
}

func (e *Engine) stepProfile(ctx context.Context, s *session, _ domain.Classification) (transition, error) {
	root := e.opt.Docroot
	if err := download.RemoveStaleProfileArchive(root); err != nil {
		return transition{}, err
	}
	if !download.ProfileExists(root) {
		want, err := e.confirmOrTable(ctx, "download_rockfrontend", "Download RockFrontend Site Profile?")
		if err != nil {
			return transition{}, err
		}
		if want {
			e.log(s, "Downloading "+download.ProfileName+" ...", nil)
			if err := e.deps.Fetcher.FetchProfile(ctx, root); err != nil {
				return transition{}, err
			}
			e.success(s, download.ProfileName+" extracted")
			return transition{reload: true, noConfirm: true}, nil
		}
	}

	e.log(s, "Install site profile ...", nil)
	var profiles []string
	s.page.Find(profileSelector).Each(func(_ int, o *goquery.Selection) {
		if v := strings.TrimSpace(o.AttrOr("value", "")); v != "" {
			profiles = append(profiles, v)
		}
	})
	if len(profiles) == 0 {
		return transition{}, ErrNoProfiles
	}

	profile, err := e.pickProfile(ctx, s, profiles)
	if err != nil {
		return transition{}, err
	}
	e.log(s, "Using profile "+profile+" ...", nil)

	f, err := s.page.FormByButton("Continue")
	if err != nil {
		return transition{}, err
	}
	f.Set("profile", profile)
	if err := e.submit(ctx, s, f); err != nil {
		return transition{}, err
	}
	return transition{}, nil
}

func (e *Engine) pickProfile(ctx context.Context, s *session, profiles []string) (string, error) {
	c := e.opt.Cascade
	if e.lazy() {
		want := c.String("profile", profiles[0])
		if p, ok := containsFold(profiles, want); ok {
			return p, nil
		}
		e.warn(s, fmt.Sprintf("Profile %q not offered; using %s", want, profiles[0]))
		return profiles[0], nil
	}

	def := profiles[0]
	if v, ok := c.Override("profile"); ok {
		def = v
	} else if v, ok := c.Table("profile"); ok {
		if p, found := containsFold(profiles, fmt.Sprint(v)); found {
			def = p
		}
	}
	idx := 0
	for i, p := range profiles {
		if strings.EqualFold(strings.TrimSpace(p), strings.TrimSpace(def)) {
			idx = i
			def = p
			break
		}
	}
	return e.deps.Console.Choose(ctx, "Select profile to install ["+def+"]", profiles, idx)
}

func (e *Engine) stepDatabase(ctx context.Context, s *session, _ domain.Classification) (transition, error) {
	e.log(s, "Setting the following sections:", nil)
	for _, h := range s.page.Headings() {
		e.log(s, "  "+h, nil)
	}
	f, _, err := e.fill(ctx, s)
	if err != nil {
		return transition{}, err
	}
	if err := f.Press("Continue"); err != nil {
		return transition{}, err
	}
	if err := e.submit(ctx, s, f); err != nil {
		return transition{}, err
	}
	return transition{}, nil
}

func (e *Engine) stepAdmin(ctx context.Context, s *session, _ domain.Classification) (transition, error) {
	e.log(s, "Setup admin panel and user", nil)
	f, values, err := e.fill(ctx, s)
	if err != nil {
		return transition{}, err
	}
	if name := strings.Trim(values["admin_name"], "/ "); name != "" {
		s.adminName = name
	}
	if err := f.Press("Continue"); err != nil {
		return transition{}, err
	}
	if err := e.submit(ctx, s, f); err != nil {
		return transition{}, err
	}
	return transition{}, nil
}

func (e *Engine) stepFinish(ctx context.Context, s *session, _ domain.Classification) (transition, error) {
	e.success(s, "Finishing installation ...")
	for _, note := range s.page.Texts(compatRowSelector) {
		e.log(s, "  "+note, nil)
	}
	if err := e.reloadAdmin(ctx, s); err != nil {
		return transition{}, err
	}
	return transition{done: true}, nil
}

func (e *Engine) stepUnknown(_ context.Context, s *session, c domain.Classification) (transition, error) {
	msg := "Unrecognized installer page"
	if len(c.Headings) > 0 {
		msg += ": " + strings.Join(c.Headings, " | ")
	}
	e.warn(s, msg)
	return transition{reload: true}, nil
}

// confirmOrTable reads a yes/no setting from the cascade in lazy runs and
// asks the operator otherwise.
func (e *Engine) confirmOrTable(ctx context.Context, key, label string) (bool, error) {
	if e.lazy() {
		return e.opt.Cascade.Bool(key, true), nil
	}
	return e.deps.Console.Confirm(ctx, label, true)
}
