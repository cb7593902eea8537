package install

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/lemachinarbo/RockShell/internal/domain"
	"github.com/lemachinarbo/RockShell/internal/engine/mock"
)

func TestLazyRunReachesAdmin(t *testing.T) {
	t.Parallel()

	h := newHarness(t, mock.Options{AdminNotices: 2}, true)
	if err := h.run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := h.mock.Stage(); got != mock.StageFinish {
		t.Fatalf("stage=%s; want finish", got)
	}
	if got := h.mock.AdminLoads(); got != 3 {
		t.Fatalf("admin loads=%d; want 3 (two with notices)", got)
	}
	if !h.rec.has(domain.EventSuccess, "Login: "+h.srv.URL+"/adm/") {
		t.Fatalf("missing login message, successes=%v", h.rec.messages(domain.EventSuccess))
	}
	if len(h.console.prompts) != 0 {
		t.Fatalf("lazy run prompted: %v", h.console.labels())
	}

	if got := h.lastSubmission(mock.StageProfile)["profile"]; !cmp.Equal(got, []string{"site-blank"}) {
		t.Fatalf("profile=%v", got)
	}
	db := h.lastSubmission(mock.StageDatabase)
	want := map[string]string{
		"dbName":    "db",
		"dbUser":    "db",
		"dbPass":    "db",
		"dbHost":    "db",
		"dbPort":    "3306",
		"dbCharset": "utf8mb4",
		"dbEngine":  "InnoDB",
		"timezone":  "1",
		"httpHosts": "site.test\nwww.site.test",
		"debugMode": "1",
		"step":      "4",
	}
	for k, v := range want {
		if got := db[k]; len(got) != 1 || got[0] != v {
			t.Fatalf("database %s=%q; want %q", k, got, v)
		}
	}

	admin := h.lastSubmission(mock.StageAdmin)
	if admin["userpass"][0] != "ddevadmin" || admin["userpass_confirm"][0] != "ddevadmin" {
		t.Fatalf("admin passwords=%v/%v", admin["userpass"], admin["userpass_confirm"])
	}
	if diff := cmp.Diff([]string{"install-php", "install-dir"}, admin["remove_items[]"]); diff != "" {
		t.Fatalf("remove_items (-want +got):\n%s", diff)
	}
	if admin["admin_name"][0] != "adm" || admin["useremail"][0] != "admin@example.com" {
		t.Fatalf("admin=%v", admin)
	}
}

func TestLazyCompatibilityFailureContinuesWithWarning(t *testing.T) {
	t.Parallel()

	h := newHarness(t, mock.Options{CompatFailures: 1, Alert: "Installer alert"}, true)
	if err := h.run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !h.rec.has(domain.EventWarning, "PHP version 8.3.0 is missing") {
		t.Fatalf("failing row not reported, warnings=%v", h.rec.messages(domain.EventWarning))
	}
	if !h.rec.has(domain.EventWarning, "1 compatibility issue(s)") {
		t.Fatalf("missing continue warning, warnings=%v", h.rec.messages(domain.EventWarning))
	}
	if !h.rec.has(domain.EventWarning, "Installer alert") {
		t.Fatalf("alert box not surfaced, warnings=%v", h.rec.messages(domain.EventWarning))
	}
	if len(h.console.prompts) != 0 {
		t.Fatalf("lazy run prompted: %v", h.console.labels())
	}
	if got := h.mock.Stage(); got != mock.StageFinish {
		t.Fatalf("stage=%s; want finish", got)
	}
}

func TestRemoveOverrideBeatsTableIgnore(t *testing.T) {
	t.Parallel()

	h := newHarness(t, mock.Options{DBNotEmpty: true}, true)
	h.opt.Cascade.Defaults["dbTablesAction"] = "ignore"
	h.opt.Cascade.Overrides["remove"] = "true"

	if err := h.run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	db := h.lastSubmission(mock.StageDatabase)
	if got := db["dbTablesAction"]; !cmp.Equal(got, []string{"remove"}) {
		t.Fatalf("dbTablesAction=%v; want [remove]", got)
	}
	// Fields after the policy keep what the installer rendered.
	if got := db["dbName"]; !cmp.Equal(got, []string{"db"}) {
		t.Fatalf("dbName=%v; want the previously submitted value", got)
	}
	if !h.rec.has(domain.EventWarning, "dbTablesAction: remove") {
		t.Fatalf("policy not reported, warnings=%v", h.rec.messages(domain.EventWarning))
	}
}

func TestStepLimitStopsRequests(t *testing.T) {
	t.Parallel()

	h := newHarness(t, mock.Options{Stuck: true}, true)
	err := h.run(context.Background())
	if !errors.Is(err, ErrStepLimit) {
		t.Fatalf("err=%v; want ErrStepLimit", err)
	}
	// One successful probe plus one page load per allowed step.
	if got, want := h.mock.Requests(), 1+DefaultMaxSteps; got != want {
		t.Fatalf("requests=%d; want %d", got, want)
	}
	if !h.rec.has(domain.EventWarning, "Unrecognized installer page: Installer Maintenance") {
		t.Fatalf("unknown headings not surfaced")
	}
	if !h.rec.has(domain.EventError, ErrStepLimit.Error()) {
		t.Fatalf("step limit not reported as error event")
	}
}

func TestExistingIndexAborts(t *testing.T) {
	t.Parallel()

	h := newHarness(t, mock.Options{Missing: true}, true)
	if err := os.WriteFile(filepath.Join(h.opt.Docroot, "index.php"), []byte("<?php"), 0o644); err != nil {
		t.Fatalf("write index.php: %v", err)
	}
	if err := h.run(context.Background()); !errors.Is(err, ErrExistingInstall) {
		t.Fatalf("err=%v; want ErrExistingInstall", err)
	}
	if len(h.fetcher.core) != 0 {
		t.Fatalf("core downloaded over an existing install")
	}
}

func TestMissingInstallerDownloadsCore(t *testing.T) {
	t.Parallel()

	h := newHarness(t, mock.Options{Missing: true}, true)
	h.fetcher.onCore = func(string) { h.mock.SetPresent(true) }

	if err := h.run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if diff := cmp.Diff([]string{"dev"}, h.fetcher.core); diff != "" {
		t.Fatalf("core versions (-want +got):\n%s", diff)
	}
	if got := h.mock.Stage(); got != mock.StageFinish {
		t.Fatalf("stage=%s; want finish", got)
	}
}

func TestAlreadyInstalledIsSuccess(t *testing.T) {
	t.Parallel()

	h := newHarness(t, mock.Options{}, true)
	marker := filepath.Join(h.opt.Docroot, "site", "assets", "installed.php")
	if err := os.MkdirAll(filepath.Dir(marker), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(marker, []byte("<?php"), 0o644); err != nil {
		t.Fatalf("write marker: %v", err)
	}
	if err := h.run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h.mock.Requests() != 0 {
		t.Fatalf("installed site was contacted")
	}
	if !h.rec.has(domain.EventSuccess, "already installed") {
		t.Fatalf("missing already-installed message")
	}
}

func TestDDEVProjectOutsideContainer(t *testing.T) {
	t.Parallel()

	h := newHarness(t, mock.Options{}, true)
	if err := os.Mkdir(filepath.Join(h.opt.Docroot, ".ddev"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	h.opt.CheckDDEV = true
	if err := h.run(context.Background()); !errors.Is(err, ErrOutsideDDEV) {
		t.Fatalf("err=%v; want ErrOutsideDDEV", err)
	}

	h.opt.InDDEV = true
	if err := h.run(context.Background()); err != nil {
		t.Fatalf("inside ddev: %v", err)
	}
}

func TestUnreachableHost(t *testing.T) {
	t.Parallel()

	h := newHarness(t, mock.Options{}, true)
	h.opt.Cascade.Overrides["host"] = "127.0.0.1:1"
	if err := h.run(context.Background()); err == nil {
		t.Fatalf("expected unreachable host error")
	}
}

func TestInteractiveRun(t *testing.T) {
	t.Parallel()

	h := newHarness(t, mock.Options{}, false)
	h.console.
		confirm("Download RockFrontend Site Profile?", false).
		answer("userpass", "short", "secret1").
		answer("userpass_confirm", "nope", "secret1").
		confirm("Remove installer assets (/site/install/)", false)

	if err := h.run(context.Background()); err != nil {
		t.Fatalf("Run: %v (prompts %v)", err, h.console.labels())
	}

	admin := h.lastSubmission(mock.StageAdmin)
	if admin["userpass"][0] != "secret1" || admin["userpass_confirm"][0] != "secret1" {
		t.Fatalf("passwords=%v/%v", admin["userpass"], admin["userpass_confirm"])
	}
	if diff := cmp.Diff([]string{"install-php"}, admin["remove_items[]"]); diff != "" {
		t.Fatalf("remove_items (-want +got):\n%s", diff)
	}
	if !h.rec.has(domain.EventWarning, "Password must be at least 6 characters long.") {
		t.Fatalf("short password not rejected")
	}
	if !h.rec.has(domain.EventWarning, "Passwords do not match. Please try again.") {
		t.Fatalf("mismatch not reported")
	}

	p, ok := h.console.find(httpHostsPrompt)
	if !ok || p.def != "site.test, www.site.test" {
		t.Fatalf("httpHosts prompt=%+v", p)
	}
	if got := h.lastSubmission(mock.StageDatabase)["httpHosts"]; !cmp.Equal(got, []string{"site.test\nwww.site.test"}) {
		t.Fatalf("httpHosts=%q", got)
	}
	p, ok = h.console.find(timezonePrompt)
	if !ok || p.def != "bogota (america)" {
		t.Fatalf("timezone prompt=%+v", p)
	}
	p, ok = h.console.find("Select profile to install [site-blank]")
	if !ok || p.def != "site-blank" {
		t.Fatalf("profile prompt=%+v (prompts %v)", p, h.console.labels())
	}
	if _, ok := h.console.find("Enter host"); ok {
		t.Fatalf("host prompted despite override")
	}
}

func TestInteractiveDeclineContinue(t *testing.T) {
	t.Parallel()

	h := newHarness(t, mock.Options{}, false)
	h.console.confirm("Continue to next step?", false)
	if err := h.run(context.Background()); !errors.Is(err, ErrAborted) {
		t.Fatalf("err=%v; want ErrAborted", err)
	}
	if got := h.mock.Stage(); got != mock.StageCompatibility {
		t.Fatalf("stage=%s; want compatibility", got)
	}
}

func TestInteractiveCompatibilityRecheck(t *testing.T) {
	t.Parallel()

	h := newHarness(t, mock.Options{CompatFailures: 2}, false)
	h.console.
		confirm("Check again?", true, false).
		confirm("Continue Installation?", false)

	if err := h.run(context.Background()); !errors.Is(err, ErrAborted) {
		t.Fatalf("err=%v; want ErrAborted", err)
	}
	want := []string{
		"Continue to next step?",
		"Check again?",
		"Check again?",
		"Continue Installation?",
	}
	if diff := cmp.Diff(want, h.console.labels()); diff != "" {
		t.Fatalf("prompts (-want +got):\n%s", diff)
	}
}

func TestAdminPathFallback(t *testing.T) {
	t.Parallel()

	h := newHarness(t, mock.Options{}, true)
	h.locator = fixedLocator{err: errors.New("php: not found")}
	if err := h.run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !h.rec.has(domain.EventSuccess, "Login: "+h.srv.URL+"/adm/") {
		t.Fatalf("fallback admin url not used, successes=%v", h.rec.messages(domain.EventSuccess))
	}
}

func TestLazyUnknownTimezonePromptsAndFallsBack(t *testing.T) {
	t.Parallel()

	h := newHarness(t, mock.Options{}, true)
	h.opt.Cascade.Defaults["timezone"] = "Mars/Olympus"
	h.console.answer(timezonePrompt, "atlantis")

	if err := h.run(context.Background()); err != nil {
		t.Fatalf("Run: %v (prompts %v)", err, h.console.labels())
	}
	if diff := cmp.Diff([]string{timezonePrompt}, h.console.labels()); diff != "" {
		t.Fatalf("prompts (-want +got):\n%s", diff)
	}
	p, _ := h.console.find(timezonePrompt)
	if p.def != "Mars/Olympus" {
		t.Fatalf("timezone prompt default=%q; want the unmatched value", p.def)
	}
	if got := h.lastSubmission(mock.StageDatabase)["timezone"]; !cmp.Equal(got, []string{"0"}) {
		t.Fatalf("timezone=%v; want the first option", got)
	}
	if !h.rec.has(domain.EventWarning, "Unknown timezone atlantis; using UTC") {
		t.Fatalf("fallback not reported, warnings=%v", h.rec.messages(domain.EventWarning))
	}
}

func TestMissingFormIsFatal(t *testing.T) {
	t.Parallel()

	h := newHarness(t, mock.Options{NoForm: true}, true)
	err := h.run(context.Background())
	if !errors.Is(err, ErrNoForm) {
		t.Fatalf("err=%v; want ErrNoForm", err)
	}
	if !strings.Contains(err.Error(), "no form found (.InputfieldForm)") {
		t.Fatalf("err=%q; want the form selector named", err)
	}
	if got := h.mock.Stage(); got != mock.StageDatabase {
		t.Fatalf("stage=%s; want database", got)
	}
}

func TestNoProfilesIsFatal(t *testing.T) {
	t.Parallel()

	h := newHarness(t, mock.Options{NoProfiles: true}, true)
	if err := h.run(context.Background()); !errors.Is(err, ErrNoProfiles) {
		t.Fatalf("err=%v; want ErrNoProfiles", err)
	}
	for _, sub := range h.mock.Submissions() {
		if sub.Stage == mock.StageProfile {
			t.Fatalf("profile form submitted without a profile: %v", sub.Values)
		}
	}
}

func TestHiddenFieldTakesOverrideOnly(t *testing.T) {
	t.Parallel()

	h := newHarness(t, mock.Options{}, true)
	h.opt.Cascade.Overrides["step"] = "99"
	h.opt.Cascade.Defaults["step"] = "7"

	if err := h.run(context.Background()); err != nil {
		t.Fatalf("Run: %v (prompts %v)", err, h.console.labels())
	}
	if got := h.lastSubmission(mock.StageDatabase)["step"]; !cmp.Equal(got, []string{"99"}) {
		t.Fatalf("step=%v; want the override", got)
	}
	if len(h.console.prompts) != 0 {
		t.Fatalf("hidden field prompted: %v", h.console.labels())
	}
}

func TestHiddenFieldIgnoresTableDefault(t *testing.T) {
	t.Parallel()

	h := newHarness(t, mock.Options{}, true)
	h.opt.Cascade.Defaults["step"] = "7"

	if err := h.run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := h.lastSubmission(mock.StageDatabase)["step"]; !cmp.Equal(got, []string{"4"}) {
		t.Fatalf("step=%v; want the rendered value", got)
	}
}

func TestInteractiveUnlistedVersionIsOffered(t *testing.T) {
	t.Parallel()

	h := newHarness(t, mock.Options{Missing: true}, false)
	h.opt.Cascade.Overrides["processwire_version"] = "3.0.184"
	h.console.confirm("Download RockFrontend Site Profile?", false)
	h.fetcher.onCore = func(string) { h.mock.SetPresent(true) }

	if err := h.run(context.Background()); err != nil {
		t.Fatalf("Run: %v (prompts %v)", err, h.console.labels())
	}
	p, ok := h.console.find("Which version?")
	if !ok || p.def != "3.0.184" {
		t.Fatalf("version prompt=%+v", p)
	}
	if diff := cmp.Diff([]string{"master", "dev", "3.0.229", "3.0.184"}, p.options); diff != "" {
		t.Fatalf("version options (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"3.0.184"}, h.fetcher.core); diff != "" {
		t.Fatalf("core versions (-want +got):\n%s", diff)
	}
}

func TestInteractiveAnswersKeepSecretSpaces(t *testing.T) {
	t.Parallel()

	h := newHarness(t, mock.Options{}, false)
	h.console.
		confirm("Download RockFrontend Site Profile?", false).
		answer("dbName", "  site_db ").
		answer("dbPass", " db pass ").
		answer("userpass", " secret1 ").
		answer("userpass_confirm", " secret1 ")

	if err := h.run(context.Background()); err != nil {
		t.Fatalf("Run: %v (prompts %v)", err, h.console.labels())
	}
	db := h.lastSubmission(mock.StageDatabase)
	if got := db["dbName"]; !cmp.Equal(got, []string{"site_db"}) {
		t.Fatalf("dbName=%q; want trimmed", got)
	}
	if got := db["dbPass"]; !cmp.Equal(got, []string{" db pass "}) {
		t.Fatalf("dbPass=%q; want as typed", got)
	}
	if got := h.lastSubmission(mock.StageAdmin)["userpass"]; !cmp.Equal(got, []string{" secret1 "}) {
		t.Fatalf("userpass=%q; want as typed", got)
	}
}
