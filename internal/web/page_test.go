package web

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/lemachinarbo/RockShell/internal/domain"
)

const adminPage = `<!doctype html>
<html><body>
<h1 class="uk-margin-remove-top">ProcessWire 3.x Installer</h1>
<div class="uk-alert">Heads up:   check permissions</div>
<form class="InputfieldForm" method="post" action="./install.php">
  <h2>Admin Panel</h2>
  <input type="text" name="admin_name" value="processwire">
  <input type="hidden" name="step" value="5">
  <select name="timezone">
    <option value="1">Africa/Abidjan</option>
    <option value="2" selected>America/Bogota</option>
  </select>
  <label><input type="checkbox" name="remove_items[]" value="install-php" checked> Remove installer (install.php)</label>
  <label><input type="checkbox" name="remove_items[]" value="install-dir"> Remove /site/install/</label>
  <textarea name="httpHosts">a.test
b.test</textarea>
  <input type="text" name="locked" value="x" disabled>
  <button type="submit" name="submit_admin" value="1">Continue</button>
</form>
</body></html>`

func mustPage(t *testing.T, html string) *Page {
	t.Helper()
	u, _ := url.Parse("https://site.test/install.php")
	p, err := NewPage(u, 200, strings.NewReader(html))
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	return p
}

func TestPageQueries(t *testing.T) {
	t.Parallel()

	p := mustPage(t, adminPage)
	if got, want := p.Banner(), `<h1 class="uk-margin-remove-top">ProcessWire 3.x Installer</h1>`; got != want {
		t.Fatalf("Banner()=%q; want %q", got, want)
	}
	if diff := cmp.Diff([]string{"Admin Panel"}, p.Headings()); diff != "" {
		t.Fatalf("Headings (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Heads up: check permissions"}, p.Texts("div.uk-alert")); diff != "" {
		t.Fatalf("Texts (-want +got):\n%s", diff)
	}
	if got := p.Resolve("/adm/"); got != "https://site.test/adm/" {
		t.Fatalf("Resolve=%q", got)
	}
}

func TestFormSnapshot(t *testing.T) {
	t.Parallel()

	f, err := mustPage(t, adminPage).Form(".InputfieldForm")
	if err != nil {
		t.Fatalf("Form: %v", err)
	}

	var names []string
	for _, fld := range f.Fields() {
		names = append(names, fld.Name)
	}
	if diff := cmp.Diff([]string{"admin_name", "step", "timezone", "remove_items", "httpHosts"}, names); diff != "" {
		t.Fatalf("field order (-want +got):\n%s", diff)
	}

	tz, _ := f.Field("timezone")
	if tz.Kind != domain.FieldChoice || tz.Value() != "2" || len(tz.Options) != 2 {
		t.Fatalf("timezone=%+v", tz)
	}
	step, _ := f.Field("step")
	if step.Kind != domain.FieldHidden {
		t.Fatalf("step kind=%s; want hidden", step.Kind)
	}
	rm, _ := f.Field("remove_items")
	if !rm.IsList() || rm.Param != "remove_items[]" {
		t.Fatalf("remove_items=%+v; want list param", rm)
	}
	if diff := cmp.Diff([]string{"install-php"}, rm.Values); diff != "" {
		t.Fatalf("remove_items checked (-want +got):\n%s", diff)
	}
	if rm.Options[1].Label != "Remove /site/install/" {
		t.Fatalf("option label=%q", rm.Options[1].Label)
	}
	hosts, _ := f.Field("httpHosts")
	if hosts.Value() != "a.test\nb.test" {
		t.Fatalf("textarea value=%q", hosts.Value())
	}
}

func TestFormValuesAndPress(t *testing.T) {
	t.Parallel()

	f, err := mustPage(t, adminPage).Form(".InputfieldForm")
	if err != nil {
		t.Fatalf("Form: %v", err)
	}
	f.Set("admin_name", "adm")
	f.Set("remove_items", "install-php", "install-dir")
	f.Set("extra", "1")
	if err := f.Press("Continue"); err != nil {
		t.Fatalf("Press: %v", err)
	}
	if err := f.Press("Nope"); !errors.Is(err, ErrNoButton) {
		t.Fatalf("Press(Nope) err=%v; want ErrNoButton", err)
	}

	v := f.Values()
	if v.Get("admin_name") != "adm" || v.Get("submit_admin") != "1" || v.Get("extra") != "1" {
		t.Fatalf("Values=%v", v)
	}
	if diff := cmp.Diff([]string{"install-php", "install-dir"}, v["remove_items[]"]); diff != "" {
		t.Fatalf("remove_items[] (-want +got):\n%s", diff)
	}
	if _, ok := v["locked"]; ok {
		t.Fatalf("disabled field submitted: %v", v)
	}
	if f.Method() != "POST" || f.Action() != "https://site.test/install.php" {
		t.Fatalf("Method/Action=%s %s", f.Method(), f.Action())
	}
}

func TestFormByButton(t *testing.T) {
	t.Parallel()

	p := mustPage(t, `<h1>x</h1><form method="post"><input type="hidden" name="step" value="1">
<input type="submit" name="go" value="Get Started"></form>`)
	f, err := p.FormByButton("Get Started")
	if err != nil {
		t.Fatalf("FormByButton: %v", err)
	}
	if v := f.Values(); v.Get("go") != "Get Started" || v.Get("step") != "1" {
		t.Fatalf("Values=%v", v)
	}
	if _, err := p.FormByButton("Missing"); !errors.Is(err, ErrNoButton) {
		t.Fatalf("err=%v; want ErrNoButton", err)
	}
	if _, err := p.Form(".InputfieldForm"); !errors.Is(err, ErrNoForm) {
		t.Fatalf("err=%v; want ErrNoForm", err)
	}
}
