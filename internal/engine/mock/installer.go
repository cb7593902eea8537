// Package mock serves a fake ProcessWire 3.x installer. It renders the
// same markup the real install.php uses for classification and form
// filling, records every submission, and advances one stage per accepted
// POST.
package mock

import (
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

type Stage int

const (
	StageWelcome Stage = iota
	StageCompatibility
	StageProfile
	StageDatabase
	StageAdmin
	StageFinish
)

func (s Stage) String() string {
	switch s {
	case StageWelcome:
		return "welcome"
	case StageCompatibility:
		return "compatibility"
	case StageProfile:
		return "profile"
	case StageDatabase:
		return "database"
	case StageAdmin:
		return "admin"
	case StageFinish:
		return "finish"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

type Options struct {
	// Missing serves no installer until SetPresent(true).
	Missing bool
	// Stuck renders an unrecognizable installer page forever.
	Stuck bool
	// CompatFailures is the number of failing compatibility rows.
	CompatFailures int
	// AdminNotices is how many admin page loads show first-load notices.
	AdminNotices int
	// DBNotEmpty rejects the first database submission and asks for
	// dbTablesAction, like the installer does for a database with tables.
	DBNotEmpty bool
	// ForbidRoot answers 403 on "/".
	ForbidRoot bool
	// NoForm renders the database section without its InputfieldForm.
	NoForm bool
	// NoProfiles renders the profile select with only its placeholder.
	NoProfiles bool
	Profiles   []string
	Timezones  []string
	Alert      string
}

type Submission struct {
	Stage  Stage
	Values url.Values
}

type Installer struct {
	mu          sync.Mutex
	opt         Options
	stage       Stage
	present     bool
	adminName   string
	adminLoads  int
	requests    int
	lastDB      url.Values
	askTables   bool
	submissions []Submission
}

func New(opt Options) *Installer {
	if len(opt.Profiles) == 0 {
		opt.Profiles = []string{"site-blank", "site-classic", "site-languages"}
	}
	if len(opt.Timezones) == 0 {
		opt.Timezones = []string{"UTC", "America/Bogota", "Europe/Vienna", "Europe/Berlin"}
	}
	return &Installer{opt: opt, present: !opt.Missing, adminName: "processwire"}
}

func (m *Installer) SetPresent(present bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.present = present
}

func (m *Installer) Stage() Stage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stage
}

// Requests counts every request served, probes included.
func (m *Installer) Requests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests
}

func (m *Installer) Submissions() []Submission {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Submission(nil), m.submissions...)
}

// AdminName is the admin path segment saved by the admin step.
func (m *Installer) AdminName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.adminName
}

func (m *Installer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests++

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	switch {
	case r.URL.Path == "/":
		if m.opt.ForbidRoot {
			w.WriteHeader(http.StatusForbidden)
		}
		fmt.Fprint(w, "<html><body><p>site root</p></body></html>")
	case r.URL.Path == "/install.php":
		m.serveInstaller(w, r)
	case m.stage == StageFinish && r.URL.Path == "/"+m.adminName+"/":
		m.serveAdmin(w)
	default:
		http.NotFound(w, r)
	}
}

func (m *Installer) serveInstaller(w http.ResponseWriter, r *http.Request) {
	if !m.present {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, "<html><body><h1>Not Found</h1></body></html>")
		return
	}
	if m.opt.Stuck {
		fmt.Fprint(w, page("<h2>Installer Maintenance</h2><p>Please wait.</p>"))
		return
	}

	alert := ""
	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		m.submissions = append(m.submissions, Submission{Stage: m.stage, Values: r.PostForm})
		if msg := m.accept(r.PostForm); msg != "" {
			alert = msg
		} else if m.stage < StageFinish {
			m.stage++
		}
	}
	fmt.Fprint(w, page(m.render(alert)))
}

// accept validates a submission for the current stage and returns an
// error message when it must be shown again.
func (m *Installer) accept(v url.Values) string {
	switch m.stage {
	case StageProfile:
		p := v.Get("profile")
		for _, known := range m.opt.Profiles {
			if p == known {
				return ""
			}
		}
		return "Unknown profile: " + p
	case StageDatabase:
		m.lastDB = v
		if m.opt.DBNotEmpty {
			switch v.Get("dbTablesAction") {
			case "remove", "ignore":
			case "":
				m.askTables = true
				return "The database you specified already has tables"
			default:
				return "Please choose what to do with the existing tables"
			}
		}
		for _, k := range []string{"dbName", "dbUser", "dbHost", "dbPort", "httpHosts"} {
			if strings.TrimSpace(v.Get(k)) == "" {
				return "Missing " + k
			}
		}
		tz := v.Get("timezone")
		for i := range m.opt.Timezones {
			if tz == fmt.Sprint(i) {
				return ""
			}
		}
		return "Invalid timezone " + tz
	case StageAdmin:
		if v.Get("userpass") == "" || v.Get("userpass") != v.Get("userpass_confirm") {
			return "Passwords do not match"
		}
		if name := strings.Trim(v.Get("admin_name"), "/ "); name != "" {
			m.adminName = name
		}
	}
	return ""
}

func (m *Installer) render(alert string) string {
	var b strings.Builder
	if alert != "" {
		fmt.Fprintf(&b, `<div class="uk-alert uk-alert-danger">%s</div>`, html.EscapeString(alert))
	}
	switch m.stage {
	case StageWelcome:
		b.WriteString(`<h2>Welcome. This tool will guide you through the installation process.</h2>
<form method="post" action="./install.php"><input type="hidden" name="step" value="1">
<input type="submit" class="uk-button" value="Get Started"></form>`)
	case StageCompatibility:
		if m.opt.Alert != "" {
			fmt.Fprintf(&b, `<div class="uk-alert">%s</div>`, html.EscapeString(m.opt.Alert))
		}
		b.WriteString(`<h2>Compatibility Check</h2><div class="uk-section-muted"><div class="uk-container">`)
		checks := []string{"PHP version 8.3.0", "PDO (mysql) database", "GD 2.0 or newer", "Apache mod_rewrite"}
		for i, c := range checks {
			icon := "fa-check"
			if i < m.opt.CompatFailures {
				icon = "fa-exclamation-triangle"
				c += " is missing"
			}
			fmt.Fprintf(&b, `<div><i class="fa fa-fw %s"></i> %s</div>`, icon, c)
		}
		b.WriteString(`</div></div>
<form method="post" action="./install.php"><input type="hidden" name="step" value="2">
<button type="submit" name="submit" value="1">Continue to Next Step</button></form>`)
	case StageProfile:
		b.WriteString(`<h2>Site Installation Profile</h2>
<form method="post" action="./install.php"><select name="profile"><option value="">Select a profile</option>`)
		if !m.opt.NoProfiles {
			for _, p := range m.opt.Profiles {
				fmt.Fprintf(&b, `<option value="%[1]s">%[1]s</option>`, html.EscapeString(p))
			}
		}
		b.WriteString(`</select><input type="hidden" name="step" value="3">
<button type="submit" name="submit" value="1">Continue</button></form>`)
	case StageDatabase:
		if m.opt.NoForm {
			b.WriteString(`<h2>MySQL Database</h2><h2>Debug mode?</h2><p>The form failed to render.</p>`)
			break
		}
		b.WriteString(m.renderDatabase())
	case StageAdmin:
		b.WriteString(`<form class="InputfieldForm" method="post" action="./install.php">
<h2>Admin Panel</h2>
<input type="text" name="admin_name" value="processwire">
<input type="text" name="username" value="admin">
<input type="password" name="userpass" value="">
<input type="password" name="userpass_confirm" value="">
<input type="email" name="useremail" value="">
<h2>Cleanup</h2>
<label><input type="checkbox" name="remove_items[]" value="install-php"> Remove installer (install.php)</label>
<label><input type="checkbox" name="remove_items[]" value="install-dir"> Remove installer assets (/site/install/)</label>
<input type="hidden" name="step" value="5">
<button type="submit" name="submit" value="1">Continue</button></form>`)
	case StageFinish:
		b.WriteString(`<h2>Admin Account Saved</h2>
<div class="uk-section-muted"><div class="uk-container">
<div>Removed installer (install.php)</div>
<div>Make /site/config.php read-only</div>
</div></div>
<h2>Complete &amp; Secure Your Installation</h2>`)
	}
	return b.String()
}

func (m *Installer) renderDatabase() string {
	prev := m.lastDB
	val := func(name, def string) string {
		if v, ok := prev[name]; ok && len(v) > 0 {
			return html.EscapeString(v[0])
		}
		return html.EscapeString(def)
	}
	mark := func(name, value, def, attr string) string {
		cur := def
		if v, ok := prev[name]; ok && len(v) > 0 {
			cur = v[0]
		}
		if cur == value {
			return " " + attr
		}
		return ""
	}
	options := func(name string, values []string, def string) string {
		var b strings.Builder
		for _, v := range values {
			fmt.Fprintf(&b, `<option value="%[1]s"%[2]s>%[1]s</option>`, html.EscapeString(v), mark(name, v, def, "selected"))
		}
		return b.String()
	}

	var b strings.Builder
	// Stale heading from the previous section, as the real installer shows.
	b.WriteString(`<h2>Site Installation Profile</h2>
<form class="InputfieldForm" method="post" action="./install.php">`)
	if m.askTables {
		b.WriteString(`<h2>Database Not Empty</h2>
<label><input type="radio" name="dbTablesAction" value="ignore" checked> Ignore existing tables</label>
<label><input type="radio" name="dbTablesAction" value="remove"> Remove existing tables</label>`)
	}
	fmt.Fprintf(&b, `<h2>MySQL Database</h2>
<input type="text" name="dbName" value="%s">
<input type="text" name="dbUser" value="%s">
<input type="password" name="dbPass" value="%s">
<input type="text" name="dbHost" value="%s">
<input type="text" name="dbPort" value="%s">
<select name="dbCon">%s</select>
<select name="dbCharset">%s</select>
<select name="dbEngine">%s</select>
<h2>Time Zone</h2><select name="timezone">`,
		val("dbName", ""), val("dbUser", ""), val("dbPass", ""), val("dbHost", "localhost"), val("dbPort", "3306"),
		options("dbCon", []string{"Hostname", "Socket"}, "Hostname"),
		options("dbCharset", []string{"utf8", "utf8mb4"}, "utf8"),
		options("dbEngine", []string{"MyISAM", "InnoDB"}, "MyISAM"))
	for i, tz := range m.opt.Timezones {
		fmt.Fprintf(&b, `<option value="%d"%s>%s</option>`, i, mark("timezone", fmt.Sprint(i), "0", "selected"), html.EscapeString(tz))
	}
	fmt.Fprintf(&b, `</select>
<h2>HTTP Host Names</h2>
<textarea name="httpHosts">%s</textarea>
<h2>Debug mode?</h2>
<label><input type="radio" name="debugMode" value="0"%s> Disabled</label>
<label><input type="radio" name="debugMode" value="1"%s> Enabled</label>
<input type="hidden" name="step" value="4">
<button type="submit" name="submit" value="1">Continue</button></form>`,
		val("httpHosts", "site.test\nsite.test:443\nwww.site.test"),
		mark("debugMode", "0", "0", "checked"), mark("debugMode", "1", "0", "checked"))
	return b.String()
}

func (m *Installer) serveAdmin(w http.ResponseWriter) {
	m.adminLoads++
	var b strings.Builder
	b.WriteString(`<h1>ProcessWire</h1>`)
	if m.adminLoads <= m.opt.AdminNotices {
		b.WriteString(`<ul class="NoticeMessages"><li class="NoticeMessage">Compiled file cache rebuilt</li>
<li class="NoticeMessage">Modules refreshed</li></ul>`)
	}
	b.WriteString(`<form><input name="login_name"></form>`)
	fmt.Fprint(w, "<html><body>"+b.String()+"</body></html>")
}

// AdminLoads counts requests for the admin page.
func (m *Installer) AdminLoads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.adminLoads
}

func page(body string) string {
	return `<!DOCTYPE html><html lang="en"><head><title>ProcessWire 3.x Installer</title></head><body>
<h1 class="uk-margin-remove-top">ProcessWire 3.x Installer</h1>
<div class="uk-container">` + body + `</div></body></html>`
}
