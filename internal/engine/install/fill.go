package install

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/lemachinarbo/RockShell/internal/domain"
	"github.com/lemachinarbo/RockShell/internal/hosts"
	"github.com/lemachinarbo/RockShell/internal/web"
)

const (
	formSelector    = ".InputfieldForm"
	minPasswordLen  = 6
	httpHostsPrompt = "httpHosts (enter comma separated list)"
	adminNamePrompt = "Enter url of your admin interface"
)

var hostAnswerSplit = regexp.MustCompile(`[\n,]+`)

// fill resolves every visible field of the page's installer form and
// returns the form ready to submit along with the values that were set.
// Hidden fields are never prompted; only an explicit override replaces
// their rendered value.
func (e *Engine) fill(ctx context.Context, s *session) (*web.Form, map[string]string, error) {
	f, err := s.page.Form(formSelector)
	if err != nil {
		return nil, nil, fmt.Errorf("%w (%s): %v", ErrNoForm, formSelector, err)
	}

	c := e.opt.Cascade
	values := map[string]string{}
	var pass string

fields:
	for _, fld := range f.Fields() {
		if fld.Kind == domain.FieldHidden {
			if v, ok := c.Override(fld.Name); ok {
				f.Set(fld.Name, v)
				values[fld.Name] = v
			}
			continue
		}
		var fallback any = fld.Value()
		if v, ok := c.Table(fld.Name); ok {
			fallback = v
		}
		def := c.Value(fld.Name, fallback)

		var value string
		switch fld.Name {
		case "timezone":
			value, err = e.fillTimezone(ctx, s, fld, cast.ToString(def))
		case "httpHosts":
			value, err = e.fillHTTPHosts(ctx, def)
		case "admin_name":
			promptDef := cast.ToString(def)
			if v, ok := c.Override("url"); ok {
				promptDef = v
			}
			value, err = e.askOrTake(ctx, adminNamePrompt, promptDef)
		case "userpass":
			value, err = e.fillPassword(ctx, s, fld.Name, cast.ToString(def))
			pass = value
		case "userpass_confirm":
			value, err = e.fillPasswordConfirm(ctx, s, fld.Name, pass)
		case "remove_items":
			selected, err := e.fillRemoveItems(ctx, fld)
			if err != nil {
				return nil, nil, err
			}
			f.Set(fld.Name, selected...)
			values[fld.Name] = strings.Join(selected, ",")
			continue
		case "dbTablesAction":
			value, err = e.fillTablesAction(ctx, cast.ToString(def))
			if err != nil {
				return nil, nil, err
			}
			e.warn(s, "dbTablesAction: "+value)
			setField(f, fld, value)
			values[fld.Name] = value
			// The choice is irreversible; the rest of the form is left as
			// rendered.
			break fields
		default:
			var candidates []string
			if fld.Kind == domain.FieldChoice {
				candidates = fld.OptionValues()
			}
			value, err = e.askWithCompletionOrTake(ctx, fld.Name, candidates, cast.ToString(def))
			if !isSecretField(fld.Name) {
				value = strings.TrimSpace(value)
			}
		}
		if err != nil {
			return nil, nil, err
		}
		setField(f, fld, value)
		values[fld.Name] = value
	}

	e.logValues(s, values)
	return f, values, nil
}

// setField sets a single value; an empty value unchecks choice fields.
func setField(f *web.Form, fld domain.FormField, value string) {
	if value == "" && fld.Kind == domain.FieldChoice {
		f.Set(fld.Name)
		return
	}
	f.Set(fld.Name, value)
}

func (e *Engine) askOrTake(ctx context.Context, label, def string) (string, error) {
	if e.lazy() {
		return def, nil
	}
	v, err := e.deps.Console.Ask(ctx, label, def)
	return strings.TrimSpace(v), err
}

func (e *Engine) askWithCompletionOrTake(ctx context.Context, label string, candidates []string, def string) (string, error) {
	if e.lazy() {
		return def, nil
	}
	return e.deps.Console.AskWithCompletion(ctx, label, candidates, def)
}

func (e *Engine) fillHTTPHosts(ctx context.Context, def any) (string, error) {
	list := hosts.NormalizeList(def)
	var answer string
	if e.lazy() {
		answer = strings.Join(list, "\n")
	} else {
		a, err := e.deps.Console.AskWithCompletion(ctx, httpHostsPrompt, nil, strings.Join(list, ", "))
		if err != nil {
			return "", err
		}
		answer = a
	}
	var out []string
	for _, h := range hostAnswerSplit.Split(answer, -1) {
		if h = strings.TrimSpace(h); h != "" {
			out = append(out, h)
		}
	}
	return strings.Join(out, "\n"), nil
}

func (e *Engine) fillPassword(ctx context.Context, s *session, name, def string) (string, error) {
	if e.lazy() {
		return def, nil
	}
	for {
		v, err := e.deps.Console.Ask(ctx, name, def)
		if err != nil {
			return "", err
		}
		if len(v) >= minPasswordLen {
			return v, nil
		}
		e.warn(s, fmt.Sprintf("Password must be at least %d characters long.", minPasswordLen))
	}
}

func (e *Engine) fillPasswordConfirm(ctx context.Context, s *session, name, pass string) (string, error) {
	if e.lazy() {
		return pass, nil
	}
	for {
		v, err := e.deps.Console.Ask(ctx, name, pass)
		if err != nil {
			return "", err
		}
		if v == pass {
			return v, nil
		}
		e.warn(s, "Passwords do not match. Please try again.")
	}
}

func (e *Engine) fillRemoveItems(ctx context.Context, fld domain.FormField) ([]string, error) {
	var selected []string
	for _, opt := range fld.Options {
		if e.lazy() {
			selected = append(selected, opt.Value)
			continue
		}
		label := opt.Label
		if label == "" || label == opt.Value {
			label = "Remove " + opt.Value + "?"
		}
		ok, err := e.deps.Console.Confirm(ctx, label, true)
		if err != nil {
			return nil, err
		}
		if ok {
			selected = append(selected, opt.Value)
		}
	}
	return selected, nil
}

func (e *Engine) fillTablesAction(ctx context.Context, def string) (string, error) {
	c := e.opt.Cascade
	if _, ok := c.Override("remove"); ok {
		return "remove", nil
	}
	if _, ok := c.Override("ignore"); ok {
		return "ignore", nil
	}
	if e.lazy() {
		return def, nil
	}
	return e.deps.Console.Choose(ctx, "DB not empty", []string{"remove", "ignore"}, 0)
}

func (e *Engine) logValues(s *session, values map[string]string) {
	names := make([]string, 0, len(values))
	for k := range values {
		names = append(names, k)
	}
	sort.Strings(names)

	fields := make([]zap.Field, 0, len(names))
	for _, k := range names {
		v := values[k]
		if isSecretField(k) {
			v = "[redacted]"
		}
		fields = append(fields, zap.String(k, v))
		e.debugf(s, "%s=%s", k, v)
	}
	e.deps.Log.Debug("form values", fields...)
}

func isSecretField(name string) bool {
	n := strings.ToLower(name)
	return strings.Contains(n, "pass")
}
