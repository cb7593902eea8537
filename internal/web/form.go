package web

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lemachinarbo/RockShell/internal/domain"
)

const buttonSelector = "button, input[type=submit], input[type=button], input[type=image]"

type pressed struct {
	name  string
	value string
}

// Form is an editable snapshot of an HTML form. Fields keep document
// order; inputs that share a name are merged.
type Form struct {
	page   *Page
	sel    *goquery.Selection
	fields []domain.FormField
	index  map[string]int
	button *pressed
}

func newForm(p *Page, sel *goquery.Selection) *Form {
	f := &Form{page: p, sel: sel, index: map[string]int{}}
	sel.Find("input, select, textarea").Each(func(_ int, s *goquery.Selection) {
		f.collect(s)
	})
	return f
}

func (f *Form) collect(s *goquery.Selection) {
	param, ok := s.Attr("name")
	if !ok || param == "" {
		return
	}
	if _, disabled := s.Attr("disabled"); disabled {
		return
	}

	switch goquery.NodeName(s) {
	case "textarea":
		f.merge(param, domain.FieldText, []string{s.Text()}, nil)
	case "select":
		var opts []domain.FieldOption
		var selected []string
		s.Find("option").Each(func(_ int, o *goquery.Selection) {
			label := collapse(o.Text())
			value, ok := o.Attr("value")
			if !ok {
				value = label
			}
			opts = append(opts, domain.FieldOption{Value: value, Label: label})
			if _, sel := o.Attr("selected"); sel {
				selected = append(selected, value)
			}
		})
		if _, multi := s.Attr("multiple"); !multi && len(selected) == 0 && len(opts) > 0 {
			selected = []string{opts[0].Value}
		}
		f.merge(param, domain.FieldChoice, selected, opts)
	default:
		typ := strings.ToLower(s.AttrOr("type", "text"))
		switch typ {
		case "submit", "button", "image", "reset", "file":
			return
		case "checkbox", "radio":
			value := s.AttrOr("value", "on")
			opt := domain.FieldOption{Value: value, Label: optionLabel(f.page, s)}
			var vals []string
			if _, checked := s.Attr("checked"); checked {
				vals = []string{value}
			}
			f.merge(param, domain.FieldChoice, vals, []domain.FieldOption{opt})
		case "hidden":
			f.merge(param, domain.FieldHidden, []string{s.AttrOr("value", "")}, nil)
		default:
			f.merge(param, domain.FieldText, []string{s.AttrOr("value", "")}, nil)
		}
	}
}

func (f *Form) merge(param string, kind domain.FieldKind, vals []string, opts []domain.FieldOption) {
	name := strings.TrimSuffix(param, "[]")
	if i, ok := f.index[name]; ok {
		fld := &f.fields[i]
		fld.Values = append(fld.Values, vals...)
		fld.Options = append(fld.Options, opts...)
		return
	}
	f.index[name] = len(f.fields)
	f.fields = append(f.fields, domain.FormField{
		Name:    name,
		Param:   param,
		Kind:    kind,
		Values:  vals,
		Options: opts,
	})
}

// optionLabel finds the visible text for a checkbox or radio input: the
// wrapping label, or a label pointing at its id.
func optionLabel(p *Page, s *goquery.Selection) string {
	if lbl := s.ParentsFiltered("label").First(); lbl.Length() > 0 {
		return collapse(lbl.Text())
	}
	if id, ok := s.Attr("id"); ok && id != "" && p != nil {
		if lbl := p.doc.Find(`label[for="` + id + `"]`).First(); lbl.Length() > 0 {
			return collapse(lbl.Text())
		}
	}
	return s.AttrOr("value", "")
}

// Fields returns a copy of the snapshot's fields.
func (f *Form) Fields() []domain.FormField {
	out := make([]domain.FormField, len(f.fields))
	for i, fld := range f.fields {
		fld.Values = append([]string(nil), fld.Values...)
		fld.Options = append([]domain.FieldOption(nil), fld.Options...)
		out[i] = fld
	}
	return out
}

func (f *Form) Field(name string) (domain.FormField, bool) {
	i, ok := f.index[name]
	if !ok {
		return domain.FormField{}, false
	}
	return f.fields[i], true
}

// Set replaces the submitted values of name. Unknown names are added as
// text fields so they are still posted.
func (f *Form) Set(name string, values ...string) {
	vals := append([]string(nil), values...)
	if i, ok := f.index[name]; ok {
		f.fields[i].Values = vals
		return
	}
	f.merge(name, domain.FieldText, vals, nil)
}

// Press selects the submit button labelled label inside the form.
func (f *Form) Press(label string) error {
	var match *goquery.Selection
	f.sel.Find(buttonSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if buttonMatches(s, label) {
			match = s
			return false
		}
		return true
	})
	if match == nil {
		return fmt.Errorf("%w: %q", ErrNoButton, label)
	}
	f.press(match)
	return nil
}

func (f *Form) press(s *goquery.Selection) {
	name := s.AttrOr("name", "")
	value, ok := s.Attr("value")
	if !ok && goquery.NodeName(s) == "button" {
		value = collapse(s.Text())
	}
	f.button = &pressed{name: name, value: value}
}

// Values encodes the form the way a browser would submit it.
func (f *Form) Values() url.Values {
	out := url.Values{}
	for _, fld := range f.fields {
		for _, v := range fld.Values {
			out.Add(fld.Param, v)
		}
	}
	if f.button != nil && f.button.name != "" {
		out.Add(f.button.name, f.button.value)
	}
	return out
}

func (f *Form) Method() string {
	if strings.EqualFold(f.sel.AttrOr("method", ""), http.MethodPost) {
		return http.MethodPost
	}
	return http.MethodGet
}

// Action is the absolute submission URL; an empty action posts back to
// the page itself.
func (f *Form) Action() string {
	action := strings.TrimSpace(f.sel.AttrOr("action", ""))
	if action == "" {
		if f.page.URL == nil {
			return ""
		}
		return f.page.URL.String()
	}
	return f.page.Resolve(action)
}

func buttonMatches(s *goquery.Selection, label string) bool {
	label = strings.TrimSpace(label)
	if goquery.NodeName(s) == "button" && collapse(s.Text()) == label {
		return true
	}
	for _, attr := range []string{"value", "id", "name", "alt"} {
		if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) == label {
			return true
		}
	}
	return false
}
