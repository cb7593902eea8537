package web

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	ErrNoForm   = errors.New("form not found")
	ErrNoButton = errors.New("button not found")
)

// Page is one fetched HTML document.
type Page struct {
	URL    *url.URL
	Status int
	doc    *goquery.Document
}

func NewPage(u *url.URL, status int, body io.Reader) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	doc.Url = u
	return &Page{URL: u, Status: status, doc: doc}, nil
}

func (p *Page) Find(selector string) *goquery.Selection {
	return p.doc.Find(selector)
}

// Banner returns the outer HTML of the first h1, or "".
func (p *Page) Banner() string {
	h1 := p.doc.Find("h1").First()
	if h1.Length() == 0 {
		return ""
	}
	html, err := goquery.OuterHtml(h1)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(html)
}

// Headings lists the text of every h2 in document order.
func (p *Page) Headings() []string {
	return p.Texts("h2")
}

// Texts returns the trimmed, non-empty text of every match.
func (p *Page) Texts(selector string) []string {
	var out []string
	p.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if txt := collapse(s.Text()); txt != "" {
			out = append(out, txt)
		}
	})
	return out
}

// Resolve turns a reference found on the page into an absolute URL.
func (p *Page) Resolve(ref string) string {
	if p.URL == nil {
		return ref
	}
	u, err := p.URL.Parse(ref)
	if err != nil {
		return ref
	}
	return u.String()
}

// Form snapshots the form matched by selector. The selector may match
// the form element itself or an element inside it.
func (p *Page) Form(selector string) (*Form, error) {
	sel := p.doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoForm, selector)
	}
	if goquery.NodeName(sel) != "form" {
		if closest := sel.Closest("form"); closest.Length() > 0 {
			sel = closest
		} else if inner := sel.Find("form").First(); inner.Length() > 0 {
			sel = inner
		}
	}
	return newForm(p, sel), nil
}

// FormByButton snapshots the form owning the first button labelled label
// and marks that button as pressed.
func (p *Page) FormByButton(label string) (*Form, error) {
	var match *goquery.Selection
	p.doc.Find(buttonSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if buttonMatches(s, label) {
			match = s
			return false
		}
		return true
	})
	if match == nil {
		return nil, fmt.Errorf("%w: %q", ErrNoButton, label)
	}

	owner := match.Closest("form")
	if id, ok := match.Attr("form"); ok && id != "" {
		if byID := p.doc.Find("form#" + id); byID.Length() > 0 {
			owner = byID.First()
		}
	}
	if owner.Length() == 0 {
		return nil, fmt.Errorf("%w: button %q has no form", ErrNoForm, label)
	}
	f := newForm(p, owner)
	f.press(match)
	return f, nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
