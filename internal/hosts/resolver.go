package hosts

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var ErrUnreachable = errors.New("host is not reachable via HTTP or HTTPS")

// Hints carries router ports supplied by the environment (DDEV exports
// DDEV_ROUTER_HTTP_PORT / DDEV_ROUTER_HTTPS_PORT). Either may be empty.
type Hints struct {
	HTTPPort  string
	HTTPSPort string
}

type Prober interface {
	Probe(ctx context.Context, url string) (int, error)
}

type Attempt struct {
	URL    string
	Status int
	Err    error
}

type Result struct {
	BaseURL string
	// Forbidden is set when the winning candidate answered 403, which
	// happens while the installer is half way through.
	Forbidden bool
	Attempts  []Attempt
}

// Candidates lists the base URLs to probe for host, in order.
func Candidates(host string, hints Hints) []string {
	host = strings.TrimSpace(host)
	if host == "" {
		return nil
	}
	var out []string
	if HasPort(host) {
		out = append(out, NormalizeURL("https://"+host), NormalizeURL("http://"+host))
		return out
	}
	if p := strings.TrimSpace(hints.HTTPSPort); p != "" {
		out = append(out, NormalizeURL("https://"+host+":"+p))
	}
	if p := strings.TrimSpace(hints.HTTPPort); p != "" {
		out = append(out, NormalizeURL("http://"+host+":"+p))
	}
	return out
}

// Resolve probes the candidates for host and returns the first one that
// answers 200 or 403.
func Resolve(ctx context.Context, p Prober, host string, hints Hints) (Result, error) {
	var res Result
	for _, candidate := range Candidates(host, hints) {
		status, err := p.Probe(ctx, candidate)
		res.Attempts = append(res.Attempts, Attempt{URL: candidate, Status: status, Err: err})
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			continue
		}
		switch status {
		case http.StatusOK:
			res.BaseURL = candidate
			return res, nil
		case http.StatusForbidden:
			res.BaseURL = candidate
			res.Forbidden = true
			return res, nil
		}
	}
	return res, fmt.Errorf("%w: %s", ErrUnreachable, host)
}
