package hosts

import (
	"net/url"
	"strings"
)

// NormalizeURL drops an explicit port when it is the scheme default
// (443 for https, 80 for http). Anything unparsable is returned as is.
func NormalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return raw
	}
	port := u.Port()
	if port == "" {
		return raw
	}
	switch {
	case strings.EqualFold(u.Scheme, "https") && port == "443",
		strings.EqualFold(u.Scheme, "http") && port == "80":
		u.Host = u.Hostname()
		if strings.Contains(u.Host, ":") {
			u.Host = "[" + u.Host + "]"
		}
		return u.String()
	}
	return raw
}

// HasPort reports whether host (no scheme) carries an explicit port.
func HasPort(host string) bool {
	u, err := url.Parse("//" + host)
	if err != nil {
		return false
	}
	return u.Port() != ""
}

// Join appends path to base with exactly one slash between them.
func Join(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
