package hosts

import (
	"regexp"
	"strings"

	"github.com/spf13/cast"
)

var (
	listSplitRe   = regexp.MustCompile(`[\s,]+`)
	defaultPortRe = regexp.MustCompile(`^(.+):(443|80)$`)
)

// NormalizeList cleans an allowed-hosts value. It accepts a delimited
// string or any slice. "host:443" and "host:80" are treated as the bare
// "host"; the port form is only kept when the bare form never appears.
func NormalizeList(v any) []string {
	var raw []string
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		raw = listSplitRe.Split(t, -1)
	default:
		raw = cast.ToStringSlice(v)
	}

	entries := make([]string, 0, len(raw))
	bare := map[string]bool{}
	for _, h := range raw {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		entries = append(entries, h)
		if !defaultPortRe.MatchString(h) {
			bare[h] = true
		}
	}

	out := make([]string, 0, len(entries))
	seen := map[string]bool{}
	for _, h := range entries {
		if m := defaultPortRe.FindStringSubmatch(h); m != nil && bare[m[1]] {
			continue
		}
		if seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, h)
	}
	return out
}
