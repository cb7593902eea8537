package install

import (
	"context"
	"strings"

	"github.com/lemachinarbo/RockShell/internal/domain"
)

const timezonePrompt = "timezone (type 'vienna' for Europe/Vienna to get autocomplete suggestions)"

type tzOption struct {
	key  string
	name string
	// label is "region (continent)" in lower case.
	label string
}

func timezoneOptions(fld domain.FormField) []tzOption {
	out := make([]tzOption, 0, len(fld.Options))
	for _, o := range fld.Options {
		name := strings.TrimSpace(o.Label)
		label := name
		if continent, region, ok := strings.Cut(name, "/"); ok {
			label = region + " (" + continent + ")"
		}
		out = append(out, tzOption{key: o.Value, name: name, label: strings.ToLower(label)})
	}
	return out
}

// matchTimezone finds want by option key, raw name or prompt label. With
// loose set it also accepts a label containing want.
func matchTimezone(opts []tzOption, want string, loose bool) (tzOption, bool) {
	want = strings.TrimSpace(want)
	if want == "" {
		return tzOption{}, false
	}
	lower := strings.ToLower(want)
	for _, o := range opts {
		if o.key == want || strings.EqualFold(o.name, want) || o.label == lower {
			return o, true
		}
	}
	if loose {
		for _, o := range opts {
			if strings.Contains(o.label, lower) {
				return o, true
			}
		}
	}
	return tzOption{}, false
}

// fillTimezone returns the option key to submit. An unmatched default is
// prompted for even in lazy runs; an invalid zone cannot be submitted.
func (e *Engine) fillTimezone(ctx context.Context, s *session, fld domain.FormField, def string) (string, error) {
	opts := timezoneOptions(fld)
	if len(opts) == 0 {
		return def, nil
	}

	matched, ok := matchTimezone(opts, def, false)
	if ok && e.lazy() {
		return matched.key, nil
	}
	promptDef := def
	if ok {
		promptDef = matched.label
	}

	candidates := make([]string, len(opts))
	for i, o := range opts {
		candidates[i] = o.label
	}
	answer, err := e.deps.Console.AskWithCompletion(ctx, timezonePrompt, candidates, promptDef)
	if err != nil {
		return "", err
	}
	if o, ok := matchTimezone(opts, answer, true); ok {
		return o.key, nil
	}
	e.warn(s, "Unknown timezone "+answer+"; using "+opts[0].name)
	return opts[0].key, nil
}
