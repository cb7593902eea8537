package install

import (
	"strings"

	"github.com/lemachinarbo/RockShell/internal/domain"
)

// Banner is the exact h1 the ProcessWire 3.x installer renders.
const Banner = `<h1 class="uk-margin-remove-top">ProcessWire 3.x Installer</h1>`

type headingRule struct {
	text   string
	prefix bool
	step   domain.Step
}

var headingRules = []headingRule{
	{text: "Compatibility Check", step: domain.StepCompatibility},
	{text: "Site Installation Profile", step: domain.StepProfile},
	{text: "Welcome.", prefix: true, step: domain.StepWelcome},
	{text: "Debug mode?", step: domain.StepDatabase},
	{text: "Admin Panel", step: domain.StepAdmin},
	{text: "Admin Account Saved", step: domain.StepFinish},
}

// Classify maps a rendered page to its wizard step. Headings are scanned
// last to first: installer pages can still show the heading of an earlier
// section above the current one.
func Classify(banner string, headings []string) domain.Classification {
	if strings.TrimSpace(banner) != Banner {
		return domain.Classification{Step: domain.StepNoInstaller}
	}
	for i := len(headings) - 1; i >= 0; i-- {
		h := strings.TrimSpace(headings[i])
		for _, r := range headingRules {
			if h == r.text || (r.prefix && strings.HasPrefix(h, r.text)) {
				return domain.Classification{Step: r.step}
			}
		}
	}
	return domain.Classification{
		Step:     domain.StepUnknown,
		Headings: append([]string(nil), headings...),
	}
}
