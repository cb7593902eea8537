package domain

// Step is one logical page of the installer wizard.
type Step string

const (
	StepNoInstaller   Step = "no_installer"
	StepWelcome       Step = "welcome"
	StepCompatibility Step = "compatibility"
	StepProfile       Step = "profile"
	StepDatabase      Step = "database"
	StepAdmin         Step = "admin"
	StepFinish        Step = "finish"
	StepUnknown       Step = "unknown"
)

func (s Step) Label() string {
	switch s {
	case StepNoInstaller:
		return "No installer found"
	case StepWelcome:
		return "Welcome"
	case StepCompatibility:
		return "Compatibility check"
	case StepProfile:
		return "Site profile"
	case StepDatabase:
		return "Database and site settings"
	case StepAdmin:
		return "Admin panel and account"
	case StepFinish:
		return "Finish"
	default:
		return "Unrecognized page"
	}
}

// Terminal reports whether reaching the step ends the wizard loop.
func (s Step) Terminal() bool {
	return s == StepFinish
}

// Classification is the result of inspecting one rendered page.
// Headings is only set for StepUnknown and lists the page's
// second-level headings in document order.
type Classification struct {
	Step     Step
	Headings []string
}
