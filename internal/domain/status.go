package domain

import "time"

type StatusLevel string

const (
	StatusOK    StatusLevel = "ok"
	StatusWarn  StatusLevel = "warn"
	StatusError StatusLevel = "error"
)

type StatusItem struct {
	Label   string
	Level   StatusLevel
	Details string
}

// SystemStatus summarises the installer's compatibility rows.
type SystemStatus struct {
	Items   []StatusItem
	Overall StatusLevel
	// Optional, display-oriented label (e.g. OK/Warnings/Errors).
	OverallLabel string
	UpdatedAt    time.Time
}

func NormalizeSystemStatus(s SystemStatus) SystemStatus {
	s.Overall = ComputeOverallLevel(s.Items)
	if s.OverallLabel == "" {
		s.OverallLabel = OverallLabel(s.Overall)
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now()
	}
	return s
}

func ComputeOverallLevel(items []StatusItem) StatusLevel {
	overall := StatusOK
	for _, it := range items {
		if it.Level == StatusError {
			return StatusError
		}
		if it.Level == StatusWarn {
			overall = StatusWarn
		}
	}
	return overall
}

func OverallLabel(level StatusLevel) string {
	switch level {
	case StatusError:
		return "Errors"
	case StatusWarn:
		return "Warnings"
	default:
		return "OK"
	}
}

// Failures returns the items that are not OK.
func (s SystemStatus) Failures() []StatusItem {
	var out []StatusItem
	for _, it := range s.Items {
		if it.Level != StatusOK {
			out = append(out, it)
		}
	}
	return out
}
