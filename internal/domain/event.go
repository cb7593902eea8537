package domain

import "time"

type EventType string

const (
	EventStepStart EventType = "step_start"
	EventStepDone  EventType = "step_done"
	EventLog       EventType = "log"
	EventSuccess   EventType = "success"
	EventWarning   EventType = "warning"
	EventError     EventType = "error"
)

type Severity string

const (
	SeverityTrace Severity = "trace"
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

type Event struct {
	Type     EventType
	StepID   string
	TS       time.Time
	Source   string
	Severity Severity
	Payload  any
}

type StepStartPayload struct {
	Label string
	// Iteration is the run counter value at the time the step started.
	Iteration int
}

type StepDonePayload struct {
	OK bool
}

type LogPayload struct {
	Message string
	Fields  map[string]string
}

type LogLevel string

const (
	LogInfo    LogLevel = "info"
	LogSuccess LogLevel = "success"
	LogWarning LogLevel = "warning"
	LogError   LogLevel = "error"
)

type LogEntry struct {
	TS      time.Time
	Level   LogLevel
	Source  string
	StepID  string
	Message string
	Fields  map[string]string
}
