package domain

// Status is the display state of a slot (or of the whole page, once aggregated).
type Status string

const (
	StatusDefault Status = "default"
	StatusLoading Status = "loading"
	StatusError   Status = "error"
)

// Level is the severity attached to an error status.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
	LevelFatal   Level = "fatal"
)

// StatusDetails is what onUpdateStatus receives.
type StatusDetails struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Level   Level  `json:"level,omitempty"`
}

// Loading returns loading details.
func Loading() StatusDetails { return StatusDetails{Status: StatusLoading} }

// Ready returns default details.
func Ready() StatusDetails { return StatusDetails{Status: StatusDefault} }

// Failed builds error details from err, taking the level from a *Error when present.
func Failed(err error) StatusDetails {
	d := StatusDetails{Status: StatusError, Level: LevelError}
	if err == nil {
		return d
	}
	d.Message = err.Error()
	if e, ok := AsError(err); ok && e.Level != "" {
		d.Level = e.Level
	}
	return d
}
