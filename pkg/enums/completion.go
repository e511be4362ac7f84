package enums

import "fmt"

// CompletionType records whether an assignment ended by explicit action or by the clock.
type CompletionType string

const (
	CompletionManual    CompletionType = "manual"
	CompletionAutomatic CompletionType = "automatic"
)

// CompletionSource records which actor drove the terminal transition.
type CompletionSource string

const (
	SourceDriverApp  CompletionSource = "driver_app"
	SourceDispatcher CompletionSource = "dispatcher"
	SourceExpiryJob  CompletionSource = "expiry_job"
)

var validCompletionSources = []CompletionSource{
	SourceDriverApp,
	SourceDispatcher,
	SourceExpiryJob,
}

// IsValid reports whether the value matches the canonical completion source enum.
func (s CompletionSource) IsValid() bool {
	for _, candidate := range validCompletionSources {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseCompletionSource converts raw input into CompletionSource.
func ParseCompletionSource(value string) (CompletionSource, error) {
	for _, candidate := range validCompletionSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid completion source %q", value)
}
