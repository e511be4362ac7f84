package enums

import "fmt"

// AssignmentStatus maps to the status field on temp assignment records.
type AssignmentStatus string

const (
	AssignmentActive    AssignmentStatus = "active"
	AssignmentCompleted AssignmentStatus = "completed"
	AssignmentExpired   AssignmentStatus = "expired"
	AssignmentCancelled AssignmentStatus = "cancelled"
)

var validAssignmentStatuses = []AssignmentStatus{
	AssignmentActive,
	AssignmentCompleted,
	AssignmentExpired,
	AssignmentCancelled,
}

// IsValid reports whether the value matches the canonical status enum.
func (s AssignmentStatus) IsValid() bool {
	for _, candidate := range validAssignmentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status permits no further transitions.
func (s AssignmentStatus) IsTerminal() bool {
	switch s {
	case AssignmentCompleted, AssignmentExpired, AssignmentCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether the status may move to next.
// Transitions are one-directional out of active; nothing leaves a terminal state.
func (s AssignmentStatus) CanTransitionTo(next AssignmentStatus) bool {
	if s != AssignmentActive {
		return false
	}
	return next.IsTerminal()
}

// ParseAssignmentStatus converts raw input into AssignmentStatus.
func ParseAssignmentStatus(value string) (AssignmentStatus, error) {
	for _, candidate := range validAssignmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid assignment status %q", value)
}
