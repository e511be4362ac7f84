package enums

import "testing"

func TestAssignmentStatusTerminality(t *testing.T) {
	if AssignmentActive.IsTerminal() {
		t.Fatal("active must not be terminal")
	}
	for _, status := range []AssignmentStatus{AssignmentCompleted, AssignmentExpired, AssignmentCancelled} {
		if !status.IsTerminal() {
			t.Fatalf("%s must be terminal", status)
		}
	}
}

func TestAssignmentStatusTransitions(t *testing.T) {
	for _, next := range []AssignmentStatus{AssignmentCompleted, AssignmentExpired, AssignmentCancelled} {
		if !AssignmentActive.CanTransitionTo(next) {
			t.Fatalf("active -> %s must be permitted", next)
		}
	}
	if AssignmentActive.CanTransitionTo(AssignmentActive) {
		t.Fatal("active -> active is not a transition")
	}
	for _, terminal := range []AssignmentStatus{AssignmentCompleted, AssignmentExpired, AssignmentCancelled} {
		if terminal.CanTransitionTo(AssignmentActive) {
			t.Fatalf("%s must never re-enter active", terminal)
		}
		if terminal.CanTransitionTo(AssignmentCompleted) {
			t.Fatalf("%s permits no outgoing transitions", terminal)
		}
	}
}

func TestParseAssignmentStatus(t *testing.T) {
	status, err := ParseAssignmentStatus("expired")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != AssignmentExpired {
		t.Fatalf("unexpected status %s", status)
	}
	if _, err := ParseAssignmentStatus("paused"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}
