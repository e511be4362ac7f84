package controllers

import (
	"net/http"

	"github.com/omarvelez/fleetdriver-app/api/responses"
	"github.com/omarvelez/fleetdriver-app/internal/assignments"
	"github.com/omarvelez/fleetdriver-app/internal/countdown"
	"github.com/omarvelez/fleetdriver-app/internal/viewmodel"
)

// StateSource hands out view model snapshots.
type StateSource interface {
	State() viewmodel.State
}

type statusPayload struct {
	Assignments []assignments.TempAssignment `json:"assignments"`
	Active      *assignments.TempAssignment  `json:"active,omitempty"`
	Remaining   *countdown.TimeRemaining     `json:"remaining,omitempty"`
	Refreshing  bool                         `json:"refreshing"`
	Extending   bool                         `json:"extending"`
	Completing  bool                         `json:"completing"`
	FeedHealthy bool                         `json:"feed_healthy"`
	LastError   string                       `json:"last_error,omitempty"`
}

// Status renders the current composed lifecycle state for the display layer.
func Status(source StateSource) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		state := source.State()
		payload := statusPayload{
			Assignments: state.Assignments,
			Active:      state.Active,
			Remaining:   state.Remaining,
			Refreshing:  state.Refreshing,
			Extending:   state.Extending,
			Completing:  state.Completing,
			FeedHealthy: state.FeedHealthy,
		}
		if state.LastError != nil {
			payload.LastError = state.LastError.Error()
		}
		if payload.Assignments == nil {
			payload.Assignments = []assignments.TempAssignment{}
		}
		responses.WriteSuccess(w, payload)
	}
}
