package assignments

import (
	"time"

	"github.com/google/uuid"
	"github.com/omarvelez/fleetdriver-app/pkg/enums"
)

// TempAssignment is a temporary reassignment of a vehicle to another driver
// for a bounded window. The backend is authoritative for every field; the
// client never mutates a record locally.
type TempAssignment struct {
	ID uuid.UUID `json:"id"`

	VehicleID         uuid.UUID `json:"vehicle_id"`
	PermanentDriverID uuid.UUID `json:"permanent_driver_id"`
	TempDriverID      uuid.UUID `json:"temp_driver_id"`
	AssignedBy        uuid.UUID `json:"assigned_by"`

	StartDatetime       time.Time `json:"start_datetime"`
	EndDatetime         time.Time `json:"end_datetime"`
	OriginalEndDatetime time.Time `json:"original_end_datetime"`

	Status enums.AssignmentStatus `json:"status"`

	CompletionType   *enums.CompletionType   `json:"completion_type,omitempty"`
	CompletedAt      *time.Time              `json:"completed_at,omitempty"`
	CompletedBy      *uuid.UUID              `json:"completed_by,omitempty"`
	CompletionSource *enums.CompletionSource `json:"completion_source,omitempty"`
	CompletionNotes  *string                 `json:"completion_notes,omitempty"`

	ExtensionCount int        `json:"extension_count"`
	LastExtendedAt *time.Time `json:"last_extended_at,omitempty"`
	LastExtendedBy *uuid.UUID `json:"last_extended_by,omitempty"`

	Vehicle *VehicleSummary `json:"vehicle,omitempty"`
	Driver  *DriverSummary  `json:"driver,omitempty"`
}

// IsActive reports whether the record's fetched status is active. Action
// gating uses this, never the local countdown.
func (a TempAssignment) IsActive() bool {
	return a.Status == enums.AssignmentActive
}

// CumulativeExtension is the total time added to the window since creation.
func (a TempAssignment) CumulativeExtension() time.Duration {
	return a.EndDatetime.Sub(a.OriginalEndDatetime)
}

// VehicleSummary is a denormalized display projection, never authoritative
// for identity.
type VehicleSummary struct {
	ID           uuid.UUID `json:"id"`
	Registration string    `json:"registration"`
	Make         string    `json:"make"`
	Model        string    `json:"model"`
}

// DriverSummary is a denormalized display projection of a driver.
type DriverSummary struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"full_name"`
	Phone    string    `json:"phone"`
}

// ExtensionRequest is a command value: constructed, sent, discarded. The
// server is the system of record for whether it succeeded.
type ExtensionRequest struct {
	AssignmentID     uuid.UUID `json:"assignment_id"`
	NewEndDatetime   time.Time `json:"new_end_datetime"`
	Reason           string    `json:"reason"`
	ExtendedByDriver bool      `json:"extended_by_driver"`
}
