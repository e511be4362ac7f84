package assignments

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	pkgerrors "github.com/omarvelez/fleetdriver-app/pkg/errors"
	"github.com/omarvelez/fleetdriver-app/pkg/enums"
	"github.com/omarvelez/fleetdriver-app/pkg/logger"
	"github.com/omarvelez/fleetdriver-app/pkg/metrics"
)

type store interface {
	Get(id uuid.UUID) (TempAssignment, bool)
	Refresh(ctx context.Context, trigger enums.RefetchTrigger) error
}

type mutator interface {
	Extend(ctx context.Context, req ExtensionRequest) error
	Complete(ctx context.Context, assignmentID uuid.UUID, notes string) error
}

// Service runs the extension and completion workflows. Both report the
// server's authoritative outcome and follow success with a refetch; local
// state is never patched.
type Service struct {
	repo     store
	client   mutator
	logg     *logger.Logger
	metrics  *metrics.LifecycleMetrics
	validate *validator.Validate

	mu      sync.Mutex
	intents map[uuid.UUID]CompletionIntent
}

// ServiceParams configure the workflow service.
type ServiceParams struct {
	Repo    store
	Client  mutator
	Logger  *logger.Logger
	Metrics *metrics.LifecycleMetrics
}

// NewService builds the workflow service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("repository required")
	}
	if params.Client == nil {
		return nil, fmt.Errorf("backend client required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		repo:     params.Repo,
		client:   params.Client,
		logg:     params.Logger,
		metrics:  params.Metrics,
		validate: validator.New(),
		intents:  map[uuid.UUID]CompletionIntent{},
	}, nil
}

// ExtendParams carry the raw extension form input. Hours and Minutes are
// text fields and must parse as non-negative integers.
type ExtendParams struct {
	AssignmentID uuid.UUID `validate:"required"`
	Hours        string
	Minutes      string
	Reason       string `validate:"required"`
}

// Extend validates the request client-side, then submits it and refetches.
// Validation failures never reach the network layer.
func (s *Service) Extend(ctx context.Context, params ExtendParams) error {
	params.Reason = strings.TrimSpace(params.Reason)
	if err := s.validate.Struct(params); err != nil {
		s.metrics.IncMutation("extend", "validation_error")
		return pkgerrors.New(pkgerrors.CodeValidation, "reason is required").
			WithDetails(map[string]string{"field": "reason"})
	}

	additional, err := parseAdditionalDuration(params.Hours, params.Minutes)
	if err != nil {
		s.metrics.IncMutation("extend", "validation_error")
		return err
	}

	assignment, ok := s.repo.Get(params.AssignmentID)
	if !ok {
		s.metrics.IncMutation("extend", "not_found")
		return pkgerrors.New(pkgerrors.CodeNotFound, "assignment not found")
	}
	if !assignment.IsActive() {
		s.metrics.IncMutation("extend", "state_conflict")
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("assignment is %s and can no longer be extended", assignment.Status))
	}

	req := ExtensionRequest{
		AssignmentID:     assignment.ID,
		NewEndDatetime:   assignment.EndDatetime.Add(additional),
		Reason:           params.Reason,
		ExtendedByDriver: true,
	}

	ctx = s.logg.WithAssignmentID(ctx, assignment.ID.String())
	if err := s.client.Extend(ctx, req); err != nil {
		s.metrics.IncMutation("extend", outcomeLabel(err))
		s.logg.Error(ctx, "extension rejected", err)
		return err
	}
	s.metrics.IncMutation("extend", "ok")
	s.logg.Info(ctx, "extension accepted")

	return s.repo.Refresh(ctx, enums.TriggerExtension)
}

// parseAdditionalDuration validates the hour/minute text fields and converts
// them into a single duration, which must be strictly positive.
func parseAdditionalDuration(hours, minutes string) (time.Duration, error) {
	h, err := parseNonNegative(hours, "hours")
	if err != nil {
		return 0, err
	}
	m, err := parseNonNegative(minutes, "minutes")
	if err != nil {
		return 0, err
	}
	total := h*60 + m
	if total <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "extension duration must be greater than zero").
			WithDetails(map[string]string{"field": "minutes"})
	}
	return time.Duration(total) * time.Minute, nil
}

func parseNonNegative(value, field string) (int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		trimmed = "0"
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil || parsed < 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("%s must be a non-negative integer", field)).
			WithDetails(map[string]string{"field": field})
	}
	return parsed, nil
}

// CompletionIntent is the first phase of the two-phase completion flow. It
// is held in memory and consumed exactly once by ConfirmCompletion.
type CompletionIntent struct {
	ID           uuid.UUID
	AssignmentID uuid.UUID
	IssuedAt     time.Time
}

// BeginCompletion records the driver's intent to end the assignment early.
// The mutation is only sent once the intent is confirmed.
func (s *Service) BeginCompletion(assignmentID uuid.UUID) (CompletionIntent, error) {
	assignment, ok := s.repo.Get(assignmentID)
	if !ok {
		return CompletionIntent{}, pkgerrors.New(pkgerrors.CodeNotFound, "assignment not found")
	}
	if !assignment.IsActive() {
		return CompletionIntent{}, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("assignment is %s and cannot be completed", assignment.Status))
	}

	intent := CompletionIntent{
		ID:           uuid.New(),
		AssignmentID: assignment.ID,
		IssuedAt:     time.Now().UTC(),
	}
	s.mu.Lock()
	s.intents[intent.ID] = intent
	s.mu.Unlock()
	return intent, nil
}

// CancelCompletion discards a pending intent.
func (s *Service) CancelCompletion(intentID uuid.UUID) {
	s.mu.Lock()
	delete(s.intents, intentID)
	s.mu.Unlock()
}

// ConfirmCompletion consumes the intent and submits the completion. On
// failure the assignment stays active locally and the error is surfaced for
// retry; the intent is gone and a new confirmation round is required.
func (s *Service) ConfirmCompletion(ctx context.Context, intentID uuid.UUID, notes string) error {
	s.mu.Lock()
	intent, ok := s.intents[intentID]
	if ok {
		delete(s.intents, intentID)
	}
	s.mu.Unlock()
	if !ok {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "no pending completion to confirm")
	}

	ctx = s.logg.WithAssignmentID(ctx, intent.AssignmentID.String())
	if err := s.client.Complete(ctx, intent.AssignmentID, notes); err != nil {
		s.metrics.IncMutation("complete", outcomeLabel(err))
		s.logg.Error(ctx, "completion rejected", err)
		return err
	}
	s.metrics.IncMutation("complete", "ok")
	s.logg.Info(ctx, "completion accepted")

	return s.repo.Refresh(ctx, enums.TriggerCompletion)
}

func outcomeLabel(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return strings.ToLower(string(typed.Code()))
	}
	return "error"
}
