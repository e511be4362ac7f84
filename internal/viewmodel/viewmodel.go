package viewmodel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/omarvelez/fleetdriver-app/internal/assignments"
	"github.com/omarvelez/fleetdriver-app/internal/changefeed"
	"github.com/omarvelez/fleetdriver-app/internal/countdown"
	"github.com/omarvelez/fleetdriver-app/pkg/enums"
	pkgerrors "github.com/omarvelez/fleetdriver-app/pkg/errors"
	"github.com/omarvelez/fleetdriver-app/pkg/logger"
)

type repository interface {
	Refresh(ctx context.Context, trigger enums.RefetchTrigger) error
	Snapshot() []assignments.TempAssignment
	Get(id uuid.UUID) (assignments.TempAssignment, bool)
	Active() (assignments.TempAssignment, bool)
	Subscribe(fn func())
}

type workflow interface {
	Extend(ctx context.Context, params assignments.ExtendParams) error
	BeginCompletion(assignmentID uuid.UUID) (assignments.CompletionIntent, error)
	CancelCompletion(intentID uuid.UUID)
	ConfirmCompletion(ctx context.Context, intentID uuid.UUID, notes string) error
}

type ticker interface {
	Start(id uuid.UUID, end time.Time, fn func(countdown.TimeRemaining))
	Stop(id uuid.UUID)
	StopAll()
}

// FeedHandle is an open change feed subscription as the view model sees it.
type FeedHandle interface {
	Dispose()
	Done() <-chan struct{}
	Err() error
}

// FeedSource opens driver-scoped change feed subscriptions.
type FeedSource interface {
	Subscribe(ctx context.Context, driverID string, onChange func()) (FeedHandle, error)
}

// RedisFeed adapts the changefeed subscriber to the FeedSource interface.
type RedisFeed struct {
	Subscriber *changefeed.Subscriber
}

func (f RedisFeed) Subscribe(ctx context.Context, driverID string, onChange func()) (FeedHandle, error) {
	sub, err := f.Subscriber.Subscribe(ctx, driverID, onChange)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// State is the composed observable snapshot handed to consumers. It is a
// value; mutating it has no effect on the view model.
type State struct {
	Assignments []assignments.TempAssignment
	Active      *assignments.TempAssignment
	Remaining   *countdown.TimeRemaining
	Refreshing  bool
	Extending   bool
	Completing  bool
	FeedHealthy bool
	LastError   error
}

// ViewModel composes the repository, the countdown engine, the change feed
// and the workflows into one observable state for the rendering layer.
type ViewModel struct {
	repo     repository
	svc      workflow
	engine   ticker
	feed     FeedSource
	logg     *logger.Logger
	driverID string

	mu          sync.Mutex
	assignments []assignments.TempAssignment
	active      *assignments.TempAssignment
	activeID    uuid.UUID
	remaining   *countdown.TimeRemaining
	refreshing  bool
	extending   bool
	completing  bool
	feedHealthy bool
	lastErr     error
	watchers    []func(State)
	handle      FeedHandle
	closed      bool
	started     bool

	stop      chan struct{}
	watchDone chan struct{}
}

// Params configure the view model.
type Params struct {
	Repo     repository
	Service  workflow
	Engine   ticker
	Feed     FeedSource
	Logger   *logger.Logger
	DriverID string
}

// New builds the view model. Start must be called before state is live.
func New(params Params) (*ViewModel, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("repository required")
	}
	if params.Service == nil {
		return nil, fmt.Errorf("workflow service required")
	}
	if params.Engine == nil {
		return nil, fmt.Errorf("countdown engine required")
	}
	if params.Feed == nil {
		return nil, fmt.Errorf("feed source required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DriverID == "" {
		return nil, fmt.Errorf("driver id required")
	}
	return &ViewModel{
		repo:      params.Repo,
		svc:       params.Service,
		engine:    params.Engine,
		feed:      params.Feed,
		logg:      params.Logger,
		driverID:  params.DriverID,
		stop:      make(chan struct{}),
		watchDone: make(chan struct{}),
	}, nil
}

// Watch registers fn to run with a fresh snapshot after every state change.
func (vm *ViewModel) Watch(fn func(State)) {
	if fn == nil {
		return
	}
	vm.mu.Lock()
	vm.watchers = append(vm.watchers, fn)
	vm.mu.Unlock()
}

// Start wires the repository callback, opens the change feed and performs
// the initial refresh. An initial refresh failure is returned but leaves the
// view model running; the caller can retry with Refresh.
func (vm *ViewModel) Start(ctx context.Context) error {
	vm.mu.Lock()
	if vm.closed {
		vm.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeInternal, "view model is closed")
	}
	if vm.started {
		vm.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeInternal, "view model already started")
	}
	vm.started = true
	vm.mu.Unlock()

	vm.repo.Subscribe(vm.onRepoUpdate)

	handle, err := vm.feed.Subscribe(ctx, vm.driverID, func() {
		if err := vm.refresh(ctx, enums.TriggerChangeFeed); err != nil {
			vm.logg.Error(ctx, "change feed refetch failed", err)
		}
	})
	if err != nil {
		return err
	}

	vm.mu.Lock()
	vm.handle = handle
	vm.feedHealthy = true
	vm.mu.Unlock()

	go vm.watchFeed(ctx, handle)

	return vm.refresh(ctx, enums.TriggerInitial)
}

func (vm *ViewModel) watchFeed(ctx context.Context, handle FeedHandle) {
	defer close(vm.watchDone)
	select {
	case <-handle.Done():
		err := handle.Err()
		vm.mu.Lock()
		vm.feedHealthy = false
		vm.lastErr = err
		vm.mu.Unlock()
		vm.logg.Error(vm.logg.WithDriverID(ctx, vm.driverID), "change feed is stale", err)
		vm.notify()
	case <-vm.stop:
	}
}

// Refresh refetches the assignment list on the caller's initiative.
func (vm *ViewModel) Refresh(ctx context.Context) error {
	return vm.refresh(ctx, enums.TriggerManual)
}

func (vm *ViewModel) refresh(ctx context.Context, trigger enums.RefetchTrigger) error {
	vm.mu.Lock()
	if vm.closed {
		vm.mu.Unlock()
		return nil
	}
	vm.refreshing = true
	vm.mu.Unlock()
	vm.notify()

	err := vm.repo.Refresh(ctx, trigger)

	vm.mu.Lock()
	vm.refreshing = false
	if err != nil {
		vm.lastErr = err
	}
	vm.mu.Unlock()
	vm.notify()
	return err
}

// onRepoUpdate runs after every applied refresh: it resnapshots the list and
// rewires the countdown to the current active assignment. Restarting the
// timer on the same id is how an applied extension picks up the new end.
func (vm *ViewModel) onRepoUpdate() {
	vm.mu.Lock()
	if vm.closed {
		vm.mu.Unlock()
		return
	}
	prev := vm.activeID
	active, ok := vm.repo.Active()
	vm.assignments = vm.repo.Snapshot()
	if ok {
		vm.active = &active
		vm.activeID = active.ID
	} else {
		vm.active = nil
		vm.activeID = uuid.Nil
		vm.remaining = nil
	}
	vm.mu.Unlock()

	if prev != uuid.Nil && (!ok || prev != active.ID) {
		vm.engine.Stop(prev)
	}
	if ok {
		id := active.ID
		vm.engine.Start(id, active.EndDatetime, func(remaining countdown.TimeRemaining) {
			vm.onTick(id, remaining)
		})
	}
	vm.notify()
}

func (vm *ViewModel) onTick(id uuid.UUID, remaining countdown.TimeRemaining) {
	vm.mu.Lock()
	if vm.closed || id != vm.activeID {
		vm.mu.Unlock()
		return
	}
	vm.remaining = &remaining
	vm.mu.Unlock()
	vm.notify()
}

// CanExtend gates the extension action on the fetched status only. A locally
// expired countdown does not disable the action; the server decides.
func (vm *ViewModel) CanExtend(assignmentID uuid.UUID) bool {
	assignment, ok := vm.repo.Get(assignmentID)
	return ok && assignment.IsActive()
}

// RequestExtension runs the extension workflow. Only one extension may be in
// flight at a time.
func (vm *ViewModel) RequestExtension(ctx context.Context, params assignments.ExtendParams) error {
	vm.mu.Lock()
	if vm.closed {
		vm.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeInternal, "view model is closed")
	}
	if vm.extending {
		vm.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeStateConflict, "an extension is already in flight")
	}
	vm.extending = true
	vm.mu.Unlock()
	vm.notify()

	err := vm.svc.Extend(ctx, params)

	vm.mu.Lock()
	vm.extending = false
	if err != nil {
		vm.lastErr = err
	}
	vm.mu.Unlock()
	vm.notify()
	return err
}

// BeginCompletion starts the two-phase completion flow.
func (vm *ViewModel) BeginCompletion(assignmentID uuid.UUID) (assignments.CompletionIntent, error) {
	return vm.svc.BeginCompletion(assignmentID)
}

// CancelCompletion discards a pending completion intent.
func (vm *ViewModel) CancelCompletion(intentID uuid.UUID) {
	vm.svc.CancelCompletion(intentID)
}

// ConfirmCompletion submits a previously confirmed completion. Only one
// completion may be in flight at a time.
func (vm *ViewModel) ConfirmCompletion(ctx context.Context, intentID uuid.UUID, notes string) error {
	vm.mu.Lock()
	if vm.closed {
		vm.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeInternal, "view model is closed")
	}
	if vm.completing {
		vm.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeStateConflict, "a completion is already in flight")
	}
	vm.completing = true
	vm.mu.Unlock()
	vm.notify()

	err := vm.svc.ConfirmCompletion(ctx, intentID, notes)

	vm.mu.Lock()
	vm.completing = false
	if err != nil {
		vm.lastErr = err
	}
	vm.mu.Unlock()
	vm.notify()
	return err
}

// State assembles a snapshot of the composed state.
func (vm *ViewModel) State() State {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	state := State{
		Refreshing:  vm.refreshing,
		Extending:   vm.extending,
		Completing:  vm.completing,
		FeedHealthy: vm.feedHealthy,
		LastError:   vm.lastErr,
	}
	state.Assignments = make([]assignments.TempAssignment, len(vm.assignments))
	copy(state.Assignments, vm.assignments)
	if vm.active != nil {
		active := *vm.active
		state.Active = &active
	}
	if vm.remaining != nil {
		remaining := *vm.remaining
		state.Remaining = &remaining
	}
	return state
}

func (vm *ViewModel) notify() {
	vm.mu.Lock()
	if vm.closed {
		vm.mu.Unlock()
		return
	}
	watchers := make([]func(State), len(vm.watchers))
	copy(watchers, vm.watchers)
	vm.mu.Unlock()

	if len(watchers) == 0 {
		return
	}
	state := vm.State()
	for _, fn := range watchers {
		fn(state)
	}
}

// Close tears the view model down: timers stopped, feed disposed. After it
// returns no watcher runs again.
func (vm *ViewModel) Close() {
	vm.mu.Lock()
	if vm.closed {
		vm.mu.Unlock()
		return
	}
	vm.closed = true
	handle := vm.handle
	started := vm.started
	vm.mu.Unlock()

	close(vm.stop)
	vm.engine.StopAll()
	if handle != nil {
		handle.Dispose()
	}
	if started && handle != nil {
		<-vm.watchDone
	}
}
