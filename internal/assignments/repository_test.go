package assignments

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/omarvelez/fleetdriver-app/pkg/enums"
	"github.com/omarvelez/fleetdriver-app/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
}

type staticLister struct {
	mu    sync.Mutex
	list  []TempAssignment
	err   error
	calls int
}

func (s *staticLister) List(ctx context.Context) ([]TempAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([]TempAssignment, len(s.list))
	copy(out, s.list)
	return out, nil
}

type blockingLister struct {
	mu    sync.Mutex
	waits []chan []TempAssignment
}

func (b *blockingLister) List(ctx context.Context) ([]TempAssignment, error) {
	b.mu.Lock()
	wait := make(chan []TempAssignment)
	b.waits = append(b.waits, wait)
	b.mu.Unlock()
	return <-wait, nil
}

func (b *blockingLister) waitForCalls(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		b.mu.Lock()
		count := len(b.waits)
		b.mu.Unlock()
		if count >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d list calls", n)
}

func activeAssignment(start time.Time) TempAssignment {
	return TempAssignment{
		ID:            uuid.New(),
		Status:        enums.AssignmentActive,
		StartDatetime: start,
		EndDatetime:   start.Add(4 * time.Hour),
	}
}

func TestRefreshAppliesAndNotifies(t *testing.T) {
	assignment := activeAssignment(time.Now())
	lister := &staticLister{list: []TempAssignment{assignment}}
	repo, err := NewRepository(lister, testLogger(), nil)
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}

	notified := 0
	repo.Subscribe(func() { notified++ })

	if err := repo.Refresh(context.Background(), enums.TriggerInitial); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if notified != 1 {
		t.Fatalf("expected one notification, got %d", notified)
	}

	snapshot := repo.Snapshot()
	if len(snapshot) != 1 || snapshot[0].ID != assignment.ID {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}

	// Snapshot hands out copies, never a live handle.
	snapshot[0].Status = enums.AssignmentCancelled
	if got, _ := repo.Get(assignment.ID); got.Status != enums.AssignmentActive {
		t.Fatalf("snapshot mutation leaked into repository")
	}
}

func TestRefreshErrorLeavesStateUntouched(t *testing.T) {
	assignment := activeAssignment(time.Now())
	lister := &staticLister{list: []TempAssignment{assignment}}
	repo, _ := NewRepository(lister, testLogger(), nil)
	if err := repo.Refresh(context.Background(), enums.TriggerInitial); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	lister.mu.Lock()
	lister.err = errors.New("boom")
	lister.mu.Unlock()

	if err := repo.Refresh(context.Background(), enums.TriggerManual); err == nil {
		t.Fatal("expected refresh error")
	}
	if len(repo.Snapshot()) != 1 {
		t.Fatalf("failed refresh must not clear state")
	}
}

func TestStaleFetchResponseIsDiscarded(t *testing.T) {
	lister := &blockingLister{}
	repo, _ := NewRepository(lister, testLogger(), nil)

	older := activeAssignment(time.Now())
	newer := older
	newer.Status = enums.AssignmentCompleted

	done1 := make(chan struct{})
	go func() {
		defer close(done1)
		_ = repo.Refresh(context.Background(), enums.TriggerManual)
	}()
	lister.waitForCalls(t, 1)

	done2 := make(chan struct{})
	go func() {
		defer close(done2)
		_ = repo.Refresh(context.Background(), enums.TriggerChangeFeed)
	}()
	lister.waitForCalls(t, 2)

	// Later-issued fetch resolves first and is applied.
	lister.waits[1] <- []TempAssignment{newer}
	<-done2

	// The earlier-issued fetch resolves late; its response must be dropped.
	lister.waits[0] <- []TempAssignment{older}
	<-done1

	got, ok := repo.Get(older.ID)
	if !ok {
		t.Fatal("assignment missing after refreshes")
	}
	if got.Status != enums.AssignmentCompleted {
		t.Fatalf("stale fetch overwrote newer state: status=%s", got.Status)
	}
}

func TestSnapshotOrderIsStable(t *testing.T) {
	base := time.Now()
	second := activeAssignment(base.Add(time.Hour))
	first := activeAssignment(base)
	lister := &staticLister{list: []TempAssignment{second, first}}
	repo, _ := NewRepository(lister, testLogger(), nil)
	if err := repo.Refresh(context.Background(), enums.TriggerInitial); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	snapshot := repo.Snapshot()
	if snapshot[0].ID != first.ID {
		t.Fatalf("expected earliest start first, got %+v", snapshot)
	}
}

func TestActiveSkipsTerminalRecords(t *testing.T) {
	completed := activeAssignment(time.Now())
	completed.Status = enums.AssignmentExpired
	active := activeAssignment(time.Now().Add(time.Minute))

	lister := &staticLister{list: []TempAssignment{completed, active}}
	repo, _ := NewRepository(lister, testLogger(), nil)
	if err := repo.Refresh(context.Background(), enums.TriggerInitial); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	got, ok := repo.Active()
	if !ok || got.ID != active.ID {
		t.Fatalf("unexpected active assignment %+v ok=%v", got, ok)
	}
}
