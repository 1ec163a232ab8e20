package limiters

import (
	"context"
	"testing"
	"time"
)

type fakeUserStore struct {
	attempts map[string]int
	lockouts map[string]time.Time
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		attempts: map[string]int{},
		lockouts: map[string]time.Time{},
	}
}

func (f *fakeUserStore) deps() LockoutDeps {
	return LockoutDeps{
		IncrementAttempts: func(_ context.Context, uuid string) (int, error) {
			f.attempts[uuid]++
			return f.attempts[uuid], nil
		},
		ResetAttempts: func(_ context.Context, uuid string) error {
			f.attempts[uuid] = 0
			return nil
		},
		SetLockout: func(_ context.Context, uuid string, until time.Time) error {
			f.lockouts[uuid] = until
			return nil
		},
		ClearLockout: func(_ context.Context, uuid string) error {
			delete(f.lockouts, uuid)
			return nil
		},
	}
}

func TestLockoutTriggersAtThreshold(t *testing.T) {
	store := newFakeUserStore()
	guard := NewLockoutGuard(LockoutConfig{
		Enabled:   true,
		Threshold: 5,
		Duration:  30 * time.Minute,
	}, store.deps())

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		locked, err := guard.RecordFailure(ctx, "uuid-1")
		if err != nil {
			t.Fatalf("failure %d: %v", i, err)
		}
		if locked {
			t.Fatalf("locked after %d failures, threshold is 5", i+1)
		}
	}

	locked, err := guard.RecordFailure(ctx, "uuid-1")
	if err != nil {
		t.Fatalf("fifth failure: %v", err)
	}
	if !locked {
		t.Fatal("expected fifth failure to lock the account")
	}

	until, ok := store.lockouts["uuid-1"]
	if !ok {
		t.Fatal("expected lockout stamp on user record")
	}
	remaining := time.Until(until)
	if remaining < 29*time.Minute || remaining > 31*time.Minute {
		t.Fatalf("unexpected lockout duration: %v", remaining)
	}
}

func TestIsLockedOut(t *testing.T) {
	guard := NewLockoutGuard(LockoutConfig{Enabled: true, Threshold: 5, Duration: 30 * time.Minute}, LockoutDeps{})

	if guard.IsLockedOut(nil) {
		t.Fatal("nil stamp must not lock")
	}

	past := time.Now().Add(-time.Minute)
	if guard.IsLockedOut(&past) {
		t.Fatal("expired stamp must not lock")
	}

	future := time.Now().Add(time.Minute)
	if !guard.IsLockedOut(&future) {
		t.Fatal("future stamp must lock")
	}
}

func TestRecordSuccessResetsCounter(t *testing.T) {
	store := newFakeUserStore()
	guard := NewLockoutGuard(LockoutConfig{
		Enabled:   true,
		Threshold: 5,
		Duration:  30 * time.Minute,
	}, store.deps())

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := guard.RecordFailure(ctx, "uuid-1"); err != nil {
			t.Fatalf("failure %d: %v", i, err)
		}
	}
	if err := guard.RecordSuccess(ctx, "uuid-1"); err != nil {
		t.Fatalf("success: %v", err)
	}
	if store.attempts["uuid-1"] != 0 {
		t.Fatalf("expected reset counter, got %d", store.attempts["uuid-1"])
	}

	// Fresh failures start counting from zero again.
	for i := 0; i < 4; i++ {
		locked, err := guard.RecordFailure(ctx, "uuid-1")
		if err != nil {
			t.Fatalf("post-reset failure %d: %v", i, err)
		}
		if locked {
			t.Fatalf("locked after %d post-reset failures", i+1)
		}
	}
}

func TestRecordSuccessClearsLockoutStamp(t *testing.T) {
	store := newFakeUserStore()
	guard := NewLockoutGuard(LockoutConfig{
		Enabled:   true,
		Threshold: 2,
		Duration:  10 * time.Minute,
	}, store.deps())

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := guard.RecordFailure(ctx, "uuid-1"); err != nil {
			t.Fatalf("failure %d: %v", i, err)
		}
	}
	if _, ok := store.lockouts["uuid-1"]; !ok {
		t.Fatal("expected lockout stamp after threshold")
	}

	if err := guard.RecordSuccess(ctx, "uuid-1"); err != nil {
		t.Fatalf("success: %v", err)
	}
	if _, ok := store.lockouts["uuid-1"]; ok {
		t.Fatal("expected success to clear the lockout stamp")
	}
	if store.attempts["uuid-1"] != 0 {
		t.Fatalf("expected reset counter, got %d", store.attempts["uuid-1"])
	}
}

func TestDisabledGuardIsNoOp(t *testing.T) {
	guard := NewLockoutGuard(LockoutConfig{}, LockoutDeps{})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		locked, err := guard.RecordFailure(ctx, "uuid-1")
		if err != nil {
			t.Fatalf("failure %d: %v", i, err)
		}
		if locked {
			t.Fatal("disabled guard must never lock")
		}
	}

	future := time.Now().Add(time.Hour)
	if guard.IsLockedOut(&future) {
		t.Fatal("disabled guard must report unlocked")
	}
}

func TestManualUnlockOnlyDuration(t *testing.T) {
	store := newFakeUserStore()
	guard := NewLockoutGuard(LockoutConfig{
		Enabled:   true,
		Threshold: 1,
		Duration:  0,
	}, store.deps())

	locked, err := guard.RecordFailure(context.Background(), "uuid-1")
	if err != nil {
		t.Fatalf("failure: %v", err)
	}
	if !locked {
		t.Fatal("expected lock at threshold 1")
	}

	until := store.lockouts["uuid-1"]
	if time.Until(until) < 24*time.Hour {
		t.Fatalf("manual-unlock stamp too near: %v", until)
	}
}
