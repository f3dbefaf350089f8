package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/safedev/accessgate/internal/core/domain"
	"github.com/safedev/accessgate/internal/core/ports"
)

// recordingAuth tracks how many attempts per username run at the same time.
type recordingAuth struct {
	mu      sync.Mutex
	active  map[string]int
	maxSeen map[string]int
	calls   atomic.Int32
	err     error
}

func newRecordingAuth() *recordingAuth {
	return &recordingAuth{active: map[string]int{}, maxSeen: map[string]int{}}
}

func (r *recordingAuth) Authenticate(_ context.Context, in ports.AuthInput) (*domain.User, error) {
	r.calls.Add(1)
	r.mu.Lock()
	r.active[in.Username]++
	if r.active[in.Username] > r.maxSeen[in.Username] {
		r.maxSeen[in.Username] = r.active[in.Username]
	}
	r.mu.Unlock()

	time.Sleep(time.Millisecond)

	r.mu.Lock()
	r.active[in.Username]--
	r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	return &domain.User{Username: in.Username}, nil
}

func TestDispatcher_ShardIndexDeterministic(t *testing.T) {
	d := NewDispatcher(4, newRecordingAuth(), zerolog.Nop())
	for _, name := range []string{"alice", "bob", "carol", ""} {
		first := d.shardIndex(name)
		if first < 0 || first >= 4 {
			t.Fatalf("shard %d out of range", first)
		}
		if d.shardIndex(name) != first {
			t.Fatalf("shard for %q not stable", name)
		}
	}
}

func TestDispatcher_DefaultWorkers(t *testing.T) {
	d := NewDispatcher(0, newRecordingAuth(), zerolog.Nop())
	if len(d.workers) != defaultWorkers {
		t.Fatalf("expected %d workers, got %d", defaultWorkers, len(d.workers))
	}
}

func TestDispatcher_SerializesPerUsername(t *testing.T) {
	auth := newRecordingAuth()
	d := NewDispatcher(4, auth, zerolog.Nop())
	ctx := context.Background()
	d.Start()
	defer d.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		for _, name := range []string{"alice", "bob"} {
			wg.Add(1)
			go func(name string) {
				defer wg.Done()
				u, err := d.Authenticate(ctx, ports.AuthInput{Username: name, HWID: "H"})
				if err != nil {
					t.Errorf("authenticate: %v", err)
					return
				}
				if u.Username != name {
					t.Errorf("got result for %q, want %q", u.Username, name)
				}
			}(name)
		}
	}
	wg.Wait()

	if got := auth.calls.Load(); got != 40 {
		t.Fatalf("expected 40 calls, got %d", got)
	}
	for name, maxSeen := range auth.maxSeen {
		if maxSeen != 1 {
			t.Fatalf("%s had %d concurrent attempts", name, maxSeen)
		}
	}
}

func TestDispatcher_PropagatesErrors(t *testing.T) {
	auth := newRecordingAuth()
	auth.err = domain.ErrHwidMismatch
	d := NewDispatcher(2, auth, zerolog.Nop())
	ctx := context.Background()
	d.Start()
	defer d.Stop()

	_, err := d.Authenticate(ctx, ports.AuthInput{Username: "alice"})
	if !errors.Is(err, domain.ErrHwidMismatch) {
		t.Fatalf("expected ErrHwidMismatch, got %v", err)
	}
}

func TestDispatcher_ContextCancelledBeforeStart(t *testing.T) {
	d := NewDispatcher(1, newRecordingAuth(), zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := d.Authenticate(ctx, ports.AuthInput{Username: "alice"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestDispatcher_StopDrainsQueuedAttempts(t *testing.T) {
	auth := newRecordingAuth()
	d := NewDispatcher(1, auth, zerolog.Nop())

	// Queued before any worker runs, answered once Start and Stop have both been called.
	results := make(chan error, 5)
	for i := 0; i < 5; i++ {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_, err := d.Authenticate(ctx, ports.AuthInput{Username: "alice"})
			results <- err
		}()
	}
	for len(d.workers[0]) < 5 {
		time.Sleep(time.Millisecond)
	}

	d.Start()
	d.Stop()

	for i := 0; i < 5; i++ {
		if err := <-results; err != nil {
			t.Fatalf("queued attempt not served: %v", err)
		}
	}
	if got := auth.calls.Load(); got != 5 {
		t.Fatalf("expected 5 calls, got %d", got)
	}
}

func TestDispatcher_AuthenticateAfterStop(t *testing.T) {
	d := NewDispatcher(2, newRecordingAuth(), zerolog.Nop())
	d.Start()
	d.Stop()
	d.Stop()

	_, err := d.Authenticate(context.Background(), ports.AuthInput{Username: "alice"})
	if !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}
