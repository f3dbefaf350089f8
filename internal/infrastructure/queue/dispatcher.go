package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/safedev/accessgate/internal/core/domain"
	"github.com/safedev/accessgate/internal/core/ports"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
)

// ErrStopped is returned for attempts submitted after Stop.
var ErrStopped = errors.New("login dispatcher stopped")

type authJob struct {
	ctx    context.Context
	input  ports.AuthInput
	result chan<- authResult
}

type authResult struct {
	user *domain.User
	err  error
}

// Dispatcher routes login attempts to a fixed set of workers using consistent
// hashing on the username, so attempts for one account never run concurrently.
// It implements ports.AuthService by delegating to the wrapped service.
type Dispatcher struct {
	workers []chan authJob
	service ports.AuthService
	log     zerolog.Logger

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, service ports.AuthService, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan authJob, numWorkers),
		service: service,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan authJob, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. They run until Stop.
func (d *Dispatcher) Start() {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(i, ch)
	}
}

// Stop closes the worker queues and waits until every queued attempt has
// been answered. Later calls to Authenticate return ErrStopped.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	for _, ch := range d.workers {
		close(ch)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// Authenticate enqueues the attempt on the worker owning in.Username and
// waits for its decision or for ctx to end.
func (d *Dispatcher) Authenticate(ctx context.Context, in ports.AuthInput) (*domain.User, error) {
	result := make(chan authResult, 1)
	job := authJob{ctx: ctx, input: in, result: result}

	if err := d.enqueue(ctx, in.Username, job); err != nil {
		return nil, err
	}

	select {
	case r := <-result:
		return r.user, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (d *Dispatcher) enqueue(ctx context.Context, username string, job authJob) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return ErrStopped
	}
	select {
	case d.workers[d.shardIndex(username)] <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// shardIndex maps a username deterministically to a worker index.
func (d *Dispatcher) shardIndex(username string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(username))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(id int, ch <-chan authJob) {
	defer d.wg.Done()
	for job := range ch {
		if err := job.ctx.Err(); err != nil {
			job.result <- authResult{err: err}
			continue
		}
		user, err := d.service.Authenticate(job.ctx, job.input)
		if errors.Is(err, domain.ErrStoreFailure) || errors.Is(err, domain.ErrStoreConflict) {
			d.log.Error().Err(err).
				Str("username", job.input.Username).
				Int("worker_id", id).
				Msg("login processing failed")
		}
		job.result <- authResult{user: user, err: err}
	}
}
