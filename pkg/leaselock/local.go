package leaselock

import (
	"context"
	"sync"
	"time"
)

// Local is an in-process Locker for deployments without PostgreSQL. Leases
// never expire while held.
type Local struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

// NewLocal returns an empty Local.
func NewLocal() *Local {
	return &Local{held: make(map[string]chan struct{})}
}

func (l *Local) acquire(ctx context.Context, key string, opts Options) (chan struct{}, error) {
	opts = opts.withDefaults()
	for {
		l.mu.Lock()
		done, busy := l.held[key]
		if !busy {
			done = make(chan struct{})
			l.held[key] = done
			l.mu.Unlock()
			return done, nil
		}
		l.mu.Unlock()

		if !opts.Wait {
			return nil, ErrBusy
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-done:
		case <-time.After(opts.WaitInterval):
		}
	}
}

func (l *Local) WithLease(ctx context.Context, key string, opts Options, fn func(ctx context.Context) error) error {
	done, err := l.acquire(ctx, key, opts)
	if err != nil {
		return err
	}
	defer func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
		close(done)
	}()
	return fn(ctx)
}
