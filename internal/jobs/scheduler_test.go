package jobs

import (
	"context"
	"sync"
	"testing"
)

type countingLocker struct {
	mu     sync.Mutex
	locks  int
	held   bool
	during bool
}

func (l *countingLocker) Lock() {
	l.mu.Lock()
	l.locks++
	l.held = true
}

func (l *countingLocker) Unlock() {
	l.held = false
	l.mu.Unlock()
}

func TestSchedulerRegister(t *testing.T) {
	tests := []struct {
		name    string
		hourly  string
		daily   string
		wantErr bool
	}{
		{name: "valid", hourly: "0 0 * * * *", daily: "0 0 10 * * *"},
		{name: "bad hourly", hourly: "every hour", daily: "0 0 10 * * *", wantErr: true},
		{name: "bad daily", hourly: "0 0 * * * *", daily: "0 0 25 * * *", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			s := NewScheduler(f.jobs, &sync.Mutex{}, nil, nil)
			err := s.Register(context.Background(), tt.hourly, tt.daily)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Register() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSchedulerRunHoldsLock(t *testing.T) {
	f := newFixture(t)
	lock := &countingLocker{}
	s := NewScheduler(f.jobs, lock, nil, nil)

	var ran bool
	s.wrap(context.Background(), func(ctx context.Context) Report {
		ran = true
		lock.during = lock.held
		return Report{Job: "probe"}
	})()

	if !ran || !lock.during {
		t.Fatalf("ran = %v, locked during run = %v", ran, lock.during)
	}
	if lock.locks != 1 || lock.held {
		t.Fatalf("locks = %d, still held = %v", lock.locks, lock.held)
	}
}

func TestSchedulerSkipsAfterShutdown(t *testing.T) {
	f := newFixture(t)
	lock := &countingLocker{}
	s := NewScheduler(f.jobs, lock, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s.wrap(ctx, func(context.Context) Report {
		t.Fatal("job ran after shutdown")
		return Report{}
	})()
	if lock.locks != 0 {
		t.Fatalf("locks = %d, want 0", lock.locks)
	}
}
