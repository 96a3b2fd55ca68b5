package draft

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// leagueLocks gives each league its own critical section. Entries live only
// while someone holds or waits on them.
type leagueLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*leagueLock
}

type leagueLock struct {
	sem  chan struct{}
	refs int
}

func newLeagueLocks() *leagueLocks {
	return &leagueLocks{locks: make(map[uuid.UUID]*leagueLock)}
}

// acquire blocks until the league's critical section is free or ctx ends.
func (l *leagueLocks) acquire(ctx context.Context, leagueID uuid.UUID) (func(), error) {
	l.mu.Lock()
	lock, ok := l.locks[leagueID]
	if !ok {
		lock = &leagueLock{sem: make(chan struct{}, 1)}
		l.locks[leagueID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	select {
	case lock.sem <- struct{}{}:
	case <-ctx.Done():
		l.unref(leagueID, lock)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-lock.sem
			l.unref(leagueID, lock)
		})
	}, nil
}

func (l *leagueLocks) unref(leagueID uuid.UUID, lock *leagueLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, leagueID)
	}
}

func (l *leagueLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
