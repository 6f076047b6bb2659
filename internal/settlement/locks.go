package settlement

import "sync"

// obligationLocks serializes settlement operations per obligation ID, so
// two concurrent settles of the same obligation (a double-click) cannot
// both pass the status precondition. Entries are reference-counted and
// removed once the last holder releases.
type obligationLocks struct {
	locks map[string]*lockRef
	mu    sync.Mutex
}

type lockRef struct {
	sync.Mutex
	refs int
}

func newObligationLocks() *obligationLocks {
	return &obligationLocks{locks: make(map[string]*lockRef)}
}

// acquire blocks until the lock for id is held and returns the release
// function.
func (l *obligationLocks) acquire(id string) func() {
	l.mu.Lock()
	ref, ok := l.locks[id]
	if !ok {
		ref = &lockRef{}
		l.locks[id] = ref
	}
	ref.refs++
	l.mu.Unlock()

	ref.Lock()
	return func() {
		ref.Unlock()
		l.mu.Lock()
		ref.refs--
		if ref.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
