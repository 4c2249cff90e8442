package controller

import (
	"sync"

	"github.com/truevfs/truevfs/accountant"
)

// rwlock is a reentrant read-write lock keyed by accountant.Owner: the
// owner that already holds the write lock may re-enter it any number
// of times (§5's "a thread may re-enter its own write lock"), and
// never implicitly upgrades a held read lock to a write lock — callers
// must release the read lock and re-acquire the write lock themselves,
// which is exactly the NeedsWriteLock retry the locking decorator
// implements in locking.go.
type rwlock struct {
	mu      sync.Mutex
	cond    *sync.Cond
	writer  accountant.Owner
	writing bool
	depth   int
	readers map[accountant.Owner]int
}

func newRWLock() *rwlock {
	l := &rwlock{readers: make(map[accountant.Owner]int)}
	l.cond = sync.NewCond(&l.mu)
	return l
}

func (l *rwlock) hasOtherReaders(owner accountant.Owner) bool {
	for o, n := range l.readers {
		if o != owner && n > 0 {
			return true
		}
	}
	return false
}

// rLock blocks until owner can hold the read lock: either no one
// holds the write lock, or owner itself already does (read access
// implied by holding the write lock).
func (l *rwlock) rLock(owner accountant.Owner) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.writing && l.writer != owner {
		l.cond.Wait()
	}
	l.readers[owner]++
}

func (l *rwlock) rUnlock(owner accountant.Owner) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.readers[owner]--
	if l.readers[owner] <= 0 {
		delete(l.readers, owner)
	}
	l.cond.Broadcast()
}

// lock blocks until owner can hold the write lock. Re-entrant for the
// current writer; never granted while owner still holds only a read
// lock and another owner is reading or writing.
func (l *rwlock) lock(owner accountant.Owner) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.writing && l.writer == owner {
		l.depth++
		return
	}
	for (l.writing && l.writer != owner) || l.hasOtherReaders(owner) {
		l.cond.Wait()
	}
	l.writing = true
	l.writer = owner
	l.depth = 1
}

// tryLock is the non-blocking form of lock; nothing in this package
// calls it.
func (l *rwlock) tryLock(owner accountant.Owner) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.writing && l.writer == owner {
		l.depth++
		return true
	}
	if (l.writing && l.writer != owner) || l.hasOtherReaders(owner) {
		return false
	}
	l.writing = true
	l.writer = owner
	l.depth = 1
	return true
}

func (l *rwlock) unlock(owner accountant.Owner) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.writing || l.writer != owner {
		panic("controller: unlock of write lock not held by owner")
	}
	l.depth--
	if l.depth <= 0 {
		l.writing = false
		l.depth = 0
	}
	l.cond.Broadcast()
}
